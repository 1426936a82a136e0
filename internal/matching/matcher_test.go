package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopops/backoffice/internal/domain"
)

// Test fixtures
func order(id, name, phone, address string) domain.OrderRecord {
	return domain.OrderRecord{
		OrderID:         id,
		ReceiverName:    name,
		ReceiverPhone:   phone,
		ReceiverAddress: address,
		OrderStatus:     domain.OrderStatusPreparing,
	}
}

func row(sourceRow int, trackingNo, name, phone, address string) domain.ShipmentRow {
	return domain.ShipmentRow{
		TrackingNo:      trackingNo,
		ReceiverName:    name,
		ReceiverPhone:   phone,
		ReceiverAddress: address,
		SourceRow:       sourceRow,
	}
}

func newTestMatcher() *Matcher {
	return NewMatcher(nil, nil)
}

func TestMatch_ExactNameWithBuildingSuffix(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1234-5678", "서울 강남구 테헤란로 123"),
	}
	rows := []domain.ShipmentRow{
		row(2, "123", "정형준", "", "서울특별시 강남구 테헤란로 123 5층"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Empty(t, result.Failures)

	a := result.Assignments[0]
	assert.Equal(t, "A1", a.OrderID)
	assert.Equal(t, "123", a.TrackingNo)
	assert.Equal(t, domain.MatchTypeExact, a.MatchType)
	assert.Equal(t, domain.MethodName, a.Method)
	assert.Equal(t, 2, a.SourceRow)
	assert.Equal(t, "정형준", a.ReceiverName)
}

func TestMatch_SameNameNarrowedByAddress(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "정형준", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "", "부산광역시 해운대구 센텀중앙로 97, 1501호"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A2", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MatchTypeExact, result.Assignments[0].MatchType)
	assert.Equal(t, domain.MethodNameAddress, result.Assignments[0].Method)
}

func TestMatch_MaskedName(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "박병준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "김영수", "010-2222-2222", "서울 강남구 테헤란로 456"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "박병*", "", ""),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A1", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MethodName, result.Assignments[0].Method)
}

func TestMatch_PhoneTier(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "홍길동", "010-1234-5678", "서울 강남구 테헤란로 123"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "김철수", "01012345678", "대전 유성구 대학로 99"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A1", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MatchTypePartial, result.Assignments[0].MatchType)
	assert.Equal(t, domain.MethodPhone, result.Assignments[0].Method)
}

func TestMatch_AmbiguousNameFallsThroughToPhone(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "정형준", "010-2222-2222", "서울 강남구 테헤란로 123"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "010-2222-2222", "서울 강남구 테헤란로 123"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A2", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MethodPhone, result.Assignments[0].Method)
}

func TestMatch_AddressTier(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "홍길동", "010-1111-1111", "경기도 성남시 분당구 정자일로 12-3"),
		order("A2", "이순신", "010-2222-2222", "서울 강남구 테헤란로 123"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "유관순", "", "경기 성남시 분당구 정자일로 12-3 미래에셋"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A1", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MatchTypePartial, result.Assignments[0].MatchType)
	assert.Equal(t, domain.MethodAddress, result.Assignments[0].Method)
}

func TestMatch_ShortAddressSkipsAddressTier(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "홍길동", "", "서울"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "유관순", "", "서울"),
	}

	result := newTestMatcher().Match(orders, rows)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.FailureNoMatch, result.Failures[0].Kind)
}

func TestMatch_EnhancedNameTier(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "김철수 과장", "010-1111-1111", "서울 강남구 테헤란로 1"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "김철수", "", "부산 해운대구 센텀중앙로 97"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A1", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MatchTypePartial, result.Assignments[0].MatchType)
	assert.Equal(t, domain.MethodEnhancedName, result.Assignments[0].Method)
}

func TestMatch_CompanyNameTier(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "(주)한빛상사", "02-111-1111", "서울 강남구 테헤란로 1"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "한빛상사 주식회사", "", "부산 해운대구 센텀중앙로 97"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, domain.MethodEnhancedName, result.Assignments[0].Method)
}

func TestMatch_EnhancedNameNarrowedByBaseAddress(t *testing.T) {
	orders := []domain.OrderRecord{
		order("B1", "김철수 과장", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("B2", "김철수 팀장", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
		order("B3", "이영희", "010-3333-3333", "부산 해운대구 센텀중앙로 97"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "김철수", "", "부산광역시 해운대구 센텀중앙로 97 1501호"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "B2", result.Assignments[0].OrderID)
	assert.Equal(t, domain.MatchTypePartial, result.Assignments[0].MatchType)
	assert.Equal(t, domain.MethodEnhancedNameAddress, result.Assignments[0].Method)
}

func TestMatch_NoMatch(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "김영수", "010-1111-2222", "서울 강남구 테헤란로 123"),
		order("A2", "이미연", "010-3333-4444", "서울 서초구 서초대로 77"),
	}
	rows := []domain.ShipmentRow{
		row(5, "T-9", "박지성", "010-9999-9999", "대전 유성구 대학로 99"),
	}

	result := newTestMatcher().Match(orders, rows)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Failures, 1)

	f := result.Failures[0]
	assert.Equal(t, 5, f.SourceRow)
	assert.Equal(t, "T-9", f.TrackingNo)
	assert.Equal(t, "박지성", f.ShipmentName)
	assert.Equal(t, domain.FailureNoMatch, f.Kind)
	assert.NotEmpty(t, f.Reason)
	assert.Empty(t, f.PossibleSplitOrderIDs)
}

func TestMatch_AmbiguousReportsSplitOrders(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "정형준", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
		order("A3", "김영수", "010-3333-3333", "대구 중구 동성로 5"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "", "제주 제주시 연동 1"),
	}

	result := newTestMatcher().Match(orders, rows)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Failures, 1)

	f := result.Failures[0]
	assert.Equal(t, domain.FailureAmbiguous, f.Kind)
	assert.Contains(t, f.Reason, "name matched 2 orders")
	assert.Equal(t, []string{"A1", "A2"}, f.PossibleSplitOrderIDs)
}

func TestMatch_ConsumedOrderNotReused(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1234-5678", "서울 강남구 테헤란로 123"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "010-1234-5678", "서울 강남구 테헤란로 123"),
		row(3, "T-2", "정형준", "010-1234-5678", "서울 강남구 테헤란로 123"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "T-1", result.Assignments[0].TrackingNo)
	assert.Equal(t, domain.MethodName, result.Assignments[0].Method)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "T-2", result.Failures[0].TrackingNo)
	assert.Equal(t, domain.FailureNoMatch, result.Failures[0].Kind)
	assert.Empty(t, result.Failures[0].PossibleSplitOrderIDs)
}

func TestMatch_SplitOrdersExcludeConsumed(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "정형준", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
		order("A3", "정형준", "010-3333-3333", "대구 중구 동성로 5"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "010-1111-1111", ""),
		row(3, "T-2", "정형준", "", "제주 제주시 연동 1"),
	}

	result := newTestMatcher().Match(orders, rows)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "A1", result.Assignments[0].OrderID)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, []string{"A2", "A3"}, result.Failures[0].PossibleSplitOrderIDs)
}

func TestMatch_NoOrderAssignedTwice(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "김영수", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
		order("A3", "이미연", "010-3333-3333", "대구 중구 동성로 5"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "", ""),
		row(3, "T-2", "", "010-1111-1111", ""),
		row(4, "T-3", "", "", "서울 강남구 테헤란로 123"),
		row(5, "T-4", "김영수", "", ""),
		row(6, "T-5", "이미*", "", ""),
		row(7, "T-6", "이미연", "010-3333-3333", "대구 중구 동성로 5"),
	}

	result := newTestMatcher().Match(orders, rows)

	seen := make(map[string]bool)
	for _, a := range result.Assignments {
		assert.False(t, seen[a.OrderID], "order %s assigned twice", a.OrderID)
		seen[a.OrderID] = true
	}
	assert.Len(t, result.Assignments, 3)
	assert.Len(t, result.Failures, 3)
	assert.Equal(t, len(rows), result.Stats.Total)
	assert.Equal(t, result.Stats.Matched+result.Stats.Failed, result.Stats.Total)
}

func TestMatch_Deterministic(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "정형준", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
		order("A3", "김철수 과장", "010-3333-3333", "대구 중구 동성로 5"),
		order("A4", "박병준", "010-4444-4444", "경기 성남시 분당구 정자일로 12-3"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "", "제주 제주시 연동 1"),
		row(3, "T-2", "박병*", "", ""),
		row(4, "T-3", "김철수", "", ""),
		row(5, "T-4", "정형준", "010-2222-2222", ""),
	}

	m := newTestMatcher()
	first := m.Match(orders, rows)
	second := m.Match(orders, rows)

	assert.Equal(t, first, second)
}

func TestMatch_Stats(t *testing.T) {
	orders := []domain.OrderRecord{
		order("A1", "정형준", "010-1111-1111", "서울 강남구 테헤란로 123"),
		order("A2", "홍길동", "010-2222-2222", "부산 해운대구 센텀중앙로 97"),
	}
	rows := []domain.ShipmentRow{
		row(2, "T-1", "정형준", "", ""),
		row(3, "T-2", "", "010-2222-2222", ""),
		row(4, "T-3", "없는사람", "", ""),
	}

	result := newTestMatcher().Match(orders, rows)

	assert.Equal(t, 3, result.Stats.Total)
	assert.Equal(t, 2, result.Stats.Matched)
	assert.Equal(t, 1, result.Stats.Failed)
	assert.Equal(t, 1, result.Stats.ByMethod[domain.MethodName])
	assert.Equal(t, 1, result.Stats.ByMethod[domain.MethodPhone])
}

func TestMatch_EmptyInputs(t *testing.T) {
	result := newTestMatcher().Match(nil, nil)

	require.NotNil(t, result)
	assert.NotNil(t, result.Assignments)
	assert.NotNil(t, result.Failures)
	assert.Zero(t, result.Stats.Total)
}
