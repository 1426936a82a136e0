package ingestion

import (
	"strings"

	"github.com/shopops/backoffice/internal/domain"
	"github.com/shopops/backoffice/internal/normalize"
)

// Column names reported in a MissingColumnError.
const (
	ColumnTrackingNo      = "tracking_no"
	ColumnReceiverName    = "receiver_name"
	ColumnReceiverPhone   = "receiver_phone"
	ColumnReceiverZipcode = "receiver_zipcode"
	ColumnReceiverAddress = "receiver_address"
)

// ColumnMap holds the zero-based header index of each recognised column,
// -1 when the column is absent.
type ColumnMap struct {
	TrackingNo      int `json:"tracking_no"`
	ReceiverName    int `json:"receiver_name"`
	ReceiverPhone   int `json:"receiver_phone"`
	ReceiverZipcode int `json:"receiver_zipcode"`
	ReceiverAddress int `json:"receiver_address"`
}

type columnRule struct {
	name     string
	keywords []string
	excludes []string
	target   func(*ColumnMap) *int
}

// Carrier exports often list the sender next to the receiver.
var senderWords = []string{"보내는", "발송인", "송하인", "발송자", "sender", "출고"}

// Rules run in this order and a header cell is claimed by at most one rule.
// Within a rule, earlier keywords win over later ones.
var columnRules = []columnRule{
	{
		name:     ColumnTrackingNo,
		keywords: []string{"운송장번호", "송장번호", "운송장", "송장", "tracking"},
		target:   func(m *ColumnMap) *int { return &m.TrackingNo },
	},
	{
		name:     ColumnReceiverName,
		keywords: []string{"수하인명", "수취인명", "받는분", "수령인", "수하인", "수취인", "고객명", "받는사람", "receiver"},
		excludes: append([]string{"주소", "전화", "연락처", "폰", "우편", "address", "phone", "zip"}, senderWords...),
		target:   func(m *ColumnMap) *int { return &m.ReceiverName },
	},
	{
		name:     ColumnReceiverPhone,
		keywords: []string{"전화", "연락처", "휴대폰", "핸드폰", "phone"},
		excludes: senderWords,
		target:   func(m *ColumnMap) *int { return &m.ReceiverPhone },
	},
	{
		name:     ColumnReceiverZipcode,
		keywords: []string{"우편번호", "zip"},
		excludes: senderWords,
		target:   func(m *ColumnMap) *int { return &m.ReceiverZipcode },
	},
	{
		name:     ColumnReceiverAddress,
		keywords: []string{"주소", "배송지", "address"},
		excludes: append([]string{"우편", "zip"}, senderWords...),
		target:   func(m *ColumnMap) *int { return &m.ReceiverAddress },
	},
}

var requiredColumns = []string{ColumnTrackingNo, ColumnReceiverName, ColumnReceiverAddress}

// DetectColumns locates the shipment columns in a header row by keyword.
// Tracking number, receiver name and receiver address are required.
func DetectColumns(header []string) (ColumnMap, error) {
	cm := ColumnMap{-1, -1, -1, -1, -1}

	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = normalize.Compact(h)
	}
	used := make([]bool, len(cells))

	for _, rule := range columnRules {
		idx := findColumn(cells, used, rule)
		if idx >= 0 {
			used[idx] = true
		}
		*rule.target(&cm) = idx
	}

	var missing []string
	for _, name := range requiredColumns {
		if cm.index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return cm, &domain.MissingColumnError{Columns: missing}
	}

	return cm, nil
}

func findColumn(cells []string, used []bool, rule columnRule) int {
	for _, kw := range rule.keywords {
		for i, cell := range cells {
			if used[i] || cell == "" || !strings.Contains(cell, kw) {
				continue
			}
			if containsAny(cell, rule.excludes) {
				continue
			}
			return i
		}
	}
	return -1
}

func (m ColumnMap) index(name string) int {
	switch name {
	case ColumnTrackingNo:
		return m.TrackingNo
	case ColumnReceiverName:
		return m.ReceiverName
	case ColumnReceiverPhone:
		return m.ReceiverPhone
	case ColumnReceiverZipcode:
		return m.ReceiverZipcode
	case ColumnReceiverAddress:
		return m.ReceiverAddress
	}
	return -1
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
