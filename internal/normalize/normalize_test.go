package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestCompact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"서울 강남구 (역삼동)-1", "서울강남구역삼동1"},
		{"  ABC Def ", "abcdef"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Compact(tt.in))
		})
	}
}

func TestCompact_ComposesDecomposedHangul(t *testing.T) {
	decomposed := norm.NFD.String("정형준")
	assert.NotEqual(t, "정형준", decomposed)
	assert.Equal(t, "정형준", Compact(decomposed))
}

func TestPhone(t *testing.T) {
	assert.Equal(t, "01012345678", Phone("010-1234-5678"))
	assert.Equal(t, "021234567", Phone("(02) 123 4567"))
	assert.Equal(t, "+821012345678", Phone("+82 10-1234-5678"))
	assert.Equal(t, "", Phone(" - "))
}

func TestName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"honorific with space", "홍길동 고객님", "홍길동"},
		{"nim suffix", "김민수님", "김민수"},
		{"too short to strip", "이씨", "이씨"},
		{"mask removed", "박병준*", "박병준"},
		{"full-width mask removed", "박병준＊", "박병준"},
		{"latin lowercased", "  John Smith ", "johnsmith"},
		{"job title kept", "김철수 과장님", "김철수과장"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.in))
		})
	}
}

func TestNameEnhanced(t *testing.T) {
	assert.Equal(t, "김철수", NameEnhanced("김철수 과장님"))
	assert.Equal(t, "이영희", NameEnhanced("이영희 팀장"))
	assert.Equal(t, "박민", NameEnhanced("박민 매니저"))
	assert.Equal(t, "정팀장", NameEnhanced("정팀장"))
	assert.Equal(t, "홍길동", NameEnhanced("홍길동님"))
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(주)한빛상사", "한빛상사"},
		{"한빛상사 주식회사", "한빛상사"},
		{"㈜한빛상사", "한빛상사"},
		{"주식회사 한빛상사 (주)", "한빛상사"},
		{"Acme Co., Ltd.", "acme"},
		{"Acme Inc.", "acme"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CompanyName(tt.in))
		})
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"building and floor stripped", "서울특별시 강남구 테헤란로 123 ABC빌딩 5층", "서울강남구테헤란로123"},
		{"short form unchanged", "서울 강남구 테헤란로 123", "서울강남구테헤란로123"},
		{"province shortened", "경기도 성남시 분당구 정자일로 12-3", "경기성남시분당구정자일로12-3"},
		{"hangul after hyphen number dropped", "경기도 성남시 분당구 정자일로 12-3 미래에셋", "경기성남시분당구정자일로12-3"},
		{"hangul after sub-lane dropped", "경기 성남시 판교로 10번길 5 미래프라자", "경기성남시판교로10번길5"},
		{"lot number with building", "서울 강남구 역삼동 123-45 (한국빌딩)", "서울강남구역삼동123-45"},
		{"unit number after comma", "부산광역시  해운대구   센텀중앙로 97, 1501호", "부산해운대구센텀중앙로97"},
		{"spaced generic suffix dropped", "서울 특별시 종로구 세종대로 110", "서울종로구세종대로110"},
		{"special self-governing province", "강원특별자치도 춘천시 중앙로 1", "강원춘천시중앙로1"},
		{"no street number", "서울 강남구", "서울강남구"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Address(tt.in))
		})
	}
}

func TestAddress_BuildingSuffixComparableBySubstring(t *testing.T) {
	full := Address("서울특별시 강남구 테헤란로 123 ABC빌딩 5층")
	short := Address("서울 강남구 테헤란로 123")

	assert.Contains(t, full, short)
	assert.Equal(t, full, short)
}

func TestBaseAddress(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain number", "서울 강남구 테헤란로 123 역삼빌", "서울강남구테헤란로123"},
		{"hyphenated number", "서울 강남구 테헤란로 123-4", "서울강남구테헤란로123-4"},
		{"sub-lane", "경기 성남시 판교로 10번길 5", "경기성남시판교로10번길5"},
		{"no number falls back to full address", "서울 강남구", "서울강남구"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseAddress(tt.in))
		})
	}
}

func TestNamesSimilarWithMasking(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "정형준", "정형준", true},
		{"trailing mask", "박병준*", "박병준", true},
		{"different people", "김영수", "이미연", false},
		{"masked middle character", "박*준", "박병준", true},
		{"masked prefix only", "박*", "박병준", true},
		{"job title", "김민수 과장", "김민수", true},
		{"honorific", "홍길동님", "홍길동", true},
		{"one character differs", "정형준", "정형주", false},
		{"long common prefix", "abcdef", "abcdeg", true},
		{"empty side", "", "김", false},
		{"mask only", "*", "김민수", false},
		{"masked but different", "김*수", "박민수", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NamesSimilarWithMasking(tt.a, tt.b))
			assert.Equal(t, tt.want, NamesSimilarWithMasking(tt.b, tt.a))
		})
	}
}
