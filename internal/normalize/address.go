package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

type regionRewrite struct {
	long, short string
}

// Long administrative names and their short forms. Longer forms come first
// so 강원특별자치도 is rewritten before 강원도 could match.
var regionRewrites = []regionRewrite{
	{"세종특별자치시", "세종"},
	{"강원특별자치도", "강원"},
	{"전북특별자치도", "전북"},
	{"제주특별자치도", "제주"},
	{"서울특별시", "서울"},
	{"부산광역시", "부산"},
	{"대구광역시", "대구"},
	{"인천광역시", "인천"},
	{"광주광역시", "광주"},
	{"대전광역시", "대전"},
	{"울산광역시", "울산"},
	{"충청북도", "충북"},
	{"충청남도", "충남"},
	{"전라북도", "전북"},
	{"전라남도", "전남"},
	{"경상북도", "경북"},
	{"경상남도", "경남"},
	{"경기도", "경기"},
	{"강원도", "강원"},
	{"제주도", "제주"},
}

// Shortened city names that only count as a region when they are a whole token.
var regionTokens = map[string]string{
	"서울시": "서울",
	"부산시": "부산",
	"대구시": "대구",
	"인천시": "인천",
	"광주시": "광주",
	"대전시": "대전",
	"울산시": "울산",
	"세종시": "세종",
}

// Generic suffix words left behind by "서울 특별시" style spacing.
var regionSuffixWords = map[string]bool{
	"특별시":   true,
	"광역시":   true,
	"특별자치시": true,
	"특별자치도": true,
}

var unitKeywords = []string{
	"층", "호", "동", "실", "빌딩", "아파트", "빌라", "오피스텔",
	"타워", "상가", "맨션", "주택", "센터", "b1", "지하",
}

var (
	spaceRun = regexp.MustCompile(`\s+`)

	// Road-name addresses: 테헤란로 123, 강남대로123길 45, 정자일로 12-3, 중앙로 10번길 5.
	roadNumber = regexp.MustCompile(`(?:로|길)\s?\d+(?:\s?(?:번길|길)\s?\d+)?(?:-\d+)?`)
	// Lot-number addresses: 역삼동 123-45, 송정리 7.
	lotNumber = regexp.MustCompile(`(?:동|리|가)\s?\d+(?:-\d+)?`)

	// Sub-lane or hyphenated numbers followed by a Hangul building name.
	numberThenHangul = regexp.MustCompile(`(\d+번길\d+(?:-\d+)?|\d+-\d+)\p{Hangul}+`)

	baseSubLane = regexp.MustCompile(`^.*?(?:로|길)\d+번길\d+`)
	baseHyphen  = regexp.MustCompile(`^.*?(?:로|길|동|리|가)\d+-\d+`)
	baseNumber  = regexp.MustCompile(`^.*?(?:로|길|동|리|가)\d+`)
)

// Address produces a canonical key for equality and containment checks:
// regions are shortened, whitespace and punctuation (except hyphens) are
// removed, and unit/building descriptors after the street number are cut.
// The result is not reversible.
func Address(s string) string {
	s = strings.TrimSpace(spaceRun.ReplaceAllString(nfc(s), " "))
	s = rewriteRegions(s)

	s = strings.Map(func(r rune) rune {
		if r == '-' {
			return r
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	s = strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))

	s = truncateUnit(s)
	s = removeSpace(s)

	if loc := numberThenHangul.FindStringSubmatchIndex(s); loc != nil {
		s = s[:loc[3]]
	}

	return s
}

func rewriteRegions(s string) string {
	tokens := strings.Split(s, " ")
	out := tokens[:0]
	for _, tok := range tokens {
		if regionSuffixWords[tok] {
			continue
		}
		if short, ok := regionTokens[tok]; ok {
			out = append(out, short)
			continue
		}
		for _, rw := range regionRewrites {
			if strings.HasPrefix(tok, rw.long) {
				tok = rw.short + strings.TrimPrefix(tok, rw.long)
				break
			}
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// truncateUnit cuts everything after the street or lot number when the tail
// names a floor, unit or building.
func truncateUnit(s string) string {
	loc := roadNumber.FindStringIndex(s)
	if loc == nil {
		loc = lotNumber.FindStringIndex(s)
	}
	if loc == nil {
		return s
	}

	rest := s[loc[1]:]
	for _, kw := range unitKeywords {
		if strings.Contains(rest, kw) {
			return s[:loc[1]]
		}
	}
	return s
}

// BaseAddress returns the coarse street-level prefix of the normalized
// address, trying the sub-lane, hyphenated and plain number forms in that
// order. Without a street number the full normalized address is returned.
func BaseAddress(s string) string {
	addr := Address(s)
	for _, re := range []*regexp.Regexp{baseSubLane, baseHyphen, baseNumber} {
		if m := re.FindString(addr); m != "" {
			return m
		}
	}
	return addr
}
