package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Suffixes are tried longest first so "고객님" wins over "님".
var honorifics = []string{
	"고객님", "선생님", "사장님", "대표님", "담당자",
	"고객", "귀하", "님", "씨",
}

var jobTitles = []string{
	"매니저", "과장", "부장", "차장", "대리", "사원", "주임", "팀장",
	"실장", "이사", "대표", "사장", "원장", "점장",
}

var enhancedSuffixes = append(append([]string{}, honorifics...), jobTitles...)

// minNameRunes is the shortest name a suffix may be stripped down to.
const minNameRunes = 2

// Name strips honorific suffixes, masking characters, whitespace and
// punctuation, and lowercases the result.
func Name(s string) string {
	return name(s, honorifics)
}

// NameEnhanced is Name with job titles such as 과장 or 팀장 also stripped.
func NameEnhanced(s string) string {
	return name(s, enhancedSuffixes)
}

func name(s string, suffixes []string) string {
	s = stripSuffixes(removeSpace(nfc(s)), suffixes)

	var b strings.Builder
	for _, r := range s {
		if isMask(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func stripSuffixes(s string, suffixes []string) string {
	for changed := true; changed; {
		changed = false
		for _, suffix := range suffixes {
			if !strings.HasSuffix(s, suffix) {
				continue
			}
			rest := strings.TrimSuffix(s, suffix)
			if utf8.RuneCountInString(removeMasks(rest)) < minNameRunes {
				continue
			}
			s = rest
			changed = true
			break
		}
	}
	return s
}

// NamesSimilarWithMasking compares two raw names while tolerating carrier
// masking such as "박병*". The check is pairwise only and not transitive.
func NamesSimilarWithMasking(a, b string) bool {
	a, b = removeSpace(nfc(a)), removeSpace(nfc(b))
	plainA, plainB := strings.ToLower(removeMasks(a)), strings.ToLower(removeMasks(b))
	if plainA == "" || plainB == "" {
		return false
	}

	if plainA == plainB {
		return true
	}

	if enhA, enhB := NameEnhanced(a), NameEnhanced(b); enhA != "" && enhA == enhB {
		return true
	}

	shorter, longer := plainA, plainB
	if runeLen(shorter) > runeLen(longer) {
		shorter, longer = longer, shorter
	}

	if HasMask(a) || HasMask(b) {
		if strings.HasPrefix(longer, shorter) || strings.Contains(longer, shorter) {
			return true
		}
		if wildcardEqual(strings.ToLower(a), strings.ToLower(b)) {
			return true
		}
	}

	shortLen, longLen := runeLen(shorter), runeLen(longer)
	if shortLen < 3 || float64(shortLen)/float64(longLen) < 0.8 {
		return false
	}
	return float64(commonPrefixLen(shorter, longer)) >= 0.8*float64(shortLen)
}

// wildcardEqual treats each masking character as exactly one unknown rune.
func wildcardEqual(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return false
	}
	for i := range ra {
		if ra[i] != rb[i] && !isMask(ra[i]) && !isMask(rb[i]) {
			return false
		}
	}
	return true
}

func commonPrefixLen(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := 0
	for n < len(ra) && n < len(rb) && ra[n] == rb[n] {
		n++
	}
	return n
}
