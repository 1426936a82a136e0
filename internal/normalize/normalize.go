// Package normalize turns free-text receiver fields from orders and carrier
// spreadsheets into comparable keys. Every function applies Unicode NFC first
// so decomposed Hangul compares equal to precomposed text.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaskChars are the characters carriers use to hide part of a name.
const MaskChars = "*＊"

func nfc(s string) string {
	return norm.NFC.String(s)
}

func isMask(r rune) bool {
	return strings.ContainsRune(MaskChars, r)
}

// HasMask reports whether s contains a masking character.
func HasMask(s string) bool {
	return strings.ContainsAny(s, MaskChars)
}

// Compact strips whitespace, parentheses and hyphens and lowercases the rest.
func Compact(s string) string {
	var b strings.Builder
	for _, r := range nfc(s) {
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Phone strips whitespace, parentheses and hyphens. Digits and any country
// or area code are kept as they are.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range nfc(s) {
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CompanyName strips corporate-entity markers from either end and then
// compacts the result.
func CompanyName(s string) string {
	s = strings.ToLower(removeSpace(nfc(s)))
	for changed := true; changed; {
		changed = false
		for _, marker := range companyMarkers {
			if strings.HasPrefix(s, marker) && len(s) > len(marker) {
				s = s[len(marker):]
				changed = true
			}
			if strings.HasSuffix(s, marker) && len(s) > len(marker) {
				s = s[:len(s)-len(marker)]
				changed = true
			}
		}
	}
	return Compact(s)
}

var companyMarkers = []string{
	"주식회사", "유한회사", "합자회사", "사단법인", "재단법인",
	"(주)", "㈜", "(유)", "(사)", "(재)", "(합)",
	"co.,ltd.", "co.,ltd", "co.ltd.", "co.ltd",
	"corp.", "corp", "inc.", "inc", "ltd.", "ltd",
}

func removeSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func removeMasks(s string) string {
	return strings.Map(func(r rune) rune {
		if isMask(r) {
			return -1
		}
		return r
	}, s)
}

func runeLen(s string) int {
	return len([]rune(s))
}
