package dedupe

import (
	"strings"
	"unicode"
)

// legalSuffixes are corporate designators stripped from DBA names before
// comparison, so "Acme Corp", "Acme Corporation" and "Acme LLC" all
// normalize to "acme".
var legalSuffixes = map[string]struct{}{
	"llc": {}, "llp": {}, "lp": {}, "plc": {},
	"inc": {}, "incorporated": {},
	"corp": {}, "corporation": {},
	"co": {}, "company": {},
	"ltd": {}, "limited": {},
	"pllc": {}, "pc": {},
}

// NormalizeDBA lowercases, strips punctuation, and removes trailing legal
// suffix tokens from a business name.
func NormalizeDBA(dba string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(dba) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			// Punctuation ("L.L.C.", "Acme, Inc.") collapses away.
		}
	}

	tokens := strings.Fields(b.String())
	for len(tokens) > 1 {
		last := tokens[len(tokens)-1]
		if _, ok := legalSuffixes[last]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " ")
}

// EmailDomain extracts the lowercase domain of an email address.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// NormalizeZip reduces a zip code to its 5-digit prefix. Anything shorter
// than five digits is not a usable signal and normalizes to empty.
func NormalizeZip(zip string) string {
	var b strings.Builder
	for _, r := range zip {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
			if b.Len() == 5 {
				break
			}
		}
	}
	if b.Len() < 5 {
		return ""
	}
	return b.String()
}

// NormalizePhone strips formatting and a leading country code 1.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}
