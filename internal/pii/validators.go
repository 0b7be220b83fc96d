package pii

import (
	"regexp"
	"strings"
)

// Conservative local@domain.tld shape: alphanumeric local part with
// ._%+- allowed, dot-separated alphanumeric/hyphen labels, and a final
// label of at least two letters.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@(?:[A-Za-z0-9-]+\.)+[A-Za-z]{2,}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// Single-digit landline area codes (Jerusalem, center, Haifa/north,
// south, Sharon).
var landlineAreaCodes = map[byte]bool{'2': true, '3': true, '4': true, '8': true, '9': true}

// IsNationalID reports whether text is a valid 9-digit identity number.
// Each digit is multiplied by an alternating 1,2 weight; products of
// ten or more contribute the sum of their own digits; the total must
// divide by ten.
func IsNationalID(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) != 9 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// IsEmail reports whether text has a plausible email address shape.
func IsEmail(text string) bool {
	return emailPattern.MatchString(strings.TrimSpace(text))
}

// IsPhone reports whether text is an Israeli mobile or landline number,
// with or without the +972 country-code prefix and common separators.
func IsPhone(text string) bool {
	s := phoneSeparators.Replace(strings.TrimSpace(text))
	if strings.HasPrefix(s, "+972") {
		s = "0" + s[4:]
	} else if strings.HasPrefix(s, "972") && len(s) > 9 {
		s = "0" + s[3:]
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	switch {
	case strings.HasPrefix(s, "05"), strings.HasPrefix(s, "07"):
		// Mobile and VoIP ranges carry a two-digit prefix.
		return len(s) == 10
	case len(s) == 9 && s[0] == '0':
		return landlineAreaCodes[s[1]]
	}
	return false
}
