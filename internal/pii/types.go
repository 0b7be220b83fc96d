package pii

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Category identifies a class of personally identifiable information.
type Category string

const (
	CategoryIdentifier Category = "identifier"
	CategoryEmail      Category = "email"
	CategoryPhone      Category = "phone"
	CategoryPersonName Category = "person_name"
	CategoryAddress    Category = "address"
	CategoryAccount    Category = "account"
	CategoryOther      Category = "other"
)

// AnonymousEmailDomain is appended to email pseudonyms so anonymized
// columns still look like email addresses to downstream tooling.
const AnonymousEmailDomain = "@anon.example.com"

// ErrUnknownCategory is returned when a caller supplies a category
// outside the enumerated set. It is never silently coerced to other.
var ErrUnknownCategory = errors.New("unknown PII category")

// Validator reports whether a cell value belongs to a category.
// Validators are total: malformed input yields false, never a panic.
type Validator func(text string) bool

// Normalizer reduces a cell value to the canonical text form used as
// the mapping key for its category.
type Normalizer func(text string) string

// Entry ties a category to its pseudonym prefix, content validator and
// mapping-key normalizer. Validator is nil for categories that are only
// selectable by column name or manual assignment.
type Entry struct {
	Prefix    string
	Suffix    string
	Validator Validator
	Normalize Normalizer
}

// registry is the single source of truth for category associations,
// consulted by both the detector and the anonymizer.
var registry = map[Category]Entry{
	CategoryIdentifier: {Prefix: "ID", Validator: IsNationalID, Normalize: digitsOnly},
	CategoryEmail:      {Prefix: "EMAIL", Suffix: AnonymousEmailDomain, Validator: IsEmail, Normalize: normalizeEmail},
	CategoryPhone:      {Prefix: "PHONE", Validator: IsPhone, Normalize: normalizePhone},
	CategoryPersonName: {Prefix: "PERSON", Validator: IsPersonName, Normalize: collapseSpaces},
	CategoryAddress:    {Prefix: "ADDRESS", Normalize: collapseSpaces},
	CategoryAccount:    {Prefix: "ACCOUNT", Normalize: collapseSpaces},
	CategoryOther:      {Prefix: "OTHER", Normalize: strings.TrimSpace},
}

// priorityOrder fixes the tie-break order used when two categories
// detect with the same ratio.
var priorityOrder = []Category{
	CategoryIdentifier,
	CategoryEmail,
	CategoryPhone,
	CategoryPersonName,
	CategoryAddress,
	CategoryAccount,
	CategoryOther,
}

// Lookup returns the registry entry for a category.
func Lookup(c Category) (Entry, error) {
	entry, ok := registry[c]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
	return entry, nil
}

// Valid reports whether c is one of the enumerated categories.
func Valid(c Category) bool {
	_, ok := registry[c]
	return ok
}

// Categories returns all categories in fixed priority order.
func Categories() []Category {
	out := make([]Category, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// Priority returns the tie-break rank of a category; lower wins.
func Priority(c Category) int {
	for i, cat := range priorityOrder {
		if cat == c {
			return i
		}
	}
	return len(priorityOrder)
}

// pseudonymPattern recognizes issued pseudonyms, including the email
// decoration. The residual-PII validation pass uses it to avoid
// flagging our own output.
var pseudonymPattern = regexp.MustCompile(
	`^(?:ID|EMAIL|PHONE|PERSON|ADDRESS|ACCOUNT|OTHER)-\d+(?:` + regexp.QuoteMeta(AnonymousEmailDomain) + `)?$`,
)

// IsPseudonym reports whether text is a pseudonym issued by the
// mapping store.
func IsPseudonym(text string) bool {
	return pseudonymPattern.MatchString(strings.TrimSpace(text))
}

func digitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeEmail(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// normalizePhone strips separators and folds the international prefix
// so "+972-50-1234567" and "0501234567" map to one pseudonym.
func normalizePhone(text string) string {
	digits := digitsOnly(text)
	if strings.HasPrefix(digits, "972") && len(digits) > 9 {
		return "0" + digits[3:]
	}
	return digits
}

func collapseSpaces(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}
