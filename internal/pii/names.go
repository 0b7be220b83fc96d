package pii

import (
	"strings"
	"unicode"
)

// NameMatcher decides whether a piece of text looks like a person name.
// Implementations must be stateless and safe for concurrent use.
type NameMatcher interface {
	Matches(text string) bool
}

// DictionaryNameMatcher matches text containing at least one token from
// a fixed name dictionary. Lookup is case-insensitive and ignores
// Hebrew pointing; final-form letters fold to their regular forms so
// inflected surnames still match.
type DictionaryNameMatcher struct {
	names map[string]struct{}
}

// NewDictionaryNameMatcher builds a matcher over the given names.
func NewDictionaryNameMatcher(names []string) *DictionaryNameMatcher {
	m := &DictionaryNameMatcher{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		m.names[foldNameToken(name)] = struct{}{}
	}
	return m
}

// Matches reports whether any token of text is a dictionary name.
func (m *DictionaryNameMatcher) Matches(text string) bool {
	for _, token := range strings.Fields(text) {
		if _, ok := m.names[foldNameToken(token)]; ok {
			return true
		}
	}
	return false
}

// HeuristicNameMatcher matches 2-4 letter-only tokens that each start
// with an uppercase Latin or Hebrew letter and have a plausible average
// length. It is the fallback when the dictionary has no opinion.
type HeuristicNameMatcher struct{}

// Matches applies the shape heuristic.
func (HeuristicNameMatcher) Matches(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	total := 0
	for _, token := range tokens {
		runes := []rune(token)
		if !isNameInitial(runes[0]) {
			return false
		}
		for _, r := range runes {
			if !unicode.IsLetter(r) {
				return false
			}
		}
		total += len(runes)
	}
	avg := float64(total) / float64(len(tokens))
	return avg >= 2 && avg <= 10
}

// CompositeNameMatcher runs matchers in order; the first positive
// answer wins, so the dictionary takes priority over the heuristic.
type CompositeNameMatcher struct {
	matchers []NameMatcher
}

// NewCompositeNameMatcher composes matchers by priority.
func NewCompositeNameMatcher(matchers ...NameMatcher) *CompositeNameMatcher {
	return &CompositeNameMatcher{matchers: matchers}
}

// Matches reports whether any composed matcher accepts the text.
func (m *CompositeNameMatcher) Matches(text string) bool {
	for _, matcher := range m.matchers {
		if matcher.Matches(text) {
			return true
		}
	}
	return false
}

// defaultNameMatcher backs IsPersonName: the built-in dictionary first,
// then the shape heuristic.
var defaultNameMatcher = NewCompositeNameMatcher(
	NewDictionaryNameMatcher(defaultNames),
	HeuristicNameMatcher{},
)

// IsPersonName reports whether text looks like a person name.
func IsPersonName(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return defaultNameMatcher.Matches(text)
}

func isNameInitial(r rune) bool {
	return unicode.IsUpper(r) || isHebrewLetter(r)
}

func isHebrewLetter(r rune) bool {
	return r >= 0x05D0 && r <= 0x05EA
}

// foldNameToken lowercases, strips Hebrew pointing and cantillation,
// and folds final-form Hebrew letters.
func foldNameToken(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		switch {
		case r >= 0x0591 && r <= 0x05C7:
			// Niqqud and cantillation marks.
			continue
		case r == 'ך':
			r = 'כ'
		case r == 'ם':
			r = 'מ'
		case r == 'ן':
			r = 'נ'
		case r == 'ף':
			r = 'פ'
		case r == 'ץ':
			r = 'צ'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// defaultNames covers common Israeli first names and surnames in both
// Hebrew and Latin transliteration.
var defaultNames = []string{
	"david", "דוד",
	"moshe", "משה",
	"yosef", "יוסף",
	"avraham", "אברהם",
	"yaakov", "יעקב",
	"chaim", "חיים",
	"eli", "אלי",
	"amir", "עמיר",
	"itay", "איתי",
	"omer", "עומר",
	"daniel", "דניאל",
	"lior", "ליאור",
	"gal", "גל",
	"noam", "נועם",
	"sarah", "שרה",
	"rachel", "רחל",
	"rivka", "רבקה",
	"esther", "אסתר",
	"yael", "יעל",
	"noa", "נועה",
	"tamar", "תמר",
	"michal", "מיכל",
	"maya", "מאיה",
	"shira", "שירה",
	"ronit", "רונית",
	"cohen", "כהן",
	"levi", "לוי",
	"mizrahi", "מזרחי",
	"peretz", "פרץ",
	"biton", "ביטון",
	"dahan", "דהן",
	"avital", "אביטל",
	"friedman", "פרידמן",
	"katz", "כץ",
}
