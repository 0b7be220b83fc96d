// Package mapping maintains the per-run bijection between original
// values and their pseudonyms, partitioned by PII category.
package mapping

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/safeshare/safeshare/internal/pii"
)

// DefaultPadding is the minimum digit width of pseudonym sequence
// numbers; counters past 999 extend naturally.
const DefaultPadding = 3

// formatVersion guards the serialized form so old encrypted blobs stay
// readable.
const formatVersion = 1

// Store maps original values to pseudonyms. Within a category the
// mapping is injective: the same normalized value always returns the
// pseudonym it was first assigned, and no two distinct values share
// one. A store is created empty per anonymization run and only ever
// grows.
type Store struct {
	mu       sync.Mutex
	padding  int
	entries  map[pii.Category]map[string]string
	counters map[pii.Category]int
}

// NewStore creates an empty store with the default pseudonym padding.
func NewStore() *Store {
	return NewStoreWithPadding(DefaultPadding)
}

// NewStoreWithPadding creates an empty store with a custom minimum
// sequence width.
func NewStoreWithPadding(padding int) *Store {
	if padding < 1 {
		padding = DefaultPadding
	}
	return &Store{
		padding:  padding,
		entries:  make(map[pii.Category]map[string]string),
		counters: make(map[pii.Category]int),
	}
}

// GetOrCreate returns the pseudonym for (category, original), assigning
// a fresh one on first sight. The read-check-insert sequence runs under
// one lock, so concurrent callers can never split a value across two
// pseudonyms.
func (s *Store) GetOrCreate(category pii.Category, original string) (string, error) {
	entry, err := pii.Lookup(category)
	if err != nil {
		return "", err
	}
	key := entry.Normalize(original)

	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.entries[category]
	if !ok {
		values = make(map[string]string)
		s.entries[category] = values
	}
	if pseudonym, ok := values[key]; ok {
		return pseudonym, nil
	}

	s.counters[category]++
	pseudonym := fmt.Sprintf("%s-%0*d%s", entry.Prefix, s.padding, s.counters[category], entry.Suffix)
	values[key] = pseudonym
	return pseudonym, nil
}

// Len returns the number of distinct values mapped under a category.
func (s *Store) Len(category pii.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[category])
}

// Size returns the total number of mapped values across categories.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, values := range s.entries {
		total += len(values)
	}
	return total
}

// Snapshot returns a deep copy of the category partitions.
func (s *Store) Snapshot() map[pii.Category]map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[pii.Category]map[string]string, len(s.entries))
	for cat, values := range s.entries {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		out[cat] = copied
	}
	return out
}

// serializedStore is the canonical persisted form. encoding/json emits
// map keys sorted, which keeps the output stable and diff-friendly.
type serializedStore struct {
	Version  int                                `json:"version"`
	Padding  int                                `json:"padding"`
	Counters map[pii.Category]int               `json:"counters"`
	Entries  map[pii.Category]map[string]string `json:"entries"`
}

// Serialize renders the store in its canonical text encoding.
func (s *Store) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.MarshalIndent(serializedStore{
		Version:  formatVersion,
		Padding:  s.padding,
		Counters: s.counters,
		Entries:  s.entries,
	}, "", "  ")
}

// Deserialize rebuilds a store from its canonical encoding.
func Deserialize(data []byte) (*Store, error) {
	var raw serializedStore
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid mapping encoding: %w", err)
	}
	if raw.Version != formatVersion {
		return nil, fmt.Errorf("unsupported mapping format version %d", raw.Version)
	}
	for cat := range raw.Entries {
		if !pii.Valid(cat) {
			return nil, fmt.Errorf("%w: %q", pii.ErrUnknownCategory, string(cat))
		}
	}
	store := NewStoreWithPadding(raw.Padding)
	if raw.Counters != nil {
		store.counters = raw.Counters
	}
	for cat, values := range raw.Entries {
		copied := make(map[string]string, len(values))
		for k, v := range values {
			copied[k] = v
		}
		store.entries[cat] = copied
	}
	return store, nil
}
