package mapping

import (
	"fmt"
	"sync"
	"testing"

	"github.com/safeshare/safeshare/internal/pii"
)

func TestGetOrCreate(t *testing.T) {
	t.Run("Determinism", func(t *testing.T) {
		store := NewStore()
		first, err := store.GetOrCreate(pii.CategoryIdentifier, "123456782")
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 10; i++ {
			again, err := store.GetOrCreate(pii.CategoryIdentifier, "123456782")
			if err != nil {
				t.Fatal(err)
			}
			if again != first {
				t.Fatalf("repeated lookup changed pseudonym: %s vs %s", first, again)
			}
		}
		if store.Len(pii.CategoryIdentifier) != 1 {
			t.Errorf("expected 1 entry, got %d", store.Len(pii.CategoryIdentifier))
		}
	})

	t.Run("Injectivity", func(t *testing.T) {
		store := NewStore()
		seen := make(map[string]string)
		for i := 0; i < 200; i++ {
			value := fmt.Sprintf("value-%d", i)
			pseudonym, err := store.GetOrCreate(pii.CategoryAccount, value)
			if err != nil {
				t.Fatal(err)
			}
			if prev, ok := seen[pseudonym]; ok {
				t.Fatalf("pseudonym %s assigned to both %s and %s", pseudonym, prev, value)
			}
			seen[pseudonym] = value
		}
	})

	t.Run("SequenceFormat", func(t *testing.T) {
		store := NewStore()
		p, err := store.GetOrCreate(pii.CategoryIdentifier, "123456782")
		if err != nil {
			t.Fatal(err)
		}
		if p != "ID-001" {
			t.Errorf("expected ID-001, got %s", p)
		}
		p, _ = store.GetOrCreate(pii.CategoryIdentifier, "987654324")
		if p != "ID-002" {
			t.Errorf("expected ID-002, got %s", p)
		}
	})

	t.Run("EmailDecoration", func(t *testing.T) {
		store := NewStore()
		p, err := store.GetOrCreate(pii.CategoryEmail, "alice@example.com")
		if err != nil {
			t.Fatal(err)
		}
		if p != "EMAIL-001"+pii.AnonymousEmailDomain {
			t.Errorf("email pseudonym should carry the anonymous domain, got %s", p)
		}
	})

	t.Run("CountersAreIndependentPerCategory", func(t *testing.T) {
		store := NewStore()
		store.GetOrCreate(pii.CategoryIdentifier, "123456782")
		p, _ := store.GetOrCreate(pii.CategoryPhone, "0501234567")
		if p != "PHONE-001" {
			t.Errorf("phone counter should start at 1, got %s", p)
		}
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		store := NewStore()
		if _, err := store.GetOrCreate(pii.Category("ssn"), "x"); err == nil {
			t.Error("expected error for unknown category")
		}
	})
}

func TestNormalizationUnifiesVariants(t *testing.T) {
	t.Run("EmailCase", func(t *testing.T) {
		store := NewStore()
		a, _ := store.GetOrCreate(pii.CategoryEmail, "John.Doe@Example.COM")
		b, _ := store.GetOrCreate(pii.CategoryEmail, "john.doe@example.com")
		if a != b {
			t.Errorf("case variants should share a pseudonym: %s vs %s", a, b)
		}
	})

	t.Run("PhoneCountryCode", func(t *testing.T) {
		store := NewStore()
		a, _ := store.GetOrCreate(pii.CategoryPhone, "+972-50-1234567")
		b, _ := store.GetOrCreate(pii.CategoryPhone, "0501234567")
		if a != b {
			t.Errorf("country-code variant should share a pseudonym: %s vs %s", a, b)
		}
	})

	t.Run("NameWhitespace", func(t *testing.T) {
		store := NewStore()
		a, _ := store.GetOrCreate(pii.CategoryPersonName, "  דוד   כהן ")
		b, _ := store.GetOrCreate(pii.CategoryPersonName, "דוד כהן")
		if a != b {
			t.Errorf("whitespace variants should share a pseudonym: %s vs %s", a, b)
		}
	})
}

func TestPaddingExtendsPastLimit(t *testing.T) {
	store := NewStoreWithPadding(1)
	var last string
	for i := 0; i < 12; i++ {
		last, _ = store.GetOrCreate(pii.CategoryAccount, fmt.Sprintf("acct-%d", i))
	}
	if last != "ACCOUNT-12" {
		t.Errorf("counter should extend beyond the padding width, got %s", last)
	}
}

func TestConcurrentSameValue(t *testing.T) {
	store := NewStore()
	const workers = 50

	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.GetOrCreate(pii.CategoryIdentifier, "123456782")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range results {
		if p != results[0] {
			t.Fatalf("concurrent callers got different pseudonyms: %s vs %s", results[0], p)
		}
	}
	if store.Len(pii.CategoryIdentifier) != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len(pii.CategoryIdentifier))
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	store := NewStore()
	store.GetOrCreate(pii.CategoryIdentifier, "123456782")
	store.GetOrCreate(pii.CategoryIdentifier, "987654324")
	store.GetOrCreate(pii.CategoryEmail, "alice@example.com")

	data, err := store.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}

	before := store.Snapshot()
	after := restored.Snapshot()
	if len(before) != len(after) {
		t.Fatalf("category count mismatch: %d vs %d", len(before), len(after))
	}
	for cat, values := range before {
		for k, v := range values {
			if after[cat][k] != v {
				t.Errorf("entry (%s, %s) lost in round trip", cat, k)
			}
		}
	}

	// Counters survive: the next identifier continues the sequence.
	p, _ := restored.GetOrCreate(pii.CategoryIdentifier, "000000018")
	if p != "ID-003" {
		t.Errorf("restored counter should continue at 3, got %s", p)
	}
}

func TestSerializeIsStable(t *testing.T) {
	store := NewStore()
	store.GetOrCreate(pii.CategoryEmail, "b@example.com")
	store.GetOrCreate(pii.CategoryEmail, "a@example.com")

	first, err := store.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("serialization should be byte-stable across calls")
	}
}

func TestDeserializeRejectsBadInput(t *testing.T) {
	if _, err := Deserialize([]byte("not json")); err == nil {
		t.Error("expected error for malformed input")
	}
	if _, err := Deserialize([]byte(`{"version":99}`)); err == nil {
		t.Error("expected error for unknown format version")
	}
	if _, err := Deserialize([]byte(`{"version":1,"entries":{"ssn":{}}}`)); err == nil {
		t.Error("expected error for unknown category")
	}
}
