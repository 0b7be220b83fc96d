package mapcrypto

import (
	"errors"
	"testing"

	"github.com/safeshare/safeshare/internal/mapping"
	"github.com/safeshare/safeshare/internal/pii"
)

func buildStore(t *testing.T) *mapping.Store {
	t.Helper()
	store := mapping.NewStore()
	for _, id := range []string{"123456782", "987654324"} {
		if _, err := store.GetOrCreate(pii.CategoryIdentifier, id); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.GetOrCreate(pii.CategoryEmail, "alice@example.com"); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRoundTrip(t *testing.T) {
	store := buildStore(t)

	blob, err := Encrypt(store, "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}

	restored, err := Decrypt(blob, "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}

	before := store.Snapshot()
	after := restored.Snapshot()
	for cat, values := range before {
		for k, v := range values {
			if after[cat][k] != v {
				t.Errorf("entry (%s, %s) lost in round trip", cat, k)
			}
		}
	}
	if restored.Size() != store.Size() {
		t.Errorf("size mismatch: %d vs %d", restored.Size(), store.Size())
	}
}

func TestWrongPassword(t *testing.T) {
	store := buildStore(t)
	blob, err := Encrypt(store, "pw")
	if err != nil {
		t.Fatal(err)
	}

	_, err = Decrypt(blob, "wrong")
	if err == nil {
		t.Fatal("decryption with the wrong password must fail")
	}
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestTamperedBlob(t *testing.T) {
	store := buildStore(t)
	blob, err := Encrypt(store, "pw")
	if err != nil {
		t.Fatal(err)
	}

	// Flip one bit inside the ciphertext.
	blob[len(blob)-1] ^= 0x01

	if _, err := Decrypt(blob, "pw"); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("tampered blob should fail authentication, got %v", err)
	}
}

func TestTruncatedBlob(t *testing.T) {
	for _, size := range []int{0, 5, saltLength, saltLength + 4} {
		if _, err := Decrypt(make([]byte, size), "pw"); !errors.Is(err, ErrDecryptionFailed) {
			t.Errorf("size %d: truncated blob should fail, got %v", size, err)
		}
	}
}

func TestSaltMakesBlobsDiffer(t *testing.T) {
	store := buildStore(t)
	first, err := Encrypt(store, "pw")
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encrypt(store, "pw")
	if err != nil {
		t.Fatal(err)
	}
	if string(first) == string(second) {
		t.Error("random salt and nonce should make repeated encryptions differ")
	}
	// Both still decrypt.
	for _, blob := range [][]byte{first, second} {
		if _, err := Decrypt(blob, "pw"); err != nil {
			t.Errorf("blob failed to decrypt: %v", err)
		}
	}
}
