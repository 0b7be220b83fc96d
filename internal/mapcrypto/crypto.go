// Package mapcrypto provides password-protected persistence for
// mapping stores. The KDF parameters are format constants, not
// configuration, so old blobs stay decryptable as long as the password
// is known.
package mapcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/safeshare/safeshare/internal/mapping"
)

const (
	saltLength    = 16
	keyLength     = 32
	kdfIterations = 100_000
)

// ErrDecryptionFailed covers wrong passwords and corrupted or tampered
// blobs alike; no partial data is ever returned.
var ErrDecryptionFailed = errors.New("mapping decryption failed")

// deriveKey stretches the password into an AES-256 key. The iteration
// count makes this intentionally slow; callers should expect latency
// in the hundreds of milliseconds.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keyLength, sha256.New)
}

// Encrypt serializes the store and encrypts it under a key derived
// from the password. The output is salt ‖ nonce ‖ ciphertext, with the
// GCM tag inside the ciphertext.
func Encrypt(store *mapping.Store, password string) ([]byte, error) {
	plaintext, err := store.Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize mapping: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, saltLength+len(nonce)+len(plaintext)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plaintext, nil)
	return blob, nil
}

// Decrypt recovers a mapping store from an encrypted blob. Any
// authentication failure, truncation or payload corruption yields
// ErrDecryptionFailed.
func Decrypt(blob []byte, password string) (*mapping.Store, error) {
	if len(blob) < saltLength {
		return nil, fmt.Errorf("%w: blob too short", ErrDecryptionFailed)
	}
	salt, rest := blob[:saltLength], blob[saltLength:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: blob too short", ErrDecryptionFailed)
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: wrong password or corrupted data", ErrDecryptionFailed)
	}

	store, err := mapping.Deserialize(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid mapping payload", ErrDecryptionFailed)
	}
	return store, nil
}
