package directory

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	// hashKeySize is the derived MAC key length.
	hashKeySize = 32

	// hkdfInfo provides domain separation so the derived key is only ever
	// usable for API-credential hashing.
	hkdfInfo = "tenantkit-api-key-hash-v1"

	// apiKeyBytes is the entropy of generated credentials.
	apiKeyBytes = 32

	// apiKeyPrefix makes leaked credentials recognizable in scanners.
	apiKeyPrefix = "tk_"
)

// ErrKeyDerivation is returned when the hasher cannot derive its MAC key
// from the application secret.
var ErrKeyDerivation = errors.New("api key hasher: key derivation failed")

// KeyHasher produces the stored form of API credentials: keyed BLAKE2b-256
// over the raw credential, hex encoded. The MAC key is derived from the
// application secret with HKDF-SHA256, so the hashes are worthless without
// the secret and a database leak alone cannot be replayed as credentials.
type KeyHasher struct {
	key []byte
}

// NewKeyHasher derives the hasher's MAC key from the application secret.
func NewKeyHasher(appSecret []byte) (*KeyHasher, error) {
	if len(appSecret) == 0 {
		return nil, errors.Join(ErrKeyDerivation, errors.New("empty application secret"))
	}

	r := hkdf.New(sha256.New, appSecret, nil, []byte(hkdfInfo))
	key := make([]byte, hashKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivation, err)
	}

	return &KeyHasher{key: key}, nil
}

// MustNewKeyHasher panics on derivation failure. Misconfigured secrets
// should prevent startup, not surface per-request.
func MustNewKeyHasher(appSecret []byte) *KeyHasher {
	h, err := NewKeyHasher(appSecret)
	if err != nil {
		panic(err)
	}
	return h
}

// Hash returns the stored form of a raw credential.
func (h *KeyHasher) Hash(raw string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// blake2b only rejects oversized keys; ours is fixed at 32 bytes.
		panic(err)
	}
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateAPIKey creates a new random credential in its raw, caller-visible
// form. It is returned exactly once at provisioning or rotation; only its
// hash is ever stored.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apiKeyPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
