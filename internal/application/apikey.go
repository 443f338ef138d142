package application

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidAPIKeyHash         = errors.New("invalid api key hash format")
	ErrIncompatibleAPIKeyVersion = errors.New("incompatible api key hash version")
)

// Argon2idParams tunes the argon2id key derivation.
type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// GenerateAPIKey returns a random URL-safe key with 32 bytes of entropy.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateAPIKeyHash derives an encoded argon2id hash of key.
func CreateAPIKeyHash(key string, params Argon2idParams) (string, error) {
	if key == "" {
		return "", fmt.Errorf("api key must not be empty")
	}

	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyAPIKey checks key against an encoded hash produced by CreateAPIKeyHash.
// A wrong key yields ErrUnauthorized.
func VerifyAPIKey(encodedHash, key string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidAPIKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return ErrInvalidAPIKeyHash
	}
	if version != argon2.Version {
		return ErrIncompatibleAPIKeyVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return ErrInvalidAPIKeyHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidAPIKeyHash
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidAPIKeyHash
	}

	actual := argon2.IDKey([]byte(key), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(expected)))
	if subtle.ConstantTimeCompare(expected, actual) == 1 {
		return nil
	}
	return ErrUnauthorized
}

// APIKeyVerifier checks presented keys against one configured hash. Keys that
// verified once are remembered by their SHA-256 digest so repeat requests skip
// the argon2 derivation.
type APIKeyVerifier struct {
	hash string

	mu       sync.Mutex
	accepted map[[sha256.Size]byte]struct{}
}

// NewAPIKeyVerifier validates the encoded hash and returns a verifier for it.
func NewAPIKeyVerifier(encodedHash string) (*APIKeyVerifier, error) {
	if strings.Count(encodedHash, "$") != 5 || !strings.HasPrefix(encodedHash, "$argon2id$") {
		return nil, ErrInvalidAPIKeyHash
	}
	return &APIKeyVerifier{
		hash:     encodedHash,
		accepted: make(map[[sha256.Size]byte]struct{}),
	}, nil
}

// Verify returns nil when key matches the configured hash and ErrUnauthorized otherwise.
func (v *APIKeyVerifier) Verify(key string) error {
	if key == "" {
		return ErrUnauthorized
	}
	digest := sha256.Sum256([]byte(key))

	v.mu.Lock()
	_, ok := v.accepted[digest]
	v.mu.Unlock()
	if ok {
		return nil
	}

	if err := VerifyAPIKey(v.hash, key); err != nil {
		return err
	}

	v.mu.Lock()
	v.accepted[digest] = struct{}{}
	v.mu.Unlock()
	return nil
}
