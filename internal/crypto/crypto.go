package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	SaltSize = 16                          // Argon2 salt size in bytes
	KeySize  = chacha20poly1305.KeySize    // XChaCha20-Poly1305 key size
	TagSize  = chacha20poly1305.Overhead   // Poly1305 authentication tag size
	NonceLen = chacha20poly1305.NonceSizeX // Full XChaCha20 nonce size
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidNonce      = errors.New("invalid nonce prefix")
	ErrStreamExhausted   = errors.New("stream counter exhausted")
	ErrStreamFinished    = errors.New("stream already finished")
)

// KDFParams are Argon2id work factors
type KDFParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultKDF matches the Argon2id defaults used since the first format version:
// 2 passes over 19 MiB with a single lane.
var DefaultKDF = KDFParams{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
}

// DeriveKey derives a KeySize key from a passphrase and salt using Argon2id.
// The caller owns the returned slice and must clear it.
func (p KDFParams) DeriveKey(passphrase, salt []byte) ([]byte, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("empty salt")
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return nil, fmt.Errorf("invalid argon2 parameters")
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.Memory, p.Threads, KeySize), nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	memguard.WipeBytes(b)
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
