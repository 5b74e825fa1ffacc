package crypto

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// ChunkSize is the plaintext size of every chunk except the last one.
	ChunkSize = 1024
	// NoncePrefixSize is the random part of the nonce, stored with the data.
	NoncePrefixSize = NonceLen - 4 - 1
)

// Stream implements the STREAM construction over XChaCha20-Poly1305.
//
// Each chunk nonce is prefix || counter (uint32, big endian) || last flag.
// The counter detects reordering and dropped chunks; the flag on the final
// chunk detects truncation.
type Stream struct {
	aead    cipher.AEAD
	prefix  [NoncePrefixSize]byte
	counter uint32
	done    bool
}

// NewStream creates a stream for the given key and nonce prefix.
// The key is copied into the AEAD state and cleared before returning.
func NewStream(key, prefix []byte) (*Stream, error) {
	defer ClearBytes(key)

	if len(prefix) != NoncePrefixSize {
		return nil, ErrInvalidNonce
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	s := &Stream{aead: aead}
	copy(s.prefix[:], prefix)
	return s, nil
}

func (s *Stream) nonce(last bool) ([]byte, error) {
	if s.done {
		return nil, ErrStreamFinished
	}
	n := make([]byte, NonceLen)
	copy(n, s.prefix[:])
	binary.BigEndian.PutUint32(n[NoncePrefixSize:], s.counter)
	if last {
		n[NonceLen-1] = 1
	}
	return n, nil
}

func (s *Stream) advance(last bool) error {
	if last {
		s.done = true
		return nil
	}
	if s.counter == math.MaxUint32 {
		return ErrStreamExhausted
	}
	s.counter++
	return nil
}

// EncryptNext seals a non-final chunk.
func (s *Stream) EncryptNext(dst, chunk []byte) ([]byte, error) {
	return s.seal(dst, chunk, false)
}

// EncryptLast seals the final chunk. The stream cannot be used afterwards.
func (s *Stream) EncryptLast(dst, chunk []byte) ([]byte, error) {
	return s.seal(dst, chunk, true)
}

// DecryptNext opens a non-final chunk.
func (s *Stream) DecryptNext(dst, chunk []byte) ([]byte, error) {
	return s.open(dst, chunk, false)
}

// DecryptLast opens the final chunk. The stream cannot be used afterwards.
func (s *Stream) DecryptLast(dst, chunk []byte) ([]byte, error) {
	return s.open(dst, chunk, true)
}

func (s *Stream) seal(dst, chunk []byte, last bool) ([]byte, error) {
	nonce, err := s.nonce(last)
	if err != nil {
		return nil, err
	}
	if err := s.advance(last); err != nil {
		return nil, err
	}
	return s.aead.Seal(dst, nonce, chunk, nil), nil
}

func (s *Stream) open(dst, chunk []byte, last bool) ([]byte, error) {
	nonce, err := s.nonce(last)
	if err != nil {
		return nil, err
	}
	out, err := s.aead.Open(dst, nonce, chunk, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	if err := s.advance(last); err != nil {
		return nil, err
	}
	return out, nil
}

// Seal encrypts plaintext in ChunkSize chunks. Every chunk is sealed with
// EncryptNext while more than ChunkSize bytes remain; the remainder, which
// is empty only for empty input, is always sealed with EncryptLast.
func Seal(key, prefix, plaintext []byte) ([]byte, error) {
	s, err := NewStream(key, prefix)
	if err != nil {
		return nil, err
	}

	chunks := len(plaintext)/ChunkSize + 1
	out := make([]byte, 0, len(plaintext)+chunks*TagSize)

	rest := plaintext
	for len(rest) > ChunkSize {
		if out, err = s.EncryptNext(out, rest[:ChunkSize]); err != nil {
			return nil, err
		}
		rest = rest[ChunkSize:]
	}
	return s.EncryptLast(out, rest)
}

// Open reverses Seal, reading in ChunkSize+TagSize strides with the same
// next/last rule. Nothing is returned unless every chunk authenticates.
func Open(key, prefix, ciphertext []byte) ([]byte, error) {
	s, err := NewStream(key, prefix)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	const stride = ChunkSize + TagSize
	out := make([]byte, 0, len(ciphertext))

	rest := ciphertext
	for len(rest) > stride {
		next, err := s.DecryptNext(out, rest[:stride])
		if err != nil {
			ClearBytes(out)
			return nil, err
		}
		out = next
		rest = rest[stride:]
	}
	last, err := s.DecryptLast(out, rest)
	if err != nil {
		ClearBytes(out)
		return nil, err
	}
	return last, nil
}
