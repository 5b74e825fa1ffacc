package crypto

import (
	"errors"

	"github.com/awnumar/memguard"
)

var ErrSecretDestroyed = errors.New("secret destroyed")

// Secret holds key material in a locked, guarded memory region.
//
// A Secret is never copied by value; callers share the pointer. Use hands
// out a short-lived copy that is wiped when the callback returns.
type Secret struct {
	buf *memguard.LockedBuffer
}

// NewSecret moves b into protected memory. b is wiped.
func NewSecret(b []byte) *Secret {
	buf := memguard.NewBufferFromBytes(b)
	buf.Freeze()
	return &Secret{buf: buf}
}

// NewSecretString copies s into protected memory.
func NewSecretString(s string) *Secret {
	return NewSecret([]byte(s))
}

// Len returns the secret length, or 0 once destroyed.
func (s *Secret) Len() int {
	if s == nil || s.buf == nil || !s.buf.IsAlive() {
		return 0
	}
	return s.buf.Size()
}

// Use calls fn with a temporary copy of the secret. The copy is wiped as
// soon as fn returns, so fn must not retain it.
func (s *Secret) Use(fn func(b []byte) error) error {
	if s == nil || s.buf == nil || !s.buf.IsAlive() {
		return ErrSecretDestroyed
	}

	tmp := memguard.NewBuffer(s.buf.Size())
	defer tmp.Destroy()
	copy(tmp.Bytes(), s.buf.Bytes())

	return fn(tmp.Bytes())
}

// Destroy wipes and releases the protected memory. Safe to call twice.
func (s *Secret) Destroy() {
	if s == nil || s.buf == nil {
		return
	}
	s.buf.Destroy()
	s.buf = nil
}
