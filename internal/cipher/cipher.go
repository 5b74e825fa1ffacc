package cipher

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/envvault/internal/env"
	"github.com/illarion/envvault/internal/gpg"
	"go.uber.org/zap"
)

var (
	// ErrCipher is returned for every cryptographic failure. It deliberately
	// carries no detail about why decryption failed.
	ErrCipher = errors.New("cipher operation failed")

	// ErrKeyRequired is returned when a cipher is built without the secret
	// or recipient it needs.
	ErrKeyRequired = fmt.Errorf("%w: key required", ErrCipher)

	ErrUnknownKind = errors.New("unknown cipher kind")
)

// Cipher transforms a record set to and from an encrypted envelope.
type Cipher interface {
	// Kind identifies the variant.
	Kind() Kind

	// Encrypt serializes m and transforms it. It may refresh the cipher's
	// own metadata (salt, nonce).
	Encrypt(m *env.Map) (Content, error)

	// Decrypt is the inverse of Encrypt. Any mismatch or authentication
	// failure yields ErrCipher.
	Decrypt(c Content) (*env.Map, error)

	// ExportMetadata returns non-secret parameters to persist beside the
	// envelope, or nil when the variant has none.
	ExportMetadata() (json.RawMessage, error)

	// ImportMetadata restores parameters produced by ExportMetadata.
	ImportMetadata(raw json.RawMessage) error

	// Destroy wipes any key material. The cipher is unusable afterwards.
	Destroy()
}

type options struct {
	agent         gpg.Agent
	registry      *Registry
	ageWorkFactor int
	log           *zap.Logger
}

// Option configures ciphers built by New.
type Option func(*options)

// WithAgent sets the GPG agent. Defaults to the gpg binary on PATH.
func WithAgent(a gpg.Agent) Option {
	return func(o *options) { o.agent = a }
}

// WithRegistry sets the passphrase version registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithAgeWorkFactor sets the scrypt work factor (log2 N) used when
// encrypting with age.
func WithAgeWorkFactor(logN int) Option {
	return func(o *options) { o.ageWorkFactor = logN }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{
		registry:      DefaultRegistry(),
		ageWorkFactor: defaultAgeWorkFactor,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.agent == nil {
		o.agent = gpg.NewCLI("")
	}
	return o
}

// New builds the cipher for kind. For GPG, key is the recipient
// fingerprint and may be empty when it will come from ImportMetadata.
// For passphrase and age, key is the secret passphrase and is required.
func New(kind Kind, key string, opts ...Option) (Cipher, error) {
	o := buildOptions(opts)

	switch kind {
	case KindNone:
		return NewNone(), nil
	case KindPassphrase:
		if key == "" {
			return nil, ErrKeyRequired
		}
		return newPassphrase(key, o), nil
	case KindGPG:
		return NewGPG(key, o.agent), nil
	case KindAge:
		if key == "" {
			return nil, ErrKeyRequired
		}
		return newAge(key, o), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
}

// encode serializes m for encryption.
func encode(m *env.Map) ([]byte, error) {
	if m == nil {
		m = &env.Map{}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCipher, err)
	}
	return b, nil
}

// decode parses decrypted plaintext. Malformed plaintext is reported as
// ErrCipher like any other decryption failure.
func decode(plaintext []byte) (*env.Map, error) {
	m := &env.Map{}
	if err := m.UnmarshalBinary(plaintext); err != nil {
		return nil, ErrCipher
	}
	return m, nil
}

func isNullJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
