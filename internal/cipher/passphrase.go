package cipher

import (
	"encoding/json"

	"github.com/illarion/envvault/internal/crypto"
	"github.com/illarion/envvault/internal/env"
	"go.uber.org/zap"
)

// Passphrase encrypts with a key derived from a secret passphrase using
// the newest registered format version.
type Passphrase struct {
	secret   *crypto.Secret
	registry *Registry
	meta     Metadata
	log      *zap.Logger
}

// NewPassphrase builds a passphrase cipher using the default registry.
func NewPassphrase(passphrase string, opts ...Option) *Passphrase {
	return newPassphrase(passphrase, buildOptions(opts))
}

func newPassphrase(passphrase string, o options) *Passphrase {
	return &Passphrase{
		secret:   crypto.NewSecretString(passphrase),
		registry: o.registry,
		meta:     Metadata{Version: o.registry.Oldest().Tag},
		log:      o.log,
	}
}

func (p *Passphrase) Kind() Kind { return KindPassphrase }

// Metadata returns the parameters of the last encryption, or of the
// imported container.
func (p *Passphrase) Metadata() Metadata { return p.meta }

func (p *Passphrase) Encrypt(m *env.Map) (Content, error) {
	plaintext, err := encode(m)
	if err != nil {
		return Content{}, err
	}
	defer crypto.ClearBytes(plaintext)

	var (
		ct   []byte
		meta Metadata
	)
	err = p.secret.Use(func(key []byte) error {
		var encErr error
		ct, meta, encErr = p.registry.Encrypt(key, plaintext)
		return encErr
	})
	if err != nil {
		return Content{}, ErrCipher
	}

	p.meta = meta
	p.log.Debug("encrypted profile content",
		zap.String("format_version", meta.Version),
		zap.Int("records", m.Len()))
	return BytesContent(ct), nil
}

func (p *Passphrase) Decrypt(c Content) (*env.Map, error) {
	ct, ok := c.Bytes()
	if !ok {
		return nil, ErrCipher
	}

	var plaintext []byte
	err := p.secret.Use(func(key []byte) error {
		var decErr error
		plaintext, decErr = p.registry.Decrypt(key, p.meta, ct)
		return decErr
	})
	if err != nil {
		p.log.Debug("decryption failed", zap.String("format_version", p.meta.Version))
		return nil, ErrCipher
	}
	defer crypto.ClearBytes(plaintext)

	return decode(plaintext)
}

func (p *Passphrase) ExportMetadata() (json.RawMessage, error) {
	return p.meta.MarshalJSON()
}

func (p *Passphrase) ImportMetadata(raw json.RawMessage) error {
	if isNullJSON(raw) {
		return ErrCipher
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ErrCipher
	}
	if _, ok := p.registry.Lookup(meta.Version); !ok {
		return ErrUnknownVersion
	}
	p.meta = meta
	return nil
}

func (p *Passphrase) Destroy() {
	p.secret.Destroy()
}
