package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/env"
	"go.uber.org/zap"
)

const FilePermSecure = 0600

// SoftwareVersion is recorded in every container written. Overridden at
// build time with -ldflags.
var SoftwareVersion = "0.1.0"

var (
	ErrAlreadyExists = errors.New("profile already exists")
	ErrNotFound      = errors.New("profile not found")
	ErrEmptyProfile  = errors.New("nothing to export")
	ErrSerialization = errors.New("invalid profile file")

	// ErrRecordNotFound is returned by Remove and Edit for unknown names.
	ErrRecordNotFound = fmt.Errorf("record %w", env.ErrNotFound)
)

// Metadata describes a profile. It is stored in clear text.
type Metadata struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description *string     `json:"description"`
	FilePath    string      `json:"file_path"`
	CipherKind  cipher.Kind `json:"cipher_kind"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Serialized is the container file layout.
type Serialized struct {
	Metadata         Metadata        `json:"metadata"`
	EncryptedContent cipher.Content  `json:"encrypted_content"`
	CipherMetadata   json.RawMessage `json:"cipher_metadata,omitempty"`
}

// KeySupplier returns the secret for a profile whose cipher needs one.
// It is only called for passphrase and age profiles.
type KeySupplier func(meta Metadata) (string, error)

// StaticKey returns a supplier that always yields key.
func StaticKey(key string) KeySupplier {
	return func(Metadata) (string, error) { return key, nil }
}

// Profile is a decrypted record set bound to the cipher that protects it.
// The profile owns the cipher; Close wipes its key material.
type Profile struct {
	Metadata Metadata
	Envs     *env.Map

	cipher cipher.Cipher
	log    *zap.Logger
	onSave func(*Profile)
	clock  func() time.Time
}

type options struct {
	log        *zap.Logger
	cipherOpts []cipher.Option
	clock      func() time.Time
}

// Option configures Load and Store.
type Option func(*options)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithCipherOptions passes options to cipher.New when a profile is loaded.
func WithCipherOptions(opts ...cipher.Option) Option {
	return func(o *options) { o.cipherOpts = append(o.cipherOpts, opts...) }
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newProfile(meta Metadata, envs *env.Map, c cipher.Cipher, o options) *Profile {
	if envs == nil {
		envs = &env.Map{}
	}
	return &Profile{
		Metadata: meta,
		Envs:     envs,
		cipher:   c,
		log:      o.log.With(zap.String("profile", meta.Name)),
		clock:    o.clock,
	}
}

// Load reads the container at path and decrypts it. The cipher is chosen
// by the stored cipher kind; keys is only consulted when that cipher needs
// a secret and may be nil otherwise.
func Load(path string, keys KeySupplier, opts ...Option) (*Profile, error) {
	o := buildOptions(opts)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return decodeContainer(path, data, keys, o)
}

func decodeContainer(path string, data []byte, keys KeySupplier, o options) (*Profile, error) {
	var s Serialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	s.Metadata.FilePath = path

	key := ""
	if s.Metadata.CipherKind.RequiresSecret() {
		if keys == nil {
			return nil, cipher.ErrKeyRequired
		}
		var err error
		if key, err = keys(s.Metadata); err != nil {
			return nil, err
		}
	}

	c, err := cipher.New(s.Metadata.CipherKind, key, o.cipherOpts...)
	if err != nil {
		return nil, err
	}
	if err := c.ImportMetadata(s.CipherMetadata); err != nil {
		c.Destroy()
		return nil, err
	}

	envs, err := c.Decrypt(s.EncryptedContent)
	if err != nil {
		c.Destroy()
		o.log.Debug("failed to decrypt profile",
			zap.String("path", path),
			zap.Stringer("cipher", s.Metadata.CipherKind))
		return nil, err
	}

	o.log.Debug("loaded profile",
		zap.String("profile", s.Metadata.Name),
		zap.Stringer("cipher", s.Metadata.CipherKind),
		zap.Int("records", envs.Len()))
	return newProfile(s.Metadata, envs, c, o), nil
}

// Cipher returns the cipher protecting the profile.
func (p *Profile) Cipher() cipher.Cipher {
	return p.cipher
}

// SetCipher replaces the cipher, wiping the old one. The change reaches
// disk on the next Save.
func (p *Profile) SetCipher(c cipher.Cipher) {
	if p.cipher != nil && p.cipher != c {
		p.cipher.Destroy()
	}
	p.cipher = c
	p.Metadata.CipherKind = c.Kind()
}

// Close wipes key material. The profile must not be used afterwards.
func (p *Profile) Close() {
	if p.cipher != nil {
		p.cipher.Destroy()
		p.cipher = nil
	}
}

// Set inserts or replaces the value for name.
func (p *Profile) Set(name, value string) error {
	if err := env.New(name, value).Validate(); err != nil {
		return err
	}
	p.Envs.Set(name, value)
	return nil
}

// Insert adds e, overwriting any record with the same name.
func (p *Profile) Insert(e env.Env) error {
	if err := e.Validate(); err != nil {
		return err
	}
	p.Envs.Insert(e)
	return nil
}

// Remove deletes the record for name.
func (p *Profile) Remove(name string) error {
	if !p.Envs.Has(name) {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, name)
	}
	return p.Envs.Remove(name)
}

// Edit changes the value of an existing record, keeping its comment and
// expiration date.
func (p *Profile) Edit(name, value string) error {
	if !p.Envs.Has(name) {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, name)
	}
	if err := env.New(name, value).Validate(); err != nil {
		return err
	}
	p.Envs.Set(name, value)
	return nil
}

// Marshal encrypts the records and renders the container. Cipher metadata
// is refreshed as a side effect.
func (p *Profile) Marshal() ([]byte, error) {
	if p.cipher == nil {
		return nil, cipher.ErrKeyRequired
	}
	content, err := p.cipher.Encrypt(p.Envs)
	if err != nil {
		return nil, err
	}
	cmeta, err := p.cipher.ExportMetadata()
	if err != nil {
		return nil, err
	}

	s := Serialized{
		Metadata:         p.Metadata,
		EncryptedContent: content,
		CipherMetadata:   cmeta,
	}
	s.Metadata.Version = SoftwareVersion
	s.Metadata.CipherKind = p.cipher.Kind()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return data, nil
}

// Save re-encrypts the records and atomically replaces the container file.
// Metadata is only updated once the new file is in place.
func (p *Profile) Save() error {
	updated := p.clock()
	if updated.Before(p.Metadata.CreatedAt) {
		updated = p.Metadata.CreatedAt
	}
	return p.save(updated)
}

// save writes the container with updated_at set to updated.
func (p *Profile) save(updated time.Time) error {
	prev := p.Metadata
	p.Metadata.UpdatedAt = updated
	data, err := p.Marshal()
	if err != nil {
		p.Metadata = prev
		return err
	}

	if err := writeFileAtomic(p.Metadata.FilePath, data, FilePermSecure); err != nil {
		p.Metadata = prev
		return err
	}

	p.Metadata.Version = SoftwareVersion
	p.Metadata.CipherKind = p.cipher.Kind()
	p.log.Info("saved profile",
		zap.String("path", p.Metadata.FilePath),
		zap.Stringer("cipher", p.Metadata.CipherKind),
		zap.Int("records", p.Envs.Len()))

	if p.onSave != nil {
		p.onSave(p)
	}
	return nil
}
