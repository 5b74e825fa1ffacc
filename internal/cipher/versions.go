package cipher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrVersionOrder   = errors.New("versions must be registered in ascending order")
	ErrUnknownVersion = fmt.Errorf("%w: unknown format version", ErrCipher)
	ErrEmptyRegistry  = errors.New("registry needs at least one version")
)

// Version is one passphrase encryption algorithm.
//
// Encrypt returns the ciphertext and a parameter struct that must marshal
// to a JSON object whose "version" field equals Tag. Decrypt receives that
// object back. Both receive the raw passphrase; deriving and clearing keys
// is up to the version.
type Version struct {
	Tag     string
	Encrypt func(passphrase, plaintext []byte) (ciphertext []byte, params any, err error)
	Decrypt func(passphrase []byte, params json.RawMessage, ciphertext []byte) ([]byte, error)
}

type registered struct {
	Version
	semver *semver.Version
}

// Registry is an ordered list of versions. Encryption always uses the
// newest one; decryption uses whichever version the metadata names.
// Register is not safe to call concurrently with other methods.
type Registry struct {
	versions []registered
}

// NewRegistry registers vs in order. At least one version is required.
func NewRegistry(vs ...Version) (*Registry, error) {
	if len(vs) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &Registry{}
	for _, v := range vs {
		if err := r.Register(v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends v. Its tag must be a semantic version strictly greater
// than every registered tag.
func (r *Registry) Register(v Version) error {
	if v.Encrypt == nil || v.Decrypt == nil {
		return fmt.Errorf("version %q: encrypt and decrypt are required", v.Tag)
	}
	sv, err := semver.NewVersion(v.Tag)
	if err != nil {
		return fmt.Errorf("version %q: %w", v.Tag, err)
	}
	if n := len(r.versions); n > 0 && !sv.GreaterThan(r.versions[n-1].semver) {
		return fmt.Errorf("%w: %s after %s", ErrVersionOrder, v.Tag, r.versions[n-1].Tag)
	}
	r.versions = append(r.versions, registered{Version: v, semver: sv})
	return nil
}

// Tags lists registered tags, oldest first.
func (r *Registry) Tags() []string {
	tags := make([]string, len(r.versions))
	for i, v := range r.versions {
		tags[i] = v.Tag
	}
	return tags
}

// Latest returns the newest version.
func (r *Registry) Latest() Version {
	return r.versions[len(r.versions)-1].Version
}

// Oldest returns the first registered version.
func (r *Registry) Oldest() Version {
	return r.versions[0].Version
}

// Lookup finds the version for tag. "1" and "1.0.0" name the same version.
func (r *Registry) Lookup(tag string) (Version, bool) {
	sv, err := semver.NewVersion(tag)
	if err != nil {
		return Version{}, false
	}
	for _, v := range r.versions {
		if v.semver.Equal(sv) {
			return v.Version, true
		}
	}
	return Version{}, false
}

// Encrypt seals plaintext with the newest version.
func (r *Registry) Encrypt(passphrase, plaintext []byte) ([]byte, Metadata, error) {
	v := r.Latest()
	ct, params, err := v.Encrypt(passphrase, plaintext)
	if err != nil {
		return nil, Metadata{}, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, Metadata{}, ErrCipher
	}
	meta := Metadata{Version: v.Tag, raw: raw}
	if tag, err := peekVersion(raw); err != nil || tag != v.Tag {
		return nil, Metadata{}, ErrCipher
	}
	return ct, meta, nil
}

// Decrypt opens ciphertext with the version named by meta.
func (r *Registry) Decrypt(passphrase []byte, meta Metadata, ciphertext []byte) ([]byte, error) {
	v, ok := r.Lookup(meta.Version)
	if !ok {
		return nil, ErrUnknownVersion
	}
	return v.Decrypt(passphrase, meta.Raw(), ciphertext)
}

// Metadata is the version-tagged parameter object stored as cipher
// metadata for passphrase profiles, e.g.
//
//	{"version":"1","salt":"...","nonce":"..."}
type Metadata struct {
	Version string
	raw     json.RawMessage
}

// Raw returns the full JSON object, or just the tag for a zero-parameter
// value.
func (m Metadata) Raw() json.RawMessage {
	if len(m.raw) > 0 {
		return m.raw
	}
	raw, _ := json.Marshal(struct {
		Version string `json:"version"`
	}{m.Version})
	return raw
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	return m.Raw(), nil
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	tag, err := peekVersion(b)
	if err != nil {
		return err
	}
	*m = Metadata{Version: tag, raw: append(json.RawMessage(nil), bytes.TrimSpace(b)...)}
	return nil
}

func peekVersion(raw []byte) (string, error) {
	var head struct {
		Version *string `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("invalid cipher metadata: %w", err)
	}
	if head.Version == nil || *head.Version == "" {
		return "", errors.New("invalid cipher metadata: missing version")
	}
	return *head.Version, nil
}

var defaultRegistry = mustRegistry(versionV1())

func mustRegistry(vs ...Version) *Registry {
	r, err := NewRegistry(vs...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the built-in versions. New versions are appended
// here; existing entries are never removed so older files stay readable.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
