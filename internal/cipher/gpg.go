package cipher

import (
	"encoding/json"

	"github.com/illarion/envvault/internal/crypto"
	"github.com/illarion/envvault/internal/env"
	"github.com/illarion/envvault/internal/gpg"
)

type gpgMetadata struct {
	KeyFingerprint string `json:"key_fingerprint"`
}

// GPG hands encryption to an OpenPGP agent. It holds no secret itself;
// the fingerprint of the recipient is stored as metadata.
type GPG struct {
	fingerprint string
	agent       gpg.Agent
}

func NewGPG(fingerprint string, agent gpg.Agent) *GPG {
	return &GPG{fingerprint: fingerprint, agent: agent}
}

func (g *GPG) Kind() Kind { return KindGPG }

// Fingerprint returns the recipient key.
func (g *GPG) Fingerprint() string { return g.fingerprint }

func (g *GPG) Encrypt(m *env.Map) (Content, error) {
	if g.fingerprint == "" {
		return Content{}, ErrKeyRequired
	}
	plaintext, err := encode(m)
	if err != nil {
		return Content{}, err
	}
	defer crypto.ClearBytes(plaintext)

	ct, err := g.agent.Encrypt(plaintext, g.fingerprint)
	if err != nil {
		return Content{}, ErrCipher
	}
	return BytesContent(ct), nil
}

func (g *GPG) Decrypt(c Content) (*env.Map, error) {
	ct, ok := c.Bytes()
	if !ok {
		return nil, ErrCipher
	}
	plaintext, err := g.agent.Decrypt(ct)
	if err != nil {
		return nil, ErrCipher
	}
	defer crypto.ClearBytes(plaintext)
	return decode(plaintext)
}

func (g *GPG) ExportMetadata() (json.RawMessage, error) {
	return json.Marshal(gpgMetadata{KeyFingerprint: g.fingerprint})
}

func (g *GPG) ImportMetadata(raw json.RawMessage) error {
	if isNullJSON(raw) {
		return ErrKeyRequired
	}
	var meta gpgMetadata
	if err := json.Unmarshal(raw, &meta); err != nil || meta.KeyFingerprint == "" {
		return ErrKeyRequired
	}
	g.fingerprint = meta.KeyFingerprint
	return nil
}

func (g *GPG) Destroy() {}
