package cipher

import (
	"encoding/json"

	"github.com/illarion/envvault/internal/env"
)

// None stores records as plain JSON inside the container.
type None struct{}

func NewNone() *None { return &None{} }

func (*None) Kind() Kind { return KindNone }

func (*None) Encrypt(m *env.Map) (Content, error) {
	b, err := encode(m)
	if err != nil {
		return Content{}, err
	}
	return JSONContent(b), nil
}

func (*None) Decrypt(c Content) (*env.Map, error) {
	raw, ok := c.JSON()
	if !ok {
		return nil, ErrCipher
	}
	return decode(raw)
}

func (*None) ExportMetadata() (json.RawMessage, error) { return nil, nil }

func (*None) ImportMetadata(json.RawMessage) error { return nil }

func (*None) Destroy() {}
