package cipher

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Content is the envelope a cipher produces: either opaque bytes or a
// structured JSON value. In a container, bytes are a base64 string and
// JSON is embedded as-is.
type Content struct {
	bytes  []byte
	json   json.RawMessage
	isJSON bool
}

// BytesContent wraps ciphertext.
func BytesContent(b []byte) Content {
	return Content{bytes: b}
}

// JSONContent wraps a structured value.
func JSONContent(raw json.RawMessage) Content {
	return Content{json: raw, isJSON: true}
}

// Bytes returns the ciphertext and true if c holds bytes.
func (c Content) Bytes() ([]byte, bool) {
	if c.isJSON {
		return nil, false
	}
	return c.bytes, true
}

// JSON returns the value and true if c holds JSON.
func (c Content) JSON() (json.RawMessage, bool) {
	if !c.isJSON {
		return nil, false
	}
	return c.json, true
}

// IsJSON reports whether c holds a structured value.
func (c Content) IsJSON() bool {
	return c.isJSON
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.isJSON {
		if len(c.json) == 0 {
			return []byte("null"), nil
		}
		return c.json, nil
	}
	return json.Marshal(base64.StdEncoding.EncodeToString(c.bytes))
}

// UnmarshalJSON treats a JSON string as base64 bytes and anything else as
// a structured value.
func (c *Content) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("encrypted content is not valid base64: %w", err)
		}
		*c = BytesContent(raw)
		return nil
	}
	*c = JSONContent(append(json.RawMessage(nil), trimmed...))
	return nil
}
