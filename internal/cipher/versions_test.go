package cipher

import (
	"encoding/json"
	"errors"
	"testing"
)

type metadataXOR struct {
	Version string `json:"version"`
	Mask    byte   `json:"mask"`
}

// versionXOR is a throwaway format used to check dispatch.
func versionXOR(tag string) Version {
	xor := func(b []byte, mask byte) []byte {
		out := make([]byte, len(b))
		for i := range b {
			out[i] = b[i] ^ mask
		}
		return out
	}
	return Version{
		Tag: tag,
		Encrypt: func(_, plaintext []byte) ([]byte, any, error) {
			return xor(plaintext, 0x5a), metadataXOR{Version: tag, Mask: 0x5a}, nil
		},
		Decrypt: func(_ []byte, params json.RawMessage, ct []byte) ([]byte, error) {
			var m metadataXOR
			if err := json.Unmarshal(params, &m); err != nil {
				return nil, err
			}
			return xor(ct, m.Mask), nil
		},
	}
}

func TestEmptyRegistry(t *testing.T) {
	if _, err := NewRegistry(); !errors.Is(err, ErrEmptyRegistry) {
		t.Errorf("expected ErrEmptyRegistry, got %v", err)
	}
}

func TestRegistryOrder(t *testing.T) {
	if _, err := NewRegistry(versionV1(), versionXOR("2"), versionXOR("1.5")); !errors.Is(err, ErrVersionOrder) {
		t.Errorf("expected ErrVersionOrder, got %v", err)
	}
	if _, err := NewRegistry(versionV1(), versionXOR("1.0.0")); !errors.Is(err, ErrVersionOrder) {
		t.Errorf("duplicate version should be rejected, got %v", err)
	}
	if _, err := NewRegistry(versionXOR("not-a-version")); err == nil {
		t.Error("expected error for invalid tag")
	}

	r, err := NewRegistry(versionV1(), versionXOR("1.1"), versionXOR("2"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if r.Latest().Tag != "2" || r.Oldest().Tag != "1" {
		t.Errorf("Latest=%s Oldest=%s", r.Latest().Tag, r.Oldest().Tag)
	}
	if v, ok := r.Lookup("1.0.0"); !ok || v.Tag != "1" {
		t.Errorf("Lookup(1.0.0) = %v, %v", v.Tag, ok)
	}
	if _, ok := r.Lookup("3"); ok {
		t.Error("Lookup(3) should fail")
	}
}

func TestVersionDurability(t *testing.T) {
	old := NewPassphrase("correct-horse-battery")
	defer old.Destroy()
	want := sampleMap()

	content, err := old.Encrypt(want)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	raw, _ := old.ExportMetadata()

	newer, err := NewRegistry(versionV1(), versionXOR("2"))
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	c := NewPassphrase("correct-horse-battery", WithRegistry(newer))
	defer c.Destroy()

	if err := c.ImportMetadata(raw); err != nil {
		t.Fatalf("ImportMetadata failed: %v", err)
	}
	got, err := c.Decrypt(content)
	if err != nil {
		t.Fatalf("version 1 content no longer decrypts: %v", err)
	}
	if !got.Equal(want) {
		t.Error("round trip mismatch")
	}

	// re-encrypting moves to the newest version
	if _, err := c.Encrypt(got); err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if c.Metadata().Version != "2" {
		t.Errorf("new content tagged %s, want 2", c.Metadata().Version)
	}
	content2, _ := c.Encrypt(got)
	got2, err := c.Decrypt(content2)
	if err != nil || !got2.Equal(want) {
		t.Errorf("version 2 round trip failed: %v", err)
	}
}

func TestImportUnknownVersion(t *testing.T) {
	c := NewPassphrase("x")
	defer c.Destroy()

	err := c.ImportMetadata(json.RawMessage(`{"version":"9","salt":"a","nonce":"b"}`))
	if !errors.Is(err, ErrCipher) {
		t.Errorf("expected ErrCipher for unknown version, got %v", err)
	}
	if err := c.ImportMetadata(json.RawMessage(`{"salt":"a"}`)); !errors.Is(err, ErrCipher) {
		t.Errorf("expected ErrCipher for missing version, got %v", err)
	}
}

func TestZeroMetadataIsOldest(t *testing.T) {
	c := NewPassphrase("x")
	defer c.Destroy()
	if c.Metadata().Version != DefaultRegistry().Oldest().Tag {
		t.Errorf("zero metadata tagged %s", c.Metadata().Version)
	}
	raw, _ := c.ExportMetadata()
	if string(raw) != `{"version":"1"}` {
		t.Errorf("zero metadata = %s", raw)
	}
}

func TestMalformedNonce(t *testing.T) {
	c := NewPassphrase("x")
	defer c.Destroy()
	content, _ := c.Encrypt(sampleMap())

	bad := json.RawMessage(`{"version":"1","salt":"c2FsdHNhbHRzYWx0c2FsdA","nonce":"%%%"}`)
	if err := c.ImportMetadata(bad); err != nil {
		t.Fatalf("ImportMetadata failed: %v", err)
	}
	if _, err := c.Decrypt(content); !errors.Is(err, ErrCipher) {
		t.Errorf("expected ErrCipher, got %v", err)
	}
}
