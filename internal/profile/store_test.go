package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/env"
)

func TestStoreListUsesIndex(t *testing.T) {
	s := newTestStore(t)
	createCI(t, s)

	desc := "local development"
	dev, err := s.Create("dev", &desc, env.NewMap(env.New("A", "1")), cipher.NewNone())
	if err != nil {
		t.Fatalf("Failed to create: %v", err)
	}
	defer dev.Close()

	entries, err := s.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Name != "ci" || entries[1].Name != "dev" {
		t.Errorf("unexpected order: %s, %s", entries[0].Name, entries[1].Name)
	}
	if entries[0].CipherKind != "passphrase" || entries[0].Records != 2 {
		t.Errorf("ci entry = %+v", entries[0])
	}
	if entries[1].Description != desc || entries[1].Records != 1 {
		t.Errorf("dev entry = %+v", entries[1])
	}

	// saving refreshes the entry
	dev.Set("B", "2")
	if err := dev.Save(); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	entries, _ = s.List()
	if entries[1].Records != 2 || !entries[1].UpdatedAt.Equal(dev.Metadata.UpdatedAt) {
		t.Errorf("index not refreshed on save: %+v", entries[1])
	}
}

func TestStoreListRebuildsMissingIndex(t *testing.T) {
	s := newTestStore(t)
	createCI(t, s)

	if err := os.Remove(filepath.Join(s.Dir(), IndexFile)); err != nil {
		t.Fatalf("Failed to remove index: %v", err)
	}
	// a stray file that is not a container
	os.WriteFile(filepath.Join(s.Dir(), "broken"+FileSuffix), []byte("nope"), 0600)

	entries, err := s.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "ci" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].Records != UnknownRecords {
		t.Errorf("records should be unknown without decrypting, got %d", entries[0].Records)
	}
}

func TestStoreReindexKeepsKnownCounts(t *testing.T) {
	s := newTestStore(t)
	createCI(t, s)

	entries, err := s.Reindex()
	if err != nil {
		t.Fatalf("Failed to reindex: %v", err)
	}
	if len(entries) != 1 || entries[0].Records != 2 {
		t.Errorf("unchanged profile should keep its record count: %+v", entries)
	}
}

func TestStoreDelete(t *testing.T) {
	s := newTestStore(t)
	createCI(t, s)

	if err := s.Delete("ci"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if exists, _ := s.Exists("ci"); exists {
		t.Error("profile file still exists")
	}
	entries, _ := s.List()
	if len(entries) != 0 {
		t.Errorf("index still lists deleted profile: %+v", entries)
	}

	if err := s.Delete("ci"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get("ci", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreLoadByPath(t *testing.T) {
	s := newTestStore(t)
	p := createCI(t, s)

	loaded, err := s.Load(p.Metadata.FilePath, StaticKey(testKey))
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	defer loaded.Close()

	loaded.Set("EXTRA", "x")
	if err := loaded.Save(); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}
	entries, _ := s.List()
	if len(entries) != 1 || entries[0].Records != 3 {
		t.Errorf("profile loaded by path should still be indexed: %+v", entries)
	}
}

func TestStoreCompact(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"a", "b", "c"} {
		p, err := s.Create(name, nil, nil, cipher.NewNone())
		if err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
		p.Close()
	}
	s.Delete("b")

	if err := s.Compact(); err != nil {
		t.Fatalf("Failed to compact: %v", err)
	}
	entries, err := s.List()
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "c" {
		t.Errorf("unexpected entries after compact: %+v", entries)
	}
}

func TestPeekMetadata(t *testing.T) {
	if _, err := PeekMetadata([]byte(`{"encrypted_content":"x"}`)); !errors.Is(err, ErrSerialization) {
		t.Errorf("expected ErrSerialization, got %v", err)
	}
	meta, err := PeekMetadata([]byte(`{"metadata":{"name":"x","cipher_kind":"gpg"}}`))
	if err != nil {
		t.Fatalf("PeekMetadata failed: %v", err)
	}
	if meta.Name != "x" || meta.CipherKind != cipher.KindGPG {
		t.Errorf("meta = %+v", meta)
	}
}
