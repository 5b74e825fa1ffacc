package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/envvault/internal/cipher"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultCipher != cipher.KindPassphrase {
		t.Errorf("default cipher = %s", cfg.DefaultCipher)
	}
	if !strings.HasSuffix(cfg.ProfilesDir, filepath.Join("envvault", "profiles")) {
		t.Errorf("profiles dir = %s", cfg.ProfilesDir)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("default_cipher = \"AGE\"\nuse_keyring = true\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DefaultCipher != cipher.KindAge || !cfg.UseKeyring {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ProfilesDir == "" {
		t.Error("absent keys should keep defaults")
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	os.WriteFile(path, []byte("default_cipher = \"rot13\"\n"), 0600)
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown cipher")
	}

	os.WriteFile(path, []byte("profile_dir = \"/tmp\"\n"), 0600)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "profile_dir") {
		t.Errorf("expected unknown key error, got %v", err)
	}

	os.WriteFile(path, []byte("not toml ==="), 0600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	want := &Config{
		ProfilesDir:   "/srv/profiles",
		DefaultCipher: cipher.KindGPG,
		UseKeyring:    true,
		GPGBinary:     "/usr/bin/gpg2",
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `default_cipher = "gpg"`) {
		t.Errorf("cipher not written as text:\n%s", data)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvConfig, "/etc/envvault.toml")
	p, err := Path()
	if err != nil || p != "/etc/envvault.toml" {
		t.Errorf("Path = %s, %v", p, err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/vault"); got != filepath.Join(home, "vault") {
		t.Errorf("expandHome = %s", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome changed absolute path: %s", got)
	}
}
