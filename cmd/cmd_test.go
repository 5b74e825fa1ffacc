package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/config"
	"github.com/illarion/envvault/internal/profile"
	"github.com/illarion/envvault/internal/prompt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	gokeyring "github.com/zalando/go-keyring"
)

// resetGlobalState clears flag values left over from a previous run.
func resetGlobalState() {
	if store != nil {
		store.Close()
		store = nil
	}
	cfg = nil
	verbose, debug, configFile = false, false, ""
	createCipher, createGPGKey, createDescription, createFrom = "", "", "", ""
	setComment, setExpires = "", ""
	showValues = false
	exportOutput = ""
	importConflict = "replace"
	deleteForce = false
	passwdCipher, passwdGPGKey = "", ""
	resetChanged(RootCmd)
}

func resetChanged(c *cobra.Command) {
	c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	for _, sub := range c.Commands() {
		resetChanged(sub)
	}
}

type testEnv struct {
	dir         string
	profilesDir string
	config      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	te := &testEnv{
		dir:         dir,
		profilesDir: filepath.Join(dir, "profiles"),
		config:      filepath.Join(dir, "config.toml"),
	}
	conf := "profiles_dir = \"" + filepath.ToSlash(te.profilesDir) + "\"\ndefault_cipher = \"none\"\n"
	if err := os.WriteFile(te.config, []byte(conf), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv(prompt.EnvPassphrase, "")
	gokeyring.MockInit()
	t.Cleanup(resetGlobalState)
	return te
}

func (te *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	resetGlobalState()
	RootCmd.SetArgs(append([]string{"--config", te.config}, args...))
	return RootCmd.ExecuteContext(context.Background())
}

func (te *testEnv) load(t *testing.T, name string, key string) *profile.Profile {
	t.Helper()
	s, err := profile.NewStore(te.profilesDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()
	p, err := s.Get(name, profile.StaticKey(key))
	if err != nil {
		t.Fatalf("Failed to load %s: %v", name, err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestCreateSetExport(t *testing.T) {
	te := newTestEnv(t)

	dotenv := filepath.Join(te.dir, "seed.env")
	os.WriteFile(dotenv, []byte("# database\nDB_HOST=localhost\nexport TOKEN='t0k'\n"), 0600)

	if err := te.run(t, "create", "dev", "--from", dotenv); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := te.run(t, "set", "dev", "PORT=5432", "--expires", "2030-01-01"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	p := te.load(t, "dev", "")
	if p.Metadata.CipherKind != cipher.KindNone {
		t.Errorf("cipher = %s, want none from config", p.Metadata.CipherKind)
	}
	if got := strings.Join(p.Envs.Keys(), ","); got != "DB_HOST,TOKEN,PORT" {
		t.Errorf("keys = %s", got)
	}
	if port, _ := p.Envs.Get("PORT"); port.ExpirationDate == nil || port.ExpirationDate.String() != "2030-01-01" {
		t.Errorf("PORT expiration = %v", port.ExpirationDate)
	}

	out := filepath.Join(te.dir, "out.env")
	if err := te.run(t, "export", "dev", "TOKEN", "PORT", "-o", out); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if string(data) != "TOKEN=t0k\nPORT=5432\n" {
		t.Errorf("export = %q", data)
	}
}

func TestCreateExisting(t *testing.T) {
	te := newTestEnv(t)
	if err := te.run(t, "create", "dev"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := te.run(t, "create", "dev"); !errors.Is(err, profile.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestPassphraseFromEnvironment(t *testing.T) {
	te := newTestEnv(t)
	t.Setenv(prompt.EnvPassphrase, "s3cret-passphrase")

	if err := te.run(t, "create", "prod", "--cipher", "passphrase"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := te.run(t, "set", "prod", "API_KEY=abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	p := te.load(t, "prod", "s3cret-passphrase")
	if v, _ := p.Envs.Get("API_KEY"); v.Value != "abc" {
		t.Errorf("API_KEY = %q", v.Value)
	}

	t.Setenv(prompt.EnvPassphrase, "wrong")
	if err := te.run(t, "show", "prod"); !errors.Is(err, cipher.ErrCipher) {
		t.Errorf("expected ErrCipher with wrong passphrase, got %v", err)
	}
}

func TestEnvironmentPassphraseKeys(t *testing.T) {
	te := newTestEnv(t)
	c, err := config.Load(te.config)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	cfg = c
	t.Setenv(prompt.EnvPassphrase, "s3cret-passphrase")

	for range 2 {
		ci, key, err := newCipher(cipher.KindPassphrase, "", true)
		if err != nil {
			t.Fatalf("newCipher failed: %v", err)
		}
		ci.Destroy()
		if key != "s3cret-passphrase" {
			t.Errorf("newCipher key = %q", key)
		}

		key, err = supplyKey(profile.Metadata{Name: "prod"})
		if err != nil {
			t.Fatalf("supplyKey failed: %v", err)
		}
		if key != "s3cret-passphrase" {
			t.Errorf("supplyKey key = %q", key)
		}
	}

	if _, _, err := newCipher(cipher.KindPassphrase, "", false); !errors.Is(err, prompt.ErrNotTerminal) {
		t.Errorf("re-keying should ignore the environment, got %v", err)
	}
}

func TestImportConflicts(t *testing.T) {
	te := newTestEnv(t)
	if err := te.run(t, "create", "dev"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := te.run(t, "set", "dev", "A=1"); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	dotenv := filepath.Join(te.dir, "new.env")
	os.WriteFile(dotenv, []byte("A=2\nB=3\n"), 0600)

	if err := te.run(t, "import", "dev", dotenv, "--on-conflict", "abort"); !errors.Is(err, profile.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := te.run(t, "import", "dev", dotenv, "--on-conflict", "keep"); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	p := te.load(t, "dev", "")
	a, _ := p.Envs.Get("A")
	if a.Value != "1" || !p.Envs.Has("B") {
		t.Errorf("records after keep import: %v A=%s", p.Envs.Keys(), a.Value)
	}
}

func TestEditUnsetDelete(t *testing.T) {
	te := newTestEnv(t)
	if err := te.run(t, "create", "dev"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := te.run(t, "set", "dev", "A=1", "B=2", "--comment", "kept"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := te.run(t, "edit", "dev", "A", "10"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if err := te.run(t, "edit", "dev", "MISSING", "x"); !errors.Is(err, profile.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
	if err := te.run(t, "unset", "dev", "B"); err != nil {
		t.Fatalf("unset failed: %v", err)
	}

	p := te.load(t, "dev", "")
	a, _ := p.Envs.Get("A")
	if a.Value != "10" || a.Comment == nil || *a.Comment != "kept" || p.Envs.Has("B") {
		t.Errorf("unexpected records: %v", p.Envs.Envs())
	}

	if err := te.run(t, "delete", "dev", "--force"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := te.run(t, "show", "dev"); !errors.Is(err, profile.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListAndMaintenance(t *testing.T) {
	te := newTestEnv(t)
	for _, name := range []string{"a", "b"} {
		if err := te.run(t, "create", name); err != nil {
			t.Fatalf("create %s failed: %v", name, err)
		}
	}
	for _, args := range [][]string{{"ls"}, {"reindex"}, {"compact"}, {"ls"}} {
		if err := te.run(t, args...); err != nil {
			t.Fatalf("%v failed: %v", args, err)
		}
	}

	s, err := profile.NewStore(te.profilesDir)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()
	entries, err := s.List()
	if err != nil || len(entries) != 2 {
		t.Fatalf("List = %v, %v", entries, err)
	}
}

func TestColorizeDiff(t *testing.T) {
	diff := "--- a/x\n+++ b/x\n@@ -1 +1 @@\n-A=1\n+A=2\n"
	got := colorizeDiff(diff)
	for _, line := range []string{"A=1", "A=2", "@@ -1 +1 @@"} {
		if !strings.Contains(got, line) {
			t.Errorf("colorized diff lost %q: %q", line, got)
		}
	}
}
