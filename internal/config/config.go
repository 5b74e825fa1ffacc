package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/illarion/envvault/internal/cipher"
)

// EnvConfig overrides the config file location
const EnvConfig = "ENVVAULT_CONFIG"

// Config holds user settings read from config.toml
type Config struct {
	ProfilesDir   string      `toml:"profiles_dir"`
	DefaultCipher cipher.Kind `toml:"default_cipher"`
	UseKeyring    bool        `toml:"use_keyring"`
	GPGBinary     string      `toml:"gpg_binary,omitempty"`
}

// Dir returns the envvault configuration directory
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, "envvault"), nil
}

// Path returns the config file location, honouring ENVVAULT_CONFIG
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Default returns the settings used when no file exists
func Default() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Config{
		ProfilesDir:   filepath.Join(dir, "profiles"),
		DefaultCipher: cipher.KindPassphrase,
		UseKeyring:    false,
	}, nil
}

// Load reads the config at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("invalid config %s: unknown key %s", path, undecoded[0])
	}

	cfg.ProfilesDir = expandHome(cfg.ProfilesDir)
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(cfg)
}

func expandHome(p string) string {
	if p == "~" || len(p) > 1 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
