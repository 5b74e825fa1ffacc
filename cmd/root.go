package cmd

import (
	"context"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/config"
	"github.com/illarion/envvault/internal/gpg"
	"github.com/illarion/envvault/internal/logging"
	"github.com/illarion/envvault/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose    bool
	debug      bool
	configFile string

	Logger = zap.NewNop()
	cfg    *config.Config
	store  *profile.Store

	RootCmd = &cobra.Command{
		Use:   "envvault",
		Short: "Encrypted environment variable profiles",
		Long: `envvault keeps named sets of environment variables ("profiles")
encrypted at rest, and exports them as dotenv files when needed.

Each profile is protected by one of the ciphers:
  none        stored in clear text
  passphrase  Argon2id + XChaCha20-Poly1305 (default)
  gpg         encrypted to a GPG key
  age         age scrypt recipient

The passphrase is read from ENVVAULT_PASSPHRASE, the OS keyring (when
use_keyring is set in the config) or the terminal, in that order.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if store != nil {
				store.Close()
				store = nil
			}
			Logger.Sync()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: $XDG_CONFIG_HOME/envvault/config.toml)")
	RootCmd.CompletionOptions.DisableDefaultCmd = true

	RootCmd.AddCommand(createCmd)
	RootCmd.AddCommand(lsCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(setCmd)
	RootCmd.AddCommand(editCmd)
	RootCmd.AddCommand(unsetCmd)
	RootCmd.AddCommand(importCmd)
	RootCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(diffCmd)
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(passwdCmd)
	RootCmd.AddCommand(reindexCmd)
	RootCmd.AddCommand(compactCmd)
	RootCmd.AddCommand(gpgKeysCmd)
	RootCmd.AddCommand(keyringCmd)
	RootCmd.AddCommand(completionCmd)
}

// Execute runs the command line and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := RootCmd.ExecuteContext(ctx); err != nil {
		HandleError(err)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	Logger = logging.New(verbose, debug)

	path := configFile
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			return err
		}
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = c
	Logger.Debug("loaded config",
		zap.String("path", path),
		zap.String("profiles_dir", cfg.ProfilesDir),
		zap.Stringer("default_cipher", cfg.DefaultCipher))
	return nil
}

// agent returns the GPG agent configured for this run.
func agent() gpg.Agent {
	return gpg.NewCLI(cfg.GPGBinary)
}

func cipherOptions() []cipher.Option {
	return []cipher.Option{
		cipher.WithAgent(agent()),
		cipher.WithLogger(Logger),
	}
}

// openStore opens the profiles directory on first use. Commands that never
// touch profiles (completion, gpg-keys) do not create it.
func openStore() (*profile.Store, error) {
	if store != nil {
		return store, nil
	}
	s, err := profile.NewStore(cfg.ProfilesDir,
		profile.WithLogger(Logger),
		profile.WithCipherOptions(cipherOptions()...))
	if err != nil {
		return nil, err
	}
	store = s
	return store, nil
}

// loadProfile opens the store and decrypts the named profile.
func loadProfile(name string) (*profile.Profile, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}

	cleanup := startSpinner("Decrypting " + name + "...")
	defer cleanup()
	return s.Get(name, supplyKey)
}

// saveProfile re-encrypts p behind a spinner.
func saveProfile(p *profile.Profile) error {
	cleanup := startSpinner("Encrypting " + p.Metadata.Name + "...")
	defer cleanup()
	return p.Save()
}
