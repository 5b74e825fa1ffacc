package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/env"
	"github.com/illarion/envvault/internal/profile"
	"github.com/spf13/cobra"
)

var (
	createCipher      string
	createGPGKey      string
	createDescription string
	createFrom        string
)

func init() {
	createCmd.Flags().StringVarP(&createCipher, "cipher", "c", "", "cipher: none, passphrase, gpg or age (default from config)")
	createCmd.Flags().StringVar(&createGPGKey, "gpg-key", "", "recipient fingerprint for the gpg cipher")
	createCmd.Flags().StringVar(&createDescription, "description", "", "free-form description")
	createCmd.Flags().StringVarP(&createFrom, "from", "f", "", "import records from a dotenv file")
}

var createCmd = &cobra.Command{
	Use:   "create <profile>",
	Short: "Create a new profile",
	Long: `Creates an encrypted profile, optionally filled from a dotenv file.

Examples:
  envvault create dev
  envvault create prod --cipher gpg --gpg-key 0123ABCD...
  envvault create staging --from .env.staging`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		kind := cfg.DefaultCipher
		if createCipher != "" {
			var err error
			if kind, err = cipher.ParseKind(createCipher); err != nil {
				return err
			}
		}

		envs := &env.Map{}
		if createFrom != "" {
			var err error
			if envs, err = readDotenv(createFrom); err != nil {
				return err
			}
		}

		var description *string
		if cmd.Flags().Changed("description") {
			description = &createDescription
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		if exists, err := s.Exists(name); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: %s", profile.ErrAlreadyExists, name)
		}

		c, key, err := newCipher(kind, createGPGKey, true)
		if err != nil {
			return err
		}

		cleanup := startSpinner("Encrypting " + name + "...")
		p, err := s.Create(name, description, envs, c)
		cleanup()
		if err != nil {
			return err
		}
		defer p.Close()

		rememberKey(name, key)
		success("Created profile %s (%s, %d records)", name, kind, p.Envs.Len())
		return nil
	},
}

// readDotenv parses the dotenv file at path.
func readDotenv(path string) (*env.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := env.ParseDotenv(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
