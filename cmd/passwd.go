package cmd

import (
	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/keyring"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	passwdCipher string
	passwdGPGKey string
)

func init() {
	passwdCmd.Flags().StringVarP(&passwdCipher, "cipher", "c", "", "switch to another cipher (default: keep the current one)")
	passwdCmd.Flags().StringVar(&passwdGPGKey, "gpg-key", "", "recipient fingerprint for the gpg cipher")
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <profile>",
	Short: "Change the passphrase or cipher of a profile",
	Long: `Decrypts a profile with its current key and re-encrypts it with a new
passphrase, or with another cipher when --cipher is given.

Examples:
  envvault passwd dev
  envvault passwd dev --cipher age
  envvault passwd dev --cipher gpg --gpg-key 0123ABCD...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		kind := p.Metadata.CipherKind
		if passwdCipher != "" {
			if kind, err = cipher.ParseKind(passwdCipher); err != nil {
				return err
			}
		}

		// ENVVAULT_PASSPHRASE only unlocks here; the new one is always typed.
		c, key, err := newCipher(kind, passwdGPGKey, false)
		if err != nil {
			return err
		}
		p.SetCipher(c)

		if err := saveProfile(p); err != nil {
			return err
		}

		name := p.Metadata.Name
		if key == "" {
			if err := keyring.DeletePassphrase(name); err != nil {
				Logger.Debug("failed to remove keyring entry", zap.Error(err))
			}
		} else if keyring.HasPassphrase(name) {
			if err := keyring.SavePassphrase(name, key); err != nil {
				warn("failed to update keyring: %s", err)
			}
		} else {
			rememberKey(name, key)
		}
		success("Re-encrypted %s with %s", name, kind)
		return nil
	},
}
