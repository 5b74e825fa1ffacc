package cmd

import (
	"fmt"

	"github.com/illarion/envvault/internal/keyring"
	"github.com/illarion/envvault/internal/profile"
	"github.com/spf13/cobra"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage profile passphrases in the OS keyring",
}

func init() {
	keyringCmd.AddCommand(keyringSaveCmd)
	keyringCmd.AddCommand(keyringDeleteCmd)
	keyringCmd.AddCommand(keyringStatusCmd)
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save <profile>",
	Short: "Save the profile passphrase to the keyring",
	Long: `Verifies the passphrase by decrypting the profile, then stores it in
the OS keyring. It is used when use_keyring is enabled in the config.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		var key string
		capture := func(meta profile.Metadata) (string, error) {
			k, err := supplyKey(meta)
			key = k
			return k, err
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		cleanup := startSpinner("Verifying passphrase...")
		p, err := s.Get(name, capture)
		cleanup()
		if err != nil {
			return err
		}
		defer p.Close()

		if !p.Metadata.CipherKind.RequiresSecret() {
			return fmt.Errorf("profile %s uses the %s cipher, which has no passphrase", name, p.Metadata.CipherKind)
		}
		if err := keyring.SavePassphrase(name, key); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}
		success("Passphrase for %s saved to keyring", name)
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Remove the profile passphrase from the keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.DeletePassphrase(args[0]); err != nil {
			return fmt.Errorf("failed to delete from keyring: %w", err)
		}
		success("Passphrase for %s removed from keyring", args[0])
		return nil
	},
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status <profile>",
	Short: "Show whether a passphrase is stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyring.HasPassphrase(args[0]) {
			fmt.Println("Passphrase: stored in keyring")
		} else {
			fmt.Println("Passphrase: not stored")
		}
		if !cfg.UseKeyring {
			warn("use_keyring is disabled in the config; stored passphrases are ignored")
		}
		return nil
	},
}
