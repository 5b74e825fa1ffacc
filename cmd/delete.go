package cmd

import (
	"fmt"

	"github.com/illarion/envvault/internal/keyring"
	"github.com/illarion/envvault/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var deleteForce bool

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "delete without confirmation")
}

var deleteCmd = &cobra.Command{
	Use:   "delete <profile>",
	Short: "Delete a profile",
	Long: `Deletes the profile file, its index entry and any passphrase stored in
the keyring. This cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		s, err := openStore()
		if err != nil {
			return err
		}
		exists, err := s.Exists(name)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", profile.ErrNotFound, name)
		}

		if !deleteForce && !confirmAction(fmt.Sprintf("Delete profile %s?", name)) {
			fmt.Println("Aborted")
			return nil
		}

		if err := s.Delete(name); err != nil {
			return err
		}
		if err := keyring.DeletePassphrase(name); err != nil {
			Logger.Debug("failed to remove keyring entry", zap.String("profile", name), zap.Error(err))
		}
		success("Deleted profile %s", name)
		return nil
	},
}
