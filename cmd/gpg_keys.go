package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var gpgKeysCmd = &cobra.Command{
	Use:   "gpg-keys",
	Short: "List GPG secret keys usable as recipients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := agent().Keys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No GPG secret keys found")
			return nil
		}
		for _, k := range keys {
			fmt.Printf("%s  %s\n", color.YellowString(k.Fingerprint), k.Label)
		}
		return nil
	},
}
