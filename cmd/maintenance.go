package cmd

import (
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the profile index",
	Long: `Rebuilds the index from the clear-text metadata of every profile file.
Nothing is decrypted. Files that cannot be parsed are skipped with a
warning.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		entries, err := s.Reindex()
		if err != nil {
			return err
		}
		success("Indexed %d profile(s)", len(entries))
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Compact the profile index",
	Long:  `Rewrites the index database to reclaim space left by deleted profiles.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		if err := s.Compact(); err != nil {
			return err
		}
		success("Index compacted")
		return nil
	},
}
