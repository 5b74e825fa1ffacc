package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/illarion/envvault/internal/profile"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List profiles",
	Long: `Lists profiles from the index without decrypting them. The index is
rebuilt automatically when it is missing; record counts of rebuilt entries
show as "?" until the profile is saved again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		entries, err := s.List()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No profiles in " + s.Dir())
			fmt.Println(color.CyanString("→") + " Run 'envvault create <profile>' to add one")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCIPHER\tRECORDS\tUPDATED\tDESCRIPTION")
		for _, e := range entries {
			records := "?"
			if e.Records != profile.UnknownRecords {
				records = strconv.Itoa(e.Records)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Name, e.CipherKind, records, e.UpdatedAt.Local().Format("2006-01-02 15:04"), e.Description)
		}
		return w.Flush()
	},
}
