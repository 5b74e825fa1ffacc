package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/illarion/envvault/internal/env"
	"github.com/spf13/cobra"
)

var showValues bool

func init() {
	showCmd.Flags().BoolVar(&showValues, "values", false, "print values instead of masking them")
}

var showCmd = &cobra.Command{
	Use:   "show <profile>",
	Short: "Show the records of a profile",
	Long: `Decrypts a profile and prints its records. Values are masked unless
--values is given. Records past their expiration date are flagged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		meta := p.Metadata
		fmt.Printf("Profile: %s\n", color.CyanString(meta.Name))
		if meta.Description != nil && *meta.Description != "" {
			fmt.Printf("Description: %s\n", *meta.Description)
		}
		fmt.Printf("Cipher: %s\n", meta.CipherKind)
		fmt.Printf("Updated: %s\n", meta.UpdatedAt.Local().Format(time.RFC1123))
		fmt.Println()

		if p.Envs.Len() == 0 {
			fmt.Println("No records")
			return nil
		}

		today := env.DateOf(time.Now())
		for _, e := range p.Envs.Envs() {
			if e.Comment != nil {
				for _, line := range strings.Split(*e.Comment, "\n") {
					fmt.Println(color.HiBlackString("# " + line))
				}
			}
			value := "********"
			if showValues {
				value = e.Value
			}
			line := e.Name + "=" + value
			switch {
			case e.Expired(today):
				line += " " + color.RedString("(expired %s)", e.ExpirationDate)
			case e.ExpirationDate != nil:
				line += " " + color.HiBlackString("(expires %s)", e.ExpirationDate)
			}
			fmt.Println(line)
		}

		if expired := p.Envs.Expired(today); len(expired) > 0 {
			fmt.Println()
			warn("%d record(s) expired", len(expired))
		}
		return nil
	},
}
