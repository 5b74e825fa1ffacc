package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/illarion/envvault/internal/crypto"
	"github.com/illarion/envvault/internal/env"
	"github.com/illarion/envvault/internal/profile"
	"github.com/illarion/envvault/internal/prompt"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	setComment string
	setExpires string
)

func init() {
	setCmd.Flags().StringVar(&setComment, "comment", "", "comment attached to the records")
	setCmd.Flags().StringVar(&setExpires, "expires", "", "expiration date (YYYY-MM-DD)")
}

var setCmd = &cobra.Command{
	Use:   "set <profile> KEY[=VALUE]...",
	Short: "Add or replace records",
	Long: `Adds records to a profile, replacing any record with the same name.
A KEY without "=VALUE" reads the value from the terminal without echo.

Examples:
  envvault set dev API_KEY=abc DB_HOST=localhost
  envvault set dev TOKEN --expires 2026-12-31 --comment "rotated quarterly"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var expires *env.Date
		if setExpires != "" {
			d, err := env.ParseDate(setExpires)
			if err != nil {
				return err
			}
			expires = &d
		}

		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		for _, arg := range args[1:] {
			name, value, ok := strings.Cut(arg, "=")
			if !ok {
				v, err := prompt.ReadPassphrase(fmt.Sprintf("Value for %s: ", name))
				if err != nil {
					return err
				}
				value = string(v)
				crypto.ClearBytes(v)
			}

			e := env.New(name, value)
			if cmd.Flags().Changed("comment") {
				e = e.WithComment(setComment)
			}
			if expires != nil {
				e = e.WithExpiration(*expires)
			}
			if err := p.Insert(e); err != nil {
				return err
			}
		}

		if err := saveProfile(p); err != nil {
			return err
		}
		success("Set %d record(s) in %s", len(args)-1, p.Metadata.Name)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <profile> KEY [VALUE]",
	Short: "Change the value of an existing record",
	Long: `Changes the value of an existing record, keeping its comment and
expiration date. Without VALUE the new value is read from the terminal.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		name := args[1]
		if !p.Envs.Has(name) {
			return fmt.Errorf("%w: %s", profile.ErrRecordNotFound, name)
		}

		var value string
		if len(args) == 3 {
			value = args[2]
		} else {
			v, err := prompt.ReadPassphrase(fmt.Sprintf("New value for %s: ", name))
			if err != nil {
				return err
			}
			value = string(v)
			crypto.ClearBytes(v)
		}

		if err := p.Edit(name, value); err != nil {
			return err
		}
		if err := saveProfile(p); err != nil {
			return err
		}
		success("Updated %s in %s", name, p.Metadata.Name)
		return nil
	},
}

var unsetCmd = &cobra.Command{
	Use:     "unset <profile> KEY...",
	Aliases: []string{"rm"},
	Short:   "Remove records",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		for _, name := range args[1:] {
			if err := p.Remove(name); err != nil {
				return err
			}
		}
		if err := saveProfile(p); err != nil {
			return err
		}
		success("Removed %d record(s) from %s", len(args)-1, p.Metadata.Name)
		return nil
	},
}

var importConflict string

func init() {
	importCmd.Flags().StringVar(&importConflict, "on-conflict", "replace", "existing records with other values: replace, keep, ask or abort")
}

var importCmd = &cobra.Command{
	Use:   "import <profile> <dotenv-file>",
	Short: "Import records from a dotenv file",
	Long: `Reads KEY=VALUE lines from a dotenv file into a profile. Comment lines
directly above a variable become its comment.

Records that already exist with a different value or comment are settled
by --on-conflict:
  replace  take the value from the file (default)
  keep     keep the profile's value
  ask      ask for each record
  abort    change nothing and fail`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := profile.ParseStrategy(importConflict)
		if err != nil {
			return err
		}
		imported, err := readDotenv(args[1])
		if err != nil {
			return err
		}

		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		res, err := p.Merge(imported, strategy, askConflict)
		if err != nil {
			return err
		}
		if !res.Changed() {
			fmt.Println("Nothing to import")
			return nil
		}
		if err := saveProfile(p); err != nil {
			return err
		}
		success("Imported into %s: %d added, %d replaced, %d kept",
			p.Metadata.Name, len(res.Added), len(res.Replaced), len(res.Kept))
		return nil
	},
}

// askConflict asks whether to replace one record. Values stay masked.
func askConflict(current, incoming env.Env) (profile.Resolution, error) {
	fmt.Fprintf(os.Stderr, "\n%s %s differs from the imported record\n", color.YellowString("!"), current.Name)
	fmt.Fprintf(os.Stderr, "  [k] Keep profile value\n")
	fmt.Fprintf(os.Stderr, "  [r] Replace with imported value\n")

	for {
		fmt.Fprintf(os.Stderr, "Your choice: ")
		choice, err := readChoice()
		if err != nil {
			return profile.ResolutionKeep, err
		}
		switch choice {
		case "k":
			return profile.ResolutionKeep, nil
		case "r":
			return profile.ResolutionReplace, nil
		default:
			fmt.Fprintf(os.Stderr, "Invalid choice. Please enter k or r\n")
		}
	}
}

// readChoice reads a single key from the terminal, or a line when stdin is
// not a terminal
func readChoice() (string, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		line, err := prompt.ReadLine(os.Stdin)
		if err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(line)), nil
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return "", err
	}

	choice := strings.ToLower(string(buf[0]))
	fmt.Fprintf(os.Stderr, "%s\r\n", choice)
	return choice, nil
}
