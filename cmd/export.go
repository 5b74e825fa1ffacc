package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/illarion/envvault/internal/git"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
}

var exportCmd = &cobra.Command{
	Use:   "export <profile> [KEY...]",
	Short: "Export records as KEY=VALUE lines",
	Long: `Decrypts a profile and writes its records, or only the named keys, as
KEY=VALUE lines. Files are written with owner-only permissions and checked
against git so plaintext secrets are not committed by accident.

Examples:
  envvault export dev > .env
  envvault export dev -o .env
  eval "$(envvault export dev | sed 's/^/export /')"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()
		keys := args[1:]

		if exportOutput == "" {
			return p.WriteExport(os.Stdout, keys)
		}

		if err := p.Export(exportOutput, keys); err != nil {
			return err
		}
		success("Exported %s to %s", p.Metadata.Name, exportOutput)

		status, err := git.CheckExport(exportOutput)
		if err != nil {
			Logger.Debug("git check failed", zap.Error(err))
			return nil
		}
		for _, w := range status.Warnings() {
			warn("%s", w)
		}
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <profile> <dotenv-file>",
	Short: "Compare a profile with a dotenv file",
	Long: `Prints a unified diff from the profile's export form to a local dotenv
file. Nothing is printed when they match.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		local, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		p, err := loadProfile(args[0])
		if err != nil {
			return err
		}
		defer p.Close()

		diff, err := p.Diff(args[1], local)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Println("No differences")
			return nil
		}
		fmt.Print(colorizeDiff(diff))
		return nil
	},
}

func colorizeDiff(diff string) string {
	var out strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			out.WriteString(color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "@@"):
			out.WriteString(color.CyanString("%s", line))
		case strings.HasPrefix(line, "+"):
			out.WriteString(color.GreenString("%s", line))
		case strings.HasPrefix(line, "-"):
			out.WriteString(color.RedString("%s", line))
		default:
			out.WriteString(line)
		}
	}
	return out.String()
}
