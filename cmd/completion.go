package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion <bash|zsh|fish|powershell>",
	Short: "Generate shell completions",
	Long: `Outputs a completion script for the given shell.

Examples:
  source <(envvault completion bash)
  envvault completion zsh > "${fpath[1]}/_envvault"
  envvault completion fish > ~/.config/fish/completions/envvault.fish`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return fmt.Errorf("unknown shell: %s (supported: bash, zsh, fish, powershell)", args[0])
		}
	},
}

// completeProfiles offers profile names from the index.
func completeProfiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveDefault
	}
	if cfg == nil {
		if err := setup(cmd, args); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	}
	s, err := openStore()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	entries, err := s.List()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	for _, c := range []*cobra.Command{
		showCmd, setCmd, editCmd, unsetCmd, importCmd, exportCmd, diffCmd,
		deleteCmd, passwdCmd, keyringSaveCmd, keyringDeleteCmd, keyringStatusCmd,
	} {
		c.ValidArgsFunction = completeProfiles
	}
}
