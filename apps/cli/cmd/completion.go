package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for corkscrew.

To load completions:

Bash:
  $ source <(corkscrew completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ corkscrew completion bash > /etc/bash_completion.d/corkscrew
  # macOS:
  $ corkscrew completion bash > $(brew --prefix)/etc/bash_completion.d/corkscrew

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ corkscrew completion zsh > "${fpath[1]}/_corkscrew"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ corkscrew completion fish | source

  # To load completions for each session, execute once:
  $ corkscrew completion fish > ~/.config/fish/completions/corkscrew.fish

PowerShell:
  PS> corkscrew completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> corkscrew completion powershell > corkscrew.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(out)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
