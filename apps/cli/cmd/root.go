package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "corkscrew [names...]",
	Short: "Send the HTTP requests described in a YAML file",
	Long: `corkscrew reads a tree of HTTP requests from a YAML file, resolves
inherited properties down the tree and sends every named request,
one at a time or in parallel.

Examples:
  corkscrew
  corkscrew -f api.yml login profile
  corkscrew -f api.yml -p 4 -o json
  corkscrew --env-file .env --watch`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runCommand,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), color.RedString("Error: %v", err))
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&fileFlag, "file", "f", getEnvString("CORKSCREW_FILE", ""), "Request file (env: CORKSCREW_FILE, default requests.yml)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("CORKSCREW_CONFIG", ""), "Tool config file (env: CORKSCREW_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", getEnvString("CORKSCREW_ENV_FILE", ""), "Dotenv file with variables for {{...}} placeholders (env: CORKSCREW_ENV_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("CORKSCREW_VERBOSE", false), "Log debug output and print response bodies (env: CORKSCREW_VERBOSE)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("CORKSCREW_NO_COLOR", false), "Disable colored output (env: CORKSCREW_NO_COLOR)")
	rootCmd.PersistentFlags().BoolVar(&basicAuthHeaderFlag, "basic-auth-header", getEnvBool("CORKSCREW_BASIC_AUTH_HEADER", false), "Send basic credentials as an Authorization header (env: CORKSCREW_BASIC_AUTH_HEADER)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
