package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a request file without sending anything",
	Long: `Parse and resolve a request file and build every request in it
without sending them. Unresolved placeholders are reported as warnings.

Examples:
  corkscrew validate
  corkscrew validate -f api.yml --env-file .env`,
	Args: cobra.NoArgs,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, nil)
	if err != nil {
		return err
	}

	requests, err := s.runner.Plan(s.ctx, s.settings)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Invalid: %s\n", s.settings.ConfigPath)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d requests)\n", s.settings.ConfigPath, len(requests))
	return nil
}
