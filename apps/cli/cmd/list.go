package cmd

import (
	"fmt"

	"github.com/nixpig/corkscrew/packages/http"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [names...]",
	Short: "List the requests a run would send",
	Long: `List the requests a run would send, with their method and URL,
without sending anything. Names select requests the same way as a run.

Examples:
  corkscrew list
  corkscrew list -f api.yml login profile`,
	Args: cobra.ArbitraryArgs,
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}

	requests, err := s.runner.Plan(s.ctx, s.settings)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(requests) == 0 {
		fmt.Fprintf(out, "No requests in %s\n", s.settings.ConfigPath)
		return nil
	}

	fmt.Fprintf(out, "\n%s:\n", s.settings.ConfigPath)
	for _, req := range requests {
		fmt.Fprintf(out, "  - %s\n", req.Name)
		fmt.Fprintf(out, "    %s %s\n", req.Method, http.Redact(req.BuildURL()))
	}

	return nil
}
