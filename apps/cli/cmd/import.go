package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixpig/corkscrew/packages/import/curl"
	"github.com/spf13/cobra"
)

var (
	importOutputFlag string
	importFlatFlag   bool
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Import requests from other formats",
	Long: `Import requests from other formats and convert them to a request file.

Supported formats:
  curl - curl command lines, one per line with backslash continuations

Examples:
  corkscrew import curl commands.sh
  corkscrew import curl commands.sh -o requests.yml
  pbpaste | corkscrew import curl -`,
}

var importCurlCmd = &cobra.Command{
	Use:   "curl <file|->",
	Short: "Import from curl commands",
	Long: `Import requests from a file of curl commands, or stdin with "-".

Requests to the same scheme, host and port are nested under one parent
that carries the origin. JSON data becomes a body, other data becomes form
fields, -u and bearer Authorization headers become auth.

Examples:
  corkscrew import curl commands.sh
  corkscrew import curl commands.sh -o requests.yml
  corkscrew import curl commands.sh --flat`,
	Args: cobra.ExactArgs(1),
	RunE: importCurlCommand,
}

func init() {
	importCurlCmd.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	importCurlCmd.Flags().BoolVar(&importFlatFlag, "flat", false, "Do not group requests by origin")

	importCmd.AddCommand(importCurlCmd)
	rootCmd.AddCommand(importCmd)
}

func importCurlCommand(cmd *cobra.Command, args []string) error {
	converter := curl.NewConverter(curl.WithGrouping(!importFlatFlag))

	var commands []string
	var err error
	if args[0] == "-" {
		commands, err = curl.ReadCommands(cmd.InOrStdin())
	} else {
		var f *os.File
		f, err = os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		commands, err = curl.ReadCommands(f)
	}
	if err != nil {
		return err
	}

	nodes, err := converter.Convert(commands)
	if err != nil {
		return fmt.Errorf("failed to convert curl commands: %w", err)
	}

	content, err := curl.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("failed to encode requests: %w", err)
	}

	if importOutputFlag == "" {
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}

	if dir := filepath.Dir(importOutputFlag); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(importOutputFlag, content, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d commands to %s\n", len(commands), importOutputFlag)
	return nil
}
