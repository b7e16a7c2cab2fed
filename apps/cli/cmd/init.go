package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixpig/corkscrew/packages/core/config"
	"github.com/nixpig/corkscrew/packages/core/parser"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new corkscrew project",
	Long: `Initialize a new corkscrew project in the current directory.

This creates:
  - requests.yml     - Example request tree
  - .env             - Variables for the {{...}} placeholders
  - .corkscrew.json  - Tool configuration

Examples:
  corkscrew init
  corkscrew init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	// -f is the persistent request file flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite existing files")
}

const exampleEnv = `# Values for {{...}} placeholders in requests.yml
password=p4ssw0rd
token=abcd1234
`

func exampleTree() []*parser.Node {
	str := func(s string) *string { return &s }
	port := uint16(7878)
	timeout := uint64(10)

	return []*parser.Node{{
		Host:    str("localhost"),
		Port:    &port,
		Timeout: &timeout,
		Requests: []*parser.Node{
			{Name: str("ping"), Resource: str("/api")},
			{
				Name:     str("create_user"),
				Resource: str("/api/users"),
				Method:   str("post"),
				Body: map[string]any{
					"id":      "{{uuid()}}",
					"name":    "{{randomString(8)}}",
					"created": "{{timestamp()}}",
				},
			},
			{
				Name:     str("login"),
				Resource: str("/api/login"),
				Method:   str("post"),
				Form: map[string]string{
					"username": "name",
					"password": "{{password}}",
				},
			},
			{
				Auth: parser.BearerAuth("{{token}}"),
				Requests: []*parser.Node{
					{Name: str("profile"), Resource: str("/api/me")},
					{
						Name:     str("search"),
						Resource: str("/api/users"),
						Params:   map[string]string{"q": "name", "limit": "10"},
					},
				},
			},
			{
				Name:     str("admin"),
				Resource: str("/api/admin"),
				Auth:     parser.BasicAuth("admin", "{{password}}"),
			},
		},
	}}
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	requestFile := filepath.Join(cwd, config.DefaultFile)
	envFile := filepath.Join(cwd, ".env")
	configFile := filepath.Join(cwd, config.ConfigFilenames[0])

	if !forceInit {
		for _, f := range []string{requestFile, envFile, configFile} {
			if _, err := os.Stat(f); err == nil {
				return &usageError{err: fmt.Errorf("file already exists: %s (use --force to overwrite)", f)}
			}
		}
	}

	tree, err := yaml.Marshal(exampleTree())
	if err != nil {
		return fmt.Errorf("failed to encode example requests: %w", err)
	}
	if err := os.WriteFile(requestFile, tree, 0644); err != nil {
		return fmt.Errorf("failed to create request file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", requestFile)

	if err := os.WriteFile(envFile, []byte(exampleEnv), 0644); err != nil {
		return fmt.Errorf("failed to create env file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	cfg := config.DefaultConfig()
	cfg.EnvFile = ".env"
	cfg.Parallel = 4
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\ncorkscrew project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'corkscrew list' to see the example requests.\n")

	return nil
}
