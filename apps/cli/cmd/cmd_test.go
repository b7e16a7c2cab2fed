package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nixpig/corkscrew/packages/core/parser"
	"github.com/nixpig/corkscrew/packages/core/resolver"
	corkhttp "github.com/nixpig/corkscrew/packages/http"
	"github.com/nixpig/corkscrew/packages/output"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag state and captured output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), rootCmd.Flags(), initCmd.Flags(), importCurlCmd.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func newServer(t *testing.T) (*httptest.Server, string, string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
		}
		fmt.Fprintf(w, `{"path":%q,"method":%q}`, r.URL.Path, r.Method)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return srv, u.Hostname(), u.Port()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func requestFile(t *testing.T, host, port string) string {
	return writeFile(t, "requests.yml", fmt.Sprintf(`
- host: %s
  port: %s
  requests:
    - name: ping
      resource: /ping
    - name: missing
      resource: /missing
    - name: create
      resource: /users
      method: post
      body:
        name: test
`, host, port))
}

func TestRun_JSONOutput(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)

	stdout, _, err := execute(t, "-f", path, "-o", "json", "--pick", "path")
	require.NoError(t, err)

	var result output.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))

	assert.Equal(t, path, result.File)
	assert.Equal(t, 3, result.Summary.Total)
	assert.Equal(t, 3, result.Summary.Succeeded)
	require.Len(t, result.Outcomes, 3)

	assert.Equal(t, "ping", result.Outcomes[0].Name)
	assert.Equal(t, "missing", result.Outcomes[1].Name)
	assert.Equal(t, "create", result.Outcomes[2].Name)

	require.NotNil(t, result.Outcomes[1].Response)
	assert.Equal(t, http.StatusNotFound, result.Outcomes[1].Response.StatusCode)
	assert.JSONEq(t, `"/users"`, string(result.Outcomes[2].Picked))
	assert.Equal(t, "POST", result.Outcomes[2].Request.Method)
}

func TestRun_ParallelKeepsOrder(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)

	stdout, _, err := execute(t, "-f", path, "-o", "json", "-p", "3")
	require.NoError(t, err)

	var result output.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Outcomes, 3)
	assert.Equal(t, "ping", result.Outcomes[0].Name)
	assert.Equal(t, "missing", result.Outcomes[1].Name)
	assert.Equal(t, "create", result.Outcomes[2].Name)
}

func TestRun_SelectByName(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)

	stdout, _, err := execute(t, "-f", path, "-o", "json", "missing")
	require.NoError(t, err)

	var result output.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "missing", result.Outcomes[0].Name)
}

func TestRun_ConsoleOutput(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)

	stdout, _, err := execute(t, "-f", path, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Running: "+path)
	assert.Contains(t, stdout, "ping")
	assert.Contains(t, stdout, "404")
	assert.Contains(t, stdout, "Requests: 3 succeeded, 3 total")
}

func TestRun_OutputFile(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)
	out := filepath.Join(t.TempDir(), "report.xml")

	stdout, _, err := execute(t, "-f", path, "-o", "junit", "--output-file", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<testsuites`)
	assert.Contains(t, string(data), `name="ping"`)
}

func TestRun_Interpolation(t *testing.T) {
	_, host, port := newServer(t)
	path := writeFile(t, "requests.yml", fmt.Sprintf(`
- name: ping
  host: %s
  port: %s
  resource: "/{{segment}}"
`, host, port))
	envFile := writeFile(t, ".env", "segment=from-env\n")

	stdout, _, err := execute(t, "-f", path, "--env-file", envFile, "-o", "json", "--pick", "path")
	require.NoError(t, err)

	var result output.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	require.Len(t, result.Outcomes, 1)
	assert.JSONEq(t, `"/from-env"`, string(result.Outcomes[0].Picked))
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
		code int
	}{
		{
			name: "missing request file",
			args: func(t *testing.T) []string {
				return []string{"-f", filepath.Join(t.TempDir(), "nope.yml")}
			},
			code: ExitConfigError,
		},
		{
			name: "invalid yaml",
			args: func(t *testing.T) []string {
				return []string{"-f", writeFile(t, "requests.yml", "- name: [unclosed\n")}
			},
			code: ExitParseError,
		},
		{
			name: "malformed node",
			args: func(t *testing.T) []string {
				return []string{"-f", writeFile(t, "requests.yml", "- host: localhost\n")}
			},
			code: ExitParseError,
		},
		{
			name: "missing host",
			args: func(t *testing.T) []string {
				return []string{"-f", writeFile(t, "requests.yml", "- name: ping\n  resource: /ping\n")}
			},
			code: ExitConfigError,
		},
		{
			name: "unknown flag",
			args: func(t *testing.T) []string { return []string{"--nope"} },
			code: ExitUsageError,
		},
		{
			name: "unknown output",
			args: func(t *testing.T) []string { return []string{"-o", "xml"} },
			code: ExitUsageError,
		},
		{
			name: "bad tool config",
			args: func(t *testing.T) []string {
				return []string{"--config", writeFile(t, ".corkscrew.json", "{")}
			},
			code: ExitConfigError,
		},
		{
			name: "missing env file",
			args: func(t *testing.T) []string {
				return []string{"--env-file", filepath.Join(t.TempDir(), "nope.env")}
			},
			code: ExitConfigError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args(t)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
		})
	}
}

func TestList(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)

	stdout, _, err := execute(t, "list", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "  - ping\n")
	assert.Contains(t, stdout, fmt.Sprintf("    GET http://%s:%s/ping\n", host, port))
	assert.Contains(t, stdout, fmt.Sprintf("    POST http://%s:%s/users\n", host, port))
}

func TestList_RedactsPassword(t *testing.T) {
	path := writeFile(t, "requests.yml", `
- name: admin
  host: localhost
  resource: /admin
  auth:
    basic:
      username: admin
      password: s3cret
`)

	stdout, _, err := execute(t, "list", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "admin")
	assert.NotContains(t, stdout, "s3cret")
}

func TestValidate(t *testing.T) {
	_, host, port := newServer(t)
	path := requestFile(t, host, port)

	stdout, _, err := execute(t, "validate", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Valid: %s (3 requests)\n", path), stdout)

	bad := writeFile(t, "requests.yml", "- host: localhost\n")
	stdout, _, err = execute(t, "validate", "-f", bad)
	require.Error(t, err)
	assert.Equal(t, ExitParseError, exitCode(err))
	assert.Contains(t, stdout, "Invalid: "+bad)
}

func TestInit(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	stdout, _, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "corkscrew project initialized!")

	for _, f := range []string{"requests.yml", ".env", ".corkscrew.json"} {
		assert.FileExists(t, f)
	}

	nodes, err := parser.ParseFile("requests.yml")
	require.NoError(t, err)
	records, err := resolver.Resolve(nodes, nil)
	require.NoError(t, err)
	assert.Len(t, records, 6)

	stdout, _, err = execute(t, "validate")
	require.NoError(t, err)
	assert.Equal(t, "Valid: requests.yml (6 requests)\n", stdout)

	_, _, err = execute(t, "init")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, exitCode(err))

	_, _, err = execute(t, "init", "--force")
	require.NoError(t, err)
}

func TestImportCurl(t *testing.T) {
	rootCmd.SetIn(strings.NewReader(`curl https://api.example.com/users
curl -X POST https://api.example.com/users \
  -d '{"name":"John"}'
`))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	stdout, _, err := execute(t, "import", "curl", "-")
	require.NoError(t, err)

	nodes, err := parser.Parse([]byte(stdout), "imported.yml")
	require.NoError(t, err)
	records, err := resolver.Resolve(nodes, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "get_users", records[0].RecordName())
	assert.Equal(t, "post_users", records[1].RecordName())
	assert.Equal(t, "api.example.com", *records[1].Host)
}

func TestImportCurl_OutputFile(t *testing.T) {
	src := writeFile(t, "commands.sh", "curl http://localhost:7878/api\n")
	out := filepath.Join(t.TempDir(), "nested", "requests.yml")

	stdout, _, err := execute(t, "import", "curl", src, "-o", out)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Imported 1 commands to %s\n", out), stdout)

	stdout, _, err = execute(t, "validate", "-f", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(1 requests)")
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "corkscrew version "+version)
}

func TestCompletion(t *testing.T) {
	stdout, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "corkscrew")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitFailure},
		{"usage", &usageError{err: errors.New("bad flag")}, ExitUsageError},
		{"syntax", &parser.ConfigSyntaxError{File: "requests.yml"}, ExitParseError},
		{"malformed", fmt.Errorf("resolving: %w", &resolver.MalformedNodeError{Path: "[0]"}), ExitParseError},
		{"read", &parser.ConfigReadError{Path: "requests.yml", Err: os.ErrNotExist}, ExitConfigError},
		{"missing host", fmt.Errorf("building: %w", &corkhttp.MissingHostError{Name: "ping"}), ExitConfigError},
		{"tool config", &toolConfigError{err: errors.New("bad json")}, ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
