package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nixpig/corkscrew/packages/core/config"
	"github.com/nixpig/corkscrew/packages/core/env"
	"github.com/nixpig/corkscrew/packages/core/runner"
	"github.com/nixpig/corkscrew/packages/ctxlog"
	"github.com/nixpig/corkscrew/packages/http"
	"github.com/nixpig/corkscrew/packages/output"
	"github.com/spf13/cobra"
)

var (
	fileFlag            string
	configFlag          string
	envFileFlag         string
	verboseFlag         bool
	noColorFlag         bool
	basicAuthHeaderFlag bool
	parallelFlag        int
	outputFlag          string
	outputFileFlag      string
	watchFlag           bool
	pickFlag            string
	proxyFlag           string
	insecureFlag        bool
)

func init() {
	rootCmd.Flags().IntVarP(&parallelFlag, "parallel", "p", getEnvInt("CORKSCREW_PARALLEL", 0), "Maximum requests in flight, 0 or 1 runs sequentially (env: CORKSCREW_PARALLEL)")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("CORKSCREW_OUTPUT", ""), "Output format: console, json, junit (env: CORKSCREW_OUTPUT)")
	rootCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("CORKSCREW_OUTPUT_FILE", ""), "Write output to a file instead of stdout (env: CORKSCREW_OUTPUT_FILE)")
	rootCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the request file or env file changes")
	rootCmd.Flags().StringVar(&pickFlag, "pick", getEnvString("CORKSCREW_PICK", ""), "gjson path to extract from JSON response bodies (env: CORKSCREW_PICK)")
	rootCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("CORKSCREW_PROXY", ""), "Proxy URL for all requests (env: CORKSCREW_PROXY)")
	rootCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("CORKSCREW_INSECURE", false), "Skip TLS certificate verification (env: CORKSCREW_INSECURE)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// session holds what every command needs to plan or send a request file:
// the merged tool config and a runner wired from it.
type session struct {
	ctx      context.Context
	logger   *slog.Logger
	config   *config.Config
	settings config.Settings
	runner   *runner.Runner
}

func newSession(cmd *cobra.Command, names []string) (*session, error) {
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, &toolConfigError{err: err}
	}

	cfg := fileConfig.Merge(flagConfig(cmd))
	if err := cfg.Validate(); err != nil {
		return nil, &usageError{err: err}
	}

	logger := ctxlog.New(cmd.ErrOrStderr(), cfg.GetVerbose())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	expander, err := env.NewExpanderFromFile(cfg.EnvFile)
	if err != nil {
		return nil, &toolConfigError{err: err}
	}
	expander.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})

	r := runner.NewRunner(&runner.Config{
		Parallel:        cfg.Parallel,
		BasicAuthHeader: cfg.GetBasicAuthHeader(),
		Expander:        expander,
		ClientOptions: []http.ClientOption{
			http.WithDefaultHeader("User-Agent", "corkscrew/"+version),
			http.WithDefaultHeaders(cfg.Headers),
			http.WithFollowRedirects(cfg.GetFollowRedirects()),
			http.WithMaxRedirects(cfg.MaxRedirects),
			http.WithValidateSSL(cfg.GetValidateSSL()),
			http.WithProxy(cfg.Proxy),
		},
	})

	settings := cfg.Settings(names)
	logger.Debug("session ready",
		"file", settings.ConfigPath,
		"parallel", cfg.Parallel,
		"output", cfg.Output,
		"envFile", cfg.EnvFile,
	)

	return &session{
		ctx:      ctx,
		logger:   logger,
		config:   cfg,
		settings: settings,
		runner:   r,
	}, nil
}

// flagConfig turns command line flags into a config that overrides the
// tool config file. Booleans only override when given explicitly.
func flagConfig(cmd *cobra.Command) *config.Config {
	c := &config.Config{
		File:     fileFlag,
		Parallel: parallelFlag,
		Proxy:    proxyFlag,
		Output:   strings.ToLower(outputFlag),
		EnvFile:  envFileFlag,
	}

	if isSet(cmd, "verbose", "CORKSCREW_VERBOSE") {
		c.Verbose = config.BoolPtr(verboseFlag)
	}
	if isSet(cmd, "no-color", "CORKSCREW_NO_COLOR") {
		c.NoColor = config.BoolPtr(noColorFlag)
	}
	if isSet(cmd, "basic-auth-header", "CORKSCREW_BASIC_AUTH_HEADER") {
		c.BasicAuthHeader = config.BoolPtr(basicAuthHeaderFlag)
	}
	if isSet(cmd, "insecure", "CORKSCREW_INSECURE") {
		c.ValidateSSL = config.BoolPtr(!insecureFlag)
	}

	return c
}

func isSet(cmd *cobra.Command, name, envKey string) bool {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	return os.Getenv(envKey) != ""
}

func (s *session) newFormatter(w io.Writer) Formatter {
	switch s.config.Output {
	case config.OutputJSON:
		return output.NewJSONFormatter(
			output.JSONWithWriter(w),
			output.JSONWithPick(pickFlag),
		)
	case config.OutputJUnit:
		return output.NewJUnitFormatter(output.JUnitWithWriter(w))
	default:
		return output.NewConsoleFormatter(
			output.WithWriter(w),
			output.WithVerbose(s.config.GetVerbose()),
			output.WithNoColor(s.config.GetNoColor()),
			output.WithPick(pickFlag),
		)
	}
}

// reportError prints err in console form whatever the output format, so
// watch mode can keep going after a failed run.
func (s *session) reportError(w io.Writer, err error) {
	output.NewConsoleFormatter(
		output.WithWriter(w),
		output.WithNoColor(s.config.GetNoColor()),
	).FormatError(err)
}

// runOnce sends the selected requests and reports them. Per-request
// failures are part of the report; only errors that stop the whole batch
// are returned.
func (s *session) runOnce(w io.Writer) error {
	formatter := s.newFormatter(w)
	start := time.Now()

	result, err := s.runner.Run(s.ctx, s.settings)
	if err != nil {
		return err
	}

	formatter.FormatResult(result)

	if flushable, ok := formatter.(Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	return nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		f, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if !watchFlag {
		return s.runOnce(out)
	}

	return watch(cmd, args, s, out)
}
