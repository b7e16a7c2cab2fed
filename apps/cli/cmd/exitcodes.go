package cmd

import (
	"errors"

	"github.com/nixpig/corkscrew/packages/core/parser"
	"github.com/nixpig/corkscrew/packages/core/resolver"
	"github.com/nixpig/corkscrew/packages/http"
)

// Exit codes for the corkscrew CLI
const (
	// ExitSuccess indicates the batch ran, whatever the individual outcomes
	ExitSuccess = 0

	// ExitFailure indicates any other error, such as unwritable output
	ExitFailure = 1

	// ExitParseError indicates a request file that is not a valid request tree
	ExitParseError = 2

	// ExitConfigError indicates an unreadable file, a request without a host
	// or a bad tool config
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// usageError wraps flag and option errors.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// toolConfigError wraps failures to load the tool config or env file.
type toolConfigError struct {
	err error
}

func (e *toolConfigError) Error() string { return e.err.Error() }
func (e *toolConfigError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		usage       *usageError
		syntaxErr   *parser.ConfigSyntaxError
		malformed   *resolver.MalformedNodeError
		readErr     *parser.ConfigReadError
		missingHost *http.MissingHostError
		toolErr     *toolConfigError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &syntaxErr), errors.As(err, &malformed):
		return ExitParseError
	case errors.As(err, &readErr), errors.As(err, &missingHost), errors.As(err, &toolErr):
		return ExitConfigError
	default:
		return ExitFailure
	}
}
