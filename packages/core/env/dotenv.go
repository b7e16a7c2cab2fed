package env

import (
	"fmt"

	"github.com/joho/godotenv"
)

// LoadDotEnv parses a .env file and returns its key-value pairs. The
// process environment is left untouched; values are only visible to
// {{name}} placeholders.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}

// NewExpanderFromFile returns an Expander seeded with the variables of the
// .env file at path. An empty path yields an Expander with no variables.
func NewExpanderFromFile(path string) (*Expander, error) {
	e := NewExpander()
	if path == "" {
		return e, nil
	}

	vars, err := LoadDotEnv(path)
	if err != nil {
		return nil, err
	}
	e.SetVariables(vars)
	return e, nil
}
