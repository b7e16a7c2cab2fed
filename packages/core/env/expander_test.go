package env

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestExpanderExpand(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  string
	}{
		{
			name:     "no placeholders",
			input:    "hello world",
			expected: "hello world",
		},
		{
			name:      "simple variable",
			input:     "hello {{name}}",
			variables: map[string]string{"name": "world"},
			expected:  "hello world",
		},
		{
			name:      "multiple variables",
			input:     "{{greeting}} {{name}}!",
			variables: map[string]string{"greeting": "Hello", "name": "World"},
			expected:  "Hello World!",
		},
		{
			name:      "whitespace inside braces",
			input:     "{{ host }}:8080",
			variables: map[string]string{"host": "localhost"},
			expected:  "localhost:8080",
		},
		{
			name:     "function call",
			input:    `{{base64("name:p4ssw0rd")}}`,
			expected: "bmFtZTpwNHNzdzByZA==",
		},
		{
			name:     "unresolved stays as-is",
			input:    "hello {{unknown}}",
			expected: "hello {{unknown}}",
		},
		{
			name:     "unknown function stays as-is",
			input:    "{{nope()}}",
			expected: "{{nope()}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExpander()
			e.SetVariables(tt.variables)

			got := e.Expand(tt.input)
			if got != tt.expected {
				t.Errorf("Expand(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExpanderEnvironment(t *testing.T) {
	t.Setenv("CORKSCREW_TEST_TOKEN", "abcd1234")

	e := NewExpander()
	if got := e.Expand("Bearer {{$CORKSCREW_TEST_TOKEN}}"); got != "Bearer abcd1234" {
		t.Errorf("Expand() = %q, want %q", got, "Bearer abcd1234")
	}

	os.Unsetenv("CORKSCREW_TEST_MISSING")
	if got := e.Expand("{{$CORKSCREW_TEST_MISSING}}"); got != "{{$CORKSCREW_TEST_MISSING}}" {
		t.Errorf("Expand() = %q, want placeholder kept", got)
	}
}

func TestExpanderWarnings(t *testing.T) {
	var warnings []string
	e := NewExpander()
	e.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	e.Expand("{{missing}} {{random(9, 1)}} {{nope()}}")

	if len(warnings) != 3 {
		t.Fatalf("got %d warnings, want 3: %v", len(warnings), warnings)
	}
	if !strings.Contains(warnings[0], "unresolved variable: missing") {
		t.Errorf("warnings[0] = %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "random(9, 1)") {
		t.Errorf("warnings[1] = %q", warnings[1])
	}
	if !strings.Contains(warnings[2], "unresolved function call: nope()") {
		t.Errorf("warnings[2] = %q", warnings[2])
	}
	if !strings.Contains(warnings[2], "timestamp, timestampMs, urlEncode, uuid") {
		t.Errorf("warnings[2] = %q, want the available functions listed", warnings[2])
	}
}

func TestExpanderUnresolved(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		variables map[string]string
		expected  []string
	}{
		{
			name:     "no placeholders",
			input:    "hello world",
			expected: nil,
		},
		{
			name:      "resolved variable",
			input:     "{{foo}}",
			variables: map[string]string{"foo": "bar"},
			expected:  nil,
		},
		{
			name:     "multiple unresolved variables",
			input:    "{{foo}} and {{bar}}",
			expected: []string{"foo", "bar"},
		},
		{
			name:      "mixed resolved and unresolved",
			input:     "{{foo}} and {{bar}} and {{baz}}",
			variables: map[string]string{"bar": "middle"},
			expected:  []string{"foo", "baz"},
		},
		{
			name:     "env and function placeholders are ignored",
			input:    "{{$HOME}} {{uuid()}}",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExpander()
			e.SetVariables(tt.variables)

			got := e.Unresolved(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("Unresolved(%q) = %v, want %v", tt.input, got, tt.expected)
			}
			for i, v := range tt.expected {
				if got[i] != v {
					t.Errorf("Unresolved(%q)[%d] = %q, want %q", tt.input, i, got[i], v)
				}
			}
		})
	}
}
