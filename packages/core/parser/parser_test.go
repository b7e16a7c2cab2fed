package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse_RequiredFields(t *testing.T) {
	input := `
- name: test_required_fields
  host: localhost
  requests:
    - name: test_request_name
`
	nodes, err := Parse([]byte(input), "requests.yml")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	root := nodes[0]
	require.NotNil(t, root.Name)
	assert.Equal(t, "test_required_fields", *root.Name)
	assert.Equal(t, "localhost", *root.Host)
	assert.Nil(t, root.Port)
	assert.Nil(t, root.Timeout)
	require.Len(t, root.Requests, 1)

	child := root.Requests[0]
	assert.Equal(t, "test_request_name", *child.Name)
	assert.Nil(t, child.Method)
	assert.Nil(t, child.Resource)
	assert.Nil(t, child.Headers)
	assert.Nil(t, child.Auth)
	assert.Nil(t, child.Body)
}

func TestParse_AllFields(t *testing.T) {
	input := `
- name: test_unconstrained_fields
  host: localhost
  scheme: https
  timeout: 15
  port: 3000
  requests:
    - name: test_post
      method: post
      resource: /api/test
      hash: hash_location
      content: application/vnd.api+json
      headers:
        Accept-Language: en-US,en;q=0.8
        User-Agent: Mozilla/5.0 Firefox/50.0
      params:
        param1: value1
        param2: 2
      form:
        field: value
      body:
        prop1a: val1a
        prop1b:
          prop2a: val2a
          prop2b:
            prop3a: val3a
            prop3b: [1, 2, 3]
`
	nodes, err := Parse([]byte(input), "requests.yml")
	require.NoError(t, err)
	require.Len(t, nodes, 1)

	root := nodes[0]
	assert.Equal(t, "https", *root.Scheme)
	assert.Equal(t, uint16(3000), *root.Port)
	assert.Equal(t, uint64(15), *root.Timeout)

	req := root.Requests[0]
	assert.Equal(t, "post", *req.Method)
	assert.Equal(t, "/api/test", *req.Resource)
	assert.Equal(t, "hash_location", *req.Hash)
	assert.Equal(t, "application/vnd.api+json", *req.Content)
	assert.Equal(t, map[string]string{
		"Accept-Language": "en-US,en;q=0.8",
		"User-Agent":      "Mozilla/5.0 Firefox/50.0",
	}, req.Headers)
	assert.Equal(t, map[string]string{"param1": "value1", "param2": "2"}, req.Params)
	assert.Equal(t, map[string]string{"field": "value"}, req.Form)

	expectedBody := map[string]any{
		"prop1a": "val1a",
		"prop1b": map[string]any{
			"prop2a": "val2a",
			"prop2b": map[string]any{
				"prop3a": "val3a",
				"prop3b": []any{1, 2, 3},
			},
		},
	}
	assert.Equal(t, expectedBody, req.Body)
}

func TestParse_Auth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Auth
	}{
		{
			name: "basic mapping",
			input: `
- name: basic
  auth:
    basic:
      username: name
      password: p4ssw0rd
`,
			expected: BasicAuth("name", "p4ssw0rd"),
		},
		{
			name: "bearer mapping",
			input: `
- name: bearer
  auth:
    bearer:
      token: abcd1234
`,
			expected: BearerAuth("abcd1234"),
		},
		{
			name: "basic tag",
			input: `
- name: basic
  auth: !basic
    username: name
    password: p4ssw0rd
`,
			expected: BasicAuth("name", "p4ssw0rd"),
		},
		{
			name: "bearer tag",
			input: `
- name: bearer
  auth: !bearer {token: abcd1234}
`,
			expected: BearerAuth("abcd1234"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := Parse([]byte(tt.input), "")
			require.NoError(t, err)
			require.Len(t, nodes, 1)
			assert.Equal(t, tt.expected, nodes[0].Auth)
		})
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		problem string
	}{
		{
			name:  "not yaml",
			input: "- name: [unclosed",
		},
		{
			name:    "top level mapping",
			input:   "name: ping",
			problem: "(root)",
		},
		{
			name: "port out of range",
			input: `
- name: ping
  port: 70000
`,
			problem: "port",
		},
		{
			name: "timeout beyond duration range",
			input: `
- name: ping
  timeout: 9223372037
`,
			problem: "timeout",
		},
		{
			name: "headers must be scalars",
			input: `
- name: ping
  headers:
    X-Nested:
      a: b
`,
			problem: "headers",
		},
		{
			name: "unknown auth type",
			input: `
- name: ping
  auth:
    digest:
      username: a
`,
			problem: "auth",
		},
		{
			name: "basic auth missing password",
			input: `
- name: ping
  auth:
    basic:
      username: a
`,
			problem: "auth",
		},
		{
			name: "requests must be a list",
			input: `
- host: localhost
  requests:
    name: ping
`,
			problem: "requests",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "requests.yml")
			require.Error(t, err)

			var syntaxErr *ConfigSyntaxError
			require.True(t, errors.As(err, &syntaxErr), "expected ConfigSyntaxError, got %T", err)
			assert.Equal(t, "requests.yml", syntaxErr.File)
			if tt.problem != "" {
				assert.Contains(t, err.Error(), tt.problem)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	nodes, err := Parse([]byte(""), "requests.yml")
	require.NoError(t, err)
	assert.Empty(t, nodes)

	nodes, err = Parse([]byte("# only a comment\n"), "requests.yml")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestParseFile(t *testing.T) {
	t.Run("reads file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "requests.yml")
		require.NoError(t, os.WriteFile(path, []byte("- name: ping\n  resource: /api\n"), 0644))

		nodes, err := ParseFile(path)
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "/api", *nodes[0].Resource)
	})

	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.yml")

		_, err := ParseFile(path)
		require.Error(t, err)

		var readErr *ConfigReadError
		require.True(t, errors.As(err, &readErr))
		assert.Equal(t, path, readErr.Path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestNode_HasChildren(t *testing.T) {
	assert.False(t, (&Node{}).HasChildren())
	assert.False(t, (&Node{Requests: []*Node{}}).HasChildren())
	assert.True(t, (&Node{Requests: []*Node{{}}}).HasChildren())
}

func TestMarshal_ParsesBack(t *testing.T) {
	str := func(s string) *string { return &s }
	port := uint16(7878)

	tree := []*Node{{
		Host: str("localhost"),
		Port: &port,
		Requests: []*Node{
			{Name: str("ping"), Resource: str("/api")},
			{Name: str("login"), Resource: str("/login"), Method: str("post"), Auth: BasicAuth("name", "p4ssw0rd")},
			{Name: str("me"), Resource: str("/me"), Auth: BearerAuth("abcd1234")},
		},
	}}

	data, err := yaml.Marshal(tree)
	require.NoError(t, err)
	assert.Contains(t, string(data), "basic:")
	assert.NotContains(t, string(data), "scheme:")

	nodes, err := Parse(data, "requests.yml")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Requests, 3)
	assert.Equal(t, uint16(7878), *nodes[0].Port)
	assert.Equal(t, BasicAuth("name", "p4ssw0rd"), nodes[0].Requests[1].Auth)
	assert.Equal(t, BearerAuth("abcd1234"), nodes[0].Requests[2].Auth)
}
