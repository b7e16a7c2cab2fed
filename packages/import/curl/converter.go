// Package curl converts curl command lines into request tree nodes.
package curl

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/nixpig/corkscrew/packages/core/parser"
	"github.com/nixpig/corkscrew/packages/http"
	"gopkg.in/yaml.v3"
)

// Converter converts curl commands to request tree nodes.
type Converter struct {
	group bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithGrouping configures whether requests to the same origin are nested
// under one parent node that carries the scheme, host and port.
func WithGrouping(group bool) Option {
	return func(c *Converter) {
		c.group = group
	}
}

// NewConverter creates a new curl converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		group: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl represents a parsed curl command.
type ParsedCurl struct {
	Method    string
	URL       string
	Headers   map[string]string
	Data      string
	BasicAuth string
	Name      string
}

// ConvertCommand converts a single curl command.
func (c *Converter) ConvertCommand(curlCmd string) (*parser.Node, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return nil, err
	}
	return c.ToNode(parsed)
}

// ConvertFile converts a file of curl commands, one per line with
// backslash continuations.
func (c *Converter) ConvertFile(path string) ([]*parser.Node, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	commands, err := ReadCommands(file)
	if err != nil {
		return nil, err
	}
	return c.Convert(commands)
}

// Convert converts commands in order. Duplicate names get a numeric suffix.
func (c *Converter) Convert(commands []string) ([]*parser.Node, error) {
	var nodes []*parser.Node
	seen := make(map[string]int)

	for i, cmd := range commands {
		node, err := c.ConvertCommand(cmd)
		if err != nil {
			return nil, fmt.Errorf("failed to convert command %d: %w", i+1, err)
		}

		name := *node.Name
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
			node.Name = &name
		}

		nodes = append(nodes, node)
	}

	if c.group {
		nodes = groupByOrigin(nodes)
	}
	return nodes, nil
}

// ReadCommands splits r into curl commands, skipping blank lines and
// # comments.
func ReadCommands(r io.Reader) ([]string, error) {
	var commands []string
	var currentCmd strings.Builder
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Handle line continuations
		if strings.HasSuffix(line, "\\") {
			currentCmd.WriteString(strings.TrimSuffix(line, "\\"))
			currentCmd.WriteString(" ")
			continue
		}

		currentCmd.WriteString(line)
		commands = append(commands, currentCmd.String())
		currentCmd.Reset()
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}

	if currentCmd.Len() > 0 {
		commands = append(commands, currentCmd.String())
	}

	return commands, nil
}

// Marshal encodes nodes as a request file.
func Marshal(nodes []*parser.Node) ([]byte, error) {
	data, err := yaml.Marshal(nodes)
	if err != nil {
		return nil, err
	}
	return append([]byte("# Generated from curl commands\n"), data...), nil
}

// Parse parses a curl command string into a ParsedCurl struct.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{
		Method:  "GET",
		Headers: make(map[string]string),
	}

	curlCmd = strings.TrimSpace(curlCmd)

	if strings.HasPrefix(curlCmd, "curl ") {
		curlCmd = strings.TrimPrefix(curlCmd, "curl ")
	} else if curlCmd == "curl" {
		return nil, fmt.Errorf("no URL specified")
	}

	tokens := tokenize(curlCmd)

	value := func(i int) (string, error) {
		if i+1 < len(tokens) {
			return tokens[i+1], nil
		}
		return "", fmt.Errorf("missing value for %s", tokens[i])
	}

	i := 0
	for i < len(tokens) {
		token := tokens[i]

		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Method = strings.ToUpper(v)
			i += 2

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if key, val, ok := strings.Cut(v, ":"); ok {
				parsed.Headers[strings.TrimSpace(key)] = strings.TrimSpace(val)
			}
			i += 2

		case "-d", "--data", "--data-raw", "--data-binary":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if parsed.Data != "" {
				parsed.Data += "&"
			}
			parsed.Data += v
			// curl switches to POST when data is sent
			if parsed.Method == "GET" {
				parsed.Method = "POST"
			}
			i += 2

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.BasicAuth = v
			i += 2

		case "-A", "--user-agent":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Headers["User-Agent"] = v
			i += 2

		case "-e", "--referer":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Headers["Referer"] = v
			i += 2

		case "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Headers["Cookie"] = v
			i += 2

		case "-k", "--insecure", "-L", "--location", "-s", "--silent", "-v", "--verbose", "-i", "--include", "--compressed":
			i++

		default:
			if strings.HasPrefix(token, "-") {
				// Skip unknown flags with potential values
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i += 2
				} else {
					i++
				}
				continue
			}
			if parsed.URL == "" && isURL(token) {
				parsed.URL = token
			}
			i++
		}
	}

	if parsed.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}

	parsed.Name = generateName(parsed.URL, parsed.Method)

	return parsed, nil
}

// ToNode converts a ParsedCurl to a request node. JSON data becomes body,
// anything else is read as form fields, as curl sends it.
func (c *Converter) ToNode(parsed *ParsedCurl) (*parser.Node, error) {
	method := strings.ToLower(parsed.Method)
	if _, ok := http.LookupMethod(method); !ok {
		return nil, fmt.Errorf("method %s is not supported", parsed.Method)
	}

	u, err := url.Parse(parsed.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", parsed.URL, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL %q has no host", parsed.URL)
	}

	name := sanitizeName(parsed.Name)
	host := u.Hostname()
	resource := u.EscapedPath()
	if resource == "" {
		resource = "/"
	}

	node := &parser.Node{
		Name:     &name,
		Host:     &host,
		Resource: &resource,
	}

	if u.Scheme != "" && u.Scheme != http.DefaultScheme {
		scheme := u.Scheme
		node.Scheme = &scheme
	}

	if p := u.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", p, err)
		}
		v := uint16(port)
		node.Port = &v
	}

	if method != "get" {
		node.Method = &method
	}

	if u.Fragment != "" {
		hash := u.Fragment
		node.Hash = &hash
	}

	if q := u.Query(); len(q) > 0 {
		node.Params = firstValues(q)
	}

	headers := make(map[string]string, len(parsed.Headers))
	for k, v := range parsed.Headers {
		headers[k] = v
	}

	if authz, ok := headers["Authorization"]; ok {
		if token, found := strings.CutPrefix(authz, "Bearer "); found {
			node.Auth = parser.BearerAuth(token)
			delete(headers, "Authorization")
		}
	}

	if parsed.BasicAuth != "" {
		username, password, _ := strings.Cut(parsed.BasicAuth, ":")
		node.Auth = parser.BasicAuth(username, password)
	}

	if parsed.Data != "" {
		var body any
		if isJSON(parsed.Data) && yaml.Unmarshal([]byte(parsed.Data), &body) == nil {
			node.Body = body
		} else {
			form, err := url.ParseQuery(parsed.Data)
			if err != nil {
				return nil, fmt.Errorf("cannot read data as form fields: %w", err)
			}
			node.Form = firstValues(form)
		}

		if ct, ok := headers["Content-Type"]; ok {
			if ct != http.ContentTypeJSON && ct != http.ContentTypeForm {
				node.Content = &ct
			}
			delete(headers, "Content-Type")
		}
	}

	if len(headers) > 0 {
		node.Headers = headers
	}

	return node, nil
}

// groupByOrigin nests nodes sharing scheme, host and port under one parent,
// in order of first appearance.
func groupByOrigin(nodes []*parser.Node) []*parser.Node {
	var groups []*parser.Node
	index := make(map[string]*parser.Node)

	for _, n := range nodes {
		key := origin(n)
		parent, ok := index[key]
		if !ok {
			parent = &parser.Node{Host: n.Host, Scheme: n.Scheme, Port: n.Port}
			index[key] = parent
			groups = append(groups, parent)
		}

		n.Host, n.Scheme, n.Port = nil, nil, nil
		parent.Requests = append(parent.Requests, n)
	}

	return groups
}

func origin(n *parser.Node) string {
	scheme := http.DefaultScheme
	if n.Scheme != nil {
		scheme = *n.Scheme
	}
	port := ""
	if n.Port != nil {
		port = strconv.Itoa(int(*n.Port))
	}
	return scheme + "://" + *n.Host + ":" + port
}

func firstValues(values url.Values) map[string]string {
	m := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			m[k] = v[0]
		}
	}
	return m
}

func isJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// tokenize splits a curl command into tokens, respecting quotes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

var urlPathPattern = regexp.MustCompile(`https?://[^/]+(/[^?#]*)?`)

// generateName derives a request name from the method and URL path.
func generateName(url, method string) string {
	matches := urlPathPattern.FindStringSubmatch(url)

	path := "/"
	if len(matches) > 1 && matches[1] != "" {
		path = matches[1]
	}

	path = strings.Trim(path, "/")
	if path == "" {
		path = "root"
	}

	path = strings.ReplaceAll(path, "/", "_")
	path = strings.ReplaceAll(path, "-", "_")

	return strings.ToLower(method) + "_" + path
}

var nonIdentPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// sanitizeName reduces a name to letters, digits and single underscores.
func sanitizeName(name string) string {
	result := nonIdentPattern.ReplaceAllString(name, "_")
	return strings.Trim(result, "_")
}
