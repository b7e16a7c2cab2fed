package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node is a single entry of the request tree. Every attribute is optional;
// unset attributes are inherited from the nearest ancestor that sets them.
type Node struct {
	Name     *string           `yaml:"name,omitempty"`
	Host     *string           `yaml:"host,omitempty"`
	Scheme   *string           `yaml:"scheme,omitempty"`
	Port     *uint16           `yaml:"port,omitempty"`
	Timeout  *uint64           `yaml:"timeout,omitempty"` // seconds
	Resource *string           `yaml:"resource,omitempty"`
	Method   *string           `yaml:"method,omitempty"`
	Hash     *string           `yaml:"hash,omitempty"`
	Params   map[string]string `yaml:"params,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Auth     *Auth             `yaml:"auth,omitempty"`
	Content  *string           `yaml:"content,omitempty"`
	Body     any               `yaml:"body,omitempty"`
	Form     map[string]string `yaml:"form,omitempty"`
	Requests []*Node           `yaml:"requests,omitempty"`
}

// HasChildren reports whether the node delegates to at least one child.
func (n *Node) HasChildren() bool {
	return len(n.Requests) > 0
}

type AuthType string

const (
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
)

// Auth is either basic credentials or a bearer token.
type Auth struct {
	Type     AuthType
	Username string
	Password string
	Token    string
}

func BasicAuth(username, password string) *Auth {
	return &Auth{Type: AuthBasic, Username: username, Password: password}
}

func BearerAuth(token string) *Auth {
	return &Auth{Type: AuthBearer, Token: token}
}

type basicFields struct {
	Username *string `yaml:"username"`
	Password *string `yaml:"password"`
}

type bearerFields struct {
	Token *string `yaml:"token"`
}

// UnmarshalYAML accepts both the mapping form
//
//	auth:
//	  basic: {username: name, password: secret}
//
// and the tagged form
//
//	auth: !bearer {token: abcd1234}
func (a *Auth) UnmarshalYAML(value *yaml.Node) error {
	if tag := strings.TrimPrefix(value.Tag, "!"); tag == string(AuthBasic) || tag == string(AuthBearer) {
		return a.decodeVariant(AuthType(tag), value)
	}

	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: auth must be a mapping with a basic or bearer key", value.Line)
	}
	if len(value.Content) != 2 {
		return fmt.Errorf("line %d: auth must contain exactly one of basic or bearer", value.Line)
	}

	key, body := value.Content[0], value.Content[1]
	switch AuthType(key.Value) {
	case AuthBasic, AuthBearer:
		return a.decodeVariant(AuthType(key.Value), body)
	default:
		return fmt.Errorf("line %d: unknown auth type %q (expected basic or bearer)", key.Line, key.Value)
	}
}

func (a *Auth) decodeVariant(t AuthType, value *yaml.Node) error {
	switch t {
	case AuthBasic:
		var f basicFields
		if err := value.Decode(&f); err != nil {
			return err
		}
		if f.Username == nil || f.Password == nil {
			return fmt.Errorf("line %d: basic auth requires username and password", value.Line)
		}
		*a = Auth{Type: AuthBasic, Username: *f.Username, Password: *f.Password}
	case AuthBearer:
		var f bearerFields
		if err := value.Decode(&f); err != nil {
			return err
		}
		if f.Token == nil {
			return fmt.Errorf("line %d: bearer auth requires token", value.Line)
		}
		*a = Auth{Type: AuthBearer, Token: *f.Token}
	}
	return nil
}

// MarshalYAML writes the mapping form.
func (a Auth) MarshalYAML() (any, error) {
	switch a.Type {
	case AuthBasic:
		return map[string]map[string]string{
			string(AuthBasic): {"username": a.Username, "password": a.Password},
		}, nil
	case AuthBearer:
		return map[string]map[string]string{
			string(AuthBearer): {"token": a.Token},
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", a.Type)
	}
}

// ConfigReadError is returned when the request file cannot be read.
type ConfigReadError struct {
	Path string
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("cannot read request file %s: %v", e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error {
	return e.Err
}

// ConfigSyntaxError is returned when the request file is not a valid
// request tree. Problems holds one entry per schema violation.
type ConfigSyntaxError struct {
	File     string
	Problems []string
	Err      error
}

func (e *ConfigSyntaxError) Error() string {
	var b strings.Builder
	b.WriteString("invalid request file")
	if e.File != "" {
		b.WriteString(" " + e.File)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	for _, p := range e.Problems {
		b.WriteString("\n  - " + p)
	}
	return b.String()
}

func (e *ConfigSyntaxError) Unwrap() error {
	return e.Err
}
