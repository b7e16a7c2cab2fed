package resolver

import (
	"github.com/nixpig/corkscrew/packages/core/parser"
)

// Record is a node after inheritance. Nil fields were set neither on the
// node nor on any of its ancestors. Records are never modified after they
// are built.
type Record struct {
	Name     *string
	Host     *string
	Scheme   *string
	Port     *uint16
	Timeout  *uint64
	Resource *string
	Method   *string
	Hash     *string
	Params   map[string]string
	Headers  map[string]string
	Auth     *parser.Auth
	Content  *string
	Body     any
	Form     map[string]string
}

// Runnable reports whether the record identifies a request that can be
// dispatched.
func (r *Record) Runnable() bool {
	return r.Name != nil && r.Resource != nil
}

// RecordName returns the record name or an empty string.
func (r *Record) RecordName() string {
	if r.Name == nil {
		return ""
	}
	return *r.Name
}

// merge builds the record for n, falling back to parent for every
// attribute n leaves unset.
func merge(n *parser.Node, parent *Record) *Record {
	return &Record{
		Name:     pick(n.Name, parent.Name),
		Host:     pick(n.Host, parent.Host),
		Scheme:   pick(n.Scheme, parent.Scheme),
		Port:     pick(n.Port, parent.Port),
		Timeout:  pick(n.Timeout, parent.Timeout),
		Resource: pick(n.Resource, parent.Resource),
		Method:   pick(n.Method, parent.Method),
		Hash:     pick(n.Hash, parent.Hash),
		Params:   pickMap(n.Params, parent.Params),
		Headers:  pickMap(n.Headers, parent.Headers),
		Auth:     pick(n.Auth, parent.Auth),
		Content:  pick(n.Content, parent.Content),
		Body:     pickAny(n.Body, parent.Body),
		Form:     pickMap(n.Form, parent.Form),
	}
}

func pick[T any](own, inherited *T) *T {
	if own != nil {
		return own
	}
	return inherited
}

// pickMap treats a present but empty map as set, so a child can clear the
// headers it would otherwise inherit.
func pickMap(own, inherited map[string]string) map[string]string {
	if own != nil {
		return own
	}
	return inherited
}

func pickAny(own, inherited any) any {
	if own != nil {
		return own
	}
	return inherited
}
