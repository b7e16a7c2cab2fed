package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nixpig/corkscrew/packages/core/parser"
	"github.com/nixpig/corkscrew/packages/core/resolver"
)

const (
	// DefaultRequestTimeout applies when no node in the chain sets a timeout
	DefaultRequestTimeout = 10 * time.Second
	// DefaultScheme applies when no node in the chain sets a scheme
	DefaultScheme = "http"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"

	// MaxTimeoutSeconds is the largest timeout a time.Duration can hold
	MaxTimeoutSeconds = uint64(math.MaxInt64 / int64(time.Second))
)

// Request is a fully materialized request. It is owned by whoever
// dispatches it and is never shared between dispatches.
type Request struct {
	Name        string
	Method      Method
	URL         string
	Headers     map[string]string
	QueryParams map[string]string
	Form        map[string]string
	JSON        any
	Timeout     time.Duration
}

// MissingHostError is returned when neither a record nor any of its
// ancestors sets a host.
type MissingHostError struct {
	Name string
}

func (e *MissingHostError) Error() string {
	return fmt.Sprintf("request %q has no host (set host on the request or one of its parents)", e.Name)
}

type buildOptions struct {
	expand          func(string) string
	basicAuthHeader bool
	unknownMethod   func(name, method string)
}

type BuildOption func(*buildOptions)

// WithExpander runs every string attribute of the record through fn, e.g.
// to interpolate variables.
func WithExpander(fn func(string) string) BuildOption {
	return func(o *buildOptions) {
		if fn != nil {
			o.expand = fn
		}
	}
}

// WithBasicAuthHeader sends basic credentials as an Authorization header
// set at build time instead of URL userinfo. The header then takes part in
// the header replacement rule like a bearer token does.
func WithBasicAuthHeader() BuildOption {
	return func(o *buildOptions) {
		o.basicAuthHeader = true
	}
}

// OnUnknownMethod calls fn with the expanded method of any record whose
// method is not recognised. Such records are sent as GET.
func OnUnknownMethod(fn func(name, method string)) BuildOption {
	return func(o *buildOptions) {
		if fn != nil {
			o.unknownMethod = fn
		}
	}
}

// BuildRequest materializes a resolved record.
func BuildRequest(rec *resolver.Record, opts ...BuildOption) (*Request, error) {
	o := &buildOptions{
		expand:        func(s string) string { return s },
		unknownMethod: func(string, string) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	expand := o.expand

	name := rec.RecordName()
	if rec.Host == nil {
		return nil, &MissingHostError{Name: name}
	}

	r := &Request{
		Name:        name,
		Method:      MethodGet,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
		Timeout:     DefaultRequestTimeout,
	}

	scheme := DefaultScheme
	if rec.Scheme != nil {
		scheme = expand(*rec.Scheme)
	}

	var raw strings.Builder
	raw.WriteString(scheme)
	raw.WriteString("://")
	raw.WriteString(expand(*rec.Host))
	if rec.Port != nil {
		raw.WriteString(":" + strconv.Itoa(int(*rec.Port)))
	}
	if rec.Resource != nil {
		raw.WriteString(expand(*rec.Resource))
	}

	u, err := url.Parse(raw.String())
	if err != nil {
		return nil, fmt.Errorf("request %q: invalid URL: %w", name, err)
	}

	if rec.Auth != nil {
		switch rec.Auth.Type {
		case parser.AuthBasic:
			username, password := expand(rec.Auth.Username), expand(rec.Auth.Password)
			if o.basicAuthHeader {
				r.Headers["Authorization"] = BasicAuthorization(username, password)
			} else {
				u.User = url.UserPassword(username, password)
			}
		case parser.AuthBearer:
			r.Headers["Authorization"] = "Bearer " + expand(rec.Auth.Token)
		}
	}

	if rec.Hash != nil {
		u.Fragment = expand(*rec.Hash)
	}
	r.URL = u.String()

	if rec.Headers != nil {
		r.Headers = expandMap(rec.Headers, expand)
	}

	if rec.Method != nil {
		method := expand(*rec.Method)
		m, ok := LookupMethod(method)
		if !ok {
			o.unknownMethod(name, method)
		}
		r.Method = m
	}

	for k, v := range rec.Params {
		r.QueryParams[k] = expand(v)
	}

	contentType := ContentTypeJSON
	if len(rec.Form) > 0 {
		r.Form = expandMap(rec.Form, expand)
		contentType = ContentTypeForm
	} else {
		r.JSON = expandValue(rec.Body, expand)
	}
	if rec.Content != nil {
		contentType = expand(*rec.Content)
	}
	if r.Header("Content-Type") == "" {
		r.Headers["Content-Type"] = contentType
	}

	if rec.Timeout != nil {
		r.Timeout = time.Duration(min(*rec.Timeout, MaxTimeoutSeconds)) * time.Second
	}

	return r, nil
}

// BasicAuthorization returns the Authorization header value for basic
// credentials.
func BasicAuthorization(username, password string) string {
	creds := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// IsForm reports whether the payload is form encoded rather than JSON.
func (r *Request) IsForm() bool {
	return len(r.Form) > 0
}

// Header looks up a header case-insensitively.
func (r *Request) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// BuildURL returns the request URL with the query parameters encoded into
// its query component.
func (r *Request) BuildURL() string {
	if len(r.QueryParams) == 0 {
		return r.URL
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Payload encodes the request body. A request without form fields always
// carries JSON, which is the literal null when no body was configured.
func (r *Request) Payload() (io.Reader, error) {
	if r.IsForm() {
		values := url.Values{}
		for k, v := range r.Form {
			values.Set(k, v)
		}
		return strings.NewReader(values.Encode()), nil
	}

	data, err := json.Marshal(r.JSON)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON body: %w", err)
	}
	return bytes.NewReader(data), nil
}

func expandMap(m map[string]string, expand func(string) string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = expand(v)
	}
	return out
}

// expandValue copies a JSON value, expanding its string leaves.
func expandValue(v any, expand func(string) string) any {
	switch val := v.(type) {
	case string:
		return expand(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = expandValue(item, expand)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = expandValue(item, expand)
		}
		return out
	default:
		return v
	}
}
