package env

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/nixpig/corkscrew/packages/builtin"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Expander replaces {{...}} placeholders in request attributes. A
// placeholder names a variable, a process environment variable ($NAME) or a
// builtin call (uuid()). Placeholders that cannot be resolved are kept
// verbatim.
type Expander struct {
	mu        sync.RWMutex
	variables map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewExpander() *Expander {
	return &Expander{
		variables: make(map[string]string),
		funcs:     builtin.NewRegistry(),
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (e *Expander) SetWarnFunc(fn WarnFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warnFunc = fn
}

func (e *Expander) warn(format string, args ...any) {
	e.mu.RLock()
	fn := e.warnFunc
	e.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (e *Expander) SetVariables(vars map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range vars {
		e.variables[k] = v
	}
}

func (e *Expander) SetVariable(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables[name] = value
}

func (e *Expander) Variable(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.variables[name]
	return v, ok
}

// Expand resolves every placeholder in input.
func (e *Expander) Expand(input string) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if name, ok := strings.CutPrefix(expr, "$"); ok {
			if val, found := os.LookupEnv(name); found {
				return val
			}
			e.warn("unresolved environment variable: $%s", name)
			return match
		}

		if builtin.IsCall(expr) {
			result, ok, err := e.funcs.Call(expr)
			if err != nil {
				e.warn("function call %s failed: %v", expr, err)
				return match
			}
			if ok {
				return result
			}
			e.warn("unresolved function call: %s (available: %s)", expr, strings.Join(e.funcs.Names(), ", "))
			return match
		}

		if val, ok := e.Variable(expr); ok {
			return val
		}

		e.warn("unresolved variable: %s", expr)
		return match
	})
}

// Unresolved lists the variable placeholders in input that have no value,
// in order of appearance. Environment and function placeholders are not
// inspected.
func (e *Expander) Unresolved(input string) []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if strings.HasPrefix(expr, "$") || builtin.IsCall(expr) {
			continue
		}
		if _, ok := e.Variable(expr); !ok {
			names = append(names, expr)
		}
	}
	return names
}
