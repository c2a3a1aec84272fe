// Package funcs is the process-wide registry of functions, filters, and
// tests. Every entry shares one calling convention, `func(args value.Value)
// value.Value`, where args is always an Object with an `args` positional
// Array and a `kw` named Object.
package funcs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/twigo-lang/twigo/value"
)

// Callable is the uniform shape every function, filter, and test exposes.
type Callable func(args value.Value) value.Value

// CallError reports that a built-in was invoked with arguments it could
// not bind or validate: a missing required parameter, or a parameter
// whose value is out of range for what the built-in does with it.
// Built-ins panic with a CallError rather than returning a zero value, so
// the failure reaches the caller as an error instead of silently
// producing empty output.
type CallError struct {
	Msg string
}

func (e *CallError) Error() string { return e.Msg }

// panicArgError panics with a CallError built from format/args. Built-ins
// call this in place of returning early when Bind fails or an argument
// fails its own validation.
func panicArgError(format string, args ...interface{}) {
	panic(&CallError{Msg: fmt.Sprintf(format, args...)})
}

// Param declares one entry of a callable's parameter list. Optional marks
// the parameter as optional; Default supplies its value when omitted.
type Param struct {
	Name     string
	Optional bool
	Default  value.Value
}

// Registry holds named callables in three independent namespaces:
// functions, filters, and tests (the `is` operator's right-hand side).
// A single process normally has one Registry (see DefaultRegistry), but
// the Engine may hold a private one to sandbox registrations.
type Registry struct {
	mu      sync.RWMutex
	funcs   map[string]Callable
	filters map[string]Callable
	tests   map[string]Callable
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs:   map[string]Callable{},
		filters: map[string]Callable{},
		tests:   map[string]Callable{},
	}
}

func (r *Registry) RegisterFunction(name string, fn Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *Registry) RegisterFilter(name string, fn Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
}

func (r *Registry) RegisterTest(name string, fn Callable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[name] = fn
}

func (r *Registry) lookup(tbl map[string]Callable, name string) (Callable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := tbl[name]
	return fn, ok
}

func (r *Registry) Function(name string) (Callable, bool) { return r.lookup(r.funcs, name) }
func (r *Registry) Filter(name string) (Callable, bool)    { return r.lookup(r.filters, name) }
func (r *Registry) Test(name string) (Callable, bool)      { return r.lookup(r.tests, name) }

// CallFunction looks up and invokes a function, returning an error if no
// function is registered under name or if the call panics with a
// CallError.
func (r *Registry) CallFunction(name string, args value.Value) (value.Value, error) {
	fn, ok := r.Function(name)
	if !ok {
		return value.Undefined(), fmt.Errorf("unknown function or filter: %s", name)
	}
	return callSafely(fn, args)
}

func (r *Registry) CallFilter(name string, args value.Value) (value.Value, error) {
	fn, ok := r.Filter(name)
	if !ok {
		return value.Undefined(), fmt.Errorf("unknown function or filter: %s", name)
	}
	return callSafely(fn, args)
}

func (r *Registry) CallTest(name string, args value.Value) (value.Value, error) {
	fn, ok := r.Test(name)
	if !ok {
		return value.Undefined(), fmt.Errorf("unknown function or filter: %s", name)
	}
	return callSafely(fn, args)
}

// callSafely invokes fn, turning a CallError panic into a returned error.
// Anything else (a runtime.Error, or a panic of unknown shape) propagates
// unchanged, since that's a genuine bug rather than a bad template call.
func callSafely(fn Callable, args value.Value) (result value.Value, err error) {
	defer func() {
		if e := recover(); e != nil {
			if ce, ok := e.(*CallError); ok {
				result, err = value.Undefined(), ce
				return
			}
			panic(e)
		}
	}()
	return fn(args), nil
}

// FunctionNames and friends list the registered names of each namespace in
// sorted order, for introspection by embedders.
func (r *Registry) FunctionNames() []string { return sortedKeys(r.funcs, &r.mu) }
func (r *Registry) FilterNames() []string   { return sortedKeys(r.filters, &r.mu) }
func (r *Registry) TestNames() []string     { return sortedKeys(r.tests, &r.mu) }

func sortedKeys(m map[string]Callable, mu *sync.RWMutex) []string {
	mu.RLock()
	defer mu.RUnlock()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bind resolves a declared parameter list against a call-site args Object
// (the `{args,kw}` convention), binding positional args first, then
// filling any still-unset parameters from kw, then defaults. It returns a
// value.Object keyed by parameter name, or an error naming the first
// missing required parameter.
func Bind(params []Param, args value.Value) (value.Value, error) {
	positional := args.Key("args")
	kw := args.Key("kw")

	bound := map[string]value.Value{}
	n := positional.Length()
	for i, p := range params {
		if i < n {
			bound[p.Name] = positional.Index(i)
			continue
		}
		if v := kw.Key(p.Name); !v.IsUndefined() {
			bound[p.Name] = v
			continue
		}
		if p.Optional {
			bound[p.Name] = p.Default
			continue
		}
		return value.Undefined(), fmt.Errorf("function call missing required argument %q", p.Name)
	}
	return value.Object(bound), nil
}

// Args builds the `{args,kw}` convention Value from a Go-side call,
// letting builtins in this package call each other without going through
// the AST evaluator.
func Args(positional ...value.Value) value.Value {
	return value.Object(map[string]value.Value{
		"args": value.Array(positional),
		"kw":   value.Object(nil),
	})
}

// ArgsKw is Args plus named keyword arguments.
func ArgsKw(kw map[string]value.Value, positional ...value.Value) value.Value {
	return value.Object(map[string]value.Value{
		"args": value.Array(positional),
		"kw":   value.Object(kw),
	})
}

// DefaultRegistry is pre-populated by RegisterBuiltins in builtins.go. The
// Engine (gotwig.go) forks a private Registry seeded from this one so that
// per-Engine RegisterFunction calls never leak across engines.
var DefaultRegistry = NewRegistry()

func init() {
	RegisterBuiltins(DefaultRegistry)
}

// Clone returns a new Registry with the same entries, used by Engine to
// give each instance an independent, mutable copy of the built-in set.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := NewRegistry()
	for k, v := range r.funcs {
		c.funcs[k] = v
	}
	for k, v := range r.filters {
		c.filters[k] = v
	}
	for k, v := range r.tests {
		c.tests[k] = v
	}
	return c
}
