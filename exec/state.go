// Package exec is the render-time evaluator: a recursive interpreter
// over the ast node tree, implementing expression and control-flow
// semantics on top of the value and funcs packages.
package exec

import (
	"github.com/twigo-lang/twigo/ast"
	"github.com/twigo-lang/twigo/funcs"
	"github.com/twigo-lang/twigo/value"
)

// Scope is one link of the variable-lookup chain: `if`, `for`, `with`,
// macro invocation, and blocks each introduce a child scope so bindings
// made inside their bodies (including by `set`) fall out of view once the
// body finishes.
type Scope struct {
	vars   map[string]value.Value
	parent *Scope
}

// NewScope returns a child scope chained to parent (nil for the root).
func NewScope(parent *Scope) *Scope {
	return &Scope{vars: map[string]value.Value{}, parent: parent}
}

// Get walks the chain outward, returning Undefined on a total miss.
func (s *Scope) Get(name string) value.Value {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v
		}
	}
	return value.Undefined()
}

// Set binds name in this scope only, shadowing any outer binding.
func (s *Scope) Set(name string, v value.Value) {
	s.vars[name] = v
}

// DocumentProvider compiles a template key to a Document, caching as it
// sees fit. Implemented by the Engine (gotwig.go); kept as an interface
// here so exec never depends on loader/cache directly.
type DocumentProvider interface {
	Compile(key string) (*ast.Document, error)
}

// Context is one evaluation's mutable state: current scope, the global
// function/filter/test registry, the document provider for
// include/extends/import, the active autoescape mode, and the named-block
// override set established by the current extends/embed chain.
type Context struct {
	DocKey    string
	Scope     *Scope
	Registry  *funcs.Registry
	Provider  DocumentProvider
	Escape    string // "" disables escaping; "html" is the default mode
	Overrides map[string]*ast.BlockNode
	Debug     bool
	// SelfDoc is the document currently being rendered, used by
	// `import self as NS`.
	SelfDoc *ast.Document
}

// Child returns a new Context sharing everything except the scope, which
// becomes a fresh child of the current one.
func (c *Context) Child() *Context {
	child := *c
	child.Scope = NewScope(c.Scope)
	return &child
}

// WithOverrides returns a copy of c with a replaced override set, used
// when descending an extends/embed chain.
func (c *Context) WithOverrides(overrides map[string]*ast.BlockNode) *Context {
	child := *c
	child.Overrides = overrides
	return &child
}
