package twigo

import (
	"github.com/twigo-lang/twigo/ast"
	"github.com/twigo-lang/twigo/cache"
	"github.com/twigo-lang/twigo/errortypes"
	"github.com/twigo-lang/twigo/exec"
	"github.com/twigo-lang/twigo/funcs"
	"github.com/twigo-lang/twigo/loader"
	"github.com/twigo-lang/twigo/parse"
	"github.com/twigo-lang/twigo/value"
)

// Engine is one independent rendering environment: its own function
// registry (seeded from funcs.DefaultRegistry so per-Engine registrations
// never leak to other engines), its own compilation cache, and a single
// Loader for resolving template keys.
type Engine struct {
	loader   loader.Loader
	cache    *cache.Cache
	registry *funcs.Registry
	debug    bool
	caching  bool
}

// NewEngine returns a ready-to-use Engine backed by l, with caching on by
// default so each key compiles once and is shared across renders.
func NewEngine(l loader.Loader) *Engine {
	return &Engine{
		loader:   l,
		cache:    cache.New(),
		registry: funcs.DefaultRegistry.Clone(),
		caching:  true,
	}
}

// SetDebug sets the debug flag that the engine copies into each render's
// exec.Context.Debug. Rendering output and the errors returned are the same
// whether it is on or off.
func (e *Engine) SetDebug(debug bool) { e.debug = debug }

// SetCaching toggles whether compiled documents are cached across Render
// calls. Disabling it is useful for development/watch workflows that
// already take care of invalidation, or single-shot tools.
func (e *Engine) SetCaching(caching bool) { e.caching = caching }

// RegisterFunction installs or replaces a global function.
func (e *Engine) RegisterFunction(name string, fn funcs.Callable) { e.registry.RegisterFunction(name, fn) }

// RegisterFilter installs or replaces a filter.
func (e *Engine) RegisterFilter(name string, fn funcs.Callable) { e.registry.RegisterFilter(name, fn) }

// RegisterTest installs or replaces an `is` test.
func (e *Engine) RegisterTest(name string, fn funcs.Callable) { e.registry.RegisterTest(name, fn) }

// Registry exposes the engine's function registry directly, for callers
// that want to inspect or bulk-register.
func (e *Engine) Registry() *funcs.Registry { return e.registry }

// Compile resolves and parses key, honoring the cache when enabled. It
// implements exec.DocumentProvider, so the evaluator can compile
// extends/include/import targets through the same engine.
func (e *Engine) Compile(key string) (*ast.Document, error) {
	compileFn := func() (*ast.Document, error) {
		src, err := e.loader.Load(key)
		if err != nil {
			return nil, errortypes.NewLoadError(key, err)
		}
		return parse.Parse(key, src)
	}
	if !e.caching {
		return compileFn()
	}
	return e.cache.Fetch(key, compileFn)
}

// Render loads, compiles, and evaluates the template under key against
// context, returning the rendered output.
func (e *Engine) Render(key string, context value.Value) (string, error) {
	doc, err := e.Compile(key)
	if err != nil {
		return "", err
	}
	return e.render(doc, context)
}

// RenderString compiles src directly, bypassing the loader and the
// compilation cache entirely (useful for one-off snippets).
func (e *Engine) RenderString(src string, context value.Value) (string, error) {
	doc, err := parse.Parse("<string>", src)
	if err != nil {
		return "", err
	}
	return e.render(doc, context)
}

func (e *Engine) render(doc *ast.Document, context value.Value) (string, error) {
	if !context.IsObject() {
		context = value.NewObject()
	}
	scope := exec.NewScope(nil)
	for k, v := range context.Map() {
		scope.Set(k, v)
	}
	ctx := &exec.Context{
		DocKey:   doc.Key,
		Scope:    scope,
		Registry: e.registry,
		Provider: e,
		Escape:   "html",
		Debug:    e.debug,
	}
	return exec.RenderDocument(doc, ctx)
}

// InvalidateCache drops a single key, forcing recompilation on its next
// use. Embedders pairing an Engine with a loader.Watcher call this (or
// let the watcher call the underlying cache directly).
func (e *Engine) InvalidateCache(key string) { e.cache.Invalidate(key) }

// Cache exposes the engine's compilation cache, e.g. so a loader.Watcher
// can be constructed against it.
func (e *Engine) Cache() *cache.Cache { return e.cache }
