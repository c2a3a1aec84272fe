package exec

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/twigo-lang/twigo/ast"
	"github.com/twigo-lang/twigo/errortypes"
	"github.com/twigo-lang/twigo/funcs"
	"github.com/twigo-lang/twigo/value"
)

func runtimeErr(ctx *Context, pos ast.Pos, format string, args ...interface{}) error {
	return &errortypes.RuntimeError{Key: ctx.DocKey, Msg: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------
// Expression evaluation
// ---------------------------------------------------------------------

// EvalExpr evaluates an expression node to a Value.
func EvalExpr(n ast.Node, ctx *Context) (value.Value, error) {
	switch node := n.(type) {
	case *ast.NullNode:
		return value.Null(), nil
	case *ast.BoolNode:
		return value.Bool(node.True), nil
	case *ast.IntNode:
		return value.Int(node.Value), nil
	case *ast.FloatNode:
		return value.Float(node.Value), nil
	case *ast.StringNode:
		return value.String(node.Value), nil
	case *ast.ArrayLiteralNode:
		items := make([]value.Value, len(node.Items))
		for i, it := range node.Items {
			v, err := EvalExpr(it, ctx)
			if err != nil {
				return value.Undefined(), err
			}
			items[i] = v
		}
		return value.Array(items), nil
	case *ast.ObjectLiteralNode:
		m := map[string]value.Value{}
		for i, k := range node.Keys {
			v, err := EvalExpr(node.Values[i], ctx)
			if err != nil {
				return value.Undefined(), err
			}
			m[k] = v
		}
		return value.Object(m), nil
	case *ast.DataRefNode:
		return evalDataRef(node, ctx)
	case *ast.UnaryNode:
		return evalUnary(node, ctx)
	case *ast.BinaryOpNode:
		return evalBinary(node, ctx)
	case *ast.InNode:
		return evalIn(node, ctx)
	case *ast.IsNode:
		return evalIs(node, ctx)
	case *ast.RegexMatchNode:
		return evalRegexMatch(node, ctx)
	case *ast.FilterChainNode:
		return evalFilterChain(node, ctx)
	}
	return value.Undefined(), fmt.Errorf("unsupported expression node %T", n)
}

func evalDataRef(node *ast.DataRefNode, ctx *Context) (value.Value, error) {
	base := ctx.Scope.Get(node.Name)
	for i, acc := range node.Access {
		switch a := acc.(type) {
		case *ast.AttrAccessNode:
			base = base.Key(a.Key)
		case *ast.IndexAccessNode:
			idx, err := EvalExpr(a.Expr, ctx)
			if err != nil {
				return value.Undefined(), err
			}
			if idx.IsNumber() {
				base = base.Index(int(idx.ToInteger()))
			} else {
				base = base.Key(idx.ToString())
			}
		case *ast.CallAccessNode:
			argsVal, err := evalCallArgs(a.Args, ctx)
			if err != nil {
				return value.Undefined(), err
			}
			if base.IsFunction() {
				base = base.Invoke(argsVal)
				continue
			}
			if i == 0 && base.IsUndefined() {
				if ctx.SelfDoc != nil {
					if m, ok := ctx.SelfDoc.Macros[node.Name]; ok {
						base = makeMacroCallable(m, ctx.SelfDoc, ctx).Invoke(argsVal)
						continue
					}
				}
				if fn, ok := ctx.Registry.Function(node.Name); ok {
					base = fn(argsVal)
					continue
				}
				return value.Undefined(), fmt.Errorf("unknown function or filter: %s", node.Name)
			}
			return value.Undefined(), fmt.Errorf("%s is not callable", node.Name)
		}
	}
	return base, nil
}

// evalCallArgs builds the {args, kw} convention Value from a call site's
// argument list. A nil CallArgs (a bare tag name with no parens) yields
// empty args.
func evalCallArgs(args *ast.CallArgs, ctx *Context) (value.Value, error) {
	if args == nil {
		return funcs.Args(), nil
	}
	positional := make([]value.Value, len(args.Positional))
	for i, p := range args.Positional {
		v, err := EvalExpr(p, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		positional[i] = v
	}
	kw := map[string]value.Value{}
	for i, nExpr := range args.Named {
		v, err := EvalExpr(nExpr, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		kw[args.Names[i]] = v
	}
	return funcs.ArgsKw(kw, positional...), nil
}

func evalUnary(node *ast.UnaryNode, ctx *Context) (value.Value, error) {
	v, err := EvalExpr(node.Arg, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	switch node.Op {
	case "-":
		n := v.ToNumber()
		if n.Kind() == value.KindFloat {
			return value.Float(-n.Float()), nil
		}
		return value.Int(-n.Int()), nil
	case "+":
		return v.ToNumber(), nil
	case "!":
		return value.Bool(!v.ToBoolean()), nil
	}
	return value.Undefined(), fmt.Errorf("unknown unary operator %q", node.Op)
}

func evalBinary(node *ast.BinaryOpNode, ctx *Context) (value.Value, error) {
	switch node.Op {
	case "&&":
		l, err := EvalExpr(node.Left, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		if !l.ToBoolean() {
			return value.Bool(false), nil
		}
		r, err := EvalExpr(node.Right, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		return value.Bool(r.ToBoolean()), nil
	case "||":
		l, err := EvalExpr(node.Left, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		if l.ToBoolean() {
			return value.Bool(true), nil
		}
		r, err := EvalExpr(node.Right, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		return value.Bool(r.ToBoolean()), nil
	}

	l, err := EvalExpr(node.Left, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	r, err := EvalExpr(node.Right, ctx)
	if err != nil {
		return value.Undefined(), err
	}

	switch node.Op {
	case "~":
		return value.String(l.ToString() + r.ToString()), nil
	case "+", "-", "*", "/", "%":
		return evalArith(node.Op, l, r), nil
	case "==", "!=", "<", ">", "<=", ">=":
		return evalCompare(node.Op, l, r), nil
	}
	return value.Undefined(), fmt.Errorf("unknown operator %q", node.Op)
}

func evalArith(op string, l, r value.Value) value.Value {
	ln, rn := l.ToNumber(), r.ToNumber()
	if ln.Kind() == value.KindFloat || rn.Kind() == value.KindFloat {
		lf, rf := ln.ToFloat(), rn.ToFloat()
		switch op {
		case "+":
			return value.Float(lf + rf)
		case "-":
			return value.Float(lf - rf)
		case "*":
			return value.Float(lf * rf)
		case "/":
			if rf == 0 {
				return value.Float(0)
			}
			return value.Float(lf / rf)
		case "%":
			if rf == 0 {
				return value.Float(0)
			}
			return value.Float(math.Mod(lf, rf))
		}
	}
	li, ri := ln.Int(), rn.Int()
	switch op {
	case "+":
		return value.Int(li + ri)
	case "-":
		return value.Int(li - ri)
	case "*":
		return value.Int(li * ri)
	case "/":
		if ri == 0 {
			return value.Int(0)
		}
		return value.Int(li / ri)
	case "%":
		if ri == 0 {
			return value.Int(0)
		}
		return value.Int(li % ri)
	}
	return value.Undefined()
}

func evalCompare(op string, l, r value.Value) value.Value {
	switch op {
	case "==":
		return value.Bool(value.Equals(l, r))
	case "!=":
		return value.Bool(!value.Equals(l, r))
	}
	cmp, ok := value.Compare(l, r)
	if !ok {
		return value.Bool(false)
	}
	switch op {
	case "<":
		return value.Bool(cmp < 0)
	case ">":
		return value.Bool(cmp > 0)
	case "<=":
		return value.Bool(cmp <= 0)
	case ">=":
		return value.Bool(cmp >= 0)
	}
	return value.Bool(false)
}

func evalIn(node *ast.InNode, ctx *Context) (value.Value, error) {
	l, err := EvalExpr(node.Left, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	r, err := EvalExpr(node.Right, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	if !r.IsArray() {
		return value.Undefined(), fmt.Errorf("invalid 'in' operand: right side is not an array")
	}
	found := false
	for _, item := range r.Items() {
		if value.Equals(l, item) {
			found = true
			break
		}
	}
	if node.Not {
		found = !found
	}
	return value.Bool(found), nil
}

func evalIs(node *ast.IsNode, ctx *Context) (value.Value, error) {
	l, err := EvalExpr(node.Left, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	argsVal, err := evalCallArgs(node.Args, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	argsVal = prependPositional(argsVal, l)
	fn, ok := ctx.Registry.Test(node.Name)
	if !ok {
		return value.Undefined(), fmt.Errorf("unknown function or filter: %s", node.Name)
	}
	result := fn(argsVal).ToBoolean()
	if node.Not {
		result = !result
	}
	return value.Bool(result), nil
}

func evalRegexMatch(node *ast.RegexMatchNode, ctx *Context) (value.Value, error) {
	l, err := EvalExpr(node.Left, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	re, err := regexp2.Compile(node.Pattern, regexp2.None)
	if err != nil {
		return value.Undefined(), fmt.Errorf("invalid regex %q: %w", node.Pattern, err)
	}
	matched, err := re.MatchString(l.ToString())
	if err != nil {
		return value.Undefined(), fmt.Errorf("regex match failed: %w", err)
	}
	if node.Not {
		matched = !matched
	}
	return value.Bool(matched), nil
}

func evalFilterChain(node *ast.FilterChainNode, ctx *Context) (value.Value, error) {
	cur, err := EvalExpr(node.Base, ctx)
	if err != nil {
		return value.Undefined(), err
	}
	for _, f := range node.Filters {
		argsVal, err := evalCallArgs(f.Args, ctx)
		if err != nil {
			return value.Undefined(), err
		}
		argsVal = prependPositional(argsVal, cur)
		fn, ok := ctx.Registry.Filter(f.Name)
		if !ok {
			return value.Undefined(), fmt.Errorf("unknown function or filter: %s", f.Name)
		}
		cur = fn(argsVal)
	}
	return cur, nil
}

// prependPositional inserts v as the first positional argument of an
// already-built {args,kw} convention Value, used by filters and tests
// whose subject is piped/prepended rather than passed explicitly.
func prependPositional(argsVal value.Value, v value.Value) value.Value {
	pos := append([]value.Value{v}, argsVal.Key("args").Items()...)
	return value.Object(map[string]value.Value{"args": value.Array(pos), "kw": argsVal.Key("kw")})
}

// ---------------------------------------------------------------------
// Content-node rendering
// ---------------------------------------------------------------------

// RenderList renders list into a fresh buffer and returns it as a string.
func RenderList(list *ast.ListNode, ctx *Context) (string, error) {
	var b strings.Builder
	if err := RenderListInto(list, ctx, &b); err != nil {
		return b.String(), err
	}
	return b.String(), nil
}

// RenderListInto renders each node of list into buf in order.
func RenderListInto(list *ast.ListNode, ctx *Context, buf *strings.Builder) error {
	for _, n := range list.Nodes {
		if err := RenderNode(n, ctx, buf); err != nil {
			return err
		}
	}
	return nil
}

// RenderNode renders a single content node into buf.
func RenderNode(n ast.Node, ctx *Context, buf *strings.Builder) error {
	switch node := n.(type) {
	case *ast.ListNode:
		return RenderListInto(node, ctx, buf)
	case *ast.RawTextNode:
		buf.Write(node.Text)
		return nil
	case *ast.PrintNode:
		v, err := EvalExpr(node.Arg, ctx)
		if err != nil {
			return err
		}
		buf.WriteString(applyEscape(v, ctx.Escape))
		return nil
	case *ast.BlockNode:
		return renderBlock(node, ctx, buf)
	case *ast.IfNode:
		return renderIf(node, ctx, buf)
	case *ast.ForNode:
		return renderFor(node, ctx, buf)
	case *ast.FilterNode:
		return renderFilterTag(node, ctx, buf)
	case *ast.ExtendsNode:
		return nil
	case *ast.MacroNode:
		return nil
	case *ast.ImportNode:
		return renderImport(node, ctx)
	case *ast.IncludeNode:
		return renderInclude(node, ctx, buf)
	case *ast.EmbedNode:
		return renderEmbed(node, ctx, buf)
	case *ast.AutoescapeNode:
		return renderAutoescape(node, ctx, buf)
	case *ast.SetNode:
		v, err := EvalExpr(node.Expr, ctx)
		if err != nil {
			return err
		}
		ctx.Scope.Set(node.Name, v)
		return nil
	case *ast.WithNode:
		return renderWith(node, ctx, buf)
	}
	return fmt.Errorf("unsupported content node %T", n)
}

// applyEscape applies the implicit `{{ }}` escaping mode: safe values and
// a disabled mode pass through unchanged.
func applyEscape(v value.Value, mode string) string {
	if v.IsSafe() || mode == "" {
		return v.ToString()
	}
	if mode == "html" {
		return funcs.EscapeHTML(v.ToString())
	}
	return v.ToString()
}

func renderIf(node *ast.IfNode, ctx *Context, buf *strings.Builder) error {
	for _, c := range node.Conds {
		if c.Cond == nil {
			return RenderListInto(c.Body, ctx.Child(), buf)
		}
		v, err := EvalExpr(c.Cond, ctx)
		if err != nil {
			return err
		}
		if v.ToBoolean() {
			return RenderListInto(c.Body, ctx.Child(), buf)
		}
	}
	return nil
}

func renderBlock(node *ast.BlockNode, ctx *Context, buf *strings.Builder) error {
	if ov, ok := ctx.Overrides[node.Name]; ok {
		overrideCtx := ctx.Child()
		overrideCtx.Scope.Set("parent", value.Function(func(value.Value) value.Value {
			s, _ := RenderList(node.Body, ctx.Child())
			return value.SafeString(s)
		}))
		return RenderListInto(ov.Body, overrideCtx, buf)
	}
	return RenderListInto(node.Body, ctx.Child(), buf)
}

func renderFor(node *ast.ForNode, ctx *Context, buf *strings.Builder) error {
	items, err := filterForItems(node, ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		if node.Else != nil {
			return RenderListInto(node.Else, ctx.Child(), buf)
		}
		return nil
	}
	n := len(items)
	for i, pr := range items {
		child := ctx.Child()
		if node.KeyVar != "" {
			if pr.HasKey {
				child.Scope.Set(node.KeyVar, value.String(pr.Key))
			} else {
				child.Scope.Set(node.KeyVar, value.Int(int64(i)))
			}
		}
		child.Scope.Set(node.ValVar, pr.Value)
		child.Scope.Set("loop", value.Object(map[string]value.Value{
			"index0":    value.Int(int64(i)),
			"index":     value.Int(int64(i + 1)),
			"revindex0": value.Int(int64(n - 1 - i)),
			"revindex1": value.Int(int64(n - i)),
			"first":     value.Bool(i == 0),
			"last":      value.Bool(i == n-1),
			"length":    value.Int(int64(n)),
		}))
		if err := RenderListInto(node.Body, child, buf); err != nil {
			return err
		}
	}
	return nil
}

func filterForItems(node *ast.ForNode, ctx *Context) ([]value.Pair, error) {
	listVal, err := EvalExpr(node.List, ctx)
	if err != nil {
		return nil, err
	}
	pairs := listVal.Iterate()
	if node.Cond == nil {
		return pairs, nil
	}
	var out []value.Pair
	for _, pr := range pairs {
		tmp := ctx.Child()
		if node.KeyVar != "" {
			if pr.HasKey {
				tmp.Scope.Set(node.KeyVar, value.String(pr.Key))
			} else {
				tmp.Scope.Set(node.KeyVar, value.Int(0))
			}
		}
		tmp.Scope.Set(node.ValVar, pr.Value)
		v, err := EvalExpr(node.Cond, tmp)
		if err != nil {
			return nil, err
		}
		if v.ToBoolean() {
			out = append(out, pr)
		}
	}
	return out, nil
}

func renderFilterTag(node *ast.FilterNode, ctx *Context, buf *strings.Builder) error {
	inner, err := RenderList(node.Body, ctx.Child())
	if err != nil {
		return err
	}
	argsVal, err := evalCallArgs(node.Args, ctx)
	if err != nil {
		return err
	}
	argsVal = prependPositional(argsVal, value.String(inner))
	fn, ok := ctx.Registry.Filter(node.Name)
	if !ok {
		return runtimeErr(ctx, node.Pos, "unknown function or filter: %s", node.Name)
	}
	buf.WriteString(applyEscape(fn(argsVal), ctx.Escape))
	return nil
}

func renderAutoescape(node *ast.AutoescapeNode, ctx *Context, buf *strings.Builder) error {
	mode := "html"
	if b, ok := node.Mode.(*ast.BoolNode); ok {
		if !b.True {
			mode = ""
		}
	} else {
		v, err := EvalExpr(node.Mode, ctx)
		if err != nil {
			return err
		}
		if v.Kind() == value.KindBool && !v.Bool() {
			mode = ""
		} else {
			s := v.ToString()
			if s == "no" || s == "false" {
				mode = ""
			} else {
				mode = s
			}
		}
	}
	child := ctx.Child()
	child.Escape = mode
	return RenderListInto(node.Body, child, buf)
}

func renderWith(node *ast.WithNode, ctx *Context, buf *strings.Builder) error {
	v, err := EvalExpr(node.Expr, ctx)
	if err != nil {
		return err
	}
	child := ctx.Child()
	if node.Only {
		child.Scope = NewScope(nil)
	}
	if v.IsObject() {
		for k, val := range v.Map() {
			child.Scope.Set(k, val)
		}
	}
	return RenderListInto(node.Body, child, buf)
}

// ---------------------------------------------------------------------
// Template inheritance, inclusion, macros
// ---------------------------------------------------------------------

// RenderDocument walks doc's extends chain to the base template and
// renders it with the accumulated named-block overrides. A built-in that
// panics on bad arguments (see funcs.CallError) is recovered here into a
// returned *errortypes.RuntimeError rather than crashing the caller; a
// runtime.Error is re-panicked, since that's a bug in the evaluator
// itself rather than a bad template call.
func RenderDocument(doc *ast.Document, ctx *Context) (result string, err error) {
	defer func() {
		if e := recover(); e != nil {
			switch v := e.(type) {
			case runtime.Error:
				panic(e)
			case *funcs.CallError:
				err = runtimeErr(ctx, 0, "%s", v.Msg)
			case error:
				err = v
			default:
				panic(e)
			}
		}
	}()
	base, overrides, err := resolveExtendsChain(doc, ctx, map[string]*ast.BlockNode{})
	if err != nil {
		return "", err
	}
	docCtx := ctx.WithOverrides(overrides)
	docCtx.DocKey = base.Key
	docCtx.SelfDoc = base
	return RenderList(base.Root, docCtx)
}

func resolveExtendsChain(doc *ast.Document, ctx *Context, overrides map[string]*ast.BlockNode) (*ast.Document, map[string]*ast.BlockNode, error) {
	cur := doc
	for cur.Extends != nil {
		for k, v := range cur.Blocks {
			if _, exists := overrides[k]; !exists {
				overrides[k] = v
			}
		}
		keyVal, err := EvalExpr(cur.Extends, ctx)
		if err != nil {
			return nil, nil, err
		}
		parentDoc, err := ctx.Provider.Compile(keyVal.ToString())
		if err != nil {
			return nil, nil, err
		}
		cur = parentDoc
	}
	return cur, overrides, nil
}

func candidateKeys(v value.Value) []string {
	if v.IsArray() {
		out := make([]string, 0, v.Length())
		for _, it := range v.Items() {
			out = append(out, it.ToString())
		}
		return out
	}
	return []string{v.ToString()}
}

func renderInclude(node *ast.IncludeNode, ctx *Context, buf *strings.Builder) error {
	targetVal, err := EvalExpr(node.Expr, ctx)
	if err != nil {
		return err
	}
	var doc *ast.Document
	var lastErr error
	for _, k := range candidateKeys(targetVal) {
		d, cerr := ctx.Provider.Compile(k)
		if cerr == nil {
			doc = d
			break
		}
		lastErr = cerr
	}
	if doc == nil {
		if node.IgnoreMissing {
			return nil
		}
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("include: no valid template key")
	}
	childCtx, err := buildIncludeContext(node.With, node.Only, ctx)
	if err != nil {
		return err
	}
	out, err := RenderDocument(doc, childCtx)
	if err != nil {
		return err
	}
	buf.WriteString(out)
	return nil
}

func buildIncludeContext(with ast.Node, only bool, ctx *Context) (*Context, error) {
	childCtx := ctx.Child()
	if only {
		childCtx.Scope = NewScope(nil)
	}
	if with != nil {
		withVal, err := EvalExpr(with, ctx)
		if err != nil {
			return nil, err
		}
		if withVal.IsObject() {
			for k, v := range withVal.Map() {
				childCtx.Scope.Set(k, v)
			}
		}
	}
	return childCtx, nil
}

func renderEmbed(node *ast.EmbedNode, ctx *Context, buf *strings.Builder) error {
	targetVal, err := EvalExpr(node.Expr, ctx)
	if err != nil {
		return err
	}
	var doc *ast.Document
	var lastErr error
	for _, k := range candidateKeys(targetVal) {
		d, cerr := ctx.Provider.Compile(k)
		if cerr == nil {
			doc = d
			break
		}
		lastErr = cerr
	}
	if doc == nil {
		if node.IgnoreMissing {
			return nil
		}
		if lastErr != nil {
			return lastErr
		}
		return fmt.Errorf("embed: no valid template key")
	}
	childCtx, err := buildIncludeContext(node.With, node.Only, ctx)
	if err != nil {
		return err
	}
	seed := map[string]*ast.BlockNode{}
	for k, v := range node.Blocks {
		seed[k] = v
	}
	base, overrides, err := resolveExtendsChain(doc, childCtx, seed)
	if err != nil {
		return err
	}
	finalCtx := childCtx.WithOverrides(overrides)
	finalCtx.DocKey = base.Key
	finalCtx.SelfDoc = base
	out, err := RenderList(base.Root, finalCtx)
	if err != nil {
		return err
	}
	buf.WriteString(out)
	return nil
}

func renderImport(node *ast.ImportNode, ctx *Context) error {
	var doc *ast.Document
	if node.Self {
		doc = ctx.SelfDoc
	} else {
		targetVal, err := EvalExpr(node.Expr, ctx)
		if err != nil {
			return err
		}
		d, err := ctx.Provider.Compile(targetVal.ToString())
		if err != nil {
			return err
		}
		doc = d
	}
	if doc == nil {
		return fmt.Errorf("import: no template to import macros from")
	}

	if node.Names != nil {
		for src, alias := range node.Names {
			m, ok := doc.Macros[src]
			if !ok {
				return fmt.Errorf("import: macro %q not found", src)
			}
			ctx.Scope.Set(alias, makeMacroCallable(m, doc, ctx))
		}
		return nil
	}

	macrosObj := map[string]value.Value{}
	for name, m := range doc.Macros {
		macrosObj[name] = makeMacroCallable(m, doc, ctx)
	}
	ctx.Scope.Set(node.Alias, value.Object(macrosObj))
	return nil
}

// makeMacroCallable wraps a macro definition as an invocable Value. A
// macro's scope is isolated from the caller's: only its own parameters,
// plus _args_/_kw_, are visible inside its body.
func makeMacroCallable(m *ast.MacroNode, doc *ast.Document, defCtx *Context) value.Value {
	return value.Function(func(argsVal value.Value) value.Value {
		positional := argsVal.Key("args")
		kw := argsVal.Key("kw")
		scope := NewScope(nil)
		for i, p := range m.Params {
			switch {
			case i < positional.Length():
				scope.Set(p, positional.Index(i))
			case !kw.Key(p).IsUndefined():
				scope.Set(p, kw.Key(p))
			default:
				scope.Set(p, value.Undefined())
			}
		}
		scope.Set("_args_", positional)
		scope.Set("_kw_", kw)
		macroCtx := &Context{
			DocKey:   doc.Key,
			Scope:    scope,
			Registry: defCtx.Registry,
			Provider: defCtx.Provider,
			Escape:   defCtx.Escape,
			Debug:    defCtx.Debug,
			SelfDoc:  doc,
		}
		out, err := RenderList(m.Body, macroCtx)
		if err != nil {
			return value.Undefined()
		}
		return value.SafeString(out)
	})
}
