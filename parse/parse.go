// Package parse converts template source into the node tree defined by
// package ast: a recursive-descent parser over a flat token stream
// produced by lexer.go. Parse errors are reported with line/column via
// errortypes.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twigo-lang/twigo/ast"
	"github.com/twigo-lang/twigo/errortypes"
)

// parseError is panicked by parser helpers and recovered at Parse's top
// level, turning what would otherwise be deeply-threaded error returns
// into a single recovery point.
type parseError struct {
	Line, Col int
	Msg       string
}

func (e *parseError) Error() string { return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg) }

type parser struct {
	key  string
	src  string
	toks []item
	pos  int

	pendingTrimLeading bool
	lastRaw            *ast.RawTextNode
}

// Parse compiles template source into a Document, or a *errortypes.CompileError.
func Parse(key, source string) (doc *ast.Document, err error) {
	toks, lexErr := lex(source)
	if lexErr != nil {
		if le, ok := lexErr.(*LexError); ok {
			return nil, &errortypes.CompileError{
				Key: key, Msg: le.Msg, Line: le.Line, Column: le.Col,
				SourceLine: sourceLine(source, le.Line),
			}
		}
		return nil, &errortypes.CompileError{Key: key, Msg: lexErr.Error()}
	}

	p := &parser{key: key, src: source, toks: toks}
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(*parseError)
			if !ok {
				panic(r)
			}
			err = &errortypes.CompileError{
				Key: key, Msg: pe.Msg, Line: pe.Line, Column: pe.Col,
				SourceLine: sourceLine(source, pe.Line),
			}
		}
	}()

	root, stop, _ := p.parseContent()
	if stop != "" {
		p.errorf(p.toks[p.pos-1], "unexpected end tag %q with no matching opening tag", stop)
	}
	return ast.NewDocument(key, source, root), nil
}

func sourceLine(source string, line int) string {
	lines := strings.Split(source, "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	return lines[line-1]
}

// ---------------------------------------------------------------------
// Token stream helpers
// ---------------------------------------------------------------------

func (p *parser) next() item {
	tok := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) peek() item { return p.toks[p.pos] }

func (p *parser) peek2() item {
	if p.pos+1 >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+1]
}

func (p *parser) backup() {
	if p.pos > 0 {
		p.pos--
	}
}

func (p *parser) errorf(tok item, format string, args ...interface{}) {
	panic(&parseError{Line: tok.line, Col: tok.col, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) expect(typ itemType) item {
	tok := p.next()
	if tok.typ != typ {
		p.errorf(tok, "unexpected token %s", tok)
	}
	return tok
}

// isKeyword reports whether tok is an identifier matching one of names.
func isKeyword(tok item, names ...string) bool {
	if tok.typ != itemIdent {
		return false
	}
	for _, n := range names {
		if tok.val == n {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------
// Content-node parsing
// ---------------------------------------------------------------------

// parseContent scans content nodes until it hits a tag whose name is in
// stop, or end of input. It returns the accumulated list, the name of the
// stop tag that halted it (empty at EOF), and that tag's name token (for
// position info), leaving the token stream positioned right after the
// stop tag's name so the caller can parse its own trailing args/close.
func (p *parser) parseContent(stop ...string) (*ast.ListNode, string, item) {
	list := &ast.ListNode{}
	for {
		tok := p.next()
		switch tok.typ {
		case itemEOF:
			return list, "", tok
		case itemText:
			text := tok.val
			if p.pendingTrimLeading {
				text = strings.TrimLeft(text, " \t\r\n")
				p.pendingTrimLeading = false
			}
			raw := &ast.RawTextNode{Pos: ast.Pos(tok.pos), Text: []byte(text)}
			p.lastRaw = raw
			list.Nodes = append(list.Nodes, raw)
		case itemVarOpen, itemVarOpenTrim:
			if tok.typ == itemVarOpenTrim && p.lastRaw != nil {
				p.lastRaw.Text = []byte(strings.TrimRight(string(p.lastRaw.Text), " \t\r\n"))
			}
			expr := p.parseFilterChain()
			closeTok := p.next()
			if closeTok.typ != itemVarClose && closeTok.typ != itemVarCloseTrim {
				p.errorf(closeTok, "expected '}}', got %s", closeTok)
			}
			if closeTok.typ == itemVarCloseTrim {
				p.pendingTrimLeading = true
			}
			p.lastRaw = nil
			list.Nodes = append(list.Nodes, &ast.PrintNode{Pos: ast.Pos(tok.pos), Arg: expr})
		case itemTagOpen, itemTagOpenTrim:
			if tok.typ == itemTagOpenTrim && p.lastRaw != nil {
				p.lastRaw.Text = []byte(strings.TrimRight(string(p.lastRaw.Text), " \t\r\n"))
			}
			p.lastRaw = nil
			nameTok := p.expect(itemIdent)
			for _, s := range stop {
				if nameTok.val == s {
					return list, nameTok.val, nameTok
				}
			}
			node := p.parseTag(nameTok)
			if node != nil {
				list.Nodes = append(list.Nodes, node)
			}
		default:
			p.errorf(tok, "unexpected token %s", tok)
		}
	}
}

// expectTagClose consumes a '%}' or '-%}' and records a pending leading
// trim for the latter.
func (p *parser) expectTagClose() {
	tok := p.next()
	switch tok.typ {
	case itemTagClose:
	case itemTagCloseTrim:
		p.pendingTrimLeading = true
	default:
		p.errorf(tok, "expected '%%}', got %s", tok)
	}
}

// parseTag dispatches on a tag name already consumed by the caller.
func (p *parser) parseTag(nameTok item) ast.Node {
	switch nameTok.val {
	case "block":
		return p.parseBlock(nameTok)
	case "for":
		return p.parseFor(nameTok)
	case "if":
		return p.parseIf(nameTok)
	case "filter":
		return p.parseFilterTag(nameTok)
	case "extends":
		expr := p.parseFilterChain()
		p.expectTagClose()
		return &ast.ExtendsNode{Pos: ast.Pos(nameTok.pos), Expr: expr}
	case "macro":
		return p.parseMacro(nameTok)
	case "import":
		return p.parseImport(nameTok)
	case "from":
		return p.parseFromImport(nameTok)
	case "include":
		return p.parseInclude(nameTok)
	case "embed":
		return p.parseEmbed(nameTok)
	case "autoescape":
		return p.parseAutoescape(nameTok)
	case "set":
		return p.parseSet(nameTok)
	case "with":
		return p.parseWith(nameTok)
	default:
		p.errorf(nameTok, "unknown tag %q", nameTok.val)
		return nil
	}
}

func (p *parser) parseBlock(nameTok item) ast.Node {
	name := p.expect(itemIdent).val
	p.expectTagClose()
	body, _, _ := p.parseContent("endblock")
	p.expectTagClose()
	return &ast.BlockNode{Pos: ast.Pos(nameTok.pos), Name: name, Body: body}
}

func (p *parser) parseFor(nameTok item) ast.Node {
	first := p.expect(itemIdent).val
	var keyVar, valVar string
	valVar = first
	if p.peek().typ == itemComma {
		p.next()
		valVar = p.expect(itemIdent).val
		keyVar = first
	}
	if tok := p.expect(itemIdent); tok.val != "in" {
		p.errorf(tok, "expected 'in' in for loop")
	}
	list := p.parseFilterChain()
	var cond ast.Node
	if isKeyword(p.peek(), "if") {
		p.next()
		cond = p.parseFilterChain()
	}
	p.expectTagClose()
	body, stop, _ := p.parseContent("else", "endfor")
	var elseBody *ast.ListNode
	if stop == "else" {
		p.expectTagClose()
		elseBody, stop, _ = p.parseContent("endfor")
	}
	p.expectTagClose()
	return &ast.ForNode{Pos: ast.Pos(nameTok.pos), KeyVar: keyVar, ValVar: valVar, List: list, Cond: cond, Body: body, Else: elseBody}
}

func (p *parser) parseIf(nameTok item) ast.Node {
	node := &ast.IfNode{Pos: ast.Pos(nameTok.pos)}
	cond := p.parseFilterChain()
	p.expectTagClose()
	for {
		body, stop, endTok := p.parseContent("elif", "else", "endif")
		node.Conds = append(node.Conds, &ast.IfCondNode{Cond: cond, Body: body})
		switch stop {
		case "elif":
			cond = p.parseFilterChain()
			p.expectTagClose()
			continue
		case "else":
			p.expectTagClose()
			body2, stop2, _ := p.parseContent("endif")
			node.Conds = append(node.Conds, &ast.IfCondNode{Cond: nil, Body: body2})
			_ = stop2
			p.expectTagClose()
			return node
		case "endif":
			p.expectTagClose()
			return node
		default:
			p.errorf(endTok, "unexpected end of template: 'if' tag is missing its endif")
		}
	}
}

func (p *parser) parseFilterTag(nameTok item) ast.Node {
	name := p.expect(itemIdent).val
	var args *ast.CallArgs
	if p.peek().typ == itemLParen {
		args = p.parseCallArgsParens()
	}
	p.expectTagClose()
	body, _, _ := p.parseContent("endfilter")
	p.expectTagClose()
	return &ast.FilterNode{Pos: ast.Pos(nameTok.pos), Name: name, Args: args, Body: body}
}

func (p *parser) parseMacro(nameTok item) ast.Node {
	name := p.expect(itemIdent).val
	p.expect(itemLParen)
	var params []string
	for p.peek().typ != itemRParen {
		params = append(params, p.expect(itemIdent).val)
		if p.peek().typ == itemComma {
			p.next()
			continue
		}
		break
	}
	p.expect(itemRParen)
	p.expectTagClose()
	body, _, _ := p.parseContent("endmacro")
	p.expectTagClose()
	return &ast.MacroNode{Pos: ast.Pos(nameTok.pos), Name: name, Params: params, Body: body}
}

func (p *parser) parseImport(nameTok item) ast.Node {
	if isKeyword(p.peek(), "self") {
		p.next()
		if tok := p.expect(itemIdent); tok.val != "as" {
			p.errorf(tok, "expected 'as' after 'self'")
		}
		alias := p.expect(itemIdent).val
		p.expectTagClose()
		return &ast.ImportNode{Pos: ast.Pos(nameTok.pos), Self: true, Alias: alias}
	}
	expr := p.parseFilterChain()
	if tok := p.expect(itemIdent); tok.val != "as" {
		p.errorf(tok, "expected 'as' in import")
	}
	alias := p.expect(itemIdent).val
	p.expectTagClose()
	return &ast.ImportNode{Pos: ast.Pos(nameTok.pos), Expr: expr, Alias: alias}
}

func (p *parser) parseFromImport(nameTok item) ast.Node {
	expr := p.parseFilterChain()
	if tok := p.expect(itemIdent); tok.val != "import" {
		p.errorf(tok, "expected 'import' in from-import")
	}
	names := map[string]string{}
	for {
		src := p.expect(itemIdent).val
		alias := src
		if isKeyword(p.peek(), "as") {
			p.next()
			alias = p.expect(itemIdent).val
		}
		names[src] = alias
		if p.peek().typ == itemComma {
			p.next()
			continue
		}
		break
	}
	p.expectTagClose()
	return &ast.ImportNode{Pos: ast.Pos(nameTok.pos), Expr: expr, Names: names}
}

func (p *parser) parseInclude(nameTok item) ast.Node {
	expr := p.parseFilterChain()
	node := &ast.IncludeNode{Pos: ast.Pos(nameTok.pos), Expr: expr}
	p.parseIncludeOptions(&node.IgnoreMissing, &node.With, &node.Only)
	p.expectTagClose()
	return node
}

// parseIncludeOptions parses the common `[ignore missing] [with EXPR] [only]`
// tail shared by include and embed.
func (p *parser) parseIncludeOptions(ignoreMissing *bool, with *ast.Node, only *bool) {
	for {
		switch {
		case isKeyword(p.peek(), "ignore") && isKeyword(p.peek2(), "missing"):
			p.next()
			p.next()
			*ignoreMissing = true
		case isKeyword(p.peek(), "with"):
			p.next()
			*with = p.parseFilterChain()
		case isKeyword(p.peek(), "only"):
			p.next()
			*only = true
		default:
			return
		}
	}
}

func (p *parser) parseEmbed(nameTok item) ast.Node {
	expr := p.parseFilterChain()
	node := &ast.EmbedNode{Pos: ast.Pos(nameTok.pos), Expr: expr, Blocks: map[string]*ast.BlockNode{}}
	p.parseIncludeOptions(&node.IgnoreMissing, &node.With, &node.Only)
	p.expectTagClose()
	body, _, _ := p.parseContent("endembed")
	p.expectTagClose()
	for _, n := range body.Nodes {
		if b, ok := n.(*ast.BlockNode); ok {
			node.Blocks[b.Name] = b
		}
	}
	return node
}

func (p *parser) parseAutoescape(nameTok item) ast.Node {
	var mode ast.Node
	if isKeyword(p.peek(), "false") {
		p.next()
		mode = &ast.BoolNode{True: false}
	} else {
		mode = p.parseFilterChain()
	}
	p.expectTagClose()
	body, _, _ := p.parseContent("endautoescape")
	p.expectTagClose()
	return &ast.AutoescapeNode{Pos: ast.Pos(nameTok.pos), Mode: mode, Body: body}
}

func (p *parser) parseSet(nameTok item) ast.Node {
	name := p.expect(itemIdent).val
	p.expect(itemAssign)
	expr := p.parseFilterChain()
	p.expectTagClose()
	return &ast.SetNode{Pos: ast.Pos(nameTok.pos), Name: name, Expr: expr}
}

func (p *parser) parseWith(nameTok item) ast.Node {
	expr := p.parseFilterChain()
	only := false
	if isKeyword(p.peek(), "only") {
		p.next()
		only = true
	}
	p.expectTagClose()
	body, _, _ := p.parseContent("endwith")
	p.expectTagClose()
	return &ast.WithNode{Pos: ast.Pos(nameTok.pos), Expr: expr, Only: only, Body: body}
}

// ---------------------------------------------------------------------
// Expression parsing, in descending precedence order.
// ---------------------------------------------------------------------

func (p *parser) parseFilterChain() ast.Node {
	base := p.parseConditional()
	var filters []ast.FilterCall
	for p.peek().typ == itemPipe {
		p.next()
		name := p.expect(itemIdent).val
		var args *ast.CallArgs
		if p.peek().typ == itemLParen {
			args = p.parseCallArgsParens()
		}
		filters = append(filters, ast.FilterCall{Name: name, Args: args})
	}
	if len(filters) == 0 {
		return base
	}
	return &ast.FilterChainNode{Base: base, Filters: filters}
}

func (p *parser) parseConditional() ast.Node {
	left := p.parseBooleanTerm()
	if p.peek().typ == itemOrOr {
		p.next()
		right := p.parseConditional()
		return &ast.BinaryOpNode{Op: "||", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseBooleanTerm() ast.Node {
	left := p.parseBooleanFactor()
	if p.peek().typ == itemAndAnd {
		p.next()
		right := p.parseBooleanTerm()
		return &ast.BinaryOpNode{Op: "&&", Left: left, Right: right}
	}
	return left
}

func (p *parser) parseBooleanFactor() ast.Node {
	if p.peek().typ == itemBang {
		tok := p.next()
		arg := p.parseBooleanPrimary()
		return &ast.UnaryNode{Pos: ast.Pos(tok.pos), Op: "!", Arg: arg}
	}
	return p.parseBooleanPrimary()
}

func (p *parser) parseBooleanPrimary() ast.Node {
	if p.peek().typ == itemLParen {
		p.next()
		inner := p.parseConditional()
		p.expect(itemRParen)
		return inner
	}
	return p.parsePredicate()
}

func (p *parser) parsePredicate() ast.Node {
	left := p.parseExpression()

	// The grammar lets '~' double as both string concatenation (Term
	// level, already consumed above by parseExpression) and regex match
	// (Predicate level). When a full predicate reduces to exactly
	// `X ~ 'pattern'`, reinterpret it as a regex match: this is the only
	// shape in which the Predicate-level '~' clause can ever be reached,
	// since Term greedily absorbs '~' first.
	if bin, ok := left.(*ast.BinaryOpNode); ok && bin.Op == "~" {
		if str, ok := bin.Right.(*ast.StringNode); ok {
			return &ast.RegexMatchNode{Pos: bin.Pos, Left: bin.Left, Pattern: str.Value}
		}
	}

	switch {
	case p.peek().typ == itemEq, p.peek().typ == itemNeq, p.peek().typ == itemLt,
		p.peek().typ == itemGt, p.peek().typ == itemLte, p.peek().typ == itemGte:
		opTok := p.next()
		right := p.parseExpression()
		return &ast.BinaryOpNode{Pos: ast.Pos(opTok.pos), Op: cmpOpText(opTok.typ), Left: left, Right: right}
	case isKeyword(p.peek(), "in"):
		p.next()
		right := p.parseExpression()
		return &ast.InNode{Left: left, Right: right}
	case isKeyword(p.peek(), "not") && isKeyword(p.peek2(), "in"):
		p.next()
		p.next()
		right := p.parseExpression()
		return &ast.InNode{Left: left, Right: right, Not: true}
	case isKeyword(p.peek(), "is"):
		p.next()
		not := false
		if isKeyword(p.peek(), "not") {
			p.next()
			not = true
		}
		name := p.expect(itemIdent).val
		var args *ast.CallArgs
		if p.peek().typ == itemLParen {
			args = p.parseCallArgsParens()
		}
		return &ast.IsNode{Left: left, Name: name, Args: args, Not: not}
	case p.peek().typ == itemNotTilde:
		p.next()
		pat := p.expect(itemString).val
		return &ast.RegexMatchNode{Left: left, Pattern: pat, Not: true}
	}
	return left
}

func cmpOpText(typ itemType) string {
	switch typ {
	case itemEq:
		return "=="
	case itemNeq:
		return "!="
	case itemLt:
		return "<"
	case itemGt:
		return ">"
	case itemLte:
		return "<="
	case itemGte:
		return ">="
	}
	return "?"
}

func (p *parser) parseExpression() ast.Node {
	left := p.parseTerm()
	for p.peek().typ == itemPlus || p.peek().typ == itemMinus {
		opTok := p.next()
		right := p.parseTerm()
		op := "+"
		if opTok.typ == itemMinus {
			op = "-"
		}
		left = &ast.BinaryOpNode{Pos: ast.Pos(opTok.pos), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *parser) parseTerm() ast.Node {
	left := p.parseFactor()
	for {
		var op string
		switch p.peek().typ {
		case itemStar:
			op = "*"
		case itemSlash:
			op = "/"
		case itemPercent:
			op = "%"
		case itemTilde:
			op = "~"
		default:
			return left
		}
		opTok := p.next()
		right := p.parseFactor()
		left = &ast.BinaryOpNode{Pos: ast.Pos(opTok.pos), Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseFactor() ast.Node {
	if p.peek().typ == itemMinus {
		tok := p.next()
		return &ast.UnaryNode{Pos: ast.Pos(tok.pos), Op: "-", Arg: p.parsePrimary()}
	}
	if p.peek().typ == itemPlus {
		tok := p.next()
		return &ast.UnaryNode{Pos: ast.Pos(tok.pos), Op: "+", Arg: p.parsePrimary()}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Node {
	tok := p.peek()
	switch tok.typ {
	case itemInt:
		p.next()
		n, err := strconv.ParseInt(tok.val, 10, 64)
		if err != nil {
			p.errorf(tok, "invalid integer literal %q", tok.val)
		}
		return &ast.IntNode{Pos: ast.Pos(tok.pos), Value: n}
	case itemFloat:
		p.next()
		f, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			p.errorf(tok, "invalid float literal %q", tok.val)
		}
		return &ast.FloatNode{Pos: ast.Pos(tok.pos), Value: f}
	case itemString:
		p.next()
		return &ast.StringNode{Pos: ast.Pos(tok.pos), Value: tok.val}
	case itemLBracket:
		return p.parseArrayLiteral()
	case itemLBrace:
		return p.parseObjectLiteral()
	case itemLParen:
		p.next()
		inner := p.parseExpression()
		p.expect(itemRParen)
		return inner
	case itemIdent:
		switch tok.val {
		case "true":
			p.next()
			return &ast.BoolNode{Pos: ast.Pos(tok.pos), True: true}
		case "false":
			p.next()
			return &ast.BoolNode{Pos: ast.Pos(tok.pos), True: false}
		case "null", "none":
			p.next()
			return &ast.NullNode{Pos: ast.Pos(tok.pos)}
		default:
			return p.parseVariable()
		}
	}
	p.errorf(tok, "unexpected token %s in expression", tok)
	return nil
}

func (p *parser) parseVariable() ast.Node {
	nameTok := p.expect(itemIdent)
	node := &ast.DataRefNode{Pos: ast.Pos(nameTok.pos), Name: nameTok.val}
	for {
		switch p.peek().typ {
		case itemDot:
			p.next()
			keyTok := p.expect(itemIdent)
			node.Access = append(node.Access, &ast.AttrAccessNode{Pos: ast.Pos(keyTok.pos), Key: keyTok.val})
		case itemLBracket:
			p.next()
			expr := p.parseFilterChain()
			p.expect(itemRBracket)
			node.Access = append(node.Access, &ast.IndexAccessNode{Expr: expr})
		case itemLParen:
			node.Access = append(node.Access, &ast.CallAccessNode{Args: p.parseCallArgsParens()})
		default:
			return node
		}
	}
}

// parseCallArgsParens parses `(ArgList)`, consuming both parens.
func (p *parser) parseCallArgsParens() *ast.CallArgs {
	p.expect(itemLParen)
	args := p.parseArgList()
	p.expect(itemRParen)
	return args
}

func (p *parser) parseArgList() *ast.CallArgs {
	args := &ast.CallArgs{}
	if p.peek().typ == itemRParen {
		return args
	}
	for {
		if p.peek().typ == itemIdent && p.peek2().typ == itemAssign {
			nameTok := p.next()
			p.next() // '='
			val := p.parseFilterChain()
			args.Names = append(args.Names, nameTok.val)
			args.Named = append(args.Named, val)
		} else {
			args.Positional = append(args.Positional, p.parseFilterChain())
		}
		if p.peek().typ == itemComma {
			p.next()
			continue
		}
		break
	}
	return args
}

func (p *parser) parseArrayLiteral() ast.Node {
	open := p.expect(itemLBracket)
	node := &ast.ArrayLiteralNode{Pos: ast.Pos(open.pos)}
	if p.peek().typ == itemRBracket {
		p.next()
		return node
	}
	for {
		node.Items = append(node.Items, p.parseFilterChain())
		if p.peek().typ == itemComma {
			p.next()
			continue
		}
		break
	}
	p.expect(itemRBracket)
	return node
}

func (p *parser) parseObjectLiteral() ast.Node {
	open := p.expect(itemLBrace)
	node := &ast.ObjectLiteralNode{Pos: ast.Pos(open.pos)}
	if p.peek().typ == itemRBrace {
		p.next()
		return node
	}
	for {
		keyTok := p.expect(itemString)
		p.expect(itemColon)
		val := p.parseFilterChain()
		node.Keys = append(node.Keys, keyTok.val)
		node.Values = append(node.Values, val)
		if p.peek().typ == itemComma {
			p.next()
			continue
		}
		break
	}
	p.expect(itemRBrace)
	return node
}
