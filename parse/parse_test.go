package parse

import (
	"testing"

	"github.com/twigo-lang/twigo/ast"
	"github.com/twigo-lang/twigo/errortypes"
)

func TestParsePlainText(t *testing.T) {
	doc, err := Parse("t", "hello world")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(doc.Root.Children()) != 1 {
		t.Fatalf("expected one child, got %d", len(doc.Root.Children()))
	}
	raw, ok := doc.Root.Children()[0].(*ast.RawTextNode)
	if !ok || string(raw.Text) != "hello world" {
		t.Errorf("expected RawTextNode(\"hello world\"), got %+v", doc.Root.Children()[0])
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	doc, err := Parse("t", "{{ 1 + 2 * 3 }}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	print := doc.Root.Children()[0].(*ast.PrintNode)
	bin, ok := print.Arg.(*ast.BinaryOpNode)
	if !ok || bin.Op != "+" {
		t.Fatalf("top-level op should be '+', got %+v", print.Arg)
	}
	right, ok := bin.Right.(*ast.BinaryOpNode)
	if !ok || right.Op != "*" {
		t.Fatalf("right operand should be a '*' node (precedence), got %+v", bin.Right)
	}
}

func TestParseLeftAssociativeSubtraction(t *testing.T) {
	doc, err := Parse("t", "{{ 10 - 2 - 3 }}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	print := doc.Root.Children()[0].(*ast.PrintNode)
	outer, ok := print.Arg.(*ast.BinaryOpNode)
	if !ok || outer.Op != "-" {
		t.Fatalf("expected outer '-' node, got %+v", print.Arg)
	}
	if _, ok := outer.Left.(*ast.BinaryOpNode); !ok {
		t.Errorf("left-associative parse should nest the left operand, got %+v", outer.Left)
	}
	if _, ok := outer.Right.(*ast.IntNode); !ok {
		t.Errorf("left-associative parse should keep the right operand flat, got %+v", outer.Right)
	}
}

func TestParseBlockAndMacroAreCollected(t *testing.T) {
	doc, err := Parse("t", "{% block x %}hi{% endblock %}{% macro m(a) %}{{a}}{% endmacro %}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := doc.Blocks["x"]; !ok {
		t.Error("expected block \"x\" to be collected into Document.Blocks")
	}
	if _, ok := doc.Macros["m"]; !ok {
		t.Error("expected macro \"m\" to be collected into Document.Macros")
	}
}

func TestParseSyntaxErrorReportsLineColumn(t *testing.T) {
	_, err := Parse("t", "{% if x %}unterminated")
	if err == nil {
		t.Fatal("expected a compile error for an unterminated if block")
	}
	ce, ok := err.(*errortypes.CompileError)
	if !ok {
		t.Fatalf("expected *errortypes.CompileError, got %T", err)
	}
	if ce.Line == 0 {
		t.Error("CompileError should carry a nonzero line number")
	}
}

func TestParseRegexMatchReinterpretation(t *testing.T) {
	doc, err := Parse("t", `{% if name ~ '^[a-z]+$' %}ok{% endif %}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ifNode := doc.Root.Children()[0].(*ast.IfNode)
	cond := ifNode.Conds[0].Cond
	rm, ok := cond.(*ast.RegexMatchNode)
	if !ok {
		t.Fatalf("'~' against a string literal should parse as RegexMatchNode, got %T", cond)
	}
	if rm.Pattern != "^[a-z]+$" {
		t.Errorf("pattern = %q, want %q", rm.Pattern, "^[a-z]+$")
	}
}
