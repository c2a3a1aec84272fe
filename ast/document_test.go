package ast

import "testing"

func TestNewDocumentCollectsNestedBlocksAndMacros(t *testing.T) {
	inner := &ListNode{Nodes: []Node{
		&BlockNode{Name: "nested_block", Body: &ListNode{}},
	}}
	root := &ListNode{Nodes: []Node{
		&IfNode{Conds: []*IfCondNode{{Cond: &BoolNode{True: true}, Body: inner}}},
		&MacroNode{Name: "m", Body: &ListNode{}},
		&ExtendsNode{Expr: &StringNode{Value: "parent"}},
	}}

	doc := NewDocument("k", "src", root)

	if _, ok := doc.Blocks["nested_block"]; !ok {
		t.Error("expected a block nested inside an if to still be collected")
	}
	if _, ok := doc.Macros["m"]; !ok {
		t.Error("expected top-level macro to be collected")
	}
	if doc.Extends == nil {
		t.Error("expected Extends to be set from the ExtendsNode")
	}
	if s, ok := doc.Extends.(*StringNode); !ok || s.Value != "parent" {
		t.Errorf("Extends = %+v, want StringNode(\"parent\")", doc.Extends)
	}
}
