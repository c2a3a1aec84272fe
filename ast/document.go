package ast

// Document is a compiled template: the root content-node tree plus the
// macro definitions declared anywhere within it, and the top-level named
// blocks available for a child template to override via `extends`.
type Document struct {
	Key     string
	Source  string
	Root    *ListNode
	Macros  map[string]*MacroNode
	Blocks  map[string]*BlockNode
	Extends Node // the ExtendsNode.Expr of this document, if any
}

// NewDocument collects macro and block declarations from root into a
// Document, walking every content node (not just the top level) since
// `{% macro %}` and `{% block %}` may appear nested inside `{% if %}` etc.
func NewDocument(key, source string, root *ListNode) *Document {
	doc := &Document{
		Key:    key,
		Source: source,
		Root:   root,
		Macros: map[string]*MacroNode{},
		Blocks: map[string]*BlockNode{},
	}
	doc.collect(root)
	return doc
}

func (doc *Document) collect(n Node) {
	switch node := n.(type) {
	case *MacroNode:
		doc.Macros[node.Name] = node
	case *BlockNode:
		doc.Blocks[node.Name] = node
	case *ExtendsNode:
		doc.Extends = node.Expr
	}
	if p, ok := n.(ParentNode); ok {
		for _, c := range p.Children() {
			doc.collect(c)
		}
	}
}
