package syntax

import (
	"bytes"
	"fmt"
)

// File is a parsed declaration file.
type File struct {
	Path   string
	Source []byte
	Root   *Node

	// IsModule is true when the file has a top-level import or export.
	// Declarations in non-module files are global.
	IsModule bool

	// TypeReferences lists `/// <reference types="..." />` directives from
	// the file header, in source order.
	TypeReferences []string
}

func (f *File) String() string {
	return f.Path
}

// Node is one node of the normalized declaration tree. Children are ordered
// by position and never overlap; the byte range of a node covers the ranges
// of all of its children.
type Node struct {
	Kind Kind
	// Type is the tree-sitter node type, or the token text for anonymous
	// tokens such as keywords and punctuation.
	Type string
	// Field is the role of the node in its parent ("name", "body", ...).
	Field string

	Start int
	End   int

	Parent   *Node
	Children []*Node
	File     *File

	index int
}

// Text returns the source text covered by the node.
func (n *Node) Text() string {
	return string(n.File.Source[n.Start:n.End])
}

func (n *Node) String() string {
	line, col := n.Position()
	return fmt.Sprintf("%s@%s:%d:%d", n.Kind, n.File.Path, line, col)
}

// Position returns the 1-based line and column of the node start.
func (n *Node) Position() (int, int) {
	src := n.File.Source[:n.Start]
	line := bytes.Count(src, []byte{'\n'}) + 1
	col := n.Start - (bytes.LastIndexByte(src, '\n') + 1) + 1
	return line, col
}

// PrevSibling returns the sibling immediately before n, or nil.
func (n *Node) PrevSibling() *Node {
	if n.Parent == nil || n.index == 0 {
		return nil
	}
	return n.Parent.Children[n.index-1]
}

// NextSibling returns the sibling immediately after n, or nil.
func (n *Node) NextSibling() *Node {
	if n.Parent == nil || n.index+1 >= len(n.Parent.Children) {
		return nil
	}
	return n.Parent.Children[n.index+1]
}

// ChildByField returns the first child playing the given role.
func (n *Node) ChildByField(field string) *Node {
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildOfKind returns the first direct child of kind k.
func (n *Node) ChildOfKind(k Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns the direct children of kind k.
func (n *Node) ChildrenOfKind(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Name returns the name node of a declaration.
func (n *Node) Name() *Node {
	return n.ChildByField("name")
}

// NameText returns the declared name, with quotes removed from string names.
func (n *Node) NameText() string {
	name := n.Name()
	if name == nil {
		return ""
	}
	if name.Kind == KindStringLiteral {
		return Unquote(name.Text())
	}
	return name.Text()
}

// DocComments returns the documentation comments attached to n.
func (n *Node) DocComments() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind != KindDocComment {
			break
		}
		out = append(out, c)
	}
	return out
}

// Ancestor returns the closest proper ancestor for which match returns true.
func (n *Node) Ancestor(match func(*Node) bool) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if match(p) {
			return p
		}
	}
	return nil
}

// Walk visits n and its descendants depth-first. Returning false from the
// visitor skips the children of that node.
func Walk(n *Node, visitor func(*Node) bool) {
	if n == nil {
		return
	}
	if !visitor(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visitor)
	}
}

// FirstIdentifier finds the first identifier in n's subtree, depth-first.
func FirstIdentifier(n *Node) *Node {
	var found *Node
	Walk(n, func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Kind == KindIdentifier {
			found = c
			return false
		}
		return true
	})
	return found
}

// QualifiedLeft returns the left operand when n is the right-hand name of a
// qualified name such as `a.b` or `ns.Type`.
func QualifiedLeft(n *Node) *Node {
	p := n.Parent
	if p == nil {
		return nil
	}
	switch p.Type {
	case "nested_identifier", "member_expression":
		if n.Field == "property" {
			return p.ChildByField("object")
		}
	case "nested_type_identifier":
		if n.Field == "name" {
			return p.ChildByField("module")
		}
	}
	return nil
}

// Unquote strips matching single or double quotes.
func Unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
