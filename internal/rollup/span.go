package rollup

import (
	"strings"

	"github.com/mvp-joe/dtsroll/internal/syntax"
)

// Span mirrors a syntax node as text segments. The original text of a span
// is its prefix, the text of each child followed by that child's separator,
// and its suffix. A leaf span holds all of its text in the prefix.
type Span struct {
	Node         *syntax.Node
	Parent       *Span
	Children     []*Span
	Modification *SpanModification

	prefix    string
	suffix    string
	separator string

	prev *Span
	next *Span
}

// SpanModification overrides parts of a span when it is rewritten.
type SpanModification struct {
	span   *Span
	prefix *string
	suffix *string

	// OmitChildren drops the children of the span.
	OmitChildren bool
	// OmitSeparatorAfter drops the separator that follows the span.
	OmitSeparatorAfter bool

	skipped bool
}

// NewSpan builds the span tree for node.
func NewSpan(node *syntax.Node) *Span {
	return newSpan(node, nil)
}

func newSpan(node *syntax.Node, parent *Span) *Span {
	s := &Span{Node: node, Parent: parent}
	s.Modification = &SpanModification{span: s}
	src := node.File.Source

	var prev *Span
	for _, c := range node.Children {
		cs := newSpan(c, s)
		cs.prev = prev
		if prev != nil {
			prev.next = cs
		}
		s.Children = append(s.Children, cs)
		prev = cs
	}

	if len(s.Children) == 0 {
		s.prefix = segment(src, node.Start, node.End)
		return s
	}
	s.prefix = segment(src, node.Start, s.Children[0].Node.Start)
	for i, c := range s.Children[:len(s.Children)-1] {
		c.separator = segment(src, c.Node.End, s.Children[i+1].Node.Start)
	}
	s.suffix = segment(src, s.Children[len(s.Children)-1].Node.End, node.End)
	return s
}

func segment(src []byte, start, end int) string {
	if end <= start {
		return ""
	}
	return string(src[start:end])
}

// Kind returns the kind of the underlying node.
func (s *Span) Kind() syntax.Kind { return s.Node.Kind }

// Prefix returns the original text before the first child.
func (s *Span) Prefix() string { return s.prefix }

// Suffix returns the original text after the last child.
func (s *Span) Suffix() string { return s.suffix }

// Separator returns the original text between this span and its next
// sibling.
func (s *Span) Separator() string { return s.separator }

// PreviousSibling returns the sibling before s, or nil.
func (s *Span) PreviousSibling() *Span { return s.prev }

// NextSibling returns the sibling after s, or nil.
func (s *Span) NextSibling() *Span { return s.next }

// Text returns the original text of the span without its separator.
func (s *Span) Text() string {
	var b strings.Builder
	b.WriteString(s.prefix)
	for _, c := range s.Children {
		c.writeOriginal(&b)
	}
	b.WriteString(s.suffix)
	return b.String()
}

func (s *Span) writeOriginal(b *strings.Builder) {
	b.WriteString(s.prefix)
	for _, c := range s.Children {
		c.writeOriginal(b)
	}
	b.WriteString(s.suffix)
	b.WriteString(s.separator)
}

// ModifiedText returns the text of the span with all modifications applied.
// The separator after the span itself is not included.
func (s *Span) ModifiedText() string {
	var b strings.Builder
	s.writeModified(&b)
	return b.String()
}

func (s *Span) writeModified(b *strings.Builder) {
	m := s.Modification
	b.WriteString(m.Prefix())
	if !m.OmitChildren {
		for _, c := range s.Children {
			c.writeModified(b)
			if !c.Modification.OmitSeparatorAfter {
				b.WriteString(c.separator)
			}
		}
	}
	b.WriteString(m.Suffix())
}

// Prefix returns the rewritten prefix, defaulting to the original.
func (m *SpanModification) Prefix() string {
	if m.prefix != nil {
		return *m.prefix
	}
	return m.span.prefix
}

// SetPrefix replaces the prefix.
func (m *SpanModification) SetPrefix(s string) { m.prefix = &s }

// Suffix returns the rewritten suffix, defaulting to the original.
func (m *SpanModification) Suffix() string {
	if m.suffix != nil {
		return *m.suffix
	}
	return m.span.suffix
}

// SetSuffix replaces the suffix.
func (m *SpanModification) SetSuffix(s string) { m.suffix = &s }

// SkipAll removes the span and the separator after it from the output.
func (m *SpanModification) SkipAll() {
	m.SetPrefix("")
	m.SetSuffix("")
	m.OmitChildren = true
	m.OmitSeparatorAfter = true
	m.skipped = true
}

// Skipped reports whether SkipAll was applied.
func (m *SpanModification) Skipped() bool { return m.skipped }
