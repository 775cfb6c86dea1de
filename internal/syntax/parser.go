package syntax

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ErrSyntax is returned when a source file does not parse cleanly.
var ErrSyntax = errors.New("syntax error")

var typeReferenceDirective = regexp.MustCompile(`^///\s*<reference\s+types\s*=\s*["']([^"']+)["']`)

// Parser parses TypeScript declaration files into normalized trees.
type Parser struct {
	language *sitter.Language
}

// NewParser creates a new TypeScript parser.
func NewParser() *Parser {
	return &Parser{
		language: sitter.NewLanguage(typescript.LanguageTypescript()),
	}
}

// ParseFile reads and parses a file from disk.
func (p *Parser) ParseFile(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(path, src)
}

// Parse parses src, reporting it under the given path.
func (p *Parser) Parse(path string, src []byte) (*File, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, fmt.Errorf("failed to set typescript language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%w: failed to parse %s", ErrSyntax, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if bad := firstError(root); bad != nil {
			pos := bad.StartPosition()
			return nil, fmt.Errorf("%w: %s:%d:%d: unexpected %q",
				ErrSyntax, path, pos.Row+1, pos.Column+1, excerpt(bad.Utf8Text(src)))
		}
		return nil, fmt.Errorf("%w: %s", ErrSyntax, path)
	}

	f := &File{Path: path, Source: src}
	c := &converter{file: f, src: src}
	f.Root = c.convertNode(root, "", "", nil)
	f.Root.Start, f.Root.End = 0, len(src)
	link(f.Root, nil, 0)

	f.TypeReferences = c.typeRefs
	for _, stmt := range f.Root.Children {
		if isModuleStatement(stmt) {
			f.IsModule = true
			break
		}
	}
	return f, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}

func excerpt(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}

func isModuleStatement(n *Node) bool {
	switch n.Kind {
	case KindImport, KindExport:
		return true
	}
	if mods := n.ChildOfKind(KindModifierList); mods != nil {
		for _, m := range mods.Children {
			if m.Type == "export" {
				return true
			}
		}
	}
	return false
}

func link(n, parent *Node, index int) {
	n.Parent = parent
	n.index = index
	for i, c := range n.Children {
		link(c, n, i)
	}
}

// converter turns a tree-sitter CST into the normalized Node tree.
type converter struct {
	file     *File
	src      []byte
	typeRefs []string
}

// declarationTypes are the statements that export/declare wrappers fold into.
var declarationTypes = map[string]bool{
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"interface_declaration":          true,
	"enum_declaration":               true,
	"function_signature":             true,
	"function_declaration":           true,
	"generator_function_declaration": true,
	"internal_module":                true,
	"module":                         true,
	"type_alias_declaration":         true,
	"lexical_declaration":            true,
	"variable_declaration":           true,
	"ambient_declaration":            true,
}

var leafTypes = map[string]bool{
	"identifier":                          true,
	"type_identifier":                     true,
	"property_identifier":                 true,
	"shorthand_property_identifier":       true,
	"shorthand_property_identifier_pattern": true,
	"private_property_identifier":         true,
	"statement_identifier":                true,
	"string":                              true,
	"template_string":                     true,
	"template_literal_type":               true,
	"number":                              true,
	"regex":                               true,
}

func (c *converter) convert(tn *sitter.Node, field, parentType string) *Node {
	switch tn.Kind() {
	case "export_statement", "ambient_declaration", "expression_statement":
		if wrappedDeclaration(tn) != nil {
			return c.fold(tn, field, parentType)
		}
	case "type_identifier":
		if field != "name" && parentType != "infer_type" &&
			parentType != "generic_type" && parentType != "nested_type_identifier" {
			id := c.newNode(tn, KindIdentifier, "")
			return c.wrap(KindTypeReference, field, id)
		}
	}
	if parentType == "enum_body" && field == "name" {
		return c.wrap(KindEnumMember, "", c.convertNode(tn, "name", parentType, nil))
	}
	if !tn.IsNamed() {
		return c.token(tn, field)
	}
	return c.convertNode(tn, field, parentType, nil)
}

// fold merges export/declare wrappers into the declaration they wrap. The
// wrapper keywords become a modifier list in front of the primary keyword.
func (c *converter) fold(tn *sitter.Node, field, parentType string) *Node {
	var mods []*Node
	cur := tn
	for {
		decl := wrappedDeclaration(cur)
		if decl == nil {
			break
		}
		for i := uint(0); i < cur.ChildCount(); i++ {
			ch := cur.Child(i)
			if ch == nil || ch.StartByte() >= decl.StartByte() {
				break
			}
			if !ch.IsNamed() && !ch.IsExtra() {
				if tok := c.token(ch, ""); tok != nil {
					mods = append(mods, tok)
				}
			}
		}
		cur = decl
	}

	n := c.convertNode(cur, field, parentType, mods)
	n.Start = int(tn.StartByte())
	if end := int(tn.EndByte()); end > n.End {
		n.End = end
	}
	return n
}

func wrappedDeclaration(tn *sitter.Node) *sitter.Node {
	switch tn.Kind() {
	case "export_statement":
		decl := tn.ChildByFieldName("declaration")
		if decl != nil && declarationTypes[decl.Kind()] {
			return decl
		}
	case "ambient_declaration":
		for i := uint(0); i < tn.ChildCount(); i++ {
			ch := tn.Child(i)
			if ch == nil || !ch.IsNamed() || ch.IsExtra() {
				continue
			}
			if declarationTypes[ch.Kind()] {
				return ch
			}
			return nil
		}
	case "expression_statement":
		// `namespace X {}` without export/declare parses as an expression
		if tn.NamedChildCount() == 1 {
			inner := tn.NamedChild(0)
			if inner != nil && (inner.Kind() == "internal_module" || inner.Kind() == "module") {
				return inner
			}
		}
	}
	return nil
}

func (c *converter) convertNode(tn *sitter.Node, field, parentType string, mods []*Node) *Node {
	typ := tn.Kind()
	n := c.newNode(tn, classify(tn, parentType, c.src), field)
	if leafTypes[typ] {
		return n
	}

	var pending []*Node
	for i := uint(0); i < tn.ChildCount(); i++ {
		ch := tn.Child(i)
		if ch == nil {
			continue
		}
		if ch.Kind() == "comment" {
			pending = c.comment(n, ch, pending)
			continue
		}
		cn := c.convert(ch, tn.FieldNameForChild(uint32(i)), typ)
		if cn == nil {
			continue
		}
		if len(pending) > 0 && acceptsDocs(cn.Kind) && blank(c.src[pending[len(pending)-1].End:cn.Start]) {
			cn.Children = append(pending, cn.Children...)
			cn.Start = pending[0].Start
		}
		pending = nil
		n.Children = append(n.Children, cn)
	}

	switch n.Kind {
	case KindVariableList:
		for _, ch := range n.Children {
			if ch.Kind == KindKeyword && (ch.Type == "var" || ch.Type == "let" || ch.Type == "const") {
				ch.Kind = KindVarKeyword
				break
			}
		}
		c.insertModifiers(n, mods)
	default:
		if n.Kind.IsDeclaration() || len(mods) > 0 {
			c.insertModifiers(n, mods)
		}
	}
	return n
}

// comment handles a comment child of n. Documentation comments accumulate
// until the next node, which adopts them if only whitespace separates them.
func (c *converter) comment(n *Node, tn *sitter.Node, pending []*Node) []*Node {
	text := string(c.src[tn.StartByte():tn.EndByte()])
	if n.Kind == KindSourceFile && len(n.Children) == 0 {
		if m := typeReferenceDirective.FindStringSubmatch(text); m != nil {
			c.typeRefs = append(c.typeRefs, m[1])
		}
	}
	if !strings.HasPrefix(text, "/**") || text == "/**/" {
		return nil
	}
	doc := c.newNode(tn, KindDocComment, "")
	if len(pending) > 0 && !blank(c.src[pending[len(pending)-1].End:doc.Start]) {
		pending = nil
	}
	return append(pending, doc)
}

// insertModifiers gathers wrapper modifiers and the keyword modifiers that
// precede the primary keyword (abstract, const, async) into one
// KindModifierList child placed immediately before that keyword.
func (c *converter) insertModifiers(n *Node, mods []*Node) {
	anchor := -1
	for i, ch := range n.Children {
		if IsPrimaryKeyword(ch) || ch.Kind == KindVarKeyword {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		if len(mods) == 0 {
			return
		}
		anchor = 0
	}
	first := anchor
	for first > 0 && n.Children[first-1].Kind == KindKeyword {
		first--
	}
	lead := n.Children[first:anchor]

	all := make([]*Node, 0, len(mods)+len(lead))
	all = append(all, mods...)
	all = append(all, lead...)
	if len(all) == 0 {
		return
	}
	list := &Node{
		Kind:     KindModifierList,
		Type:     "modifiers",
		Start:    all[0].Start,
		End:      all[len(all)-1].End,
		Children: all,
		File:     c.file,
	}

	children := make([]*Node, 0, len(n.Children)-len(lead)+1)
	children = append(children, n.Children[:first]...)
	children = append(children, list)
	children = append(children, n.Children[anchor:]...)
	n.Children = children
}

func (c *converter) newNode(tn *sitter.Node, kind Kind, field string) *Node {
	return &Node{
		Kind:  kind,
		Type:  tn.Kind(),
		Field: field,
		Start: int(tn.StartByte()),
		End:   int(tn.EndByte()),
		File:  c.file,
	}
}

func (c *converter) wrap(kind Kind, field string, inner *Node) *Node {
	return &Node{
		Kind:     kind,
		Type:     inner.Type,
		Field:    field,
		Start:    inner.Start,
		End:      inner.End,
		Children: []*Node{inner},
		File:     c.file,
	}
}

func (c *converter) token(tn *sitter.Node, field string) *Node {
	if tn.StartByte() == tn.EndByte() {
		return nil
	}
	text := tn.Kind()
	kind := KindToken
	switch {
	case text == ",":
		kind = KindComma
	case text == ";":
		kind = KindSemicolon
	case isWord(text):
		kind = KindKeyword
	}
	n := c.newNode(tn, kind, field)
	n.Type = text
	return n
}

func classify(tn *sitter.Node, parentType string, src []byte) Kind {
	switch tn.Kind() {
	case "program":
		return KindSourceFile
	case "class_declaration", "abstract_class_declaration":
		return KindClass
	case "interface_declaration":
		return KindInterface
	case "enum_declaration":
		return KindEnum
	case "enum_assignment":
		return KindEnumMember
	case "function_signature", "function_declaration", "generator_function_declaration":
		return KindFunction
	case "method_definition", "method_signature", "abstract_method_signature":
		return classifyMethod(tn, parentType, src)
	case "internal_module", "module":
		return KindModule
	case "public_field_definition":
		return KindProperty
	case "property_signature":
		return KindPropertySignature
	case "type_alias_declaration":
		return KindTypeAlias
	case "variable_declarator":
		return KindVariableDeclaration
	case "lexical_declaration", "variable_declaration":
		return KindVariableList
	case "index_signature":
		return KindIndexSignature
	case "call_signature":
		return KindCallSignature
	case "construct_signature":
		return KindConstructSignature
	case "type_parameters":
		return KindTypeParameters
	case "type_parameter":
		return KindTypeParameter
	case "formal_parameters":
		return KindParameters
	case "required_parameter", "optional_parameter":
		return KindParameter
	case "mapped_type_clause":
		return KindMappedTypeClause
	case "infer_type":
		return KindInferType
	case "conditional_type":
		return KindConditionalType
	case "object_type":
		return KindTypeLiteral
	case "ambient_declaration":
		return KindAmbientBlock
	case "identifier", "type_identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "private_property_identifier", "statement_identifier":
		return KindIdentifier
	case "nested_identifier", "member_expression":
		return KindQualifiedName
	case "nested_type_identifier":
		if parentType == "generic_type" {
			return KindQualifiedName
		}
		return KindTypeReference
	case "generic_type":
		return KindTypeReference
	case "extends_clause":
		return KindHeritageExpression
	case "type_query":
		return KindTypeQuery
	case "import_statement":
		return KindImport
	case "import_clause":
		return KindImportClause
	case "import_specifier":
		return KindImportSpecifier
	case "namespace_import":
		return KindNamespaceImport
	case "import_require_clause":
		return KindImportRequire
	case "export_statement":
		return KindExport
	case "export_specifier":
		return KindExportSpecifier
	case "namespace_export":
		return KindNamespaceExport
	case "statement_block", "class_body", "enum_body", "interface_body":
		return KindBlock
	case "string", "template_string", "template_literal_type":
		return KindStringLiteral
	}
	return KindOther
}

func classifyMethod(tn *sitter.Node, parentType string, src []byte) Kind {
	inClass := parentType == "class_body"
	name := tn.ChildByFieldName("name")
	for i := uint(0); i < tn.ChildCount(); i++ {
		ch := tn.Child(i)
		if ch == nil || name != nil && ch.StartByte() >= name.StartByte() {
			break
		}
		if !ch.IsNamed() && (ch.Kind() == "get" || ch.Kind() == "set") {
			return KindAccessor
		}
	}
	if inClass && name != nil && name.Utf8Text(src) == "constructor" {
		return KindConstructor
	}
	if inClass {
		return KindMethod
	}
	return KindMethodSignature
}

func acceptsDocs(k Kind) bool {
	switch k {
	case KindVariableList, KindConstructor, KindAccessor, KindIndexSignature,
		KindCallSignature, KindConstructSignature:
		return true
	}
	return k.IsDeclaration()
}

func blank(b []byte) bool {
	return len(strings.TrimSpace(string(b))) == 0
}

func isWord(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_') {
			return false
		}
	}
	return s != ""
}
