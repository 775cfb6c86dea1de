package checker

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/dtsroll/internal/syntax"
)

var (
	// ErrUnresolvedModule is returned when a relative module specifier does
	// not name a file of the program.
	ErrUnresolvedModule = errors.New("unresolved module")
	// ErrUnsupportedSyntax is returned for declaration shapes the binder
	// does not model.
	ErrUnsupportedSyntax = errors.New("unsupported syntax")
	// ErrCircularAlias is returned when an alias chain loops back on itself.
	ErrCircularAlias = errors.New("circular alias")
)

// Option configures a Program.
type Option func(*options)

type options struct {
	ambientPatterns []string
}

// WithAmbientPatterns marks files matching any of the glob patterns as
// ambient: their declarations are treated as globals and never emitted.
func WithAmbientPatterns(patterns ...string) Option {
	return func(o *options) {
		o.ambientPatterns = append(o.ambientPatterns, patterns...)
	}
}

// Program binds a set of parsed declaration files and answers symbol
// questions about them.
type Program struct {
	files   []*syntax.File
	byPath  map[string]*syntax.File
	ambient []glob.Glob

	nextID   int
	globals  *scope
	scopes   map[*syntax.Node]*scope
	declared map[*syntax.Node]*Symbol
	modules  map[*syntax.File]*Symbol
	aliases  map[*Symbol]*alias

	exportDecls  map[*syntax.File][]exportDecl
	exports      map[*syntax.File]*exportTable
	starExternal map[*syntax.File][]string
}

// alias records where an alias symbol points.
type alias struct {
	file *syntax.File
	// module is the module specifier, empty for a local re-export.
	module string
	// name is the imported or re-exported name; "*" for a whole module.
	name string
}

// exportDecl is one export-producing statement of a module, in order.
type exportDecl struct {
	name   string
	symbol *Symbol
	// star is the module specifier of an `export * from` statement.
	star string
}

// NewProgram binds the given files.
func NewProgram(files []*syntax.File, opts ...Option) (*Program, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Program{
		files:        files,
		byPath:       make(map[string]*syntax.File, len(files)),
		globals:      newScope(nil),
		scopes:       make(map[*syntax.Node]*scope),
		declared:     make(map[*syntax.Node]*Symbol),
		modules:      make(map[*syntax.File]*Symbol),
		aliases:      make(map[*Symbol]*alias),
		exportDecls:  make(map[*syntax.File][]exportDecl),
		exports:      make(map[*syntax.File]*exportTable),
		starExternal: make(map[*syntax.File][]string),
	}

	for _, pattern := range o.ambientPatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ambient pattern %q: %w", pattern, err)
		}
		p.ambient = append(p.ambient, g)
	}

	for _, f := range files {
		p.byPath[cleanPath(f.Path)] = f
	}
	for _, f := range files {
		if err := p.bindFile(f); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Files returns the files of the program in load order.
func (p *Program) Files() []*syntax.File {
	return p.files
}

// File returns the file with the given path, or nil.
func (p *Program) File(filePath string) *syntax.File {
	return p.byPath[cleanPath(filePath)]
}

func cleanPath(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

func (p *Program) isAmbientFile(f *syntax.File) bool {
	if !f.IsModule {
		return true
	}
	rel := cleanPath(f.Path)
	for _, g := range p.ambient {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (p *Program) newSymbol(name string, flags SymbolFlags) *Symbol {
	p.nextID++
	return &Symbol{ID: p.nextID, Name: name, Flags: flags}
}

func (p *Program) bindFile(f *syntax.File) error {
	b := &binder{p: p, file: f}
	sc := p.globals
	if f.IsModule {
		sc = newScope(p.globals)
		mod := p.newSymbol(f.Path, FlagModule)
		mod.Declarations = []*syntax.Node{f.Root}
		p.modules[f] = mod
		p.declared[f.Root] = mod
	}
	p.scopes[f.Root] = sc
	return b.bindStatements(f.Root.Children, sc, nil, p.isAmbientFile(f))
}

// binder walks one file and creates its symbols.
type binder struct {
	p    *Program
	file *syntax.File
}

func (b *binder) bindStatements(stmts []*syntax.Node, sc *scope, container *Symbol, ambient bool) error {
	topLevel := container == nil && b.file.IsModule
	for _, st := range stmts {
		switch st.Kind {
		case syntax.KindClass, syntax.KindInterface, syntax.KindEnum, syntax.KindFunction,
			syntax.KindTypeAlias, syntax.KindModule:
			sym, err := b.declare(st, sc, container, ambient)
			if err != nil {
				return err
			}
			if sym != nil && topLevel {
				b.recordModifierExport(st, sym)
			}
		case syntax.KindVariableList:
			for _, d := range st.ChildrenOfKind(syntax.KindVariableDeclaration) {
				sym, err := b.declare(d, sc, container, ambient)
				if err != nil {
					return err
				}
				if sym != nil && topLevel {
					b.recordModifierExport(st, sym)
				}
			}
		case syntax.KindImport:
			if err := b.bindImport(st, sc, ambient); err != nil {
				return err
			}
		case syntax.KindExport:
			if topLevel {
				b.bindExport(st)
			}
		case syntax.KindAmbientBlock:
			if block := st.ChildOfKind(syntax.KindBlock); block != nil {
				if err := b.bindStatements(block.Children, b.p.globals, nil, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func hasModifier(n *syntax.Node, word string) bool {
	mods := n.ChildOfKind(syntax.KindModifierList)
	if mods == nil {
		return false
	}
	for _, m := range mods.Children {
		if m.Type == word {
			return true
		}
	}
	return false
}

func (b *binder) recordModifierExport(st *syntax.Node, sym *Symbol) {
	if !hasModifier(st, "export") {
		return
	}
	name := sym.Name
	if hasModifier(st, "default") {
		name = "default"
	}
	b.p.exportDecls[b.file] = append(b.p.exportDecls[b.file], exportDecl{name: name, symbol: sym})
}

// declare binds a declaration statement and its subtree.
func (b *binder) declare(n *syntax.Node, sc *scope, container *Symbol, ambient bool) (*Symbol, error) {
	nameNode := n.Name()
	if nameNode == nil {
		return nil, nil
	}

	// declare module "x" { ... }
	if n.Kind == syntax.KindModule && nameNode.Kind == syntax.KindStringLiteral {
		mod := b.p.newSymbol(n.NameText(), FlagModule|FlagAmbient)
		mod.Declarations = []*syntax.Node{n}
		mod.members = newScope(b.p.globals)
		b.p.declared[n] = mod
		b.p.scopes[n] = mod.members
		if body := n.ChildByField("body"); body != nil {
			return mod, b.bindStatements(body.Children, mod.members, mod, true)
		}
		return mod, nil
	}
	if nameNode.Kind != syntax.KindIdentifier {
		return nil, fmt.Errorf("%w: %s name %q at %s", ErrUnsupportedSyntax,
			strings.ToLower(n.Kind.String()), nameNode.Text(), n)
	}

	name := nameNode.Text()
	sym := sc.names[name]
	if sym == nil || sym.Has(FlagAlias) {
		var flags SymbolFlags
		if ambient {
			flags |= FlagAmbient
		}
		if container != nil {
			flags |= FlagMember
		}
		sym = b.p.newSymbol(name, flags)
		sym.Parent = container
		sc.names[name] = sym
	}
	sym.Declarations = append(sym.Declarations, n)
	b.p.declared[n] = sym

	switch n.Kind {
	case syntax.KindModule:
		if sym.members == nil {
			sym.members = newScope(sc)
		}
		b.p.scopes[n] = sym.members
		if body := n.ChildByField("body"); body != nil {
			return sym, b.bindStatements(body.Children, sym.members, sym, ambient)
		}
		return sym, nil
	case syntax.KindClass, syntax.KindInterface, syntax.KindEnum:
		if sym.members == nil {
			sym.members = newScope(nil)
		}
		return sym, b.bindChildren(n, sc, sym, ambient)
	}
	return sym, b.bindChildren(n, sc, nil, ambient)
}

func (b *binder) bindChildren(n *syntax.Node, sc *scope, owner *Symbol, ambient bool) error {
	if opened := b.openScope(n, sc, ambient); opened != nil {
		sc = opened
	}
	for _, c := range n.Children {
		if err := b.bindNode(c, sc, owner, ambient); err != nil {
			return err
		}
	}
	return nil
}

// bindNode binds members, type literals and the scopes of signatures.
func (b *binder) bindNode(n *syntax.Node, sc *scope, owner *Symbol, ambient bool) error {
	switch n.Kind {
	case syntax.KindTypeLiteral:
		if n.Field != "body" {
			lit := b.p.newSymbol("__type", FlagTypeLiteral)
			lit.members = newScope(nil)
			b.p.declared[n] = lit
			owner = lit
		}
	case syntax.KindProperty, syntax.KindPropertySignature, syntax.KindMethod,
		syntax.KindMethodSignature, syntax.KindEnumMember:
		if owner != nil {
			b.declareMember(n, owner, ambient)
		}
	}
	return b.bindChildren(n, sc, owner, ambient)
}

func (b *binder) declareMember(n *syntax.Node, owner *Symbol, ambient bool) {
	name := n.NameText()
	if name == "" {
		return
	}
	sym := owner.members.names[name]
	if sym == nil {
		flags := FlagMember
		if ambient {
			flags |= FlagAmbient
		}
		sym = b.p.newSymbol(name, flags)
		sym.Parent = owner
		owner.members.names[name] = sym
	}
	sym.Declarations = append(sym.Declarations, n)
	b.p.declared[n] = sym
}

// openScope creates the scope of type parameters, parameters, mapped type
// keys and infer declarations introduced by n.
func (b *binder) openScope(n *syntax.Node, parent *scope, ambient bool) *scope {
	var sc *scope
	ensure := func() *scope {
		if sc == nil {
			sc = newScope(parent)
			b.p.scopes[n] = sc
		}
		return sc
	}
	bind := func(decl, name *syntax.Node, flags SymbolFlags) {
		if name == nil || name.Kind != syntax.KindIdentifier {
			return
		}
		if ambient {
			flags |= FlagAmbient
		}
		sym := b.p.newSymbol(name.Text(), flags)
		sym.Declarations = []*syntax.Node{decl}
		ensure().names[sym.Name] = sym
		b.p.declared[decl] = sym
	}

	for _, c := range n.Children {
		switch c.Kind {
		case syntax.KindTypeParameters:
			for _, tp := range c.ChildrenOfKind(syntax.KindTypeParameter) {
				bind(tp, tp.Name(), FlagTypeParameter)
			}
		case syntax.KindParameters:
			for _, param := range c.ChildrenOfKind(syntax.KindParameter) {
				bind(param, param.ChildByField("pattern"), FlagParameter)
			}
		case syntax.KindMappedTypeClause:
			bind(c, c.Name(), FlagTypeParameter)
		}
	}

	if n.Kind == syntax.KindConditionalType {
		syntax.Walk(n, func(d *syntax.Node) bool {
			if d != n && d.Kind == syntax.KindConditionalType {
				return false
			}
			if d.Kind == syntax.KindInferType {
				bind(d, d.ChildOfKind(syntax.KindIdentifier), FlagTypeParameter)
				return false
			}
			return true
		})
	}
	return sc
}

func moduleSpecifier(n *syntax.Node) string {
	src := n.ChildByField("source")
	if src == nil {
		return ""
	}
	return syntax.Unquote(src.Text())
}

func (b *binder) newAlias(decl *syntax.Node, local string, target *alias, ambient bool) *Symbol {
	flags := FlagAlias
	if ambient {
		flags |= FlagAmbient
	}
	sym := b.p.newSymbol(local, flags)
	sym.Declarations = []*syntax.Node{decl}
	b.p.declared[decl] = sym
	b.p.aliases[sym] = target
	return sym
}

func (b *binder) bindImport(st *syntax.Node, sc *scope, ambient bool) error {
	module := moduleSpecifier(st)

	if req := st.ChildOfKind(syntax.KindImportRequire); req != nil {
		id := req.ChildOfKind(syntax.KindIdentifier)
		if id == nil {
			return nil
		}
		spec := moduleSpecifier(req)
		sym := b.newAlias(id, id.Text(), &alias{file: b.file, module: spec, name: "*"}, ambient)
		sc.names[sym.Name] = sym
		return nil
	}

	clause := st.ChildOfKind(syntax.KindImportClause)
	if clause == nil || module == "" {
		return nil
	}
	for _, c := range clause.Children {
		switch {
		case c.Kind == syntax.KindIdentifier:
			sym := b.newAlias(c, c.Text(), &alias{file: b.file, module: module, name: "default"}, ambient)
			sc.names[sym.Name] = sym
		case c.Kind == syntax.KindNamespaceImport:
			id := c.ChildOfKind(syntax.KindIdentifier)
			if id == nil {
				continue
			}
			sym := b.newAlias(c, id.Text(), &alias{file: b.file, module: module, name: "*"}, ambient)
			sc.names[sym.Name] = sym
		case c.Type == "named_imports":
			for _, spec := range c.ChildrenOfKind(syntax.KindImportSpecifier) {
				name := spec.ChildByField("name")
				if name == nil {
					continue
				}
				local := name
				if a := spec.ChildByField("alias"); a != nil {
					local = a
				}
				sym := b.newAlias(spec, local.Text(),
					&alias{file: b.file, module: module, name: syntax.Unquote(name.Text())}, ambient)
				sc.names[sym.Name] = sym
			}
		}
	}
	return nil
}

func (b *binder) bindExport(st *syntax.Node) {
	module := moduleSpecifier(st)
	decls := &b.p.exportDecls

	if ns := st.ChildOfKind(syntax.KindNamespaceExport); ns != nil {
		id := ns.ChildOfKind(syntax.KindIdentifier)
		if id == nil || module == "" {
			return
		}
		sym := b.newAlias(ns, id.Text(), &alias{file: b.file, module: module, name: "*"}, false)
		(*decls)[b.file] = append((*decls)[b.file], exportDecl{name: sym.Name, symbol: sym})
		return
	}

	if clause := childOfType(st, "export_clause"); clause != nil {
		for _, spec := range clause.ChildrenOfKind(syntax.KindExportSpecifier) {
			name := spec.ChildByField("name")
			if name == nil {
				continue
			}
			exported := name
			if a := spec.ChildByField("alias"); a != nil {
				exported = a
			}
			sym := b.newAlias(spec, syntax.Unquote(exported.Text()),
				&alias{file: b.file, module: module, name: syntax.Unquote(name.Text())}, false)
			(*decls)[b.file] = append((*decls)[b.file], exportDecl{name: sym.Name, symbol: sym})
		}
		return
	}

	if childOfType(st, "*") != nil && module != "" {
		(*decls)[b.file] = append((*decls)[b.file], exportDecl{star: module})
		return
	}

	// export default <identifier>;
	if value := st.ChildByField("value"); value != nil && hasToken(st, "default") {
		if value.Kind == syntax.KindIdentifier {
			sym := b.newAlias(value, "default", &alias{file: b.file, name: value.Text()}, false)
			(*decls)[b.file] = append((*decls)[b.file], exportDecl{name: "default", symbol: sym})
		}
	}
	// `export = x` and `export as namespace x` do not contribute named exports.
}

func childOfType(n *syntax.Node, typ string) *syntax.Node {
	for _, c := range n.Children {
		if c.Type == typ {
			return c
		}
	}
	return nil
}

func hasToken(n *syntax.Node, word string) bool {
	return childOfType(n, word) != nil
}
