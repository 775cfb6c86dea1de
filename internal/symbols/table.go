package symbols

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/mvp-joe/dtsroll/internal/checker"
	"github.com/mvp-joe/dtsroll/internal/syntax"
)

var (
	// ErrInternal is matched by every invariant violation of the table.
	ErrInternal = errors.New("internal error")

	ErrMissingParentDeclaration = fmt.Errorf("%w: missing parent declaration", ErrInternal)
	ErrMissingChildDeclaration  = fmt.Errorf("%w: missing child declaration", ErrInternal)
	ErrNoDeclarations           = fmt.Errorf("%w: symbol has no declarations", ErrInternal)

	// ErrUnsupportedDeclaration is returned when a symbol is declared by a
	// construct outside the declaration taxonomy.
	ErrUnsupportedDeclaration = errors.New("unsupported declaration")
	// ErrNoRootDeclaration is returned when the entry file is not a module.
	ErrNoRootDeclaration = errors.New("no root declaration")
	// ErrUnsupportedExport is returned for exports that cannot be rolled up.
	ErrUnsupportedExport = errors.New("unsupported export")
)

// Provider answers the symbol questions the table asks about the program.
// *checker.Program implements it.
type Provider interface {
	Exports(f *syntax.File) ([]checker.Export, error)
	ModuleSymbol(f *syntax.File) *checker.Symbol
	SymbolAt(n *syntax.Node) *checker.Symbol
	DeclaredSymbol(n *syntax.Node) *checker.Symbol
	FollowAliases(s *checker.Symbol) (checker.Followed, error)
}

// IsDeclarationNode reports whether n belongs to the declaration taxonomy.
func IsDeclarationNode(n *syntax.Node) bool {
	return n != nil && n.Kind.IsDeclaration()
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *log.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// Table builds Symbols and Declarations on demand from a Provider.
type Table struct {
	provider Provider
	logger   *log.Logger

	bySymbol    map[*checker.Symbol]*Symbol
	byImportKey map[string]*Symbol
	byNode      map[*syntax.Node]*Declaration
	entryPoints map[*syntax.File]*EntryPoint
	symbols     []*Symbol
}

// NewTable creates an empty table.
func NewTable(p Provider, opts ...Option) *Table {
	t := &Table{
		provider:    p,
		logger:      log.New(io.Discard),
		bySymbol:    make(map[*checker.Symbol]*Symbol),
		byImportKey: make(map[string]*Symbol),
		byNode:      make(map[*syntax.Node]*Declaration),
		entryPoints: make(map[*syntax.File]*EntryPoint),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Symbols returns every symbol created so far, in creation order.
func (t *Table) Symbols() []*Symbol {
	return t.symbols
}

// FetchEntryPoint enumerates the exports of the root module and analyzes
// each exported symbol.
func (t *Table) FetchEntryPoint(root *syntax.File) (*EntryPoint, error) {
	if ep := t.entryPoints[root]; ep != nil {
		return ep, nil
	}
	if t.provider.ModuleSymbol(root) == nil {
		return nil, fmt.Errorf("%w: unable to find a root declaration for %s", ErrNoRootDeclaration, root.Path)
	}

	exports, err := t.provider.Exports(root)
	if err != nil {
		return nil, err
	}

	ep := &EntryPoint{file: root}
	for _, e := range exports {
		if e.Name == "default" {
			return nil, fmt.Errorf("%w: default export in %s", ErrUnsupportedExport, root.Path)
		}
		s, err := t.fetchSymbol(e.Symbol, true)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedExport, e.Name)
		}
		if err := t.Analyze(s); err != nil {
			return nil, err
		}
		ep.members = append(ep.members, ExportedMember{Name: e.Name, Symbol: s})
	}

	t.entryPoints[root] = ep
	t.logger.Debug("fetched entry point", "file", root.Path, "exports", len(ep.members))
	return ep, nil
}

// TryGetSymbol returns the Symbol for a checker symbol without creating it.
func (t *Table) TryGetSymbol(cs *checker.Symbol) *Symbol {
	s, err := t.fetchSymbol(cs, false)
	if err != nil {
		return nil
	}
	return s
}

// ChildDeclarationByNode returns the declaration created for node, which
// must be a direct child declaration of parent.
func (t *Table) ChildDeclarationByNode(node *syntax.Node, parent *Declaration) (*Declaration, error) {
	d := t.byNode[node]
	if d == nil || d.parent != parent {
		return nil, fmt.Errorf("%w: %s", ErrMissingChildDeclaration, node)
	}
	return d, nil
}

// Analyze discovers the full declaration subtree and the reference edges of
// the root symbol that encloses s. It is a no-op for analyzed symbols.
func (t *Table) Analyze(s *Symbol) error {
	if s.IsAnalyzed() {
		return nil
	}
	root := s.Root()
	if root.IsImport() {
		root.state = analyzed
		return nil
	}

	for _, d := range root.declarations {
		if d.node.Kind == syntax.KindSourceFile {
			if err := t.analyzeModule(d); err != nil {
				return err
			}
			continue
		}
		if err := t.analyzeChildTree(d.node, d); err != nil {
			return err
		}
	}

	root.ForEachDeclarationRecursive(func(d *Declaration) {
		d.symbol.state = analyzed
	})
	t.logger.Debug("analyzed symbol", "name", root.localName, "declarations", len(root.declarations))
	return nil
}

// analyzeModule handles a namespace-style import of a program module: the
// module references every symbol it exports.
func (t *Table) analyzeModule(d *Declaration) error {
	exports, err := t.provider.Exports(d.node.File)
	if err != nil {
		return err
	}
	for _, e := range exports {
		ref, err := t.fetchSymbol(e.Symbol, true)
		if err != nil {
			return err
		}
		if ref != nil {
			t.notifyReference(d, ref)
		}
	}
	return nil
}

func (t *Table) analyzeChildTree(node *syntax.Node, governing *Declaration) error {
	if node.Kind == syntax.KindDocComment {
		return nil
	}

	if node.Kind.IsReference() {
		if id := syntax.FirstIdentifier(node); id != nil {
			ref, err := t.fetchSymbol(t.provider.SymbolAt(id), true)
			if err != nil {
				return err
			}
			if ref != nil {
				t.notifyReference(governing, ref)
			}
		}
	}

	if IsDeclarationNode(node) {
		if cs := t.provider.DeclaredSymbol(node); cs != nil {
			s, err := t.fetchSymbol(cs, true)
			if err != nil {
				return err
			}
			if s != nil {
				d := t.byNode[node]
				if d == nil {
					return fmt.Errorf("%w: unable to find constructed declaration %s", ErrMissingChildDeclaration, node)
				}
				governing = d
			}
		}
	}

	for _, c := range node.Children {
		if err := t.analyzeChildTree(c, governing); err != nil {
			return err
		}
	}
	return nil
}

// notifyReference records an edge from d to the root of ref. Edges within
// one root symbol are dropped.
func (t *Table) notifyReference(d *Declaration, ref *Symbol) {
	target := ref.Root()
	if target == d.symbol.Root() {
		return
	}
	d.addReference(target)
}

func excluded(f checker.Followed) bool {
	s := f.Symbol
	return s.Has(checker.FlagTypeParameter) || s.Has(checker.FlagTypeLiteral) ||
		s.Has(checker.FlagParameter) || f.IsAmbient
}

// fetchSymbol returns the Symbol for a checker symbol, following aliases
// and creating it when addIfMissing is set. Type parameters, type literals,
// parameters and ambient symbols yield nil.
func (t *Table) fetchSymbol(cs *checker.Symbol, addIfMissing bool) (*Symbol, error) {
	if cs == nil {
		return nil, nil
	}
	followed, err := t.provider.FollowAliases(cs)
	if err != nil {
		return nil, err
	}
	fs := followed.Symbol
	if fs == nil || excluded(followed) {
		return nil, nil
	}

	if s := t.bySymbol[fs]; s != nil {
		return s, nil
	}
	if followed.Import != nil {
		if s := t.byImportKey[followed.Import.Key()]; s != nil {
			t.bySymbol[fs] = s
			return s, nil
		}
	}
	if !addIfMissing {
		return nil, nil
	}

	if len(fs.Declarations) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDeclarations, fs.Name)
	}

	parentDecls := make([]*Declaration, len(fs.Declarations))
	var parent *Symbol
	if followed.Import == nil {
		for _, n := range fs.Declarations {
			if !IsDeclarationNode(n) {
				return nil, fmt.Errorf("%w: the %q symbol uses the construct %s at %s, which may be an unsupported TypeScript language feature",
					ErrUnsupportedDeclaration, fs.Name, n.Kind, n)
			}
		}
		for i, n := range fs.Declarations {
			anc := n.Ancestor(IsDeclarationNode)
			if anc == nil || anc.Kind == syntax.KindSourceFile {
				continue
			}
			ps, err := t.fetchSymbol(t.provider.DeclaredSymbol(anc), addIfMissing)
			if err != nil {
				return nil, err
			}
			if ps == nil {
				return nil, fmt.Errorf("%w: unable to construct a parent symbol for %s", ErrMissingParentDeclaration, fs.Name)
			}
			pd := t.byNode[anc]
			if pd == nil {
				return nil, fmt.Errorf("%w: %s has no declaration for %s", ErrMissingParentDeclaration, ps.localName, anc)
			}
			parent = ps
			parentDecls[i] = pd
		}
	}

	s := &Symbol{
		localName: followed.LocalName,
		followed:  fs,
		imp:       followed.Import,
		parent:    parent,
	}
	for i, n := range fs.Declarations {
		d := &Declaration{node: n, symbol: s, parent: parentDecls[i]}
		if d.parent != nil {
			d.parent.children = append(d.parent.children, d)
		}
		s.declarations = append(s.declarations, d)
		t.byNode[n] = d
	}

	t.bySymbol[fs] = s
	if s.imp != nil {
		t.byImportKey[s.imp.Key()] = s
	}
	t.symbols = append(t.symbols, s)
	t.logger.Debug("created symbol", "name", s.localName, "import", s.imp != nil, "nested", parent != nil)
	return s, nil
}
