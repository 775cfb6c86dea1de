package symbols

import (
	"github.com/mvp-joe/dtsroll/internal/checker"
	"github.com/mvp-joe/dtsroll/internal/syntax"
)

type analysisState uint8

const (
	unanalyzed analysisState = iota
	analyzed
)

// Symbol is a deduplicated entity reached after following aliases. It owns
// one Declaration per syntactic occurrence.
type Symbol struct {
	localName string
	followed  *checker.Symbol
	imp       *checker.Import

	declarations []*Declaration
	parent       *Symbol
	state        analysisState
}

// LocalName is the name the symbol was declared or imported under.
func (s *Symbol) LocalName() string { return s.localName }

// Import describes the package origin of an imported symbol, or nil for
// symbols declared in the program.
func (s *Symbol) Import() *checker.Import { return s.imp }

// IsImport reports whether the symbol comes from an external package.
func (s *Symbol) IsImport() bool { return s.imp != nil }

// Followed returns the checker symbol this Symbol was created for.
func (s *Symbol) Followed() *checker.Symbol { return s.followed }

// Declarations returns the declarations of the symbol in source order.
func (s *Symbol) Declarations() []*Declaration { return s.declarations }

// Parent returns the symbol lexically enclosing this one, or nil for a
// root symbol.
func (s *Symbol) Parent() *Symbol { return s.parent }

// Root returns the outermost ancestor of s, which is s for root symbols.
func (s *Symbol) Root() *Symbol {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// IsAnalyzed reports whether the declaration subtree and the reference
// edges of the symbol have been discovered.
func (s *Symbol) IsAnalyzed() bool { return s.state == analyzed }

// ForEachDeclarationRecursive calls fn for every declaration of s and all of
// their descendants, parents first.
func (s *Symbol) ForEachDeclarationRecursive(fn func(*Declaration)) {
	for _, d := range s.declarations {
		d.forEachRecursive(fn)
	}
}

func (s *Symbol) String() string {
	return s.localName
}

// Declaration is one syntactic occurrence of a Symbol.
type Declaration struct {
	node     *syntax.Node
	symbol   *Symbol
	parent   *Declaration
	children []*Declaration

	references   []*Symbol
	referenceSet map[*Symbol]struct{}
}

// Node returns the declaration node.
func (d *Declaration) Node() *syntax.Node { return d.node }

// Symbol returns the owning symbol.
func (d *Declaration) Symbol() *Symbol { return d.symbol }

// Parent returns the enclosing declaration, or nil for a root declaration.
func (d *Declaration) Parent() *Declaration { return d.parent }

// Children returns the nested declarations. The list is complete only once
// the owning symbol is analyzed.
func (d *Declaration) Children() []*Declaration { return d.children }

// References returns the root symbols referenced from this declaration's
// own subtree, in discovery order, without duplicates.
func (d *Declaration) References() []*Symbol { return d.references }

func (d *Declaration) addReference(s *Symbol) {
	if d.referenceSet == nil {
		d.referenceSet = make(map[*Symbol]struct{})
	}
	if _, ok := d.referenceSet[s]; ok {
		return
	}
	d.referenceSet[s] = struct{}{}
	d.references = append(d.references, s)
}

func (d *Declaration) forEachRecursive(fn func(*Declaration)) {
	fn(d)
	for _, c := range d.children {
		c.forEachRecursive(fn)
	}
}

// ExportedMember is one (exported name, symbol) pair of an entry point.
type ExportedMember struct {
	Name   string
	Symbol *Symbol
}

// EntryPoint is the export list of the root module.
type EntryPoint struct {
	file    *syntax.File
	members []ExportedMember
}

// File returns the root module.
func (e *EntryPoint) File() *syntax.File { return e.file }

// Members returns the exports in declaration order.
func (e *EntryPoint) Members() []ExportedMember { return e.members }
