package checker

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/dtsroll/internal/syntax"
)

// SymbolFlags describe what a Symbol stands for.
type SymbolFlags uint16

const (
	// FlagAlias marks import specifiers and re-exports.
	FlagAlias SymbolFlags = 1 << iota
	FlagTypeParameter
	FlagTypeLiteral
	FlagParameter
	FlagMember
	FlagModule
	// FlagAmbient marks declarations that live in the global scope or in an
	// ambient module block.
	FlagAmbient
)

func (f SymbolFlags) String() string {
	names := []string{"Alias", "TypeParameter", "TypeLiteral", "Parameter", "Member", "Module", "Ambient"}
	var parts []string
	for i, name := range names {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, "|")
}

// Symbol is a named entity of the program. Declarations that share a name
// in one scope (interface merging, overloads, namespace merging) share one
// Symbol.
type Symbol struct {
	ID           int
	Name         string
	Flags        SymbolFlags
	Declarations []*syntax.Node
	Parent       *Symbol

	members *scope
}

// Has reports whether all of the given flags are set.
func (s *Symbol) Has(f SymbolFlags) bool {
	return s.Flags&f == f
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s#%d", s.Name, s.ID)
}

// Member returns the member of s with the given name, or nil.
func (s *Symbol) Member(name string) *Symbol {
	if s.members == nil {
		return nil
	}
	return s.members.names[name]
}

// Export is one exported name of a module.
type Export struct {
	Name   string
	Symbol *Symbol
}

// Import identifies a symbol that comes from an external package.
type Import struct {
	ModulePath string
	// ExportName is the name exported by the package, "*" for a namespace
	// import and "default" for a default import.
	ExportName string
}

// Key identifies the imported entity across import sites.
func (i Import) Key() string {
	return i.ModulePath + ":" + i.ExportName
}

// Followed is the result of resolving a symbol through its alias chain.
type Followed struct {
	// Symbol is the declaration-bearing symbol at the end of the chain, or
	// the last alias when the chain leaves the program through Import.
	Symbol *Symbol
	// IsAmbient is true when Symbol is a global or ambient declaration.
	IsAmbient bool
	// LocalName is the last identifier name seen along the chain.
	LocalName string
	Import    *Import
}

type scope struct {
	parent *scope
	names  map[string]*Symbol
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]*Symbol)}
}

func (s *scope) lookup(name string) *Symbol {
	for cur := s; cur != nil; cur = cur.parent {
		if sym := cur.names[name]; sym != nil {
			return sym
		}
	}
	return nil
}

// exportTable keeps the exports of a module in declaration order.
type exportTable struct {
	list   []Export
	byName map[string]*Symbol
}

func newExportTable() *exportTable {
	return &exportTable{byName: make(map[string]*Symbol)}
}

func (t *exportTable) add(name string, sym *Symbol) {
	if _, ok := t.byName[name]; ok {
		return
	}
	t.byName[name] = sym
	t.list = append(t.list, Export{Name: name, Symbol: sym})
}
