package rollup

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/mvp-joe/dtsroll/internal/checker"
	"github.com/mvp-joe/dtsroll/internal/symbols"
	"github.com/mvp-joe/dtsroll/internal/syntax"
)

var (
	ErrAlreadyAnalyzed     = fmt.Errorf("%w: analyze was already called", symbols.ErrInternal)
	ErrNotAnalyzed         = fmt.Errorf("%w: analyze has not been called", symbols.ErrInternal)
	ErrDuplicateExportName = fmt.Errorf("%w: duplicate exported name", symbols.ErrInternal)
	ErrUnknownReleaseKind  = fmt.Errorf("%w: unknown release kind", symbols.ErrInternal)

	// ErrConflictingExport is returned when one symbol is exported under two
	// different names.
	ErrConflictingExport = errors.New("symbol exported under conflicting names is not supported")
	// ErrUnsupportedVariable is returned for a variable declarator whose
	// statement has no var/let/const keyword to copy.
	ErrUnsupportedVariable = errors.New("unsupported variable declaration")
)

// Provider is the program view the generator needs on top of the symbol
// table provider. *checker.Program implements it.
type Provider interface {
	symbols.Provider
	DocComments(decl *syntax.Node) []string
	TypeReferences(f *syntax.File) []string
	PackageDocumentation(f *syntax.File) string
	ExternalStarExports(f *syntax.File) []string
}

var _ Provider = (*checker.Program)(nil)

// Newline is the line ending convention of the output.
type Newline string

const (
	NewlineLF   Newline = "\n"
	NewlineCRLF Newline = "\r\n"
)

// ParseNewline parses "lf" or "crlf".
func ParseNewline(s string) (Newline, error) {
	switch s {
	case "", "lf":
		return NewlineLF, nil
	case "crlf":
		return NewlineCRLF, nil
	}
	return "", fmt.Errorf("unknown newline convention %q", s)
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *log.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithNewline sets the line ending convention of the output.
func WithNewline(nl Newline) Option {
	return func(g *Generator) {
		g.newline = nl
	}
}

// Generator rolls the declarations reachable from an entry file up into a
// single declaration file.
type Generator struct {
	provider Provider
	table    *symbols.Table
	entry    *syntax.File
	logger   *log.Logger
	newline  Newline

	analyzed        bool
	entries         []*Entry
	entriesBySymbol map[*symbols.Symbol]*Entry
	releaseTags     map[*symbols.Symbol]ReleaseTag

	typeReferences []string
	packageDoc     string
	starExports    []string
}

// NewGenerator creates a generator for the given entry file.
func NewGenerator(p Provider, entry *syntax.File, opts ...Option) *Generator {
	g := &Generator{
		provider:        p,
		entry:           entry,
		logger:          log.New(io.Discard),
		newline:         NewlineLF,
		entriesBySymbol: make(map[*symbols.Symbol]*Entry),
		releaseTags:     make(map[*symbols.Symbol]ReleaseTag),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.table = symbols.NewTable(p, symbols.WithLogger(g.logger))
	return g
}

// Table returns the symbol table backing the generator.
func (g *Generator) Table() *symbols.Table {
	return g.table
}

// Entries returns the rollup entries in output order.
func (g *Generator) Entries() []*Entry {
	return g.entries
}

// Entry returns the entry of s, or nil.
func (g *Generator) Entry(s *symbols.Symbol) *Entry {
	return g.entriesBySymbol[s]
}

// TypeReferences returns the merged `/// <reference types>` names.
func (g *Generator) TypeReferences() []string {
	return g.typeReferences
}

// Analyze discovers every entry reachable from the entry point, assigns
// release tags and unique names, and sorts the entries. It may be called
// once.
func (g *Generator) Analyze() error {
	if g.analyzed {
		return ErrAlreadyAnalyzed
	}
	g.analyzed = true

	ep, err := g.table.FetchEntryPoint(g.entry)
	if err != nil {
		return err
	}
	for _, m := range ep.Members() {
		if e := g.entriesBySymbol[m.Symbol]; e != nil {
			if e.originalName != m.Name {
				return fmt.Errorf("%w: %q is exported as both %q and %q",
					ErrConflictingExport, m.Symbol.LocalName(), e.originalName, m.Name)
			}
			continue
		}
		g.addEntry(&Entry{symbol: m.Symbol, originalName: m.Name, exported: true})
	}

	visited := make(map[*symbols.Symbol]bool)
	for _, e := range slices.Clone(g.entries) {
		if err := g.collectReferences(e.symbol, visited); err != nil {
			return err
		}
	}

	for _, e := range g.entries {
		e.releaseTag = g.releaseTagOf(e.symbol)
	}

	if err := g.assignNames(); err != nil {
		return err
	}
	slices.SortStableFunc(g.entries, compareEntries)

	g.collectTypeReferences()
	g.packageDoc = g.provider.PackageDocumentation(g.entry)
	g.starExports = g.provider.ExternalStarExports(g.entry)

	g.logger.Debug("analyzed rollup", "entry", g.entry.Path, "entries", len(g.entries))
	return nil
}

func (g *Generator) addEntry(e *Entry) {
	g.entries = append(g.entries, e)
	g.entriesBySymbol[e.symbol] = e
	g.logger.Debug("created entry", "name", e.originalName, "exported", e.exported)
}

// collectReferences walks the declarations of s and creates an entry for
// every symbol they reference, recursively.
func (g *Generator) collectReferences(s *symbols.Symbol, visited map[*symbols.Symbol]bool) error {
	if visited[s] {
		return nil
	}
	visited[s] = true

	if err := g.table.Analyze(s); err != nil {
		return err
	}

	var refs []*symbols.Symbol
	s.ForEachDeclarationRecursive(func(d *symbols.Declaration) {
		refs = append(refs, d.References()...)
	})
	for _, ref := range refs {
		if g.entriesBySymbol[ref] == nil {
			g.addEntry(&Entry{symbol: ref, originalName: ref.LocalName()})
		}
		if err := g.collectReferences(ref, visited); err != nil {
			return err
		}
	}
	return nil
}

// releaseTagOf returns the first release tag found in the documentation of
// the declarations of s. Later conflicting tags are ignored.
func (g *Generator) releaseTagOf(s *symbols.Symbol) ReleaseTag {
	if tag, ok := g.releaseTags[s]; ok {
		return tag
	}
	tag := TagNone
scan:
	for _, d := range s.Declarations() {
		for _, comment := range g.provider.DocComments(d.Node()) {
			if t := ParseReleaseTag(comment); t != TagNone {
				tag = t
				break scan
			}
		}
	}
	g.releaseTags[s] = tag
	return tag
}

// assignNames reserves the exported names, then gives every unexported entry
// its original name or the first free "_N" variant, in discovery order.
func (g *Generator) assignNames() error {
	used := make(map[string]bool)
	for _, e := range g.entries {
		if !e.exported {
			continue
		}
		if used[e.originalName] {
			return fmt.Errorf("%w: %q", ErrDuplicateExportName, e.originalName)
		}
		used[e.originalName] = true
		e.SetNameForEmit(e.originalName)
	}

	for _, e := range g.entries {
		if e.exported {
			continue
		}
		name := e.originalName
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s_%d", e.originalName, i)
		}
		used[name] = true
		e.SetNameForEmit(name)
		if name != e.originalName {
			g.logger.Debug("renamed entry", "from", e.originalName, "to", name)
		}
	}
	return nil
}

func (g *Generator) collectTypeReferences() {
	seenFiles := make(map[*syntax.File]bool)
	seen := make(map[string]bool)
	for _, e := range g.entries {
		if e.symbol.IsImport() {
			continue
		}
		for _, d := range e.symbol.Declarations() {
			f := d.Node().File
			if seenFiles[f] {
				continue
			}
			seenFiles[f] = true
			for _, name := range g.provider.TypeReferences(f) {
				if !seen[name] {
					seen[name] = true
					g.typeReferences = append(g.typeReferences, name)
				}
			}
		}
	}
	sort.Strings(g.typeReferences)
}
