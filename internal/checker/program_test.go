package checker

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/dtsroll/internal/syntax"
)

// Test Plan for the declaration binder:
// - export tables keep declaration order and expand `export *` in place
// - explicit exports shadow names from star exports
// - package star exports are reported, not expanded
// - aliases follow through imports and re-exports to the declaration
// - package imports stop with an Import record and the local name
// - namespace imports of local modules follow to the module symbol
// - same-name declarations merge into one symbol
// - type parameters, globals, and qualified names resolve correctly
// - unresolved relative modules fail with ErrUnresolvedModule
// - doc comments of variable declarators come from their statement
// - @packageDocumentation blocks are found
// - ambient patterns mark module files as ambient
// - dotted namespace names are rejected

func program(t *testing.T, files map[string]string, opts ...Option) (*Program, map[string]*syntax.File) {
	t.Helper()
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	parser := syntax.NewParser()
	byPath := make(map[string]*syntax.File)
	var parsed []*syntax.File
	for _, p := range paths {
		f, err := parser.Parse(p, []byte(files[p]))
		require.NoError(t, err)
		parsed = append(parsed, f)
		byPath[p] = f
	}
	prog, err := NewProgram(parsed, opts...)
	require.NoError(t, err)
	return prog, byPath
}

// ident returns the nth identifier (0-based) with the given text.
func ident(t *testing.T, f *syntax.File, text string, nth int) *syntax.Node {
	t.Helper()
	var found *syntax.Node
	count := 0
	syntax.Walk(f.Root, func(n *syntax.Node) bool {
		if found == nil && n.Kind == syntax.KindIdentifier && n.Text() == text {
			if count == nth {
				found = n
			}
			count++
		}
		return true
	})
	require.NotNil(t, found, "identifier %q #%d", text, nth)
	return found
}

func exportNames(exports []Export) []string {
	var names []string
	for _, e := range exports {
		names = append(names, e.Name)
	}
	return names
}

func TestExports_OrderAndStarExpansion(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "export { B } from './b';\nexport interface A {\n}\nexport * from './c';\nexport * from 'pkg';\n",
		"b.d.ts":     "export interface B {\n}\n",
		"c.d.ts":     "export interface C {\n}\nexport interface A {\n}\n",
	})

	exports, err := prog.Exports(files["index.d.ts"])
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, exportNames(exports))

	// A comes from index.d.ts, not from the star export
	assert.Equal(t, files["index.d.ts"], exports[1].Symbol.Declarations[0].File)
	assert.Equal(t, []string{"pkg"}, prog.ExternalStarExports(files["index.d.ts"]))
}

func TestFollowAliases_ThroughImportAndReexport(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"a.d.ts": "import { B as Bee } from './b';\nexport interface A {\n    b: Bee;\n}\n",
		"b.d.ts": "export { Impl as B } from './impl';\n",
		"impl.d.ts": "export interface Impl {\n}\n",
	})

	use := ident(t, files["a.d.ts"], "Bee", 1)
	sym := prog.SymbolAt(use)
	require.NotNil(t, sym)
	assert.True(t, sym.Has(FlagAlias))

	followed, err := prog.FollowAliases(sym)
	require.NoError(t, err)
	require.NotNil(t, followed.Symbol)
	assert.Nil(t, followed.Import)
	assert.False(t, followed.IsAmbient)
	assert.Equal(t, "Impl", followed.LocalName)
	assert.Equal(t, syntax.KindInterface, followed.Symbol.Declarations[0].Kind)
	assert.Equal(t, files["impl.d.ts"], followed.Symbol.Declarations[0].File)
}

func TestFollowAliases_PackageImport(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "import { Foo as Bar } from 'pkg';\nexport declare function f(): Bar;\n",
	})

	followed, err := prog.FollowAliases(prog.SymbolAt(ident(t, files["index.d.ts"], "Bar", 1)))
	require.NoError(t, err)
	require.NotNil(t, followed.Import)
	assert.Equal(t, Import{ModulePath: "pkg", ExportName: "Foo"}, *followed.Import)
	assert.Equal(t, "Bar", followed.LocalName)
	assert.Equal(t, "pkg:Foo", followed.Import.Key())
}

func TestFollowAliases_NamespaceImportOfLocalModule(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "import * as ns from './m';\nexport declare function f(): ns.M;\n",
		"m.d.ts":     "export interface M {\n}\n",
	})

	followed, err := prog.FollowAliases(prog.SymbolAt(ident(t, files["index.d.ts"], "ns", 1)))
	require.NoError(t, err)
	assert.Same(t, prog.ModuleSymbol(files["m.d.ts"]), followed.Symbol)
	assert.Equal(t, "ns", followed.LocalName)

	member := prog.SymbolAt(ident(t, files["index.d.ts"], "M", 0))
	require.NotNil(t, member)
	assert.Equal(t, files["m.d.ts"], member.Declarations[0].File)
}

func TestBinder_MergesDeclarations(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "export interface A {\n    x: string;\n}\nexport interface A {\n    y: string;\n}\n",
	})

	exports, err := prog.Exports(files["index.d.ts"])
	require.NoError(t, err)
	require.Len(t, exports, 1)
	sym := exports[0].Symbol
	assert.Len(t, sym.Declarations, 2)
	assert.NotNil(t, sym.Member("x"))
	assert.NotNil(t, sym.Member("y"))
	assert.Same(t, sym, sym.Member("y").Parent)
}

func TestSymbolAt_TypeParameter(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "export interface Box<T> {\n    value: T;\n}\n",
	})

	sym := prog.SymbolAt(ident(t, files["index.d.ts"], "T", 1))
	require.NotNil(t, sym)
	assert.True(t, sym.Has(FlagTypeParameter))
}

func TestSymbolAt_GlobalsAndLibNames(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"globals.d.ts": "interface Window {\n}\n",
		"index.d.ts":   "export declare function f(w: Window): Promise<void>;\n",
	})

	win := prog.SymbolAt(ident(t, files["index.d.ts"], "Window", 0))
	require.NotNil(t, win)
	followed, err := prog.FollowAliases(win)
	require.NoError(t, err)
	assert.True(t, followed.IsAmbient)

	assert.Nil(t, prog.SymbolAt(ident(t, files["index.d.ts"], "Promise", 0)))
	assert.Nil(t, prog.ModuleSymbol(files["globals.d.ts"]))
}

func TestSymbolAt_QualifiedNamespaceMember(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "export declare namespace N {\n    interface X {\n    }\n}\nexport type Y = N.X;\n",
	})

	sym := prog.SymbolAt(ident(t, files["index.d.ts"], "X", 1))
	require.NotNil(t, sym)
	assert.True(t, sym.Has(FlagMember))
	require.NotNil(t, sym.Parent)
	assert.Equal(t, "N", sym.Parent.Name)
}

func TestExports_UnresolvedModule(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "export * from './missing';\n",
	})

	_, err := prog.Exports(files["index.d.ts"])
	assert.ErrorIs(t, err, ErrUnresolvedModule)
}

func TestDocComments_VariableStatement(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"index.d.ts": "/** @beta */\nexport declare const a: number, b: string;\n",
	})

	exports, err := prog.Exports(files["index.d.ts"])
	require.NoError(t, err)
	require.Len(t, exports, 2)
	for _, e := range exports {
		assert.Equal(t, []string{"/** @beta */"}, prog.DocComments(e.Symbol.Declarations[0]), e.Name)
	}
}

func TestPackageDocumentation(t *testing.T) {
	t.Parallel()

	src := "/**\n * The widget library.\n *\n * @packageDocumentation\n */\n\n/** A widget. */\nexport interface W {\n}\n"
	prog, files := program(t, map[string]string{"index.d.ts": src})

	doc := prog.PackageDocumentation(files["index.d.ts"])
	assert.Contains(t, doc, "The widget library.")
	assert.True(t, IsPackageDocumentation(doc))
	assert.False(t, IsPackageDocumentation("/** A widget. */"))
}

func TestAmbientPatterns(t *testing.T) {
	t.Parallel()

	prog, files := program(t, map[string]string{
		"types/env.d.ts": "export interface Env {\n}\n",
	}, WithAmbientPatterns("types/**"))

	exports, err := prog.Exports(files["types/env.d.ts"])
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.True(t, exports[0].Symbol.Has(FlagAmbient))
}

func TestBinder_DottedNamespaceUnsupported(t *testing.T) {
	t.Parallel()

	f, err := syntax.NewParser().Parse("index.d.ts", []byte("export declare namespace A.B {\n}\n"))
	require.NoError(t, err)

	_, err = NewProgram([]*syntax.File{f})
	assert.ErrorIs(t, err, ErrUnsupportedSyntax)
}
