package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the TypeScript declaration parser:
// - export/declare wrappers fold into the declaration as a modifier list
// - leading abstract/const keywords join the modifier list
// - /** */ comments directly before a declaration become DocComment children
// - a comment separated by code is not attached
// - enum members (bare and assigned) become EnumMember nodes
// - variable statements become VariableList with VarKeyword and declarators
// - type names become TypeReference nodes; generic and qualified types too
// - class members are classified (constructor, accessor, method, property)
// - reference-types directives are collected from the header
// - module detection from top-level import/export
// - syntax errors surface as ErrSyntax

func parse(t *testing.T, src string) *File {
	t.Helper()
	f, err := NewParser().Parse("test.d.ts", []byte(src))
	require.NoError(t, err)
	return f
}

func collect(root *Node, k Kind) []*Node {
	var out []*Node
	Walk(root, func(n *Node) bool {
		if n.Kind == k {
			out = append(out, n)
		}
		return true
	})
	return out
}

func modifierTypes(n *Node) []string {
	mods := n.ChildOfKind(KindModifierList)
	if mods == nil {
		return nil
	}
	var out []string
	for _, m := range mods.Children {
		out = append(out, m.Type)
	}
	return out
}

func TestParser_FoldsWrappersIntoModifierList(t *testing.T) {
	t.Parallel()

	f := parse(t, "export declare abstract class Foo<T> extends Base<T> {\n}\n")
	require.Len(t, f.Root.Children, 1)

	class := f.Root.Children[0]
	assert.Equal(t, KindClass, class.Kind)
	assert.Equal(t, 0, class.Start)
	assert.Equal(t, "Foo", class.NameText())
	assert.Equal(t, []string{"export", "declare", "abstract"}, modifierTypes(class))

	mods := class.ChildOfKind(KindModifierList)
	next := mods.NextSibling()
	require.NotNil(t, next)
	assert.True(t, IsPrimaryKeyword(next))
	assert.Equal(t, "class", next.Type)
	assert.True(t, f.IsModule)
}

func TestParser_ConstEnumModifier(t *testing.T) {
	t.Parallel()

	f := parse(t, "declare const enum Flags { A, B = 2 }\n")
	enum := f.Root.Children[0]
	assert.Equal(t, KindEnum, enum.Kind)
	assert.Equal(t, []string{"declare", "const"}, modifierTypes(enum))
	assert.False(t, f.IsModule)

	members := collect(enum, KindEnumMember)
	require.Len(t, members, 2)
	assert.Equal(t, "A", members[0].NameText())
	assert.Equal(t, "B", members[1].NameText())
}

func TestParser_AttachesDocComments(t *testing.T) {
	t.Parallel()

	src := "/** Doc for A. */\nexport interface A {\n    /** @beta */\n    x: string;\n}\n"
	f := parse(t, src)

	a := f.Root.Children[0]
	require.Equal(t, KindInterface, a.Kind)
	assert.Equal(t, 0, a.Start)
	docs := a.DocComments()
	require.Len(t, docs, 1)
	assert.Equal(t, "/** Doc for A. */", docs[0].Text())

	props := collect(a, KindPropertySignature)
	require.Len(t, props, 1)
	propDocs := props[0].DocComments()
	require.Len(t, propDocs, 1)
	assert.Equal(t, "/** @beta */", propDocs[0].Text())
	assert.Equal(t, "x", props[0].NameText())
}

func TestParser_DetachedCommentIsNotAttached(t *testing.T) {
	t.Parallel()

	f := parse(t, "/** floating */\n// separator\ninterface A {\n}\n")
	require.Len(t, f.Root.Children, 1)
	assert.Empty(t, f.Root.Children[0].DocComments())
}

func TestParser_VariableList(t *testing.T) {
	t.Parallel()

	f := parse(t, "export declare const a: number, b: string;\n")
	list := f.Root.Children[0]
	require.Equal(t, KindVariableList, list.Kind)
	assert.Equal(t, []string{"export", "declare"}, modifierTypes(list))

	kw := list.ChildOfKind(KindVarKeyword)
	require.NotNil(t, kw)
	assert.Equal(t, "const", kw.Type)

	decls := list.ChildrenOfKind(KindVariableDeclaration)
	require.Len(t, decls, 2)
	assert.Equal(t, "a", decls[0].NameText())
	assert.Equal(t, "b", decls[1].NameText())
	assert.NotNil(t, list.ChildOfKind(KindComma))
}

func TestParser_TypeReferences(t *testing.T) {
	t.Parallel()

	f := parse(t, "export declare function f<T>(x: Foo): ns.Bar<Baz>;\n")
	fn := f.Root.Children[0]
	require.Equal(t, KindFunction, fn.Kind)

	var leading []string
	for _, ref := range collect(fn, KindTypeReference) {
		leading = append(leading, FirstIdentifier(ref).Text())
	}
	assert.Equal(t, []string{"Foo", "ns", "Baz"}, leading)

	// the type parameter declaration is not a reference
	params := collect(fn, KindTypeParameter)
	require.Len(t, params, 1)
	assert.Equal(t, "T", params[0].NameText())
}

func TestParser_QualifiedLeft(t *testing.T) {
	t.Parallel()

	f := parse(t, "export type X = ns.Inner;\n")
	var bar *Node
	Walk(f.Root, func(n *Node) bool {
		if n.Kind == KindIdentifier && n.Text() == "Inner" {
			bar = n
		}
		return true
	})
	require.NotNil(t, bar)
	left := QualifiedLeft(bar)
	require.NotNil(t, left)
	assert.Equal(t, "ns", left.Text())
}

func TestParser_ClassMembers(t *testing.T) {
	t.Parallel()

	src := `declare class C {
    constructor(x: number);
    get v(): number;
    m(): void;
    p: string;
}
`
	f := parse(t, src)
	class := f.Root.Children[0]

	assert.Len(t, collect(class, KindConstructor), 1)
	assert.Len(t, collect(class, KindAccessor), 1)
	methods := collect(class, KindMethod)
	require.Len(t, methods, 1)
	assert.Equal(t, "m", methods[0].NameText())
	props := collect(class, KindProperty)
	require.Len(t, props, 1)
	assert.Equal(t, "p", props[0].NameText())
}

func TestParser_TypeReferenceDirectives(t *testing.T) {
	t.Parallel()

	src := "/// <reference types=\"node\" />\n/// <reference types='jest' />\ninterface G {\n}\n"
	f := parse(t, src)
	assert.Equal(t, []string{"node", "jest"}, f.TypeReferences)
	assert.False(t, f.IsModule)
}

func TestParser_ModuleDetection(t *testing.T) {
	t.Parallel()

	f := parse(t, "import { X } from 'pkg';\ninterface A { x: X }\n")
	assert.True(t, f.IsModule)
	assert.Equal(t, KindImport, f.Root.Children[0].Kind)
}

func TestParser_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := NewParser().Parse("bad.d.ts", []byte("export interface {"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "bad.d.ts:1:")
}

func TestKind_IsDeclaration(t *testing.T) {
	t.Parallel()

	for _, k := range []Kind{KindSourceFile, KindClass, KindInterface, KindEnum, KindEnumMember,
		KindFunction, KindMethod, KindMethodSignature, KindModule, KindProperty,
		KindPropertySignature, KindTypeAlias, KindVariableDeclaration} {
		assert.True(t, k.IsDeclaration(), k.String())
	}
	for _, k := range []Kind{KindConstructor, KindParameter, KindTypeParameter, KindVariableList,
		KindImportSpecifier, KindIdentifier, KindTypeReference} {
		assert.False(t, k.IsDeclaration(), k.String())
	}
}
