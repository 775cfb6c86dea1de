package rollup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/dtsroll/internal/checker"
	"github.com/mvp-joe/dtsroll/internal/symbols"
	"github.com/mvp-joe/dtsroll/internal/syntax"
)

const removedPrefix = "// Removed for this release type: "

// WriteFile writes the rollup for kind to path, creating parent
// directories. Nothing is written when generation fails.
func (g *Generator) WriteFile(path string, kind ReleaseKind) error {
	var buf bytes.Buffer
	if err := g.WriteOutput(&buf, kind); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	g.logger.Debug("wrote rollup", "path", path, "kind", kind, "bytes", buf.Len())
	return nil
}

// WriteOutput writes the rolled-up declaration file for kind to w. The
// document is built in memory first, so w receives nothing on error.
func (g *Generator) WriteOutput(w io.Writer, kind ReleaseKind) error {
	if !g.analyzed {
		return ErrNotAnalyzed
	}
	if _, err := kind.Keeps(TagNone); err != nil {
		return err
	}

	out := &document{}
	if g.packageDoc != "" {
		out.line(g.packageDoc)
		out.blank()
	}
	for _, name := range g.typeReferences {
		out.line(fmt.Sprintf(`/// <reference types="%s" />`, name))
	}
	for _, e := range g.entries {
		if e.symbol.IsImport() {
			out.line(importStatement(e))
		}
	}

	for _, e := range g.entries {
		if e.symbol.IsImport() {
			continue
		}
		keep, err := kind.Keeps(e.releaseTag)
		if err != nil {
			return err
		}
		if !keep {
			out.blank()
			out.line(removedPrefix + e.NameForEmit())
			continue
		}
		for _, d := range e.symbol.Declarations() {
			text, err := g.declarationText(e, d, kind)
			if err != nil {
				return err
			}
			out.blank()
			out.line(text)
		}
	}

	var supplements []string
	for _, e := range g.entries {
		if e.exported && e.symbol.IsImport() {
			supplements = append(supplements, fmt.Sprintf("export { %s };", e.NameForEmit()))
		}
	}
	for _, module := range g.starExports {
		supplements = append(supplements, fmt.Sprintf("export * from '%s';", module))
	}
	if len(supplements) > 0 {
		out.blank()
		for _, s := range supplements {
			out.line(s)
		}
	}

	text := strings.ReplaceAll(out.String(), "\r\n", "\n")
	if g.newline == NewlineCRLF {
		text = strings.ReplaceAll(text, "\n", "\r\n")
	}
	_, err := io.WriteString(w, text)
	return err
}

// document accumulates output lines.
type document struct {
	strings.Builder
}

func (d *document) line(s string) {
	d.WriteString(s)
	d.WriteString("\n")
}

// blank starts a new paragraph unless the document is empty.
func (d *document) blank() {
	if d.Len() > 0 && !strings.HasSuffix(d.String(), "\n\n") {
		d.WriteString("\n")
	}
}

func importStatement(e *Entry) string {
	imp := e.symbol.Import()
	name := e.NameForEmit()
	switch imp.ExportName {
	case "*":
		return fmt.Sprintf("import * as %s from '%s';", name, imp.ModulePath)
	case name:
		return fmt.Sprintf("import { %s } from '%s';", name, imp.ModulePath)
	}
	return fmt.Sprintf("import { %s as %s } from '%s';", imp.ExportName, name, imp.ModulePath)
}

// declarationText returns the rewritten text of one declaration of e.
func (g *Generator) declarationText(e *Entry, d *symbols.Declaration, kind ReleaseKind) (string, error) {
	if d.Node().Kind == syntax.KindSourceFile {
		return g.namespaceText(e, d, kind)
	}
	span := NewSpan(d.Node())
	rw := &rewrite{entry: e, kind: kind}
	if err := g.modifySpan(rw, span, d); err != nil {
		return "", err
	}
	return span.ModifiedText(), nil
}

// namespaceText emits a namespace-style import of a program module as a
// namespace that re-exports the module's entries.
func (g *Generator) namespaceText(e *Entry, d *symbols.Declaration, kind ReleaseKind) (string, error) {
	exports, err := g.provider.Exports(d.Node().File)
	if err != nil {
		return "", err
	}
	var items []string
	for _, ex := range exports {
		s := g.table.TryGetSymbol(ex.Symbol)
		if s == nil {
			continue
		}
		target := g.entriesBySymbol[s]
		if target == nil {
			continue
		}
		if keep, _ := kind.Keeps(target.releaseTag); !keep {
			continue
		}
		if target.NameForEmit() == ex.Name {
			items = append(items, "        "+ex.Name)
		} else {
			items = append(items, fmt.Sprintf("        %s as %s", target.NameForEmit(), ex.Name))
		}
	}

	var b strings.Builder
	if e.exported {
		b.WriteString("export ")
	}
	fmt.Fprintf(&b, "declare namespace %s {\n    export {\n", e.NameForEmit())
	b.WriteString(strings.Join(items, ",\n"))
	if len(items) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("    }\n}")
	return b.String(), nil
}

// rewrite is the state of rewriting one declaration.
type rewrite struct {
	entry    *Entry
	kind     ReleaseKind
	declared bool
}

func (rw *rewrite) declarePrefix() string {
	if rw.entry.exported {
		return "export declare "
	}
	return "declare "
}

// modifySpan applies the rewrite rules to span, which lies inside the
// declaration decl.
func (g *Generator) modifySpan(rw *rewrite, span *Span, decl *symbols.Declaration) error {
	node := span.Node
	rootChild := span.Parent != nil && span.Parent.Parent == nil && decl.Parent() == nil

	switch node.Kind {
	case syntax.KindDocComment:
		if checker.IsPackageDocumentation(node.Text()) {
			span.Modification.SkipAll()
		}
		return nil

	case syntax.KindModifierList:
		if rootChild {
			kept := 0
			for _, c := range span.Children {
				if syntax.IsStrippedModifier(c.Node) {
					c.Modification.SkipAll()
				} else {
					kept++
				}
			}
			if kept == 0 {
				span.Modification.SkipAll()
			}
			return nil
		}

	case syntax.KindKeyword:
		if rootChild && !rw.declared && syntax.IsPrimaryKeyword(node) {
			rw.declared = true
			target := span
			if prev := span.PreviousSibling(); prev != nil && prev.Kind() == syntax.KindModifierList && !prev.Modification.Skipped() {
				target = prev
			}
			target.Modification.SetPrefix(rw.declarePrefix() + target.Modification.Prefix())
		}
		return nil

	case syntax.KindVariableDeclaration:
		if span.Parent == nil {
			if err := g.modifyVariable(rw, span); err != nil {
				return err
			}
		}

	case syntax.KindIdentifier:
		if syntax.QualifiedLeft(node) == nil {
			if s := g.table.TryGetSymbol(g.provider.SymbolAt(node)); s != nil {
				if e := g.entriesBySymbol[s]; e != nil {
					span.Modification.SetPrefix(e.NameForEmit())
				}
			}
		}
		return nil
	}

	for _, child := range span.Children {
		childDecl := decl
		if symbols.IsDeclarationNode(child.Node) {
			cd, err := g.table.ChildDeclarationByNode(child.Node, decl)
			if err != nil {
				return err
			}
			childDecl = cd

			keep, err := rw.kind.Keeps(g.releaseTagOf(cd.Symbol()))
			if err != nil {
				return err
			}
			if !keep {
				removeMember(child, cd.Symbol().LocalName())
				continue
			}
		}
		if err := g.modifySpan(rw, child, childDecl); err != nil {
			return err
		}
	}
	return nil
}

// removeMember replaces a trimmed nested declaration with a placeholder and
// blanks a directly following list separator.
func removeMember(span *Span, name string) {
	span.Modification.SetPrefix(removedPrefix + name)
	span.Modification.SetSuffix("")
	span.Modification.OmitChildren = true
	if next := span.NextSibling(); next != nil &&
		(next.Kind() == syntax.KindComma || next.Kind() == syntax.KindSemicolon) {
		next.Modification.SetPrefix("")
		next.Modification.SetSuffix("")
		next.Modification.OmitChildren = true
	}
}

// modifyVariable turns a root variable declarator into a standalone
// statement by copying the keyword of its list.
func (g *Generator) modifyVariable(rw *rewrite, span *Span) error {
	node := span.Node
	list := node.Parent
	if list == nil || list.Kind != syntax.KindVariableList {
		return fmt.Errorf("%w: %s", ErrUnsupportedVariable, node)
	}
	keyword := list.ChildOfKind(syntax.KindVarKeyword)
	declarators := list.ChildrenOfKind(syntax.KindVariableDeclaration)
	if keyword == nil || len(declarators) == 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedVariable, node)
	}
	listPrefix := string(node.File.Source[keyword.Start:declarators[0].Start])

	var docs strings.Builder
	if node == declarators[0] {
		for _, c := range list.DocComments() {
			text := c.Text()
			if checker.IsPackageDocumentation(text) {
				continue
			}
			docs.WriteString(text)
			docs.WriteString("\n")
		}
	}

	m := span.Modification
	m.SetPrefix(docs.String() + rw.declarePrefix() + listPrefix + m.Prefix())
	m.SetSuffix(m.Suffix() + ";")
	return nil
}
