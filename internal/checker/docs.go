package checker

import (
	"regexp"

	"github.com/mvp-joe/dtsroll/internal/syntax"
)

var (
	docBlock             = regexp.MustCompile(`/\*\*(?:[^*]|\*+[^*/])*\*+/`)
	packageDocumentation = regexp.MustCompile(`(?i)(?:\s|\*)@packagedocumentation(?:\s|\*)`)
)

// DocComments returns the raw text of the documentation comments of a
// declaration. Variable declarators report the comments of their statement.
func (p *Program) DocComments(decl *syntax.Node) []string {
	var out []string
	for _, c := range decl.DocComments() {
		out = append(out, c.Text())
	}
	if decl.Kind == syntax.KindVariableDeclaration && decl.Parent != nil && decl.Parent.Kind == syntax.KindVariableList {
		for _, c := range decl.Parent.DocComments() {
			out = append(out, c.Text())
		}
	}
	return out
}

// IsPackageDocumentation reports whether a documentation comment carries
// the @packageDocumentation tag.
func IsPackageDocumentation(comment string) bool {
	return packageDocumentation.MatchString(comment)
}

// PackageDocumentation returns the first documentation comment of f that
// carries the @packageDocumentation tag, or "".
func (p *Program) PackageDocumentation(f *syntax.File) string {
	for _, block := range docBlock.FindAll(f.Source, -1) {
		if IsPackageDocumentation(string(block)) {
			return string(block)
		}
	}
	return ""
}

// TypeReferences returns the `/// <reference types>` directives of f.
func (p *Program) TypeReferences(f *syntax.File) []string {
	return f.TypeReferences
}
