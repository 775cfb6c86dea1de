package rollup

import (
	"cmp"
	"strings"

	"github.com/mvp-joe/dtsroll/internal/symbols"
)

// Entry is one top-level item of the rolled-up output.
type Entry struct {
	symbol       *symbols.Symbol
	originalName string
	exported     bool
	releaseTag   ReleaseTag

	nameForEmit string
	sortKey     string
}

// Symbol returns the root symbol the entry emits.
func (e *Entry) Symbol() *symbols.Symbol { return e.symbol }

// OriginalName is the exported name for exported entries and the local
// name otherwise.
func (e *Entry) OriginalName() string { return e.originalName }

// Exported reports whether the entry is part of the public surface.
func (e *Entry) Exported() bool { return e.exported }

// ReleaseTag returns the release tag found on the entry's declarations.
func (e *Entry) ReleaseTag() ReleaseTag { return e.releaseTag }

// NameForEmit is the unique name the entry is written under.
func (e *Entry) NameForEmit() string { return e.nameForEmit }

// SetNameForEmit changes the emitted name and invalidates the sort key.
func (e *Entry) SetNameForEmit(name string) {
	e.nameForEmit = name
	e.sortKey = ""
}

// SortKey orders underscore-prefixed names just after the same name
// without the underscore.
func (e *Entry) SortKey() string {
	if e.sortKey == "" {
		e.sortKey = sortKeyFor(e.nameForEmit)
	}
	return e.sortKey
}

func (e *Entry) String() string {
	return e.nameForEmit
}

func sortKeyFor(name string) string {
	if strings.HasPrefix(name, "_") {
		return name[1:] + "*"
	}
	return name
}

func compareEntries(a, b *Entry) int {
	ka, kb := a.SortKey(), b.SortKey()
	if c := cmp.Compare(strings.ToLower(ka), strings.ToLower(kb)); c != 0 {
		return c
	}
	return cmp.Compare(ka, kb)
}
