package rollup

import (
	"errors"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/dtsroll/internal/symbols"
)

// ReferenceGraph returns the directed reference graph between entries,
// keyed by emission name. Exported entries carry a bold style attribute.
func (g *Generator) ReferenceGraph() (graph.Graph[string, *Entry], error) {
	if !g.analyzed {
		return nil, ErrNotAnalyzed
	}

	rg := graph.New(func(e *Entry) string { return e.NameForEmit() }, graph.Directed())
	for _, e := range g.entries {
		var attrs []func(*graph.VertexProperties)
		if e.Exported() {
			attrs = append(attrs, graph.VertexAttribute("style", "bold"))
		}
		if err := rg.AddVertex(e, attrs...); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, err
		}
	}

	for _, e := range g.entries {
		var edgeErr error
		e.symbol.ForEachDeclarationRecursive(func(d *symbols.Declaration) {
			for _, ref := range d.References() {
				target := g.entriesBySymbol[ref]
				if target == nil || edgeErr != nil {
					continue
				}
				err := rg.AddEdge(e.NameForEmit(), target.NameForEmit())
				if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
					edgeErr = err
				}
			}
		})
		if edgeErr != nil {
			return nil, edgeErr
		}
	}
	return rg, nil
}

// Cycles returns the groups of entries that reference each other, each
// group and the list sorted by name.
func (g *Generator) Cycles() ([][]string, error) {
	rg, err := g.ReferenceGraph()
	if err != nil {
		return nil, err
	}
	components, err := graph.StronglyConnectedComponents(rg)
	if err != nil {
		return nil, err
	}

	var cycles [][]string
	for _, c := range components {
		if len(c) < 2 {
			continue
		}
		slices.Sort(c)
		cycles = append(cycles, c)
	}
	slices.SortFunc(cycles, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	return cycles, nil
}
