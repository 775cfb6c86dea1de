package checker

import (
	"fmt"
	"path"
	"strings"

	"github.com/mvp-joe/dtsroll/internal/syntax"
)

// DeclaredSymbol returns the symbol declared by a declaration node, or nil.
func (p *Program) DeclaredSymbol(n *syntax.Node) *Symbol {
	return p.declared[n]
}

// ModuleSymbol returns the symbol of a module file, or nil when the file is
// a global script.
func (p *Program) ModuleSymbol(f *syntax.File) *Symbol {
	return p.modules[f]
}

// Exports lists the exports of a module file in declaration order, with
// `export * from` statements expanded in place.
func (p *Program) Exports(f *syntax.File) ([]Export, error) {
	t, err := p.exportTable(f, make(map[*syntax.File]bool))
	if err != nil {
		return nil, err
	}
	return t.list, nil
}

func (p *Program) exportTable(f *syntax.File, visiting map[*syntax.File]bool) (*exportTable, error) {
	if t, ok := p.exports[f]; ok {
		return t, nil
	}
	if visiting[f] {
		return newExportTable(), nil
	}
	visiting[f] = true
	defer delete(visiting, f)

	explicit := make(map[string]bool)
	for _, d := range p.exportDecls[f] {
		if d.star == "" {
			explicit[d.name] = true
		}
	}

	t := newExportTable()
	for _, d := range p.exportDecls[f] {
		if d.star == "" {
			t.add(d.name, d.symbol)
			continue
		}
		target, err := p.resolveModule(f, d.star)
		if err != nil {
			return nil, err
		}
		if target == nil {
			p.addExternalStar(f, d.star)
			continue
		}
		sub, err := p.exportTable(target, visiting)
		if err != nil {
			return nil, err
		}
		for _, e := range sub.list {
			if e.Name == "default" || explicit[e.Name] {
				continue
			}
			t.add(e.Name, e.Symbol)
		}
	}
	p.exports[f] = t
	return t, nil
}

func (p *Program) addExternalStar(f *syntax.File, module string) {
	for _, m := range p.starExternal[f] {
		if m == module {
			return
		}
	}
	p.starExternal[f] = append(p.starExternal[f], module)
}

// ExternalStarExports lists the package specifiers of `export * from`
// statements in f that leave the program.
func (p *Program) ExternalStarExports(f *syntax.File) []string {
	if _, err := p.Exports(f); err != nil {
		return nil
	}
	return p.starExternal[f]
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// resolveModule maps a module specifier used in from to a program file. It
// returns nil for package specifiers.
func (p *Program) resolveModule(from *syntax.File, spec string) (*syntax.File, error) {
	if !isRelative(spec) {
		return nil, nil
	}
	base := path.Join(path.Dir(cleanPath(from.Path)), spec)
	base = strings.TrimSuffix(base, ".js")
	for _, candidate := range []string{
		base,
		base + ".d.ts",
		base + ".ts",
		base + "/index.d.ts",
		base + "/index.ts",
	} {
		if f := p.byPath[candidate]; f != nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q imported from %s", ErrUnresolvedModule, spec, from.Path)
}

// FollowAliases resolves sym through imports and re-exports. The chain stops
// at the first alias into a package specifier, which is reported as Import.
func (p *Program) FollowAliases(sym *Symbol) (Followed, error) {
	cur := sym
	local := ""
	seen := make(map[*Symbol]bool)
	for {
		if !cur.Has(FlagModule) {
			local = cur.Name
		}
		if !cur.Has(FlagAlias) {
			break
		}
		if seen[cur] {
			return Followed{}, fmt.Errorf("%w: %s", ErrCircularAlias, sym.Name)
		}
		seen[cur] = true

		a := p.aliases[cur]
		if a.module != "" && !isRelative(a.module) {
			return Followed{
				Symbol:    cur,
				IsAmbient: cur.Has(FlagAmbient),
				LocalName: local,
				Import:    &Import{ModulePath: a.module, ExportName: a.name},
			}, nil
		}
		next, err := p.resolveAlias(a)
		if err != nil {
			return Followed{}, err
		}
		if next == nil {
			return Followed{LocalName: local}, nil
		}
		cur = next
	}
	return Followed{Symbol: cur, IsAmbient: cur.Has(FlagAmbient), LocalName: local}, nil
}

func (p *Program) resolveAlias(a *alias) (*Symbol, error) {
	if a.module == "" {
		if sc := p.scopes[a.file.Root]; sc != nil {
			return sc.lookup(a.name), nil
		}
		return nil, nil
	}
	target, err := p.resolveModule(a.file, a.module)
	if err != nil || target == nil {
		return nil, err
	}
	if a.name == "*" {
		return p.modules[target], nil
	}
	t, err := p.exportTable(target, make(map[*syntax.File]bool))
	if err != nil {
		return nil, err
	}
	return t.byName[a.name], nil
}

// SymbolAt resolves an identifier to the symbol it names, or nil when the
// name is not declared in the program (for example a lib global).
func (p *Program) SymbolAt(n *syntax.Node) *Symbol {
	if n == nil || n.Kind != syntax.KindIdentifier {
		return nil
	}
	parent := n.Parent
	if parent != nil {
		switch {
		case n.Field == "name" || n.Field == "pattern" || n.Field == "alias":
			if sym := p.declared[parent]; sym != nil {
				return sym
			}
		case parent.Kind == syntax.KindNamespaceImport || parent.Kind == syntax.KindInferType:
			if sym := p.declared[parent]; sym != nil {
				return sym
			}
		}
	}
	if sym := p.declared[n]; sym != nil {
		return sym
	}
	// names of index signatures and tuple members declare nothing
	if n.Field == "name" && parent != nil &&
		parent.Kind != syntax.KindTypeReference && parent.Kind != syntax.KindQualifiedName {
		return nil
	}
	if left := syntax.QualifiedLeft(n); left != nil {
		return p.member(p.resolveExpression(left), n.Text())
	}
	return p.resolveName(n, n.Text())
}

func (p *Program) resolveExpression(n *syntax.Node) *Symbol {
	if n.Kind == syntax.KindIdentifier {
		return p.SymbolAt(n)
	}
	right := n.ChildByField("property")
	if right == nil {
		right = n.ChildByField("name")
	}
	if right == nil {
		return nil
	}
	return p.SymbolAt(right)
}

func (p *Program) member(sym *Symbol, name string) *Symbol {
	if sym == nil {
		return nil
	}
	followed, err := p.FollowAliases(sym)
	if err != nil || followed.Symbol == nil || followed.Import != nil {
		return nil
	}
	target := followed.Symbol
	if target.Has(FlagModule) && len(target.Declarations) > 0 && target.Declarations[0].Kind == syntax.KindSourceFile {
		t, err := p.exportTable(target.Declarations[0].File, make(map[*syntax.File]bool))
		if err != nil {
			return nil
		}
		return t.byName[name]
	}
	return target.Member(name)
}

// resolveName looks a name up through the lexical scopes enclosing n and
// then the globals.
func (p *Program) resolveName(n *syntax.Node, name string) *Symbol {
	for a := n.Parent; a != nil; a = a.Parent {
		if sc := p.scopes[a]; sc != nil {
			if sym := sc.names[name]; sym != nil {
				return sym
			}
		}
	}
	return p.globals.names[name]
}
