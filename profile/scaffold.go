package profile

import (
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"
)

// Scaffold loads a Go package by import path and generates a profile
// skeleton for its exported struct types: one type entry per struct,
// one field entry per exported field, all overrides left empty for
// the user to fill in. The include set, if non-empty, restricts which
// type names are scaffolded.
func Scaffold(importPath string, include map[string]bool) (*Profile, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", importPath, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}
	if len(pkgs[0].Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkgs[0].Errors)
	}

	pkg := pkgs[0]
	if pkg.Types == nil {
		return nil, fmt.Errorf("type information not available for %s", importPath)
	}

	p := &Profile{}
	scope := pkg.Types.Scope()

	names := scope.Names()
	sort.Strings(names)
	for _, name := range names {
		if len(include) > 0 && !include[name] {
			continue
		}
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		tn, ok := obj.(*types.TypeName)
		if !ok {
			continue
		}
		st, ok := tn.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		tp := TypeProfile{Name: pkg.Types.Path() + "." + name}
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if !f.Exported() || f.Embedded() {
				continue
			}
			tp.Fields = append(tp.Fields, FieldProfile{Name: f.Name()})
		}
		p.Types = append(p.Types, tp)
	}

	if len(p.Types) == 0 {
		return nil, fmt.Errorf("no exported struct types in %s", importPath)
	}
	return p, nil
}
