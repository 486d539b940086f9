/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package schema reads declarative type layouts and applies them to a
// registry.Manager.
//
// A document lists types by name with their bases and fields:
//
//	types:
//	  - name: geo.Point
//	    fields:
//	      - {name: x, type: float64}
//	      - {name: y, type: float64}
//	  - name: geo.Circle
//	    bases: [geo.Point]
//	    fields:
//	      - {name: r, type: float64}
//	      - {name: next, type: "geo.Circle*"}
//
// Declarations may appear in any order. Apply registers bases and by-value
// field types before the types that hold them.
package schema

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
)

var (
	// ErrUnknownType is returned when a base or field names a type that is
	// neither declared nor registered.
	ErrUnknownType = errors.New("refl(schema): unknown type")
	// ErrDuplicateType is returned when a type is declared twice or is
	// already registered.
	ErrDuplicateType = errors.New("refl(schema): duplicate type")
	// ErrCyclicSchema is returned when types contain each other by value or
	// derive from each other.
	ErrCyclicSchema = errors.New("refl(schema): cyclic schema")
	// ErrInvalidDecl is returned for unnamed types or fields and malformed
	// type spellings.
	ErrInvalidDecl = errors.New("refl(schema): invalid declaration")
)

// Field declares one field.
type Field struct {
	Name string `mapstructure:"name"`
	// Type is a qualified spelling such as "float64", "geo.Point*" or
	// "const geo.Point*".
	Type string `mapstructure:"type"`
}

// Decl declares one type.
type Decl struct {
	Name   string   `mapstructure:"name"`
	Bases  []string `mapstructure:"bases"`
	Fields []Field  `mapstructure:"fields"`
}

// Doc is a schema document.
type Doc struct {
	Types []Decl `mapstructure:"types"`
}

// Load reads a document from path. The format follows the extension
// (YAML, TOML or JSON).
func Load(path string) (Doc, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Doc{}, fmt.Errorf("failed to read schema: %w", err)
	}
	return decode(v)
}

// Read reads a document of the given format ("yaml", "json", "toml") from r.
func Read(r io.Reader, format string) (Doc, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return Doc{}, fmt.Errorf("failed to read schema: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (Doc, error) {
	var doc Doc
	if err := v.Unmarshal(&doc); err != nil {
		return Doc{}, fmt.Errorf("failed to decode schema: %w", err)
	}
	return doc, nil
}

// parsed is a validated declaration.
type parsed struct {
	id     meta.TypeID
	bases  []meta.TypeID
	types  []meta.Type
	fields []meta.Name
}

// Apply registers every type of doc with m using automatic layout, and
// returns their ids in registration order.
//
// The document is validated and ordered before anything is registered.
// A layout rejected by m stops Apply; types registered before it stay.
func Apply(m *registry.Manager, doc Doc) ([]meta.TypeID, error) {
	decls, err := parse(m, doc)
	if err != nil {
		return nil, err
	}
	order, err := sortDecls(decls)
	if err != nil {
		return nil, err
	}

	ids := make([]meta.TypeID, 0, len(order))
	for _, i := range order {
		d := decls[i]
		if !m.RegisterLayout(d.id, d.bases, d.types, d.fields) {
			return ids, fmt.Errorf("%w: %s", registry.ErrRejected, d.id)
		}
		ids = append(ids, d.id)
	}
	return ids, nil
}

func parse(m *registry.Manager, doc Doc) ([]parsed, error) {
	declared := make(map[meta.TypeID]bool, len(doc.Types))
	for _, d := range doc.Types {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: unnamed type", ErrInvalidDecl)
		}
		id := meta.NewTypeID(d.Name)
		if declared[id] || m.Record(id) != nil {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, d.Name)
		}
		declared[id] = true
	}
	known := func(id meta.TypeID) bool { return declared[id] || m.Record(id) != nil }

	out := make([]parsed, 0, len(doc.Types))
	for _, d := range doc.Types {
		p := parsed{id: meta.NewTypeID(d.Name)}
		for _, b := range d.Bases {
			id := meta.NewTypeID(b)
			if !known(id) {
				return nil, fmt.Errorf("%w: %s (base of %s)", ErrUnknownType, b, d.Name)
			}
			p.bases = append(p.bases, id)
		}
		for _, f := range d.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("%w: unnamed field in %s", ErrInvalidDecl, d.Name)
			}
			t, err := meta.ParseType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %w", ErrInvalidDecl, d.Name, f.Name, err)
			}
			if !t.IsVoid() && !known(t.ID) {
				return nil, fmt.Errorf("%w: %s (field %s.%s)", ErrUnknownType, f.Type, d.Name, f.Name)
			}
			p.types = append(p.types, t)
			p.fields = append(p.fields, meta.NewName(f.Name))
		}
		out = append(out, p)
	}
	return out, nil
}

// sortDecls orders declarations so that each comes after its bases and
// by-value field types. Ties keep document order.
func sortDecls(decls []parsed) ([]int, error) {
	index := make(map[meta.TypeID]int64, len(decls))
	g := simple.NewDirectedGraph()
	for i, d := range decls {
		index[d.id] = int64(i)
		g.AddNode(simple.Node(i))
	}

	depend := func(i int, on meta.TypeID) error {
		j, ok := index[on]
		if !ok {
			// Registered before Apply.
			return nil
		}
		if j == int64(i) {
			return fmt.Errorf("%w: %s contains itself", ErrCyclicSchema, on)
		}
		g.SetEdge(g.NewEdge(simple.Node(j), simple.Node(i)))
		return nil
	}
	for i, d := range decls {
		for _, b := range d.bases {
			if err := depend(i, b); err != nil {
				return nil, err
			}
		}
		for _, t := range d.types {
			if !t.Mode.IsByValue() {
				continue
			}
			if err := depend(i, t.ID); err != nil {
				return nil, err
			}
		}
	}

	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		slices.SortFunc(nodes, func(a, b graph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
	})
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) && len(cycles) > 0 {
			names := make([]string, 0, len(cycles[0]))
			for _, n := range cycles[0] {
				names = append(names, decls[n.ID()].id.Name())
			}
			slices.Sort(names)
			return nil, fmt.Errorf("%w: %s", ErrCyclicSchema, strings.Join(names, ", "))
		}
		return nil, fmt.Errorf("%w: %w", ErrCyclicSchema, err)
	}

	order := make([]int, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, int(n.ID()))
	}
	return order, nil
}
