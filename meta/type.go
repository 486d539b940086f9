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

package meta

import (
	"fmt"
	"strings"
	"unique"
)

// TypeID identifies a concrete, unqualified type.
// TypeIDs are interned: equality is a single comparison.
type TypeID struct {
	h unique.Handle[string]
}

// NewTypeID interns name. An empty name yields the zero TypeID.
func NewTypeID(name string) TypeID {
	if name == "" {
		return TypeID{}
	}
	return TypeID{h: unique.Make(name)}
}

// Valid reports whether id denotes a type.
func (id TypeID) Valid() bool {
	return id != TypeID{}
}

// Name returns the interned type name.
func (id TypeID) Name() string {
	if !id.Valid() {
		return ""
	}
	return id.h.Value()
}

// String implements fmt.Stringer.
func (id TypeID) String() string { return id.Name() }

// Type is a TypeID together with its qualification.
// Two Types are equal iff both ID and Mode match.
type Type struct {
	ID   TypeID
	Mode Mode
}

// VoidType is the result type of callables returning nothing.
var VoidType = Type{ID: NewTypeID("void")}

// TypeOf returns the Type for id qualified by m.
func TypeOf(id TypeID, m Mode) Type {
	return Type{ID: id, Mode: m}
}

// ValueOf returns the unqualified Type for id.
func ValueOf(id TypeID) Type {
	return Type{ID: id}
}

// Valid reports whether t is not the "no match" sentinel.
func (t Type) Valid() bool { return t.ID.Valid() }

// IsVoid reports whether t is VoidType.
func (t Type) IsVoid() bool { return t == VoidType }

// With returns t requalified as m.
func (t Type) With(m Mode) Type {
	return Type{ID: t.ID, Mode: m}
}

// Decay strips const and reference qualification.
// Pointer and array qualification is kept: it changes the object's layout.
func (t Type) Decay() Type {
	return Type{ID: t.ID, Mode: t.Mode.RemoveCVRef()}
}

// String renders t using C-like qualifier spelling, e.g. "const geo.Point&".
func (t Type) String() string {
	if !t.Valid() {
		return "<none>"
	}
	return t.Mode.Format(t.ID.Name())
}

// ParseType parses the spelling produced by String.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	m := Value
	isConst := false
	if rest, ok := strings.CutPrefix(s, "const "); ok {
		isConst = true
		s = strings.TrimSpace(rest)
	}
	switch {
	case strings.HasSuffix(s, "&&"):
		m, s = RRef, s[:len(s)-2]
	case strings.HasSuffix(s, "&"):
		m, s = LRef, s[:len(s)-1]
	case strings.HasSuffix(s, "*"):
		m, s = Pointer, s[:len(s)-1]
	case strings.HasSuffix(s, "[]"):
		m, s = Array, s[:len(s)-2]
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "&*[] ") {
		return Type{}, fmt.Errorf("meta: malformed type %q", s)
	}
	if isConst {
		m = m.AddConst()
	}
	return Type{ID: NewTypeID(s), Mode: m}, nil
}

// MustParseType is like ParseType but panics on error.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("meta: cannot marshal invalid type")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
