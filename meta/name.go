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

import "unique"

// Name is an interned identifier for fields, methods and attributes.
// Two Names are equal iff they were made from the same string.
// The zero Name is invalid.
type Name struct {
	h unique.Handle[string]
}

// Reserved method names for the constructor overload set and the destructor.
var (
	CtorName = NewName("$ctor")
	DtorName = NewName("$dtor")
)

// NewName interns s. An empty string yields the zero Name.
func NewName(s string) Name {
	if s == "" {
		return Name{}
	}
	return Name{h: unique.Make(s)}
}

// Valid reports whether n was made from a non-empty string.
func (n Name) Valid() bool {
	return n != Name{}
}

// String returns the interned text.
func (n Name) String() string {
	if !n.Valid() {
		return ""
	}
	return n.h.Value()
}

// Names interns every element of ss.
func Names(ss ...string) []Name {
	out := make([]Name, len(ss))
	for i, s := range ss {
		out[i] = NewName(s)
	}
	return out
}
