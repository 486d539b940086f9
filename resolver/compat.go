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

// Package resolver scores argument types against parameter types and picks
// the best candidate of an overload set.
package resolver

import "dirpx.dev/refl/meta"

// Scores returned by Score.
const (
	// Incompatible means the argument cannot bind to the parameter.
	Incompatible = 0
	// Binding means the argument binds by reference, or the parameter
	// receives a temporary it may move from.
	Binding = 1
	// Copy means the parameter is a value that must be copy-constructed
	// from the argument.
	Copy = 2
	// Exact means parameter and argument types are identical.
	Exact = 3
)

// table is indexed by [param row][arg column]; the diagonal is Exact.
// Rows and columns: value, lvalue-ref, const-lvalue-ref, rvalue-ref, const-rvalue-ref.
var table = [5][5]int{
	{Exact, Copy, Copy, Binding, Copy},
	{Incompatible, Exact, Incompatible, Incompatible, Incompatible},
	{Binding, Binding, Exact, Binding, Binding},
	{Binding, Incompatible, Incompatible, Exact, Incompatible},
	{Binding, Incompatible, Incompatible, Binding, Exact},
}

func row(m meta.Mode) int {
	switch m {
	case meta.LRef:
		return 1
	case meta.ConstLRef:
		return 2
	case meta.RRef:
		return 3
	case meta.ConstRRef:
		return 4
	}
	return 0
}

// column maps a const value argument to the const-lvalue column: binding it
// to a mutable reference or moving from it would drop the const.
func column(m meta.Mode) int {
	switch m {
	case meta.LRef:
		return 1
	case meta.Const, meta.ConstLRef:
		return 2
	case meta.RRef:
		return 3
	case meta.ConstRRef:
		return 4
	}
	return 0
}

// Score rates how well an argument of type arg binds to a parameter of
// type param. Only qualification is considered: different IDs never bind.
func Score(param, arg meta.Type) int {
	if !param.Valid() || param.ID != arg.ID {
		return Incompatible
	}
	if param == arg {
		return Exact
	}
	pm, am := param.Mode, arg.Mode
	if pm.IsIndirect() || am.IsIndirect() {
		if !pm.IsIndirect() || !am.IsIndirect() {
			return Incompatible
		}
		// An array is a slice header led by its data pointer: it fills a
		// pointer slot, a one-word pointer slot cannot fill a header.
		if pm.IsArray() && am.IsPointer() {
			return Incompatible
		}
		if pm.IsConst() || !am.IsConst() {
			return Binding
		}
		return Incompatible
	}
	return table[row(pm)][column(am)]
}

// IsCompatible reports whether args bind position-wise to params.
func IsCompatible(params, args []meta.Type) bool {
	_, ok := Total(params, args)
	return ok
}

// Total sums the per-position scores. ok is false if the lengths differ or
// any position is incompatible.
func Total(params, args []meta.Type) (sum int, ok bool) {
	if len(params) != len(args) {
		return 0, false
	}
	for i, p := range params {
		s := Score(p, args[i])
		if s == Incompatible {
			return 0, false
		}
		sum += s
	}
	return sum, true
}
