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

package resolver_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/resolver"
)

var (
	tID = meta.NewTypeID("test.T")
	uID = meta.NewTypeID("test.U")
)

func ty(m meta.Mode) meta.Type { return meta.TypeOf(tID, m) }

func TestScore_Table(t *testing.T) {
	modes := []meta.Mode{meta.Value, meta.LRef, meta.ConstLRef, meta.RRef, meta.ConstRRef}
	want := [5][5]int{
		{3, 2, 2, 1, 2},
		{0, 3, 0, 0, 0},
		{1, 1, 3, 1, 1},
		{1, 0, 0, 3, 0},
		{1, 0, 0, 1, 3},
	}
	for i, p := range modes {
		for j, a := range modes {
			got := resolver.Score(ty(p), ty(a))
			assert.Equalf(t, want[i][j], got, "Score(%s, %s)", p, a)
		}
	}
}

func TestScore_ConstValueArgument(t *testing.T) {
	assert.Equal(t, resolver.Copy, resolver.Score(ty(meta.Value), ty(meta.Const)))
	assert.Equal(t, resolver.Incompatible, resolver.Score(ty(meta.LRef), ty(meta.Const)))
	assert.Equal(t, resolver.Binding, resolver.Score(ty(meta.ConstLRef), ty(meta.Const)))
	assert.Equal(t, resolver.Incompatible, resolver.Score(ty(meta.RRef), ty(meta.Const)))
}

func TestScore_PointerAndArray(t *testing.T) {
	cases := []struct {
		name       string
		param, arg meta.Mode
		want       int
	}{
		{"same pointer", meta.Pointer, meta.Pointer, resolver.Exact},
		{"const param accepts mutable", meta.ConstPointer, meta.Pointer, resolver.Binding},
		{"mutable param rejects const", meta.Pointer, meta.ConstPointer, resolver.Incompatible},
		{"array to pointer", meta.Pointer, meta.Array, resolver.Binding},
		{"pointer to array", meta.Array, meta.Pointer, resolver.Incompatible},
		{"const pointer to const array", meta.ConstArray, meta.ConstPointer, resolver.Incompatible},
		{"array to const array", meta.ConstArray, meta.Array, resolver.Binding},
		{"const array to const pointer", meta.ConstPointer, meta.ConstArray, resolver.Binding},
		{"pointer vs value", meta.Pointer, meta.Value, resolver.Incompatible},
		{"value vs pointer", meta.Value, meta.Pointer, resolver.Incompatible},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolver.Score(ty(tc.param), ty(tc.arg)))
		})
	}
}

func TestScore_DifferentIDs(t *testing.T) {
	assert.Equal(t, resolver.Incompatible, resolver.Score(ty(meta.ConstLRef), meta.TypeOf(uID, meta.LRef)))
	assert.Equal(t, resolver.Incompatible, resolver.Score(meta.Type{}, meta.Type{}))
}

func TestIsCompatible(t *testing.T) {
	params := []meta.Type{ty(meta.ConstLRef), ty(meta.Value)}
	assert.True(t, resolver.IsCompatible(params, []meta.Type{ty(meta.LRef), ty(meta.RRef)}))
	assert.False(t, resolver.IsCompatible(params, []meta.Type{ty(meta.LRef)}))
	assert.False(t, resolver.IsCompatible([]meta.Type{ty(meta.LRef)}, []meta.Type{ty(meta.ConstLRef)}))
	assert.True(t, resolver.IsCompatible(nil, nil))
}

func method(flag meta.MethodFlag, params ...meta.Type) *meta.MethodRecord {
	return &meta.MethodRecord{
		Name:   meta.NewName("f"),
		Params: params,
		Result: meta.VoidType,
		Invoke: func(_, _ unsafe.Pointer, _ []unsafe.Pointer) {},
		Flag:   flag,
	}
}

func TestSelect_TieGoesToFirstDeclared(t *testing.T) {
	byValue := method(meta.MethodStatic, ty(meta.Value))
	byConstRef := method(meta.MethodStatic, ty(meta.ConstLRef))
	args := []meta.Type{ty(meta.RRef)}

	assert.Equal(t, 0, resolver.Select([]*meta.MethodRecord{byValue, byConstRef}, meta.MethodAll, args))
	assert.Equal(t, 0, resolver.Select([]*meta.MethodRecord{byConstRef, byValue}, meta.MethodAll, args))
	assert.Same(t, byValue, resolver.Pick([]*meta.MethodRecord{byValue, byConstRef}, meta.MethodAll, args))
	assert.Same(t, byConstRef, resolver.Pick([]*meta.MethodRecord{byConstRef, byValue}, meta.MethodAll, args))
}

func TestSelect_HighestScoreWins(t *testing.T) {
	cands := []*meta.MethodRecord{
		method(meta.MethodStatic, ty(meta.ConstLRef)),
		method(meta.MethodStatic, ty(meta.LRef)),
	}
	assert.Equal(t, 1, resolver.Select(cands, meta.MethodAll, []meta.Type{ty(meta.LRef)}))
	assert.Equal(t, 0, resolver.Select(cands, meta.MethodAll, []meta.Type{ty(meta.ConstLRef)}))
}

func TestSelect_FiltersFlagAndArity(t *testing.T) {
	cands := []*meta.MethodRecord{
		method(meta.MethodVariable, ty(meta.Value)),
		method(meta.MethodConst, ty(meta.Value), ty(meta.Value)),
	}
	args := []meta.Type{ty(meta.Value)}
	assert.Equal(t, resolver.NoMatch, resolver.Select(cands, meta.MethodConst, args))
	assert.Equal(t, 0, resolver.Select(cands, meta.MethodMember, args))
	assert.Equal(t, resolver.NoMatch, resolver.Select(nil, meta.MethodAll, args))
	assert.Nil(t, resolver.Pick(cands, meta.MethodStatic, args))
}

func TestObjectFlag(t *testing.T) {
	assert.Equal(t, meta.MethodStatic, resolver.ObjectFlag(ty(meta.LRef), true, meta.MethodAll))
	assert.Equal(t, meta.MethodConst|meta.MethodStatic, resolver.ObjectFlag(ty(meta.ConstLRef), false, meta.MethodAll))
	assert.Equal(t, meta.MethodAll, resolver.ObjectFlag(ty(meta.LRef), false, meta.MethodAll))
	assert.Equal(t, meta.MethodConst, resolver.ObjectFlag(ty(meta.Const), false, meta.MethodConst|meta.MethodVariable))
}
