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

package registry_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/meta"
)

func TestStaticCast_RoundTrip(t *testing.T) {
	m := newManager(t)
	id := register[ND](t, m)
	n2 := builder.ID[N2]()
	d := &ND{}
	obj := meta.ViewOf(id, d)

	up := m.StaticCastDerivedToBase(obj, n2)
	require.True(t, up.Valid())
	assert.Equal(t, unsafe.Pointer(&d.N2), up.Ptr())
	assert.Equal(t, meta.TypeOf(n2, meta.LRef), up.Type())

	down := m.StaticCastBaseToDerived(up, id)
	assert.Equal(t, obj, down)

	// Two levels deep, through the second copy of A.
	a := m.StaticCastDerivedToBase(up, builder.ID[A]())
	assert.Equal(t, unsafe.Pointer(&d.N2.A), a.Ptr())
	assert.Equal(t, unsafe.Pointer(d), m.StaticCastBaseToDerived(m.StaticCastBaseToDerived(a, n2), id).Ptr())
}

func TestStaticCast_Dispatch(t *testing.T) {
	m := newManager(t)
	id := register[Derived](t, m)
	bid := builder.ID[Base]()
	d := &Derived{}
	obj := meta.ViewOf(id, d).AsConst()

	up := m.StaticCast(obj, bid)
	assert.Equal(t, meta.TypeOf(bid, meta.ConstLRef), up.Type())
	assert.Equal(t, unsafe.Pointer(&d.Base), up.Ptr())
	assert.Equal(t, obj, m.StaticCast(up, id))
	assert.Equal(t, obj, m.StaticCast(obj, id))

	assert.False(t, m.StaticCast(obj, builder.ID[Point]()).Valid(), "unrelated")
	assert.False(t, m.StaticCastBaseToDerived(obj, bid).Valid(), "wrong direction")
	assert.False(t, m.StaticCast(meta.NewObjectView(meta.TypeOf(id, meta.Pointer), unsafe.Pointer(&d)), bid).Valid(), "pointer slots are not cast")
}

func TestStaticCast_VirtualBase(t *testing.T) {
	m := newManager(t)
	d := registerVirtualDiamond(t, m)
	id, vid := builder.ID[VD](), builder.ID[V]()

	v := m.StaticCastDerivedToBase(meta.ViewOf(id, d), vid)
	require.True(t, v.Valid())
	assert.Equal(t, unsafe.Pointer(&d.V), v.Ptr())

	// Both paths reach the same subobject.
	viaB2 := m.StaticCastDerivedToBase(m.StaticCastDerivedToBase(meta.ViewOf(id, d), builder.ID[VB2]()), vid)
	assert.Equal(t, v.Ptr(), viaB2.Ptr())

	assert.False(t, m.StaticCastBaseToDerived(v, id).Valid(), "virtual relations have no static offset")
	assert.False(t, m.StaticCast(v, id).Valid())
}

func TestDynamicCast_Identity(t *testing.T) {
	m := newManager(t)
	shape, named, square := registerShapes(t, m)

	obj := m.New(square, nil)
	require.True(t, obj.Valid())
	defer m.Delete(obj)
	sq := (*Square)(obj.Ptr())

	asNamed := m.StaticCastDerivedToBase(obj, named)
	require.Equal(t, unsafe.Pointer(&sq.Named), asNamed.Ptr())

	full := m.Identify(asNamed)
	assert.Equal(t, meta.TypeOf(square, meta.LRef), full.Type())
	assert.Equal(t, obj.Ptr(), full.Ptr())

	assert.Equal(t, obj.Ptr(), m.DynamicCastBaseToDerived(asNamed, square).Ptr())
	assert.Equal(t, obj.Ptr(), m.DynamicCast(asNamed, square).Ptr())

	cross := m.DynamicCast(asNamed, shape)
	require.True(t, cross.Valid())
	assert.Equal(t, unsafe.Pointer(&sq.Shape), cross.Ptr())
	assert.Equal(t, meta.TypeOf(shape, meta.LRef), cross.Type())
}

func TestDynamicCast_WrongDynamicType(t *testing.T) {
	m := newManager(t)
	shape, _, square := registerShapes(t, m)

	plain := m.New(shape, nil)
	require.True(t, plain.Valid())
	defer m.Delete(plain)

	assert.Equal(t, plain, m.Identify(plain))
	assert.False(t, m.DynamicCast(plain, square).Valid(), "a Shape is not a Square")
	assert.True(t, m.StaticCast(plain, square).Valid(), "static casts trust the caller")
}

func TestDynamicCast_NonPolymorphicUsesStaticPath(t *testing.T) {
	m := newManager(t)
	id := register[Derived](t, m)
	d := &Derived{}
	up := m.StaticCast(meta.ViewOf(id, d), builder.ID[Base]())

	assert.False(t, m.Identify(up).Valid())
	assert.Equal(t, unsafe.Pointer(d), m.DynamicCast(up, id).Ptr())
}
