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
	"reflect"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
)

type Base struct {
	X, B int64
}

type Derived struct {
	Base
	X, Y int64
}

// Non-virtual diamond: ND holds two copies of A.
type A struct{ Val int64 }
type N1 struct{ A }
type N2 struct {
	Pad int64
	A
}
type ND struct {
	N1
	N2
}

// Virtual diamond: VD shares one V between VB1 and VB2, located through
// the vbase slot at the start of each.
type V struct{ Val int64 }
type VB1 struct {
	vbase uintptr
	One   int64
}
type VB2 struct {
	vbase uintptr
	Two   int64
}
type VD struct {
	VB1
	VB2
	Own int64
	V
}

// Polymorphic hierarchy identified through headers.
type Shape struct {
	hdr  meta.Header
	Area float64
}
type Named struct {
	hdr  meta.Header
	Name int64
}
type Square struct {
	Shape
	Named
	Side float64
}

func names(ss ...string) []meta.Name { return meta.Names(ss...) }

func name(s string) meta.Name { return meta.NewName(s) }

func newManager(t *testing.T, opts ...registry.Option) *registry.Manager {
	t.Helper()
	return registry.New(config.DefaultConfig(), opts...)
}

func register[T any](t *testing.T, m *registry.Manager) meta.TypeID {
	t.Helper()
	id, err := m.Register(reflect.TypeFor[T]())
	require.NoError(t, err)
	return id
}

func field[T any](off uintptr) meta.FieldRecord {
	return builder.Field(builder.TypeOf[T](), off)
}

// registerVirtualDiamond registers VD by hand and returns a live VD whose
// vbase slots point at its V.
func registerVirtualDiamond(t *testing.T, m *registry.Manager) *VD {
	t.Helper()
	var d VD
	i64 := builder.ID[int64]()
	require.NotEqual(t, meta.TypeID{}, i64)

	vid, b1, b2, did := builder.ID[V](), builder.ID[VB1](), builder.ID[VB2](), builder.ID[VD]()
	require.True(t, m.RegisterType(vid, unsafe.Sizeof(d.V), unsafe.Alignof(d.V), false))
	require.True(t, m.AddField(vid, name("Val"), field[int64](0)))

	require.True(t, m.RegisterType(b1, unsafe.Sizeof(d.VB1), unsafe.Alignof(d.VB1), false))
	require.True(t, m.AddField(b1, name("One"), field[int64](unsafe.Offsetof(d.VB1.One))))
	require.True(t, m.AddBase(b1, builder.VirtualBaseAt(vid, 0)))

	require.True(t, m.RegisterType(b2, unsafe.Sizeof(d.VB2), unsafe.Alignof(d.VB2), false))
	require.True(t, m.AddField(b2, name("Two"), field[int64](unsafe.Offsetof(d.VB2.Two))))
	require.True(t, m.AddBase(b2, builder.VirtualBaseAt(vid, 0)))

	require.True(t, m.RegisterType(did, unsafe.Sizeof(d), unsafe.Alignof(d), false))
	require.True(t, m.AddBase(did, builder.Base(b1, unsafe.Offsetof(d.VB1))))
	require.True(t, m.AddBase(did, builder.Base(b2, unsafe.Offsetof(d.VB2))))
	require.True(t, m.AddField(did, name("Own"), field[int64](unsafe.Offsetof(d.Own))))

	d.VB1.vbase = unsafe.Offsetof(d.V) - unsafe.Offsetof(d.VB1)
	d.VB2.vbase = unsafe.Offsetof(d.V) - unsafe.Offsetof(d.VB2)
	return &d
}

// registerShapes registers the polymorphic Square hierarchy.
func registerShapes(t *testing.T, m *registry.Manager) (shape, named, square meta.TypeID) {
	t.Helper()
	var sq Square
	shape, named, square = builder.ID[Shape](), builder.ID[Named](), builder.ID[Square]()

	require.True(t, m.RegisterType(shape, unsafe.Sizeof(sq.Shape), unsafe.Alignof(sq.Shape), true))
	require.True(t, m.SetHeader(shape, 0))
	require.True(t, m.AddField(shape, name("Area"), field[float64](unsafe.Offsetof(sq.Shape.Area))))

	require.True(t, m.RegisterType(named, unsafe.Sizeof(sq.Named), unsafe.Alignof(sq.Named), true))
	require.True(t, m.SetHeader(named, 0))
	require.True(t, m.AddField(named, name("Name"), field[int64](unsafe.Offsetof(sq.Named.Name))))

	require.True(t, m.RegisterType(square, unsafe.Sizeof(sq), unsafe.Alignof(sq), true))
	require.True(t, m.AddBase(square, builder.Base(shape, unsafe.Offsetof(sq.Shape))))
	require.True(t, m.AddBase(square, builder.Base(named, unsafe.Offsetof(sq.Named))))
	require.True(t, m.AddField(square, name("Side"), field[float64](unsafe.Offsetof(sq.Side))))
	return shape, named, square
}

func fieldNames(fs []registry.FieldInfo) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Field.Name.String()
	}
	return out
}
