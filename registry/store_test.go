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
	"slices"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
)

func TestNew_Builtins(t *testing.T) {
	m := newManager(t)
	for _, id := range []meta.TypeID{builder.ID[int](), builder.ID[float64](), builder.ID[string](), builder.ID[bool]()} {
		require.NotNil(t, m.Record(id), id.Name())
	}
	assert.Equal(t, unsafe.Sizeof(int64(0)), m.Record(builder.ID[int64]()).Size)

	bare := registry.New(config.NewConfig(config.WithBuiltins(false)))
	assert.Equal(t, 0, bare.Len())
	assert.NotEqual(t, m.ID(), bare.ID())
}

func TestRegisterType(t *testing.T) {
	m := registry.New(config.NewConfig(config.WithBuiltins(false)))
	id := meta.NewTypeID("test.T")

	require.True(t, m.RegisterType(id, 16, 8, false))
	assert.True(t, m.RegisterType(id, 16, 8, false), "same layout is idempotent")
	assert.False(t, m.RegisterType(id, 24, 8, false), "conflicting layout")
	assert.False(t, m.RegisterType(meta.NewTypeID("test.U"), 8, 3, false), "alignment must be a power of two")
	assert.False(t, m.RegisterType(meta.TypeID{}, 8, 8, false))

	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "test.T", m.TypeName(id))
	assert.Empty(t, m.TypeName(meta.NewTypeID("test.U")))
	assert.Equal(t, []meta.TypeID{id}, slices.Collect(m.Registered()))
	assert.Equal(t, uint32(1), m.Record(id).Tag)
}

func TestSetHeader(t *testing.T) {
	m := newManager(t)
	poly, plain := meta.NewTypeID("test.Poly"), meta.NewTypeID("test.Plain")
	require.True(t, m.RegisterType(poly, 32, 8, true))
	require.True(t, m.RegisterType(plain, 32, 8, false))

	assert.False(t, m.SetHeader(plain, 0))
	assert.False(t, m.SetHeader(poly, 20), "header past the end")
	assert.False(t, m.SetHeader(poly, 4), "misaligned header")
	assert.False(t, m.SetHeader(meta.NewTypeID("test.Missing"), 0))
	require.True(t, m.SetHeader(poly, 16))
	assert.True(t, m.Record(poly).HasHeader)
	assert.Equal(t, uintptr(16), m.Record(poly).HeaderOffset)
}

func TestAddField(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := newManager(t, registry.WithLogger(zap.New(core)))
	id := meta.NewTypeID("test.T")
	require.True(t, m.RegisterType(id, 16, 8, false))

	require.True(t, m.AddField(id, name("a"), field[int64](0)))
	assert.False(t, m.AddField(id, name("a"), field[int64](8)), "duplicate name")
	assert.False(t, m.AddField(meta.NewTypeID("test.Missing"), name("a"), field[int64](0)))
	assert.False(t, m.AddField(id, name("v"), builder.VirtualField(builder.TypeOf[int64](), nil)))
	assert.False(t, m.AddField(id, name("s"), builder.StaticField(builder.TypeOf[int64](), nil)))
	assert.False(t, m.AddField(id, name("bad"), meta.FieldRecord{Type: builder.TypeOf[int64](), Flag: meta.FieldOwned}))
	assert.False(t, m.AddField(id, name("void"), meta.FieldRecord{Type: meta.VoidType, Flag: meta.FieldBasic}))

	// The first registration survives the duplicate.
	assert.Equal(t, uintptr(0), m.Record(id).Field(name("a")).Offset)

	dups := logs.FilterMessage("duplicate field").All()
	require.Len(t, dups, 1)
	assert.Equal(t, "test.T", dups[0].ContextMap()["type"])
	assert.Equal(t, m.ID().String(), dups[0].ContextMap()["manager"])
}

func TestAddMethod(t *testing.T) {
	m := newManager(t)
	id := register[Base](t, m)
	sum := builder.Must(builder.ConstMember(func(b *Base) int64 { return b.X + b.B }))

	require.True(t, m.AddMethod(id, name("Sum"), sum))
	assert.False(t, m.AddMethod(id, name("Sum"), sum), "duplicate signature")

	scaled := builder.Must(builder.ConstMember(func(b *Base, k int64) int64 { return (b.X + b.B) * k }))
	require.True(t, m.AddMethod(id, name("Sum"), scaled))
	assert.Len(t, m.Record(id).Overloads(name("Sum")), 2)

	// Constructors must be void mutating members, destructors unique.
	assert.False(t, m.AddMethod(id, meta.CtorName, sum))
	require.True(t, m.AddDestructor(id, func(unsafe.Pointer) {}))
	assert.False(t, m.AddDestructor(id, func(unsafe.Pointer) {}))
	assert.False(t, m.AddDestructor(id, nil))

	bad := sum
	bad.Params = []meta.Type{{}}
	assert.False(t, m.AddMethod(id, name("Bad"), bad))

	// By-value results need a registered type; pointers do not.
	self := meta.TypeOf(id, meta.LRef)
	assert.False(t, m.AddMethod(id, name("Origin"), builder.Must(builder.Static(func() Point { return Point{} }))))
	assert.False(t, m.IsInvocable(self, name("Origin"), nil, meta.MethodAll).Valid())
	require.True(t, m.AddMethod(id, name("Nowhere"), builder.Must(builder.Static(func() *Point { return nil }))))
	assert.Equal(t, builder.TypeOf[*Point](), m.IsInvocable(self, name("Nowhere"), nil, meta.MethodAll))
}

func TestAddBase(t *testing.T) {
	m := newManager(t)
	a, b, c := meta.NewTypeID("test.A"), meta.NewTypeID("test.B"), meta.NewTypeID("test.C")
	for _, id := range []meta.TypeID{a, b, c} {
		require.True(t, m.RegisterType(id, 8, 8, false))
	}
	require.True(t, m.AddBase(b, builder.Base(a, 0)))
	require.True(t, m.AddBase(c, builder.Base(b, 0)))

	assert.False(t, m.AddBase(c, builder.Base(b, 0)), "duplicate base")
	assert.False(t, m.AddBase(a, builder.Base(c, 0)), "cycle")
	assert.False(t, m.AddBase(a, builder.Base(a, 0)), "self edge")
	assert.False(t, m.AddBase(a, builder.Base(meta.NewTypeID("test.Missing"), 0)))
	assert.False(t, m.AddBase(a, builder.VirtualBase(b, nil)), "virtual base needs an offset function")
}

type released struct{ n *int }

func (r released) Release() { *r.n++ }

func TestAttributes(t *testing.T) {
	m := newManager(t)
	id := register[Base](t, m)
	key := name("json")
	sum := builder.Must(builder.ConstMember(func(b *Base) int64 { return b.X + b.B }))
	require.True(t, m.AddMethod(id, name("Sum"), sum))

	require.True(t, m.AddTypeAttr(id, key, "base"))
	assert.False(t, m.AddTypeAttr(id, key, "again"))
	require.True(t, m.AddFieldAttr(id, name("X"), key, "x"))
	assert.False(t, m.AddFieldAttr(id, name("Nope"), key, "x"))
	require.True(t, m.AddMethodAttr(id, name("Sum"), nil, key, "sum"))
	assert.False(t, m.AddMethodAttr(id, name("Sum"), []meta.Type{builder.TypeOf[int]()}, key, "sum"))

	r := m.Record(id)
	v, ok := r.Attrs.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "base", v)
	assert.True(t, r.Field(name("X")).Attrs.Has(key))
	assert.True(t, r.Overloads(name("Sum"))[0].Attrs.Has(key))
}

func TestAddDynamicField(t *testing.T) {
	m := newManager(t)
	id := register[Base](t, m)
	v := int64(42)

	require.True(t, m.AddDynamicField(id, name("Count"), builder.TypeOf[int64](), unsafe.Pointer(&v)))
	assert.False(t, m.AddDynamicField(id, name("Count"), builder.TypeOf[int64](), nil), "duplicate")
	assert.False(t, m.AddDynamicField(id, name("Ref"), meta.TypeOf(builder.ID[int64](), meta.LRef), nil))
	assert.False(t, m.AddDynamicField(id, name("Unknown"), meta.ValueOf(meta.NewTypeID("test.Missing")), nil))

	v = 7
	f := m.Record(id).Field(name("Count"))
	require.NotNil(t, f)
	assert.Equal(t, meta.FieldDynamic, f.Flag)
	assert.Equal(t, int64(42), *(*int64)(f.Ptr(nil)), "storage holds a copy")

	// Dynamic fields are shared by every object.
	var b1, b2 Base
	assert.Equal(t, m.Var(meta.ViewOf(id, &b1), name("Count")).Ptr(), m.Var(meta.ViewOf(id, &b2), name("Count")).Ptr())
}

func TestRegister_GoStruct(t *testing.T) {
	m := newManager(t)
	id := register[Derived](t, m)

	r := m.Record(id)
	require.NotNil(t, r)
	assert.Equal(t, reflect.TypeFor[Derived]().Size(), r.Size)
	require.Len(t, r.Bases(), 1)
	assert.Equal(t, builder.ID[Base](), r.Bases()[0].Base)
	assert.NotNil(t, m.Record(builder.ID[Base]()))

	again, err := m.Register(reflect.TypeFor[Derived]())
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = m.Register(reflect.TypeFor[map[int]int]())
	assert.ErrorIs(t, err, builder.ErrUnsupportedType)
}

func TestConvenienceConstructors(t *testing.T) {
	m := newManager(t)
	id := meta.NewTypeID("test.Blob")
	require.True(t, m.RegisterType(id, 16, 8, false))
	require.True(t, m.AddZeroDefaultConstructor(id))
	require.True(t, m.AddTrivialCopyConstructor(id))
	assert.False(t, m.AddTrivialDefaultConstructor(id), "same signature as the zero constructor")
	assert.False(t, m.AddZeroDefaultConstructor(meta.NewTypeID("test.Missing")))
	assert.Len(t, m.Record(id).Constructors(), 2)
}
