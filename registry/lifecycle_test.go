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

	"dirpx.dev/refl/arena"
	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
)

type Tracked struct {
	ID    int64
	State int64
}

type tracker struct {
	ctors, copies, dtors int
}

func registerTracked(t *testing.T, m *registry.Manager) (meta.TypeID, *tracker) {
	t.Helper()
	id := register[Tracked](t, m)
	tr := &tracker{}
	require.True(t, m.AddMethod(id, meta.CtorName, builder.Must(builder.Constructor(func(p *Tracked) {
		p.State = 1
		tr.ctors++
	}))))
	require.True(t, m.AddMethod(id, meta.CtorName, builder.Must(builder.Constructor(func(p *Tracked, id int64) {
		p.ID, p.State = id, 1
		tr.ctors++
	}))))
	require.True(t, m.AddMethod(id, meta.CtorName, builder.Must(builder.Constructor(func(dst, src *Tracked) {
		*dst = *src
		tr.copies++
	}, builder.Params(meta.ConstLRef)))))
	require.True(t, m.AddDestructor(id, func(obj unsafe.Pointer) {
		(*Tracked)(obj).State = -1
		tr.dtors++
	}))
	return id, tr
}

func TestLifecycle_MakeSharedBalance(t *testing.T) {
	pool := arena.New()
	m := newManager(t, registry.WithObjectArena(pool))
	id, tr := registerTracked(t, m)

	before := pool.Outstanding()
	const n = 100
	for range n {
		so := m.MakeShared(id, nil)
		require.NotNil(t, so)
		require.Equal(t, int64(1), (*Tracked)(so.Ptr()).State)
		so.Release()
	}
	assert.Equal(t, before, pool.Outstanding())
	assert.Equal(t, n, tr.ctors)
	assert.Equal(t, n, tr.dtors)
}

func TestLifecycle_NewDelete(t *testing.T) {
	m := newManager(t)
	id, tr := registerTracked(t, m)
	pool := arena.New()

	arg := int64(12)
	obj := m.MNew(id, meta.Args(i64View(&arg)), pool)
	require.True(t, obj.Valid())
	assert.Equal(t, meta.TypeOf(id, meta.LRef), obj.Type())
	assert.Equal(t, Tracked{ID: 12, State: 1}, *(*Tracked)(obj.Ptr()))
	assert.Equal(t, 1, pool.Outstanding())

	copied := m.MNew(id, meta.Args(obj.AsConst()), pool)
	require.True(t, copied.Valid())
	assert.Equal(t, 1, tr.copies)
	assert.Equal(t, int64(12), (*Tracked)(copied.Ptr()).ID)

	assert.True(t, m.MDelete(obj, pool))
	assert.True(t, m.MDelete(copied, pool))
	assert.Equal(t, 0, pool.Outstanding())
	assert.Equal(t, 2, tr.dtors)

	// No constructor takes a float64.
	f := 1.5
	assert.False(t, m.MNew(id, meta.Args(meta.ViewOf(builder.ID[float64](), &f)), pool).Valid())
	assert.Equal(t, 0, pool.Outstanding(), "nothing is allocated for a failed construction")
	assert.False(t, m.New(meta.NewTypeID("test.Missing"), nil).Valid())
}

func TestLifecycle_ConstructorPanicReleasesStaging(t *testing.T) {
	scratch := arena.New()
	m := newManager(t, registry.WithScratchArena(scratch))
	pid := register[Point](t, m)
	dtors := 0
	require.True(t, m.AddDestructor(pid, func(unsafe.Pointer) { dtors++ }))
	id := register[Tracked](t, m)
	require.True(t, m.AddMethod(id, meta.CtorName, builder.Must(builder.Constructor(func(*Tracked, Point) { panic("bad point") }))))

	var tr Tracked
	pt := Point{X: 1}
	assert.PanicsWithValue(t, "bad point", func() {
		m.Construct(meta.ViewOf(id, &tr), meta.Args(meta.ViewOf(pid, &pt)))
	})
	assert.Equal(t, 1, dtors, "the staged copy is destroyed")
	assert.Zero(t, scratch.Outstanding())
}

func TestLifecycle_DefaultPool(t *testing.T) {
	m := newManager(t)
	id, tr := registerTracked(t, m)
	pool := m.ObjectArena().(*arena.Pool)
	before := pool.Outstanding()

	obj := m.New(id, nil)
	require.True(t, obj.Valid())
	assert.Equal(t, before+1, pool.Outstanding())
	assert.True(t, m.Delete(obj))
	assert.Equal(t, before, pool.Outstanding())
	assert.Equal(t, 1, tr.dtors)
}

func TestLifecycle_TrivialTypes(t *testing.T) {
	m := newManager(t)
	id := register[Point](t, m)

	assert.True(t, m.IsDefaultConstructible(id))
	assert.True(t, m.IsCopyConstructible(id))
	assert.True(t, m.IsMoveConstructible(id))
	assert.True(t, m.IsDestructible(id))
	assert.False(t, m.IsConstructible(id, []meta.Type{builder.TypeOf[float64]()}))

	p := Point{X: 1, Y: 2}
	require.True(t, m.Construct(meta.ViewOf(id, &p), nil))
	assert.Equal(t, Point{}, p, "zero filled")

	src := Point{X: 3, Y: 4}
	require.True(t, m.Construct(meta.ViewOf(id, &p), meta.Args(meta.ViewOf(id, &src).AsConst())))
	assert.Equal(t, src, p, "copied whole")

	assert.False(t, m.Construct(meta.ViewOf(id, &p).AsConst(), nil), "const storage")
	assert.True(t, m.Destruct(meta.ViewOf(id, &p)))
	assert.False(t, m.IsDestructible(meta.NewTypeID("test.Missing")))
}

func TestLifecycle_Queries(t *testing.T) {
	m := newManager(t)
	id, tr := registerTracked(t, m)

	assert.True(t, m.IsDefaultConstructible(id))
	assert.True(t, m.IsConstructible(id, []meta.Type{builder.TypeOf[int64]()}))
	assert.True(t, m.IsCopyConstructible(id))
	assert.True(t, m.IsMoveConstructible(id), "an rvalue binds to the const reference")
	assert.False(t, m.IsConstructible(id, []meta.Type{builder.TypeOf[int64](), builder.TypeOf[int64]()}))

	var obj Tracked
	require.True(t, m.Construct(meta.ViewOf(id, &obj), nil))
	assert.Equal(t, int64(1), obj.State)
	require.True(t, m.Destruct(meta.ViewOf(id, &obj)))
	assert.Equal(t, int64(-1), obj.State)
	assert.Equal(t, 1, tr.ctors)
}

func TestLifecycle_PolymorphicStamp(t *testing.T) {
	m := newManager(t)
	shape, named, square := registerShapes(t, m)

	obj := m.New(square, nil)
	require.True(t, obj.Valid())
	sq := (*Square)(obj.Ptr())
	assert.Equal(t, m.Record(square).Tag, sq.Shape.hdr.Tag)
	assert.Equal(t, m.Record(square).Tag, sq.Named.hdr.Tag)
	assert.Zero(t, sq.Shape.hdr.Top)
	assert.Equal(t, unsafe.Offsetof(sq.Named), sq.Named.hdr.Top)

	plain := m.New(shape, nil)
	assert.Equal(t, m.Record(shape).Tag, (*Shape)(plain.Ptr()).hdr.Tag)
	assert.NotEqual(t, m.Record(shape).Tag, m.Record(named).Tag)

	assert.True(t, m.Delete(obj))
	assert.True(t, m.Delete(plain))
}
