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
	"slices"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"dirpx.dev/refl/arena"
	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
)

func TestClear_Idempotent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := newManager(t, registry.WithLogger(zap.New(core)))
	builtins := slices.Collect(m.Registered())

	register[Derived](t, m)
	require.Greater(t, m.Len(), len(builtins))

	m.Clear()
	once := slices.Collect(m.Registered())
	m.Clear()
	twice := slices.Collect(m.Registered())

	assert.Equal(t, builtins, once)
	assert.Equal(t, once, twice)
	assert.Nil(t, m.Record(builder.ID[Derived]()))
	assert.Len(t, logs.FilterMessage("registry cleared").All(), 2)
}

func TestClear_FreshAfterwards(t *testing.T) {
	m := newManager(t)
	fresh := newManager(t)

	register[Derived](t, m)
	require.True(t, m.AddMethod(builder.ID[Base](), name("Sum"), builder.Must(builder.ConstMember(func(b *Base) int64 { return b.X + b.B }))))
	m.Clear()

	for _, mgr := range []*registry.Manager{m, fresh} {
		id := register[Derived](t, mgr)
		assert.False(t, mgr.ContainsMethod(meta.ValueOf(id), name("Sum"), meta.MethodAll))
		assert.Equal(t, fresh.Record(id).Tag, mgr.Record(id).Tag, "tags restart")
		d := &Derived{Y: 3}
		assert.Equal(t, unsafe.Pointer(&d.Y), mgr.Var(meta.ViewOf(id, d), name("Y")).Ptr())
	}
}

func TestClear_ReleasesOwnedData(t *testing.T) {
	pool := arena.New()
	m := registry.New(config.NewConfig(config.WithBuiltins(false)), registry.WithObjectArena(pool))
	id, tr := registerTracked(t, m)

	var typeRel, fieldRel, methodRel int
	key := name("owned")
	require.True(t, m.AddTypeAttr(id, key, released{&typeRel}))
	require.True(t, m.AddFieldAttr(id, name("ID"), key, released{&fieldRel}))
	require.True(t, m.AddMethodAttr(id, meta.CtorName, nil, key, released{&methodRel}))
	require.True(t, m.AddDynamicField(id, name("Default"), meta.ValueOf(id), nil))
	assert.Equal(t, 1, tr.ctors)
	assert.Equal(t, 1, pool.Outstanding())

	m.Clear()
	assert.Equal(t, 1, typeRel)
	assert.Equal(t, 1, fieldRel)
	assert.Equal(t, 1, methodRel)
	assert.Equal(t, 1, tr.dtors, "dynamic field storage is destroyed")
	assert.Equal(t, 0, pool.Outstanding())
	assert.Equal(t, 0, m.Len())

	m.Clear()
	assert.Equal(t, 1, typeRel, "released once")
}

func TestClear_StaleHandles(t *testing.T) {
	pool, own := arena.New(), arena.New()
	m := newManager(t, registry.WithObjectArena(pool))
	id := register[Point](t, m)
	dtors := 0
	require.True(t, m.AddDestructor(id, func(unsafe.Pointer) { dtors++ }))
	require.True(t, m.AddMethod(id, name("Origin"), builder.Must(builder.Static(func() Point { return Point{} }))))

	shared := m.MakeShared(id, nil)
	var p Point
	result := m.Invoke(meta.ViewOf(id, &p), name("Origin"), nil)
	owned := m.MMakeShared(id, nil, own)
	bid := register[Base](t, m)
	func() {
		require.NotNil(t, m.MakeShared(bid, nil))
	}()
	require.NotNil(t, shared)
	require.NotNil(t, result)
	require.NotNil(t, owned)

	m.Clear()
	id = register[Point](t, m)
	fresh := 0
	require.True(t, m.AddDestructor(id, func(unsafe.Pointer) { fresh++ }))
	collect()

	shared.Release()
	result.Release()
	assert.Equal(t, 0, pool.Outstanding(), "reset storage is not returned again")
	assert.Zero(t, fresh, "the new record's destructor does not run")
	assert.Zero(t, dtors)

	// Storage from a caller's arena is still destroyed and returned.
	owned.Release()
	assert.Equal(t, 1, dtors)
	assert.Zero(t, fresh)
	assert.Equal(t, 0, own.Outstanding())
}
