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

package arena_test

import (
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/refl/arena"
)

func TestPool_AlignmentAndReuse(t *testing.T) {
	p := arena.New(arena.WithChunkSize(256), arena.WithMaxPooledSize(64))

	for _, align := range []uintptr{1, 2, 4, 8, 16, 32} {
		ptr := p.Allocate(24, align)
		require.NotNil(t, ptr)
		assert.Zerof(t, uintptr(ptr)%align, "align %d", align)
	}

	a := p.Allocate(16, 8)
	*(*uint64)(a) = 0xdeadbeef
	p.Deallocate(a, 16, 8)
	b := p.Allocate(16, 8)
	assert.Equal(t, a, b, "freed block should be reused")
	assert.Zero(t, *(*uint64)(b), "reused block should be cleared")
}

func TestPool_NoZeroFill(t *testing.T) {
	p := arena.New(arena.WithZeroFill(false))
	a := p.Allocate(8, 8)
	*(*uint64)(a) = 42
	p.Deallocate(a, 8, 8)
	b := p.Allocate(8, 8)
	require.Equal(t, a, b)
	assert.Equal(t, uint64(42), *(*uint64)(b))
}

func TestPool_LargeBlocks(t *testing.T) {
	p := arena.New(arena.WithChunkSize(128), arena.WithMaxPooledSize(64))
	big := p.Allocate(1000, 64)
	require.NotNil(t, big)
	assert.Zero(t, uintptr(big)%64)
	buf := unsafe.Slice((*byte)(big), 1000)
	buf[999] = 1
	assert.Equal(t, 1, p.Outstanding())
	p.Deallocate(big, 1000, 64)
	assert.Equal(t, 0, p.Outstanding())
}

func TestPool_ChunkRollover(t *testing.T) {
	p := arena.New(arena.WithChunkSize(64), arena.WithMaxPooledSize(32))
	seen := map[unsafe.Pointer]bool{}
	for range 20 {
		ptr := p.Allocate(32, 8)
		assert.False(t, seen[ptr], "blocks must not overlap")
		seen[ptr] = true
	}
	assert.Equal(t, 20, p.Outstanding())
}

func TestPool_ZeroSize(t *testing.T) {
	p := arena.New()
	ptr := p.Allocate(0, 1)
	assert.NotNil(t, ptr)
	assert.Equal(t, 1, p.Outstanding())
	p.Deallocate(ptr, 0, 1)
	assert.Equal(t, 0, p.Outstanding())
}

type payload struct{ n [4]int64 }

type holder struct {
	P *payload
	N int64
}

func TestPool_TypedBlocksKeepReferents(t *testing.T) {
	p := arena.New()
	ht := reflect.TypeFor[holder]()
	var finalized atomic.Bool

	h := (*holder)(p.AllocateType(ht))
	require.NotNil(t, h)
	assert.Equal(t, holder{}, *h)
	func() {
		pl := &payload{}
		runtime.SetFinalizer(pl, func(*payload) { finalized.Store(true) })
		h.P, h.N = pl, 7
	}()
	for range 5 {
		runtime.GC()
	}
	time.Sleep(10 * time.Millisecond)
	assert.False(t, finalized.Load(), "typed blocks are scanned")
	assert.Equal(t, 1, p.Outstanding())

	ptr := unsafe.Pointer(h)
	p.Deallocate(ptr, ht.Size(), uintptr(ht.Align()))
	assert.Equal(t, 0, p.Outstanding())
	assert.Equal(t, holder{}, *h, "returned typed blocks are cleared")
	assert.Equal(t, ptr, p.AllocateType(ht), "typed blocks are reused per type")

	empty := p.AllocateType(reflect.TypeFor[struct{}]())
	assert.Equal(t, p.Allocate(0, 1), empty)
	assert.Equal(t, 3, p.Outstanding())

	p.Reset()
	assert.Equal(t, 0, p.Outstanding())
	assert.NotEqual(t, ptr, p.AllocateType(ht), "reset drops free typed blocks")
}

func TestPool_Reset(t *testing.T) {
	p := arena.New()
	for range 5 {
		p.Allocate(16, 8)
	}
	require.Equal(t, 5, p.Outstanding())
	p.Reset()
	assert.Equal(t, 0, p.Outstanding())
	assert.NotNil(t, p.Allocate(16, 8))
}

func TestPool_Concurrent(t *testing.T) {
	p := arena.New(arena.WithChunkSize(1024))
	const (
		workers = 8
		iters   = 500
	)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			size := uintptr(8 * (w + 1))
			for i := range iters {
				ptr := p.Allocate(size, 8)
				*(*uint64)(ptr) = uint64(i)
				if *(*uint64)(ptr) != uint64(i) {
					t.Errorf("block shared between goroutines")
				}
				p.Deallocate(ptr, size, 8)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, p.Outstanding())
}
