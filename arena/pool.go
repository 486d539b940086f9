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

// Package arena provides a synchronized, pooled memory resource for raw
// object storage.
//
// Raw blocks from Allocate live in byte chunks that the garbage collector
// does not scan: objects placed there must not hold the only reference to
// Go heap memory. Blocks from AllocateType are typed Go values that the
// collector scans; the Pool keeps them reachable until they are returned.
package arena

import (
	"math/bits"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"dirpx.dev/refl/apis"
)

const (
	// DefaultChunkSize is the size of each backing chunk.
	DefaultChunkSize = 64 << 10
	// DefaultMaxPooledSize is the largest block served from chunks and recycled.
	DefaultMaxPooledSize = 4 << 10

	minClass = 8
	maxAlign = 4 << 10
)

// zerobase is returned for zero-sized allocations.
var zerobase uintptr

// Pool is an apis.Arena backed by size-classed free lists over bump-allocated
// chunks. Blocks larger than the pooled limit get dedicated storage.
// A Pool is safe for concurrent use.
type Pool struct {
	mu        sync.Mutex
	chunkSize uintptr
	maxPooled uintptr
	zeroFill  bool

	chunks [][]byte
	cur    []byte
	off    uintptr
	free   map[classKey][]unsafe.Pointer
	large  map[unsafe.Pointer][]byte
	// typed holds live typed blocks, typedFree the returned ones.
	typed     map[unsafe.Pointer]reflect.Type
	typedFree map[reflect.Type][]unsafe.Pointer

	outstanding atomic.Int64
}

type classKey struct {
	size, align uintptr
}

// Ensure Pool implements apis.TypedArena.
var _ apis.TypedArena = (*Pool)(nil)

// Option configures a Pool.
type Option func(*Pool)

// WithChunkSize sets the backing chunk size. Non-positive values keep the default.
func WithChunkSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.chunkSize = uintptr(n)
		}
	}
}

// WithMaxPooledSize sets the largest block served from chunks. Non-positive values keep the default.
func WithMaxPooledSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxPooled = uintptr(n)
		}
	}
}

// WithZeroFill controls whether recycled blocks are cleared before reuse.
func WithZeroFill(zero bool) Option {
	return func(p *Pool) {
		p.zeroFill = zero
	}
}

// New creates an empty Pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		chunkSize: DefaultChunkSize,
		maxPooled: DefaultMaxPooledSize,
		zeroFill:  true,
		free:      make(map[classKey][]unsafe.Pointer),
		large:     make(map[unsafe.Pointer][]byte),
		typed:     make(map[unsafe.Pointer]reflect.Type),
		typedFree: make(map[reflect.Type][]unsafe.Pointer),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxPooled > p.chunkSize {
		p.maxPooled = p.chunkSize
	}
	return p
}

// class rounds size up to a power of two no smaller than align.
func class(size, align uintptr) uintptr {
	c := max(size, align, minClass)
	return 1 << bits.Len(uint(c-1))
}

func normAlign(align uintptr) uintptr {
	if align == 0 || align&(align-1) != 0 {
		return minClass
	}
	return align
}

// Allocate returns size bytes aligned to align.
func (p *Pool) Allocate(size, align uintptr) unsafe.Pointer {
	p.outstanding.Add(1)
	if size == 0 {
		return unsafe.Pointer(&zerobase)
	}
	align = normAlign(align)

	p.mu.Lock()
	defer p.mu.Unlock()

	if size > p.maxPooled || align > maxAlign {
		buf := make([]byte, size+align)
		ptr := alignPtr(unsafe.Pointer(unsafe.SliceData(buf)), align)
		p.large[ptr] = buf
		return ptr
	}

	key := classKey{size: class(size, align), align: align}
	if list := p.free[key]; len(list) > 0 {
		ptr := list[len(list)-1]
		p.free[key] = list[:len(list)-1]
		if p.zeroFill {
			clear(unsafe.Slice((*byte)(ptr), key.size))
		}
		return ptr
	}
	return p.bump(key.size, align)
}

// bump carves a fresh block from the current chunk, starting a new one if needed.
func (p *Pool) bump(size, align uintptr) unsafe.Pointer {
	if p.cur != nil {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(p.cur)))
		start := alignUp(base+p.off, align) - base
		if start+size <= uintptr(len(p.cur)) {
			p.off = start + size
			return unsafe.Add(unsafe.Pointer(unsafe.SliceData(p.cur)), start)
		}
	}
	p.cur = make([]byte, max(p.chunkSize, size)+align)
	p.chunks = append(p.chunks, p.cur)
	ptr := alignPtr(unsafe.Pointer(unsafe.SliceData(p.cur)), align)
	p.off = uintptr(ptr) - uintptr(unsafe.Pointer(unsafe.SliceData(p.cur))) + size
	return ptr
}

// AllocateType returns zeroed storage for one value of t. Zero-sized
// types share the zero-size block of Allocate.
func (p *Pool) AllocateType(t reflect.Type) unsafe.Pointer {
	if t.Size() == 0 {
		return p.Allocate(0, uintptr(t.Align()))
	}
	p.outstanding.Add(1)

	p.mu.Lock()
	defer p.mu.Unlock()

	var ptr unsafe.Pointer
	if list := p.typedFree[t]; len(list) > 0 {
		ptr = list[len(list)-1]
		p.typedFree[t] = list[:len(list)-1]
	} else {
		ptr = reflect.New(t).UnsafePointer()
	}
	p.typed[ptr] = t
	return ptr
}

// Deallocate returns a block obtained from Allocate with the same size and
// align, or from AllocateType. Typed blocks are cleared on return so the
// values they referenced can be collected.
func (p *Pool) Deallocate(ptr unsafe.Pointer, size, align uintptr) {
	if ptr == nil {
		return
	}
	p.outstanding.Add(-1)
	if size == 0 {
		return
	}
	align = normAlign(align)

	p.mu.Lock()
	defer p.mu.Unlock()

	if t, ok := p.typed[ptr]; ok {
		delete(p.typed, ptr)
		reflect.NewAt(t, ptr).Elem().SetZero()
		p.typedFree[t] = append(p.typedFree[t], ptr)
		return
	}
	if _, ok := p.large[ptr]; ok {
		delete(p.large, ptr)
		return
	}
	key := classKey{size: class(size, align), align: align}
	p.free[key] = append(p.free[key], ptr)
}

// Outstanding returns the number of blocks allocated and not yet deallocated.
func (p *Pool) Outstanding() int {
	return int(p.outstanding.Load())
}

// Reset drops every chunk and free list. Blocks handed out earlier must not
// be used or deallocated afterwards.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = nil
	p.cur = nil
	p.off = 0
	p.free = make(map[classKey][]unsafe.Pointer)
	p.large = make(map[unsafe.Pointer][]byte)
	p.typed = make(map[unsafe.Pointer]reflect.Type)
	p.typedFree = make(map[reflect.Type][]unsafe.Pointer)
	p.outstanding.Store(0)
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

func alignPtr(p unsafe.Pointer, align uintptr) unsafe.Pointer {
	return unsafe.Add(p, alignUp(uintptr(p), align)-uintptr(p))
}
