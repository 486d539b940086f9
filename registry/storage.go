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
package registry

import (
	"reflect"
	"unsafe"

	"dirpx.dev/refl/apis"
	"dirpx.dev/refl/meta"
)

var (
	pointerType = reflect.TypeFor[unsafe.Pointer]()
	sliceType   = reflect.TypeFor[[]byte]()
)

// block is one allocation together with what is needed to give it back.
type block struct {
	ptr         unsafe.Pointer
	size, align uintptr
}

func (b block) free(a apis.Arena) {
	a.Deallocate(b.ptr, b.size, b.align)
}

// goTypeOf returns the Go type an object of t is stored as, or nil when
// only its size is known. References and pointers are a pointer slot,
// arrays a slice header.
func (m *Manager) goTypeOf(t meta.Type) reflect.Type {
	switch {
	case t.Mode.IsReference(), t.Mode.IsPointer():
		return pointerType
	case t.Mode.IsArray():
		return sliceType
	}
	if r := m.records[t.ID]; r != nil {
		return r.GoType
	}
	return nil
}

// allocate takes storage for an object stored as gt from a. Typed arenas
// hand out storage the collector scans.
func allocate(a apis.Arena, gt reflect.Type, size, align uintptr) block {
	if ta, ok := a.(apis.TypedArena); ok && gt != nil && gt.Size() == size {
		return block{ptr: ta.AllocateType(gt), size: size, align: align}
	}
	return block{ptr: a.Allocate(size, align), size: size, align: align}
}

// allocObject allocates storage for one object of r.
func allocObject(a apis.Arena, r *meta.TypeRecord) block {
	return allocate(a, r.GoType, r.Size, r.Align)
}

// zeroObject clears size bytes at ptr, through gt when it is known.
func zeroObject(gt reflect.Type, ptr unsafe.Pointer, size uintptr) {
	if gt != nil && gt.Size() == size {
		reflect.NewAt(gt, ptr).Elem().SetZero()
		return
	}
	clear(unsafe.Slice((*byte)(ptr), size))
}

// copyObject copies size bytes from src to dst, through gt when it is known.
func copyObject(gt reflect.Type, dst, src unsafe.Pointer, size uintptr) {
	if gt != nil && gt.Size() == size {
		reflect.NewAt(gt, dst).Elem().Set(reflect.NewAt(gt, src).Elem())
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}
