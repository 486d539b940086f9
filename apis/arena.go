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

package apis

import (
	"reflect"
	"unsafe"
)

// Arena is a memory resource for raw object storage.
//
// Deallocate must receive the size and alignment passed to the Allocate
// call that produced the pointer. Arenas used from several goroutines must
// be safe for concurrent use.
type Arena interface {
	// Allocate returns at least size bytes aligned to align.
	Allocate(size, align uintptr) unsafe.Pointer
	// Deallocate returns a block to the arena.
	Deallocate(p unsafe.Pointer, size, align uintptr)
}

// Resetter is implemented by arenas that can drop all their storage at once.
type Resetter interface {
	Reset()
}

// TypedArena is an Arena that can also allocate storage for a Go type.
// Typed storage is scanned by the garbage collector, so pointers kept in it
// keep their targets alive. It is returned with Deallocate like any block.
type TypedArena interface {
	Arena
	// AllocateType returns zeroed storage for one value of t.
	AllocateType(t reflect.Type) unsafe.Pointer
}
