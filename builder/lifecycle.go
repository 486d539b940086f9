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

package builder

import (
	"reflect"
	"unsafe"

	"dirpx.dev/refl/meta"
)

// TrivialDefaultConstructor leaves the storage as allocated.
func TrivialDefaultConstructor() meta.MethodRecord {
	return meta.MethodRecord{
		Name:   meta.CtorName,
		Result: meta.VoidType,
		Invoke: func(_, _ unsafe.Pointer, _ []unsafe.Pointer) {},
		Flag:   meta.MethodVariable,
	}
}

// ZeroDefaultConstructor clears size bytes.
func ZeroDefaultConstructor(size uintptr) meta.MethodRecord {
	return meta.MethodRecord{
		Name:   meta.CtorName,
		Result: meta.VoidType,
		Invoke: func(obj, _ unsafe.Pointer, _ []unsafe.Pointer) {
			clear(unsafe.Slice((*byte)(obj), size))
		},
		Flag: meta.MethodVariable,
	}
}

// TrivialCopyConstructor copies size bytes from a const lvalue of id.
func TrivialCopyConstructor(id meta.TypeID, size uintptr) meta.MethodRecord {
	return meta.MethodRecord{
		Name:   meta.CtorName,
		Params: []meta.Type{meta.TypeOf(id, meta.ConstLRef)},
		Result: meta.VoidType,
		Invoke: func(obj, _ unsafe.Pointer, args []unsafe.Pointer) {
			copy(unsafe.Slice((*byte)(obj), size), unsafe.Slice((*byte)(args[0]), size))
		},
		Flag: meta.MethodVariable,
	}
}

// ZeroConstructorOf zeroes a value of t with typed stores.
func ZeroConstructorOf(t reflect.Type) meta.MethodRecord {
	return meta.MethodRecord{
		Name:   meta.CtorName,
		Result: meta.VoidType,
		Invoke: func(obj, _ unsafe.Pointer, _ []unsafe.Pointer) {
			reflect.NewAt(t, obj).Elem().SetZero()
		},
		Flag: meta.MethodVariable,
	}
}

// CopyConstructorOf assigns a const lvalue of id, stored as t, with typed
// stores.
func CopyConstructorOf(id meta.TypeID, t reflect.Type) meta.MethodRecord {
	return meta.MethodRecord{
		Name:   meta.CtorName,
		Params: []meta.Type{meta.TypeOf(id, meta.ConstLRef)},
		Result: meta.VoidType,
		Invoke: func(obj, _ unsafe.Pointer, args []unsafe.Pointer) {
			reflect.NewAt(t, obj).Elem().Set(reflect.NewAt(t, args[0]).Elem())
		},
		Flag: meta.MethodVariable,
	}
}

// DestructorFunc declares fn as a destructor.
func DestructorFunc(fn func(obj unsafe.Pointer)) meta.MethodRecord {
	return meta.MethodRecord{
		Name:   meta.DtorName,
		Result: meta.VoidType,
		Invoke: func(obj, _ unsafe.Pointer, _ []unsafe.Pointer) { fn(obj) },
		Flag:   meta.MethodVariable,
	}
}
