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
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"dirpx.dev/refl/meta"
)

var (
	// ErrNotStruct is returned when a struct type is required.
	ErrNotStruct = errors.New("refl(builder): not a struct type")
	// ErrNoSuchField is returned when a struct has no field of the given name.
	ErrNoSuchField = errors.New("refl(builder): no such field")
	// ErrUnsupportedType is returned for Go kinds without raw-memory representation.
	ErrUnsupportedType = errors.New("refl(builder): unsupported type")
)

// Field returns an instance field at a fixed offset.
func Field(t meta.Type, offset uintptr) meta.FieldRecord {
	return meta.FieldRecord{Type: t, Offset: offset, Flag: meta.FieldBasic}
}

// VirtualField returns an instance field reached through acc.
func VirtualField(t meta.Type, acc meta.Accessor) meta.FieldRecord {
	return meta.FieldRecord{Type: t, Accessor: acc, Flag: meta.FieldVirtual}
}

// StaticField returns a field stored at addr, outside any object.
func StaticField(t meta.Type, addr unsafe.Pointer) meta.FieldRecord {
	return meta.FieldRecord{Type: t, Addr: addr, Flag: meta.FieldStatic}
}

// StaticVar returns a static field over the Go variable *p.
func StaticVar[T any](p *T) meta.FieldRecord {
	return StaticField(TypeOf[T](), unsafe.Pointer(p))
}

// FieldOf returns the instance field name of the struct type st.
func FieldOf(st reflect.Type, name string) (meta.FieldRecord, error) {
	if st == nil || st.Kind() != reflect.Struct {
		return meta.FieldRecord{}, fmt.Errorf("%w: %v", ErrNotStruct, st)
	}
	sf, ok := st.FieldByName(name)
	if !ok || len(sf.Index) != 1 {
		return meta.FieldRecord{}, fmt.Errorf("%w: %v.%s", ErrNoSuchField, st, name)
	}
	t := TypeFor(sf.Type)
	if !t.Valid() {
		return meta.FieldRecord{}, fmt.Errorf("%w: %v.%s is %v", ErrUnsupportedType, st, name, sf.Type)
	}
	return Field(t, sf.Offset), nil
}

// Base returns a non-virtual relation to base at offset.
func Base(base meta.TypeID, offset uintptr) meta.BaseRelation {
	return meta.BaseRelation{Base: base, Offset: offset}
}

// VirtualBase returns a virtual relation resolved by fn.
func VirtualBase(base meta.TypeID, fn meta.OffsetFunc) meta.BaseRelation {
	return meta.BaseRelation{Base: base, Virtual: true, OffsetFunc: fn}
}

// VirtualBaseAt returns a virtual relation whose offset each derived
// object stores as a uintptr at slot.
func VirtualBaseAt(base meta.TypeID, slot uintptr) meta.BaseRelation {
	return VirtualBase(base, func(derived unsafe.Pointer) uintptr {
		return *(*uintptr)(unsafe.Add(derived, slot))
	})
}
