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
	"strconv"
	"unsafe"

	"go.uber.org/zap"

	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/meta"
)

// member is a base subobject or by-value field of a laid-out type.
type member struct {
	rec    *meta.TypeRecord
	offset uintptr
}

// RegisterLayout registers id by composing bases and fields sequentially:
// bases first, in order, then each field at the next offset aligned to its
// own alignment. The size is rounded up to the largest alignment.
//
// Bases must be registered, non-polymorphic and free of virtual bases.
// Field types held by value must be registered. The type receives a default
// constructor, a copy constructor and, if any member needs one, a
// destructor, each applied member-wise. When every member has a Go type and
// Go lays them out at the same offsets, the type is stored as the
// equivalent Go struct.
func (m *Manager) RegisterLayout(id meta.TypeID, bases []meta.TypeID, fieldTypes []meta.Type, fieldNames []meta.Name) bool {
	switch {
	case !id.Valid():
		return m.reject("invalid type id", id)
	case m.records[id] != nil:
		return m.reject("type already registered", id)
	case len(fieldTypes) != len(fieldNames):
		return m.reject("field names and types differ in length", id)
	}

	var (
		off      uintptr
		maxAlign uintptr = 1
		rels     = make([]meta.BaseRelation, 0, len(bases))
		fields   = make([]meta.FieldRecord, 0, len(fieldTypes))
		members  []member
		names    = make(map[meta.Name]bool, len(fieldNames))
		shape    = newShape(len(bases) + len(fieldTypes))
	)
	for _, b := range bases {
		br := m.records[b]
		switch {
		case br == nil:
			return m.reject("unknown base type", id, zap.String("base", b.Name()))
		case br.Polymorphic:
			return m.reject("polymorphic base in automatic layout", id, zap.String("base", b.Name()))
		case m.hasVirtualBase(b):
			return m.reject("base with virtual bases in automatic layout", id, zap.String("base", b.Name()))
		}
		off = alignUp(off, br.Align)
		rels = append(rels, builder.Base(b, off))
		members = append(members, member{rec: br, offset: off})
		shape.add(br.GoType, off)
		off += br.Size
		maxAlign = max(maxAlign, br.Align)
	}
	for i, ft := range fieldTypes {
		name := fieldNames[i]
		if !name.Valid() || names[name] {
			return m.reject("invalid or duplicate field name", id, zap.Stringer("field", name))
		}
		names[name] = true
		if !ft.Valid() || ft.IsVoid() || ft.Mode.IsArray() {
			return m.reject("invalid field type", id, zap.Stringer("field", name))
		}
		size, align, ok := m.layoutOf(ft)
		if !ok {
			return m.reject("unknown field type", id, zap.Stringer("field", name), zap.Stringer("field_type", ft))
		}
		off = alignUp(off, align)
		fields = append(fields, builder.Field(ft, off))
		if !ft.Mode.IsIndirect() && !ft.Mode.IsReference() {
			members = append(members, member{rec: m.records[ft.ID], offset: off})
		}
		shape.add(m.goTypeOf(ft), off)
		off += size
		maxAlign = max(maxAlign, align)
	}
	size := alignUp(off, maxAlign)

	if !m.RegisterType(id, size, maxAlign, false) {
		return false
	}
	r := m.records[id]
	r.GoType = shape.build(size, maxAlign)
	for _, rel := range rels {
		r.AddBase(rel)
	}
	for i := range fields {
		fields[i].Name = fieldNames[i]
		r.AddField(&fields[i])
	}
	m.synthesize(r, members)
	return true
}

// hasVirtualBase reports whether any base edge reachable from id is virtual.
func (m *Manager) hasVirtualBase(id meta.TypeID) bool {
	for n := range m.TypeTree(meta.ValueOf(id)) {
		if n.Virtual {
			return true
		}
	}
	return false
}

// shape collects the Go types of a layout's members.
type shape struct {
	fields  []reflect.StructField
	offsets []uintptr
	ok      bool
}

func newShape(n int) *shape {
	return &shape{fields: make([]reflect.StructField, 0, n), offsets: make([]uintptr, 0, n), ok: true}
}

func (s *shape) add(gt reflect.Type, off uintptr) {
	if gt == nil {
		s.ok = false
		return
	}
	s.fields = append(s.fields, reflect.StructField{Name: "M" + strconv.Itoa(len(s.fields)), Type: gt})
	s.offsets = append(s.offsets, off)
}

// build returns the Go struct of the collected members, or nil if a member
// had no Go type or the struct differs from the computed layout.
func (s *shape) build(size, align uintptr) reflect.Type {
	if !s.ok {
		return nil
	}
	st := reflect.StructOf(s.fields)
	if st.Size() != size || uintptr(st.Align()) != align {
		return nil
	}
	for i, off := range s.offsets {
		if st.Field(i).Offset != off {
			return nil
		}
	}
	return st
}

// synthesize declares the member-wise lifecycle of a laid-out type.
func (m *Manager) synthesize(r *meta.TypeRecord, members []member) {
	size, gt := r.Size, r.GoType
	r.AddMethod(&meta.MethodRecord{
		Name:   meta.CtorName,
		Result: meta.VoidType,
		Flag:   meta.MethodVariable,
		Invoke: func(obj, _ unsafe.Pointer, _ []unsafe.Pointer) {
			zeroObject(gt, obj, size)
			for _, mb := range members {
				m.initialize(mb.rec, unsafe.Add(obj, mb.offset), m.defaultCtor(mb.rec), nil)
			}
		},
	})
	r.AddMethod(&meta.MethodRecord{
		Name:   meta.CtorName,
		Params: []meta.Type{meta.TypeOf(r.ID, meta.ConstLRef)},
		Result: meta.VoidType,
		Flag:   meta.MethodVariable,
		Invoke: func(obj, _ unsafe.Pointer, args []unsafe.Pointer) {
			copyObject(gt, obj, args[0], size)
			for _, mb := range members {
				if copyCtor(mb.rec) != nil {
					m.copyConstruct(mb.rec, unsafe.Add(obj, mb.offset), unsafe.Add(args[0], mb.offset))
				}
			}
		},
	})

	needsDtor := false
	for _, mb := range members {
		if mb.rec.Destructor() != nil {
			needsDtor = true
			break
		}
	}
	if !needsDtor {
		return
	}
	r.AddMethod(&meta.MethodRecord{
		Name:   meta.DtorName,
		Result: meta.VoidType,
		Flag:   meta.MethodVariable,
		Invoke: func(obj, _ unsafe.Pointer, _ []unsafe.Pointer) {
			for i := len(members) - 1; i >= 0; i-- {
				mb := members[i]
				m.destroy(mb.rec, unsafe.Add(obj, mb.offset))
			}
		},
	})
}

func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
