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
	"errors"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"unsafe"

	"go.uber.org/zap"

	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/meta"
)

// ErrRejected is returned by Register when the store refuses a description.
var ErrRejected = errors.New("refl(registry): registration rejected")

var (
	ptrSize   = unsafe.Sizeof(unsafe.Pointer(nil))
	sliceSize = unsafe.Sizeof([]byte(nil))
)

// reject logs why a mutation was refused and returns false.
func (m *Manager) reject(reason string, id meta.TypeID, fields ...zap.Field) bool {
	m.log.Debug(reason, append([]zap.Field{zap.String("type", id.Name())}, fields...)...)
	return false
}

// Record returns the record of id, or nil.
func (m *Manager) Record(id meta.TypeID) *meta.TypeRecord {
	return m.records[id]
}

// Registered yields registered type ids in registration order.
func (m *Manager) Registered() iter.Seq[meta.TypeID] {
	return slices.Values(m.order)
}

// Len returns the number of registered types.
func (m *Manager) Len() int { return len(m.order) }

// TypeName returns the name of id if it is registered.
func (m *Manager) TypeName(id meta.TypeID) string {
	if m.records[id] == nil {
		return ""
	}
	return id.Name()
}

// RegisterType creates the record of id. Registering the same layout again
// succeeds without change; a different layout is rejected.
func (m *Manager) RegisterType(id meta.TypeID, size, align uintptr, polymorphic bool) bool {
	if !id.Valid() {
		return m.reject("invalid type id", id)
	}
	if align == 0 {
		align = 1
	}
	if align&(align-1) != 0 {
		return m.reject("alignment is not a power of two", id, zap.Uintptr("align", align))
	}
	if r := m.records[id]; r != nil {
		if r.Size == size && r.Align == align && r.Polymorphic == polymorphic {
			return true
		}
		return m.reject("conflicting layout", id,
			zap.Uintptr("size", size), zap.Uintptr("registered_size", r.Size))
	}
	r := meta.NewTypeRecord(id, size, align, polymorphic)
	m.tags = append(m.tags, id)
	r.Tag = uint32(len(m.tags))
	m.records[id] = r
	m.order = append(m.order, id)
	return true
}

// SetHeader declares where objects of a polymorphic type keep their
// identity header.
func (m *Manager) SetHeader(id meta.TypeID, offset uintptr) bool {
	r := m.records[id]
	switch {
	case r == nil:
		return m.reject("unknown type", id)
	case !r.Polymorphic:
		return m.reject("header on non-polymorphic type", id)
	case offset%unsafe.Alignof(meta.Header{}) != 0 || offset+meta.HeaderSize > r.Size:
		return m.reject("header does not fit", id, zap.Uintptr("offset", offset))
	}
	r.HasHeader, r.HeaderOffset = true, offset
	return true
}

// AddField declares field name on id.
func (m *Manager) AddField(id meta.TypeID, name meta.Name, f meta.FieldRecord) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	if !f.Type.Valid() || f.Type.IsVoid() {
		return m.reject("invalid field type", id, zap.Stringer("field", name))
	}
	switch f.Flag {
	case meta.FieldBasic:
	case meta.FieldVirtual:
		if f.Accessor == nil {
			return m.reject("virtual field without accessor", id, zap.Stringer("field", name))
		}
	case meta.FieldStatic, meta.FieldDynamic:
		if f.Addr == nil {
			return m.reject("unowned field without storage", id, zap.Stringer("field", name))
		}
	default:
		return m.reject("field needs exactly one kind flag", id, zap.Stringer("field", name))
	}
	f.Name = name
	if !r.AddField(&f) {
		return m.reject("duplicate field", id, zap.Stringer("field", name))
	}
	return true
}

// AddMethod adds meth to the overload set name of id. Constructors and the
// destructor are added under meta.CtorName and meta.DtorName.
func (m *Manager) AddMethod(id meta.TypeID, name meta.Name, meth meta.MethodRecord) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	if !meth.Result.Valid() || slices.ContainsFunc(meth.Params, func(p meta.Type) bool { return !p.Valid() || p.IsVoid() }) {
		return m.reject("invalid signature", id, zap.Stringer("method", name))
	}
	if res := meth.Result; res.Mode.IsByValue() && !res.IsVoid() && m.records[res.ID] == nil {
		return m.reject("unknown result type", id, zap.Stringer("method", name), zap.Stringer("result", res))
	}
	switch name {
	case meta.CtorName:
		if meth.Flag != meta.MethodVariable || !meth.Result.IsVoid() {
			return m.reject("constructor must be a void mutating member", id)
		}
	case meta.DtorName:
		if meth.Flag != meta.MethodVariable || len(meth.Params) != 0 || r.Destructor() != nil {
			return m.reject("invalid or duplicate destructor", id)
		}
	}
	meth.Name = name
	if !r.AddMethod(&meth) {
		return m.reject("duplicate signature", id, zap.Stringer("method", name))
	}
	return true
}

// AddBase relates derived to rel.Base. Both types must be registered and
// the edge must not close a cycle.
func (m *Manager) AddBase(derived meta.TypeID, rel meta.BaseRelation) bool {
	r := m.records[derived]
	switch {
	case r == nil:
		return m.reject("unknown derived type", derived)
	case m.records[rel.Base] == nil:
		return m.reject("unknown base type", derived, zap.String("base", rel.Base.Name()))
	case rel.Base == derived || m.reaches(rel.Base, derived):
		return m.reject("base cycle", derived, zap.String("base", rel.Base.Name()))
	case rel.Virtual && rel.OffsetFunc == nil:
		return m.reject("virtual base without offset function", derived, zap.String("base", rel.Base.Name()))
	}
	if !r.AddBase(rel) {
		return m.reject("duplicate base", derived, zap.String("base", rel.Base.Name()))
	}
	return true
}

// reaches reports whether to is from or one of its transitive bases.
func (m *Manager) reaches(from, to meta.TypeID) bool {
	seen := map[meta.TypeID]bool{}
	var visit func(id meta.TypeID) bool
	visit = func(id meta.TypeID) bool {
		if id == to {
			return true
		}
		if seen[id] {
			return false
		}
		seen[id] = true
		r := m.records[id]
		if r == nil {
			return false
		}
		for _, b := range r.Bases() {
			if visit(b.Base) {
				return true
			}
		}
		return false
	}
	return visit(from)
}

func addAttr(set *meta.AttrSet, key meta.Name, v any) bool {
	if !key.Valid() || set.Has(key) {
		return false
	}
	if *set == nil {
		*set = make(meta.AttrSet)
	}
	(*set)[key] = v
	return true
}

// AddTypeAttr attaches key=v to id.
func (m *Manager) AddTypeAttr(id meta.TypeID, key meta.Name, v any) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	if !addAttr(&r.Attrs, key, v) {
		return m.reject("duplicate attribute", id, zap.Stringer("attr", key))
	}
	return true
}

// AddFieldAttr attaches key=v to field of id.
func (m *Manager) AddFieldAttr(id meta.TypeID, field, key meta.Name, v any) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	f := r.Field(field)
	if f == nil {
		return m.reject("unknown field", id, zap.Stringer("field", field))
	}
	if !addAttr(&f.Attrs, key, v) {
		return m.reject("duplicate attribute", id, zap.Stringer("field", field), zap.Stringer("attr", key))
	}
	return true
}

// AddMethodAttr attaches key=v to the overload of name taking params.
func (m *Manager) AddMethodAttr(id meta.TypeID, name meta.Name, params []meta.Type, key meta.Name, v any) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	i := slices.IndexFunc(r.Overloads(name), func(o *meta.MethodRecord) bool {
		return slices.Equal(o.Params, params)
	})
	if i < 0 {
		return m.reject("unknown overload", id, zap.Stringer("method", name))
	}
	if !addAttr(&r.Overloads(name)[i].Attrs, key, v) {
		return m.reject("duplicate attribute", id, zap.Stringer("method", name), zap.Stringer("attr", key))
	}
	return true
}

// layoutOf returns the storage an object of t occupies. References and
// pointers take a pointer, arrays a slice header.
func (m *Manager) layoutOf(t meta.Type) (size, align uintptr, ok bool) {
	switch {
	case t.Mode.IsReference(), t.Mode.IsPointer():
		return ptrSize, ptrSize, true
	case t.Mode.IsArray():
		return sliceSize, ptrSize, true
	}
	r := m.records[t.ID]
	if r == nil {
		return 0, 0, false
	}
	return r.Size, r.Align, true
}

// AddDynamicField declares a field of id whose storage the manager owns.
// The storage comes from the object arena and holds a copy of *value, or a
// default-constructed object if value is nil. It lives until Clear.
func (m *Manager) AddDynamicField(id meta.TypeID, name meta.Name, t meta.Type, value unsafe.Pointer) bool {
	if m.records[id] == nil {
		return m.reject("unknown type", id)
	}
	if t.Mode.IsReference() {
		return m.reject("dynamic field of reference type", id, zap.Stringer("field", name))
	}
	size, align, ok := m.layoutOf(t)
	if !ok {
		return m.reject("dynamic field of unknown type", id, zap.Stringer("field", name))
	}
	if r := m.records[id]; r.Field(name) != nil {
		return m.reject("duplicate field", id, zap.Stringer("field", name))
	}
	gt := m.goTypeOf(t)
	b := allocate(m.objects, gt, size, align)
	switch {
	case t.Mode.IsIndirect() && value != nil:
		copyObject(gt, b.ptr, value, size)
	case t.Mode.IsIndirect():
		zeroObject(gt, b.ptr, size)
	case value != nil:
		m.copyConstruct(m.records[t.ID], b.ptr, value)
	default:
		r := m.records[t.ID]
		m.initialize(r, b.ptr, m.defaultCtor(r), nil)
	}
	slot := dynamicSlot{typ: t, block: b}
	if !m.AddField(id, name, meta.FieldRecord{Type: t, Addr: b.ptr, Flag: meta.FieldDynamic}) {
		m.release(slot)
		return false
	}
	m.dynamic = append(m.dynamic, slot)
	return true
}

// release destroys a dynamic field's value and returns its storage.
func (m *Manager) release(d dynamicSlot) {
	if !d.typ.Mode.IsIndirect() {
		m.destroy(m.records[d.typ.ID], d.ptr)
	}
	d.free(m.objects)
}

// AddTrivialDefaultConstructor declares a constructor that leaves storage as allocated.
func (m *Manager) AddTrivialDefaultConstructor(id meta.TypeID) bool {
	return m.AddMethod(id, meta.CtorName, builder.TrivialDefaultConstructor())
}

// AddZeroDefaultConstructor declares a constructor that zeroes the object.
// Types with a known Go type are zeroed with typed stores.
func (m *Manager) AddZeroDefaultConstructor(id meta.TypeID) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	if r.GoType != nil {
		return m.AddMethod(id, meta.CtorName, builder.ZeroConstructorOf(r.GoType))
	}
	return m.AddMethod(id, meta.CtorName, builder.ZeroDefaultConstructor(r.Size))
}

// AddTrivialCopyConstructor declares a copy constructor that copies the
// object whole, with typed stores when its Go type is known.
func (m *Manager) AddTrivialCopyConstructor(id meta.TypeID) bool {
	r := m.records[id]
	if r == nil {
		return m.reject("unknown type", id)
	}
	if r.GoType != nil {
		return m.AddMethod(id, meta.CtorName, builder.CopyConstructorOf(id, r.GoType))
	}
	return m.AddMethod(id, meta.CtorName, builder.TrivialCopyConstructor(id, r.Size))
}

// AddDestructor declares fn as the destructor of id.
func (m *Manager) AddDestructor(id meta.TypeID, fn func(obj unsafe.Pointer)) bool {
	if fn == nil {
		return m.reject("nil destructor", id)
	}
	return m.AddMethod(id, meta.DtorName, builder.DestructorFunc(fn))
}

// RegisterDesc registers a described Go layout with its fields and bases.
// A type that is already registered with the same layout is left as is.
func (m *Manager) RegisterDesc(d builder.Desc) bool {
	if m.records[d.ID] != nil {
		return m.RegisterType(d.ID, d.Size, d.Align, false)
	}
	if !m.RegisterType(d.ID, d.Size, d.Align, false) {
		return false
	}
	if d.GoType != nil && d.GoType.Size() == d.Size {
		m.records[d.ID].GoType = d.GoType
	}
	ok := true
	for _, b := range d.Bases {
		ok = m.AddBase(d.ID, b) && ok
	}
	for _, f := range d.Fields {
		ok = m.AddField(d.ID, f.Name, f.Field) && ok
	}
	return ok
}

// Register describes t and every type it holds by value, registering
// dependencies first. It returns the id of t.
func (m *Manager) Register(t reflect.Type) (meta.TypeID, error) {
	descs, err := builder.DescribeAll(t)
	if err != nil {
		return meta.TypeID{}, err
	}
	for _, d := range descs {
		if !m.RegisterDesc(d) {
			return meta.TypeID{}, fmt.Errorf("%w: %s", ErrRejected, d.ID)
		}
	}
	return descs[len(descs)-1].ID, nil
}
