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

package meta

import (
	"reflect"
	"slices"
	"unsafe"
)

// Invoker is the uniform calling convention every registered callable is
// normalized into.
//
// obj is the (possibly nil) object pointer. result is nil or a buffer large
// enough for the result: for reference results the invoker stores a pointer
// to the referenced storage, otherwise it constructs the value in place.
// args holds one pointer per declared parameter, in order: reference and
// by-value parameters point at the object, pointer and array parameters
// point at the pointer or array slot.
type Invoker func(obj, result unsafe.Pointer, args []unsafe.Pointer)

// Accessor maps an object address to the address of one of its fields.
type Accessor func(obj unsafe.Pointer) unsafe.Pointer

// OffsetFunc returns the distance from a derived object to one of its
// virtual base subobjects, read from the object itself.
type OffsetFunc func(derived unsafe.Pointer) uintptr

// Releaser is implemented by attribute values that own resources.
type Releaser interface {
	Release()
}

// AttrSet maps attribute names to values.
type AttrSet map[Name]any

// Get returns the attribute stored under name.
func (s AttrSet) Get(name Name) (any, bool) {
	v, ok := s[name]
	return v, ok
}

// Has reports whether name is present.
func (s AttrSet) Has(name Name) bool {
	_, ok := s[name]
	return ok
}

// FieldRecord describes one field.
type FieldRecord struct {
	Name Name
	Type Type
	// Offset from the owning object, used by FieldBasic.
	Offset uintptr
	// Accessor, used by FieldVirtual.
	Accessor Accessor
	// Addr is the storage of FieldStatic and FieldDynamic fields.
	Addr unsafe.Pointer
	Flag FieldFlag
	Attrs AttrSet
}

// Ptr returns the field's address inside obj.
// Unowned fields ignore obj; owned fields return nil for a nil obj.
func (f *FieldRecord) Ptr(obj unsafe.Pointer) unsafe.Pointer {
	switch {
	case f.Flag.Has(FieldUnowned):
		return f.Addr
	case obj == nil:
		return nil
	case f.Accessor != nil:
		return f.Accessor(obj)
	default:
		return unsafe.Add(obj, f.Offset)
	}
}

// MethodRecord describes one callable of an overload set.
type MethodRecord struct {
	Name   Name
	Params []Type
	Result Type
	Invoke Invoker
	Flag   MethodFlag
	Attrs  AttrSet
}

// SameSignature reports whether m and o take the same parameter types.
func (m *MethodRecord) SameSignature(o *MethodRecord) bool {
	return slices.Equal(m.Params, o.Params)
}

// BaseRelation is a derived-to-base edge.
type BaseRelation struct {
	Base TypeID
	// Offset of a non-virtual base subobject.
	Offset uintptr
	// Virtual marks a shared base subobject located through OffsetFunc.
	Virtual    bool
	OffsetFunc OffsetFunc
}

// ToBase adjusts a derived object address to the base subobject.
// A virtual relation needs a live object and returns nil for a nil derived.
func (b BaseRelation) ToBase(derived unsafe.Pointer) unsafe.Pointer {
	if derived == nil {
		return nil
	}
	if b.Virtual {
		if b.OffsetFunc == nil {
			return nil
		}
		return unsafe.Add(derived, b.OffsetFunc(derived))
	}
	return unsafe.Add(derived, b.Offset)
}

// Header is the identity slot of a polymorphic object.
// Tag names the most-derived type; Top is the distance from the complete
// object to the subobject holding this header.
type Header struct {
	Tag uint32
	_   uint32
	Top uintptr
}

// HeaderSize is the storage a Header occupies.
const HeaderSize = unsafe.Sizeof(Header{})

// TypeRecord is the registry entry for one unqualified type.
type TypeRecord struct {
	ID    TypeID
	Size  uintptr
	Align uintptr

	Polymorphic bool
	// HasHeader reports whether HeaderOffset locates a Header.
	HasHeader    bool
	HeaderOffset uintptr
	// Tag is the value stamped into headers of complete objects of this type.
	Tag uint32
	// GoType is the Go type objects are stored as, when one is known.
	// Its size matches Size.
	GoType reflect.Type

	Attrs AttrSet

	fields     []*FieldRecord
	fieldIndex map[Name]int
	methods    []Name
	overloads  map[Name][]*MethodRecord
	bases      []BaseRelation
}

// NewTypeRecord returns an empty record.
func NewTypeRecord(id TypeID, size, align uintptr, polymorphic bool) *TypeRecord {
	return &TypeRecord{
		ID:          id,
		Size:        size,
		Align:       align,
		Polymorphic: polymorphic,
		fieldIndex:  make(map[Name]int),
		overloads:   make(map[Name][]*MethodRecord),
	}
}

// Field returns the field named name declared directly on r.
func (r *TypeRecord) Field(name Name) *FieldRecord {
	i, ok := r.fieldIndex[name]
	if !ok {
		return nil
	}
	return r.fields[i]
}

// Fields returns the fields declared on r in declaration order.
func (r *TypeRecord) Fields() []*FieldRecord { return r.fields }

// AddField appends f. It reports false if the name is taken.
func (r *TypeRecord) AddField(f *FieldRecord) bool {
	if !f.Name.Valid() {
		return false
	}
	if _, dup := r.fieldIndex[f.Name]; dup {
		return false
	}
	r.fieldIndex[f.Name] = len(r.fields)
	r.fields = append(r.fields, f)
	return true
}

// Overloads returns the overload set named name, in declaration order.
func (r *TypeRecord) Overloads(name Name) []*MethodRecord {
	return r.overloads[name]
}

// MethodNames returns the names of r's overload sets in first-declaration order.
func (r *TypeRecord) MethodNames() []Name { return r.methods }

// AddMethod appends m to its overload set. It reports false if a method
// with the same parameter types already exists under that name.
func (r *TypeRecord) AddMethod(m *MethodRecord) bool {
	if !m.Name.Valid() || m.Invoke == nil {
		return false
	}
	set, ok := r.overloads[m.Name]
	for _, o := range set {
		if o.SameSignature(m) {
			return false
		}
	}
	if !ok {
		r.methods = append(r.methods, m.Name)
	}
	r.overloads[m.Name] = append(set, m)
	return true
}

// Bases returns r's direct base relations in declaration order.
func (r *TypeRecord) Bases() []BaseRelation { return r.bases }

// Base returns the direct relation to base.
func (r *TypeRecord) Base(base TypeID) (BaseRelation, bool) {
	for _, b := range r.bases {
		if b.Base == base {
			return b, true
		}
	}
	return BaseRelation{}, false
}

// AddBase appends b. It reports false if base is already a direct base.
func (r *TypeRecord) AddBase(b BaseRelation) bool {
	if _, dup := r.Base(b.Base); dup || !b.Base.Valid() {
		return false
	}
	r.bases = append(r.bases, b)
	return true
}

// Destructor returns the registered destructor, if any.
func (r *TypeRecord) Destructor() *MethodRecord {
	if set := r.overloads[DtorName]; len(set) > 0 {
		return set[0]
	}
	return nil
}

// Constructors returns the constructor overload set.
func (r *TypeRecord) Constructors() []*MethodRecord {
	return r.overloads[CtorName]
}
