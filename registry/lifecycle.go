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
	"dirpx.dev/refl/resolver"
)

// pickCtor selects the constructor of r for args. A type without
// constructors is default constructible and copyable by value; the nil
// record that comes back then means "zero fill" or "copy whole".
func pickCtor(r *meta.TypeRecord, args []meta.Type) (*meta.MethodRecord, bool) {
	ctors := r.Constructors()
	if len(ctors) == 0 {
		switch {
		case len(args) == 0:
			return nil, true
		case len(args) == 1 && args[0].ID == r.ID && !args[0].Mode.IsIndirect():
			return nil, true
		}
		return nil, false
	}
	c := resolver.Pick(ctors, meta.MethodVariable, args)
	return c, c != nil
}

func (m *Manager) defaultCtor(r *meta.TypeRecord) *meta.MethodRecord {
	return resolver.Pick(r.Constructors(), meta.MethodVariable, nil)
}

// copyCtor returns a constructor of r taking one reference to r, preferring
// a const reference. By-value copy constructors are never used for staging.
func copyCtor(r *meta.TypeRecord) *meta.MethodRecord {
	var fallback *meta.MethodRecord
	for _, c := range r.Constructors() {
		if len(c.Params) != 1 || c.Params[0].ID != r.ID {
			continue
		}
		switch c.Params[0].Mode {
		case meta.ConstLRef:
			return c
		case meta.LRef:
			if fallback == nil {
				fallback = c
			}
		}
	}
	return fallback
}

// copyConstruct builds a copy of src in dst.
func (m *Manager) copyConstruct(r *meta.TypeRecord, dst, src unsafe.Pointer) {
	if c := copyCtor(r); c != nil {
		c.Invoke(dst, nil, []unsafe.Pointer{src})
	} else {
		copyObject(r.GoType, dst, src, r.Size)
	}
	m.stamp(r, dst)
}

// initialize runs c on ptr with args, or the trivial lifecycle when c is
// nil, then stamps identity headers.
func (m *Manager) initialize(r *meta.TypeRecord, ptr unsafe.Pointer, c *meta.MethodRecord, args meta.ArgsView) {
	switch {
	case c != nil:
		m.construct(c, ptr, args)
	case len(args) == 1:
		copyObject(r.GoType, ptr, args[0].Ptr(), r.Size)
	default:
		zeroObject(r.GoType, ptr, r.Size)
	}
	m.stamp(r, ptr)
}

// construct runs constructor c on ptr. Staged arguments are released even
// if c panics.
func (m *Manager) construct(c *meta.MethodRecord, ptr unsafe.Pointer, args meta.ArgsView) {
	st := m.stage(c.Params, args, m.scratch)
	defer st.release()
	c.Invoke(ptr, nil, st.ptrs)
}

// destroy runs the destructor of r, if any. A nil record is a no-op.
func (m *Manager) destroy(r *meta.TypeRecord, ptr unsafe.Pointer) {
	if r == nil {
		return
	}
	if d := r.Destructor(); d != nil {
		d.Invoke(ptr, nil, nil)
	}
}

// stamp writes r's identity into every header of the complete object at ptr.
func (m *Manager) stamp(r *meta.TypeRecord, ptr unsafe.Pointer) {
	if r == nil || !r.Polymorphic || ptr == nil {
		return
	}
	for n := range m.walk(meta.TypeOf(r.ID, meta.LRef), ptr) {
		if !n.Record.HasHeader || n.Ptr == nil {
			continue
		}
		h := (*meta.Header)(unsafe.Add(n.Ptr, n.Record.HeaderOffset))
		h.Tag = r.Tag
		h.Top = uintptr(n.Ptr) - uintptr(ptr)
	}
}

// IsConstructible reports whether id can be constructed from args.
func (m *Manager) IsConstructible(id meta.TypeID, args []meta.Type) bool {
	r := m.records[id]
	if r == nil {
		return false
	}
	_, ok := pickCtor(r, args)
	return ok
}

// IsDefaultConstructible reports whether id can be constructed without arguments.
func (m *Manager) IsDefaultConstructible(id meta.TypeID) bool {
	return m.IsConstructible(id, nil)
}

// IsCopyConstructible reports whether id can be constructed from a const lvalue of itself.
func (m *Manager) IsCopyConstructible(id meta.TypeID) bool {
	return m.IsConstructible(id, []meta.Type{meta.TypeOf(id, meta.ConstLRef)})
}

// IsMoveConstructible reports whether id can be constructed from an rvalue of itself.
func (m *Manager) IsMoveConstructible(id meta.TypeID) bool {
	return m.IsConstructible(id, []meta.Type{meta.TypeOf(id, meta.RRef)})
}

// IsDestructible reports whether id is registered. Types without a
// destructor are trivially destructible.
func (m *Manager) IsDestructible(id meta.TypeID) bool {
	return m.records[id] != nil
}

// object resolves a view to the address of the object it denotes.
// Pointer views are followed; array views denote no single object.
func object(v meta.ObjectView) meta.ObjectView {
	switch {
	case v.Type().Mode.IsPointer():
		return v.Deref()
	case v.Type().Mode.IsArray():
		return meta.ObjectView{}
	}
	return v
}

// Construct runs the best matching constructor on the storage obj denotes.
func (m *Manager) Construct(obj meta.ObjectView, args meta.ArgsView) bool {
	obj = object(obj)
	if obj.Ptr() == nil || obj.IsConst() {
		return false
	}
	r := m.records[obj.Type().ID]
	if r == nil {
		return false
	}
	c, ok := pickCtor(r, args.Types())
	if !ok {
		return false
	}
	m.initialize(r, obj.Ptr(), c, args)
	return true
}

// Destruct runs the destructor on the object obj denotes, leaving its storage.
func (m *Manager) Destruct(obj meta.ObjectView) bool {
	obj = object(obj)
	if obj.Ptr() == nil {
		return false
	}
	r := m.records[obj.Type().ID]
	if r == nil {
		return false
	}
	m.destroy(r, obj.Ptr())
	return true
}

// MNew allocates an object of id from a and constructs it from args.
// It returns an lvalue view, or the empty view if no constructor matches.
func (m *Manager) MNew(id meta.TypeID, args meta.ArgsView, a apis.Arena) meta.ObjectView {
	r := m.records[id]
	if r == nil || a == nil {
		return meta.ObjectView{}
	}
	c, ok := pickCtor(r, args.Types())
	if !ok {
		return meta.ObjectView{}
	}
	b := allocObject(a, r)
	m.initialize(r, b.ptr, c, args)
	return meta.NewObjectView(meta.TypeOf(id, meta.LRef), b.ptr)
}

// MMakeShared is MNew returning an owning handle that destroys the object
// and returns its storage to a exactly once.
func (m *Manager) MMakeShared(id meta.TypeID, args meta.ArgsView, a apis.Arena) *meta.SharedObject {
	v := m.MNew(id, args, a)
	if !v.Valid() {
		return nil
	}
	r := m.records[id]
	return meta.NewSharedObject(v, m.releaser(r, block{ptr: v.Ptr(), size: r.Size, align: r.Align}, a))
}

// releaser returns the release function of a handle owning b. The record
// and the block are fixed when the handle is made. Once Clear has reset
// the arena b came from, releasing is a no-op.
func (m *Manager) releaser(r *meta.TypeRecord, b block, a apis.Arena) func(meta.ObjectView) {
	gen := m.gen.Load()
	return func(meta.ObjectView) {
		if m.gen.Load() != gen && m.resets(a) {
			return
		}
		m.destroy(r, b.ptr)
		b.free(a)
	}
}

// resets reports whether Clear resets a.
func (m *Manager) resets(a apis.Arena) bool {
	if _, ok := a.(apis.Resetter); !ok {
		return false
	}
	return sameArena(a, m.objects) || sameArena(a, m.scratch)
}

func sameArena(a, b apis.Arena) bool {
	t := reflect.TypeOf(a)
	return t == reflect.TypeOf(b) && t.Comparable() && a == b
}

// MDelete destroys a complete object obtained from MNew with the same arena
// and returns its storage.
func (m *Manager) MDelete(obj meta.ObjectView, a apis.Arena) bool {
	obj = object(obj)
	r := m.records[obj.Type().ID]
	if r == nil || obj.Ptr() == nil || a == nil {
		return false
	}
	m.destroy(r, obj.Ptr())
	a.Deallocate(obj.Ptr(), r.Size, r.Align)
	return true
}

// New is MNew on the default object arena.
func (m *Manager) New(id meta.TypeID, args meta.ArgsView) meta.ObjectView {
	return m.MNew(id, args, m.objects)
}

// MakeShared is MMakeShared on the default object arena.
func (m *Manager) MakeShared(id meta.TypeID, args meta.ArgsView) *meta.SharedObject {
	return m.MMakeShared(id, args, m.objects)
}

// Delete is MDelete on the default object arena.
func (m *Manager) Delete(obj meta.ObjectView) bool {
	return m.MDelete(obj, m.objects)
}
