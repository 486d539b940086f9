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
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// ObjectView is a non-owning (Type, address) pair.
//
// For value and reference modes ptr points at the object. For pointer and
// array modes ptr points at the pointer or array slot.
type ObjectView struct {
	typ Type
	ptr unsafe.Pointer
}

// NewObjectView pairs t with ptr.
func NewObjectView(t Type, ptr unsafe.Pointer) ObjectView {
	return ObjectView{typ: t, ptr: ptr}
}

// ViewOf returns an LRef view of *p typed as id.
func ViewOf[T any](id TypeID, p *T) ObjectView {
	return ObjectView{typ: Type{ID: id, Mode: LRef}, ptr: unsafe.Pointer(p)}
}

// Type returns the view's type.
func (o ObjectView) Type() Type { return o.typ }

// Ptr returns the raw address.
func (o ObjectView) Ptr() unsafe.Pointer { return o.ptr }

// Valid reports whether o is not the empty view.
func (o ObjectView) Valid() bool { return o.typ.Valid() }

// IsConst reports whether o may only be read.
func (o ObjectView) IsConst() bool { return o.typ.Mode.IsConst() && !o.typ.Mode.IsIndirect() }

// As returns o requalified as m.
func (o ObjectView) As(m Mode) ObjectView {
	return ObjectView{typ: o.typ.With(m), ptr: o.ptr}
}

// AsConst returns a const view of the same object.
func (o ObjectView) AsConst() ObjectView { return o.As(o.typ.Mode.AddConst()) }

// AsRRef returns an rvalue view of the same object, licensing callees to move from it.
func (o ObjectView) AsRRef() ObjectView { return o.As(o.typ.Mode.AddRRef()) }

// Deref follows a pointer-mode view to the element it points at.
// It returns the empty view for non-pointer modes and nil pointers.
func (o ObjectView) Deref() ObjectView {
	if !o.typ.Mode.IsPointer() || o.ptr == nil {
		return ObjectView{}
	}
	elem := *(*unsafe.Pointer)(o.ptr)
	if elem == nil {
		return ObjectView{}
	}
	m := LRef
	if o.typ.Mode == ConstPointer {
		m = ConstLRef
	}
	return ObjectView{typ: Type{ID: o.typ.ID, Mode: m}, ptr: elem}
}

// String implements fmt.Stringer.
func (o ObjectView) String() string {
	return fmt.Sprintf("%s@%p", o.typ, o.ptr)
}

// ArgsView is an ordered sequence of call arguments.
type ArgsView []ObjectView

// Args builds an ArgsView.
func Args(views ...ObjectView) ArgsView { return views }

// Types returns the argument types.
func (a ArgsView) Types() []Type {
	out := make([]Type, len(a))
	for i, v := range a {
		out[i] = v.typ
	}
	return out
}

// Ptrs returns the argument addresses.
func (a ArgsView) Ptrs() []unsafe.Pointer {
	out := make([]unsafe.Pointer, len(a))
	for i, v := range a {
		out[i] = v.ptr
	}
	return out
}

// SharedObject is an owning handle over an ObjectView.
//
// The release action runs exactly once: on Release, or when the handle
// becomes unreachable. A SharedObject without a release action does not own
// its view. All methods are safe on a nil handle.
type SharedObject struct {
	view    ObjectView
	state   *sharedState
	cleanup runtime.Cleanup
}

type sharedState struct {
	once    sync.Once
	view    ObjectView
	release func(ObjectView)
}

func (s *sharedState) run() {
	s.once.Do(func() {
		if s.release != nil {
			s.release(s.view)
		}
	})
}

// NewSharedObject binds release to v. A nil release yields a non-owning handle.
func NewSharedObject(v ObjectView, release func(ObjectView)) *SharedObject {
	so := &SharedObject{view: v}
	if release == nil {
		return so
	}
	so.state = &sharedState{view: v, release: release}
	so.cleanup = runtime.AddCleanup(so, (*sharedState).run, so.state)
	return so
}

// View returns the underlying view.
func (s *SharedObject) View() ObjectView {
	if s == nil {
		return ObjectView{}
	}
	return s.view
}

// Type returns the object's type.
func (s *SharedObject) Type() Type { return s.View().typ }

// Ptr returns the object's address.
func (s *SharedObject) Ptr() unsafe.Pointer { return s.View().ptr }

// Valid reports whether s holds an object.
func (s *SharedObject) Valid() bool { return s.View().Valid() }

// Owning reports whether s runs a release action.
func (s *SharedObject) Owning() bool { return s != nil && s.state != nil }

// Release runs the release action if it has not run yet.
func (s *SharedObject) Release() {
	if s == nil || s.state == nil {
		return
	}
	s.cleanup.Stop()
	s.state.run()
}
