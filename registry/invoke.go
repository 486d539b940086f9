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
	"unsafe"

	"dirpx.dev/refl/apis"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/resolver"
)

// staging holds the argument pointers handed to an invoker and the
// temporaries built for by-value parameters bound to lvalues.
type staging struct {
	m     *Manager
	arena apis.Arena
	ptrs  []unsafe.Pointer
	temps []temp
}

type temp struct {
	rec *meta.TypeRecord
	block
}

// stage copies every argument whose binding scores resolver.Copy into
// storage from a. The caller must release the staging on every path.
func (m *Manager) stage(params []meta.Type, args meta.ArgsView, a apis.Arena) *staging {
	st := &staging{m: m, arena: a, ptrs: args.Ptrs()}
	for i, p := range params {
		if resolver.Score(p, args[i].Type()) != resolver.Copy {
			continue
		}
		r := m.records[p.ID]
		if r == nil {
			continue
		}
		b := allocObject(a, r)
		m.copyConstruct(r, b.ptr, st.ptrs[i])
		st.ptrs[i] = b.ptr
		st.temps = append(st.temps, temp{rec: r, block: b})
	}
	return st
}

// release destroys the temporaries in reverse order and frees them.
func (st *staging) release() {
	for i := len(st.temps) - 1; i >= 0; i-- {
		t := st.temps[i]
		st.m.destroy(t.rec, t.ptr)
		t.free(st.arena)
	}
	st.temps = nil
}

// target resolves the object a call runs on. A nil pointer view still
// names a type and reaches static methods.
func target(obj meta.ObjectView) (meta.Type, unsafe.Pointer, bool) {
	t := obj.Type()
	switch {
	case !t.Valid(), t.Mode.IsArray():
		return meta.Type{}, nil, false
	case t.Mode.IsPointer():
		if v := obj.Deref(); v.Valid() {
			return v.Type(), v.Ptr(), true
		}
		if t.Mode.IsConst() {
			return t.With(meta.ConstLRef), nil, true
		}
		return t.With(meta.LRef), nil, true
	}
	return t, obj.Ptr(), true
}

// lookup finds the first node of t's tree whose overload set name accepts args.
func (m *Manager) lookup(t meta.Type, ptr unsafe.Pointer, isNil bool, name meta.Name, args []meta.Type, flag meta.MethodFlag) (Node, *meta.MethodRecord, bool) {
	if name == meta.CtorName || name == meta.DtorName {
		return Node{}, nil, false
	}
	flag = resolver.ObjectFlag(t, isNil, flag)
	if flag == meta.MethodNone {
		return Node{}, nil, false
	}
	for n := range m.walk(t, ptr) {
		if c := resolver.Pick(n.Record.Overloads(name), flag, args); c != nil {
			return n, c, true
		}
	}
	return Node{}, nil, false
}

// IsInvocable returns the result type of the overload of name that an
// object of type t would call with args, or the zero Type.
func (m *Manager) IsInvocable(t meta.Type, name meta.Name, args []meta.Type, flag meta.MethodFlag) meta.Type {
	_, c, ok := m.lookup(t, nil, false, name, args, flag)
	if !ok {
		return meta.Type{}
	}
	return c.Result
}

// BInvoke calls name on obj with args, storing the result in result.
// result must be nil or large enough for the result; a reference result
// stores a pointer. By-value arguments that need a copy are staged in
// scratch and freed before BInvoke returns. It returns the result type, or
// the zero Type when nothing was called.
func (m *Manager) BInvoke(obj meta.ObjectView, name meta.Name, result unsafe.Pointer, args meta.ArgsView, scratch apis.Arena) meta.Type {
	t, ptr, ok := target(obj)
	if !ok {
		return meta.Type{}
	}
	n, c, ok := m.lookup(t, ptr, ptr == nil, name, args.Types(), meta.MethodAll)
	if !ok {
		return meta.Type{}
	}
	if scratch == nil {
		scratch = m.scratch
	}
	st := m.stage(c.Params, args, scratch)
	defer st.release()
	c.Invoke(receiver(n, c), result, st.ptrs)
	if !c.Result.Mode.IsIndirect() && !c.Result.Mode.IsReference() && result != nil {
		m.stamp(m.records[c.Result.ID], result)
	}
	return c.Result
}

func receiver(n Node, c *meta.MethodRecord) unsafe.Pointer {
	if c.Flag == meta.MethodStatic {
		return nil
	}
	return n.Ptr
}

// MInvoke calls name on obj with args. A by-value result is allocated from
// a and returned as an owning handle that destroys and frees it. A
// reference result comes back as a non-owning handle over the referenced
// storage, a void result as a handle typed meta.VoidType. MInvoke returns
// nil when nothing was called.
func (m *Manager) MInvoke(obj meta.ObjectView, name meta.Name, args meta.ArgsView, a apis.Arena) *meta.SharedObject {
	t, ptr, ok := target(obj)
	if !ok || a == nil {
		return nil
	}
	n, c, ok := m.lookup(t, ptr, ptr == nil, name, args.Types(), meta.MethodAll)
	if !ok {
		return nil
	}
	res := c.Result
	var size, align uintptr
	if !res.IsVoid() && !res.Mode.IsReference() {
		// AddMethod only accepts by-value results of registered types.
		if size, align, ok = m.layoutOf(res); !ok {
			return nil
		}
	}

	st := m.stage(c.Params, args, m.scratch)
	defer st.release()

	switch {
	case res.IsVoid():
		c.Invoke(receiver(n, c), nil, st.ptrs)
		return meta.NewSharedObject(meta.NewObjectView(meta.VoidType, nil), nil)
	case res.Mode.IsReference():
		var p unsafe.Pointer
		c.Invoke(receiver(n, c), unsafe.Pointer(&p), st.ptrs)
		return meta.NewSharedObject(meta.NewObjectView(res, p), nil)
	}

	b := allocate(a, m.goTypeOf(res), size, align)
	c.Invoke(receiver(n, c), b.ptr, st.ptrs)
	view := meta.NewObjectView(res, b.ptr)
	var r *meta.TypeRecord
	if !res.Mode.IsIndirect() {
		r = m.records[res.ID]
		m.stamp(r, b.ptr)
		if res.Mode.IsConst() {
			view = view.As(meta.ConstLRef)
		} else {
			view = view.As(meta.LRef)
		}
	}
	return meta.NewSharedObject(view, m.releaser(r, b, a))
}

// Invoke is MInvoke allocating results from the default object arena.
func (m *Manager) Invoke(obj meta.ObjectView, name meta.Name, args meta.ArgsView) *meta.SharedObject {
	return m.MInvoke(obj, name, args, m.objects)
}
