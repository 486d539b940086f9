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
	"iter"
	"slices"
	"unsafe"

	"go.uber.org/zap"

	"dirpx.dev/refl/meta"
)

// Node is one type or subobject visited by a traversal.
type Node struct {
	// Type is the node's type, qualified like the traversal root.
	Type   meta.Type
	Record *meta.TypeRecord
	// Ptr is the subobject address; nil for type-only traversals.
	Ptr   unsafe.Pointer
	Depth int
	// Virtual marks a node entered through a virtual relation.
	Virtual bool
	// Shared marks a node with a virtual relation anywhere on its path.
	Shared bool
}

// FieldInfo is a field together with the node declaring it.
type FieldInfo struct {
	Owner Node
	Field *meta.FieldRecord
}

// MethodInfo is a method together with the node declaring it.
type MethodInfo struct {
	Owner  Node
	Method *meta.MethodRecord
}

// VarInfo is a field bound to the object being traversed.
type VarInfo struct {
	Owner Node
	Field *meta.FieldRecord
	Var   meta.ObjectView
}

// walk visits t, then its bases in declaration order, depth first. A
// virtual base is visited once per walk however many paths reach it;
// non-virtual bases are visited once per path.
func (m *Manager) walk(t meta.Type, ptr unsafe.Pointer) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		r := m.records[t.ID]
		if r == nil {
			return
		}
		var shared map[meta.TypeID]bool
		var visit func(n Node) bool
		visit = func(n Node) bool {
			if !yield(n) {
				return false
			}
			if n.Depth >= m.cfg.MaxBaseDepth {
				m.log.Warn("base depth limit reached", zap.String("type", n.Record.ID.Name()), zap.Int("depth", n.Depth))
				return true
			}
			for _, b := range n.Record.Bases() {
				br := m.records[b.Base]
				if br == nil {
					continue
				}
				if b.Virtual {
					if shared[b.Base] {
						continue
					}
					if shared == nil {
						shared = make(map[meta.TypeID]bool)
					}
					shared[b.Base] = true
				}
				child := Node{
					Type:    meta.TypeOf(b.Base, n.Type.Mode),
					Record:  br,
					Ptr:     b.ToBase(n.Ptr),
					Depth:   n.Depth + 1,
					Virtual: b.Virtual,
					Shared:  n.Shared || b.Virtual,
				}
				if !visit(child) {
					return false
				}
			}
			return true
		}
		visit(Node{Type: t, Record: r, Ptr: ptr})
	}
}

// TypeTree yields t and its bases without an object.
func (m *Manager) TypeTree(t meta.Type) iter.Seq[Node] {
	return m.walk(t, nil)
}

// ObjectTree yields the object obj denotes and its base subobjects.
func (m *Manager) ObjectTree(obj meta.ObjectView) iter.Seq[Node] {
	obj = object(obj)
	if !obj.Valid() {
		return func(func(Node) bool) {}
	}
	return m.walk(obj.Type(), obj.Ptr())
}

// Fields yields every field matching flag on t and its bases.
func (m *Manager) Fields(t meta.Type, flag meta.FieldFlag) iter.Seq[FieldInfo] {
	return fieldsOf(m.TypeTree(t), flag)
}

func fieldsOf(nodes iter.Seq[Node], flag meta.FieldFlag) iter.Seq[FieldInfo] {
	return func(yield func(FieldInfo) bool) {
		for n := range nodes {
			for _, f := range n.Record.Fields() {
				if f.Flag.Has(flag) && !yield(FieldInfo{Owner: n, Field: f}) {
					return
				}
			}
		}
	}
}

// Methods yields every method matching flag on t and its bases.
// Constructors and destructors are not inherited: only t's own are yielded.
func (m *Manager) Methods(t meta.Type, flag meta.MethodFlag) iter.Seq[MethodInfo] {
	return func(yield func(MethodInfo) bool) {
		for n := range m.TypeTree(t) {
			for _, name := range n.Record.MethodNames() {
				if n.Depth > 0 && (name == meta.CtorName || name == meta.DtorName) {
					continue
				}
				for _, meth := range n.Record.Overloads(name) {
					if meth.Flag.Has(flag) && !yield(MethodInfo{Owner: n, Method: meth}) {
						return
					}
				}
			}
		}
	}
}

// Vars yields every field matching flag of the object obj denotes, bound
// to its storage.
func (m *Manager) Vars(obj meta.ObjectView, flag meta.FieldFlag) iter.Seq[VarInfo] {
	return func(yield func(VarInfo) bool) {
		for fi := range fieldsOf(m.ObjectTree(obj), flag) {
			v := fieldView(fi.Owner, fi.Field)
			if v.Valid() && !yield(VarInfo{Owner: fi.Owner, Field: fi.Field, Var: v}) {
				return
			}
		}
	}
}

// fieldView binds f to the subobject n. Value fields come back as lvalues,
// const when the field or an owning object is const. Reference fields are
// followed. Pointer and array fields come back as views of their slot.
func fieldView(n Node, f *meta.FieldRecord) meta.ObjectView {
	p := f.Ptr(n.Ptr)
	if p == nil {
		return meta.ObjectView{}
	}
	t := f.Type
	switch {
	case t.Mode.IsReference():
		p = *(*unsafe.Pointer)(p)
		if p == nil {
			return meta.ObjectView{}
		}
		if t.Mode.IsConst() {
			return meta.NewObjectView(t.With(meta.ConstLRef), p)
		}
		return meta.NewObjectView(t.With(meta.LRef), p)
	case t.Mode.IsIndirect():
		return meta.NewObjectView(t, p)
	case t.Mode.IsConst(), n.Type.Mode.IsConst() && f.Flag.Has(meta.FieldOwned):
		return meta.NewObjectView(t.With(meta.ConstLRef), p)
	}
	return meta.NewObjectView(t.With(meta.LRef), p)
}

func forEach[T any](seq iter.Seq[T], fn func(T) bool) bool {
	for v := range seq {
		if !fn(v) {
			return false
		}
	}
	return true
}

func find[T any](seq iter.Seq[T], pred func(T) bool) (T, bool) {
	for v := range seq {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// ForEachType calls fn for t and each base until fn returns false.
// It reports whether the traversal ran to completion.
func (m *Manager) ForEachType(t meta.Type, fn func(Node) bool) bool {
	return forEach(m.TypeTree(t), fn)
}

// GatherTypes returns t and its bases in visit order.
func (m *Manager) GatherTypes(t meta.Type) []Node {
	return slices.Collect(m.TypeTree(t))
}

// FindType returns the first node of t's tree satisfying pred.
func (m *Manager) FindType(t meta.Type, pred func(Node) bool) (Node, bool) {
	return find(m.TypeTree(t), pred)
}

// ForEachField calls fn for each field of t matching flag until fn returns false.
func (m *Manager) ForEachField(t meta.Type, flag meta.FieldFlag, fn func(FieldInfo) bool) bool {
	return forEach(m.Fields(t, flag), fn)
}

// GatherFields returns the fields of t matching flag in visit order.
func (m *Manager) GatherFields(t meta.Type, flag meta.FieldFlag) []FieldInfo {
	return slices.Collect(m.Fields(t, flag))
}

// FindField returns the first field called name. Fields of t shadow those of its bases.
func (m *Manager) FindField(t meta.Type, name meta.Name, flag meta.FieldFlag) (FieldInfo, bool) {
	return find(m.Fields(t, flag), func(fi FieldInfo) bool { return fi.Field.Name == name })
}

// ForEachMethod calls fn for each method of t matching flag until fn returns false.
func (m *Manager) ForEachMethod(t meta.Type, flag meta.MethodFlag, fn func(MethodInfo) bool) bool {
	return forEach(m.Methods(t, flag), fn)
}

// GatherMethods returns the methods of t matching flag in visit order.
func (m *Manager) GatherMethods(t meta.Type, flag meta.MethodFlag) []MethodInfo {
	return slices.Collect(m.Methods(t, flag))
}

// FindMethod returns the first overload called name.
func (m *Manager) FindMethod(t meta.Type, name meta.Name, flag meta.MethodFlag) (MethodInfo, bool) {
	return find(m.Methods(t, flag), func(mi MethodInfo) bool { return mi.Method.Name == name })
}

// ForEachVar calls fn for each bound field of obj until fn returns false.
func (m *Manager) ForEachVar(obj meta.ObjectView, flag meta.FieldFlag, fn func(VarInfo) bool) bool {
	return forEach(m.Vars(obj, flag), fn)
}

// GatherVars returns the bound fields of obj in visit order.
func (m *Manager) GatherVars(obj meta.ObjectView, flag meta.FieldFlag) []VarInfo {
	return slices.Collect(m.Vars(obj, flag))
}

// FindVar returns the first bound field of obj called name.
func (m *Manager) FindVar(obj meta.ObjectView, name meta.Name, flag meta.FieldFlag) (VarInfo, bool) {
	return find(m.Vars(obj, flag), func(vi VarInfo) bool { return vi.Field.Name == name })
}

// Var returns the field name of obj, or the empty view.
func (m *Manager) Var(obj meta.ObjectView, name meta.Name) meta.ObjectView {
	vi, _ := m.FindVar(obj, name, meta.FieldAll)
	return vi.Var
}

// BaseVar returns the field name declared on the first base subobject of
// type base. It picks one copy of a member duplicated by a non-virtual diamond.
func (m *Manager) BaseVar(obj meta.ObjectView, base meta.TypeID, name meta.Name) meta.ObjectView {
	n, ok := find(m.ObjectTree(obj), func(n Node) bool { return n.Record.ID == base })
	if !ok {
		return meta.ObjectView{}
	}
	f := n.Record.Field(name)
	if f == nil {
		return meta.ObjectView{}
	}
	return fieldView(n, f)
}

// ContainsBase reports whether base is a transitive base of t.
func (m *Manager) ContainsBase(t, base meta.TypeID) bool {
	_, ok := m.FindType(meta.ValueOf(t), func(n Node) bool { return n.Depth > 0 && n.Record.ID == base })
	return ok
}

// ContainsVirtualBase reports whether some type in t's tree derives
// virtually from base.
func (m *Manager) ContainsVirtualBase(t, base meta.TypeID) bool {
	_, ok := m.FindType(meta.ValueOf(t), func(n Node) bool {
		rel, ok := n.Record.Base(base)
		return ok && rel.Virtual
	})
	return ok
}

// ContainsField reports whether t or a base declares field name.
func (m *Manager) ContainsField(t meta.Type, name meta.Name, flag meta.FieldFlag) bool {
	_, ok := m.FindField(t, name, flag)
	return ok
}

// ContainsMethod reports whether t or a base declares method name.
func (m *Manager) ContainsMethod(t meta.Type, name meta.Name, flag meta.MethodFlag) bool {
	_, ok := m.FindMethod(t, name, flag)
	return ok
}
