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

	"dirpx.dev/refl/meta"
)

// basePath returns the relations leading from derived down to base, in
// order. Paths made of non-virtual relations only are preferred; with
// allowVirtual false no other path is considered.
func (m *Manager) basePath(derived, base meta.TypeID, allowVirtual bool) ([]meta.BaseRelation, bool) {
	var (
		path   []meta.BaseRelation
		search func(id meta.TypeID, virtual bool, depth int) bool
	)
	search = func(id meta.TypeID, virtual bool, depth int) bool {
		if id == base {
			return true
		}
		r := m.records[id]
		if r == nil || depth >= m.cfg.MaxBaseDepth {
			return false
		}
		for _, b := range r.Bases() {
			if b.Virtual && !virtual {
				continue
			}
			path = append(path, b)
			if search(b.Base, virtual, depth+1) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}
	if search(derived, false, 0) {
		return path, true
	}
	if allowVirtual && search(derived, true, 0) {
		return path, true
	}
	return nil, false
}

// castable reports whether v denotes an object rather than a pointer or
// array slot.
func castable(v meta.ObjectView) bool {
	return v.Valid() && !v.Type().Mode.IsIndirect()
}

// StaticCastDerivedToBase adjusts obj to its base subobject of type base.
// A virtual relation on the path is resolved through its offset function,
// which needs a live object.
func (m *Manager) StaticCastDerivedToBase(obj meta.ObjectView, base meta.TypeID) meta.ObjectView {
	if !castable(obj) {
		return meta.ObjectView{}
	}
	t := obj.Type()
	if t.ID == base {
		return obj
	}
	path, ok := m.basePath(t.ID, base, true)
	if !ok {
		return meta.ObjectView{}
	}
	p := obj.Ptr()
	for _, rel := range path {
		if rel.Virtual && p == nil {
			return meta.ObjectView{}
		}
		p = rel.ToBase(p)
	}
	return meta.NewObjectView(meta.TypeOf(base, t.Mode), p)
}

// StaticCastBaseToDerived adjusts a base subobject to the derived object
// containing it. Only non-virtual paths can be reversed statically.
func (m *Manager) StaticCastBaseToDerived(obj meta.ObjectView, derived meta.TypeID) meta.ObjectView {
	if !castable(obj) {
		return meta.ObjectView{}
	}
	t := obj.Type()
	if t.ID == derived {
		return obj
	}
	path, ok := m.basePath(derived, t.ID, false)
	if !ok {
		return meta.ObjectView{}
	}
	var off uintptr
	for _, rel := range path {
		off += rel.Offset
	}
	p := obj.Ptr()
	if p != nil {
		p = unsafe.Add(p, -int(off))
	}
	return meta.NewObjectView(meta.TypeOf(derived, t.Mode), p)
}

// Identify returns the complete object that obj is a part of, read from
// the first identity header in obj's tree. It returns the empty view for
// objects without a stamped header.
func (m *Manager) Identify(obj meta.ObjectView) meta.ObjectView {
	if !castable(obj) || obj.Ptr() == nil {
		return meta.ObjectView{}
	}
	for n := range m.ObjectTree(obj) {
		if !n.Record.HasHeader || n.Ptr == nil {
			continue
		}
		h := (*meta.Header)(unsafe.Add(n.Ptr, n.Record.HeaderOffset))
		if h.Tag == 0 || int(h.Tag) > len(m.tags) {
			return meta.ObjectView{}
		}
		id := m.tags[h.Tag-1]
		return meta.NewObjectView(meta.TypeOf(id, obj.Type().Mode), unsafe.Add(n.Ptr, -int(h.Top)))
	}
	return meta.ObjectView{}
}

// DynamicCastBaseToDerived adjusts obj to the derived subobject of type
// derived using the object's runtime identity. Objects without identity
// fall back to the static path.
func (m *Manager) DynamicCastBaseToDerived(obj meta.ObjectView, derived meta.TypeID) meta.ObjectView {
	if !castable(obj) {
		return meta.ObjectView{}
	}
	if full := m.Identify(obj); full.Valid() {
		return m.StaticCastDerivedToBase(full, derived)
	}
	return m.StaticCastBaseToDerived(obj, derived)
}

// StaticCast converts obj to target: upward along any path, downward
// along non-virtual relations only.
func (m *Manager) StaticCast(obj meta.ObjectView, target meta.TypeID) meta.ObjectView {
	if !castable(obj) {
		return meta.ObjectView{}
	}
	from := obj.Type().ID
	switch {
	case from == target:
		return obj
	case m.ContainsBase(from, target):
		return m.StaticCastDerivedToBase(obj, target)
	case m.ContainsBase(target, from):
		return m.StaticCastBaseToDerived(obj, target)
	}
	return meta.ObjectView{}
}

// DynamicCast converts obj to target. Upcasts and downcasts along
// non-virtual relations of non-polymorphic types take the static path;
// everything else, cross casts included, goes through the object's
// runtime identity.
func (m *Manager) DynamicCast(obj meta.ObjectView, target meta.TypeID) meta.ObjectView {
	if !castable(obj) {
		return meta.ObjectView{}
	}
	from := obj.Type().ID
	switch {
	case from == target:
		return obj
	case m.ContainsBase(from, target):
		return m.StaticCastDerivedToBase(obj, target)
	}
	if r := m.records[target]; r != nil && !r.Polymorphic {
		if _, ok := m.basePath(target, from, false); ok {
			return m.StaticCastBaseToDerived(obj, target)
		}
	}
	return m.DynamicCastBaseToDerived(obj, target)
}
