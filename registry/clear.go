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
	"go.uber.org/zap"

	"dirpx.dev/refl/apis"
	"dirpx.dev/refl/meta"
)

// Clear empties the manager. Data goes in dependency order: field and
// method attributes, type attributes, dynamic field storage, the records,
// then the scratch and object arenas. Built-in types are registered again
// when the config asks for them.
//
// Objects allocated from the default arenas must not be used afterwards.
func (m *Manager) Clear() {
	types := len(m.order)
	m.gen.Add(1)

	for _, id := range m.order {
		r := m.records[id]
		for _, f := range r.Fields() {
			releaseAttrs(f.Attrs)
			f.Attrs = nil
		}
		for _, name := range r.MethodNames() {
			for _, meth := range r.Overloads(name) {
				releaseAttrs(meth.Attrs)
				meth.Attrs = nil
			}
		}
	}
	for _, id := range m.order {
		r := m.records[id]
		releaseAttrs(r.Attrs)
		r.Attrs = nil
	}
	for i := len(m.dynamic) - 1; i >= 0; i-- {
		m.release(m.dynamic[i])
	}
	m.dynamic = nil

	m.records = make(map[meta.TypeID]*meta.TypeRecord)
	m.order = nil
	m.tags = nil

	reset(m.scratch)
	reset(m.objects)

	if m.cfg.Builtins {
		m.registerBuiltins()
	}
	m.log.Info("registry cleared", zap.Int("types", types))
}

func releaseAttrs(set meta.AttrSet) {
	for _, v := range set {
		if r, ok := v.(meta.Releaser); ok {
			r.Release()
		}
	}
}

func reset(a apis.Arena) {
	if r, ok := a.(apis.Resetter); ok {
		r.Reset()
	}
}
