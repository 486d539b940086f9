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

package strategy

import (
	"errors"
	"reflect"
	"sync"

	"dirpx.dev/refl/apis"
)

var (
	// ErrNilType is returned when a nil reflect.Type is provided.
	ErrNilType = errors.New("refl(strategy): nil reflect.Type provided")
	// ErrEmptyName is returned when an empty name is provided.
	ErrEmptyName = errors.New("refl(strategy): empty name provided")
	// ErrConflictingRegistration indicates an attempt to re-register
	// a type with a different name.
	ErrConflictingRegistration = errors.New("refl(strategy): conflicting type alias")
)

// NewAliasTable constructs an empty apis.AliasTable.
func NewAliasTable() apis.AliasTable {
	return &aliasTable{}
}

// aliasTable is an AliasTable backed by sync.Map.
type aliasTable struct {
	// mu guards write-side consistency and counter
	mu sync.Mutex
	// m maps reflect.Type to registered name.
	m sync.Map // map[reflect.Type]string
	// count tracks the number of registered entries.
	count int
}

// Register associates t with name. It is idempotent for the same pair.
func (a *aliasTable) Register(t reflect.Type, name string) error {
	if t == nil {
		return ErrNilType
	}
	if name == "" {
		return ErrEmptyName
	}

	// Fast read path: idempotency / conflict check without locking.
	if old, ok := a.m.Load(t); ok {
		if old.(string) == name {
			return nil
		}
		return ErrConflictingRegistration
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Re-check under lock in case another goroutine stored meanwhile.
	if old, ok := a.m.Load(t); ok {
		if old.(string) == name {
			return nil
		}
		return ErrConflictingRegistration
	}

	a.m.Store(t, name)
	a.count++
	return nil
}

// Lookup returns the name registered for t.
func (a *aliasTable) Lookup(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}
	if v, ok := a.m.Load(t); ok {
		return v.(string), true
	}
	return "", false
}

// Entries returns a snapshot for diagnostics (order is unspecified).
func (a *aliasTable) Entries() []apis.Entry {
	entries := make([]apis.Entry, 0, a.Count())
	a.m.Range(func(key, value any) bool {
		entries = append(entries, apis.Entry{
			Type: key.(reflect.Type),
			Name: value.(string),
		})
		return true
	})
	return entries
}

// Count returns the number of registered entries.
func (a *aliasTable) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Reset clears all registered entries.
func (a *aliasTable) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.Clear()
	a.count = 0
}
