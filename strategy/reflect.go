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
	"path"
	"reflect"
	"sync"

	"dirpx.dev/refl/apis"
)

// NewReflectStrategy creates an apis.Strategy that names types from their
// reflect metadata, with memoization.
func NewReflectStrategy() apis.Strategy {
	return reflectStrategy{}
}

// reflectStrategy is the universal fallback.
//
// Naming policy:
//   - builtin scalar types: their Go name ("int", "float64")
//   - named types: "<import path>.<Name>", or "<last path element>.<Name>"
//     when ShortNames is set; instantiation parameters are kept so that
//     G[int] and G[string] stay distinct
//   - anything else: reflect's String() spelling
type reflectStrategy struct{}

// Ensure reflectStrategy implements apis.Strategy.
var _ apis.Strategy = (*reflectStrategy)(nil)

// cacheKey ensures memoization respects all config knobs that affect naming.
type cacheKey struct {
	t     reflect.Type
	short bool
}

// typeNameCache caches resolved type names by (type, config knobs).
var typeNameCache sync.Map // key: cacheKey, val: string

// TryResolveType computes the registry name for t.
func (reflectStrategy) TryResolveType(t reflect.Type, cfg apis.Config) (string, bool) {
	if t == nil {
		return "", false
	}
	return byType(t, cfg), true
}

// byType resolves the registry name for t with memoization.
func byType(t reflect.Type, cfg apis.Config) string {
	key := cacheKey{t: t, short: cfg.ShortNames}
	if v, ok := typeNameCache.Load(key); ok {
		return v.(string)
	}

	var name string
	switch p := t.PkgPath(); {
	case t.Name() == "":
		name = t.String()
	case p == "":
		name = t.Name()
	case cfg.ShortNames:
		name = path.Base(p) + "." + t.Name()
	default:
		name = p + "." + t.Name()
	}

	typeNameCache.Store(key, name)
	return name
}
