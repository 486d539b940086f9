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
	"reflect"

	"dirpx.dev/refl/apis"
)

// NewAliasStrategy creates an apis.Strategy that consults an apis.AliasTable.
func NewAliasStrategy(table apis.AliasTable) apis.Strategy {
	return &aliasStrategy{table: table}
}

// aliasStrategy consults a provided apis.AliasTable (reflection-free lookup).
type aliasStrategy struct {
	table apis.AliasTable
}

// Ensure aliasStrategy implements apis.Strategy.
var _ apis.Strategy = (*aliasStrategy)(nil)

// TryResolveType looks up t in the table.
func (s *aliasStrategy) TryResolveType(t reflect.Type, _ apis.Config) (string, bool) {
	if t == nil || s.table == nil {
		return "", false
	}
	return s.table.Lookup(t)
}
