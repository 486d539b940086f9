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
	"strconv"
	"strings"
)

// FieldFlag classifies how a field's storage is reached.
type FieldFlag uint8

const (
	// FieldBasic is an instance field at a fixed offset.
	FieldBasic FieldFlag = 1 << iota
	// FieldVirtual is an instance field reached through an accessor.
	FieldVirtual
	// FieldStatic is a field at a fixed, host-owned address.
	FieldStatic
	// FieldDynamic is a field whose storage is owned by the registry.
	FieldDynamic

	// FieldNone matches nothing.
	FieldNone FieldFlag = 0
	// FieldOwned selects fields stored inside the object.
	FieldOwned = FieldBasic | FieldVirtual
	// FieldUnowned selects fields stored outside the object.
	FieldUnowned = FieldStatic | FieldDynamic
	// FieldAll selects every field.
	FieldAll = FieldOwned | FieldUnowned
)

// Has reports whether f shares any bit with mask.
func (f FieldFlag) Has(mask FieldFlag) bool { return f&mask != 0 }

// String lists the set bits, e.g. "Basic|Static".
func (f FieldFlag) String() string {
	return flagString(uint8(f), []string{"Basic", "Virtual", "Static", "Dynamic"})
}

// MethodFlag classifies how a method binds its object.
type MethodFlag uint8

const (
	// MethodVariable is a member that may mutate its object.
	MethodVariable MethodFlag = 1 << iota
	// MethodConst is a member that only reads its object.
	MethodConst
	// MethodStatic ignores the object pointer.
	MethodStatic

	// MethodNone matches nothing.
	MethodNone MethodFlag = 0
	// MethodMember selects Variable and Const members.
	MethodMember = MethodVariable | MethodConst
	// MethodAll selects every method.
	MethodAll = MethodMember | MethodStatic
)

// Has reports whether f shares any bit with mask.
func (f MethodFlag) Has(mask MethodFlag) bool { return f&mask != 0 }

// String lists the set bits, e.g. "Const|Static".
func (f MethodFlag) String() string {
	return flagString(uint8(f), []string{"Variable", "Const", "Static"})
}

func flagString(v uint8, names []string) string {
	if v == 0 {
		return "None"
	}
	var parts []string
	for i, n := range names {
		if v&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if rest := v &^ (1<<len(names) - 1); rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(parts, "|")
}
