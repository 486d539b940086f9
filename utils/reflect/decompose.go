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

package reflect

import (
	"errors"
	"reflect"

	"dirpx.dev/refl/meta"
)

var (
	// ErrReflectNilType is returned when a nil reflect.Type is provided.
	ErrReflectNilType = errors.New("reflect: nil reflect.Type provided")
	// ErrReflectUnsupported indicates a kind that has no raw-memory
	// representation in the registry (interfaces, channels, maps, funcs).
	ErrReflectUnsupported = errors.New("reflect: kind has no registry representation")
)

// Decompose splits t into the type the registry identifies and the
// qualification that wraps it.
//
// Decomposition policy:
//   - ptr          -> (Elem(), Pointer)
//   - slice        -> (Elem(), Array); Array objects are laid out as slice headers
//   - array, interface, chan, map, func, unsafe.Pointer -> ErrReflectUnsupported
//   - default      -> (t, Value)
//
// Only one level is peeled: **T decomposes to (*T, Pointer).
func Decompose(t reflect.Type) (reflect.Type, meta.Mode, error) {
	if t == nil {
		return nil, meta.Value, ErrReflectNilType
	}
	switch t.Kind() {
	case reflect.Pointer:
		return t.Elem(), meta.Pointer, nil
	case reflect.Slice:
		return t.Elem(), meta.Array, nil
	case reflect.Array, reflect.Interface, reflect.Chan, reflect.Map, reflect.Func, reflect.UnsafePointer:
		return nil, meta.Value, ErrReflectUnsupported
	default:
		return t, meta.Value, nil
	}
}

// IsSupported reports whether values of t may live in raw registry storage.
func IsSupported(t reflect.Type) bool {
	_, _, err := Decompose(t)
	return err == nil
}
