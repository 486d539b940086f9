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

package builder

import (
	"fmt"
	"reflect"

	"dirpx.dev/refl/meta"
	uref "dirpx.dev/refl/utils/reflect"
)

// NamedField pairs a field record with its name.
type NamedField struct {
	Name  meta.Name
	Field meta.FieldRecord
}

// Desc is the layout of one Go type, ready for registration.
type Desc struct {
	ID     meta.TypeID
	Size   uintptr
	Align  uintptr
	Fields []NamedField
	Bases  []meta.BaseRelation
	GoType reflect.Type
}

// Describe reads the layout of a value type.
//
// Embedded struct fields become non-virtual bases at their offsets. Other
// fields are declared under their Go names; fields of kinds without a raw
// representation (fixed arrays, maps, chans, funcs, interfaces) are skipped.
func Describe(t reflect.Type) (Desc, error) {
	if t == nil || !uref.IsSupported(t) || t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		return Desc{}, fmt.Errorf("%w: %v", ErrUnsupportedType, t)
	}
	d := Desc{ID: IDFor(t), Size: t.Size(), Align: uintptr(t.Align()), GoType: t}
	if t.Kind() != reflect.Struct {
		return d, nil
	}
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Name == "_" {
			continue
		}
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			d.Bases = append(d.Bases, Base(IDFor(sf.Type), sf.Offset))
			continue
		}
		ft := TypeFor(sf.Type)
		if !ft.Valid() {
			continue
		}
		d.Fields = append(d.Fields, NamedField{Name: meta.NewName(sf.Name), Field: Field(ft, sf.Offset)})
	}
	return d, nil
}

// DescribeAll describes t and every type it embeds or holds by value,
// dependencies first, each type once.
func DescribeAll(t reflect.Type) ([]Desc, error) {
	var (
		out  []Desc
		seen = map[reflect.Type]bool{}
	)
	var visit func(t reflect.Type) error
	visit = func(t reflect.Type) error {
		if seen[t] {
			return nil
		}
		seen[t] = true
		if t.Kind() == reflect.Struct {
			for i := range t.NumField() {
				ft := t.Field(i).Type
				if !uref.IsSupported(ft) || ft.Kind() == reflect.Pointer || ft.Kind() == reflect.Slice {
					continue
				}
				if err := visit(ft); err != nil {
					return err
				}
			}
		}
		d, err := Describe(t)
		if err != nil {
			return err
		}
		out = append(out, d)
		return nil
	}
	if err := visit(t); err != nil {
		return nil, err
	}
	return out, nil
}
