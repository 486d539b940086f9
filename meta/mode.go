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
	"fmt"
	"strings"
)

// Mode is the qualification part of a Type.
//
// Reference modes describe how an object is bound, not how it is laid out:
// an ObjectView of mode LRef points at the object itself. Pointer and array
// modes describe a distinct object (the pointer or the array) whose element
// type is the Type's ID; ConstPointer and ConstArray point at const elements.
type Mode uint8

const (
	// Value is a plain, unqualified object (a temporary when passed as an argument).
	Value Mode = iota
	// Const is a const-qualified value.
	Const
	// LRef is an lvalue reference.
	LRef
	// ConstLRef is a const lvalue reference.
	ConstLRef
	// RRef is an rvalue reference; the callee may move from it.
	RRef
	// ConstRRef is a const rvalue reference.
	ConstRRef
	// Pointer is a pointer to a mutable element.
	Pointer
	// ConstPointer is a pointer to a const element.
	ConstPointer
	// Array is an array of mutable elements.
	Array
	// ConstArray is an array of const elements.
	ConstArray
)

var modeNames = [...]string{
	Value:        "Value",
	Const:        "Const",
	LRef:         "LRef",
	ConstLRef:    "ConstLRef",
	RRef:         "RRef",
	ConstRRef:    "ConstRRef",
	Pointer:      "Pointer",
	ConstPointer: "ConstPointer",
	Array:        "Array",
	ConstArray:   "ConstArray",
}

// String returns the mode's identifier, or "Unknown(<n>)".
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Unknown(%d)", m)
}

// ParseMode parses a mode identifier case-insensitively.
func ParseMode(s string) (Mode, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Value, fmt.Errorf("meta: empty mode")
	}
	for i, n := range modeNames {
		if strings.EqualFold(n, trimmed) {
			return Mode(i), nil
		}
	}
	return Value, fmt.Errorf("meta: unknown mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if int(m) >= len(modeNames) {
		return nil, fmt.Errorf("meta: cannot marshal unknown mode %d", m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// IsConst reports whether the object (or, for pointers and arrays, the element) is const.
func (m Mode) IsConst() bool {
	switch m {
	case Const, ConstLRef, ConstRRef, ConstPointer, ConstArray:
		return true
	}
	return false
}

// IsReference reports whether m is one of the four reference modes.
func (m Mode) IsReference() bool {
	return m >= LRef && m <= ConstRRef
}

// IsLRef reports whether m is LRef or ConstLRef.
func (m Mode) IsLRef() bool { return m == LRef || m == ConstLRef }

// IsRRef reports whether m is RRef or ConstRRef.
func (m Mode) IsRRef() bool { return m == RRef || m == ConstRRef }

// IsPointer reports whether m is Pointer or ConstPointer.
func (m Mode) IsPointer() bool { return m == Pointer || m == ConstPointer }

// IsArray reports whether m is Array or ConstArray.
func (m Mode) IsArray() bool { return m == Array || m == ConstArray }

// IsIndirect reports whether m describes a pointer or array object.
func (m Mode) IsIndirect() bool { return m >= Pointer }

// IsByValue reports whether m is Value or Const.
func (m Mode) IsByValue() bool { return m == Value || m == Const }

// AddConst returns the const-qualified counterpart of m.
func (m Mode) AddConst() Mode {
	switch m {
	case Value:
		return Const
	case LRef:
		return ConstLRef
	case RRef:
		return ConstRRef
	case Pointer:
		return ConstPointer
	case Array:
		return ConstArray
	}
	return m
}

// RemoveConst returns the non-const counterpart of m.
func (m Mode) RemoveConst() Mode {
	switch m {
	case Const:
		return Value
	case ConstLRef:
		return LRef
	case ConstRRef:
		return RRef
	case ConstPointer:
		return Pointer
	case ConstArray:
		return Array
	}
	return m
}

// AddLRef binds m as an lvalue reference, keeping constness.
// Pointer and array modes are returned unchanged.
func (m Mode) AddLRef() Mode {
	if m.IsIndirect() {
		return m
	}
	if m.IsConst() {
		return ConstLRef
	}
	return LRef
}

// AddRRef binds m as an rvalue reference, keeping constness.
// Pointer and array modes are returned unchanged.
func (m Mode) AddRRef() Mode {
	if m.IsIndirect() {
		return m
	}
	if m.IsConst() {
		return ConstRRef
	}
	return RRef
}

// RemoveRef drops reference binding, keeping constness.
func (m Mode) RemoveRef() Mode {
	switch m {
	case LRef, RRef:
		return Value
	case ConstLRef, ConstRRef:
		return Const
	}
	return m
}

// RemoveCVRef drops constness and reference binding of a value mode.
func (m Mode) RemoveCVRef() Mode {
	if m.IsIndirect() {
		return m
	}
	return Value
}

// Format spells name qualified by m.
func (m Mode) Format(name string) string {
	switch m {
	case Value:
		return name
	case Const:
		return "const " + name
	case LRef:
		return name + "&"
	case ConstLRef:
		return "const " + name + "&"
	case RRef:
		return name + "&&"
	case ConstRRef:
		return "const " + name + "&&"
	case Pointer:
		return name + "*"
	case ConstPointer:
		return "const " + name + "*"
	case Array:
		return name + "[]"
	case ConstArray:
		return "const " + name + "[]"
	}
	return fmt.Sprintf("%s<%s>", name, m)
}
