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

// Package builder produces metadata records from plain runtime values:
// offsets, accessor closures, Go funcs and Go struct layouts.
//
// Nothing here touches a registry. The records it returns are handed to
// registry.Manager, which owns them from then on.
package builder

import (
	"reflect"
	"sync/atomic"

	"dirpx.dev/refl/apis"
	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/strategy"
	uref "dirpx.dev/refl/utils/reflect"
)

var (
	aliases = strategy.NewAliasTable()
	names   = strategy.Default(aliases)
	naming  atomic.Pointer[apis.Config]
)

func init() {
	cfg := config.DefaultConfig()
	naming.Store(&cfg)
}

// Configure sets the config used to name Go types.
// Names already minted keep their spelling.
func Configure(cfg apis.Config) {
	naming.Store(&cfg)
}

// Alias forces the registry name of t.
func Alias(t reflect.Type, name string) error {
	return aliases.Register(t, name)
}

// Aliases returns the process-wide alias table.
func Aliases() apis.AliasTable {
	return aliases
}

// IDFor returns the TypeID naming t itself, without decomposition.
func IDFor(t reflect.Type) meta.TypeID {
	if t == nil {
		return meta.TypeID{}
	}
	return meta.NewTypeID(names.ResolveType(t, *naming.Load()))
}

// TypeFor maps t to a qualified Type: *T becomes a Pointer to T, slices
// and arrays become an Array of their element. Unsupported kinds yield the
// zero Type.
func TypeFor(t reflect.Type) meta.Type {
	elem, mode, err := uref.Decompose(t)
	if err != nil {
		return meta.Type{}
	}
	return meta.TypeOf(IDFor(elem), mode)
}

// ID returns the TypeID of T.
func ID[T any]() meta.TypeID {
	return IDFor(reflect.TypeFor[T]())
}

// TypeOf returns the qualified Type of T.
func TypeOf[T any]() meta.Type {
	return TypeFor(reflect.TypeFor[T]())
}
