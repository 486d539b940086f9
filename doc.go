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

// Package refl is a runtime type-reflection and dynamic-invocation engine.
//
// Types are described to a registry.Manager as records: size, alignment,
// fields (offset, accessor, host-owned or registry-owned), overloaded
// methods, constructors, a destructor and base relations (plain or virtual,
// each with an address adjustment). Once described, objects of those types
// can be explored, called and cast knowing only their type identifier and
// an address.
//
// # Layout
//
//   - meta: names, type ids, qualification modes, records, object views.
//   - builder: records from Go values (struct layouts, funcs, accessors).
//   - registry: the Manager. Store, traversal, invocation, construction
//     and cast engines.
//   - resolver: argument compatibility scoring and overload selection.
//   - arena: pooled raw memory for staged arguments and created objects.
//   - schema: declarative type layouts loaded from YAML.
//   - config: defaults, options, file and environment loading, logging.
//
// # Default manager
//
// Explicit Managers are the primary API. For small programs this package
// keeps one process default, created lazily:
//
//	id, err := refl.Register[Point]()
//	p := &Point{X: 1}
//	res := refl.Invoke(refl.View(p), "Len")
//	defer res.Release()
//
// SetManager, SetConfig and Init replace the default under a build lock
// and publish it atomically. Callers that already hold the previous
// Manager keep using it.
//
// # Concurrency model
//
// A Manager is written during a single-threaded setup phase. After that,
// lookups, traversal, invocation, construction and casts are safe from
// any number of goroutines. Clear is a setup-phase operation.
package refl
