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

package refl

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"dirpx.dev/refl/apis"
	"dirpx.dev/refl/builder"
	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
)

// ErrNilManager is returned when a nil manager would be installed.
var ErrNilManager = errors.New("refl: nil manager")

var (
	// current is the published default manager. Nil until first use.
	current atomic.Pointer[registry.Manager]
	// buildMu serializes replacement of the default manager.
	buildMu sync.Mutex
)

// Mngr returns the process default Manager, creating it with
// config.DefaultConfig on first use.
func Mngr() *registry.Manager {
	if m := current.Load(); m != nil {
		return m
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	if m := current.Load(); m != nil {
		return m
	}
	m := registry.New(config.DefaultConfig())
	current.Store(m)
	return m
}

// SetManager installs m as the process default. Readers holding the
// previous manager keep using it; it is not cleared.
func SetManager(m *registry.Manager) error {
	if m == nil {
		return ErrNilManager
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	current.Store(m)
	return nil
}

// SetConfig replaces the default manager with a fresh one built from cfg,
// keeping the previous manager's logger, and applies cfg to Go type naming.
// Registrations made on the previous manager are not carried over.
func SetConfig(cfg apis.Config) {
	cfg = config.Sanitize(cfg)
	buildMu.Lock()
	defer buildMu.Unlock()

	var opts []registry.Option
	if old := current.Load(); old != nil {
		opts = append(opts, registry.WithLogger(old.BaseLogger()))
	}
	builder.Configure(cfg)
	current.Store(registry.New(cfg, opts...))
}

// Init loads the config at path (plus REFL_* environment overrides), builds
// a logger for it and installs a fresh default manager.
func Init(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("refl: init: %w", err)
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("refl: init: %w", err)
	}

	buildMu.Lock()
	defer buildMu.Unlock()
	builder.Configure(cfg)
	m := registry.New(cfg, registry.WithLogger(log))
	current.Store(m)
	log.Debug("default manager installed", zap.Stringer("manager", m.ID()))
	return nil
}

// Config returns the default manager's config.
func Config() apis.Config {
	return Mngr().Config()
}

// Clear empties the default manager.
func Clear() {
	Mngr().Clear()
}

// Register registers T and every type it holds by value with the default
// manager.
func Register[T any]() (meta.TypeID, error) {
	return Mngr().Register(reflect.TypeFor[T]())
}

// TypeOf returns the qualified Type of T as named in the default manager.
func TypeOf[T any]() meta.Type {
	return builder.TypeOf[T]()
}

// View wraps p as an lvalue view of T.
func View[T any](p *T) meta.ObjectView {
	return meta.ViewOf(builder.ID[T](), p)
}

// Invoke calls the best overload of name on obj with the default manager.
func Invoke(obj meta.ObjectView, name string, args ...meta.ObjectView) *meta.SharedObject {
	return Mngr().Invoke(obj, meta.NewName(name), meta.Args(args...))
}
