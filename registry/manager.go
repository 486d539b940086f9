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

// Package registry implements the metadata store and the engines that run
// on top of it: base-graph traversal, overload-resolved invocation, object
// construction and destruction, and casts.
//
// A Manager is built once and filled during a single-threaded setup phase.
// Mutating methods (Register*, Add*, Set*, Clear) must not run concurrently
// with anything else. Once registration is done, every query, invocation,
// construction and cast may run from any number of goroutines.
//
// Engine operations never return errors: a missing type, field, overload or
// base path yields the zero Type, an empty ObjectView, a nil SharedObject
// or false. Registration rejections are logged at debug level.
package registry

import (
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dirpx.dev/refl/apis"
	"dirpx.dev/refl/arena"
	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
)

// Manager owns type records and the two default arenas.
type Manager struct {
	id  uuid.UUID
	cfg apis.Config
	// base is the logger as supplied; log adds the manager id.
	base *zap.Logger
	log  *zap.Logger

	records map[meta.TypeID]*meta.TypeRecord
	order   []meta.TypeID
	// tags[i] is the type stamped as Tag i+1.
	tags    []meta.TypeID
	dynamic []dynamicSlot
	// gen counts Clear calls. Handles made before a Clear do not touch
	// the arenas it reset.
	gen atomic.Uint64

	scratch apis.Arena
	objects apis.Arena
}

// dynamicSlot is registry-owned storage behind a FieldDynamic field.
type dynamicSlot struct {
	typ meta.Type
	block
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. A nil logger keeps the no-op default.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithScratchArena replaces the arena used for argument staging.
func WithScratchArena(a apis.Arena) Option {
	return func(m *Manager) {
		if a != nil {
			m.scratch = a
		}
	}
}

// WithObjectArena replaces the default object arena.
func WithObjectArena(a apis.Arena) Option {
	return func(m *Manager) {
		if a != nil {
			m.objects = a
		}
	}
}

// New returns an empty Manager. Out-of-range config values are replaced by
// their defaults; built-in scalars are registered when cfg.Builtins is set.
func New(cfg apis.Config, opts ...Option) *Manager {
	m := &Manager{
		id:      uuid.New(),
		cfg:     config.Sanitize(cfg),
		log:     zap.NewNop(),
		records: make(map[meta.TypeID]*meta.TypeRecord),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.scratch == nil {
		m.scratch = arena.New(
			arena.WithChunkSize(m.cfg.ScratchChunkSize),
			arena.WithMaxPooledSize(m.cfg.MaxPooledSize),
			arena.WithZeroFill(m.cfg.ZeroFill),
		)
	}
	if m.objects == nil {
		m.objects = arena.New(
			arena.WithChunkSize(m.cfg.ObjectChunkSize),
			arena.WithMaxPooledSize(m.cfg.MaxPooledSize),
			arena.WithZeroFill(m.cfg.ZeroFill),
		)
	}
	m.base = m.log
	m.log = m.log.With(zap.String("manager", m.id.String()))
	if m.cfg.Builtins {
		m.registerBuiltins()
	}
	return m
}

// ID returns the manager's instance id.
func (m *Manager) ID() uuid.UUID { return m.id }

// Config returns the sanitized config.
func (m *Manager) Config() apis.Config { return m.cfg }

// Logger returns the manager's logger.
func (m *Manager) Logger() *zap.Logger { return m.log }

// BaseLogger returns the logger the manager was built with, without the
// manager id field.
func (m *Manager) BaseLogger() *zap.Logger { return m.base }

// ScratchArena returns the arena used for argument staging.
func (m *Manager) ScratchArena() apis.Arena { return m.scratch }

// ObjectArena returns the default object arena.
func (m *Manager) ObjectArena() apis.Arena { return m.objects }
