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

package apis

// Config carries the engine knobs. It is passed by value and should be
// treated as immutable once a Manager has been built from it.
type Config struct {
	// ScratchChunkSize is the chunk size of the scratch arena used for
	// argument staging.
	ScratchChunkSize int `mapstructure:"scratch_chunk_size"`

	// ObjectChunkSize is the chunk size of the default object arena.
	ObjectChunkSize int `mapstructure:"object_chunk_size"`

	// MaxPooledSize is the largest block the default arenas recycle.
	MaxPooledSize int `mapstructure:"max_pooled_size"`

	// ZeroFill clears recycled arena blocks before reuse.
	ZeroFill bool `mapstructure:"zero_fill"`

	// MaxBaseDepth bounds base-graph recursion.
	// Acts as a safety guard against corrupted metadata.
	MaxBaseDepth int `mapstructure:"max_base_depth"`

	// Builtins registers the Go scalar types on construction and after Clear.
	Builtins bool `mapstructure:"builtins"`

	// ShortNames makes reflected type names use the last package path
	// element ("geo.Point") instead of the full import path.
	ShortNames bool `mapstructure:"short_names"`

	// LogLevel is a zap level name ("debug", "info", ...).
	LogLevel string `mapstructure:"log_level"`

	// LogDevelopment selects zap's development encoder.
	LogDevelopment bool `mapstructure:"log_development"`
}
