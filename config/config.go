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

package config

import (
	"dirpx.dev/refl/apis"
)

const (
	// DefaultScratchChunkSize represents the default for ScratchChunkSize.
	DefaultScratchChunkSize = 16 << 10
	// DefaultObjectChunkSize represents the default for ObjectChunkSize.
	DefaultObjectChunkSize = 64 << 10
	// DefaultMaxPooledSize represents the default for MaxPooledSize.
	DefaultMaxPooledSize = 4 << 10
	// DefaultZeroFill represents the default for ZeroFill.
	DefaultZeroFill = true
	// DefaultMaxBaseDepth represents the default for MaxBaseDepth.
	// No sane hierarchy is deeper than 64 levels.
	DefaultMaxBaseDepth = 64
	// DefaultBuiltins represents the default for Builtins.
	DefaultBuiltins = true
	// DefaultShortNames represents the default for ShortNames.
	DefaultShortNames = false
	// DefaultLogLevel represents the default for LogLevel.
	DefaultLogLevel = "info"
)

// NewConfig constructs an apis.Config from the given options.
func NewConfig(opts ...Option) apis.Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return Sanitize(cfg)
}

// DefaultConfig is the default configuration used when none is provided.
func DefaultConfig() apis.Config {
	return apis.Config{
		ScratchChunkSize: DefaultScratchChunkSize,
		ObjectChunkSize:  DefaultObjectChunkSize,
		MaxPooledSize:    DefaultMaxPooledSize,
		ZeroFill:         DefaultZeroFill,
		MaxBaseDepth:     DefaultMaxBaseDepth,
		Builtins:         DefaultBuiltins,
		ShortNames:       DefaultShortNames,
		LogLevel:         DefaultLogLevel,
	}
}

// Sanitize replaces out-of-range values with their defaults.
func Sanitize(cfg apis.Config) apis.Config {
	if cfg.ScratchChunkSize <= 0 {
		cfg.ScratchChunkSize = DefaultScratchChunkSize
	}
	if cfg.ObjectChunkSize <= 0 {
		cfg.ObjectChunkSize = DefaultObjectChunkSize
	}
	if cfg.MaxPooledSize <= 0 {
		cfg.MaxPooledSize = DefaultMaxPooledSize
	}
	if cfg.MaxBaseDepth <= 0 {
		cfg.MaxBaseDepth = DefaultMaxBaseDepth
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg
}

// Option is a functional option that mutates an apis.Config during construction.
type Option func(*apis.Config)

// WithScratchChunkSize sets the ScratchChunkSize option.
// A non-positive value resets to the default.
func WithScratchChunkSize(n int) Option {
	return func(c *apis.Config) {
		c.ScratchChunkSize = n
	}
}

// WithObjectChunkSize sets the ObjectChunkSize option.
// A non-positive value resets to the default.
func WithObjectChunkSize(n int) Option {
	return func(c *apis.Config) {
		c.ObjectChunkSize = n
	}
}

// WithMaxPooledSize sets the MaxPooledSize option.
func WithMaxPooledSize(n int) Option {
	return func(c *apis.Config) {
		c.MaxPooledSize = n
	}
}

// WithZeroFill sets the ZeroFill option.
func WithZeroFill(zero bool) Option {
	return func(c *apis.Config) {
		c.ZeroFill = zero
	}
}

// WithMaxBaseDepth sets the MaxBaseDepth option.
// A non-positive value resets to the default.
func WithMaxBaseDepth(depth int) Option {
	return func(c *apis.Config) {
		c.MaxBaseDepth = depth
	}
}

// WithBuiltins sets the Builtins option.
func WithBuiltins(include bool) Option {
	return func(c *apis.Config) {
		c.Builtins = include
	}
}

// WithShortNames sets the ShortNames option.
func WithShortNames(short bool) Option {
	return func(c *apis.Config) {
		c.ShortNames = short
	}
}

// WithLogLevel sets the LogLevel option.
func WithLogLevel(level string) Option {
	return func(c *apis.Config) {
		c.LogLevel = level
	}
}

// WithLogDevelopment sets the LogDevelopment option.
func WithLogDevelopment(dev bool) Option {
	return func(c *apis.Config) {
		c.LogDevelopment = dev
	}
}
