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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"dirpx.dev/refl/apis"
)

// EnvPrefix prefixes environment overrides, e.g. REFL_MAX_BASE_DEPTH.
const EnvPrefix = "REFL"

// Load reads an apis.Config from path (YAML, TOML or JSON by extension) and
// REFL_* environment variables, on top of DefaultConfig. An empty path
// reads the environment only.
func Load(path string) (apis.Config, error) {
	v := viper.New()

	// Set defaults
	def := DefaultConfig()
	v.SetDefault("scratch_chunk_size", def.ScratchChunkSize)
	v.SetDefault("object_chunk_size", def.ObjectChunkSize)
	v.SetDefault("max_pooled_size", def.MaxPooledSize)
	v.SetDefault("zero_fill", def.ZeroFill)
	v.SetDefault("max_base_depth", def.MaxBaseDepth)
	v.SetDefault("builtins", def.Builtins)
	v.SetDefault("short_names", def.ShortNames)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_development", def.LogDevelopment)

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return apis.Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg apis.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return apis.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return Sanitize(cfg), nil
}
