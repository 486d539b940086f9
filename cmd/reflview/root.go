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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dirpx.dev/refl/config"
	"dirpx.dev/refl/meta"
	"dirpx.dev/refl/registry"
	"dirpx.dev/refl/schema"
)

var errUnknownFormat = errors.New("unknown output format")

type options struct {
	config  string
	output  string
	format  string
	noColor bool
}

// session is a registry filled from one schema document.
type session struct {
	m     *registry.Manager
	types []meta.TypeID
	log   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "reflview",
		Short: "Inspect type layouts declared in a schema document",
		Long: `reflview registers the types of a schema document with a fresh registry
and prints their computed layouts, fields, methods and base trees.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			switch opts.format {
			case "table", "json":
				return nil
			default:
				return fmt.Errorf("%w: %q", errUnknownFormat, opts.format)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.config, "config", "", "engine config file (YAML, TOML or JSON)")
	flags.StringVarP(&opts.output, "output", "o", "", "write to this file instead of stdout")
	flags.StringVar(&opts.format, "format", "table", "output format: table or json")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newLayoutCmd(opts),
		newFieldsCmd(opts),
		newMethodsCmd(opts),
		newBasesCmd(opts),
	)
	return root
}

// open builds a manager from the engine config and applies the schema.
func (o *options) open(path string) (*session, error) {
	cfg, err := config.Load(o.config)
	if err != nil {
		return nil, err
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	doc, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	m := registry.New(cfg, registry.WithLogger(log))
	types, err := schema.Apply(m, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("schema applied", zap.String("schema", path), zap.Int("types", len(types)))
	return &session{m: m, types: types, log: log}, nil
}

// lookup returns the declared or built-in type named name.
func (s *session) lookup(name string) (meta.TypeID, error) {
	id := meta.NewTypeID(name)
	if s.m.Record(id) == nil {
		return meta.TypeID{}, fmt.Errorf("%w: %s", schema.ErrUnknownType, name)
	}
	return id, nil
}

// writer opens the output destination. The returned func closes it.
func (o *options) writer(cmd *cobra.Command) (io.Writer, func() error, error) {
	if o.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(o.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}

// emit renders rows as a table or as a JSON array of items.
func (o *options) emit(cmd *cobra.Command, header []string, rows [][]string, items any) (err error) {
	w, closeFn, err := o.writer(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}()
	if o.format == "json" {
		return writeJSON(w, items)
	}
	return writeTable(w, header, rows)
}
