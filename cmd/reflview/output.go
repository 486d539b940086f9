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
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"dirpx.dev/refl/meta"
)

// instance constructs a default object of the named type for offset
// inspection. release destroys it.
func (s *session) instance(name string) (meta.ObjectView, func(), error) {
	id, err := s.lookup(name)
	if err != nil {
		return meta.ObjectView{}, nil, err
	}
	obj := s.m.New(id, nil)
	if !obj.Valid() {
		return meta.ObjectView{}, nil, fmt.Errorf("%s is not default constructible", name)
	}
	return obj, func() { s.m.Delete(obj) }, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

func writeJSON(w io.Writer, items any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// writeTable prints left-aligned columns separated by two spaces, with a
// colored header.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)

	line := func(cells []string, c *color.Color) error {
		var b strings.Builder
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
		}
		text := strings.TrimRight(b.String(), " ")
		if c == nil {
			_, err := fmt.Fprintln(w, text)
			return err
		}
		_, err := c.Fprintln(w, text)
		return err
	}

	if err := line(header, bold); err != nil {
		return err
	}
	if len(rows) == 0 {
		return line([]string{"(none)"}, gray)
	}
	for _, row := range rows {
		if err := line(row, nil); err != nil {
			return err
		}
	}
	return nil
}
