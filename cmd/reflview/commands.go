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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dirpx.dev/refl/meta"
)

type fieldItem struct {
	Owner  string  `json:"owner"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Offset *uint64 `json:"offset,omitempty"`
	Flag   string  `json:"flag"`
}

type baseItem struct {
	Type    string `json:"type"`
	Depth   int    `json:"depth"`
	Offset  uint64 `json:"offset"`
	Virtual bool   `json:"virtual,omitempty"`
}

type methodItem struct {
	Owner  string   `json:"owner"`
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Result string   `json:"result"`
	Flag   string   `json:"flag"`
}

type layoutItem struct {
	Type   string      `json:"type"`
	Size   uint64      `json:"size"`
	Align  uint64      `json:"align"`
	Bases  []baseItem  `json:"bases,omitempty"`
	Fields []fieldItem `json:"fields,omitempty"`
}

func newLayoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "layout <schema>",
		Short: "Print size, alignment and member offsets of every declared type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[0])
			if err != nil {
				return err
			}
			defer s.close()

			var (
				items []layoutItem
				rows  [][]string
			)
			for _, id := range s.types {
				r := s.m.Record(id)
				item := layoutItem{Type: id.Name(), Size: uint64(r.Size), Align: uint64(r.Align)}
				var members []string
				for _, b := range r.Bases() {
					item.Bases = append(item.Bases, baseItem{Type: b.Base.Name(), Depth: 1, Offset: uint64(b.Offset)})
					members = append(members, fmt.Sprintf("%s@%d", b.Base, b.Offset))
				}
				for _, f := range r.Fields() {
					off := uint64(f.Offset)
					item.Fields = append(item.Fields, fieldItem{
						Owner: id.Name(), Name: f.Name.String(), Type: f.Type.String(), Offset: &off, Flag: f.Flag.String(),
					})
					members = append(members, fmt.Sprintf("%s@%d", f.Name, f.Offset))
				}
				items = append(items, item)
				rows = append(rows, []string{id.Name(), utoa(r.Size), utoa(r.Align), strings.Join(members, " ")})
			}
			return opts.emit(cmd, []string{"TYPE", "SIZE", "ALIGN", "MEMBERS"}, rows, items)
		},
	}
}

func newFieldsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <type> <schema>",
		Short: "List the fields of a type and its bases with absolute offsets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[1])
			if err != nil {
				return err
			}
			defer s.close()
			obj, release, err := s.instance(args[0])
			if err != nil {
				return err
			}
			defer release()

			var (
				items []fieldItem
				rows  [][]string
			)
			for v := range s.m.Vars(obj, meta.FieldAll) {
				item := fieldItem{
					Owner: v.Owner.Type.ID.Name(),
					Name:  v.Field.Name.String(),
					Type:  v.Field.Type.String(),
					Flag:  v.Field.Flag.String(),
				}
				offset := "-"
				if v.Field.Flag.Has(meta.FieldBasic) {
					off := uint64(uintptr(v.Owner.Ptr) - uintptr(obj.Ptr()) + v.Field.Offset)
					item.Offset = &off
					offset = strconv.FormatUint(off, 10)
				}
				items = append(items, item)
				rows = append(rows, []string{item.Owner, item.Name, item.Type, offset, item.Flag})
			}
			return opts.emit(cmd, []string{"OWNER", "FIELD", "TYPE", "OFFSET", "FLAG"}, rows, items)
		},
	}
}

func newMethodsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "methods <type> <schema>",
		Short: "List the methods, constructors and destructors reachable from a type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[1])
			if err != nil {
				return err
			}
			defer s.close()
			id, err := s.lookup(args[0])
			if err != nil {
				return err
			}

			var (
				items []methodItem
				rows  [][]string
			)
			for mi := range s.m.Methods(meta.ValueOf(id), meta.MethodAll) {
				item := methodItem{
					Owner:  mi.Owner.Type.ID.Name(),
					Name:   mi.Method.Name.String(),
					Params: make([]string, 0, len(mi.Method.Params)),
					Result: mi.Method.Result.String(),
					Flag:   mi.Method.Flag.String(),
				}
				for _, p := range mi.Method.Params {
					item.Params = append(item.Params, p.String())
				}
				items = append(items, item)
				sig := fmt.Sprintf("%s(%s) %s", item.Name, strings.Join(item.Params, ", "), item.Result)
				rows = append(rows, []string{item.Owner, sig, item.Flag})
			}
			return opts.emit(cmd, []string{"OWNER", "SIGNATURE", "FLAG"}, rows, items)
		},
	}
}

func newBasesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "bases <type> <schema>",
		Short: "Print the base tree of a type, depth first, with subobject offsets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(args[1])
			if err != nil {
				return err
			}
			defer s.close()
			obj, release, err := s.instance(args[0])
			if err != nil {
				return err
			}
			defer release()

			var (
				items []baseItem
				rows  [][]string
			)
			for n := range s.m.ObjectTree(obj) {
				item := baseItem{
					Type:    n.Type.ID.Name(),
					Depth:   n.Depth,
					Offset:  uint64(uintptr(n.Ptr) - uintptr(obj.Ptr())),
					Virtual: n.Virtual,
				}
				items = append(items, item)
				mark := ""
				if item.Virtual {
					mark = "virtual"
				}
				rows = append(rows, []string{strings.Repeat("  ", n.Depth) + item.Type, strconv.FormatUint(item.Offset, 10), mark})
			}
			return opts.emit(cmd, []string{"TYPE", "OFFSET", ""}, rows, items)
		},
	}
}

func utoa(v uintptr) string { return strconv.FormatUint(uint64(v), 10) }
