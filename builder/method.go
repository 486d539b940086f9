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

package builder

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"dirpx.dev/refl/meta"
)

var (
	// ErrNotFunc is returned when a callable is not a non-nil Go func.
	ErrNotFunc = errors.New("refl(builder): not a function")
	// ErrVariadic is returned for variadic funcs.
	ErrVariadic = errors.New("refl(builder): variadic functions are not supported")
	// ErrTooManyResults is returned for funcs with more than one result.
	ErrTooManyResults = errors.New("refl(builder): more than one result")
	// ErrNoReceiver is returned when a member func has no receiver parameter.
	ErrNoReceiver = errors.New("refl(builder): member function needs a receiver parameter")
	// ErrBadMode is returned when a qualification override cannot apply to a Go type.
	ErrBadMode = errors.New("refl(builder): qualification does not fit Go type")
)

// Option adjusts how a Go func's signature is declared.
type Option func(*signature)

type signature struct {
	params map[int]meta.Mode
	result *meta.Mode
}

// Params overrides the qualification of the leading parameters, in order.
// A *T Go parameter declared as a reference receives the argument's address.
func Params(modes ...meta.Mode) Option {
	return func(s *signature) {
		for i, m := range modes {
			s.params[i] = m
		}
	}
}

// Param overrides the qualification of parameter i.
func Param(i int, m meta.Mode) Option {
	return func(s *signature) {
		s.params[i] = m
	}
}

// Result overrides the qualification of the result. A *T result declared
// as a reference hands back the address it points at.
func Result(m meta.Mode) Option {
	return func(s *signature) {
		s.result = &m
	}
}

// Static wraps fn as a static method.
func Static(fn any, opts ...Option) (meta.MethodRecord, error) {
	return wrap(fn, false, meta.MethodStatic, opts)
}

// Member wraps fn as a mutating member. The first Go parameter is the
// receiver, typically a method expression such as (*T).M.
func Member(fn any, opts ...Option) (meta.MethodRecord, error) {
	return wrap(fn, true, meta.MethodVariable, opts)
}

// ConstMember wraps fn as a const member.
func ConstMember(fn any, opts ...Option) (meta.MethodRecord, error) {
	return wrap(fn, true, meta.MethodConst, opts)
}

// Constructor wraps fn as a constructor. fn either initializes its first
// *T parameter in place, or returns the new T by value.
func Constructor(fn any, opts ...Option) (meta.MethodRecord, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return meta.MethodRecord{}, ErrNotFunc
	}
	ft := fv.Type()
	if ft.NumOut() == 1 && !(ft.NumIn() > 0 && ft.In(0) == reflect.PointerTo(ft.Out(0))) {
		rec, err := wrap(fn, false, meta.MethodVariable, opts)
		if err != nil {
			return rec, err
		}
		call := rec.Invoke
		rec.Invoke = func(obj, _ unsafe.Pointer, args []unsafe.Pointer) {
			call(nil, obj, args)
		}
		rec.Name, rec.Result = meta.CtorName, meta.VoidType
		return rec, nil
	}
	if ft.NumOut() != 0 {
		return meta.MethodRecord{}, fmt.Errorf("%w: constructor %v", ErrTooManyResults, ft)
	}
	rec, err := wrap(fn, true, meta.MethodVariable, opts)
	if err != nil {
		return rec, err
	}
	rec.Name = meta.CtorName
	return rec, nil
}

// Destructor wraps fn, which takes the object as its only *T parameter.
func Destructor(fn any) (meta.MethodRecord, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return meta.MethodRecord{}, ErrNotFunc
	}
	if ft := fv.Type(); ft.NumIn() != 1 || ft.NumOut() != 0 || ft.In(0).Kind() != reflect.Pointer {
		return meta.MethodRecord{}, fmt.Errorf("%w: destructor must be func(*T), got %v", ErrNoReceiver, ft)
	}
	rec, err := wrap(fn, true, meta.MethodVariable, nil)
	if err != nil {
		return rec, err
	}
	rec.Name = meta.DtorName
	return rec, nil
}

// Raw declares an already-normalized invoker.
func Raw(inv meta.Invoker, flag meta.MethodFlag, result meta.Type, params ...meta.Type) meta.MethodRecord {
	return meta.MethodRecord{Params: params, Result: result, Invoke: inv, Flag: flag}
}

// Must panics if err is non-nil.
func Must(rec meta.MethodRecord, err error) meta.MethodRecord {
	if err != nil {
		panic(err)
	}
	return rec
}

// binder turns an argument pointer into the reflect.Value the Go func expects.
type binder func(p unsafe.Pointer) reflect.Value

func declare(gt reflect.Type, override *meta.Mode) (meta.Type, binder, error) {
	t := TypeFor(gt)
	if !t.Valid() {
		return meta.Type{}, nil, fmt.Errorf("%w: %v", ErrUnsupportedType, gt)
	}
	load := func(p unsafe.Pointer) reflect.Value { return reflect.NewAt(gt, p).Elem() }
	if override == nil {
		return t, load, nil
	}
	m := *override
	switch {
	case m.IsIndirect():
		if m.IsPointer() != t.Mode.IsPointer() || m.IsArray() != t.Mode.IsArray() {
			return meta.Type{}, nil, fmt.Errorf("%w: %s for %v", ErrBadMode, m, gt)
		}
		return t.With(m), load, nil
	case t.Mode.IsPointer():
		// The Go func sees the argument's address.
		elem := gt.Elem()
		return t.With(m), func(p unsafe.Pointer) reflect.Value { return reflect.NewAt(elem, p) }, nil
	case t.Mode.IsArray():
		return meta.Type{}, nil, fmt.Errorf("%w: %s for %v", ErrBadMode, m, gt)
	default:
		return t.With(m), load, nil
	}
}

// wrap normalizes a Go func into a MethodRecord.
func wrap(fn any, member bool, flag meta.MethodFlag, opts []Option) (meta.MethodRecord, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return meta.MethodRecord{}, ErrNotFunc
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return meta.MethodRecord{}, fmt.Errorf("%w: %v", ErrVariadic, ft)
	}
	if ft.NumOut() > 1 {
		return meta.MethodRecord{}, fmt.Errorf("%w: %v", ErrTooManyResults, ft)
	}

	sig := signature{params: map[int]meta.Mode{}}
	for _, opt := range opts {
		opt(&sig)
	}

	first := 0
	var recv binder
	if member {
		if ft.NumIn() == 0 {
			return meta.MethodRecord{}, fmt.Errorf("%w: %v", ErrNoReceiver, ft)
		}
		rt := ft.In(0)
		if rt.Kind() == reflect.Pointer {
			elem := rt.Elem()
			recv = func(p unsafe.Pointer) reflect.Value { return reflect.NewAt(elem, p) }
		} else {
			recv = func(p unsafe.Pointer) reflect.Value { return reflect.NewAt(rt, p).Elem() }
		}
		first = 1
	}

	n := ft.NumIn() - first
	params := make([]meta.Type, n)
	binders := make([]binder, n)
	for i := range n {
		var override *meta.Mode
		if m, ok := sig.params[i]; ok {
			override = &m
		}
		t, b, err := declare(ft.In(first+i), override)
		if err != nil {
			return meta.MethodRecord{}, fmt.Errorf("parameter %d: %w", i, err)
		}
		params[i], binders[i] = t, b
	}

	result := meta.VoidType
	var store func(dst unsafe.Pointer, v reflect.Value)
	if ft.NumOut() == 1 {
		out := ft.Out(0)
		t := TypeFor(out)
		if !t.Valid() {
			return meta.MethodRecord{}, fmt.Errorf("result: %w: %v", ErrUnsupportedType, out)
		}
		store = func(dst unsafe.Pointer, v reflect.Value) { reflect.NewAt(out, dst).Elem().Set(v) }
		if m := sig.result; m != nil {
			switch {
			case m.IsReference() && t.Mode.IsPointer():
				store = func(dst unsafe.Pointer, v reflect.Value) {
					*(*unsafe.Pointer)(dst) = v.UnsafePointer()
				}
			case m.IsIndirect() != t.Mode.IsIndirect(), m.IsReference():
				return meta.MethodRecord{}, fmt.Errorf("result: %w: %s for %v", ErrBadMode, *m, out)
			}
			t = t.With(*m)
		}
		result = t
	}

	inv := func(obj, res unsafe.Pointer, args []unsafe.Pointer) {
		in := make([]reflect.Value, 0, first+n)
		if recv != nil {
			in = append(in, recv(obj))
		}
		for i, b := range binders {
			in = append(in, b(args[i]))
		}
		out := fv.Call(in)
		if store != nil && res != nil {
			store(res, out[0])
		}
	}
	return meta.MethodRecord{Params: params, Result: result, Invoke: inv, Flag: flag}, nil
}
