// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host defines the embedder-supplied surface a Crosscut program
// calls into via the Host effect: a table of named functions, each with a
// stable number and a declared signature, and the interface the runtime
// dispatches to when that effect is triggered.
package host

import (
	"fmt"

	"github.com/crosscut-lang/crosscut/typesys"
	"github.com/crosscut-lang/crosscut/value"
)

// Entry describes one host function as the embedder declares it: a name
// the compiler resolves identifiers against, a stable number used on the
// wire and at runtime, and the signature the type checker and instruction
// generator treat it as having.
type Entry struct {
	Name      string
	Number    uint8
	Signature typesys.Signature
}

// Table is the fixed set of host functions available to a compilation. It
// is built once by the embedder and shared by every compile of the same
// program.
type Table struct {
	byName   map[string]Entry
	byNumber map[uint8]Entry
}

// NewTable builds a Table from entries, which must have no duplicate name
// or number.
func NewTable(entries []Entry) (*Table, error) {
	t := &Table{byName: map[string]Entry{}, byNumber: map[uint8]Entry{}}
	for _, e := range entries {
		if _, exists := t.byName[e.Name]; exists {
			return nil, fmt.Errorf("host: duplicate function name %q", e.Name)
		}
		if _, exists := t.byNumber[e.Number]; exists {
			return nil, fmt.Errorf("host: duplicate function number %d", e.Number)
		}
		t.byName[e.Name] = e
		t.byNumber[e.Number] = e
	}
	return t, nil
}

// ByName looks up a host function by the name it's called by in source.
func (t *Table) ByName(name string) (Entry, bool) {
	e, ok := t.byName[name]
	return e, ok
}

// ByNumber looks up a host function by its wire number, as found on top of
// the operand stack when a Host effect is triggered.
func (t *Table) ByNumber(n uint8) (Entry, bool) {
	e, ok := t.byNumber[n]
	return e, ok
}

// Host is implemented by the embedder to actually perform a host function
// call. Invoke is given the operand stack to pop its declared inputs from
// (top of stack is the rightmost declared input) and push its declared
// outputs onto. A non-nil error is not turned into another effect:
// dbgrpc.Session reports the process as Stopped on Host and Run returns
// the error, wrapped.
type Host interface {
	Invoke(entry Entry, pop func() (value.Value, bool), push func(value.Value)) error
}
