// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"github.com/crosscut-lang/crosscut/code/lower"
	"github.com/crosscut-lang/crosscut/value"
)

// Closure is an anonymous function snapshotted onto the heap by
// MakeAnonymousFunction: the dispatch table of its branches (already
// compiled, since lowering compiles every local function before the
// MakeAnonymousFunction instruction that references it) plus the values
// it captured from its enclosing frame at the moment it was created.
type Closure struct {
	Branches    []lower.BranchInfo
	Environment map[string]value.Value
}

// Heap is the indexed store of anonymous-function closures. Entries are
// allocated by MakeAnonymousFunction and consumed by Eval; an entry is
// removed only when Eval takes it, and its index (ever-incrementing) is
// never reused, so a plain map is enough — no garbage collector is
// needed.
type Heap struct {
	closures map[uint32]Closure
	next     uint32
}

// NewHeap returns an empty heap.
func NewHeap() *Heap {
	return &Heap{closures: map[uint32]Closure{}}
}

// Store snapshots fn onto the heap and returns the index it was stored
// at.
func (h *Heap) Store(fn Closure) uint32 {
	index := h.next
	h.next++
	h.closures[index] = fn
	return index
}

// Take removes and returns the closure at index. A second Take of the
// same index fails: the heap entry is consumed by index, so re-evaluating
// the same index is InvalidFunction at the call site.
func (h *Heap) Take(index uint32) (Closure, bool) {
	fn, ok := h.closures[index]
	if !ok {
		return Closure{}, false
	}
	delete(h.closures, index)
	return fn, true
}
