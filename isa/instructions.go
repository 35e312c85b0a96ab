// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package isa

import "fmt"

// InstructionAddress indexes one instruction within an Instructions stream.
// Addresses are stable across Replace calls, which overwrite an
// instruction without moving any other.
type InstructionAddress struct {
	index uint32
}

// Previous returns the address immediately before a.
func (a InstructionAddress) Previous() InstructionAddress {
	return InstructionAddress{index: a.index - 1}
}

// Next returns the address immediately after a.
func (a InstructionAddress) Next() InstructionAddress {
	return InstructionAddress{index: a.index + 1}
}

func (a InstructionAddress) String() string { return fmt.Sprintf("%d", a.index) }

// Less orders addresses by position in the stream. Used by the source map
// to binary search instruction ranges.
func (a InstructionAddress) Less(b InstructionAddress) bool { return a.index < b.index }

// Instructions is the flat, append-only (except for in-place Replace)
// instruction stream a compiled program lowers into. A hot-reload does not
// patch it: dbgrpc.Session swaps in the newly compiled stream as a whole
// and rewrites the open frames' return addresses to point into it.
type Instructions struct {
	entries []Instruction
}

// NextAddress returns the address Push would assign to the next
// instruction pushed, without pushing anything. Used by the compiler to
// record a function or branch's start address before emitting its body.
func (is *Instructions) NextAddress() InstructionAddress {
	return InstructionAddress{index: uint32(len(is.entries))}
}

// Push appends instruction to the stream and returns the address it was
// stored at.
func (is *Instructions) Push(instruction Instruction) InstructionAddress {
	addr := InstructionAddress{index: uint32(len(is.entries))}
	is.entries = append(is.entries, instruction)
	return addr
}

// Get returns the instruction at addr, or false if addr is out of range.
func (is *Instructions) Get(addr InstructionAddress) (Instruction, bool) {
	if int(addr.index) >= len(is.entries) {
		return Instruction{}, false
	}
	return is.entries[addr.index], true
}

// Replace overwrites the instruction at addr in place. The compiler and
// the debugger do not call it; lowering emits no placeholders and
// breakpoints are kept in a debug.BreakpointSet.
func (is *Instructions) Replace(addr InstructionAddress, instruction Instruction) {
	is.entries[addr.index] = instruction
}

// Len returns the number of instructions pushed so far.
func (is *Instructions) Len() int { return len(is.entries) }

// All iterates the stream in address order.
func (is *Instructions) All(yield func(InstructionAddress, Instruction) bool) {
	for i, instr := range is.entries {
		if !yield(InstructionAddress{index: uint32(i)}, instr) {
			return
		}
	}
}
