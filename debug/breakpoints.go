// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debug is the bridge between a running runtime.Process and an
// interactive debugger: durable and ephemeral breakpoint sets, the
// instruction image that applies them, step semantics built on top of
// ephemeral breakpoints, and active-function reconstruction from a
// process's open return addresses.
package debug

import "github.com/crosscut-lang/crosscut/isa"

// BreakpointSet holds two independent subsets of instruction addresses:
// durable breakpoints the user set, which survive stepping, and
// ephemeral ones the debugger arms itself to implement a single step.
// Its zero value is usable.
type BreakpointSet struct {
	durable   map[isa.InstructionAddress]bool
	ephemeral map[isa.InstructionAddress]bool
}

// NewBreakpointSet returns an empty BreakpointSet.
func NewBreakpointSet() *BreakpointSet {
	return &BreakpointSet{durable: map[isa.InstructionAddress]bool{}, ephemeral: map[isa.InstructionAddress]bool{}}
}

// SetDurable marks addr as a user-set breakpoint.
func (s *BreakpointSet) SetDurable(addr isa.InstructionAddress) { s.durable[addr] = true }

// ClearDurable removes addr from the durable set.
func (s *BreakpointSet) ClearDurable(addr isa.InstructionAddress) { delete(s.durable, addr) }

// IsDurable reports whether addr is a durable breakpoint.
func (s *BreakpointSet) IsDurable(addr isa.InstructionAddress) bool { return s.durable[addr] }

// SetEphemeral arms addr as a landing site for the step currently being
// prepared.
func (s *BreakpointSet) SetEphemeral(addr isa.InstructionAddress) { s.ephemeral[addr] = true }

// ClearAllEphemeral removes every ephemeral breakpoint. Called at the
// start of preparing a new step, so a previous step's landing sites
// never fire on a later one.
func (s *BreakpointSet) ClearAllEphemeral() {
	for addr := range s.ephemeral {
		delete(s.ephemeral, addr)
	}
}

// IsBreakpoint reports whether addr is durable, ephemeral, or both.
func (s *BreakpointSet) IsBreakpoint(addr isa.InstructionAddress) bool {
	return s.durable[addr] || s.ephemeral[addr]
}

// Apply builds the instruction image the runtime actually executes:
// code's instructions, unchanged, except every breakpointed address is
// overwritten with TriggerEffect(Breakpoint). suppress, if non-nil, names
// one address to leave untouched even if it's a durable breakpoint — used
// while stepping off the instruction the process is currently stopped at,
// so continuing doesn't immediately re-trigger the same breakpoint. brkToNop,
// if non-nil, names one address whose raw instruction is itself a
// TriggerEffect(Breakpoint) (the `brk` intrinsic written in the program)
// to transparently replace with Nop in the applied image, so a step can
// pass over a source-level breakpoint the same way it passes over any
// other instruction.
func (s *BreakpointSet) Apply(code *isa.Instructions, suppress, brkToNop *isa.InstructionAddress) *isa.Instructions {
	var out isa.Instructions
	code.All(func(addr isa.InstructionAddress, instr isa.Instruction) bool {
		switch {
		case suppress != nil && addr == *suppress:
			// Leave as-is even if it's a durable breakpoint.
		case brkToNop != nil && addr == *brkToNop && instr.Op == isa.TriggerEffect && instr.TriggeredEffect == isa.Breakpoint:
			instr = isa.Instruction{Op: isa.Nop}
		case s.IsBreakpoint(addr):
			instr = isa.Instruction{Op: isa.TriggerEffect, TriggeredEffect: isa.Breakpoint}
		}
		out.Push(instr)
		return true
	})
	return &out
}
