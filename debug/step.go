// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debug

import (
	"github.com/crosscut-lang/crosscut/code/lower"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/sourcemap"
	"github.com/crosscut-lang/crosscut/syntax"
)

// StepKind distinguishes the three ways an embedder can ask the process
// to advance by one logical step rather than run freely.
type StepKind int

const (
	StepIn StepKind = iota
	StepOver
	StepOut
)

// Commands is the two-command sequence a prepared step always emits, in
// order: clear the breakpoint the process is currently stopped at and
// evaluate just that one instruction (stepping past a source-level `brk`
// or a durable breakpoint that would otherwise immediately re-fire),
// then, with the ephemeral landing sites armed, clear the breakpoint
// again and continue.
type Commands struct {
	EvaluateNextInstruction bool
	Continue                bool
}

// Prepare arms the ephemeral breakpoints for one step and returns the
// instruction image to run it against. current is the address the
// process is presently stopped at; returnAddrs is its open frames' return
// addresses, outermost first (runtime.Stack.ReturnAddresses).
//
// StepIn on a user-defined call arms every branch of the callee's first
// expression, since pattern matching — not the debugger — decides which
// one actually fires. Every other case, including StepIn on a
// non-call expression, falls back to "next expression": first in the
// same branch, then (skipping comments) after the calling expression one
// frame up, and so on until either a landing site is found or the walk
// runs off the top of the call stack (a leaf expression of main), in
// which case no ephemeral breakpoint is armed at all and the process is
// left to run to completion.
func Prepare(kind StepKind, code *isa.Instructions, out *lower.Output, sm *sourcemap.Map, tree *syntax.Tree, bps *BreakpointSet, current isa.InstructionAddress, returnAddrs []isa.InstructionAddress) (image *isa.Instructions, cmds Commands) {
	bps.ClearAllEphemeral()

	if kind == StepIn {
		if instr, ok := code.Get(current); ok && instr.Op == isa.CallFunction {
			if info, ok := out.FunctionByLocation(instr.Callee); ok {
				for _, branch := range info.Branches {
					bps.SetEphemeral(branch.Start)
				}
				return finishPrepare(code, bps, current)
			}
		}
	}

	if addr, ok := nextLandingSite(tree, sm, current, returnAddrs); ok {
		bps.SetEphemeral(addr)
	}
	return finishPrepare(code, bps, current)
}

func finishPrepare(code *isa.Instructions, bps *BreakpointSet, current isa.InstructionAddress) (*isa.Instructions, Commands) {
	return ClearImage(code, bps, current), Commands{EvaluateNextInstruction: true, Continue: true}
}

// ClearImage returns the instruction image for executing exactly the one
// real instruction at current — whatever a durable breakpoint, an
// ephemeral one, or a source-level brk is currently hiding there —
// without immediately re-triggering. Everywhere else bps's ordinary
// breakpoints still apply. An embedder clears a Stopped session with
// this image for one Step before resuming normal stepping, the same way
// Prepare does for a StepIn/StepOver/StepOut.
func ClearImage(code *isa.Instructions, bps *BreakpointSet, current isa.InstructionAddress) *isa.Instructions {
	raw, _ := code.Get(current)
	var brkToNop *isa.InstructionAddress
	if raw.Op == isa.TriggerEffect && raw.TriggeredEffect == isa.Breakpoint {
		brkToNop = &current
	}
	suppress := current
	return bps.Apply(code, &suppress, brkToNop)
}

// nextLandingSite finds the next expression execution should land on
// after current: try the rest of current's own branch first, then walk
// outward one caller at a time using returnAddrs (innermost first),
// stopping at the first enclosing expression that has a later sibling.
func nextLandingSite(tree *syntax.Tree, sm *sourcemap.Map, current isa.InstructionAddress, returnAddrs []isa.InstructionAddress) (isa.InstructionAddress, bool) {
	if loc, ok := sm.InstructionToExpression(current); ok {
		if addr, ok := nextSiblingAddress(tree, sm, loc); ok {
			return addr, true
		}
	}

	for i := len(returnAddrs) - 1; i >= 0; i-- {
		callSite := returnAddrs[i].Previous()
		loc, ok := sm.InstructionToExpression(callSite)
		if !ok {
			// The synthetic top-level call into main has no enclosing
			// expression; there is nowhere further out to walk.
			continue
		}
		if addr, ok := nextSiblingAddress(tree, sm, loc); ok {
			return addr, true
		}
	}
	return isa.InstructionAddress{}, false
}

// nextSiblingAddress returns the landing site of the non-comment member
// that follows loc in its own branch body, if any.
func nextSiblingAddress(tree *syntax.Tree, sm *sourcemap.Map, loc syntax.MemberLocation) (isa.InstructionAddress, bool) {
	branch := tree.BranchByLocation(loc.Parent)
	if branch == nil {
		return isa.InstructionAddress{}, false
	}
	exprs := branch.Expressions()
	for i, m := range exprs {
		if m.Location.Equal(loc) && i+1 < len(exprs) {
			return sm.ExpressionAddress(exprs[i+1].Location)
		}
	}
	return isa.InstructionAddress{}, false
}
