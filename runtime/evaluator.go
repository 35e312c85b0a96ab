// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runtime executes a lowered program: a stack-based evaluator
// that steps one instruction at a time, raising an Effect whenever it
// can't make forward progress without help from the embedder (a host
// call, a breakpoint, an arithmetic fault, a failed pattern match).
package runtime

import (
	"math"

	"github.com/crosscut-lang/crosscut/code/lower"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/value"
)

// Process is one running instance of a compiled program: its stack, its
// closure heap, and the address it will execute next. Multiple processes
// can share the same *isa.Instructions and *lower.Output, since neither
// is mutated by execution — only Process itself is.
type Process struct {
	Stack *Stack
	Heap  *Heap
	Next  isa.InstructionAddress
}

// NewProcess starts a process at entry with a fresh stack and heap.
func NewProcess(entry isa.InstructionAddress) *Process {
	return &Process{Stack: NewStack(), Heap: NewHeap(), Next: entry}
}

// Finished reports whether the process has run to completion (its
// initial frame has returned).
func (p *Process) Finished() bool { return p.Stack.NoFramesLeft() }

// ActiveInstructions returns the addresses of every instruction on the
// active call path: one per open frame (corrected from "address to
// resume at" to "address that is currently suspended, one instruction
// earlier"), plus the instruction about to execute. Package debug uses
// this to reconstruct which named functions are currently active.
func (p *Process) ActiveInstructions() []isa.InstructionAddress {
	returns := p.Stack.ReturnAddresses()
	out := make([]isa.InstructionAddress, 0, len(returns)+1)
	for _, addr := range returns {
		out = append(out, addr.Previous())
	}
	return append(out, p.Next)
}

// ClearEffect advances past the instruction that triggered the most
// recent effect. The embedder calls this once it has handled (or decided
// to ignore) the effect Step returned; clearing moves on to the next
// instruction.
func (p *Process) ClearEffect() { p.Next = p.Next.Next() }

// Step executes exactly one instruction. If that instruction (or an
// implicit fault, like division by zero) triggers an effect, Step
// returns it with triggered true and does not advance Next — the
// embedder must call ClearEffect (possibly after substituting a
// different effect, or after satisfying a Host call) before stepping
// again. If the process has already finished, Step is a no-op.
func (p *Process) Step(code *isa.Instructions, out *lower.Output) (isa.Effect, bool) {
	if p.Stack.NoFramesLeft() {
		return 0, false
	}

	instr, ok := code.Get(p.Next)
	if !ok {
		// Every reachable address was assigned by the lowering pass that
		// produced out; reaching one that the same instruction stream
		// doesn't actually have is this implementation's bug, not the
		// running program's.
		return isa.CompilerBug, true
	}

	next, effect, triggered := p.execute(instr, out)
	if triggered {
		return effect, true
	}
	p.Next = next
	return 0, false
}

func (p *Process) execute(instr isa.Instruction, out *lower.Output) (next isa.InstructionAddress, effect isa.Effect, triggered bool) {
	advance := p.Next.Next()

	pop2 := func() (a, b value.Value, ok bool) {
		b, ok = p.Stack.PopOperand()
		if !ok {
			return
		}
		a, ok = p.Stack.PopOperand()
		return
	}

	switch instr.Op {
	case isa.AddS8:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		sum := int16(a.AsS8()) + int16(b.AsS8())
		if sum < math.MinInt8 || sum > math.MaxInt8 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromS8(int8(sum)))

	case isa.AddS32:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		sum := int64(a.AsS32()) + int64(b.AsS32())
		if sum < math.MinInt32 || sum > math.MaxInt32 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromS32(int32(sum)))

	case isa.AddU8:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		sum := uint16(a.AsU8()) + uint16(b.AsU8())
		if sum > math.MaxUint8 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromU8(uint8(sum)))

	case isa.AddU8Wrap:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromU8(a.AsU8() + b.AsU8()))

	case isa.Bind:
		v, ok := p.Stack.PopOperand()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.DefineBinding(instr.Name, v)

	case isa.BindingEvaluate:
		bindings, ok := p.Stack.Bindings()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		v, ok := bindings[instr.Name]
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(v)

	case isa.CallFunction:
		info, ok := out.FunctionByLocation(instr.Callee)
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		dest, fault, ok := p.dispatch(info.Branches, nil, instr.IsTailCall, advance)
		if !ok {
			return p.Next, fault, true
		}
		return dest, 0, false

	case isa.ConvertS32ToS8:
		v, ok := p.Stack.PopOperand()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		s32 := v.AsS32()
		if s32 < math.MinInt8 || s32 > math.MaxInt8 {
			return p.Next, isa.InvalidArgument, true
		}
		p.Stack.PushOperand(value.FromS8(int8(s32)))

	case isa.Copy:
		offset, ok := p.Stack.PopOperand()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		v, ok := p.Stack.OperandAt(int(offset.AsU32()))
		if !ok {
			return p.Next, isa.InvalidArgument, true
		}
		p.Stack.PushOperand(v)

	case isa.DivS32:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		if b.AsS32() == 0 {
			return p.Next, isa.DivideByZero, true
		}
		if a.AsS32() == math.MinInt32 && b.AsS32() == -1 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromS32(a.AsS32() / b.AsS32()))

	case isa.DivU8:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		if b.AsU8() == 0 {
			return p.Next, isa.DivideByZero, true
		}
		p.Stack.PushOperand(value.FromU8(a.AsU8() / b.AsU8()))

	case isa.Drop:
		if _, ok := p.Stack.PopOperand(); !ok {
			return p.Next, isa.CompilerBug, true
		}

	case isa.Eq:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromBool(a == b))

	case isa.Eval:
		index, ok := p.Stack.PopOperand()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		closure, ok := p.Heap.Take(index.AsU32())
		if !ok {
			return p.Next, isa.InvalidFunction, true
		}
		dest, fault, ok := p.dispatch(closure.Branches, closure.Environment, instr.IsTailCall, advance)
		if !ok {
			return p.Next, fault, true
		}
		return dest, 0, false

	case isa.GreaterS8:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromBool(a.AsS8() > b.AsS8()))

	case isa.GreaterS32:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromBool(a.AsS32() > b.AsS32()))

	case isa.GreaterU8:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromBool(a.AsU8() > b.AsU8()))

	case isa.LogicalAnd:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromBool(a.Bool() && b.Bool()))

	case isa.LogicalNot:
		a, ok := p.Stack.PopOperand()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromBool(!a.Bool()))

	case isa.MakeAnonymousFunction:
		info, ok := out.FunctionByLocation(instr.Closure)
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		bindings, ok := p.Stack.Bindings()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		env := make(map[string]value.Value, len(instr.Environment))
		for _, name := range instr.Environment {
			v, ok := bindings[name]
			if !ok {
				return p.Next, isa.CompilerBug, true
			}
			env[name] = v
		}
		index := p.Heap.Store(Closure{Branches: info.Branches, Environment: env})
		p.Stack.PushOperand(value.FromU32(index))

	case isa.MulS32:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		product := int64(a.AsS32()) * int64(b.AsS32())
		if product < math.MinInt32 || product > math.MaxInt32 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromS32(int32(product)))

	case isa.MulU8Wrap:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromU8(a.AsU8() * b.AsU8()))

	case isa.NegS32:
		a, ok := p.Stack.PopOperand()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		if a.AsS32() == math.MinInt32 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromS32(-a.AsS32()))

	case isa.Nop:
		// No operation.

	case isa.Push:
		p.Stack.PushOperand(instr.Value)

	case isa.RemainderS32:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		if b.AsS32() == 0 {
			return p.Next, isa.DivideByZero, true
		}
		p.Stack.PushOperand(value.FromS32(a.AsS32() % b.AsS32()))

	case isa.Return:
		if addr, ok := p.Stack.PopFrame(); ok {
			return addr, 0, false
		}
		// The popped frame was the initial one: the process has
		// finished. advance is discarded the moment the caller next
		// observes Finished(), but a Return still always moves past
		// itself, so return it rather than p.Next.
		return advance, 0, false

	case isa.SubS32:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		diff := int64(a.AsS32()) - int64(b.AsS32())
		if diff < math.MinInt32 || diff > math.MaxInt32 {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromS32(int32(diff)))

	case isa.SubU8:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		if b.AsU8() > a.AsU8() {
			return p.Next, isa.IntegerOverflow, true
		}
		p.Stack.PushOperand(value.FromU8(a.AsU8() - b.AsU8()))

	case isa.SubU8Wrap:
		a, b, ok := pop2()
		if !ok {
			return p.Next, isa.CompilerBug, true
		}
		p.Stack.PushOperand(value.FromU8(a.AsU8() - b.AsU8()))

	case isa.TriggerEffect:
		return p.Next, instr.TriggeredEffect, true

	default:
		return p.Next, isa.CompilerBug, true
	}

	return advance, 0, false
}

// dispatch tries branches in order against the operands on top of the
// stack, the way CallFunction and Eval both do: pop one operand per
// parameter, rightmost first; literal parameters must equal
// the popped operand, binding parameters are remembered for the new
// frame. The first branch that matches wins; on mismatch every popped
// operand is pushed back so the next branch sees the same arguments.
// env, if non-nil, is an Eval closure's captured environment, merged into
// the new frame's bindings once a branch matches.
func (p *Process) dispatch(branches []lower.BranchInfo, env map[string]value.Value, isTailCall bool, returnTo isa.InstructionAddress) (isa.InstructionAddress, isa.Effect, bool) {
	for _, branch := range branches {
		var used, args []value.Value
		matched := true

		for i := len(branch.Parameters) - 1; i >= 0; i-- {
			param := branch.Parameters[i]
			v, ok := p.Stack.PopOperand()
			if !ok {
				// A malformed instruction stream; restore nothing since
				// there's nothing sound left to restore to.
				return isa.InstructionAddress{}, isa.CompilerBug, false
			}
			used = append(used, v)

			switch param.Kind {
			case syntax.ParameterBinding:
				args = append(args, v)
			case syntax.ParameterLiteral:
				matched = matched && param.LiteralValue == v
			}
		}

		if !matched {
			// used was filled rightmost-parameter-first (the order
			// they were popped); restore them in the reverse order so
			// the stack ends up exactly as it was before this branch
			// was tried.
			for i := len(used) - 1; i >= 0; i-- {
				p.Stack.PushOperand(used[i])
			}
			continue
		}

		for i := len(args) - 1; i >= 0; i-- {
			p.Stack.PushOperand(args[i])
		}

		if isTailCall {
			p.Stack.ReuseFrame()
		} else if err := p.Stack.PushFrame(returnTo); err != nil {
			// Every matched operand has already been restored to the
			// stack above; only the frame itself failed to open.
			return isa.InstructionAddress{}, isa.OperandOutOfBounds, false
		}

		if env != nil {
			bindings, _ := p.Stack.Bindings()
			for name, v := range env {
				bindings[name] = v
			}
		}

		return branch.Start, 0, true
	}

	return isa.InstructionAddress{}, isa.NoMatch, false
}
