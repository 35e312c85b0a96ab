// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isa defines Crosscut's instruction set: the flat, addressable
// program a compiled function lowers to and the runtime steps through.
package isa

import (
	"fmt"

	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/value"
)

// Opcode identifies the kind of an Instruction.
type Opcode int

const (
	AddS8 Opcode = iota
	AddS32
	AddU8
	AddU8Wrap
	Bind
	BindingEvaluate
	CallFunction
	ConvertS32ToS8
	Copy
	DivS32
	DivU8
	Drop
	Eq
	Eval
	GreaterS8
	GreaterS32
	GreaterU8
	LogicalAnd
	LogicalNot
	MakeAnonymousFunction
	MulS32
	MulU8Wrap
	NegS32
	Nop
	Push
	RemainderS32
	Return
	SubS32
	SubU8
	SubU8Wrap
	TriggerEffect
)

func (op Opcode) String() string {
	switch op {
	case AddS8:
		return "add.s8"
	case AddS32:
		return "add.s32"
	case AddU8:
		return "add.u8"
	case AddU8Wrap:
		return "add.u8.wrap"
	case Bind:
		return "bind"
	case BindingEvaluate:
		return "binding.evaluate"
	case CallFunction:
		return "call"
	case ConvertS32ToS8:
		return "convert.s32_to_s8"
	case Copy:
		return "copy"
	case DivS32:
		return "div.s32"
	case DivU8:
		return "div.u8"
	case Drop:
		return "drop"
	case Eq:
		return "eq"
	case Eval:
		return "eval"
	case GreaterS8:
		return "gt.s8"
	case GreaterS32:
		return "gt.s32"
	case GreaterU8:
		return "gt.u8"
	case LogicalAnd:
		return "and"
	case LogicalNot:
		return "not"
	case MakeAnonymousFunction:
		return "make_anonymous_function"
	case MulS32:
		return "mul.s32"
	case MulU8Wrap:
		return "mul.u8.wrap"
	case NegS32:
		return "neg.s32"
	case Nop:
		return "nop"
	case Push:
		return "push"
	case RemainderS32:
		return "rem.s32"
	case Return:
		return "return"
	case SubS32:
		return "sub.s32"
	case SubU8:
		return "sub.u8"
	case SubU8Wrap:
		return "sub.u8.wrap"
	case TriggerEffect:
		return "trigger_effect"
	default:
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
}

// Effect is an exceptional or host-directed outcome signaled by
// TriggerEffect, or raised implicitly by an arithmetic or lookup
// instruction. Effects suspend the calling process; the debugger and the
// host each handle a different subset of them (see package debug and
// package host).
type Effect int

const (
	// Breakpoint marks a durable or ephemeral breakpoint hit.
	Breakpoint Effect = iota
	// Host signals a call into a host function; the host's response
	// resumes execution.
	Host
	// BuildError is raised on reaching an expression that failed to
	// compile (an unresolved identifier); the rest of the program still
	// runs until then.
	BuildError
	// CompilerBug means the compiler produced an instruction stream it
	// shouldn't have; this is always this implementation's fault, never
	// the program's.
	CompilerBug
	// IntegerOverflow is raised by a checked arithmetic instruction.
	IntegerOverflow
	// DivideByZero is raised by a division or remainder instruction.
	DivideByZero
	// InvalidArgument is raised when an instruction's stack operands
	// don't meet its preconditions: ConvertS32ToS8 given a value outside
	// the s8 range, or Copy given an offset beyond the operands on the
	// stack.
	InvalidArgument
	// OperandOutOfBounds is raised when a non-tail call would open more
	// stack frames than runtime.FrameLimit allows.
	OperandOutOfBounds
	// InvalidFunction is raised by Eval when the heap index on top of the
	// stack doesn't identify a live anonymous function.
	InvalidFunction
	// InvalidHostEffect names a host call to a function the host table
	// doesn't recognize. Neither the runtime nor dbgrpc.Session raises it:
	// Session.Run reports an unknown host function number as an error.
	InvalidHostEffect
	// NoMatch is raised when a CallFunction's argument pattern doesn't
	// match any of the callee's branches.
	NoMatch
)

func (e Effect) String() string {
	switch e {
	case Breakpoint:
		return "breakpoint"
	case Host:
		return "host"
	case BuildError:
		return "build_error"
	case CompilerBug:
		return "compiler_bug"
	case IntegerOverflow:
		return "integer_overflow"
	case DivideByZero:
		return "divide_by_zero"
	case InvalidArgument:
		return "invalid_argument"
	case OperandOutOfBounds:
		return "operand_out_of_bounds"
	case InvalidFunction:
		return "invalid_function"
	case InvalidHostEffect:
		return "invalid_host_effect"
	case NoMatch:
		return "no_match"
	default:
		return fmt.Sprintf("Effect(%d)", int(e))
	}
}

// Instruction is one step of a lowered program. Only the fields relevant to
// its Op are meaningful; see the field comments.
type Instruction struct {
	Op Opcode

	// Push.
	Value value.Value

	// Bind, BindingEvaluate: the name bound or looked up.
	Name string

	// CallFunction: the statically known callee and whether this call is
	// in tail position (letting the runtime reuse the current frame
	// instead of pushing a new one).
	Callee     syntax.FunctionLocation
	IsTailCall bool

	// Eval: whether this evaluation is in tail position.
	// (reuses IsTailCall)

	// MakeAnonymousFunction: the function literal being closed over, and
	// the set of outer names it captures.
	Closure     syntax.FunctionLocation
	Environment []string

	// TriggerEffect: the effect raised.
	TriggeredEffect Effect
}

func (i Instruction) String() string {
	switch i.Op {
	case Push:
		return fmt.Sprintf("push %s", i.Value)
	case Bind, BindingEvaluate:
		return fmt.Sprintf("%s %q", i.Op, i.Name)
	case CallFunction:
		return fmt.Sprintf("call %s tail=%t", i.Callee, i.IsTailCall)
	case Eval:
		return fmt.Sprintf("eval tail=%t", i.IsTailCall)
	case MakeAnonymousFunction:
		return fmt.Sprintf("make_anonymous_function %s env=%v", i.Closure, i.Environment)
	case TriggerEffect:
		return fmt.Sprintf("trigger_effect %s", i.TriggeredEffect)
	default:
		return i.Op.String()
	}
}
