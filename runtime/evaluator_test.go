// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"testing"

	"github.com/crosscut-lang/crosscut/code/lower"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/value"
)

func literalParam(v int32) *syntax.Parameter {
	return &syntax.Parameter{Kind: syntax.ParameterLiteral, LiteralValue: value.FromS32(v)}
}

func bindingParam(name string) *syntax.Parameter {
	return &syntax.Parameter{Kind: syntax.ParameterBinding, Name: name}
}

// callCluster builds a function whose three branches pattern-match the
// literals 0, 1, 2, each binding a second parameter "x", plus a process
// about to tail-call it.
func callCluster() (*Process, *lower.Output, syntax.FunctionLocation) {
	loc := syntax.NewNamedFunctionLocation(0)

	is := &isa.Instructions{}
	call := is.Push(isa.Instruction{Op: isa.CallFunction, Callee: loc, IsTailCall: true})
	start0 := is.Push(isa.Instruction{Op: isa.Return})
	start1 := is.Push(isa.Instruction{Op: isa.Return})
	start2 := is.Push(isa.Instruction{Op: isa.Return})

	info := lower.FunctionInfo{Branches: []lower.BranchInfo{
		{Parameters: []*syntax.Parameter{literalParam(0), bindingParam("x")}, Start: start0},
		{Parameters: []*syntax.Parameter{literalParam(1), bindingParam("x")}, Start: start1},
		{Parameters: []*syntax.Parameter{literalParam(2), bindingParam("x")}, Start: start2},
	}}

	out := &lower.Output{
		Instructions: is,
		Functions:    map[string]lower.FunctionInfo{loc.Key(): info},
		Entry:        call,
	}

	p := NewProcess(call)
	p.Stack.PushOperand(value.FromS32(1))
	p.Stack.PushOperand(value.FromS32(2))

	return p, out, loc
}

func TestCallFunctionPatternDispatch(t *testing.T) {
	p, out, loc := callCluster()

	effect, triggered := p.Step(out.Instructions, out)
	if triggered {
		t.Fatalf("unexpected effect %v", effect)
	}

	info := out.Functions[loc.Key()]
	if p.Next != info.Branches[1].Start {
		t.Errorf("next instruction = %v; want branch[1].Start = %v", p.Next, info.Branches[1].Start)
	}
	if p.Stack.NoFramesLeft() {
		t.Fatal("tail call should not have popped the initial frame")
	}

	v, ok := p.Stack.PopOperand()
	if !ok || v.AsS32() != 2 {
		t.Errorf("bound argument left on stack = %v, %v; want 2, true", v, ok)
	}
	if b, _ := p.Stack.Bindings(); len(b) != 0 {
		t.Errorf("ReuseFrame should have cleared bindings, got %v", b)
	}
}

func TestCallFunctionNoMatchRestoresOperands(t *testing.T) {
	p, out, _ := callCluster()
	// Replace the operands so neither branch's literal pattern (0, 1, or
	// 2) matches.
	p.Stack.PopOperand()
	p.Stack.PopOperand()
	p.Stack.PushOperand(value.FromS32(99))
	p.Stack.PushOperand(value.FromS32(5))

	effect, triggered := p.Step(out.Instructions, out)
	if !triggered || effect != isa.NoMatch {
		t.Fatalf("Step() = %v, %v; want NoMatch, true", effect, triggered)
	}

	x, ok := p.Stack.PopOperand()
	if !ok || x.AsS32() != 5 {
		t.Errorf("operand restored after failed match = %v, %v; want 5, true", x, ok)
	}
	pattern, ok := p.Stack.PopOperand()
	if !ok || pattern.AsS32() != 99 {
		t.Errorf("operand restored after failed match = %v, %v; want 99, true", pattern, ok)
	}
}

func TestCallFunctionNonTailCallPushesFrameAndReturns(t *testing.T) {
	loc := syntax.NewNamedFunctionLocation(0)

	is := &isa.Instructions{}
	call := is.Push(isa.Instruction{Op: isa.CallFunction, Callee: loc, IsTailCall: false})
	after := is.NextAddress()
	branchStart := is.Push(isa.Instruction{Op: isa.Return})

	out := &lower.Output{
		Instructions: is,
		Functions: map[string]lower.FunctionInfo{loc.Key(): {
			Branches: []lower.BranchInfo{{Parameters: nil, Start: branchStart}},
		}},
		Entry: call,
	}

	p := NewProcess(call)

	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("CallFunction should not trigger an effect")
	}
	if p.Next != branchStart {
		t.Fatalf("next = %v; want %v", p.Next, branchStart)
	}

	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("Return should not trigger an effect")
	}
	if p.Next != after {
		t.Fatalf("Return should resume at the call's return address %v, got %v", after, p.Next)
	}
	if p.Stack.NoFramesLeft() {
		t.Fatal("returning from the pushed frame should not finish the process")
	}
}

func TestReturnFromInitialFrameFinishesProcess(t *testing.T) {
	is := &isa.Instructions{}
	is.Push(isa.Instruction{Op: isa.Return})
	out := &lower.Output{Instructions: is, Functions: map[string]lower.FunctionInfo{}}

	p := NewProcess(isa.InstructionAddress{})
	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("Return should not trigger an effect")
	}
	if !p.Finished() {
		t.Fatal("returning from the initial frame should finish the process")
	}
	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("stepping a finished process should be a no-op, not an effect")
	}
}

func TestTailRecursionStaysWithinFrameLimit(t *testing.T) {
	// f: fn br n -> n 1 sub_s32 f end end, called with n large enough
	// that non-tail-call recursion would overflow FrameLimit long before
	// this loop's iteration count does.
	loc := syntax.NewNamedFunctionLocation(0)

	is := &isa.Instructions{}
	start := is.NextAddress()
	is.Push(isa.Instruction{Op: isa.Bind, Name: "n"})
	is.Push(isa.Instruction{Op: isa.BindingEvaluate, Name: "n"})
	is.Push(isa.Instruction{Op: isa.Push, Value: value.FromS32(1)})
	is.Push(isa.Instruction{Op: isa.SubS32})
	is.Push(isa.Instruction{Op: isa.CallFunction, Callee: loc, IsTailCall: true})
	is.Push(isa.Instruction{Op: isa.Return})

	out := &lower.Output{
		Instructions: is,
		Functions: map[string]lower.FunctionInfo{loc.Key(): {
			Branches: []lower.BranchInfo{{Parameters: []*syntax.Parameter{bindingParam("n")}, Start: start}},
		}},
	}

	p := NewProcess(start)
	p.Stack.PushOperand(value.FromS32(1000))

	for i := 0; i < 1000; i++ {
		effect, triggered := p.Step(out.Instructions, out)
		if triggered {
			t.Fatalf("iteration %d: unexpected effect %v", i, effect)
		}
	}
}

func TestEvalConsumesClosureAndExtendsEnvironment(t *testing.T) {
	is := &isa.Instructions{}
	start := is.NextAddress()
	is.Push(isa.Instruction{Op: isa.BindingEvaluate, Name: "x"})
	is.Push(isa.Instruction{Op: isa.Return})

	out := &lower.Output{Instructions: is}

	p := NewProcess(isa.InstructionAddress{})
	p.Stack.DefineBinding("x", value.FromS32(7))
	idx := p.Heap.Store(Closure{
		Branches:    []lower.BranchInfo{{Start: start}},
		Environment: map[string]value.Value{"x": value.FromS32(7)},
	})
	p.Stack.PushOperand(value.FromU32(idx))
	p.Next = is.Push(isa.Instruction{Op: isa.Eval, IsTailCall: true})

	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("Eval should not trigger an effect on a valid closure")
	}
	if p.Next != start {
		t.Fatalf("Eval should jump to the closure's matched branch, got %v want %v", p.Next, start)
	}
	if b, _ := p.Stack.Bindings(); b["x"].AsS32() != 7 {
		t.Errorf("Eval should extend bindings with the closure's environment, got %v", b)
	}

	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("BindingEvaluate should not trigger an effect")
	}
	v, ok := p.Stack.PopOperand()
	if !ok || v.AsS32() != 7 {
		t.Errorf("stack top = %v, %v; want 7, true", v, ok)
	}

	// Re-evaluating the same (now consumed) index is InvalidFunction.
	p.Stack.PushOperand(value.FromU32(idx))
	p.Next = is.Push(isa.Instruction{Op: isa.Eval, IsTailCall: true})
	effect, triggered := p.Step(out.Instructions, out)
	if !triggered || effect != isa.InvalidFunction {
		t.Fatalf("re-Eval of a consumed index = %v, %v; want InvalidFunction, true", effect, triggered)
	}
}

func TestCopyPopsOffsetFromStack(t *testing.T) {
	is := &isa.Instructions{}
	out := &lower.Output{Instructions: is}
	p := NewProcess(isa.InstructionAddress{})

	p.Stack.PushOperand(value.FromS32(10))
	p.Stack.PushOperand(value.FromS32(20))
	p.Stack.PushOperand(value.FromS32(30))
	p.Stack.PushOperand(value.FromU32(1)) // offset: duplicate the second-from-top (20)

	p.Next = is.Push(isa.Instruction{Op: isa.Copy})

	if _, triggered := p.Step(out.Instructions, out); triggered {
		t.Fatal("Copy should not trigger an effect")
	}
	v, ok := p.Stack.PopOperand()
	if !ok || v.AsS32() != 20 {
		t.Errorf("Copy with offset 1 = %v, %v; want 20, true", v, ok)
	}
}

func TestArithmeticOverflowTriggersEffect(t *testing.T) {
	is := &isa.Instructions{}
	out := &lower.Output{Instructions: is}
	p := NewProcess(isa.InstructionAddress{})

	p.Stack.PushOperand(value.FromS32(math32Max))
	p.Stack.PushOperand(value.FromS32(1))
	p.Next = is.Push(isa.Instruction{Op: isa.AddS32})

	effect, triggered := p.Step(out.Instructions, out)
	if !triggered || effect != isa.IntegerOverflow {
		t.Fatalf("AddS32 overflow = %v, %v; want IntegerOverflow, true", effect, triggered)
	}
	// The effect does not advance past the instruction.
	if p.Next != is.NextAddress().Previous() {
		t.Errorf("Step should not advance Next past a triggered effect")
	}
}

func TestDivideByZero(t *testing.T) {
	is := &isa.Instructions{}
	out := &lower.Output{Instructions: is}
	p := NewProcess(isa.InstructionAddress{})

	p.Stack.PushOperand(value.FromS32(10))
	p.Stack.PushOperand(value.FromS32(0))
	p.Next = is.Push(isa.Instruction{Op: isa.DivS32})

	effect, triggered := p.Step(out.Instructions, out)
	if !triggered || effect != isa.DivideByZero {
		t.Fatalf("DivS32 by zero = %v, %v; want DivideByZero, true", effect, triggered)
	}
}

func TestTriggerEffectHost(t *testing.T) {
	is := &isa.Instructions{}
	out := &lower.Output{Instructions: is}
	p := NewProcess(isa.InstructionAddress{})

	p.Next = is.Push(isa.Instruction{Op: isa.TriggerEffect, TriggeredEffect: isa.Host})

	effect, triggered := p.Step(out.Instructions, out)
	if !triggered || effect != isa.Host {
		t.Fatalf("Step() = %v, %v; want Host, true", effect, triggered)
	}

	p.ClearEffect()
	if p.Next != is.NextAddress() {
		t.Errorf("ClearEffect should advance past the TriggerEffect instruction")
	}
}

const math32Max = 2147483647
