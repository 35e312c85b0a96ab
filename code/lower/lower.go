// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lower compiles a parsed, classified program into a flat
// instruction stream: one contiguous range of instructions per function,
// a source map from addresses back to the syntax that produced them, and
// a table of each function's branches for the runtime's call dispatch.
package lower

import (
	"fmt"

	"github.com/crosscut-lang/crosscut/code/bindings"
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/code/recursion"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/sourcemap"
	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/value"
)

// BranchInfo is one branch of a function as CallFunction/Eval dispatch
// needs it: the parameter pattern to match a call's arguments against,
// and the address its body starts at (right after its Bind instructions'
// targets are matched, execution resumes here).
type BranchInfo struct {
	Parameters []*syntax.Parameter
	Start      isa.InstructionAddress
}

// FunctionInfo is everything the runtime needs to dispatch a call to one
// function: its branches, tried in declaration order.
type FunctionInfo struct {
	Branches []BranchInfo
}

// Output is a fully lowered program.
type Output struct {
	Instructions *isa.Instructions
	SourceMap    *sourcemap.Map
	Functions    map[string]FunctionInfo // syntax.FunctionLocation.Key()
	Entry        isa.InstructionAddress
}

// FunctionByLocation looks up a function's dispatch table by location.
func (o *Output) FunctionByLocation(loc syntax.FunctionLocation) (FunctionInfo, bool) {
	info, ok := o.Functions[loc.Key()]
	return info, ok
}

// Lower compiles tree into a flat instruction stream entered by calling
// the top-level function named "main". Every call and local-function
// reference addresses its target by syntax.FunctionLocation rather than
// by instruction address, so a callee's identity is known from the
// syntax tree before a single instruction is emitted; recursive and
// forward-referenced calls need no placeholder-then-patch step, only
// the dispatch table consulted at call time. See DESIGN.md for the full
// account of this simplification.
func Lower(tree *syntax.Tree, b *bindings.Bindings, ids *identifiers.Identifiers, rec *recursion.Recursion) (*Output, error) {
	main, ok := tree.FunctionByName("main")
	if !ok {
		return nil, fmt.Errorf("lower: program declares no main function")
	}

	l := &lowering{
		tree:  tree,
		binds: b,
		ids:   ids,
		rec:   rec,
		sm:    sourcemap.New(),
		funcs: map[string]FunctionInfo{},
	}

	entry := l.is.Push(isa.Instruction{Op: isa.CallFunction, Callee: main.Location, IsTailCall: false})
	l.is.Push(isa.Instruction{Op: isa.Return})

	for _, nf := range tree.NamedFunctions {
		l.lowerFunction(nf.Function, nf.Location)
	}

	l.sm.Sort()
	return &Output{
		Instructions: &l.is,
		SourceMap:    l.sm,
		Functions:    l.funcs,
		Entry:        entry,
	}, nil
}

type lowering struct {
	tree  *syntax.Tree
	binds *bindings.Bindings
	ids   *identifiers.Identifiers
	rec   *recursion.Recursion
	is    isa.Instructions
	sm    *sourcemap.Map
	funcs map[string]FunctionInfo
}

func (l *lowering) lowerFunction(fn *syntax.Function, loc syntax.FunctionLocation) {
	if _, done := l.funcs[loc.Key()]; done {
		return
	}

	// Local functions defined in fn's branches get their own ranges ahead
	// of fn's, so none of their instructions land inside fn's range.
	for _, branch := range fn.Branches {
		for _, member := range branch.Expressions() {
			if member.Expr.Kind == syntax.ExprLocalFunction {
				l.lowerFunction(member.Expr.Function, syntax.NewLocalFunctionLocation(member.Location))
			}
		}
	}

	var branches []BranchInfo
	first := l.is.NextAddress()
	for _, branch := range fn.Branches {
		branches = append(branches, l.lowerBranch(branch, loc))
	}
	last := l.is.NextAddress().Previous()
	l.funcs[loc.Key()] = FunctionInfo{Branches: branches}
	l.sm.MapFunction(loc, first, last)
}

func (l *lowering) lowerBranch(branch *syntax.Branch, funcLoc syntax.FunctionLocation) BranchInfo {
	start := l.is.NextAddress()

	// Bind instructions pop the call's re-pushed operands off the operand
	// stack into this frame's bindings, top-of-stack (rightmost
	// parameter) first. Literal parameters are consumed entirely by
	// CallFunction's own pattern match and never reach the branch body.
	for i := len(branch.Parameters) - 1; i >= 0; i-- {
		p := branch.Parameters[i]
		if p.Kind == syntax.ParameterBinding {
			l.is.Push(isa.Instruction{Op: isa.Bind, Name: p.Name})
		}
	}

	for _, member := range branch.Expressions() {
		l.lowerMember(member, funcLoc)
	}

	l.is.Push(isa.Instruction{Op: isa.Return})
	return BranchInfo{Parameters: branch.Parameters, Start: start}
}

func (l *lowering) lowerMember(member *syntax.Member, funcLoc syntax.FunctionLocation) {
	mp := sourcemap.NewMapping(member.Location)
	push := func(instr isa.Instruction) {
		mp.Append(l.is.Push(instr))
	}
	defer l.sm.Finish(mp)

	switch member.Expr.Kind {
	case syntax.ExprLiteralNumber:
		push(isa.Instruction{Op: isa.Push, Value: member.Expr.Value})

	case syntax.ExprIdentifier:
		l.lowerIdentifier(member, push)

	case syntax.ExprLocalFunction:
		childLoc := syntax.NewLocalFunctionLocation(member.Location)
		l.lowerFunction(member.Expr.Function, childLoc)

		var names []string
		for _, ploc := range l.binds.EnvironmentOf(childLoc).Locations() {
			names = append(names, l.tree.ParameterByLocation(ploc).Name)
		}
		push(isa.Instruction{Op: isa.MakeAnonymousFunction, Closure: childLoc, Environment: names})
	}
}

func (l *lowering) lowerIdentifier(member *syntax.Member, push func(isa.Instruction)) {
	target, ok := l.ids.TargetOf(member.Location)
	if !ok || target.Kind == identifiers.Unresolved {
		// An unresolved identifier doesn't stop compilation; reaching it
		// at runtime raises a BuildError effect.
		push(isa.Instruction{Op: isa.TriggerEffect, TriggeredEffect: isa.BuildError})
		return
	}

	switch target.Kind {
	case identifiers.Binding:
		param := l.tree.ParameterByLocation(target.BindingLocation)
		push(isa.Instruction{Op: isa.BindingEvaluate, Name: param.Name})

	case identifiers.HostFunction:
		push(isa.Instruction{Op: isa.Push, Value: value.FromU8(target.Host.Number)})
		push(isa.Instruction{Op: isa.TriggerEffect, TriggeredEffect: isa.Host})

	case identifiers.Intrinsic:
		l.lowerIntrinsic(target, member, push)

	case identifiers.UserDefinedFunction:
		push(isa.Instruction{
			Op:         isa.CallFunction,
			Callee:     target.Callee,
			IsTailCall: l.rec.IsTailExpression(member.Location),
		})
	}
}

func (l *lowering) lowerIntrinsic(target identifiers.Target, member *syntax.Member, push func(isa.Instruction)) {
	switch target.IntrinsicKind {
	case identifiers.IntrinsicBreakpoint:
		push(isa.Instruction{Op: isa.TriggerEffect, TriggeredEffect: isa.Breakpoint})

	case identifiers.IntrinsicEval:
		push(isa.Instruction{Op: isa.Eval, IsTailCall: l.rec.IsTailExpression(member.Location)})

	case identifiers.IntrinsicOpcode:
		if target.Opcode == isa.Copy {
			// The `copy` identifier always duplicates the top of stack;
			// Copy's runtime form takes its offset-from-top off the
			// operand stack, so push the constant 0 ahead of it.
			push(isa.Instruction{Op: isa.Push, Value: value.FromS32(0)})
		}
		push(isa.Instruction{Op: target.Opcode})
	}
}
