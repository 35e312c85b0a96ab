// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"github.com/crosscut-lang/crosscut/code/bindings"
	"github.com/crosscut-lang/crosscut/code/dependencies"
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/typesys"
)

// Output is the result of inferring types across every cluster of a
// program: a signature for every function and expression whose type
// could be fully pinned down, and a concrete type for every binding.
// Locations whose type could not be resolved are simply absent — that's
// not itself an error; it's left to whatever later pass needs the type
// to decide.
type Output struct {
	Functions   map[string]typesys.Signature
	Expressions map[string]typesys.Signature
	Parameters  map[string]typesys.Type
}

func newOutput() *Output {
	return &Output{
		Functions:   map[string]typesys.Signature{},
		Expressions: map[string]typesys.Signature{},
		Parameters:  map[string]typesys.Type{},
	}
}

// FunctionSignature returns the inferred signature of the function at loc.
func (o *Output) FunctionSignature(loc syntax.FunctionLocation) (typesys.Signature, bool) {
	s, ok := o.Functions[loc.Key()]
	return s, ok
}

// ExpressionSignature returns the inferred signature of the expression at loc.
func (o *Output) ExpressionSignature(loc syntax.MemberLocation) (typesys.Signature, bool) {
	s, ok := o.Expressions[loc.Key()]
	return s, ok
}

// ParameterType returns the inferred type of the parameter at loc.
func (o *Output) ParameterType(loc syntax.ParameterLocation) (typesys.Type, bool) {
	t, ok := o.Parameters[loc.Key()]
	return t, ok
}

// Infer infers types across every dependency cluster, leaves first, so
// that by the time a cluster is processed every function it calls
// outside itself already has a known signature.
func Infer(tree *syntax.Tree, b *bindings.Bindings, ids *identifiers.Identifiers, clusters *dependencies.Clusters) (*Output, *TypeError) {
	out := newOutput()
	for _, cluster := range clusters.All() {
		if err := inferCluster(tree, b, ids, cluster, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// partialSignature is a function's signature as it's being built up out of
// its branches: one arena index per input and output operand.
type partialSignature struct {
	inputs  []Index
	outputs []Index
}

// clusterContext is the per-cluster inference state: the equivalence-set
// arena every index in this cluster lives in, the in-progress signature of
// every function (named or local) touched so far, and the arena index
// backing every binding.
type clusterContext struct {
	arena     *Arena
	functions map[string]*partialSignature
	bindings  map[string]Index
}

type branchEntry struct {
	function syntax.FunctionLocation
	branch   *syntax.Branch
}

func inferCluster(tree *syntax.Tree, b *bindings.Bindings, ids *identifiers.Identifiers, cluster dependencies.Cluster, out *Output) *TypeError {
	ctx := &clusterContext{
		arena:     NewArena(),
		functions: map[string]*partialSignature{},
		bindings:  map[string]Index{},
	}

	var entries []branchEntry
	for _, loc := range cluster.Functions {
		fn := tree.FunctionByLocation(loc)
		collectBranches(fn, loc, &entries)
	}

	// A cluster's functions may call each other, including forward
	// references to a function whose branches haven't been visited yet.
	// Re-walking the cluster a bounded number of times lets every call's
	// operand arity settle once the callee's first branch has been seen,
	// without requiring a specific visitation order.
	var lastErr *TypeError
	for pass := 0; pass <= len(entries); pass++ {
		lastErr = nil
		for _, entry := range entries {
			branchSig, err := inferBranch(tree, b, ids, ctx, entry.function, entry.branch, out)
			if err != nil {
				lastErr = err
				continue
			}
			if existing, ok := ctx.functions[entry.function.Key()]; ok {
				if err := unifyFunctionWith(existing, branchSig, ctx.arena); err != nil {
					lastErr = err
				}
			} else {
				ctx.functions[entry.function.Key()] = branchSig
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}

	for _, loc := range cluster.Functions {
		sig, ok := ctx.functions[loc.Key()]
		if !ok {
			continue
		}
		direct, ok, err := ctx.arena.ToDirect(IndirectSignature{Inputs: sig.inputs, Outputs: sig.outputs})
		if err != nil {
			return err
		}
		if ok {
			out.Functions[loc.Key()] = direct
		}
	}
	for key, idx := range ctx.bindings {
		resolved, err := ctx.arena.Resolve(idx)
		if err != nil {
			return err
		}
		if resolved.Kind == Direct {
			out.Parameters[key] = resolved.Direct
		}
	}

	return nil
}

// collectBranches appends loc's own branches to entries, depth first: any
// local function nested in a branch is fully collected (recursively)
// before the branch that defines it, so that by the time that branch is
// inferred the local function's own signature is already known.
func collectBranches(fn *syntax.Function, loc syntax.FunctionLocation, entries *[]branchEntry) {
	for _, branch := range fn.Branches {
		for _, member := range branch.Expressions() {
			if member.Expr.Kind == syntax.ExprLocalFunction {
				childLoc := syntax.NewLocalFunctionLocation(member.Location)
				collectBranches(member.Expr.Function, childLoc, entries)
			}
		}
		*entries = append(*entries, branchEntry{function: loc, branch: branch})
	}
}

func unifyFunctionWith(existing, branch *partialSignature, a *Arena) *TypeError {
	if len(existing.inputs) != len(branch.inputs) {
		return &TypeError{Expected: ExpectedArity{Count: len(existing.inputs), Actual: len(branch.inputs)}}
	}
	if len(existing.outputs) != len(branch.outputs) {
		return &TypeError{Expected: ExpectedArity{Count: len(existing.outputs), Actual: len(branch.outputs)}}
	}
	for i := range existing.inputs {
		a.Unify(existing.inputs[i], branch.inputs[i])
	}
	for i := range existing.outputs {
		a.Unify(existing.outputs[i], branch.outputs[i])
	}
	return nil
}

func (c *clusterContext) bindingIndex(loc syntax.ParameterLocation, annotated *typesys.Type) Index {
	if idx, ok := c.bindings[loc.Key()]; ok {
		if annotated != nil {
			c.arena.Unify(idx, c.arena.Push(InferredType{Kind: Direct, Direct: *annotated}))
		}
		return idx
	}
	t := InferredType{Kind: Unknown}
	if annotated != nil {
		t = InferredType{Kind: Direct, Direct: *annotated}
	}
	idx := c.arena.Push(t)
	c.bindings[loc.Key()] = idx
	return idx
}

func inferBranch(tree *syntax.Tree, b *bindings.Bindings, ids *identifiers.Identifiers, ctx *clusterContext, functionLoc syntax.FunctionLocation, branch *syntax.Branch, out *Output) (*partialSignature, *TypeError) {
	var inputs []Index
	for _, param := range branch.Parameters {
		var annotated *typesys.Type
		switch param.Kind {
		case syntax.ParameterLiteral:
			number := typesys.Number
			annotated = &number
		case syntax.ParameterBinding:
			annotated = param.Annotation
		}
		inputs = append(inputs, ctx.bindingIndex(param.Location, annotated))
	}

	for _, loc := range b.EnvironmentOf(functionLoc).Locations() {
		ctx.bindingIndex(loc, nil)
	}

	var stack []Index
	underflow := false
	for _, member := range branch.Expressions() {
		sig, ok := inferExpression(tree, b, ids, ctx, member, stack, out)
		if !ok {
			continue
		}
		for i := len(sig.Inputs) - 1; i >= 0; i-- {
			if len(stack) == 0 {
				underflow = true
				break
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ctx.arena.Unify(top, sig.Inputs[i])
		}
		stack = append(stack, sig.Outputs...)

		direct, ok, err := ctx.arena.ToDirect(sig)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Expressions[member.Location.Key()] = direct
		}
	}

	if underflow {
		return nil, &TypeError{Expected: ExpectedUnknown{}}
	}

	return &partialSignature{inputs: inputs, outputs: stack}, nil
}

// inferExpression returns the expression's indirect signature, and
// whether one could be determined at all in this pass.
func inferExpression(tree *syntax.Tree, b *bindings.Bindings, ids *identifiers.Identifiers, ctx *clusterContext, member *syntax.Member, stack []Index, out *Output) (IndirectSignature, bool) {
	var inferred IndirectSignature
	ok := false

	switch member.Expr.Kind {
	case syntax.ExprLiteralNumber:
		idx := ctx.arena.Push(InferredType{Kind: Direct, Direct: typesys.Number})
		inferred, ok = IndirectSignature{Outputs: []Index{idx}}, true

	case syntax.ExprIdentifier:
		target, resolved := ids.TargetOf(member.Location)
		if !resolved {
			break
		}
		switch target.Kind {
		case identifiers.Binding:
			idx := ctx.bindingIndex(target.BindingLocation, nil)
			inferred, ok = IndirectSignature{Outputs: []Index{idx}}, true
		case identifiers.HostFunction:
			inferred, ok = fromDirectSignature(target.Host.Signature, ctx.arena), true
		case identifiers.Intrinsic:
			inferred, ok = inferIntrinsic(target, ctx.arena, stack)
		case identifiers.UserDefinedFunction:
			inferred, ok = ctx.callSignature(target.Callee, out)
		}

	case syntax.ExprLocalFunction:
		childLoc := syntax.NewLocalFunctionLocation(member.Location)
		sig, callOK := ctx.callSignature(childLoc, out)
		if !callOK {
			break
		}
		fnIdx := ctx.arena.Push(InferredType{
			Kind:      IndirectFunction,
			Signature: sig,
		})
		inferred, ok = IndirectSignature{Outputs: []Index{fnIdx}}, true
	}

	if !ok {
		return IndirectSignature{}, false
	}

	if member.Annotation != nil {
		explicit := fromDirectSignature(*member.Annotation, ctx.arena)
		if len(explicit.Inputs) == len(inferred.Inputs) && len(explicit.Outputs) == len(inferred.Outputs) {
			for i := range explicit.Inputs {
				ctx.arena.Unify(explicit.Inputs[i], inferred.Inputs[i])
			}
			for i := range explicit.Outputs {
				ctx.arena.Unify(explicit.Outputs[i], inferred.Outputs[i])
			}
		}
	}

	return inferred, true
}

// callSignature returns the in-progress or already-finished signature of
// the function at loc, as arena indices local to this cluster's arena.
// It reports false only when loc hasn't been visited in this cluster's
// processing yet, and isn't a function from an earlier (already-resolved)
// cluster either.
func (c *clusterContext) callSignature(loc syntax.FunctionLocation, out *Output) (IndirectSignature, bool) {
	if existing, ok := c.functions[loc.Key()]; ok {
		return IndirectSignature{Inputs: existing.inputs, Outputs: existing.outputs}, true
	}
	if sig, ok := out.FunctionSignature(loc); ok {
		return fromDirectSignature(sig, c.arena), true
	}
	return IndirectSignature{}, false
}

func inferIntrinsic(target identifiers.Target, a *Arena, stack []Index) (IndirectSignature, bool) {
	switch target.IntrinsicKind {
	case identifiers.IntrinsicBreakpoint:
		return IndirectSignature{}, true

	case identifiers.IntrinsicEval:
		if len(stack) == 0 {
			return IndirectSignature{}, false
		}
		top := stack[len(stack)-1]
		resolved, err := a.Resolve(top)
		if err != nil {
			return IndirectSignature{}, false
		}
		var sig IndirectSignature
		switch resolved.Kind {
		case IndirectFunction:
			sig = resolved.Signature
		case Direct:
			fnSig, isFn := resolved.Direct.IsFunction()
			if !isFn {
				return IndirectSignature{}, false
			}
			sig = fromDirectSignature(fnSig, a)
		default:
			return IndirectSignature{}, false
		}
		inputs := append(append([]Index{}, sig.Inputs...), top)
		return IndirectSignature{Inputs: inputs, Outputs: sig.Outputs}, true

	default:
		sig, ok := isaIntrinsicSignature(target.Opcode, a)
		return sig, ok
	}
}

// isaIntrinsicSignature gives the fixed stack effect of every intrinsic
// except Eval and the breakpoint marker (handled above). Copy and Drop
// are polymorphic: each use gets its own fresh Unknown operand type,
// unified by whatever it's used with.
func isaIntrinsicSignature(op isa.Opcode, a *Arena) (IndirectSignature, bool) {
	number := func() Index { return a.Push(InferredType{Kind: Direct, Direct: typesys.Number}) }

	switch op {
	case isa.Copy:
		t := a.Push(InferredType{Kind: Unknown})
		return IndirectSignature{Inputs: []Index{t}, Outputs: []Index{t, t}}, true
	case isa.Drop:
		t := a.Push(InferredType{Kind: Unknown})
		return IndirectSignature{Inputs: []Index{t}}, true
	case isa.Nop:
		return IndirectSignature{}, true
	case isa.NegS32, isa.ConvertS32ToS8, isa.LogicalNot:
		return IndirectSignature{Inputs: []Index{number()}, Outputs: []Index{number()}}, true
	default:
		return IndirectSignature{Inputs: []Index{number(), number()}, Outputs: []Index{number()}}, true
	}
}
