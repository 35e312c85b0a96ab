// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package types infers a signature for every function, expression, and
// parameter in a program, one dependency cluster at a time, and checks
// any type annotations the user wrote against what was inferred.
package types

import (
	"fmt"

	"github.com/crosscut-lang/crosscut/typesys"
)

// Index addresses one InferredType pushed into an Arena. Indices are
// dense and stable within one cluster's arena; they are never reused
// across clusters.
type Index int

// Kind distinguishes the three forms an InferredType can take.
type Kind int

const (
	Direct Kind = iota
	IndirectFunction
	Unknown
)

// IndirectSignature is a function signature whose input/output types are
// still arena indices rather than concrete Types — the inputs and
// outputs may themselves still be unresolved.
type IndirectSignature struct {
	Inputs  []Index
	Outputs []Index
}

// InferredType is what's known, so far, about one expression's or
// binding's type: a concrete Type, a function signature still expressed
// in arena indices, or nothing at all yet.
type InferredType struct {
	Kind      Kind
	Direct    typesys.Type
	Signature IndirectSignature
}

// Arena holds every InferredType pushed during one cluster's inference,
// plus the disjoint equivalence sets Unify has merged them into.
type Arena struct {
	entries []InferredType
	sets    []map[Index]bool
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

// Push adds a new inferred type and returns its index.
func (a *Arena) Push(t InferredType) Index {
	a.entries = append(a.entries, t)
	return Index(len(a.entries) - 1)
}

func (a *Arena) get(i Index) InferredType { return a.entries[i] }

// Unify merges the equivalence sets containing a and b (creating
// singleton sets for either that had none yet) into one.
func (a *Arena) Unify(x, y Index) {
	merged := map[Index]bool{x: true, y: true}
	kept := a.sets[:0:0]
	for _, set := range a.sets {
		if set[x] || set[y] {
			for k := range set {
				merged[k] = true
			}
		} else {
			kept = append(kept, set)
		}
	}
	a.sets = append(kept, merged)
}

// Resolve folds index's equivalence set (if any) into a single inferred
// type, reporting a TypeError if two Direct members of the set disagree.
func (a *Arena) Resolve(index Index) (InferredType, *TypeError) {
	resolved := a.get(index)
	for _, set := range a.sets {
		if !set[index] {
			continue
		}
		for other := range set {
			if other == index {
				continue
			}
			merged, err := mergeInferredTypes(resolved, a.get(other), a)
			if err != nil {
				return InferredType{}, err
			}
			resolved = merged
		}
		break
	}
	return resolved, nil
}

func mergeInferredTypes(x, y InferredType, a *Arena) (InferredType, *TypeError) {
	if x.Kind == Unknown {
		return y, nil
	}
	if y.Kind == Unknown {
		return x, nil
	}

	if x.Kind == IndirectFunction && y.Kind == IndirectFunction {
		sig, err := mergeSignatures(x.Signature, y.Signature, a)
		if err != nil {
			return InferredType{}, err
		}
		return InferredType{Kind: IndirectFunction, Signature: sig}, nil
	}

	if x.Kind == IndirectFunction || y.Kind == IndirectFunction {
		indirect, direct := x, y
		if y.Kind == IndirectFunction {
			indirect, direct = y, x
		}
		sig, ok := direct.Direct.IsFunction()
		if !ok {
			return InferredType{}, &TypeError{
				Expected: ExpectedFunction{},
				Actual:   &direct.Direct,
			}
		}
		directSig := fromDirectSignature(sig, a)
		merged, err := mergeSignatures(indirect.Signature, directSig, a)
		if err != nil {
			return InferredType{}, err
		}
		return InferredType{Kind: IndirectFunction, Signature: merged}, nil
	}

	if x.Direct.Equal(y.Direct) {
		return InferredType{Kind: Direct, Direct: x.Direct}, nil
	}
	return InferredType{}, &TypeError{
		Expected: ExpectedSpecific{Type: x.Direct},
		Actual:   &y.Direct,
	}
}

func mergeSignatures(x, y IndirectSignature, a *Arena) (IndirectSignature, *TypeError) {
	inputs, err := mergeIndexList(x.Inputs, y.Inputs, a)
	if err != nil {
		return IndirectSignature{}, err
	}
	outputs, err := mergeIndexList(x.Outputs, y.Outputs, a)
	if err != nil {
		return IndirectSignature{}, err
	}
	return IndirectSignature{Inputs: inputs, Outputs: outputs}, nil
}

func mergeIndexList(x, y []Index, a *Arena) ([]Index, *TypeError) {
	if len(x) != len(y) {
		return nil, &TypeError{Expected: ExpectedArity{Count: len(x), Actual: len(y)}}
	}
	merged := make([]Index, len(x))
	for i := range x {
		t, err := mergeInferredTypes(a.get(x[i]), a.get(y[i]), a)
		if err != nil {
			return nil, err
		}
		merged[i] = a.Push(t)
	}
	return merged, nil
}

func fromDirectSignature(sig typesys.Signature, a *Arena) IndirectSignature {
	inputs := make([]Index, len(sig.Inputs))
	for i, t := range sig.Inputs {
		inputs[i] = a.Push(InferredType{Kind: Direct, Direct: t})
	}
	outputs := make([]Index, len(sig.Outputs))
	for i, t := range sig.Outputs {
		outputs[i] = a.Push(InferredType{Kind: Direct, Direct: t})
	}
	return IndirectSignature{Inputs: inputs, Outputs: outputs}
}

// ToDirect resolves every index in sig. It returns ok=false, with no
// error, if any index is still Unknown: higher-level checks decide
// whether that's acceptable.
func (a *Arena) ToDirect(sig IndirectSignature) (typesys.Signature, bool, *TypeError) {
	inputs, ok, err := a.toDirectList(sig.Inputs)
	if err != nil || !ok {
		return typesys.Signature{}, ok, err
	}
	outputs, ok, err := a.toDirectList(sig.Outputs)
	if err != nil || !ok {
		return typesys.Signature{}, ok, err
	}
	return typesys.Signature{Inputs: inputs, Outputs: outputs}, true, nil
}

func (a *Arena) toDirectList(indices []Index) ([]typesys.Type, bool, *TypeError) {
	out := make([]typesys.Type, len(indices))
	for i, idx := range indices {
		resolved, err := a.Resolve(idx)
		if err != nil {
			return nil, false, err
		}
		t, ok, err := resolved.toType(a)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		out[i] = t
	}
	return out, true, nil
}

func (t InferredType) toType(a *Arena) (typesys.Type, bool, *TypeError) {
	switch t.Kind {
	case Direct:
		return t.Direct, true, nil
	case IndirectFunction:
		sig, ok, err := a.ToDirect(t.Signature)
		if err != nil || !ok {
			return typesys.Type{}, ok, err
		}
		return typesys.Function(sig), true, nil
	default:
		return typesys.Type{}, false, nil
	}
}

// TypeError reports a conflict found while resolving or unifying types.
type TypeError struct {
	Expected Expected
	Actual   *typesys.Type
}

func (e *TypeError) Error() string {
	if _, ok := e.Expected.(ExpectedArity); ok {
		return fmt.Sprintf("type error: %s", e.Expected)
	}
	actual := "nothing"
	if e.Actual != nil {
		actual = "`" + e.Actual.String() + "`"
	}
	return fmt.Sprintf("type error: expected %s, got %s", e.Expected, actual)
}

// Expected describes what a TypeError wanted instead of what it got.
type Expected interface {
	String() string
}

// ExpectedFunction means any function type would have done.
type ExpectedFunction struct{}

func (ExpectedFunction) String() string { return "function" }

// ExpectedSpecific names the one type that would have been accepted.
type ExpectedSpecific struct{ Type typesys.Type }

func (e ExpectedSpecific) String() string { return "`" + e.Type.String() + "`" }

// ExpectedArity names the operand count a signature merge expected, and
// the count it actually found.
type ExpectedArity struct{ Count, Actual int }

func (e ExpectedArity) String() string {
	return fmt.Sprintf("a signature of %d operands, got one of %d", e.Count, e.Actual)
}

// ExpectedUnknown means the location's type was never pinned down.
type ExpectedUnknown struct{}

func (ExpectedUnknown) String() string { return "unknown type" }
