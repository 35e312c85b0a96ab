// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types_test

import (
	"testing"

	"github.com/crosscut-lang/crosscut/code/bindings"
	"github.com/crosscut-lang/crosscut/code/dependencies"
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/code/types"
	"github.com/crosscut-lang/crosscut/host"
	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/typesys"
)

func infer(t *testing.T, table *host.Table, src string) (*syntax.Tree, *types.Output, *types.TypeError) {
	t.Helper()
	tree, err := syntax.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if table == nil {
		var tblErr error
		table, tblErr = host.NewTable(nil)
		if tblErr != nil {
			t.Fatalf("NewTable: %v", tblErr)
		}
	}
	b := bindings.Resolve(tree)
	ids := identifiers.Classify(tree, b, table)
	clusters := dependencies.Build(tree, ids)
	out, typeErr := types.Infer(tree, b, ids, clusters)
	return tree, out, typeErr
}

func TestInferBindingReturnsItsOwnType(t *testing.T) {
	tree, out, typeErr := infer(t, nil, `
f: fn
	br x: Number ->
		x
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	f, _ := tree.FunctionByName("f")
	sig, ok := out.FunctionSignature(f.Location)
	if !ok {
		t.Fatalf("no signature inferred for f")
	}
	if len(sig.Inputs) != 1 || !sig.Inputs[0].Equal(typesys.Number) {
		t.Errorf("f inputs = %v, want [Number]", sig.Inputs)
	}
	if len(sig.Outputs) != 1 || !sig.Outputs[0].Equal(typesys.Number) {
		t.Errorf("f outputs = %v, want [Number]", sig.Outputs)
	}
}

func TestInferLiteralParameterIsNumber(t *testing.T) {
	tree, out, typeErr := infer(t, nil, `
f: fn
	br 0 ->
		nop
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	f, _ := tree.FunctionByName("f")
	sig, ok := out.FunctionSignature(f.Location)
	if !ok {
		t.Fatalf("no signature inferred for f")
	}
	if len(sig.Inputs) != 1 || !sig.Inputs[0].Equal(typesys.Number) {
		t.Errorf("f inputs = %v, want [Number]", sig.Inputs)
	}
}

func TestInferHostFunctionSignatureIsLifted(t *testing.T) {
	table, err := host.NewTable([]host.Entry{
		{Name: "set_pixel", Number: 1, Signature: typesys.Signature{
			Inputs: []typesys.Type{typesys.Number, typesys.Number},
		}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	tree, out, typeErr := infer(t, table, `
f: fn
	br x, y ->
		x
		y
		set_pixel
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	f, _ := tree.FunctionByName("f")
	call := f.Function.Branches[0].Expressions()[2]
	sig, ok := out.ExpressionSignature(call.Location)
	if !ok {
		t.Fatalf("no signature inferred for set_pixel call")
	}
	if len(sig.Inputs) != 2 {
		t.Errorf("set_pixel inputs = %v, want 2 operands", sig.Inputs)
	}
}

func TestInferCopyIsPolymorphic(t *testing.T) {
	tree, out, typeErr := infer(t, nil, `
f: fn
	br x ->
		x
		copy
		add_s32
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	f, _ := tree.FunctionByName("f")
	sig, ok := out.FunctionSignature(f.Location)
	if !ok {
		t.Fatalf("no signature inferred for f")
	}
	if len(sig.Outputs) != 1 || !sig.Outputs[0].Equal(typesys.Number) {
		t.Errorf("f outputs = %v, want [Number]", sig.Outputs)
	}
}

func TestInferEvalOfLocalFunction(t *testing.T) {
	tree, out, typeErr := infer(t, nil, `
f: fn
	br x: Number ->
		fn
			br ->
				x
		end
		eval
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	f, _ := tree.FunctionByName("f")
	sig, ok := out.FunctionSignature(f.Location)
	if !ok {
		t.Fatalf("no signature inferred for f")
	}
	if len(sig.Inputs) != 1 || len(sig.Outputs) != 1 {
		t.Fatalf("f signature = %+v, want 1 input and 1 output", sig)
	}
	if !sig.Outputs[0].Equal(typesys.Number) {
		t.Errorf("f output = %v, want Number", sig.Outputs[0])
	}
}

func TestInferMutualRecursionAcrossNamedFunctions(t *testing.T) {
	tree, out, typeErr := infer(t, nil, `
f: fn
	br ->
		g
end
g: fn
	br ->
		f
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	f, _ := tree.FunctionByName("f")
	sig, ok := out.FunctionSignature(f.Location)
	if !ok {
		t.Fatalf("no signature inferred for f")
	}
	if len(sig.Inputs) != 0 || len(sig.Outputs) != 0 {
		t.Errorf("f signature = %+v, want a niladic signature", sig)
	}
}

func TestInferUserDefinedFunctionCallLiftsCalleeSignature(t *testing.T) {
	tree, out, typeErr := infer(t, nil, `
double: fn
	br x ->
		x
		x
		add_s32
end
quadruple: fn
	br x ->
		x
		double
		double
end
`)
	if typeErr != nil {
		t.Fatalf("Infer: %v", typeErr)
	}
	q, _ := tree.FunctionByName("quadruple")
	sig, ok := out.FunctionSignature(q.Location)
	if !ok {
		t.Fatalf("no signature inferred for quadruple")
	}
	if len(sig.Inputs) != 1 || !sig.Inputs[0].Equal(typesys.Number) {
		t.Errorf("quadruple inputs = %v, want [Number]", sig.Inputs)
	}
	if len(sig.Outputs) != 1 || !sig.Outputs[0].Equal(typesys.Number) {
		t.Errorf("quadruple outputs = %v, want [Number]", sig.Outputs)
	}
}

func TestInferStackUnderflowIsATypeError(t *testing.T) {
	_, _, typeErr := infer(t, nil, `
f: fn
	br ->
		drop
end
`)
	if typeErr == nil {
		t.Fatalf("Infer succeeded, want an underflow error")
	}
}

func TestInferAnnotationConflictIsATypeError(t *testing.T) {
	table, err := host.NewTable([]host.Entry{
		{Name: "want_function", Number: 1, Signature: typesys.Signature{
			Inputs: []typesys.Type{typesys.Function(typesys.Signature{})},
		}},
	})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	_, _, typeErr := infer(t, table, `
f: fn
	br x ->
		x: -> Number.
		want_function
end
`)
	if typeErr == nil {
		t.Fatalf("Infer succeeded, want a conflict between the annotation and the host call's expected input")
	}
}
