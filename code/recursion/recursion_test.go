// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recursion_test

import (
	"testing"

	"github.com/crosscut-lang/crosscut/code/bindings"
	"github.com/crosscut-lang/crosscut/code/dependencies"
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/code/recursion"
	"github.com/crosscut-lang/crosscut/host"
	"github.com/crosscut-lang/crosscut/syntax"
)

func find(t *testing.T, src string) (*syntax.Tree, *recursion.Recursion) {
	t.Helper()
	tree, err := syntax.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	table, err := host.NewTable(nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	b := bindings.Resolve(tree)
	ids := identifiers.Classify(tree, b, table)
	clusters := dependencies.Build(tree, ids)
	return tree, recursion.Find(tree, ids, clusters)
}

func TestSelfRecursiveDirectCall(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		nop
		f
end
`)
	f, _ := tree.FunctionByName("f")
	exprs := f.Function.Branches[0].Expressions()
	nop, call := exprs[0], exprs[1]

	if r.IsRecursiveExpression(nop.Location) {
		t.Errorf("nop wrongly marked recursive")
	}
	if !r.IsRecursiveExpression(call.Location) {
		t.Errorf("f call not marked recursive")
	}
	if !r.IsTailExpression(call.Location) {
		t.Errorf("f call not marked as the branch tail")
	}
}

func TestSelfRecursiveIndirectCall(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		fn
			br ->
				nop
				f
		end
end
`)
	f, _ := tree.FunctionByName("f")
	outer := f.Function.Branches[0].Expressions()[0]
	inner := outer.Expr.Function.Branches[0].Expressions()
	nop, call := inner[0], inner[1]

	if r.IsRecursiveExpression(nop.Location) {
		t.Errorf("nop wrongly marked recursive")
	}
	if !r.IsRecursiveExpression(call.Location) {
		t.Errorf("f call not marked recursive")
	}
}

func TestMutuallyRecursiveDirectCall(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		nop
		g
end
g: fn
	br ->
		f
end
`)
	f, _ := tree.FunctionByName("f")
	exprs := f.Function.Branches[0].Expressions()
	nop, call := exprs[0], exprs[1]

	if r.IsRecursiveExpression(nop.Location) {
		t.Errorf("nop wrongly marked recursive")
	}
	if !r.IsRecursiveExpression(call.Location) {
		t.Errorf("g call not marked recursive")
	}
}

func TestSelfRecursiveDirectLocalFunction(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		nop
		fn
			br ->
				f
		end
end
`)
	f, _ := tree.FunctionByName("f")
	exprs := f.Function.Branches[0].Expressions()
	nop, local := exprs[0], exprs[1]

	if r.IsRecursiveExpression(nop.Location) {
		t.Errorf("nop wrongly marked recursive")
	}
	if !r.IsRecursiveExpression(local.Location) {
		t.Errorf("local function not marked recursive")
	}
}

func TestSelfRecursiveIndirectLocalFunction(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		nop
		fn
			br ->
				fn
					br ->
						f
				end
		end
end
`)
	f, _ := tree.FunctionByName("f")
	exprs := f.Function.Branches[0].Expressions()
	nop, outer := exprs[0], exprs[1]

	if r.IsRecursiveExpression(nop.Location) {
		t.Errorf("nop wrongly marked recursive")
	}
	if !r.IsRecursiveExpression(outer.Location) {
		t.Errorf("outer local function not marked recursive")
	}
}

func TestMutuallyRecursiveDirectLocalFunction(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		nop
		fn
			br ->
				g
		end
end
g: fn
	br ->
		f
end
`)
	f, _ := tree.FunctionByName("f")
	exprs := f.Function.Branches[0].Expressions()
	nop, local := exprs[0], exprs[1]

	if r.IsRecursiveExpression(nop.Location) {
		t.Errorf("nop wrongly marked recursive")
	}
	if !r.IsRecursiveExpression(local.Location) {
		t.Errorf("local function not marked recursive")
	}
}

func TestNonRecursiveLocalFunctionIsNotMarked(t *testing.T) {
	tree, r := find(t, `
f: fn
	br x ->
		fn
			br ->
				x
		end
end
`)
	f, _ := tree.FunctionByName("f")
	local := f.Function.Branches[0].Expressions()[0]

	if r.IsRecursiveExpression(local.Location) {
		t.Errorf("non-recursive local function wrongly marked recursive")
	}
}

func TestTailPositionIsTheLastNonCommentMember(t *testing.T) {
	tree, r := find(t, `
f: fn
	br ->
		nop
		nop
end
`)
	f, _ := tree.FunctionByName("f")
	exprs := f.Function.Branches[0].Expressions()
	first, last := exprs[0], exprs[1]

	if r.IsTailExpression(first.Location) {
		t.Errorf("first nop wrongly marked as tail")
	}
	if !r.IsTailExpression(last.Location) {
		t.Errorf("last nop not marked as tail")
	}
}
