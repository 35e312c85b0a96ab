// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package types

import (
	"testing"

	"github.com/crosscut-lang/crosscut/typesys"
)

func TestResolveKnown(t *testing.T) {
	a := NewArena()
	want := InferredType{Kind: Direct, Direct: typesys.Number}
	idx := a.Push(want)

	got, err := a.Resolve(idx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Kind != Direct || !got.Direct.Equal(want.Direct) {
		t.Errorf("Resolve(idx) = %+v, want %+v", got, want)
	}
}

func TestResolveUnknown(t *testing.T) {
	a := NewArena()
	idx := a.Push(InferredType{Kind: Unknown})

	got, err := a.Resolve(idx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Kind != Unknown {
		t.Errorf("Resolve(idx) = %+v, want Unknown", got)
	}
}

func TestResolveUnified(t *testing.T) {
	a := NewArena()
	x := a.Push(InferredType{Kind: Direct, Direct: typesys.Number})
	y := a.Push(InferredType{Kind: Unknown})

	a.Unify(x, y)

	gotX, err := a.Resolve(x)
	if err != nil || gotX.Kind != Direct || !gotX.Direct.Equal(typesys.Number) {
		t.Errorf("Resolve(x) = %+v, %v; want Direct(Number)", gotX, err)
	}
	gotY, err := a.Resolve(y)
	if err != nil || gotY.Kind != Direct || !gotY.Direct.Equal(typesys.Number) {
		t.Errorf("Resolve(y) = %+v, %v; want Direct(Number)", gotY, err)
	}
}

func TestResolveUnifiedWithTypeKnownOnlyIndirectly(t *testing.T) {
	a := NewArena()
	x := a.Push(InferredType{Kind: Direct, Direct: typesys.Number})
	y := a.Push(InferredType{Kind: Unknown})
	z := a.Push(InferredType{Kind: Unknown})

	a.Unify(x, y)
	a.Unify(y, z)

	got, err := a.Resolve(z)
	if err != nil || got.Kind != Direct || !got.Direct.Equal(typesys.Number) {
		t.Errorf("Resolve(z) = %+v, %v; want Direct(Number)", got, err)
	}
}

func TestResolveConflictingUnified(t *testing.T) {
	a := NewArena()
	number := typesys.Number
	function := typesys.Function(typesys.Signature{Outputs: []typesys.Type{typesys.Number}})

	x := a.Push(InferredType{Kind: Direct, Direct: number})
	y := a.Push(InferredType{Kind: Direct, Direct: function})

	a.Unify(x, y)

	if _, err := a.Resolve(x); err == nil {
		t.Fatalf("Resolve(x) succeeded, want a conflict")
	}
	if _, err := a.Resolve(y); err == nil {
		t.Fatalf("Resolve(y) succeeded, want a conflict")
	}
}
