// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fragments_test

import (
	"testing"

	"github.com/crosscut-lang/crosscut/fragments"
	"github.com/crosscut-lang/crosscut/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func byName(frags []fragments.Fragment, name string) []fragments.Fragment {
	var out []fragments.Fragment
	for _, f := range frags {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

// TestBuildIsDeterministic checks that parsing identical source twice
// yields identical hashes for every fragment, in the same order: Build
// depends on nothing but a tree's own contents.
func TestBuildIsDeterministic(t *testing.T) {
	const src = `
main: fn
	br x ->
		x
		1
		add_s32
end
`
	a := fragments.Build(parse(t, src))
	b := fragments.Build(parse(t, src))
	if len(a) != len(b) {
		t.Fatalf("got %d and %d fragments from identical source", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Address != b[i].Address || a[i].Kind != b[i].Kind {
			t.Errorf("fragment %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// TestBuildDistinguishesUnrelatedFunctions checks that two functions with
// different bodies never collide on a Hash.
func TestBuildDistinguishesUnrelatedFunctions(t *testing.T) {
	frags := fragments.Build(parse(t, `
main: fn
	br ->
		1
end
helper: fn
	br ->
		2
end
`))
	funcs := byName(frags, "fn")
	if len(funcs) != 2 {
		t.Fatalf("got %d function fragments, want 2", len(funcs))
	}
	if funcs[0].ID == funcs[1].ID {
		t.Error("main and helper hashed identically despite different bodies")
	}
}

// TestBuildDetectsLiteralReplacement parses a small program, inserts its
// fragments into a Store, then parses an edited version — a single literal
// changed inside main's branch — and checks that the edit surfaces as
// replacements, at least one of them of a member, once both generations'
// fragments are inserted into the same Store.
func TestBuildDetectsLiteralReplacement(t *testing.T) {
	before := fragments.Build(parse(t, `
main: fn
	br ->
		1
		2
		add_s32
end
`))
	after := fragments.Build(parse(t, `
main: fn
	br ->
		1
		3
		add_s32
end
`))

	s := fragments.New()
	if err := s.InsertAll(before); err != nil {
		t.Fatalf("InsertAll(before): %v", err)
	}
	s.TakeReplacements()

	if err := s.InsertAll(after); err != nil {
		t.Fatalf("InsertAll(after): %v", err)
	}
	// Changing one literal changes the hash of everything that encloses
	// it too (the member, its branch, its function), so the edit surfaces
	// as a handful of replacements, not just one: assert that at least
	// one of them is the changed member itself.
	reps := s.TakeReplacements()
	if len(reps) == 0 {
		t.Fatal("expected at least one replacement after editing a literal")
	}
	foundMember := false
	for _, r := range reps {
		if f, ok := s.Get(r.New); ok && f.Kind == fragments.KindMember {
			foundMember = true
		}
	}
	if !foundMember {
		t.Errorf("replacements = %+v, want at least one member-kind replacement", reps)
	}
}

// TestBuildLeavesUnrelatedSiblingsAlone checks that editing one top-level
// function's body does not produce a replacement for an unrelated,
// unedited sibling function.
func TestBuildLeavesUnrelatedSiblingsAlone(t *testing.T) {
	before := fragments.Build(parse(t, `
main: fn
	br ->
		helper
end
helper: fn
	br ->
		1
end
`))
	after := fragments.Build(parse(t, `
main: fn
	br ->
		helper
end
helper: fn
	br ->
		2
end
`))

	s := fragments.New()
	if err := s.InsertAll(before); err != nil {
		t.Fatalf("InsertAll(before): %v", err)
	}
	s.TakeReplacements()

	if err := s.InsertAll(after); err != nil {
		t.Fatalf("InsertAll(after): %v", err)
	}
	reps := s.TakeReplacements()

	// main's own content (a call to helper) didn't change, so its function
	// fragment should hash identically in both generations: find that
	// shared ID and make sure no replacement names it as the Old side.
	var unchanged fragments.Hash
	found := false
	for _, fb := range byName(before, "fn") {
		for _, fa := range byName(after, "fn") {
			if fb.ID == fa.ID {
				unchanged, found = fb.ID, true
			}
		}
	}
	if !found {
		t.Fatal("expected one function fragment (main's) to be unchanged across the edit")
	}
	for _, r := range reps {
		if r.Old == unchanged {
			t.Errorf("unchanged function's fragment reported replaced, but only helper's body changed")
		}
	}
}
