// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fragments content-addresses every piece of compiled code
// (function, branch, parameter, expression) and detects, across a
// recompile, which fragment replaced which — the information a hot-reload
// needs to rewrite a suspended runtime's stack and heap in place rather
// than restart it.
package fragments

// Kind distinguishes what a Fragment was hashed from, for diagnostics and
// for the defensive collision check in Store.Insert.
type Kind int

const (
	KindFunction Kind = iota
	KindBranch
	KindParameter
	KindMember
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindBranch:
		return "branch"
	case KindParameter:
		return "parameter"
	case KindMember:
		return "member"
	default:
		return "unknown"
	}
}

// Address captures a fragment's position relative to its immediate
// surroundings: the fragment it's nested in, and the sibling that follows
// it at the same nesting level. Two fragments with the same Address
// occupy the same "slot" even if their Hash differs, which is exactly how
// Store.Insert recognizes a replacement.
type Address struct {
	HasParent bool
	Parent    Hash
	HasNext   bool
	Next      Hash
}

// Fragment is one content-addressed unit: its Hash, the slot it occupies,
// and enough about its origin to report what changed.
type Fragment struct {
	ID      Hash
	Kind    Kind
	Address Address

	// Name is a short, human-readable summary of the fragment for log
	// messages and the defensive hash-collision check — a function or
	// binding parameter's name, an expression's kind, and so on. It plays
	// no role in the Hash itself.
	Name string

	// Location is the syntax location the fragment was computed from in
	// the tree it came from. It is meaningless across two different
	// trees (a Local function's index can be reused for unrelated code),
	// so it is never compared — only ID and Address are.
	Location any
}
