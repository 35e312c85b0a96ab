// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

import "fmt"

// Index is the insertion-ordered position of a syntax element within its
// parent (a branch's index within a function, a member's index within a
// branch, and so on).
type Index int

// FunctionLocation identifies a function: either a top-level named function,
// addressed by its index among the program's named functions, or a function
// local to some member expression (a function literal nested in a branch
// body).
//
// Locations are immutable values. Because the hierarchy nests arbitrarily
// deep (a local function can itself contain local functions), content
// equality can't be expressed with Go's built-in `==` once pointers are
// involved in the representation; use Key for map lookups and Equal/Less for
// comparisons, mirroring how go/types' Scope keys its lexical chain.
type FunctionLocation struct {
	named bool
	index Index
	local *MemberLocation
}

// NewNamedFunctionLocation builds the location of the index'th top-level
// named function.
func NewNamedFunctionLocation(index Index) FunctionLocation {
	return FunctionLocation{named: true, index: index}
}

// NewLocalFunctionLocation builds the location of a function literal nested
// in the member at parent.
func NewLocalFunctionLocation(parent MemberLocation) FunctionLocation {
	return FunctionLocation{local: &parent}
}

// IsNamed reports whether this is a top-level named function, returning its
// index if so.
func (l FunctionLocation) IsNamed() (Index, bool) {
	return l.index, l.named
}

// IsLocal reports whether this is a local function, returning the member it
// is nested in if so.
func (l FunctionLocation) IsLocal() (MemberLocation, bool) {
	if l.named || l.local == nil {
		return MemberLocation{}, false
	}
	return *l.local, true
}

// Key returns a string uniquely and deterministically identifying this
// location, suitable for use as a map key.
func (l FunctionLocation) Key() string {
	if l.named {
		return fmt.Sprintf("N%06d", int(l.index))
	}
	if l.local == nil {
		// The zero FunctionLocation.
		return "L()"
	}
	return "L(" + l.local.Key() + ")"
}

// Equal reports whether l and o denote the same syntax element.
func (l FunctionLocation) Equal(o FunctionLocation) bool { return l.Key() == o.Key() }

// Less imposes a total lexicographic order over locations, letting the
// fragment-addressing and call-graph passes use them as sorted keys.
func (l FunctionLocation) Less(o FunctionLocation) bool { return l.Key() < o.Key() }

func (l FunctionLocation) String() string { return l.Key() }

// BranchLocation identifies one branch of a function by its index.
type BranchLocation struct {
	Parent FunctionLocation
	Index  Index
}

func (l BranchLocation) Key() string {
	return fmt.Sprintf("%s.br%06d", l.Parent.Key(), int(l.Index))
}

func (l BranchLocation) Equal(o BranchLocation) bool { return l.Key() == o.Key() }
func (l BranchLocation) Less(o BranchLocation) bool  { return l.Key() < o.Key() }
func (l BranchLocation) String() string              { return l.Key() }

// MemberLocation identifies one member (a comment or an expression) of a
// branch body by its index.
type MemberLocation struct {
	Parent BranchLocation
	Index  Index
}

func (l MemberLocation) Key() string {
	return fmt.Sprintf("%s.m%06d", l.Parent.Key(), int(l.Index))
}

func (l MemberLocation) Equal(o MemberLocation) bool { return l.Key() == o.Key() }
func (l MemberLocation) Less(o MemberLocation) bool  { return l.Key() < o.Key() }
func (l MemberLocation) String() string              { return l.Key() }

// ParameterLocation identifies one parameter of a branch by its index.
type ParameterLocation struct {
	Parent BranchLocation
	Index  Index
}

func (l ParameterLocation) Key() string {
	return fmt.Sprintf("%s.p%06d", l.Parent.Key(), int(l.Index))
}

func (l ParameterLocation) Equal(o ParameterLocation) bool { return l.Key() == o.Key() }
func (l ParameterLocation) Less(o ParameterLocation) bool  { return l.Key() < o.Key() }
func (l ParameterLocation) String() string                { return l.Key() }
