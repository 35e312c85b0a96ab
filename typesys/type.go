// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package typesys defines Crosscut's monomorphic, first-order type system:
// numbers and function types, structurally compared. It has no notion of
// generics, traits, or polymorphism: every value's type is fully known and
// closed at compile time.
package typesys

import "strings"

// Type is a closed sum: either Number, or a Function carrying a Signature.
// Two Function types are equal iff their signatures are element-wise equal
// (structural typing).
type Type struct {
	isFunction bool
	signature  Signature
}

// Number is the type of every Crosscut value that isn't a function.
var Number = Type{}

// Function constructs the function type with the given signature.
func Function(sig Signature) Type {
	return Type{isFunction: true, signature: sig}
}

// IsNumber reports whether t is the Number type.
func (t Type) IsNumber() bool { return !t.isFunction }

// IsFunction reports whether t is a Function type, returning its signature.
func (t Type) IsFunction() (Signature, bool) {
	if !t.isFunction {
		return Signature{}, false
	}
	return t.signature, true
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.isFunction != o.isFunction {
		return false
	}
	if !t.isFunction {
		return true
	}
	return t.signature.Equal(o.signature)
}

func (t Type) String() string {
	if !t.isFunction {
		return "Number"
	}
	return "fn " + t.signature.String() + " end"
}

// Signature is an ordered pair of type sequences describing an expression or
// function's stack effect: the types it consumes (Inputs) and the types it
// produces (Outputs), in left-to-right declaration order.
type Signature struct {
	Inputs  []Type
	Outputs []Type
}

// Equal reports element-wise equality of both sequences.
func (s Signature) Equal(o Signature) bool {
	return equalTypes(s.Inputs, o.Inputs) && equalTypes(s.Outputs, o.Outputs)
}

func equalTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (s Signature) String() string {
	var b strings.Builder
	for i, t := range s.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	b.WriteString(" -> ")
	for i, t := range s.Outputs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	return b.String()
}
