// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package identifiers classifies every identifier expression in a parsed
// program as a reference to a binding, a host function, a compiler
// intrinsic, a user-defined function, or unresolved.
package identifiers

import (
	"github.com/crosscut-lang/crosscut/code/bindings"
	"github.com/crosscut-lang/crosscut/host"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/syntax"
)

// Kind distinguishes the five ways an identifier expression can resolve.
type Kind int

const (
	Binding Kind = iota
	HostFunction
	Intrinsic
	UserDefinedFunction
	Unresolved
)

func (k Kind) String() string {
	switch k {
	case Binding:
		return "binding"
	case HostFunction:
		return "host function"
	case Intrinsic:
		return "intrinsic"
	case UserDefinedFunction:
		return "user-defined function"
	default:
		return "unresolved"
	}
}

// IntrinsicKind distinguishes the handful of intrinsics that need special
// compiler handling beyond "emit this one instruction".
type IntrinsicKind int

const (
	// IntrinsicOpcode intrinsics lower directly to the named isa.Opcode.
	IntrinsicOpcode IntrinsicKind = iota
	// IntrinsicEval lowers to isa.Eval, whose IsTailCall flag depends on
	// the calling expression's position, not a static opcode.
	IntrinsicEval
	// IntrinsicBreakpoint ("brk") lowers to TriggerEffect(Breakpoint).
	IntrinsicBreakpoint
)

// Target is what an identifier expression was classified as.
type Target struct {
	Kind Kind

	// Binding.
	BindingLocation syntax.ParameterLocation

	// HostFunction.
	Host host.Entry

	// Intrinsic.
	IntrinsicKind IntrinsicKind
	Opcode        isa.Opcode

	// UserDefinedFunction.
	Callee syntax.FunctionLocation
}

// intrinsicTable maps the identifier spelling of each intrinsic to its
// instruction. Names follow the instruction set's own spelling
// (lower_snake_case of the Opcode name), except that LogicalAnd and
// LogicalNot are spelled "and" and "not"; this table is the "static table"
// identifier resolution matches names against.
var intrinsicTable = map[string]isa.Opcode{
	"add_s8":            isa.AddS8,
	"add_s32":           isa.AddS32,
	"add_u8":            isa.AddU8,
	"add_u8_wrap":       isa.AddU8Wrap,
	"sub_s32":           isa.SubS32,
	"sub_u8":            isa.SubU8,
	"sub_u8_wrap":       isa.SubU8Wrap,
	"mul_s32":           isa.MulS32,
	"mul_u8_wrap":       isa.MulU8Wrap,
	"div_s32":           isa.DivS32,
	"div_u8":            isa.DivU8,
	"remainder_s32":     isa.RemainderS32,
	"neg_s32":           isa.NegS32,
	"greater_s8":        isa.GreaterS8,
	"greater_s32":       isa.GreaterS32,
	"greater_u8":        isa.GreaterU8,
	"eq":                isa.Eq,
	"and":               isa.LogicalAnd,
	"not":               isa.LogicalNot,
	"convert_s32_to_s8": isa.ConvertS32ToS8,
	"drop":              isa.Drop,
	"copy":              isa.Copy,
	"nop":               isa.Nop,
}

// Identifiers is the result of classifying every identifier expression in
// a Tree.
type Identifiers struct {
	byMember map[string]Target
}

// Classify walks tree's named functions (and every function nested inside
// them) and resolves each identifier expression against b, the static
// intrinsic table, the host table, and tree's top-level function names,
// in that order; the first match wins.
//
// Scope lookup comes first, so a parameter whose name collides with an
// intrinsic, a host function, or a named function is still a binding
// read within its branch. Only a name no enclosing scope binds is a
// candidate for the other three kinds.
func Classify(tree *syntax.Tree, b *bindings.Bindings, table *host.Table) *Identifiers {
	ids := &Identifiers{byMember: map[string]Target{}}
	for _, nf := range tree.NamedFunctions {
		classifyFunction(tree, nf.Function, b, table, ids)
	}
	return ids
}

// TargetOf returns the classification of the identifier expression at loc.
func (ids *Identifiers) TargetOf(loc syntax.MemberLocation) (Target, bool) {
	t, ok := ids.byMember[loc.Key()]
	return t, ok
}

func classifyFunction(tree *syntax.Tree, fn *syntax.Function, b *bindings.Bindings, table *host.Table, ids *Identifiers) {
	for _, branch := range fn.Branches {
		for _, member := range branch.Expressions() {
			switch member.Expr.Kind {
			case syntax.ExprIdentifier:
				ids.byMember[member.Location.Key()] = classifyIdentifier(tree, member, b, table)
			case syntax.ExprLocalFunction:
				classifyFunction(tree, member.Expr.Function, b, table, ids)
			}
		}
	}
}

func classifyIdentifier(tree *syntax.Tree, member *syntax.Member, b *bindings.Bindings, table *host.Table) Target {
	name := member.Expr.Name

	if loc, ok := b.IsBinding(member.Location); ok {
		return Target{Kind: Binding, BindingLocation: loc}
	}

	if name == "brk" {
		return Target{Kind: Intrinsic, IntrinsicKind: IntrinsicBreakpoint}
	}
	if name == "eval" {
		return Target{Kind: Intrinsic, IntrinsicKind: IntrinsicEval}
	}
	if op, ok := intrinsicTable[name]; ok {
		return Target{Kind: Intrinsic, IntrinsicKind: IntrinsicOpcode, Opcode: op}
	}

	if table != nil {
		if entry, ok := table.ByName(name); ok {
			return Target{Kind: HostFunction, Host: entry}
		}
	}

	if nf, ok := tree.FunctionByName(name); ok {
		return Target{Kind: UserDefinedFunction, Callee: nf.Location}
	}

	return Target{Kind: Unresolved}
}
