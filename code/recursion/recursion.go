// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recursion marks which expressions in a program are recursive —
// calls or local-function literals that loop back into the dependency
// cluster they're defined in — and which expression ends each branch,
// its tail position.
package recursion

import (
	"github.com/crosscut-lang/crosscut/code/dependencies"
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/syntax"
)

// Recursion is the result of walking every cluster of a program.
type Recursion struct {
	recursive map[string]bool
	tail      map[string]bool
}

// Find walks every function in every cluster, and every local function
// nested inside them, marking:
//
//   - an identifier expression, as recursive, when it's a call to a
//     user-defined function in the same cluster as the named function
//     the expression ultimately belongs to;
//   - a local-function expression, as recursive, when its body directly
//     contains a recursive call, or a recursive local function — a
//     recursive call "infects" every local function that contains it,
//     however deeply nested;
//   - the last non-comment member of every branch (named or local), as
//     that branch's tail position.
func Find(tree *syntax.Tree, ids *identifiers.Identifiers, clusters *dependencies.Clusters) *Recursion {
	r := &Recursion{recursive: map[string]bool{}, tail: map[string]bool{}}
	for _, cluster := range clusters.All() {
		for _, loc := range cluster.Functions {
			fn := tree.FunctionByLocation(loc)
			markFunction(fn, cluster, ids, r)
		}
	}
	return r
}

// IsRecursiveExpression reports whether the expression at loc was marked
// recursive.
func (r *Recursion) IsRecursiveExpression(loc syntax.MemberLocation) bool {
	return r.recursive[loc.Key()]
}

// IsTailExpression reports whether the expression at loc is the last
// non-comment member of its branch.
func (r *Recursion) IsTailExpression(loc syntax.MemberLocation) bool {
	return r.tail[loc.Key()]
}

func markFunction(fn *syntax.Function, cluster dependencies.Cluster, ids *identifiers.Identifiers, r *Recursion) {
	for _, branch := range fn.Branches {
		exprs := branch.Expressions()
		if len(exprs) == 0 {
			continue
		}
		r.tail[exprs[len(exprs)-1].Location.Key()] = true

		for _, member := range exprs {
			switch member.Expr.Kind {
			case syntax.ExprIdentifier:
				target, ok := ids.TargetOf(member.Location)
				if ok && target.Kind == identifiers.UserDefinedFunction && cluster.Contains(target.Callee) {
					r.recursive[member.Location.Key()] = true
				}
			case syntax.ExprLocalFunction:
				markFunction(member.Expr.Function, cluster, ids, r)
				if anyDirectMemberRecursive(member.Expr.Function, r) {
					r.recursive[member.Location.Key()] = true
				}
			}
		}
	}
}

// anyDirectMemberRecursive reports whether any of fn's own branch members
// (not members of functions nested further inside them) is already marked
// recursive. Called only after markFunction has processed fn, so a nested
// local function's own recursiveness has already been decided.
func anyDirectMemberRecursive(fn *syntax.Function, r *Recursion) bool {
	for _, branch := range fn.Branches {
		for _, member := range branch.Expressions() {
			if r.recursive[member.Location.Key()] {
				return true
			}
		}
	}
	return false
}
