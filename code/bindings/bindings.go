// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bindings resolves every identifier expression in a parsed
// program to the parameter it refers to (if any), and computes each
// function's environment: the set of parameters it reads that aren't its
// own, which its closures must capture.
package bindings

import (
	"sort"

	"github.com/crosscut-lang/crosscut/syntax"
)

// Bindings is the result of resolving a Tree: which identifier expressions
// are bindings, and what environment each function captures.
type Bindings struct {
	byMember     map[string]syntax.ParameterLocation
	environments map[string]*Environment
}

// Resolve walks every named function of tree and resolves its identifier
// expressions against the lexical scope stack of enclosing branches,
// innermost first.
func Resolve(tree *syntax.Tree) *Bindings {
	b := &Bindings{
		byMember:     map[string]syntax.ParameterLocation{},
		environments: map[string]*Environment{},
	}

	var scopes scopeStack
	for _, nf := range tree.NamedFunctions {
		resolveFunction(nf.Function, &scopes, b)
	}
	return b
}

// IsBinding reports whether the expression at loc resolves to a parameter,
// returning its location if so.
func (b *Bindings) IsBinding(loc syntax.MemberLocation) (syntax.ParameterLocation, bool) {
	p, ok := b.byMember[loc.Key()]
	return p, ok
}

// EnvironmentOf returns the environment of the function at loc: the set of
// parameters, not its own, that it or one of its nested closures reads.
// Functions that capture nothing have an empty (non-nil) Environment.
func (b *Bindings) EnvironmentOf(loc syntax.FunctionLocation) *Environment {
	if env, ok := b.environments[loc.Key()]; ok {
		return env
	}
	return newEnvironment()
}

// Environment is the set of parameters a function (or one of its nested
// closures) reads that it doesn't bind itself.
type Environment struct {
	set map[string]syntax.ParameterLocation
}

func newEnvironment() *Environment {
	return &Environment{set: map[string]syntax.ParameterLocation{}}
}

func (e *Environment) add(loc syntax.ParameterLocation) {
	e.set[loc.Key()] = loc
}

func (e *Environment) contains(loc syntax.ParameterLocation) bool {
	_, ok := e.set[loc.Key()]
	return ok
}

// Locations returns the environment's parameters in their canonical total
// order.
func (e *Environment) Locations() []syntax.ParameterLocation {
	out := make([]syntax.ParameterLocation, 0, len(e.set))
	for _, loc := range e.set {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// scope maps a binding's name, within one branch, to its location. Names
// are unique within a single branch's parameter list.
type scope map[string]syntax.ParameterLocation

// scopeStack is the chain of branch scopes currently open, outermost
// first; lookups search it innermost first, so an inner branch's
// parameter shadows an outer one with the same name.
type scopeStack []scope

func (s *scopeStack) push(sc scope)                 { *s = append(*s, sc) }
func (s *scopeStack) pop()                          { *s = (*s)[:len(*s)-1] }
func (s scopeStack) top() scope                     { return s[len(s)-1] }
func (s scopeStack) lookup(name string) (syntax.ParameterLocation, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if loc, ok := s[i][name]; ok {
			return loc, true
		}
	}
	return syntax.ParameterLocation{}, false
}

func resolveFunction(fn *syntax.Function, scopes *scopeStack, b *Bindings) *Environment {
	env := newEnvironment()
	for _, branch := range fn.Branches {
		resolveBranch(branch, scopes, env, b)
	}
	b.environments[fn.Location.Key()] = env
	return env
}

func resolveBranch(branch *syntax.Branch, scopes *scopeStack, env *Environment, b *Bindings) {
	sc := scope{}
	for _, param := range branch.Parameters {
		if param.Kind == syntax.ParameterBinding {
			sc[param.Name] = param.Location
		}
	}
	scopes.push(sc)
	defer scopes.pop()

	for _, member := range branch.Expressions() {
		expr := member.Expr
		switch expr.Kind {
		case syntax.ExprIdentifier:
			loc, found := scopes.lookup(expr.Name)
			if !found {
				continue
			}
			b.byMember[member.Location.Key()] = loc
			if !scopes.top().containsLocation(loc) {
				// The binding isn't in this branch's own scope, so it must
				// come from an enclosing function; propagate it upward.
				env.add(loc)
			}

		case syntax.ExprLocalFunction:
			childEnv := resolveFunction(expr.Function, scopes, b)
			for _, loc := range childEnv.Locations() {
				if !scopes.top().containsLocation(loc) {
					env.add(loc)
				}
			}
		}
	}
}

func (sc scope) containsLocation(loc syntax.ParameterLocation) bool {
	for _, l := range sc {
		if l.Equal(loc) {
			return true
		}
	}
	return false
}
