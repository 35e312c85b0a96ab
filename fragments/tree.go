// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fragments

import (
	"strconv"

	"github.com/crosscut-lang/crosscut/syntax"
)

// Build computes one Fragment per function, branch, parameter, and member
// in tree. Hashing happens in two passes: first bottom-up, giving every
// node a content Hash independent of where it sits (a function's Hash
// folds in its branches' Hashes, never their parent's); then a second
// pass assigns each fragment its Address from the already-known hashes of
// its parent and its next sibling. Fragments are appended in right-to-left
// order, the order Store's replacement cascade assumes: a fragment's
// address names its next sibling, so a sibling's replacement has to be
// on record before the fragment to its left is inserted.
func Build(tree *syntax.Tree) []Fragment {
	h := &hasher{
		funcs:  map[*syntax.Function]Hash{},
		brs:    map[*syntax.Branch]Hash{},
		params: map[*syntax.Parameter]Hash{},
		mems:   map[*syntax.Member]Hash{},
	}
	for _, nf := range tree.NamedFunctions {
		h.function(nf.Function)
	}

	w := &walker{hasher: h}
	for i := len(tree.NamedFunctions) - 1; i >= 0; i-- {
		addr := Address{}
		if i+1 < len(tree.NamedFunctions) {
			addr.HasNext = true
			addr.Next = h.funcs[tree.NamedFunctions[i+1].Function]
		}
		w.function(tree.NamedFunctions[i].Function, addr)
	}
	return w.out
}

// hasher computes the content-only Hash of every node, bottom-up.
type hasher struct {
	funcs  map[*syntax.Function]Hash
	brs    map[*syntax.Branch]Hash
	params map[*syntax.Parameter]Hash
	mems   map[*syntax.Member]Hash
}

func (h *hasher) function(fn *syntax.Function) Hash {
	if id, ok := h.funcs[fn]; ok {
		return id
	}
	b := newBuilder("Function")
	for _, br := range fn.Branches {
		id := h.branch(br)
		b.field("branch", id[:])
	}
	id := b.sum()
	h.funcs[fn] = id
	return id
}

func (h *hasher) branch(br *syntax.Branch) Hash {
	if id, ok := h.brs[br]; ok {
		return id
	}
	b := newBuilder("Branch")
	for _, p := range br.Parameters {
		id := h.parameter(p)
		b.field("parameter", id[:])
	}
	for _, m := range br.Body {
		id := h.member(m)
		b.field("member", id[:])
	}
	id := b.sum()
	h.brs[br] = id
	return id
}

func (h *hasher) parameter(p *syntax.Parameter) Hash {
	if id, ok := h.params[p]; ok {
		return id
	}
	b := newBuilder("Parameter")
	switch p.Kind {
	case syntax.ParameterBinding:
		b.variant("Binding")
		b.field("name", []byte(p.Name))
	case syntax.ParameterLiteral:
		b.variant("Literal")
		b.field("value", []byte(strconv.FormatUint(uint64(p.LiteralValue), 10)))
	}
	id := b.sum()
	h.params[p] = id
	return id
}

func (h *hasher) member(m *syntax.Member) Hash {
	if id, ok := h.mems[m]; ok {
		return id
	}
	b := newBuilder("Member")
	switch m.Kind {
	case syntax.MemberComment:
		b.variant("Comment")
		for _, line := range m.CommentLines {
			b.field("line", []byte(line))
		}
	case syntax.MemberExpression:
		b.variant("Expression")
		switch m.Expr.Kind {
		case syntax.ExprIdentifier:
			b.variant("Identifier")
			b.field("name", []byte(m.Expr.Name))
		case syntax.ExprLiteralNumber:
			b.variant("LiteralNumber")
			b.field("value", []byte(strconv.FormatUint(uint64(m.Expr.Value), 10)))
		case syntax.ExprLocalFunction:
			b.variant("LocalFunction")
			id := h.function(m.Expr.Function)
			b.field("function", id[:])
		}
	}
	id := b.sum()
	h.mems[m] = id
	return id
}

// walker makes a second, right-to-left pass over the tree, now assigning
// each fragment its Address from hashes the first pass already computed.
type walker struct {
	hasher *hasher
	out    []Fragment
}

func (w *walker) function(fn *syntax.Function, addr Address) {
	id := w.hasher.funcs[fn]
	w.out = append(w.out, Fragment{ID: id, Kind: KindFunction, Address: addr, Name: "fn"})

	for i := len(fn.Branches) - 1; i >= 0; i-- {
		br := fn.Branches[i]
		brAddr := Address{HasParent: true, Parent: id}
		if i+1 < len(fn.Branches) {
			brAddr.HasNext = true
			brAddr.Next = w.hasher.brs[fn.Branches[i+1]]
		}
		w.branch(br, brAddr)
	}
}

func (w *walker) branch(br *syntax.Branch, addr Address) {
	id := w.hasher.brs[br]
	w.out = append(w.out, Fragment{ID: id, Kind: KindBranch, Address: addr, Name: "br"})

	for i := len(br.Parameters) - 1; i >= 0; i-- {
		p := br.Parameters[i]
		pAddr := Address{HasParent: true, Parent: id}
		if i+1 < len(br.Parameters) {
			pAddr.HasNext = true
			pAddr.Next = w.hasher.params[br.Parameters[i+1]]
		}
		w.parameter(p, pAddr)
	}

	for i := len(br.Body) - 1; i >= 0; i-- {
		m := br.Body[i]
		mAddr := Address{HasParent: true, Parent: id}
		if i+1 < len(br.Body) {
			mAddr.HasNext = true
			mAddr.Next = w.hasher.mems[br.Body[i+1]]
		}
		w.member(m, mAddr)
	}
}

func (w *walker) parameter(p *syntax.Parameter, addr Address) {
	id := w.hasher.params[p]
	w.out = append(w.out, Fragment{ID: id, Kind: KindParameter, Address: addr, Name: p.Name})
}

func (w *walker) member(m *syntax.Member, addr Address) {
	id := w.hasher.mems[m]
	w.out = append(w.out, Fragment{ID: id, Kind: KindMember, Address: addr, Name: "member"})

	if m.Kind == syntax.MemberExpression && m.Expr.Kind == syntax.ExprLocalFunction {
		w.function(m.Expr.Function, Address{HasParent: true, Parent: id})
	}
}
