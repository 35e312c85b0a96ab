// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sourcemap maps between instruction addresses in a lowered
// program and the syntax that produced them: which function an address
// belongs to, and which expression emitted it.
package sourcemap

import (
	"sort"

	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/syntax"
)

// functionRange is the contiguous span of instructions one function (named
// or local) lowered to.
type functionRange struct {
	loc   syntax.FunctionLocation
	first isa.InstructionAddress
	last  isa.InstructionAddress
}

// expressionRange is the span of instructions one expression lowered to.
// A single expression can emit more than one instruction (e.g. a host
// call is a Push followed by a TriggerEffect) but always emits them back
// to back, so one contiguous range is enough.
type expressionRange struct {
	loc   syntax.MemberLocation
	first isa.InstructionAddress
	last  isa.InstructionAddress
}

// Map is the forward/reverse mapping a compilation builds while lowering
// and that the debugger and error reporting later query.
type Map struct {
	functions   []functionRange
	expressions []expressionRange

	byFunction map[string]functionRange
	byExpr     map[string]expressionRange
}

// New returns an empty source map.
func New() *Map {
	return &Map{
		byFunction: map[string]functionRange{},
		byExpr:     map[string]expressionRange{},
	}
}

// MapFunction records that loc's instructions span [first, last] inclusive.
func (m *Map) MapFunction(loc syntax.FunctionLocation, first, last isa.InstructionAddress) {
	fr := functionRange{loc: loc, first: first, last: last}
	m.functions = append(m.functions, fr)
	m.byFunction[loc.Key()] = fr
}

// Mapping accumulates the instruction addresses a single expression lowers
// to, in emission order. Call Finish once the expression is fully lowered
// to record it into a Map.
type Mapping struct {
	loc   syntax.MemberLocation
	addrs []isa.InstructionAddress
}

// NewMapping starts accumulating addresses for the expression at loc.
func NewMapping(loc syntax.MemberLocation) *Mapping {
	return &Mapping{loc: loc}
}

// Append records that addr was emitted for this expression.
func (mp *Mapping) Append(addr isa.InstructionAddress) {
	mp.addrs = append(mp.addrs, addr)
}

// Finish records the accumulated range into m. A Mapping with no addresses
// (an expression lowered to nothing, which doesn't happen today but costs
// nothing to tolerate) is simply dropped.
func (m *Map) Finish(mp *Mapping) {
	if len(mp.addrs) == 0 {
		return
	}
	er := expressionRange{
		loc:   mp.loc,
		first: mp.addrs[0],
		last:  mp.addrs[len(mp.addrs)-1],
	}
	m.expressions = append(m.expressions, er)
	m.byExpr[mp.loc.Key()] = er
}

// Sort finalizes the map for lookups. Call once after lowering completes.
func (m *Map) Sort() {
	sort.Slice(m.functions, func(i, j int) bool { return m.functions[i].first.Less(m.functions[j].first) })
	sort.Slice(m.expressions, func(i, j int) bool { return m.expressions[i].first.Less(m.expressions[j].first) })
}

// lastStartingAtOrBefore returns the index of the last of n ranges (sorted
// by start address) whose start is <= addr, or -1 if none qualifies.
func lastStartingAtOrBefore(n int, addr isa.InstructionAddress, startOf func(int) isa.InstructionAddress) int {
	i := sort.Search(n, func(i int) bool { return addr.Less(startOf(i)) })
	return i - 1
}

// InstructionToFunction returns the function whose instruction range
// contains addr.
func (m *Map) InstructionToFunction(addr isa.InstructionAddress) (syntax.FunctionLocation, bool) {
	i := lastStartingAtOrBefore(len(m.functions), addr, func(i int) isa.InstructionAddress { return m.functions[i].first })
	if i < 0 {
		return syntax.FunctionLocation{}, false
	}
	f := m.functions[i]
	if addr.Less(f.first) || f.last.Less(addr) {
		return syntax.FunctionLocation{}, false
	}
	return f.loc, true
}

// InstructionToExpression returns the expression whose instruction range
// contains addr.
func (m *Map) InstructionToExpression(addr isa.InstructionAddress) (syntax.MemberLocation, bool) {
	i := lastStartingAtOrBefore(len(m.expressions), addr, func(i int) isa.InstructionAddress { return m.expressions[i].first })
	if i < 0 {
		return syntax.MemberLocation{}, false
	}
	e := m.expressions[i]
	if addr.Less(e.first) || e.last.Less(addr) {
		return syntax.MemberLocation{}, false
	}
	return e.loc, true
}

// ExpressionAddress returns the first instruction address emitted for the
// expression at loc, the landing site the debugger arms an ephemeral
// breakpoint at when it wants execution to stop there.
func (m *Map) ExpressionAddress(loc syntax.MemberLocation) (isa.InstructionAddress, bool) {
	e, ok := m.byExpr[loc.Key()]
	return e.first, ok
}

// FunctionAddress returns the first instruction address of loc's
// function.
func (m *Map) FunctionAddress(loc syntax.FunctionLocation) (isa.InstructionAddress, bool) {
	f, ok := m.byFunction[loc.Key()]
	return f.first, ok
}

// ExpressionEnd returns the address one past loc's last instruction, the
// same address a non-tail call to or from loc resumes at afterward. A
// hot-reload uses this, paired with the old map's InstructionToExpression,
// to retarget a return address at the newly compiled equivalent of the
// call it was waiting on.
func (m *Map) ExpressionEnd(loc syntax.MemberLocation) (isa.InstructionAddress, bool) {
	e, ok := m.byExpr[loc.Key()]
	if !ok {
		return isa.InstructionAddress{}, false
	}
	return e.last.Next(), true
}
