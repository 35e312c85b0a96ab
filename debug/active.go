// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debug

import (
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/sourcemap"
	"github.com/crosscut-lang/crosscut/syntax"
)

// ActiveFrame is one entry of a reconstructed call stack: the top-level
// named function active at addr, or a Gap where the address couldn't be
// resolved to any function at all.
//
// Tail calls reuse their caller's frame, so intermediate frames are not
// on the stack to be reported. Because every call and closure is
// addressed by syntax.FunctionLocation (see code/lower's doc comment on
// Lower), every address the runtime ever reports — including the one a
// tail-reused frame currently holds — already resolves to its exact
// enclosing function via the source map, with nothing to fill in. Gap
// fires only if an address is passed in that the source map genuinely
// has no record of (a malformed instruction stream), which a
// successfully compiled program never produces.
type ActiveFrame struct {
	Function syntax.FunctionLocation
	Address  isa.InstructionAddress
	Gap      bool
}

// ReconstructActiveFunctions maps each of a process's active instruction
// addresses — outermost frame first, as runtime.Process.ActiveInstructions
// returns them — to the top-level named function it belongs to.
func ReconstructActiveFunctions(tree *syntax.Tree, sm *sourcemap.Map, addrs []isa.InstructionAddress) []ActiveFrame {
	out := make([]ActiveFrame, 0, len(addrs))
	for _, addr := range addrs {
		loc, ok := sm.InstructionToFunction(addr)
		if !ok {
			out = append(out, ActiveFrame{Address: addr, Gap: true})
			continue
		}
		top := tree.TopLevelParentOf(loc)
		out = append(out, ActiveFrame{Function: top.Location, Address: addr})
	}
	return out
}
