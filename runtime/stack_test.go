// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runtime

import (
	"testing"

	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/value"
)

func TestStackOperandsAreLIFO(t *testing.T) {
	s := NewStack()
	s.PushOperand(value.FromS32(1))
	s.PushOperand(value.FromS32(2))
	s.PushOperand(value.FromS32(3))

	for _, want := range []int32{3, 2, 1} {
		got, ok := s.PopOperand()
		if !ok || got.AsS32() != want {
			t.Fatalf("PopOperand() = %v, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := s.PopOperand(); ok {
		t.Fatal("PopOperand() on an empty stack returned ok")
	}
}

func TestStackOperandAt(t *testing.T) {
	s := NewStack()
	s.PushOperand(value.FromS32(10))
	s.PushOperand(value.FromS32(20))
	s.PushOperand(value.FromS32(30))

	cases := []struct {
		offset int
		want   int32
	}{{0, 30}, {1, 20}, {2, 10}}
	for _, c := range cases {
		got, ok := s.OperandAt(c.offset)
		if !ok || got.AsS32() != c.want {
			t.Errorf("OperandAt(%d) = %v, %v; want %d, true", c.offset, got, ok, c.want)
		}
	}
	if _, ok := s.OperandAt(3); ok {
		t.Error("OperandAt(3) should be out of range")
	}
}

func TestStackBindings(t *testing.T) {
	s := NewStack()
	s.DefineBinding("x", value.FromS32(42))

	b, ok := s.Bindings()
	if !ok {
		t.Fatal("Bindings() not ok on a fresh stack")
	}
	if got := b["x"]; got.AsS32() != 42 {
		t.Errorf("bindings[x] = %v; want 42", got)
	}
}

func TestStackPushFramePopFrame(t *testing.T) {
	s := NewStack()
	s.DefineBinding("outer", value.FromS32(1))

	if err := s.PushFrame(isa.InstructionAddress{}); err != nil {
		t.Fatalf("PushFrame: %v", err)
	}
	// The new frame's bindings are its own, empty, map.
	if b, _ := s.Bindings(); len(b) != 0 {
		t.Error("new frame should not see the outer frame's bindings")
	}

	addr, ok := s.PopFrame()
	if !ok {
		t.Fatal("PopFrame() on the pushed frame should return its return address")
	}
	_ = addr
	if got, _ := s.Bindings(); got["outer"].AsS32() != 1 {
		t.Error("popping back to the initial frame should restore its bindings")
	}

	// Popping the initial frame signals the process has finished.
	if _, ok := s.PopFrame(); ok {
		t.Error("PopFrame() of the initial frame should report ok=false")
	}
	if !s.NoFramesLeft() {
		t.Error("NoFramesLeft() should be true once the initial frame is gone")
	}
}

func TestStackReuseFrameKeepsOperandsClearsBindings(t *testing.T) {
	s := NewStack()
	s.DefineBinding("x", value.FromS32(1))
	s.PushOperand(value.FromS32(99))

	s.ReuseFrame()

	b, _ := s.Bindings()
	if len(b) != 0 {
		t.Errorf("ReuseFrame should clear bindings, got %v", b)
	}
	v, ok := s.PopOperand()
	if !ok || v.AsS32() != 99 {
		t.Error("ReuseFrame should leave operands already on the stack in place")
	}
}

func TestStackFrameLimit(t *testing.T) {
	s := NewStack()
	for i := 0; i < FrameLimit-1; i++ {
		if err := s.PushFrame(isa.InstructionAddress{}); err != nil {
			t.Fatalf("PushFrame #%d: %v", i, err)
		}
	}
	if err := s.PushFrame(isa.InstructionAddress{}); err == nil {
		t.Error("expected PushFrame to fail once FrameLimit is reached")
	}
}
