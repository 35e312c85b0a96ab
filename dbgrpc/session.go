// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbgrpc is the transport between an embedder and a running
// process: a closed union of Commands sent in, a stream of Updates sent
// back, carried over plain Go channels rather than a wire protocol.
// The "connection" never leaves the process, so there is no framing,
// no request/response correlation, and no wire format; Session.Run is
// the whole of it, with exactly the five message types the debugger
// bridge ever needs.
package dbgrpc

import (
	"context"
	"fmt"

	"github.com/crosscut-lang/crosscut/code/lower"
	"github.com/crosscut-lang/crosscut/debug"
	"github.com/crosscut-lang/crosscut/host"
	"github.com/crosscut-lang/crosscut/internal/crosscutlog"
	"github.com/crosscut-lang/crosscut/isa"
	"github.com/crosscut-lang/crosscut/runtime"
	"github.com/crosscut-lang/crosscut/sourcemap"
	"github.com/crosscut-lang/crosscut/syntax"
	"github.com/crosscut-lang/crosscut/value"
)

// Command is one instruction sent to a running Session. The concrete
// types below are its only implementations.
type Command interface{ isCommand() }

// UpdateCode hot-reloads the process onto a newly compiled Output and
// its Tree, applied atomically the next time Run is between Step calls.
// Every open frame's return address is retargeted from the old source
// map to the new one (see retargetReturnAddress) so a hot-reload never
// resets the process, only the code under it.
type UpdateCode struct {
	Output *lower.Output
	Tree   *syntax.Tree
}

// Reset restarts the process from its entry point with a fresh stack
// and heap, keeping the current code and breakpoints.
type Reset struct{}

// Stop ends the session; Run returns nil once it's processed.
type Stop struct{}

// ClearBreakpointAndContinue clears the effect the process is currently
// stopped at and runs freely until the next breakpoint or effect.
type ClearBreakpointAndContinue struct{}

// ClearBreakpointAndEvaluateNextInstruction clears the effect the
// process is currently stopped at and executes exactly one more
// instruction before reporting a new Update.
type ClearBreakpointAndEvaluateNextInstruction struct{}

func (UpdateCode) isCommand()                                {}
func (Reset) isCommand()                                     {}
func (Stop) isCommand()                                      {}
func (ClearBreakpointAndContinue) isCommand()                {}
func (ClearBreakpointAndEvaluateNextInstruction) isCommand() {}

// State is the coarse status an Update reports.
type State int

const (
	// Running means the process executed to the next breakpoint, effect,
	// or command without anything the embedder must act on immediately.
	Running State = iota
	// Finished means the process ran to completion.
	Finished
	// Stopped means the process is suspended on an effect (a breakpoint,
	// a host call the embedder must service, or a fault).
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Update is what Run sends back after every effect and at every state
// change: everything a debugger client needs to render a paused
// process.
type Update struct {
	State           State
	Effect          isa.Effect
	ActiveFunctions []debug.ActiveFrame
	CurrentOperands []value.Value
}

// Session drives one process against one instruction stream, servicing
// Host effects through a host.Host and breakpoints through a
// debug.BreakpointSet, until a Stop command or a context cancellation
// ends it. The BreakpointSet passed to NewSession is shared with the
// caller: setting or clearing a durable breakpoint, or calling
// PrepareStep to arm ephemeral ones, takes effect on the very next
// instruction Run steps, whether or not the process is currently
// stopped.
type Session struct {
	proc    *runtime.Process
	code    *isa.Instructions
	out     *lower.Output
	tree    *syntax.Tree
	bps     *debug.BreakpointSet
	hostTbl *host.Table
	h       host.Host
	log     *crosscutlog.Logger

	commands <-chan Command
	updates  chan<- Update
}

// NewSession builds a Session. h and hostTbl may both be nil for a
// program that makes no host calls.
func NewSession(entry isa.InstructionAddress, code *isa.Instructions, out *lower.Output, tree *syntax.Tree, bps *debug.BreakpointSet, hostTbl *host.Table, h host.Host, commands <-chan Command, updates chan<- Update, log *crosscutlog.Logger) *Session {
	if log == nil {
		log = crosscutlog.Discard
	}
	return &Session{
		proc:     runtime.NewProcess(entry),
		code:     code,
		out:      out,
		tree:     tree,
		bps:      bps,
		hostTbl:  hostTbl,
		h:        h,
		log:      log,
		commands: commands,
		updates:  updates,
	}
}

// Current returns the instruction address the process is about to
// execute (or, while Stopped, the one it's suspended at).
func (s *Session) Current() isa.InstructionAddress { return s.proc.Next }

// ReturnAddresses returns the process's open frames' return addresses,
// outermost first — what PrepareStep and debug.ReconstructActiveFunctions
// both need from outside the package.
func (s *Session) ReturnAddresses() []isa.InstructionAddress { return s.proc.Stack.ReturnAddresses() }

// PrepareStep arms the ephemeral breakpoints for one StepIn/StepOver/
// StepOut and reports which clear commands the caller should send next:
// if cmds.EvaluateNextInstruction, send ClearBreakpointAndEvaluateNextInstruction
// first; then, if cmds.Continue, ClearBreakpointAndContinue. Call this
// only while the session is Stopped.
func (s *Session) PrepareStep(kind debug.StepKind) debug.Commands {
	_, cmds := debug.Prepare(kind, s.code, s.out, s.out.SourceMap, s.tree, s.bps, s.proc.Next, s.proc.Stack.ReturnAddresses())
	return cmds
}

// Run drives the process until a Stop command, ctx is canceled, or the
// process finishes. It never returns a non-nil error for a program
// fault (those are reported as Stopped Updates); a non-nil error means
// the session itself couldn't continue (ctx canceled, or a host call
// failed).
func (s *Session) Run(ctx context.Context) error {
	entry := s.proc.Next

	for {
		if s.proc.Finished() {
			s.emit(Finished, 0)
			if err := s.waitForRestartOrStop(ctx, entry); err != nil {
				if err == errStop {
					return nil
				}
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			if err := s.handleIdleCommand(cmd, entry); err != nil {
				if err == errStop {
					return nil
				}
				return err
			}
			continue
		default:
		}

		// Rebuilding on every step, rather than caching the applied
		// image, is what lets an embedder arm an ephemeral breakpoint
		// (PrepareStep) or toggle a durable one mid-run and have it
		// take effect on the very next instruction.
		effect, triggered := s.proc.Step(s.bps.Apply(s.code, nil, nil), s.out)
		if !triggered {
			continue
		}

		if effect == isa.Host {
			if err := s.invokeHost(); err != nil {
				s.emit(Stopped, effect)
				return fmt.Errorf("dbgrpc: host call: %w", err)
			}
			s.proc.ClearEffect()
			continue
		}

		s.emit(Stopped, effect)

		if err := s.waitForClear(ctx, entry); err != nil {
			if err == errStop {
				return nil
			}
			return err
		}
	}
}

// waitForClear blocks for the command that resolves a Stopped effect:
// continue, step, reset, a hot-reload, or stop.
func (s *Session) waitForClear(ctx context.Context, entry isa.InstructionAddress) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			switch cmd.(type) {
			case ClearBreakpointAndContinue:
				ok, err := s.clearAndStepOnce()
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				return nil
			case ClearBreakpointAndEvaluateNextInstruction:
				ok, err := s.clearAndStepOnce()
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				s.emit(Running, 0)
				return nil
			default:
				if err := s.handleIdleCommand(cmd, entry); err != nil {
					return err
				}
			}
		}
	}
}

// waitForRestartOrStop is waitForClear's counterpart once the process
// has already finished: only Reset, UpdateCode, and Stop make sense.
func (s *Session) waitForRestartOrStop(ctx context.Context, entry isa.InstructionAddress) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			if err := s.handleIdleCommand(cmd, entry); err != nil {
				return err
			}
			if _, ok := cmd.(Reset); ok {
				return nil
			}
		}
	}
}

func (s *Session) handleIdleCommand(cmd Command, entry isa.InstructionAddress) error {
	switch c := cmd.(type) {
	case UpdateCode:
		oldSM := s.out.SourceMap
		newSM := c.Output.SourceMap
		s.code = c.Output.Instructions
		s.out = c.Output
		s.tree = c.Tree
		s.proc.Stack.RewriteReturnAddresses(func(addr isa.InstructionAddress) isa.InstructionAddress {
			if retargeted, ok := retargetReturnAddress(oldSM, newSM, addr); ok {
				return retargeted
			}
			return addr
		})
		s.log.Infof("hot-reloaded process", crosscutlog.Label{Key: "instructions", Value: s.code.Len()})
		return nil
	case Reset:
		s.proc = runtime.NewProcess(entry)
		s.log.Debugf("process reset")
		return nil
	case Stop:
		return errStop
	default:
		// A continue/step command arriving while the process isn't
		// stopped on anything is a no-op; there's nothing to clear.
		return nil
	}
}

var errStop = fmt.Errorf("dbgrpc: session stopped")

// retargetReturnAddress maps a return address recorded against oldSM to
// its equivalent in newSM: the address right after the same calling
// expression's instructions, wherever that expression lands in the new
// compile. addr is always one past the call instruction it returns to,
// so addr.Previous() is the call's own, single-instruction range.
// Reports false if the call no longer exists in the new source (the
// edit deleted or moved it outside anything newSM recorded), in which
// case the caller leaves the frame's return address untouched — sound
// only if the edit didn't also invalidate the old instruction stream's
// addressing, which is the embedder's responsibility to avoid.
func retargetReturnAddress(oldSM, newSM *sourcemap.Map, addr isa.InstructionAddress) (isa.InstructionAddress, bool) {
	loc, ok := oldSM.InstructionToExpression(addr.Previous())
	if !ok {
		return isa.InstructionAddress{}, false
	}
	return newSM.ExpressionEnd(loc)
}

// clearAndStepOnce executes the one real instruction a breakpoint is
// currently masking — a durable or ephemeral one an embedder set on top
// of an ordinary instruction, or a source-level brk — using
// debug.ClearImage rather than s.proc.ClearEffect, which would just skip
// past the address instead of running what's actually there (a
// CallFunction the embedder stopped on still needs to dispatch). ok is
// false if that single step immediately stopped the process again or
// ended it; the caller should keep waiting on waitForClear rather than
// resume freely.
func (s *Session) clearAndStepOnce() (ok bool, err error) {
	image := debug.ClearImage(s.code, s.bps, s.proc.Next)
	effect, triggered := s.proc.Step(image, s.out)
	if !triggered {
		return true, nil
	}
	if effect == isa.Host {
		if err := s.invokeHost(); err != nil {
			s.emit(Stopped, effect)
			return false, fmt.Errorf("dbgrpc: host call: %w", err)
		}
		s.proc.ClearEffect()
		return true, nil
	}
	s.emit(Stopped, effect)
	return false, nil
}

func (s *Session) invokeHost() error {
	n, ok := s.proc.Stack.PopOperand()
	if !ok {
		return fmt.Errorf("dbgrpc: host effect with no function number on the stack")
	}
	entry, ok := s.hostTbl.ByNumber(n.AsU8())
	if !ok {
		return fmt.Errorf("dbgrpc: no host function registered for number %d", n.AsU8())
	}
	if s.h == nil {
		return fmt.Errorf("dbgrpc: host function %q called with no host configured", entry.Name)
	}
	return s.h.Invoke(entry, s.proc.Stack.PopOperand, s.proc.Stack.PushOperand)
}

func (s *Session) emit(state State, effect isa.Effect) {
	if s.updates == nil {
		return
	}
	var active []debug.ActiveFrame
	if state != Finished {
		active = debug.ReconstructActiveFunctions(s.tree, s.out.SourceMap, s.proc.ActiveInstructions())
	}
	s.updates <- Update{
		State:           state,
		Effect:          effect,
		ActiveFunctions: active,
		CurrentOperands: append([]value.Value(nil), s.proc.Stack.Operands()...),
	}
}
