// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gridhost is a reference host.Host implementation: an
// in-memory RGBA pixel grid a program can draw to, a flat addressable
// memory it can load and store through, an input queue, a source of
// random numbers, and a halt signal — enough to exercise the Host
// Effect Protocol end to end without an actual window system or
// network peer on the other end.
package gridhost

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/crosscut-lang/crosscut/host"
	"github.com/crosscut-lang/crosscut/typesys"
	"github.com/crosscut-lang/crosscut/value"
)

// ErrHalted is returned by Invoke when the program calls "halt". Package
// dbgrpc's Session.Run treats it like any other host error: it stops and
// returns it, wrapped.
var ErrHalted = errors.New("gridhost: program halted")

// Frame is one submitted snapshot of the pixel grid: width*height RGBA
// bytes, row-major, top-left origin.
type Frame struct {
	Width, Height int
	Pixels        []byte
}

// Table returns the host.Entry declarations for every function this
// package implements, with stable effect numbers assigned in
// declaration order. Pass this to host.NewTable when compiling a
// program against a *Grid.
func Table() ([]host.Entry, error) {
	num := typesys.Number
	sig := func(ins, outs int) typesys.Signature {
		s := typesys.Signature{}
		for i := 0; i < ins; i++ {
			s.Inputs = append(s.Inputs, num)
		}
		for i := 0; i < outs; i++ {
			s.Outputs = append(s.Outputs, num)
		}
		return s
	}
	return []host.Entry{
		{Name: "halt", Number: 0, Signature: sig(0, 0)},
		{Name: "submit_frame", Number: 1, Signature: sig(0, 0)},
		{Name: "load", Number: 2, Signature: sig(1, 1)},
		{Name: "store", Number: 3, Signature: sig(2, 0)},
		{Name: "read_input", Number: 4, Signature: sig(1, 1)},
		{Name: "read_random", Number: 5, Signature: sig(0, 1)},
		{Name: "set_pixel", Number: 6, Signature: sig(6, 0)},
	}, nil
}

// Grid is a reference host: a pixel buffer, a flat word-addressed
// memory, an input queue fed by the embedder, and a pump that ships
// submitted frames out to a sink.
type Grid struct {
	width, height int
	pixels        []byte

	memory map[uint32]value.Value
	input  []value.Value
	rand   *rand.Rand

	frames chan Frame
	pump   *errgroup.Group
}

// New starts a Grid of the given dimensions. Frames submitted by the
// program are handed to sink.Write, one at a time, on a goroutine
// managed by an errgroup.Group so that a write error or ctx
// cancellation is observable from Close. input is consumed in order by
// successive read_input calls, regardless of the channel argument the
// program passes (this reference host has only one input stream).
func New(ctx context.Context, width, height int, sink io.Writer, input []value.Value, seed int64) *Grid {
	g := &Grid{
		width:  width,
		height: height,
		pixels: make([]byte, width*height*4),
		memory: map[uint32]value.Value{},
		input:  input,
		rand:   rand.New(rand.NewSource(seed)),
		frames: make(chan Frame, 1),
	}

	grp, pumpCtx := errgroup.WithContext(ctx)
	g.pump = grp
	grp.Go(func() error {
		for {
			select {
			case <-pumpCtx.Done():
				return pumpCtx.Err()
			case f, ok := <-g.frames:
				if !ok {
					return nil
				}
				if _, err := sink.Write(f.Pixels); err != nil {
					return fmt.Errorf("gridhost: frame sink: %w", err)
				}
			}
		}
	})
	return g
}

// Close stops accepting frames and waits for the pump to drain,
// returning any error the sink reported.
func (g *Grid) Close() error {
	close(g.frames)
	return g.pump.Wait()
}

// Invoke implements host.Host, dispatching on entry.Name to the
// corresponding method. Every argument and return value crosses the
// boundary as a plain value.Value: declared inputs are popped
// rightmost-first, declared outputs pushed.
func (g *Grid) Invoke(entry host.Entry, pop func() (value.Value, bool), push func(value.Value)) error {
	switch entry.Name {
	case "halt":
		return ErrHalted

	case "submit_frame":
		g.submitFrame()
		return nil

	case "load":
		addr, ok := pop()
		if !ok {
			return fmt.Errorf("gridhost: load: missing address")
		}
		push(g.memory[addr.AsU32()])
		return nil

	case "store":
		v, ok := pop()
		if !ok {
			return fmt.Errorf("gridhost: store: missing value")
		}
		addr, ok := pop()
		if !ok {
			return fmt.Errorf("gridhost: store: missing address")
		}
		g.memory[addr.AsU32()] = v
		return nil

	case "read_input":
		if _, ok := pop(); !ok {
			return fmt.Errorf("gridhost: read_input: missing channel")
		}
		if len(g.input) == 0 {
			push(value.FromU32(0))
			return nil
		}
		push(g.input[0])
		g.input = g.input[1:]
		return nil

	case "read_random":
		push(value.FromU32(g.rand.Uint32()))
		return nil

	case "set_pixel":
		a, _ := pop()
		b, _ := pop()
		gr, _ := pop()
		r, _ := pop()
		y, _ := pop()
		x, okx := pop()
		if !okx {
			return fmt.Errorf("gridhost: set_pixel: missing arguments")
		}
		return g.setPixel(int(x.AsS32()), int(y.AsS32()), r.AsU8(), gr.AsU8(), b.AsU8(), a.AsU8())

	default:
		return fmt.Errorf("gridhost: unknown host function %q", entry.Name)
	}
}

func (g *Grid) setPixel(x, y int, r, gr, b, a uint8) error {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return fmt.Errorf("gridhost: set_pixel: (%d, %d) out of bounds for %dx%d grid", x, y, g.width, g.height)
	}
	i := (y*g.width + x) * 4
	g.pixels[i], g.pixels[i+1], g.pixels[i+2], g.pixels[i+3] = r, gr, b, a
	return nil
}

func (g *Grid) submitFrame() {
	snapshot := make([]byte, len(g.pixels))
	copy(snapshot, g.pixels)
	g.frames <- Frame{Width: g.width, Height: g.height, Pixels: snapshot}
}
