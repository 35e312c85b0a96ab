// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command crosscut compiles and runs Crosscut source files.
//
// Usage:
//
//	crosscut run [-v] file...
//	crosscut debug [-v] file...
//
// run compiles the given files (concatenated in argument order) and
// executes the result to completion, or until a host effect or fault
// nothing clears it. debug does the same but drives the process from
// interactive commands read on stdin:
//
//	break <function>   set a durable breakpoint at a named function
//	continue           clear the current stop and run freely
//	step-in            step into a call
//	step-over          step across a call without entering it
//	step-out           run until the current function returns
//	reset              restart the process from its entry point
//	quit               end the session
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/crosscut-lang/crosscut/compiler"
	"github.com/crosscut-lang/crosscut/dbgrpc"
	"github.com/crosscut-lang/crosscut/debug"
	"github.com/crosscut-lang/crosscut/internal/crosscutlog"
)

func usage() {
	io.WriteString(os.Stderr, `crosscut compiles and runs Crosscut source files.

Usage:

	crosscut run [-v] file...
	crosscut debug [-v] file...

run executes a program to completion. debug starts an interactive
session read from stdin; see the break/continue/step-in/step-over/
step-out/reset/quit commands in the package doc.
`)
}

func main() {
	log.SetPrefix("crosscut: ")
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runMain(os.Args[2:])
	case "debug":
		debugMain(os.Args[2:])
	case "-h", "-help", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
}

func readSources(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", p, err)
		}
		b.Write(data)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func compileFiles(paths []string, logger *crosscutlog.Logger) (*compiler.Program, error) {
	src, err := readSources(paths)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(src, nil, logger)
}

func runMain(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := fs.Bool("v", false, "log compiler and runtime diagnostics to stderr")
	fs.Usage = usage
	fs.Parse(args)
	if fs.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := crosscutlog.New(os.Stderr, logLevel(*verbose))

	prog, err := compileFiles(fs.Args(), logger)
	if err != nil {
		log.Fatalf("compile: %v", err)
	}

	commands := make(chan dbgrpc.Command, 1)
	updates := make(chan dbgrpc.Update, 8)
	session := dbgrpc.NewSession(prog.Lowered.Entry, prog.Lowered.Instructions, prog.Lowered, prog.Tree, debug.NewBreakpointSet(), nil, nil, commands, updates, logger)

	done := make(chan error, 1)
	go func() { done <- session.Run(context.Background()) }()

	for {
		select {
		case u := <-updates:
			switch u.State {
			case dbgrpc.Finished:
				commands <- dbgrpc.Stop{}
			case dbgrpc.Stopped:
				fmt.Fprintf(os.Stderr, "stopped on %v; run has no debugger attached\n", u.Effect)
				commands <- dbgrpc.Stop{}
			}
		case err := <-done:
			if err != nil {
				log.Fatalf("run: %v", err)
			}
			return
		}
	}
}

func debugMain(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	verbose := fs.Bool("v", false, "log compiler and runtime diagnostics to stderr")
	fs.Usage = usage
	fs.Parse(args)
	if fs.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger := crosscutlog.New(os.Stderr, logLevel(*verbose))

	prog, err := compileFiles(fs.Args(), logger)
	if err != nil {
		log.Fatalf("compile: %v", err)
	}

	bps := debug.NewBreakpointSet()
	commands := make(chan dbgrpc.Command, 1)
	updates := make(chan dbgrpc.Update, 8)
	session := dbgrpc.NewSession(prog.Lowered.Entry, prog.Lowered.Instructions, prog.Lowered, prog.Tree, bps, nil, nil, commands, updates, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx) })
	g.Go(func() error { return printUpdates(gctx, updates) })
	g.Go(func() error { return readCommands(gctx, cancel, prog, session, bps, commands) })

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		log.Fatalf("debug: %v", err)
	}
}

func printUpdates(ctx context.Context, updates <-chan dbgrpc.Update) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-updates:
			switch u.State {
			case dbgrpc.Stopped:
				fmt.Printf("stopped: %v (%d active frames, %d operands)\n", u.Effect, len(u.ActiveFunctions), len(u.CurrentOperands))
			case dbgrpc.Finished:
				fmt.Println("finished")
			case dbgrpc.Running:
				fmt.Println("running")
			}
		}
	}
}

// readCommands parses the interactive command language off stdin and
// turns it into either a direct BreakpointSet mutation, a PrepareStep
// arm-and-clear sequence, or a Command sent to the session.
func readCommands(ctx context.Context, cancel context.CancelFunc, prog *compiler.Program, session *dbgrpc.Session, bps *debug.BreakpointSet, commands chan<- dbgrpc.Command) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "break":
			if len(fields) != 2 {
				fmt.Println("usage: break <function>")
				continue
			}
			nf, ok := prog.Tree.FunctionByName(fields[1])
			if !ok {
				fmt.Printf("no such function %q\n", fields[1])
				continue
			}
			addr, ok := prog.Lowered.SourceMap.FunctionAddress(nf.Location)
			if !ok {
				fmt.Printf("function %q compiled to no code\n", fields[1])
				continue
			}
			bps.SetDurable(addr)

		case "continue":
			send(ctx, commands, dbgrpc.ClearBreakpointAndContinue{})

		case "step-in", "step-over", "step-out":
			cmds := session.PrepareStep(stepKind(fields[0]))
			if cmds.EvaluateNextInstruction {
				send(ctx, commands, dbgrpc.ClearBreakpointAndEvaluateNextInstruction{})
			}
			if cmds.Continue {
				send(ctx, commands, dbgrpc.ClearBreakpointAndContinue{})
			}

		case "reset":
			send(ctx, commands, dbgrpc.Reset{})

		case "quit":
			send(ctx, commands, dbgrpc.Stop{})
			cancel()
			return nil

		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	cancel()
	return nil
}

func stepKind(cmd string) debug.StepKind {
	switch cmd {
	case "step-over":
		return debug.StepOver
	case "step-out":
		return debug.StepOut
	default:
		return debug.StepIn
	}
}

func send(ctx context.Context, commands chan<- dbgrpc.Command, cmd dbgrpc.Command) {
	select {
	case commands <- cmd:
	case <-ctx.Done():
	}
}

func logLevel(verbose bool) crosscutlog.Level {
	if verbose {
		return crosscutlog.Debug
	}
	return crosscutlog.Warning
}
