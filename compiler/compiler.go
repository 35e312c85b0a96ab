// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler drives the full pipeline, C1 through C7, over one
// source text: tokenizing and parsing it, resolving bindings and
// identifiers, building the dependency clusters, marking recursion and
// tail position, inferring types, and lowering to an instruction stream.
// It is the single entry point cmd/crosscut and the debugger bridge
// compile against; a fresh Compile call is also what an edit recompiles
// through on a hot-reload (see package fragments).
package compiler

import (
	"fmt"

	"github.com/crosscut-lang/crosscut/code/bindings"
	"github.com/crosscut-lang/crosscut/code/dependencies"
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/code/lower"
	"github.com/crosscut-lang/crosscut/code/recursion"
	"github.com/crosscut-lang/crosscut/code/types"
	"github.com/crosscut-lang/crosscut/fragments"
	"github.com/crosscut-lang/crosscut/host"
	"github.com/crosscut-lang/crosscut/internal/crosscutlog"
	"github.com/crosscut-lang/crosscut/syntax"
)

// Program is everything one compilation produced: the syntax tree and
// every pass's output, kept around because the debugger bridge and
// hot-reload both need to look back past the final instruction stream
// (to resolve a location, to diff a new compile's fragments against an
// old one).
type Program struct {
	Tree        *syntax.Tree
	Bindings    *bindings.Bindings
	Identifiers *identifiers.Identifiers
	Clusters    *dependencies.Clusters
	Recursion   *recursion.Recursion
	Types       *types.Output
	Fragments   []fragments.Fragment
	Lowered     *lower.Output
}

// Compile runs the full compiler pipeline over source. hostTable may be
// nil for a program that declares no host functions. A *types.TypeError
// aborts lowering (inference is the only pass that can fail a
// syntactically valid, fully resolved program); a plain error means
// parsing or lowering itself failed.
func Compile(source string, hostTable *host.Table, log *crosscutlog.Logger) (*Program, error) {
	if log == nil {
		log = crosscutlog.Discard
	}

	tree, err := syntax.Parse(source)
	if err != nil {
		log.Errorf("parse failed", crosscutlog.Label{Key: "error", Value: err})
		return nil, fmt.Errorf("compiler: %w", err)
	}
	log.Debugf("parsed program", crosscutlog.Label{Key: "functions", Value: len(tree.NamedFunctions)})

	b := bindings.Resolve(tree)
	ids := identifiers.Classify(tree, b, hostTable)
	clusters := dependencies.Build(tree, ids)
	log.Debugf("condensed call graph", crosscutlog.Label{Key: "clusters", Value: len(clusters.All())})

	rec := recursion.Find(tree, ids, clusters)

	typesOut, typeErr := types.Infer(tree, b, ids, clusters)
	if typeErr != nil {
		log.Errorf("type inference failed", crosscutlog.Label{Key: "error", Value: typeErr})
		return nil, typeErr
	}

	lowered, err := lower.Lower(tree, b, ids, rec)
	if err != nil {
		log.Errorf("lowering failed", crosscutlog.Label{Key: "error", Value: err})
		return nil, fmt.Errorf("compiler: %w", err)
	}
	log.Infof("compiled program", crosscutlog.Label{Key: "instructions", Value: lowered.Instructions.Len()})

	return &Program{
		Tree:        tree,
		Bindings:    b,
		Identifiers: ids,
		Clusters:    clusters,
		Recursion:   rec,
		Types:       typesOut,
		Fragments:   fragments.Build(tree),
		Lowered:     lowered,
	}, nil
}
