// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dependencies

import (
	"github.com/crosscut-lang/crosscut/code/identifiers"
	"github.com/crosscut-lang/crosscut/syntax"
)

// Cluster is one strongly connected component of the call graph over a
// program's named functions: the unit of type inference, and the domain
// within which mutual recursion is detected.
type Cluster struct {
	Functions []syntax.FunctionLocation
}

// Contains reports whether loc names one of the cluster's functions.
func (c Cluster) Contains(loc syntax.FunctionLocation) bool {
	for _, f := range c.Functions {
		if f.Equal(loc) {
			return true
		}
	}
	return false
}

// Clusters is the full condensation of a program's call graph, ordered
// leaves first: a cluster's callees (outside itself) always appear
// earlier in the slice.
type Clusters struct {
	list   []Cluster
	byFunc map[string]int // FunctionLocation.Key() -> index into list
}

// ClusterOf returns the cluster containing the named function at loc.
func (cs *Clusters) ClusterOf(loc syntax.FunctionLocation) (Cluster, bool) {
	i, ok := cs.byFunc[loc.Key()]
	if !ok {
		return Cluster{}, false
	}
	return cs.list[i], true
}

// All returns every cluster, leaves first.
func (cs *Clusters) All() []Cluster { return cs.list }

// Build constructs the call graph over tree's named functions — an edge
// f -> g whenever any expression in f, directly or in any function
// literal nested in f, resolves (per ids) to a call to g — and condenses
// it into leaves-first strongly connected components.
func Build(tree *syntax.Tree, ids *identifiers.Identifiers) *Clusters {
	g := make(graph)
	nodeOf := map[string]node{}
	locOf := map[node]syntax.FunctionLocation{}

	for i, nf := range tree.NamedFunctions {
		n := node(i)
		nodeOf[nf.Location.Key()] = n
		locOf[n] = nf.Location
		addNode(g, n)
	}

	for _, nf := range tree.NamedFunctions {
		from := nodeOf[nf.Location.Key()]
		walkCalls(nf.Function, ids, func(callee syntax.FunctionLocation) {
			if to, ok := nodeOf[callee.Key()]; ok {
				addEdge(g, from, to)
			}
		})
	}

	components := sccs(g)

	cs := &Clusters{byFunc: map[string]int{}}
	for _, comp := range components {
		var cluster Cluster
		for n := range comp {
			cluster.Functions = append(cluster.Functions, locOf[n])
		}
		sortLocations(cluster.Functions)
		idx := len(cs.list)
		cs.list = append(cs.list, cluster)
		for _, loc := range cluster.Functions {
			cs.byFunc[loc.Key()] = idx
		}
	}
	return cs
}

// walkCalls visits every call expression reachable from fn, including
// those nested inside local function literals, and reports each callee
// it resolves to.
func walkCalls(fn *syntax.Function, ids *identifiers.Identifiers, report func(syntax.FunctionLocation)) {
	for _, branch := range fn.Branches {
		for _, member := range branch.Expressions() {
			switch member.Expr.Kind {
			case syntax.ExprIdentifier:
				if target, ok := ids.TargetOf(member.Location); ok && target.Kind == identifiers.UserDefinedFunction {
					report(target.Callee)
				}
			case syntax.ExprLocalFunction:
				walkCalls(member.Expr.Function, ids, report)
			}
		}
	}
}

func sortLocations(locs []syntax.FunctionLocation) {
	for i := 1; i < len(locs); i++ {
		for j := i; j > 0 && locs[j].Less(locs[j-1]); j-- {
			locs[j], locs[j-1] = locs[j-1], locs[j]
		}
	}
}
