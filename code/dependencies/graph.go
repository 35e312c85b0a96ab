// Copyright 2026 The Crosscut Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dependencies builds the call graph over a program's named
// functions and condenses it into strongly connected components, ordered
// leaves first: the unit of type inference and the domain in which
// mutual recursion is detected.
package dependencies

// node is an opaque numeric handle for a named function, assigned in
// declaration order. Using small dense ints instead of FunctionLocation
// directly throughout the graph keeps the SCC algorithm identical to the
// one it's adapted from.
type node int

type graph map[node]map[node]bool

func addNode(g graph, n node) map[node]bool {
	edges := g[n]
	if edges == nil {
		edges = make(map[node]bool)
		g[n] = edges
	}
	return edges
}

func addEdge(g graph, from, to node) {
	addNode(g, from)
	addNode(g, to)
	g[from][to] = true
}

func transpose(g graph) graph {
	rev := make(graph)
	for n, edges := range g {
		addNode(rev, n)
		for succ := range edges {
			addEdge(rev, succ, n)
		}
	}
	return rev
}

// sccs returns every strongly connected component of g, including trivial
// ones (a single node with no self-loop) — unlike the call-graph
// splitting tool this is adapted from, every function must end up in
// exactly one cluster, not just the ones worth reporting. Components are
// returned leaves first: a cluster only appears after every cluster it
// calls into. The Kosaraju pass itself finds them callers first, so that
// list is reversed before it is returned.
func sccs(g graph) []nodeSet {
	// Kosaraju's algorithm: a forward postorder pass, then a reverse-graph
	// pass consuming that postorder stack, each maximal reachable set
	// being one component.
	var postorder []node
	seen := make(map[node]bool)
	var visit func(node)
	visit = func(n node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for succ := range g[n] {
			visit(succ)
		}
		postorder = append(postorder, n)
	}
	for n := range g {
		visit(n)
	}

	rev := transpose(g)
	seen = make(map[node]bool)
	var rvisit func(node, nodeSet)
	rvisit = func(n node, scc nodeSet) {
		if seen[n] {
			return
		}
		seen[n] = true
		scc[n] = true
		for succ := range rev[n] {
			rvisit(succ, scc)
		}
	}

	var result []nodeSet
	for i := len(postorder) - 1; i >= 0; i-- {
		n := postorder[i]
		if seen[n] {
			continue
		}
		scc := nodeSet{}
		rvisit(n, scc)
		result = append(result, scc)
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

type nodeSet map[node]bool
