// Package depgraph holds an immutable snapshot of the repository's file
// dependency graph and answers one-hop neighbor queries for lock propagation.
//
// Graph construction (import parsing, tree fetching) happens elsewhere; this
// package only loads an already-built edge list and reads adjacency. The
// engine never mutates edges — the only write surface is the lock overlay in
// overlay.go, which annotates a copy for presentation.
package depgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
)

// Edge is one "imports" relationship: Source depends on Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is an immutable set of file nodes and directed dependency edges.
// All methods are safe for concurrent use because nothing mutates after New.
type Graph struct {
	nodes     map[string]struct{}
	out       map[string][]string // file -> files it depends on
	in        map[string][]string // file -> files depending on it
	neighbors map[string][]string // union of both directions, excluding self
}

// New builds a Graph from an edge list. Duplicate edges and self-loops are
// dropped.
func New(edges []Edge) *Graph {
	g := &Graph{
		nodes:     make(map[string]struct{}),
		out:       make(map[string][]string),
		in:        make(map[string][]string),
		neighbors: make(map[string][]string),
	}

	adj := make(map[string]map[string]struct{})
	link := func(a, b string) {
		if adj[a] == nil {
			adj[a] = make(map[string]struct{})
		}
		adj[a][b] = struct{}{}
	}

	for _, e := range edges {
		if e.Source == "" || e.Target == "" || e.Source == e.Target {
			continue
		}
		g.nodes[e.Source] = struct{}{}
		g.nodes[e.Target] = struct{}{}
		g.out[e.Source] = append(g.out[e.Source], e.Target)
		g.in[e.Target] = append(g.in[e.Target], e.Source)
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}

	for f, set := range adj {
		ns := lo.Keys(set)
		sort.Strings(ns)
		g.neighbors[f] = ns
	}
	for f := range g.out {
		g.out[f] = lo.Uniq(g.out[f])
		sort.Strings(g.out[f])
	}
	for f := range g.in {
		g.in[f] = lo.Uniq(g.in[f])
		sort.Strings(g.in[f])
	}
	return g
}

// graphFile is the on-disk shape: an edge list, optionally with isolated
// nodes listed separately.
type graphFile struct {
	Nodes []string `json:"nodes,omitempty"`
	Edges []Edge   `json:"edges"`
}

// Load reads a JSON graph file produced by the external graph builder.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	var gf graphFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, fmt.Errorf("parse graph %s: %w", path, err)
	}
	g := New(gf.Edges)
	for _, n := range gf.Nodes {
		if n != "" {
			g.nodes[n] = struct{}{}
		}
	}
	return g, nil
}

// Neighbors returns every file adjacent to filePath in either edge
// direction, sorted, excluding filePath itself. Unknown files have no
// neighbors.
func (g *Graph) Neighbors(filePath string) []string {
	ns := g.neighbors[filePath]
	out := make([]string, len(ns))
	copy(out, ns)
	return out
}

// Dependencies returns the files filePath imports.
func (g *Graph) Dependencies(filePath string) []string {
	ds := g.out[filePath]
	out := make([]string, len(ds))
	copy(out, ds)
	return out
}

// Dependents returns the files that import filePath.
func (g *Graph) Dependents(filePath string) []string {
	ds := g.in[filePath]
	out := make([]string, len(ds))
	copy(out, ds)
	return out
}

// Files returns every known file, sorted.
func (g *Graph) Files() []string {
	fs := lo.Keys(g.nodes)
	sort.Strings(fs)
	return fs
}

// Edges returns the directed edge list, sorted by source then target.
func (g *Graph) Edges() []Edge {
	var es []Edge
	for src, targets := range g.out {
		for _, tgt := range targets {
			es = append(es, Edge{Source: src, Target: tgt})
		}
	}
	sort.Slice(es, func(i, j int) bool {
		if es[i].Source != es[j].Source {
			return es[i].Source < es[j].Source
		}
		return es[i].Target < es[j].Target
	})
	return es
}
