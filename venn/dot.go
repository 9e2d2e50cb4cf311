// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package venn

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// MarshalDOT returns a DOT description of the pairwise table as a directed
// graph with one node per run. An edge from a to b has the number of BGCs
// of a matched by b as its weight, and is absent when there are none.
func (t Table) MarshalDOT(name string) ([]byte, error) {
	g := simple.NewWeightedDirectedGraph(0, 0)
	ids := make(map[string]graph.Node)
	for _, l := range t.Labels() {
		n := node{id: g.NewNode().ID(), name: l}
		g.AddNode(n)
		ids[l] = n
	}
	for _, a := range t.Labels() {
		for b, c := range t[a] {
			if c.NonUnique == 0 {
				continue
			}
			to, ok := ids[b]
			if !ok {
				return nil, fmt.Errorf("no run %q in table", b)
			}
			g.SetWeightedEdge(edge{f: ids[a], t: to, c: c})
		}
	}
	return dot.Marshal(g, name, "", "\t")
}

type node struct {
	id   int64
	name string
}

func (n node) ID() int64     { return n.id }
func (n node) DOTID() string { return n.name }

type edge struct {
	f, t graph.Node
	c    Counts
}

func (e edge) From() graph.Node         { return e.f }
func (e edge) To() graph.Node           { return e.t }
func (e edge) ReversedEdge() graph.Edge { return edge{f: e.t, t: e.f, c: e.c} }
func (e edge) Weight() float64          { return float64(e.c.NonUnique) }
func (e edge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "weight", Value: fmt.Sprint(e.c.NonUnique)},
		{Key: "label", Value: fmt.Sprintf(`"%d/%d"`, e.c.NonUnique, e.c.NonUnique+e.c.Unique)},
	}
}
