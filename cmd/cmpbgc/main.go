// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The cmpbgc program compares the BGCs predicted in two files on the same
// sequences. The inputs may be genome mining tool output or GFF written by
// bgcgff. The output of the analysis is the number of bases that agree
// between the inputs, the number of bases that are covered in one, but not
// the other, and the number of bases where the annotation differs. These
// analyses are done for both the canonical product class and the
// completeness of the BGCs, and are emitted on stdout as a JSON object.
//
// If a dot flag is provided, descriptions of the discordances between the
// BGC sets are written as graphs in DOT format, with edge weights
// representing counts of mismatched bases.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/internal/feature"
	"github.com/kortschak/bgcq/internal/logger"
	"github.com/kortschak/bgcq/mining"
)

func main() {
	aFile := flag.String("a", "", "specify the input file a name (required)")
	bFile := flag.String("b", "", "specify the input file b name (required)")
	out := flag.String("dot", "", "specify prefix for DOT files describing disagreements")
	none := flag.String("none", "none", "specify label for 'no annotation'")
	products := flag.String("products", "", "specify a product mapping TOML file")
	verbose := flag.Bool("verbose", false, "specify verbose logging")
	flag.Parse()
	if *aFile == "" || *bFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Level(*verbose))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to make logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var mapping *bgc.Mapping
	if *products != "" {
		mapping, err = bgc.ReadMapping(*products)
		if err != nil {
			log.Fatal("failed to read product mapping", zap.Error(err))
		}
	}
	a, err := readRecords(*aFile, mapping, log)
	if err != nil {
		log.Fatal("failed to read input a", zap.Error(err))
	}
	b, err := readRecords(*bFile, mapping, log)
	if err != nil {
		log.Fatal("failed to read input b", zap.Error(err))
	}

	type report struct {
		Product      summary `json:"product"`
		Completeness summary `json:"completeness"`
	}
	var (
		rep          report
		productDisc  map[names]int
		completeDisc map[names]int
	)
	rep.Product, productDisc, err = concord(a, b, func(r bgc.Record) string { return string(r.Product) })
	if err != nil {
		log.Fatal("failed to compare products", zap.Error(err))
	}
	rep.Completeness, completeDisc, err = concord(a, b, func(r bgc.Record) string { return r.Completeness.String() })
	if err != nil {
		log.Fatal("failed to compare completeness", zap.Error(err))
	}

	m, err := json.Marshal(rep)
	if err != nil {
		log.Fatal("failed to marshal report", zap.Error(err))
	}
	fmt.Printf("%s\n", m)
	if *out != "" {
		err = dotOut(*out+".product.dot", *aFile, *bFile, productDisc, *none)
		if err != nil {
			log.Fatal("failed to write DOT", zap.Error(err))
		}
		err = dotOut(*out+".completeness.dot", *aFile, *bFile, completeDisc, *none)
		if err != nil {
			log.Fatal("failed to write DOT", zap.Error(err))
		}
	}
}

// readRecords returns the BGC records in the file at path, read as GFF if
// the file has a GFF extension and as mining tool output otherwise.
func readRecords(path string, mapping *bgc.Mapping, log *zap.Logger) ([]bgc.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gff", ".gff2", ".gff3", ".gtf":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		recs, err := feature.Read(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return recs, nil
	}
	res, err := mining.ReadFile(path)
	if err != nil {
		return nil, err
	}
	recs, warnings := bgc.Builder{Mapping: mapping, Lengths: res.Lengths}.Build(res.Raw)
	for _, w := range warnings {
		log.Warn("skipped record", zap.String("path", path), zap.Error(w))
	}
	return recs, nil
}

// dotOut writes the discordances in edges to path as a directed graph from
// the annotations of input a to those of input b.
func dotOut(path, aFile, bFile string, edges map[names]int, none string) error {
	g := discordGraph{
		WeightedDirectedGraph: simple.NewWeightedDirectedGraph(0, 0),
		nodes:                 make(map[string]graph.Node),
	}
	label := func(file, s string) string {
		if s == "" {
			s = none
		}
		return file + ":" + s
	}
	for p, n := range edges {
		g.SetWeightedEdge(edge{
			f: g.node(label(aFile, p.a)),
			t: g.node(label(bFile, p.b)),
			n: n,
		})
	}
	b, err := dot.Marshal(g, "discord", "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o664)
}

// discordGraph is a graph of annotation discordances between two inputs.
type discordGraph struct {
	*simple.WeightedDirectedGraph
	nodes map[string]graph.Node
}

// node returns the node for the named annotation, adding it if necessary.
func (g discordGraph) node(name string) graph.Node {
	n, ok := g.nodes[name]
	if ok {
		return n
	}
	n = node{id: g.NewNode().ID(), name: name}
	g.AddNode(n)
	g.nodes[name] = n
	return n
}

type node struct {
	id   int64
	name string
}

func (n node) ID() int64     { return n.id }
func (n node) DOTID() string { return n.name }

// edge is a discordance holding the number of discordant bases.
type edge struct {
	f, t graph.Node
	n    int
}

func (e edge) From() graph.Node         { return e.f }
func (e edge) To() graph.Node           { return e.t }
func (e edge) ReversedEdge() graph.Edge { return edge{f: e.t, t: e.f, n: e.n} }
func (e edge) Weight() float64          { return float64(e.n) }
func (e edge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "weight", Value: fmt.Sprint(e.n)},
		{Key: "label", Value: fmt.Sprintf("%q", fmt.Sprintf("%d bp", e.n))},
	}
}
