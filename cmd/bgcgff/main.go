// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// bgcgff is a tool to convert genome mining tool output to GFF. Each BGC is
// written as a biosynthetic_gene_cluster feature with its canonical product
// class, gene count and completeness as attributes.
//
// If the cull flag is given, BGCs completely contained within a longer BGC
// of the same input are discarded.
//
// usage: bgcgff [-cull] [-products mapping.toml] <mining results>... > out.gff
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/biogo/store/interval"
	"go.uber.org/zap"

	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/internal/feature"
	"github.com/kortschak/bgcq/internal/logger"
	"github.com/kortschak/bgcq/mining"
)

func main() {
	cull := flag.Bool("cull", false, "specify to discard BGCs contained in a longer BGC")
	products := flag.String("products", "", "specify a product mapping TOML file")
	minLength := flag.Int("min-length", 0, "specify the minimum BGC length")
	edge := flag.Int("edge-distance", 0, "specify the distance from a sequence end within which a BGC is incomplete")
	verbose := flag.Bool("verbose", false, "specify verbose logging")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, `usage: bgcgff [options] <mining results>... > out.gff`)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Level(*verbose))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to make logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	b := bgc.Builder{MinLength: *minLength, EdgeDistance: max(*edge, 0)}
	if *products != "" {
		b.Mapping, err = bgc.ReadMapping(*products)
		if err != nil {
			log.Fatal("failed to read product mapping", zap.Error(err))
		}
	}

	out := bufio.NewWriter(os.Stdout)
	w := feature.NewWriter(out)
	for _, path := range flag.Args() {
		res, err := mining.ReadFile(path)
		if err != nil {
			log.Fatal("failed to read mining result", zap.Error(err))
		}
		b.Lengths = res.Lengths
		recs, warnings := b.Build(res.Raw)
		for _, warn := range warnings {
			log.Warn("skipped record", zap.String("path", path), zap.Error(warn))
		}
		if *cull {
			n := len(recs)
			recs = cullContained(recs)
			log.Debug("culled contained BGCs", zap.String("path", path), zap.Int("culled", n-len(recs)), zap.Int("bgcs", n))
		}
		for _, r := range recs {
			err = w.Write(res.Label, r)
			if err != nil {
				log.Fatal("failed to write GFF", zap.Error(err))
			}
		}
	}
	err = out.Flush()
	if err != nil {
		log.Fatal("failed to write GFF", zap.Error(err))
	}
}

// cullContained returns a copy of recs with all BGCs that are completely
// contained by a longer BGC on the same sequence removed. Of identical
// intervals, the first is retained.
func cullContained(recs []bgc.Record) []bgc.Record {
	trees := make(map[string]*interval.IntTree)
	for i, r := range recs {
		t, ok := trees[r.SequenceID]
		if !ok {
			t = &interval.IntTree{}
			trees[r.SequenceID] = t
		}
		err := t.Insert(bgcInterval{uid: uintptr(i), Record: r}, true)
		if err != nil {
			panic(err)
		}
	}
	for _, t := range trees {
		t.AdjustRanges()
	}
	var culled []bgc.Record
outer:
	for i, r := range recs {
		o := trees[r.SequenceID].Get(bgcInterval{uid: uintptr(i), Record: r})
		for _, h := range o {
			c := h.(bgcInterval)
			if c.Len() > r.Len() || (c.Len() == r.Len() && c.uid < uintptr(i)) {
				continue outer
			}
		}
		culled = append(culled, r)
	}
	return culled
}

type bgcInterval struct {
	uid uintptr
	bgc.Record
}

// Overlap returns whether the b interval completely contains i.
func (i bgcInterval) Overlap(b interval.IntRange) bool {
	return b.Start <= i.Start && i.End <= b.End
}
func (i bgcInterval) ID() uintptr { return i.uid }
func (i bgcInterval) Range() interval.IntRange {
	return interval.IntRange{Start: i.Start, End: i.End}
}
