// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package venn compares sets of BGC predictions made on the same sequences
// by different tools or runs.
package venn

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/overlap"
)

// Run is a named set of BGC predictions.
type Run struct {
	Label   string
	Tool    bgc.Tool
	Records []bgc.Record
}

// Counts holds the number of BGCs in a run that are matched by no BGC and
// by at least one BGC in another run.
type Counts struct {
	Unique    int `json:"unique"`
	NonUnique int `json:"non_unique"`
}

// Table is a directional pairwise comparison table. Table[a][b] holds the
// counts for the BGCs of run a when compared against run b.
type Table map[string]map[string]Counts

// Result is the outcome of a comparison of a set of runs.
type Result struct {
	// Pairwise holds the directional
	// pairwise comparisons.
	Pairwise Table `json:"pairwise"`

	// Totals holds the counts for each run compared
	// against all runs made by a different tool.
	Totals map[string]Counts `json:"totals"`

	// Unique marks the BGCs of each run that are
	// not matched by any run of a different tool.
	Unique map[string][]bool `json:"-"`
}

// pair is the result of comparing two runs. matchedA[i] is true when the
// ith BGC of run a matched a BGC of run b, and similarly for matchedB.
type pair struct {
	a, b     int
	matchedA []bool
	matchedB []bool
}

// Compare compares every unordered pair of runs, using threshold as the
// overlap threshold for a match. Pairs are compared concurrently by up to
// threads workers. Run labels must be distinct.
func Compare(ctx context.Context, runs []Run, threshold float64, threads int) (Result, error) {
	err := overlap.ValidThreshold(threshold)
	if err != nil {
		return Result{}, err
	}
	seen := make(map[string]bool)
	for _, r := range runs {
		if seen[r.Label] {
			return Result{}, fmt.Errorf("duplicate run label: %q", r.Label)
		}
		seen[r.Label] = true
	}

	ivs := make([][]overlap.Interval, len(runs))
	for i, r := range runs {
		ivs[i] = intervals(r.Records)
	}

	var pairs []*pair
	for i := range runs {
		for j := i + 1; j < len(runs); j++ {
			pairs = append(pairs, &pair{a: i, b: j})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(threads, 1))
	for _, p := range pairs {
		p := p
		g.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			p.matchedA, err = matched(ivs[p.a], ivs[p.b], threshold)
			if err != nil {
				return err
			}
			p.matchedB, err = matched(ivs[p.b], ivs[p.a], threshold)
			return err
		})
	}
	err = g.Wait()
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Pairwise: make(Table),
		Totals:   make(map[string]Counts),
		Unique:   make(map[string][]bool),
	}
	for i, r := range runs {
		res.Pairwise[r.Label] = make(map[string]Counts)
		u := make([]bool, len(r.Records))
		for k := range u {
			u[k] = true
		}
		res.Unique[runs[i].Label] = u
	}
	for _, p := range pairs {
		a, b := runs[p.a], runs[p.b]
		res.Pairwise[a.Label][b.Label] = count(p.matchedA)
		res.Pairwise[b.Label][a.Label] = count(p.matchedB)
		if a.Tool == b.Tool {
			continue
		}
		unmark(res.Unique[a.Label], p.matchedA)
		unmark(res.Unique[b.Label], p.matchedB)
	}
	for label, u := range res.Unique {
		var c Counts
		for _, ok := range u {
			if ok {
				c.Unique++
			} else {
				c.NonUnique++
			}
		}
		res.Totals[label] = c
	}
	return res, nil
}

func intervals(recs []bgc.Record) []overlap.Interval {
	ivs := make([]overlap.Interval, len(recs))
	for i, r := range recs {
		ivs[i] = overlap.Interval{SequenceID: r.SequenceID, Start: r.Start, End: r.End}
	}
	return ivs
}

// matched returns which intervals of a match an interval of b.
func matched(a, b []overlap.Interval, threshold float64) ([]bool, error) {
	m, err := overlap.Match(a, b, threshold)
	if err != nil {
		return nil, err
	}
	ok := make([]bool, len(a))
	for _, r := range m {
		ok[r.A] = true
	}
	return ok, nil
}

func count(matched []bool) Counts {
	var c Counts
	for _, ok := range matched {
		if ok {
			c.NonUnique++
		} else {
			c.Unique++
		}
	}
	return c
}

// unmark marks as not unique every BGC that matched.
func unmark(unique, matched []bool) {
	for i, ok := range matched {
		if ok {
			unique[i] = false
		}
	}
}

// Labels returns the run labels in the table in sorted order.
func (t Table) Labels() []string {
	labels := make([]string, 0, len(t))
	for l := range t {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
