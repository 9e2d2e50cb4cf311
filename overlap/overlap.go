// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package overlap provides threshold-parameterized overlap matching between
// two sets of half-open genomic intervals.
package overlap

import (
	"fmt"
	"sort"

	"github.com/biogo/store/interval"
)

// Interval is a half-open interval on a named sequence.
type Interval struct {
	SequenceID string
	Start, End int
}

// Len returns the length of the interval.
func (i Interval) Len() int { return i.End - i.Start }

// MatchResult is the overlap between A, an index into the first interval
// set, and B, an index into the second.
type MatchResult struct {
	A, B int

	Overlap     int
	FractionOfA float64
	FractionOfB float64
}

// Matches returns whether the overlap covers at least threshold of
// either interval.
func (m MatchResult) Matches(threshold float64) bool {
	return m.FractionOfA >= threshold || m.FractionOfB >= threshold
}

// ValidThreshold returns an error if t is not in (0, 1].
func ValidThreshold(t float64) error {
	if !(t > 0 && t <= 1) {
		return fmt.Errorf("overlap threshold must be in (0,1]: %v", t)
	}
	return nil
}

// Match returns all pairs of intervals in a and b on the same sequence
// where the overlap covers at least threshold of either interval. The
// results are ordered by A and then B. Multiple matches for an interval
// are all returned.
func Match(a, b []Interval, threshold float64) ([]MatchResult, error) {
	err := ValidThreshold(threshold)
	if err != nil {
		return nil, err
	}
	all := Overlaps(a, b)
	n := 0
	for _, m := range all {
		if m.Matches(threshold) {
			all[n] = m
			n++
		}
	}
	return all[:n], nil
}

// Overlaps returns all pairs of intervals in a and b on the same sequence
// that share at least one position, ordered by A and then B. Empty
// intervals never overlap.
func Overlaps(a, b []Interval) []MatchResult {
	trees := make(map[string]*interval.IntTree)
	for i, iv := range b {
		if iv.Len() <= 0 {
			continue
		}
		t, ok := trees[iv.SequenceID]
		if !ok {
			t = &interval.IntTree{}
			trees[iv.SequenceID] = t
		}
		err := t.Insert(element{uid: uintptr(i), Interval: iv}, true)
		if err != nil {
			// Insert only fails for inverted ranges
			// which are excluded above.
			panic(err)
		}
	}
	for _, t := range trees {
		t.AdjustRanges()
	}

	var results []MatchResult
	for i, q := range a {
		if q.Len() <= 0 {
			continue
		}
		t, ok := trees[q.SequenceID]
		if !ok {
			continue
		}
		hits := t.Get(query(q))
		sort.Slice(hits, func(i, j int) bool { return hits[i].ID() < hits[j].ID() })
		for _, h := range hits {
			e := h.(element)
			n := min(q.End, e.End) - max(q.Start, e.Start)
			results = append(results, MatchResult{
				A:           i,
				B:           int(e.uid),
				Overlap:     n,
				FractionOfA: float64(n) / float64(q.Len()),
				FractionOfB: float64(n) / float64(e.Len()),
			})
		}
	}
	return results
}

// element is an interval tree element holding an Interval and its index
// in the indexed set.
type element struct {
	uid uintptr
	Interval
}

// Overlap returns whether the half-open ranges of e and b share a position.
func (e element) Overlap(b interval.IntRange) bool {
	return b.Start < e.End && e.Start < b.End
}
func (e element) ID() uintptr { return e.uid }
func (e element) Range() interval.IntRange {
	return interval.IntRange{Start: e.Start, End: e.End}
}

// query is an interval tree query for positions shared with a half-open
// interval.
type query Interval

func (q query) Overlap(b interval.IntRange) bool {
	return b.Start < q.End && q.Start < b.End
}
