// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recovery classifies how well the BGCs predicted on a reference
// genome are recovered by the BGCs predicted on an assembly of the same
// organism.
package recovery

import (
	"errors"
	"fmt"
	"sort"

	"github.com/biogo/store/step"

	"github.com/kortschak/bgcq/align"
	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/overlap"
)

// Status is the recovery status of a reference BGC.
type Status int8

const (
	Missed Status = iota
	Partial
	Full
)

func (s Status) String() string {
	switch s {
	case Missed:
		return "missed"
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("Status(%d)", int8(s))
	}
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// NoAlignment is the note attached to a reference BGC on a sequence that
// has no alignment data.
const NoAlignment = "reference sequence absent from alignment data"

// Intersection is the part of a mapped assembly BGC that overlaps a
// reference BGC, in reference coordinates.
type Intersection struct {
	// Assembly is the index of the assembly BGC
	// in the classified assembly set.
	Assembly int

	Start, End  int
	Orientation align.Orientation
}

// Reference is a classified reference BGC.
type Reference struct {
	bgc.Record

	Status   Status
	Coverage float64

	// Fragmented is true for a fully recovered BGC
	// that is not recovered to the threshold by any
	// single assembly BGC.
	Fragmented bool `json:",omitempty"`

	Intersections []Intersection `json:",omitempty"`

	Note string `json:",omitempty"`
}

// Assembly is a classified assembly BGC.
type Assembly struct {
	bgc.Record

	Mapped    []align.Piece `json:",omitempty"`
	Unaligned []align.Range `json:",omitempty"`

	// Attributed is the index of the reference BGC
	// the assembly BGC is attributed to, or -1.
	Attributed int
}

// Aligned returns whether any part of the BGC maps to the reference.
func (a Assembly) Aligned() bool { return len(a.Mapped) != 0 }

// Result is the classification of one assembly against the reference.
type Result struct {
	References []Reference
	Assemblies []Assembly

	// Warnings holds the per-contig errors recovered
	// from during classification.
	Warnings []error `json:"-"`
}

// Counts returns the number of reference BGCs with each status.
func (r Result) Counts() (full, partial, missed int) {
	for _, ref := range r.References {
		switch ref.Status {
		case Full:
			full++
		case Partial:
			partial++
		case Missed:
			missed++
		}
	}
	return full, partial, missed
}

// Classify classifies the reference BGCs in ref by their recovery in the
// assembly BGCs in asm, using rec to map assembly coordinates into
// reference coordinates. A reference BGC is Full when the union of mapped
// assembly BGCs covers at least threshold of its length, Partial when it
// is covered less than that, and Missed when it is not covered at all.
//
// Missing and ambiguous alignment data for an assembly contig are recovered
// from; the BGCs on the contig are left unaligned and the errors are
// returned in the Result's Warnings.
func Classify(ref, asm []bgc.Record, rec *align.Reconciler, threshold float64) (Result, error) {
	err := overlap.ValidThreshold(threshold)
	if err != nil {
		return Result{}, err
	}

	var (
		res    Result
		pieces []overlap.Interval
		owner  []int
		orient []align.Orientation
		warned = make(map[string]bool)
	)
	res.Assemblies = make([]Assembly, len(asm))
	for i, a := range asm {
		res.Assemblies[i] = Assembly{Record: a, Attributed: -1}
		m, err := rec.Reconcile(a.SequenceID, a.Start, a.End)
		if err != nil {
			var (
				missing   *align.MissingAlignmentDataError
				ambiguous *align.AmbiguousAlignmentError
			)
			switch {
			case errors.As(err, &missing), errors.As(err, &ambiguous):
				if !warned[a.SequenceID] {
					res.Warnings = append(res.Warnings, err)
					warned[a.SequenceID] = true
				}
				res.Assemblies[i].Unaligned = []align.Range{{Start: a.Start, End: a.End}}
				continue
			default:
				return Result{}, fmt.Errorf("%s: %w", a, err)
			}
		}
		res.Assemblies[i].Mapped = m.Mapped
		res.Assemblies[i].Unaligned = m.Unaligned
		for _, p := range m.Mapped {
			pieces = append(pieces, overlap.Interval{SequenceID: p.Reference, Start: p.Start, End: p.End})
			owner = append(owner, i)
			orient = append(orient, p.Orientation)
		}
	}

	refs := make([]overlap.Interval, len(ref))
	for j, r := range ref {
		refs[j] = overlap.Interval{SequenceID: r.SequenceID, Start: r.Start, End: r.End}
	}
	hits := overlap.Overlaps(pieces, refs)

	byRef := make([][]overlap.MatchResult, len(ref))
	for _, h := range hits {
		byRef[h.B] = append(byRef[h.B], h)
	}

	res.References = make([]Reference, len(ref))
	for j, r := range ref {
		c := Reference{Record: r}
		if !rec.HasReference(r.SequenceID) {
			c.Note = NoAlignment
		}
		for _, h := range byRef[j] {
			p := pieces[h.A]
			c.Intersections = append(c.Intersections, Intersection{
				Assembly:    owner[h.A],
				Start:       max(p.Start, r.Start),
				End:         min(p.End, r.End),
				Orientation: orient[h.A],
			})
		}
		sort.SliceStable(c.Intersections, func(i, j int) bool {
			return c.Intersections[i].Start < c.Intersections[j].Start
		})

		c.Coverage, err = coverage(r, c.Intersections, func(int) bool { return true })
		if err != nil {
			return Result{}, err
		}
		switch {
		case c.Coverage >= threshold:
			c.Status = Full
			c.Fragmented = true
			for _, a := range assemblies(c.Intersections) {
				single, err := coverage(r, c.Intersections, func(i int) bool { return i == a })
				if err != nil {
					return Result{}, err
				}
				if single >= threshold {
					c.Fragmented = false
					break
				}
			}
		case c.Coverage > 0:
			c.Status = Partial
		default:
			c.Status = Missed
		}
		res.References[j] = c
	}

	attribute(res.Assemblies, hits, owner)

	return res, nil
}

// covered is a step vector element marking reference positions covered by
// a mapped assembly BGC.
type covered bool

func (c covered) Equal(e step.Equaler) bool { return c == e.(covered) }

// coverage returns the fraction of r covered by the union of the
// intersections whose assembly index satisfies use.
func coverage(r bgc.Record, isect []Intersection, use func(int) bool) (float64, error) {
	if len(isect) == 0 {
		return 0, nil
	}
	v, err := step.New(r.Start, r.End, covered(false))
	if err != nil {
		return 0, err
	}
	for _, x := range isect {
		if !use(x.Assembly) || x.Start >= x.End {
			continue
		}
		err = v.ApplyRange(x.Start, x.End, func(step.Equaler) step.Equaler { return covered(true) })
		if err != nil {
			return 0, err
		}
	}
	var n int
	v.Do(func(start, end int, e step.Equaler) {
		if e.(covered) {
			n += end - start
		}
	})
	return float64(n) / float64(r.Len()), nil
}

// assemblies returns the distinct assembly indices in isect.
func assemblies(isect []Intersection) []int {
	seen := make(map[int]bool)
	var idx []int
	for _, x := range isect {
		if !seen[x.Assembly] {
			seen[x.Assembly] = true
			idx = append(idx, x.Assembly)
		}
	}
	sort.Ints(idx)
	return idx
}

// attribute assigns each assembly BGC to the reference BGC it overlaps
// most, breaking ties by reference order.
func attribute(asm []Assembly, hits []overlap.MatchResult, owner []int) {
	total := make([]map[int]int, len(asm))
	for _, h := range hits {
		a := owner[h.A]
		if total[a] == nil {
			total[a] = make(map[int]int)
		}
		total[a][h.B] += h.Overlap
	}
	for i, t := range total {
		best, bestLen := -1, 0
		for ref, n := range t {
			if n > bestLen || (n == bestLen && ref < best) {
				best, bestLen = ref, n
			}
		}
		asm[i].Attributed = best
	}
}
