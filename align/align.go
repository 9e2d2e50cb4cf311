// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package align maps intervals on assembly contigs into reference sequence
// coordinates using assembly to reference alignment blocks.
package align

import (
	"fmt"
	"sort"
)

// Orientation is the relative orientation of the assembly and reference
// sides of an alignment block.
type Orientation int8

const (
	Forward Orientation = 1
	Reverse Orientation = -1
)

func (o Orientation) String() string {
	switch o {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	default:
		return fmt.Sprintf("Orientation(%d)", int8(o))
	}
}

// Block maps the half-open range [Start, End) on the assembly contig
// Contig to [RefStart, RefEnd) on the reference sequence Reference.
type Block struct {
	Contig     string
	Start, End int

	Reference        string
	RefStart, RefEnd int

	Orientation Orientation
}

// Inverse returns the block mapping the reference side of b onto its
// assembly side.
func (b Block) Inverse() Block {
	return Block{
		Contig:      b.Reference,
		Start:       b.RefStart,
		End:         b.RefEnd,
		Reference:   b.Contig,
		RefStart:    b.Start,
		RefEnd:      b.End,
		Orientation: b.Orientation,
	}
}

func (b Block) String() string {
	return fmt.Sprintf("%s:%d-%d->%s:%d-%d(%v)", b.Contig, b.Start, b.End, b.Reference, b.RefStart, b.RefEnd, b.Orientation)
}

// UnsupportedCoordinateSystemError is returned when an alignment block
// cannot be interpreted as a pair of half-open ranges. It is fatal to a
// run since any classification based on the block would be wrong.
type UnsupportedCoordinateSystemError struct {
	Block  Block
	Reason string
}

func (e *UnsupportedCoordinateSystemError) Error() string {
	return fmt.Sprintf("unsupported alignment block %v: %s", e.Block, e.Reason)
}

// AmbiguousAlignmentError is returned when two alignment blocks overlap on
// the same assembly contig.
type AmbiguousAlignmentError struct {
	Contig string
	A, B   Block
}

func (e *AmbiguousAlignmentError) Error() string {
	return fmt.Sprintf("ambiguous alignment on %s: %v overlaps %v", e.Contig, e.A, e.B)
}

// MissingAlignmentDataError is returned when an assembly contig has no
// entry in the alignment data.
type MissingAlignmentDataError struct {
	Contig string
}

func (e *MissingAlignmentDataError) Error() string {
	return fmt.Sprintf("no alignment data for %s", e.Contig)
}

// Piece is a part of a reconciled interval mapped into reference space.
type Piece struct {
	Reference   string
	Start, End  int
	Orientation Orientation

	// AsmStart and AsmEnd are the bounds of the
	// assembly sub-range that was mapped.
	AsmStart, AsmEnd int
}

// Range is a half-open range on an assembly contig.
type Range struct {
	Start, End int
}

// Result is the reconciliation of one assembly interval.
type Result struct {
	// Mapped holds the reference pieces in
	// assembly coordinate order.
	Mapped []Piece

	// Unaligned holds the parts of the assembly
	// interval not covered by any block.
	Unaligned []Range
}

// Reconciler maps assembly intervals into reference coordinates. A
// Reconciler is immutable after construction and safe for concurrent use.
type Reconciler struct {
	blocks    map[string][]Block
	ambiguous map[string]*AmbiguousAlignmentError
	refs      map[string]bool
}

// NewReconciler returns a Reconciler for the given alignment blocks. An
// inverted, empty or negative block, or one with an invalid orientation,
// is reported as an *UnsupportedCoordinateSystemError. Overlapping blocks
// do not cause an error here; they are reported by Reconcile for the
// affected contig.
func NewReconciler(blocks []Block) (*Reconciler, error) {
	r := &Reconciler{
		blocks:    make(map[string][]Block),
		ambiguous: make(map[string]*AmbiguousAlignmentError),
		refs:      make(map[string]bool),
	}
	for _, b := range blocks {
		err := validate(b)
		if err != nil {
			return nil, err
		}
		r.blocks[b.Contig] = append(r.blocks[b.Contig], b)
		r.refs[b.Reference] = true
	}
	for contig, bs := range r.blocks {
		sort.SliceStable(bs, func(i, j int) bool {
			if bs[i].Start != bs[j].Start {
				return bs[i].Start < bs[j].Start
			}
			return bs[i].End < bs[j].End
		})
		for i := 1; i < len(bs); i++ {
			if bs[i].Start < bs[i-1].End {
				r.ambiguous[contig] = &AmbiguousAlignmentError{Contig: contig, A: bs[i-1], B: bs[i]}
				break
			}
		}
	}
	return r, nil
}

func validate(b Block) error {
	switch {
	case b.Start < 0 || b.RefStart < 0:
		return &UnsupportedCoordinateSystemError{Block: b, Reason: "negative coordinate"}
	case b.Start >= b.End:
		return &UnsupportedCoordinateSystemError{Block: b, Reason: "inverted or empty assembly range"}
	case b.RefStart >= b.RefEnd:
		return &UnsupportedCoordinateSystemError{Block: b, Reason: "inverted or empty reference range"}
	case b.Orientation != Forward && b.Orientation != Reverse:
		return &UnsupportedCoordinateSystemError{Block: b, Reason: "invalid orientation"}
	}
	return nil
}

// HasContig returns whether the alignment data includes the assembly contig.
func (r *Reconciler) HasContig(contig string) bool {
	_, ok := r.blocks[contig]
	return ok
}

// HasReference returns whether any alignment block maps onto the reference
// sequence.
func (r *Reconciler) HasReference(ref string) bool {
	return r.refs[ref]
}

// Ambiguous returns the ambiguous alignment errors for all contigs with
// overlapping blocks, ordered by contig name.
func (r *Reconciler) Ambiguous() []*AmbiguousAlignmentError {
	errs := make([]*AmbiguousAlignmentError, 0, len(r.ambiguous))
	for _, e := range r.ambiguous {
		errs = append(errs, e)
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Contig < errs[j].Contig })
	return errs
}

// Reconcile maps the half-open interval [start, end) on the assembly
// contig into reference coordinates. Each block intersecting the interval
// contributes one mapped piece; positions not covered by any block are
// returned as unaligned ranges. An interval on a contig without any
// covering block yields no mapped pieces.
func (r *Reconciler) Reconcile(contig string, start, end int) (Result, error) {
	if start >= end || start < 0 {
		return Result{}, fmt.Errorf("invalid query interval %s:%d-%d", contig, start, end)
	}
	bs, ok := r.blocks[contig]
	if !ok {
		return Result{Unaligned: []Range{{Start: start, End: end}}}, &MissingAlignmentDataError{Contig: contig}
	}
	if err, ok := r.ambiguous[contig]; ok {
		return Result{}, err
	}

	var res Result
	pos := start
	for _, b := range bs {
		if b.End <= start {
			continue
		}
		if b.Start >= end {
			break
		}
		s := max(start, b.Start)
		e := min(end, b.End)
		if pos < s {
			res.Unaligned = append(res.Unaligned, Range{Start: pos, End: s})
		}
		pos = e

		// The reference side of a block may be shorter
		// than the assembly side, so positions beyond its
		// end are unaligned.
		p := transform(b, s, e)
		if over := p.End - b.RefEnd; over > 0 {
			if over >= e-s {
				res.Unaligned = append(res.Unaligned, Range{Start: s, End: e})
				continue
			}
			p.End = b.RefEnd
			if b.Orientation == Forward {
				p.AsmEnd = e - over
				res.Unaligned = append(res.Unaligned, Range{Start: e - over, End: e})
			} else {
				p.AsmStart = s + over
				res.Unaligned = append(res.Unaligned, Range{Start: s, End: s + over})
			}
		}
		res.Mapped = append(res.Mapped, p)
	}
	if pos < end {
		res.Unaligned = append(res.Unaligned, Range{Start: pos, End: end})
	}
	return res, nil
}

// transform maps the sub-range [s, e) of the assembly side of b to the
// reference side by linear offset. Reverse blocks flip the sub-range
// within the block before offsetting.
func transform(b Block, s, e int) Piece {
	p := Piece{Reference: b.Reference, Orientation: b.Orientation, AsmStart: s, AsmEnd: e}
	switch b.Orientation {
	case Forward:
		p.Start = b.RefStart + (s - b.Start)
		p.End = b.RefStart + (e - b.Start)
	case Reverse:
		p.Start = b.RefStart + (b.End - e)
		p.End = b.RefStart + (b.End - s)
	default:
		panic("align: invalid orientation")
	}
	return p
}
