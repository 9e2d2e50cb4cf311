// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package align

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

var reconcileTests = []struct {
	name       string
	blocks     []Block
	contig     string
	start, end int

	want Result
}{
	{
		name:   "forward inside",
		blocks: []Block{{Contig: "c", Start: 100, End: 1100, Reference: "r", RefStart: 5000, RefEnd: 6000, Orientation: Forward}},
		contig: "c", start: 200, end: 300,
		want: Result{Mapped: []Piece{{Reference: "r", Start: 5100, End: 5200, Orientation: Forward, AsmStart: 200, AsmEnd: 300}}},
	},
	{
		name:   "reverse inside",
		blocks: []Block{{Contig: "c", Start: 100, End: 1100, Reference: "r", RefStart: 5000, RefEnd: 6000, Orientation: Reverse}},
		contig: "c", start: 200, end: 300,
		want: Result{Mapped: []Piece{{Reference: "r", Start: 5800, End: 5900, Orientation: Reverse, AsmStart: 200, AsmEnd: 300}}},
	},
	{
		name:   "overhanging both ends",
		blocks: []Block{{Contig: "c", Start: 100, End: 200, Reference: "r", RefStart: 0, RefEnd: 100, Orientation: Forward}},
		contig: "c", start: 50, end: 250,
		want: Result{
			Mapped:    []Piece{{Reference: "r", Start: 0, End: 100, Orientation: Forward, AsmStart: 100, AsmEnd: 200}},
			Unaligned: []Range{{Start: 50, End: 100}, {Start: 200, End: 250}},
		},
	},
	{
		name: "split across blocks with gap",
		blocks: []Block{
			{Contig: "c", Start: 500, End: 1000, Reference: "r2", RefStart: 0, RefEnd: 500, Orientation: Reverse},
			{Contig: "c", Start: 0, End: 400, Reference: "r1", RefStart: 1000, RefEnd: 1400, Orientation: Forward},
		},
		contig: "c", start: 300, end: 700,
		want: Result{
			Mapped: []Piece{
				{Reference: "r1", Start: 1300, End: 1400, Orientation: Forward, AsmStart: 300, AsmEnd: 400},
				{Reference: "r2", Start: 300, End: 500, Orientation: Reverse, AsmStart: 500, AsmEnd: 700},
			},
			Unaligned: []Range{{Start: 400, End: 500}},
		},
	},
	{
		name:   "no covering block",
		blocks: []Block{{Contig: "c", Start: 0, End: 100, Reference: "r", RefStart: 0, RefEnd: 100, Orientation: Forward}},
		contig: "c", start: 200, end: 300,
		want: Result{Unaligned: []Range{{Start: 200, End: 300}}},
	},
	{
		name:   "short reference side",
		blocks: []Block{{Contig: "c", Start: 0, End: 1000, Reference: "r", RefStart: 0, RefEnd: 900, Orientation: Forward}},
		contig: "c", start: 800, end: 1000,
		want: Result{
			Mapped:    []Piece{{Reference: "r", Start: 800, End: 900, Orientation: Forward, AsmStart: 800, AsmEnd: 900}},
			Unaligned: []Range{{Start: 900, End: 1000}},
		},
	},
	{
		name:   "short reference side reverse",
		blocks: []Block{{Contig: "c", Start: 0, End: 1000, Reference: "r", RefStart: 0, RefEnd: 900, Orientation: Reverse}},
		contig: "c", start: 0, end: 200,
		want: Result{
			Mapped:    []Piece{{Reference: "r", Start: 800, End: 900, Orientation: Reverse, AsmStart: 100, AsmEnd: 200}},
			Unaligned: []Range{{Start: 0, End: 100}},
		},
	},
}

func TestReconcile(t *testing.T) {
	for _, test := range reconcileTests {
		r, err := NewReconciler(test.blocks)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", test.name, err)
		}
		got, err := r.Reconcile(test.contig, test.start, test.end)
		if err != nil {
			t.Errorf("unexpected error for %q: %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("unexpected result for %q:\ngot: %+v\nwant:%+v", test.name, got, test.want)
		}
	}
}

func TestReconcileRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for k := 0; k < 500; k++ {
		n := 100 + rnd.Intn(10000)
		b := Block{
			Contig:    "contig",
			Start:     rnd.Intn(1e5),
			Reference: "ref",
			RefStart:  rnd.Intn(1e6),
		}
		b.End = b.Start + n
		b.RefEnd = b.RefStart + n
		b.Orientation = Forward
		if rnd.Intn(2) == 0 {
			b.Orientation = Reverse
		}

		s := b.Start + rnd.Intn(n)
		e := s + 1 + rnd.Intn(b.End-s)

		fwd, err := NewReconciler([]Block{b})
		if err != nil {
			t.Fatal(err)
		}
		res, err := fwd.Reconcile(b.Contig, s, e)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Mapped) != 1 || len(res.Unaligned) != 0 {
			t.Fatalf("unexpected reconciliation of %d-%d through %v: %+v", s, e, b, res)
		}
		p := res.Mapped[0]

		inv, err := NewReconciler([]Block{b.Inverse()})
		if err != nil {
			t.Fatal(err)
		}
		back, err := inv.Reconcile(p.Reference, p.Start, p.End)
		if err != nil {
			t.Fatal(err)
		}
		if len(back.Mapped) != 1 {
			t.Fatalf("unexpected inverse reconciliation: %+v", back)
		}
		q := back.Mapped[0]
		if q.Reference != b.Contig || q.Start != s || q.End != e {
			t.Errorf("round trip through %v failed: got:%s:%d-%d want:%s:%d-%d", b, q.Reference, q.Start, q.End, b.Contig, s, e)
		}
	}
}

func TestReconcileErrors(t *testing.T) {
	_, err := NewReconciler([]Block{{Contig: "c", Start: 100, End: 50, Reference: "r", RefStart: 0, RefEnd: 50, Orientation: Forward}})
	var unsupported *UnsupportedCoordinateSystemError
	if !errors.As(err, &unsupported) {
		t.Errorf("expected unsupported coordinate error for inverted block: %v", err)
	}
	_, err = NewReconciler([]Block{{Contig: "c", Start: 0, End: 50, Reference: "r", RefStart: 0, RefEnd: 50}})
	if !errors.As(err, &unsupported) {
		t.Errorf("expected unsupported coordinate error for missing orientation: %v", err)
	}

	r, err := NewReconciler([]Block{
		{Contig: "a", Start: 0, End: 100, Reference: "r", RefStart: 0, RefEnd: 100, Orientation: Forward},
		{Contig: "a", Start: 90, End: 200, Reference: "r", RefStart: 500, RefEnd: 610, Orientation: Forward},
		{Contig: "b", Start: 0, End: 100, Reference: "r", RefStart: 1000, RefEnd: 1100, Orientation: Forward},
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = r.Reconcile("a", 10, 20)
	var ambiguous *AmbiguousAlignmentError
	if !errors.As(err, &ambiguous) {
		t.Errorf("expected ambiguous alignment error: %v", err)
	}
	if len(r.Ambiguous()) != 1 {
		t.Errorf("unexpected ambiguous contigs: %v", r.Ambiguous())
	}
	_, err = r.Reconcile("b", 10, 20)
	if err != nil {
		t.Errorf("unexpected error for unambiguous contig: %v", err)
	}
	res, err := r.Reconcile("z", 10, 20)
	var missing *MissingAlignmentDataError
	if !errors.As(err, &missing) {
		t.Errorf("expected missing alignment data error: %v", err)
	}
	if len(res.Mapped) != 0 || len(res.Unaligned) != 1 {
		t.Errorf("unexpected result for missing contig: %+v", res)
	}
	if !r.HasReference("r") || r.HasReference("z") {
		t.Error("unexpected reference coverage")
	}
}
