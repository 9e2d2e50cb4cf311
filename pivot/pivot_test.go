// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pivot

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/kortschak/bgcq/bgc"
)

func item(p bgc.Product, c bgc.Completeness, length, genes int, class string) Item {
	return Item{
		Record: bgc.Record{SequenceID: "s", Start: 0, End: length, Product: p, Completeness: c, GeneCount: genes},
		Class:  class,
	}
}

func find(t *testing.T, tab Table, label string) Row {
	t.Helper()
	for _, r := range tab.Rows {
		if r.Label == label {
			return r
		}
	}
	t.Fatalf("no row %q", label)
	return Row{}
}

func TestAggregate(t *testing.T) {
	cols := []Column{
		{Name: "a", Items: []Item{
			item(bgc.NRPS, bgc.Complete, 100, 2, ""),
			item(bgc.NRPS, bgc.Incomplete, 300, 4, ""),
			item(bgc.Terpene, bgc.Complete, 200, 6, ""),
		}},
		{Name: "b", Items: []Item{
			item(bgc.Terpene, bgc.Complete, 400, 1, ""),
		}},
		{Name: "empty"},
	}
	tab := Aggregate(cols)
	if !reflect.DeepEqual(tab.Columns, []string{"a", "b", "empty"}) {
		t.Errorf("unexpected columns: %v", tab.Columns)
	}

	tests := []struct {
		label string
		want  []float64
	}{
		{label: "# BGCs", want: []float64{3, 1, 0}},
		{label: "Mean BGC length", want: []float64{200, 400, 0}},
		{label: "Mean genes per BGC", want: []float64{4, 1, 0}},
		{label: "# BGCs (NRPS)", want: []float64{2, 0, 0}},
		{label: "# BGCs (Complete)", want: []float64{2, 1, 0}},
		{label: "Mean BGC length (Terpene, Complete)", want: []float64{200, 400, 0}},
		{label: "# BGCs (NRPS, Incomplete)", want: []float64{1, 0, 0}},
	}
	for _, test := range tests {
		got := find(t, tab, test.label)
		if !reflect.DeepEqual(got.Values, test.want) {
			t.Errorf("unexpected values for %q: got:%v want:%v", test.label, got.Values, test.want)
		}
	}

	for _, r := range tab.Rows {
		if r.Product == bgc.PKS || (r.Grouping == ByCompleteness && *r.Completeness == bgc.Unknown) {
			t.Errorf("unexpected row for absent group: %+v", r)
		}
	}
	if tab.Rows[0].Grouping != Total || tab.Rows[0].Metric != Count {
		t.Errorf("unexpected first row: %+v", tab.Rows[0])
	}
}

func TestAggregateClasses(t *testing.T) {
	cols := []Column{{Name: "asm", Items: []Item{
		item(bgc.PKS, bgc.Complete, 100, 1, "partial"),
		item(bgc.PKS, bgc.Complete, 300, 1, "full"),
		item(bgc.RiPP, bgc.Incomplete, 500, 1, "full"),
	}}}
	tab := Aggregate(cols)

	want := []string{"", "full", "partial"}
	var classes []string
	for _, r := range tab.Rows {
		if len(classes) == 0 || classes[len(classes)-1] != r.Class {
			classes = append(classes, r.Class)
		}
	}
	if !reflect.DeepEqual(classes, want) {
		t.Errorf("unexpected class order: got:%q want:%q", classes, want)
	}

	got := find(t, tab, "# BGCs (full, PKS)")
	if got.Values[0] != 1 {
		t.Errorf("unexpected count: %v", got.Values)
	}
	got = find(t, tab, "Mean BGC length (full)")
	if got.Values[0] != 400 {
		t.Errorf("unexpected mean length: %v", got.Values)
	}
}

func TestAggregateEmpty(t *testing.T) {
	tab := Aggregate(nil)
	if len(tab.Rows) != len(Metrics) {
		t.Fatalf("unexpected rows for empty input: %+v", tab.Rows)
	}
	for _, r := range tab.Rows {
		if r.Grouping != Total || len(r.Values) != 0 {
			t.Errorf("unexpected row for empty input: %+v", r)
		}
	}
}

func TestAggregateClassified(t *testing.T) {
	cols := []Column{
		{Name: "ref", Items: []Item{
			item(bgc.NRPS, bgc.Complete, 4000, 10, ""),
			item(bgc.Terpene, bgc.Complete, 2000, 4, ""),
		}},
		{
			Name: "asm",
			Items: []Item{
				item(bgc.NRPS, bgc.Complete, 3000, 8, ""),
				item(bgc.NRPS, bgc.Incomplete, 100, 1, ""),
				item(bgc.PKS, bgc.Incomplete, 200, 3, ""),
			},
			Classified: []Item{
				item(bgc.NRPS, bgc.Complete, 4000, 10, "full"),
				item(bgc.Terpene, bgc.Complete, 2000, 4, "missed"),
				item(bgc.Terpene, bgc.Complete, 2000, 4, ""),
			},
		},
	}
	tab := Aggregate(cols)

	tests := []struct {
		label string
		want  []float64
	}{
		{label: "# BGCs", want: []float64{2, 3}},
		{label: "Mean BGC length", want: []float64{3000, 1100}},
		{label: "Mean genes per BGC", want: []float64{7, 4}},
		{label: "# BGCs (Terpene)", want: []float64{1, 0}},
		{label: "# BGCs (PKS)", want: []float64{0, 1}},
		{label: "# BGCs (full)", want: []float64{0, 1}},
		{label: "Mean BGC length (full)", want: []float64{0, 4000}},
		{label: "# BGCs (missed, Terpene)", want: []float64{0, 1}},
	}
	for _, test := range tests {
		got := find(t, tab, test.label)
		if !reflect.DeepEqual(got.Values, test.want) {
			t.Errorf("unexpected values for %q: got:%v want:%v", test.label, got.Values, test.want)
		}
	}
}

func TestRowCompleteness(t *testing.T) {
	tab := Aggregate([]Column{{Name: "a", Items: []Item{
		item(bgc.NRPS, bgc.Unknown, 100, 2, ""),
	}}})
	for _, r := range tab.Rows {
		hasCompleteness := r.Grouping == ByCompleteness || r.Grouping == ByProductCompleteness
		if (r.Completeness != nil) != hasCompleteness {
			t.Errorf("unexpected completeness for %s row %q: %v", r.Grouping, r.Label, r.Completeness)
		}
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("unexpected error marshaling %q: %v", r.Label, err)
		}
		if got := strings.Contains(string(b), `"Completeness":"Unknown"`); got != hasCompleteness {
			t.Errorf("unexpected completeness in JSON for %s row %q: %s", r.Grouping, r.Label, b)
		}
	}
}
