// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pivot aggregates sets of BGC records into summary tables.
package pivot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kortschak/bgcq/bgc"
)

// Metric is a summary statistic of a group of BGCs.
type Metric int8

const (
	Count Metric = iota
	MeanLength
	MeanGeneCount
)

// Metrics is the list of metrics in row order.
var Metrics = []Metric{Count, MeanLength, MeanGeneCount}

func (m Metric) String() string {
	switch m {
	case Count:
		return "# BGCs"
	case MeanLength:
		return "Mean BGC length"
	case MeanGeneCount:
		return "Mean genes per BGC"
	default:
		return fmt.Sprintf("Metric(%d)", int8(m))
	}
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (m Metric) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Grouping is the set of record attributes a row is grouped by.
type Grouping int8

const (
	Total Grouping = iota
	ByProduct
	ByCompleteness
	ByProductCompleteness
)

func (g Grouping) String() string {
	switch g {
	case Total:
		return "total"
	case ByProduct:
		return "product"
	case ByCompleteness:
		return "completeness"
	case ByProductCompleteness:
		return "product,completeness"
	default:
		return fmt.Sprintf("Grouping(%d)", int8(g))
	}
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (g Grouping) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// Item is a record with an optional classification, such as a recovery
// status.
type Item struct {
	bgc.Record
	Class string
}

// Column is a named set of items. Each column is aggregated into one value
// per row.
//
// Items are counted in the unclassified rows and, when classified, in the
// rows of their class. Classified items are counted only in the rows of
// their class; unclassified Classified items are ignored.
type Column struct {
	Name       string
	Items      []Item
	Classified []Item
}

// Row is an aggregated metric over the items of each column that fall in
// a group. Product is only set for ByProduct and ByProductCompleteness
// rows, and Completeness only for ByCompleteness and ByProductCompleteness
// rows.
type Row struct {
	Label        string
	Metric       Metric
	Class        string            `json:",omitempty"`
	Grouping     Grouping
	Product      bgc.Product       `json:",omitempty"`
	Completeness *bgc.Completeness `json:",omitempty"`
	Values       []float64
}

// Table is an aggregated table with one value per column in each row.
type Table struct {
	Columns []string
	Rows    []Row
}

// group is a row key.
type group struct {
	class        string
	grouping     Grouping
	product      bgc.Product
	completeness bgc.Completeness
}

func (g group) label(m Metric) string {
	var q []string
	if g.class != "" {
		q = append(q, g.class)
	}
	switch g.grouping {
	case ByProduct:
		q = append(q, string(g.product))
	case ByCompleteness:
		q = append(q, g.completeness.String())
	case ByProductCompleteness:
		q = append(q, string(g.product), g.completeness.String())
	}
	if len(q) == 0 {
		return m.String()
	}
	return fmt.Sprintf("%s (%s)", m, strings.Join(q, ", "))
}

// keys returns the groups the item belongs to within the given class.
func keys(class string, it Item) []group {
	return []group{
		{class: class, grouping: Total},
		{class: class, grouping: ByProduct, product: it.Product},
		{class: class, grouping: ByCompleteness, completeness: it.Completeness},
		{class: class, grouping: ByProductCompleteness, product: it.Product, completeness: it.Completeness},
	}
}

type stats struct {
	n, length, genes int
}

// Aggregate returns the summary table of the given columns. Rows are
// emitted for all items and then again for each distinct item class in
// sorted order. Within a class, the total group is always present, and
// other groups are present when at least one column has an item in the
// group. Mean values of empty groups are zero.
func Aggregate(cols []Column) Table {
	tab := Table{Columns: make([]string, len(cols))}
	acc := make(map[group][]stats)
	classSet := make(map[string]bool)
	add := func(g group, col int, it Item) {
		s, ok := acc[g]
		if !ok {
			s = make([]stats, len(cols))
			acc[g] = s
		}
		s[col].n++
		s[col].length += it.Len()
		s[col].genes += it.GeneCount
	}
	for i, c := range cols {
		tab.Columns[i] = c.Name
		for _, it := range c.Items {
			for _, g := range keys("", it) {
				add(g, i, it)
			}
			if it.Class != "" {
				classSet[it.Class] = true
				for _, g := range keys(it.Class, it) {
					add(g, i, it)
				}
			}
		}
		for _, it := range c.Classified {
			if it.Class == "" {
				continue
			}
			classSet[it.Class] = true
			for _, g := range keys(it.Class, it) {
				add(g, i, it)
			}
		}
	}

	classes := []string{""}
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes[1:])

	for _, class := range classes {
		for _, g := range ordered(class) {
			s, ok := acc[g]
			if !ok {
				if g.grouping != Total {
					continue
				}
				s = make([]stats, len(cols))
			}
			var completeness *bgc.Completeness
			if g.grouping == ByCompleteness || g.grouping == ByProductCompleteness {
				c := g.completeness
				completeness = &c
			}
			for _, m := range Metrics {
				r := Row{
					Label:        g.label(m),
					Metric:       m,
					Class:        class,
					Grouping:     g.grouping,
					Product:      g.product,
					Completeness: completeness,
					Values:       make([]float64, len(cols)),
				}
				for i, st := range s {
					r.Values[i] = st.value(m)
				}
				tab.Rows = append(tab.Rows, r)
			}
		}
	}
	return tab
}

// ordered returns all possible groups for a class in row order.
func ordered(class string) []group {
	g := []group{{class: class, grouping: Total}}
	for _, p := range bgc.Products {
		g = append(g, group{class: class, grouping: ByProduct, product: p})
	}
	for _, c := range bgc.Completenesses {
		g = append(g, group{class: class, grouping: ByCompleteness, completeness: c})
	}
	for _, p := range bgc.Products {
		for _, c := range bgc.Completenesses {
			g = append(g, group{class: class, grouping: ByProductCompleteness, product: p, completeness: c})
		}
	}
	return g
}

func (s stats) value(m Metric) float64 {
	switch m {
	case Count:
		return float64(s.n)
	case MeanLength:
		if s.n == 0 {
			return 0
		}
		return float64(s.length) / float64(s.n)
	case MeanGeneCount:
		if s.n == 0 {
			return 0
		}
		return float64(s.genes) / float64(s.n)
	default:
		panic(fmt.Sprintf("pivot: invalid metric: %d", m))
	}
}
