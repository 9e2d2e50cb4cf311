// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package feature converts canonical BGC records to and from GFF features.
package feature

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"

	"github.com/kortschak/bgcq/bgc"
)

// Type is the GFF feature type of a BGC.
const Type = "biosynthetic_gene_cluster"

// FromRecord returns the GFF feature for r predicted on the named input.
func FromRecord(input string, r bgc.Record) *gff.Feature {
	attr := gff.Attributes{
		{Tag: "ID", Value: r.ID},
		{Tag: "Input", Value: input},
		{Tag: "Product", Value: string(r.Product)},
	}
	if len(r.Classes) != 0 {
		classes := make([]string, len(r.Classes))
		for i, c := range r.Classes {
			classes[i] = string(c)
		}
		attr = append(attr, gff.Attribute{Tag: "Classes", Value: strings.Join(classes, ",")})
	}
	attr = append(attr,
		gff.Attribute{Tag: "Genes", Value: strconv.Itoa(r.GeneCount)},
		gff.Attribute{Tag: "Completeness", Value: r.Completeness.String()},
	)
	return &gff.Feature{
		SeqName:        r.SequenceID,
		Source:         r.Tool.String(),
		Feature:        Type,
		FeatStart:      r.Start,
		FeatEnd:        r.End,
		FeatStrand:     seq.None,
		FeatFrame:      gff.NoFrame,
		FeatAttributes: attr,
	}
}

// ToRecord returns the BGC record described by f.
func ToRecord(f *gff.Feature) (bgc.Record, error) {
	if f.Feature != Type {
		return bgc.Record{}, fmt.Errorf("feature: not a BGC feature: %q", f.Feature)
	}
	tool, err := bgc.ParseTool(f.Source)
	if err != nil {
		return bgc.Record{}, err
	}
	r := bgc.Record{
		ID:         f.FeatAttributes.Get("ID"),
		Tool:       tool,
		SequenceID: f.SeqName,
		Start:      f.FeatStart,
		End:        f.FeatEnd,
		Product:    bgc.Product(f.FeatAttributes.Get("Product")),
	}
	if !r.Product.Valid() {
		return bgc.Record{}, fmt.Errorf("feature: invalid product for %s: %q", r.ID, r.Product)
	}
	if classes := f.FeatAttributes.Get("Classes"); classes != "" {
		for _, c := range strings.Split(classes, ",") {
			r.Classes = append(r.Classes, bgc.Product(c))
		}
	}
	if genes := f.FeatAttributes.Get("Genes"); genes != "" {
		r.GeneCount, err = strconv.Atoi(genes)
		if err != nil {
			return bgc.Record{}, fmt.Errorf("feature: invalid gene count for %s: %w", r.ID, err)
		}
	}
	if c := f.FeatAttributes.Get("Completeness"); c != "" {
		err = r.Completeness.UnmarshalText([]byte(c))
		if err != nil {
			return bgc.Record{}, err
		}
	}
	return r, nil
}

// Writer writes BGC records as GFF features.
type Writer struct {
	w *gff.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: gff.NewWriter(w, 60, true)}
}

// Write writes r predicted on the named input.
func (w *Writer) Write(input string, r bgc.Record) error {
	_, err := w.w.Write(FromRecord(input, r))
	if err != nil {
		return fmt.Errorf("failed to write feature: %w", err)
	}
	return nil
}

// Read returns the BGC records in the GFF stream r. Features of other
// types are ignored.
func Read(r io.Reader) ([]bgc.Record, error) {
	sc := featio.NewScanner(gff.NewReader(r))
	var recs []bgc.Record
	for sc.Next() {
		f := sc.Feat().(*gff.Feature)
		if f.Feature != Type {
			continue
		}
		rec, err := ToRecord(f)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, sc.Error()
}
