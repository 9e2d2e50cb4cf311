// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgc

import "fmt"

// MalformedRecordError is returned for a raw prediction with invalid
// coordinates. The record is not included in the build output.
type MalformedRecordError struct {
	Raw    Raw
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q on %s [%d,%d): %s",
		e.Raw.Tool, e.Raw.ID, e.Raw.SequenceID, e.Raw.Start, e.Raw.End, e.Reason)
}

// Builder converts raw predictions into canonical records.
type Builder struct {
	// Mapping is the product mapping. If nil, the
	// built-in mapping is used.
	Mapping *Mapping

	// MinLength is the minimum length of a retained BGC.
	MinLength int

	// EdgeDistance is the distance from a sequence end
	// within which a BGC boundary makes it incomplete.
	EdgeDistance int

	// Lengths is the sequence length table. If Lengths
	// is nil, completeness is Unknown for all records.
	Lengths map[string]int
}

// Build returns the canonical records for raw. Malformed records are
// skipped and returned as warnings, each a *MalformedRecordError.
func (b Builder) Build(raw []Raw) (recs []Record, warnings []error) {
	m := b.Mapping
	if m == nil {
		m = DefaultMapping()
	}
	for _, r := range raw {
		switch {
		case r.Start < 0 || r.End < 0:
			warnings = append(warnings, &MalformedRecordError{Raw: r, Reason: "negative coordinate"})
			continue
		case r.Start >= r.End:
			warnings = append(warnings, &MalformedRecordError{Raw: r, Reason: "start not before end"})
			continue
		case r.GeneCount < 0:
			warnings = append(warnings, &MalformedRecordError{Raw: r, Reason: "negative gene count"})
			continue
		}
		if r.End-r.Start < b.MinLength {
			continue
		}
		p, classes := m.Canonical(r.Tool, r.Products)
		recs = append(recs, Record{
			ID:           r.ID,
			Tool:         r.Tool,
			SequenceID:   r.SequenceID,
			Start:        r.Start,
			End:          r.End,
			Product:      p,
			Classes:      classes,
			GeneCount:    r.GeneCount,
			Completeness: b.completeness(r),
		})
	}
	return recs, warnings
}

func (b Builder) completeness(r Raw) Completeness {
	if b.Lengths == nil {
		return Unknown
	}
	n, ok := b.Lengths[r.SequenceID]
	if !ok {
		return Unknown
	}
	return Classify(r.Start, r.End, n, b.EdgeDistance)
}

// Classify returns the completeness of the interval [start, end) on a
// sequence of the given length. The interval is Incomplete if either
// boundary lies within edge of the sequence ends, including touching
// them.
func Classify(start, end, length, edge int) Completeness {
	if start <= edge || length-end <= edge {
		return Incomplete
	}
	return Complete
}
