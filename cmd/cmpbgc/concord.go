// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"sort"

	"github.com/biogo/store/step"

	"github.com/kortschak/bgcq/bgc"
)

// summary is the per-base concordance of two BGC sets.
type summary struct {
	Agree    int `json:"agree"`
	AMissing int `json:"a-missing"`
	BMissing int `json:"b-missing"`
	Mismatch int `json:"mismatch"`
}

// names is a pair of annotation values.
type names struct {
	a, b string
}

// pair is a step vector element holding the annotation of a base in each
// BGC set, taken from the longest covering BGC.
type pair struct {
	names

	aLen int
	bLen int
}

func (p pair) isZero() bool {
	return p.names == names{}
}

// Equal compares the lengths as well as the annotations so that adjacent
// steps covered by different BGCs are not merged.
func (p pair) Equal(e step.Equaler) bool {
	return p == e.(pair)
}

// concord returns the per-base concordance of the annotations of the BGCs
// in a and b given by the annotate function, and the number of bases for
// each discordant annotation pair. A base covered by more than one BGC in
// a set takes the annotation of the longest.
func concord(a, b []bgc.Record, annotate func(bgc.Record) string) (summary, map[names]int, error) {
	vecs := make(map[string]*step.Vector)
	apply := func(recs []bgc.Record, isA bool) error {
		for _, r := range recs {
			v, ok := vecs[r.SequenceID]
			if !ok {
				var err error
				v, err = step.New(0, 1, pair{})
				if err != nil {
					return err
				}
				v.Relaxed = true
				vecs[r.SequenceID] = v
			}
			val := annotate(r)
			n := r.Len()
			err := v.ApplyRange(r.Start, r.End, func(e step.Equaler) step.Equaler {
				p := e.(pair)
				switch {
				case isA && n > p.aLen:
					p.a, p.aLen = val, n
				case !isA && n > p.bLen:
					p.b, p.bLen = val, n
				}
				return p
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
	err := apply(a, true)
	if err != nil {
		return summary{}, nil, err
	}
	err = apply(b, false)
	if err != nil {
		return summary{}, nil, err
	}

	seqs := make([]string, 0, len(vecs))
	for s := range vecs {
		seqs = append(seqs, s)
	}
	sort.Strings(seqs)

	var s summary
	mismatches := make(map[names]int)
	for _, seq := range seqs {
		vecs[seq].Do(func(start, end int, e step.Equaler) {
			p := e.(pair)
			if p.isZero() {
				return
			}
			n := end - start
			switch {
			case p.a == p.b:
				s.Agree += n
			case p.a == "":
				s.AMissing += n
				mismatches[names{b: p.b}] += n
			case p.b == "":
				s.BMissing += n
				mismatches[names{a: p.a}] += n
			default:
				s.Mismatch += n
				mismatches[p.names] += n
			}
		})
	}
	return s, mismatches, nil
}
