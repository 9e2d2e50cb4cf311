// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mining

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kortschak/bgcq/bgc"
)

// antiSMASH is the antiSMASH JSON parser. BGCs are the region features of
// each record.
type antiSMASH struct{}

func (antiSMASH) Tool() bgc.Tool { return bgc.AntiSMASH }

type antiSMASHRecord struct {
	ID  string `json:"id"`
	Seq struct {
		Data string `json:"data"`
	} `json:"seq"`
	Features []antiSMASHFeature `json:"features"`
}

type antiSMASHFeature struct {
	Type       string `json:"type"`
	Location   string `json:"location"`
	Qualifiers struct {
		Product      []string `json:"product"`
		RegionNumber []string `json:"region_number"`
	} `json:"qualifiers"`
}

func (antiSMASH) Parse(data []byte) ([]bgc.Raw, map[string]int, error) {
	if !isJSON(data) {
		return nil, nil, errNotFormat
	}
	var top struct {
		Records json.RawMessage `json:"records"`
	}
	err := json.Unmarshal(data, &top)
	if err != nil || !bytes.HasPrefix(bytes.TrimSpace(top.Records), []byte("[")) {
		return nil, nil, errNotFormat
	}
	var recs []antiSMASHRecord
	err = json.Unmarshal(top.Records, &recs)
	if err != nil {
		return nil, nil, err
	}

	var (
		raw     []bgc.Raw
		lengths map[string]int
	)
	for _, r := range recs {
		if r.Seq.Data != "" {
			if lengths == nil {
				lengths = make(map[string]int)
			}
			lengths[r.ID] = len(r.Seq.Data)
		}
		var n int
		for _, f := range r.Features {
			if f.Type != "region" {
				continue
			}
			n++
			start, end, err := parseLocation(f.Location)
			if err != nil {
				return nil, nil, fmt.Errorf("region in %s: %w", r.ID, err)
			}
			num := strconv.Itoa(n)
			if len(f.Qualifiers.RegionNumber) != 0 {
				num = f.Qualifiers.RegionNumber[0]
			}
			raw = append(raw, bgc.Raw{
				Tool:       bgc.AntiSMASH,
				ID:         r.ID + "." + num,
				SequenceID: r.ID,
				Start:      start,
				End:        end,
				Products:   f.Qualifiers.Product,
				GeneCount:  countCDS(r.Features, start, end),
			})
		}
	}
	return raw, lengths, nil
}

// countCDS returns the number of CDS features wholly within [start, end).
func countCDS(feats []antiSMASHFeature, start, end int) int {
	var n int
	for _, f := range feats {
		if f.Type != "CDS" {
			continue
		}
		s, e, err := parseLocation(f.Location)
		if err != nil {
			continue
		}
		if start <= s && e <= end {
			n++
		}
	}
	return n
}

var locationRE = regexp.MustCompile(`\[<?(\d+):>?(\d+)\]`)

// parseLocation returns the extent of a Biopython style location string
// such as "[0:39844]", "[<0:>1200](+)" or "join{[0:10](+), [20:30](+)}".
func parseLocation(loc string) (start, end int, err error) {
	m := locationRE.FindAllStringSubmatch(loc, -1)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid location: %q", loc)
	}
	start, end = -1, -1
	for _, p := range m {
		s, err := strconv.Atoi(p[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid location: %q: %w", loc, err)
		}
		e, err := strconv.Atoi(p[2])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid location: %q: %w", loc, err)
		}
		if start < 0 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}
	return start, end, nil
}
