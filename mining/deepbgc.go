// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mining

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kortschak/bgcq/bgc"
)

// deepBGCJSON is the parser for deepBGC output in the antiSMASH
// subregion JSON format.
type deepBGCJSON struct{}

func (deepBGCJSON) Tool() bgc.Tool { return bgc.DeepBGC }

type deepBGCRecord struct {
	Subregions []struct {
		Start   int `json:"start"`
		End     int `json:"end"`
		Details struct {
			ProductClass string `json:"product_class"`
			NumProteins  int    `json:"num_proteins"`
		} `json:"details"`
	} `json:"subregions"`
}

func (deepBGCJSON) Parse(data []byte) ([]bgc.Raw, map[string]int, error) {
	if !isJSON(data) {
		return nil, nil, errNotFormat
	}
	var top struct {
		Records json.RawMessage `json:"records"`
	}
	err := json.Unmarshal(data, &top)
	if err != nil || !bytes.HasPrefix(bytes.TrimSpace(top.Records), []byte("{")) {
		return nil, nil, errNotFormat
	}
	var recs map[string]deepBGCRecord
	err = json.Unmarshal(top.Records, &recs)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(recs))
	for id := range recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var raw []bgc.Raw
	for _, id := range ids {
		for i, s := range recs[id].Subregions {
			raw = append(raw, bgc.Raw{
				Tool:       bgc.DeepBGC,
				ID:         fmt.Sprintf("%s_%d", id, i+1),
				SequenceID: id,
				Start:      s.Start,
				End:        s.End,
				Products:   split(s.Details.ProductClass, "-"),
				GeneCount:  s.Details.NumProteins,
			})
		}
	}
	return raw, nil, nil
}
