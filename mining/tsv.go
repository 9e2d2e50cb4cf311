// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mining

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/kortschak/bgcq/bgc"
)

// table is a tab-separated table with a header line.
type table struct {
	cols  map[string]int
	width int
	rows  [][]string
	line  []int
}

// readTable parses data as a tab-separated table. Blank lines and lines
// starting with '#' are skipped. The first remaining line is the header.
func readTable(data []byte) (table, error) {
	var t table
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(nil, 1<<24)
	var n int
	for sc.Scan() {
		n++
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f := strings.Split(strings.TrimSuffix(line, "\r"), "\t")
		for i := range f {
			f[i] = strings.TrimSpace(f[i])
		}
		if t.cols == nil {
			t.cols = make(map[string]int, len(f))
			for i, name := range f {
				t.cols[name] = i
			}
			t.width = len(f)
			continue
		}
		if len(f) != t.width {
			return t, fmt.Errorf("unexpected number of fields on line %d: got:%d want:%d", n, len(f), t.width)
		}
		t.rows = append(t.rows, f)
		t.line = append(t.line, n)
	}
	return t, sc.Err()
}

// has returns whether the table has all the named columns.
func (t table) has(names ...string) bool {
	for _, n := range names {
		if _, ok := t.cols[n]; !ok {
			return false
		}
	}
	return true
}

// get returns the named field of row i, or "" if the column is absent.
func (t table) get(i int, name string) string {
	c, ok := t.cols[name]
	if !ok {
		return ""
	}
	return t.rows[i][c]
}

// atoi returns the named field of row i as an integer.
func (t table) atoi(i int, name string) (int, error) {
	v, err := strconv.Atoi(t.get(i, name))
	if err != nil {
		return 0, fmt.Errorf("error in line %d: %w", t.line[i], err)
	}
	return v, nil
}

// gecco is the GECCO clusters TSV parser.
type gecco struct{}

func (gecco) Tool() bgc.Tool { return bgc.GECCO }

func (gecco) Parse(data []byte) ([]bgc.Raw, map[string]int, error) {
	if isJSON(data) {
		return nil, nil, errNotFormat
	}
	t, err := readTable(data)
	if !t.has("sequence_id", "start", "end", "type") {
		return nil, nil, errNotFormat
	}
	idCol := "bgc_id"
	if !t.has(idCol) {
		idCol = "cluster_id"
		if !t.has(idCol) {
			return nil, nil, errNotFormat
		}
	}
	if err != nil {
		return nil, nil, err
	}

	raw := make([]bgc.Raw, len(t.rows))
	for i := range t.rows {
		r := bgc.Raw{
			Tool:       bgc.GECCO,
			ID:         t.get(i, idCol),
			SequenceID: t.get(i, "sequence_id"),
			Products:   split(t.get(i, "type"), ";"),
		}
		r.Start, err = t.atoi(i, "start")
		if err != nil {
			return nil, nil, err
		}
		r.End, err = t.atoi(i, "end")
		if err != nil {
			return nil, nil, err
		}
		r.GeneCount = len(split(t.get(i, "proteins"), ";"))
		raw[i] = r
	}
	return raw, nil, nil
}

// deepBGCTSV is the deepBGC BGC TSV parser.
type deepBGCTSV struct{}

func (deepBGCTSV) Tool() bgc.Tool { return bgc.DeepBGC }

func (deepBGCTSV) Parse(data []byte) ([]bgc.Raw, map[string]int, error) {
	if isJSON(data) {
		return nil, nil, errNotFormat
	}
	t, err := readTable(data)
	if !t.has("sequence_id", "bgc_candidate_id", "nucl_start", "nucl_end", "product_class") {
		return nil, nil, errNotFormat
	}
	if err != nil {
		return nil, nil, err
	}

	raw := make([]bgc.Raw, len(t.rows))
	n := make(map[string]int)
	for i := range t.rows {
		seq := t.get(i, "sequence_id")
		n[seq]++
		r := bgc.Raw{
			Tool:       bgc.DeepBGC,
			ID:         fmt.Sprintf("%s_%d", seq, n[seq]),
			SequenceID: seq,
			Products:   split(t.get(i, "product_class"), "-"),
		}
		r.Start, err = t.atoi(i, "nucl_start")
		if err != nil {
			return nil, nil, err
		}
		r.End, err = t.atoi(i, "nucl_end")
		if err != nil {
			return nil, nil, err
		}
		if t.has("num_proteins") {
			r.GeneCount, err = t.atoi(i, "num_proteins")
			if err != nil {
				return nil, nil, err
			}
		}
		raw[i] = r
	}
	return raw, nil, nil
}

// split splits s by sep, dropping empty elements.
func split(s, sep string) []string {
	var f []string
	for _, v := range strings.Split(s, sep) {
		v = strings.TrimSpace(v)
		if v != "" {
			f = append(f, v)
		}
	}
	return f
}
