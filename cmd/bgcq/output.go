// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kortschak/bgcq/internal/pipeline"
	"github.com/kortschak/bgcq/internal/store"
	"github.com/kortschak/bgcq/pivot"
)

// report is the JSON output of a run.
type report struct {
	*pipeline.Output
	Warnings []string `json:",omitempty"`
}

func writeJSON(w io.Writer, out *pipeline.Output) error {
	r := report{Output: out}
	for _, err := range out.Warnings {
		r.Warnings = append(r.Warnings, err.Error())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "\t")
	return enc.Encode(r)
}

// writeTSV writes the summary table of out to w, followed in tools mode by
// the pairwise comparison table. Pairwise cells are unique/non-unique
// counts for the row run compared against the column run.
func writeTSV(w io.Writer, out *pipeline.Output) error {
	_, err := fmt.Fprintf(w, "metric\t%s\n", strings.Join(out.Table.Columns, "\t"))
	if err != nil {
		return err
	}
	for _, r := range out.Table.Rows {
		vals := make([]string, len(r.Values))
		for i, v := range r.Values {
			vals[i] = formatValue(r.Metric, v)
		}
		_, err = fmt.Fprintf(w, "%s\t%s\n", r.Label, strings.Join(vals, "\t"))
		if err != nil {
			return err
		}
	}
	if out.Venn == nil {
		return nil
	}

	labels := out.Venn.Pairwise.Labels()
	_, err = fmt.Fprintf(w, "\nunique/non-unique\t%s\n", strings.Join(labels, "\t"))
	if err != nil {
		return err
	}
	for _, a := range labels {
		cells := make([]string, len(labels))
		for i, b := range labels {
			if a == b {
				cells[i] = "-"
				continue
			}
			c := out.Venn.Pairwise[a][b]
			cells[i] = fmt.Sprintf("%d/%d", c.Unique, c.NonUnique)
		}
		_, err = fmt.Fprintf(w, "%s\t%s\n", a, strings.Join(cells, "\t"))
		if err != nil {
			return err
		}
	}
	return nil
}

func formatValue(m pivot.Metric, v float64) string {
	if m == pivot.Count {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// entries returns the audit database entries for the classified records
// of out.
func entries(out *pipeline.Output) []store.Entry {
	var e []store.Entry
	for _, c := range out.Columns {
		for _, it := range c.Items {
			e = append(e, store.Entry{Run: out.ID, Input: c.Name, Record: it.Record, Class: it.Class})
		}
		for _, it := range c.Classified {
			e = append(e, store.Entry{Run: out.ID, Input: c.Name, Record: it.Record, Class: it.Class})
		}
	}
	return e
}

// runCommand runs cmd, killing it if ctx is cancelled.
func runCommand(ctx context.Context, cmd *exec.Cmd) error {
	err := cmd.Start()
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}
