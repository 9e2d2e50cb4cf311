// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/pivot"
	"github.com/kortschak/bgcq/recovery"
)

func write(t *testing.T, path, data string) string {
	t.Helper()
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(path, []byte(data), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func value(t *testing.T, tab pivot.Table, label, column string) float64 {
	t.Helper()
	col := -1
	for i, c := range tab.Columns {
		if c == column {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("no column %q in %v", column, tab.Columns)
	}
	for _, r := range tab.Rows {
		if r.Label == label {
			return r.Values[col]
		}
	}
	t.Fatalf("no row %q", label)
	return 0
}

const (
	refJSON = `{"records": [{"id": "chr", "features": [
	{"type": "region", "location": "[1000:5000]", "qualifiers": {"product": ["NRPS"], "region_number": ["1"]}},
	{"type": "region", "location": "[20000:24000]", "qualifiers": {"product": ["terpene"], "region_number": ["2"]}}
]}]}`

	asmJSON = `{"records": [
	{"id": "c1", "features": [{"type": "region", "location": "[0:4000]", "qualifiers": {"product": ["NRPS"]}}]},
	{"id": "c9", "features": [
		{"type": "region", "location": "[0:100]", "qualifiers": {"product": ["NRPS"]}},
		{"type": "region", "location": "[200:300]", "qualifiers": {"product": ["RiPP-like"]}}
	]}
]}`

	asmAlignments = "S1\tE1\tS2\tE2\tReference\tContig\tIDY\tAmbiguous\tBest_group\n" +
		"1001\t5000\t1\t4000\tchr\tc1\t100.0\tFalse\tTrue\n"
)

func TestRunReference(t *testing.T) {
	dir := t.TempDir()
	req := Request{
		Reference: write(t, filepath.Join(dir, "ref.json"), refJSON),
		Inputs:    []string{write(t, filepath.Join(dir, "asm1.json"), asmJSON)},
		Quast:     filepath.Join(dir, "quast"),
	}
	write(t, filepath.Join(dir, "quast", "contigs_reports", "all_alignments_asm1.tsv"), asmAlignments)

	out, err := Run(context.Background(), Config{Threshold: 0.9, Threads: 2}, req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != Reference {
		t.Errorf("unexpected mode: %v", out.Mode)
	}
	res, ok := out.Recovery["asm1"]
	if !ok {
		t.Fatalf("no recovery result for asm1: %v", out.Recovery)
	}
	if res.References[0].Status != recovery.Full || res.References[1].Status != recovery.Missed {
		t.Errorf("unexpected recovery: %+v", res.References)
	}
	if len(out.Warnings) != 1 {
		t.Errorf("expected one warning for unaligned contig: %v", out.Warnings)
	}
	if got := value(t, out.Table, "# BGCs (reference full)", "asm1"); got != 1 {
		t.Errorf("unexpected full count: %v", got)
	}
	if got := value(t, out.Table, "# BGCs (reference missed, Terpene)", "asm1"); got != 1 {
		t.Errorf("unexpected missed terpene count: %v", got)
	}
	if got := value(t, out.Table, "# BGCs", "ref"); got != 2 {
		t.Errorf("unexpected reference count: %v", got)
	}
	// Assembly totals describe the assembly's own BGCs.
	if got := value(t, out.Table, "# BGCs", "asm1"); got != 3 {
		t.Errorf("unexpected assembly count: %v", got)
	}
	if got := value(t, out.Table, "Mean BGC length", "asm1"); got != 1400 {
		t.Errorf("unexpected assembly mean length: %v", got)
	}
	if got := value(t, out.Table, "# BGCs (Terpene)", "asm1"); got != 0 {
		t.Errorf("unexpected assembly terpene count: %v", got)
	}
	if got := value(t, out.Table, "# BGCs (reference full)", "ref"); got != 0 {
		t.Errorf("unexpected reference full count: %v", got)
	}

	req.Quast = ""
	_, err = Run(context.Background(), Config{Threshold: 0.9}, req)
	if !errors.Is(err, ErrNoReference) {
		t.Errorf("expected missing reference data error: %v", err)
	}
}

func TestRunReferenceNameCollision(t *testing.T) {
	dir := t.TempDir()
	req := Request{
		Reference: write(t, filepath.Join(dir, "ref", "genome.json"), refJSON),
		Inputs:    []string{write(t, filepath.Join(dir, "asm", "genome.json"), asmJSON)},
		Quast:     filepath.Join(dir, "quast"),
	}
	write(t, filepath.Join(dir, "quast", "contigs_reports", "all_alignments_genome.tsv"), asmAlignments)

	out, err := Run(context.Background(), Config{Mode: Reference, Threshold: 0.9}, req)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"genome", "genome [antiSMASH]"}
	if !reflect.DeepEqual(out.Table.Columns, want) {
		t.Errorf("unexpected columns: got:%q want:%q", out.Table.Columns, want)
	}
	if _, ok := out.Recovery["genome [antiSMASH]"]; !ok {
		t.Errorf("no recovery result for qualified assembly name: %v", out.Recovery)
	}
	if got := value(t, out.Table, "# BGCs", "genome"); got != 2 {
		t.Errorf("unexpected reference count: %v", got)
	}
	if got := value(t, out.Table, "# BGCs", "genome [antiSMASH]"); got != 3 {
		t.Errorf("unexpected assembly count: %v", got)
	}
}

func TestSetNames(t *testing.T) {
	tests := []struct {
		name     string
		inputs   []Input
		mode     Mode
		reserved []string
		want     []string
	}{
		{
			name:   "samples",
			inputs: []Input{{Label: "a", Tool: bgc.GECCO}, {Label: "b", Tool: bgc.GECCO}},
			mode:   Samples,
			want:   []string{"a", "b"},
		},
		{
			name:   "tools",
			inputs: []Input{{Label: "s", Tool: bgc.GECCO}, {Label: "s", Tool: bgc.DeepBGC}},
			mode:   Tools,
			want:   []string{"GECCO", "deepBGC"},
		},
		{
			name:   "tool collision",
			inputs: []Input{{Label: "s", Tool: bgc.GECCO}, {Label: "t", Tool: bgc.GECCO}},
			mode:   Tools,
			want:   []string{"s [GECCO]", "t [GECCO]"},
		},
		{
			name:     "reserved",
			inputs:   []Input{{Label: "ref", Tool: bgc.AntiSMASH}, {Label: "asm", Tool: bgc.AntiSMASH}},
			mode:     Reference,
			reserved: []string{"ref"},
			want:     []string{"ref [antiSMASH]", "asm"},
		},
	}
	for _, test := range tests {
		setNames(test.inputs, test.mode, test.reserved...)
		var got []string
		for _, in := range test.inputs {
			got = append(got, in.Name)
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("unexpected names for %s: got:%q want:%q", test.name, got, test.want)
		}
	}
}

const (
	geccoTSV = "sequence_id\tbgc_id\tstart\tend\ttype\tproteins\n" +
		"c1\tc1_1\t0\t10000\tPolyketide\tp1;p2\n" +
		"c1\tc1_2\t50000\t60000\tNRP\tp3\n"

	deepBGCTSV = "sequence_id\tbgc_candidate_id\tnucl_start\tnucl_end\tnum_proteins\tproduct_class\n" +
		"c1\tc1_1\t500\t9500\t2\tPolyketide\n" +
		"c2\tc2_1\t0\t100\t1\tRiPP\n"
)

func TestRunTools(t *testing.T) {
	dir := t.TempDir()
	req := Request{Inputs: []string{
		write(t, filepath.Join(dir, "gecco", "sample.tsv"), geccoTSV),
		write(t, filepath.Join(dir, "deepbgc", "sample.tsv"), deepBGCTSV),
	}}
	out, err := Run(context.Background(), Config{Threshold: 0.9, Threads: 2}, req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != Tools {
		t.Fatalf("unexpected mode: %v", out.Mode)
	}
	if out.Inputs[0].Name != "GECCO" || out.Inputs[1].Name != "deepBGC" {
		t.Errorf("unexpected names: %q %q", out.Inputs[0].Name, out.Inputs[1].Name)
	}
	if got := out.Venn.Pairwise["GECCO"]["deepBGC"]; got.Unique != 1 || got.NonUnique != 1 {
		t.Errorf("unexpected pairwise counts: %+v", got)
	}
	if got := value(t, out.Table, "# BGCs (unique)", "deepBGC"); got != 1 {
		t.Errorf("unexpected unique count: %v", got)
	}
}

func TestRunSamples(t *testing.T) {
	dir := t.TempDir()
	genome := write(t, filepath.Join(dir, "s1.fasta"), ">c1\nACGTACGTAC\n")
	req := Request{
		Inputs: []string{
			write(t, filepath.Join(dir, "s1.tsv"), "sequence_id\tbgc_id\tstart\tend\ttype\n"+"c1\tc1_1\t2\t8\tNRP\n"),
			write(t, filepath.Join(dir, "s2.tsv"), geccoTSV),
		},
		Genomes: []string{genome},
	}
	out, err := Run(context.Background(), Config{Threshold: 0.9, EdgeDistance: -1}, req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != Samples {
		t.Fatalf("unexpected mode: %v", out.Mode)
	}
	if got := out.Inputs[0].Records[0].Completeness; got != bgc.Complete {
		t.Errorf("unexpected completeness with genome: %v", got)
	}
	if got := out.Inputs[1].Records[0].Completeness; got != bgc.Unknown {
		t.Errorf("unexpected completeness without genome: %v", got)
	}
	if got := value(t, out.Table, "# BGCs", "s2"); got != 2 {
		t.Errorf("unexpected count: %v", got)
	}
}

func TestRunUnknownMode(t *testing.T) {
	dir := t.TempDir()
	req := Request{Inputs: []string{
		write(t, filepath.Join(dir, "a.tsv"), geccoTSV),
		write(t, filepath.Join(dir, "b.tsv"), deepBGCTSV),
	}}
	out, err := Run(context.Background(), Config{Threshold: 0.9}, req)
	if err != nil {
		t.Fatal(err)
	}
	if out.Mode != Samples || len(out.Warnings) != 1 {
		t.Errorf("expected fallback to samples with a warning: mode=%v warnings=%v", out.Mode, out.Warnings)
	}
}

func TestDetect(t *testing.T) {
	for _, test := range []struct {
		ref    bool
		labels []string
		tools  []bgc.Tool
		want   Mode
		ok     bool
	}{
		{ref: true, labels: []string{"a", "b"}, tools: []bgc.Tool{bgc.GECCO, bgc.GECCO}, want: Reference, ok: true},
		{ref: true, labels: []string{"a", "b"}, tools: []bgc.Tool{bgc.GECCO, bgc.DeepBGC}, want: Reference, ok: false},
		{labels: []string{"a"}, tools: []bgc.Tool{bgc.GECCO}, want: Samples, ok: true},
		{labels: []string{"a", "b"}, tools: []bgc.Tool{bgc.GECCO, bgc.GECCO}, want: Samples, ok: true},
		{labels: []string{"a", "b"}, tools: []bgc.Tool{bgc.GECCO, bgc.DeepBGC}, want: Samples, ok: false},
		{labels: []string{"a", "a"}, tools: []bgc.Tool{bgc.GECCO, bgc.DeepBGC}, want: Tools, ok: true},
		{labels: []string{"a", "a"}, tools: []bgc.Tool{bgc.GECCO, bgc.GECCO}, want: Tools, ok: true},
	} {
		got, ok := Detect(test.ref, test.labels, test.tools)
		if got != test.want || ok != test.ok {
			t.Errorf("unexpected mode for %+v: got:%v,%t want:%v,%t", test, got, ok, test.want, test.ok)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Auto, Reference, Tools, Samples} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("unexpected parse of %v: got:%v err:%v", m, got, err)
		}
	}
	_, err := ParseMode("sideways")
	if err == nil {
		t.Error("expected error for unknown mode")
	}
}
