// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package quast provides types and functions for invoking QUAST and
// reading the assembly to reference alignments it reports.
package quast

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/biogo/external"

	"github.com/kortschak/bgcq/align"
)

// Quast is a QUAST command.
type Quast struct {
	// Usage: quast.py [options] <files_with_contigs>
	//
	// For details relating to options and parameters, see the QUAST manual.
	//
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}quast.py{{end}}"` // quast.py

	Reference string `buildarg:"{{with .}}-r{{split}}{{.}}{{end}}"` // -r <s>
	Out       string `buildarg:"{{with .}}-o{{split}}{{.}}{{end}}"` // -o <s>
	Threads   int    `buildarg:"{{if .}}-t{{split}}{{.}}{{end}}"`   // -t <n>
	Labels    string `buildarg:"{{with .}}-l{{split}}{{.}}{{end}}"` // -l <s>
	NoPlots   bool   `buildarg:"{{if .}}--no-plots{{end}}"`         // --no-plots
	NoHTML    bool   `buildarg:"{{if .}}--no-html{{end}}"`          // --no-html

	// Assemblies is the list of assembly files
	// to evaluate.
	Assemblies []string

	// ExtraFlags will be passed through to quast.py as
	// white space separated flags, for example
	// "--fast --min-contig 500".
	ExtraFlags string
}

func (q Quast) BuildCommand() (*exec.Cmd, error) {
	if q.Reference == "" {
		return nil, errors.New("quast: missing reference")
	}
	if q.Out == "" {
		return nil, errors.New("quast: missing output directory")
	}
	if len(q.Assemblies) == 0 {
		return nil, errors.New("quast: no assemblies")
	}
	cl := external.Must(external.Build(q))
	args := append(cl[1:], strings.Fields(q.ExtraFlags)...)
	args = append(args, q.Assemblies...)
	return exec.Command(cl[0], args...), nil
}

// AlignmentsFile returns the path of the alignments file for the assembly
// label in the QUAST output directory dir.
func AlignmentsFile(dir, label string) string {
	return filepath.Join(dir, "contigs_reports", "all_alignments_"+label+".tsv")
}

// ReadDir reads all the alignments files in the QUAST output directory dir,
// returning the blocks keyed by assembly label.
func ReadDir(dir string) (map[string][]align.Block, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("quast: output directory: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("quast: %s is not a directory", dir)
	}
	paths, err := filepath.Glob(AlignmentsFile(dir, "*"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("quast: no alignments files in %s", dir)
	}
	blocks := make(map[string][]align.Block, len(paths))
	for _, p := range paths {
		label := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(p), "all_alignments_"), ".tsv")
		b, err := readFile(p)
		if err != nil {
			return nil, err
		}
		blocks[label] = b
	}
	return blocks, nil
}

func readFile(path string) ([]align.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := ReadAlignments(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// ReadAlignments reads a QUAST all_alignments table from r. Only rows in
// the best alignment group of each contig are returned. QUAST 1-based
// closed coordinates are converted to half-open blocks, and a block is
// Reverse when the contig coordinates are descending.
func ReadAlignments(r io.Reader) ([]align.Block, error) {
	var (
		blocks []align.Block
		cols   map[string]int
	)
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		f := strings.Split(text, "\t")
		if cols == nil {
			cols = make(map[string]int, len(f))
			for i, name := range f {
				cols[strings.TrimSpace(name)] = i
			}
			for _, name := range []string{"S1", "E1", "S2", "E2", "Reference", "Contig"} {
				if _, ok := cols[name]; !ok {
					return nil, fmt.Errorf("missing %s column in alignments header", name)
				}
			}
			continue
		}
		if f[0] == "CONTIG" {
			// Per-contig summary line.
			continue
		}
		if len(f) < len(cols) {
			return nil, fmt.Errorf("unexpected number of fields on line %d: %q", line, f)
		}
		if i, ok := cols["Best_group"]; ok && strings.TrimSpace(f[i]) != "True" {
			continue
		}

		var c [4]int
		for k, name := range []string{"S1", "E1", "S2", "E2"} {
			v, err := strconv.Atoi(strings.TrimSpace(f[cols[name]]))
			if err != nil {
				return nil, fmt.Errorf("error in line %d: %w", line, err)
			}
			c[k] = v
		}
		s1, e1, s2, e2 := c[0], c[1], c[2], c[3]
		b := align.Block{
			Reference:   strings.TrimSpace(f[cols["Reference"]]),
			RefStart:    min(s1, e1) - 1, // Use zero-based indexing internally.
			RefEnd:      max(s1, e1),
			Contig:      strings.TrimSpace(f[cols["Contig"]]),
			Start:       min(s2, e2) - 1,
			End:         max(s2, e2),
			Orientation: align.Forward,
		}
		if s2 > e2 {
			b.Orientation = align.Reverse
		}
		blocks = append(blocks, b)
	}
	return blocks, sc.Err()
}
