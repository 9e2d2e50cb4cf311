// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package genome provides sequence length tables for genome files.
package genome

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/fai"
)

// Lengths returns the lengths of the sequences in the genome file at path,
// keyed by sequence name. The file may be a FASTA index, a FASTA file or a
// gzip compressed FASTA file.
func Lengths(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".fai") {
		idx, err := fai.ReadFrom(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return indexLengths(idx), nil
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		return scan(path, gz)
	}

	idx, err := fai.NewIndex(br)
	if err == nil {
		return indexLengths(idx), nil
	}

	// FASTA files with irregular line lengths
	// cannot be indexed, so read them in full.
	_, err = f.Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}
	return scan(path, f)
}

func indexLengths(idx fai.Index) map[string]int {
	lengths := make(map[string]int, len(idx))
	for name, rec := range idx {
		lengths[name] = rec.Length
	}
	return lengths
}

func scan(path string, r io.Reader) (map[string]int, error) {
	lengths := make(map[string]int)
	sc := seqio.NewScanner(fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNAredundant)))
	for sc.Next() {
		seq := sc.Seq().(*linear.Seq)
		lengths[seq.Name()] = seq.Len()
	}
	err := sc.Error()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lengths, nil
}
