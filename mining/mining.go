// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mining reads the native output of genome mining tools into raw
// BGC predictions. Supported formats are antiSMASH JSON, GECCO TSV, and
// deepBGC JSON and TSV. Gzip compressed input is read transparently.
package mining

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kortschak/bgcq/bgc"
)

// ErrUnknownFormat is returned when no parser recognises an input.
var ErrUnknownFormat = errors.New("mining: unknown input format")

// errNotFormat is returned by a Parser that does not recognise its input.
var errNotFormat = errors.New("mining: not this format")

// Parser is a genome mining tool output parser.
type Parser interface {
	// Tool returns the mining tool whose output
	// is parsed.
	Tool() bgc.Tool

	// Parse parses the complete decompressed tool
	// output in data. Parse returns an error wrapping
	// errNotFormat if it does not recognise the
	// content. The returned lengths may be nil.
	Parse(data []byte) (raw []bgc.Raw, lengths map[string]int, err error)
}

// Parsers is the list of parsers tried by Read, in order.
var Parsers = []Parser{
	antiSMASH{},
	deepBGCJSON{},
	gecco{},
	deepBGCTSV{},
}

// Result is the parsed output of a single mining tool run.
type Result struct {
	// Path is the path to the input file.
	Path string

	// Label is the input label derived from Path.
	Label string

	Tool bgc.Tool
	Raw  []bgc.Raw

	// Lengths holds any sequence lengths
	// recorded in the tool output.
	Lengths map[string]int
}

// ReadFile reads and parses the mining tool output at path.
func ReadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Path = path
	res.Label = Label(path)
	return res, nil
}

// Read parses the mining tool output in r, decompressing it if it is
// gzip compressed. The tool is identified by content.
func Read(r io.Reader) (*Result, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	for _, p := range Parsers {
		raw, lengths, err := p.Parse(data)
		if err != nil {
			if errors.Is(err, errNotFormat) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", p.Tool(), err)
		}
		return &Result{Tool: p.Tool(), Raw: raw, Lengths: lengths}, nil
	}
	return nil, ErrUnknownFormat
}

// readAll returns the content of r, decompressed if it starts with the
// gzip magic number.
func readAll(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		return io.ReadAll(gz)
	}
	return io.ReadAll(br)
}

// Label returns the input label for a path: the base name with any
// compression suffix and then one extension removed.
func Label(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".bz2", ".bgz", ".zst", ".xz", ".zip", ".bgzf"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// isJSON returns whether data looks like a JSON object.
func isJSON(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	return len(data) != 0 && data[0] == '{'
}
