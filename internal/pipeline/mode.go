// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/kortschak/bgcq/bgc"
)

// Mode is the analysis mode of a run.
type Mode int8

const (
	// Auto selects the mode from the inputs.
	Auto Mode = iota

	// Reference compares assembly predictions with
	// the predictions on a reference genome.
	Reference

	// Tools compares the predictions of different
	// tools on the same sequences.
	Tools

	// Samples summarises predictions across samples.
	Samples
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Reference:
		return "reference"
	case Tools:
		return "tools"
	case Samples:
		return "samples"
	default:
		return fmt.Sprintf("Mode(%d)", int8(m))
	}
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "reference", "compare-to-reference":
		return Reference, nil
	case "tools", "compare-tools":
		return Tools, nil
	case "samples", "compare-samples":
		return Samples, nil
	default:
		return Auto, fmt.Errorf("unknown mode: %q", s)
	}
}

// Detect returns the analysis mode for a set of inputs, with ok false if
// no mode fits them. The reference mode is chosen when a reference is
// given and all assemblies were mined with the same tool. Otherwise inputs
// with more than one label and more than one tool fit no mode, a single
// input or inputs with more than one label are samples, and inputs with
// one label are tool runs.
func Detect(hasReference bool, labels []string, tools []bgc.Tool) (mode Mode, ok bool) {
	sameTool := all(tools)
	if hasReference {
		return Reference, sameTool
	}
	if len(labels) < 2 {
		return Samples, true
	}
	sameLabel := all(labels)
	switch {
	case !sameLabel && !sameTool:
		return Samples, false
	case !sameLabel:
		return Samples, true
	default:
		return Tools, true
	}
}

func all[T comparable](s []T) bool {
	for _, v := range s[min(1, len(s)):] {
		if v != s[0] {
			return false
		}
	}
	return true
}
