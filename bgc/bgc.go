// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bgc provides the canonical biosynthetic gene cluster record
// shared by all genome mining tool inputs, and the builder that converts
// raw per-tool predictions into canonical records.
package bgc

import (
	"fmt"
	"strings"
)

// Tool is a genome mining tool.
type Tool int8

const (
	UnknownTool Tool = iota
	AntiSMASH
	GECCO
	DeepBGC
)

func (t Tool) String() string {
	switch t {
	case AntiSMASH:
		return "antiSMASH"
	case GECCO:
		return "GECCO"
	case DeepBGC:
		return "deepBGC"
	default:
		return "unknown"
	}
}

// ParseTool returns the Tool named by s. Matching is case-insensitive.
func ParseTool(s string) (Tool, error) {
	switch strings.ToLower(s) {
	case "antismash":
		return AntiSMASH, nil
	case "gecco":
		return GECCO, nil
	case "deepbgc":
		return DeepBGC, nil
	}
	return UnknownTool, fmt.Errorf("unknown mining tool: %q", s)
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (t Tool) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText satisfies the encoding.TextUnmarshaler interface.
func (t *Tool) UnmarshalText(text []byte) error {
	v, err := ParseTool(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Completeness describes whether a BGC lies wholly within the interior of
// its sequence.
type Completeness int8

const (
	Unknown Completeness = iota
	Complete
	Incomplete
)

func (c Completeness) String() string {
	switch c {
	case Complete:
		return "Complete"
	case Incomplete:
		return "Incomplete"
	default:
		return "Unknown"
	}
}

// MarshalText satisfies the encoding.TextMarshaler interface.
func (c Completeness) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText satisfies the encoding.TextUnmarshaler interface.
func (c *Completeness) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Complete":
		*c = Complete
	case "Incomplete":
		*c = Incomplete
	case "Unknown":
		*c = Unknown
	default:
		return fmt.Errorf("unknown completeness: %q", text)
	}
	return nil
}

// Completenesses is the report order of completeness values.
var Completenesses = []Completeness{Complete, Incomplete, Unknown}

// Product is a canonical BGC product class.
type Product string

const (
	NRPS       Product = "NRPS"
	PKS        Product = "PKS"
	RiPP       Product = "RiPP"
	Terpene    Product = "Terpene"
	Saccharide Product = "Saccharide"
	Alkaloid   Product = "Alkaloid"
	Hybrid     Product = "Hybrid"
	Other      Product = "Other"
)

// Products is the closed set of canonical product classes in report order.
var Products = []Product{NRPS, PKS, RiPP, Terpene, Saccharide, Alkaloid, Hybrid, Other}

// Valid returns whether p is in the closed set of product classes.
func (p Product) Valid() bool {
	for _, c := range Products {
		if p == c {
			return true
		}
	}
	return false
}

// Raw is a BGC prediction as read from a tool's native output, before
// canonicalization. Coordinates are as reported by the tool's reader,
// which converts them to half-open form where the format allows it.
type Raw struct {
	Tool       Tool
	ID         string
	SequenceID string
	Start      int
	End        int
	Products   []string
	GeneCount  int
}

// Record is a canonical BGC. Coordinates are half-open with Start < End.
type Record struct {
	ID           string
	Tool         Tool
	SequenceID   string
	Start        int
	End          int
	Product      Product
	Classes      []Product `json:",omitempty"`
	GeneCount    int
	Completeness Completeness
}

// Len returns the length of the BGC interval.
func (r Record) Len() int { return r.End - r.Start }

func (r Record) String() string {
	return fmt.Sprintf("%s:%d-%d[%s %s]", r.SequenceID, r.Start, r.End, r.Tool, r.Product)
}
