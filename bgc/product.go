// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bgc

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed products.toml
var defaultProducts []byte

// Mapping is a versioned table from tool-specific product labels to
// canonical product classes.
type Mapping struct {
	Version int

	classes map[Tool]map[string]Product
}

type mappingFile struct {
	Version int                            `toml:"version"`
	Classes map[string]map[string][]string `toml:"classes"`
}

// DefaultMapping returns the built-in product mapping.
func DefaultMapping() *Mapping {
	m, err := ParseMapping(bytes.NewReader(defaultProducts))
	if err != nil {
		panic(fmt.Sprintf("bgc: invalid built-in product mapping: %v", err))
	}
	return m
}

// ReadMapping reads a product mapping from the TOML file at path.
func ReadMapping(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ParseMapping(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseMapping parses a TOML product mapping. The table holds a version
// number and, for each tool, a table from canonical product class to the
// list of tool labels in that class.
func ParseMapping(r io.Reader) (*Mapping, error) {
	var mf mappingFile
	_, err := toml.NewDecoder(r).Decode(&mf)
	if err != nil {
		return nil, fmt.Errorf("invalid product mapping: %w", err)
	}
	m := &Mapping{Version: mf.Version, classes: make(map[Tool]map[string]Product)}
	for name, classes := range mf.Classes {
		tool, err := ParseTool(name)
		if err != nil {
			return nil, err
		}
		labels := make(map[string]Product)
		for class, members := range classes {
			p := Product(class)
			if !p.Valid() || p == Hybrid {
				return nil, fmt.Errorf("invalid product class for %s: %q", tool, class)
			}
			for _, l := range members {
				key := strings.ToLower(l)
				if prev, ok := labels[key]; ok && prev != p {
					return nil, fmt.Errorf("label %q for %s mapped to both %s and %s", l, tool, prev, p)
				}
				labels[key] = p
			}
		}
		m.classes[tool] = labels
	}
	return m, nil
}

// Canonical returns the canonical product for the raw labels reported by
// tool t and the distinct canonical classes the labels map to, in report
// order. Unmapped labels are Other. A set of labels spanning more than one
// class is Hybrid and no labels is Other.
func (m *Mapping) Canonical(t Tool, labels []string) (Product, []Product) {
	seen := make(map[Product]bool)
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		p, ok := m.classes[t][strings.ToLower(l)]
		if !ok {
			p = Other
		}
		seen[p] = true
	}
	var classes []Product
	for _, p := range Products {
		if seen[p] {
			classes = append(classes, p)
		}
	}
	switch len(classes) {
	case 0:
		return Other, []Product{Other}
	case 1:
		return classes[0], classes
	default:
		return Hybrid, classes
	}
}
