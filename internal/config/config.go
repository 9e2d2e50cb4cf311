// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides layered run configuration for bgcq. Values are
// taken from built-in defaults, then an optional TOML file, then the
// environment, with command line flags applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/kortschak/bgcq/internal/pipeline"
)

// Unset is the EdgeDistance value when no edge distance is configured.
const Unset = -1

// Config is the run configuration.
type Config struct {
	// Threshold is the overlap threshold
	// for a match, in (0, 1].
	Threshold float64 `toml:"threshold"`

	// MinLength is the minimum length
	// of a retained BGC.
	MinLength int `toml:"min_length"`

	// EdgeDistance is the distance from a sequence
	// end within which a BGC is incomplete. It is
	// Unset if not configured.
	EdgeDistance int `toml:"edge_distance"`

	Threads int    `toml:"threads"`
	Mode    string `toml:"mode"`

	// Products is the path to a product
	// mapping file. If empty, the built-in
	// mapping is used.
	Products string `toml:"products"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Threshold:    0.9,
		MinLength:    0,
		EdgeDistance: Unset,
		Threads:      1,
		Mode:         pipeline.Auto.String(),
	}
}

// Load updates c with the values in the TOML file at path. Keys not
// recognised are an error.
func (c *Config) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	err = c.decode(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Config) decode(r io.Reader) error {
	md, err := toml.NewDecoder(r).Decode(c)
	if err != nil {
		return err
	}
	if u := md.Undecoded(); len(u) != 0 {
		return fmt.Errorf("unknown configuration keys: %v", u)
	}
	return nil
}

// Env is the prefix of environment variables read by LoadEnv.
const Env = "BGCQ_"

// LoadEnv loads the dotenv file at path if it exists and then updates c
// from the BGCQ_THRESHOLD, BGCQ_MIN_LENGTH, BGCQ_EDGE_DISTANCE,
// BGCQ_THREADS, BGCQ_MODE and BGCQ_PRODUCTS environment variables.
// Variables already set in the environment take precedence over the
// dotenv file.
func (c *Config) LoadEnv(path string) error {
	if path != "" {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	if v, ok := lookup("THRESHOLD"); ok {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sTHRESHOLD: %w", Env, err)
		}
		c.Threshold = t
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{name: "MIN_LENGTH", dst: &c.MinLength},
		{name: "EDGE_DISTANCE", dst: &c.EdgeDistance},
		{name: "THREADS", dst: &c.Threads},
	} {
		v, ok := lookup(p.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", Env, p.name, err)
		}
		*p.dst = n
	}
	if v, ok := lookup("MODE"); ok {
		c.Mode = v
	}
	if v, ok := lookup("PRODUCTS"); ok {
		c.Products = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(Env + name)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

// Validate returns an error if the configuration is not valid.
func (c Config) Validate() error {
	switch {
	case !(c.Threshold > 0 && c.Threshold <= 1):
		return fmt.Errorf("threshold must be in (0,1]: %v", c.Threshold)
	case c.MinLength < 0:
		return fmt.Errorf("negative minimum length: %d", c.MinLength)
	case c.EdgeDistance < 0 && c.EdgeDistance != Unset:
		return fmt.Errorf("negative edge distance: %d", c.EdgeDistance)
	case c.Threads < 1:
		return fmt.Errorf("threads must be at least 1: %d", c.Threads)
	}
	_, err := pipeline.ParseMode(c.Mode)
	return err
}
