// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// bgcq is a quality assessment tool for biosynthetic gene cluster
// predictions. It reads the output of genome mining tools and summarises
// the predicted BGCs by product type and completeness, comparing them with
// the BGCs predicted on a reference genome, between tools run on the same
// sequences or across samples.
//
// Configuration is taken from built-in defaults, then the file named by
// -config, then a .env file in the working directory and BGCQ_ prefixed
// environment variables, and finally the command line flags.
//
// usage: bgcq [options] <mining results>...
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/internal/config"
	"github.com/kortschak/bgcq/internal/logger"
	"github.com/kortschak/bgcq/internal/pipeline"
	"github.com/kortschak/bgcq/internal/store"
	"github.com/kortschak/bgcq/mining"
	"github.com/kortschak/bgcq/quast"
)

func main() {
	var genomes sliceValue
	def := config.Default()
	ref := flag.String("ref", "", "specify the mining result for the reference genome")
	quastDir := flag.String("quast", "", "specify the QUAST output directory holding assembly alignments")
	runQuast := flag.Bool("run-quast", false, "specify to run QUAST on the -genome assemblies against -ref-genome")
	quastFlags := flag.String("quast-flags", "", "specify additional flags passed to QUAST with -run-quast")
	refGenome := flag.String("ref-genome", "", "specify the reference genome sequence file")
	flag.Var(&genomes, "genome", "specify a genome sequence file for sequence lengths (may be present more than once)")
	mode := flag.String("mode", def.Mode, "specify the analysis mode (auto, reference, tools or samples)")
	threshold := flag.Float64("threshold", def.Threshold, "specify the overlap threshold for a match in (0,1]")
	minLength := flag.Int("min-length", def.MinLength, "specify the minimum BGC length")
	edge := flag.Int("edge-distance", def.EdgeDistance, "specify the distance from a sequence end within which a BGC is incomplete (<0 is unset)")
	threads := flag.Int("threads", def.Threads, "specify the maximum number of concurrent tasks")
	products := flag.String("products", "", "specify a product mapping TOML file")
	cfgPath := flag.String("config", "", "specify a TOML configuration file")
	format := flag.String("format", "tsv", "specify the output format (json or tsv)")
	dotOut := flag.String("dot", "", "specify a file to write the pairwise comparison graph in DOT format")
	dbDir := flag.String("db", "", "specify a directory to write the audit databases")
	verbose := flag.Bool("verbose", false, "specify verbose logging")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	switch *format {
	case "json", "tsv":
	default:
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Level(*verbose))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to make logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Debug("arguments", zap.Strings("args", os.Args))

	cfg := config.Default()
	if *cfgPath != "" {
		err = cfg.Load(*cfgPath)
		if err != nil {
			log.Fatal("failed to load configuration", zap.Error(err))
		}
	}
	err = cfg.LoadEnv(".env")
	if err != nil {
		log.Fatal("failed to load environment", zap.Error(err))
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = *mode
		case "threshold":
			cfg.Threshold = *threshold
		case "min-length":
			cfg.MinLength = *minLength
		case "edge-distance":
			cfg.EdgeDistance = max(*edge, config.Unset)
		case "threads":
			cfg.Threads = *threads
		case "products":
			cfg.Products = *products
		}
	})
	err = cfg.Validate()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	runMode, err := pipeline.ParseMode(cfg.Mode)
	if err != nil {
		log.Fatal("invalid mode", zap.Error(err))
	}
	var mapping *bgc.Mapping
	if cfg.Products != "" {
		mapping, err = bgc.ReadMapping(cfg.Products)
		if err != nil {
			log.Fatal("failed to read product mapping", zap.Error(err))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	req := pipeline.Request{
		Inputs:          flag.Args(),
		Reference:       *ref,
		Quast:           *quastDir,
		Genomes:         genomes,
		ReferenceGenome: *refGenome,
	}
	if *runQuast {
		req.Quast, err = alignAssemblies(ctx, req, cfg.Threads, *quastFlags, log)
		if err != nil {
			log.Fatal("failed to run QUAST", zap.Error(err))
		}
		if *quastDir == "" {
			defer os.RemoveAll(req.Quast)
		}
	}

	out, err := pipeline.Run(ctx, pipeline.Config{
		Mode:         runMode,
		Threshold:    cfg.Threshold,
		MinLength:    cfg.MinLength,
		EdgeDistance: cfg.EdgeDistance,
		Threads:      cfg.Threads,
		Mapping:      mapping,
		Log:          log,
	}, req)
	if err != nil {
		log.Fatal("analysis failed", zap.Error(err))
	}

	w := bufio.NewWriter(os.Stdout)
	switch *format {
	case "json":
		err = writeJSON(w, out)
	case "tsv":
		err = writeTSV(w, out)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		log.Fatal("failed to write results", zap.Error(err))
	}

	if *dotOut != "" {
		if out.Venn == nil {
			log.Warn("no pairwise comparison to write in mode", zap.Stringer("mode", out.Mode))
		} else {
			b, err := out.Venn.Pairwise.MarshalDOT("venn")
			if err != nil {
				log.Fatal("failed to marshal DOT", zap.Error(err))
			}
			err = os.WriteFile(*dotOut, b, 0o664)
			if err != nil {
				log.Fatal("failed to write DOT", zap.Error(err))
			}
		}
	}

	if *dbDir != "" {
		err = store.Write(*dbDir, entries(out), store.InputsDB, store.PositionsDB)
		if err != nil {
			log.Fatal("failed to write audit databases", zap.Error(err))
		}
		log.Info("wrote audit databases", zap.String("dir", *dbDir), zap.Stringer("run", out.ID))
	}
}

// alignAssemblies runs QUAST with the given extra flags to align the
// assembly genomes in req to the reference genome and returns the QUAST
// output directory.
func alignAssemblies(ctx context.Context, req pipeline.Request, threads int, flags string, log *zap.Logger) (string, error) {
	if req.ReferenceGenome == "" || len(req.Genomes) == 0 {
		return "", errors.New("QUAST requires -ref-genome and at least one -genome")
	}
	dir := req.Quast
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "bgcq-quast-*")
		if err != nil {
			return "", err
		}
	}
	labels := make([]string, len(req.Genomes))
	for i, g := range req.Genomes {
		labels[i] = mining.Label(g)
	}
	cmd, err := quast.Quast{
		Reference:  req.ReferenceGenome,
		Out:        dir,
		Threads:    threads,
		Labels:     strings.Join(labels, ","),
		NoPlots:    true,
		NoHTML:     true,
		Assemblies: req.Genomes,
		ExtraFlags: flags,
	}.BuildCommand()
	if err != nil {
		return "", err
	}
	stderr := logCapture(log)
	defer stderr.Close()
	cmd.Stdout = stderr
	cmd.Stderr = stderr
	log.Info("running QUAST", zap.Strings("args", cmd.Args), zap.String("dir", dir))
	err = runCommand(ctx, cmd)
	if err != nil {
		return "", err
	}
	return filepath.Clean(dir), nil
}

// sliceValue is a multi-value flag value.
type sliceValue []string

// Set adds the string to the sliceValue.
func (s *sliceValue) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// String satisfies the flag.Value interface.
func (s *sliceValue) String() string {
	return fmt.Sprintf("%q", []string(*s))
}

// logCapture returns an io.WriteCloser that pipes writes to log at the
// debug level.
func logCapture(log *zap.Logger) io.WriteCloser {
	r, w := io.Pipe()
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if len(bytes.TrimSpace(sc.Bytes())) == 0 {
				continue
			}
			log.Debug("quast", zap.ByteString("line", sc.Bytes()))
		}
		err := sc.Err()
		if err != nil && err != io.EOF {
			_ = r.CloseWithError(err)
		}
	}()
	return w
}
