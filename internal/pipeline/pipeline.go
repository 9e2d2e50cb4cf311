// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline runs a bgcq analysis from input files to summary
// tables.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kortschak/bgcq/align"
	"github.com/kortschak/bgcq/bgc"
	"github.com/kortschak/bgcq/genome"
	"github.com/kortschak/bgcq/mining"
	"github.com/kortschak/bgcq/pivot"
	"github.com/kortschak/bgcq/quast"
	"github.com/kortschak/bgcq/recovery"
	"github.com/kortschak/bgcq/venn"
)

// Config is the configuration of a run.
type Config struct {
	Mode Mode

	// Threshold is the overlap threshold for a match.
	Threshold float64

	// MinLength is the minimum retained BGC length.
	MinLength int

	// EdgeDistance is the distance from a sequence
	// end within which a BGC is incomplete. A negative
	// value is treated as zero.
	EdgeDistance int

	// Threads is the maximum number of concurrent
	// file reads and comparisons.
	Threads int

	// Mapping is the product mapping. If nil the
	// built-in mapping is used.
	Mapping *bgc.Mapping

	// Log is the run logger. If nil, nothing is logged.
	Log *zap.Logger
}

// Request holds the inputs of a run.
type Request struct {
	// Inputs are the mining result files.
	Inputs []string

	// Reference is the mining result file for
	// the reference genome, if any.
	Reference string

	// Quast is the QUAST output directory holding
	// the alignments of the assemblies to the
	// reference genome.
	Quast string

	// Genomes are the genome files providing
	// sequence lengths, matched to inputs by label.
	Genomes []string

	// ReferenceGenome is the reference genome file.
	ReferenceGenome string
}

// Input is a loaded and canonicalized mining result.
type Input struct {
	Path  string
	Label string

	// Name is the name of the input in reports.
	Name string

	Tool    bgc.Tool
	Records []bgc.Record
}

// Output is the result of a run.
type Output struct {
	ID   uuid.UUID
	Mode Mode

	Inputs    []Input
	Reference *Input `json:",omitempty"`

	Table pivot.Table

	// Columns holds the classified records
	// aggregated into Table.
	Columns []pivot.Column `json:"-"`

	// Recovery holds the reference mode results
	// keyed by input name.
	Recovery map[string]recovery.Result `json:",omitempty"`

	// Venn holds the tools mode results.
	Venn *venn.Result `json:",omitempty"`

	// Warnings holds the recoverable errors
	// encountered during the run.
	Warnings []error `json:"-"`
}

// ErrNoReference is returned when a reference mode run has no reference
// or no alignment data.
var ErrNoReference = errors.New("pipeline: reference mode requires a reference and alignment data")

// Run runs the analysis described by cfg and req.
func Run(ctx context.Context, cfg Config, req Request) (*Output, error) {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	if len(req.Inputs) == 0 {
		return nil, errors.New("pipeline: no inputs")
	}
	out := &Output{ID: uuid.New()}
	log = log.With(zap.Stringer("run", out.ID))
	warn := func(err error) {
		log.Warn("recovered error", zap.Error(err))
		out.Warnings = append(out.Warnings, err)
	}

	lengths, refLengths, err := loadGenomes(ctx, cfg.Threads, req)
	if err != nil {
		return nil, err
	}

	paths := req.Inputs
	if req.Reference != "" {
		paths = append([]string{req.Reference}, paths...)
	}
	results, err := loadInputs(ctx, cfg.Threads, paths)
	if err != nil {
		return nil, err
	}
	var ref *mining.Result
	if req.Reference != "" {
		ref, results = results[0], results[1:]
	}
	for _, r := range results {
		log.Info("loaded input", zap.String("path", r.Path), zap.String("label", r.Label), zap.Stringer("tool", r.Tool), zap.Int("bgcs", len(r.Raw)))
	}

	out.Mode = cfg.Mode
	if out.Mode == Auto {
		labels := make([]string, len(results))
		tools := make([]bgc.Tool, len(results))
		for i, r := range results {
			labels[i] = r.Label
			tools[i] = r.Tool
		}
		var ok bool
		out.Mode, ok = Detect(ref != nil, labels, tools)
		if !ok {
			warn(fmt.Errorf("could not determine analysis mode for inputs mixing labels and tools: using %s", Samples))
			out.Mode = Samples
		}
	}
	log.Info("analysis mode", zap.Stringer("mode", out.Mode))

	b := bgc.Builder{
		Mapping:      cfg.Mapping,
		MinLength:    cfg.MinLength,
		EdgeDistance: max(cfg.EdgeDistance, 0),
	}
	out.Inputs = make([]Input, len(results))
	for i, r := range results {
		b.Lengths = lengthsFor(r, lengths)
		if b.Lengths == nil {
			log.Debug("no sequence lengths", zap.String("label", r.Label))
		}
		recs, warnings := b.Build(r.Raw)
		for _, w := range warnings {
			warn(w)
		}
		out.Inputs[i] = Input{Path: r.Path, Label: r.Label, Tool: r.Tool, Records: recs}
	}
	var reserved []string
	if out.Mode == Reference && ref != nil {
		reserved = append(reserved, ref.Label)
	}
	setNames(out.Inputs, out.Mode, reserved...)

	switch out.Mode {
	case Reference:
		if ref == nil || req.Quast == "" {
			return nil, ErrNoReference
		}
		b.Lengths = refLengths
		if b.Lengths == nil {
			b.Lengths = ref.Lengths
		}
		recs, warnings := b.Build(ref.Raw)
		for _, w := range warnings {
			warn(w)
		}
		out.Reference = &Input{Path: ref.Path, Label: ref.Label, Name: ref.Label, Tool: ref.Tool, Records: recs}
		err = compareToReference(out, cfg, req.Quast, warn, log)
	case Tools:
		err = compareTools(ctx, out, cfg, log)
	case Samples:
		compareSamples(out)
	default:
		err = fmt.Errorf("pipeline: invalid mode: %v", out.Mode)
	}
	if err != nil {
		return nil, err
	}
	log.Info("run complete", zap.Int("rows", len(out.Table.Rows)), zap.Int("warnings", len(out.Warnings)))
	return out, nil
}

// loadGenomes returns the sequence lengths for the genome files in req
// keyed by genome label, and the lengths for the reference genome.
func loadGenomes(ctx context.Context, threads int, req Request) (map[string]map[string]int, map[string]int, error) {
	paths := req.Genomes
	if req.ReferenceGenome != "" {
		paths = append([]string{req.ReferenceGenome}, paths...)
	}
	lengths := make([]map[string]int, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(threads, 1))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			lengths[i], err = genome.Lengths(p)
			return err
		})
	}
	err := g.Wait()
	if err != nil {
		return nil, nil, err
	}
	var ref map[string]int
	if req.ReferenceGenome != "" {
		ref, lengths, paths = lengths[0], lengths[1:], paths[1:]
	}
	byLabel := make(map[string]map[string]int, len(paths))
	for i, p := range paths {
		byLabel[mining.Label(p)] = lengths[i]
	}
	return byLabel, ref, nil
}

// loadInputs reads the mining results at paths concurrently.
func loadInputs(ctx context.Context, threads int, paths []string) ([]*mining.Result, error) {
	results := make([]*mining.Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(threads, 1))
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			results[i], err = mining.ReadFile(p)
			return err
		})
	}
	return results, g.Wait()
}

// lengthsFor returns the sequence lengths for a mining result, taken
// from the genome with the same label or from the result itself.
func lengthsFor(r *mining.Result, genomes map[string]map[string]int) map[string]int {
	if l, ok := genomes[r.Label]; ok {
		return l
	}
	return r.Lengths
}

// setNames sets the report names of the inputs. Tool runs are named by
// tool and other inputs by label. Names that would collide with each other
// or with a reserved name are qualified.
func setNames(inputs []Input, mode Mode, reserved ...string) {
	base := func(in Input) string {
		if mode == Tools {
			return in.Tool.String()
		}
		return in.Label
	}
	count := make(map[string]int)
	used := make(map[string]bool)
	for _, r := range reserved {
		count[r]++
		used[r] = true
	}
	for _, in := range inputs {
		count[base(in)]++
	}
	for i, in := range inputs {
		name := base(in)
		if count[name] > 1 {
			name = fmt.Sprintf("%s [%s]", in.Label, in.Tool)
		}
		for k := 2; used[name]; k++ {
			name = fmt.Sprintf("%s [%s] (%d)", in.Label, in.Tool, k)
		}
		used[name] = true
		inputs[i].Name = name
	}
}

func compareToReference(out *Output, cfg Config, dir string, warn func(error), log *zap.Logger) error {
	blocks, err := quast.ReadDir(dir)
	if err != nil {
		return err
	}
	out.Recovery = make(map[string]recovery.Result, len(out.Inputs))
	cols := []pivot.Column{{Name: out.Reference.Name, Items: items(out.Reference.Records, nil)}}
	for _, in := range out.Inputs {
		b, ok := blocks[in.Label]
		if !ok {
			warn(fmt.Errorf("no alignment data for %s in %s", in.Label, dir))
		}
		rec, err := align.NewReconciler(b)
		if err != nil {
			return fmt.Errorf("%s: %w", in.Label, err)
		}
		for _, a := range rec.Ambiguous() {
			log.Debug("ambiguous contig", zap.String("label", in.Label), zap.String("contig", a.Contig))
		}
		res, err := recovery.Classify(out.Reference.Records, in.Records, rec, cfg.Threshold)
		if err != nil {
			return fmt.Errorf("%s: %w", in.Label, err)
		}
		for _, w := range res.Warnings {
			warn(fmt.Errorf("%s: %w", in.Label, w))
		}
		full, partial, missed := res.Counts()
		log.Info("recovery",
			zap.String("input", in.Name),
			zap.Int("full", full),
			zap.Int("partial", partial),
			zap.Int("missed", missed),
		)
		out.Recovery[in.Name] = res

		class := make([]string, len(res.References))
		for i, r := range res.References {
			class[i] = "reference " + r.Status.String()
		}
		cols = append(cols, pivot.Column{
			Name:       in.Name,
			Items:      items(in.Records, nil),
			Classified: items(out.Reference.Records, class),
		})
	}
	out.Columns = cols
	out.Table = pivot.Aggregate(cols)
	return nil
}

func compareTools(ctx context.Context, out *Output, cfg Config, log *zap.Logger) error {
	runs := make([]venn.Run, len(out.Inputs))
	for i, in := range out.Inputs {
		runs[i] = venn.Run{Label: in.Name, Tool: in.Tool, Records: in.Records}
	}
	res, err := venn.Compare(ctx, runs, cfg.Threshold, cfg.Threads)
	if err != nil {
		return err
	}
	out.Venn = &res

	cols := make([]pivot.Column, len(out.Inputs))
	for i, in := range out.Inputs {
		u := res.Unique[in.Name]
		class := make([]string, len(u))
		for k, ok := range u {
			if ok {
				class[k] = "unique"
			} else {
				class[k] = "non-unique"
			}
		}
		t := res.Totals[in.Name]
		log.Info("uniqueness", zap.String("input", in.Name), zap.Int("unique", t.Unique), zap.Int("non_unique", t.NonUnique))
		cols[i] = pivot.Column{Name: in.Name, Items: items(in.Records, class)}
	}
	out.Columns = cols
	out.Table = pivot.Aggregate(cols)
	return nil
}

func compareSamples(out *Output) {
	cols := make([]pivot.Column, len(out.Inputs))
	for i, in := range out.Inputs {
		cols[i] = pivot.Column{Name: in.Name, Items: items(in.Records, nil)}
	}
	out.Columns = cols
	out.Table = pivot.Aggregate(cols)
}

// items returns the pivot items for recs with the corresponding classes.
// If class is nil, the items are unclassified.
func items(recs []bgc.Record, class []string) []pivot.Item {
	it := make([]pivot.Item, len(recs))
	for i, r := range recs {
		it[i].Record = r
		if class != nil {
			it[i].Class = class[i]
		}
	}
	return it
}
