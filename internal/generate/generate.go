// Package generate drives dataset-wide synthesis runs: it pairs or walks
// source images, fans the work out over a bounded worker pool, and records
// every written image in the run's metadata logs.
package generate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"scenegen/internal/config"
	sgimage "scenegen/internal/image"
	"scenegen/internal/inpaint"
	"scenegen/internal/metadata"
	"scenegen/internal/synth"
)

var (
	// ErrSystemic marks failures that abort the whole run rather than a
	// single sample.
	ErrSystemic = errors.New("systemic generation failure")
)

// Kind names a generator.
type Kind string

const (
	KindBBoxReplace Kind = "bboxreplace"
	KindSegReplace  Kind = "segreplace"
	KindCompose     Kind = "compose"
	KindClassify    Kind = "classify"
	KindOutlines    Kind = "outlines"
)

// Kinds lists every generator.
func Kinds() []Kind {
	return []Kind{KindBBoxReplace, KindSegReplace, KindCompose, KindClassify, KindOutlines}
}

// ParseKind parses a generator name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == strings.ToLower(strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown generator %q", s)
}

// Options are the settings shared by every generator.
type Options struct {
	OutputDir   string
	Ext         string
	Count       int
	Compare     bool
	Background  synth.BackgroundMode
	Seed        int64
	Workers     int
	BatchSize   int
	RatioGroups int
	CategoryIDs []int
	Place       synth.PlaceParams
	Swap        synth.SwapParams
}

// DefaultOptions mirrors config.Default.
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.Default())
	return opts
}

// OptionsFromConfig validates cfg and converts it.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid config: %w", err)
	}
	mode, _ := cfg.BackgroundMode()
	place, _ := cfg.PlaceParams()
	swap, err := cfg.SwapParams()
	if err != nil {
		return Options{}, err
	}
	return Options{
		OutputDir:   cfg.Output.Dir,
		Ext:         cfg.Output.Ext,
		Count:       cfg.Generate.Count,
		Compare:     cfg.Generate.Compare,
		Background:  mode,
		Seed:        cfg.Generate.Seed,
		Workers:     cfg.Generate.Workers,
		BatchSize:   cfg.Generate.BatchSize,
		RatioGroups: cfg.Generate.RatioGroups,
		CategoryIDs: cfg.Data.CategoryIDs,
		Place:       place,
		Swap:        swap,
	}, nil
}

// withDefaults fills zero batching and pool settings.
func (o Options) withDefaults() Options {
	if o.Ext == "" {
		o.Ext = ".png"
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.BatchSize < 2 {
		o.BatchSize = 20
	}
	if o.RatioGroups < 1 {
		o.RatioGroups = 5
	}
	return o
}

// Stats counts the outcome of a run.
type Stats struct {
	Generated int // images written
	Skipped   int // images already on disk
	Failed    int // samples abandoned after an error
}

func (s Stats) String() string {
	return fmt.Sprintf("%d generated, %d skipped, %d failed", s.Generated, s.Skipped, s.Failed)
}

// Generator produces one kind of dataset.
type Generator interface {
	Generate(ctx context.Context) (Stats, error)
}

// Run executes g and records the run in OutputDir/run.json.
func Run(ctx context.Context, kind Kind, g Generator, opts Options, version string, cfg any) (Stats, error) {
	manifest := metadata.NewRunManifest(string(kind), version, opts.Seed, cfg)
	log.Printf("run %s: %s into %s", manifest.RunID, kind, opts.OutputDir)

	stats, err := g.Generate(ctx)

	manifest.Finished = time.Now().UTC()
	manifest.Generated = stats.Generated
	manifest.Skipped = stats.Skipped
	manifest.Failed = stats.Failed
	if werr := manifest.Write(opts.OutputDir); werr != nil && err == nil {
		err = fmt.Errorf("%v: %w", werr, ErrSystemic)
	}
	return stats, err
}

// runner holds the state one generator run shares across its jobs.
type runner struct {
	opts    Options
	dir     string
	rng     *rand.Rand // master source; only touched by the enqueuing goroutine
	samples *metadata.Log
	pairs   *metadata.Log
	neutral synth.Neutralizer

	mu    sync.Mutex
	stats Stats
}

// newRunner prepares dir under the output directory and opens the logs.
// Any failure here is systemic.
func newRunner(opts Options, subdir string, inpainter inpaint.Inpainter, sampleLog bool) (*runner, error) {
	dir := filepath.Join(opts.OutputDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %v: %w", err, ErrSystemic)
	}

	r := &runner{
		opts:    opts,
		dir:     dir,
		rng:     rand.New(rand.NewSource(opts.Seed)),
		neutral: synth.Neutralizer{Mode: opts.Background},
	}

	if sampleLog {
		l, err := metadata.OpenLog(filepath.Join(dir, metadata.FileName), metadata.SampleHeader)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrSystemic)
		}
		r.samples = l
	}
	if sampleLog && opts.Compare {
		l, err := metadata.OpenLog(filepath.Join(dir, metadata.CompareDirName, metadata.FileName), metadata.ComparisonHeader)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrSystemic)
		}
		r.pairs = l
	}

	if opts.Background == synth.BackgroundInpaint {
		if inpainter == nil {
			return nil, fmt.Errorf("inpaint background without an inpainter: %w", ErrSystemic)
		}
		r.neutral.Inpainter = &firstCallGuard{inner: inpainter}
	}
	return r, nil
}

// jobRand derives an independent source for one job from the master source.
func (r *runner) jobRand() *rand.Rand {
	return rand.New(rand.NewSource(r.rng.Int63()))
}

// save writes img as dir/name and, when l is set, logs row(path). An image
// already on disk is counted as skipped and logs nothing.
func (r *runner) save(img image.Image, dir, name string, l *metadata.Log, row func(path string) metadata.Row) (string, bool, error) {
	path, err := sgimage.Save(img, dir, name, r.opts.Ext)
	if errors.Is(err, sgimage.ErrExists) {
		r.mu.Lock()
		r.stats.Skipped++
		r.mu.Unlock()
		return path, false, nil
	}
	if err != nil {
		return "", false, err
	}

	if l != nil && row != nil {
		if err := l.Append(row(path)); err != nil {
			return path, true, fmt.Errorf("failed to log %s: %w", path, err)
		}
	}
	r.mu.Lock()
	r.stats.Generated++
	r.mu.Unlock()
	return path, true, nil
}

// output names one file a job writes.
type output struct {
	dir, name string
}

// skipExisting reports whether every output is already on disk, counting
// each as skipped when so. Comparison outputs are passed only when pairs
// are logged.
func (r *runner) skipExisting(outs ...output) bool {
	for _, o := range outs {
		if !sgimage.Exists(o.dir, o.name, r.opts.Ext) {
			return false
		}
	}
	r.mu.Lock()
	r.stats.Skipped += len(outs)
	r.mu.Unlock()
	return true
}

// logSample saves a labelled image into the sample log.
func (r *runner) logSample(img image.Image, dir, name, imageID string, correct bool) (string, error) {
	path, _, err := r.save(img, dir, name, r.samples, func(path string) metadata.Row {
		return metadata.SampleRow{ImageID: imageID, Path: path, Correct: correct}
	})
	return path, err
}

// logComparison builds and saves a comparison pair when comparisons are on.
func (r *runner) logComparison(rng synth.Rand, correct, incorrect image.Image, dir, name, pairID string) error {
	if r.pairs == nil {
		return nil
	}
	combined, idx := synth.BuildComparison(rng, correct, incorrect)
	_, _, err := r.save(combined, dir, name, r.pairs, func(path string) metadata.Row {
		return metadata.ComparisonRow{ImageID1: pairID, ImageID2: pairID, Path: path, CorrectIndex: idx}
	})
	return err
}

func (r *runner) finish(p *pool) (Stats, error) {
	failed, err := p.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.stats
	stats.Failed += failed
	return stats, err
}
