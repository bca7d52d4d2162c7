// Package simulator drives a generated write sequence through an FTL for
// one or more reclamation algorithms and reports the resulting counters.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sushant-115/gojoftl/config"
	"github.com/sushant-115/gojoftl/core/flash"
	"github.com/sushant-115/gojoftl/core/ftl"
	"github.com/sushant-115/gojoftl/core/workload"
	internaltelemetry "github.com/sushant-115/gojoftl/internal/telemetry"
)

const (
	// cancelCheckInterval is how many writes run between context checks.
	cancelCheckInterval    = 4096
	defaultProgressLogRate = 5 * time.Second
)

var (
	ErrAssignerRequired = errors.New("simulator: writing_assignment needs an Assigner")
	ErrEmptySequence    = errors.New("simulator: empty write sequence")
)

// Assigner chooses the target block of each write for the writing_assignment
// algorithm. It may inspect the FTL, WindowSize in particular, but must not
// write to it.
type Assigner interface {
	Assign(f *ftl.FTL, cursor uint64, lpn flash.LPN) (int, error)
}

// AssignerFunc adapts a function to Assigner.
type AssignerFunc func(f *ftl.FTL, cursor uint64, lpn flash.LPN) (int, error)

func (fn AssignerFunc) Assign(f *ftl.FTL, cursor uint64, lpn flash.LPN) (int, error) {
	return fn(f, cursor, lpn)
}

// Result is the outcome of one simulation.
type Result struct {
	RunID       string
	Algorithm   config.Algorithm
	Geometry    flash.Geometry
	Generations int
	Stats       ftl.Stats
	// Window is the final WindowSize estimate.
	Window   uint64
	Duration time.Duration
}

// WriteAmplification is physical writes per logical write over the whole run.
func (r Result) WriteAmplification() float64 { return r.Stats.WriteAmplification() }

// SteadyWriteAmplification only covers writes after the steady-state threshold.
func (r Result) SteadyWriteAmplification() float64 { return r.Stats.SteadyWriteAmplification() }

// Runner executes simulations for one configuration. It holds no simulation
// state itself: every run builds its own FTL, so Sweep may run them in parallel.
type Runner struct {
	cfg         config.Simulation
	logger      *zap.Logger
	tracer      trace.Tracer
	metrics     *internaltelemetry.FTLMetrics
	observer    ftl.EraseObserver
	assigner    Assigner
	progressLog time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithMetrics records every run into m, tagged by algorithm and run id.
func WithMetrics(m *internaltelemetry.FTLMetrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithObserver adds an erase hook to every run. With Sweep it is called
// from several goroutines.
func WithObserver(o ftl.EraseObserver) Option {
	return func(r *Runner) { r.observer = o }
}

func WithAssigner(a Assigner) Option {
	return func(r *Runner) { r.assigner = a }
}

// WithProgressInterval sets the minimum time between progress log lines.
func WithProgressInterval(d time.Duration) Option {
	return func(r *Runner) { r.progressLog = d }
}

// NewRunner validates cfg and returns a Runner for it.
func NewRunner(cfg config.Simulation, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:         cfg,
		logger:      zap.NewNop(),
		tracer:      nooptrace.NewTracerProvider().Tracer(""),
		progressLog: defaultProgressLogRate,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("simulator")
	return r, nil
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() config.Simulation { return r.cfg }

// Simulate generates the configured sequence and runs every configured
// algorithm over it.
func (r *Runner) Simulate(ctx context.Context) ([]Result, error) {
	seq, err := BuildSequence(r.cfg)
	if err != nil {
		return nil, err
	}
	return r.Sweep(ctx, seq, r.cfg.Algorithms()...)
}

// Sweep runs each algorithm on seq concurrently, one FTL per algorithm.
// Results come back in the order of algs. The first failure cancels the rest.
func (r *Runner) Sweep(ctx context.Context, seq []flash.LPN, algs ...config.Algorithm) ([]Result, error) {
	results := make([]Result, len(algs))
	g, gctx := errgroup.WithContext(ctx)
	for i, alg := range algs {
		g.Go(func() error {
			res, err := r.Run(gctx, alg, seq)
			if err != nil {
				return fmt.Errorf("%s: %w", alg, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Run drives seq through a fresh FTL with algorithm alg.
func (r *Runner) Run(ctx context.Context, alg config.Algorithm, seq []flash.LPN) (Result, error) {
	if len(seq) == 0 {
		return Result{}, ErrEmptySequence
	}
	if alg == config.WritingAssignment && r.assigner == nil {
		return Result{}, ErrAssignerRequired
	}

	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID), zap.Stringer("algorithm", alg))
	ctx, span := r.tracer.Start(ctx, "simulator.Run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("algorithm", alg.String()),
		attribute.Int("physical_blocks", r.cfg.PhysicalBlocks),
		attribute.Int("logical_blocks", r.cfg.LogicalBlocks),
		attribute.Int("pages_per_block", r.cfg.PagesPerBlock),
		attribute.Int("writes", len(seq)),
	))
	defer span.End()

	var recorder *internaltelemetry.Recorder
	observers := []ftl.EraseObserver{r.observer}
	if r.cfg.PrintMode {
		observers = append(observers, PrintObserver(log))
	}
	if r.metrics != nil {
		recorder = internaltelemetry.NewRecorder(ctx, r.metrics, alg.String(), runID)
		observers = append(observers, recorder)
	}

	generations := r.cfg.Generations
	if generations == 0 {
		generations = ftl.DefaultGenerations(r.cfg.Geometry)
	}
	opts := []ftl.Option{
		ftl.WithLogger(log),
		ftl.WithObserver(ftl.MultiObserver(observers...)),
		ftl.WithGenerations(generations),
	}
	if r.cfg.SteadyState.Enabled {
		opts = append(opts, ftl.WithSteadyState(r.cfg.SteadyThreshold()))
	}
	f, err := ftl.New(r.cfg.Geometry, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	var nextUse *workload.NextUseIndex
	if alg == config.Generational {
		if nextUse, err = workload.NewNextUseIndex(seq, r.cfg.LogicalPages()); err != nil {
			return Result{}, err
		}
	}

	log.Info("Starting simulation",
		zap.Int("writes", len(seq)),
		zap.Int("generations", generations),
		zap.Int("alpha", f.Alpha()),
		zap.Stringer("window", r.cfg.Window.Flag),
	)
	start := time.Now()
	progress := rate.Sometimes{Interval: r.progressLog}
	horizon := uint64(r.cfg.LogicalPages())

	for i, lpn := range seq {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				log.Warn("Simulation cancelled", zap.Int("written", i), zap.Error(err))
				return Result{}, err
			}
		}
		cursor := uint64(i)
		view := r.visible(seq, cursor)

		switch alg {
		case config.Greedy:
			err = f.Write(nil, lpn, ftl.Greedy{})
		case config.GreedyLookahead:
			err = f.Write(nil, lpn, ftl.Lookahead{Sequence: view, Cursor: cursor})
		case config.Generational:
			gen := nextUse.Generation(cursor, generations, horizon)
			err = f.Write(nil, lpn, ftl.Generational{Generation: gen, Sequence: view, Cursor: cursor})
		case config.WritingAssignment:
			var block int
			if block, err = r.assigner.Assign(f, cursor, lpn); err == nil {
				err = f.WriteToBlock(nil, lpn, block, ftl.Lookahead{Sequence: view, Cursor: cursor})
			}
		default:
			err = fmt.Errorf("%w: %s", config.ErrInvalidAlgorithm, alg)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Result{}, fmt.Errorf("write %d (page %d): %w", i, lpn, err)
		}

		progress.Do(func() {
			stats := f.Stats()
			log.Info("Simulation progress",
				zap.Int("written", i+1),
				zap.Uint64("erases", stats.Erases),
				zap.Float64("writeAmplification", stats.WriteAmplification()),
			)
		})
	}

	stats := f.Stats()
	if recorder != nil {
		recorder.Flush(stats)
	}
	res := Result{
		RunID:       runID,
		Algorithm:   alg,
		Geometry:    r.cfg.Geometry,
		Generations: generations,
		Stats:       stats,
		Window:      f.WindowSize(),
		Duration:    time.Since(start),
	}
	span.SetAttributes(
		attribute.Int64("erases", int64(stats.Erases)),
		attribute.Float64("write_amplification", stats.WriteAmplification()),
	)
	log.Info("Simulation finished",
		zap.Uint64("erases", stats.Erases),
		zap.Uint64("physicalWrites", stats.PhysicalWrites),
		zap.Float64("writeAmplification", stats.WriteAmplification()),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// visible is the part of seq lookahead scoring may see at cursor.
func (r *Runner) visible(seq []flash.LPN, cursor uint64) []flash.LPN {
	if r.cfg.Window.Flag != config.WindowOn {
		return seq
	}
	end := min(cursor+r.cfg.Window.Size, uint64(len(seq)))
	return seq[:end]
}
