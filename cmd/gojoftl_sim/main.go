package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/config"
	"github.com/sushant-115/gojoftl/core/simulator"
	internaltelemetry "github.com/sushant-115/gojoftl/internal/telemetry"
	"github.com/sushant-115/gojoftl/pkg/logger"
	"github.com/sushant-115/gojoftl/pkg/telemetry"
)

var (
	configPath     = flag.String("config", "", "YAML configuration file; flags override its values")
	physicalBlocks = flag.Int("physical_blocks", 0, "Number of physical blocks (T)")
	logicalBlocks  = flag.Int("logical_blocks", 0, "Number of logical blocks (U)")
	pagesPerBlock  = flag.Int("pages_per_block", 0, "Pages per block (Z)")
	pageSize       = flag.Int("page_size", 0, "Page size in bytes")
	numberOfPages  = flag.Uint64("pages", 0, "Length of the write sequence (N)")
	windowFlag     = flag.String("window", "", "window_on or window_off")
	windowSize     = flag.Uint64("window_size", 0, "Future writes visible to lookahead when the window is on, in [0,N]")
	distribution   = flag.String("distribution", "", "uniform or hot_cold")
	hotPercentage  = flag.Float64("hot_percentage", 0, "Percentage of logical pages in the hot area, hot_cold only")
	hotProbability = flag.Float64("hot_probability", 0, "Probability that a write is hot, hot_cold only")
	algorithm      = flag.String("algorithm", "", "greedy, greedy_lookahead, generational or writing_assignment")
	generations    = flag.Int("generations", 0, "Generations for the generational algorithm, in [0,T-U]; 0 picks a heuristic")
	sweep          = flag.String("sweep", "", "Comma separated algorithms to run on the same sequence")
	seed           = flag.Uint64("seed", 0, "Sequence seed; 0 is the canonical KISS start state")
	printMode      = flag.Bool("print_mode", false, "Log the validity index after every erase")
	steadyState    = flag.Bool("steady_state", true, "Collect steady-state counters")
	steadyAfter    = flag.Uint64("steady_threshold", 0, "Logical writes before steady state; 0 means one pass over the logical space")
	outputFile     = flag.String("output", "", "Append the report to this file instead of stdout")
	logLevel       = flag.String("log_level", "", "debug, info, warn or error")
	metricsPort    = flag.Int("metrics_port", 0, "Enable telemetry and serve /metrics on this port")
	dumpConfig     = flag.Bool("dump_config", false, "Print the effective configuration and exit")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Printf("ERROR: %v", err)
		usage()
		os.Exit(2)
	}
	if *dumpConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			log.Fatalf("CRITICAL: Failed to dump config: %v", err)
		}
		return
	}

	zlogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("CRITICAL: Can't initialize zap logger: %v", err)
	}
	defer zlogger.Sync()

	if err := run(cfg, zlogger); err != nil {
		zlogger.Fatal("Simulation failed", zap.Error(err))
	}
}

func run(cfg config.Simulation, zlogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, shutdown, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			zlogger.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()
	metrics, err := internaltelemetry.NewFTLMetrics(tel.Meter)
	if err != nil {
		return fmt.Errorf("failed to create FTL metrics: %w", err)
	}

	zlogger.Info("Starting GC simulator",
		zap.Int("physicalBlocks", cfg.PhysicalBlocks),
		zap.Int("logicalBlocks", cfg.LogicalBlocks),
		zap.Int("pagesPerBlock", cfg.PagesPerBlock),
		zap.Int("pageSize", cfg.PageSize),
		zap.Float64("overProvisioning", cfg.OverProvisioning()),
		zap.Uint64("numberOfPages", cfg.TotalPages),
		zap.Stringer("distribution", cfg.Workload.Distribution),
		zap.Stringers("algorithms", cfg.Algorithms()),
	)

	runner, err := simulator.NewRunner(cfg,
		simulator.WithLogger(zlogger),
		simulator.WithTracer(tel.Tracer),
		simulator.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}
	results, err := runner.Simulate(ctx)
	if err != nil {
		return err
	}

	out, closeOut, err := reportWriter(cfg.OutputFile)
	if err != nil {
		return err
	}
	defer closeOut()
	return simulator.WriteReport(out, cfg, results)
}

// loadConfig layers Default, the optional YAML file and the flags set on
// the command line, in that order.
func loadConfig() (config.Simulation, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return config.Simulation{}, err
		}
		cfg = loaded
	}

	var errs []error
	flag.Visit(func(f *flag.Flag) {
		if err := applyFlag(&cfg, f.Name); err != nil {
			errs = append(errs, fmt.Errorf("-%s: %w", f.Name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return config.Simulation{}, err
	}
	return cfg, cfg.Validate()
}

func applyFlag(cfg *config.Simulation, name string) error {
	var err error
	switch name {
	case "physical_blocks":
		cfg.PhysicalBlocks = *physicalBlocks
	case "logical_blocks":
		cfg.LogicalBlocks = *logicalBlocks
	case "pages_per_block":
		cfg.PagesPerBlock = *pagesPerBlock
	case "page_size":
		cfg.PageSize = *pageSize
	case "pages":
		cfg.TotalPages = *numberOfPages
	case "window":
		cfg.Window.Flag, err = config.ParseWindowFlag(*windowFlag)
	case "window_size":
		cfg.Window.Size = *windowSize
	case "distribution":
		cfg.Workload.Distribution, err = config.ParseDistribution(*distribution)
	case "hot_percentage":
		cfg.Workload.HotPagePercentage = *hotPercentage
	case "hot_probability":
		cfg.Workload.HotProbability = *hotProbability
	case "algorithm":
		cfg.Algorithm, err = config.ParseAlgorithm(*algorithm)
	case "generations":
		cfg.Generations = *generations
	case "sweep":
		cfg.Sweep = nil
		for _, name := range strings.Split(*sweep, ",") {
			a, perr := config.ParseAlgorithm(strings.TrimSpace(name))
			if perr != nil {
				return perr
			}
			cfg.Sweep = append(cfg.Sweep, a)
		}
	case "seed":
		cfg.Seed = *seed
	case "print_mode":
		cfg.PrintMode = *printMode
	case "steady_state":
		cfg.SteadyState.Enabled = *steadyState
	case "steady_threshold":
		cfg.SteadyState.Threshold = *steadyAfter
	case "output":
		cfg.OutputFile = *outputFile
	case "log_level":
		cfg.Logger.Level = *logLevel
	case "metrics_port":
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.PrometheusPort = *metricsPort
	}
	return err
}

// reportWriter opens the report destination. Files are appended to.
func reportWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output file %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Garbage collection (GC) simulator.

Simulates a flash translation layer with T physical and U logical blocks of Z
pages and drives N page writes through it with the chosen algorithm.
Generational runs accept 1 to T-U generations; 0 picks a heuristic.

Usage: gojoftl_sim [flags]

`)
	flag.PrintDefaults()
}
