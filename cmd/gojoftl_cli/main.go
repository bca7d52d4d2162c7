package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/config"
	"github.com/sushant-115/gojoftl/pkg/logger"
)

var (
	configPath     = flag.String("config", "", "YAML configuration file for the geometry")
	physicalBlocks = flag.Int("physical_blocks", 8, "Number of physical blocks (T)")
	logicalBlocks  = flag.Int("logical_blocks", 6, "Number of logical blocks (U)")
	pagesPerBlock  = flag.Int("pages_per_block", 4, "Pages per block (Z)")
	logLevel       = flag.String("log_level", "warn", "debug, info, warn or error")
	historyFile    = flag.String("history", "/tmp/gojoftl_cli.history", "Readline history file")
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem("write"),
	readline.PcItem("write_block"),
	readline.PcItem("read"),
	readline.PcItem("gen"),
	readline.PcItem("step",
		readline.PcItem("greedy"),
		readline.PcItem("greedy_lookahead"),
		readline.PcItem("generational"),
	),
	readline.PcItem("stats"),
	readline.PcItem("buckets"),
	readline.PcItem("free"),
	readline.PcItem("window"),
	readline.PcItem("layout"),
	readline.PcItem("sweep"),
	readline.PcItem("check"),
	readline.PcItem("reset"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		cfg = loaded
	} else {
		cfg.PhysicalBlocks = *physicalBlocks
		cfg.LogicalBlocks = *logicalBlocks
		cfg.PagesPerBlock = *pagesPerBlock
	}
	if err := cfg.Geometry.Validate(); err != nil {
		log.Fatalf("Error: %v", err)
	}

	zlogger, err := logger.New(logger.Config{Level: *logLevel, Format: "console", OutputFile: "stderr"})
	if err != nil {
		log.Fatalf("Error: can't initialize zap logger: %v", err)
	}
	defer zlogger.Sync()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gojoftl> ",
		HistoryFile:     *historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("Error: can't initialize readline: %v", err)
	}
	defer rl.Close()

	sh, err := newShell(cfg.Geometry, zlogger, rl.Stdout())
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	fmt.Fprintf(rl.Stdout(), "gojoftl shell: T=%d U=%d Z=%d. Type 'help' for commands, 'exit' or 'quit' to leave.\n",
		cfg.PhysicalBlocks, cfg.LogicalBlocks, cfg.PagesPerBlock)

	if err := repl(rl, sh); err != nil {
		zlogger.Error("Shell stopped", zap.Error(err))
		os.Exit(1)
	}
}

func repl(rl *readline.Instance, sh *shell) error {
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			if len(line) == 0 {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		if err := sh.exec(line); errors.Is(err, errExit) {
			fmt.Fprintln(rl.Stdout(), "Exiting gojoftl shell.")
			return nil
		}
	}
}
