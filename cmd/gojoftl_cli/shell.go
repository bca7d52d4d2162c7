package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/sushant-115/gojoftl/config"
	"github.com/sushant-115/gojoftl/core/flash"
	"github.com/sushant-115/gojoftl/core/ftl"
	"github.com/sushant-115/gojoftl/core/workload"
)

var errExit = errors.New("exit")

var (
	okColor   = color.New(color.FgGreen)
	errColor  = color.New(color.FgRed)
	infoColor = color.New(color.FgCyan)
)

// shell is an interactive session over a single FTL. It keeps a generated
// write sequence and a cursor into it so lookahead policies can be stepped
// by hand.
type shell struct {
	geo    flash.Geometry
	logger *zap.Logger
	out    io.Writer

	ftl     *ftl.FTL
	seq     []flash.LPN
	nextUse *workload.NextUseIndex
	cursor  uint64
	erases  []ftl.EraseEvent
}

func newShell(geo flash.Geometry, logger *zap.Logger, out io.Writer) (*shell, error) {
	sh := &shell{geo: geo, logger: logger, out: out}
	return sh, sh.reset()
}

func (sh *shell) reset() error {
	f, err := ftl.New(sh.geo,
		ftl.WithLogger(sh.logger),
		ftl.WithObserver(ftl.EraseObserverFunc(func(ev ftl.EraseEvent) {
			sh.erases = append(sh.erases, ev)
		})),
		ftl.WithSteadyState(uint64(sh.geo.LogicalPages())),
	)
	if err != nil {
		return err
	}
	sh.ftl, sh.erases, sh.cursor = f, nil, 0
	return nil
}

// exec runs one command line. It returns errExit when the session should end.
func (sh *shell) exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	before := len(sh.erases)
	err := sh.dispatch(strings.ToLower(args[0]), args[1:])
	if errors.Is(err, errExit) {
		return err
	}
	if err != nil {
		errColor.Fprintf(sh.out, "Error: %v\n", err)
		return nil
	}
	for _, ev := range sh.erases[before:] {
		infoColor.Fprintf(sh.out, "erased block %d (relocated %d, in place %t)\n", ev.Victim, ev.Relocated, ev.InPlace)
	}
	return nil
}

func (sh *shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "write":
		if len(args) != 1 {
			return errors.New("write requires <lpn>")
		}
		lpn, err := parseLPN(args[0])
		if err != nil {
			return err
		}
		if err := sh.ftl.Write(nil, lpn, ftl.Greedy{}); err != nil {
			return err
		}
		return sh.printLocation(lpn)
	case "write_block":
		if len(args) != 2 {
			return errors.New("write_block requires <lpn> <block>")
		}
		lpn, err := parseLPN(args[0])
		if err != nil {
			return err
		}
		block, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid block %q", args[1])
		}
		if err := sh.ftl.WriteToBlock(nil, lpn, block, ftl.Lookahead{Sequence: sh.seqOrEmpty(), Cursor: sh.cursor}); err != nil {
			return err
		}
		return sh.printLocation(lpn)
	case "read":
		if len(args) != 1 {
			return errors.New("read requires <lpn>")
		}
		lpn, err := parseLPN(args[0])
		if err != nil {
			return err
		}
		if err := sh.ftl.Read(make([]byte, sh.geo.PageSize), lpn); err != nil {
			return err
		}
		return sh.printLocation(lpn)
	case "gen":
		return sh.generate(args)
	case "step":
		return sh.step(args)
	case "stats":
		s := sh.ftl.Stats()
		fmt.Fprintf(sh.out, "logical=%d physical=%d relocated=%d erases=%d wa=%.4f steady_wa=%.4f anomalies=%d\n",
			s.LogicalWrites, s.PhysicalWrites, s.RelocatedPages, s.Erases,
			s.WriteAmplification(), s.SteadyWriteAmplification(), s.Anomalies)
	case "buckets":
		fmt.Fprintf(sh.out, "min_valid=%d sizes=%v\n", sh.ftl.UpdateMinValid(), sh.ftl.BucketSizes())
		for valid, n := range sh.ftl.BucketSizes() {
			if n > 0 {
				fmt.Fprintf(sh.out, "  %d: %v\n", valid, sh.ftl.Bucket(valid))
			}
		}
	case "free":
		fmt.Fprintf(sh.out, "free=%v\n", sh.ftl.FreeBlocks())
	case "window":
		fmt.Fprintf(sh.out, "window=%d\n", sh.ftl.WindowSize())
	case "layout":
		return sh.ftl.DumpLayout(sh.out)
	case "sweep":
		fmt.Fprintf(sh.out, "swept=%d\n", sh.ftl.SweepFullBlocks())
	case "check":
		if err := sh.ftl.CheckInvariants(); err != nil {
			return err
		}
		if id, ok := sh.ftl.BruteForceMinValid(); ok {
			info, err := sh.ftl.Block(id)
			if err != nil {
				return err
			}
			if info.Valid != sh.ftl.UpdateMinValid() {
				return fmt.Errorf("brute force minimum %d disagrees with index %d", info.Valid, sh.ftl.UpdateMinValid())
			}
		}
		okColor.Fprintln(sh.out, "OK")
	case "reset":
		if err := sh.reset(); err != nil {
			return err
		}
		okColor.Fprintln(sh.out, "OK")
	case "help":
		sh.help()
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", cmd)
	}
	return nil
}

// generate replaces the session sequence: gen <n> [seed] [hot_pct hot_prob].
func (sh *shell) generate(args []string) error {
	if len(args) != 1 && len(args) != 2 && len(args) != 4 {
		return errors.New("gen requires <n> [seed] [hot_percentage hot_probability]")
	}
	n, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid length %q", args[0])
	}
	var seed uint64
	if len(args) >= 2 {
		if seed, err = strconv.ParseUint(args[1], 10, 64); err != nil {
			return fmt.Errorf("invalid seed %q", args[1])
		}
	}

	src := workload.NewKISS(seed)
	var seq []flash.LPN
	if len(args) == 4 {
		var hc workload.HotCold
		if hc.HotPagePercentage, err = strconv.ParseFloat(args[2], 64); err != nil {
			return fmt.Errorf("invalid hot percentage %q", args[2])
		}
		if hc.HotProbability, err = strconv.ParseFloat(args[3], 64); err != nil {
			return fmt.Errorf("invalid hot probability %q", args[3])
		}
		seq, err = hc.Sequence(src, sh.geo.LogicalPages(), n)
	} else {
		seq, err = workload.Uniform(src, sh.geo.LogicalPages(), n)
	}
	if err != nil {
		return err
	}
	nextUse, err := workload.NewNextUseIndex(seq, sh.geo.LogicalPages())
	if err != nil {
		return err
	}
	sh.seq, sh.nextUse, sh.cursor = seq, nextUse, 0
	okColor.Fprintf(sh.out, "generated %d writes\n", len(seq))
	return nil
}

// step drives the next writes of the session sequence: step <algorithm> [n].
func (sh *shell) step(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("step requires <algorithm> [n]")
	}
	if sh.seq == nil {
		return errors.New("no sequence, run gen first")
	}
	alg, err := config.ParseAlgorithm(args[0])
	if err != nil {
		return err
	}
	n := uint64(1)
	if len(args) == 2 {
		if n, err = strconv.ParseUint(args[1], 10, 64); err != nil {
			return fmt.Errorf("invalid count %q", args[1])
		}
	}

	if alg == config.WritingAssignment {
		return fmt.Errorf("%s cannot be stepped, use write_block", alg)
	}

	gens := sh.ftl.Generations()
	for ; n > 0 && sh.cursor < uint64(len(sh.seq)); n-- {
		lpn := sh.seq[sh.cursor]
		var p ftl.Policy
		switch alg {
		case config.GreedyLookahead:
			p = ftl.Lookahead{Sequence: sh.seq, Cursor: sh.cursor}
		case config.Generational:
			gen := sh.nextUse.Generation(sh.cursor, gens, uint64(sh.geo.LogicalPages()))
			p = ftl.Generational{Generation: gen, Sequence: sh.seq, Cursor: sh.cursor}
		default:
			p = ftl.Greedy{}
		}
		if err := sh.ftl.Write(nil, lpn, p); err != nil {
			return err
		}
		sh.cursor++
	}
	fmt.Fprintf(sh.out, "cursor=%d/%d\n", sh.cursor, len(sh.seq))
	return nil
}

func (sh *shell) seqOrEmpty() []flash.LPN {
	if sh.seq == nil {
		return []flash.LPN{}
	}
	return sh.seq
}

func (sh *shell) printLocation(lpn flash.LPN) error {
	ref, ok := sh.ftl.Lookup(lpn)
	if !ok {
		fmt.Fprintf(sh.out, "page %d is unmapped\n", lpn)
		return nil
	}
	fmt.Fprintf(sh.out, "page %d -> block %d slot %d\n", lpn, ref.Block, ref.Slot)
	return nil
}

func (sh *shell) help() {
	fmt.Fprintln(sh.out, "Commands:")
	fmt.Fprintln(sh.out, "  write <lpn>                 greedy write")
	fmt.Fprintln(sh.out, "  write_block <lpn> <block>   write into a chosen block")
	fmt.Fprintln(sh.out, "  read <lpn>")
	fmt.Fprintln(sh.out, "  gen <n> [seed] [hot_pct hot_prob]")
	fmt.Fprintln(sh.out, "  step <algorithm> [n]        greedy, greedy_lookahead or generational")
	fmt.Fprintln(sh.out, "  stats | buckets | free | window | layout")
	fmt.Fprintln(sh.out, "  sweep                       reclaim fully obsolete blocks")
	fmt.Fprintln(sh.out, "  check                       verify internal consistency")
	fmt.Fprintln(sh.out, "  reset | help | exit")
}

func parseLPN(s string) (flash.LPN, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid logical page %q", s)
	}
	return flash.LPN(v), nil
}
