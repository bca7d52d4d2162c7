package simulator

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sushant-115/gojoftl/config"
)

// WriteReport prints the run parameters followed by one row per result.
func WriteReport(w io.Writer, cfg config.Simulation, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Physical Blocks:\t%d\n", cfg.PhysicalBlocks)
	fmt.Fprintf(tw, "Logical Blocks:\t%d\n", cfg.LogicalBlocks)
	fmt.Fprintf(tw, "Pages/Block:\t%d\n", cfg.PagesPerBlock)
	fmt.Fprintf(tw, "Page Size:\t%s\n", humanize.IBytes(uint64(cfg.PageSize)))
	fmt.Fprintf(tw, "Alpha:\t%.4f\n", cfg.Geometry.Alpha())
	fmt.Fprintf(tw, "Over Provisioning:\t%.4f\n", cfg.OverProvisioning())
	fmt.Fprintf(tw, "Number of Pages:\t%s\n", humanize.Comma(int64(cfg.TotalPages)))
	fmt.Fprintf(tw, "Page Distribution:\t%s\n", cfg.Workload.Distribution)
	if cfg.Window.Flag == config.WindowOn {
		fmt.Fprintf(tw, "Window Size:\t%s\n", humanize.Comma(int64(cfg.Window.Size)))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "ALGORITHM\tGENS\tLOGICAL\tPHYSICAL\tERASES\tWA\tSTEADY WA\tWINDOW\tDURATION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%.4f\t%.4f\t%s\t%s\n",
			r.Algorithm,
			r.Generations,
			humanize.Comma(int64(r.Stats.LogicalWrites)),
			humanize.Comma(int64(r.Stats.PhysicalWrites)),
			humanize.Comma(int64(r.Stats.Erases)),
			r.WriteAmplification(),
			r.SteadyWriteAmplification(),
			humanize.Comma(int64(r.Window)),
			r.Duration.Round(time.Millisecond),
		)
	}
	return tw.Flush()
}
