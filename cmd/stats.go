package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/AnyUserName/jpeg2png/internal/report"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// DefaultReportName is looked up when stats is given a directory.
const DefaultReportName = "jpeg2png.report.json"

var statsCmd = &cobra.Command{
	Use:   "stats <report_or_dir>",
	Short: "Display statistics for a batch report",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	fsys := afero.NewOsFs()
	path := args[0]

	// If path is a directory, look for the report inside.
	info, err := fsys.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, DefaultReportName)
	}

	r, err := report.ReadJSON(fsys, path)
	if err != nil {
		return err
	}

	printStats(cmd.OutOrStdout(), r)
	return nil
}

func printStats(w io.Writer, r *report.Report) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Report version:   %d\n", r.Version)
	fmt.Fprintf(w, "  Generated:        %s\n", r.GeneratedAt)
	fmt.Fprintf(w, "  Batch:            %s\n", r.BatchID)
	fmt.Fprintf(w, "  Profile:          %s\n", r.Profile)
	if r.BuildInfo != nil {
		fmt.Fprintf(w, "  Workers:          %d\n", r.BuildInfo.Workers)
		fmt.Fprintf(w, "  Elapsed:          %s\n", (time.Duration(r.BuildInfo.ElapsedMs) * time.Millisecond).String())
	}
	fmt.Fprintln(w)

	s := r.Stats
	fmt.Fprintf(w, "  Total:            %d\n", s.Total)
	fmt.Fprintf(w, "  Succeeded:        %d\n", s.Succeeded)
	fmt.Fprintf(w, "  Failed:           %d\n", s.Failed)
	fmt.Fprintf(w, "  Cancelled:        %d\n", s.Cancelled)
	fmt.Fprintf(w, "  Output size:      %s\n", humanize.Bytes(uint64(s.TotalOutputBytes)))
	if s.Succeeded > 0 {
		fmt.Fprintf(w, "  Average PNG:      %s\n", humanize.Bytes(uint64(s.TotalOutputBytes/int64(s.Succeeded))))
	}
	fmt.Fprintln(w)

	// Failure breakdown by kind.
	kinds := map[string]int{}
	for _, it := range r.Items {
		if it.Status != report.StatusOK {
			kinds[it.ErrorKind]++
		}
	}
	if len(kinds) > 0 {
		names := make([]string, 0, len(kinds))
		for k := range kinds {
			names = append(names, k)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "  Failures by kind:")
		for _, k := range names {
			fmt.Fprintf(w, "    %-22s %4d\n", k, kinds[k])
		}
		fmt.Fprintln(w)
	}

	// Largest outputs.
	var ok []report.Item
	for _, it := range r.Items {
		if it.Status == report.StatusOK {
			ok = append(ok, it)
		}
	}
	if len(ok) > 0 {
		sort.Slice(ok, func(i, j int) bool { return ok[i].Size > ok[j].Size })
		n := min(len(ok), 10)
		fmt.Fprintf(w, "  Top %d largest PNGs:\n", n)
		for _, it := range ok[:n] {
			fmt.Fprintf(w, "    %-40s %5dx%-5d %8s  %s\n",
				truncPath(it.Destination, 40), it.Width, it.Height,
				humanize.Bytes(uint64(it.Size)),
				(time.Duration(it.DurationMs) * time.Millisecond).String())
		}
		fmt.Fprintln(w)
	}
}

func truncPath(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
