package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scrub/internal/batch"
)

func newReportCmd() *cobra.Command {
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "report <file>",
		Short: "Print a run report written by redact --report",
		Long: `Report reads a JSON run report, compressed or not, and prints its totals and
per-file results. Compression is chosen by extension (.gz, .zst, .lz4, .sz, .s2).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := batch.ReadReport(args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep, failedOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list files that ended with an error")
	return cmd
}

func printReport(w io.Writer, rep *batch.Report, failedOnly bool) {
	fmt.Fprintf(w, "run: %s\n", rep.RunID)
	fmt.Fprintf(w, "started: %s  duration: %dms  halted: %t\n",
		rep.StartedAt.Format(time.RFC3339), rep.DurationMS, rep.Halted)

	outcomes := make([]string, 0, len(rep.Totals))
	for outcome := range rep.Totals {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fmt.Fprintf(w, "  %-12s %d\n", outcome, rep.Totals[outcome])
	}
	fmt.Fprintf(w, "values redacted: %d\n", rep.ValuesRedacted)

	for _, f := range rep.Files {
		if failedOnly && f.ErrorKind == "" {
			continue
		}
		if f.ErrorKind != "" {
			fmt.Fprintf(w, "%-12s %s [%s] %s\n", f.Outcome, f.Path, f.ErrorKind, f.Error)
			continue
		}
		fmt.Fprintf(w, "%-12s %s\n", f.Outcome, f.Path)
	}
	for _, path := range rep.NotProcessed {
		fmt.Fprintf(w, "%-12s %s\n", "not_started", path)
	}
	for _, path := range rep.LeftoverBackups {
		fmt.Fprintf(w, "%-12s %s\n", "leftover", path)
	}
}
