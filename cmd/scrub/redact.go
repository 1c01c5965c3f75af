package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/scrub/internal/batch"
	"github.com/ajitpratap0/scrub/pkg/config"
	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/logger"
	"github.com/ajitpratap0/scrub/pkg/metrics"
	"github.com/ajitpratap0/scrub/pkg/observability"
	"github.com/ajitpratap0/scrub/pkg/parquetfile"
	"github.com/ajitpratap0/scrub/pkg/redact"
	"github.com/ajitpratap0/scrub/pkg/transaction"
)

func newRedactCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "redact <dir>",
		Short: "Redact search terms from every Parquet file under a directory",
		Long: `Redact walks <dir>, and for every matching file replaces each occurrence of
each search term in its string columns. Terms are matched case-sensitively as
substrings and applied in the order given.

Settings are read from defaults, then --config, then SCRUB_* environment
variables (e.g. SCRUB_REDACTION_TERMS, SCRUB_BATCH_WORKERS), then flags.

Example:
  scrub redact ./exports --terms alice@corp.com,bob@corp.com --report run.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runRedact(ctx, cmd.OutOrStdout(), args[0], cfg)
		},
	}

	defaults := config.Default()
	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	flags.StringP("terms", "t", "", "Comma-separated search terms (required unless configured)")
	flags.String("replacement", defaults.Redaction.Replacement, "Value written in place of every term")
	flags.IntP("workers", "w", defaults.Batch.Workers, "Files processed concurrently")
	flags.StringSlice("extensions", defaults.Batch.Extensions, "File extensions to scan")
	flags.Duration("file-timeout", 0, "Deadline for reading and scanning one file (0 = none)")
	flags.Bool("dry-run", false, "Report what would change without writing anything")
	flags.String("backup-suffix", defaults.Backup.Suffix, "Suffix appended to a file's path to name its backup")
	flags.String("compression", defaults.Writer.Compression, "Codec for rewritten files: source, uncompressed, snappy, gzip, brotli, zstd, lz4_raw")
	flags.Bool("mmap", false, "Memory-map source files while reading")
	flags.String("log-level", defaults.Observability.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Observability.LogFormat, "Log encoding (json, console)")
	flags.String("metrics-file", "", "Write Prometheus metrics in text format to this file at the end of the run")
	flags.Bool("trace", false, "Export a span per file transaction")
	flags.String("trace-file", "", "Write spans to this file instead of stdout")
	flags.String("report", "", "Write a JSON run report to this file")

	return cmd
}

// runRedact executes one batch run with cfg over dir
func runRedact(ctx context.Context, out io.Writer, dir string, cfg *config.Config) error {
	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogFormat,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get().With(zap.String("component", "scrub-cli"))
	log.Info("starting run", zap.String("dir", dir), zap.Stringer("config", cfg))

	if cfg.Observability.EnableTracing {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		if cfg.Observability.TraceFile != "" {
			tc.ExporterType = "file"
			tc.OutputPath = cfg.Observability.TraceFile
		}
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("failed to flush traces", zap.Error(err))
			}
		}()
	}

	req, err := cfg.Request()
	if err != nil {
		return err
	}
	codec, err := parquetfile.ParseCompression(cfg.Writer.Compression)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	manager := transaction.NewManager(redact.NewEngine(req, log),
		transaction.WithLogger(log),
		transaction.WithMetrics(collector),
		transaction.WithTracer(observability.Tracer()),
		transaction.WithDryRun(cfg.Batch.DryRun),
		transaction.WithBackupSuffix(cfg.Backup.Suffix),
		transaction.WithCompression(codec),
		transaction.WithMemoryMap(cfg.Writer.MemoryMap),
		transaction.WithTimeout(cfg.Batch.FileTimeout),
	)

	discovery, err := batch.Discover(dir, cfg.Batch.Extensions, cfg.Backup.Suffix)
	if err != nil {
		return err
	}
	for _, b := range discovery.LeftoverBackups {
		log.Warn("leftover backup from an earlier run; its original will fail if it needs a rewrite",
			zap.String("backup", b))
	}

	runner := batch.NewRunner(manager, batch.Config{
		Workers: cfg.Batch.Workers,
		Logger:  log,
		Metrics: collector,
	})
	summary, runErr := runner.Run(ctx, discovery.Files)
	summary.LeftoverBackups = discovery.LeftoverBackups

	buffers := transaction.BufferStats()
	log.Debug("write buffer usage",
		zap.Int64("allocated", buffers.Allocated),
		zap.Int64("reused", buffers.Reused()),
		zap.Int64("in_use", buffers.InUse))

	printSummary(out, summary)

	if cfg.Report.Path != "" {
		if err := batch.WriteReport(cfg.Report.Path, summary); err != nil {
			log.Error("failed to write run report", zap.Error(err))
		}
	}
	if cfg.Observability.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.Observability.MetricsFile); err != nil {
			log.Error("failed to write metrics file", zap.Error(err))
		}
	}

	if runErr != nil {
		return &exitError{code: 2, err: fmt.Errorf("batch halted: %w", runErr)}
	}
	if !summary.OK() {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d files failed, %d not processed",
			summary.Failed(), len(discovery.Files), len(summary.NotProcessed))}
	}
	return nil
}

func printSummary(w io.Writer, s *batch.Summary) {
	for _, r := range s.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "%-12s %s [%s] %v\n", r.Outcome, r.Path, errors.Kind(r.Err), r.Err)
		case r.Stats.ValuesRedacted > 0:
			fmt.Fprintf(w, "%-12s %s (%d values)\n", r.Outcome, r.Path, r.Stats.ValuesRedacted)
		default:
			fmt.Fprintf(w, "%-12s %s\n", r.Outcome, r.Path)
		}
	}
	for _, path := range s.NotProcessed {
		fmt.Fprintf(w, "%-12s %s\n", "not_started", path)
	}

	counts := s.Counts()
	fmt.Fprintf(w, "\n%d files: %d redacted, %d skipped, %d would redact, %d rolled back, %d failed\n",
		len(s.Results)+len(s.NotProcessed),
		counts[transaction.OutcomeRedacted],
		counts[transaction.OutcomeSkipped],
		counts[transaction.OutcomeWouldRedact],
		counts[transaction.OutcomeRolledBack],
		counts[transaction.OutcomeFailed])
}
