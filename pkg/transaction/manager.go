// Package transaction runs the per-file redaction transaction: read, scan,
// then either skip a clean file untouched or back it up, rewrite it in place
// and commit or roll back.
package transaction

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/logger"
	"github.com/ajitpratap0/scrub/pkg/metrics"
	"github.com/ajitpratap0/scrub/pkg/observability"
	"github.com/ajitpratap0/scrub/pkg/parquetfile"
	"github.com/ajitpratap0/scrub/pkg/pool"
	"github.com/ajitpratap0/scrub/pkg/redact"
)

// DefaultBackupSuffix is appended to the original path to name its backup
const DefaultBackupSuffix = ".bak"

const writeBufferSize = 1 << 20

var writeBuffers = pool.New(
	func() *bufio.Writer { return bufio.NewWriterSize(nil, writeBufferSize) },
	func(w *bufio.Writer) { w.Reset(nil) },
)

// BufferStats reports how the rewrite buffers shared by every Manager in
// the process have been used
func BufferStats() pool.Stats { return writeBuffers.Stats() }

// Output is the destination of a rewrite
type Output interface {
	io.Writer
	Sync() error
	Close() error
}

// OpenFunc opens path for an in-place rewrite. The file already exists and
// is expected to be truncated.
type OpenFunc func(path string) (Output, error)

func openInPlace(path string) (Output, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0) //nolint:gosec // G304: path comes from discovery
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the base logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records outcomes on c
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

// WithTracer sets the tracer used for the per-file span
func WithTracer(t trace.Tracer) Option {
	return func(m *Manager) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithDryRun stops after the scan and reports would_redact for dirty files
func WithDryRun(dryRun bool) Option {
	return func(m *Manager) { m.dryRun = dryRun }
}

// WithBackupSuffix sets the suffix appended to the original path for its backup
func WithBackupSuffix(suffix string) Option {
	return func(m *Manager) {
		if suffix != "" {
			m.backupSuffix = suffix
		}
	}
}

// WithCompression rewrites every column with codec instead of the source codec
func WithCompression(codec *compress.Compression) Option {
	return func(m *Manager) { m.compression = codec }
}

// WithMemoryMap reads source files through mmap
func WithMemoryMap(enabled bool) Option {
	return func(m *Manager) { m.readOpts.MemoryMap = enabled }
}

// WithTimeout bounds the read and scan phases of each file. A file that has
// not reached the backup step by the deadline fails untouched; once the
// backup exists the transaction always runs to commit or rollback.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithOpenFunc replaces how the original is opened for rewriting
func WithOpenFunc(open OpenFunc) Option {
	return func(m *Manager) {
		if open != nil {
			m.open = open
		}
	}
}

// Manager runs file transactions. It is safe for concurrent use as long as
// no two calls share a path.
type Manager struct {
	engine       *redact.Engine
	logger       *zap.Logger
	metrics      *metrics.Collector
	tracer       trace.Tracer
	dryRun       bool
	backupSuffix string
	compression  *compress.Compression
	readOpts     parquetfile.ReadOptions
	timeout      time.Duration
	open         OpenFunc
}

// NewManager creates a Manager that redacts with engine
func NewManager(engine *redact.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:       engine,
		logger:       zap.NewNop(),
		tracer:       observability.Tracer(),
		backupSuffix: DefaultBackupSuffix,
		open:         openInPlace,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("component", "transaction_manager"))
	return m
}

// BackupSuffix returns the configured backup suffix
func (m *Manager) BackupSuffix() string { return m.backupSuffix }

// Process runs one transaction for path. The returned Result always carries
// the outcome; Result.Err is set for failed and rolled back files.
func (m *Manager) Process(ctx context.Context, path string) Result {
	ctx = logger.WithPath(ctx, path)
	ctx, span := observability.NewSpan(ctx, m.tracer, "scrub.file")
	log := logger.FromContext(ctx, m.logger)

	res := m.process(ctx, path, span, log)

	span.SetAttribute("scrub.path", path)
	span.SetAttribute("scrub.outcome", string(res.Outcome))
	span.SetAttribute("scrub.state", res.State.String())
	span.SetAttribute("scrub.values_redacted", res.Stats.ValuesRedacted)
	res.Duration = span.Elapsed()
	span.End(res.Err)

	if m.metrics != nil {
		m.metrics.RecordFile(string(res.Outcome), res.Duration, res.Stats.ValuesRedacted)
		m.metrics.RecordBytesWritten(res.BytesWritten)
		if res.Outcome == OutcomeRolledBack {
			m.metrics.RecordRollback()
		}
	}

	fields := []zap.Field{
		zap.String("outcome", string(res.Outcome)),
		zap.String("state", res.State.String()),
		zap.Int("values_redacted", res.Stats.ValuesRedacted),
		zap.Duration("duration", res.Duration),
	}
	switch {
	case errors.HaltsBatch(res.Err):
		log.Error("rollback failed, original may be damaged", append(fields,
			zap.String("kind", string(errors.Kind(res.Err))),
			zap.String("backup", res.BackupPath),
			zap.Error(res.Err))...)
	case res.Err != nil:
		log.Error("file transaction failed", append(fields,
			zap.String("kind", string(errors.Kind(res.Err))),
			zap.Error(res.Err))...)
	default:
		log.Info("file transaction finished", fields...)
	}

	return res
}

func (m *Manager) process(ctx context.Context, path string, span *observability.Span, log *zap.Logger) Result {
	res := Result{Path: path, State: StateRead}
	fail := func(err error) Result {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}

	readCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	f, err := parquetfile.Read(readCtx, path, m.readOpts)
	if err != nil {
		return fail(err)
	}

	res.State = StateScanned
	res.Stats = m.engine.Redact(f)
	span.AddEvent(StateScanned.String(), attribute.Int("values_redacted", res.Stats.ValuesRedacted))

	if !f.Dirty() {
		res.State = StateCleanSkip
		res.Outcome = OutcomeSkipped
		span.AddEvent(StateCleanSkip.String())
		return res
	}

	if m.dryRun {
		res.Outcome = OutcomeWouldRedact
		log.Debug("dry run, not rewriting", zap.Strings("columns", res.Stats.DirtyColumns))
		return res
	}

	if err := readCtx.Err(); err != nil {
		return fail(errors.Wrap(err, errors.ErrorTypeCanceled, "file deadline reached before backup").
			WithDetail("path", path))
	}

	res.State = StateDirtyBackup
	backupPath := BackupPath(path, m.backupSuffix)
	digest, err := backup(path, backupPath)
	if err != nil {
		return fail(err)
	}
	span.AddEvent(StateDirtyBackup.String(), attribute.String("backup", backupPath))
	log.Debug("backup created", zap.String("backup", backupPath))

	res.State = StateRewriting
	n, werr := m.rewrite(f)
	res.BytesWritten = n
	if werr != nil {
		if rerr := restore(backupPath, path, digest); rerr != nil {
			res.BackupPath = backupPath
			return fail(errors.Wrap(rerr, errors.ErrorTypeRollbackFailed, "rollback failed after write error").
				WithDetail("write_error", werr.Error()).
				WithDetail("backup", backupPath))
		}
		res.State = StateRolledBack
		res.Outcome = OutcomeRolledBack
		res.Err = werr
		span.AddEvent(StateRolledBack.String())
		return res
	}

	res.State = StateCommitted
	res.Outcome = OutcomeRedacted
	span.AddEvent(StateCommitted.String(), attribute.Int64("bytes_written", n))
	if err := os.Remove(backupPath); err != nil {
		res.BackupPath = backupPath
		log.Warn("failed to remove backup after commit", zap.String("backup", backupPath), zap.Error(err))
	}
	return res
}

// rewrite encodes f over its own path and verifies the result
func (m *Manager) rewrite(f *parquetfile.File) (int64, error) {
	out, err := m.open(f.Path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeWriteFailed, "failed to open original for rewrite").
			WithDetail("path", f.Path)
	}

	cw := &countingWriter{w: out}
	bw := writeBuffers.Get()
	defer writeBuffers.Put(bw)
	bw.Reset(cw)
	props := parquetfile.WriterProperties(f.Meta, m.compression)

	err = f.Encode(bw, props)
	if err == nil {
		if ferr := bw.Flush(); ferr != nil {
			err = errors.Wrap(ferr, errors.ErrorTypeWriteFailed, "failed to flush rewrite")
		}
	}
	if err == nil {
		if serr := out.Sync(); serr != nil {
			err = errors.Wrap(serr, errors.ErrorTypeWriteFailed, "failed to sync rewrite")
		}
	}
	if cerr := out.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.ErrorTypeWriteFailed, "failed to close rewrite")
	}
	if err != nil {
		return cw.n, err
	}

	return cw.n, parquetfile.Verify(f.Path, f.Meta)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
