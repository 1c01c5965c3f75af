package transaction

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/scrub/pkg/column"
	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/metrics"
	"github.com/ajitpratap0/scrub/pkg/parquetfile"
	"github.com/ajitpratap0/scrub/pkg/redact"
	"github.com/ajitpratap0/scrub/pkg/testutil"
)

func people(t *testing.T, dir string, emails ...*string) string {
	t.Helper()
	names := make([]string, len(emails))
	for i := range names {
		names[i] = []string{"alice", "bob", "carol", "dave"}[i%4]
	}
	path := filepath.Join(dir, "people.parquet")
	testutil.WriteRecord(t, path, testutil.PeopleRecord(names, emails),
		testutil.FixtureOptions{RowGroupSize: 2, Compression: compress.Codecs.Snappy})
	return path
}

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	req, err := redact.NewRequest([]string{"alice@corp.com"}, redact.DefaultReplacement)
	require.NoError(t, err)
	engine := redact.NewEngine(req, testutil.TestLogger(t))
	return NewManager(engine, append([]Option{WithLogger(testutil.TestLogger(t))}, opts...)...)
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// failingOutput truncates the original like the real opener and then
// fails after limit bytes.
type failingOutput struct {
	f     *os.File
	limit int
}

func (o *failingOutput) Write(p []byte) (int, error) {
	if len(p) > o.limit {
		n, _ := o.f.Write(p[:o.limit])
		o.limit = 0
		return n, io.ErrShortWrite
	}
	o.limit -= len(p)
	return o.f.Write(p)
}

func (o *failingOutput) Sync() error  { return o.f.Sync() }
func (o *failingOutput) Close() error { return o.f.Close() }

func failAfter(limit int) OpenFunc {
	return func(path string) (Output, error) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
		if err != nil {
			return nil, err
		}
		return &failingOutput{f: f, limit: limit}, nil
	}
}

func TestProcess_Redacts(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir,
		testutil.Str("alice@corp.com"), nil, testutil.Str("cc: alice@corp.com"), testutil.Str("bob@corp.com"))

	collector := metrics.NewCollector()
	m := newManager(t, WithMetrics(collector))
	res := m.Process(testutil.TestContext(t), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeRedacted, res.Outcome)
	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, 2, res.Stats.ValuesRedacted)
	assert.Equal(t, []string{"email"}, res.Stats.DirtyColumns)
	assert.Empty(t, res.BackupPath)
	assert.Positive(t, res.BytesWritten)

	testutil.AssertNotExists(t, BackupPath(path, DefaultBackupSuffix))

	got := testutil.StringValues(t, path, "email")
	require.Len(t, got, 4)
	assert.Equal(t, "ghost@example.com", *got[0])
	assert.Nil(t, got[1])
	assert.Equal(t, "cc: ghost@example.com", *got[2])
	assert.Equal(t, "bob@corp.com", *got[3])

	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer rdr.Close()
	assert.Equal(t, 2, rdr.NumRowGroups())
	cc, err := rdr.MetaData().RowGroup(0).ColumnChunk(2)
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Snappy, cc.Compression())

	assert.Equal(t, 1.0, collectorFiles(t, collector, "redacted"))
}

func collectorFiles(t *testing.T, c *metrics.Collector, outcome string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "scrub_files_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestProcess_CleanFileIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("bob@corp.com"), nil, testutil.Str("carol@corp.com"))
	before := testutil.Snapshot(t, dir)

	res := newManager(t).Process(testutil.TestContext(t), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, StateCleanSkip, res.State)
	assert.Zero(t, res.BytesWritten)
	assert.Equal(t, before, testutil.Snapshot(t, dir), "no file may be created or modified")
}

func TestProcess_PreservesNonTargetColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.parquet")
	testutil.WriteRecord(t, path, testutil.AllTypesRecord(), testutil.FixtureOptions{RowGroupSize: 3})

	before, err := parquetfile.Read(testutil.TestContext(t), path, parquetfile.ReadOptions{})
	require.NoError(t, err)
	statsBefore := chunkStats(t, path, 0)

	res := newManager(t).Process(testutil.TestContext(t), path)
	require.NoError(t, res.Err)
	require.Equal(t, OutcomeRedacted, res.Outcome)
	assert.Equal(t, []string{"str"}, res.Stats.DirtyColumns)

	after, err := parquetfile.Read(testutil.TestContext(t), path, parquetfile.ReadOptions{})
	require.NoError(t, err)
	require.Len(t, after.RowGroups, len(before.RowGroups))

	kinds := make(map[column.Kind]bool)
	for i, rg := range before.RowGroups {
		got := after.RowGroups[i]
		assert.Equal(t, rg.NumRows, got.NumRows)
		require.Len(t, got.Columns, len(rg.Columns))

		for j, want := range rg.Columns {
			c := got.Columns[j]
			kinds[want.Kind()] = true
			assert.Equal(t, want.Path(), c.Path())
			assert.Equal(t, want.Kind(), c.Kind(), want.Path())
			assert.Equal(t, want.DefLevels(), c.DefLevels(), want.Path())
			assert.Equal(t, want.RepLevels(), c.RepLevels(), want.Path())
			assert.Equal(t, want.Present(), c.Present(), want.Path())

			assert.Equal(t, want.Int32s(), c.Int32s(), want.Path())
			assert.Equal(t, want.Int64s(), c.Int64s(), want.Path())
			assert.Equal(t, want.Int96s(), c.Int96s(), want.Path())
			assert.Equal(t, want.Float32s(), c.Float32s(), want.Path())
			assert.Equal(t, want.Float64s(), c.Float64s(), want.Path())
			assert.Equal(t, want.Bools(), c.Bools(), want.Path())
		}
	}
	assert.Len(t, kinds, 7)
	assert.Equal(t, statsBefore, chunkStats(t, path, 0))

	assert.Equal(t, []*string{
		testutil.Str("ghost@example.com"), testutil.Str("bob"), nil, testutil.Str("ünïcode ghost@example.com"),
	}, testutil.StringValues(t, path, "str"))
}

// chunkStats returns the encoded min, max and null count of column col in
// every row group
func chunkStats(t *testing.T, path string, col int) [][3]interface{} {
	t.Helper()
	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer rdr.Close()

	var out [][3]interface{}
	for i := 0; i < rdr.NumRowGroups(); i++ {
		cc, err := rdr.MetaData().RowGroup(i).ColumnChunk(col)
		require.NoError(t, err)
		stats, err := cc.Statistics()
		require.NoError(t, err)
		require.NotNil(t, stats)
		out = append(out, [3]interface{}{stats.EncodeMin(), stats.EncodeMax(), stats.NullCount()})
	}
	return out
}

func TestProcess_ReusesWriteBuffers(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t)
	before := BufferStats()

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.parquet", i))
		testutil.WriteRecord(t, path, testutil.StringRecord("email", []*string{testutil.Str("alice@corp.com")}),
			testutil.FixtureOptions{})
		res := m.Process(testutil.TestContext(t), path)
		require.NoError(t, res.Err)
		require.Equal(t, OutcomeRedacted, res.Outcome)
	}

	after := BufferStats()
	assert.Equal(t, before.Gets+3, after.Gets)
	assert.Equal(t, before.InUse, after.InUse)
	assert.GreaterOrEqual(t, after.Allocated, before.Allocated)
}

func TestProcess_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"))
	before := testutil.Snapshot(t, dir)

	res := newManager(t, WithDryRun(true)).Process(testutil.TestContext(t), path)

	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeWouldRedact, res.Outcome)
	assert.Equal(t, 1, res.Stats.ValuesRedacted)
	assert.Equal(t, before, testutil.Snapshot(t, dir))
}

func TestProcess_WriteFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"), testutil.Str("x"))
	original := readFile(t, path)

	collector := metrics.NewCollector()
	m := newManager(t, WithOpenFunc(failAfter(16)), WithMetrics(collector))
	res := m.Process(testutil.TestContext(t), path)

	require.Error(t, res.Err)
	assert.Equal(t, errors.ErrorTypeWriteFailed, errors.Kind(res.Err))
	assert.False(t, errors.HaltsBatch(res.Err))
	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, StateRolledBack, res.State)
	assert.Empty(t, res.BackupPath)

	assert.Equal(t, original, readFile(t, path), "original must be restored byte for byte")
	testutil.AssertNotExists(t, BackupPath(path, DefaultBackupSuffix))

	expected := `
# HELP scrub_rollbacks_total Originals restored from backup after a failed rewrite
# TYPE scrub_rollbacks_total counter
scrub_rollbacks_total 1
`
	assert.NoError(t, promtestutil.GatherAndCompare(collector.Registry(),
		strings.NewReader(expected), "scrub_rollbacks_total"))
}

func TestProcess_VerifyFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"))
	original := readFile(t, path)

	// Truncates the original but sends the new bytes nowhere, so the file
	// on disk is empty when it is verified.
	discard := func(path string) (Output, error) {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
		if err != nil {
			return nil, err
		}
		f.Close()
		return nopOutput{io.Discard}, nil
	}

	res := newManager(t, WithOpenFunc(discard)).Process(testutil.TestContext(t), path)

	assert.Equal(t, OutcomeRolledBack, res.Outcome)
	assert.Equal(t, errors.ErrorTypeWriteFailed, errors.Kind(res.Err))
	assert.Equal(t, original, readFile(t, path))
	testutil.AssertNotExists(t, BackupPath(path, DefaultBackupSuffix))
}

type nopOutput struct{ io.Writer }

func (nopOutput) Sync() error  { return nil }
func (nopOutput) Close() error { return nil }

func TestProcess_RollbackFailureHaltsBatch(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"))

	lose := func(p string) (Output, error) {
		require.NoError(t, os.Remove(BackupPath(p, DefaultBackupSuffix)))
		return failAfter(0)(p)
	}

	res := newManager(t, WithOpenFunc(lose)).Process(testutil.TestContext(t), path)

	require.Error(t, res.Err)
	assert.Equal(t, errors.ErrorTypeRollbackFailed, errors.Kind(res.Err))
	assert.True(t, errors.HaltsBatch(res.Err))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, StateRewriting, res.State)
	assert.Equal(t, BackupPath(path, DefaultBackupSuffix), res.BackupPath)
}

func TestProcess_ExistingBackup(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"))
	backupPath := BackupPath(path, ".orig")
	require.NoError(t, os.WriteFile(backupPath, []byte("earlier run"), 0o644))
	before := testutil.Snapshot(t, dir)

	res := newManager(t, WithBackupSuffix(".orig")).Process(testutil.TestContext(t), path)

	require.Error(t, res.Err)
	assert.Equal(t, errors.ErrorTypeBackupFailed, errors.Kind(res.Err))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, StateDirtyBackup, res.State)
	assert.Equal(t, before, testutil.Snapshot(t, dir), "neither the original nor the old backup may change")
}

func TestProcess_FailuresBeforeBackupLeaveFileUntouched(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) string
		ctx     func() context.Context
		errType errors.ErrorType
	}{
		{
			name: "unsupported column type",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "digest.parquet")
				testutil.WriteRecord(t, path, testutil.FixedSizeRecord(), testutil.FixtureOptions{})
				return path
			},
			errType: errors.ErrorTypeUnsupportedType,
		},
		{
			name: "not parquet",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "junk.parquet")
				require.NoError(t, os.WriteFile(path, []byte("definitely not parquet"), 0o644))
				return path
			},
			errType: errors.ErrorTypeDecodeFailed,
		},
		{
			name: "cancelled before backup",
			setup: func(t *testing.T, dir string) string {
				return people(t, dir, testutil.Str("alice@corp.com"))
			},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			errType: errors.ErrorTypeCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := tt.setup(t, dir)
			before := testutil.Snapshot(t, dir)

			ctx := testutil.TestContext(t)
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			res := newManager(t).Process(ctx, path)

			require.Error(t, res.Err)
			assert.Equal(t, tt.errType, errors.Kind(res.Err))
			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.Equal(t, StateRead, res.State)
			assert.Equal(t, before, testutil.Snapshot(t, dir))
		})
	}
}

func TestProcess_CompressionOverride(t *testing.T) {
	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"), testutil.Str("bob@corp.com"))

	codec := compress.Codecs.Zstd
	res := newManager(t, WithCompression(&codec), WithMemoryMap(true)).Process(testutil.TestContext(t), path)
	require.NoError(t, res.Err)

	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer rdr.Close()
	for i := 0; i < rdr.NumRowGroups(); i++ {
		for c := 0; c < rdr.MetaData().RowGroup(i).NumColumns(); c++ {
			cc, err := rdr.MetaData().RowGroup(i).ColumnChunk(c)
			require.NoError(t, err)
			assert.Equal(t, compress.Codecs.Zstd, cc.Compression())
		}
	}
}

func TestProcess_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	dir := t.TempDir()
	path := people(t, dir, testutil.Str("alice@corp.com"))

	res := newManager(t, WithTracer(tp.Tracer("test"))).Process(testutil.TestContext(t), path)
	require.NoError(t, res.Err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "scrub.file", spans[0].Name())

	var events []string
	for _, e := range spans[0].Events() {
		events = append(events, e.Name)
	}
	assert.Equal(t, []string{"scanned", "dirty_backup", "committed"}, events)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "clean_skip", StateCleanSkip.String())
	assert.Equal(t, "rolled_back", StateRolledBack.String())
	assert.Equal(t, "unknown", State(42).String())
}
