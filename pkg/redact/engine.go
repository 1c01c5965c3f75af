package redact

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/scrub/pkg/column"
	"github.com/ajitpratap0/scrub/pkg/parquetfile"
)

// Stats summarizes one pass of the engine over a file
type Stats struct {
	// ValuesRedacted counts string values that had at least one term replaced.
	ValuesRedacted int
	// DirtyColumns lists the schema paths of modified columns, each once,
	// in first-seen order.
	DirtyColumns []string
}

// Dirty reports whether the pass changed anything
func (s Stats) Dirty() bool { return s.ValuesRedacted > 0 }

// Engine applies a Request to decoded files
type Engine struct {
	terms       [][]byte
	replacement []byte
	logger      *zap.Logger
}

// NewEngine builds an engine for req. req must already be validated.
func NewEngine(req Request, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	terms := make([][]byte, len(req.Terms))
	for i, t := range req.Terms {
		terms[i] = []byte(t)
	}
	return &Engine{
		terms:       terms,
		replacement: []byte(req.Replacement),
		logger:      logger.With(zap.String("component", "redact_engine")),
	}
}

// Redact mutates every string column of f in place and reports what
// changed. Non-string columns are visited but never modified.
func (e *Engine) Redact(f *parquetfile.File) Stats {
	var stats Stats
	seen := make(map[string]struct{})

	for _, rg := range f.RowGroups {
		for _, c := range rg.Columns {
			n := c.Redact(e.terms, e.replacement)
			if n == 0 {
				continue
			}
			stats.ValuesRedacted += n
			if _, ok := seen[c.Path()]; !ok {
				seen[c.Path()] = struct{}{}
				stats.DirtyColumns = append(stats.DirtyColumns, c.Path())
			}
			e.logger.Debug("column redacted",
				zap.String("path", f.Path),
				zap.Int("row_group", rg.Index),
				zap.String("column", c.Path()),
				zap.Int("values", n))
		}
	}
	return stats
}

// RedactFile applies the engine to f and reports whether f must be
// rewritten.
func (e *Engine) RedactFile(f *parquetfile.File) bool {
	e.Redact(f)
	return f.Dirty()
}

// Match counts, per string column path, the values that contain at least
// one term. f is not modified.
func (e *Engine) Match(f *parquetfile.File) map[string]int {
	matches := make(map[string]int)
	for _, rg := range f.RowGroups {
		for _, c := range rg.Columns {
			if c.Kind() != column.KindByteArray {
				continue
			}
			matches[c.Path()] += c.Matches(e.terms)
		}
	}
	return matches
}
