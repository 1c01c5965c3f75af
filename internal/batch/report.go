package batch

import (
	"os"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/scrub/pkg/compression"
	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/transaction"
)

// Summary collects the results of one run
type Summary struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   []transaction.Result
	// NotProcessed lists files never started because the run halted or its
	// context ended.
	NotProcessed    []string
	LeftoverBackups []string
	Halted          bool
}

// Counts returns the number of files per outcome
func (s *Summary) Counts() map[transaction.Outcome]int {
	counts := make(map[transaction.Outcome]int)
	for _, r := range s.Results {
		counts[r.Outcome]++
	}
	return counts
}

// Failed returns the number of files that ended with an error
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// ValuesRedacted sums the values redacted across files, dry runs included
func (s *Summary) ValuesRedacted() int {
	n := 0
	for _, r := range s.Results {
		n += r.Stats.ValuesRedacted
	}
	return n
}

// OK reports whether every file was processed without error
func (s *Summary) OK() bool {
	return !s.Halted && len(s.NotProcessed) == 0 && s.Failed() == 0
}

// Report is the JSON document written at the end of a run
type Report struct {
	RunID           string         `json:"run_id"`
	StartedAt       time.Time      `json:"started_at"`
	DurationMS      int64          `json:"duration_ms"`
	Halted          bool           `json:"halted"`
	Totals          map[string]int `json:"totals"`
	ValuesRedacted  int            `json:"values_redacted"`
	Files           []FileReport   `json:"files"`
	NotProcessed    []string       `json:"not_processed,omitempty"`
	LeftoverBackups []string       `json:"leftover_backups,omitempty"`
}

// FileReport is one file's entry in a Report
type FileReport struct {
	Path           string   `json:"path"`
	Outcome        string   `json:"outcome"`
	State          string   `json:"state"`
	ErrorKind      string   `json:"error_kind,omitempty"`
	Error          string   `json:"error,omitempty"`
	ValuesRedacted int      `json:"values_redacted"`
	DirtyColumns   []string `json:"dirty_columns,omitempty"`
	BytesWritten   int64    `json:"bytes_written,omitempty"`
	BackupPath     string   `json:"backup_path,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
}

// Report converts the summary into its JSON form
func (s *Summary) Report() *Report {
	rep := &Report{
		RunID:           s.RunID,
		StartedAt:       s.StartedAt.UTC(),
		DurationMS:      s.Duration.Milliseconds(),
		Halted:          s.Halted,
		Totals:          make(map[string]int),
		ValuesRedacted:  s.ValuesRedacted(),
		Files:           make([]FileReport, 0, len(s.Results)),
		NotProcessed:    s.NotProcessed,
		LeftoverBackups: s.LeftoverBackups,
	}
	for outcome, n := range s.Counts() {
		rep.Totals[string(outcome)] = n
	}

	for _, r := range s.Results {
		fr := FileReport{
			Path:           r.Path,
			Outcome:        string(r.Outcome),
			State:          r.State.String(),
			ValuesRedacted: r.Stats.ValuesRedacted,
			DirtyColumns:   r.Stats.DirtyColumns,
			BytesWritten:   r.BytesWritten,
			BackupPath:     r.BackupPath,
			DurationMS:     r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			fr.ErrorKind = string(errors.Kind(r.Err))
			fr.Error = r.Err.Error()
		}
		rep.Files = append(rep.Files, fr)
	}
	return rep
}

// WriteReport writes the summary as indented JSON to path. A path ending
// in a compression extension such as .gz or .zst is compressed accordingly.
func WriteReport(path string, s *Summary) (err error) {
	data, err := gojson.MarshalIndent(s.Report(), "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode run report")
	}

	f, err := os.Create(path) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create run report").
			WithDetail("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, errors.ErrorTypeInternal, "failed to close run report").
				WithDetail("path", path)
		}
	}()

	w, err := compression.NewWriter(f, compression.ForPath(path), compression.Default)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress run report").
			WithDetail("path", path)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write run report").
			WithDetail("path", path)
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write run report").
			WithDetail("path", path)
	}
	return nil
}

// ReadReport loads a report written by WriteReport, decompressing it
// according to the path's extension.
func ReadReport(path string) (*Report, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to open run report").
			WithDetail("path", path)
	}
	defer f.Close()

	r, err := compression.NewReader(f, compression.ForPath(path))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to decompress run report").
			WithDetail("path", path)
	}
	defer r.Close()

	var rep Report
	if err := gojson.NewDecoder(r).Decode(&rep); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to decode run report").
			WithDetail("path", path)
	}
	return &rep, nil
}
