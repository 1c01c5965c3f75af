// Package config provides the configuration for a scrub run.
//
// The configuration is organized into logical sections:
//   - Redaction: search terms and their replacement
//   - Batch: directory scan and worker settings
//   - Backup: naming of safety copies
//   - Writer: how rewritten files are encoded
//   - Observability: logging, metrics and tracing
//   - Report: the JSON run report
//
// Example usage:
//
//	cfg := config.Default()
//	cfg.Redaction.Terms = []string{"alice@corp.com"}
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/ajitpratap0/scrub/pkg/errors"
	"github.com/ajitpratap0/scrub/pkg/parquetfile"
	"github.com/ajitpratap0/scrub/pkg/redact"
)

// Config is the complete configuration of one scrub run
type Config struct {
	// Redaction names what to replace
	Redaction RedactionConfig `yaml:"redaction" json:"redaction"`

	// Batch controls discovery and concurrency
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Backup controls safety copies
	Backup BackupConfig `yaml:"backup" json:"backup"`

	// Writer controls the encoding of rewritten files
	Writer WriterConfig `yaml:"writer" json:"writer"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Report controls the JSON run report
	Report ReportConfig `yaml:"report" json:"report"`
}

// RedactionConfig holds the search terms and the replacement
type RedactionConfig struct {
	// Terms are matched case-sensitively as substrings
	Terms []string `yaml:"terms" json:"terms"`
	// Replacement is written in place of every term
	Replacement string `yaml:"replacement" json:"replacement"`
}

// BatchConfig contains directory scan and concurrency settings
type BatchConfig struct {
	// Workers is the number of files processed concurrently
	Workers int `yaml:"workers" json:"workers"`
	// Extensions selects which files are scanned, compared case-insensitively
	Extensions []string `yaml:"extensions" json:"extensions"`
	// FileTimeout bounds one file transaction up to its backup (0 = none)
	FileTimeout time.Duration `yaml:"file_timeout" json:"file_timeout"`
	// DryRun reports what would change without writing
	DryRun bool `yaml:"dry_run" json:"dry_run"`
}

// BackupConfig controls safety copies
type BackupConfig struct {
	// Suffix is appended to the original path to name its backup
	Suffix string `yaml:"suffix" json:"suffix"`
}

// WriterConfig controls the encoding of rewritten files
type WriterConfig struct {
	// Compression is a codec name or "source" to keep each column's codec
	Compression string `yaml:"compression" json:"compression"`
	// MemoryMap maps source files instead of reading them
	MemoryMap bool `yaml:"memory_map" json:"memory_map"`
}

// ObservabilityConfig contains logging, metrics and tracing settings
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	// MetricsFile receives Prometheus text format at the end of the run
	MetricsFile   string `yaml:"metrics_file" json:"metrics_file"`
	EnableTracing bool   `yaml:"enable_tracing" json:"enable_tracing"`
	// TraceFile receives spans; empty writes them to stdout
	TraceFile string `yaml:"trace_file" json:"trace_file"`
}

// ReportConfig controls the JSON run report
type ReportConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Default returns a configuration with sensible defaults. Terms are left
// empty; a run needs at least one.
func Default() *Config {
	return &Config{
		Redaction: RedactionConfig{
			Replacement: redact.DefaultReplacement,
		},
		Batch: BatchConfig{
			Workers:    runtime.NumCPU(),
			Extensions: []string{".parquet"},
		},
		Backup: BackupConfig{
			Suffix: ".bak",
		},
		Writer: WriterConfig{
			Compression: parquetfile.CompressionSource,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if _, err := redact.NewRequest(c.Redaction.Terms, c.Redaction.Replacement); err != nil {
		return err
	}
	if c.Batch.Workers < 1 {
		return errors.New(errors.ErrorTypeConfig, "batch.workers must be at least 1")
	}
	if len(c.Batch.Extensions) == 0 {
		return errors.New(errors.ErrorTypeConfig, "batch.extensions must not be empty")
	}
	if c.Batch.FileTimeout < 0 {
		return errors.New(errors.ErrorTypeConfig, "batch.file_timeout cannot be negative")
	}
	if c.Backup.Suffix == "" {
		return errors.New(errors.ErrorTypeConfig, "backup.suffix is required")
	}
	for _, ext := range c.Batch.Extensions {
		if strings.EqualFold(ext, c.Backup.Suffix) {
			return errors.Newf(errors.ErrorTypeConfig, "backup.suffix %q is also a scanned extension", c.Backup.Suffix)
		}
	}
	if _, err := parquetfile.ParseCompression(c.Writer.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid writer.compression")
	}
	return nil
}

// Request returns the validated redaction request
func (c *Config) Request() (redact.Request, error) {
	return redact.NewRequest(c.Redaction.Terms, c.Redaction.Replacement)
}

// String summarizes the run settings for logs
func (c *Config) String() string {
	return fmt.Sprintf("terms=%d workers=%d dry_run=%t compression=%s",
		len(c.Redaction.Terms), c.Batch.Workers, c.Batch.DryRun, c.Writer.Compression)
}
