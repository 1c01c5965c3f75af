package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/scrub/pkg/config"
	"github.com/ajitpratap0/scrub/pkg/redact"
)

// flagKeys maps command flags to configuration keys. The same keys are read
// from SCRUB_* environment variables, e.g. SCRUB_BATCH_WORKERS.
var flagKeys = map[string]string{
	"terms":         "redaction.terms",
	"replacement":   "redaction.replacement",
	"workers":       "batch.workers",
	"extensions":    "batch.extensions",
	"file-timeout":  "batch.file_timeout",
	"dry-run":       "batch.dry_run",
	"backup-suffix": "backup.suffix",
	"compression":   "writer.compression",
	"mmap":          "writer.memory_map",
	"log-level":     "observability.log_level",
	"log-format":    "observability.log_format",
	"metrics-file":  "observability.metrics_file",
	"trace":         "observability.enable_tracing",
	"trace-file":    "observability.trace_file",
	"report":        "report.path",
}

// newViper returns a viper instance reading SCRUB_* variables and the
// flags of cmd that appear in flagKeys.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// loadConfig builds the run configuration: defaults, then the YAML file at
// path if any, then environment variables and explicitly set flags.
func loadConfig(v *viper.Viper, path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		if err := config.Load(path, cfg); err != nil {
			return nil, err
		}
	}

	if v.IsSet("redaction.terms") {
		cfg.Redaction.Terms = redact.ParseTerms(v.GetString("redaction.terms"))
	}
	setString(v, "redaction.replacement", &cfg.Redaction.Replacement)
	if v.IsSet("batch.workers") {
		cfg.Batch.Workers = v.GetInt("batch.workers")
	}
	if v.IsSet("batch.extensions") {
		cfg.Batch.Extensions = v.GetStringSlice("batch.extensions")
	}
	if v.IsSet("batch.file_timeout") {
		cfg.Batch.FileTimeout = v.GetDuration("batch.file_timeout")
	}
	setBool(v, "batch.dry_run", &cfg.Batch.DryRun)
	setString(v, "backup.suffix", &cfg.Backup.Suffix)
	setString(v, "writer.compression", &cfg.Writer.Compression)
	setBool(v, "writer.memory_map", &cfg.Writer.MemoryMap)
	setString(v, "observability.log_level", &cfg.Observability.LogLevel)
	setString(v, "observability.log_format", &cfg.Observability.LogFormat)
	setString(v, "observability.metrics_file", &cfg.Observability.MetricsFile)
	setBool(v, "observability.enable_tracing", &cfg.Observability.EnableTracing)
	setString(v, "observability.trace_file", &cfg.Observability.TraceFile)
	setString(v, "report.path", &cfg.Report.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setBool(v *viper.Viper, key string, dst *bool) {
	if v.IsSet(key) {
		*dst = v.GetBool(key)
	}
}
