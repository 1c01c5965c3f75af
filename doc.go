// Package scrub removes sensitive strings from Parquet files in place without
// ever risking the only copy of the data.
//
// A run walks a directory and, for every Parquet file, decodes each row group
// into typed columns, replaces every occurrence of every search term in the
// string columns, and rewrites the file only when something changed. Files
// with no matches are never opened for writing and stay byte-identical.
//
// # Architecture
//
// Each file goes through one transaction:
//
//	read -> scanned -> clean_skip
//	                -> dirty_backup -> rewriting -> committed
//	                                             -> rolled_back
//
// The backup is an exclusive sibling copy whose BLAKE3 digest is verified
// before the rewrite starts. A failed or unverifiable rewrite renames the
// backup back over the original. A failed restore halts the whole batch.
//
// # Quick Start
//
//	scrub redact ./exports --terms alice@corp.com,bob@corp.com --report run.json
//	scrub redact ./exports --config scrub.yaml --dry-run
//	scrub inspect ./exports/users.parquet --terms alice@corp.com --preview 5
//
// # Key Packages
//
//	pkg/column        - Typed column values with definition/repetition levels
//	pkg/parquetfile   - Row group adapter, whole-file read, write and verify
//	pkg/redact        - Redaction request and engine
//	pkg/transaction   - Per-file backup, rewrite, commit and rollback
//	internal/batch    - Discovery, bounded worker pool and run report
//	pkg/config        - YAML configuration with environment substitution
//	pkg/errors        - Structured error taxonomy
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus collectors and textfile export
//	pkg/observability - OpenTelemetry tracing
//
// # Configuration
//
// Settings come from defaults, then a YAML file, then SCRUB_* environment
// variables, then flags:
//
//	redaction:
//	  terms: [alice@corp.com]
//	  replacement: ghost@example.com
//	batch:
//	  workers: 4
//	  file_timeout: 10m
//	backup:
//	  suffix: .bak
//	writer:
//	  compression: source
package scrub
