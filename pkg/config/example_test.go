package config_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/scrub/pkg/config"
)

// ExampleDefault shows the defaults a run starts from.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Replacement: %s\n", cfg.Redaction.Replacement)
	fmt.Printf("Extensions: %v\n", cfg.Batch.Extensions)
	fmt.Printf("Backup suffix: %s\n", cfg.Backup.Suffix)
	fmt.Printf("Compression: %s\n", cfg.Writer.Compression)

	// Output:
	// Replacement: ghost@example.com
	// Extensions: [.parquet]
	// Backup suffix: .bak
	// Compression: source
}

// ExampleConfig_Validate shows that a run needs at least one term.
func ExampleConfig_Validate() {
	cfg := config.Default()
	fmt.Println(cfg.Validate())

	cfg.Redaction.Terms = []string{"alice@corp.com"}
	fmt.Println(cfg.Validate())

	// Output:
	// validation: at least one search term is required
	// <nil>
}

// ExampleLoad demonstrates loading configuration from a YAML file
// with environment variable substitution.
func ExampleLoad() {
	dir, err := os.MkdirTemp("", "scrub-config")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	os.Setenv("SCRUB_EXAMPLE_TERM", "alice@corp.com")
	defer os.Unsetenv("SCRUB_EXAMPLE_TERM")

	path := filepath.Join(dir, "scrub.yaml")
	yaml := `
redaction:
  terms: ["${SCRUB_EXAMPLE_TERM}"]
batch:
  workers: 2
  file_timeout: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		log.Fatal(err)
	}

	cfg := config.Default()
	if err := config.Load(path, cfg); err != nil {
		log.Fatal(err)
	}

	fmt.Println(cfg.Redaction.Terms, cfg.Batch.Workers, cfg.Batch.FileTimeout, cfg.Redaction.Replacement)

	// Output:
	// [alice@corp.com] 2 1m30s ghost@example.com
}
