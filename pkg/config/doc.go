// # Loading
//
// A YAML file is decoded over the defaults, so only the settings that differ
// need to be present:
//
//	cfg := config.Default()
//	if err := config.Load("scrub.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Substitution
//
// Values may reference the environment with ${VAR_NAME}; unset variables
// expand to the empty string:
//
//	redaction:
//	  terms:
//	    - ${SCRUB_TARGET_EMAIL}
//	  replacement: redacted@example.com
//	batch:
//	  workers: 8
//	  file_timeout: 10m
//	writer:
//	  compression: zstd
//
// Command line flags and SCRUB_* variables are layered on top by the scrub
// command.
package config
