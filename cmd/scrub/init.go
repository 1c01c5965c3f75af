package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scrub/pkg/config"
	"github.com/ajitpratap0/scrub/pkg/errors"
)

func newInitCmd() *cobra.Command {
	var (
		terms []string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with the default settings",
		Long: `Init writes the default settings as YAML, ready to be edited and passed to
redact --config. The path defaults to scrub.yaml; an existing file is kept
unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "scrub.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return errors.New(errors.ErrorTypeValidation, "configuration file already exists").
						WithDetail("path", path)
				}
			}

			cfg := config.Default()
			cfg.Redaction.Terms = terms
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&terms, "terms", "t", nil, "Search terms to pre-fill")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
