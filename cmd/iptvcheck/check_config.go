// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ManuGH/iptvcheck/internal/config"
	"github.com/ManuGH/iptvcheck/internal/probe"
)

func newCheckConfigCmd(stdout io.Writer) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate a configuration file and the ffprobe binary it names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("configuration error in %s: %w", path, err)
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("validation error in %s: %w", path, err)
			}
			if err := probe.CheckBinary(cfg.Prober.Bin); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "✓ %s is valid\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "path to YAML configuration file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
