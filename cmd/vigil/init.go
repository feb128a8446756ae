// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vigil-health/vigil/internal/config"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

// configPathForWrite returns the default config path. A variable so
// tests can override it.
var configPathForWrite = config.DefaultConfigPath

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long: `Write the commented default configuration to ~/.config/vigil/vigil.yaml.

API keys should not be written into the file in plain text; store them in
the OS keyring and reference them with keyring:// URIs:

  vigil secret set risk-api-key sk-...

After editing the config, run:
  vigil start    — start the gateway
  vigil doctor   — verify your setup`,
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "Overwrite existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	cfgPath, err := configPathForWrite()
	if err != nil {
		return err
	}

	if !force {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return vigilerr.Errorf(vigilerr.CodeCLIInputInvalid,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return vigilerr.Wrapf(err, vigilerr.CodeConfigLoadReadFailure, "creating config directory %s", dir)
	}

	if err := os.WriteFile(cfgPath, config.DefaultConfigYAML, 0o600); err != nil {
		return vigilerr.Wrapf(err, vigilerr.CodeConfigLoadReadFailure, "writing config to %s", cfgPath)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", cfgPath)
	return nil
}
