// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vigil Contributors

package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vigil-health/vigil/internal/config"
	"github.com/vigil-health/vigil/internal/gateway"
	"github.com/vigil-health/vigil/internal/server"
	vigilerr "github.com/vigil-health/vigil/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the vigil gateway",
		Long:  "Load configuration, wire the inference coordinator and capability adapters, and start the HTTP server.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath := viper.ConfigFileUsed()
	if cfgPath == "" {
		// First run with no config anywhere: write the commented default.
		cfgPath = config.BootstrapConfig()
	}
	config.WarnInsecurePermissions(cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return vigilerr.Wrap(err, vigilerr.CodeConfigLoadReadFailure, "loading config")
	}

	// Apply any flag/env overrides that Viper resolved.
	if listen := viper.GetString("networking.listen"); listen != "" {
		cfg.Networking.Listen = listen
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return vigilerr.Wrap(err, vigilerr.CodeServerStartFailure, "building gateway")
	}
	defer func() {
		if closeErr := gw.Close(); closeErr != nil {
			slog.Warn("closing observation store", "error", closeErr)
		}
	}()

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
	})
	if err != nil {
		return err
	}
	srv.RegisterService(gw)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting vigil",
		"listen", cfg.Networking.Listen,
		"inference_enabled", cfg.Inference.Enabled,
		"fallback_enabled", cfg.Inference.FallbackEnabled)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Vigil listening on %s\n", cfg.Networking.Listen)

	return srv.Start(ctx)
}
