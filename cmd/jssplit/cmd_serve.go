// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tonguyenducmanh/split-file-javascript/services/splitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port        int
		debug       bool
		noSnapshots bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))

			svc, closeFn, err := a.service(!noSnapshots)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd.OutOrStdout(), svc, a.cfg.Server.Port, debug)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable gin debug mode and request logging")
	cmd.Flags().BoolVar(&noSnapshots, "no-snapshots", false, "Disable the snapshot store")
	return cmd
}

// serve runs the API until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func serve(ctx context.Context, w io.Writer, svc *splitter.Service, port int, debug bool) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           splitter.NewRouter(svc, debug),
		ReadHeaderTimeout: 10 * time.Second,
	}

	printBanner(w, port, svc.Snapshots() != nil)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting jssplit server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down jssplit server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func printBanner(w io.Writer, port int, snapshots bool) {
	status := "disabled"
	if snapshots {
		status = "enabled"
	}
	printTitle(w, "jssplit server")
	printField(w, "listening", fmt.Sprintf("http://localhost:%d", port))
	printField(w, "snapshots", status)
	printField(w, "metrics", fmt.Sprintf("http://localhost:%d/metrics", port))
	fmt.Fprintf(w, `
  # Health check
  curl http://localhost:%[1]d/v1/splitter/health

  # Analyze a folder
  curl -X POST http://localhost:%[1]d/v1/splitter/analyze \
    -H "Content-Type: application/json" -d '{"path": "./src"}'

  # Preview a split
  curl -X POST http://localhost:%[1]d/v1/splitter/preview \
    -H "Content-Type: application/json" \
    -d '{"default_file": "src/app.js", "plan": [{"destination": "util.js", "items": ["helper"]}]}'

`, port)
}
