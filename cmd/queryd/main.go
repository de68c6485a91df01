// Copyright 2026 The Micromegas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Command queryd serves the SQL-over-HTTP query endpoint gluing every view
// to its live partitions: list_view_sets, the SQL scan path, and
// perfetto_trace_chunks.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/micromegas-db/micromegas/internal/config"
	"github.com/micromegas-db/micromegas/internal/wiring"
)

func main() {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "queryd",
		Short:         "serve the SQL-over-HTTP query endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
				log.SetLevel(lvl)
			}
			if err := cfg.ObjectStore.Preflight(); err != nil {
				return err
			}
			if err := cfg.Catalog.Preflight(); err != nil {
				return err
			}
			if err := cfg.Query.Preflight(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cfg.ObjectStore.Bind(root.Flags())
	cfg.Catalog.Bind(root.Flags())
	cfg.Query.Bind(root.Flags())
	root.Flags().StringVar(&cfg.LogLevel, "logLevel", "info", "logrus level: trace, debug, info, warn, error")

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("queryd exited with an error")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, shutdownServices, err := wiring.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownServices()
	if svc.QueryEngine == nil {
		return os.ErrInvalid
	}

	server := &http.Server{
		Addr:              cfg.Query.BindAddr,
		Handler:           svc.QueryEngine.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Query.BindAddr).Info("queryd listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
