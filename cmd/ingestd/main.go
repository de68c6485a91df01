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

// Command ingestd serves the block-ingestion HTTP endpoint: the receiving
// end of runtime/sink.HTTPSink, durably persisting raw blocks to the
// object store for the materializer and JIT provider to read back.
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
	"github.com/micromegas-db/micromegas/internal/lakehouse/ingestion"
	"github.com/micromegas-db/micromegas/internal/wiring"
)

func main() {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "ingestd",
		Short:         "serve the block-ingestion HTTP endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
				log.SetLevel(lvl)
			}
			if err := cfg.ObjectStore.Preflight(); err != nil {
				return err
			}
			if err := cfg.Ingest.Preflight(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cfg.ObjectStore.Bind(root.Flags())
	cfg.Ingest.Bind(root.Flags())
	root.Flags().StringVar(&cfg.LogLevel, "logLevel", "info", "logrus level: trace, debug, info, warn, error")

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("ingestd exited with an error")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := wiring.ProvideObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		return err
	}

	svc := ingestion.New(store)
	handler := svc.Handler()

	server := &http.Server{
		Addr:              cfg.Ingest.BindAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Ingest.BindAddr).Info("ingestd listening")
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
