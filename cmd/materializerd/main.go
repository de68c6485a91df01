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

// Command materializerd runs the background materialization and partition
// retirement loops: it turns raw ingested blocks into columnar partitions
// and periodically retires partitions past their retention window.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/micromegas-db/micromegas/internal/config"
	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/util/stopper"
	"github.com/micromegas-db/micromegas/internal/wiring"
)

func main() {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "materializerd",
		Short:         "run the background partition materialization and retirement loops",
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
			if err := cfg.Retention.Preflight(); err != nil {
				return err
			}
			if cfg.ChaosProbability < 0 || cfg.ChaosProbability > 1 {
				return os.ErrInvalid
			}
			return run(cfg)
		},
	}

	cfg.ObjectStore.Bind(root.Flags())
	cfg.Catalog.Bind(root.Flags())
	cfg.Retention.Bind(root.Flags())
	root.Flags().Float32Var(&cfg.ChaosProbability, "chaosProbability", 0, "probability (0-1) of injecting a chaos error while fetching input blocks")
	root.Flags().StringVar(&cfg.LogLevel, "logLevel", "info", "logrus level: trace, debug, info, warn, error")

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("materializerd exited with an error")
	}
}

func run(cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, shutdownServices, err := wiring.Build(signalCtx, cfg)
	if err != nil {
		return err
	}
	defer shutdownServices()
	if svc.Materializer == nil {
		return os.ErrInvalid
	}

	ctx := stopper.WithContext(signalCtx)
	materializer.ScheduleLoop(ctx, svc.Materializer, svc.Registry, svc.ObjectStore, cfg.Retention.Interval, time.Hour)
	materializer.RetireLoop(ctx, svc.Catalog, svc.Registry, cfg.Retention.Interval, cfg.Retention.MaxAge, time.Now)

	<-signalCtx.Done()
	log.Info("materializerd shutting down")
	return ctx.StopAndWait()
}
