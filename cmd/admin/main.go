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

// Command admin provides operator-facing subcommands for the lakehouse's
// admin surface: listing view sets and partitions, retiring partitions by
// file, retiring every partition a schema migration has made stale, and
// reporting the health of the services a process depends on.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/micromegas-db/micromegas/internal/config"
	"github.com/micromegas-db/micromegas/internal/lakehouse/admin"
	"github.com/micromegas-db/micromegas/internal/util/diag"
	"github.com/micromegas-db/micromegas/internal/wiring"
)

func main() {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "operator tooling for the lakehouse's partition catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cfg.ObjectStore.Bind(root.PersistentFlags())
	cfg.Catalog.Bind(root.PersistentFlags())

	root.AddCommand(
		listViewSetsCmd(cfg),
		listPartitionsCmd(cfg),
		retirePartitionCmd(cfg),
		retireStaleCmd(cfg),
		healthCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("admin exited with an error")
	}
}

func buildAdmin(cfg *config.Config) (*admin.Admin, func(), error) {
	if err := cfg.ObjectStore.Preflight(); err != nil {
		return nil, func() {}, err
	}
	if err := cfg.Catalog.Preflight(); err != nil {
		return nil, func() {}, err
	}

	svc, shutdown, err := wiring.Build(context.Background(), cfg)
	if err != nil {
		return nil, func() {}, err
	}
	if svc.QueryEngine == nil {
		shutdown()
		return nil, func() {}, fmt.Errorf("query engine unavailable: catalog DSN required")
	}
	return admin.New(svc.QueryEngine, svc.Registry), shutdown, nil
}

func buildDiag(cfg *config.Config) (*diag.Registry, func(), error) {
	if err := cfg.ObjectStore.Preflight(); err != nil {
		return nil, func() {}, err
	}
	if err := cfg.Catalog.Preflight(); err != nil {
		return nil, func() {}, err
	}

	svc, shutdown, err := wiring.Build(context.Background(), cfg)
	if err != nil {
		return nil, func() {}, err
	}
	return svc.Diag, shutdown, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listViewSetsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list-view-sets",
		Short: "list every registered view, its icon, description, and current schema hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildAdmin(cfg)
			if err != nil {
				return err
			}
			defer shutdown()
			return printJSON(a.ListViewSets())
		},
	}
}

func listPartitionsCmd(cfg *config.Config) *cobra.Command {
	var viewSet string
	cmd := &cobra.Command{
		Use:   "list-stale-partitions",
		Short: "list every partition whose schema hash no longer matches its view's current hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildAdmin(cfg)
			if err != nil {
				return err
			}
			defer shutdown()

			stale, err := a.ScanForStalePartitions(cmd.Context())
			if err != nil {
				return err
			}
			if viewSet != "" {
				filtered := stale[:0]
				for _, p := range stale {
					if p.ViewSet == viewSet {
						filtered = append(filtered, p)
					}
				}
				stale = filtered
			}
			return printJSON(stale)
		},
	}
	cmd.Flags().StringVar(&viewSet, "viewSet", "", "restrict the listing to one view set")
	return cmd
}

func retirePartitionCmd(cfg *config.Config) *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "retire-partition",
		Short: "retire exactly the partition whose file_path matches (retire_partition_by_file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildAdmin(cfg)
			if err != nil {
				return err
			}
			defer shutdown()
			return a.RetirePartitionByFile(cmd.Context(), filePath)
		},
	}
	cmd.Flags().StringVar(&filePath, "filePath", "", "the exact partition file path to retire")
	cmd.MarkFlagRequired("filePath")
	return cmd
}

func retireStaleCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "retire-stale-partitions",
		Short: "retire every partition a schema migration has made stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, shutdown, err := buildAdmin(cfg)
			if err != nil {
				return err
			}
			defer shutdown()

			retired, err := a.RetireStalePartitions(cmd.Context())
			if err != nil {
				log.WithError(err).Warn("some partitions failed to retire")
			}
			return printJSON(retired)
		},
	}
}

type healthResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

func healthCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "report whether every service this process depends on is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			diags, shutdown, err := buildDiag(cfg)
			if err != nil {
				return err
			}
			defer shutdown()

			results := diags.CheckAll(cmd.Context())
			out := make([]healthResult, len(results))
			unhealthy := false
			for i, r := range results {
				out[i] = healthResult{Name: r.Name, Healthy: r.Err == nil}
				if r.Err != nil {
					out[i].Error = r.Err.Error()
					unhealthy = true
				}
			}
			if err := printJSON(out); err != nil {
				return err
			}
			if unhealthy {
				return fmt.Errorf("one or more dependencies are unhealthy")
			}
			return nil
		},
	}
}
