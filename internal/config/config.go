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

// Package config defines the process-wide configuration structs each
// binary in cmd/ binds flags into, following the teacher's
// source/server/config.go Bind/Preflight pattern: a Config struct exposes
// Bind(flags *pflag.FlagSet) to register its flags and Preflight() error to
// validate cross-field invariants once flags have been parsed, before the
// binary starts doing any real work.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// CatalogConfig configures the Partition Catalog's Postgres connection.
type CatalogConfig struct {
	DSN             string
	MaxConns        int32
	AdvisoryLockTTL time.Duration
}

// Bind registers the catalog's flags.
func (c *CatalogConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.DSN, "catalogDSN", "", "Postgres connection string for the partition catalog")
	flags.Int32Var(&c.MaxConns, "catalogMaxConns", 8, "maximum pooled connections to the catalog database")
	flags.DurationVar(&c.AdvisoryLockTTL, "catalogAdvisoryLockTTL", 30*time.Second, "accepted but not read: the partition insert takes its advisory lock without waiting and fails at once when the lock is busy")
}

// Preflight validates the catalog configuration.
func (c *CatalogConfig) Preflight() error {
	if c.DSN == "" {
		return errors.New("catalogDSN unset")
	}
	if c.MaxConns <= 0 {
		return errors.New("catalogMaxConns must be positive")
	}
	return nil
}

// ObjectStoreConfig configures the object store backing partition and raw
// block files. Exactly one of Bucket (S3) or LocalDir (filesystem) must be
// set.
type ObjectStoreConfig struct {
	Bucket string
	Region string
	Prefix string

	LocalDir string
}

// Bind registers the object store's flags.
func (o *ObjectStoreConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.Bucket, "objectStoreBucket", "", "S3 bucket backing partition and raw block storage")
	flags.StringVar(&o.Region, "objectStoreRegion", "us-east-1", "AWS region for objectStoreBucket")
	flags.StringVar(&o.Prefix, "objectStorePrefix", "", "key prefix applied to every object this process writes")
	flags.StringVar(&o.LocalDir, "objectStoreLocalDir", "", "local filesystem directory backing storage, for single-node deployments; mutually exclusive with objectStoreBucket")
}

// Preflight validates the object store configuration.
func (o *ObjectStoreConfig) Preflight() error {
	if (o.Bucket == "") == (o.LocalDir == "") {
		return errors.New("exactly one of objectStoreBucket or objectStoreLocalDir must be set")
	}
	return nil
}

// RetentionConfig configures the background partition retirement loop
// added in SPEC_FULL's supplemented features, modeled on the teacher's
// resolver.retireLoop.
type RetentionConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// Bind registers the retention loop's flags.
func (r *RetentionConfig) Bind(flags *pflag.FlagSet) {
	flags.DurationVar(&r.Interval, "retentionInterval", time.Hour, "how often the retirement loop scans for expired partitions")
	flags.DurationVar(&r.MaxAge, "retentionMaxAge", 30*24*time.Hour, "partitions older than this are retired")
}

// Preflight validates the retention configuration.
func (r *RetentionConfig) Preflight() error {
	if r.Interval <= 0 {
		return errors.New("retentionInterval must be positive")
	}
	if r.MaxAge <= 0 {
		return errors.New("retentionMaxAge must be positive")
	}
	return nil
}

// IngestConfig configures the ingestion HTTP endpoint.
type IngestConfig struct {
	BindAddr string
}

// Bind registers the ingestion server's flags.
func (i *IngestConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&i.BindAddr, "ingestBindAddr", ":9090", "address the block-ingestion HTTP endpoint listens on")
}

// Preflight validates the ingestion configuration.
func (i *IngestConfig) Preflight() error {
	if i.BindAddr == "" {
		return errors.New("ingestBindAddr unset")
	}
	return nil
}

// QueryConfig configures the SQL-over-HTTP query server.
type QueryConfig struct {
	BindAddr string
}

// Bind registers the query server's flags.
func (q *QueryConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&q.BindAddr, "queryBindAddr", ":9091", "address the SQL-over-HTTP query endpoint listens on")
}

// Preflight validates the query configuration.
func (q *QueryConfig) Preflight() error {
	if q.BindAddr == "" {
		return errors.New("queryBindAddr unset")
	}
	return nil
}

// Config is the top-level configuration embedded by every cmd/ binary;
// each binary only binds the sub-configs it actually needs (e.g. queryd
// never binds IngestConfig), mirroring the teacher's Config.CDC
// composition in source/server/config.go.
type Config struct {
	Catalog     CatalogConfig
	ObjectStore ObjectStoreConfig
	Retention   RetentionConfig
	Ingest      IngestConfig
	Query       QueryConfig

	ChaosProbability float32
	LogLevel         string
}

// Bind registers every sub-config's flags plus the top-level ones.
func (c *Config) Bind(flags *pflag.FlagSet) {
	c.Catalog.Bind(flags)
	c.ObjectStore.Bind(flags)
	c.Retention.Bind(flags)
	c.Ingest.Bind(flags)
	c.Query.Bind(flags)

	flags.Float32Var(&c.ChaosProbability, "chaosProbability", 0, "probability (0-1) of injecting a chaos error at each instrumented seam; zero disables chaos entirely")
	flags.StringVar(&c.LogLevel, "logLevel", "info", "logrus level: trace, debug, info, warn, error")
}

// Preflight validates every sub-config, short-circuiting on the first
// failure so a misconfigured binary never starts doing partial work.
func (c *Config) Preflight() error {
	if err := c.Catalog.Preflight(); err != nil {
		return errors.Wrap(err, "catalog config")
	}
	if err := c.ObjectStore.Preflight(); err != nil {
		return errors.Wrap(err, "object store config")
	}
	if err := c.Retention.Preflight(); err != nil {
		return errors.Wrap(err, "retention config")
	}
	if err := c.Ingest.Preflight(); err != nil {
		return errors.Wrap(err, "ingest config")
	}
	if err := c.Query.Preflight(); err != nil {
		return errors.Wrap(err, "query config")
	}
	if c.ChaosProbability < 0 || c.ChaosProbability > 1 {
		return errors.New("chaosProbability must be in [0, 1]")
	}
	return nil
}
