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

// Package wiring hand-assembles the lakehouse's services from an
// internal/config.Config: one ProvideX per constructed resource, each
// taking the prior ProvideX's output, with any resource that owns a live
// connection returning a cancel func the caller chains into its own
// shutdown. There is no `wire gen` binary available to generate an
// injector from ProviderSet, so Build calls the ProvideX functions
// directly instead of a generated wire_gen.go.
package wiring

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/config"
	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/ingestion"
	"github.com/micromegas-db/micromegas/internal/lakehouse/jit"
	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/queryengine"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
	"github.com/micromegas-db/micromegas/internal/testutil/chaos"
	"github.com/micromegas-db/micromegas/internal/util/diag"
)

// ProviderSet declares the ProvideX functions below as a wire provider set.
// There is no `wire gen` binary available in this exercise, so Build below
// stays hand-maintained rather than generated from ProviderSet, but the set
// itself documents the dependency graph the way a real wire injector file
// would consume it.
var ProviderSet = wire.NewSet(
	ProvideRegistry,
	ProvideObjectStore,
	ProvideCatalogPool,
	ProvideCatalog,
	ProvideIngestion,
	ProvideJIT,
	ProvideMaterializer,
	ProvideQueryEngine,
)

// Services bundles every constructed resource a cmd/ binary might need.
// Individual binaries read only the fields relevant to them; nothing here
// requires every field to be populated.
type Services struct {
	Registry     *views.Registry
	ObjectStore  objstore.Store
	CatalogPool  *pgxpool.Pool
	Catalog      *catalog.Store
	Ingestion    *ingestion.Service
	JIT          *jit.Provider
	Materializer *materializer.Materializer
	QueryEngine  *queryengine.Engine
	Diag         *diag.Registry
}

// ProvideObjectStore constructs the object store named by cfg: an S3 bucket
// when Bucket is set, otherwise the local filesystem directory. Preflight
// already guarantees exactly one of the two is set.
func ProvideObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (objstore.Store, error) {
	if cfg.LocalDir != "" {
		store, err := objstore.NewLocalStore(cfg.LocalDir)
		if err != nil {
			return nil, errors.Wrap(err, "constructing local object store")
		}
		return store, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	client := s3.NewFromConfig(awsCfg)
	return objstore.NewS3Store(client, cfg.Bucket), nil
}

// ProvideRegistry constructs the view registry every other service resolves
// view metadata against.
func ProvideRegistry() *views.Registry {
	return views.NewDefaultRegistry()
}

// ProvideCatalogPool opens the Postgres pool backing the partition catalog.
// The returned cancel func closes the pool; callers must invoke it on
// shutdown even when an error is also returned for partially-initialized
// pools.
func ProvideCatalogPool(ctx context.Context, cfg config.CatalogConfig) (*pgxpool.Pool, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "parsing catalog DSN")
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "connecting to catalog database")
	}
	return pool, pool.Close, nil
}

// ProvideCatalog constructs the Store and ensures its schema is migrated.
func ProvideCatalog(ctx context.Context, pool *pgxpool.Pool, store objstore.Store) (*catalog.Store, error) {
	c := catalog.New(pool, store)
	if err := c.Migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "migrating catalog schema")
	}
	return c, nil
}

// ProvideIngestion constructs the ingestion service over store; chaos
// injection, when enabled, is added by ProvideMaterializer.
func ProvideIngestion(store objstore.Store) *ingestion.Service {
	return ingestion.New(store)
}

// ProvideJIT constructs the JIT partition provider over source; Build
// passes the ingestion service itself, without chaos injection.
func ProvideJIT(source jit.BlockSource) *jit.Provider {
	return jit.New(source)
}

// ProvideMaterializer constructs the materializer, wrapping source in
// chaos injection when chaosProbability is nonzero.
func ProvideMaterializer(
	registry *views.Registry, store *catalog.Store, source materializer.BlockSource, chaosProbability float32,
) *materializer.Materializer {
	return materializer.New(registry, store, chaos.WithChaosBlockSource(source, chaosProbability))
}

// ProvideQueryEngine constructs the query engine gluing the catalog, object
// store, and JIT provider together.
func ProvideQueryEngine(
	registry *views.Registry, store *catalog.Store, files objstore.Store, jitProvider *jit.Provider, blocks jit.BlockSource,
) *queryengine.Engine {
	return queryengine.New(registry, store, files, jitProvider, blocks)
}

// Build assembles every service named in cfg, returning a single cancel
// func that tears them down in reverse order. Preflight-level validation
// (e.g. rejecting both object store backends) is cfg's responsibility and
// is assumed to have already run.
func Build(ctx context.Context, cfg *config.Config) (*Services, func(), error) {
	registry := ProvideRegistry()

	store, err := ProvideObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		return nil, func() {}, err
	}

	ingest := ProvideIngestion(store)
	jitProvider := ProvideJIT(ingest)

	diags := diag.NewRegistry()
	diags.Register("object_store", diag.CheckerFunc(func(ctx context.Context) error {
		return objstore.CheckHealth(ctx, store)
	}))
	diags.Register("ingestion", ingest)

	svc := &Services{
		Registry:    registry,
		ObjectStore: store,
		Ingestion:   ingest,
		JIT:         jitProvider,
		Diag:        diags,
	}
	cleanup := func() {}

	if cfg.Catalog.DSN != "" {
		pool, cancelPool, err := ProvideCatalogPool(ctx, cfg.Catalog)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = cancelPool

		cat, err := ProvideCatalog(ctx, pool, store)
		if err != nil {
			cancelPool()
			return nil, func() {}, err
		}

		svc.CatalogPool = pool
		svc.Catalog = cat
		svc.Materializer = ProvideMaterializer(registry, cat, ingest, cfg.ChaosProbability)
		svc.QueryEngine = ProvideQueryEngine(registry, cat, store, jitProvider, ingest)
		diags.Register("catalog_pool", diag.CheckerFunc(func(ctx context.Context) error {
			return pool.Ping(ctx)
		}))
	}

	return svc, cleanup, nil
}
