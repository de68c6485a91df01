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

// Package fixture provides a self-contained test fixture bundling the
// lakehouse's services against a local filesystem object store and
// (optionally) a real Postgres catalog, modeled on the teacher's
// sinktest/base.Fixture / sinktest/all.Fixture pair: a base fixture of
// cheap, always-available resources plus an outer fixture layering the
// services built on top of them. Go has no `wire gen` binary available in
// this exercise, so NewFixture is hand-maintained rather than generated,
// following the same constructor-plus-cascading-cleanup shape
// internal/sinktest/base/wire_gen.go shows.
package fixture

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/lakehouse/catalog"
	"github.com/micromegas-db/micromegas/internal/lakehouse/ingestion"
	"github.com/micromegas-db/micromegas/internal/lakehouse/jit"
	"github.com/micromegas-db/micromegas/internal/lakehouse/materializer"
	"github.com/micromegas-db/micromegas/internal/lakehouse/objstore"
	"github.com/micromegas-db/micromegas/internal/lakehouse/queryengine"
	"github.com/micromegas-db/micromegas/internal/lakehouse/views"
)

// catalogDSNEnvVar names the environment variable tests consult to opt
// into catalog-backed assertions. Its absence is not an error: Fixture
// simply leaves Catalog nil, and tests that need it call t.Skip
// themselves, the same "skip when the real dependency is unavailable"
// posture as the teacher's database-backed sinktest fixtures.
const catalogDSNEnvVar = "MICROMEGAS_TEST_CATALOG_DSN"

// Fixture bundles every lakehouse service a test typically needs, wired
// against a throwaway local object store.
type Fixture struct {
	Registry    *views.Registry
	ObjectStore objstore.Store
	Catalog     *catalog.Store // nil unless MICROMEGAS_TEST_CATALOG_DSN is set
	Ingestion   *ingestion.Service
	Materializer *materializer.Materializer
	JIT         *jit.Provider
	QueryEngine *queryengine.Engine
}

// NewFixture constructs a Fixture rooted at dir (typically t.TempDir()).
// It returns a cleanup function mirroring the teacher's cascading-cleanup
// pattern, even though in this fixture's case there is only ever one real
// resource (the optional catalog pool) to release.
func NewFixture(ctx context.Context, dir string) (*Fixture, func(), error) {
	store, err := objstore.NewLocalStore(dir)
	if err != nil {
		return nil, nil, errors.Wrap(err, "constructing local object store")
	}

	registry := views.NewDefaultRegistry()
	ingest := ingestion.New(store)
	jitProvider := jit.New(ingest)

	f := &Fixture{
		Registry:    registry,
		ObjectStore: store,
		Ingestion:   ingest,
		JIT:         jitProvider,
	}

	cleanup := func() {}

	if dsn := os.Getenv(catalogDSNEnvVar); dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, nil, errors.Wrap(err, "connecting to catalog test database")
		}
		store := catalog.New(pool, f.ObjectStore)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "migrating catalog test database")
		}
		f.Catalog = store
		f.Materializer = materializer.New(registry, store, ingest)
		f.QueryEngine = queryengine.New(registry, store, f.ObjectStore, jitProvider, ingest)
		cleanup = func() { pool.Close() }
	}

	return f, cleanup, nil
}
