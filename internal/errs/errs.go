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

// Package errs defines the sentinel error taxonomy shared by the runtime
// and lakehouse packages, grounded on the teacher's typed-sentinel style
// (internal/types.LeaseBusyError / IsLeaseBusy) but flattened to plain
// sentinels since none of this module's error kinds carry payload fields
// the caller needs beyond what errors.Wrap already attaches as context.
package errs

import "github.com/pkg/errors"

// Capacity / backpressure.
var (
	ErrQueueFull      = errors.New("queue full")
	ErrSinkBacklogged = errors.New("sink backlogged")
)

// Serialization.
var (
	ErrSchemaMismatch          = errors.New("schema mismatch")
	ErrTruncatedBlock          = errors.New("truncated block")
	ErrUnknownEventTag         = errors.New("unknown event tag")
	ErrUnsupportedFormatVersion = errors.New("unsupported format version")
)

// Catalog.
var (
	ErrPartitionNotFound  = errors.New("partition not found")
	ErrMetadataNotFound   = errors.New("metadata not found")
	ErrIncompatibleSchema = errors.New("incompatible schema")
	ErrAdvisoryLockBusy   = errors.New("advisory lock busy")
)

// Storage.
var (
	ErrObjectStoreUnavailable = errors.New("object store unavailable")
	ErrChecksumMismatch       = errors.New("checksum mismatch")
)

// Query.
var (
	ErrUnknownColumn        = errors.New("unknown column")
	ErrTypeMismatch         = errors.New("type mismatch")
	ErrNoCompatiblePartition = errors.New("no compatible partition")
)

// Admin.
var (
	ErrRetirementRefused      = errors.New("retirement refused: partition is live schema")
	ErrPartitionAlreadyRetired = errors.New("partition already retired")
)

// Dispatch / runtime lifecycle.
var (
	ErrAlreadyInitialized = errors.New("dispatch already initialized")
	ErrNotInitialized     = errors.New("dispatch not initialized")
	ErrAlreadyShutdown    = errors.New("dispatch already shut down")
)
