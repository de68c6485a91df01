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

package objstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
)

// LocalStore implements Store on the local filesystem, rooted at a base
// directory. It is the single-node deployment and test-fixture backend,
// grounded on the pack's tempodb/backend/local analogue.
type LocalStore struct {
	baseDir string
}

// NewLocalStore constructs a Store rooted at baseDir, creating it if
// necessary.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating object store base directory")
	}
	return &LocalStore{baseDir: baseDir}, nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

// Put implements Store.
func (s *LocalStore) Put(_ context.Context, key string, data []byte) error {
	full := s.path(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrap(err, "creating object store directory")
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "writing object store staging file")
	}
	if err := os.Rename(tmp, full); err != nil {
		return errors.Wrap(err, "publishing object store file")
	}
	return nil
}

// Get implements Store.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errs.ErrObjectStoreUnavailable, "key not found: "+key)
		}
		return nil, errors.Wrap(err, "reading object store file")
	}
	return data, nil
}

// GetRange implements Store.
func (s *LocalStore) GetRange(_ context.Context, key string, offset, length int64) ([]byte, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errs.ErrObjectStoreUnavailable, "key not found: "+key)
		}
		return nil, errors.Wrap(err, "opening object store file")
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return nil, errors.Wrap(err, "reading object store range")
	}
	return buf[:n], nil
}

// Delete implements Store. Deleting a missing key is not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting object store file")
	}
	return nil
}

// List implements Store.
func (s *LocalStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	root := s.path(prefix)
	var out []ObjectInfo

	walkRoot := root
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		walkRoot = filepath.Dir(root)
	}

	err := filepath.Walk(walkRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		out = append(out, ObjectInfo{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing object store")
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
