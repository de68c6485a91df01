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

package event

import "sync"

// Interner assigns a stable, process-wide id to each distinct
// SpanDescriptor, so hot-path events carry a 4-byte id instead of
// repeating target/name/file/line strings per event.
type Interner struct {
	mu    sync.RWMutex
	byKey map[SpanDescriptor]uint32
	byID  []SpanDescriptor
}

// NewInterner constructs an empty interning table.
func NewInterner() *Interner {
	return &Interner{byKey: make(map[SpanDescriptor]uint32)}
}

// Intern returns the id for desc, assigning a new one on first sight.
func (in *Interner) Intern(desc SpanDescriptor) uint32 {
	in.mu.RLock()
	id, ok := in.byKey[desc]
	in.mu.RUnlock()
	if ok {
		return id
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.byKey[desc]; ok {
		return id
	}
	id = uint32(len(in.byID))
	in.byID = append(in.byID, desc)
	in.byKey[desc] = id
	return id
}

// Lookup returns the descriptor for a previously interned id.
func (in *Interner) Lookup(id uint32) (SpanDescriptor, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.byID) {
		return SpanDescriptor{}, false
	}
	return in.byID[id], true
}

// All returns a snapshot of every interned descriptor, indexed by id. The
// schema descriptor embedded in a block is built from this snapshot at
// seal time.
func (in *Interner) All() []SpanDescriptor {
	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]SpanDescriptor, len(in.byID))
	copy(out, in.byID)
	return out
}
