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

// Package props implements property column storage: the canonical
// Dictionary<i32, Binary> (JSONB) on-disk/in-memory representation of
// per-event property maps, the four-way reader conversions that accept any
// encoding producers use, and the string column accessor that transparently
// covers both plain and dictionary-encoded UTF-8 columns.
package props

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
)

// Doc is a decoded JSONB-encoded property object: sorted (key, value)
// pairs supporting O(log n) key lookup without a full unmarshal.
//
// This is a hand-rolled minimal binary format, not a full JSONB
// implementation — see DESIGN.md's standard-library justification: no
// pack library exposes Postgres's on-disk JSONB format as a standalone
// encoder, and we need to produce these bytes ourselves as the Arrow
// dictionary payload, not send them through a Postgres wire connection.
type Doc struct {
	keys   []string
	values []string
}

// jsonbMagic tags the start of an encoded document so a reader can fail
// fast on data that isn't in this format.
const jsonbMagic = 0x4a53 // "JS"

// EncodeJSONB encodes an ordered property list into the canonical binary
// form. Keys are sorted and de-duplicated (last value for a repeated key
// wins, matching a JSON object's own last-key-wins semantics).
func EncodeJSONB(pairs []Pair) []byte {
	dedup := dedupLastWins(pairs)
	sort.Slice(dedup, func(i, j int) bool { return dedup[i].Key < dedup[j].Key })

	var buf []byte
	buf = appendU16(buf, jsonbMagic)
	buf = appendU32(buf, uint32(len(dedup)))
	for _, p := range dedup {
		buf = appendString(buf, p.Key)
		buf = appendString(buf, p.Value)
	}
	return buf
}

// Pair is one property key/value pair, the input shape EncodeJSONB and
// the List<Struct{key,value}> reader conversion share.
type Pair struct {
	Key   string
	Value string
}

func dedupLastWins(pairs []Pair) []Pair {
	byKey := make(map[string]string, len(pairs))
	order := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if _, seen := byKey[p.Key]; !seen {
			order = append(order, p.Key)
		}
		byKey[p.Key] = p.Value
	}
	out := make([]Pair, len(order))
	for i, k := range order {
		out[i] = Pair{Key: k, Value: byKey[k]}
	}
	return out
}

// DecodeJSONB parses a canonical-form document for key lookups.
func DecodeJSONB(data []byte) (*Doc, error) {
	if len(data) < 6 {
		return nil, errors.WithStack(errs.ErrSchemaMismatch)
	}
	if readU16(data[0:2]) != jsonbMagic {
		return nil, errors.WithStack(errs.ErrSchemaMismatch)
	}
	count := int(readU32(data[2:6]))
	off := 6
	keys := make([]string, count)
	values := make([]string, count)
	for i := 0; i < count; i++ {
		key, n, err := readString(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		value, n, err := readString(data[off:])
		if err != nil {
			return nil, err
		}
		off += n
		keys[i] = key
		values[i] = value
	}
	return &Doc{keys: keys, values: values}, nil
}

// Get performs a binary search for key (documents are stored key-sorted),
// returning ("", false) if absent.
func (d *Doc) Get(key string) (string, bool) {
	i := sort.SearchStrings(d.keys, key)
	if i < len(d.keys) && d.keys[i] == key {
		return d.values[i], true
	}
	return "", false
}

// Len returns the number of keys in the document.
func (d *Doc) Len() int {
	return len(d.keys)
}

// Pairs reconstructs the document as an ordered (sorted) pair list.
func (d *Doc) Pairs() []Pair {
	out := make([]Pair, len(d.keys))
	for i := range d.keys {
		out[i] = Pair{Key: d.keys[i], Value: d.values[i]}
	}
	return out
}

func appendU16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func readU16(src []byte) uint16 {
	return binary.BigEndian.Uint16(src)
}

func readU32(src []byte) uint32 {
	return binary.BigEndian.Uint32(src)
}

func readString(src []byte) (string, int, error) {
	if len(src) < 4 {
		return "", 0, errors.WithStack(errs.ErrTruncatedBlock)
	}
	n := int(readU32(src[0:4]))
	if len(src) < 4+n {
		return "", 0, errors.WithStack(errs.ErrTruncatedBlock)
	}
	return string(src[4 : 4+n]), 4 + n, nil
}
