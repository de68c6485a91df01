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

// Package blockcodec serializes a sealed stream.Block plus its schema
// descriptor to a self-describing binary blob, and reverses the process.
// The format is deliberately self-describing (schema section embedded
// alongside the payload) so a reader never needs an out-of-band schema
// dictionary to decode a block — the block codec is the only place that
// boundary is crossed.
package blockcodec

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
	"github.com/micromegas-db/micromegas/internal/runtime/stream"
)

// Magic identifies a Micromegas block. Changing it is a breaking wire
// change distinct from bumping FormatVersion.
var Magic = [4]byte{'M', 'M', 'E', 'G'}

// CurrentFormatVersion is the only format_version this codec can encode;
// it can decode this version and is expected to gain backward-compatible
// decode paths for older versions as the format evolves.
const CurrentFormatVersion uint16 = 1

// lz4FrameSize bounds how much uncompressed payload each length-prefixed
// LZ4 frame covers, so a streaming reader can begin decompressing before
// the whole block has arrived.
const lz4FrameSize = 64 * 1024

// FieldKind enumerates the primitive wire types an event field can take;
// it is what the self-describing SchemaSection records per event tag.
type FieldKind byte

const (
	FieldU8 FieldKind = iota + 1
	FieldU32
	FieldU64
	FieldF64
	FieldString
	FieldPropertySet
)

var fixedLayouts = map[event.Tag][]FieldKind{
	event.TagThreadSpanBegin: {FieldU64, FieldU32, FieldU64},
	event.TagThreadSpanEnd:   {FieldU64, FieldU64},
	event.TagAsyncSpanBegin:  {FieldU64, FieldU64, FieldU32, FieldU64},
	event.TagAsyncSpanEnd:    {FieldU64, FieldU64},
	event.TagLogEntry:        {FieldU8, FieldU32, FieldU64, FieldString},
	event.TagLogEntryTagged:  {FieldU8, FieldU32, FieldU64, FieldString, FieldPropertySet},
	event.TagMeasure:         {FieldU32, FieldU64, FieldF64},
	event.TagMeasureTagged:   {FieldU32, FieldU64, FieldF64, FieldPropertySet},
}

// SchemaEntry is one row of the schema section: an event tag plus its
// field layout, as actually observed in the block being encoded.
type SchemaEntry struct {
	EventTag Tag
	Fields   []FieldKind
}

// Tag re-exports event.Tag so callers of this package don't need to
// import the event package just to read a decoded schema entry's tag.
type Tag = event.Tag

// Decoded is the result of decoding a wire block: the header fields plus
// the schema section, the span descriptor dictionary snapshot, and the raw
// (decompressed) HetQueue payload bytes.
type Decoded struct {
	FormatVersion uint16
	StreamID      uuid.UUID
	ProcessID     uuid.UUID
	BeginTimeNs   uint64
	EndTimeNs     uint64
	NbObjects     uint32
	SchemaHash    []uint32
	Schema        []SchemaEntry
	Descriptors   []event.SpanDescriptor
	Payload       []byte
}

// Encode serializes a sealed block to the wire format. compress selects
// whether the payload section is LZ4-framed; blocks are small enough on
// the ingestion hot path that callers may choose to skip compression and
// let the object store's own compression handle it instead.
func Encode(b *stream.Block, compress bool) ([]byte, error) {
	schema, err := deriveSchema(b)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	writeU16(&out, CurrentFormatVersion)
	out.Write(b.StreamID[:])
	out.Write(b.ProcessID[:])
	writeU64(&out, b.BeginTimeNs)
	writeU64(&out, b.EndTimeNs)
	writeU32(&out, b.NbObjects)
	writeU32(&out, uint32(len(b.SchemaHash)))
	for _, h := range b.SchemaHash {
		writeU32(&out, h)
	}

	writeU32(&out, uint32(len(schema)))
	for _, e := range schema {
		out.WriteByte(byte(e.EventTag))
		out.WriteByte(byte(len(e.Fields)))
		for _, f := range e.Fields {
			out.WriteByte(byte(f))
		}
	}

	writeU32(&out, uint32(len(b.Descriptors)))
	for _, d := range b.Descriptors {
		writeDescriptor(&out, d)
	}

	payload := b.Bytes()
	writeU32(&out, uint32(len(payload)))
	out.WriteByte(boolByte(compress))
	if compress {
		if err := writeLZ4Frames(&out, payload); err != nil {
			return nil, err
		}
	} else {
		out.Write(payload)
	}

	return out.Bytes(), nil
}

// Decode parses a wire block back into its header, schema, and raw
// payload bytes. It does not re-decode the individual events; callers use
// hetqueue.Iterator (or event.Decode directly) over Decoded.Payload for
// that, exactly as they would for a freshly-sealed in-process block.
func Decode(data []byte) (*Decoded, error) {
	r := bytes.NewReader(data)

	var magic [4]byte
	if _, err := fullRead(r, magic[:]); err != nil {
		return nil, errors.WithStack(errs.ErrTruncatedBlock)
	}
	if magic != Magic {
		return nil, errors.WithStack(errs.ErrSchemaMismatch)
	}

	formatVersion, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if formatVersion != CurrentFormatVersion {
		return nil, errors.WithStack(errs.ErrUnsupportedFormatVersion)
	}

	var streamID, processID uuid.UUID
	if _, err := fullRead(r, streamID[:]); err != nil {
		return nil, errors.WithStack(errs.ErrTruncatedBlock)
	}
	if _, err := fullRead(r, processID[:]); err != nil {
		return nil, errors.WithStack(errs.ErrTruncatedBlock)
	}

	beginTime, err := readU64(r)
	if err != nil {
		return nil, err
	}
	endTime, err := readU64(r)
	if err != nil {
		return nil, err
	}
	nbObjects, err := readU32(r)
	if err != nil {
		return nil, err
	}

	hashLen, err := readU32(r)
	if err != nil {
		return nil, err
	}
	schemaHash := make([]uint32, hashLen)
	for i := range schemaHash {
		v, err := readU32(r)
		if err != nil {
			return nil, err
		}
		schemaHash[i] = v
	}

	entryCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	schema := make([]SchemaEntry, entryCount)
	for i := range schema {
		tagByte, err := r.ReadByte()
		if err != nil {
			return nil, errors.WithStack(errs.ErrTruncatedBlock)
		}
		fieldCount, err := r.ReadByte()
		if err != nil {
			return nil, errors.WithStack(errs.ErrTruncatedBlock)
		}
		fields := make([]FieldKind, fieldCount)
		for j := range fields {
			fb, err := r.ReadByte()
			if err != nil {
				return nil, errors.WithStack(errs.ErrTruncatedBlock)
			}
			fields[j] = FieldKind(fb)
		}
		schema[i] = SchemaEntry{EventTag: Tag(tagByte), Fields: fields}
	}

	descCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	descriptors := make([]event.SpanDescriptor, descCount)
	for i := range descriptors {
		d, err := readDescriptor(r)
		if err != nil {
			return nil, err
		}
		descriptors[i] = d
	}

	payloadSize, err := readU32(r)
	if err != nil {
		return nil, err
	}
	compressedByte, err := r.ReadByte()
	if err != nil {
		return nil, errors.WithStack(errs.ErrTruncatedBlock)
	}

	var payload []byte
	if compressedByte != 0 {
		payload, err = readLZ4Frames(r, int(payloadSize))
		if err != nil {
			return nil, err
		}
	} else {
		payload = make([]byte, payloadSize)
		if _, err := fullRead(r, payload); err != nil {
			return nil, errors.WithStack(errs.ErrTruncatedBlock)
		}
	}

	return &Decoded{
		FormatVersion: formatVersion,
		StreamID:      streamID,
		ProcessID:     processID,
		BeginTimeNs:   beginTime,
		EndTimeNs:     endTime,
		NbObjects:     nbObjects,
		SchemaHash:    schemaHash,
		Schema:        schema,
		Descriptors:   descriptors,
		Payload:       payload,
	}, nil
}

// deriveSchema walks a block once to collect the distinct event tags it
// contains and attaches each its known fixed field layout, validating
// along the way that every tag present is one this codec understands.
func deriveSchema(b *stream.Block) ([]SchemaEntry, error) {
	seen := make(map[event.Tag]bool)
	var order []event.Tag

	it := b.Iter()
	for {
		ev, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		tag := tagOf(ev)
		if !seen[tag] {
			seen[tag] = true
			order = append(order, tag)
		}
	}

	entries := make([]SchemaEntry, 0, len(order))
	for _, tag := range order {
		layout, ok := fixedLayouts[tag]
		if !ok {
			return nil, errors.WithStack(errs.ErrUnknownEventTag)
		}
		entries = append(entries, SchemaEntry{EventTag: tag, Fields: layout})
	}
	return entries, nil
}

func tagOf(ev event.Any) event.Tag {
	switch ev.(type) {
	case event.ThreadSpanBegin:
		return event.TagThreadSpanBegin
	case event.ThreadSpanEnd:
		return event.TagThreadSpanEnd
	case event.AsyncSpanBegin:
		return event.TagAsyncSpanBegin
	case event.AsyncSpanEnd:
		return event.TagAsyncSpanEnd
	case event.LogEntry:
		return event.TagLogEntry
	case event.LogEntryTagged:
		return event.TagLogEntryTagged
	case event.Measure:
		return event.TagMeasure
	case event.MeasureTagged:
		return event.TagMeasureTagged
	default:
		return 0
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
