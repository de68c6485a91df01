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

// Package event defines the fixed set of tagged, binary-encodable event
// variants a HetQueue stores, plus the SpanDescriptor interning table and
// PropertySet type shared across all variants.
//
// Encoding is hand-rolled (encoding/binary, not a reflective serializer)
// because the hot path must stay allocation-free and the byte layout of
// each variant is fixed at compile time; see DESIGN.md's standard-library
// justification for why no corpus serialization library is used here.
package event

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
)

// Tag identifies an event variant's binary layout. Values are part of the
// wire format: do not renumber existing tags.
type Tag byte

const (
	TagThreadSpanBegin Tag = 1
	TagThreadSpanEnd   Tag = 2
	TagAsyncSpanBegin  Tag = 3
	TagAsyncSpanEnd    Tag = 4
	TagLogEntry        Tag = 5
	TagLogEntryTagged  Tag = 6
	TagMeasure         Tag = 7
	TagMeasureTagged   Tag = 8
)

// LogLevel mirrors the small fixed set of severities the runtime emits.
type LogLevel uint8

const (
	LevelTrace LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Property is one (key, value) pair in an ordered PropertySet.
type Property struct {
	Key   string
	Value string
}

// PropertySet is an ordered list of string pairs attached to tagged log
// entries and measures.
type PropertySet []Property

// SpanDescriptor is static call-site metadata referenced by id from
// ThreadSpan/AsyncSpan events; it is interned once per process so the hot
// path only ever writes a 4-byte id.
type SpanDescriptor struct {
	Target string
	Name   string
	File   string
	Line   uint32
}

// Encodable is implemented by every event variant.
type Encodable interface {
	// Tag returns the variant's wire tag.
	Tag() Tag
	// EncodedLen returns the exact number of bytes Encode will write.
	EncodedLen() int
	// Encode appends the variant's field bytes (not including the tag
	// byte, which the queue writes separately) to dst and returns the
	// resulting slice.
	Encode(dst []byte) []byte
}

// Any is the decoded form of one event, tagged by its concrete Go type.
// Consumers type-switch on Any to dispatch per variant.
type Any interface {
	isEvent()
}

type ThreadSpanBegin struct {
	SpanID uint64
	DescID uint32
	TimeNs uint64
}

type ThreadSpanEnd struct {
	SpanID uint64
	TimeNs uint64
}

type AsyncSpanBegin struct {
	SpanID   uint64
	ParentID uint64
	DescID   uint32
	TimeNs   uint64
}

type AsyncSpanEnd struct {
	SpanID uint64
	TimeNs uint64
}

type LogEntry struct {
	Level  LogLevel
	DescID uint32
	TimeNs uint64
	Msg    string
}

type LogEntryTagged struct {
	Level      LogLevel
	DescID     uint32
	TimeNs     uint64
	Msg        string
	Properties PropertySet
}

type Measure struct {
	DescID uint32
	TimeNs uint64
	Value  float64
}

type MeasureTagged struct {
	DescID     uint32
	TimeNs     uint64
	Value      float64
	Properties PropertySet
}

func (ThreadSpanBegin) isEvent()  {}
func (ThreadSpanEnd) isEvent()    {}
func (AsyncSpanBegin) isEvent()   {}
func (AsyncSpanEnd) isEvent()     {}
func (LogEntry) isEvent()         {}
func (LogEntryTagged) isEvent()   {}
func (Measure) isEvent()          {}
func (MeasureTagged) isEvent()    {}

func (ThreadSpanBegin) Tag() Tag { return TagThreadSpanBegin }
func (ThreadSpanEnd) Tag() Tag   { return TagThreadSpanEnd }
func (AsyncSpanBegin) Tag() Tag  { return TagAsyncSpanBegin }
func (AsyncSpanEnd) Tag() Tag    { return TagAsyncSpanEnd }
func (LogEntry) Tag() Tag        { return TagLogEntry }
func (LogEntryTagged) Tag() Tag  { return TagLogEntryTagged }
func (Measure) Tag() Tag         { return TagMeasure }
func (MeasureTagged) Tag() Tag   { return TagMeasureTagged }

func (e ThreadSpanBegin) EncodedLen() int { return 8 + 4 + 8 }
func (e ThreadSpanBegin) Encode(dst []byte) []byte {
	dst = appendU64(dst, e.SpanID)
	dst = appendU32(dst, e.DescID)
	dst = appendU64(dst, e.TimeNs)
	return dst
}

func (e ThreadSpanEnd) EncodedLen() int { return 8 + 8 }
func (e ThreadSpanEnd) Encode(dst []byte) []byte {
	dst = appendU64(dst, e.SpanID)
	dst = appendU64(dst, e.TimeNs)
	return dst
}

func (e AsyncSpanBegin) EncodedLen() int { return 8 + 8 + 4 + 8 }
func (e AsyncSpanBegin) Encode(dst []byte) []byte {
	dst = appendU64(dst, e.SpanID)
	dst = appendU64(dst, e.ParentID)
	dst = appendU32(dst, e.DescID)
	dst = appendU64(dst, e.TimeNs)
	return dst
}

func (e AsyncSpanEnd) EncodedLen() int { return 8 + 8 }
func (e AsyncSpanEnd) Encode(dst []byte) []byte {
	dst = appendU64(dst, e.SpanID)
	dst = appendU64(dst, e.TimeNs)
	return dst
}

func (e LogEntry) EncodedLen() int { return 1 + 4 + 8 + 4 + len(e.Msg) }
func (e LogEntry) Encode(dst []byte) []byte {
	dst = append(dst, byte(e.Level))
	dst = appendU32(dst, e.DescID)
	dst = appendU64(dst, e.TimeNs)
	dst = appendString(dst, e.Msg)
	return dst
}

func (e LogEntryTagged) EncodedLen() int {
	return 1 + 4 + 8 + 4 + len(e.Msg) + propertiesLen(e.Properties)
}
func (e LogEntryTagged) Encode(dst []byte) []byte {
	dst = append(dst, byte(e.Level))
	dst = appendU32(dst, e.DescID)
	dst = appendU64(dst, e.TimeNs)
	dst = appendString(dst, e.Msg)
	dst = appendProperties(dst, e.Properties)
	return dst
}

func (e Measure) EncodedLen() int { return 4 + 8 + 8 }
func (e Measure) Encode(dst []byte) []byte {
	dst = appendU32(dst, e.DescID)
	dst = appendU64(dst, e.TimeNs)
	dst = appendU64(dst, mathFloatBits(e.Value))
	return dst
}

func (e MeasureTagged) EncodedLen() int {
	return 4 + 8 + 8 + propertiesLen(e.Properties)
}
func (e MeasureTagged) Encode(dst []byte) []byte {
	dst = appendU32(dst, e.DescID)
	dst = appendU64(dst, e.TimeNs)
	dst = appendU64(dst, mathFloatBits(e.Value))
	dst = appendProperties(dst, e.Properties)
	return dst
}

// Decode reads one event of the given tag from src, returning the decoded
// event and the number of bytes consumed. It returns errs.ErrTruncatedBlock
// if src is shorter than the variant requires, and errs.ErrUnknownEventTag
// for a tag value with no known decoder.
func Decode(tag Tag, src []byte) (Any, int, error) {
	switch tag {
	case TagThreadSpanBegin:
		if len(src) < 20 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		return ThreadSpanBegin{
			SpanID: readU64(src[0:8]),
			DescID: readU32(src[8:12]),
			TimeNs: readU64(src[12:20]),
		}, 20, nil
	case TagThreadSpanEnd:
		if len(src) < 16 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		return ThreadSpanEnd{
			SpanID: readU64(src[0:8]),
			TimeNs: readU64(src[8:16]),
		}, 16, nil
	case TagAsyncSpanBegin:
		if len(src) < 28 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		return AsyncSpanBegin{
			SpanID:   readU64(src[0:8]),
			ParentID: readU64(src[8:16]),
			DescID:   readU32(src[16:20]),
			TimeNs:   readU64(src[20:28]),
		}, 28, nil
	case TagAsyncSpanEnd:
		if len(src) < 16 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		return AsyncSpanEnd{
			SpanID: readU64(src[0:8]),
			TimeNs: readU64(src[8:16]),
		}, 16, nil
	case TagLogEntry:
		if len(src) < 13 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		level := LogLevel(src[0])
		descID := readU32(src[1:5])
		timeNs := readU64(src[5:13])
		msg, n, err := readString(src[13:])
		if err != nil {
			return nil, 0, err
		}
		return LogEntry{Level: level, DescID: descID, TimeNs: timeNs, Msg: msg}, 13 + n, nil
	case TagLogEntryTagged:
		if len(src) < 13 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		level := LogLevel(src[0])
		descID := readU32(src[1:5])
		timeNs := readU64(src[5:13])
		off := 13
		msg, n, err := readString(src[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		props, n, err := readProperties(src[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		return LogEntryTagged{Level: level, DescID: descID, TimeNs: timeNs, Msg: msg, Properties: props}, off, nil
	case TagMeasure:
		if len(src) < 20 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		return Measure{
			DescID: readU32(src[0:4]),
			TimeNs: readU64(src[4:12]),
			Value:  mathFloatFromBits(readU64(src[12:20])),
		}, 20, nil
	case TagMeasureTagged:
		if len(src) < 20 {
			return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
		}
		descID := readU32(src[0:4])
		timeNs := readU64(src[4:12])
		value := mathFloatFromBits(readU64(src[12:20]))
		props, n, err := readProperties(src[20:])
		if err != nil {
			return nil, 0, err
		}
		return MeasureTagged{DescID: descID, TimeNs: timeNs, Value: value, Properties: props}, 20 + n, nil
	default:
		return nil, 0, errors.WithStack(errs.ErrUnknownEventTag)
	}
}

func appendU32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func appendU64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func appendProperties(dst []byte, props PropertySet) []byte {
	dst = appendU32(dst, uint32(len(props)))
	for _, p := range props {
		dst = appendString(dst, p.Key)
		dst = appendString(dst, p.Value)
	}
	return dst
}

func propertiesLen(props PropertySet) int {
	n := 4
	for _, p := range props {
		n += 4 + len(p.Key) + 4 + len(p.Value)
	}
	return n
}

func readU32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

func readU64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
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

func readProperties(src []byte) (PropertySet, int, error) {
	if len(src) < 4 {
		return nil, 0, errors.WithStack(errs.ErrTruncatedBlock)
	}
	count := int(readU32(src[0:4]))
	off := 4
	props := make(PropertySet, 0, count)
	for i := 0; i < count; i++ {
		key, n, err := readString(src[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		value, n, err := readString(src[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		props = append(props, Property{Key: key, Value: value})
	}
	return props, off, nil
}
