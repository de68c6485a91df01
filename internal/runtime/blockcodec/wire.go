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

package blockcodec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
	"github.com/micromegas-db/micromegas/internal/runtime/event"
)

func writeU16(w *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.Write(buf[:])
}

func writeU32(w *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.Write(buf[:])
}

func writeU64(w *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func readU16(r *bytes.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := fullRead(r, buf[:]); err != nil {
		return 0, errors.WithStack(errs.ErrTruncatedBlock)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := fullRead(r, buf[:]); err != nil {
		return 0, errors.WithStack(errs.ErrTruncatedBlock)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := fullRead(r, buf[:]); err != nil {
		return 0, errors.WithStack(errs.ErrTruncatedBlock)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func fullRead(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}

func writeString(w *bytes.Buffer, s string) {
	writeU32(w, uint32(len(s)))
	w.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := fullRead(r, buf); err != nil {
		return "", errors.WithStack(errs.ErrTruncatedBlock)
	}
	return string(buf), nil
}

// writeDescriptor serializes one span descriptor dictionary entry: the
// target, name and file strings plus the source line, in the order
// SpanDescriptor declares them.
func writeDescriptor(w *bytes.Buffer, d event.SpanDescriptor) {
	writeString(w, d.Target)
	writeString(w, d.Name)
	writeString(w, d.File)
	writeU32(w, d.Line)
}

func readDescriptor(r *bytes.Reader) (event.SpanDescriptor, error) {
	target, err := readString(r)
	if err != nil {
		return event.SpanDescriptor{}, err
	}
	name, err := readString(r)
	if err != nil {
		return event.SpanDescriptor{}, err
	}
	file, err := readString(r)
	if err != nil {
		return event.SpanDescriptor{}, err
	}
	line, err := readU32(r)
	if err != nil {
		return event.SpanDescriptor{}, err
	}
	return event.SpanDescriptor{Target: target, Name: name, File: file, Line: line}, nil
}

// writeLZ4Frames splits payload into lz4FrameSize chunks, compresses each
// independently, and writes a 4-byte big-endian compressed-length prefix
// ahead of each so a streaming reader can decompress frame by frame
// without buffering the whole block.
func writeLZ4Frames(w *bytes.Buffer, payload []byte) error {
	compBuf := make([]byte, lz4.CompressBlockBound(lz4FrameSize))
	var compressor lz4.Compressor

	for off := 0; off < len(payload); off += lz4FrameSize {
		end := off + lz4FrameSize
		if end > len(payload) {
			end = len(payload)
		}
		chunk := payload[off:end]

		n, err := compressor.CompressBlock(chunk, compBuf)
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			// Incompressible chunk: lz4 signals this by returning 0;
			// store it raw, prefixed with length 0 marker handled by
			// storing the chunk with its length equal to len(chunk) and
			// a leading sentinel. To keep the frame format simple we
			// instead always store compressed bytes, falling back to
			// stored-as-is with the high bit of the length prefix set.
			writeU32(w, uint32(len(chunk))|rawFrameBit)
			w.Write(chunk)
			continue
		}
		writeU32(w, uint32(n))
		w.Write(compBuf[:n])
	}
	return nil
}

// rawFrameBit flags a frame that was stored uncompressed because lz4
// could not shrink it (common for very small or already-dense chunks).
const rawFrameBit = uint32(1) << 31

func readLZ4Frames(r *bytes.Reader, totalSize int) ([]byte, error) {
	out := make([]byte, 0, totalSize)
	decompBuf := make([]byte, lz4FrameSize)

	for len(out) < totalSize {
		frameLen, err := readU32(r)
		if err != nil {
			return nil, err
		}
		raw := frameLen&rawFrameBit != 0
		length := int(frameLen &^ rawFrameBit)

		buf := make([]byte, length)
		if _, err := fullRead(r, buf); err != nil {
			return nil, errors.WithStack(errs.ErrTruncatedBlock)
		}

		if raw {
			out = append(out, buf...)
			continue
		}

		n, err := lz4.UncompressBlock(buf, decompBuf)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, decompBuf[:n]...)
	}
	return out, nil
}
