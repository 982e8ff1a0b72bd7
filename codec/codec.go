/*
 * LatticeDB
 *
 * Copyright 2026 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package codec implements the deterministic, length-prefixed binary
framing spec.md §6 requires for PreparedGraph and PreparedQuery blobs:
unlike encoding/gob, two encodes of structurally-identical values
always produce byte-identical output, which spec.md §8's compiler
idempotence property depends on.
*/
package codec

import (
	"encoding/binary"
	"io"
)

/*
Writer accumulates a deterministic byte stream.
*/
type Writer struct {
	buf []byte
}

/*
NewWriter creates an empty Writer.
*/
func NewWriter() *Writer {
	return &Writer{}
}

/*
U64 appends a little-endian uint64.
*/
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

/*
Byte appends a single byte.
*/
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

/*
Bytes appends a length-prefixed byte slice.
*/
func (w *Writer) Bytes(b []byte) {
	w.U64(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

/*
Out returns the accumulated byte stream.
*/
func (w *Writer) Out() []byte {
	return w.buf
}

/*
Reader consumes a byte stream produced by Writer.
*/
type Reader struct {
	buf []byte
	pos int
}

/*
NewReader wraps data for sequential decoding.
*/
func NewReader(data []byte) *Reader {
	return &Reader{buf: data}
}

/*
U64 reads a little-endian uint64.
*/
func (r *Reader) U64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

/*
Byte reads a single byte.
*/
func (r *Reader) Byte() (byte, error) {
	if r.pos+1 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

/*
Bytes reads a length-prefixed byte slice.
*/
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.U64()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

/*
Remaining reports whether unread bytes remain.
*/
func (r *Reader) Remaining() bool {
	return r.pos < len(r.buf)
}
