/*
 * jdecomp - a Java class-file decompiler
 * Licensed under the Mozilla Public License 2.0 (MPL 2.0)
 */

// Package reader implements a big-endian typed cursor over an immutable
// byte slice, with bounds checking on every read. It never allocates on
// behalf of the caller except when returning an owned copy of raw bytes
// (Bytes).
package reader

import (
	"encoding/binary"
	"math"

	"jdecomp/jerrors"
)

// Reader is a read-only cursor over a byte slice. The zero value is not
// usable; construct with New. Reader never mutates the backing slice.
type Reader struct {
	data []byte
	pos  int
}

// New wraps data for sequential, bounds-checked reads starting at offset 0.
// The slice is not copied; callers must not mutate it while the Reader is
// in use.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total number of bytes in the underlying slice.
func (r *Reader) Len() int { return len(r.data) }

// Pos returns the current cursor offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Seek repositions the cursor to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return jerrors.InvalidPosition(pos, len(r.data))
	}
	r.pos = pos
	return nil
}

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return jerrors.UnexpectedEOF(n, r.Remaining())
	}
	return nil
}

// U1 reads one unsigned byte.
func (r *Reader) U1() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// S1 reads one signed byte.
func (r *Reader) S1() (int8, error) {
	v, err := r.U1()
	return int8(v), err
}

// U2 reads a big-endian unsigned 16-bit value.
func (r *Reader) U2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// S2 reads a big-endian signed 16-bit value.
func (r *Reader) S2() (int16, error) {
	v, err := r.U2()
	return int16(v), err
}

// U4 reads a big-endian unsigned 32-bit value.
func (r *Reader) U4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// S4 reads a big-endian signed 32-bit value.
func (r *Reader) S4() (int32, error) {
	v, err := r.U4()
	return int32(v), err
}

// U8 reads a big-endian unsigned 64-bit value.
func (r *Reader) U8() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// S8 reads a big-endian signed 64-bit value.
func (r *Reader) S8() (int64, error) {
	v, err := r.U8()
	return int64(v), err
}

// F4 reads an IEEE-754 single-precision float (bit-reinterpreted, not
// converted).
func (r *Reader) F4() (float32, error) {
	v, err := r.U4()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// F8 reads an IEEE-754 double-precision float (bit-reinterpreted).
func (r *Reader) F8() (float64, error) {
	v, err := r.U8()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Bytes reads n raw bytes and returns an owned copy (never aliasing the
// Reader's backing slice).
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// Skip advances the cursor by n bytes without copying them.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Align advances the cursor to the next multiple-of-unit boundary, used by
// tableswitch/lookupswitch which pad to a 4-byte boundary measured from the
// start of the method's bytecode array (base), not from the Reader's own
// start. Callers pass base as the PC of byte 0 in this Reader.
func (r *Reader) Align(base, unit int) error {
	abs := base + r.pos
	rem := abs % unit
	if rem == 0 {
		return nil
	}
	return r.Skip(unit - rem)
}
