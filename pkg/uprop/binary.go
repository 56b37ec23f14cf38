// prospect-go: Icarus prospect save edit suite
// Copyright (C) 2018  Yishen Miao
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package uprop

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf16"
)

// ReadInt32 reads a little-endian int32.
func ReadInt32(r io.Reader) (int32, error) {
	var v int32

	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// WriteInt32 writes a little-endian int32.
func WriteInt32(w io.Writer, v int32) error {
	err := binary.Write(w, binary.LittleEndian, v)

	return err
}

// decoder reads primitives from an in-memory property stream. Every failure
// is reported as ErrMalformed.
type decoder struct {
	r *bytes.Reader
}

func (d *decoder) remaining() int {
	return d.r.Len()
}

func (d *decoder) read(v any) error {
	if err := binary.Read(d.r, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("%w: %s at offset %d", ErrMalformed, err, d.offset())
	}

	return nil
}

func (d *decoder) offset() int64 {
	return d.r.Size() - int64(d.r.Len())
}

func (d *decoder) int32() (int32, error) {
	v, err := ReadInt32(d.r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s at offset %d", ErrMalformed, err, d.offset())
	}

	return v, nil
}

func (d *decoder) uint8() (uint8, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %s at offset %d", ErrMalformed, io.ErrUnexpectedEOF, d.offset())
	}

	return b, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if n < 0 || n > d.remaining() {
		return nil, fmt.Errorf("%w: %d bytes requested, %d left at offset %d",
			ErrMalformed, n, d.remaining(), d.offset())
	}

	b := make([]byte, n)

	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	return b, nil
}

func (d *decoder) guid() (Guid, error) {
	var g Guid

	err := d.read(&g)

	return g, err
}

// string reads a length-prefixed, null-terminated string. A positive length
// counts Latin-1 bytes, a negative one UTF-16 code units.
func (d *decoder) string() (string, error) {
	n, err := d.int32()
	if err != nil {
		return "", err
	}

	switch {
	case n == 0:
		return "", nil
	case n > 0:
		b, err := d.bytes(int(n))
		if err != nil {
			return "", err
		}

		if b[n-1] != 0 {
			return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, d.offset())
		}

		r := make([]rune, n-1)
		for i, c := range b[:n-1] {
			r[i] = rune(c)
		}

		return string(r), nil
	default:
		if n == math.MinInt32 || int(-n)*2 > d.remaining() {
			return "", fmt.Errorf("%w: string of %d units exceeds data at offset %d",
				ErrMalformed, -int64(n), d.offset())
		}

		u := make([]uint16, -n)
		if err := d.read(u); err != nil {
			return "", err
		}

		if u[len(u)-1] != 0 {
			return "", fmt.Errorf("%w: unterminated string at offset %d", ErrMalformed, d.offset())
		}

		return string(utf16.Decode(u[:len(u)-1])), nil
	}
}

// encoder accumulates a property stream.
type encoder struct {
	bytes.Buffer
}

func (e *encoder) write(v any) {
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&e.Buffer, binary.LittleEndian, v)
}

func (e *encoder) int32(v int32) {
	_ = WriteInt32(&e.Buffer, v)
}

func (e *encoder) uint8(v uint8) {
	e.WriteByte(v)
}

func (e *encoder) guid(g Guid) {
	e.Write(g[:])
}

// string writes s as single bytes when it is pure ASCII and as UTF-16
// otherwise, as the engine's writer does.
func (e *encoder) string(s string) {
	if s == "" {
		e.int32(0)

		return
	}

	r := []rune(s)
	ansi := true

	for _, c := range r {
		if c > 0x7f {
			ansi = false

			break
		}
	}

	if ansi {
		e.int32(int32(len(r) + 1))

		for _, c := range r {
			e.WriteByte(byte(c))
		}

		e.WriteByte(0)

		return
	}

	u := utf16.Encode(r)
	e.int32(-int32(len(u) + 1))
	e.write(u)
	e.write(uint16(0))
}
