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

package prospect

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Algorithm names the compression applied to a prospect blob.
type Algorithm string

const (
	// ZLib is the algorithm the game writes and the only one it reads.
	ZLib Algorithm = "ZLib"
	// LZ4 is LZ4 block compression.
	LZ4 Algorithm = "LZ4"
	// Zstd is zstandard compression.
	Zstd Algorithm = "Zstd"
	// None stores the property stream as is.
	None Algorithm = "None"
)

// ParseAlgorithm parses an algorithm name, ignoring case. The empty string
// is ZLib.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "", "zlib":
		return ZLib, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	case "none":
		return None, nil
	default:
		return "", fmt.Errorf("unknown compression algorithm: %q", name)
	}
}

// Frame provides storage for a prospect blob by embedding bytes.Buffer.
type Frame struct {
	SizeRaw   int32
	SizeCom   int32
	Algorithm Algorithm
	isEncoded bool
	bytes.Buffer
}

// NewEncodedFrame returns a frame holding compressed blob data as read from
// a container.
func NewEncodedFrame(b []byte, sizeRaw int32, alg Algorithm) *Frame {
	f := &Frame{
		SizeRaw:   sizeRaw,
		SizeCom:   int32(len(b)),
		Algorithm: alg,
		isEncoded: true,
	}

	f.Write(b)

	return f
}

// NewFrame returns a frame holding a raw property stream to be compressed
// with alg.
func NewFrame(b []byte, alg Algorithm) *Frame {
	f := &Frame{
		SizeRaw:   int32(len(b)),
		Algorithm: alg,
	}

	f.Write(b)

	return f
}

// Decode decodes the frame content in place. Decode will return error when
// isEncoded is false.
func (f *Frame) Decode() error {
	if !f.isEncoded {
		return fmt.Errorf("Frame is not encoded")
	}

	if f.SizeRaw < 0 {
		return fmt.Errorf("invalid uncompressed size %d", f.SizeRaw)
	}

	var (
		b   []byte
		err error
	)

	// One byte past the declared size is enough to report a mismatch.
	limit := int64(f.SizeRaw) + 1

	switch f.Algorithm {
	case ZLib, "":
		b, err = inflate(f.Bytes(), limit)
	case LZ4:
		b = make([]byte, f.SizeRaw)

		var n int

		n, err = lz4.UncompressBlock(f.Bytes(), b)
		b = b[:max(n, 0)]
	case Zstd:
		b, err = unzstd(f.Bytes(), limit)
	case None:
		b = bytes.Clone(f.Bytes())
	default:
		err = fmt.Errorf("unsupported compression algorithm %q", f.Algorithm)
	}

	if err != nil {
		return err
	}

	if int32(len(b)) != f.SizeRaw {
		return fmt.Errorf(
			"expecting %d bytes, read %d",
			f.SizeRaw, int32(len(b)),
		)
	}

	// Keep a non-nil buffer so that an empty stream reads back as empty
	// rather than nil.
	f.Buffer = *bytes.NewBuffer(make([]byte, 0, len(b)))

	_, err = f.Write(b)

	f.isEncoded = false

	return err
}

// Encode encodes the frame content in place. Encode will return error when
// isEncoded is true.
func (f *Frame) Encode() error {
	if f.isEncoded {
		return fmt.Errorf("Frame is already encoded")
	}

	var (
		b   []byte
		err error
	)

	switch f.Algorithm {
	case ZLib, "":
		f.Algorithm = ZLib
		b, err = deflate(f.Bytes())
	case LZ4:
		b, err = compressLZ4(f.Bytes())

		if err == nil && b == nil {
			f.Algorithm = None
			b = bytes.Clone(f.Bytes())
		}
	case Zstd:
		b, err = enzstd(f.Bytes())
	case None:
		b = bytes.Clone(f.Bytes())
	default:
		err = fmt.Errorf("unsupported compression algorithm %q", f.Algorithm)
	}

	if err != nil {
		return err
	}

	f.SizeCom = int32(len(b))

	f.Reset()

	_, err = f.Write(b)

	f.isEncoded = true

	return err
}

// inflate decompresses at most limit bytes of b.
func inflate(b []byte, limit int64) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	defer r.Close()

	return io.ReadAll(io.LimitReader(r, limit))
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(b); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// compressLZ4 returns nil when the data is not compressible.
func compressLZ4(b []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(b)))

	n, err := lz4.CompressBlock(b, dst, make([]int, 1<<16))
	if err != nil {
		return nil, err
	}

	// lz4.CompressBlock returns 0 if the data is not compressible. Output
	// no smaller than the input counts as incompressible too.
	if n == 0 || n >= len(b) {
		return nil, nil
	}

	return dst[:n], nil
}

func unzstd(b []byte, limit int64) ([]byte, error) {
	d, err := zstd.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	defer d.Close()

	return io.ReadAll(io.LimitReader(d, limit))
}

func enzstd(b []byte) ([]byte, error) {
	e, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}

	defer e.Close()

	return e.EncodeAll(b, nil), nil
}
