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

package parts

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/zeebo/blake3"

	"github.com/mys721tx/prospect-go/pkg/prospect"
	"github.com/mys721tx/prospect-go/pkg/uprop"
)

// Unpack loads the container at fn and splits it into dir.
func Unpack(ctx context.Context, fn, dir string, opts Options) error {
	g, err := prospect.LoadFile(fn)
	if err != nil {
		return stageError(StageLoad, fn, err)
	}

	return Split(ctx, g, dir, opts)
}

// Pack combines dir and writes the result to the container at fn.
func Pack(ctx context.Context, dir, fn string, opts Options) error {
	g, err := Combine(ctx, dir, opts)
	if err != nil {
		return err
	}

	alg := opts.Compression
	if alg == "" {
		alg = prospect.ZLib
	}

	if err := prospect.SaveFile(fn, g, alg); err != nil {
		return stageError(StageSaveWrite, fn, err)
	}

	opts.logger().Info("packed prospect", "path", fn, "compression", alg)

	return nil
}

// VerifyResult compares a container with a parts directory.
type VerifyResult struct {
	ContainerDigest string
	PartsDigest     string
}

// Match reports whether both sides hold the same content.
func (r *VerifyResult) Match() bool {
	return r.ContainerDigest == r.PartsDigest
}

// Verify combines dir and compares its content digest with that of the
// container at fn. Recorder order is not compared: actor ID naming does not
// keep it.
func Verify(ctx context.Context, fn, dir string, opts Options) (*VerifyResult, error) {
	g, err := prospect.LoadFile(fn)
	if err != nil {
		return nil, stageError(StageLoad, fn, err)
	}

	c, err := Combine(ctx, dir, opts)
	if err != nil {
		return nil, err
	}

	r := &VerifyResult{}

	if r.ContainerDigest, err = contentDigest(g); err != nil {
		return nil, stageError(StageLoad, fn, err)
	}

	if r.PartsDigest, err = contentDigest(c); err != nil {
		return nil, stageError(StageDataRead, dir, err)
	}

	return r, nil
}

// contentDigest returns the hex BLAKE3 digest of g's properties after the
// recorder container, in order, followed by its recorders as a sorted set
// of encodings.
func contentDigest(g *prospect.Graph) (string, error) {
	container, err := g.Recorders()
	if err != nil {
		return "", err
	}

	data, err := uprop.Marshal(g.Data[1:])
	if err != nil {
		return "", err
	}

	recorders := make([][]byte, 0, container.Len())

	for i, item := range container.Items {
		s, ok := item.(*uprop.Struct)
		if !ok || s == nil {
			return "", fmt.Errorf("recorder %d is %T", i, item)
		}

		b, err := uprop.Marshal([]*uprop.Property{{
			Name:  prospect.ContainerName,
			Type:  uprop.TypeStruct,
			Value: s,
		}})
		if err != nil {
			return "", fmt.Errorf("recorder %d: %w", i, err)
		}

		recorders = append(recorders, b)
	}

	slices.SortFunc(recorders, bytes.Compare)

	h := blake3.New()

	for _, b := range append([][]byte{data}, recorders...) {
		var n [8]byte

		binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
