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

// Package prospect reads and writes Icarus prospect save containers.
//
// A container is a JSON document holding the prospect's metadata and a
// compressed blob. The blob decodes to a property list whose first entry is
// always the StateRecorderBlobs array of recorders.
package prospect

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"

	"github.com/mys721tx/prospect-go/pkg/uprop"
)

// ContainerName is the name of the array property holding all recorders.
const ContainerName = "StateRecorderBlobs"

// ErrFormat is returned when a container does not have the expected shape.
var ErrFormat = errors.New("invalid prospect container")

// Info is the prospect metadata record.
type Info struct {
	ProspectID              string          `json:"ProspectID"`
	ClaimedAccountID        string          `json:"ClaimedAccountID"`
	ClaimedAccountCharacter int32           `json:"ClaimedAccountCharacter"`
	ProspectDTKey           string          `json:"ProspectDTKey"`
	FactionMissionDTKey     string          `json:"FactionMissionDTKey"`
	LobbyName               string          `json:"LobbyName"`
	ExpireTime              int64           `json:"ExpireTime"`
	ProspectState           string          `json:"ProspectState"`
	AssociatedMembers       []Member        `json:"AssociatedMembers,omitempty"`
	Cost                    int32           `json:"Cost"`
	Reward                  int32           `json:"Reward"`
	Difficulty              string          `json:"Difficulty"`
	Insurance               bool            `json:"Insurance"`
	NoRespawns              bool            `json:"NoRespawns"`
	ElapsedTime             int64           `json:"ElapsedTime"`
	SelectedDropPoint       int32           `json:"SelectedDropPoint"`
	CustomSettings          []CustomSetting `json:"CustomSettings,omitempty"`
}

// Member is a player associated with a prospect.
type Member struct {
	AccountName        string `json:"AccountName"`
	CharacterName      string `json:"CharacterName"`
	UserID             string `json:"UserID"`
	ChrSlot            int32  `json:"ChrSlot"`
	Experience         int64  `json:"Experience"`
	Status             string `json:"Status"`
	Settled            bool   `json:"Settled"`
	IsCurrentlyPlaying bool   `json:"IsCurrentlyPlaying"`
}

// CustomSetting is one world setting override.
type CustomSetting struct {
	SettingRowName string `json:"SettingRowName"`
	SettingValue   int32  `json:"SettingValue"`
}

// Blob is the compressed property stream and its sizes.
type Blob struct {
	CompressionAlgorithm Algorithm `json:"CompressionAlgorithm,omitempty"`
	TotalLength          int32     `json:"TotalLength"`
	DataLength           int32     `json:"DataLength"`
	UncompressedLength   int32     `json:"UncompressedLength"`
	BinaryBlob           []byte    `json:"BinaryBlob"`
}

type container struct {
	ProspectInfo Info `json:"ProspectInfo"`
	ProspectBlob Blob `json:"ProspectBlob"`
}

// Graph is the decoded content of a prospect.
type Graph struct {
	Info Info
	Data []*uprop.Property
}

// Recorders returns the recorder container array, data[0].
func (g *Graph) Recorders() (*uprop.Array, error) {
	if len(g.Data) == 0 {
		return nil, fmt.Errorf("%w: no properties", ErrFormat)
	}

	p := g.Data[0]
	if p.Name != ContainerName || p.Type != uprop.TypeArray {
		return nil, fmt.Errorf("%w: first property is %s %q, want %s %q",
			ErrFormat, p.Type, p.Name, uprop.TypeArray, ContainerName)
	}

	a, ok := p.Value.(*uprop.Array)
	if !ok || a == nil {
		return nil, fmt.Errorf("%w: %s holds %T", ErrFormat, ContainerName, p.Value)
	}

	return a, nil
}

// Load reads a container and decodes its blob.
func Load(r io.Reader) (*Graph, error) {
	var c container

	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFormat, err)
	}

	b, err := c.ProspectBlob.Decode()
	if err != nil {
		return nil, err
	}

	data, err := uprop.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	g := &Graph{Info: c.ProspectInfo, Data: data}

	if _, err := g.Recorders(); err != nil {
		return nil, err
	}

	return g, nil
}

// Decode returns the uncompressed property stream held in b.
func (b *Blob) Decode() ([]byte, error) {
	if int(b.DataLength) != len(b.BinaryBlob) {
		return nil, fmt.Errorf("%w: blob holds %d bytes, DataLength is %d",
			ErrFormat, len(b.BinaryBlob), b.DataLength)
	}

	f := NewEncodedFrame(b.BinaryBlob, b.UncompressedLength, b.CompressionAlgorithm)

	if err := f.Decode(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return f.Bytes(), nil
}

// Save encodes g and writes it as a container compressed with alg.
func Save(w io.Writer, g *Graph, alg Algorithm) error {
	if _, err := g.Recorders(); err != nil {
		return err
	}

	b, err := uprop.Marshal(g.Data)
	if err != nil {
		return fmt.Errorf("encoding properties: %w", err)
	}

	f := NewFrame(b, alg)

	if err := f.Encode(); err != nil {
		return fmt.Errorf("compressing blob: %w", err)
	}

	c := container{
		ProspectInfo: g.Info,
		ProspectBlob: Blob{
			TotalLength:        f.SizeCom,
			DataLength:         f.SizeCom,
			UncompressedLength: f.SizeRaw,
			BinaryBlob:         f.Bytes(),
		},
	}

	if f.Algorithm != ZLib {
		c.ProspectBlob.CompressionAlgorithm = f.Algorithm
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")

	return enc.Encode(c)
}

// LoadFile reads the container at fn.
func LoadFile(fn string) (g *Graph, err error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return Load(f)
}

// SaveFile writes g to a container at fn, replacing any existing file.
func SaveFile(fn string, g *Graph, alg Algorithm) (err error) {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return Save(f, g, alg)
}

// Digest returns the hex BLAKE3 digest of g's encoded property stream. Two
// graphs with the same digest encode to the same bytes.
func Digest(g *Graph) (string, error) {
	b, err := uprop.Marshal(g.Data)
	if err != nil {
		return "", err
	}

	sum := blake3.Sum256(b)

	return hex.EncodeToString(sum[:]), nil
}
