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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mys721tx/prospect-go/pkg/prospect"
	"github.com/mys721tx/prospect-go/pkg/recorder"
	"github.com/mys721tx/prospect-go/pkg/uprop"
)

// Type metadata of the recorder container. None of it is kept in a parts
// directory; Combine regenerates it.
const (
	RecorderStructType = "StateRecorderBlob"
	FieldName          = "ComponentClassName"
	FieldData          = "BinaryData"
)

// Combine reads the parts directory dir and assembles the prospect it
// describes. Recorders are ordered by their file name prefix.
func Combine(ctx context.Context, dir string, opts Options) (*prospect.Graph, error) {
	log := opts.logger()
	g := &prospect.Graph{}

	fn := filepath.Join(dir, InfoFile)

	info, err := readInfo(fn)
	if err != nil {
		return nil, stageError(StageInfoRead, fn, err)
	}

	g.Info = *info

	container := &uprop.Property{Name: prospect.ContainerName, Type: uprop.TypeArray}
	g.Data = append(g.Data, container)

	fn = filepath.Join(dir, DataFile)

	data, err := readData(fn)
	if err != nil {
		return nil, stageError(StageDataRead, fn, err)
	}

	g.Data = append(g.Data, data...)

	recorders := filepath.Join(dir, RecordersDir)

	names, err := recorderFiles(recorders)
	if err != nil {
		return nil, stageError(StageRecorderRead, recorders, err)
	}

	items := make([]*uprop.Struct, 0, len(names))

	for i, name := range names {
		fn := filepath.Join(recorders, name)

		if err := ctx.Err(); err != nil {
			return nil, recorderError(StageRecorderRead, i, fn, err)
		}

		s, err := combineRecorder(fn)
		if err != nil {
			return nil, recorderError(StageRecorderRead, i, fn, err)
		}

		items = append(items, s)

		log.Debug("read recorder", "index", i, "path", fn)
	}

	container.Value = uprop.NewStructArray(prospect.ContainerName, RecorderStructType, items...).Value

	log.Info("combined prospect", "dir", dir, "properties", len(data), "recorders", len(items))

	return g, nil
}

// readParts reads a parts file, stripping comments and trailing commas.
func readParts(fn string) ([]byte, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	return jsonc.ToJSON(b), nil
}

func readInfo(fn string) (*prospect.Info, error) {
	b, err := readParts(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInfo, err)
	}

	if !bytes.HasPrefix(bytes.TrimSpace(b), []byte("{")) {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMissingInfo)
	}

	var info prospect.Info

	if err := json.Unmarshal(b, &info); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingInfo, err)
	}

	return &info, nil
}

// readData decodes the top-level array of ProspectData.json one property at
// a time, keeping array order.
func readData(fn string) ([]*uprop.Property, error) {
	b, err := readParts(fn)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(b))

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	props, err := decodeElements(dec)
	if err != nil {
		return nil, err
	}

	return props, expectDelim(dec, ']')
}

// decodeElements decodes properties until the end of the enclosing array.
func decodeElements(dec *json.Decoder) ([]*uprop.Property, error) {
	props := []*uprop.Property{}

	for i := 0; dec.More(); i++ {
		var p *uprop.Property

		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("property %d: %w", i, err)
		}

		if p == nil {
			return nil, fmt.Errorf("property %d is null", i)
		}

		props = append(props, p)
	}

	return props, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, found %v", want, tok)
	}

	return nil
}

// recorderFiles lists the JSON files of dir in recorder order.
func recorderFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}

	return sortRecorders(names), nil
}

func combineRecorder(fn string) (*uprop.Struct, error) {
	b, err := readParts(fn)
	if err != nil {
		return nil, err
	}

	r, err := readRecorder(json.NewDecoder(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}

	blob, err := recorder.Encode(r.Properties)
	if err != nil {
		return nil, fmt.Errorf("recorder %q: %w", r.Name, err)
	}

	return &uprop.Struct{
		Type: RecorderStructType,
		Fields: []*uprop.Property{
			uprop.NewStr(FieldName, r.Name),
			uprop.NewByteArray(FieldData, blob),
		},
	}, nil
}

// readRecorder reads a recorder object in one pass. The first "Name" gives
// the name and the "Data" after it the properties; other keys are skipped.
func readRecorder(dec *json.Decoder) (*recorder.Recorder, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecorderFile, err)
	}

	r := &recorder.Recorder{Properties: []*uprop.Property{}}
	named := false

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRecorderFile, err)
		}

		key, _ := tok.(string)

		switch {
		case key == "Name" && !named:
			if err := dec.Decode(&r.Name); err != nil {
				return nil, fmt.Errorf("%w: Name: %w", ErrMalformedRecorderFile, err)
			}

			named = true
		case key == "Data" && named:
			if err := expectDelim(dec, '['); err != nil {
				return nil, fmt.Errorf("%w: Data: %w", ErrMalformedRecorderFile, err)
			}

			if r.Properties, err = decodeElements(dec); err != nil {
				return nil, fmt.Errorf("recorder %q: %w", r.Name, err)
			}

			return r, nil
		default:
			var skip json.RawMessage

			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedRecorderFile, err)
			}
		}
	}

	if !named {
		return nil, fmt.Errorf("%w: no \"Name\" key", ErrMalformedRecorderFile)
	}

	return r, nil
}
