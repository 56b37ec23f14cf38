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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mys721tx/prospect-go/pkg/prospect"
	"github.com/mys721tx/prospect-go/pkg/recorder"
	"github.com/mys721tx/prospect-go/pkg/uprop"
)

// recorderFile is the on-disk shape of a recorder.
type recorderFile struct {
	Name string            `json:"Name"`
	Data []*uprop.Property `json:"Data"`
}

// Split writes g to dir as a parts directory. dir is deleted and recreated
// first. A failure stops the split and leaves what was written so far.
func Split(ctx context.Context, g *prospect.Graph, dir string, opts Options) error {
	log := opts.logger()

	container, err := g.Recorders()
	if err != nil {
		return stageError(StageLoad, "", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return stageError(StageDirectorySetup, dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stageError(StageDirectorySetup, dir, err)
	}

	fn := filepath.Join(dir, InfoFile)

	err = createFile(fn, false, func(w io.Writer) error {
		return encodeJSON(w, g.Info)
	})
	if err != nil {
		return stageError(StageInfoWrite, fn, err)
	}

	if len(g.Data) < 2 {
		log.Warn("prospect has no data besides its recorders; only the info file was written",
			"dir", dir, "recorders", container.Len())

		return nil
	}

	fn = filepath.Join(dir, DataFile)

	err = createFile(fn, false, func(w io.Writer) error {
		return encodeProperties(w, g.Data[1:])
	})
	if err != nil {
		return stageError(StageDataWrite, fn, err)
	}

	recorders := filepath.Join(dir, RecordersDir)

	if err := os.Mkdir(recorders, 0o755); err != nil {
		return stageError(StageDirectorySetup, recorders, err)
	}

	for i, item := range container.Items {
		if err := ctx.Err(); err != nil {
			return recorderError(StageRecorderWrite, i, "", err)
		}

		fn, err := splitRecorder(item, i, container.Len(), recorders, opts)
		if err != nil {
			return recorderError(StageRecorderWrite, i, fn, err)
		}

		log.Debug("wrote recorder", "index", i, "path", fn)
	}

	log.Info("split prospect", "dir", dir, "properties", len(g.Data)-1, "recorders", container.Len())

	return nil
}

// splitRecorder decodes one container element and writes its recorder file.
// It returns the file's path once chosen.
func splitRecorder(item any, index, count int, dir string, opts Options) (string, error) {
	r, err := fromStruct(item)
	if err != nil {
		return "", err
	}

	var prefix string

	if opts.UseActorID {
		if id, ok := r.ActorID(); ok {
			prefix = actorPrefix(id)
		} else {
			prefix = "_" + indexPrefix(index, count)
			opts.logger().Warn("recorder has no actor ID; naming it by position",
				"index", index, "recorder", r.Name)
		}
	} else {
		prefix = indexPrefix(index, count)
	}

	fn, err := freePath(dir, prefix+"_"+sanitize(r.Name))
	if err != nil {
		return "", err
	}

	return fn, createFile(fn, true, func(w io.Writer) error {
		return encodeJSON(w, recorderFile{Name: r.Name, Data: r.Properties})
	})
}

// fromStruct extracts a recorder from a container element: its name is the
// first field, its content the decoded BinaryData field.
func fromStruct(item any) (*recorder.Recorder, error) {
	s, ok := item.(*uprop.Struct)
	if !ok || s == nil || len(s.Fields) == 0 {
		return nil, fmt.Errorf("recorder is not a struct with fields: %T", item)
	}

	name, ok := s.Fields[0].Text()
	if !ok {
		return nil, fmt.Errorf("recorder name %q holds %T", s.Fields[0].Name, s.Fields[0].Value)
	}

	data := uprop.Find(s.Fields, FieldData)
	if data == nil {
		return nil, fmt.Errorf("recorder %q has no %s", name, FieldData)
	}

	blob, ok := data.Value.(*uprop.Array)
	if !ok || blob == nil || blob.ItemType != uprop.TypeByte {
		return nil, fmt.Errorf("recorder %q: %s is not a byte array", name, FieldData)
	}

	props, err := recorder.Decode(blob.Bytes)
	if err != nil {
		return nil, fmt.Errorf("recorder %q: %w", name, err)
	}

	return &recorder.Recorder{Name: name, Properties: props}, nil
}
