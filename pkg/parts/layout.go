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

// Package parts splits a prospect into a directory of hand-editable JSON
// files and combines such a directory back into a prospect.
//
// A parts directory holds:
//
//	ProspectInfo.json           the prospect metadata
//	ProspectData.json           every top-level property except the recorders
//	Recorders/<prefix>_<name>.json
//	                            one file per recorder, {"Name": ..., "Data": [...]}
//
// The prefix is the recorder's position, or its actor ID when splitting with
// UseActorID. Combine orders recorders by that prefix.
package parts

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/mys721tx/prospect-go/pkg/prospect"
	"github.com/mys721tx/prospect-go/pkg/uprop"
)

// Fixed names inside a parts directory.
const (
	InfoFile     = "ProspectInfo.json"
	DataFile     = "ProspectData.json"
	RecordersDir = "Recorders"
)

const (
	actorIDWidth  = 7
	maxCollisions = 100
)

// Options configures Split, Combine and their file-level wrappers.
type Options struct {
	// UseActorID names recorder files by actor ID instead of position.
	UseActorID bool
	// Compression is the blob compression Pack writes. Empty means ZLib.
	Compression prospect.Algorithm
	// Logger receives warnings and progress. Nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}

	return o.Logger
}

// sanitize reduces a recorder name to a bare file name.
func sanitize(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	return name
}

// indexPrefix zero-pads i to the number of digits in n.
func indexPrefix(i, n int) string {
	return fmt.Sprintf("%0*d", len(strconv.Itoa(n)), i)
}

func actorPrefix(id int64) string {
	return fmt.Sprintf("%0*d", actorIDWidth, id)
}

// freePath returns the first of dir/base.json, dir/base_00.json, ...,
// dir/base_99.json that does not exist.
func freePath(dir, base string) (string, error) {
	p := filepath.Join(dir, base+".json")

	for n := -1; n < maxCollisions; n++ {
		if n >= 0 {
			p = filepath.Join(dir, fmt.Sprintf("%s_%02d.json", base, n))
		}

		_, err := os.Lstat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}

		if err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNameCollision, filepath.Join(dir, base))
}

type recorderEntry struct {
	name     string
	number   uint64
	numbered bool
}

// numberPrefix parses the leading digits of a recorder file name, after an
// optional underscore.
func numberPrefix(name string) (uint64, bool) {
	s := strings.TrimPrefix(name, "_")

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == 0 {
		return 0, false
	}

	n, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

// sortRecorders orders recorder files by numeric prefix, then by name.
// Files without a prefix sort last.
func sortRecorders(names []string) []string {
	entries := make([]recorderEntry, len(names))

	for i, name := range names {
		n, ok := numberPrefix(name)
		entries[i] = recorderEntry{name: name, number: n, numbered: ok}
	}

	slices.SortFunc(entries, func(a, b recorderEntry) int {
		if a.numbered != b.numbered {
			if a.numbered {
				return -1
			}

			return 1
		}

		if c := cmp.Compare(a.number, b.number); c != 0 {
			return c
		}

		return strings.Compare(a.name, b.name)
	})

	sorted := make([]string, len(entries))
	for i, e := range entries {
		sorted[i] = e.name
	}

	return sorted
}

// encodeJSON writes v indented by two spaces without HTML escaping.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// encodeProperties writes props as an indented JSON array, one element at a
// time.
func encodeProperties(w io.Writer, props []*uprop.Property) error {
	if len(props) == 0 {
		_, err := io.WriteString(w, "[]\n")

		return err
	}

	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")

	for i, p := range props {
		buf.Reset()
		buf.WriteString("  ")

		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("property %d (%s): %w", i, p.Name, err)
		}

		buf.Truncate(buf.Len() - 1)

		if i < len(props)-1 {
			buf.WriteString(",")
		}

		buf.WriteString("\n")

		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "]\n")

	return err
}

// createFile creates fn and passes it to write. With exclusive set it fails
// if fn already exists.
func createFile(fn string, exclusive bool, write func(w io.Writer) error) (err error) {
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(fn, flag, 0o644)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)

	if err := write(w); err != nil {
		return err
	}

	return w.Flush()
}
