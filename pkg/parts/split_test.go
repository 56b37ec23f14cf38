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

package parts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mys721tx/prospect-go/pkg/parts"
	"github.com/mys721tx/prospect-go/pkg/prospect"
	"github.com/mys721tx/prospect-go/pkg/recorder"
	"github.com/mys721tx/prospect-go/pkg/uprop"
)

const deployable = "/Script/Icarus.DeployableRecorderComponent"

type testRecorder struct {
	name  string
	props []*uprop.Property
}

func actorRecorder(name string, id int32) testRecorder {
	return testRecorder{
		name: name,
		props: []*uprop.Property{
			uprop.NewInt(recorder.ActorIDProperty, id),
			uprop.NewStr("ItemName", "Wood_Wall"),
		},
	}
}

func plainRecorder(name string) testRecorder {
	return testRecorder{
		name:  name,
		props: []*uprop.Property{uprop.NewStr("ItemName", "Wood_Floor")},
	}
}

func buildGraph(t *testing.T, data []*uprop.Property, recs ...testRecorder) *prospect.Graph {
	t.Helper()

	items := make([]*uprop.Struct, len(recs))

	for i, r := range recs {
		blob, err := recorder.Encode(r.props)
		require.NoError(t, err)

		items[i] = &uprop.Struct{
			Type: parts.RecorderStructType,
			Fields: []*uprop.Property{
				uprop.NewStr(parts.FieldName, r.name),
				uprop.NewByteArray(parts.FieldData, blob),
			},
		}
	}

	return &prospect.Graph{
		Info: prospect.Info{
			ProspectID:    "Prospect_7",
			ProspectDTKey: "Tier1_Forest_Recon_0",
			ProspectState: "Active",
			Difficulty:    "Hard",
			AssociatedMembers: []prospect.Member{
				{AccountName: "Player", CharacterName: "Ranger", UserID: "42", Status: "Active"},
			},
		},
		Data: append([]*uprop.Property{
			uprop.NewStructArray(prospect.ContainerName, parts.RecorderStructType, items...),
		}, data...),
	}
}

func sampleData() []*uprop.Property {
	return []*uprop.Property{
		uprop.NewInt("SaveVersion", 3),
		uprop.NewStruct("WorldState", "WorldSave",
			uprop.NewStr("MapName", "Olympus"),
			&uprop.Property{Name: "Weather", Type: uprop.TypeEnum, Value: &uprop.Enum{Type: "EWeather", Value: "EWeather::Storm"}},
		),
		uprop.NewInt("SaveVersion", 4),
	}
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()

	var files []string

	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, p)
			files = append(files, filepath.ToSlash(rel))
		}

		return nil
	})
	require.NoError(t, err)

	sort.Strings(files)

	return files
}

func quiet() parts.Options {
	return parts.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func capture(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSplitLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "parts")
	g := buildGraph(t, sampleData(), plainRecorder(deployable), plainRecorder("B"), plainRecorder("C"))

	require.NoError(t, parts.Split(context.Background(), g, dir, quiet()))

	assert.Equal(t, []string{
		"ProspectData.json",
		"ProspectInfo.json",
		"Recorders/0_Icarus.DeployableRecorderComponent.json",
		"Recorders/1_B.json",
		"Recorders/2_C.json",
	}, listFiles(t, dir))

	b, err := os.ReadFile(filepath.Join(dir, parts.DataFile))
	require.NoError(t, err)

	var data []*uprop.Property
	require.NoError(t, json.Unmarshal(b, &data))
	require.Len(t, data, 3)
	assert.Equal(t, "SaveVersion", data[0].Name)
	assert.Equal(t, int32(3), data[0].Value)
	assert.Equal(t, "WorldState", data[1].Name)
	assert.Equal(t, int32(4), data[2].Value)

	b, err = os.ReadFile(filepath.Join(dir, parts.RecordersDir, "1_B.json"))
	require.NoError(t, err)

	expected := `{
  "Name": "B",
  "Data": [
    {
      "Name": "ItemName",
      "Type": "StrProperty",
      "Value": "Wood_Floor"
    }
  ]
}
`
	assert.Equal(t, expected, string(b))

	b, err = os.ReadFile(filepath.Join(dir, parts.InfoFile))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"ProspectID": "Prospect_7"`)
	assert.NotContains(t, string(b), "CustomSettings")
}

func TestSplitIndexPadding(t *testing.T) {
	dir := t.TempDir()

	recs := make([]testRecorder, 11)
	for i := range recs {
		recs[i] = plainRecorder("R")
	}

	require.NoError(t, parts.Split(context.Background(), buildGraph(t, sampleData(), recs...), dir, quiet()))

	files := listFiles(t, filepath.Join(dir, parts.RecordersDir))
	require.Len(t, files, 11)
	assert.Equal(t, "00_R.json", files[0])
	assert.Equal(t, "10_R.json", files[10])
}

func TestSplitCombineRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, sampleData(),
		actorRecorder(deployable, 12),
		plainRecorder("/Script/Icarus.PlayerStateRecorderComponent"),
		actorRecorder(deployable, 3),
	)

	require.NoError(t, parts.Split(context.Background(), g, dir, quiet()))

	c, err := parts.Combine(context.Background(), dir, quiet())
	require.NoError(t, err)

	assert.Equal(t, g.Info, c.Info)
	assert.Equal(t, g.Data, c.Data)

	want, err := prospect.Digest(g)
	require.NoError(t, err)

	got, err := prospect.Digest(c)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSplitIdempotent(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, sampleData(), actorRecorder(deployable, 1), actorRecorder(deployable, 1))

	read := func() map[string]string {
		files := map[string]string{}

		for _, f := range listFiles(t, dir) {
			b, err := os.ReadFile(filepath.Join(dir, f))
			require.NoError(t, err)

			files[f] = string(b)
		}

		return files
	}

	opts := quiet()
	opts.UseActorID = true

	require.NoError(t, parts.Split(context.Background(), g, dir, opts))
	first := read()

	require.NoError(t, parts.Split(context.Background(), g, dir, opts))
	assert.Equal(t, first, read())
}

func TestSplitClearsDirectory(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, parts.RecordersDir, "9_Stale.json")

	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))

	require.NoError(t, parts.Split(context.Background(), buildGraph(t, sampleData(), plainRecorder("A")), dir, quiet()))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(dir, parts.RecordersDir, "0_A.json"))
}

func TestSplitActorIDCollisions(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, sampleData(),
		actorRecorder(deployable, 42),
		actorRecorder(deployable, 42),
		actorRecorder(deployable, 42),
		actorRecorder("Other", 1234567),
	)

	opts := quiet()
	opts.UseActorID = true

	require.NoError(t, parts.Split(context.Background(), g, dir, opts))

	assert.Equal(t, []string{
		"0000042_Icarus.DeployableRecorderComponent.json",
		"0000042_Icarus.DeployableRecorderComponent_00.json",
		"0000042_Icarus.DeployableRecorderComponent_01.json",
		"1234567_Other.json",
	}, listFiles(t, filepath.Join(dir, parts.RecordersDir)))
}

func TestSplitMissingActorID(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, sampleData(), actorRecorder("A", 7), plainRecorder("B"))

	var logs bytes.Buffer

	opts := parts.Options{UseActorID: true, Logger: capture(&logs)}

	require.NoError(t, parts.Split(context.Background(), g, dir, opts))

	assert.Equal(t, []string{
		"0000007_A.json",
		"_1_B.json",
	}, listFiles(t, filepath.Join(dir, parts.RecordersDir)))

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "recorder has no actor ID")
	assert.Contains(t, logs.String(), "recorder=B")
}

func TestSplitEmptyProspect(t *testing.T) {
	dir := t.TempDir()
	g := buildGraph(t, nil, plainRecorder("A"))

	var logs bytes.Buffer

	require.NoError(t, parts.Split(context.Background(), g, dir, parts.Options{Logger: capture(&logs)}))

	assert.Equal(t, []string{parts.InfoFile}, listFiles(t, dir))
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestSplitMalformedRecorder(t *testing.T) {
	g := buildGraph(t, sampleData(), plainRecorder("A"), plainRecorder("B"))

	items := g.Data[0].Value.(*uprop.Array).Items
	items[1].(*uprop.Struct).Fields[1] = uprop.NewByteArray(parts.FieldData, []byte{1, 2, 3})

	err := parts.Split(context.Background(), g, t.TempDir(), quiet())

	var perr *parts.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parts.StageRecorderWrite, perr.Stage)
	assert.Equal(t, 1, perr.Index)
	assert.ErrorIs(t, err, recorder.ErrMalformedData)
}

func TestSplitRecorderWithoutBinaryData(t *testing.T) {
	g := buildGraph(t, sampleData(), plainRecorder("A"))

	s := g.Data[0].Value.(*uprop.Array).Items[0].(*uprop.Struct)
	s.Fields = s.Fields[:1]

	err := parts.Split(context.Background(), g, t.TempDir(), quiet())

	var perr *parts.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parts.StageRecorderWrite, perr.Stage)
	assert.Contains(t, err.Error(), "BinaryData")
}

func TestSplitRejectsGraphWithoutContainer(t *testing.T) {
	g := &prospect.Graph{Data: sampleData()}

	err := parts.Split(context.Background(), g, t.TempDir(), quiet())

	var perr *parts.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, parts.StageLoad, perr.Stage)
	assert.ErrorIs(t, err, prospect.ErrFormat)
}

func TestSplitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := parts.Split(ctx, buildGraph(t, sampleData(), plainRecorder("A")), t.TempDir(), quiet())

	var perr *parts.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, perr.Index)
	assert.ErrorIs(t, err, context.Canceled)
}
