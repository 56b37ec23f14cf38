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

package recorder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mys721tx/prospect-go/pkg/recorder"
	"github.com/mys721tx/prospect-go/pkg/uprop"
)

func sampleProperties() []*uprop.Property {
	return []*uprop.Property{
		uprop.NewInt(recorder.ActorIDProperty, 1234),
		uprop.NewStr("ItemName", "Wood_Floor"),
		uprop.NewStruct("Transform", "SavedTransform",
			&uprop.Property{
				Name:  "Location",
				Type:  uprop.TypeStruct,
				Value: &uprop.Struct{Type: "Vector", Native: uprop.Vector{X: 10, Y: 20, Z: 30}},
			},
		),
	}
}

func TestEncodeDecode(t *testing.T) {
	blob, err := recorder.Encode(sampleProperties())
	require.NoError(t, err)

	props, err := recorder.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, sampleProperties(), props)

	again, err := recorder.Encode(props)
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestEncodeEmpty(t *testing.T) {
	blob, err := recorder.Encode(nil)
	require.NoError(t, err)

	props, err := recorder.Decode(blob)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestDecodeMalformed(t *testing.T) {
	blob, err := recorder.Encode(sampleProperties())
	require.NoError(t, err)

	tests := []struct {
		name string
		blob []byte
	}{
		{name: "truncated", blob: blob[:len(blob)/2]},
		{name: "empty", blob: []byte{}},
		{name: "garbage", blob: []byte{0xff, 0xff, 0xff, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := recorder.Decode(tt.blob)
			assert.ErrorIs(t, err, recorder.ErrMalformedData)
			assert.ErrorIs(t, err, uprop.ErrMalformed)
		})
	}
}

func TestActorID(t *testing.T) {
	tests := []struct {
		name     string
		props    []*uprop.Property
		expected int64
		ok       bool
	}{
		{
			name:     "present",
			props:    sampleProperties(),
			expected: 1234,
			ok:       true,
		},
		{
			name:  "absent",
			props: sampleProperties()[1:],
		},
		{
			name:  "not an integer",
			props: []*uprop.Property{uprop.NewStr(recorder.ActorIDProperty, "1234")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder.Recorder{Name: "R", Properties: tt.props}

			id, ok := r.ActorID()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, id)
		})
	}
}
