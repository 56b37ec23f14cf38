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

// Package recorder converts the binary blob nested in each recorder entry
// of a prospect to and from a property list.
package recorder

import (
	"errors"
	"fmt"

	"github.com/mys721tx/prospect-go/pkg/uprop"
)

// ActorIDProperty is the recorder property holding the owning actor's ID.
const ActorIDProperty = "IcarusActorGUID"

// ErrMalformedData is returned when a recorder blob cannot be decoded.
var ErrMalformedData = errors.New("malformed recorder data")

// Recorder is the decoded content of one recorder entry.
type Recorder struct {
	Name       string
	Properties []*uprop.Property
}

// Decode decodes a recorder blob into its property list.
func Decode(blob []byte) ([]*uprop.Property, error) {
	props, err := uprop.Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedData, err)
	}

	return props, nil
}

// Encode encodes a recorder's property list into a blob. Equal property
// lists always encode to equal bytes.
func Encode(props []*uprop.Property) ([]byte, error) {
	return uprop.Marshal(props)
}

// ActorID returns the value of the recorder's IcarusActorGUID property.
func (r *Recorder) ActorID() (int64, bool) {
	p := uprop.Find(r.Properties, ActorIDProperty)
	if p == nil {
		return 0, false
	}

	return p.Int()
}
