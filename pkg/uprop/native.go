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
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float is a float32 whose JSON form keeps NaN and infinities as strings.
type Float float32

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	return marshalFloat(float64(f), 32), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(b []byte) error {
	v, err := unmarshalFloat(b, 32)
	if err != nil {
		return err
	}

	*f = Float(v)

	return nil
}

// Native struct values. Their binary layout is fixed and carries no tags.
type (
	// Vector is a 3D single precision vector.
	Vector struct{ X, Y, Z Float }
	// Vector2D is a 2D single precision vector.
	Vector2D struct{ X, Y Float }
	// Vector4 is a 4D single precision vector.
	Vector4 struct{ X, Y, Z, W Float }
	// Rotator is a rotation in degrees.
	Rotator struct{ Pitch, Yaw, Roll Float }
	// Quat is a rotation quaternion.
	Quat struct{ X, Y, Z, W Float }
	// LinearColor is a floating point RGBA color.
	LinearColor struct{ R, G, B, A Float }
	// Color is an 8-bit color stored in BGRA order.
	Color struct{ B, G, R, A uint8 }
	// IntPoint is a 2D integer point.
	IntPoint struct{ X, Y int32 }
	// IntVector is a 3D integer vector.
	IntVector struct{ X, Y, Z int32 }
	// DateTime counts 100ns ticks since 0001-01-01.
	DateTime int64
	// Timespan counts 100ns ticks.
	Timespan int64
)

type nativeCodec struct {
	read       func(d *decoder) (any, error)
	write      func(e *encoder, v any) error
	decodeJSON func(raw []byte) (any, error)
}

var natives = map[string]nativeCodec{
	"Guid":        fixed[Guid](),
	"Vector":      fixed[Vector](),
	"Vector2D":    fixed[Vector2D](),
	"Vector4":     fixed[Vector4](),
	"Rotator":     fixed[Rotator](),
	"Quat":        fixed[Quat](),
	"LinearColor": fixed[LinearColor](),
	"Color":       fixed[Color](),
	"IntPoint":    fixed[IntPoint](),
	"IntVector":   fixed[IntVector](),
	"DateTime":    fixed[DateTime](),
	"Timespan":    fixed[Timespan](),
}

// IsNative reports whether structType has a fixed binary layout rather than
// a nested property list.
func IsNative(structType string) bool {
	_, ok := natives[structType]

	return ok
}

func fixed[T any]() nativeCodec {
	return nativeCodec{
		read: func(d *decoder) (any, error) {
			var v T

			if err := d.read(&v); err != nil {
				return nil, err
			}

			return v, nil
		},
		write: func(e *encoder, v any) error {
			t, ok := v.(T)
			if !ok {
				var want T

				return fmt.Errorf("%w: native struct holds %T, want %T", ErrInvalidValue, v, want)
			}

			e.write(t)

			return nil
		},
		decodeJSON: func(raw []byte) (any, error) {
			var v T

			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}

			return v, nil
		},
	}
}

func marshalFloat(f float64, bits int) []byte {
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`)
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`)
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`)
	}

	b, _ := json.Marshal(f)
	if bits == 32 {
		b, _ = json.Marshal(float32(f))
	}

	return b
}

func unmarshalFloat(b []byte, bits int) (float64, error) {
	if string(b) == "null" {
		return 0, nil
	}

	var s string

	if err := json.Unmarshal(b, &s); err == nil {
		switch s {
		case "NaN":
			return math.NaN(), nil
		case "+Inf", "Inf":
			return math.Inf(1), nil
		case "-Inf":
			return math.Inf(-1), nil
		}

		return 0, fmt.Errorf("invalid float %q", s)
	}

	var n json.Number

	if err := json.Unmarshal(b, &n); err != nil {
		return 0, err
	}

	return strconv.ParseFloat(n.String(), bits)
}
