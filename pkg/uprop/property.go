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

// Package uprop models the tagged property graph stored in Icarus save data
// and converts it to and from its binary and JSON forms.
//
// A property list is an ordered sequence of named, typed values. Scalars are
// held as Go values of the matching width, structs as *Struct and arrays as
// *Array. The binary form is the engine's tagged property stream; the JSON
// form is what the parts directory holds for hand editing.
package uprop

import (
	"errors"

	"github.com/google/uuid"
)

// Property type names as they appear in the binary tag and in JSON.
const (
	TypeInt8       = "Int8Property"
	TypeInt16      = "Int16Property"
	TypeInt        = "IntProperty"
	TypeInt64      = "Int64Property"
	TypeUInt16     = "UInt16Property"
	TypeUInt32     = "UInt32Property"
	TypeUInt64     = "UInt64Property"
	TypeFloat      = "FloatProperty"
	TypeDouble     = "DoubleProperty"
	TypeBool       = "BoolProperty"
	TypeByte       = "ByteProperty"
	TypeEnum       = "EnumProperty"
	TypeStr        = "StrProperty"
	TypeName       = "NameProperty"
	TypeObject     = "ObjectProperty"
	TypeStruct     = "StructProperty"
	TypeArray      = "ArrayProperty"
	noneName       = "None"
	noneEnum       = "None"
	maxArrayLength = 1 << 28
)

var (
	// ErrMalformed is returned when a binary property stream is truncated,
	// inconsistent or uses a type tag this package does not know.
	ErrMalformed = errors.New("malformed property data")

	// ErrUnsupportedType is returned alongside ErrMalformed for a type tag
	// this package cannot decode, such as MapProperty, SetProperty,
	// TextProperty or SoftObjectProperty.
	ErrUnsupportedType = errors.New("unsupported property type")

	// ErrInvalidValue is returned when a property's Go value does not match
	// its declared type.
	ErrInvalidValue = errors.New("invalid property value")
)

// Guid is a 16 byte engine GUID. Its text form is the canonical hyphenated
// hex of the raw bytes.
type Guid uuid.UUID

// IsZero reports whether g is the all-zero GUID.
func (g Guid) IsZero() bool {
	return g == Guid{}
}

func (g Guid) String() string {
	return uuid.UUID(g).String()
}

// MarshalText implements encoding.TextMarshaler.
func (g Guid) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Guid) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}

	*g = Guid(u)

	return nil
}

// Property is one named, typed node of the property graph.
type Property struct {
	Name string
	Type string
	// Index is the static array index of the property, zero for almost
	// every property.
	Index int32
	// Guid is the optional property GUID carried in the tag.
	Guid  *Guid
	Value any
}

// Enum is the value of an EnumProperty, or of a ByteProperty whose enum type
// is not "None".
type Enum struct {
	Type  string
	Value string
}

// Struct is the value of a StructProperty and the element of a struct array.
// Native struct types carry their value in Native; all others carry Fields.
type Struct struct {
	Type   string
	Guid   Guid
	Fields []*Property
	Native any
}

// Array is the value of an ArrayProperty. Byte arrays are held in Bytes, all
// other item types in Items. Struct arrays hold *Struct items and a Prototype
// describing the element tag written ahead of the elements.
type Array struct {
	ItemType  string
	Prototype *Property
	Items     []any
	Bytes     []byte
}

// StructType returns the struct type of a struct array's elements.
func (a *Array) StructType() string {
	if a.Prototype == nil {
		return ""
	}

	if s, ok := a.Prototype.Value.(*Struct); ok {
		return s.Type
	}

	return ""
}

// Len returns the number of elements in a.
func (a *Array) Len() int {
	if a.ItemType == TypeByte {
		return len(a.Bytes)
	}

	return len(a.Items)
}

// NewStr returns a StrProperty.
func NewStr(name, value string) *Property {
	return &Property{Name: name, Type: TypeStr, Value: value}
}

// NewInt returns an IntProperty.
func NewInt(name string, value int32) *Property {
	return &Property{Name: name, Type: TypeInt, Value: value}
}

// NewByteArray returns an ArrayProperty of ByteProperty holding b.
func NewByteArray(name string, b []byte) *Property {
	return &Property{
		Name:  name,
		Type:  TypeArray,
		Value: &Array{ItemType: TypeByte, Bytes: b},
	}
}

// NewStruct returns a StructProperty with the given fields.
func NewStruct(name, structType string, fields ...*Property) *Property {
	return &Property{
		Name:  name,
		Type:  TypeStruct,
		Value: &Struct{Type: structType, Fields: fields},
	}
}

// NewStructArray returns an ArrayProperty of structType elements. The
// prototype tag takes the array's name.
func NewStructArray(name, structType string, items ...*Struct) *Property {
	a := &Array{
		ItemType: TypeStruct,
		Prototype: &Property{
			Name:  name,
			Type:  TypeStruct,
			Value: &Struct{Type: structType},
		},
		Items: make([]any, 0, len(items)),
	}

	for _, s := range items {
		a.Items = append(a.Items, s)
	}

	return &Property{Name: name, Type: TypeArray, Value: a}
}

// Find returns the first property in props called name, or nil.
func Find(props []*Property, name string) *Property {
	for _, p := range props {
		if p.Name == name {
			return p
		}
	}

	return nil
}

// Int returns the value of an integer property widened to int64.
func (p *Property) Int() (int64, bool) {
	switch v := p.Value.(type) {
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}

	return 0, false
}

// Text returns the value of a string-valued property.
func (p *Property) Text() (string, bool) {
	s, ok := p.Value.(string)

	return s, ok
}
