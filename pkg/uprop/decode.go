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
	"bytes"
	"fmt"
	"io"
)

// Unmarshal decodes a complete property stream: a property list, its "None"
// terminator and an optional trailing zero int32.
func Unmarshal(b []byte) ([]*Property, error) {
	d := &decoder{r: bytes.NewReader(b)}

	props, err := d.list()
	if err != nil {
		return nil, err
	}

	switch d.remaining() {
	case 0:
	case 4:
		if v, _ := d.int32(); v != 0 {
			return nil, fmt.Errorf("%w: trailing value %d after property list", ErrMalformed, v)
		}
	default:
		return nil, fmt.Errorf("%w: %d trailing bytes after property list", ErrMalformed, d.remaining())
	}

	return props, nil
}

// Marshal encodes props as a complete property stream.
func Marshal(props []*Property) ([]byte, error) {
	e := new(encoder)

	if err := e.list(props); err != nil {
		return nil, err
	}

	e.int32(0)

	return e.Bytes(), nil
}

// Read decodes a complete property stream from r.
func Read(r io.Reader) ([]*Property, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return Unmarshal(b)
}

// Write encodes props as a complete property stream to w.
func Write(w io.Writer, props []*Property) error {
	b, err := Marshal(props)
	if err != nil {
		return err
	}

	_, err = w.Write(b)

	return err
}

func (d *decoder) list() ([]*Property, error) {
	props := []*Property{}

	for {
		p, err := d.property()
		if err != nil {
			return nil, err
		}

		if p == nil {
			return props, nil
		}

		props = append(props, p)
	}
}

// property reads one tag and its value. It returns nil at the "None"
// terminator.
func (d *decoder) property() (*Property, error) {
	name, err := d.string()
	if err != nil {
		return nil, err
	}

	if name == noneName {
		return nil, nil
	}

	p := &Property{Name: name}

	if p.Type, err = d.string(); err != nil {
		return nil, err
	}

	size, err := d.int32()
	if err != nil {
		return nil, err
	}

	if p.Index, err = d.int32(); err != nil {
		return nil, err
	}

	var (
		structType string
		structGuid Guid
		boolValue  uint8
		enumType   string
		itemType   string
	)

	switch p.Type {
	case TypeStruct:
		if structType, err = d.string(); err != nil {
			return nil, err
		}

		if structGuid, err = d.guid(); err != nil {
			return nil, err
		}
	case TypeBool:
		if boolValue, err = d.uint8(); err != nil {
			return nil, err
		}
	case TypeByte, TypeEnum:
		if enumType, err = d.string(); err != nil {
			return nil, err
		}
	case TypeArray:
		if itemType, err = d.string(); err != nil {
			return nil, err
		}
	}

	if p.Guid, err = d.propertyGuid(); err != nil {
		return nil, err
	}

	if size < 0 || int(size) > d.remaining() {
		return nil, fmt.Errorf("%w: property %q declares %d bytes, %d left",
			ErrMalformed, name, size, d.remaining())
	}

	start := d.remaining()

	switch p.Type {
	case TypeStruct:
		s, err := d.structBody(structType)
		if err != nil {
			return nil, fmt.Errorf("struct %q: %w", name, err)
		}

		s.Guid = structGuid
		p.Value = s
	case TypeBool:
		p.Value = boolValue != 0
	case TypeByte:
		if enumType == noneEnum {
			p.Value, err = d.uint8()
		} else {
			var v string
			v, err = d.string()
			p.Value = &Enum{Type: enumType, Value: v}
		}
	case TypeEnum:
		var v string
		v, err = d.string()
		p.Value = &Enum{Type: enumType, Value: v}
	case TypeArray:
		p.Value, err = d.array(itemType, int(size))
		if err != nil {
			return nil, fmt.Errorf("array %q: %w", name, err)
		}
	default:
		p.Value, err = d.scalar(p.Type)
	}

	if err != nil {
		return nil, err
	}

	if consumed := start - d.remaining(); consumed != int(size) {
		return nil, fmt.Errorf("%w: property %q declares %d bytes, value used %d",
			ErrMalformed, name, size, consumed)
	}

	return p, nil
}

func (d *decoder) propertyGuid() (*Guid, error) {
	has, err := d.uint8()
	if err != nil || has == 0 {
		return nil, err
	}

	g, err := d.guid()
	if err != nil {
		return nil, err
	}

	return &g, nil
}

func (d *decoder) structBody(structType string) (*Struct, error) {
	s := &Struct{Type: structType}

	if c, ok := natives[structType]; ok {
		v, err := c.read(d)
		if err != nil {
			return nil, err
		}

		s.Native = v

		return s, nil
	}

	fields, err := d.list()
	if err != nil {
		return nil, err
	}

	s.Fields = fields

	return s, nil
}

func (d *decoder) array(itemType string, size int) (*Array, error) {
	a := &Array{ItemType: itemType}

	n, err := d.int32()
	if err != nil {
		return nil, err
	}

	if n < 0 || n > maxArrayLength || int(n) > d.remaining() {
		return nil, fmt.Errorf("%w: array of %d elements in %d bytes", ErrMalformed, n, size)
	}

	switch itemType {
	case TypeByte:
		a.Bytes, err = d.bytes(int(n))

		return a, err
	case TypeStruct:
		return a, d.structArray(a, int(n))
	}

	a.Items = make([]any, 0, n)

	for i := 0; i < int(n); i++ {
		v, err := d.scalar(itemType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		a.Items = append(a.Items, v)
	}

	return a, nil
}

// structArray reads the prototype tag shared by all elements, then the
// element bodies.
func (d *decoder) structArray(a *Array, n int) error {
	proto := &Property{}

	var err error

	if proto.Name, err = d.string(); err != nil {
		return err
	}

	if proto.Type, err = d.string(); err != nil {
		return err
	}

	if proto.Type != TypeStruct {
		return fmt.Errorf("%w: struct array prototype has type %q", ErrMalformed, proto.Type)
	}

	size, err := d.int32()
	if err != nil {
		return err
	}

	if proto.Index, err = d.int32(); err != nil {
		return err
	}

	structType, err := d.string()
	if err != nil {
		return err
	}

	structGuid, err := d.guid()
	if err != nil {
		return err
	}

	if proto.Guid, err = d.propertyGuid(); err != nil {
		return err
	}

	proto.Value = &Struct{Type: structType, Guid: structGuid}
	a.Prototype = proto
	a.Items = make([]any, 0, n)
	start := d.remaining()

	for i := 0; i < n; i++ {
		s, err := d.structBody(structType)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}

		a.Items = append(a.Items, s)
	}

	if consumed := start - d.remaining(); consumed != int(size) {
		return fmt.Errorf("%w: struct array declares %d bytes, elements used %d",
			ErrMalformed, size, consumed)
	}

	return nil
}

// scalar reads an untagged value: a tagged scalar's body or an array element.
func (d *decoder) scalar(typ string) (any, error) {
	switch typ {
	case TypeInt8:
		return readAs[int8](d)
	case TypeInt16:
		return readAs[int16](d)
	case TypeInt:
		return readAs[int32](d)
	case TypeInt64:
		return readAs[int64](d)
	case TypeUInt16:
		return readAs[uint16](d)
	case TypeUInt32:
		return readAs[uint32](d)
	case TypeUInt64:
		return readAs[uint64](d)
	case TypeFloat:
		return readAs[float32](d)
	case TypeDouble:
		return readAs[float64](d)
	case TypeBool:
		b, err := d.uint8()

		return b != 0, err
	case TypeStr, TypeName, TypeObject, TypeEnum:
		return d.string()
	}

	return nil, fmt.Errorf("%w: %w %q", ErrMalformed, ErrUnsupportedType, typ)
}

func readAs[T any](d *decoder) (any, error) {
	var v T

	if err := d.read(&v); err != nil {
		return nil, err
	}

	return v, nil
}
