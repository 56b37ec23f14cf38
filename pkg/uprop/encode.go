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
	"fmt"
)

func (e *encoder) list(props []*Property) error {
	for i, p := range props {
		if p == nil {
			return fmt.Errorf("%w: nil property at position %d", ErrInvalidValue, i)
		}

		if err := e.property(p); err != nil {
			return fmt.Errorf("property %q: %w", p.Name, err)
		}
	}

	e.string(noneName)

	return nil
}

// property writes one tag. The value is encoded first so that the tag can
// carry its size.
func (e *encoder) property(p *Property) error {
	if p.Name == "" || p.Name == noneName {
		return fmt.Errorf("%w: property name %q is reserved", ErrInvalidValue, p.Name)
	}

	body := new(encoder)
	header := new(encoder)

	switch p.Type {
	case TypeStruct:
		s, ok := p.Value.(*Struct)
		if !ok || s == nil {
			return mismatch(p.Type, p.Value)
		}

		header.string(s.Type)
		header.guid(s.Guid)

		if err := body.structBody(s, s.Type); err != nil {
			return err
		}
	case TypeBool:
		b, ok := p.Value.(bool)
		if !ok {
			return mismatch(p.Type, p.Value)
		}

		header.uint8(boolByte(b))
	case TypeByte:
		switch v := p.Value.(type) {
		case uint8:
			header.string(noneEnum)
			body.uint8(v)
		case *Enum:
			if v == nil || enumType(v) == noneEnum {
				return fmt.Errorf("%w: enum byte without enum type", ErrInvalidValue)
			}

			header.string(enumType(v))
			body.string(v.Value)
		default:
			return mismatch(p.Type, p.Value)
		}
	case TypeEnum:
		v, ok := p.Value.(*Enum)
		if !ok || v == nil {
			return mismatch(p.Type, p.Value)
		}

		header.string(enumType(v))
		body.string(v.Value)
	case TypeArray:
		a, ok := p.Value.(*Array)
		if !ok || a == nil {
			return mismatch(p.Type, p.Value)
		}

		header.string(a.ItemType)

		if err := body.array(a); err != nil {
			return err
		}
	default:
		if err := body.scalar(p.Type, p.Value); err != nil {
			return err
		}
	}

	e.string(p.Name)
	e.string(p.Type)
	e.int32(int32(body.Len()))
	e.int32(p.Index)
	e.Write(header.Bytes())
	e.propertyGuid(p.Guid)
	e.Write(body.Bytes())

	return nil
}

func (e *encoder) propertyGuid(g *Guid) {
	if g == nil {
		e.uint8(0)

		return
	}

	e.uint8(1)
	e.guid(*g)
}

func (e *encoder) structBody(s *Struct, structType string) error {
	if s.Type != structType {
		return fmt.Errorf("%w: struct of type %q where %q is required", ErrInvalidValue, s.Type, structType)
	}

	if c, ok := natives[s.Type]; ok {
		return c.write(e, s.Native)
	}

	if s.Native != nil {
		return fmt.Errorf("%w: struct type %q has no native layout", ErrInvalidValue, s.Type)
	}

	return e.list(s.Fields)
}

func (e *encoder) array(a *Array) error {
	switch a.ItemType {
	case TypeByte:
		e.int32(int32(len(a.Bytes)))
		e.Write(a.Bytes)

		return nil
	case TypeStruct:
		return e.structArray(a)
	}

	e.int32(int32(len(a.Items)))

	for i, v := range a.Items {
		if err := e.scalar(a.ItemType, v); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	return nil
}

func (e *encoder) structArray(a *Array) error {
	if a.Prototype == nil {
		return fmt.Errorf("%w: struct array without prototype", ErrInvalidValue)
	}

	proto, ok := a.Prototype.Value.(*Struct)
	if !ok || proto == nil {
		return mismatch(TypeStruct, a.Prototype.Value)
	}

	body := new(encoder)

	for i, v := range a.Items {
		s, ok := v.(*Struct)
		if !ok || s == nil {
			return fmt.Errorf("element %d: %w", i, mismatch(TypeStruct, v))
		}

		if err := body.structBody(s, proto.Type); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}

	e.int32(int32(len(a.Items)))
	e.string(a.Prototype.Name)
	e.string(TypeStruct)
	e.int32(int32(body.Len()))
	e.int32(a.Prototype.Index)
	e.string(proto.Type)
	e.guid(proto.Guid)
	e.propertyGuid(a.Prototype.Guid)
	e.Write(body.Bytes())

	return nil
}

func (e *encoder) scalar(typ string, v any) error {
	ok := true

	switch typ {
	case TypeInt8:
		ok = writeAs[int8](e, v)
	case TypeInt16:
		ok = writeAs[int16](e, v)
	case TypeInt:
		ok = writeAs[int32](e, v)
	case TypeInt64:
		ok = writeAs[int64](e, v)
	case TypeUInt16:
		ok = writeAs[uint16](e, v)
	case TypeUInt32:
		ok = writeAs[uint32](e, v)
	case TypeUInt64:
		ok = writeAs[uint64](e, v)
	case TypeFloat:
		ok = writeAs[float32](e, v)
	case TypeDouble:
		ok = writeAs[float64](e, v)
	case TypeBool:
		var b bool
		if b, ok = v.(bool); ok {
			e.uint8(boolByte(b))
		}
	case TypeStr, TypeName, TypeObject, TypeEnum:
		var s string
		if s, ok = v.(string); ok {
			e.string(s)
		}
	default:
		return fmt.Errorf("%w: unknown property type %q", ErrInvalidValue, typ)
	}

	if !ok {
		return mismatch(typ, v)
	}

	return nil
}

func writeAs[T any](e *encoder, v any) bool {
	t, ok := v.(T)
	if ok {
		e.write(t)
	}

	return ok
}

func mismatch(typ string, v any) error {
	return fmt.Errorf("%w: %s holds %T", ErrInvalidValue, typ, v)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}

	return 0
}

func enumType(v *Enum) string {
	if v.Type == "" {
		return noneEnum
	}

	return v.Type
}
