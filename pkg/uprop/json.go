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
	"encoding/json"
	"fmt"
	"strconv"
)

// propertyJSON is the hand-editable shape of a property. Type metadata the
// binary form needs but an editor does not is optional and synthesized when
// absent.
type propertyJSON struct {
	Name          string          `json:"Name"`
	Type          string          `json:"Type"`
	Index         int32           `json:"Index,omitempty"`
	Guid          *Guid           `json:"Guid,omitempty"`
	EnumType      string          `json:"EnumType,omitempty"`
	StructType    string          `json:"StructType,omitempty"`
	StructGuid    *Guid           `json:"StructGuid,omitempty"`
	ItemType      string          `json:"ItemType,omitempty"`
	PrototypeName string          `json:"PrototypeName,omitempty"`
	Value         json.RawMessage `json:"Value,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p *Property) MarshalJSON() ([]byte, error) {
	j := propertyJSON{
		Name:  p.Name,
		Type:  p.Type,
		Index: p.Index,
		Guid:  p.Guid,
	}

	var (
		v   any = p.Value
		err error
	)

	switch p.Type {
	case TypeStruct:
		s, ok := p.Value.(*Struct)
		if !ok || s == nil {
			return nil, mismatch(p.Type, p.Value)
		}

		j.StructType = s.Type
		j.StructGuid = optionalGuid(s.Guid)
		v = structJSON(s)
	case TypeByte, TypeEnum:
		if e, ok := p.Value.(*Enum); ok && e != nil {
			j.EnumType = enumType(e)
			v = e.Value
		} else if p.Type == TypeByte {
			j.EnumType = noneEnum
		}
	case TypeArray:
		a, ok := p.Value.(*Array)
		if !ok || a == nil {
			return nil, mismatch(p.Type, p.Value)
		}

		j.ItemType = a.ItemType

		if a.Prototype != nil {
			proto, ok := a.Prototype.Value.(*Struct)
			if !ok || proto == nil {
				return nil, mismatch(TypeStruct, a.Prototype.Value)
			}

			j.StructType = proto.Type
			j.StructGuid = optionalGuid(proto.Guid)

			if a.Prototype.Name != p.Name {
				j.PrototypeName = a.Prototype.Name
			}
		}

		if v, err = arrayJSON(a); err != nil {
			return nil, err
		}
	case TypeFloat, TypeDouble:
		v = json.RawMessage(scalarFloatJSON(p.Value))
	}

	if j.Value, err = marshal(v); err != nil {
		return nil, fmt.Errorf("property %q: %w", p.Name, err)
	}

	return marshal(j)
}

// marshal is json.Marshal without HTML escaping, so that edited text keeps
// its angle brackets and ampersands.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Property) UnmarshalJSON(b []byte) error {
	var j propertyJSON

	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}

	if j.Type == "" {
		return fmt.Errorf("property %q: missing Type", j.Name)
	}

	*p = Property{Name: j.Name, Type: j.Type, Index: j.Index, Guid: j.Guid}

	var err error

	switch j.Type {
	case TypeStruct:
		p.Value, err = decodeStructJSON(j.StructType, j.StructGuid, j.Value)
	case TypeByte:
		if j.EnumType == "" || j.EnumType == noneEnum {
			p.Value, err = decodeUnsigned[uint8](j.Value, 8)
		} else {
			p.Value, err = decodeEnumJSON(j.EnumType, j.Value)
		}
	case TypeEnum:
		p.Value, err = decodeEnumJSON(j.EnumType, j.Value)
	case TypeArray:
		p.Value, err = decodeArrayJSON(&j)
	default:
		p.Value, err = decodeItemJSON(j.Type, j.Value)
	}

	if err != nil {
		return fmt.Errorf("property %q: %w", j.Name, err)
	}

	return nil
}

func optionalGuid(g Guid) *Guid {
	if g.IsZero() {
		return nil
	}

	return &g
}

func structJSON(s *Struct) any {
	if IsNative(s.Type) {
		return s.Native
	}

	if s.Fields == nil {
		return []*Property{}
	}

	return s.Fields
}

func arrayJSON(a *Array) (any, error) {
	switch a.ItemType {
	case TypeByte:
		if a.Bytes == nil {
			return []byte{}, nil
		}

		return a.Bytes, nil
	case TypeFloat, TypeDouble:
		items := make([]json.RawMessage, len(a.Items))

		for i, v := range a.Items {
			items[i] = scalarFloatJSON(v)
		}

		return items, nil
	case TypeStruct:
		items := make([]any, len(a.Items))

		for i, v := range a.Items {
			s, ok := v.(*Struct)
			if !ok || s == nil {
				return nil, fmt.Errorf("element %d: %w", i, mismatch(TypeStruct, v))
			}

			items[i] = structJSON(s)
		}

		return items, nil
	}

	if a.Items == nil {
		return []any{}, nil
	}

	return a.Items, nil
}

func scalarFloatJSON(v any) []byte {
	switch f := v.(type) {
	case float32:
		return marshalFloat(float64(f), 32)
	case float64:
		return marshalFloat(f, 64)
	}

	// Leave the mismatch for the binary encoder to report.
	b, _ := json.Marshal(v)

	return b
}

func isNull(raw []byte) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func decodeStructJSON(structType string, guid *Guid, raw []byte) (*Struct, error) {
	if structType == "" {
		return nil, fmt.Errorf("struct without StructType")
	}

	s := &Struct{Type: structType}

	if guid != nil {
		s.Guid = *guid
	}

	if c, ok := natives[structType]; ok {
		if isNull(raw) {
			return nil, fmt.Errorf("native struct %q without Value", structType)
		}

		v, err := c.decodeJSON(raw)
		if err != nil {
			return nil, err
		}

		s.Native = v

		return s, nil
	}

	fields, err := decodeListJSON(raw)
	if err != nil {
		return nil, err
	}

	s.Fields = fields

	return s, nil
}

func decodeListJSON(raw []byte) ([]*Property, error) {
	fields := []*Property{}

	if isNull(raw) {
		return fields, nil
	}

	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	for i, f := range fields {
		if f == nil {
			return nil, fmt.Errorf("null property at position %d", i)
		}
	}

	return fields, nil
}

func decodeEnumJSON(typ string, raw []byte) (*Enum, error) {
	if typ == "" {
		typ = noneEnum
	}

	v, err := decodeItemJSON(TypeStr, raw)
	if err != nil {
		return nil, err
	}

	return &Enum{Type: typ, Value: v.(string)}, nil
}

func decodeArrayJSON(j *propertyJSON) (*Array, error) {
	if j.ItemType == "" {
		return nil, fmt.Errorf("array without ItemType")
	}

	a := &Array{ItemType: j.ItemType}

	if j.ItemType == TypeByte {
		a.Bytes = []byte{}

		if isNull(j.Value) {
			return a, nil
		}

		return a, json.Unmarshal(j.Value, &a.Bytes)
	}

	var items []json.RawMessage

	if !isNull(j.Value) {
		if err := json.Unmarshal(j.Value, &items); err != nil {
			return nil, err
		}
	}

	a.Items = make([]any, 0, len(items))

	if j.ItemType == TypeStruct {
		if j.StructType == "" {
			return nil, fmt.Errorf("struct array without StructType")
		}

		proto := &Struct{Type: j.StructType}
		if j.StructGuid != nil {
			proto.Guid = *j.StructGuid
		}

		name := j.PrototypeName
		if name == "" {
			name = j.Name
		}

		a.Prototype = &Property{Name: name, Type: TypeStruct, Value: proto}

		for i, raw := range items {
			s, err := decodeStructJSON(j.StructType, j.StructGuid, raw)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}

			a.Items = append(a.Items, s)
		}

		return a, nil
	}

	for i, raw := range items {
		v, err := decodeItemJSON(j.ItemType, raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		a.Items = append(a.Items, v)
	}

	return a, nil
}

// decodeItemJSON decodes a scalar value, either a property's or an array
// element's. An absent value decodes as the type's zero value.
func decodeItemJSON(typ string, raw []byte) (any, error) {
	switch typ {
	case TypeInt8:
		return decodeSigned[int8](raw, 8)
	case TypeInt16:
		return decodeSigned[int16](raw, 16)
	case TypeInt:
		return decodeSigned[int32](raw, 32)
	case TypeInt64:
		return decodeSigned[int64](raw, 64)
	case TypeUInt16:
		return decodeUnsigned[uint16](raw, 16)
	case TypeUInt32:
		return decodeUnsigned[uint32](raw, 32)
	case TypeUInt64:
		return decodeUnsigned[uint64](raw, 64)
	case TypeFloat:
		f, err := unmarshalFloat(nullOr(raw, "0"), 32)

		return float32(f), err
	case TypeDouble:
		return unmarshalFloat(nullOr(raw, "0"), 64)
	case TypeBool:
		var b bool

		if err := json.Unmarshal(nullOr(raw, "false"), &b); err != nil {
			return nil, err
		}

		return b, nil
	case TypeStr, TypeName, TypeObject, TypeEnum:
		var s string

		if err := json.Unmarshal(nullOr(raw, `""`), &s); err != nil {
			return nil, err
		}

		return s, nil
	}

	return nil, fmt.Errorf("unknown property type %q", typ)
}

func number(raw []byte) (string, error) {
	var n json.Number

	if err := json.Unmarshal(nullOr(raw, "0"), &n); err != nil {
		return "", err
	}

	return n.String(), nil
}

func decodeSigned[T ~int8 | ~int16 | ~int32 | ~int64](raw []byte, bits int) (any, error) {
	n, err := number(raw)
	if err != nil {
		return nil, err
	}

	i, err := strconv.ParseInt(n, 10, bits)
	if err != nil {
		return nil, err
	}

	return T(i), nil
}

func decodeUnsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](raw []byte, bits int) (any, error) {
	n, err := number(raw)
	if err != nil {
		return nil, err
	}

	u, err := strconv.ParseUint(n, 10, bits)
	if err != nil {
		return nil, err
	}

	return T(u), nil
}

func nullOr(raw []byte, zero string) []byte {
	if isNull(raw) {
		return []byte(zero)
	}

	return raw
}
