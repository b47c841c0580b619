// Copyright 2020 DataStax
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cqltype implements the CQL v1/v2 type descriptors: their wire
// encoding as [option]/[option list] entries, and the validate/encode/decode
// contract used to turn Go values into [bytes] column content and back.
package cqltype

import (
	"fmt"
	"io"

	"github.com/cql-codec/cqlwire/wire"
)

// Kind identifies a CQL type descriptor code, as sent on the wire in an
// [option]. Only the codes defined by native protocol v1/v2 are modeled;
// v3+ additions (tuple, udt) and v4+ additions (date, time, smallint,
// tinyint, duration) are out of scope.
type Kind uint16

const (
	KindCustom    Kind = 0x0000
	KindAscii     Kind = 0x0001
	KindBigint    Kind = 0x0002
	KindBlob      Kind = 0x0003
	KindBoolean   Kind = 0x0004
	KindCounter   Kind = 0x0005
	KindDecimal   Kind = 0x0006
	KindDouble    Kind = 0x0007
	KindFloat     Kind = 0x0008
	KindInt       Kind = 0x0009
	KindText      Kind = 0x000A
	KindTimestamp Kind = 0x000B
	KindUuid      Kind = 0x000C
	KindVarchar   Kind = 0x000D
	KindVarint    Kind = 0x000E
	KindTimeuuid  Kind = 0x000F
	KindInet      Kind = 0x0010
	KindList      Kind = 0x0020
	KindMap       Kind = 0x0021
	KindSet       Kind = 0x0022
)

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%04x)", uint16(k))
}

var kindNames = map[Kind]string{
	KindCustom:    "custom",
	KindAscii:     "ascii",
	KindBigint:    "bigint",
	KindBlob:      "blob",
	KindBoolean:   "boolean",
	KindCounter:   "counter",
	KindDecimal:   "decimal",
	KindDouble:    "double",
	KindFloat:     "float",
	KindInt:       "int",
	KindText:      "text",
	KindTimestamp: "timestamp",
	KindUuid:      "uuid",
	KindVarchar:   "varchar",
	KindVarint:    "varint",
	KindTimeuuid:  "timeuuid",
	KindInet:      "inet",
	KindList:      "list",
	KindMap:       "map",
	KindSet:       "set",
}

// Type is a CQL type descriptor: it knows its own wire shape (Kind,
// String), validates candidate Go values, and converts between those
// values and the raw column bytes carried inside a [bytes] cell.
type Type interface {
	Kind() Kind
	String() string
	Validate(value interface{}) error
	Encode(value interface{}) ([]byte, error)
	Decode(data []byte) (interface{}, error)
}

// ErrUnsupportedKind is wrapped by ReadType when the wire carries a type
// code this library does not model.
var ErrUnsupportedKind = fmt.Errorf("unsupported type kind")

// ReadType decodes one [option] from source: a 2-byte type code, followed
// by whatever additional content that code requires (nothing for
// primitives, a nested Type for list/set, two nested Types for map, a
// [string] class name for custom).
func ReadType(source io.Reader) (Type, error) {
	code, err := wire.ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read type code: %w", err)
	}
	switch Kind(code) {
	case KindAscii:
		return Ascii, nil
	case KindBigint:
		return Bigint, nil
	case KindBlob:
		return Blob, nil
	case KindBoolean:
		return Boolean, nil
	case KindCounter:
		return Counter, nil
	case KindDecimal:
		return Decimal, nil
	case KindDouble:
		return Double, nil
	case KindFloat:
		return Float, nil
	case KindInt:
		return Int, nil
	case KindText:
		return Text, nil
	case KindTimestamp:
		return Timestamp, nil
	case KindUuid:
		return Uuid, nil
	case KindVarchar:
		return Varchar, nil
	case KindVarint:
		return Varint, nil
	case KindTimeuuid:
		return Timeuuid, nil
	case KindInet:
		return Inet, nil
	case KindCustom:
		className, err := wire.ReadString(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read custom type class name: %w", err)
		}
		return Custom{ClassName: className}, nil
	case KindList:
		elem, err := ReadType(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read list element type: %w", err)
		}
		return List{Element: elem}, nil
	case KindSet:
		elem, err := ReadType(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read set element type: %w", err)
		}
		return Set{Element: elem}, nil
	case KindMap:
		key, err := ReadType(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read map key type: %w", err)
		}
		value, err := ReadType(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read map value type: %w", err)
		}
		return Map{Key: key, Value: value}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%04x", ErrUnsupportedKind, code)
	}
}

// WriteType encodes t's [option] representation to dest.
func WriteType(t Type, dest io.Writer) error {
	if err := wire.WriteShort(uint16(t.Kind()), dest); err != nil {
		return fmt.Errorf("cannot write type code for %v: %w", t, err)
	}
	switch actual := t.(type) {
	case Custom:
		if err := wire.WriteString(actual.ClassName, dest); err != nil {
			return fmt.Errorf("cannot write custom type class name: %w", err)
		}
	case List:
		if err := WriteType(actual.Element, dest); err != nil {
			return fmt.Errorf("cannot write list element type: %w", err)
		}
	case Set:
		if err := WriteType(actual.Element, dest); err != nil {
			return fmt.Errorf("cannot write set element type: %w", err)
		}
	case Map:
		if err := WriteType(actual.Key, dest); err != nil {
			return fmt.Errorf("cannot write map key type: %w", err)
		}
		if err := WriteType(actual.Value, dest); err != nil {
			return fmt.Errorf("cannot write map value type: %w", err)
		}
	}
	return nil
}
