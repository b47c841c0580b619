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

package cqltype

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"net"
	"unicode/utf8"

	"github.com/cql-codec/cqlwire/wire"
)

// primitiveType implements Type for the fixed-shape scalar CQL kinds.
// Behaviour is selected by kind, keeping one small set of methods instead
// of sixteen near-identical structs.
type primitiveType struct {
	kind Kind
}

var (
	Ascii     Type = primitiveType{KindAscii}
	Bigint    Type = primitiveType{KindBigint}
	Blob      Type = primitiveType{KindBlob}
	Boolean   Type = primitiveType{KindBoolean}
	Counter   Type = primitiveType{KindCounter}
	Decimal   Type = primitiveType{KindDecimal}
	Double    Type = primitiveType{KindDouble}
	Float     Type = primitiveType{KindFloat}
	Int       Type = primitiveType{KindInt}
	Text      Type = primitiveType{KindText}
	Timestamp Type = primitiveType{KindTimestamp}
	Uuid      Type = primitiveType{KindUuid}
	Varchar   Type = primitiveType{KindVarchar}
	Varint    Type = primitiveType{KindVarint}
	Timeuuid  Type = primitiveType{KindTimeuuid}
	Inet      Type = primitiveType{KindInet}
)

func (t primitiveType) Kind() Kind     { return t.kind }
func (t primitiveType) String() string { return t.kind.String() }

func (t primitiveType) Validate(value interface{}) error {
	_, err := t.Encode(value)
	return err
}

func (t primitiveType) Encode(value interface{}) ([]byte, error) {
	switch t.kind {
	case KindAscii:
		s, ok := value.(string)
		if !ok {
			return nil, typeMismatch(t, "string", value)
		}
		for i := 0; i < len(s); i++ {
			if s[i] > 0x7f {
				return nil, fmt.Errorf("ascii value contains non-ASCII byte at offset %d: %w", i, wire.ErrMalformed)
			}
		}
		return []byte(s), nil
	case KindBlob:
		b, ok := value.([]byte)
		if !ok {
			return nil, typeMismatch(t, "[]byte", value)
		}
		return b, nil
	case KindBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, typeMismatch(t, "bool", value)
		}
		if b {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case KindBigint, KindCounter:
		v, err := asInt64(value)
		if err != nil {
			return nil, typeMismatch(t, "int64", value)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))
		return buf, nil
	case KindInt:
		v, err := asInt64(value)
		if err != nil || v < math.MinInt32 || v > math.MaxInt32 {
			return nil, typeMismatch(t, "int32", value)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
		return buf, nil
	case KindFloat:
		f, ok := value.(float32)
		if !ok {
			return nil, typeMismatch(t, "float32", value)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, math.Float32bits(f))
		return buf, nil
	case KindDouble:
		f, ok := value.(float64)
		if !ok {
			return nil, typeMismatch(t, "float64", value)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case KindVarint:
		n, ok := value.(*big.Int)
		if !ok {
			return nil, typeMismatch(t, "*big.Int", value)
		}
		return encodeVarint(n), nil
	case KindDecimal:
		d, ok := value.(Decimal128)
		if !ok {
			return nil, typeMismatch(t, "cqltype.Decimal128", value)
		}
		scale := make([]byte, 4)
		binary.BigEndian.PutUint32(scale, uint32(d.Scale))
		return append(scale, encodeVarint(d.Unscaled)...), nil
	case KindTimestamp:
		v, err := asInt64(value)
		if err != nil {
			return nil, typeMismatch(t, "int64 (millis since epoch)", value)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(v))
		return buf, nil
	case KindUuid, KindTimeuuid:
		u, ok := value.(wire.UUID)
		if !ok {
			return nil, typeMismatch(t, "wire.UUID", value)
		}
		return u[:], nil
	case KindText, KindVarchar:
		s, ok := value.(string)
		if !ok {
			return nil, typeMismatch(t, "string", value)
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("text value is not valid UTF-8: %w", wire.ErrMalformed)
		}
		return []byte(s), nil
	case KindInet:
		ip, ok := value.(net.IP)
		if !ok {
			return nil, typeMismatch(t, "net.IP", value)
		}
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		if v6 := ip.To16(); v6 != nil {
			return v6, nil
		}
		return nil, fmt.Errorf("invalid inet address %v: %w", ip, wire.ErrMalformed)
	default:
		return nil, fmt.Errorf("encode not implemented for %v", t.kind)
	}
}

func (t primitiveType) Decode(data []byte) (interface{}, error) {
	switch t.kind {
	case KindAscii:
		for i := 0; i < len(data); i++ {
			if data[i] > 0x7f {
				return nil, fmt.Errorf("ascii column contains non-ASCII byte at offset %d: %w", i, wire.ErrMalformed)
			}
		}
		return string(data), nil
	case KindBlob:
		return data, nil
	case KindBoolean:
		if len(data) != 1 {
			return nil, fmt.Errorf("boolean column must be 1 byte, got %d: %w", len(data), wire.ErrMalformed)
		}
		return data[0] != 0x00, nil
	case KindBigint, KindCounter:
		if len(data) != 8 {
			return nil, fmt.Errorf("%v column must be 8 bytes, got %d: %w", t.kind, len(data), wire.ErrMalformed)
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case KindInt:
		if len(data) != 4 {
			return nil, fmt.Errorf("int column must be 4 bytes, got %d: %w", len(data), wire.ErrMalformed)
		}
		return int32(binary.BigEndian.Uint32(data)), nil
	case KindFloat:
		if len(data) != 4 {
			return nil, fmt.Errorf("float column must be 4 bytes, got %d: %w", len(data), wire.ErrMalformed)
		}
		return math.Float32frombits(binary.BigEndian.Uint32(data)), nil
	case KindDouble:
		if len(data) != 8 {
			return nil, fmt.Errorf("double column must be 8 bytes, got %d: %w", len(data), wire.ErrMalformed)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case KindVarint:
		return decodeVarint(data), nil
	case KindDecimal:
		if len(data) < 4 {
			return nil, fmt.Errorf("decimal column must be at least 4 bytes, got %d: %w", len(data), wire.ErrMalformed)
		}
		scale := int32(binary.BigEndian.Uint32(data[:4]))
		return Decimal128{Scale: scale, Unscaled: decodeVarint(data[4:])}, nil
	case KindTimestamp:
		if len(data) != 8 {
			return nil, fmt.Errorf("timestamp column must be 8 bytes, got %d: %w", len(data), wire.ErrMalformed)
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case KindUuid, KindTimeuuid:
		if len(data) != wire.LengthOfUUID {
			return nil, fmt.Errorf("%v column must be %d bytes, got %d: %w", t.kind, wire.LengthOfUUID, len(data), wire.ErrMalformed)
		}
		var u wire.UUID
		copy(u[:], data)
		return u, nil
	case KindText, KindVarchar:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("text column is not valid UTF-8: %w", wire.ErrMalformed)
		}
		return string(data), nil
	case KindInet:
		switch len(data) {
		case net.IPv4len:
			return net.IPv4(data[0], data[1], data[2], data[3]), nil
		case net.IPv6len:
			ip := make(net.IP, net.IPv6len)
			copy(ip, data)
			return ip, nil
		default:
			return nil, fmt.Errorf("inet column must be 4 or 16 bytes, got %d: %w", len(data), wire.ErrMalformed)
		}
	default:
		return nil, fmt.Errorf("decode not implemented for %v", t.kind)
	}
}

// Decimal128 is the Go-native representation of a CQL decimal: an
// arbitrary-precision unscaled integer together with the power-of-ten
// scale it is divided by.
type Decimal128 struct {
	Scale    int32
	Unscaled *big.Int
}

// encodeVarint renders n as Java BigInteger.toByteArray() would: the
// minimal big-endian two's-complement representation, always at least one
// byte and never with a redundant leading sign byte.
func encodeVarint(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0x00}
	}
	if n.Sign() > 0 {
		b := n.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}
	// Two's complement of a negative number: invert the bytes of (-n - 1).
	absMinusOne := new(big.Int).Add(n, big.NewInt(1))
	absMinusOne.Neg(absMinusOne)
	b := absMinusOne.Bytes()
	if len(b) == 0 {
		b = []byte{0x00}
	}
	if b[0]&0x80 != 0 {
		b = append([]byte{0x00}, b...)
	}
	for i := range b {
		b[i] = ^b[i]
	}
	return b
}

func decodeVarint(data []byte) *big.Int {
	if len(data) == 0 {
		return big.NewInt(0)
	}
	if data[0]&0x80 == 0 {
		return new(big.Int).SetBytes(data)
	}
	inverted := make([]byte, len(data))
	for i, b := range data {
		inverted[i] = ^b
	}
	magnitude := new(big.Int).SetBytes(inverted)
	magnitude.Add(magnitude, big.NewInt(1))
	return magnitude.Neg(magnitude)
}

func asInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("not an integer: %T", value)
	}
}

func typeMismatch(t Type, expected string, got interface{}) error {
	return fmt.Errorf("%v expects a %s, got %T: %w", t, expected, got, wire.ErrMalformed)
}
