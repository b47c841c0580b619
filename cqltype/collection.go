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
	"bytes"
	"fmt"
	"sort"

	"github.com/cql-codec/cqlwire/wire"
)

// Custom wraps a server-defined class name that this library does not
// otherwise model; its column content is carried as opaque bytes.
type Custom struct {
	ClassName string
}

func (t Custom) Kind() Kind     { return KindCustom }
func (t Custom) String() string { return fmt.Sprintf("custom(%s)", t.ClassName) }

func (t Custom) Validate(value interface{}) error {
	_, err := t.Encode(value)
	return err
}

func (t Custom) Encode(value interface{}) ([]byte, error) {
	b, ok := value.([]byte)
	if !ok {
		return nil, typeMismatch(t, "[]byte", value)
	}
	return b, nil
}

func (t Custom) Decode(data []byte) (interface{}, error) {
	return data, nil
}

// List is the CQL list<Element> type: a short count followed by
// short-length-prefixed encoded elements.
type List struct {
	Element Type
}

func (t List) Kind() Kind     { return KindList }
func (t List) String() string { return fmt.Sprintf("list<%v>", t.Element) }

func (t List) Validate(value interface{}) error {
	_, err := t.Encode(value)
	return err
}

func (t List) Encode(value interface{}) ([]byte, error) {
	values, ok := value.([]interface{})
	if !ok {
		return nil, typeMismatch(t, "[]interface{}", value)
	}
	buf := &bytes.Buffer{}
	if err := wire.WriteShort(uint16(len(values)), buf); err != nil {
		return nil, fmt.Errorf("cannot write %v element count: %w", t, err)
	}
	for i, v := range values {
		encoded, err := t.Element.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("cannot encode %v element %d: %w", t, i, err)
		}
		if err := wire.WriteShortBytes(encoded, buf); err != nil {
			return nil, fmt.Errorf("cannot write %v element %d: %w", t, i, err)
		}
	}
	return buf.Bytes(), nil
}

func (t List) Decode(data []byte) (interface{}, error) {
	source := bytes.NewReader(data)
	count, err := wire.ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read %v element count: %w", t, err)
	}
	values := make([]interface{}, count)
	for i := uint16(0); i < count; i++ {
		elemBytes, err := wire.ReadShortBytes(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read %v element %d: %w", t, i, err)
		}
		decoded, err := t.Element.Decode(elemBytes)
		if err != nil {
			return nil, fmt.Errorf("cannot decode %v element %d: %w", t, i, err)
		}
		values[i] = decoded
	}
	return values, nil
}

// Set is the CQL set<Element> type. On the wire it has the same shape as
// List; uniqueness is a server-side concern, not enforced here.
type Set struct {
	Element Type
}

func (t Set) Kind() Kind     { return KindSet }
func (t Set) String() string { return fmt.Sprintf("set<%v>", t.Element) }

func (t Set) Validate(value interface{}) error {
	_, err := t.Encode(value)
	return err
}

func (t Set) Encode(value interface{}) ([]byte, error) {
	return List{Element: t.Element}.Encode(value)
}

func (t Set) Decode(data []byte) (interface{}, error) {
	return List{Element: t.Element}.Decode(data)
}

// cqlMap is the Go value a Map column decodes to: key/value pairs in wire
// order, since Key need not be a type whose Go representation is hashable
// (for example a nested list).
type cqlMap struct {
	Keys   []interface{}
	Values []interface{}
}

// Map is the CQL map<Key, Value> type: a short count followed by
// alternating short-length-prefixed encoded keys and values.
type Map struct {
	Key   Type
	Value Type
}

func (t Map) Kind() Kind     { return KindMap }
func (t Map) String() string { return fmt.Sprintf("map<%v, %v>", t.Key, t.Value) }

func (t Map) Validate(value interface{}) error {
	_, err := t.Encode(value)
	return err
}

func (t Map) Encode(value interface{}) ([]byte, error) {
	entries, ok := value.(cqlMap)
	if !ok {
		return nil, typeMismatch(t, "cqltype.cqlMap", value)
	}
	if len(entries.Keys) != len(entries.Values) {
		return nil, fmt.Errorf("%v has %d keys but %d values: %w", t, len(entries.Keys), len(entries.Values), wire.ErrMalformed)
	}
	order := sortedMapEntryIndexes(t.Key, entries.Keys)
	buf := &bytes.Buffer{}
	if err := wire.WriteShort(uint16(len(order)), buf); err != nil {
		return nil, fmt.Errorf("cannot write %v entry count: %w", t, err)
	}
	for _, i := range order {
		encodedKey, err := t.Key.Encode(entries.Keys[i])
		if err != nil {
			return nil, fmt.Errorf("cannot encode %v key %d: %w", t, i, err)
		}
		if err := wire.WriteShortBytes(encodedKey, buf); err != nil {
			return nil, fmt.Errorf("cannot write %v key %d: %w", t, i, err)
		}
		encodedValue, err := t.Value.Encode(entries.Values[i])
		if err != nil {
			return nil, fmt.Errorf("cannot encode %v value %d: %w", t, i, err)
		}
		if err := wire.WriteShortBytes(encodedValue, buf); err != nil {
			return nil, fmt.Errorf("cannot write %v value %d: %w", t, i, err)
		}
	}
	return buf.Bytes(), nil
}

func (t Map) Decode(data []byte) (interface{}, error) {
	source := bytes.NewReader(data)
	count, err := wire.ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read %v entry count: %w", t, err)
	}
	result := cqlMap{Keys: make([]interface{}, count), Values: make([]interface{}, count)}
	for i := uint16(0); i < count; i++ {
		keyBytes, err := wire.ReadShortBytes(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read %v key %d: %w", t, i, err)
		}
		key, err := t.Key.Decode(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("cannot decode %v key %d: %w", t, i, err)
		}
		valueBytes, err := wire.ReadShortBytes(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read %v value %d: %w", t, i, err)
		}
		value, err := t.Value.Decode(valueBytes)
		if err != nil {
			return nil, fmt.Errorf("cannot decode %v value %d: %w", t, i, err)
		}
		result.Keys[i] = key
		result.Values[i] = value
	}
	return result, nil
}

// sortedMapEntryIndexes orders entries by their encoded key bytes, so that
// encoding the same logical map twice produces identical wire output
// regardless of the order keys arrived in.
func sortedMapEntryIndexes(keyType Type, keys []interface{}) []int {
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		b, err := keyType.Encode(k)
		if err != nil {
			b = nil
		}
		encoded[i] = b
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bytes.Compare(encoded[order[a]], encoded[order[b]]) < 0
	})
	return order
}
