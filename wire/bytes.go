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

package wire

import (
	"fmt"
	"io"
	"sort"
)

// [bytes]
//
// A nil []byte return represents the absent value (wire length -1); a
// non-nil, possibly zero-length, []byte represents a present value. Callers
// must not conflate the two: ReadBytes never returns (nil, nil) for a
// present empty value.

func ReadBytes(source io.Reader) ([]byte, error) {
	length, err := ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read [bytes] length: %w", err)
	}
	if length < 0 {
		return nil, nil
	}
	decoded := make([]byte, length)
	if _, err := io.ReadFull(source, decoded); err != nil {
		return nil, fmt.Errorf("cannot read [bytes] content: %w", shortBuffer(err))
	}
	return decoded, nil
}

func WriteBytes(b []byte, dest io.Writer) error {
	if b == nil {
		if err := WriteInt(-1, dest); err != nil {
			return fmt.Errorf("cannot write null [bytes]: %w", err)
		}
		return nil
	}
	if err := WriteInt(int32(len(b)), dest); err != nil {
		return fmt.Errorf("cannot write [bytes] length: %w", err)
	}
	if _, err := dest.Write(b); err != nil {
		return fmt.Errorf("cannot write [bytes] content: %w", err)
	}
	return nil
}

func LengthOfBytes(b []byte) int {
	return LengthOfInt + len(b)
}

// [short bytes]

func ReadShortBytes(source io.Reader) ([]byte, error) {
	length, err := ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read [short bytes] length: %w", err)
	}
	decoded := make([]byte, length)
	if _, err := io.ReadFull(source, decoded); err != nil {
		return nil, fmt.Errorf("cannot read [short bytes] content: %w", shortBuffer(err))
	}
	return decoded, nil
}

func WriteShortBytes(b []byte, dest io.Writer) error {
	if err := WriteShort(uint16(len(b)), dest); err != nil {
		return fmt.Errorf("cannot write [short bytes] length: %w", err)
	}
	if _, err := dest.Write(b); err != nil {
		return fmt.Errorf("cannot write [short bytes] content: %w", err)
	}
	return nil
}

func LengthOfShortBytes(b []byte) int {
	return LengthOfShort + len(b)
}

// [bytes map]
//
// Same determinism requirement as [string map].

func ReadBytesMap(source io.Reader) (map[string][]byte, error) {
	length, err := ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read [bytes map] length: %w", err)
	}
	decoded := make(map[string][]byte, length)
	for i := uint16(0); i < length; i++ {
		key, err := ReadString(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read [bytes map] entry %d key: %w", i, err)
		}
		value, err := ReadBytes(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read [bytes map] entry %d value: %w", i, err)
		}
		decoded[key] = value
	}
	return decoded, nil
}

func WriteBytesMap(m map[string][]byte, dest io.Writer) error {
	if err := WriteShort(uint16(len(m)), dest); err != nil {
		return fmt.Errorf("cannot write [bytes map] length: %w", err)
	}
	for _, key := range sortedByteMapKeys(m) {
		if err := WriteString(key, dest); err != nil {
			return fmt.Errorf("cannot write [bytes map] entry %q key: %w", key, err)
		}
		if err := WriteBytes(m[key], dest); err != nil {
			return fmt.Errorf("cannot write [bytes map] entry %q value: %w", key, err)
		}
	}
	return nil
}

func LengthOfBytesMap(m map[string][]byte) int {
	length := LengthOfShort
	for key, value := range m {
		length += LengthOfString(key) + LengthOfBytes(value)
	}
	return length
}

func sortedByteMapKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
