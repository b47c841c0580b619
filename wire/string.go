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
	"unicode/utf8"
)

// [string]

func ReadString(source io.Reader) (string, error) {
	length, err := ReadShort(source)
	if err != nil {
		return "", fmt.Errorf("cannot read [string] length: %w", err)
	}
	decoded := make([]byte, length)
	if _, err := io.ReadFull(source, decoded); err != nil {
		return "", fmt.Errorf("cannot read [string] content: %w", shortBuffer(err))
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("cannot read [string] content: %w", ErrMalformed)
	}
	return string(decoded), nil
}

func WriteString(s string, dest io.Writer) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("cannot write [string] content: %w", ErrMalformed)
	}
	if err := WriteShort(uint16(len(s)), dest); err != nil {
		return fmt.Errorf("cannot write [string] length: %w", err)
	}
	if _, err := io.WriteString(dest, s); err != nil {
		return fmt.Errorf("cannot write [string] content: %w", err)
	}
	return nil
}

func LengthOfString(s string) int {
	return LengthOfShort + len(s)
}

// [long string]

func ReadLongString(source io.Reader) (string, error) {
	length, err := ReadInt(source)
	if err != nil {
		return "", fmt.Errorf("cannot read [long string] length: %w", err)
	}
	decoded := make([]byte, length)
	if _, err := io.ReadFull(source, decoded); err != nil {
		return "", fmt.Errorf("cannot read [long string] content: %w", shortBuffer(err))
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("cannot read [long string] content: %w", ErrMalformed)
	}
	return string(decoded), nil
}

func WriteLongString(s string, dest io.Writer) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("cannot write [long string] content: %w", ErrMalformed)
	}
	if err := WriteInt(int32(len(s)), dest); err != nil {
		return fmt.Errorf("cannot write [long string] length: %w", err)
	}
	if _, err := io.WriteString(dest, s); err != nil {
		return fmt.Errorf("cannot write [long string] content: %w", err)
	}
	return nil
}

func LengthOfLongString(s string) int {
	return LengthOfInt + len(s)
}

// [string list]

func ReadStringList(source io.Reader) ([]string, error) {
	length, err := ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read [string list] length: %w", err)
	}
	decoded := make([]string, length)
	for i := uint16(0); i < length; i++ {
		if decoded[i], err = ReadString(source); err != nil {
			return nil, fmt.Errorf("cannot read [string list] element %d: %w", i, err)
		}
	}
	return decoded, nil
}

func WriteStringList(list []string, dest io.Writer) error {
	if err := WriteShort(uint16(len(list)), dest); err != nil {
		return fmt.Errorf("cannot write [string list] length: %w", err)
	}
	for i, s := range list {
		if err := WriteString(s, dest); err != nil {
			return fmt.Errorf("cannot write [string list] element %d: %w", i, err)
		}
	}
	return nil
}

func LengthOfStringList(list []string) int {
	length := LengthOfShort
	for _, s := range list {
		length += LengthOfString(s)
	}
	return length
}

// [string map]
//
// Iteration order over a Go map is randomized, so encoding sorts keys first:
// packing the same map twice must yield identical bytes.

func ReadStringMap(source io.Reader) (map[string]string, error) {
	length, err := ReadShort(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read [string map] length: %w", err)
	}
	decoded := make(map[string]string, length)
	for i := uint16(0); i < length; i++ {
		key, err := ReadString(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read [string map] entry %d key: %w", i, err)
		}
		value, err := ReadString(source)
		if err != nil {
			return nil, fmt.Errorf("cannot read [string map] entry %d value: %w", i, err)
		}
		decoded[key] = value
	}
	return decoded, nil
}

func WriteStringMap(m map[string]string, dest io.Writer) error {
	if err := WriteShort(uint16(len(m)), dest); err != nil {
		return fmt.Errorf("cannot write [string map] length: %w", err)
	}
	for _, key := range sortedKeys(m) {
		if err := WriteString(key, dest); err != nil {
			return fmt.Errorf("cannot write [string map] entry %q key: %w", key, err)
		}
		if err := WriteString(m[key], dest); err != nil {
			return fmt.Errorf("cannot write [string map] entry %q value: %w", key, err)
		}
	}
	return nil
}

func LengthOfStringMap(m map[string]string) int {
	length := LengthOfShort
	for key, value := range m {
		length += LengthOfString(key) + LengthOfString(value)
	}
	return length
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
