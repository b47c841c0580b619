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
	"encoding/binary"
	"fmt"
	"io"
)

const (
	LengthOfByte  = 1
	LengthOfShort = 2
	LengthOfInt   = 4
	LengthOfLong  = 8
)

// [byte] is not a primitive defined by the protocol spec; it carries the
// length prefix of [inetaddr].

func ReadByte(source io.Reader) (uint8, error) {
	var decoded [1]byte
	if _, err := io.ReadFull(source, decoded[:]); err != nil {
		return 0, fmt.Errorf("cannot read [byte]: %w", shortBuffer(err))
	}
	return decoded[0], nil
}

func WriteByte(b uint8, dest io.Writer) error {
	if _, err := dest.Write([]byte{b}); err != nil {
		return fmt.Errorf("cannot write [byte]: %w", err)
	}
	return nil
}

// [short]

func ReadShort(source io.Reader) (uint16, error) {
	var decoded [LengthOfShort]byte
	if _, err := io.ReadFull(source, decoded[:]); err != nil {
		return 0, fmt.Errorf("cannot read [short]: %w", shortBuffer(err))
	}
	return binary.BigEndian.Uint16(decoded[:]), nil
}

func WriteShort(i uint16, dest io.Writer) error {
	var encoded [LengthOfShort]byte
	binary.BigEndian.PutUint16(encoded[:], i)
	if _, err := dest.Write(encoded[:]); err != nil {
		return fmt.Errorf("cannot write [short]: %w", err)
	}
	return nil
}

// [int]

func ReadInt(source io.Reader) (int32, error) {
	var decoded [LengthOfInt]byte
	if _, err := io.ReadFull(source, decoded[:]); err != nil {
		return 0, fmt.Errorf("cannot read [int]: %w", shortBuffer(err))
	}
	return int32(binary.BigEndian.Uint32(decoded[:])), nil
}

func WriteInt(i int32, dest io.Writer) error {
	var encoded [LengthOfInt]byte
	binary.BigEndian.PutUint32(encoded[:], uint32(i))
	if _, err := dest.Write(encoded[:]); err != nil {
		return fmt.Errorf("cannot write [int]: %w", err)
	}
	return nil
}

// [long]
//
// Always a full 64-bit two's complement value: callers on 32-bit hosts get
// the same range as on 64-bit hosts because Go's int64 is never truncated
// to the machine word size.

func ReadLong(source io.Reader) (int64, error) {
	var decoded [LengthOfLong]byte
	if _, err := io.ReadFull(source, decoded[:]); err != nil {
		return 0, fmt.Errorf("cannot read [long]: %w", shortBuffer(err))
	}
	return int64(binary.BigEndian.Uint64(decoded[:])), nil
}

func WriteLong(l int64, dest io.Writer) error {
	var encoded [LengthOfLong]byte
	binary.BigEndian.PutUint64(encoded[:], uint64(l))
	if _, err := dest.Write(encoded[:]); err != nil {
		return fmt.Errorf("cannot write [long]: %w", err)
	}
	return nil
}

// shortBuffer normalizes any read failure (typically io.EOF or
// io.ErrUnexpectedEOF from io.ReadFull) into ErrShortBuffer, per the
// codec's error taxonomy.
func shortBuffer(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrShortBuffer, err)
}
