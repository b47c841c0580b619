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
	"encoding/hex"
	"fmt"
	"io"
)

const LengthOfUUID = 16

// UUID is an opaque 128-bit identifier, raw bytes on the wire.
type UUID [LengthOfUUID]byte

// String renders the canonical 8-4-4-4-12 hex form.
func (u UUID) String() string {
	var buf [36]byte
	hex.Encode(buf[0:8], u[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], u[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], u[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], u[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:36], u[10:16])
	return string(buf[:])
}

func ReadUUID(source io.Reader) (UUID, error) {
	var decoded UUID
	if _, err := io.ReadFull(source, decoded[:]); err != nil {
		return UUID{}, fmt.Errorf("cannot read [uuid] content: %w", shortBuffer(err))
	}
	return decoded, nil
}

func WriteUUID(u UUID, dest io.Writer) error {
	if _, err := dest.Write(u[:]); err != nil {
		return fmt.Errorf("cannot write [uuid] content: %w", err)
	}
	return nil
}
