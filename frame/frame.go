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

// Package frame implements message framing for CQL native protocol v1/v2:
// the 8-byte header (version, flags, stream id, opcode, body length) and a
// Frame buffer type layering the wire primitives on top of an in-memory
// byte buffer with an implicit read cursor.
package frame

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/cql-codec/cqlwire/wire"
)

// Version identifies the protocol version and message direction encoded in
// the header's first byte.
type Version uint8

const (
	RequestV1  Version = 0x01
	RequestV2  Version = 0x02
	ResponseV1 Version = 0x81
	ResponseV2 Version = 0x82
)

// IsResponse reports whether the high bit (0x80) identifies a response.
func (v Version) IsResponse() bool {
	return v&0x80 != 0
}

// ProtocolVersion strips the direction bit, yielding 1 or 2.
func (v Version) ProtocolVersion() int {
	return int(v &^ 0x80)
}

func (v Version) String() string {
	direction := "REQUEST"
	if v.IsResponse() {
		direction = "RESPONSE"
	}
	return fmt.Sprintf("v%d %s", v.ProtocolVersion(), direction)
}

// Flags is the header's flags bitfield.
type Flags uint8

const (
	FlagCompressed Flags = 0x01
	FlagTracing    Flags = 0x02
)

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}

func (f Flags) Add(flag Flags) Flags    { return f | flag }
func (f Flags) Remove(flag Flags) Flags { return f &^ flag }

// OpCode identifies the message kind carried by a frame body.
type OpCode uint8

const (
	OpCodeError        OpCode = 0x00
	OpCodeStartup      OpCode = 0x01
	OpCodeReady        OpCode = 0x02
	OpCodeAuthenticate OpCode = 0x03
	OpCodeCredentials  OpCode = 0x04
	OpCodeOptions      OpCode = 0x05
	OpCodeSupported    OpCode = 0x06
	OpCodeQuery        OpCode = 0x07
	OpCodeResult       OpCode = 0x08
	OpCodePrepare      OpCode = 0x09
	OpCodeExecute      OpCode = 0x0A
	OpCodeRegister     OpCode = 0x0B
	OpCodeEvent        OpCode = 0x0C
)

func (o OpCode) String() string {
	switch o {
	case OpCodeError:
		return "ERROR"
	case OpCodeStartup:
		return "STARTUP"
	case OpCodeReady:
		return "READY"
	case OpCodeAuthenticate:
		return "AUTHENTICATE"
	case OpCodeCredentials:
		return "CREDENTIALS"
	case OpCodeOptions:
		return "OPTIONS"
	case OpCodeSupported:
		return "SUPPORTED"
	case OpCodeQuery:
		return "QUERY"
	case OpCodeResult:
		return "RESULT"
	case OpCodePrepare:
		return "PREPARE"
	case OpCodeExecute:
		return "EXECUTE"
	case OpCodeRegister:
		return "REGISTER"
	case OpCodeEvent:
		return "EVENT"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(o))
	}
}

// HeaderLength is the fixed size, in bytes, of a v1/v2 frame header:
// version(1) + flags(1) + stream id(1) + opcode(1) + body length(4).
const HeaderLength = 8

// Header is the fixed-size prefix of every CQL message.
type Header struct {
	Version    Version
	Flags      Flags
	StreamID   int8
	OpCode     OpCode
	BodyLength int32
}

func (h Header) String() string {
	return fmt.Sprintf("{version: %v, flags: %08b, stream id: %v, opcode: %v, body length: %v}",
		h.Version, h.Flags, h.StreamID, h.OpCode, h.BodyLength)
}

// ErrIncomplete is returned by Parse when the source does not yet hold a
// complete frame. It is not a codec error: callers should simply buffer
// more bytes and retry.
var ErrIncomplete = errors.New("incomplete frame")

// Frame is a mutable byte buffer with an implicit read cursor at the front
// and an append point at the end: writes (Pack*) append, reads (Unpack*)
// consume from the front. It implements io.Reader and io.Writer so the
// wire package's primitives operate on it directly.
type Frame struct {
	buf *bytes.Buffer
}

// New returns an empty frame, ready for packing.
func New() *Frame {
	return &Frame{buf: new(bytes.Buffer)}
}

// NewWithBytes returns a frame whose body is a copy of b, read cursor at
// the front.
func NewWithBytes(b []byte) *Frame {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Frame{buf: bytes.NewBuffer(buf)}
}

func (f *Frame) Read(p []byte) (int, error)  { return f.buf.Read(p) }
func (f *Frame) Write(p []byte) (int, error) { return f.buf.Write(p) }

// Bytes returns the unconsumed remainder of the frame. The returned slice
// aliases the frame's internal storage and must be treated as read-only.
func (f *Frame) Bytes() []byte { return f.buf.Bytes() }

// Len reports the number of unconsumed bytes.
func (f *Frame) Len() int { return f.buf.Len() }

// Dump hex-dumps the unconsumed remainder, for debugging purposes.
func (f *Frame) Dump() string {
	return hex.Dump(f.buf.Bytes())
}

func (f *Frame) PackByte(b uint8) error             { return wire.WriteByte(b, f) }
func (f *Frame) UnpackByte() (uint8, error)         { return wire.ReadByte(f) }
func (f *Frame) PackShort(v uint16) error           { return wire.WriteShort(v, f) }
func (f *Frame) UnpackShort() (uint16, error)       { return wire.ReadShort(f) }
func (f *Frame) PackInt(v int32) error              { return wire.WriteInt(v, f) }
func (f *Frame) UnpackInt() (int32, error)          { return wire.ReadInt(f) }
func (f *Frame) PackLong(v int64) error             { return wire.WriteLong(v, f) }
func (f *Frame) UnpackLong() (int64, error)         { return wire.ReadLong(f) }
func (f *Frame) PackString(s string) error          { return wire.WriteString(s, f) }
func (f *Frame) UnpackString() (string, error)      { return wire.ReadString(f) }
func (f *Frame) PackLongString(s string) error      { return wire.WriteLongString(s, f) }
func (f *Frame) UnpackLongString() (string, error)  { return wire.ReadLongString(f) }
func (f *Frame) PackUUID(u wire.UUID) error         { return wire.WriteUUID(u, f) }
func (f *Frame) UnpackUUID() (wire.UUID, error)     { return wire.ReadUUID(f) }
func (f *Frame) PackStringList(l []string) error     { return wire.WriteStringList(l, f) }
func (f *Frame) UnpackStringList() ([]string, error) { return wire.ReadStringList(f) }
func (f *Frame) PackBytes(b []byte) error            { return wire.WriteBytes(b, f) }
func (f *Frame) UnpackBytes() ([]byte, error)        { return wire.ReadBytes(f) }
func (f *Frame) PackShortBytes(b []byte) error       { return wire.WriteShortBytes(b, f) }
func (f *Frame) UnpackShortBytes() ([]byte, error)   { return wire.ReadShortBytes(f) }
func (f *Frame) PackInet(i wire.Inet) error          { return wire.WriteInet(i, f) }
func (f *Frame) UnpackInet() (wire.Inet, error)      { return wire.ReadInet(f) }

func (f *Frame) PackStringMap(m map[string]string) error {
	return wire.WriteStringMap(m, f)
}

func (f *Frame) UnpackStringMap() (map[string]string, error) {
	return wire.ReadStringMap(f)
}

func (f *Frame) PackBytesMap(m map[string][]byte) error {
	return wire.WriteBytesMap(m, f)
}

func (f *Frame) UnpackBytesMap() (map[string][]byte, error) {
	return wire.ReadBytesMap(f)
}

// Build prepends an 8-byte header to body's current content and returns the
// complete encoded message. It does not mutate body.
func Build(version Version, flags Flags, streamID int8, opCode OpCode, body *Frame) []byte {
	bodyBytes := body.Bytes()
	out := make([]byte, HeaderLength+len(bodyBytes))
	out[0] = uint8(version)
	out[1] = uint8(flags)
	out[2] = uint8(streamID)
	out[3] = uint8(opCode)
	putUint32(out[4:8], uint32(len(bodyBytes)))
	copy(out[8:], bodyBytes)
	return out
}

// Parse reads one complete frame from the front of data. If data does not
// yet contain a full frame it returns ErrIncomplete; callers should buffer
// more bytes and retry. On success it returns the header, a Frame wrapping
// exactly body_length body bytes, and the bytes following the consumed
// frame.
func Parse(data []byte) (Header, *Frame, []byte, error) {
	if len(data) < HeaderLength {
		return Header{}, nil, data, ErrIncomplete
	}
	header := Header{
		Version:    Version(data[0]),
		Flags:      Flags(data[1]),
		StreamID:   int8(data[2]),
		OpCode:     OpCode(data[3]),
		BodyLength: int32(getUint32(data[4:8])),
	}
	if header.BodyLength < 0 {
		return Header{}, nil, data, fmt.Errorf("negative body length %d: %w", header.BodyLength, wire.ErrMalformed)
	}
	total := HeaderLength + int(header.BodyLength)
	if len(data) < total {
		return Header{}, nil, data, ErrIncomplete
	}
	body := NewWithBytes(data[HeaderLength:total])
	return header, body, data[total:], nil
}

// Recv blocks reading exactly one frame from source: 8 header bytes, then
// exactly body_length more. If source closes before a full frame arrives it
// returns the underlying error, typically wrapping io.ErrUnexpectedEOF.
func Recv(source io.Reader) (Header, *Frame, error) {
	var headerBytes [HeaderLength]byte
	if _, err := io.ReadFull(source, headerBytes[:]); err != nil {
		return Header{}, nil, fmt.Errorf("cannot read frame header: %w", err)
	}
	header := Header{
		Version:    Version(headerBytes[0]),
		Flags:      Flags(headerBytes[1]),
		StreamID:   int8(headerBytes[2]),
		OpCode:     OpCode(headerBytes[3]),
		BodyLength: int32(getUint32(headerBytes[4:8])),
	}
	if header.BodyLength < 0 {
		return Header{}, nil, fmt.Errorf("negative body length %d: %w", header.BodyLength, wire.ErrMalformed)
	}
	bodyBytes := make([]byte, header.BodyLength)
	if _, err := io.ReadFull(source, bodyBytes); err != nil {
		return Header{}, nil, fmt.Errorf("cannot read frame body: %w", err)
	}
	return header, NewWithBytes(bodyBytes), nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
