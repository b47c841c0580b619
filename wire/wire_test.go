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
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteShort(0x1234, buf))
	assert.Equal(t, []byte{0x12, 0x34}, buf.Bytes())
	actual, err := ReadShort(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), actual)
}

func TestIntNegativeScenario(t *testing.T) {
	// spec.md §8 scenario 2
	buf := &bytes.Buffer{}
	require.NoError(t, WriteInt(0x12345678, buf))
	require.NoError(t, WriteInt(-100, buf))
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78, 0xff, 0xff, 0xff, 0x9c}, buf.Bytes())

	first, err := ReadInt(buf)
	require.NoError(t, err)
	assert.Equal(t, int32(0x12345678), first)
	second, err := ReadInt(buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-100), second)
}

func TestIntBoundaries(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteInt(1<<31-1, buf))
	require.NoError(t, WriteInt(-1<<31, buf))
	max, err := ReadInt(buf)
	require.NoError(t, err)
	assert.Equal(t, int32(1<<31-1), max)
	min, err := ReadInt(buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-1<<31), min)
}

func TestLongBeyond32Bits(t *testing.T) {
	buf := &bytes.Buffer{}
	value := int64(1) << 40
	require.NoError(t, WriteLong(value, buf))
	actual, err := ReadLong(buf)
	require.NoError(t, err)
	assert.Equal(t, value, actual)
}

func TestReadShortBufferErrors(t *testing.T) {
	_, err := ReadShort(bytes.NewBuffer([]byte{0x01}))
	assert.ErrorIs(t, err, ErrShortBuffer)
	_, err = ReadInt(bytes.NewBuffer([]byte{}))
	assert.ErrorIs(t, err, ErrShortBuffer)
	_, err = ReadLong(bytes.NewBuffer([]byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestStringRoundTrip(t *testing.T) {
	// spec.md §8 scenario 3
	buf := &bytes.Buffer{}
	require.NoError(t, WriteString("sandviĉon", buf))
	assert.Equal(t, []byte{0x00, 0x0a, 0x73, 0x61, 0x6e, 0x64, 0x76, 0x69, 0xc4, 0x89, 0x6f, 0x6e}, buf.Bytes())
	actual, err := ReadString(buf)
	require.NoError(t, err)
	assert.Equal(t, "sandviĉon", actual)
}

func TestStringInvalidUTF8(t *testing.T) {
	err := WriteString(string([]byte{0xff, 0xfe}), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLongStringRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	long := make([]byte, 70000)
	for i := range long {
		long[i] = 'a'
	}
	require.NoError(t, WriteLongString(string(long), buf))
	actual, err := ReadLongString(buf)
	require.NoError(t, err)
	assert.Equal(t, string(long), actual)
}

func TestBytesAbsentScenario(t *testing.T) {
	// spec.md §8 scenario 4
	buf := &bytes.Buffer{}
	require.NoError(t, WriteBytes([]byte("abcd"), buf))
	require.NoError(t, WriteBytes(nil, buf))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x04, 0x61, 0x62, 0x63, 0x64, 0xff, 0xff, 0xff, 0xff}, buf.Bytes())

	first, err := ReadBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), first)
	second, err := ReadBytes(buf)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestBytesPresentEmptyIsNotAbsent(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteBytes([]byte{}, buf))
	decoded, err := ReadBytes(buf)
	require.NoError(t, err)
	assert.NotNil(t, decoded)
	assert.Len(t, decoded, 0)
}

func TestShortBytesRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteShortBytes([]byte{1, 2, 3}, buf))
	actual, err := ReadShortBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, actual)
}

func TestUUIDRoundTripAndCanonicalForm(t *testing.T) {
	var u UUID
	for i := range u {
		u[i] = byte(i)
	}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteUUID(u, buf))
	decoded, err := ReadUUID(buf)
	require.NoError(t, err)
	assert.Equal(t, u, decoded)
	assert.Equal(t, "00010203-0405-0607-0809-0a0b0c0d0e0f", decoded.String())
}

func TestStringListRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteStringList([]string{"a", "bb", "ccc"}, buf))
	actual, err := ReadStringList(buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "bb", "ccc"}, actual)
}

func TestStringMapDeterministicEncoding(t *testing.T) {
	m := map[string]string{"CQL_VERSION": "3.0.5", "COMPRESSION": "lz4", "ALPHA": "1"}
	first := &bytes.Buffer{}
	second := &bytes.Buffer{}
	require.NoError(t, WriteStringMap(m, first))
	require.NoError(t, WriteStringMap(m, second))
	assert.Equal(t, first.Bytes(), second.Bytes())

	decoded, err := ReadStringMap(bytes.NewBuffer(first.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestInetAddrRejectsBadLength(t *testing.T) {
	buf := bytes.NewBuffer([]byte{5, 1, 2, 3, 4, 5})
	_, err := ReadInetAddr(buf)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestInetRoundTripIPv4AndIPv6(t *testing.T) {
	for _, addr := range []net.IP{net.IPv4(192, 168, 1, 1), net.ParseIP("2001:db8::1")} {
		buf := &bytes.Buffer{}
		in := Inet{Addr: addr, Port: 9042}
		require.NoError(t, WriteInet(in, buf))
		out, err := ReadInet(buf)
		require.NoError(t, err)
		assert.True(t, in.Addr.Equal(out.Addr))
		assert.Equal(t, in.Port, out.Port)
	}
}

func TestBytesMapRoundTrip(t *testing.T) {
	m := map[string][]byte{"hello": {0xca, 0xfe}, "world": {0xba, 0xbe}}
	buf := &bytes.Buffer{}
	require.NoError(t, WriteBytesMap(m, buf))
	decoded, err := ReadBytesMap(buf)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}
