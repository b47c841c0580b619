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

package metadata

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cql-codec/cqlwire/cqltype"
	"github.com/cql-codec/cqlwire/wire"
)

func sampleColumns() []ColumnDescriptor {
	return []ColumnDescriptor{
		{Keyspace: "ks", Table: "users", Name: "id", Type: cqltype.Uuid},
		{Keyspace: "ks", Table: "users", Name: "name", Type: cqltype.Text},
		{Keyspace: "ks", Table: "users", Name: "age", Type: cqltype.Int},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := New(sampleColumns())
	buf := &bytes.Buffer{}
	require.NoError(t, m.Write(buf))

	decoded, err := Read(buf)
	require.NoError(t, err)
	assert.Len(t, decoded.Columns(), 3)
	name, err := decoded.ColumnName(1)
	require.NoError(t, err)
	assert.Equal(t, "ks.users.name", name)
}

func TestShortNameUniqueAcrossColumns(t *testing.T) {
	m := New(sampleColumns())
	shortName, err := m.ColumnShortName(0)
	require.NoError(t, err)
	assert.Equal(t, "id", shortName)
}

func TestShortNameFallsBackWhenNameIsAmbiguous(t *testing.T) {
	columns := []ColumnDescriptor{
		{Keyspace: "ks", Table: "users", Name: "id", Type: cqltype.Uuid},
		{Keyspace: "ks", Table: "accounts", Name: "id", Type: cqltype.Uuid},
	}
	m := New(columns)
	first, err := m.ColumnShortName(0)
	require.NoError(t, err)
	second, err := m.ColumnShortName(1)
	require.NoError(t, err)
	assert.Equal(t, "users.id", first)
	assert.Equal(t, "accounts.id", second)
}

func TestShortNameFallsBackToFullNameWhenTableQualifiedIsAlsoAmbiguous(t *testing.T) {
	columns := []ColumnDescriptor{
		{Keyspace: "ks1", Table: "users", Name: "id", Type: cqltype.Uuid},
		{Keyspace: "ks2", Table: "users", Name: "id", Type: cqltype.Uuid},
	}
	m := New(columns)
	first, err := m.ColumnShortName(0)
	require.NoError(t, err)
	assert.Equal(t, "ks1.users.id", first)
}

func TestFindColumnResolvesShortAndFullNames(t *testing.T) {
	m := New(sampleColumns())
	idx, err := m.FindColumn("name")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = m.FindColumn("ks.users.age")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = m.FindColumn("nonexistent")
	assert.ErrorIs(t, err, wire.ErrNoSuchColumn)
}

func TestFindColumnResolvesTableQualifiedFormEvenWhenBareNameIsTheShortName(t *testing.T) {
	// "id" is globally unique so it becomes the short name, but
	// "users.id" is also independently unique and must stay reachable.
	m := New(sampleColumns())
	idx, err := m.FindColumn("users.id")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestFindColumnReachesAllUniqueFormsOfAnAmbiguousBareName(t *testing.T) {
	columns := []ColumnDescriptor{
		{Keyspace: "ks", Table: "users", Name: "id", Type: cqltype.Uuid},
		{Keyspace: "ks", Table: "accounts", Name: "id", Type: cqltype.Uuid},
	}
	m := New(columns)
	idx, err := m.FindColumn("users.id")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	idx, err = m.FindColumn("accounts.id")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	_, err = m.FindColumn("id")
	assert.ErrorIs(t, err, wire.ErrNoSuchColumn)
}

func TestEncodeDataDecodeDataRoundTrip(t *testing.T) {
	m := New(sampleColumns())
	encoded, err := m.EncodeData(newUUID(), "alice", int32(30))
	require.NoError(t, err)
	require.Len(t, encoded, 3)

	decoded, err := m.DecodeData(encoded...)
	require.NoError(t, err)
	assert.Equal(t, "alice", decoded[1])
	assert.Equal(t, int32(30), decoded[2])
}

func TestEncodeDataEncodesAbsentValueAsNil(t *testing.T) {
	m := New(sampleColumns())
	encoded, err := m.EncodeData(newUUID(), nil, int32(30))
	require.NoError(t, err)
	assert.Nil(t, encoded[1])
}

func TestEncodeDataArityMismatch(t *testing.T) {
	m := New(sampleColumns())
	_, err := m.EncodeData(newUUID(), "alice")
	assert.ErrorIs(t, err, wire.ErrArityMismatch)
}

func TestEncodeDataRejectsInvalidValue(t *testing.T) {
	m := New(sampleColumns())
	_, err := m.EncodeData(newUUID(), "alice", "not-an-int")
	assert.ErrorIs(t, err, wire.ErrEncode)
}

func newUUID() wire.UUID {
	var u wire.UUID
	u[0] = 0x01
	return u
}

func TestGlobalTableSpecCompactionRoundTrips(t *testing.T) {
	m := New(sampleColumns()) // all columns share ks.users, so Write sets FlagGlobalTableSpec
	buf := &bytes.Buffer{}
	require.NoError(t, m.Write(buf))

	decoded, err := Read(buf)
	require.NoError(t, err)
	for i := range decoded.Columns() {
		name, err := decoded.ColumnName(i)
		require.NoError(t, err)
		assert.Contains(t, name, "ks.users.")
	}
}

func TestNoMetadataFlagSkipsColumns(t *testing.T) {
	m := &Metadata{}
	buf := &bytes.Buffer{}
	require.NoError(t, m.Write(buf))

	decoded, err := Read(buf)
	require.NoError(t, err)
	assert.Empty(t, decoded.Columns())
}

func TestPagingStateRoundTrip(t *testing.T) {
	m := New(sampleColumns())
	m.hasMore = true
	m.pagingState = []byte{0x01, 0x02, 0x03}
	buf := &bytes.Buffer{}
	require.NoError(t, m.Write(buf))

	decoded, err := Read(buf)
	require.NoError(t, err)
	state, hasMore := decoded.PagingState()
	assert.True(t, hasMore)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, state)
}
