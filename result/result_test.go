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

package result

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cql-codec/cqlwire/cqltype"
	"github.com/cql-codec/cqlwire/metadata"
	"github.com/cql-codec/cqlwire/wire"
)

func sampleMetadata() *metadata.Metadata {
	return metadata.New([]metadata.ColumnDescriptor{
		{Keyspace: "ks", Table: "users", Name: "id", Type: cqltype.Int},
		{Keyspace: "ks", Table: "users", Name: "name", Type: cqltype.Text},
	})
}

func TestNewValidatesAndStoresRows(t *testing.T) {
	r, err := New(sampleMetadata(), []map[string]interface{}{
		{"id": int32(1), "name": "alice"},
		{"id": int32(2), "name": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Rows())

	row0, err := r.RowArray(0)
	require.NoError(t, err)
	assert.Equal(t, "alice", row0[1])

	row1, err := r.RowArray(1)
	require.NoError(t, err)
	assert.Nil(t, row1[1])
}

func TestNewRejectsInvalidColumnValue(t *testing.T) {
	_, err := New(sampleMetadata(), []map[string]interface{}{
		{"id": "not-an-int", "name": "alice"},
	})
	assert.ErrorIs(t, err, wire.ErrRowValidation)
}

func TestWriteReadRoundTrip(t *testing.T) {
	r, err := New(sampleMetadata(), []map[string]interface{}{
		{"id": int32(7), "name": "bob"},
	})
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, r.Write(buf))

	decoded, err := Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Rows())
	hash, err := decoded.RowHash(0)
	require.NoError(t, err)
	assert.Equal(t, int32(7), hash["id"])
}

func TestRowMapHashLastWriterWins(t *testing.T) {
	r, err := New(sampleMetadata(), []map[string]interface{}{
		{"id": int32(1), "name": "first"},
		{"id": int32(1), "name": "second"},
	})
	require.NoError(t, err)

	m, err := r.RowMapHash("id")
	require.NoError(t, err)
	assert.Equal(t, "second", m[fmt.Sprint(int32(1))]["name"])
}

func TestRowMapArrayLastWriterWins(t *testing.T) {
	r, err := New(sampleMetadata(), []map[string]interface{}{
		{"id": int32(9), "name": "first"},
		{"id": int32(9), "name": "second"},
	})
	require.NoError(t, err)

	m, err := r.RowMapArray(0)
	require.NoError(t, err)
	row := m[fmt.Sprint(int32(9))]
	assert.Equal(t, "second", row[1])
}

func TestRowsHashAllRows(t *testing.T) {
	r, err := New(sampleMetadata(), []map[string]interface{}{
		{"id": int32(1), "name": "a"},
		{"id": int32(2), "name": "b"},
	})
	require.NoError(t, err)
	hashes, err := r.RowsHash()
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
}

func TestForwardingAccessorsDoNotEmbedMetadata(t *testing.T) {
	r, err := New(sampleMetadata(), nil)
	require.NoError(t, err)
	name, err := r.ColumnName(0)
	require.NoError(t, err)
	assert.Equal(t, "ks.users.id", name)
	idx, err := r.FindColumn("name")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestRowArrayOutOfRangeIsNoSuchRow(t *testing.T) {
	r, err := New(sampleMetadata(), nil)
	require.NoError(t, err)
	_, err = r.RowArray(0)
	assert.ErrorIs(t, err, wire.ErrNoSuchRow)
}
