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

// Package metadata decodes and holds the column metadata that accompanies
// CQL v1/v2 RESULT Rows and PreparedResult messages: keyspace, table and
// column names, their CQL types, and the short-name resolution used to
// address a column unambiguously without always spelling out its full
// keyspace.table.name path.
package metadata

import (
	"fmt"
	"io"

	"github.com/cql-codec/cqlwire/cqltype"
	"github.com/cql-codec/cqlwire/wire"
)

// Flags bits of the RESULT Rows metadata flags word, v1/v2 subset.
const (
	FlagGlobalTableSpec uint32 = 0x0001
	FlagHasMorePages    uint32 = 0x0002
	FlagNoMetadata      uint32 = 0x0004
)

// ColumnDescriptor is one column's schema: where it comes from and what
// CQL type its values carry.
type ColumnDescriptor struct {
	Keyspace string
	Table    string
	Name     string
	Type     cqltype.Type
}

// Metadata is the decoded column metadata for a result set or a prepared
// statement's bound variables. A Result never embeds Metadata: it holds
// a pointer to one and forwards the accessors below, so that the metadata's
// own API surface stays the single source of truth.
type Metadata struct {
	columns     []ColumnDescriptor
	lookup      map[string]int // every name form that is unique, installed as a lookup key
	shortNames  []string       // precomputed per-column short name
	pagingState []byte
	hasMore     bool
}

// New builds metadata synthetically from a column descriptor list, for
// code that constructs results without ever touching the wire.
func New(columns []ColumnDescriptor) *Metadata {
	m := &Metadata{columns: columns}
	m.buildIndex()
	return m
}

// Columns returns the column descriptors in wire/declaration order. The
// returned slice must be treated as read-only.
func (m *Metadata) Columns() []ColumnDescriptor {
	return m.columns
}

// ColumnName returns the full keyspace.table.name form of column i.
func (m *Metadata) ColumnName(i int) (string, error) {
	if i < 0 || i >= len(m.columns) {
		return "", fmt.Errorf("column index %d out of range [0,%d): %w", i, len(m.columns), wire.ErrNoSuchColumn)
	}
	return fullName(m.columns[i]), nil
}

// ColumnShortName returns the shortest name form that still resolves
// unambiguously to column i: Name if unique among all columns, otherwise
// Table.Name if that pair is unique, otherwise the full
// Keyspace.Table.Name.
func (m *Metadata) ColumnShortName(i int) (string, error) {
	if i < 0 || i >= len(m.columns) {
		return "", fmt.Errorf("column index %d out of range [0,%d): %w", i, len(m.columns), wire.ErrNoSuchColumn)
	}
	return m.shortNames[i], nil
}

// ColumnType returns the CQL type of column i.
func (m *Metadata) ColumnType(i int) (cqltype.Type, error) {
	if i < 0 || i >= len(m.columns) {
		return nil, fmt.Errorf("column index %d out of range [0,%d): %w", i, len(m.columns), wire.ErrNoSuchColumn)
	}
	return m.columns[i].Type, nil
}

// FindColumn resolves name to its column index. name may be any of the
// three forms (bare, table-qualified, fully qualified) that were installed
// as unique lookup keys when the metadata was built; it returns
// ErrNoSuchColumn if name matches none of them.
func (m *Metadata) FindColumn(name string) (int, error) {
	if idx, ok := m.lookup[name]; ok {
		return idx, nil
	}
	return -1, fmt.Errorf("column %q: %w", name, wire.ErrNoSuchColumn)
}

// EncodeData validates and encodes values against this metadata's columns,
// in column order: it fails with ErrArityMismatch if len(values) does not
// match Columns(), and with ErrEncode, naming the offending column's short
// name, if a value fails its column type's validation. A nil value encodes
// to the absent marker (a nil result element).
func (m *Metadata) EncodeData(values ...interface{}) ([][]byte, error) {
	if len(values) != len(m.columns) {
		return nil, fmt.Errorf("expected %d values, got %d: %w", len(m.columns), len(values), wire.ErrArityMismatch)
	}
	encoded := make([][]byte, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		b, err := m.columns[i].Type.Encode(value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w: %v", m.shortNames[i], wire.ErrEncode, err)
		}
		encoded[i] = b
	}
	return encoded, nil
}

// DecodeData decodes blobs against this metadata's columns, in column
// order: it fails with ErrArityMismatch if len(blobs) does not match
// Columns(). A nil blob (the absent marker) decodes to nil.
func (m *Metadata) DecodeData(blobs ...[]byte) ([]interface{}, error) {
	if len(blobs) != len(m.columns) {
		return nil, fmt.Errorf("expected %d values, got %d: %w", len(m.columns), len(blobs), wire.ErrArityMismatch)
	}
	decoded := make([]interface{}, len(blobs))
	for i, b := range blobs {
		if b == nil {
			continue
		}
		v, err := m.columns[i].Type.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", m.shortNames[i], err)
		}
		decoded[i] = v
	}
	return decoded, nil
}

// PagingState returns the opaque paging token, and whether the flag that
// introduces it (HAS_MORE_PAGES) was set at all: a nil, non-present
// PagingState means there is no further page; a non-nil but empty one is
// a present, empty, token.
func (m *Metadata) PagingState() ([]byte, bool) {
	return m.pagingState, m.hasMore
}

// buildIndex computes each column's short name and installs every unique
// name form (bare, table-qualified, fully qualified) as a lookup key, per
// the short-name resolution rule: the shortest unique form becomes the
// short name, but all three forms that are unique stay reachable through
// FindColumn.
func (m *Metadata) buildIndex() {
	m.lookup = make(map[string]int, len(m.columns)*3)
	m.shortNames = make([]string, len(m.columns))
	for i, col := range m.columns {
		full := fullName(col)
		m.lookup[full] = i

		nameUnique := countByName(m.columns, col.Name) == 1
		tableQualified := col.Table + "." + col.Name
		tableNameUnique := countByTableName(m.columns, col.Table, col.Name) == 1

		if nameUnique {
			m.lookup[col.Name] = i
		}
		if tableNameUnique {
			m.lookup[tableQualified] = i
		}
		switch {
		case nameUnique:
			m.shortNames[i] = col.Name
		case tableNameUnique:
			m.shortNames[i] = tableQualified
		default:
			m.shortNames[i] = full
		}
	}
}

func fullName(col ColumnDescriptor) string {
	return col.Keyspace + "." + col.Table + "." + col.Name
}

func countByName(columns []ColumnDescriptor, name string) int {
	n := 0
	for _, col := range columns {
		if col.Name == name {
			n++
		}
	}
	return n
}

func countByTableName(columns []ColumnDescriptor, table, name string) int {
	n := 0
	for _, col := range columns {
		if col.Table == table && col.Name == name {
			n++
		}
	}
	return n
}

// Read decodes a RESULT Rows or PreparedResult metadata block from source:
// the flags word, column count, conditional paging state, and the column
// descriptor list itself (with the v2 global-table-spec compaction, where
// keyspace/table are written once and shared by every column).
func Read(source io.Reader) (*Metadata, error) {
	flags, err := wire.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read metadata flags: %w", err)
	}
	columnCount, err := wire.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read metadata column count: %w", err)
	}
	m := &Metadata{}
	if uint32(flags)&FlagHasMorePages != 0 {
		m.hasMore = true
		if m.pagingState, err = wire.ReadBytes(source); err != nil {
			return nil, fmt.Errorf("cannot read metadata paging state: %w", err)
		}
	}
	if uint32(flags)&FlagNoMetadata != 0 {
		m.buildIndex()
		return m, nil
	}
	globalTableSpec := uint32(flags)&FlagGlobalTableSpec != 0
	columns, err := readColumns(source, globalTableSpec, int(columnCount))
	if err != nil {
		return nil, fmt.Errorf("cannot read metadata columns: %w", err)
	}
	m.columns = columns
	m.buildIndex()
	return m, nil
}

// Write encodes m back to the RESULT Rows/PreparedResult metadata wire
// format.
func (m *Metadata) Write(dest io.Writer) error {
	var flags uint32
	if len(m.columns) == 0 {
		flags |= FlagNoMetadata
	} else if haveSameTable(m.columns) {
		flags |= FlagGlobalTableSpec
	}
	if m.hasMore {
		flags |= FlagHasMorePages
	}
	if err := wire.WriteInt(int32(flags), dest); err != nil {
		return fmt.Errorf("cannot write metadata flags: %w", err)
	}
	if err := wire.WriteInt(int32(len(m.columns)), dest); err != nil {
		return fmt.Errorf("cannot write metadata column count: %w", err)
	}
	if m.hasMore {
		if err := wire.WriteBytes(m.pagingState, dest); err != nil {
			return fmt.Errorf("cannot write metadata paging state: %w", err)
		}
	}
	if flags&FlagNoMetadata != 0 {
		return nil
	}
	globalTableSpec := flags&FlagGlobalTableSpec != 0
	return writeColumns(dest, globalTableSpec, m.columns)
}

func readColumns(source io.Reader, globalTableSpec bool, count int) ([]ColumnDescriptor, error) {
	var globalKeyspace, globalTable string
	var err error
	if globalTableSpec {
		if globalKeyspace, err = wire.ReadString(source); err != nil {
			return nil, fmt.Errorf("cannot read global keyspace: %w", err)
		}
		if globalTable, err = wire.ReadString(source); err != nil {
			return nil, fmt.Errorf("cannot read global table: %w", err)
		}
	}
	columns := make([]ColumnDescriptor, count)
	for i := 0; i < count; i++ {
		col := ColumnDescriptor{Keyspace: globalKeyspace, Table: globalTable}
		if !globalTableSpec {
			if col.Keyspace, err = wire.ReadString(source); err != nil {
				return nil, fmt.Errorf("cannot read column %d keyspace: %w", i, err)
			}
			if col.Table, err = wire.ReadString(source); err != nil {
				return nil, fmt.Errorf("cannot read column %d table: %w", i, err)
			}
		}
		if col.Name, err = wire.ReadString(source); err != nil {
			return nil, fmt.Errorf("cannot read column %d name: %w", i, err)
		}
		if col.Type, err = cqltype.ReadType(source); err != nil {
			return nil, fmt.Errorf("cannot read column %d type: %w", i, err)
		}
		columns[i] = col
	}
	return columns, nil
}

func writeColumns(dest io.Writer, globalTableSpec bool, columns []ColumnDescriptor) error {
	if globalTableSpec && len(columns) > 0 {
		if err := wire.WriteString(columns[0].Keyspace, dest); err != nil {
			return fmt.Errorf("cannot write global keyspace: %w", err)
		}
		if err := wire.WriteString(columns[0].Table, dest); err != nil {
			return fmt.Errorf("cannot write global table: %w", err)
		}
	}
	for i, col := range columns {
		if !globalTableSpec {
			if err := wire.WriteString(col.Keyspace, dest); err != nil {
				return fmt.Errorf("cannot write column %d keyspace: %w", i, err)
			}
			if err := wire.WriteString(col.Table, dest); err != nil {
				return fmt.Errorf("cannot write column %d table: %w", i, err)
			}
		}
		if err := wire.WriteString(col.Name, dest); err != nil {
			return fmt.Errorf("cannot write column %d name: %w", i, err)
		}
		if err := cqltype.WriteType(col.Type, dest); err != nil {
			return fmt.Errorf("cannot write column %d type: %w", i, err)
		}
	}
	return nil
}

func haveSameTable(columns []ColumnDescriptor) bool {
	if len(columns) == 0 {
		return false
	}
	first := columns[0]
	for _, col := range columns[1:] {
		if col.Keyspace != first.Keyspace || col.Table != first.Table {
			return false
		}
	}
	return true
}
