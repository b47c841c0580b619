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

// Package result holds decoded RESULT Rows payloads: the column metadata
// plus the row data, with accessors that view the same rows as arrays,
// name-keyed hashes, or maps keyed by one of the result's own columns.
package result

import (
	"fmt"
	"io"

	"github.com/cql-codec/cqlwire/cqltype"
	"github.com/cql-codec/cqlwire/metadata"
	"github.com/cql-codec/cqlwire/wire"
)

// Row is one decoded result row: column values, already decoded through
// the metadata's type registry, in metadata column order. A nil element is
// an absent (CQL NULL) value.
type Row []interface{}

// Result is a decoded RESULT Rows payload. It holds a pointer to its
// metadata rather than embedding it, and forwards the metadata accessors below
// explicitly: Result IS-NOT-A Metadata, it HAS one.
type Result struct {
	meta *metadata.Metadata
	rows []Row
}

// ColumnName forwards to the underlying metadata.
func (r *Result) ColumnName(i int) (string, error) { return r.meta.ColumnName(i) }

// ColumnShortName forwards to the underlying metadata.
func (r *Result) ColumnShortName(i int) (string, error) { return r.meta.ColumnShortName(i) }

// ColumnType forwards to the underlying metadata.
func (r *Result) ColumnType(i int) (cqltype.Type, error) {
	return r.meta.ColumnType(i)
}

// FindColumn forwards to the underlying metadata.
func (r *Result) FindColumn(name string) (int, error) { return r.meta.FindColumn(name) }

// Columns forwards to the underlying metadata.
func (r *Result) Columns() []metadata.ColumnDescriptor { return r.meta.Columns() }

// PagingState forwards to the underlying metadata.
func (r *Result) PagingState() ([]byte, bool) { return r.meta.PagingState() }

// Rows returns the row count.
func (r *Result) Rows() int { return len(r.rows) }

// RowArray returns row i as decoded column values in metadata column
// order.
func (r *Result) RowArray(i int) (Row, error) {
	if i < 0 || i >= len(r.rows) {
		return nil, fmt.Errorf("row index %d out of range [0,%d): %w", i, len(r.rows), wire.ErrNoSuchRow)
	}
	return r.rows[i], nil
}

// RowHash returns row i as a map keyed by each column's short name.
func (r *Result) RowHash(i int) (map[string]interface{}, error) {
	row, err := r.RowArray(i)
	if err != nil {
		return nil, err
	}
	hash := make(map[string]interface{}, len(row))
	for col := range row {
		name, err := r.meta.ColumnShortName(col)
		if err != nil {
			return nil, err
		}
		hash[name] = row[col]
	}
	return hash, nil
}

// RowsArray returns every row as decoded column values.
func (r *Result) RowsArray() []Row {
	return r.rows
}

// RowsHash returns every row as a short-name-keyed map.
func (r *Result) RowsHash() ([]map[string]interface{}, error) {
	hashes := make([]map[string]interface{}, len(r.rows))
	for i := range r.rows {
		hash, err := r.RowHash(i)
		if err != nil {
			return nil, fmt.Errorf("cannot hash row %d: %w", i, err)
		}
		hashes[i] = hash
	}
	return hashes, nil
}

// RowMapArray indexes every row by the decoded value of column keyIndex,
// rendered as a string with fmt.Sprint, returning each row's full array
// (key column included). If two rows share the same key value, the later
// row (by row index) wins.
func (r *Result) RowMapArray(keyIndex int) (map[string]Row, error) {
	result := make(map[string]Row, len(r.rows))
	for i, row := range r.rows {
		if keyIndex < 0 || keyIndex >= len(row) {
			return nil, fmt.Errorf("row %d: key column index %d out of range: %w", i, keyIndex, wire.ErrNoSuchColumn)
		}
		result[fmt.Sprint(row[keyIndex])] = row
	}
	return result, nil
}

// RowMapHash indexes every row by the decoded value of keyName (any
// installed form), rendered as a string with fmt.Sprint, returning each
// row's full short-name-keyed hash (key column included).
// Later rows win on duplicate key values, same as RowMapArray.
func (r *Result) RowMapHash(keyName string) (map[string]map[string]interface{}, error) {
	keyIndex, err := r.meta.FindColumn(keyName)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve key column %q: %w", keyName, err)
	}
	result := make(map[string]map[string]interface{}, len(r.rows))
	for i := range r.rows {
		hash, err := r.RowHash(i)
		if err != nil {
			return nil, err
		}
		result[fmt.Sprint(r.rows[i][keyIndex])] = hash
	}
	return result, nil
}

// New constructs a Result synthetically from metadata and fully-formed
// rows, validating each row's values against its declared column types
// before insertion. An invalid row raises an error identifying the row
// index and the offending column's short name.
func New(meta *metadata.Metadata, rows []map[string]interface{}) (*Result, error) {
	columns := meta.Columns()
	builtRows := make([]Row, len(rows))
	for rowIndex, values := range rows {
		row := make(Row, len(columns))
		for colIndex, col := range columns {
			shortName, err := meta.ColumnShortName(colIndex)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowIndex, err)
			}
			value, present := values[shortName]
			if !present || value == nil {
				row[colIndex] = nil
				continue
			}
			if err := col.Type.Validate(value); err != nil {
				return nil, fmt.Errorf("row %d: column %q: %w: %v", rowIndex, shortName, wire.ErrRowValidation, err)
			}
			row[colIndex] = value
		}
		builtRows[rowIndex] = row
	}
	return &Result{meta: meta, rows: builtRows}, nil
}

// Read decodes a full RESULT Rows payload from source: the column
// metadata block, the row count, and then that many rows of [bytes]
// column values, each row immediately decoded through the metadata's
// DecodeData.
func Read(source io.Reader) (*Result, error) {
	meta, err := metadata.Read(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read result metadata: %w", err)
	}
	rowCount, err := wire.ReadInt(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read result row count: %w", err)
	}
	columnCount := len(meta.Columns())
	rows := make([]Row, rowCount)
	for i := 0; i < int(rowCount); i++ {
		blobs := make([][]byte, columnCount)
		for col := 0; col < columnCount; col++ {
			value, err := wire.ReadBytes(source)
			if err != nil {
				return nil, fmt.Errorf("cannot read result row %d column %d: %w", i, col, err)
			}
			blobs[col] = value
		}
		decoded, err := meta.DecodeData(blobs...)
		if err != nil {
			return nil, fmt.Errorf("cannot decode result row %d: %w", i, err)
		}
		rows[i] = decoded
	}
	return &Result{meta: meta, rows: rows}, nil
}

// Write encodes r back to the RESULT Rows wire format, re-encoding each
// row through the metadata's EncodeData.
func (r *Result) Write(dest io.Writer) error {
	if err := r.meta.Write(dest); err != nil {
		return fmt.Errorf("cannot write result metadata: %w", err)
	}
	if err := wire.WriteInt(int32(len(r.rows)), dest); err != nil {
		return fmt.Errorf("cannot write result row count: %w", err)
	}
	for i, row := range r.rows {
		encoded, err := r.meta.EncodeData(row...)
		if err != nil {
			return fmt.Errorf("cannot encode result row %d: %w", i, err)
		}
		for col, value := range encoded {
			if err := wire.WriteBytes(value, dest); err != nil {
				return fmt.Errorf("cannot write result row %d column %d: %w", i, col, err)
			}
		}
	}
	return nil
}
