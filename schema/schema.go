// Copyright 2025 The Rowiter Authors
// This file is part of Rowiter.
//
// Rowiter is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Rowiter is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Rowiter. If not, see <http://www.gnu.org/licenses/>.

// Package schema holds the table/projection contract (spec §6, "Schema
// contract") consumed by the document walker and row assembler: column
// count, column id by index, column type by id, key-column count, and
// primary-key decoding from document-key bytes.
package schema

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowkey"
	"github.com/opendocdb/rowiter/rowvalue"
)

// Column describes one column of a table.
type Column struct {
	ID   uint32
	Name string
	Type rowvalue.ColumnType
	// KeyIndex is this column's 0-based position among the table's key
	// columns, or -1 if it is not a key column.
	KeyIndex int
}

// Schema describes one table: its full column set and which leading
// positions of the document key are primary-key columns.
type Schema struct {
	Name       string
	columns    []Column
	byID       map[uint32]Column
	byName     map[string]Column
	keyColumns []Column // ordered by KeyIndex
}

// New validates and builds a Schema. Key columns must have KeyIndex
// 0..n-1 with no gaps or duplicates; they need not be contiguous in
// Columns.
func New(name string, columns []Column) (*Schema, error) {
	byID := make(map[uint32]Column, len(columns))
	byName := make(map[string]Column, len(columns))
	var keyColumns []Column
	for _, c := range columns {
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("schema %s: duplicate column id %d", name, c.ID)
		}
		byID[c.ID] = c
		byName[c.Name] = c
		if c.KeyIndex >= 0 {
			keyColumns = append(keyColumns, c)
		}
	}
	if keyColumns != nil {
		ordered := make([]Column, len(keyColumns))
		seen := make([]bool, len(keyColumns))
		for _, c := range keyColumns {
			if c.KeyIndex < 0 || c.KeyIndex >= len(keyColumns) {
				return nil, fmt.Errorf("schema %s: key column %s has out-of-range KeyIndex %d", name, c.Name, c.KeyIndex)
			}
			if seen[c.KeyIndex] {
				return nil, fmt.Errorf("schema %s: duplicate KeyIndex %d", name, c.KeyIndex)
			}
			seen[c.KeyIndex] = true
			ordered[c.KeyIndex] = c
		}
		keyColumns = ordered
	}
	return &Schema{Name: name, columns: columns, byID: byID, byName: byName, keyColumns: keyColumns}, nil
}

// ColumnByID looks up a column's declaration.
func (s *Schema) ColumnByID(id uint32) (Column, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// ColumnByName looks up a column's declaration by name.
func (s *Schema) ColumnByName(name string) (Column, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// NumColumns returns the table's total column count.
func (s *Schema) NumColumns() int { return len(s.columns) }

// NumKeyColumns returns the number of primary-key columns.
func (s *Schema) NumKeyColumns() int { return len(s.keyColumns) }

// KeyColumns returns the key columns in key-index order.
func (s *Schema) KeyColumns() []Column { return s.keyColumns }

// DecodePrimaryKey parses the document-key bytes into a value per key
// column, in key-index order. The encoding is a plain concatenation of
// per-column order-preserving segments: fixed-width for Int/Bool, and
// length-terminated escaped bytes (rowkey.EncodeEscapedField) for
// Bytes/String. Int key columns must be representable as a non-negative
// uint64 for the fixed-width big-endian encoding to order correctly;
// Float key columns are not supported (no component of SPEC_FULL needs
// them, and a bare big-endian float encoding does not order correctly
// for negative values without an additional sign-flip step this module
// does not implement).
func (s *Schema) DecodePrimaryKey(docKey []byte) ([]rowvalue.Primitive, error) {
	out := make([]rowvalue.Primitive, len(s.keyColumns))
	rest := docKey
	for i, col := range s.keyColumns {
		switch col.Type {
		case rowvalue.TypeInt:
			if len(rest) < 8 {
				return nil, &kv.FormatError{What: "key", Raw: docKey, Err: fmt.Errorf("truncated int key column %s", col.Name)}
			}
			out[i] = rowvalue.Primitive{Type: rowvalue.TypeInt, Int: uint256.NewInt(binary.BigEndian.Uint64(rest[:8]))}
			rest = rest[8:]
		case rowvalue.TypeBool:
			if len(rest) < 1 {
				return nil, &kv.FormatError{What: "key", Raw: docKey, Err: fmt.Errorf("truncated bool key column %s", col.Name)}
			}
			out[i] = rowvalue.Primitive{Type: rowvalue.TypeBool, Bool: rest[0] != 0}
			rest = rest[1:]
		case rowvalue.TypeBytes, rowvalue.TypeString:
			field, n, err := rowkey.DecodeEscapedField(rest)
			if err != nil {
				return nil, &kv.FormatError{What: "key", Raw: docKey, Err: fmt.Errorf("key column %s: %w", col.Name, err)}
			}
			out[i] = rowvalue.Primitive{Type: col.Type, Bytes: field}
			rest = rest[n:]
		default:
			return nil, fmt.Errorf("schema %s: unsupported key column type %s for %s", s.Name, col.Type, col.Name)
		}
	}
	return out, nil
}

// EncodePrimaryKey is the inverse of DecodePrimaryKey: it builds the
// document-key bytes for a row given one value per key column, in
// key-index order. Used by writers (the demo CLI's fixture loader, and
// tests) rather than by the read path itself.
func (s *Schema) EncodePrimaryKey(values []rowvalue.Primitive) ([]byte, error) {
	if len(values) != len(s.keyColumns) {
		return nil, fmt.Errorf("schema %s: expected %d key values, got %d", s.Name, len(s.keyColumns), len(values))
	}
	var out []byte
	for i, col := range s.keyColumns {
		v := values[i]
		if v.Type != col.Type {
			return nil, fmt.Errorf("schema %s: key column %s expects %s, got %s", s.Name, col.Name, col.Type, v.Type)
		}
		switch col.Type {
		case rowvalue.TypeInt:
			if v.Int == nil || !v.Int.IsUint64() {
				return nil, fmt.Errorf("schema %s: key column %s must fit in uint64", s.Name, col.Name)
			}
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], v.Int.Uint64())
			out = append(out, buf[:]...)
		case rowvalue.TypeBool:
			if v.Bool {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case rowvalue.TypeBytes, rowvalue.TypeString:
			out = append(out, rowkey.EncodeEscapedField(v.Bytes)...)
		default:
			return nil, fmt.Errorf("schema %s: unsupported key column type %s for %s", s.Name, col.Type, col.Name)
		}
	}
	return out, nil
}
