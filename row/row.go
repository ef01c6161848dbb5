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

// Package row implements the row assembler (spec component C6): it
// translates a walker.Document's resolved cells into a projected Row per
// the table schema.
package row

import (
	"fmt"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowvalue"
	"github.com/opendocdb/rowiter/schema"
	"github.com/opendocdb/rowiter/walker"
)

// Row is the materialized output of one NextRow call: one Cell per
// projected column, in projection order.
type Row struct {
	Cells []Cell
}

// Cell is one projected column's value, or NULL.
type Cell struct {
	Column schema.Column
	Null   bool
	Value  rowvalue.Primitive
}

// ColumnValue returns the cell for the given column id and whether it was
// found in the projection at all (not whether it is NULL).
func (r Row) ColumnValue(id uint32) (Cell, bool) {
	for _, c := range r.Cells {
		if c.Column.ID == id {
			return c, true
		}
	}
	return Cell{}, false
}

// Assembler builds rows for one schema/projection pair. Stateless and
// safe to reuse across documents within the same iterator.
type Assembler struct {
	schema *schema.Schema
	proj   *schema.Projection
}

func NewAssembler(sch *schema.Schema, proj *schema.Projection) *Assembler {
	return &Assembler{schema: sch, proj: proj}
}

// Assemble builds the projected Row for one walked document (spec §4.6).
func (a *Assembler) Assemble(doc *walker.Document) (Row, error) {
	pk, err := a.schema.DecodePrimaryKey(doc.DocKey)
	if err != nil {
		return Row{}, err
	}

	out := Row{Cells: make([]Cell, 0, len(a.proj.Columns))}
	for _, col := range a.proj.Columns {
		if col.KeyIndex >= 0 {
			out.Cells = append(out.Cells, Cell{Column: col, Value: pk[col.KeyIndex]})
			continue
		}
		val, ok := doc.Cells[col.ID]
		if !ok {
			out.Cells = append(out.Cells, Cell{Column: col, Null: true})
			continue
		}
		if val.Type != col.Type {
			return Row{}, &kv.SchemaMismatchError{ColumnID: col.ID, Declared: col.Type.String(), Decoded: val.Type.String()}
		}
		out.Cells = append(out.Cells, Cell{Column: col, Value: val})
	}
	return out, nil
}

// String renders a Row for debugging/demo output (cmd/rowscan).
func (r Row) String() string {
	s := "("
	for i, c := range r.Cells {
		if i > 0 {
			s += ", "
		}
		if c.Null {
			s += "NULL"
			continue
		}
		switch c.Value.Type {
		case rowvalue.TypeInt:
			s += fmt.Sprintf("%s", c.Value.Int)
		case rowvalue.TypeBytes:
			s += fmt.Sprintf("%x", c.Value.Bytes)
		case rowvalue.TypeString:
			s += string(c.Value.Bytes)
		case rowvalue.TypeBool:
			s += fmt.Sprintf("%t", c.Value.Bool)
		case rowvalue.TypeFloat:
			s += fmt.Sprintf("%g", c.Value.Float)
		}
	}
	return s + ")"
}
