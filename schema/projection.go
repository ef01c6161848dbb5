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

package schema

import "fmt"

// Projection is an ordered list of columns to materialize. Key columns
// may or may not be included; non-included non-key columns are never
// decoded (spec §3).
type Projection struct {
	Columns []Column
}

// NewProjection resolves a projection against s. keyPrefixCount, if > 0,
// prepends that many leading key columns (in key-index order) ahead of
// the named columns — the "optional key-prefix count" construction mode
// from spec §6. Named columns already included via the key prefix are
// not duplicated.
//
// A keyPrefixCount greater than the schema's key-column count is a
// configuration error (decided Open Question, see DESIGN.md): the spec
// leaves "projection references a key position past the last key column"
// untested and says to treat it as caller misconfiguration, so this is
// rejected here rather than silently clamped.
func NewProjection(s *Schema, names []string, keyPrefixCount int) (*Projection, error) {
	if keyPrefixCount < 0 {
		return nil, fmt.Errorf("schema %s: negative key-prefix count %d", s.Name, keyPrefixCount)
	}
	if keyPrefixCount > s.NumKeyColumns() {
		return nil, fmt.Errorf("schema %s: key-prefix count %d exceeds %d key columns", s.Name, keyPrefixCount, s.NumKeyColumns())
	}

	var cols []Column
	seen := make(map[uint32]bool, len(names)+keyPrefixCount)
	for _, kc := range s.KeyColumns()[:keyPrefixCount] {
		cols = append(cols, kc)
		seen[kc.ID] = true
	}
	for _, name := range names {
		col, ok := s.ColumnByName(name)
		if !ok {
			return nil, fmt.Errorf("schema %s: unknown column %q in projection", s.Name, name)
		}
		if seen[col.ID] {
			continue
		}
		cols = append(cols, col)
		seen[col.ID] = true
	}
	return &Projection{Columns: cols}, nil
}
