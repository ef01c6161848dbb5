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

package kv

import "fmt"

// SchemaVersion identifies the on-disk layout of the document store that
// the key/value codecs in this module understand. Bump the minor number
// for additive, backward-compatible changes; bump major for anything that
// requires a rewrite.
type SchemaVersion struct {
	Major, Minor, Patch uint32
}

func (v SchemaVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// DBSchemaVersion is the layout version this package's codecs implement.
//
// 1.0 - initial: documents, sub-path cells, document-level tombstones,
//
//	weak/strong intents.
var DBSchemaVersion = SchemaVersion{Major: 1, Minor: 0, Patch: 0}

// Table names for the buckets a document store backend is expected to
// expose. A backend is free to collapse these onto fewer physical MDBX/LSM
// tables (e.g. regular and intent entries commonly share one table,
// distinguished by the key's kind tag — see rowkey.Kind) but the names
// below are the logical partitioning the rest of this module reasons about.
const (
	// Documents holds regular (committed) entries:
	// key   - doc_key + sub_path + inverted(timestamp) + inverted(write_index) + kind_tag(Regular)
	// value - tombstone marker, or primitive(type_tag, bytes) with optional TTL.
	Documents = "Documents"

	// Intents holds provisional (uncommitted) entries written by in-flight
	// transactions:
	// key   - doc_key + sub_path + strength_tag + inverted(timestamp) + inverted(write_index) + kind_tag(Intent)
	// value - transaction_id + (tombstone marker, or primitive(type_tag, bytes)).
	Intents = "Intents"
)

// TableCfg describes one logical table's physical layout, independent of
// any particular storage engine. It mirrors the amount of information a
// backend needs to decide how to physically store a table (e.g. whether
// keys of the same document sort with their sub-paths clustered), without
// prescribing an engine.
type TableCfg struct {
	// Clustered indicates entries sharing a document-key prefix must be
	// stored contiguously and in the ordering invariant's descending
	// (newest-first) version order within each (doc_key, sub_path) group.
	Clustered bool
}

// TablesCfg is the default table configuration for the two buckets above.
// Both require clustering: the document walker (see package walker) relies
// on being able to scan a whole document, and then a whole cell, with pure
// forward cursor motion.
var TablesCfg = map[string]TableCfg{
	Documents: {Clustered: true},
	Intents:   {Clustered: true},
}
