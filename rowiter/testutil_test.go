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

package rowiter_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/opendocdb/rowiter/internal/fakeoracle"
	"github.com/opendocdb/rowiter/internal/memkv"
	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowkey"
	"github.com/opendocdb/rowiter/rowvalue"
	"github.com/opendocdb/rowiter/schema"
	"github.com/opendocdb/rowiter/txnstatus"
)

const testTable = "rows"

// newRowSchema builds the table used throughout spec.md §8: two key
// columns (a string, b int) and three non-key columns (c string, d int,
// e string), named after the scenario prose.
func newRowSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New("scenario", []schema.Column{
		{ID: 10, Name: "a", Type: rowvalue.TypeString, KeyIndex: 0},
		{ID: 20, Name: "b", Type: rowvalue.TypeInt, KeyIndex: 1},
		{ID: 30, Name: "c", Type: rowvalue.TypeString, KeyIndex: -1},
		{ID: 40, Name: "d", Type: rowvalue.TypeInt, KeyIndex: -1},
		{ID: 50, Name: "e", Type: rowvalue.TypeString, KeyIndex: -1},
	})
	require.NoError(t, err)
	return sch
}

func docKey(t *testing.T, sch *schema.Schema, a string, b uint64) []byte {
	t.Helper()
	k, err := sch.EncodePrimaryKey([]rowvalue.Primitive{
		{Type: rowvalue.TypeString, Bytes: []byte(a)},
		{Type: rowvalue.TypeInt, Int: uint256.NewInt(b)},
	})
	require.NoError(t, err)
	return k
}

func ts(micros int64) kv.Timestamp { return kv.Timestamp{Physical: micros} }

func strVal(s string) rowvalue.Value {
	return rowvalue.Value{Primitive: rowvalue.Primitive{Type: rowvalue.TypeString, Bytes: []byte(s)}}
}

func intVal(n uint64) rowvalue.Value {
	return rowvalue.Value{Primitive: rowvalue.Primitive{Type: rowvalue.TypeInt, Int: uint256.NewInt(n)}}
}

func tombstoneVal() rowvalue.Value { return rowvalue.Value{Tombstone: true} }

// weakMarkerVal is a weak intent's placeholder payload: weak intents carry
// no real data (spec §4.5 step 1), so the value itself is never inspected
// for anything but "is this a tombstone" (it never is).
func weakMarkerVal() rowvalue.Value {
	return rowvalue.Value{Primitive: rowvalue.Primitive{Type: rowvalue.TypeBool, Bool: false}}
}

func ttlVal(s string, ttlMicros int64) rowvalue.Value {
	v := strVal(s)
	v.TTL = &ttlMicros
	return v
}

// putRegular writes a regular (committed) entry at (dk, [colID]) @ version.
func putRegular(store *memkv.Store, dk []byte, colID uint32, version kv.Timestamp, v rowvalue.Value) {
	k := rowkey.EncodeRegular(dk, rowkey.SubPath{colID}, version, 0)
	store.Put(testTable, k, rowvalue.Encode(v))
}

// putDocTombstone writes a document-root tombstone.
func putDocTombstone(store *memkv.Store, dk []byte, version kv.Timestamp) {
	k := rowkey.EncodeRegular(dk, rowkey.SubPath{}, version, 0)
	store.Put(testTable, k, rowvalue.Encode(tombstoneVal()))
}

// putIntent writes a strong intent entry at (dk, [colID]) belonging to txn.
func putIntent(store *memkv.Store, dk []byte, colID uint32, txn txnstatus.ID, provisionalTS kv.Timestamp, v rowvalue.Value) {
	k := rowkey.EncodeIntent(dk, rowkey.SubPath{colID}, rowkey.StrengthStrong, provisionalTS, 0)
	store.Put(testTable, k, rowvalue.EncodeIntentPayload(txn, v))
}

// putDocIntentTombstone writes a document-root provisional delete.
func putDocIntentTombstone(store *memkv.Store, dk []byte, txn txnstatus.ID, provisionalTS kv.Timestamp) {
	k := rowkey.EncodeIntent(dk, rowkey.SubPath{}, rowkey.StrengthStrong, provisionalTS, 0)
	store.Put(testTable, k, rowvalue.EncodeIntentPayload(txn, tombstoneVal()))
}

// putWeakIntent writes a weak intent at a document's root: an
// ancestor-path marker flagging that txn has a provisional write
// somewhere beneath this document, carrying no payload of its own and
// never hiding data (spec §4.5 step 1, GLOSSARY "Weak intent").
func putWeakIntent(store *memkv.Store, dk []byte, txn txnstatus.ID, provisionalTS kv.Timestamp) {
	k := rowkey.EncodeIntent(dk, rowkey.SubPath{}, rowkey.StrengthWeak, provisionalTS, 0)
	store.Put(testTable, k, rowvalue.EncodeIntentPayload(txn, weakMarkerVal()))
}

func txnID(b byte) txnstatus.ID {
	var id txnstatus.ID
	id[0] = b
	return id
}

func newOracle() *fakeoracle.Oracle { return fakeoracle.New() }
