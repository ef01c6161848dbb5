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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendocdb/rowiter/internal/memkv"
	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/row"
	"github.com/opendocdb/rowiter/rowiter"
	"github.com/opendocdb/rowiter/schema"
)

// TestWeakIntentDoesNotShadowData exercises spec §4.5 step 1: a weak
// intent at a document's root is an informational marker only ("some
// descendant has provisional writes by the same txn") and must never
// hide data, unlike a document tombstone or a strong intent's tombstoned
// payload. A weak intent at row1's root coexists with a strong intent on
// col40 (same txn) and a plain committed write on col30; once the txn
// commits, both must remain visible.
func TestWeakIntentDoesNotShadowData(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	oracle := newOracle()
	row1 := docKey(t, sch, "row1", 11111)

	putRegular(store, row1, 30, ts(1000), strVal("existing_c"))

	txn1 := txnID(1)
	putWeakIntent(store, row1, txn1, ts(1500))
	putIntent(store, row1, 40, txn1, ts(1500), intVal(99999))
	oracle.Commit(txn1, ts(4000))

	proj, err := schema.NewProjection(sch, []string{"c", "d"}, 0)
	require.NoError(t, err)

	it := rowiter.New(rowiter.Config{
		Store: store, Table: testTable, Schema: sch, Projection: proj,
		ReadCtx: kv.ReadContext{ReadTS: ts(5000), Transactional: true},
		Oracle:  oracle,
	})
	require.NoError(t, it.Init())
	defer it.Close()

	ctx := context.Background()
	has, err := it.HasNext(ctx)
	require.NoError(t, err)
	require.True(t, has)

	var r row.Row
	require.NoError(t, it.NextRow(ctx, &r))

	c, _ := cellString(t, r, 30)
	require.Equal(t, "existing_c", c)
	d, ok := cellInt(t, r, 40)
	require.True(t, ok)
	require.Equal(t, uint64(99999), d)

	has, err = it.HasNext(ctx)
	require.NoError(t, err)
	require.False(t, has)
}
