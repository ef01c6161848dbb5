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

// Package rowiter_test exercises the end-to-end scenarios S1-S6 from
// spec.md §8 against the full Init/HasNext/NextRow facade.
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
	"github.com/opendocdb/rowiter/txnstatus"
)

func collectRows(t *testing.T, store *memkv.Store, sch *schema.Schema, proj *schema.Projection, readCtx kv.ReadContext) []row.Row {
	t.Helper()
	return collectRowsWithOracle(t, store, sch, proj, readCtx, newOracle())
}

// collectRowsWithOracle is collectRows with a caller-supplied oracle, for
// stores holding intents whose transaction outcomes the test registers.
func collectRowsWithOracle(t *testing.T, store *memkv.Store, sch *schema.Schema, proj *schema.Projection, readCtx kv.ReadContext, oracle txnstatus.Oracle) []row.Row {
	t.Helper()
	it := rowiter.New(rowiter.Config{
		Store:      store,
		Table:      testTable,
		Schema:     sch,
		Projection: proj,
		ReadCtx:    readCtx,
		Oracle:     oracle,
	})
	require.NoError(t, it.Init())
	defer it.Close()

	ctx := context.Background()
	var out []row.Row
	for {
		has, err := it.HasNext(ctx)
		require.NoError(t, err)
		if !has {
			break
		}
		var r row.Row
		require.NoError(t, it.NextRow(ctx, &r))
		out = append(out, r)
	}
	return out
}

func cellString(t *testing.T, r row.Row, id uint32) (string, bool) {
	t.Helper()
	c, ok := r.ColumnValue(id)
	require.True(t, ok, "column %d not in projection", id)
	if c.Null {
		return "", false
	}
	return string(c.Value.Bytes), true
}

func cellInt(t *testing.T, r row.Row, id uint32) (uint64, bool) {
	t.Helper()
	c, ok := r.ColumnValue(id)
	require.True(t, ok, "column %d not in projection", id)
	if c.Null {
		return 0, false
	}
	return c.Value.Int.Uint64(), true
}

// S1: overwrite then read at two times.
func TestScenarioS1(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	row1 := docKey(t, sch, "row1", 11111)
	row2 := docKey(t, sch, "row2", 22222)

	putRegular(store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(store, row1, 40, ts(1000), intVal(10000))
	putRegular(store, row1, 50, ts(1000), strVal("row1_e"))

	putRegular(store, row2, 40, ts(2000), intVal(20000))
	putRegular(store, row2, 40, ts(2500), tombstoneVal())
	putRegular(store, row2, 40, ts(3000), intVal(30000))
	putRegular(store, row2, 50, ts(2000), strVal("row2_e"))
	putRegular(store, row2, 50, ts(4000), strVal("row2_e_prime"))

	proj, err := schema.NewProjection(sch, []string{"c", "d", "e"}, 0)
	require.NoError(t, err)

	rows := collectRows(t, store, sch, proj, kv.ReadContext{ReadTS: ts(2000)})
	require.Len(t, rows, 2)
	c, _ := cellString(t, rows[0], 30)
	require.Equal(t, "row1_c", c)
	d, _ := cellInt(t, rows[0], 40)
	require.Equal(t, uint64(10000), d)
	e, _ := cellString(t, rows[0], 50)
	require.Equal(t, "row1_e", e)

	_, dOK := cellString(t, rows[1], 30)
	require.False(t, dOK)
	d2, _ := cellInt(t, rows[1], 40)
	require.Equal(t, uint64(20000), d2)
	e2, _ := cellString(t, rows[1], 50)
	require.Equal(t, "row2_e", e2)

	rows = collectRows(t, store, sch, proj, kv.ReadContext{ReadTS: ts(5000)})
	require.Len(t, rows, 2)
	d3, _ := cellInt(t, rows[1], 40)
	require.Equal(t, uint64(30000), d3)
	e3, _ := cellString(t, rows[1], 50)
	require.Equal(t, "row2_e_prime", e3)
}

// S2: a document tombstone hides row1 entirely.
func TestScenarioS2(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	row1 := docKey(t, sch, "row1", 11111)
	row2 := docKey(t, sch, "row2", 22222)

	putRegular(store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(store, row1, 40, ts(1000), intVal(10000))
	putRegular(store, row1, 50, ts(1000), strVal("row1_e"))
	putDocTombstone(store, row1, ts(2500))

	putRegular(store, row2, 40, ts(2000), intVal(20000))

	proj, err := schema.NewProjection(sch, []string{"c", "d", "e"}, 0)
	require.NoError(t, err)

	rows := collectRows(t, store, sch, proj, kv.ReadContext{ReadTS: ts(2500)})
	require.Len(t, rows, 1)
	d, _ := cellInt(t, rows[0], 40)
	require.Equal(t, uint64(20000), d)
	_, cOK := cellString(t, rows[0], 30)
	require.False(t, cOK)
}

// S3: intra-batch delete-then-write.
func TestScenarioS3(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	row1 := docKey(t, sch, "row1", 11111)
	row2 := docKey(t, sch, "row2", 22222)

	putRegular(store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(store, row1, 40, ts(1000), intVal(10000))
	putDocTombstone(store, row1, ts(2500))
	putRegular(store, row1, 50, ts(2800), strVal("row1_e"))

	putRegular(store, row2, 40, ts(2800), intVal(20000))

	proj, err := schema.NewProjection(sch, []string{"c", "d", "e"}, 0)
	require.NoError(t, err)

	rows := collectRows(t, store, sch, proj, kv.ReadContext{ReadTS: ts(2800)})
	require.Len(t, rows, 2)

	_, cOK := cellString(t, rows[0], 30)
	require.False(t, cOK)
	_, dOK := cellInt(t, rows[0], 40)
	require.False(t, dOK)
	e, _ := cellString(t, rows[0], 50)
	require.Equal(t, "row1_e", e)

	_, cOK2 := cellString(t, rows[1], 30)
	require.False(t, cOK2)
	d2, _ := cellInt(t, rows[1], 40)
	require.Equal(t, uint64(20000), d2)
	_, eOK2 := cellString(t, rows[1], 50)
	require.False(t, eOK2)
}

// S4: key-only projection.
func TestScenarioS4(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	row1 := docKey(t, sch, "row1", 11111)
	putRegular(store, row1, 40, ts(1000), intVal(10000))
	putRegular(store, row1, 50, ts(1000), strVal("row1_e"))

	proj, err := schema.NewProjection(sch, nil, 2)
	require.NoError(t, err)

	rows := collectRows(t, store, sch, proj, kv.ReadContext{ReadTS: ts(2800)})
	require.Len(t, rows, 1)
	a, _ := cellString(t, rows[0], 10)
	require.Equal(t, "row1", a)
	b, _ := cellInt(t, rows[0], 20)
	require.Equal(t, uint64(11111), b)
}

// S5: transactional visibility.
func TestScenarioS5(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	row1 := docKey(t, sch, "row1", 11111)
	row2 := docKey(t, sch, "row2", 22222)
	oracle := newOracle()

	txn1 := txnID(1)
	putIntent(store, row1, 30, txn1, ts(500), strVal("row1_c_t1"))
	putIntent(store, row1, 40, txn1, ts(500), intVal(40000))
	putIntent(store, row1, 50, txn1, ts(500), strVal("row1_e_t1"))
	putIntent(store, row2, 50, txn1, ts(500), strVal("row2_e_prime_half"))
	oracle.Commit(txn1, ts(3500))

	putRegular(store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(store, row1, 40, ts(1000), intVal(10000))
	putRegular(store, row1, 50, ts(1000), strVal("row1_e"))
	putRegular(store, row2, 40, ts(2000), intVal(20000))
	putRegular(store, row2, 50, ts(2000), strVal("row2_e"))
	putRegular(store, row2, 50, ts(4000), strVal("row2_e_prime"))

	txn2 := txnID(2)
	putDocIntentTombstone(store, row1, txn2, ts(4000))
	putIntent(store, row2, 50, txn2, ts(4000), strVal("row2_e_t2"))
	oracle.Commit(txn2, ts(6000))

	proj, err := schema.NewProjection(sch, []string{"c", "d", "e"}, 0)
	require.NoError(t, err)

	newIter := func(readTS kv.Timestamp) []row.Row {
		it := rowiter.New(rowiter.Config{
			Store: store, Table: testTable, Schema: sch, Projection: proj,
			ReadCtx: kv.ReadContext{ReadTS: readTS, Transactional: true},
			Oracle:  oracle,
		})
		require.NoError(t, it.Init())
		defer it.Close()
		ctx := context.Background()
		var out []row.Row
		for {
			has, err := it.HasNext(ctx)
			require.NoError(t, err)
			if !has {
				break
			}
			var r row.Row
			require.NoError(t, it.NextRow(ctx, &r))
			out = append(out, r)
		}
		return out
	}

	rows := newIter(ts(2000))
	require.Len(t, rows, 2)
	c, _ := cellString(t, rows[0], 30)
	require.Equal(t, "row1_c", c)

	rows = newIter(ts(5000))
	require.Len(t, rows, 2)
	c1, _ := cellString(t, rows[0], 30)
	require.Equal(t, "row1_c_t1", c1)
	d1, _ := cellInt(t, rows[0], 40)
	require.Equal(t, uint64(40000), d1)
	e1, _ := cellString(t, rows[0], 50)
	require.Equal(t, "row1_e_t1", e1)
	d2, _ := cellInt(t, rows[1], 40)
	require.Equal(t, uint64(20000), d2)
	// row2.e holds two intents: txn1's ("row2_e_prime_half", provisional
	// 500, committed 3500) and txn2's ("row2_e_t2", provisional 4000,
	// committed 6000). The walker keeps only the intent with the newest
	// provisional version, txn2's, which is not yet committed at 5000, so
	// the regular write at 4000 ("row2_e_prime") is what the read sees.
	e2, _ := cellString(t, rows[1], 50)
	require.Equal(t, "row2_e_prime", e2)

	rows = newIter(ts(6000))
	require.Len(t, rows, 1)
	_, cOK := cellString(t, rows[0], 30)
	require.False(t, cOK)
	d3, _ := cellInt(t, rows[0], 40)
	require.Equal(t, uint64(20000), d3)
	e3, _ := cellString(t, rows[0], 50)
	require.Equal(t, "row2_e_t2", e3)
}

// S6: TTL expiry.
func TestScenarioS6(t *testing.T) {
	sch := newRowSchema(t)
	store := memkv.New()
	row1 := docKey(t, sch, "row1", 11111)
	row2 := docKey(t, sch, "row2", 22222)

	putRegular(store, row1, 50, ts(2800), ttlVal("row1_e", 1000))
	putRegular(store, row2, 50, ts(2800), ttlVal("row2_e", 3000))

	proj, err := schema.NewProjection(sch, []string{"e"}, 0)
	require.NoError(t, err)

	rows := collectRows(t, store, sch, proj, kv.ReadContext{ReadTS: ts(2800 + 2000)})
	require.Len(t, rows, 2)
	_, ok := cellString(t, rows[0], 50)
	require.False(t, ok)
	e, ok := cellString(t, rows[1], 50)
	require.True(t, ok)
	require.Equal(t, "row2_e", e)
}
