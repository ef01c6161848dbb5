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

package main

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/opendocdb/rowiter/internal/fakeoracle"
	"github.com/opendocdb/rowiter/internal/memkv"
	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowkey"
	"github.com/opendocdb/rowiter/rowvalue"
	"github.com/opendocdb/rowiter/schema"
)

const demoTable = "rows"

// demoSchema is the two-key-column, three-value-column table used by every
// built-in scenario, named after spec.md §8's scenario prose (a, b are key
// columns; c, d, e are value columns).
func demoSchema() (*schema.Schema, error) {
	return schema.New("scenario", []schema.Column{
		{ID: 10, Name: "a", Type: rowvalue.TypeString, KeyIndex: 0},
		{ID: 20, Name: "b", Type: rowvalue.TypeInt, KeyIndex: 1},
		{ID: 30, Name: "c", Type: rowvalue.TypeString, KeyIndex: -1},
		{ID: 40, Name: "d", Type: rowvalue.TypeInt, KeyIndex: -1},
		{ID: 50, Name: "e", Type: rowvalue.TypeString, KeyIndex: -1},
	})
}

func docKey(sch *schema.Schema, a string, b uint64) ([]byte, error) {
	return sch.EncodePrimaryKey([]rowvalue.Primitive{
		{Type: rowvalue.TypeString, Bytes: []byte(a)},
		{Type: rowvalue.TypeInt, Int: uint256.NewInt(b)},
	})
}

func strVal(s string) rowvalue.Value {
	return rowvalue.Value{Primitive: rowvalue.Primitive{Type: rowvalue.TypeString, Bytes: []byte(s)}}
}

func intVal(n uint64) rowvalue.Value {
	return rowvalue.Value{Primitive: rowvalue.Primitive{Type: rowvalue.TypeInt, Int: uint256.NewInt(n)}}
}

func tombstoneVal() rowvalue.Value { return rowvalue.Value{Tombstone: true} }

func putRegular(store *memkv.Store, dk []byte, colID uint32, t kv.Timestamp, v rowvalue.Value) {
	k := rowkey.EncodeRegular(dk, rowkey.SubPath{colID}, t, 0)
	store.Put(demoTable, k, rowvalue.Encode(v))
}

func putDocTombstone(store *memkv.Store, dk []byte, t kv.Timestamp) {
	k := rowkey.EncodeRegular(dk, rowkey.SubPath{}, t, 0)
	store.Put(demoTable, k, rowvalue.Encode(tombstoneVal()))
}

func ts(micros int64) kv.Timestamp { return kv.Timestamp{Physical: micros} }

// scenario bundles one of spec.md §8's named setups: a populated store, its
// schema, the oracle it references (for scenarios with intents), and the
// read timestamp the scenario text calls out as interesting.
type scenario struct {
	name       string
	schema     *schema.Schema
	store      *memkv.Store
	oracle     *fakeoracle.Oracle
	defaultRTS kv.Timestamp
	transact   bool
}

// builtinScenarios returns S1-S6 from spec.md §8, reconstructed exactly as
// the acceptance tests build them, so `rowscan -scenario s5` reproduces the
// same transactional visibility example the test suite checks.
func builtinScenarios() (map[string]*scenario, error) {
	out := make(map[string]*scenario)

	sch, err := demoSchema()
	if err != nil {
		return nil, err
	}

	s1, err := newScenario("s1", sch, ts(2000))
	if err != nil {
		return nil, err
	}
	row1, _ := docKey(sch, "row1", 11111)
	row2, _ := docKey(sch, "row2", 22222)
	putRegular(s1.store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(s1.store, row1, 40, ts(1000), intVal(10000))
	putRegular(s1.store, row1, 50, ts(1000), strVal("row1_e"))
	putRegular(s1.store, row2, 40, ts(2000), intVal(20000))
	putRegular(s1.store, row2, 40, ts(2500), tombstoneVal())
	putRegular(s1.store, row2, 40, ts(3000), intVal(30000))
	putRegular(s1.store, row2, 50, ts(2000), strVal("row2_e"))
	putRegular(s1.store, row2, 50, ts(4000), strVal("row2_e_prime"))
	out[s1.name] = s1

	s2, err := newScenario("s2", sch, ts(2500))
	if err != nil {
		return nil, err
	}
	row1, _ = docKey(sch, "row1", 11111)
	row2, _ = docKey(sch, "row2", 22222)
	putRegular(s2.store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(s2.store, row1, 40, ts(1000), intVal(10000))
	putRegular(s2.store, row1, 50, ts(1000), strVal("row1_e"))
	putDocTombstone(s2.store, row1, ts(2500))
	putRegular(s2.store, row2, 40, ts(2000), intVal(20000))
	out[s2.name] = s2

	s3, err := newScenario("s3", sch, ts(2800))
	if err != nil {
		return nil, err
	}
	row1, _ = docKey(sch, "row1", 11111)
	row2, _ = docKey(sch, "row2", 22222)
	putRegular(s3.store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(s3.store, row1, 40, ts(1000), intVal(10000))
	putDocTombstone(s3.store, row1, ts(2500))
	putRegular(s3.store, row1, 50, ts(2800), strVal("row1_e"))
	putRegular(s3.store, row2, 40, ts(2800), intVal(20000))
	out[s3.name] = s3

	s4, err := newScenario("s4", sch, ts(2800))
	if err != nil {
		return nil, err
	}
	row1, _ = docKey(sch, "row1", 11111)
	putRegular(s4.store, row1, 40, ts(1000), intVal(10000))
	putRegular(s4.store, row1, 50, ts(1000), strVal("row1_e"))
	out[s4.name] = s4

	s5, err := newScenario("s5", sch, ts(5000))
	if err != nil {
		return nil, err
	}
	s5.transact = true
	row1, _ = docKey(sch, "row1", 11111)
	row2, _ = docKey(sch, "row2", 22222)
	txn1 := txnID(1)
	putIntent(s5.store, row1, 30, txn1, ts(500), strVal("row1_c_t1"))
	putIntent(s5.store, row1, 40, txn1, ts(500), intVal(40000))
	putIntent(s5.store, row1, 50, txn1, ts(500), strVal("row1_e_t1"))
	putIntent(s5.store, row2, 50, txn1, ts(500), strVal("row2_e_prime_half"))
	s5.oracle.Commit(txn1, ts(3500))
	putRegular(s5.store, row1, 30, ts(1000), strVal("row1_c"))
	putRegular(s5.store, row1, 40, ts(1000), intVal(10000))
	putRegular(s5.store, row1, 50, ts(1000), strVal("row1_e"))
	putRegular(s5.store, row2, 40, ts(2000), intVal(20000))
	putRegular(s5.store, row2, 50, ts(2000), strVal("row2_e"))
	putRegular(s5.store, row2, 50, ts(4000), strVal("row2_e_prime"))
	txn2 := txnID(2)
	putDocIntentTombstone(s5.store, row1, txn2, ts(4000))
	putIntent(s5.store, row2, 50, txn2, ts(4000), strVal("row2_e_t2"))
	s5.oracle.Commit(txn2, ts(6000))
	out[s5.name] = s5

	s6, err := newScenario("s6", sch, ts(4800))
	if err != nil {
		return nil, err
	}
	row1, _ = docKey(sch, "row1", 11111)
	row2, _ = docKey(sch, "row2", 22222)
	ttl1, ttl2 := int64(1000), int64(3000)
	v1 := strVal("row1_e")
	v1.TTL = &ttl1
	v2 := strVal("row2_e")
	v2.TTL = &ttl2
	putRegular(s6.store, row1, 50, ts(2800), v1)
	putRegular(s6.store, row2, 50, ts(2800), v2)
	out[s6.name] = s6

	return out, nil
}

func newScenario(name string, sch *schema.Schema, readTS kv.Timestamp) (*scenario, error) {
	return &scenario{
		name:       name,
		schema:     sch,
		store:      memkv.New(),
		oracle:     fakeoracle.New(),
		defaultRTS: readTS,
	}, nil
}

func putIntent(store *memkv.Store, dk []byte, colID uint32, txn [16]byte, provisionalTS kv.Timestamp, v rowvalue.Value) {
	k := rowkey.EncodeIntent(dk, rowkey.SubPath{colID}, rowkey.StrengthStrong, provisionalTS, 0)
	store.Put(demoTable, k, rowvalue.EncodeIntentPayload(txn, v))
}

func putDocIntentTombstone(store *memkv.Store, dk []byte, txn [16]byte, provisionalTS kv.Timestamp) {
	k := rowkey.EncodeIntent(dk, rowkey.SubPath{}, rowkey.StrengthStrong, provisionalTS, 0)
	store.Put(demoTable, k, rowvalue.EncodeIntentPayload(txn, tombstoneVal()))
}

func txnID(b byte) [16]byte {
	var id [16]byte
	id[0] = b
	return id
}

func scenarioNames(scenarios map[string]*scenario) []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	return names
}

func lookupScenario(scenarios map[string]*scenario, name string) (*scenario, error) {
	s, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (have: %v)", name, scenarioNames(scenarios))
	}
	return s, nil
}
