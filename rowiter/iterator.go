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

// Package rowiter implements the iterator facade (spec component C7):
// Init/HasNext/NextRow with idempotent lookahead, built on top of the
// document walker (C5) and row assembler (C6).
package rowiter

import (
	"context"

	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/row"
	"github.com/opendocdb/rowiter/rowkey"
	"github.com/opendocdb/rowiter/schema"
	"github.com/opendocdb/rowiter/txnstatus"
	"github.com/opendocdb/rowiter/walker"
)

type state int

const (
	stateNeedsWork state = iota
	stateHasRow
	stateExhausted
	stateErrored
)

// Config bundles the constructor inputs spec §6 lists for the iterator:
// projection, schema, read context, and a handle to the store (Store +
// the table name it should scan + an optional inclusive lower bound on
// doc_key).
type Config struct {
	Store      kv.Store
	Table      string
	Schema     *schema.Schema
	Projection *schema.Projection
	ReadCtx    kv.ReadContext
	Oracle     txnstatus.Oracle
	// LowerBound, if non-nil, restricts iteration to documents whose raw
	// (unescaped) doc_key is >= this bound.
	LowerBound []byte
	Logger     log.Logger
}

// Iterator is a forward-only, single-use, single-goroutine row-wise
// iterator. Callers must call Close (typically via defer) once done, to
// release the pinned snapshot.
type Iterator struct {
	cfg Config

	snap      kv.Snapshot
	walker    *walker.Walker
	assembler *row.Assembler

	st         state
	pendingRow row.Row
	pendingErr error
}

// New constructs an Iterator. It does no I/O; call Init to pin a
// snapshot and position the underlying cursor.
func New(cfg Config) *Iterator {
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	return &Iterator{cfg: cfg, st: stateNeedsWork}
}

// Init pins a snapshot of the store and positions the walker at the
// first document at or after the configured lower bound.
func (it *Iterator) Init() error {
	snap, err := it.cfg.Store.NewSnapshot()
	if err != nil {
		return err
	}
	cur, err := snap.Cursor(it.cfg.Table)
	if err != nil {
		snap.Close()
		return err
	}
	if len(it.cfg.LowerBound) > 0 {
		err = cur.Seek(rowkey.DocKeyPrefix(it.cfg.LowerBound))
	} else {
		err = cur.SeekToFirst()
	}
	if err != nil {
		snap.Close()
		return err
	}

	it.snap = snap
	resolver := txnstatus.NewResolver(it.cfg.Oracle)
	it.walker = walker.New(cur, it.cfg.Schema, it.cfg.Projection, it.cfg.ReadCtx, resolver, it.cfg.Logger)
	it.assembler = row.NewAssembler(it.cfg.Schema, it.cfg.Projection)
	it.st = stateNeedsWork
	return nil
}

// Close releases the pinned snapshot. Safe to call more than once.
func (it *Iterator) Close() {
	if it.snap != nil {
		it.snap.Close()
		it.snap = nil
	}
}

// HasNext is idempotent: repeated calls without an intervening NextRow
// return the same answer and perform no additional work (spec §4.7, P6).
func (it *Iterator) HasNext(ctx context.Context) (bool, error) {
	switch it.st {
	case stateHasRow:
		return true, nil
	case stateExhausted:
		return false, nil
	case stateErrored:
		return false, it.pendingErr
	}

	doc, err := it.walker.Next(ctx)
	if err != nil {
		it.st = stateErrored
		it.pendingErr = err
		return false, err
	}
	if doc == nil {
		it.st = stateExhausted
		return false, nil
	}
	r, err := it.assembler.Assemble(doc)
	if err != nil {
		it.st = stateErrored
		it.pendingErr = err
		return false, err
	}
	it.pendingRow = r
	it.st = stateHasRow
	return true, nil
}

// NextRow consumes the cached row materialized by HasNext, calling it
// first if needed. After it returns successfully, the cache is
// invalidated and the next HasNext performs real work again.
func (it *Iterator) NextRow(ctx context.Context, out *row.Row) error {
	if it.st == stateNeedsWork {
		if _, err := it.HasNext(ctx); err != nil {
			return err
		}
	}
	switch it.st {
	case stateHasRow:
		*out = it.pendingRow
		it.st = stateNeedsWork
		return nil
	case stateExhausted:
		return kv.ErrExhausted
	case stateErrored:
		return it.pendingErr
	default:
		return kv.ErrExhausted
	}
}
