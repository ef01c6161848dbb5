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

// Package fakeoracle is an in-memory transaction-status oracle (spec §6)
// for tests and the cmd/rowscan demo. It is not a consensus or storage
// component; it just remembers the outcome each test/demo scenario
// assigns to a transaction id.
package fakeoracle

import (
	"context"
	"sync"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/txnstatus"
)

// Oracle is a thread-safe, in-memory txnstatus.Oracle backed by a plain
// map, mutated directly by test/demo setup code via Commit/Abort/Pending.
type Oracle struct {
	mu    sync.RWMutex
	state map[txnstatus.ID]txnstatus.Result
}

func New() *Oracle {
	return &Oracle{state: make(map[txnstatus.ID]txnstatus.Result)}
}

// Commit marks txn as committed at commitTS.
func (o *Oracle) Commit(txn txnstatus.ID, commitTS kv.Timestamp) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state[txn] = txnstatus.Result{Status: txnstatus.StatusCommitted, CommitTS: commitTS}
}

// Abort marks txn as aborted.
func (o *Oracle) Abort(txn txnstatus.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state[txn] = txnstatus.Result{Status: txnstatus.StatusAborted}
}

// Pending marks txn as still in flight. A txn never passed to Commit,
// Abort or Pending reports Unknown.
func (o *Oracle) Pending(txn txnstatus.ID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state[txn] = txnstatus.Result{Status: txnstatus.StatusPending}
}

func (o *Oracle) Status(_ context.Context, txn txnstatus.ID, _ kv.Timestamp) (txnstatus.Result, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res, ok := o.state[txn]
	if !ok {
		return txnstatus.Result{Status: txnstatus.StatusUnknown}, nil
	}
	return res, nil
}

func (o *Oracle) LocalCommitTime(txn txnstatus.ID) (kv.Timestamp, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res, ok := o.state[txn]
	if !ok || res.Status != txnstatus.StatusCommitted {
		return kv.Timestamp{}, false
	}
	return res.CommitTS, true
}
