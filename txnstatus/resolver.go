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

package txnstatus

import (
	"context"
	"fmt"

	"github.com/opendocdb/rowiter/kv"
)

// Resolver wraps an Oracle with the per-row memoization spec §4.3
// requires: "Results within one NextRow call are cached by txn_id to
// avoid duplicate oracle calls; no caching persists across rows."
//
// A Resolver is owned by exactly one iterator and must have Reset called
// between rows (the document walker does this at the start of every
// document it scans; PointReader does it at the start of every read).
type Resolver struct {
	oracle Oracle
	cache  map[ID]Result
}

func NewResolver(oracle Oracle) *Resolver {
	return &Resolver{oracle: oracle, cache: make(map[ID]Result, 4)}
}

// Reset clears the per-row memoization. Must be called before starting
// work on a new row; never mid-row.
func (r *Resolver) Reset() {
	for k := range r.cache {
		delete(r.cache, k)
	}
}

// Outcome is the decision the visibility filter needs: whether the
// intent is observable, and if so, its effective (commit) timestamp.
type Outcome struct {
	Visible bool
	// EffectiveTS is the commit timestamp to use in place of the
	// intent's provisional timestamp for visibility comparisons (spec
	// §4.3: "the intent is treated as a regular write at version C (not
	// provisional_ts)").
	EffectiveTS kv.Timestamp
}

// Resolve answers whether an intent belonging to txn is observable at
// readTS. It returns kv.ErrTryAgain (wrapped) when the oracle reports
// Pending or Unknown — the caller must surface that to NextRow's caller
// rather than guess.
func (r *Resolver) Resolve(ctx context.Context, txn ID, readTS kv.Timestamp) (Outcome, error) {
	if cached, ok := r.cache[txn]; ok {
		metricOracleCacheHit.Inc()
		return outcomeFromResult(cached, readTS)
	}

	if commitTS, ok := r.oracle.LocalCommitTime(txn); ok {
		res := Result{Status: StatusCommitted, CommitTS: commitTS}
		r.cache[txn] = res
		return outcomeFromResult(res, readTS)
	}

	metricOracleCalls.Inc()
	res, err := r.oracle.Status(ctx, txn, readTS)
	if err != nil {
		return Outcome{}, fmt.Errorf("txnstatus: oracle query for %x failed: %w", txn, err)
	}
	r.cache[txn] = res

	if res.Status == StatusPending || res.Status == StatusUnknown {
		metricTryAgain.Inc()
		return Outcome{}, fmt.Errorf("txnstatus: transaction %x is %s: %w", txn, res.Status, kv.ErrTryAgain)
	}
	return outcomeFromResult(res, readTS)
}

func outcomeFromResult(res Result, readTS kv.Timestamp) (Outcome, error) {
	switch res.Status {
	case StatusCommitted:
		if res.CommitTS.LessEqual(readTS) {
			return Outcome{Visible: true, EffectiveTS: res.CommitTS}, nil
		}
		return Outcome{Visible: false}, nil
	case StatusAborted:
		return Outcome{Visible: false}, nil
	case StatusPending, StatusUnknown:
		return Outcome{}, fmt.Errorf("txnstatus: transaction is %s: %w", res.Status, kv.ErrTryAgain)
	default:
		return Outcome{}, fmt.Errorf("txnstatus: unrecognized status %d", res.Status)
	}
}
