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

// Package txnstatus implements the intent resolver (spec component C3):
// given a provisional write and a read timestamp, consult the external
// transaction-status oracle and decide visible-committed, invisible, or
// retry.
package txnstatus

import (
	"context"

	"github.com/VictoriaMetrics/metrics"

	"github.com/opendocdb/rowiter/kv"
)

// ID identifies a transaction. Opaque to this package beyond equality and
// use as a map key.
type ID [16]byte

// Status is the oracle's answer for one transaction as of a read time.
type Status int

const (
	StatusUnknown Status = iota
	StatusCommitted
	StatusPending
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusCommitted:
		return "committed"
	case StatusPending:
		return "pending"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the oracle's reply to a Status query.
type Result struct {
	Status   Status
	CommitTS kv.Timestamp // valid only when Status == StatusCommitted
}

// Oracle is the external transaction-status authority (spec §6,
// "Transaction-status oracle contract"). It must be safe for concurrent
// use, since it is shared across iterators.
type Oracle interface {
	// Status answers "what is txn's status, as observed from a read at
	// readTS". Implementations may block on RPC.
	Status(ctx context.Context, txn ID, readTS kv.Timestamp) (Result, error)

	// LocalCommitTime is a fast path: if the commit record is already
	// known locally (e.g. co-located with the reader), return it without
	// a round trip. ok is false if unknown, in which case the caller
	// falls back to Status.
	LocalCommitTime(txn ID) (ts kv.Timestamp, ok bool)
}

var (
	metricOracleCalls    = metrics.NewCounter(`rowiter_oracle_calls_total`)
	metricOracleCacheHit = metrics.NewCounter(`rowiter_oracle_cache_hits_total`)
	metricTryAgain       = metrics.NewCounter(`rowiter_try_again_total`)
)
