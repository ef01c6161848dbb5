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

import (
	"errors"
	"fmt"
)

// Sentinel errors produced or propagated by the iterator (spec §7).
var (
	// ErrExhausted is returned by NextRow when called after HasNext has
	// returned false. Recoverable at the API level — it is the caller's
	// bug, not a storage condition.
	ErrExhausted = errors.New("rowiter: iterator exhausted")

	// ErrTryAgain is returned when a provisional write's transaction is
	// Pending or Unknown at a time that would affect the current row. The
	// iterator's position is invalid after this; the caller decides
	// whether and when to retry.
	ErrTryAgain = errors.New("rowiter: transaction status undetermined, try again")

	// ErrCancelled is returned when the read context's cancellation token
	// fired or its deadline elapsed.
	ErrCancelled = errors.New("rowiter: cancelled")
)

// FormatError reports an undecodable key or value. It is always wrapped
// around ErrCorruption so callers can test with errors.Is.
type FormatError struct {
	What string // "key" or "value"
	Raw  []byte
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("rowiter: malformed %s (% x): %v", e.What, e.Raw, e.Err)
}

func (e *FormatError) Unwrap() error { return ErrCorruption }

// SchemaMismatchError reports a decoded value whose type does not match
// the column's declared schema type.
type SchemaMismatchError struct {
	ColumnID uint32
	Declared string
	Decoded  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("rowiter: column %d declared %s but decoded %s", e.ColumnID, e.Declared, e.Decoded)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrCorruption }

// ErrCorruption is the sentinel both FormatError and SchemaMismatchError
// wrap, so callers can do errors.Is(err, kv.ErrCorruption) without caring
// which concrete shape produced it. Fatal for the iterator; never retried.
var ErrCorruption = errors.New("rowiter: corruption")
