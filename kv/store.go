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

// Cursor is the ordered-store contract the document walker drives. A
// backend's cursor must expose entries of one table in strictly ascending
// key order.
//
// WARNING: a Cursor is not safe for concurrent use and is owned by exactly
// one goroutine for its lifetime, mirroring the single-threaded scheduling
// model of the iterator built on top of it (see package rowiter).
type Cursor interface {
	// Seek positions the cursor at the first entry with key >= seek. If no
	// such entry exists, Valid reports false afterwards.
	Seek(seek []byte) error

	// SeekToFirst positions the cursor at the very first entry of the table.
	SeekToFirst() error

	// Next advances the cursor by one entry.
	Next() error

	// Valid reports whether the cursor currently points at an entry.
	Valid() bool

	// Key returns the current entry's key. The returned slice is a view
	// into the cursor's internal buffer and must not be retained past the
	// next cursor call.
	Key() []byte

	// Value returns the current entry's value, with the same aliasing
	// caveat as Key.
	Value() []byte
}

// Snapshot is a pinned, point-in-time view of a Store, acquired in
// Iterator.Init and released when the iterator is closed.
type Snapshot interface {
	// Cursor opens a cursor over the named table as of this snapshot.
	Cursor(table string) (Cursor, error)

	// Close releases the snapshot. Safe to call once; implementations
	// should tolerate (but need not require) being called more than once.
	Close()
}

// Store is the opaque ordered key-value store the iterator is built on top
// of (spec §6, "Ordered store contract"). Everything about how it persists,
// compacts, or replicates data is out of scope for this module.
type Store interface {
	// NewSnapshot acquires a consistent, pinned view of the store.
	NewSnapshot() (Snapshot, error)
}
