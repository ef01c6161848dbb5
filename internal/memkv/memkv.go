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

// Package memkv is an in-memory stand-in for the production ordered store
// (spec §6, "Ordered store contract"), used by tests and the cmd/rowscan
// demo. It is backed by github.com/google/btree, the same library the
// teacher's own (commented-out) override-tracking sketch in
// history_reader_v3.go builds its btree.New(16) trees with.
package memkv

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/opendocdb/rowiter/kv"
)

type entry struct {
	key, value []byte
}

func (e *entry) Less(than btree.Item) bool {
	return bytes.Compare(e.key, than.(*entry).key) < 0
}

// Store is a process-local, multi-table ordered key-value store.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*btree.BTree
}

// New returns an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]*btree.BTree)}
}

// Put inserts or overwrites one entry in table. It holds the store's write
// lock, so it is safe to call concurrently with NewSnapshot (snapshots are
// point-in-time clones) and with other Puts.
func (s *Store) Put(table string, key, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = btree.New(32)
		s.tables[table] = t
	}
	t.ReplaceOrInsert(&entry{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

// NewSnapshot clones each table's tree (a cheap, shallow btree.Clone — the
// underlying entries are never mutated in place, only replaced) so that
// subsequent Puts never affect an iterator already in flight, mirroring
// the real store's pinned-snapshot contract.
func (s *Store) NewSnapshot() (kv.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tables := make(map[string]*btree.BTree, len(s.tables))
	for name, t := range s.tables {
		tables[name] = t.Clone()
	}
	return &snapshot{tables: tables}, nil
}

type snapshot struct {
	tables map[string]*btree.BTree
}

func (s *snapshot) Cursor(table string) (kv.Cursor, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("memkv: unknown table %q", table)
	}
	return &cursor{tree: t}, nil
}

func (s *snapshot) Close() {}

// cursor is a forward-only iterator over a pinned btree snapshot. It
// holds only the current entry and repositions with a fresh
// AscendGreaterOrEqual descent on every Seek/SeekToFirst and every Next
// (Next descends from the current key and steps past it), so each call
// costs O(log n).
type cursor struct {
	tree    *btree.BTree
	current *entry
	valid   bool
}

func (c *cursor) Seek(seek []byte) error {
	c.valid = false
	c.current = nil
	c.tree.AscendGreaterOrEqual(&entry{key: seek}, func(i btree.Item) bool {
		c.current = i.(*entry)
		c.valid = true
		return false
	})
	return nil
}

func (c *cursor) SeekToFirst() error {
	return c.Seek(nil)
}

func (c *cursor) Next() error {
	if !c.valid || c.current == nil {
		return nil
	}
	last := c.current
	c.valid = false
	c.current = nil
	found := false
	c.tree.AscendGreaterOrEqual(last, func(i btree.Item) bool {
		e := i.(*entry)
		if !found {
			found = true // skip the current entry itself
			return true
		}
		c.current = e
		c.valid = true
		return false
	})
	return nil
}

func (c *cursor) Valid() bool { return c.valid }

func (c *cursor) Key() []byte {
	if !c.valid {
		return nil
	}
	return c.current.key
}

func (c *cursor) Value() []byte {
	if !c.valid {
		return nil
	}
	return c.current.value
}
