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

// Package walker implements the document walker (spec component C5): it
// drives the underlying ordered cursor, groups entries by doc_key, applies
// document-level tombstones, and feeds each sub-path's version stream
// through the visibility filter.
package walker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/erigontech/erigon-lib/log/v3"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowkey"
	"github.com/opendocdb/rowiter/rowvalue"
	"github.com/opendocdb/rowiter/schema"
	"github.com/opendocdb/rowiter/txnstatus"
	"github.com/opendocdb/rowiter/visibility"
)

var (
	metricDocsScanned   = metrics.NewCounter(`rowiter_documents_scanned_total`)
	metricDocsHidden    = metrics.NewCounter(`rowiter_documents_hidden_total`)
	metricCellsResolved = metrics.NewCounter(`rowiter_cells_resolved_total`)
)

// Document is one logical row surviving visibility filtering: the raw
// (unescaped) document-key bytes and a cell map keyed by column id. Absent
// or NULL cells are simply not present in the map.
type Document struct {
	DocKey []byte
	Cells  map[uint32]rowvalue.Primitive
}

// Walker is the C5 state machine. It owns no goroutines; every call
// blocks the caller on the underlying cursor (and, transitively, on the
// transaction-status oracle).
type Walker struct {
	cur      kv.Cursor
	schema   *schema.Schema
	wanted   map[uint32]bool // non-key column ids the projection needs decoded
	readCtx  kv.ReadContext
	filter   *visibility.Filter
	resolver *txnstatus.Resolver
	logger   log.Logger
}

// New builds a Walker over a freshly positioned cursor. Callers seek the
// cursor to its starting bound (SeekToFirst, or Seek to a lower bound)
// before constructing the walker.
func New(cur kv.Cursor, sch *schema.Schema, proj *schema.Projection, readCtx kv.ReadContext, resolver *txnstatus.Resolver, logger log.Logger) *Walker {
	wanted := make(map[uint32]bool, len(proj.Columns))
	for _, c := range proj.Columns {
		if c.KeyIndex < 0 {
			wanted[c.ID] = true
		}
	}
	if logger == nil {
		logger = log.Root()
	}
	return &Walker{
		cur:      cur,
		schema:   sch,
		wanted:   wanted,
		readCtx:  readCtx,
		filter:   visibility.NewFilter(resolver),
		resolver: resolver,
		logger:   logger,
	}
}

// Next advances to, and fully materializes, the next emittable document.
// It returns (nil, nil) once the cursor is exhausted.
func (w *Walker) Next(ctx context.Context) (*Document, error) {
	for {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if !w.cur.Valid() {
			return nil, nil
		}

		head, err := rowkey.Decode(w.cur.Key())
		if err != nil {
			return nil, err
		}
		docKey := append([]byte(nil), head.DocKey...)
		docPrefix := rowkey.DocKeyPrefix(docKey)
		metricDocsScanned.Inc()

		doc, err := w.scanDocument(ctx, docKey, docPrefix)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			metricDocsHidden.Inc()
			continue
		}
		return doc, nil
	}
}

// scanDocument processes every entry sharing docPrefix and advances the
// cursor past them. It returns (nil, nil) when the whole document is
// hidden at this read time (spec §4.5 step 5).
func (w *Walker) scanDocument(ctx context.Context, docKey, docPrefix []byte) (*Document, error) {
	// Intent-resolution memoization is per-row (spec §4.3); a "row" here is
	// one document.
	w.resolver.Reset()

	rootPrefix := rowkey.PathPrefix(docKey, rowkey.SubPath{})
	rootRegulars, rootIntent, err := w.collectCell(rootPrefix)
	if err != nil {
		return nil, err
	}
	docTombstoneTS, tombstoned, err := w.filter.ResolveTombstone(ctx, visibility.CellSource{Intent: rootIntent, Regulars: rootRegulars}, w.readCtx.ReadTS, kv.MinTimestamp)
	if err != nil {
		return nil, err
	}
	threshold := kv.MinTimestamp
	if tombstoned {
		threshold = docTombstoneTS
		w.logger.Trace("rowiter: document tombstone", "doc_ts", docTombstoneTS)
	}

	cells := make(map[uint32]rowvalue.Primitive)
	anyNonNull := false

	for w.cur.Valid() && bytes.HasPrefix(w.cur.Key(), docPrefix) {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		dec, err := rowkey.Decode(w.cur.Key())
		if err != nil {
			return nil, err
		}
		col, ok := dec.SubPath.Column()
		if !ok {
			return nil, &kv.FormatError{What: "key", Raw: w.cur.Key(), Err: fmt.Errorf("unsupported multi-component sub-path for row schema")}
		}
		pathPrefix := rowkey.PathPrefix(docKey, dec.SubPath)

		if !w.wanted[col] {
			// Unprojected column: skip its whole version range in one seek
			// rather than walking every version (spec §4.5, "seek-vs-next
			// discipline").
			if err := w.cur.Seek(rowkey.UpperBound(pathPrefix)); err != nil {
				return nil, err
			}
			continue
		}

		regulars, intent, err := w.collectCell(pathPrefix)
		if err != nil {
			return nil, err
		}
		prim, err := w.filter.Resolve(ctx, visibility.CellSource{Intent: intent, Regulars: regulars}, w.readCtx.ReadTS, threshold)
		if err != nil {
			return nil, err
		}
		metricCellsResolved.Inc()
		if prim != nil {
			cells[col] = *prim
			anyNonNull = true
		}
	}

	if !anyNonNull && tombstoned && len(w.wanted) > 0 {
		// Spec §4.5 step 5: all projected columns are NULL and the
		// document itself is tombstoned at or before the read time -> the
		// row does not exist. A key-only projection still emits, since a
		// document with no live columns can still have a real primary key.
		return nil, nil
	}

	return &Document{DocKey: docKey, Cells: cells}, nil
}

// sliceRegularSource adapts an in-memory, already-descending slice of
// regular entries to visibility.RegularSource.
type sliceRegularSource struct {
	entries []visibility.RegularEntry
	i       int
}

func (s *sliceRegularSource) Peek() (visibility.RegularEntry, bool, error) {
	if s.i >= len(s.entries) {
		return visibility.RegularEntry{}, false, nil
	}
	return s.entries[s.i], true, nil
}

func (s *sliceRegularSource) Next() (visibility.RegularEntry, bool, error) {
	e, ok, err := s.Peek()
	if ok {
		s.i++
	}
	return e, ok, err
}

// collectCell reads every stored entry sharing pathPrefix (one
// (doc_key, sub_path) cell, for both regular and intent partitions),
// advancing the cursor past all of them. Regular entries are collected in
// the order encountered, which preserves their descending-version order
// since interleaving with the other kind's entries never reorders entries
// of the same kind relative to one another. At most one intent entry is
// expected per cell (spec §4.4 edge rules); if more than one is present
// (e.g. a stale, not-yet-compacted intent from an earlier transaction),
// the one with the newest provisional version wins.
func (w *Walker) collectCell(pathPrefix []byte) (*sliceRegularSource, *visibility.IntentEntry, error) {
	var regulars []visibility.RegularEntry
	var intent *visibility.IntentEntry

	for w.cur.Valid() && bytes.HasPrefix(w.cur.Key(), pathPrefix) {
		dec, err := rowkey.Decode(w.cur.Key())
		if err != nil {
			return nil, nil, err
		}
		switch dec.Kind {
		case rowkey.KindRegular:
			val, err := rowvalue.Decode(w.cur.Value())
			if err != nil {
				return nil, nil, err
			}
			regulars = append(regulars, visibility.RegularEntry{
				Version: kv.Version{TS: dec.TS, WriteIndex: dec.WriteIndex},
				Value:   val,
			})
		case rowkey.KindIntent:
			if !w.readCtx.Transactional {
				// Non-transactional reads ignore intents entirely (spec §4.3).
				break
			}
			txn, val, err := rowvalue.DecodeIntentPayload(w.cur.Value())
			if err != nil {
				return nil, nil, err
			}
			candidate := visibility.IntentEntry{
				TxnID:   txn,
				Version: kv.Version{TS: dec.TS, WriteIndex: dec.WriteIndex},
				Value:   val,
			}
			if intent == nil || intent.Version.Less(candidate.Version) {
				intent = &candidate
			}
		default:
			return nil, nil, &kv.FormatError{What: "key", Raw: w.cur.Key(), Err: fmt.Errorf("unknown entry kind %v", dec.Kind)}
		}
		if err := w.cur.Next(); err != nil {
			return nil, nil, err
		}
	}
	return &sliceRegularSource{entries: regulars}, intent, nil
}

func checkCancel(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return kv.ErrCancelled
	default:
		return nil
	}
}
