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

package rowiter

import (
	"context"
	"fmt"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowkey"
	"github.com/opendocdb/rowiter/rowvalue"
	"github.com/opendocdb/rowiter/txnstatus"
	"github.com/opendocdb/rowiter/visibility"
)

// PointReader is the domain convenience API (SPEC_FULL §4.8), modeled
// directly on core/state/history_reader_v3.go's HistoryReaderV3: a small
// struct holding a store handle, a read timestamp, and a trace flag, with
// one method per access pattern, reading a single (doc_key, column_id)
// cell without constructing a full document walker.
type PointReader struct {
	table    string
	readTS   kv.Timestamp
	trace    bool
	snap     kv.Snapshot
	resolver *txnstatus.Resolver
	readCtx  kv.ReadContext
}

// NewPointReader builds a reader bound to one pinned snapshot and table.
func NewPointReader(snap kv.Snapshot, table string, readCtx kv.ReadContext, oracle txnstatus.Oracle) *PointReader {
	return &PointReader{
		table:    table,
		readTS:   readCtx.ReadTS,
		snap:     snap,
		resolver: txnstatus.NewResolver(oracle),
		readCtx:  readCtx,
	}
}

// SetTrace toggles verbose per-read tracing, mirroring
// HistoryReaderV3.SetTrace.
func (pr *PointReader) SetTrace(trace bool) { pr.trace = trace }

// SetReadTS repositions subsequent reads at a new read timestamp, the
// PointReader analogue of HistoryReaderV3.SetTxNum.
func (pr *PointReader) SetReadTS(ts kv.Timestamp) { pr.readTS = ts }

// ReadColumn fetches column colID of document docKey as of the reader's
// read timestamp, without walking the rest of the document. Returns
// ok=false if the column is NULL (absent, tombstoned, or expired).
//
// This is a fast path for callers that already know docKey is live (e.g.
// a point lookup following a primary-key index hit); it does not consult
// the document-root tombstone, so it will not see a document-level
// delete that postdates this column's own last write. Callers needing
// that guarantee should use the full Iterator instead.
func (pr *PointReader) ReadColumn(ctx context.Context, docKey []byte, colID uint32) (val rowvalue.Primitive, ok bool, err error) {
	// Resolver memoization is scoped per logical read, same as one row in
	// the full walker (spec §4.3).
	pr.resolver.Reset()

	cur, err := pr.snap.Cursor(pr.table)
	if err != nil {
		return rowvalue.Primitive{}, false, err
	}
	pathPrefix := rowkey.PathPrefix(docKey, rowkey.SubPath{colID})
	if err := cur.Seek(pathPrefix); err != nil {
		return rowvalue.Primitive{}, false, err
	}

	var regulars []visibility.RegularEntry
	var intent *visibility.IntentEntry
	for cur.Valid() && hasPrefix(cur.Key(), pathPrefix) {
		dec, err := rowkey.Decode(cur.Key())
		if err != nil {
			return rowvalue.Primitive{}, false, err
		}
		switch dec.Kind {
		case rowkey.KindRegular:
			v, err := rowvalue.Decode(cur.Value())
			if err != nil {
				return rowvalue.Primitive{}, false, err
			}
			regulars = append(regulars, visibility.RegularEntry{Version: kv.Version{TS: dec.TS, WriteIndex: dec.WriteIndex}, Value: v})
		case rowkey.KindIntent:
			if pr.readCtx.Transactional {
				txn, v, err := rowvalue.DecodeIntentPayload(cur.Value())
				if err != nil {
					return rowvalue.Primitive{}, false, err
				}
				cand := visibility.IntentEntry{TxnID: txn, Version: kv.Version{TS: dec.TS, WriteIndex: dec.WriteIndex}, Value: v}
				if intent == nil || intent.Version.Less(cand.Version) {
					intent = &cand
				}
			}
		default:
			return rowvalue.Primitive{}, false, &kv.FormatError{What: "key", Raw: cur.Key(), Err: fmt.Errorf("unknown entry kind %v", dec.Kind)}
		}
		if err := cur.Next(); err != nil {
			return rowvalue.Primitive{}, false, err
		}
	}

	filter := visibility.NewFilter(pr.resolver)
	prim, err := filter.Resolve(ctx, visibility.CellSource{Intent: intent, Regulars: &inMemRegularSource{entries: regulars}}, pr.readTS, kv.MinTimestamp)
	if err != nil {
		return rowvalue.Primitive{}, false, err
	}
	if pr.trace {
		fmt.Printf("ReadColumn [%x col=%d @ %v] => %v\n", docKey, colID, pr.readTS, prim)
	}
	if prim == nil {
		return rowvalue.Primitive{}, false, nil
	}
	return *prim, true, nil
}

type inMemRegularSource struct {
	entries []visibility.RegularEntry
	i       int
}

func (s *inMemRegularSource) Peek() (visibility.RegularEntry, bool, error) {
	if s.i >= len(s.entries) {
		return visibility.RegularEntry{}, false, nil
	}
	return s.entries[s.i], true, nil
}

func (s *inMemRegularSource) Next() (visibility.RegularEntry, bool, error) {
	e, ok, err := s.Peek()
	if ok {
		s.i++
	}
	return e, ok, err
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
