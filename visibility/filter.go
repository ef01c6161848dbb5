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

// Package visibility implements the visibility filter (spec component
// C4): for one (doc_key, sub_path) cell, pick the latest version whose
// commit time is <= the read time and which is not tombstoned or
// expired.
package visibility

import (
	"context"

	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/rowvalue"
	"github.com/opendocdb/rowiter/txnstatus"
)

// RegularEntry is one version of a regular (committed) entry at a cell.
type RegularEntry struct {
	Version kv.Version
	Value   rowvalue.Value
}

// IntentEntry is the (at most one, per the data model — a cell's
// sub-path is a single column, so only a strong intent can target it
// directly; weak intents only ever sit at ancestor paths) provisional
// write at a cell.
type IntentEntry struct {
	TxnID   txnstatus.ID
	Version kv.Version // the intent's own provisional (ts, write_index); not used for visibility comparisons once resolved
	Value   rowvalue.Value
}

// RegularSource lazily yields a cell's regular entries in descending
// (timestamp, write_index) order, per the store's ordering invariant.
// Peek must be idempotent (repeated calls without an intervening Next
// return the same entry) so the merge below can compare a regular
// candidate against a resolved intent before committing to either.
type RegularSource interface {
	Peek() (RegularEntry, bool, error)
	Next() (RegularEntry, bool, error)
}

// CellSource bundles one cell's candidate versions: the intent, if any
// (resolved only if reached), and the regular-entry stream.
type CellSource struct {
	Intent   *IntentEntry
	Regulars RegularSource
}

// Filter applies the spec §4.4 algorithm.
type Filter struct {
	Resolver *txnstatus.Resolver
}

func NewFilter(resolver *txnstatus.Resolver) *Filter {
	return &Filter{Resolver: resolver}
}

// intentCandidate is a resolved, visible intent re-expressed as a regular
// version at its commit time, ready to be merged against the cell's
// regular-entry stream.
type intentCandidate struct {
	TS    kv.Timestamp
	Value rowvalue.Value
}

// resolveIntentCandidate resolves src (nil-safe) and reports whether the
// result should participate in the merge at all: an absent, invisible,
// or aborted intent drops out entirely, same as if it were never
// written.
func (f *Filter) resolveIntentCandidate(ctx context.Context, src *IntentEntry, readTS kv.Timestamp) (intentCandidate, bool, error) {
	if src == nil {
		return intentCandidate{}, false, nil
	}
	outcome, err := f.Resolver.Resolve(ctx, src.TxnID, readTS)
	if err != nil {
		return intentCandidate{}, false, err
	}
	if !outcome.Visible {
		return intentCandidate{}, false, nil
	}
	// outcome.Visible already guarantees EffectiveTS <= readTS (spec §4.3:
	// "Committed at C ... provided C <= R").
	return intentCandidate{TS: outcome.EffectiveTS, Value: src.Value}, true, nil
}

// Resolve scans src and returns the visible primitive for this cell, or
// nil for NULL. tombstoneThreshold is the inherited document-level
// tombstone threshold (D_ts); for row schemas this is the only inherited
// threshold (spec §4.4: "for the row schema this collapses into D_ts").
//
// The intent (if any) is resolved once up front, then merged against the
// regular-entry stream by effective timestamp, newest first — not always
// evaluated before the first regular entry. A resolved intent's commit
// time can easily be older than a later regular write (e.g. the
// transaction committed, but someone overwrote the column afterwards),
// so the two streams must be compared, not assumed ordered.
func (f *Filter) Resolve(ctx context.Context, src CellSource, readTS, tombstoneThreshold kv.Timestamp) (*rowvalue.Primitive, error) {
	threshold := tombstoneThreshold

	intent, intentLive, err := f.resolveIntentCandidate(ctx, src.Intent, readTS)
	if err != nil {
		return nil, err
	}

	for {
		reg, hasReg, err := src.Regulars.Peek()
		if err != nil {
			return nil, err
		}

		if intentLive && !regularStrictlyNewer(reg, hasReg, intent) {
			// No regular entry remains, or none is strictly newer than the
			// intent: the intent is picked, ties included (spec §4.4 edge
			// rule: "the intent wins"). Consume it; at most one intent
			// exists per cell, so it is never reconsidered.
			intentLive = false
			prim, stop, err := evalCandidate(intent.TS, intent.Value, readTS, &threshold)
			if err != nil {
				return nil, err
			}
			if stop {
				return prim, nil
			}
			continue
		}

		if !hasReg {
			return nil, nil
		}
		if _, _, err := src.Regulars.Next(); err != nil {
			return nil, err
		}
		prim, stop, err := evalCandidate(reg.Version.TS, reg.Value, readTS, &threshold)
		if err != nil {
			return nil, err
		}
		if stop {
			return prim, nil
		}
	}
}

// regularStrictlyNewer reports whether a peeked regular entry exists and
// orders strictly after cand, i.e. the regular entry must be preferred
// over the intent.
func regularStrictlyNewer(reg RegularEntry, hasReg bool, cand intentCandidate) bool {
	return hasReg && cand.TS.Less(reg.Version.TS)
}

// ResolveTombstone scans the document-root cell (the empty sub-path, which
// only ever carries tombstones or weak-intent placeholders, never a live
// primitive) for the newest visible tombstone at or before readTS, merging
// a resolved intent tombstone against the regular-entry stream the same
// way Resolve does. It returns found=false if no committed document-level
// tombstone is visible at readTS. The document walker (C5) uses this to
// compute D_ts, the inherited threshold every sub-path's own Resolve call
// is seeded with.
func (f *Filter) ResolveTombstone(ctx context.Context, src CellSource, readTS, tombstoneThreshold kv.Timestamp) (ts kv.Timestamp, found bool, err error) {
	intent, intentLive, err := f.resolveIntentCandidate(ctx, src.Intent, readTS)
	if err != nil {
		return kv.Timestamp{}, false, err
	}
	if intentLive && !intent.Value.Tombstone {
		// Only a tombstoned intent is relevant at the document root; a live
		// payload there is not part of this data model (see the defensive
		// skip below for the regular-entry equivalent).
		intentLive = false
	}

	for {
		reg, hasReg, err := src.Regulars.Peek()
		if err != nil {
			return kv.Timestamp{}, false, err
		}

		if intentLive && !regularStrictlyNewer(reg, hasReg, intent) {
			intentLive = false
			if tombstoneThreshold.Less(intent.TS) {
				return intent.TS, true, nil
			}
			continue
		}

		if !hasReg {
			return kv.Timestamp{}, false, nil
		}
		if _, _, err := src.Regulars.Next(); err != nil {
			return kv.Timestamp{}, false, err
		}
		t := reg.Version.TS
		if readTS.Less(t) {
			continue // future write, keep scanning older versions
		}
		if t.LessEqual(tombstoneThreshold) {
			return kv.Timestamp{}, false, nil
		}
		if reg.Value.Tombstone {
			return t, true, nil
		}
		// A non-tombstone regular entry at the document root is not part of
		// this data model (row tables never write a primitive there); skip
		// defensively rather than treat it as a value.
	}
}

// evalCandidate applies steps 2b-2e of the spec §4.4 algorithm to one
// candidate version. stop reports whether the scan is finished (value,
// possibly nil, is final); when stop is false the caller should continue
// to the next candidate.
func evalCandidate(t kv.Timestamp, v rowvalue.Value, readTS kv.Timestamp, threshold *kv.Timestamp) (*rowvalue.Primitive, bool, error) {
	if readTS.Less(t) {
		// Future write relative to the read time: invisible, keep scanning.
		return nil, false, nil
	}
	if t.LessEqual(*threshold) {
		// Shadowed by an already-established tombstone at or after t.
		return nil, true, nil
	}
	if v.Tombstone {
		*threshold = threshold.Max(t)
		return nil, true, nil
	}
	if v.Expired(t, readTS) {
		*threshold = threshold.Max(t)
		return nil, true, nil
	}
	prim := v.Primitive
	return &prim, true, nil
}
