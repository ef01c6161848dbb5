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

// Timestamp is a hybrid logical clock value: a physical component
// (microseconds since epoch) plus a logical tie-breaker. Larger is later.
type Timestamp struct {
	Physical int64
	Logical  uint32
}

// MinTimestamp sorts strictly earlier than any real timestamp produced by
// a clock (real Physical values are always > 0).
var MinTimestamp = Timestamp{Physical: 0, Logical: 0}

// InvalidTimestamp represents the absence of a timestamp. It must never be
// compared for visibility purposes; Valid reports false for it.
var InvalidTimestamp = Timestamp{Physical: -1, Logical: 0}

// Valid reports whether ts is a real, usable timestamp (not the INVALID
// sentinel).
func (ts Timestamp) Valid() bool { return ts.Physical >= 0 }

// Less reports whether ts orders strictly before other.
func (ts Timestamp) Less(other Timestamp) bool {
	if ts.Physical != other.Physical {
		return ts.Physical < other.Physical
	}
	return ts.Logical < other.Logical
}

// LessEqual reports whether ts orders at or before other.
func (ts Timestamp) LessEqual(other Timestamp) bool {
	return !other.Less(ts)
}

// Max returns the later of ts and other.
func (ts Timestamp) Max(other Timestamp) Timestamp {
	if ts.Less(other) {
		return other
	}
	return ts
}

// Version is the full per-entry ordering key: (timestamp, write_index).
// Ties in (timestamp, write_index) are impossible by the store's
// invariants; WriteIndex exists only to disambiguate multiple writes
// landing at the same hybrid timestamp within one batch.
type Version struct {
	TS         Timestamp
	WriteIndex int32
}

// Less reports whether v orders strictly before other, i.e. v is older.
func (v Version) Less(other Version) bool {
	if v.TS != other.TS {
		return v.TS.Less(other.TS)
	}
	return v.WriteIndex < other.WriteIndex
}
