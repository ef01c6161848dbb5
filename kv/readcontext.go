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

// ReadContext is the (read_timestamp, transaction_operation_context?) pair
// spec §3 defines. Transactional is false for non-transactional reads, in
// which case intent entries are unconditionally ignored at the walker
// rather than resolved (spec §4.3).
type ReadContext struct {
	ReadTS        Timestamp
	Transactional bool
}
