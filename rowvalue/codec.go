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

// Package rowvalue implements the value codec (spec component C2):
// decoding a stored value into a tombstone marker, a typed primitive, an
// optional TTL, and — for intent values — the owning transaction id.
package rowvalue

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/holiman/uint256"

	"github.com/opendocdb/rowiter/internal/mathutil"
	"github.com/opendocdb/rowiter/kv"
	"github.com/opendocdb/rowiter/txnstatus"
)

// ColumnType tags the wire representation of a primitive value.
type ColumnType byte

const (
	TypeInt ColumnType = iota + 1
	TypeBytes
	TypeString
	TypeBool
	TypeFloat
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBytes:
		return "bytes"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeFloat:
		return "float"
	default:
		return fmt.Sprintf("type(%d)", byte(t))
	}
}

// Primitive is a decoded, typed column value.
type Primitive struct {
	Type ColumnType
	// Int holds the TypeInt payload. uint256.Int covers both ordinary
	// 64-bit integer columns and the wider numeric columns SQL schemas
	// commonly allow.
	Int *uint256.Int
	// Bytes holds the TypeBytes/TypeString payload (raw UTF-8 for
	// TypeString).
	Bytes []byte
	Bool  bool
	Float float64
}

// Value is the fully decoded payload of one stored entry, before TTL
// expiry has been applied (expiry is evaluated against a read time by
// package visibility, since it needs both the write timestamp and TTL).
type Value struct {
	Tombstone bool
	Primitive Primitive
	TTL       *int64 // microseconds; nil means no expiry
}

const (
	flagTombstone = 1 << 0
	flagHasTTL    = 1 << 1
)

// Encode serializes a Value for storage.
func Encode(v Value) []byte {
	var out []byte
	flags := byte(0)
	if v.Tombstone {
		flags |= flagTombstone
	}
	if v.TTL != nil {
		flags |= flagHasTTL
	}
	out = append(out, flags)
	if v.Tombstone {
		return out
	}
	out = append(out, byte(v.Primitive.Type))
	if v.TTL != nil {
		var ttlBuf [8]byte
		binary.BigEndian.PutUint64(ttlBuf[:], uint64(*v.TTL))
		out = append(out, ttlBuf[:]...)
	}
	out = append(out, encodePrimitive(v.Primitive)...)
	return out
}

func encodePrimitive(p Primitive) []byte {
	switch p.Type {
	case TypeInt:
		n := p.Int
		if n == nil {
			n = new(uint256.Int)
		}
		return n.Bytes()
	case TypeBytes, TypeString:
		return p.Bytes
	case TypeBool:
		if p.Bool {
			return []byte{1}
		}
		return []byte{0}
	case TypeFloat:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(p.Float))
		return buf[:]
	default:
		return nil
	}
}

// Decode parses a stored value byte string (spec §4.2).
func Decode(buf []byte) (Value, error) {
	if len(buf) < 1 {
		return Value{}, &kv.FormatError{What: "value", Raw: buf, Err: fmt.Errorf("empty value")}
	}
	flags := buf[0]
	rest := buf[1:]
	if flags&flagTombstone != 0 {
		return Value{Tombstone: true}, nil
	}
	if len(rest) < 1 {
		return Value{}, &kv.FormatError{What: "value", Raw: buf, Err: fmt.Errorf("missing type tag")}
	}
	typ := ColumnType(rest[0])
	rest = rest[1:]

	var ttl *int64
	if flags&flagHasTTL != 0 {
		if len(rest) < 8 {
			return Value{}, &kv.FormatError{What: "value", Raw: buf, Err: fmt.Errorf("truncated ttl")}
		}
		t := int64(binary.BigEndian.Uint64(rest[:8]))
		ttl = &t
		rest = rest[8:]
	}

	prim, err := decodePrimitive(typ, rest)
	if err != nil {
		return Value{}, &kv.FormatError{What: "value", Raw: buf, Err: err}
	}
	return Value{Primitive: prim, TTL: ttl}, nil
}

func decodePrimitive(typ ColumnType, rest []byte) (Primitive, error) {
	switch typ {
	case TypeInt:
		n := new(uint256.Int)
		if len(rest) > 32 {
			return Primitive{}, fmt.Errorf("int payload too wide (%d bytes)", len(rest))
		}
		n.SetBytes(rest)
		return Primitive{Type: TypeInt, Int: n}, nil
	case TypeBytes:
		return Primitive{Type: TypeBytes, Bytes: rest}, nil
	case TypeString:
		return Primitive{Type: TypeString, Bytes: rest}, nil
	case TypeBool:
		if len(rest) != 1 {
			return Primitive{}, fmt.Errorf("bool payload must be 1 byte, got %d", len(rest))
		}
		return Primitive{Type: TypeBool, Bool: rest[0] != 0}, nil
	case TypeFloat:
		if len(rest) != 8 {
			return Primitive{}, fmt.Errorf("float payload must be 8 bytes, got %d", len(rest))
		}
		return Primitive{Type: TypeFloat, Float: math.Float64frombits(binary.BigEndian.Uint64(rest))}, nil
	default:
		return Primitive{}, fmt.Errorf("unknown type tag %d", typ)
	}
}

// EncodeIntentPayload serializes an intent entry's value: the owning
// transaction id followed by the plain Value encoding (spec §4.2, "for
// intent-value bytes, additionally extracts transaction_id").
func EncodeIntentPayload(txn txnstatus.ID, v Value) []byte {
	out := make([]byte, 0, len(txn)+1)
	out = append(out, txn[:]...)
	out = append(out, Encode(v)...)
	return out
}

// DecodeIntentPayload reverses EncodeIntentPayload.
func DecodeIntentPayload(buf []byte) (txnstatus.ID, Value, error) {
	var txn txnstatus.ID
	if len(buf) < len(txn) {
		return txn, Value{}, &kv.FormatError{What: "value", Raw: buf, Err: fmt.Errorf("truncated intent txn id")}
	}
	copy(txn[:], buf[:len(txn)])
	v, err := Decode(buf[len(txn):])
	if err != nil {
		return txn, Value{}, err
	}
	return txn, v, nil
}

// Expired reports whether a value written at writtenTS with this TTL has
// expired by readTS: R - T >= TTL (spec invariant in §3). The caller only
// ever evaluates this for writtenTS <= readTS (evalCandidate filters future
// writes first), but the elapsed computation goes through
// mathutil.AbsoluteDifference rather than a bare subtraction so it can never
// read as a bogus negative duration if that invariant is ever violated.
func (v Value) Expired(writtenTS kv.Timestamp, readTS kv.Timestamp) bool {
	if v.TTL == nil {
		return false
	}
	elapsed := mathutil.AbsoluteDifference(uint64(readTS.Physical), uint64(writtenTS.Physical))
	return elapsed >= uint64(*v.TTL)
}
