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

// Package rowkey implements the key codec (spec component C1): total,
// order-preserving decoding of the bit-exact key layout in spec §6.
//
//	regular: encode(doc_key) . sep . encode(sub_path) . inv(ts) . inv(wi) . kind_tag(Regular)
//	intent:  encode(doc_key) . sep . encode(sub_path) . strength_tag . inv(ts) . inv(wi) . kind_tag(Intent)
//
// doc_key is escaped with the classic order-preserving "ascending bytes"
// technique (0x00 escaped to 0x00 0xFF, terminated by 0x00 0x00) so that an
// opaque, arbitrary-length byte string still yields a total order and a
// decodable boundary. sub_path is a short list of big-endian uint32
// components prefixed by a one-byte count, so the empty path (document
// tombstones, weak intents at the document root) sorts first within a
// document — count byte 0x00 is less than any non-empty path's count byte.
package rowkey

import (
	"encoding/binary"
	"fmt"

	"github.com/opendocdb/rowiter/kv"
)

// Kind distinguishes a regular (committed) entry from a provisional
// (intent) one. Distinguishable by inspecting the last byte of the key
// alone, per spec §3 ("the core must be able to distinguish intent from
// regular entries by key inspection alone").
type Kind byte

const (
	KindRegular Kind = 0x01
	KindIntent  Kind = 0x02
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindIntent:
		return "intent"
	default:
		return fmt.Sprintf("kind(%#x)", byte(k))
	}
}

// Strength distinguishes a weak intent (an ancestor-path placeholder) from
// a strong intent (carries the actual payload at the exact path).
type Strength byte

const (
	StrengthWeak   Strength = 0x01
	StrengthStrong Strength = 0x02
)

// SubPath is an ordered sequence of path components. The empty path
// (len(SubPath) == 0) denotes the document itself.
type SubPath []uint32

// Column returns the single column id for a row-table's one-component
// path, and false for any other shape (empty, or multi-component).
func (p SubPath) Column() (uint32, bool) {
	if len(p) != 1 {
		return 0, false
	}
	return p[0], true
}

// Decoded is the fully parsed form of one stored key.
type Decoded struct {
	DocKey     []byte // unescaped copy of the key's doc_key segment
	SubPath    SubPath
	Kind       Kind
	Strength   Strength // only meaningful when Kind == KindIntent
	TS         kv.Timestamp
	WriteIndex int32
}

const (
	escByte  = 0x00
	escLit   = 0xFF // 0x00 0xFF  => a literal 0x00 byte inside doc_key
	escTerm  = 0x00 // 0x00 0x00  => end of doc_key
	tsWidth  = 8 + 4 // inverted physical (8) + inverted logical (4)
	wiWidth  = 4
	fixedLen = tsWidth + wiWidth + 1 // + kind tag
)

// EncodeEscapedField escapes an arbitrary byte string using the classic
// order-preserving "ascending bytes" technique (0x00 escaped to 0x00 0xFF,
// terminated by 0x00 0x00), so that a variable-length, otherwise-opaque
// byte string still compares correctly against its neighbors and its end
// is unambiguous when several such fields are concatenated. Shared by the
// full document-key prefix (EncodeDocKeyPrefix) and by schema's per-column
// primary-key segment codec.
func EncodeEscapedField(field []byte) []byte {
	out := make([]byte, 0, len(field)+2)
	for _, b := range field {
		if b == escByte {
			out = append(out, escByte, escLit)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, escByte, escTerm)
	return out
}

// DecodeEscapedField reverses EncodeEscapedField, returning the raw field
// bytes and the number of encoded bytes consumed.
func DecodeEscapedField(buf []byte) (field []byte, consumed int, err error) {
	out := make([]byte, 0, len(buf))
	i := 0
	for i < len(buf) {
		if buf[i] != escByte {
			out = append(out, buf[i])
			i++
			continue
		}
		if i+1 >= len(buf) {
			return nil, 0, fmt.Errorf("truncated escape sequence")
		}
		switch buf[i+1] {
		case escLit:
			out = append(out, escByte)
			i += 2
		case escTerm:
			return out, i + 2, nil
		default:
			return nil, 0, fmt.Errorf("invalid escape byte %#x", buf[i+1])
		}
	}
	return nil, 0, fmt.Errorf("unterminated field")
}

// EncodeDocKeyPrefix escapes a raw document-key byte string for embedding
// inside a full entry key, terminating it so the decoder can find the
// boundary between doc_key and sub_path unambiguously.
func EncodeDocKeyPrefix(docKey []byte) []byte {
	return EncodeEscapedField(docKey)
}

// decodeDocKeyPrefix reverses EncodeDocKeyPrefix, returning the raw doc_key
// bytes and the number of encoded bytes consumed.
func decodeDocKeyPrefix(buf []byte) (docKey []byte, consumed int, err error) {
	return DecodeEscapedField(buf)
}

// EncodeSubPath encodes a sub-path as a one-byte component count followed
// by big-endian uint32 components.
func EncodeSubPath(path SubPath) []byte {
	if len(path) > 255 {
		panic("rowkey: sub-path too long")
	}
	out := make([]byte, 1+4*len(path))
	out[0] = byte(len(path))
	for i, c := range path {
		binary.BigEndian.PutUint32(out[1+4*i:], c)
	}
	return out
}

func decodeSubPath(buf []byte) (path SubPath, consumed int, err error) {
	if len(buf) < 1 {
		return nil, 0, fmt.Errorf("truncated sub_path count")
	}
	n := int(buf[0])
	need := 1 + 4*n
	if len(buf) < need {
		return nil, 0, fmt.Errorf("truncated sub_path components")
	}
	if n == 0 {
		return nil, 1, nil
	}
	path = make(SubPath, n)
	for i := 0; i < n; i++ {
		path[i] = binary.BigEndian.Uint32(buf[1+4*i:])
	}
	return path, need, nil
}

func invertTimestamp(ts kv.Timestamp) [tsWidth]byte {
	var out [tsWidth]byte
	binary.BigEndian.PutUint64(out[0:8], uint64(ts.Physical))
	binary.BigEndian.PutUint32(out[8:12], ts.Logical)
	for i := range out {
		out[i] = ^out[i]
	}
	return out
}

func revertTimestamp(buf []byte) kv.Timestamp {
	var tmp [tsWidth]byte
	for i := 0; i < tsWidth; i++ {
		tmp[i] = ^buf[i]
	}
	return kv.Timestamp{
		Physical: int64(binary.BigEndian.Uint64(tmp[0:8])),
		Logical:  binary.BigEndian.Uint32(tmp[8:12]),
	}
}

func invertWriteIndex(wi int32) [wiWidth]byte {
	var out [wiWidth]byte
	binary.BigEndian.PutUint32(out[:], uint32(wi))
	for i := range out {
		out[i] = ^out[i]
	}
	return out
}

func revertWriteIndex(buf []byte) int32 {
	var tmp [wiWidth]byte
	for i := 0; i < wiWidth; i++ {
		tmp[i] = ^buf[i]
	}
	return int32(binary.BigEndian.Uint32(tmp[:]))
}

// EncodeRegular builds a complete regular-entry key.
func EncodeRegular(docKey []byte, path SubPath, ts kv.Timestamp, writeIndex int32) []byte {
	prefix := EncodeDocKeyPrefix(docKey)
	subPath := EncodeSubPath(path)
	tsb := invertTimestamp(ts)
	wib := invertWriteIndex(writeIndex)

	out := make([]byte, 0, len(prefix)+len(subPath)+tsWidth+wiWidth+1)
	out = append(out, prefix...)
	out = append(out, subPath...)
	out = append(out, tsb[:]...)
	out = append(out, wib[:]...)
	out = append(out, byte(KindRegular))
	return out
}

// EncodeIntent builds a complete intent-entry key.
func EncodeIntent(docKey []byte, path SubPath, strength Strength, ts kv.Timestamp, writeIndex int32) []byte {
	prefix := EncodeDocKeyPrefix(docKey)
	subPath := EncodeSubPath(path)
	tsb := invertTimestamp(ts)
	wib := invertWriteIndex(writeIndex)

	out := make([]byte, 0, len(prefix)+len(subPath)+1+tsWidth+wiWidth+1)
	out = append(out, prefix...)
	out = append(out, subPath...)
	out = append(out, byte(strength))
	out = append(out, tsb[:]...)
	out = append(out, wib[:]...)
	out = append(out, byte(KindIntent))
	return out
}

// Decode parses a complete stored key. DocKey is always a freshly
// allocated unescape buffer; it never aliases buf.
func Decode(buf []byte) (Decoded, error) {
	if len(buf) < fixedLen {
		return Decoded{}, &kv.FormatError{What: "key", Raw: buf, Err: fmt.Errorf("key too short (%d bytes)", len(buf))}
	}
	kindByte := buf[len(buf)-1]
	kind := Kind(kindByte)
	if kind != KindRegular && kind != KindIntent {
		return Decoded{}, &kv.FormatError{What: "key", Raw: buf, Err: fmt.Errorf("unknown kind tag %#x", kindByte)}
	}

	docKey, n, err := decodeDocKeyPrefix(buf)
	if err != nil {
		return Decoded{}, &kv.FormatError{What: "key", Raw: buf, Err: err}
	}
	rest := buf[n:]

	path, m, err := decodeSubPath(rest)
	if err != nil {
		return Decoded{}, &kv.FormatError{What: "key", Raw: buf, Err: err}
	}
	rest = rest[m:]

	var strength Strength
	suffixLen := tsWidth + wiWidth + 1
	if kind == KindIntent {
		suffixLen++
	}
	if len(rest) != suffixLen {
		return Decoded{}, &kv.FormatError{What: "key", Raw: buf, Err: fmt.Errorf("unexpected trailing length %d, want %d", len(rest), suffixLen)}
	}
	if kind == KindIntent {
		strength = Strength(rest[0])
		if strength != StrengthWeak && strength != StrengthStrong {
			return Decoded{}, &kv.FormatError{What: "key", Raw: buf, Err: fmt.Errorf("unknown strength tag %#x", rest[0])}
		}
		rest = rest[1:]
	}

	ts := revertTimestamp(rest[0:tsWidth])
	wi := revertWriteIndex(rest[tsWidth : tsWidth+wiWidth])

	return Decoded{
		DocKey:     docKey,
		SubPath:    path,
		Kind:       kind,
		Strength:   strength,
		TS:         ts,
		WriteIndex: wi,
	}, nil
}

// DocKeyPrefix returns the byte prefix shared by every entry belonging to
// one document (including the escape terminator), so callers can test
// "still inside document D" with a plain byte-slice comparison against a
// cursor's raw key.
func DocKeyPrefix(docKey []byte) []byte {
	return EncodeDocKeyPrefix(docKey)
}

// PathPrefix returns the byte prefix shared by every version of one
// (doc_key, sub_path) pair — both its regular and intent entries, since
// the strength/timestamp/write-index/kind suffix always follows this
// prefix for both kinds.
func PathPrefix(docKey []byte, path SubPath) []byte {
	prefix := EncodeDocKeyPrefix(docKey)
	return append(prefix, EncodeSubPath(path)...)
}

// UpperBound returns the smallest key strictly greater than every key
// sharing prefix p, for use with Cursor.Seek to skip a shadowed range in
// O(log n) (spec §4.5, "seek-vs-next discipline"). Panics if p is all
// 0xFF bytes (unreachable in practice: doc_key prefixes always end with
// the 0x00 0x00 terminator).
func UpperBound(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	panic("rowkey: prefix has no upper bound")
}
