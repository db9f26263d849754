// Package ctl implements the CSX control byte-stream: unit headers, ULEB128
// row jumps and column deltas, and the fixed-width delta/block/diagonal
// pattern bodies described in spec.md §3-4.C.
package ctl

// PutUvarint appends the ULEB128 (little-endian base-128) encoding of v to
// dst and returns the number of bytes written. dst must have room for at
// least MaxVarintLen64 bytes starting at the write position.
//
// This mirrors the scalar decode/encode shape used throughout the example
// corpus's own varint codecs (see hwy/contrib/varint/varint_base.go's
// decodeOneUvarint64), adapted here to a plain append-style encoder.
func PutUvarint(dst []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return i + 1
}

// AppendUvarint is the append-growing counterpart of PutUvarint.
func AppendUvarint(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Uvarint decodes a ULEB128-encoded uint64 from the start of src. It
// returns the decoded value and the number of bytes consumed, or (0, 0) if
// src does not contain a complete, well-formed varint (truncated buffer or
// a value wider than 64 bits).
//
// This is the same ULEB128 scheme encoding/binary.Uvarint decodes; it is
// reimplemented here rather than called through so the decode side
// matches AppendUvarint/PutUvarint above stylistically, the way the
// corpus's own varint codec (hwy/contrib/varint/varint_base.go) pairs a
// hand-written encoder and decoder rather than mixing one hand-written
// half with a stdlib call for the other.
func Uvarint(src []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, b := range src {
		if i >= MaxVarintLen64 {
			return 0, 0
		}
		if b < 0x80 {
			if i == MaxVarintLen64-1 && b > 1 {
				return 0, 0
			}
			return x | uint64(b)<<s, i + 1
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, 0
}

// MaxVarintLen64 is the maximum number of bytes a ULEB128-encoded uint64
// can occupy.
const MaxVarintLen64 = 10

// VarintLen returns the number of bytes PutUvarint would write for v,
// without writing anything.
func VarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
