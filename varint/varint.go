// Package varint implements the two integer encodings used on the patch
// wire: vu57, a 57-bit unsigned varint, and b1vu56, a single flag bit fused
// with a 56-bit varint. Both are little-endian in the sense that the least
// significant bits are written first; the big-endian offset header used by
// the structural-binary snapshot format lives in crdtsnapshot, not here.
package varint

import (
	"fmt"

	"jcrdt/common"
)

// MaxVu57 is the largest value vu57 can represent: 2^57 - 1.
const MaxVu57 = 1<<57 - 1

// maxB1Vu56Value is the largest value of the 56-bit payload carried
// alongside the b1vu56 flag bit.
const maxB1Vu56Value = 1<<56 - 1

// AppendVu57 appends the vu57 encoding of v to buf and returns the extended
// slice. It writes 7 payload bits per byte, low-to-high, with the high bit
// of each byte (other than a possible 8th) signalling "more bytes follow".
// At most 8 bytes are written; the 8th, if needed, carries the remaining 8
// bits of a 57-bit value with no continuation bit of its own.
func AppendVu57(buf []byte, v uint64) ([]byte, error) {
	if v > MaxVu57 {
		return nil, common.ErrInvalidPayload{
			Message: fmt.Sprintf("vu57: value %d exceeds the 57-bit range", v),
		}
	}
	for i := 0; i < 7; i++ {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b), nil
		}
		buf = append(buf, b|0x80)
	}
	// 8th byte: the remaining bits (at most 8, since 7*7+8 == 57) with no
	// continuation flag — the decoder knows to stop after 8 bytes.
	return append(buf, byte(v)), nil
}

// EncodeVu57 returns the vu57 encoding of v as a freshly allocated slice.
func EncodeVu57(v uint64) ([]byte, error) {
	return AppendVu57(nil, v)
}

// DecodeVu57 reads a vu57 value from the head of data, returning the value
// and the number of bytes consumed. It rejects truncated streams with
// InvalidPayload; any byte sequence of at most 8 bytes decoding to at most
// 57 bits is accepted, per spec.
func DecodeVu57(data []byte) (value uint64, consumed int, err error) {
	var v uint64
	for i := 0; i < 7; i++ {
		if i >= len(data) {
			return 0, 0, common.ErrInvalidPayload{Message: "vu57: truncated varint"}
		}
		b := data[i]
		v |= uint64(b&0x7f) << uint(7*i)
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	if len(data) < 8 {
		return 0, 0, common.ErrInvalidPayload{Message: "vu57: truncated varint"}
	}
	v |= uint64(data[7]) << 49
	return v, 8, nil
}

// AppendB1Vu56 appends the b1vu56 encoding of (flag, v) to buf. The first
// byte packs flag into its high bit, a "more" bit into bit 6, and the low 6
// bits of v into the remainder; if v does not fit in 6 bits, the remaining
// bits follow as a vu57-layout continuation.
func AppendB1Vu56(buf []byte, flag bool, v uint64) ([]byte, error) {
	if v > maxB1Vu56Value {
		return nil, common.ErrInvalidPayload{
			Message: fmt.Sprintf("b1vu56: value %d exceeds the 56-bit range", v),
		}
	}
	first := byte(v & 0x3f)
	if flag {
		first |= 0x80
	}
	rest := v >> 6
	if rest == 0 {
		return append(buf, first), nil
	}
	first |= 0x40
	buf = append(buf, first)
	return AppendVu57(buf, rest)
}

// EncodeB1Vu56 returns the b1vu56 encoding of (flag, v) as a freshly
// allocated slice.
func EncodeB1Vu56(flag bool, v uint64) ([]byte, error) {
	return AppendB1Vu56(nil, flag, v)
}

// DecodeB1Vu56 reads a b1vu56 value from the head of data, returning the
// flag bit, the 56-bit value, and the number of bytes consumed.
func DecodeB1Vu56(data []byte) (flag bool, value uint64, consumed int, err error) {
	if len(data) == 0 {
		return false, 0, 0, common.ErrInvalidPayload{Message: "b1vu56: truncated varint"}
	}
	first := data[0]
	flag = first&0x80 != 0
	value = uint64(first & 0x3f)
	if first&0x40 == 0 {
		return flag, value, 1, nil
	}
	rest, n, err := DecodeVu57(data[1:])
	if err != nil {
		return false, 0, 0, err
	}
	value |= rest << 6
	return flag, value, 1 + n, nil
}
