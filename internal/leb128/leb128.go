// Package leb128 decodes the LEB128 variable-length integer encodings used
// throughout the WASM binary format (spec.md §4.A).
package leb128

import (
	"io"

	"github.com/pkg/errors"
)

// maxVaruintBytes bounds how many bytes decodeVarint will read before
// declaring the stream malformed, independent of the bit-width check below.
// 10 bytes covers the worst case (64-bit value, 7 bits per byte).
// decodeUvarint instead bounds the byte count by its declared bit width.
const maxVaruintBytes = 10

// DecodeUint32 reads an unsigned LEB128 value bounded to 32 bits from r.
// It fails if the encoding is longer than five bytes, or if any set bit
// would overflow 32 bits once fully decoded.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	v, n, err := decodeUvarint(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 reads an unsigned LEB128 value bounded to 64 bits from r.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	return decodeUvarint(r, 64)
}

// DecodeUint7 reads a 1-byte-wide (no continuation) unsigned LEB128, used
// for the binary format's varuint7 fields (section ids, type tags' single
// byte form is handled as a signed varint7 instead; this is for true
// varuint7 fields like a table's element-type tag is not, but e.g. a
// reserved byte is).
func DecodeUint7(r io.ByteReader) (byte, error) {
	v, n, err := decodeUvarint(r, 7)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, errors.New("leb128: varuint7 used more than one byte")
	}
	return byte(v), nil
}

func decodeUvarint(r io.ByteReader, bitWidth int) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var read uint64
	// A bitWidth-bit value fits in at most ceil(bitWidth/7) groups.
	maxBytes := uint64((bitWidth + 6) / 7)
	for {
		if read >= maxBytes {
			return 0, read, errors.New("leb128: varuint overflows maximum byte length")
		}
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, read, errors.New("leb128: unexpected EOF reading varuint")
			}
			return 0, read, err
		}
		read++

		if shift >= 64 {
			return 0, read, errors.New("leb128: varuint shift overflow")
		}

		payload := uint64(b & 0x7f)
		if shift == 63 && payload > 1 {
			// Can't fit any more than bit 63 at this shift.
			return 0, read, errors.New("leb128: varuint overflows 64 bits")
		}
		result |= payload << shift

		if b&0x80 == 0 {
			if bitWidth < 64 {
				// Any payload bits set beyond bitWidth are an encoding error,
				// per spec.md §4.A ("reject when bits outside the bound are
				// set").
				if result>>uint(bitWidth) != 0 {
					return 0, read, errors.Errorf("leb128: varuint exceeds declared %d-bit width", bitWidth)
				}
			}
			return result, read, nil
		}
		shift += 7
	}
}

// DecodeInt32 reads a signed LEB128 value sign-extended to 32 bits.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := decodeVarint(r, 32)
	return int32(v), n, err
}

// DecodeInt64 reads a signed LEB128 value sign-extended to 64 bits.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeVarint(r, 64)
}

func decodeVarint(r io.ByteReader, bitWidth int) (int64, uint64, error) {
	var result int64
	var shift uint
	var read uint64
	var b byte
	var err error
	for {
		if read >= maxVaruintBytes {
			return 0, read, errors.New("leb128: varint overflows maximum byte length")
		}
		b, err = r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, read, errors.New("leb128: unexpected EOF reading varint")
			}
			return 0, read, err
		}
		read++

		if shift >= 64 {
			return 0, read, errors.New("leb128: varint shift overflow")
		}

		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	// Sign-extend from the high bit of the last group read.
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	if bitWidth < 64 {
		// Verify the value actually fits in bitWidth once sign-extended to
		// 64 bits: re-truncating and re-sign-extending must round-trip.
		trunc := result << (64 - bitWidth) >> (64 - bitWidth)
		if trunc != result {
			return 0, read, errors.Errorf("leb128: varint overflows %d-bit width", bitWidth)
		}
	}
	return result, read, nil
}
