// Package binary implements the WASM MVP binary decoder: the module
// skeleton walker (spec.md §4.B) and the per-section parsers (§4.C), built
// on top of internal/leb128 for variable-length integers.
package binary

import (
	"bytes"
	"io"

	"github.com/rfk/wasm-polyfill-sub001/internal/leb128"
	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// reader is the stateful cursor over an immutable byte buffer described by
// spec.md §4.A. It tracks how many bytes have been consumed so section
// parsers can enforce declared payload boundaries.
type reader struct {
	buf *bytes.Reader
	pos uint64 // bytes consumed so far
}

func newReader(b []byte) *reader {
	return &reader{buf: bytes.NewReader(b)}
}

// Pos returns the number of bytes consumed so far, used to compute and
// check section/body boundaries.
func (r *reader) Pos() uint64 { return r.pos }

// Remaining returns how many bytes are left in the underlying buffer.
func (r *reader) Remaining() int { return r.buf.Len() }

func (r *reader) ReadByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, wasm.Decodef("unexpected end of input")
		}
		return 0, wasm.NewDecodeError("read byte", err)
	}
	r.pos++
	return b, nil
}

// U8 reads a single byte.
func (r *reader) U8() (byte, error) { return r.ReadByte() }

// U32LE reads a 4-byte little-endian unsigned integer (not LEB128-encoded).
// DecodeModule reads the magic/version preamble byte by byte with U8
// instead, so nothing in this package currently calls it.
func (r *reader) U32LE() (uint32, error) {
	b, err := r.rawBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// VarUint7 reads a varuint7 (section ids, reserved bytes).
func (r *reader) VarUint7() (byte, error) {
	v, err := leb128.DecodeUint7(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varuint7", err)
	}
	return v, nil
}

// VarUint32 reads a varuint32 (counts, indices, sizes).
func (r *reader) VarUint32() (uint32, error) {
	v, n, err := leb128.DecodeUint32(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varuint32", err)
	}
	_ = n
	return v, nil
}

// VarUint64 reads a varuint64.
func (r *reader) VarUint64() (uint64, error) {
	v, _, err := leb128.DecodeUint64(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varuint64", err)
	}
	return v, nil
}

// VarInt7 reads a varint7, used for value-type tags and block-type tags.
func (r *reader) VarInt7() (int8, error) {
	v, _, err := leb128.DecodeInt32(r) // bit width enforced below
	if err != nil {
		return 0, wasm.NewDecodeError("varint7", err)
	}
	if v < -64 || v > 63 {
		return 0, wasm.Decodef("varint7 out of range: %d", v)
	}
	return int8(v), nil
}

// VarInt32 reads a varint32 (i32.const immediates).
func (r *reader) VarInt32() (int32, error) {
	v, _, err := leb128.DecodeInt32(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varint32", err)
	}
	return v, nil
}

// VarInt64 reads a varint64 (i64.const immediates).
func (r *reader) VarInt64() (int64, error) {
	v, _, err := leb128.DecodeInt64(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varint64", err)
	}
	return v, nil
}

// F32Bits reads a 4-byte little-endian IEEE-754 single as its raw bit
// pattern, preserving any signalling-NaN payload exactly (spec.md §4.A,
// §4.G "NaN payload fidelity").
func (r *reader) F32Bits() (uint32, error) {
	b, err := r.rawBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// F64Bits reads an 8-byte little-endian IEEE-754 double as its raw bit
// pattern.
func (r *reader) F64Bits() (uint64, error) {
	b, err := r.rawBytes(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// Bytes reads n raw bytes.
func (r *reader) Bytes(n uint32) ([]byte, error) {
	return r.rawBytes(int(n))
}

// Name reads a length-prefixed UTF-8 name (module/item/export names,
// custom-section names). UTF-8 validity is treated as an external concern: invalid UTF-8 is preserved
// byte-for-byte rather than rejected, matching the decoder's general
// policy of deferring string interpretation to the host boundary.
func (r *reader) Name() (string, error) {
	n, err := r.VarUint32()
	if err != nil {
		return "", err
	}
	b, err := r.rawBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) rawBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, wasm.Decodef("negative byte count")
	}
	if r.buf.Len() < n {
		return nil, wasm.Decodef("unexpected end of input: need %d bytes, have %d", n, r.buf.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		return nil, wasm.NewDecodeError("read bytes", err)
	}
	r.pos += uint64(n)
	return b, nil
}

// SkipTo advances the cursor forward to absolute position target. It is an
// error for target to be behind the current position (the caller computed
// a boundary incorrectly) or beyond the buffer's end.
func (r *reader) SkipTo(target uint64) error {
	if target < r.pos {
		return wasm.Decodef("cannot skip backwards from %d to %d", r.pos, target)
	}
	delta := target - r.pos
	if delta == 0 {
		return nil
	}
	if uint64(r.buf.Len()) < delta {
		return wasm.Decodef("skip target %d past end of input", target)
	}
	if _, err := r.buf.Seek(int64(delta), io.SeekCurrent); err != nil {
		return wasm.NewDecodeError("skip", err)
	}
	r.pos = target
	return nil
}

// valueType decodes a single value-type byte (i32/i64/f32/f64).
func (r *reader) valueType() (wasm.ValueType, error) {
	b, err := r.VarInt7()
	if err != nil {
		return 0, err
	}
	vt := wasm.ValueType(b)
	switch vt {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return vt, nil
	default:
		return 0, wasm.Decodef("invalid value type byte %#x", b)
	}
}

// blockType decodes the signature byte of a block/loop/if: either
// ValueTypeNone (empty) or a single value type (spec.md §3 "Global
// invariant... result count <= 1").
func (r *reader) blockType() (wasm.ValueType, error) {
	b, err := r.VarInt7()
	if err != nil {
		return 0, err
	}
	vt := wasm.ValueType(b)
	switch vt {
	case wasm.ValueTypeNone, wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64:
		return vt, nil
	default:
		return 0, wasm.Decodef("invalid block type byte %#x", b)
	}
}
