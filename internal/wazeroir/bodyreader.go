package wazeroir

import (
	"bytes"
	"io"

	"github.com/rfk/wasm-polyfill-sub001/internal/leb128"
	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// bodyReader is a stateful cursor over one function's raw opcode stream
// (spec.md §4.A's cursor discipline, reused here for Component G since a
// function body is decoded and translated in the same single pass rather
// than staged through an intermediate IR).
type bodyReader struct {
	buf *bytes.Reader
	pos uint64
}

func newBodyReader(b []byte) *bodyReader {
	return &bodyReader{buf: bytes.NewReader(b)}
}

func (r *bodyReader) Pos() uint64    { return r.pos }
func (r *bodyReader) Len() int       { return r.buf.Len() }
func (r *bodyReader) AtEnd() bool    { return r.buf.Len() == 0 }

func (r *bodyReader) ReadByte() (byte, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, wasm.Decodef("function body: unexpected end of input")
		}
		return 0, wasm.NewDecodeError("function body read byte", err)
	}
	r.pos++
	return b, nil
}

func (r *bodyReader) opcode() (wasm.Opcode, error) {
	b, err := r.ReadByte()
	return wasm.Opcode(b), err
}

func (r *bodyReader) varUint32() (uint32, error) {
	v, _, err := leb128.DecodeUint32(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varuint32", err)
	}
	return v, nil
}

func (r *bodyReader) varInt32() (int32, error) {
	v, _, err := leb128.DecodeInt32(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varint32", err)
	}
	return v, nil
}

func (r *bodyReader) varInt64() (int64, error) {
	v, _, err := leb128.DecodeInt64(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varint64", err)
	}
	return v, nil
}

func (r *bodyReader) varInt7() (int8, error) {
	v, _, err := leb128.DecodeInt32(r)
	if err != nil {
		return 0, wasm.NewDecodeError("varint7", err)
	}
	if v < -64 || v > 63 {
		return 0, wasm.Decodef("varint7 out of range: %d", v)
	}
	return int8(v), nil
}

func (r *bodyReader) f32Bits() (uint32, error) {
	b, err := r.rawBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (r *bodyReader) f64Bits() (uint64, error) {
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

func (r *bodyReader) rawBytes(n int) ([]byte, error) {
	if r.buf.Len() < n {
		return nil, wasm.Decodef("function body: unexpected end of input: need %d bytes, have %d", n, r.buf.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.buf, b); err != nil {
		return nil, wasm.NewDecodeError("function body read bytes", err)
	}
	r.pos += uint64(n)
	return b, nil
}

// blockType decodes a block/loop/if signature byte: ValueTypeNone or a
// single numeric value type (spec.md §3).
func (r *bodyReader) blockType() (wasm.ValueType, error) {
	b, err := r.varInt7()
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

// memarg decodes the (align, offset) immediate pair shared by all
// load/store opcodes.
type memarg struct {
	Align  uint32
	Offset uint32
}

func (r *bodyReader) memarg() (memarg, error) {
	align, err := r.varUint32()
	if err != nil {
		return memarg{}, err
	}
	offset, err := r.varUint32()
	if err != nil {
		return memarg{}, err
	}
	return memarg{Align: align, Offset: offset}, nil
}
