package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

// decodeCodeSection reads each function body's locals declaration and
// keeps its opcode stream as a raw, bounds-checked byte slice: the
// opcode-by-opcode decoding and validation of the body itself is the
// function-body translator's job (spec.md §4.G), not the section parser's.
//
// The entry count must equal the number of defined (non-imported)
// functions (spec.md §4.C "Code").
func decodeCodeSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	if count != uint32(len(m.FunctionSection)) {
		return wasm.Validatef(
			"code section has %d entries, expected %d (defined function count)", count, len(m.FunctionSection))
	}
	m.CodeSection = make([]*wasm.Code, count)
	for i := uint32(0); i < count; i++ {
		bodySize, err := r.VarUint32()
		if err != nil {
			return err
		}
		bodyStart := r.Pos()
		bodyEnd := bodyStart + uint64(bodySize)

		localCount, err := r.VarUint32()
		if err != nil {
			return err
		}
		locals := make([]wasm.LocalEntry, localCount)
		for j := uint32(0); j < localCount; j++ {
			n, err := r.VarUint32()
			if err != nil {
				return err
			}
			vt, err := r.valueType()
			if err != nil {
				return err
			}
			locals[j] = wasm.LocalEntry{Count: n, Type: vt}
		}

		if bodyEnd < r.Pos() {
			return wasm.Decodef("function %d: declared body size too small for its locals declaration", i)
		}
		remaining := bodyEnd - r.Pos()
		body, err := r.Bytes(uint32(remaining))
		if err != nil {
			return err
		}
		if r.Pos() != bodyEnd {
			return wasm.Decodef("function %d: body decoding did not consume declared size", i)
		}
		m.CodeSection[i] = &wasm.Code{Locals: locals, Body: body}
	}
	return nil
}
