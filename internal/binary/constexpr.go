package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

// decodeConstExpr implements spec.md §4.D: a single constant-producing
// opcode, terminated by end. expected is the result type required by the
// use site (global init, element offset, data offset); get_global further
// requires the referenced global be an imported, immutable global of
// exactly this type.
func decodeConstExpr(r *reader, m *wasm.Module, expected wasm.ValueType) (wasm.ConstExpr, error) {
	opByte, err := r.U8()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	op := wasm.ConstOpcode(opByte)

	var ce wasm.ConstExpr
	ce.Opcode = op
	var gotType wasm.ValueType

	switch op {
	case wasm.ConstOpcodeI32Const:
		v, err := r.VarInt32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.I32Value = v
		gotType = wasm.ValueTypeI32
	case wasm.ConstOpcodeI64Const:
		v, err := r.VarInt64()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.I64Value = v
		gotType = wasm.ValueTypeI64
	case wasm.ConstOpcodeF32Const:
		v, err := r.F32Bits()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.F32Value = v
		gotType = wasm.ValueTypeF32
	case wasm.ConstOpcodeF64Const:
		v, err := r.F64Bits()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		ce.F64Value = v
		gotType = wasm.ValueTypeF64
	case wasm.ConstOpcodeGetGlobal:
		idx, err := r.VarUint32()
		if err != nil {
			return wasm.ConstExpr{}, err
		}
		imported := m.ImportedGlobalCount()
		if idx >= imported {
			return wasm.ConstExpr{}, wasm.Validatef(
				"init-expr get_global %d must reference an imported global (imported count is %d)", idx, imported)
		}
		gt := m.GlobalTypeOf(idx)
		if gt == nil {
			return wasm.ConstExpr{}, wasm.Validatef("init-expr get_global %d: index out of range", idx)
		}
		if gt.Mutable {
			return wasm.ConstExpr{}, wasm.Validatef("init-expr get_global %d must reference an immutable global", idx)
		}
		ce.GlobalIndex = idx
		gotType = gt.ValType
	default:
		return wasm.ConstExpr{}, wasm.Decodef("opcode %#x is not legal in an init-expression", opByte)
	}

	if gotType != expected {
		return wasm.ConstExpr{}, wasm.Validatef("init-expr has type %s, expected %s", gotType, expected)
	}

	end, err := r.U8()
	if err != nil {
		return wasm.ConstExpr{}, err
	}
	if wasm.Opcode(end) != wasm.OpEnd {
		return wasm.ConstExpr{}, wasm.Decodef("init-expr not terminated by end (got %#x)", end)
	}
	return ce, nil
}
