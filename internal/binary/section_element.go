package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeElementSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	if count > 0 && !m.HasTable() {
		return wasm.Validatef("element section present but module has no table")
	}
	m.ElementSection = make([]*wasm.ElementSegment, count)
	for i := uint32(0); i < count; i++ {
		tableIdx, err := r.VarUint32()
		if err != nil {
			return err
		}
		if tableIdx != 0 {
			return wasm.Validatef("element segment %d: table index must be 0, got %d", i, tableIdx)
		}
		offset, err := decodeConstExpr(r, m, wasm.ValueTypeI32)
		if err != nil {
			return err
		}
		n, err := r.VarUint32()
		if err != nil {
			return err
		}
		indices := make([]uint32, n)
		for j := uint32(0); j < n; j++ {
			fnIdx, err := r.VarUint32()
			if err != nil {
				return err
			}
			if fnIdx >= m.NumFunctions() {
				return wasm.Validatef("element segment %d: function index %d out of range", i, fnIdx)
			}
			indices[j] = fnIdx
		}
		// Deferred per spec.md §3: no range check against table limits at
		// decode time; out-of-range writes trap at instantiation.
		m.ElementSection[i] = &wasm.ElementSegment{TableIndex: tableIdx, Offset: offset, Init: indices}
	}
	return nil
}
