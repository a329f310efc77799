package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeGlobalSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	m.GlobalSection = make([]*wasm.Global, count)
	for i := uint32(0); i < count; i++ {
		gt, err := decodeGlobalType(r)
		if err != nil {
			return err
		}
		init, err := decodeConstExpr(r, m, gt.ValType)
		if err != nil {
			return err
		}
		m.GlobalSection[i] = &wasm.Global{Type: *gt, Init: init}
	}
	return nil
}
