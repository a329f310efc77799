package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeStartSection(r *reader, m *wasm.Module) error {
	idx, err := r.VarUint32()
	if err != nil {
		return err
	}
	if idx >= m.NumFunctions() {
		return wasm.Validatef("start function index %d out of range", idx)
	}
	sig := m.FunctionSignature(idx)
	if sig == nil {
		return wasm.Validatef("start function %d: signature not found", idx)
	}
	if len(sig.Params) != 0 || len(sig.Results) != 0 {
		return wasm.Validatef("start function %d must take no parameters and return no results", idx)
	}
	m.StartSection = &idx
	return nil
}
