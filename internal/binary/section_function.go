package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeFunctionSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	m.FunctionSection = make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		typeIdx, err := r.VarUint32()
		if err != nil {
			return err
		}
		if int(typeIdx) >= len(m.TypeSection) {
			return wasm.Validatef("function %d: type index %d out of range", i, typeIdx)
		}
		m.FunctionSection[i] = typeIdx
	}
	return nil
}

func decodeTableSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	if m.ImportedTableCount()+count > 1 {
		return wasm.Validatef("module has more than one table")
	}
	m.TableSection = make([]*wasm.TableType, count)
	for i := uint32(0); i < count; i++ {
		tt, err := decodeTableType(r)
		if err != nil {
			return err
		}
		m.TableSection[i] = tt
	}
	return nil
}

func decodeMemorySection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	if m.ImportedMemoryCount()+count > 1 {
		return wasm.Validatef("module has more than one memory")
	}
	m.MemorySection = make([]*wasm.MemoryType, count)
	for i := uint32(0); i < count; i++ {
		mt, err := decodeMemoryType(r)
		if err != nil {
			return err
		}
		m.MemorySection[i] = mt
	}
	return nil
}
