package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeDataSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	if count > 0 && !m.HasMemory() {
		return wasm.Validatef("data section present but module has no memory")
	}
	m.DataSection = make([]*wasm.DataSegment, count)
	for i := uint32(0); i < count; i++ {
		memIdx, err := r.VarUint32()
		if err != nil {
			return err
		}
		if memIdx != 0 {
			return wasm.Validatef("data segment %d: memory index must be 0, got %d", i, memIdx)
		}
		offset, err := decodeConstExpr(r, m, wasm.ValueTypeI32)
		if err != nil {
			return err
		}
		n, err := r.VarUint32()
		if err != nil {
			return err
		}
		data, err := r.Bytes(n)
		if err != nil {
			return err
		}
		m.DataSection[i] = &wasm.DataSegment{MemoryIndex: memIdx, Offset: offset, Init: data}
	}
	return nil
}
