package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeExportSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, count)
	m.ExportSection = make([]*wasm.Export, count)
	for i := uint32(0); i < count; i++ {
		name, err := r.Name()
		if err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return wasm.Validatef("duplicate export name %q", name)
		}
		seen[name] = struct{}{}

		kindByte, err := r.U8()
		if err != nil {
			return err
		}
		kind := wasm.ExternalKind(kindByte)
		idx, err := r.VarUint32()
		if err != nil {
			return err
		}

		switch kind {
		case wasm.ExternalKindFunction:
			if idx >= m.NumFunctions() {
				return wasm.Validatef("export %q: function index %d out of range", name, idx)
			}
		case wasm.ExternalKindTable:
			if !m.HasTable() || idx != 0 {
				return wasm.Validatef("export %q: table index %d out of range", name, idx)
			}
		case wasm.ExternalKindMemory:
			if !m.HasMemory() || idx != 0 {
				return wasm.Validatef("export %q: memory index %d out of range", name, idx)
			}
		case wasm.ExternalKindGlobal:
			if idx >= m.NumGlobals() {
				return wasm.Validatef("export %q: global index %d out of range", name, idx)
			}
			if gt := m.GlobalTypeOf(idx); gt != nil && gt.Mutable {
				return wasm.Validatef("export %q: exported globals must be immutable", name)
			}
		default:
			return wasm.Decodef("unknown export kind %#x", kindByte)
		}

		m.ExportSection[i] = &wasm.Export{Name: name, Kind: kind, Index: idx}
	}
	return nil
}
