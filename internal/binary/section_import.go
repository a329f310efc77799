package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

func decodeImportSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	var sawTable, sawMemory bool
	m.ImportSection = make([]*wasm.Import, 0, count)
	for i := uint32(0); i < count; i++ {
		modName, err := r.Name()
		if err != nil {
			return err
		}
		itemName, err := r.Name()
		if err != nil {
			return err
		}
		kindByte, err := r.U8()
		if err != nil {
			return err
		}
		kind := wasm.ExternalKind(kindByte)

		im := &wasm.Import{Module: modName, Name: itemName, Kind: kind}
		switch kind {
		case wasm.ExternalKindFunction:
			typeIdx, err := r.VarUint32()
			if err != nil {
				return err
			}
			if int(typeIdx) >= len(m.TypeSection) {
				return wasm.Validatef("import %q.%q: function type index %d out of range", modName, itemName, typeIdx)
			}
			im.TypeIndex = typeIdx
		case wasm.ExternalKindTable:
			tt, err := decodeTableType(r)
			if err != nil {
				return err
			}
			if sawTable {
				return wasm.Validatef("module has more than one table")
			}
			sawTable = true
			im.Table = tt
		case wasm.ExternalKindMemory:
			mt, err := decodeMemoryType(r)
			if err != nil {
				return err
			}
			if sawMemory {
				return wasm.Validatef("module has more than one memory")
			}
			sawMemory = true
			im.Memory = mt
		case wasm.ExternalKindGlobal:
			gt, err := decodeGlobalType(r)
			if err != nil {
				return err
			}
			if gt.Mutable {
				return wasm.Validatef("imported global %q.%q must be immutable", modName, itemName)
			}
			im.Global = gt
		default:
			return wasm.Decodef("unknown import kind %#x", kindByte)
		}
		m.ImportSection = append(m.ImportSection, im)
	}
	return nil
}

func decodeTableType(r *reader) (*wasm.TableType, error) {
	elemForm, err := r.VarInt7()
	if err != nil {
		return nil, err
	}
	if wasm.ValueType(elemForm) != wasm.RefTypeFuncref {
		return nil, wasm.Decodef("table element type must be anyfunc, got %#x", elemForm)
	}
	lim, err := decodeLimits(r)
	if err != nil {
		return nil, err
	}
	return &wasm.TableType{ElemType: wasm.RefTypeFuncref, Limits: lim}, nil
}

func decodeMemoryType(r *reader) (*wasm.MemoryType, error) {
	lim, err := decodeLimits(r)
	if err != nil {
		return nil, err
	}
	if err := validateMemoryLimits(lim); err != nil {
		return nil, err
	}
	return &wasm.MemoryType{Limits: lim}, nil
}

func validateMemoryLimits(lim wasm.Limits) error {
	if lim.Initial > wasm.MaxMemoryPages {
		return wasm.Validatef("memory initial size %d exceeds %d pages", lim.Initial, wasm.MaxMemoryPages)
	}
	if lim.Maximum != nil && *lim.Maximum > wasm.MaxMemoryPages {
		return wasm.Validatef("memory maximum size %d exceeds %d pages", *lim.Maximum, wasm.MaxMemoryPages)
	}
	return nil
}

func decodeLimits(r *reader) (wasm.Limits, error) {
	flags, err := r.U8()
	if err != nil {
		return wasm.Limits{}, err
	}
	initial, err := r.VarUint32()
	if err != nil {
		return wasm.Limits{}, err
	}
	lim := wasm.Limits{Initial: initial}
	if flags&0x1 != 0 {
		max, err := r.VarUint32()
		if err != nil {
			return wasm.Limits{}, err
		}
		lim.Maximum = &max
	}
	if err := lim.Validate(); err != nil {
		return wasm.Limits{}, wasm.NewValidateError("limits", err)
	}
	return lim, nil
}

func decodeGlobalType(r *reader) (*wasm.GlobalType, error) {
	vt, err := r.valueType()
	if err != nil {
		return nil, err
	}
	mutByte, err := r.U8()
	if err != nil {
		return nil, err
	}
	if mutByte > 1 {
		return nil, wasm.Decodef("invalid global mutability byte %#x", mutByte)
	}
	return &wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}, nil
}
