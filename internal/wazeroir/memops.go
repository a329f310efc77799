package wazeroir

import (
	"fmt"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// isMemoryOpcode reports whether op is one of the load/store/size/grow
// family, which all additionally require the module to declare a memory.
func isMemoryOpcode(op wasm.Opcode) bool {
	switch op {
	case wasm.OpI32Load, wasm.OpI64Load, wasm.OpF32Load, wasm.OpF64Load,
		wasm.OpI32Load8S, wasm.OpI32Load8U, wasm.OpI32Load16S, wasm.OpI32Load16U,
		wasm.OpI64Load8S, wasm.OpI64Load8U, wasm.OpI64Load16S, wasm.OpI64Load16U,
		wasm.OpI64Load32S, wasm.OpI64Load32U,
		wasm.OpI32Store, wasm.OpI64Store, wasm.OpF32Store, wasm.OpF64Store,
		wasm.OpI32Store8, wasm.OpI32Store16, wasm.OpI64Store8, wasm.OpI64Store16, wasm.OpI64Store32,
		wasm.OpMemorySize, wasm.OpMemoryGrow:
		return true
	default:
		return false
	}
}

// loadSpec names a load opcode's host helper, its result type, and its
// natural alignment (log2 of its access size in bytes). stepMemory compares
// this against the decoded alignment hint to pick between the finalizer's
// aligned-fast-path helper and its "_u" generic/unaligned sibling (spec.md
// §4.G: "Aligned fast paths use typed views; unaligned or hint-too-small
// paths use the generic helpers").
type loadSpec struct {
	name         string
	out          wasm.ValueType
	naturalAlign uint32
}

var loadHelper = map[wasm.Opcode]loadSpec{
	wasm.OpI32Load:    {"mem_load_i32", wasm.ValueTypeI32, 2},
	wasm.OpI32Load8S:  {"mem_load_i32_8s", wasm.ValueTypeI32, 0},
	wasm.OpI32Load8U:  {"mem_load_i32_8u", wasm.ValueTypeI32, 0},
	wasm.OpI32Load16S: {"mem_load_i32_16s", wasm.ValueTypeI32, 1},
	wasm.OpI32Load16U: {"mem_load_i32_16u", wasm.ValueTypeI32, 1},
	wasm.OpF32Load:    {"mem_load_f32", wasm.ValueTypeF32, 2},
	wasm.OpF64Load:    {"mem_load_f64", wasm.ValueTypeF64, 3},
	wasm.OpI64Load:    {"mem_load_i64", wasm.ValueTypeI64, 3},
	wasm.OpI64Load8S:  {"mem_load_i64_8s", wasm.ValueTypeI64, 0},
	wasm.OpI64Load8U:  {"mem_load_i64_8u", wasm.ValueTypeI64, 0},
	wasm.OpI64Load16S: {"mem_load_i64_16s", wasm.ValueTypeI64, 1},
	wasm.OpI64Load16U: {"mem_load_i64_16u", wasm.ValueTypeI64, 1},
	wasm.OpI64Load32S: {"mem_load_i64_32s", wasm.ValueTypeI64, 2},
	wasm.OpI64Load32U: {"mem_load_i64_32u", wasm.ValueTypeI64, 2},
}

type storeSpec struct {
	name         string
	in           wasm.ValueType
	naturalAlign uint32
}

var storeHelper = map[wasm.Opcode]storeSpec{
	wasm.OpI32Store:   {"mem_store_i32", wasm.ValueTypeI32, 2},
	wasm.OpI32Store8:  {"mem_store_i32_8", wasm.ValueTypeI32, 0},
	wasm.OpI32Store16: {"mem_store_i32_16", wasm.ValueTypeI32, 1},
	wasm.OpF32Store:   {"mem_store_f32", wasm.ValueTypeF32, 2},
	wasm.OpF64Store:   {"mem_store_f64", wasm.ValueTypeF64, 3},
	wasm.OpI64Store:   {"mem_store_i64", wasm.ValueTypeI64, 3},
	wasm.OpI64Store8:  {"mem_store_i64_8", wasm.ValueTypeI64, 0},
	wasm.OpI64Store16: {"mem_store_i64_16", wasm.ValueTypeI64, 1},
	wasm.OpI64Store32: {"mem_store_i64_32", wasm.ValueTypeI64, 2},
}

// helperName picks the base helper when the decoded alignment hint meets or
// exceeds the access's natural alignment, and the generic "_u" sibling
// otherwise. A naturalAlign of 0 (byte-granularity access) always takes the
// base helper, since every hint value is at least as aligned as a byte.
func helperName(base string, hintAlign, naturalAlign uint32) string {
	if hintAlign >= naturalAlign {
		return base
	}
	return base + "_u"
}

func (t *FuncTranslator) stepMemory(op wasm.Opcode) error {
	if !t.module.HasMemory() {
		return wasm.Validatef("memory opcode %#x used but module declares no memory", byte(op))
	}

	if op == wasm.OpMemorySize {
		r := t.push(wasm.ValueTypeI32)
		t.emit(fmt.Sprintf("%s = mem_size();", r.text()))
		return nil
	}
	if op == wasm.OpMemoryGrow {
		delta, err := t.popExpect(wasm.ValueTypeI32)
		if err != nil {
			return err
		}
		r := t.push(wasm.ValueTypeI32)
		t.emit(fmt.Sprintf("%s = mem_grow(%s);", r.text(), delta.text()))
		return nil
	}

	ma, err := t.body.memarg()
	if err != nil {
		return err
	}

	if h, ok := loadHelper[op]; ok {
		addr, err := t.popExpect(wasm.ValueTypeI32)
		if err != nil {
			return err
		}
		r := t.push(h.out)
		name := helperName(h.name, ma.Align, h.naturalAlign)
		t.emit(fmt.Sprintf("%s = %s(%s, %d);", r.text(), name, addr.text(), ma.Offset))
		return nil
	}
	if h, ok := storeHelper[op]; ok {
		v, err := t.popExpect(h.in)
		if err != nil {
			return err
		}
		addr, err := t.popExpect(wasm.ValueTypeI32)
		if err != nil {
			return err
		}
		name := helperName(h.name, ma.Align, h.naturalAlign)
		t.emit(fmt.Sprintf("%s(%s, %d, %s);", name, addr.text(), ma.Offset, v.text()))
		return nil
	}
	return wasm.Decodef("unrecognised memory opcode %#x", byte(op))
}
