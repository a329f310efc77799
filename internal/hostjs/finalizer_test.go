package hostjs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
	"github.com/rfk/wasm-polyfill-sub001/internal/wazeroir"
)

func TestFinalizeEmitsInstantiateWrapper(t *testing.T) {
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		FunctionSection: []uint32{0},
		ExportSection:   []*wasm.Export{{Name: "answer", Kind: wasm.ExternalKindFunction, Index: 0}},
	}
	js, err := Finalize(Input{
		Module:    m,
		Functions: []string{"function F0() {\n  return 42;\n}\n"},
		Sigs:      wazeroir.NewSignatureCache(0),
	})
	require.NoError(t, err)
	assert.Contains(t, js, "function instantiate(ambient, stdlib, imports) {")
	assert.Contains(t, js, "function F0() {")
	assert.Contains(t, js, `"answer": F0`)
	assert.Contains(t, js, "}\n")
}

func TestFinalizeWiresImportedGlobalsAsBoxedValues(t *testing.T) {
	m := &wasm.Module{
		ImportSection: []*wasm.Import{
			{Module: "env", Name: "g", Kind: wasm.ExternalKindGlobal, Global: &wasm.GlobalType{ValType: wasm.ValueTypeI32}},
		},
	}
	js, err := Finalize(Input{Module: m, Sigs: wazeroir.NewSignatureCache(0)})
	require.NoError(t, err)
	assert.Contains(t, js, "var G0 = { value: imports.G0 };")
}

func TestFinalizeWritesSignatureHelpers(t *testing.T) {
	sigs := wazeroir.NewSignatureCache(0)
	sigs.Intern(&wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}})
	m := &wasm.Module{TableSection: []*wasm.TableType{{Limits: wasm.Limits{Initial: 2}}}}
	js, err := Finalize(Input{Module: m, Sigs: sigs})
	require.NoError(t, err)
	assert.Contains(t, js, "function call_i_i(idx, a0) {")
	assert.Contains(t, js, `fn.__sig !== "i_i"`)
}

func TestFinalizeWritesMemoryAccessHelpers(t *testing.T) {
	m := &wasm.Module{MemorySection: []*wasm.MemoryType{{Limits: wasm.Limits{Initial: 1}}}}
	js, err := Finalize(Input{Module: m, Sigs: wazeroir.NewSignatureCache(0)})
	require.NoError(t, err)
	assert.Contains(t, js, "function mem_check(addr, off, size) {")
	assert.Contains(t, js, "p + size > M0.buffer.byteLength")
	assert.Contains(t, js, "function mem_load_i32(addr, off) {")
	assert.Contains(t, js, "new Int32Array(M0.buffer, p, 1)[0]")
	assert.Contains(t, js, "function mem_load_i32_u(addr, off) {")
	assert.Contains(t, js, "new DataView(M0.buffer).getInt32(p, true)")
	assert.Contains(t, js, "function mem_store_i64(addr, off, v) {")
	assert.Contains(t, js, "a[1] = i64_high(v);")
}

func TestFinalizeOmitsMemoryHelpersWithoutMemory(t *testing.T) {
	m := &wasm.Module{}
	js, err := Finalize(Input{Module: m, Sigs: wazeroir.NewSignatureCache(0)})
	require.NoError(t, err)
	assert.NotContains(t, js, "mem_check")
}

func TestFinalizeElementSegmentsChunked(t *testing.T) {
	init := make([]uint32, chunkSize+1)
	m := &wasm.Module{
		TableSection: []*wasm.TableType{{Limits: wasm.Limits{Initial: uint32(len(init))}}},
		ElementSection: []*wasm.ElementSegment{
			{Offset: wasm.ConstExpr{Opcode: wasm.ConstOpcodeI32Const, I32Value: 0}, Init: init},
		},
	}
	js, err := Finalize(Input{Module: m, Sigs: wazeroir.NewSignatureCache(0)})
	require.NoError(t, err)
	assert.Contains(t, js, "T0._setmany((0) + 0, [")
	assert.Contains(t, js, "T0._setmany((0) + "+itoaHelper(chunkSize)+", [")
}

func itoaHelper(n int) string {
	digits := []byte{}
	if n == 0 {
		return "0"
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestFinalizeStartCall(t *testing.T) {
	idx := uint32(0)
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}},
		FunctionSection: []uint32{0},
		StartSection:    &idx,
	}
	js, err := Finalize(Input{Module: m, Functions: []string{"function F0() {\n}\n"}, Sigs: wazeroir.NewSignatureCache(0)})
	require.NoError(t, err)
	assert.Contains(t, js, "F0();\n")
}
