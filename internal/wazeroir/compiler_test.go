package wazeroir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// uleb128/sleb128 hand-build opcode-stream immediates, the same way
// internal/binary's decoder_test.go builds whole-module fixtures.
func uleb128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb128(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// blockTypeByte encodes a block/loop/if signature immediate.
func blockTypeByte(t wasm.ValueType) byte {
	return byte(int8(t)) & 0x7f
}

func op(b ...byte) []byte { return b }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// moduleWithFunc builds a single-function module whose sole defined
// function has signature sig and body bodyBytes, and (optionally) the
// extra sections a test needs wired in via opts.
func moduleWithFunc(sig *wasm.FunctionType, bodyBytes []byte, opts ...func(*wasm.Module)) *wasm.Module {
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{sig},
		FunctionSection: []uint32{0},
		CodeSection:     []*wasm.Code{{Body: bodyBytes}},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func withLocals(entries ...wasm.LocalEntry) func(*wasm.Module) {
	return func(m *wasm.Module) { m.CodeSection[0].Locals = entries }
}

func translateSole(t *testing.T, m *wasm.Module) string {
	t.Helper()
	sigs := NewSignatureCache(0)
	ft, err := NewFuncTranslator(m, sigs, m.ImportedFunctionCount())
	require.NoError(t, err)
	src, err := ft.Translate()
	require.NoError(t, err)
	return src
}

func TestTranslateConstReturn(t *testing.T) {
	sig := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	body := cat(op(byte(wasm.OpI32Const)), sleb128(42), op(byte(wasm.OpEnd)))
	src := translateSole(t, moduleWithFunc(sig, body))
	assert.Contains(t, src, "function F0() {")
	assert.Contains(t, src, "= 42;")
	assert.Contains(t, src, "return si0;")
}

func TestTranslateAddParams(t *testing.T) {
	sig := &wasm.FunctionType{
		Params:  []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32},
		Results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	body := cat(
		op(byte(wasm.OpGetLocal)), uleb128(0),
		op(byte(wasm.OpGetLocal)), uleb128(1),
		op(byte(wasm.OpI32Add)),
		op(byte(wasm.OpEnd)),
	)
	src := translateSole(t, moduleWithFunc(sig, body))
	assert.Contains(t, src, "function F0(li0, li1) {")
	assert.Contains(t, src, "(si0 + si1)|0")
	assert.Contains(t, src, "return")
}

func TestTranslateLocalsZeroInitialized(t *testing.T) {
	sig := &wasm.FunctionType{}
	body := cat(op(byte(wasm.OpEnd)))
	m := moduleWithFunc(sig, body, withLocals(wasm.LocalEntry{Count: 1, Type: wasm.ValueTypeI64}))
	src := translateSole(t, m)
	assert.Contains(t, src, "var ll0 = i64_const(0, 0);")
}

func TestTranslateIfElseResult(t *testing.T) {
	sig := &wasm.FunctionType{
		Params:  []wasm.ValueType{wasm.ValueTypeI32},
		Results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	body := cat(
		op(byte(wasm.OpGetLocal)), uleb128(0),
		op(byte(wasm.OpIf)), op(blockTypeByte(wasm.ValueTypeI32)),
		op(byte(wasm.OpI32Const)), sleb128(1),
		op(byte(wasm.OpElse)),
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpEnd)),
		op(byte(wasm.OpEnd)),
	)
	src := translateSole(t, moduleWithFunc(sig, body))
	assert.Contains(t, src, "do {")
	assert.Contains(t, src, "if (si0) {")
	assert.Contains(t, src, "} else {")
	assert.Contains(t, src, "} while (false);")
}

func TestTranslateIfWithoutElseAndResultIsInvalid(t *testing.T) {
	sig := &wasm.FunctionType{
		Params:  []wasm.ValueType{wasm.ValueTypeI32},
		Results: []wasm.ValueType{wasm.ValueTypeI32},
	}
	body := cat(
		op(byte(wasm.OpGetLocal)), uleb128(0),
		op(byte(wasm.OpIf)), op(blockTypeByte(wasm.ValueTypeI32)),
		op(byte(wasm.OpI32Const)), sleb128(1),
		op(byte(wasm.OpEnd)),
		op(byte(wasm.OpEnd)),
	)
	sigs := NewSignatureCache(0)
	m := moduleWithFunc(sig, body)
	ft, err := NewFuncTranslator(m, sigs, 0)
	require.NoError(t, err)
	_, err = ft.Translate()
	require.Error(t, err)
	var verr *wasm.ValidateError
	assert.ErrorAs(t, err, &verr)
}

func TestTranslateLoopWithBreak(t *testing.T) {
	sig := &wasm.FunctionType{}
	body := cat(
		op(byte(wasm.OpLoop)), op(blockTypeByte(wasm.ValueTypeNone)),
		op(byte(wasm.OpBr)), uleb128(0),
		op(byte(wasm.OpEnd)),
		op(byte(wasm.OpEnd)),
	)
	src := translateSole(t, moduleWithFunc(sig, body))
	assert.Contains(t, src, "while (true) {")
	assert.Contains(t, src, "continue L0;")
}

func TestTranslateUnreachableDeadCodeSuppressed(t *testing.T) {
	sig := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	body := cat(
		op(byte(wasm.OpUnreachable)),
		op(byte(wasm.OpI32Const)), sleb128(7), // dead: must not emit a register assignment
		op(byte(wasm.OpEnd)),
	)
	src := translateSole(t, moduleWithFunc(sig, body))
	assert.Contains(t, src, `trap("unreachable");`)
	assert.NotContains(t, src, "= 7;")
}

func TestTranslateBrTableSwitch(t *testing.T) {
	sig := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}}
	body := cat(
		op(byte(wasm.OpBlock)), op(blockTypeByte(wasm.ValueTypeNone)),
		op(byte(wasm.OpBlock)), op(blockTypeByte(wasm.ValueTypeNone)),
		op(byte(wasm.OpGetLocal)), uleb128(0),
		op(byte(wasm.OpBrTable)), uleb128(1), uleb128(0), uleb128(1),
		op(byte(wasm.OpEnd)),
		op(byte(wasm.OpEnd)),
		op(byte(wasm.OpEnd)),
	)
	src := translateSole(t, moduleWithFunc(sig, body))
	assert.Contains(t, src, "switch (si0) {")
	assert.Contains(t, src, "case 0:")
	assert.Contains(t, src, "default:")
}

func TestTranslateCallIndirectUsesSignatureHelper(t *testing.T) {
	fnSig := &wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}}
	body := cat(
		op(byte(wasm.OpI32Const)), sleb128(1),
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpCallIndirect)), uleb128(1), uleb128(0),
		op(byte(wasm.OpEnd)),
	)
	sig := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{sig, fnSig},
		FunctionSection: []uint32{0},
		TableSection:    []*wasm.TableType{{Limits: wasm.Limits{Initial: 1}}},
		CodeSection:     []*wasm.Code{{Body: body}},
	}
	sigs := NewSignatureCache(0)
	ft, err := NewFuncTranslator(m, sigs, 0)
	require.NoError(t, err)
	src, err := ft.Translate()
	require.NoError(t, err)
	interned, err := sigs.Intern(fnSig)
	require.NoError(t, err)
	assert.Contains(t, src, interned.HelperName()+"(")
}

func TestTranslateCallIndirectWithoutTableFails(t *testing.T) {
	sig := &wasm.FunctionType{}
	body := cat(
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpCallIndirect)), uleb128(0), uleb128(0),
		op(byte(wasm.OpEnd)),
	)
	m := moduleWithFunc(sig, body)
	sigs := NewSignatureCache(0)
	ft, err := NewFuncTranslator(m, sigs, 0)
	require.NoError(t, err)
	_, err = ft.Translate()
	require.Error(t, err)
}

// A SignatureCache bounded below the number of distinct call_indirect
// signatures a function actually uses must fail the translation with a
// ValidateError, not silently drop the helper for whichever signature
// crossed the limit.
func TestTranslateCallIndirectOverSignatureLimitFails(t *testing.T) {
	sigA := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	sigB := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI64}}
	fnSig := &wasm.FunctionType{}
	body := cat(
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpCallIndirect)), uleb128(0), uleb128(0),
		op(byte(wasm.OpDrop)),
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpCallIndirect)), uleb128(1), uleb128(0),
		op(byte(wasm.OpDrop)),
		op(byte(wasm.OpEnd)),
	)
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{sigA, sigB, fnSig},
		FunctionSection: []uint32{2},
		TableSection:    []*wasm.TableType{{Limits: wasm.Limits{Initial: 1}}},
		CodeSection:     []*wasm.Code{{Body: body}},
	}
	sigs := NewSignatureCache(1)
	ft, err := NewFuncTranslator(m, sigs, 0)
	require.NoError(t, err)
	_, err = ft.Translate()
	require.Error(t, err)
	var verr *wasm.ValidateError
	assert.ErrorAs(t, err, &verr)
}

func TestTranslateMemoryOpRequiresMemory(t *testing.T) {
	sig := &wasm.FunctionType{}
	body := cat(
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpI32Load)), uleb128(2), uleb128(0),
		op(byte(wasm.OpDrop)),
		op(byte(wasm.OpEnd)),
	)
	m := moduleWithFunc(sig, body)
	sigs := NewSignatureCache(0)
	ft, err := NewFuncTranslator(m, sigs, 0)
	require.NoError(t, err)
	_, err = ft.Translate()
	require.Error(t, err)
}

func TestTranslateMemoryLoadStore(t *testing.T) {
	sig := &wasm.FunctionType{}
	body := cat(
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpI32Const)), sleb128(9),
		op(byte(wasm.OpI32Store)), uleb128(2), uleb128(4),
		op(byte(wasm.OpEnd)),
	)
	m := moduleWithFunc(sig, body)
	m.MemorySection = []*wasm.MemoryType{{Limits: wasm.Limits{Initial: 1}}}
	src := translateSole(t, m)
	assert.Contains(t, src, "mem_store_i32(")
	assert.Contains(t, src, ", 4, ")
}

func TestTranslateMemoryLoadDispatchesOnAlignmentHint(t *testing.T) {
	sig := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	naturallyAligned := cat(
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpI32Load)), uleb128(2), uleb128(0), // align hint 2 == natural alignment
		op(byte(wasm.OpEnd)),
	)
	m := moduleWithFunc(sig, naturallyAligned)
	m.MemorySection = []*wasm.MemoryType{{Limits: wasm.Limits{Initial: 1}}}
	src := translateSole(t, m)
	assert.Contains(t, src, "= mem_load_i32(")
	assert.NotContains(t, src, "mem_load_i32_u(")

	hintTooSmall := cat(
		op(byte(wasm.OpI32Const)), sleb128(0),
		op(byte(wasm.OpI32Load)), uleb128(0), uleb128(0), // align hint 0 < natural alignment 2
		op(byte(wasm.OpEnd)),
	)
	m2 := moduleWithFunc(sig, hintTooSmall)
	m2.MemorySection = []*wasm.MemoryType{{Limits: wasm.Limits{Initial: 1}}}
	src2 := translateSole(t, m2)
	assert.Contains(t, src2, "= mem_load_i32_u(")
}

func TestTranslateSetGlobalOnImmutableFails(t *testing.T) {
	sig := &wasm.FunctionType{}
	body := cat(
		op(byte(wasm.OpI32Const)), sleb128(1),
		op(byte(wasm.OpSetGlobal)), uleb128(0),
		op(byte(wasm.OpEnd)),
	)
	m := moduleWithFunc(sig, body)
	m.GlobalSection = []*wasm.Global{{Type: wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: false}}}
	sigs := NewSignatureCache(0)
	ft, err := NewFuncTranslator(m, sigs, 0)
	require.NoError(t, err)
	_, err = ft.Translate()
	require.Error(t, err)
}

func TestRegisterNamesNeverCollideAcrossBlocks(t *testing.T) {
	sig := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	body := cat(
		op(byte(wasm.OpBlock)), op(blockTypeByte(wasm.ValueTypeI32)),
		op(byte(wasm.OpI32Const)), sleb128(1),
		op(byte(wasm.OpEnd)),
		op(byte(wasm.OpI32Const)), sleb128(2),
		op(byte(wasm.OpI32Add)),
		op(byte(wasm.OpEnd)),
	)
	src := translateSole(t, moduleWithFunc(sig, body))
	// The block's result rendezvous register (si0) is allocated when the
	// block opens, so the const pushed inside the block gets a distinct
	// register (si1) rather than reusing it.
	assert.Contains(t, src, "si0")
	assert.Contains(t, src, "si1")
}
