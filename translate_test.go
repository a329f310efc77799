package wasmpolyfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// The module byte-building helpers below mirror internal/binary's own
// decoder_test.go fixtures: hand-assembled LEB128 sections, since Translate
// is only reachable with a real binary module, not a pre-built *wasm.Module.
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

func section(id wasm.SectionID, payload []byte) []byte {
	out := []byte{byte(id)}
	out = append(out, uleb128(uint64(len(payload)))...)
	return append(out, payload...)
}

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

func concat(bs ...[]byte) []byte {
	var out []byte
	for _, b := range bs {
		out = append(out, b...)
	}
	return out
}

// vtByte encodes a ValueType (or the func-type form tag) as the single wire
// byte a varint7 reader expects: these constants are declared as their
// decoded signed value, not their raw bit pattern, so a naive byte(vt)
// conversion sign-extends to the wrong byte.
func vtByte(vt wasm.ValueType) byte {
	return byte(int8(vt)) & 0x7f
}

// answerModule builds a tiny valid module: one niladic function returning
// the i32 constant 42, exported as "answer".
func answerModule() []byte {
	typeSection := section(wasm.SectionType, concat(
		uleb128(1), []byte{vtByte(wasm.TypeFuncForm)}, uleb128(0), uleb128(1), []byte{vtByte(wasm.ValueTypeI32)},
	))
	funcSection := section(wasm.SectionFunction, concat(uleb128(1), uleb128(0)))
	body := concat([]byte{byte(wasm.OpI32Const)}, []byte{42}, []byte{byte(wasm.OpEnd)})
	codeSection := section(wasm.SectionCode, concat(
		uleb128(1), uleb128(uint64(len(body)+1)), uleb128(0), body,
	))
	exportEntry := concat(uleb128(6), []byte("answer"), []byte{byte(wasm.ExternalKindFunction)}, uleb128(0))
	exportSection := section(wasm.SectionExport, concat(uleb128(1), exportEntry))
	return concat(header(), typeSection, funcSection, codeSection, exportSection)
}

func TestTranslateProducesInstantiateWrapper(t *testing.T) {
	js, err := Translate(answerModule(), NewTranslateConfig())
	require.NoError(t, err)
	assert.Contains(t, js, "function instantiate(ambient, stdlib, imports) {")
	assert.Contains(t, js, "function F0() {")
	assert.Contains(t, js, `"answer": F0`)
}

func TestTranslateWithResultMetadata(t *testing.T) {
	res, err := TranslateWithResult(answerModule(), NewTranslateConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"answer"}, res.ExportNames)
	assert.Empty(t, res.RequiredHelpers)
	assert.Contains(t, res.JS, "function F0() {")
}

func TestTranslateRejectsTruncatedInput(t *testing.T) {
	_, err := Translate([]byte{0x00, 0x61, 0x73}, NewTranslateConfig())
	require.Error(t, err)
	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

func TestTranslateNilConfigDefaults(t *testing.T) {
	js, err := Translate(answerModule(), nil)
	require.NoError(t, err)
	assert.Contains(t, js, "instantiate")
}

func TestTranslateWithIdentifierPrefixRenamesWrapper(t *testing.T) {
	cfg := NewTranslateConfig().WithIdentifierPrefix("mod1_")
	js, err := Translate(answerModule(), cfg)
	require.NoError(t, err)
	assert.Contains(t, js, "function mod1_instantiate(ambient, stdlib, imports) {")
}
