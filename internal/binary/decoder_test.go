package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// uleb128 encodes an unsigned LEB128 value, used to hand-build test module
// bytes the same way wazero's own section_test.go fixtures do.
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

func TestDecodeModule_MagicAndVersion(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)

	_, err = DecodeModule([]byte{0x00, 0x61, 0x73, 0x00, 0x01, 0x00, 0x00, 0x00})
	require.Error(t, err)

	_, err = DecodeModule([]byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecodeModule_EmptyModule(t *testing.T) {
	m, err := DecodeModule(header())
	require.NoError(t, err)
	require.Empty(t, m.TypeSection)
	require.False(t, m.HasMemory())
	require.False(t, m.HasTable())
}

func TestDecodeModule_SectionOutOfOrder(t *testing.T) {
	// Function section (3) before Type section (1).
	b := concat(header(),
		section(wasm.SectionFunction, uleb128(0)),
		section(wasm.SectionType, uleb128(0)),
	)
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_DuplicateKnownSection(t *testing.T) {
	b := concat(header(),
		section(wasm.SectionType, uleb128(0)),
		section(wasm.SectionType, uleb128(0)),
	)
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_CustomSectionAnywhere(t *testing.T) {
	customPayload := concat(uleb128(4), []byte("test"))
	b := concat(header(),
		section(wasm.SectionCustom, customPayload),
		section(wasm.SectionType, uleb128(0)),
		section(wasm.SectionCustom, customPayload),
	)
	_, err := DecodeModule(b)
	require.NoError(t, err)
}

func TestDecodeModule_UnrecognisedSectionID(t *testing.T) {
	b := concat(header(), section(wasm.SectionID(12), uleb128(0)))
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_MemoryLimitsBoundary(t *testing.T) {
	// spec.md §8.8: initial == 65536 succeeds, 65537 fails.
	memSection := func(initial uint32) []byte {
		return section(wasm.SectionMemory, concat(uleb128(1), []byte{0x00}, uleb128(uint64(initial))))
	}
	b := concat(header(), memSection(65536))
	m, err := DecodeModule(b)
	require.NoError(t, err)
	require.True(t, m.HasMemory())

	b = concat(header(), memSection(65537))
	_, err = DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_ExportDuplicateName(t *testing.T) {
	typeSection := section(wasm.SectionType, concat(uleb128(1), []byte{vtByte(wasm.TypeFuncForm)}, uleb128(0), uleb128(0)))
	funcSection := section(wasm.SectionFunction, concat(uleb128(1), uleb128(0)))
	codeSection := section(wasm.SectionCode, concat(uleb128(1),
		uleb128(2), // body size
		uleb128(0), // no locals
		[]byte{0x0B},
	))
	exportEntry := func(name string) []byte {
		return concat(uleb128(uint64(len(name))), []byte(name), []byte{byte(wasm.ExternalKindFunction)}, uleb128(0))
	}
	exportSection := section(wasm.SectionExport, concat(uleb128(2), exportEntry("foo"), exportEntry("foo")))

	b := concat(header(), typeSection, funcSection, codeSection, exportSection)
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_StartFunctionMustBeNiladic(t *testing.T) {
	// type 0: (i32) -> () ; function 0 uses type 0 ; start = 0
	typeSection := section(wasm.SectionType, concat(
		uleb128(1), []byte{vtByte(wasm.TypeFuncForm)},
		uleb128(1), []byte{vtByte(wasm.ValueTypeI32)},
		uleb128(0),
	))
	funcSection := section(wasm.SectionFunction, concat(uleb128(1), uleb128(0)))
	startSection := section(wasm.SectionStart, uleb128(0))
	b := concat(header(), typeSection, funcSection, startSection)
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_InitExprMutableGlobalRejected(t *testing.T) {
	// import one mutable i32 global, then a global whose init reads it.
	importSection := section(wasm.SectionImport, concat(
		uleb128(1),
		uleb128(3), []byte("env"),
		uleb128(1), []byte("g"),
		[]byte{byte(wasm.ExternalKindGlobal)},
		[]byte{vtByte(wasm.ValueTypeI32)}, []byte{0x01}, // mutable
	))
	globalSection := section(wasm.SectionGlobal, concat(
		uleb128(1),
		[]byte{vtByte(wasm.ValueTypeI32)}, []byte{0x00}, // immutable
		[]byte{byte(wasm.ConstOpcodeGetGlobal)}, uleb128(0), []byte{0x0B},
	))
	b := concat(header(), importSection, globalSection)
	_, err := DecodeModule(b)
	require.Error(t, err)
}

func TestDecodeModule_CodeSectionCountMismatch(t *testing.T) {
	typeSection := section(wasm.SectionType, concat(uleb128(1), []byte{vtByte(wasm.TypeFuncForm)}, uleb128(0), uleb128(0)))
	funcSection := section(wasm.SectionFunction, concat(uleb128(1), uleb128(0)))
	codeSection := section(wasm.SectionCode, uleb128(0)) // 0 entries, but 1 function declared
	b := concat(header(), typeSection, funcSection, codeSection)
	_, err := DecodeModule(b)
	require.Error(t, err)
}
