// Package hostjs implements the module result finalizer (spec.md §4.H):
// it wraps the per-function translations produced by internal/wazeroir
// into a single host-language outer function of shape
// `(ambient, stdlib, imports) -> exports`, wiring imported
// globals/table/memory, the per-signature indirect-call and unaligned
// memory helpers, element/data segment initializers, the start call, and
// the exports object.
package hostjs

import (
	"fmt"
	"strings"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
	"github.com/rfk/wasm-polyfill-sub001/internal/wazeroir"
)

// chunkSize bounds how many element/data-segment entries are written per
// emitted statement (spec.md §5: "chunked... so peak in-memory staging is
// bounded independently of segment size").
const chunkSize = 1024

// Input is everything the finalizer needs: the decoded module, the
// per-defined-function translated source (in FunctionSection order) and
// the signature catalogue populated while translating them.
type Input struct {
	Module    *wasm.Module
	Functions []string
	Sigs      *wazeroir.SignatureCache
}

// Finalize renders the complete emitted artifact: a single host-language
// function definition implementing `(ambient, stdlib, imports) ->
// exports`.
func Finalize(in Input) (string, error) {
	m := in.Module
	var b strings.Builder

	b.WriteString("function instantiate(ambient, stdlib, imports) {\n")
	b.WriteString("  \"use strict\";\n")
	writeRuntimeAliases(&b)
	writeImportedGlobals(&b, m)
	writeTableAndMemory(&b, m)
	writeSignatureHelpers(&b, in.Sigs)
	writeMemoryAccessHelpers(&b, m)

	b.WriteString("\n  function __functionPack() {\n")
	for _, src := range in.Functions {
		writeIndented(&b, src, 4)
	}
	writeFunctionPackReturn(&b, m)
	b.WriteString("  }\n")
	b.WriteString("  var __funcs = __functionPack();\n")
	writeSignatureTags(&b, m, in.Sigs)

	if err := writeElementSegments(&b, m); err != nil {
		return "", err
	}
	if err := writeDataSegments(&b, m); err != nil {
		return "", err
	}
	writeStartCall(&b, m)
	writeExports(&b, m)

	b.WriteString("}\n")
	return b.String(), nil
}

func writeIndented(b *strings.Builder, src string, depth int) {
	prefix := strings.Repeat("  ", depth/2)
	for _, line := range strings.Split(strings.TrimRight(src, "\n"), "\n") {
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// writeRuntimeAliases pulls the host-ambient trap/conversion/i64 helpers
// into local scope once, matching spec.md §4.H's "host-ambient stdlib"
// input and §6's `trap(reason)` callable.
func writeRuntimeAliases(b *strings.Builder) {
	b.WriteString("  var trap = imports.trap || ambient.trap;\n")
	b.WriteString("  var ToF32 = stdlib.ToF32, f32FromBits = stdlib.f32FromBits, f64FromBits = stdlib.f64FromBits;\n")
	b.WriteString("  var f32_reinterpret_i32 = stdlib.f32_reinterpret_i32, f64_reinterpret_i64 = stdlib.f64_reinterpret_i64;\n")
	b.WriteString("  var i32_reinterpret_f32 = stdlib.i32_reinterpret_f32, i64_reinterpret_f64 = stdlib.i64_reinterpret_f64;\n")
	b.WriteString("  var f32_min = stdlib.f32_min, f32_max = stdlib.f32_max, f32_copysign = stdlib.f32_copysign;\n")
	b.WriteString("  var f64_min = stdlib.f64_min, f64_max = stdlib.f64_max, f64_copysign = stdlib.f64_copysign;\n")
	b.WriteString("  var f64_trunc = stdlib.f64_trunc, f64_nearest = stdlib.f64_nearest;\n")
	b.WriteString("  var i32_div_s = stdlib.i32_div_s, i32_div_u = stdlib.i32_div_u, i32_rem_s = stdlib.i32_rem_s, i32_rem_u = stdlib.i32_rem_u;\n")
	b.WriteString("  var i32_ctz = stdlib.i32_ctz, i32_popcnt = stdlib.i32_popcnt, i32_rotl = stdlib.i32_rotl, i32_rotr = stdlib.i32_rotr;\n")
	b.WriteString("  var i64_const = stdlib.i64_const, i64_low = stdlib.i64_low, i64_high = stdlib.i64_high, i64_eqz = stdlib.i64_eqz;\n")
	for _, name := range []string{"add", "sub", "mul", "and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr",
		"div_s", "div_u", "rem_s", "rem_u", "clz", "ctz", "popcnt", "extend_s", "extend_u"} {
		b.WriteString(fmt.Sprintf("  var i64_%s = stdlib.i64_%s;\n", name, name))
	}
	for _, name := range []string{"eq", "ne", "lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u"} {
		b.WriteString(fmt.Sprintf("  var i64_%s = stdlib.i64_%s;\n", name, name))
	}
	b.WriteString("  var i64_to_f64_s = stdlib.i64_to_f64_s, i64_to_f64_u = stdlib.i64_to_f64_u;\n")
	for _, name := range []string{"i32_trunc_s_f32", "i32_trunc_u_f32", "i32_trunc_s_f64", "i32_trunc_u_f64",
		"i64_trunc_s_f32", "i64_trunc_u_f32", "i64_trunc_s_f64", "i64_trunc_u_f64"} {
		b.WriteString(fmt.Sprintf("  var %s = stdlib.%s;\n", name, name))
	}
	b.WriteString("  var mem_size = function() { return (M0.buffer.byteLength / ")
	b.WriteString(fmt.Sprintf("%d", wasm.PageSize))
	b.WriteString(") | 0; };\n")
	b.WriteString("  var mem_grow = function(delta) { return stdlib.mem_grow(M0, delta); };\n")
}

func writeImportedGlobals(b *strings.Builder, m *wasm.Module) {
	i := uint32(0)
	for _, im := range m.ImportSection {
		if im.Kind != wasm.ExternalKindGlobal {
			continue
		}
		b.WriteString(fmt.Sprintf("  var G%d = { value: imports.G%d };\n", i, i))
		i++
	}
	defIdx := m.ImportedGlobalCount()
	for _, g := range m.GlobalSection {
		b.WriteString(fmt.Sprintf("  var G%d = { value: %s };\n", defIdx, initExprJS(g.Init)))
		defIdx++
	}
}

func initExprJS(c wasm.ConstExpr) string {
	switch c.Opcode {
	case wasm.ConstOpcodeI32Const:
		return fmt.Sprintf("%d", c.I32Value)
	case wasm.ConstOpcodeI64Const:
		return fmt.Sprintf("i64_const(%d, %d)", int32(c.I64Value), int32(c.I64Value>>32))
	case wasm.ConstOpcodeF32Const:
		return fmt.Sprintf("f32FromBits(0x%x)", c.F32Value)
	case wasm.ConstOpcodeF64Const:
		return fmt.Sprintf("f64FromBits(0x%x)", c.F64Value)
	case wasm.ConstOpcodeGetGlobal:
		return fmt.Sprintf("G%d.value", c.GlobalIndex)
	default:
		return "0"
	}
}

func writeTableAndMemory(b *strings.Builder, m *wasm.Module) {
	if m.HasTable() {
		if m.ImportedTableCount() > 0 {
			b.WriteString("  var T0 = imports.T0;\n")
		} else {
			tt := m.TableSection[0]
			b.WriteString(fmt.Sprintf("  var T0 = stdlib.newTable(%d, %s);\n", tt.Limits.Initial, limitMax(tt.Limits)))
		}
	}
	if m.HasMemory() {
		if m.ImportedMemoryCount() > 0 {
			b.WriteString("  var M0 = imports.M0;\n")
		} else {
			mt := m.MemorySection[0]
			b.WriteString(fmt.Sprintf("  var M0 = stdlib.newMemory(%d, %s);\n", mt.Limits.Initial, limitMax(mt.Limits)))
		}
	}
}

func limitMax(l wasm.Limits) string {
	if l.Maximum == nil {
		return "null"
	}
	return fmt.Sprintf("%d", *l.Maximum)
}

// writeSignatureHelpers emits one call_<sig> indirect-call helper per
// signature actually used by a call_indirect site (spec.md §4.F, §4.G).
func writeSignatureHelpers(b *strings.Builder, sigs *wazeroir.SignatureCache) {
	for _, sig := range sigs.RequiredHelpers() {
		args := make([]string, len(sig.Params))
		for i := range sig.Params {
			args[i] = fmt.Sprintf("a%d", i)
		}
		argList := strings.Join(args, ", ")
		fname := sig.HelperName()
		b.WriteString(fmt.Sprintf("  function %s(idx%s%s) {\n", fname, commaIf(argList), argList))
		b.WriteString("    var fn = T0._get(idx);\n")
		b.WriteString("    if (!fn) { trap(\"call_indirect: null or out-of-range table entry\"); }\n")
		b.WriteString(fmt.Sprintf("    if (fn.__sig !== %q) { trap(\"call_indirect: signature mismatch\"); }\n", sig.Key))
		b.WriteString(fmt.Sprintf("    return fn(%s);\n", argList))
		b.WriteString("  }\n")
	}
}

func commaIf(s string) string {
	if s == "" {
		return ""
	}
	return ", "
}

// writeMemoryAccessHelpers emits mem_check (the shared bounds-check every
// load/store helper below calls first) plus, per width, an aligned-fast-path
// helper over a typed-array view and a "_u" generic helper over a DataView
// that works at any alignment (spec.md §4.G: "Before access, emit a runtime
// bounds check ... Aligned fast paths use typed views; unaligned or
// hint-too-small paths use the generic helpers"). internal/wazeroir's
// stepMemory picks between the two per call site by comparing the decoded
// alignment hint against the access's natural alignment; both are defined
// here, once per module, rather than inline at every call site, the same
// way writeSignatureHelpers defines one call_<sig> per signature rather
// than inlining the table/signature check at every call_indirect site.
func writeMemoryAccessHelpers(b *strings.Builder, m *wasm.Module) {
	if !m.HasMemory() {
		return
	}
	b.WriteString("  function mem_check(addr, off, size) {\n")
	b.WriteString("    var p = (addr>>>0) + off;\n")
	b.WriteString("    if (p < 0 || p + size > M0.buffer.byteLength) { trap(\"out of bounds memory access\"); }\n")
	b.WriteString("    return p;\n")
	b.WriteString("  }\n")

	writeScalarAccessHelpers(b)
	writeI64AccessHelpers(b)
}

// scalarWidth describes one non-i64 load/store width: its byte size, typed
// array constructor for the aligned path, and DataView accessor suffix
// (e.g. "Int32") for the generic path.
type scalarWidth struct {
	suffix    string
	size      int
	view      string
	dataView  string
	unaligned bool // false for byte widths, which have no natural-alignment gap
}

func writeScalarAccessHelpers(b *strings.Builder) {
	loads := []scalarWidth{
		{"i32", 4, "Int32Array", "Int32", true},
		{"i32_8s", 1, "Int8Array", "Int8", false},
		{"i32_8u", 1, "Uint8Array", "Uint8", false},
		{"i32_16s", 2, "Int16Array", "Int16", true},
		{"i32_16u", 2, "Uint16Array", "Uint16", true},
		{"f32", 4, "Float32Array", "Float32", true},
		{"f64", 8, "Float64Array", "Float64", true},
	}
	for _, w := range loads {
		fname := "mem_load_" + w.suffix
		b.WriteString(fmt.Sprintf("  function %s(addr, off) {\n", fname))
		b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
		b.WriteString(fmt.Sprintf("    return new %s(M0.buffer, p, 1)[0];\n", w.view))
		b.WriteString("  }\n")
		if w.unaligned {
			b.WriteString(fmt.Sprintf("  function %s_u(addr, off) {\n", fname))
			b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
			b.WriteString(fmt.Sprintf("    return new DataView(M0.buffer).get%s(p, true);\n", w.dataView))
			b.WriteString("  }\n")
		}
	}

	stores := []scalarWidth{
		{"i32", 4, "Int32Array", "Int32", true},
		{"i32_8", 1, "Uint8Array", "Uint8", false},
		{"i32_16", 2, "Int16Array", "Int16", true},
		{"f32", 4, "Float32Array", "Float32", true},
		{"f64", 8, "Float64Array", "Float64", true},
	}
	for _, w := range stores {
		fname := "mem_store_" + w.suffix
		b.WriteString(fmt.Sprintf("  function %s(addr, off, v) {\n", fname))
		b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
		b.WriteString(fmt.Sprintf("    new %s(M0.buffer, p, 1)[0] = v;\n", w.view))
		b.WriteString("  }\n")
		if w.unaligned {
			b.WriteString(fmt.Sprintf("  function %s_u(addr, off, v) {\n", fname))
			b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
			b.WriteString(fmt.Sprintf("    new DataView(M0.buffer).set%s(p, v, true);\n", w.dataView))
			b.WriteString("  }\n")
		}
	}
}

// writeI64AccessHelpers emits the i64 load/store family. Every i64 value
// crossing into or out of linear memory is split into (or built from) two
// 32-bit halves via the host's i64_const/i64_low/i64_high, matching how
// internal/wazeroir's numeric lowering represents I64 everywhere else
// (spec.md §4.G "I64 via a Long-like helper object").
func writeI64AccessHelpers(b *strings.Builder) {
	type i64Width struct {
		suffix    string
		size      int
		view      string
		dataView  string
		unaligned bool
		extend    string // "" for the full 64-bit load, else the sign/zero-extend test
	}
	loads := []i64Width{
		{"i64", 8, "", "", false, ""},
		{"i64_8s", 1, "Int8Array", "Int8", false, "s"},
		{"i64_8u", 1, "Uint8Array", "Uint8", false, "u"},
		{"i64_16s", 2, "Int16Array", "Int16", true, "s"},
		{"i64_16u", 2, "Uint16Array", "Uint16", true, "u"},
		{"i64_32s", 4, "Int32Array", "Int32", true, "s"},
		{"i64_32u", 4, "Uint32Array", "Uint32", true, "u"},
	}
	for _, w := range loads {
		fname := "mem_load_" + w.suffix
		if w.suffix == "i64" {
			b.WriteString(fmt.Sprintf("  function %s(addr, off) {\n", fname))
			b.WriteString("    var p = mem_check(addr, off, 8);\n")
			b.WriteString("    var v = new Int32Array(M0.buffer, p, 2);\n")
			b.WriteString("    return i64_const(v[0], v[1]);\n")
			b.WriteString("  }\n")
			b.WriteString(fmt.Sprintf("  function %s_u(addr, off) {\n", fname))
			b.WriteString("    var p = mem_check(addr, off, 8);\n")
			b.WriteString("    var dv = new DataView(M0.buffer);\n")
			b.WriteString("    return i64_const(dv.getInt32(p, true), dv.getInt32(p + 4, true));\n")
			b.WriteString("  }\n")
			continue
		}
		ext := "0"
		if w.extend == "s" {
			ext = "(v < 0 ? -1 : 0)"
		}
		b.WriteString(fmt.Sprintf("  function %s(addr, off) {\n", fname))
		b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
		b.WriteString(fmt.Sprintf("    var v = new %s(M0.buffer, p, 1)[0];\n", w.view))
		b.WriteString(fmt.Sprintf("    return i64_const(v, %s);\n", ext))
		b.WriteString("  }\n")
		if w.unaligned {
			b.WriteString(fmt.Sprintf("  function %s_u(addr, off) {\n", fname))
			b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
			b.WriteString(fmt.Sprintf("    var v = new DataView(M0.buffer).get%s(p, true);\n", w.dataView))
			b.WriteString(fmt.Sprintf("    return i64_const(v, %s);\n", ext))
			b.WriteString("  }\n")
		}
	}

	stores := []i64Width{
		{"i64", 8, "", "", false, ""},
		{"i64_8", 1, "Uint8Array", "Uint8", false, ""},
		{"i64_16", 2, "Int16Array", "Int16", true, ""},
		{"i64_32", 4, "Int32Array", "Int32", true, ""},
	}
	for _, w := range stores {
		fname := "mem_store_" + w.suffix
		if w.suffix == "i64" {
			b.WriteString(fmt.Sprintf("  function %s(addr, off, v) {\n", fname))
			b.WriteString("    var p = mem_check(addr, off, 8);\n")
			b.WriteString("    var a = new Int32Array(M0.buffer, p, 2);\n")
			b.WriteString("    a[0] = i64_low(v);\n")
			b.WriteString("    a[1] = i64_high(v);\n")
			b.WriteString("  }\n")
			b.WriteString(fmt.Sprintf("  function %s_u(addr, off, v) {\n", fname))
			b.WriteString("    var p = mem_check(addr, off, 8);\n")
			b.WriteString("    var dv = new DataView(M0.buffer);\n")
			b.WriteString("    dv.setInt32(p, i64_low(v), true);\n")
			b.WriteString("    dv.setInt32(p + 4, i64_high(v), true);\n")
			b.WriteString("  }\n")
			continue
		}
		b.WriteString(fmt.Sprintf("  function %s(addr, off, v) {\n", fname))
		b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
		b.WriteString(fmt.Sprintf("    new %s(M0.buffer, p, 1)[0] = i64_low(v);\n", w.view))
		b.WriteString("  }\n")
		if w.unaligned {
			b.WriteString(fmt.Sprintf("  function %s_u(addr, off, v) {\n", fname))
			b.WriteString(fmt.Sprintf("    var p = mem_check(addr, off, %d);\n", w.size))
			b.WriteString(fmt.Sprintf("    new DataView(M0.buffer).set%s(p, i64_low(v), true);\n", w.dataView))
			b.WriteString("  }\n")
		}
	}
}

func writeFunctionPackReturn(b *strings.Builder, m *wasm.Module) {
	imported := m.ImportedFunctionCount()
	fields := make([]string, 0, len(m.FunctionSection))
	for i := range m.FunctionSection {
		idx := imported + uint32(i)
		fields = append(fields, fmt.Sprintf("F%d: F%d", idx, idx))
	}
	b.WriteString(fmt.Sprintf("    return {%s};\n", strings.Join(fields, ", ")))
}

// writeSignatureTags binds each imported function (passed straight
// through from `imports`) and each defined function (from
// `__functionPack`'s return) to a module-scope `F<i>` name, and tags every
// function value with its WASM signature string so call_<sig> helpers can
// check it at indirect-call time (spec.md §4.F "host tags its wrapper
// with its signature string").
func writeSignatureTags(b *strings.Builder, m *wasm.Module, sigs *wazeroir.SignatureCache) {
	i := uint32(0)
	for _, im := range m.ImportSection {
		if im.Kind != wasm.ExternalKindFunction {
			continue
		}
		sig := m.TypeSection[im.TypeIndex]
		b.WriteString(fmt.Sprintf("  var F%d = imports.F%d;\n", i, i))
		b.WriteString(fmt.Sprintf("  F%d.__sig = %q;\n", i, wazeroir.SigString(sig)))
		i++
	}
	imported := m.ImportedFunctionCount()
	for idx := range m.FunctionSection {
		fi := imported + uint32(idx)
		sig := m.FunctionSignature(fi)
		b.WriteString(fmt.Sprintf("  var F%d = __funcs.F%d;\n", fi, fi))
		b.WriteString(fmt.Sprintf("  F%d.__sig = %q;\n", fi, wazeroir.SigString(sig)))
	}
}

func writeElementSegments(b *strings.Builder, m *wasm.Module) error {
	for _, seg := range m.ElementSection {
		offset := initExprJS(seg.Offset)
		for start := 0; start < len(seg.Init); start += chunkSize {
			end := start + chunkSize
			if end > len(seg.Init) {
				end = len(seg.Init)
			}
			names := make([]string, end-start)
			for i, fidx := range seg.Init[start:end] {
				names[i] = fmt.Sprintf("F%d", fidx)
			}
			b.WriteString(fmt.Sprintf("  T0._setmany((%s) + %d, [%s]);\n", offset, start, strings.Join(names, ", ")))
		}
	}
	return nil
}

func writeDataSegments(b *strings.Builder, m *wasm.Module) error {
	for _, seg := range m.DataSection {
		offset := initExprJS(seg.Offset)
		for start := 0; start < len(seg.Init); start += chunkSize {
			end := start + chunkSize
			if end > len(seg.Init) {
				end = len(seg.Init)
			}
			chunk := seg.Init[start:end]
			lits := make([]string, len(chunk))
			for i, by := range chunk {
				lits[i] = fmt.Sprintf("%d", by)
			}
			b.WriteString(fmt.Sprintf("  stdlib.mem_write_bytes(M0, (%s) + %d, [%s]);\n", offset, start, strings.Join(lits, ", ")))
		}
	}
	return nil
}

func writeStartCall(b *strings.Builder, m *wasm.Module) {
	if m.StartSection == nil {
		return
	}
	if name, ok := m.FunctionNames[*m.StartSection]; ok {
		b.WriteString(fmt.Sprintf("  // start: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("  F%d();\n", *m.StartSection))
}

func writeExports(b *strings.Builder, m *wasm.Module) {
	fields := make([]string, 0, len(m.ExportSection))
	for _, ex := range m.ExportSection {
		var ref string
		switch ex.Kind {
		case wasm.ExternalKindFunction:
			ref = fmt.Sprintf("F%d", ex.Index)
			if name, ok := m.FunctionNames[ex.Index]; ok {
				b.WriteString(fmt.Sprintf("  // %s: %s\n", ex.Name, name))
			}
		case wasm.ExternalKindGlobal:
			ref = fmt.Sprintf("G%d", ex.Index)
		case wasm.ExternalKindTable:
			ref = "T0"
		case wasm.ExternalKindMemory:
			ref = "M0"
		}
		fields = append(fields, fmt.Sprintf("%q: %s", ex.Name, ref))
	}
	b.WriteString(fmt.Sprintf("  return {%s};\n", strings.Join(fields, ", ")))
}
