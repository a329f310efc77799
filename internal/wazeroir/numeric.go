package wazeroir

import (
	"fmt"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// i32BinOp/i32CmpOp/... tables translate a numeric opcode straight into a
// JS expression template with %s placeholders for its operands
// (spec.md §4.G "numeric opcode lowering"). i32 arithmetic results are
// wrapped with `|0` to force the two's-complement 32-bit truncation JS's
// own Number type does not give for free; comparisons use `>>>0` on their
// operands first when the opcode is the unsigned flavour.
var i32BinOpExpr = map[wasm.Opcode]string{
	wasm.OpI32Add:  "(%s + %s)|0",
	wasm.OpI32Sub:  "(%s - %s)|0",
	wasm.OpI32Mul:  "Math.imul(%s, %s)|0",
	wasm.OpI32And:  "(%s & %s)|0",
	wasm.OpI32Or:   "(%s | %s)|0",
	wasm.OpI32Xor:  "(%s ^ %s)|0",
	wasm.OpI32Shl:  "(%s << (%s & 31))|0",
	wasm.OpI32ShrS: "(%s >> (%s & 31))|0",
	wasm.OpI32ShrU: "(%s >>> (%s & 31))|0",
}

var i32CmpOpExpr = map[wasm.Opcode]string{
	wasm.OpI32Eq:  "(%s === %s)|0",
	wasm.OpI32Ne:  "(%s !== %s)|0",
	wasm.OpI32LtS: "(%s < %s)|0",
	wasm.OpI32LtU: "((%s>>>0) < (%s>>>0))|0",
	wasm.OpI32GtS: "(%s > %s)|0",
	wasm.OpI32GtU: "((%s>>>0) > (%s>>>0))|0",
	wasm.OpI32LeS: "(%s <= %s)|0",
	wasm.OpI32LeU: "((%s>>>0) <= (%s>>>0))|0",
	wasm.OpI32GeS: "(%s >= %s)|0",
	wasm.OpI32GeU: "((%s>>>0) >= (%s>>>0))|0",
}

var f32BinOpExpr = map[wasm.Opcode]string{
	wasm.OpF32Add: "ToF32(%s + %s)",
	wasm.OpF32Sub: "ToF32(%s - %s)",
	wasm.OpF32Mul: "ToF32(%s * %s)",
	wasm.OpF32Div: "ToF32(%s / %s)",
	wasm.OpF32Min: "f32_min(%s, %s)",
	wasm.OpF32Max: "f32_max(%s, %s)",
	wasm.OpF32Copysign: "f32_copysign(%s, %s)",
}

var f64BinOpExpr = map[wasm.Opcode]string{
	wasm.OpF64Add: "(%s + %s)",
	wasm.OpF64Sub: "(%s - %s)",
	wasm.OpF64Mul: "(%s * %s)",
	wasm.OpF64Div: "(%s / %s)",
	wasm.OpF64Min: "f64_min(%s, %s)",
	wasm.OpF64Max: "f64_max(%s, %s)",
	wasm.OpF64Copysign: "f64_copysign(%s, %s)",
}

var floatCmpExpr = map[wasm.Opcode]string{
	wasm.OpF32Eq: "(%s === %s)|0", wasm.OpF64Eq: "(%s === %s)|0",
	wasm.OpF32Ne: "(%s !== %s)|0", wasm.OpF64Ne: "(%s !== %s)|0",
	wasm.OpF32Lt: "(%s < %s)|0", wasm.OpF64Lt: "(%s < %s)|0",
	wasm.OpF32Gt: "(%s > %s)|0", wasm.OpF64Gt: "(%s > %s)|0",
	wasm.OpF32Le: "(%s <= %s)|0", wasm.OpF64Le: "(%s <= %s)|0",
	wasm.OpF32Ge: "(%s >= %s)|0", wasm.OpF64Ge: "(%s >= %s)|0",
}

var f32UnOpExpr = map[wasm.Opcode]string{
	wasm.OpF32Abs: "ToF32(Math.abs(%s))", wasm.OpF32Neg: "ToF32(-%s)",
	wasm.OpF32Ceil: "ToF32(Math.ceil(%s))", wasm.OpF32Floor: "ToF32(Math.floor(%s))",
	wasm.OpF32Trunc: "ToF32(f64_trunc(%s))", wasm.OpF32Nearest: "ToF32(f64_nearest(%s))",
	wasm.OpF32Sqrt: "ToF32(Math.sqrt(%s))",
}

var f64UnOpExpr = map[wasm.Opcode]string{
	wasm.OpF64Abs: "Math.abs(%s)", wasm.OpF64Neg: "(-%s)",
	wasm.OpF64Ceil: "Math.ceil(%s)", wasm.OpF64Floor: "Math.floor(%s)",
	wasm.OpF64Trunc: "f64_trunc(%s)", wasm.OpF64Nearest: "f64_nearest(%s)",
	wasm.OpF64Sqrt: "Math.sqrt(%s)",
}

// i64BinOpHelper names the i64 helper function for the opcode (spec.md
// §4.G "I64 via a Long-like helper object"): all 64-bit arithmetic is
// delegated, since JS numbers cannot represent the full 64-bit range
// losslessly.
var i64BinOpHelper = map[wasm.Opcode]string{
	wasm.OpI64Add: "i64_add", wasm.OpI64Sub: "i64_sub", wasm.OpI64Mul: "i64_mul",
	wasm.OpI64And: "i64_and", wasm.OpI64Or: "i64_or", wasm.OpI64Xor: "i64_xor",
	wasm.OpI64Shl: "i64_shl", wasm.OpI64ShrS: "i64_shr_s", wasm.OpI64ShrU: "i64_shr_u",
	wasm.OpI64Rotl: "i64_rotl", wasm.OpI64Rotr: "i64_rotr",
}

var i64CmpHelper = map[wasm.Opcode]string{
	wasm.OpI64Eq: "i64_eq", wasm.OpI64Ne: "i64_ne",
	wasm.OpI64LtS: "i64_lt_s", wasm.OpI64LtU: "i64_lt_u",
	wasm.OpI64GtS: "i64_gt_s", wasm.OpI64GtU: "i64_gt_u",
	wasm.OpI64LeS: "i64_le_s", wasm.OpI64LeU: "i64_le_u",
	wasm.OpI64GeS: "i64_ge_s", wasm.OpI64GeU: "i64_ge_u",
}

func (t *FuncTranslator) stepNumericOrMemory(op wasm.Opcode) error {
	switch {
	case op == wasm.OpI32Eqz:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeI32, "(%s === 0)|0")
	case op == wasm.OpI64Eqz:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeI32, "i64_eqz(%s)")

	case i32BinOpExpr[op] != "":
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, i32BinOpExpr[op])
	case i32CmpOpExpr[op] != "":
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, i32CmpOpExpr[op])
	case op == wasm.OpI32DivS:
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_div_s(%s, %s)")
	case op == wasm.OpI32DivU:
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_div_u(%s, %s)")
	case op == wasm.OpI32RemS:
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_rem_s(%s, %s)")
	case op == wasm.OpI32RemU:
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_rem_u(%s, %s)")
	case op == wasm.OpI32Clz:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeI32, "Math.clz32(%s)|0")
	case op == wasm.OpI32Ctz:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_ctz(%s)")
	case op == wasm.OpI32Popcnt:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_popcnt(%s)")
	case op == wasm.OpI32Rotl:
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_rotl(%s, %s)")
	case op == wasm.OpI32Rotr:
		return t.binary(wasm.ValueTypeI32, wasm.ValueTypeI32, "i32_rotr(%s, %s)")

	case i64BinOpHelper[op] != "":
		return t.binary(wasm.ValueTypeI64, wasm.ValueTypeI64, i64BinOpHelper[op]+"(%s, %s)")
	case i64CmpHelper[op] != "":
		return t.binary(wasm.ValueTypeI64, wasm.ValueTypeI32, i64CmpHelper[op]+"(%s, %s)")
	case op == wasm.OpI64DivS:
		return t.binary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_div_s(%s, %s)")
	case op == wasm.OpI64DivU:
		return t.binary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_div_u(%s, %s)")
	case op == wasm.OpI64RemS:
		return t.binary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_rem_s(%s, %s)")
	case op == wasm.OpI64RemU:
		return t.binary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_rem_u(%s, %s)")
	case op == wasm.OpI64Clz:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_clz(%s)")
	case op == wasm.OpI64Ctz:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_ctz(%s)")
	case op == wasm.OpI64Popcnt:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeI64, "i64_popcnt(%s)")

	case f32BinOpExpr[op] != "":
		return t.binary(wasm.ValueTypeF32, wasm.ValueTypeF32, f32BinOpExpr[op])
	case f64BinOpExpr[op] != "":
		return t.binary(wasm.ValueTypeF64, wasm.ValueTypeF64, f64BinOpExpr[op])
	case floatCmpExpr[op] != "":
		typ := wasm.ValueTypeF32
		if op >= wasm.OpF64Eq && op <= wasm.OpF64Ge {
			typ = wasm.ValueTypeF64
		}
		return t.binary(typ, wasm.ValueTypeI32, floatCmpExpr[op])
	case f32UnOpExpr[op] != "":
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeF32, f32UnOpExpr[op])
	case f64UnOpExpr[op] != "":
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeF64, f64UnOpExpr[op])

	case op == wasm.OpI32WrapI64:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeI32, "i64_low(%s)|0")
	case op == wasm.OpI64ExtendSI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeI64, "i64_extend_s(%s)")
	case op == wasm.OpI64ExtendUI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeI64, "i64_extend_u(%s)")

	case op == wasm.OpI32TruncSF32:
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeI32, "i32_trunc_s_f32(%s)")
	case op == wasm.OpI32TruncUF32:
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeI32, "i32_trunc_u_f32(%s)")
	case op == wasm.OpI32TruncSF64:
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeI32, "i32_trunc_s_f64(%s)")
	case op == wasm.OpI32TruncUF64:
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeI32, "i32_trunc_u_f64(%s)")
	case op == wasm.OpI64TruncSF32:
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeI64, "i64_trunc_s_f32(%s)")
	case op == wasm.OpI64TruncUF32:
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeI64, "i64_trunc_u_f32(%s)")
	case op == wasm.OpI64TruncSF64:
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeI64, "i64_trunc_s_f64(%s)")
	case op == wasm.OpI64TruncUF64:
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeI64, "i64_trunc_u_f64(%s)")

	case op == wasm.OpF32ConvertSI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeF32, "ToF32(%s)")
	case op == wasm.OpF32ConvertUI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeF32, "ToF32(%s>>>0)")
	case op == wasm.OpF32ConvertSI64:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeF32, "ToF32(i64_to_f64_s(%s))")
	case op == wasm.OpF32ConvertUI64:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeF32, "ToF32(i64_to_f64_u(%s))")
	case op == wasm.OpF32DemoteF64:
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeF32, "ToF32(%s)")
	case op == wasm.OpF64ConvertSI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeF64, "(%s)")
	case op == wasm.OpF64ConvertUI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeF64, "(%s>>>0)")
	case op == wasm.OpF64ConvertSI64:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeF64, "i64_to_f64_s(%s)")
	case op == wasm.OpF64ConvertUI64:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeF64, "i64_to_f64_u(%s)")
	case op == wasm.OpF64PromoteF32:
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeF64, "(%s)")

	case op == wasm.OpI32ReinterpretF32:
		return t.unary(wasm.ValueTypeF32, wasm.ValueTypeI32, "i32_reinterpret_f32(%s)")
	case op == wasm.OpI64ReinterpretF64:
		return t.unary(wasm.ValueTypeF64, wasm.ValueTypeI64, "i64_reinterpret_f64(%s)")
	case op == wasm.OpF32ReinterpretI32:
		return t.unary(wasm.ValueTypeI32, wasm.ValueTypeF32, "f32_reinterpret_i32(%s)")
	case op == wasm.OpF64ReinterpretI64:
		return t.unary(wasm.ValueTypeI64, wasm.ValueTypeF64, "f64_reinterpret_i64(%s)")
	}

	if isMemoryOpcode(op) {
		return t.stepMemory(op)
	}
	return wasm.Decodef("unrecognised or unsupported opcode %#x", byte(op))
}

// binary pops two operands of inType, formats expr (a %s %s template) and
// pushes its result of outType.
func (t *FuncTranslator) binary(inType, outType wasm.ValueType, expr string) error {
	b, err := t.popExpect(inType)
	if err != nil {
		return err
	}
	a, err := t.popExpect(inType)
	if err != nil {
		return err
	}
	r := t.push(outType)
	t.emit(fmt.Sprintf("%s = %s;", r.text(), fmt.Sprintf(expr, a.text(), b.text())))
	return nil
}

// unary pops one operand of inType, formats expr (a single %s template) and
// pushes its result of outType.
func (t *FuncTranslator) unary(inType, outType wasm.ValueType, expr string) error {
	a, err := t.popExpect(inType)
	if err != nil {
		return err
	}
	r := t.push(outType)
	t.emit(fmt.Sprintf("%s = %s;", r.text(), fmt.Sprintf(expr, a.text())))
	return nil
}
