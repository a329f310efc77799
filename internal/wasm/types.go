package wasm

import "fmt"

// ValueType is one of the four WASM MVP numeric types, or one of the two
// pseudo-types used internally by the validator.
//
// The numeric values match the WASM binary encoding (signed LEB128 type
// tags), so a ValueType can be compared directly against a decoded byte.
type ValueType int8

const (
	ValueTypeI32 ValueType = -0x01
	ValueTypeI64 ValueType = -0x02
	ValueTypeF32 ValueType = -0x03
	ValueTypeF64 ValueType = -0x04

	// ValueTypeNone denotes "no result" for a block signature or function
	// result list.
	ValueTypeNone ValueType = -0x40

	// ValueTypeUnknown is never present in the binary; the translator's
	// operand stack uses it to mean "any type", for polymorphic code
	// following unreachable/br/br_table/return.
	ValueTypeUnknown ValueType = 0x7f
)

// AnyFunc and Func are the element-type and type-constructor tags used by
// the table section and the func-type leading byte, respectively.
const (
	RefTypeFuncref ValueType = -0x10
	TypeFuncForm   ValueType = -0x20
)

func (t ValueType) String() string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeNone:
		return "none"
	case ValueTypeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ValueType(%#x)", int8(t))
	}
}

// IsNumeric reports whether t is one of I32/I64/F32/F64.
func (t ValueType) IsNumeric() bool {
	switch t {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64:
		return true
	default:
		return false
	}
}

// FunctionType is an ordered list of parameter types and an ordered list of
// result types. The WASM MVP restricts result count to at most one; see
// FunctionType.Validate.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// Validate enforces the MVP result-count invariant (spec.md §3).
func (ft *FunctionType) Validate() error {
	if len(ft.Results) > 1 {
		return fmt.Errorf("function type has %d results, MVP allows at most 1", len(ft.Results))
	}
	return nil
}

// Equal reports whether ft and other have element-wise identical parameter
// and result lists.
func (ft *FunctionType) Equal(other *FunctionType) bool {
	if other == nil {
		return false
	}
	if len(ft.Params) != len(other.Params) || len(ft.Results) != len(other.Results) {
		return false
	}
	for i, p := range ft.Params {
		if other.Params[i] != p {
			return false
		}
	}
	for i, r := range ft.Results {
		if other.Results[i] != r {
			return false
		}
	}
	return true
}

// ResultType returns the single result type, or ValueTypeNone if there is
// no result.
func (ft *FunctionType) ResultType() ValueType {
	if len(ft.Results) == 0 {
		return ValueTypeNone
	}
	return ft.Results[0]
}

func (ft *FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", ft.Params, ft.Results)
}

// Limits is the (initial, maximum?) pair shared by table and memory
// descriptors (spec.md §3).
type Limits struct {
	Initial uint32
	Maximum *uint32 // nil when absent
}

// Validate enforces initial <= maximum when maximum is present. The
// memory-specific 64Ki-page ceiling is enforced by the memory section
// parser (spec.md §4.C), not here, since it does not apply to tables.
func (l Limits) Validate() error {
	if l.Maximum != nil && *l.Maximum < l.Initial {
		return fmt.Errorf("limits: maximum %d is less than initial %d", *l.Maximum, l.Initial)
	}
	return nil
}

// TableType is (element-type=anyfunc, limits). The MVP has exactly one
// element type, so ElemType is carried only for documentation /
// round-trip symmetry with the binary encoding.
type TableType struct {
	ElemType ValueType
	Limits   Limits
}

// MemoryType is a Limits pair expressed in 64KiB pages.
type MemoryType struct {
	Limits Limits
}

// MaxMemoryPages is the hard WASM MVP ceiling: 4GiB / 64KiB.
const MaxMemoryPages = 65536

// PageSize is 64KiB, the unit of WASM linear memory growth.
const PageSize = 65536

// GlobalType is (content-type, mutability).
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ExternalKind distinguishes the four importable/exportable item kinds.
type ExternalKind byte

const (
	ExternalKindFunction ExternalKind = 0x00
	ExternalKindTable    ExternalKind = 0x01
	ExternalKindMemory   ExternalKind = 0x02
	ExternalKindGlobal   ExternalKind = 0x03
)

func (k ExternalKind) String() string {
	switch k {
	case ExternalKindFunction:
		return "func"
	case ExternalKindTable:
		return "table"
	case ExternalKindMemory:
		return "memory"
	case ExternalKindGlobal:
		return "global"
	default:
		return fmt.Sprintf("ExternalKind(%#x)", byte(k))
	}
}

// Import is a single import-section entry (spec.md §3).
type Import struct {
	Module string
	Name   string
	Kind   ExternalKind

	// Exactly one of the following is populated, selected by Kind.
	TypeIndex  uint32 // ExternalKindFunction
	Table      *TableType
	Memory     *MemoryType
	Global     *GlobalType
}

// Export is a single export-section entry (spec.md §3).
type Export struct {
	Name  string
	Kind  ExternalKind
	Index uint32
}

// Global is a defined (non-imported) global: its declared type plus its
// constant initializer.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// ConstExpr is a decoded init-expression (spec.md §3, §4.D): one constant
// opcode and its operand.
type ConstExpr struct {
	Opcode ConstOpcode
	// Exactly one of these is meaningful, selected by Opcode.
	I32Value    int32
	I64Value    int64
	F32Value    uint32 // raw IEEE-754 bit pattern, to preserve NaN payload
	F64Value    uint64
	GlobalIndex uint32
}

// ConstOpcode enumerates the opcodes legal inside an init-expression.
type ConstOpcode byte

const (
	ConstOpcodeI32Const ConstOpcode = 0x41
	ConstOpcodeI64Const ConstOpcode = 0x42
	ConstOpcodeF32Const ConstOpcode = 0x43
	ConstOpcodeF64Const ConstOpcode = 0x44
	ConstOpcodeGetGlobal ConstOpcode = 0x23
)

// ElementSegment initializes a contiguous range of the (sole) table with
// function indices (spec.md §3).
type ElementSegment struct {
	TableIndex uint32 // always 0 in the MVP
	Offset     ConstExpr
	Init       []uint32 // function indices
}

// DataSegment initializes a contiguous byte range of the (sole) memory
// (spec.md §3).
type DataSegment struct {
	MemoryIndex uint32 // always 0 in the MVP
	Offset      ConstExpr
	Init        []byte
}

// Code is one code-section entry: a function's locals declaration plus its
// raw opcode-stream body.
type Code struct {
	Locals []LocalEntry
	Body   []byte
}

// LocalEntry is a run-length encoded group of same-typed locals.
type LocalEntry struct {
	Count uint32
	Type  ValueType
}

// NumLocals returns the total number of locals this Code declares
// (excluding parameters, which are not part of the code section).
func (c *Code) NumLocals() uint32 {
	var n uint32
	for _, e := range c.Locals {
		n += e.Count
	}
	return n
}
