package wasm

// Module is the decoded, section-by-section representation of a WASM
// binary (spec.md §3 ParseResult, minus the translator's own emitted-code
// buffer and counters, which live in internal/wazeroir and internal/hostjs
// respectively).
//
// Index spaces (function, table, memory, global) are imports-first: slot 0
// of each space is the first import of that kind, if any, followed by the
// module's own definitions, contiguous. Helper methods below resolve a
// logical index against that layout without the caller needing to know the
// import/definition split.
type Module struct {
	TypeSection     []*FunctionType
	ImportSection   []*Import
	FunctionSection []uint32 // type index per defined function
	TableSection    []*TableType
	MemorySection   []*MemoryType
	GlobalSection   []*Global
	ExportSection   []*Export
	StartSection    *uint32
	ElementSection  []*ElementSegment
	CodeSection     []*Code
	DataSection     []*DataSegment

	// FunctionNames is populated best-effort from a well-formed custom
	// "name" section's function-name subsection (SPEC_FULL.md §3). Absent
	// or malformed name data is never fatal; see internal/binary/namesec.go.
	FunctionNames map[uint32]string
}

// ImportedFunctionCount returns how many function-kind imports precede the
// module's own defined functions in the function index space.
func (m *Module) ImportedFunctionCount() uint32 {
	var n uint32
	for _, im := range m.ImportSection {
		if im.Kind == ExternalKindFunction {
			n++
		}
	}
	return n
}

// ImportedGlobalCount returns how many global-kind imports precede the
// module's own defined globals in the global index space.
func (m *Module) ImportedGlobalCount() uint32 {
	var n uint32
	for _, im := range m.ImportSection {
		if im.Kind == ExternalKindGlobal {
			n++
		}
	}
	return n
}

// ImportedTableCount and ImportedMemoryCount are always 0 or 1 in the MVP
// (at most one table, at most one memory, spec.md §3), but are expressed as
// counts for symmetry with the other index spaces.
func (m *Module) ImportedTableCount() uint32 {
	var n uint32
	for _, im := range m.ImportSection {
		if im.Kind == ExternalKindTable {
			n++
		}
	}
	return n
}

func (m *Module) ImportedMemoryCount() uint32 {
	var n uint32
	for _, im := range m.ImportSection {
		if im.Kind == ExternalKindMemory {
			n++
		}
	}
	return n
}

// NumFunctions is the total size of the function index space: imports plus
// definitions.
func (m *Module) NumFunctions() uint32 {
	return m.ImportedFunctionCount() + uint32(len(m.FunctionSection))
}

// NumGlobals is the total size of the global index space.
func (m *Module) NumGlobals() uint32 {
	return m.ImportedGlobalCount() + uint32(len(m.GlobalSection))
}

// FunctionTypeIndex resolves logical function index idx (imports-first) to
// its type-section index. ok is false if idx is out of range.
func (m *Module) FunctionTypeIndex(idx uint32) (typeIdx uint32, ok bool) {
	imported := m.ImportedFunctionCount()
	if idx < imported {
		var cur uint32
		for _, im := range m.ImportSection {
			if im.Kind != ExternalKindFunction {
				continue
			}
			if cur == idx {
				return im.TypeIndex, true
			}
			cur++
		}
		return 0, false
	}
	defIdx := idx - imported
	if defIdx >= uint32(len(m.FunctionSection)) {
		return 0, false
	}
	return m.FunctionSection[defIdx], true
}

// FunctionSignature resolves a logical function index straight through to
// its *FunctionType, or nil if idx is out of range or the type index it
// names is out of range.
func (m *Module) FunctionSignature(idx uint32) *FunctionType {
	typeIdx, ok := m.FunctionTypeIndex(idx)
	if !ok || int(typeIdx) >= len(m.TypeSection) {
		return nil
	}
	return m.TypeSection[typeIdx]
}

// GlobalTypeOf resolves logical global index idx to its GlobalType, or nil
// if out of range.
func (m *Module) GlobalTypeOf(idx uint32) *GlobalType {
	imported := m.ImportedGlobalCount()
	if idx < imported {
		var cur uint32
		for _, im := range m.ImportSection {
			if im.Kind != ExternalKindGlobal {
				continue
			}
			if cur == idx {
				return im.Global
			}
			cur++
		}
		return nil
	}
	defIdx := idx - imported
	if defIdx >= uint32(len(m.GlobalSection)) {
		return nil
	}
	return &m.GlobalSection[defIdx].Type
}

// HasTable reports whether the module has a table, imported or defined.
func (m *Module) HasTable() bool {
	return m.ImportedTableCount()+uint32(len(m.TableSection)) > 0
}

// HasMemory reports whether the module has a memory, imported or defined.
func (m *Module) HasMemory() bool {
	return m.ImportedMemoryCount()+uint32(len(m.MemorySection)) > 0
}
