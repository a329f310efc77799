// Package wazeroir implements the single-pass function-body translator
// (spec.md §4.E-G, "the core of the core"): it decodes one function's
// opcode stream and, in the same pass, emits the equivalent host-language
// (JavaScript) statements, validating WASM MVP type-stack and
// control-flow rules as it goes. There is no separate intermediate
// representation: the "IR" is the pair of line buffers described by
// Component E.
package wazeroir

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rfk/wasm-polyfill-sub001/internal/tracelog"
	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// FuncTranslator translates one function's body, from raw opcode bytes to
// host-language source text.
type FuncTranslator struct {
	module  *wasm.Module
	sigs    *SignatureCache
	funcIdx uint32
	sig     *wasm.FunctionType
	locals  []wasm.ValueType // params then declared locals, in WASM local index order
	body    *bodyReader

	header   *buffer
	code     *buffer
	declared map[string]bool

	heights [4]int
	labelN  int
	ctrl    controlStack
	depth   int
}

// NewFuncTranslator prepares the translator state for the defined function
// at logical index funcIdx (spec.md §3 index-space convention: imports
// first).
func NewFuncTranslator(module *wasm.Module, sigs *SignatureCache, funcIdx uint32) (*FuncTranslator, error) {
	sig := module.FunctionSignature(funcIdx)
	if sig == nil {
		return nil, wasm.Validatef("function %d: no signature resolved", funcIdx)
	}
	imported := module.ImportedFunctionCount()
	if funcIdx < imported {
		return nil, wasm.Validatef("function %d: is an import, has no body to translate", funcIdx)
	}
	code := module.CodeSection[funcIdx-imported]

	locals := append([]wasm.ValueType(nil), sig.Params...)
	for _, le := range code.Locals {
		for i := uint32(0); i < le.Count; i++ {
			locals = append(locals, le.Type)
		}
	}

	t := &FuncTranslator{
		module:   module,
		sigs:     sigs,
		funcIdx:  funcIdx,
		sig:      sig,
		locals:   locals,
		body:     newBodyReader(code.Body),
		header:   newBuffer(),
		code:     newBuffer(),
		declared: make(map[string]bool),
	}
	// Parameters are already declared as part of the function signature
	// line rendered by render(); mark them declared up front so a later
	// local.set/local.tee of a parameter index doesn't emit a redundant
	// `var` header line.
	for i, p := range sig.Params {
		t.declared[localName(p, i)] = true
	}
	// Declared (non-parameter) locals default to the zero value of their
	// type (spec.md §3 "Code"/"LocalEntry"); declare and zero-initialize
	// them up front rather than lazily, so a local.get that precedes any
	// local.set still reads the correct default.
	for i := len(sig.Params); i < len(locals); i++ {
		name := localName(locals[i], i)
		t.declared[name] = true
		t.header.line(1, fmt.Sprintf("var %s = %s;", name, zeroValue(locals[i])))
	}
	t.ctrl.push(&frame{kind: ctrlFunction, sig: sig.ResultType()})
	return t, nil
}

// Translate runs the single-pass decode+validate+emit loop over the whole
// function body and returns the complete host-language function source.
func (t *FuncTranslator) Translate() (string, error) {
	tracelog.L().Debugw("translating function", "index", t.funcIdx)
	for t.ctrl.depth() > 0 {
		if t.body.AtEnd() {
			return "", wasm.Decodef("function %d: opcode stream ended before matching `end`", t.funcIdx)
		}
		op, err := t.body.opcode()
		if err != nil {
			return "", err
		}
		if err := t.step(op); err != nil {
			return "", errors.Wrapf(err, "function %d, byte offset %d, opcode %#x", t.funcIdx, t.body.Pos()-1, op)
		}
	}
	if !t.body.AtEnd() {
		return "", wasm.Decodef("function %d: %d trailing bytes after function end", t.funcIdx, t.body.Len())
	}
	return t.render(), nil
}

// render assembles the declared-register header and the translated
// statement body into one JS function definition.
func (t *FuncTranslator) render() string {
	var out buffer
	params := make([]string, len(t.sig.Params))
	for i, p := range t.sig.Params {
		params[i] = localName(p, i)
	}
	comment := fmt.Sprintf("// function %d", t.funcIdx)
	if name, ok := t.module.FunctionNames[t.funcIdx]; ok {
		comment += ": " + name
	}
	out.line(0, comment)
	out.line(0, fmt.Sprintf("function F%d(%s) {", t.funcIdx, join(params, ", ")))
	out.b.WriteString(t.header.String())
	out.b.WriteString(t.code.String())
	out.line(0, "}")
	return out.String()
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// declare emits a `var name;` header line the first time name is used.
func (t *FuncTranslator) declare(name string) {
	if t.declared[name] {
		return
	}
	t.declared[name] = true
	t.header.line(1, "var "+name+";")
}

// emit appends one statement to the body at the current indentation depth,
// unless the current frame is dead code, in which case it is silently
// dropped (spec.md §4.G "dead code never reaches the emitter").
func (t *FuncTranslator) emit(text string) {
	if t.ctrl.top().isDead {
		return
	}
	t.code.line(t.depth, text)
}

// emitAlways bypasses the dead-code suppression; used for the closing
// brace/label text of control constructs, which must be well-formed host
// syntax even when the corresponding frame went dead partway through.
func (t *FuncTranslator) emitAlways(text string) {
	t.code.line(t.depth, text)
}

func (t *FuncTranslator) newLabel() string {
	t.labelN++
	return fmt.Sprintf("L%d", t.labelN-1)
}

// push allocates a fresh deterministic register for a value of type typ on
// the current frame's operand stack (spec.md §4.G "virtual register
// naming"). In dead code the register name is withheld since it will never
// be read or written.
func (t *FuncTranslator) push(typ wasm.ValueType) operand {
	f := t.ctrl.top()
	var op operand
	if f.isDead {
		op = operand{Type: typ}
	} else {
		op = operand{Type: typ, Reg: t.allocReg(typ)}
	}
	f.operands = append(f.operands, op)
	return op
}

// allocReg reserves a fresh deterministic register name for typ without
// recording it on any frame's operand stack. Used to pre-allocate a
// block's result-rendezvous register at the moment the block is opened
// (spec.md §4.G), before any value actually occupies it.
func (t *FuncTranslator) allocReg(typ wasm.ValueType) string {
	idx := typeIndex(typ)
	name := regName(typ, t.heights[idx])
	t.heights[idx]++
	t.declare(name)
	return name
}

// pop removes and returns the top operand of the current frame. Popping
// past the frame's base height is only legal when the frame is
// polymorphic (dead code), in which case an ValueTypeUnknown placeholder
// is returned, matching the WASM MVP validation algorithm's
// polymorphic-stack handling after unreachable/br/br_table/return.
func (t *FuncTranslator) pop() (operand, error) {
	f := t.ctrl.top()
	if len(f.operands) == 0 {
		if f.isDead {
			return operand{Type: wasm.ValueTypeUnknown}, nil
		}
		return operand{}, wasm.Validatef("operand stack underflow")
	}
	n := len(f.operands)
	op := f.operands[n-1]
	f.operands = f.operands[:n-1]
	return op, nil
}

// popExpect pops one operand and checks its type against want, unless it
// is the ValueTypeUnknown polymorphic placeholder.
func (t *FuncTranslator) popExpect(want wasm.ValueType) (operand, error) {
	op, err := t.pop()
	if err != nil {
		return operand{}, err
	}
	if op.Type != wasm.ValueTypeUnknown && op.Type != want {
		return operand{}, wasm.Validatef("type mismatch: expected %v, got %v", want, op.Type)
	}
	return op, nil
}

// text returns the JS expression text for an operand: its register name if
// one is backed, or an arbitrary placeholder if it is the dead-code
// polymorphic stand-in (never actually emitted, since emit() is
// suppressed in dead code).
func (op operand) text() string {
	if op.Reg == "" {
		return "/*unreachable*/0"
	}
	return op.Reg
}

// markDead marks the current frame as dead (unreachable tail) and clears
// its visible operand stack down to its base height, per the WASM MVP
// validation algorithm's polymorphic-stack rule following
// unreachable/br/br_table/return.
func (t *FuncTranslator) markDead() {
	f := t.ctrl.top()
	f.isDead = true
	f.operands = nil
}

// zeroValue is the JS literal for the WASM default value of t.
func zeroValue(t wasm.ValueType) string {
	switch t {
	case wasm.ValueTypeI64:
		return "i64_const(0, 0)"
	default:
		return "0"
	}
}

// localType resolves local index idx; ok is false if it is out of range
// (caught as a validate error by the caller).
func (t *FuncTranslator) localType(idx uint32) (wasm.ValueType, bool) {
	if int(idx) >= len(t.locals) {
		return 0, false
	}
	return t.locals[idx], true
}
