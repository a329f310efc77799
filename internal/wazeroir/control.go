package wazeroir

import (
	"fmt"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// step decodes and translates one opcode, including its immediates.
func (t *FuncTranslator) step(op wasm.Opcode) error {
	switch op {
	case wasm.OpUnreachable:
		t.emit(`trap("unreachable");`)
		t.markDead()
		return nil
	case wasm.OpNop:
		return nil

	case wasm.OpBlock:
		return t.enterBlock(ctrlBlock)
	case wasm.OpLoop:
		return t.enterBlock(ctrlLoop)
	case wasm.OpIf:
		return t.enterIf()
	case wasm.OpElse:
		return t.enterElse()
	case wasm.OpEnd:
		return t.leaveFrame()

	case wasm.OpBr:
		return t.branch(false)
	case wasm.OpBrIf:
		return t.branch(true)
	case wasm.OpBrTable:
		return t.brTable()
	case wasm.OpReturn:
		return t.doReturn()

	case wasm.OpCall:
		return t.call()
	case wasm.OpCallIndirect:
		return t.callIndirect()

	case wasm.OpDrop:
		_, err := t.pop()
		return err
	case wasm.OpSelect:
		return t.selectOp()

	case wasm.OpGetLocal:
		return t.getLocal()
	case wasm.OpSetLocal:
		return t.setLocal(false)
	case wasm.OpTeeLocal:
		return t.setLocal(true)
	case wasm.OpGetGlobal:
		return t.getGlobal()
	case wasm.OpSetGlobal:
		return t.setGlobal()

	case wasm.OpI32Const:
		v, err := t.body.varInt32()
		if err != nil {
			return err
		}
		r := t.push(wasm.ValueTypeI32)
		t.emit(fmt.Sprintf("%s = %d;", r.text(), v))
		return nil
	case wasm.OpI64Const:
		v, err := t.body.varInt64()
		if err != nil {
			return err
		}
		r := t.push(wasm.ValueTypeI64)
		t.emit(fmt.Sprintf("%s = i64_const(%d, %d);", r.text(), int32(v), int32(v>>32)))
		return nil
	case wasm.OpF32Const:
		bits, err := t.body.f32Bits()
		if err != nil {
			return err
		}
		r := t.push(wasm.ValueTypeF32)
		t.emit(fmt.Sprintf("%s = f32FromBits(0x%x);", r.text(), bits))
		return nil
	case wasm.OpF64Const:
		bits, err := t.body.f64Bits()
		if err != nil {
			return err
		}
		r := t.push(wasm.ValueTypeF64)
		t.emit(fmt.Sprintf("%s = f64FromBits(0x%x);", r.text(), bits))
		return nil
	}

	return t.stepNumericOrMemory(op)
}

// enterBlock handles `block` and `loop`: both read a block-type signature
// and open a new control frame; only their host-language lowering differs
// (spec.md §4.G), which renderFrameOpen selects on frame.kind.
func (t *FuncTranslator) enterBlock(kind ctrlKind) error {
	sig, err := t.body.blockType()
	if err != nil {
		return err
	}
	parent := t.ctrl.top()
	f := &frame{kind: kind, sig: sig, label: t.newLabel(), isDead: parent.isDead}
	if sig != wasm.ValueTypeNone && !f.isDead {
		f.resultReg = t.allocReg(sig)
	}
	t.ctrl.push(f)
	t.renderFrameOpen(f)
	t.depth++
	return nil
}

func (t *FuncTranslator) enterIf() error {
	sig, err := t.body.blockType()
	if err != nil {
		return err
	}
	cond, err := t.popExpect(wasm.ValueTypeI32)
	if err != nil {
		return err
	}
	parent := t.ctrl.top()
	f := &frame{kind: ctrlIf, sig: sig, label: t.newLabel(), isDead: parent.isDead, baseIsDeadAtOpen: parent.isDead}
	if sig != wasm.ValueTypeNone && !f.isDead {
		f.resultReg = t.allocReg(sig)
	}
	t.ctrl.push(f)
	t.emitAlways(f.label + ": do {")
	t.depth++
	t.emitAlways(fmt.Sprintf("if (%s) {", cond.text()))
	t.depth++
	return nil
}

func (t *FuncTranslator) enterElse() error {
	f := t.ctrl.top()
	if f.kind != ctrlIf || f.elseSeen {
		return wasm.Validatef("`else` outside a matching `if` arm")
	}
	f.elseSeen = true
	// Close the then-arm, open the else-arm. The then-arm's leftover live
	// operands (the block result, if any) were already folded into
	// resultReg by a br/fallthrough-style assignment below; here we just
	// reset the per-arm operand stack and dead flag for the else arm,
	// which starts from the same pre-if operand height and liveness as
	// the frame itself did.
	t.assignBlockResultIfLive(f)
	t.depth--
	t.emitAlways("} else {")
	t.depth++
	f.kind = ctrlElse
	f.isDead = f.baseIsDeadAtOpen
	f.operands = nil
	return nil
}

// leaveFrame handles `end`: closes the current control frame, folding its
// live result (if any) into the enclosing frame's operand stack.
func (t *FuncTranslator) leaveFrame() error {
	f := t.ctrl.top()
	if f.kind == ctrlFunction {
		return t.leaveFunction()
	}
	if f.kind == ctrlIf && !f.elseSeen && f.sig != wasm.ValueTypeNone {
		return wasm.Validatef("if block has a result type but no else arm")
	}
	t.assignBlockResultIfLive(f)
	t.ctrl.pop()
	switch f.kind {
	case ctrlBlock:
		t.depth--
		t.emitAlways("} while (false);")
	case ctrlIf, ctrlElse:
		t.depth--
		t.emitAlways("}")
		t.depth--
		t.emitAlways("} while (false);")
	case ctrlLoop:
		t.depth--
		// A loop that falls through its body (rather than branching)
		// must not silently repeat it; spec.md §4.G "loop" lowering
		// requires the generated `while(true)` to be exited explicitly.
		if !f.isDead {
			t.emitAlways("break " + f.label + ";")
		}
		t.emitAlways("}")
	}
	if f.sig != wasm.ValueTypeNone {
		t.push(f.sig)
		if f.resultReg != "" {
			parent := t.ctrl.top()
			r := parent.operands[len(parent.operands)-1]
			t.emit(fmt.Sprintf("%s = %s;", r.text(), f.resultReg))
		}
	}
	return nil
}

func (t *FuncTranslator) leaveFunction() error {
	f := t.ctrl.top()
	if f.sig != wasm.ValueTypeNone && !f.isDead {
		v, err := t.popExpect(f.sig)
		if err != nil {
			return err
		}
		t.emit("return " + v.text() + ";")
	} else if f.sig == wasm.ValueTypeNone {
		t.emit("return;")
	}
	t.ctrl.pop()
	return nil
}

// assignBlockResultIfLive, reached at `end` (and before `else`), copies the
// current top-of-stack value into the frame's deterministic result
// register, if the frame declares a result and its fallthrough path is
// still live. Branches out of the frame perform the same assignment at the
// branch site (see branch/brTable below); this call covers the
// fallthrough case.
func (t *FuncTranslator) assignBlockResultIfLive(f *frame) {
	if f.sig == wasm.ValueTypeNone || f.isDead {
		return
	}
	if len(f.operands) == 0 {
		return
	}
	top := f.operands[len(f.operands)-1]
	if f.resultReg != "" && top.Reg != "" {
		t.emit(fmt.Sprintf("%s = %s;", f.resultReg, top.Reg))
	}
}

// renderFrameOpen emits the opening host-language line for a block/loop
// frame (spec.md §4.G): `do { ... } while(false)` for block (break to
// exit), `while (true) { ... }` for loop (continue to repeat, explicit
// break to fall through).
func (t *FuncTranslator) renderFrameOpen(f *frame) {
	switch f.kind {
	case ctrlBlock:
		t.emitAlways(f.label + ": do {")
	case ctrlLoop:
		t.emitAlways(f.label + ": while (true) {")
	}
}

// branchTarget resolves the control frame `depth` labels out (br/br_if
// depth immediate), and returns the host-language statement that jumps to
// it: `break Lx;` for a block/if exit, `continue Lx;` for a loop
// continuation.
func (t *FuncTranslator) branchTarget(depth uint32) (*frame, string, error) {
	if int(depth) >= t.ctrl.depth() {
		return nil, "", wasm.Validatef("branch depth %d exceeds control stack", depth)
	}
	target := t.ctrl.at(depth)
	if target.kind == ctrlFunction {
		return target, "", nil // handled by the caller as a function return
	}
	if target.kind == ctrlLoop {
		return target, "continue " + target.label + ";", nil
	}
	return target, "break " + target.label + ";", nil
}

// branch lowers `br` (conditional=false) and `br_if` (conditional=true).
func (t *FuncTranslator) branch(conditional bool) error {
	depth, err := t.body.varUint32()
	if err != nil {
		return err
	}
	var cond operand
	if conditional {
		cond, err = t.popExpect(wasm.ValueTypeI32)
		if err != nil {
			return err
		}
	}
	target, jump, err := t.branchTarget(depth)
	if err != nil {
		return err
	}

	var stmts []string
	if target.kind == ctrlFunction {
		if target.sig != wasm.ValueTypeNone {
			v, err := t.popIfLive(target.sig, conditional)
			if err != nil {
				return err
			}
			if v.Reg != "" {
				stmts = append(stmts, "return "+v.Reg+";")
			} else {
				stmts = append(stmts, "return;")
			}
		} else {
			stmts = append(stmts, "return;")
		}
	} else {
		if target.sig != wasm.ValueTypeNone && target.kind != ctrlLoop {
			v, err := t.popIfLive(target.sig, conditional)
			if err != nil {
				return err
			}
			if v.Reg != "" && target.resultReg != "" {
				stmts = append(stmts, fmt.Sprintf("%s = %s;", target.resultReg, v.Reg))
			}
		}
		stmts = append(stmts, jump)
	}

	if conditional {
		t.emit(fmt.Sprintf("if (%s) { %s }", cond.text(), joinStmts(stmts)))
	} else {
		for _, s := range stmts {
			t.emit(s)
		}
		t.markDead()
	}
	return nil
}

// popIfLive pops (conditional br_if: peeks, since the value still flows
// through on the not-taken path) the operand the branch target's
// signature requires.
func (t *FuncTranslator) popIfLive(want wasm.ValueType, conditional bool) (operand, error) {
	f := t.ctrl.top()
	if len(f.operands) == 0 {
		if f.isDead {
			return operand{Type: wasm.ValueTypeUnknown}, nil
		}
		return operand{}, wasm.Validatef("operand stack underflow at branch")
	}
	top := f.operands[len(f.operands)-1]
	if top.Type != wasm.ValueTypeUnknown && top.Type != want {
		return operand{}, wasm.Validatef("type mismatch at branch: expected %v, got %v", want, top.Type)
	}
	if !conditional {
		f.operands = f.operands[:len(f.operands)-1]
	}
	return top, nil
}

func joinStmts(stmts []string) string {
	out := ""
	for i, s := range stmts {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// brTable lowers `br_table` to a switch statement (spec.md §8 S4): every
// case branches, so the value the shared arity requires is read exactly
// once before the switch and copied into whichever target's result
// register each case lands on.
func (t *FuncTranslator) brTable() error {
	count, err := t.body.varUint32()
	if err != nil {
		return err
	}
	targets := make([]uint32, count)
	for i := range targets {
		targets[i], err = t.body.varUint32()
		if err != nil {
			return err
		}
	}
	defaultTarget, err := t.body.varUint32()
	if err != nil {
		return err
	}
	idx, err := t.popExpect(wasm.ValueTypeI32)
	if err != nil {
		return err
	}

	defFrame, _, err := t.branchTarget(defaultTarget)
	if err != nil {
		return err
	}
	var common operand
	hasCommon := defFrame.sig != wasm.ValueTypeNone
	if hasCommon {
		common, err = t.popIfLive(defFrame.sig, true)
		if err != nil {
			return err
		}
	}

	t.emit(fmt.Sprintf("switch (%s) {", idx.text()))
	t.depth++
	for i, d := range targets {
		_, jump, err := t.branchTarget(d)
		if err != nil {
			return err
		}
		target := t.ctrl.at(d)
		t.emit(fmt.Sprintf("case %d:", i))
		t.depth++
		t.emitTargetAssign(target, common, hasCommon)
		t.emit(jumpOrReturn(target, jump))
		t.depth--
	}
	_, jump, err := t.branchTarget(defaultTarget)
	if err != nil {
		return err
	}
	t.emit("default:")
	t.depth++
	t.emitTargetAssign(defFrame, common, hasCommon)
	t.emit(jumpOrReturn(defFrame, jump))
	t.depth--
	t.depth--
	t.emit("}")
	t.markDead()
	return nil
}

func (t *FuncTranslator) emitTargetAssign(target *frame, common operand, hasCommon bool) {
	if !hasCommon || common.Reg == "" {
		return
	}
	if target.kind == ctrlFunction || target.kind == ctrlLoop {
		return
	}
	if target.resultReg != "" {
		t.emit(fmt.Sprintf("%s = %s;", target.resultReg, common.Reg))
	}
}

func jumpOrReturn(target *frame, jump string) string {
	if target.kind == ctrlFunction {
		return "return;"
	}
	return jump
}

func (t *FuncTranslator) doReturn() error {
	fn := t.ctrl.at(uint32(t.ctrl.depth() - 1))
	if fn.sig != wasm.ValueTypeNone {
		v, err := t.popIfLive(fn.sig, true)
		if err != nil {
			return err
		}
		if v.Reg != "" {
			t.emit("return " + v.Reg + ";")
		} else {
			t.emit("return;")
		}
	} else {
		t.emit("return;")
	}
	t.markDead()
	return nil
}

func (t *FuncTranslator) getLocal() error {
	idx, err := t.body.varUint32()
	if err != nil {
		return err
	}
	typ, ok := t.localType(idx)
	if !ok {
		return wasm.Validatef("local index %d out of range", idx)
	}
	name := localName(typ, int(idx))
	t.declare(name)
	r := t.push(typ)
	t.emit(fmt.Sprintf("%s = %s;", r.text(), name))
	return nil
}

func (t *FuncTranslator) setLocal(tee bool) error {
	idx, err := t.body.varUint32()
	if err != nil {
		return err
	}
	typ, ok := t.localType(idx)
	if !ok {
		return wasm.Validatef("local index %d out of range", idx)
	}
	v, err := t.popExpect(typ)
	if err != nil {
		return err
	}
	name := localName(typ, int(idx))
	t.declare(name)
	t.emit(fmt.Sprintf("%s = %s;", name, v.text()))
	if tee {
		r := t.push(typ)
		t.emit(fmt.Sprintf("%s = %s;", r.text(), name))
	}
	return nil
}

func (t *FuncTranslator) getGlobal() error {
	idx, err := t.body.varUint32()
	if err != nil {
		return err
	}
	gt := t.module.GlobalTypeOf(idx)
	if gt == nil {
		return wasm.Validatef("global index %d out of range", idx)
	}
	r := t.push(gt.ValType)
	t.emit(fmt.Sprintf("%s = G%d.value;", r.text(), idx))
	return nil
}

func (t *FuncTranslator) setGlobal() error {
	idx, err := t.body.varUint32()
	if err != nil {
		return err
	}
	gt := t.module.GlobalTypeOf(idx)
	if gt == nil {
		return wasm.Validatef("global index %d out of range", idx)
	}
	if !gt.Mutable {
		return wasm.Validatef("global %d is immutable, cannot set_global", idx)
	}
	v, err := t.popExpect(gt.ValType)
	if err != nil {
		return err
	}
	t.emit(fmt.Sprintf("G%d.value = %s;", idx, v.text()))
	return nil
}

func (t *FuncTranslator) selectOp() error {
	cond, err := t.popExpect(wasm.ValueTypeI32)
	if err != nil {
		return err
	}
	b, err := t.pop()
	if err != nil {
		return err
	}
	a, err := t.pop()
	if err != nil {
		return err
	}
	if a.Type != wasm.ValueTypeUnknown && b.Type != wasm.ValueTypeUnknown && a.Type != b.Type {
		return wasm.Validatef("select operand type mismatch: %v vs %v", a.Type, b.Type)
	}
	typ := a.Type
	if typ == wasm.ValueTypeUnknown {
		typ = b.Type
	}
	r := t.push(typ)
	t.emit(fmt.Sprintf("%s = (%s) ? %s : %s;", r.text(), cond.text(), a.text(), b.text()))
	return nil
}

func (t *FuncTranslator) call() error {
	idx, err := t.body.varUint32()
	if err != nil {
		return err
	}
	sig := t.module.FunctionSignature(idx)
	if sig == nil {
		return wasm.Validatef("call: function index %d out of range", idx)
	}
	args, err := t.popArgs(sig.Params)
	if err != nil {
		return err
	}
	call := fmt.Sprintf("F%d(%s)", idx, join(args, ", "))
	return t.emitCallResult(sig, call)
}

func (t *FuncTranslator) callIndirect() error {
	typeIdx, err := t.body.varUint32()
	if err != nil {
		return err
	}
	if _, err := t.body.varUint32(); err != nil { // reserved table-index byte (always 0)
		return err
	}
	if int(typeIdx) >= len(t.module.TypeSection) {
		return wasm.Validatef("call_indirect: type index %d out of range", typeIdx)
	}
	if !t.module.HasTable() {
		return wasm.Validatef("call_indirect: module has no table")
	}
	sig := t.module.TypeSection[typeIdx]
	elemIdx, err := t.popExpect(wasm.ValueTypeI32)
	if err != nil {
		return err
	}
	args, err := t.popArgs(sig.Params)
	if err != nil {
		return err
	}
	interned, err := t.sigs.Intern(sig)
	if err != nil {
		return err
	}
	helper := interned.HelperName()
	call := fmt.Sprintf("%s(%s, %s)", helper, elemIdx.text(), join(args, ", "))
	return t.emitCallResult(sig, call)
}

func (t *FuncTranslator) popArgs(params []wasm.ValueType) ([]string, error) {
	args := make([]string, len(params))
	for i := len(params) - 1; i >= 0; i-- {
		v, err := t.popExpect(params[i])
		if err != nil {
			return nil, err
		}
		args[i] = v.text()
	}
	return args, nil
}

func (t *FuncTranslator) emitCallResult(sig *wasm.FunctionType, call string) error {
	if len(sig.Results) == 0 {
		t.emit(call + ";")
		return nil
	}
	r := t.push(sig.Results[0])
	t.emit(fmt.Sprintf("%s = %s;", r.text(), call))
	return nil
}
