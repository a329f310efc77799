package wazeroir

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

// typeIndex maps a numeric ValueType to its slot in the four per-type
// counters the translator keeps (spec.md §4.G "virtual register naming"):
// 0=i32, 1=i64, 2=f32, 3=f64.
func typeIndex(t wasm.ValueType) int {
	switch t {
	case wasm.ValueTypeI32:
		return 0
	case wasm.ValueTypeI64:
		return 1
	case wasm.ValueTypeF32:
		return 2
	case wasm.ValueTypeF64:
		return 3
	default:
		return -1
	}
}

var slotPrefix = [4]string{"si", "sl", "sf", "sd"}

// regName returns the deterministic stack-slot register name for a value
// of type t whose per-type counter currently reads h (spec.md §4.G): si<h>
// for i32, sl<h> for i64, sf<h> for f32, sd<h> for f64. The counters only
// ever increase for the lifetime of a function translation, so no two live
// values ever share a name, regardless of which control-flow frame pushed
// them.
func regName(t wasm.ValueType, h int) string {
	idx := typeIndex(t)
	if idx < 0 {
		return "_unused"
	}
	return slotPrefix[idx] + itoa(h)
}

// localName returns the virtual register name for local slot n of type t
// (spec.md §4.G): li<n>/ll<n>/lf<n>/ld<n>.
func localName(t wasm.ValueType, n int) string {
	switch t {
	case wasm.ValueTypeI32:
		return "li" + itoa(n)
	case wasm.ValueTypeI64:
		return "ll" + itoa(n)
	case wasm.ValueTypeF32:
		return "lf" + itoa(n)
	case wasm.ValueTypeF64:
		return "ld" + itoa(n)
	default:
		return "l?" + itoa(n)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// operand is one live entry on the per-function operand-type stack. Reg is
// empty when the entry was produced inside dead (unreachable) code: its
// type still participates in validation, but no register ever backs it
// since no statement emits it.
type operand struct {
	Type wasm.ValueType
	Reg  string
}

// ctrlKind distinguishes the five control-flow frame shapes spec.md §4.G
// lowers: the implicit function-entry frame, block, loop, if and its
// optional else arm.
type ctrlKind int

const (
	ctrlFunction ctrlKind = iota
	ctrlBlock
	ctrlLoop
	ctrlIf
	ctrlElse
)

// frame is one entry on the control-flow stack (spec.md §4.G "Control-flow
// stack"): it tracks the host-language label lowering this block/loop/if
// uses, the block's declared result type, the deterministic output
// register branches rendezvous through, and the per-frame operand stack
// together with the polymorphic/dead bookkeeping that follows
// unreachable/br/br_table/return.
type frame struct {
	kind  ctrlKind
	label string // host-language label, e.g. "L3"; empty for the function frame
	sig   wasm.ValueType

	// resultReg is the deterministic register that every branch targeting
	// a block/if frame assigns into before jumping, and that the frame's
	// own fallthrough assigns into at `end`. Branches to a loop frame carry
	// no value and do not assign it. Empty when sig == ValueTypeNone.
	resultReg string

	operands []operand

	// isDead marks code that provably never executes (after an
	// unconditional br/br_table/return/unreachable at the current nesting
	// depth): further opcodes are validated for type-stack shape but emit
	// nothing.
	isDead bool

	// elseSeen records whether an `else` opcode has already been processed
	// for an ctrlIf frame, so a second `else` can be rejected.
	elseSeen bool

	// baseIsDeadAtOpen is the dead-code state the frame had when it was
	// pushed, before its then-arm possibly went dead; the else arm (if
	// any) resumes from this same starting liveness rather than
	// inheriting the then-arm's ending state.
	baseIsDeadAtOpen bool
}

// controlStack is the per-function control-flow frame stack.
type controlStack struct {
	frames []*frame
}

func (c *controlStack) push(f *frame) { c.frames = append(c.frames, f) }

func (c *controlStack) pop() *frame {
	n := len(c.frames)
	f := c.frames[n-1]
	c.frames = c.frames[:n-1]
	return f
}

func (c *controlStack) top() *frame { return c.frames[len(c.frames)-1] }

// at returns the frame `depth` levels from the top: depth 0 is top().
func (c *controlStack) at(depth uint32) *frame {
	return c.frames[len(c.frames)-1-int(depth)]
}

func (c *controlStack) depth() int { return len(c.frames) }
