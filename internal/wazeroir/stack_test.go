package wazeroir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

func TestRegNamePerTypePrefix(t *testing.T) {
	assert.Equal(t, "si3", regName(wasm.ValueTypeI32, 3))
	assert.Equal(t, "sl0", regName(wasm.ValueTypeI64, 0))
	assert.Equal(t, "sf7", regName(wasm.ValueTypeF32, 7))
	assert.Equal(t, "sd1", regName(wasm.ValueTypeF64, 1))
}

func TestLocalNamePerTypePrefix(t *testing.T) {
	assert.Equal(t, "li0", localName(wasm.ValueTypeI32, 0))
	assert.Equal(t, "ll2", localName(wasm.ValueTypeI64, 2))
	assert.Equal(t, "lf5", localName(wasm.ValueTypeF32, 5))
	assert.Equal(t, "ld9", localName(wasm.ValueTypeF64, 9))
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1", 42: "42", -7: "-7", 12345: "12345"}
	for n, want := range cases {
		assert.Equal(t, want, itoa(n))
	}
}

func TestControlStackAtAddressesFromTop(t *testing.T) {
	var cs controlStack
	cs.push(&frame{label: "outer"})
	cs.push(&frame{label: "middle"})
	cs.push(&frame{label: "inner"})
	assert.Equal(t, "inner", cs.at(0).label)
	assert.Equal(t, "middle", cs.at(1).label)
	assert.Equal(t, "outer", cs.at(2).label)
	assert.Equal(t, 3, cs.depth())
}

func TestControlStackPushPop(t *testing.T) {
	var cs controlStack
	f := &frame{label: "a"}
	cs.push(f)
	assert.Same(t, f, cs.top())
	popped := cs.pop()
	assert.Same(t, f, popped)
	assert.Equal(t, 0, cs.depth())
}
