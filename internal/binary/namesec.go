package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

const nameSubsectionFunction = 1

// tryDecodeNameSection opportunistically parses a well-formed custom
// "name" section's function-name subsection (SPEC_FULL.md §3). It never
// returns an error: any failure leaves m.FunctionNames as-is, matching the
// custom-section pass-through rule that a custom section's internal
// well-formedness is never checked (spec.md §4.B).
//
// r is advanced by however much was read before success or failure; the
// caller always skips to the section's declared payload end regardless of
// what happened here.
func tryDecodeNameSection(r *reader, payloadEnd uint64, m *wasm.Module) {
	defer func() {
		// A malformed name section must never abort decoding of the rest
		// of the module: recover from any unexpected panic deep in a
		// helper and simply drop the partial result.
		_ = recover()
	}()

	for r.Pos() < payloadEnd {
		subID, err := r.U8()
		if err != nil {
			return
		}
		size, err := r.VarUint32()
		if err != nil {
			return
		}
		subEnd := r.Pos() + uint64(size)
		if subEnd > payloadEnd {
			return
		}
		if subID != nameSubsectionFunction {
			if err := r.SkipTo(subEnd); err != nil {
				return
			}
			continue
		}
		names := make(map[uint32]string)
		count, err := r.VarUint32()
		if err != nil {
			return
		}
		for i := uint32(0); i < count; i++ {
			idx, err := r.VarUint32()
			if err != nil {
				return
			}
			name, err := r.Name()
			if err != nil {
				return
			}
			names[idx] = name
		}
		if r.Pos() != subEnd {
			return
		}
		m.FunctionNames = names
		return
	}
}
