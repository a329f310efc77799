package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

// validateModule performs the cross-section checks that can only be made
// once the whole module has been decoded. Every check that can be made
// incrementally, as soon as the relevant sections are available, is made
// inline in the corresponding section parser instead (spec.md §4.C);
// nothing here is a restatement of those checks.
func validateModule(m *wasm.Module) error {
	if len(m.CodeSection) != len(m.FunctionSection) {
		// This is normally caught by decodeCodeSection itself; this guards
		// the edge case of a module with defined functions but no Code
		// section at all (count 0 vs N, never visited the per-entry loop).
		return wasm.Validatef(
			"function and code section counts differ: %d functions, %d code entries",
			len(m.FunctionSection), len(m.CodeSection))
	}
	return nil
}
