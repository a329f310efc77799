package wazeroir

import (
	"github.com/pkg/errors"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// TranslateAll translates every defined function in module, in function
// index order, and returns each function's complete host-language source
// text alongside the SignatureCache populated with every call_indirect
// signature actually exercised (spec.md §4.F, §4.G). maxSignatures bounds
// the cache; 0 selects the default.
func TranslateAll(module *wasm.Module, maxSignatures int) ([]string, *SignatureCache, error) {
	sigs := NewSignatureCache(maxSignatures)
	imported := module.ImportedFunctionCount()
	out := make([]string, len(module.FunctionSection))
	for i := range module.FunctionSection {
		funcIdx := imported + uint32(i)
		ft, err := NewFuncTranslator(module, sigs, funcIdx)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "function %d", funcIdx)
		}
		src, err := ft.Translate()
		if err != nil {
			return nil, nil, err
		}
		out[i] = src
	}
	return out, sigs, nil
}
