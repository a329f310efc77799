package wasmpolyfill

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/rfk/wasm-polyfill-sub001/internal/binary"
	"github.com/rfk/wasm-polyfill-sub001/internal/hostjs"
	"github.com/rfk/wasm-polyfill-sub001/internal/tracelog"
	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
	"github.com/rfk/wasm-polyfill-sub001/internal/wazeroir"
)

// DecodeError and ValidateError re-export the two non-recoverable error
// kinds callers must be able to type-switch on (spec.md §7), without
// requiring them to import internal/wasm directly.
type DecodeError = wasm.DecodeError
type ValidateError = wasm.ValidateError

// TranslateResult carries the emitted artifact plus metadata useful to a
// caller that wants to pre-generate host-side import-table scaffolding
// without re-parsing the output (SPEC_FULL.md §6).
type TranslateResult struct {
	// JS is the complete emitted host-language source: a single
	// `function instantiate(ambient, stdlib, imports) { ... }` definition
	// (spec.md §4.H, §6).
	JS string

	// RequiredHelpers lists the call_<sig> indirect-call helper names the
	// emitted module actually needs, in first-use order.
	RequiredHelpers []string

	// FunctionNames is the best-effort function index -> declared name
	// map recovered from a custom "name" section, if present.
	FunctionNames map[uint32]string

	// ExportNames is every export field name the module declares, in
	// module order.
	ExportNames []string
}

// Translate decodes, validates, and translates a WASM MVP binary module
// into host-language source text (spec.md §1 Purpose & Scope). It returns
// a *DecodeError or *ValidateError on any structural or semantic
// violation; the caller should discard module wholesale on error, per
// spec.md §7's non-recoverable error policy.
func Translate(module []byte, cfg TranslateConfig) (string, error) {
	res, err := TranslateWithResult(module, cfg)
	if err != nil {
		return "", err
	}
	return res.JS, nil
}

// TranslateWithResult is Translate plus the additional metadata described
// by TranslateResult.
func TranslateWithResult(module []byte, cfg TranslateConfig) (*TranslateResult, error) {
	if cfg == nil {
		cfg = NewTranslateConfig()
	}
	tracelog.L().Debugw("decoding module", "bytes", len(module))
	m, err := binary.DecodeModule(module)
	if err != nil {
		return nil, err
	}
	if len(m.CodeSection) == 0 && len(m.FunctionSection) == 0 {
		tracelog.L().Debugw("module defines no functions")
	}

	funcs, sigs, err := wazeroir.TranslateAll(m, cfg.maxSignatures())
	if err != nil {
		return nil, errors.Wrap(err, "translating function bodies")
	}

	js, err := hostjs.Finalize(hostjs.Input{Module: m, Functions: funcs, Sigs: sigs})
	if err != nil {
		return nil, errors.Wrap(err, "finalizing module")
	}
	if prefix := cfg.identifierPrefix(); prefix != "" {
		js = prefixTopLevelFunction(js, prefix)
	}

	helpers := make([]string, 0)
	for _, sig := range sigs.RequiredHelpers() {
		helpers = append(helpers, sig.HelperName())
	}
	exportNames := make([]string, 0, len(m.ExportSection))
	for _, ex := range m.ExportSection {
		exportNames = append(exportNames, ex.Name)
	}

	return &TranslateResult{
		JS:              js,
		RequiredHelpers: helpers,
		FunctionNames:   m.FunctionNames,
		ExportNames:     exportNames,
	}, nil
}

// prefixTopLevelFunction renames the emitted wrapper from `instantiate` to
// `<prefix>instantiate`, the only identifier collision risk when
// concatenating multiple translated modules into one host-language file
// (every other identifier is scoped inside the wrapper's closure).
func prefixTopLevelFunction(js, prefix string) string {
	const marker = "function instantiate("
	idx := strings.Index(js, marker)
	if idx < 0 {
		return js
	}
	return js[:idx] + "function " + prefix + "instantiate(" + js[idx+len(marker):]
}
