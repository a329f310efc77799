package binary

import "github.com/rfk/wasm-polyfill-sub001/internal/wasm"

// funcTypeForm is the leading byte required on every type-section entry
// (spec.md §4.C "entries have leading form byte equal to the func tag").
const funcTypeForm = wasm.TypeFuncForm

func decodeTypeSection(r *reader, m *wasm.Module) error {
	count, err := r.VarUint32()
	if err != nil {
		return err
	}
	m.TypeSection = make([]*wasm.FunctionType, 0, count)
	for i := uint32(0); i < count; i++ {
		ft, err := decodeFunctionType(r)
		if err != nil {
			return err
		}
		m.TypeSection = append(m.TypeSection, ft)
	}
	return nil
}

func decodeFunctionType(r *reader) (*wasm.FunctionType, error) {
	form, err := r.VarInt7()
	if err != nil {
		return nil, err
	}
	if wasm.ValueType(form) != funcTypeForm {
		return nil, wasm.Decodef("type section entry has non-func form byte %#x", form)
	}
	paramCount, err := r.VarUint32()
	if err != nil {
		return nil, err
	}
	params := make([]wasm.ValueType, paramCount)
	for i := range params {
		vt, err := r.valueType()
		if err != nil {
			return nil, err
		}
		params[i] = vt
	}
	resultCount, err := r.VarUint32()
	if err != nil {
		return nil, err
	}
	results := make([]wasm.ValueType, resultCount)
	for i := range results {
		vt, err := r.valueType()
		if err != nil {
			return nil, err
		}
		results[i] = vt
	}
	ft := &wasm.FunctionType{Params: params, Results: results}
	if err := ft.Validate(); err != nil {
		return nil, wasm.NewValidateError("function type", err)
	}
	return ft, nil
}
