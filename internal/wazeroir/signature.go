package wazeroir

import (
	"strings"

	"github.com/rfk/wasm-polyfill-sub001/internal/wasm"
)

// maxInternedSignatures is the default cap on distinct call_indirect
// signatures a single Translate invocation will catalogue. It exists to
// reject a pathological Type section outright (as a ValidateError) rather
// than let the catalogue grow without bound; it does not evict, since a
// cache scoped to one Translate call has nothing to reclaim memory for
// until the call returns.
const maxInternedSignatures = 4096

// Signature is the canonical, interned form of a wasm.FunctionType
// (spec.md §4.F): its parameter/result type lists plus the canonical
// signature string used to name its call_<sig> indirect-call helper.
type Signature struct {
	Key     string
	Params  []wasm.ValueType
	Results []wasm.ValueType
}

// HelperName is the per-signature indirect-call helper's identifier
// (spec.md §4.F, §4.G "call_indirect").
func (s *Signature) HelperName() string { return "call_" + s.Key }

// letterFor maps a numeric value type to the single-letter code spec.md
// §4.F specifies for signature strings: i,l,f,d for I32,I64,F32,F64.
func letterFor(t wasm.ValueType) byte {
	switch t {
	case wasm.ValueTypeI32:
		return 'i'
	case wasm.ValueTypeI64:
		return 'l'
	case wasm.ValueTypeF32:
		return 'f'
	case wasm.ValueTypeF64:
		return 'd'
	default:
		return '?'
	}
}

// SigString builds the canonical signature string for ft: one letter per
// parameter, a separator, then the result letter or 'v' for void
// (spec.md §4.F).
func SigString(ft *wasm.FunctionType) string {
	var sb strings.Builder
	for _, p := range ft.Params {
		sb.WriteByte(letterFor(p))
	}
	sb.WriteByte('_')
	if len(ft.Results) == 0 {
		sb.WriteByte('v')
	} else {
		sb.WriteByte(letterFor(ft.Results[0]))
	}
	return sb.String()
}

// SignatureCache interns FunctionTypes into canonical Signatures, keyed by
// signature string, and tracks first-use order so the finalizer (§4.H)
// emits exactly the call_<sig> helpers actually used, in deterministic
// order. It is scoped to a single Translate invocation (TranslateAll
// constructs one and threads it through every function body), never shared
// or reused across calls, so it holds a plain map bounded by limit rather
// than an LRU: evicting an entry here would silently orphan any call_<sig>
// site already emitted against it.
type SignatureCache struct {
	limit int
	cache map[string]*Signature
	order []string
}

// NewSignatureCache builds a cache that rejects interning past limit
// distinct signatures, or maxInternedSignatures if limit is non-positive.
func NewSignatureCache(limit int) *SignatureCache {
	if limit <= 0 {
		limit = maxInternedSignatures
	}
	return &SignatureCache{limit: limit, cache: make(map[string]*Signature)}
}

// Intern returns the canonical *Signature for ft, creating it on first use.
// Interning a signature count past the cache's limit is a ValidateError,
// not a silent eviction: every call_<sig> this cache has already handed out
// a helper name for must still have that helper rendered by the finalizer.
func (c *SignatureCache) Intern(ft *wasm.FunctionType) (*Signature, error) {
	key := SigString(ft)
	if sig, ok := c.cache[key]; ok {
		return sig, nil
	}
	if len(c.cache) >= c.limit {
		return nil, wasm.Validatef("too many distinct call_indirect signatures (limit %d)", c.limit)
	}
	sig := &Signature{Key: key, Params: append([]wasm.ValueType(nil), ft.Params...), Results: append([]wasm.ValueType(nil), ft.Results...)}
	c.cache[key] = sig
	c.order = append(c.order, key)
	return sig, nil
}

// RequiredHelpers returns every interned signature actually used, in
// first-use order, for the finalizer to render call_<sig> helpers for.
func (c *SignatureCache) RequiredHelpers() []*Signature {
	out := make([]*Signature, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.cache[key])
	}
	return out
}
