// Package wasmpolyfill decodes, validates, and translates WebAssembly MVP
// binary modules into an equivalent host-language (JavaScript) source text,
// for environments without native WebAssembly support.
//
// The public entry point is Translate. Everything else of interest lives
// under internal/: internal/binary decodes the module structure,
// internal/wazeroir is the single-pass stack-polymorphic function-body
// translator, and internal/hostjs renders the final wrapper.
package wasmpolyfill
