package wasmpolyfill

// TranslateConfig governs emitted-code choices and resource bounds for
// a Translate call (SPEC_FULL.md "Ambient Stack / Configuration"), modeled
// on wazero's RuntimeConfig/CompileConfig builder pattern: every With*
// method returns a modified copy, so configs are safe to share and reuse
// across calls.
type TranslateConfig interface {
	// WithIdentifierPrefix overrides the default "" prefix applied to the
	// emitted top-level `instantiate` wrapper name, so multiple translated
	// modules can be concatenated into one host-language file without
	// name collisions.
	WithIdentifierPrefix(string) TranslateConfig

	// WithMaxSignatures bounds how many distinct signatures the signature
	// catalogue accepts before translation fails with a ValidateError
	// (spec.md §4.F; SPEC_FULL.md "Domain stack"). 0 or negative selects
	// the package default.
	WithMaxSignatures(int) TranslateConfig

	identifierPrefix() string
	maxSignatures() int
}

type translateConfig struct {
	prefix  string
	maxSigs int
}

// NewTranslateConfig returns the default configuration: no identifier
// prefix, default signature-cache size.
func NewTranslateConfig() TranslateConfig {
	return translateConfig{}
}

func (c translateConfig) WithIdentifierPrefix(p string) TranslateConfig {
	c.prefix = p
	return c
}

func (c translateConfig) WithMaxSignatures(n int) TranslateConfig {
	c.maxSigs = n
	return c
}

func (c translateConfig) identifierPrefix() string { return c.prefix }
func (c translateConfig) maxSignatures() int       { return c.maxSigs }
