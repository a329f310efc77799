package wasmpolyfill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateConfigDefaults(t *testing.T) {
	cfg := NewTranslateConfig().(translateConfig)
	assert.Equal(t, "", cfg.identifierPrefix())
	assert.Equal(t, 0, cfg.maxSignatures())
}

func TestTranslateConfigIsImmutableCopyOnWrite(t *testing.T) {
	base := NewTranslateConfig()
	withPrefix := base.WithIdentifierPrefix("a_")
	assert.Equal(t, "", base.(translateConfig).identifierPrefix())
	assert.Equal(t, "a_", withPrefix.(translateConfig).identifierPrefix())
}

func TestTranslateConfigWithMaxSignatures(t *testing.T) {
	cfg := NewTranslateConfig().WithMaxSignatures(128).(translateConfig)
	assert.Equal(t, 128, cfg.maxSignatures())
}
