package adapters

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElfPatternsCoverAlpineArches(t *testing.T) {
	for _, arch := range []string{"arm", "aarch64", "i386", "x86_64", "riscv64", "ppc64le", "s390x"} {
		pattern, ok := elfPatterns[arch]
		require.True(t, ok, "missing pattern for %s", arch)
		assert.True(t, strings.HasPrefix(pattern.magic, `\x7fELF`), arch)
		assert.NotEmpty(t, pattern.mask, arch)
	}
}

func TestElfPatternsDelimiterSafe(t *testing.T) {
	// The register line uses ':' as field delimiter; a raw colon inside
	// magic or mask would corrupt it.
	for arch, pattern := range elfPatterns {
		assert.NotContains(t, pattern.magic, ":", arch)
		assert.NotContains(t, pattern.mask, ":", arch)
	}
}

func TestRegisteredUnknownArch(t *testing.T) {
	adapter := NewBinfmtAdapter()
	registered, err := adapter.Registered("no-such-arch")
	require.NoError(t, err)
	assert.False(t, registered)
}
