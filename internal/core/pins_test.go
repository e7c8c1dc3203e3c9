package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-chroot/internal/types"
)

func TestParsePin(t *testing.T) {
	tests := []struct {
		raw     string
		op      types.ConstraintOp
		name    string
		version string
	}{
		{"build-base=0.5-r3", types.ConstraintOpEq, "build-base", "0.5-r3"},
		{"build-base>=0.5", types.ConstraintOpGte, "build-base", "0.5"},
		{"build-base<=0.5", types.ConstraintOpLte, "build-base", "0.5"},
		{"build-base>0.5", types.ConstraintOpGt, "build-base", "0.5"},
		{"build-base<0.5", types.ConstraintOpLt, "build-base", "0.5"},
		{"build-base~0.5", types.ConstraintOpFuzzy, "build-base", "0.5"},
		{"build-base", types.ConstraintOpNone, "build-base", ""},
		{" git ", types.ConstraintOpNone, "git", ""},
	}

	for _, tt := range tests {
		pin, err := ParsePin(tt.raw)
		require.NoError(t, err)
		if diff := cmp.Diff(tt.op, pin.Op); diff != "" {
			t.Fatalf("unexpected op for %q (-want +got):\n%s", tt.raw, diff)
		}
		if diff := cmp.Diff(tt.name, pin.Name); diff != "" {
			t.Fatalf("unexpected name for %q (-want +got):\n%s", tt.raw, diff)
		}
		if diff := cmp.Diff(tt.version, pin.Version); diff != "" {
			t.Fatalf("unexpected version for %q (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestParsePinKeepsRawSpelling(t *testing.T) {
	pin, err := ParsePin("gcc>=13.2.1_git20240309-r0")
	require.NoError(t, err)
	assert.Equal(t, "gcc>=13.2.1_git20240309-r0", pin.Raw)
}

func TestParsePinInvalid(t *testing.T) {
	for _, raw := range []string{"", "  ", ">=1.0", "libfoo>=", "=1.2"} {
		_, err := ParsePin(raw)
		require.Error(t, err, "raw %q", raw)
	}
}

func TestPinSatisfied(t *testing.T) {
	tests := []struct {
		pin     string
		version string
		expect  bool
	}{
		{"busybox", "1.36.1-r29", true},
		{"busybox=1.36.1-r29", "1.36.1-r29", true},
		{"busybox=1.36.1-r29", "1.36.1-r30", false},
		{"busybox>=1.36.0", "1.36.1-r29", true},
		{"busybox>=1.37.0", "1.36.1-r29", false},
		{"busybox<=1.36.1-r29", "1.36.1-r29", true},
		{"busybox<1.36.1", "1.36.0-r5", true},
		{"busybox<1.36.0", "1.36.0-r5", false},
		{"busybox>1.35", "1.36.1-r29", true},
		{"busybox~1.36", "1.36.1-r29", true},
		{"busybox~1.36", "1.36-r0", true},
		{"busybox~1.36", "1.36", true},
		{"busybox~1.37", "1.36.1-r29", false},
	}

	for _, tt := range tests {
		pin, err := ParsePin(tt.pin)
		require.NoError(t, err)
		assert.Equal(t, tt.expect, PinSatisfied(pin, tt.version),
			"pin %q version %q", tt.pin, tt.version)
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, -1, CompareVersions("1.36.0-r5", "1.36.1-r0"))
	assert.Equal(t, 0, CompareVersions("2.14.4-r1", "2.14.4-r1"))
	assert.Equal(t, 1, CompareVersions("2.14.10-r0", "2.14.4-r1"))
}

func TestCompareVersionsFallback(t *testing.T) {
	// Unparseable versions degrade to plain string ordering.
	assert.Equal(t, -1, CompareVersions("!!a", "!!b"))
}
