package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"x86", "i386"},
		{"i386", "i386"},
		{"i486", "i386"},
		{"i586", "i386"},
		{"i686", "i386"},
		{"armhf", "arm"},
		{"armv4", "arm"},
		{"armv5", "arm"},
		{"armv6", "arm"},
		{"armv7", "arm"},
		{"armv8", "arm"},
		{"armv9", "arm"},
		{"x86_64", "x86_64"},
		{"aarch64", "aarch64"},
		{"riscv64", "riscv64"},
		{"ppc64le", "ppc64le"},
		{"s390x", "s390x"},
		{" armv7 ", "arm"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, NormalizeArch(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeArchIdempotent(t *testing.T) {
	inputs := []string{
		"x86", "i386", "i486", "i586", "i686",
		"armhf", "armv4", "armv5", "armv6", "armv7", "armv8", "armv9",
		"x86_64", "aarch64", "riscv64", "ppc64le", "s390x", "loongarch64",
	}
	for _, input := range inputs {
		once := NormalizeArch(input)
		assert.Equal(t, once, NormalizeArch(once), "input %q", input)
	}
}

func TestEmulatorBinary(t *testing.T) {
	assert.Equal(t, "qemu-arm-static", EmulatorBinary("armv7"))
	assert.Equal(t, "qemu-aarch64-static", EmulatorBinary("aarch64"))
	assert.Equal(t, "qemu-i386-static", EmulatorBinary("x86"))
}

func TestNeedsEmulation(t *testing.T) {
	tests := []struct {
		target string
		host   string
		expect bool
	}{
		{"aarch64", "x86_64", true},
		{"x86_64", "x86_64", false},
		{"armv7", "armhf", false},
		{"x86", "i686", false},
		{"armv7", "x86_64", true},
		{"", "x86_64", false},
		{"aarch64", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, NeedsEmulation(tt.target, tt.host),
			"target %q host %q", tt.target, tt.host)
	}
}
