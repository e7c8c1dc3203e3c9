package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyInstallDefaults(t *testing.T) {
	tests := []struct {
		name     string
		req      InstallRequest
		expected InstallRequest
	}{
		{
			name: "empty request gets all defaults",
			req:  InstallRequest{},
			expected: InstallRequest{
				ChrootDir: "/alpine",
				Branch:    "latest-stable",
				Mirror:    "https://dl-cdn.alpinelinux.org/alpine",
				Arch:      "x86_64",
				KeepVars:  []string{"ARCH", "CI", "QEMU_EMULATOR", "TRAVIS_.*"},
			},
		},
		{
			name: "explicit values override defaults",
			req: InstallRequest{
				ChrootDir: "/custom",
				Branch:    "v3.20",
				Mirror:    "https://mirror.example.org/alpine",
				Arch:      "armv7",
				KeepVars:  []string{"FOO"},
			},
			expected: InstallRequest{
				ChrootDir: "/custom",
				Branch:    "v3.20",
				Mirror:    "https://mirror.example.org/alpine",
				Arch:      "armv7",
				KeepVars:  []string{"FOO"},
			},
		},
		{
			name: "partial override mixes with defaults",
			req: InstallRequest{
				Branch: "edge",
			},
			expected: InstallRequest{
				ChrootDir: "/alpine",
				Branch:    "edge",
				Mirror:    "https://dl-cdn.alpinelinux.org/alpine",
				Arch:      "x86_64",
				KeepVars:  []string{"ARCH", "CI", "QEMU_EMULATOR", "TRAVIS_.*"},
			},
		},
		{
			name: "whitespace counts as unset",
			req: InstallRequest{
				ChrootDir: "   ",
				Branch:    "\t",
			},
			expected: InstallRequest{
				ChrootDir: "/alpine",
				Branch:    "latest-stable",
				Mirror:    "https://dl-cdn.alpinelinux.org/alpine",
				Arch:      "x86_64",
				KeepVars:  []string{"ARCH", "CI", "QEMU_EMULATOR", "TRAVIS_.*"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := applyInstallDefaults(tc.req, "x86_64")
			assert.Equal(t, tc.expected.ChrootDir, result.ChrootDir)
			assert.Equal(t, tc.expected.Branch, result.Branch)
			assert.Equal(t, tc.expected.Mirror, result.Mirror)
			assert.Equal(t, tc.expected.Arch, result.Arch)
			assert.Equal(t, tc.expected.KeepVars, result.KeepVars)
		})
	}
}

func TestApplyInstallDefaultsArchFollowsHost(t *testing.T) {
	result := applyInstallDefaults(InstallRequest{}, "aarch64")
	assert.Equal(t, "aarch64", result.Arch)
}
