package core

import "strings"

// NormalizeArch maps user-facing architecture aliases onto the canonical
// names qemu emulators are published under. The mapping is total: any
// alias outside the two known families passes through unchanged, so
// normalization is idempotent.
func NormalizeArch(arch string) string {
	value := strings.TrimSpace(arch)
	switch value {
	case "x86", "i386", "i486", "i586", "i686":
		return "i386"
	case "armhf", "armv4", "armv5", "armv6", "armv7", "armv8", "armv9":
		return "arm"
	default:
		return value
	}
}

// EmulatorBinary returns the qemu user-mode binary name expected for the
// given architecture, e.g. "qemu-arm-static" for armv7.
func EmulatorBinary(arch string) string {
	return "qemu-" + NormalizeArch(arch) + "-static"
}

// NeedsEmulation reports whether running target-architecture binaries on
// the host requires user-mode emulation. Both sides are compared after
// normalization, so armv7 on an armhf host does not trigger it.
func NeedsEmulation(targetArch string, hostArch string) bool {
	target := NormalizeArch(targetArch)
	host := NormalizeArch(hostArch)
	if target == "" || host == "" {
		return false
	}
	return target != host
}
