package ports

import "context"

// HostPackagesPort is the thin shim over the host's native package
// manager, used only to provision the user-mode emulator. Name returns
// the detected manager ("" when none was found); Refresh updates the
// manager's package cache and is invoked at most once per run by the
// orchestration layer. LocateEmulator searches the host PATH and the
// usual binary directories for the emulator serving arch.
type HostPackagesPort interface {
	Name() string
	Refresh(ctx context.Context) error
	InstallEmulator(ctx context.Context, arch string) error
	LocateEmulator(arch string) (string, bool)
}

// BinfmtPort manages the kernel's binary-format registrations for
// qemu user-mode emulators.
type BinfmtPort interface {
	Registered(arch string) (bool, error)
	Register(ctx context.Context, arch string) error
}
