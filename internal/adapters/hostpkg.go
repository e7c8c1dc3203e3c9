package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/core"
	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/shared"
)

type hostManager struct {
	name        string
	refreshArgs []string
	installArgs func(arch string) []string
	env         []string
}

// hostManagers lists supported native package managers in probe order.
// Each entry knows how to refresh its cache and which package carries
// the static qemu user-mode emulators.
var hostManagers = []hostManager{
	{
		name:        "apt-get",
		refreshArgs: []string{"update"},
		installArgs: func(string) []string { return []string{"install", "-y", "qemu-user-static"} },
		env:         []string{"DEBIAN_FRONTEND=noninteractive"},
	},
	{
		name:        "dnf",
		refreshArgs: []string{"makecache"},
		installArgs: func(string) []string { return []string{"install", "-y", "qemu-user-static"} },
	},
	{
		name:        "yum",
		refreshArgs: []string{"makecache"},
		installArgs: func(string) []string { return []string{"install", "-y", "qemu-user-static"} },
	},
	{
		name:        "pacman",
		refreshArgs: []string{"-Sy"},
		installArgs: func(string) []string { return []string{"-S", "--noconfirm", "qemu-user-static"} },
	},
	{
		name:        "zypper",
		refreshArgs: []string{"refresh"},
		installArgs: func(string) []string { return []string{"install", "-y", "qemu-linux-user"} },
	},
	{
		name:        "apk",
		refreshArgs: []string{"update"},
		installArgs: func(arch string) []string { return []string{"add", "qemu-" + arch} },
	},
}

// HostPackagesAdapter drives the host distribution's package manager.
// The manager is detected once at construction by probing PATH.
type HostPackagesAdapter struct {
	manager *hostManager
}

func NewHostPackagesAdapter() HostPackagesAdapter {
	for i := range hostManagers {
		if _, err := exec.LookPath(hostManagers[i].name); err == nil {
			return HostPackagesAdapter{manager: &hostManagers[i]}
		}
	}
	return HostPackagesAdapter{}
}

func (a HostPackagesAdapter) Name() string {
	if a.manager == nil {
		return ""
	}
	return a.manager.name
}

func (a HostPackagesAdapter) Refresh(ctx context.Context) error {
	if a.manager == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no supported host package manager found")
	}
	return a.run(ctx, a.manager.refreshArgs)
}

func (a HostPackagesAdapter) InstallEmulator(ctx context.Context, arch string) error {
	if a.manager == nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no supported host package manager found, install the qemu user-mode emulator manually")
	}
	return a.run(ctx, a.manager.installArgs(core.NormalizeArch(arch)))
}

// LocateEmulator looks for the static emulator first on PATH, then in
// the usual binary directories, then under the unsuffixed name some
// distributions use.
func (a HostPackagesAdapter) LocateEmulator(arch string) (string, bool) {
	binary := core.EmulatorBinary(arch)
	candidates := []string{binary, "qemu-" + core.NormalizeArch(arch)}
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, true
		}
		for _, dir := range []string{"/usr/bin", "/usr/local/bin"} {
			path := filepath.Join(dir, candidate)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, true
			}
		}
	}
	return "", false
}

func (a HostPackagesAdapter) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, a.manager.name, args...)
	cmd.Env = append(os.Environ(), a.manager.env...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("%s command failed", a.manager.name)).
			WithCause(shared.CommandError(output, err))
	}
	return nil
}

var _ ports.HostPackagesPort = HostPackagesAdapter{}
