package adapters

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sys/unix"

	"alpine-chroot/internal/core"
	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/shared"
)

const binfmtDir = "/proc/sys/fs/binfmt_misc"

// elfPattern is a binfmt_misc magic/mask pair in the kernel's
// backslash-hex notation, matching the first twenty bytes of an ELF
// header for one machine type.
type elfPattern struct {
	magic string
	mask  string
}

// elfPatterns mirrors the registration table qemu ships for the
// architectures Alpine publishes. Keys are normalized architecture
// names.
var elfPatterns = map[string]elfPattern{
	"arm": {
		magic: `\x7fELF\x01\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x28\x00`,
		mask:  `\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff`,
	},
	"aarch64": {
		magic: `\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\xb7\x00`,
		mask:  `\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff`,
	},
	"i386": {
		magic: `\x7fELF\x01\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x03\x00`,
		mask:  `\xff\xff\xff\xff\xff\xfe\xfe\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff`,
	},
	"x86_64": {
		magic: `\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x3e\x00`,
		mask:  `\xff\xff\xff\xff\xff\xfe\xfe\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff`,
	},
	"riscv64": {
		magic: `\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\xf3\x00`,
		mask:  `\xff\xff\xff\xff\xff\xff\xff\x00\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\xff`,
	},
	"ppc64le": {
		magic: `\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x15\x00`,
		mask:  `\xff\xff\xff\xff\xff\xff\xff\xfc\xff\xff\xff\xff\xff\xff\xff\xff\xfe\xff\xff\x00`,
	},
	"s390x": {
		magic: `\x7fELF\x02\x02\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00\x16`,
		mask:  `\xff\xff\xff\xff\xff\xff\xff\x00\x00\x00\x00\x00\x00\x00\x00\x00\xff\xff\xff\xff`,
	},
}

// BinfmtAdapter manages the kernel's qemu interpreter registrations.
// Registration goes through update-binfmts when the host has it and
// falls back to writing the binfmt_misc register file directly.
type BinfmtAdapter struct{}

func NewBinfmtAdapter() BinfmtAdapter {
	return BinfmtAdapter{}
}

func (a BinfmtAdapter) Registered(arch string) (bool, error) {
	name := "qemu-" + core.NormalizeArch(arch)
	_, err := os.Stat(binfmtDir + "/" + name)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("failed to inspect binfmt registrations").
		WithCause(err)
}

func (a BinfmtAdapter) Register(ctx context.Context, arch string) error {
	normalized := core.NormalizeArch(arch)
	if err := a.ensureBinfmtMounted(ctx); err != nil {
		return err
	}
	if path, err := exec.LookPath("update-binfmts"); err == nil {
		cmd := exec.CommandContext(ctx, path, "--enable", "qemu-"+normalized)
		if _, err := cmd.CombinedOutput(); err == nil {
			return nil
		}
		// update-binfmts has no descriptor for this arch, register directly
	}
	pattern, ok := elfPatterns[normalized]
	if !ok {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("no binfmt pattern known for architecture %s", arch))
	}
	line := fmt.Sprintf(":qemu-%s:M:0:%s:%s:/usr/bin/%s:",
		normalized, pattern.magic, pattern.mask, core.EmulatorBinary(normalized))
	if err := os.WriteFile(binfmtDir+"/register", []byte(line), 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to register binfmt interpreter").
			WithCause(err)
	}
	return nil
}

// ensureBinfmtMounted loads the binfmt_misc module and mounts its
// control filesystem when the register file is absent. Hosts with
// systemd usually have both already.
func (a BinfmtAdapter) ensureBinfmtMounted(ctx context.Context) error {
	if _, err := os.Stat(binfmtDir + "/register"); err == nil {
		return nil
	}
	if _, err := os.Stat(binfmtDir); os.IsNotExist(err) {
		if path, lookErr := exec.LookPath("modprobe"); lookErr == nil {
			cmd := exec.CommandContext(ctx, path, "binfmt_misc")
			if output, runErr := cmd.CombinedOutput(); runErr != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to load binfmt_misc module").
					WithCause(shared.CommandError(output, runErr))
			}
		}
	}
	if _, err := os.Stat(binfmtDir + "/register"); err == nil {
		return nil
	}
	if err := unix.Mount("binfmt_misc", binfmtDir, "binfmt_misc", 0, ""); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to mount binfmt_misc").
			WithCause(err)
	}
	return nil
}

var _ ports.BinfmtPort = BinfmtAdapter{}
