package adapters

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"golang.org/x/sys/unix"

	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/types"
)

// SyscallMounterAdapter performs mount-plan steps through the raw mount
// syscall. Bind mounts get a second remount pass that flips propagation
// to private, so mount events no longer cross between the chroot and
// the host namespace.
type SyscallMounterAdapter struct{}

func NewSyscallMounterAdapter() SyscallMounterAdapter {
	return SyscallMounterAdapter{}
}

func (a SyscallMounterAdapter) Mount(step types.MountStep) error {
	if err := os.MkdirAll(step.Target, 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create mount target").
			WithCause(err)
	}
	if step.Bind {
		flags := uintptr(unix.MS_BIND)
		if step.Recursive {
			flags |= unix.MS_REC
		}
		if err := unix.Mount(step.Source, step.Target, "", flags, ""); err != nil {
			return mountError(step, err)
		}
		if step.Propagation != types.PropagationNone {
			propFlags := uintptr(unix.MS_PRIVATE)
			if step.Propagation == types.PropagationRPrivate {
				propFlags |= unix.MS_REC
			}
			if err := unix.Mount("", step.Target, "", propFlags, ""); err != nil {
				return mountError(step, err)
			}
		}
		return nil
	}
	if err := unix.Mount(step.Source, step.Target, step.FSType, 0, ""); err != nil {
		return mountError(step, err)
	}
	return nil
}

// IsMountPoint reports whether path appears as a mount target in the
// live mount table.
func (a SyscallMounterAdapter) IsMountPoint(path string) (bool, error) {
	file, err := os.Open("/proc/self/mounts")
	if err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read mount table").
			WithCause(err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if unescapeMountPath(fields[1]) == path {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to scan mount table").
			WithCause(err)
	}
	return false, nil
}

func mountError(step types.MountStep, err error) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("failed to mount %s at %s", step.Source, step.Target)).
		WithCause(err)
}

// unescapeMountPath decodes the octal escapes /proc/mounts uses for
// whitespace and backslashes in mount paths.
func unescapeMountPath(path string) string {
	if !strings.Contains(path, `\`) {
		return path
	}
	replacer := strings.NewReplacer(
		`\040`, " ",
		`\011`, "\t",
		`\012`, "\n",
		`\134`, `\`,
	)
	return replacer.Replace(path)
}

var _ ports.MounterPort = SyscallMounterAdapter{}
