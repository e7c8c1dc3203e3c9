package adapters

import (
	"context"
	"os/exec"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/shared"
)

// ApkStaticAdapter drives the extracted apk.static binary. Every call
// passes --root explicitly so the host's own apk state is never touched,
// even on Alpine hosts.
type ApkStaticAdapter struct {
	// Tool is the absolute path of the extracted static binary.
	Tool string
}

func NewApkStaticAdapter(tool string) ApkStaticAdapter {
	return ApkStaticAdapter{Tool: tool}
}

func (a ApkStaticAdapter) InitDB(ctx context.Context, root string, arch string) error {
	args := initDBArgs(root, arch)
	return a.run(ctx, args)
}

func (a ApkStaticAdapter) Add(ctx context.Context, root string, arch string, packages []string) error {
	args := addArgs(root, arch, packages)
	return a.run(ctx, args)
}

// HasPackage probes the database through "apk info --quiet". The probe
// prints the package name when the configured repositories carry it and
// nothing otherwise; a non-zero exit with empty output also means
// unknown.
func (a ApkStaticAdapter) HasPackage(ctx context.Context, root string, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, a.Tool, "info", "--root", root, "--quiet", name)
	output, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(output))
	if err != nil {
		if trimmed == "" {
			return false, nil
		}
		return false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("apk info failed").
			WithCause(shared.CommandError(output, err))
	}
	return trimmed != "", nil
}

func (a ApkStaticAdapter) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, a.Tool, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("apk command failed").
			WithCause(shared.CommandError(output, err))
	}
	return nil
}

func initDBArgs(root string, arch string) []string {
	args := []string{"add", "--root", root, "--initdb"}
	if arch != "" {
		args = append(args, "--arch", arch)
	}
	return args
}

func addArgs(root string, arch string, packages []string) []string {
	args := []string{"add", "--root", root, "--update-cache"}
	if arch != "" {
		args = append(args, "--arch", arch)
	}
	return append(args, packages...)
}

var _ ports.PackageToolPort = ApkStaticAdapter{}
