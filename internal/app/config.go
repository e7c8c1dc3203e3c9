package app

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	assert "github.com/ZanzyTHEbar/assert-lib"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/core"
	"alpine-chroot/internal/shared"
	"alpine-chroot/internal/types"
)

// buildConfig turns an install request into a validated bootstrap
// configuration. The target architecture keeps the caller's spelling since
// Alpine repository paths use it verbatim; normalization happens only where
// emulator binaries are selected.
func buildConfig(ctx context.Context, req InstallRequest, hostArch string) (types.BootstrapConfig, error) {
	req = applyInstallDefaults(req, hostArch)
	assert.NotEmpty(ctx, req.ChrootDir, "chroot dir must be set")
	assert.NotEmpty(ctx, req.Branch, "branch must be set")
	assert.NotEmpty(ctx, req.Mirror, "mirror must be set")
	assert.NotEmpty(ctx, req.Arch, "target architecture must be set")

	chrootDir, err := filepath.Abs(strings.TrimSpace(req.ChrootDir))
	if err != nil {
		return types.BootstrapConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid chroot dir").
			WithCause(err)
	}

	mirror := strings.TrimRight(strings.TrimSpace(req.Mirror), "/")
	parsed, err := url.Parse(mirror)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return types.BootstrapConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("mirror URL must be http or https: %s", mirror))
	}

	packages := shared.SplitList(req.Packages)
	for _, raw := range packages {
		if _, err := core.ParsePin(raw); err != nil {
			return types.BootstrapConfig{}, err
		}
	}

	keep := shared.SplitList(req.KeepVars)
	if len(keep) == 0 {
		keep = append([]string(nil), defaultKeepVars...)
	}
	filter, err := core.BuildEnvAlternation(keep)
	if err != nil {
		return types.BootstrapConfig{}, err
	}

	bindDir := strings.TrimSpace(req.BindDir)
	if bindDir != "" {
		bindDir, err = filepath.Abs(bindDir)
		if err != nil {
			return types.BootstrapConfig{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("invalid bind dir").
				WithCause(err)
		}
	}

	return types.BootstrapConfig{
		ChrootDir:       chrootDir,
		TargetArch:      strings.TrimSpace(req.Arch),
		HostArch:        hostArch,
		Branch:          strings.TrimSpace(req.Branch),
		MirrorURL:       mirror,
		Packages:        packages,
		ExtraRepos:      shared.SplitList(req.ExtraRepos),
		BindDir:         bindDir,
		KeepEnvPatterns: keep,
		EnvFilter:       filter,
		TempDir:         strings.TrimSpace(req.TempDir),
		VerifyChecksums: req.VerifyChecksums,
		SkipUpdateCheck: req.SkipUpdateCheck,
		DryRun:          req.DryRun,
	}, nil
}
