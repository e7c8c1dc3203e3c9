package app

import "strings"

const (
	defaultChrootDir = "/alpine"
	defaultBranch    = "latest-stable"
	defaultMirror    = "https://dl-cdn.alpinelinux.org/alpine"
)

// defaultKeepVars lists the host environment variables carried into the
// chroot when no explicit keep list is given. TRAVIS_.* is a regular
// expression, matching the historical CI integration.
var defaultKeepVars = []string{"ARCH", "CI", "QEMU_EMULATOR", "TRAVIS_.*"}

// applyInstallDefaults fills unset request fields with the stock Alpine
// defaults. Explicit values always win.
func applyInstallDefaults(req InstallRequest, hostArch string) InstallRequest {
	if strings.TrimSpace(req.ChrootDir) == "" {
		req.ChrootDir = defaultChrootDir
	}
	if strings.TrimSpace(req.Branch) == "" {
		req.Branch = defaultBranch
	}
	if strings.TrimSpace(req.Mirror) == "" {
		req.Mirror = defaultMirror
	}
	if strings.TrimSpace(req.Arch) == "" {
		req.Arch = hostArch
	}
	if len(req.KeepVars) == 0 {
		req.KeepVars = append([]string(nil), defaultKeepVars...)
	}
	return req
}
