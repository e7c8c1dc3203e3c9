package app

import (
	"os"
	"time"

	"golang.org/x/sys/unix"

	"alpine-chroot/internal/adapters"
	"alpine-chroot/internal/ports"
)

type Service struct {
	// Version is the build version injected by the CLI layer. It gates
	// the self-update check and is recorded in the bootstrap manifest.
	Version string

	Transport    ports.TransportPort
	Index        ports.PackageIndexPort
	Archive      ports.ArchivePort
	Mounter      ports.MounterPort
	Scripts      ports.ScriptWriterPort
	HostPackages ports.HostPackagesPort
	Binfmt       ports.BinfmtPort
	Release      ports.ReleasePort
	Manifest     ports.ManifestPort

	// NewPackageTool builds the apk driver once the static binary has been
	// extracted, since the tool path is not known before install runs.
	NewPackageTool func(tool string) ports.PackageToolPort

	Clock    func() time.Time
	Geteuid  func() int
	Environ  func() []string
	HostArch func() (string, error)
}

func NewService() Service {
	transport := adapters.NewHTTPTransportAdapter(0, 0, 0)
	return Service{
		Transport:    transport,
		Index:        adapters.NewMirrorIndexAdapter(transport, ""),
		Archive:      adapters.NewTarArchiveAdapter(),
		Mounter:      adapters.NewSyscallMounterAdapter(),
		Scripts:      adapters.NewFileScriptWriterAdapter(),
		HostPackages: adapters.NewHostPackagesAdapter(),
		Binfmt:       adapters.NewBinfmtAdapter(),
		Release:      adapters.NewGitHubReleaseAdapter(transport),
		Manifest:     adapters.NewYAMLManifestAdapter(),
		NewPackageTool: func(tool string) ports.PackageToolPort {
			return adapters.NewApkStaticAdapter(tool)
		},
		Clock:    time.Now,
		Geteuid:  os.Geteuid,
		Environ:  os.Environ,
		HostArch: hostArch,
	}
}

func hostArch() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
