package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"alpine-chroot/internal/core"
	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/types"
)

// baselinePackages is the minimum set installed into every fresh root:
// base layout, the package manager itself, a shell and userland, and the
// standard library utilities.
var baselinePackages = []string{
	"alpine-baselayout",
	"apk-tools",
	"busybox",
	"busybox-suid",
	"musl-utils",
}

// trustKeySubdirs are the two locations inside the alpine-keys package
// that may carry the repository signing keys.
var trustKeySubdirs = []string{
	"etc/apk/keys",
	"usr/share/apk/keys",
}

// Install runs the whole bootstrap pipeline against the configured chroot
// directory. Steps are sequential and every failure is fatal; a failed run
// leaves partial state behind for the destroy script to unwind.
func (s Service) Install(ctx context.Context, req InstallRequest) (InstallResult, error) {
	hostArch, err := s.HostArch()
	if err != nil {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot determine host architecture").
			WithCause(err)
	}
	cfg, err := buildConfig(ctx, req, hostArch)
	if err != nil {
		return InstallResult{}, err
	}
	emulated := core.NeedsEmulation(cfg.TargetArch, cfg.HostArch)

	if cfg.DryRun {
		matcher, err := core.CompileEnvFilter(cfg.EnvFilter)
		if err != nil {
			return InstallResult{}, err
		}
		log.Ctx(ctx).Info().
			Str("chroot_dir", cfg.ChrootDir).
			Str("arch", cfg.TargetArch).
			Str("branch", cfg.Branch).
			Str("mirror", cfg.MirrorURL).
			Bool("emulated", emulated).
			Strs("packages", cfg.Packages).
			Strs("kept_env", core.FilterEnviron(s.Environ(), matcher)).
			Msg("dry run, nothing will be changed")
		return InstallResult{
			ChrootDir:  cfg.ChrootDir,
			TargetArch: cfg.TargetArch,
			Emulated:   emulated,
		}, nil
	}
	if s.Geteuid() != 0 {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodePermissionDenied).
			WithMsg("root privileges are required, re-run with sudo or use --dry-run")
	}
	s.checkForUpdate(ctx, cfg)

	log.Ctx(ctx).Info().
		Str("chroot_dir", cfg.ChrootDir).
		Str("arch", cfg.TargetArch).
		Str("branch", cfg.Branch).
		Msg("bootstrapping Alpine Linux")

	ownTemp := cfg.TempDir == ""
	tempDir := cfg.TempDir
	if ownTemp {
		tempDir, err = os.MkdirTemp("", "alpine-chroot-*")
	} else {
		err = os.MkdirAll(tempDir, 0755)
	}
	if err != nil {
		return InstallResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create work directory").
			WithCause(err)
	}

	hostRef := types.IndexRef{Mirror: cfg.MirrorURL, Branch: cfg.Branch, Arch: cfg.HostArch}
	targetRef := types.IndexRef{Mirror: cfg.MirrorURL, Branch: cfg.Branch, Arch: cfg.TargetArch}

	toolsRecord, apkTool, err := s.fetchToolBinary(ctx, cfg, hostRef, tempDir)
	if err != nil {
		return InstallResult{}, err
	}
	keysRecord, err := s.fetchTrustKeys(ctx, cfg, targetRef, tempDir)
	if err != nil {
		return InstallResult{}, err
	}
	repos, err := writeRepositories(cfg)
	if err != nil {
		return InstallResult{}, err
	}

	emulatorPath := ""
	if emulated {
		emulatorPath, err = s.provisionEmulator(ctx, cfg)
		if err != nil {
			return InstallResult{}, err
		}
	}

	apk := s.NewPackageTool(apkTool)
	if err := apk.InitDB(ctx, cfg.ChrootDir, cfg.TargetArch); err != nil {
		return InstallResult{}, err
	}
	log.Ctx(ctx).Info().Strs("packages", baselinePackages).Msg("installing base system")
	if err := apk.Add(ctx, cfg.ChrootDir, cfg.TargetArch, baselinePackages); err != nil {
		return InstallResult{}, err
	}
	if err := s.installReleaseMetadata(ctx, cfg, apk, targetRef, tempDir); err != nil {
		return InstallResult{}, err
	}

	if err := s.bindFilesystems(ctx, cfg); err != nil {
		return InstallResult{}, err
	}

	// Scripts are written before the extra packages go in so the destroy
	// script already exists when a long install fails halfway.
	scripts, err := s.writeScripts(cfg, emulatorPath)
	if err != nil {
		return InstallResult{}, err
	}

	if err := s.installExtras(ctx, cfg, apk, targetRef); err != nil {
		return InstallResult{}, err
	}

	manifest := types.Manifest{
		GeneratorVersion: s.versionString(),
		CreatedAt:        s.Clock().UTC().Format(time.RFC3339),
		Branch:           cfg.Branch,
		Mirror:           cfg.MirrorURL,
		TargetArch:       cfg.TargetArch,
		HostArch:         cfg.HostArch,
		Emulated:         emulated,
		ApkTools:         toolsRecord.Version,
		AlpineKeys:       keysRecord.Version,
		BaselinePackages: baselinePackages,
		ExtraPackages:    cfg.Packages,
		Repositories:     repos,
		Scripts:          []string{core.EnterScriptName, core.DestroyScriptName},
	}
	if err := s.Manifest.Write(cfg.ChrootDir, manifest); err != nil {
		return InstallResult{}, err
	}

	if ownTemp {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("work directory not removed")
		}
	}
	log.Ctx(ctx).Info().Str("chroot_dir", cfg.ChrootDir).Msg("chroot ready")

	installed := append(append([]string(nil), baselinePackages...), cfg.Packages...)
	return InstallResult{
		ChrootDir:         cfg.ChrootDir,
		TargetArch:        cfg.TargetArch,
		Emulated:          emulated,
		ApkToolsVersion:   toolsRecord.Version,
		AlpineKeysVersion: keysRecord.Version,
		Installed:         installed,
		Scripts:           scripts,
	}, nil
}

// checkForUpdate logs a notice when a newer release exists. Failures are
// never fatal and dev builds skip the lookup entirely.
func (s Service) checkForUpdate(ctx context.Context, cfg types.BootstrapConfig) {
	if cfg.SkipUpdateCheck || s.Version == "" || s.Version == "dev" {
		return
	}
	latest, err := s.Release.LatestVersion(ctx)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("release check failed")
		return
	}
	if core.CompareVersions(s.Version, latest) < 0 {
		log.Ctx(ctx).Warn().
			Str("current", s.Version).
			Str("latest", latest).
			Msg("a newer release is available")
	}
}

// fetchPackage resolves name in the given index, downloads the package
// archive into dir, and returns the record plus the archive path.
func (s Service) fetchPackage(ctx context.Context, ref types.IndexRef, name string, dir string, verify bool) (types.PackageRecord, string, error) {
	record, err := s.Index.Resolve(ctx, ref, name)
	if err != nil {
		return types.PackageRecord{}, "", err
	}
	log.Ctx(ctx).Debug().
		Str("package", record.Name).
		Str("version", record.Version).
		Str("arch", ref.Arch).
		Msg("package resolved")
	archivePath := filepath.Join(dir, fmt.Sprintf("%s-%s.apk", record.Name, record.Version))
	if err := s.Transport.DownloadFile(ctx, record.DownloadURL, archivePath); err != nil {
		return types.PackageRecord{}, "", err
	}
	if verify {
		s.verifyDownload(ctx, archivePath, record)
	}
	return record, archivePath, nil
}

// verifyDownload checks the index checksum against the downloaded file.
// Index checksums describe content for the package manager's own use, so
// a mismatch is reported but never stops the run.
func (s Service) verifyDownload(ctx context.Context, path string, record types.PackageRecord) {
	status, err := core.VerifyFile(path, record.Checksum)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("package", record.Name).Msg("checksum verification failed")
		return
	}
	switch status {
	case types.ChecksumMismatch:
		log.Ctx(ctx).Warn().Str("package", record.Name).Msg("checksum mismatch, continuing")
	case types.ChecksumUnsupported:
		log.Ctx(ctx).Warn().Str("package", record.Name).Msg("unsupported checksum format, skipping verification")
	}
}

// fetchToolBinary downloads apk-tools-static for the host architecture and
// extracts the static binary to a stable path inside the work directory.
func (s Service) fetchToolBinary(ctx context.Context, cfg types.BootstrapConfig, ref types.IndexRef, tempDir string) (types.PackageRecord, string, error) {
	record, archivePath, err := s.fetchPackage(ctx, ref, "apk-tools-static", tempDir, cfg.VerifyChecksums)
	if err != nil {
		return types.PackageRecord{}, "", err
	}
	apkTool := filepath.Join(tempDir, "apk.static")
	if err := s.Archive.ExtractFile(archivePath, "sbin/apk.static", apkTool); err != nil {
		return types.PackageRecord{}, "", err
	}
	if err := os.Chmod(apkTool, 0755); err != nil {
		return types.PackageRecord{}, "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot mark apk.static executable").
			WithCause(err)
	}
	return record, apkTool, nil
}

// fetchTrustKeys downloads alpine-keys for the target architecture,
// unpacks it into a scratch directory, and copies every key file into the
// chroot's trust directory. Zero keys is fatal, it means a structurally
// different or empty archive.
func (s Service) fetchTrustKeys(ctx context.Context, cfg types.BootstrapConfig, ref types.IndexRef, tempDir string) (types.PackageRecord, error) {
	record, archivePath, err := s.fetchPackage(ctx, ref, "alpine-keys", tempDir, cfg.VerifyChecksums)
	if err != nil {
		return types.PackageRecord{}, err
	}
	scratch := filepath.Join(tempDir, "alpine-keys")
	if err := s.Archive.ExtractAll(archivePath, scratch); err != nil {
		return types.PackageRecord{}, err
	}
	keysDir := filepath.Join(cfg.ChrootDir, "etc", "apk", "keys")
	copied, err := copyTrustKeys(scratch, keysDir)
	if err != nil {
		return types.PackageRecord{}, err
	}
	if copied == 0 {
		return types.PackageRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("no trust keys found in %s", filepath.Base(archivePath)))
	}
	log.Ctx(ctx).Debug().Int("keys", copied).Str("dir", keysDir).Msg("trust keys installed")
	return record, nil
}

// copyTrustKeys copies every regular file found directly under the known
// key locations of the unpacked archive into keysDir.
func copyTrustKeys(scratch string, keysDir string) (int, error) {
	if err := os.MkdirAll(keysDir, 0755); err != nil {
		return 0, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create trust key directory").
			WithCause(err)
	}
	copied := 0
	for _, sub := range trustKeySubdirs {
		entries, err := os.ReadDir(filepath.Join(scratch, sub))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.Type().IsRegular() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(scratch, sub, entry.Name()))
			if err != nil {
				return copied, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("cannot read trust key").
					WithCause(err)
			}
			if err := os.WriteFile(filepath.Join(keysDir, entry.Name()), data, 0644); err != nil {
				return copied, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("cannot install trust key").
					WithCause(err)
			}
			copied++
		}
	}
	return copied, nil
}

// writeRepositories writes the chroot's repository list: main and
// community for the configured mirror and branch, then any extra
// repositories, order preserved.
func writeRepositories(cfg types.BootstrapConfig) ([]string, error) {
	repos := []string{
		cfg.MirrorURL + "/" + cfg.Branch + "/main",
		cfg.MirrorURL + "/" + cfg.Branch + "/community",
	}
	repos = append(repos, cfg.ExtraRepos...)
	path := filepath.Join(cfg.ChrootDir, "etc", "apk", "repositories")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot create apk configuration directory").
			WithCause(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(repos, "\n")+"\n"), 0644); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot write repositories file").
			WithCause(err)
	}
	return repos, nil
}

// provisionEmulator makes sure the host can execute binaries for the
// target architecture and copies the static emulator into the chroot.
// Returns the emulator path as seen from inside the chroot.
func (s Service) provisionEmulator(ctx context.Context, cfg types.BootstrapConfig) (string, error) {
	binary := core.EmulatorBinary(cfg.TargetArch)
	hostPath, ok := s.HostPackages.LocateEmulator(cfg.TargetArch)
	if !ok {
		log.Ctx(ctx).Info().
			Str("binary", binary).
			Str("manager", s.HostPackages.Name()).
			Msg("installing emulator on the host")
		// One cache refresh per run, ahead of the only host install.
		if err := s.HostPackages.Refresh(ctx); err != nil {
			return "", err
		}
		if err := s.HostPackages.InstallEmulator(ctx, cfg.TargetArch); err != nil {
			return "", err
		}
		hostPath, ok = s.HostPackages.LocateEmulator(cfg.TargetArch)
		if !ok {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("%s is still missing after host install", binary))
		}
	}
	registered, err := s.Binfmt.Registered(cfg.TargetArch)
	if err != nil {
		return "", err
	}
	if !registered {
		if err := s.Binfmt.Register(ctx, cfg.TargetArch); err != nil {
			return "", err
		}
	}
	dest := filepath.Join(cfg.ChrootDir, "usr", "bin", binary)
	if err := copyFile(hostPath, dest, 0755); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("cannot copy emulator into the chroot").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Str("emulator", hostPath).Str("dest", dest).Msg("emulator provisioned")
	return "/usr/bin/" + binary, nil
}

// installReleaseMetadata installs alpine-release when the database knows
// it, otherwise raw-fetches the package and unpacks only its etc/ subtree.
// Some branch and architecture combinations do not carry the release
// package as an installable unit.
func (s Service) installReleaseMetadata(ctx context.Context, cfg types.BootstrapConfig, apk ports.PackageToolPort, ref types.IndexRef, tempDir string) error {
	known, err := apk.HasPackage(ctx, cfg.ChrootDir, "alpine-release")
	if err != nil {
		return err
	}
	if known {
		return apk.Add(ctx, cfg.ChrootDir, cfg.TargetArch, []string{"alpine-release"})
	}
	log.Ctx(ctx).Debug().Msg("alpine-release not installable, unpacking its files directly")
	_, archivePath, err := s.fetchPackage(ctx, ref, "alpine-release", tempDir, cfg.VerifyChecksums)
	if err != nil {
		return err
	}
	return s.Archive.ExtractPrefix(archivePath, "etc", filepath.Join(cfg.ChrootDir, "etc"))
}

// bindFilesystems executes the mount plan. Targets that are already
// mountpoints are skipped so a re-run over a live chroot does not stack
// mounts.
func (s Service) bindFilesystems(ctx context.Context, cfg types.BootstrapConfig) error {
	plan := core.BuildMountPlan(cfg.ChrootDir, cfg.BindDir, probeHostMounts(cfg.BindDir))
	for _, step := range plan {
		mounted, err := s.Mounter.IsMountPoint(step.Target)
		if err != nil {
			return err
		}
		if mounted {
			log.Ctx(ctx).Debug().Str("target", step.Target).Msg("already mounted")
			continue
		}
		if err := s.Mounter.Mount(step); err != nil {
			return err
		}
	}
	return nil
}

// probeHostMounts collects the host facts the mount plan's conditional
// entries depend on.
func probeHostMounts(bindDir string) core.HostMountInfo {
	var info core.HostMountInfo
	if fi, err := os.Lstat("/dev/shm"); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		info.DevShmIsSymlink = true
	}
	if fi, err := os.Stat("/run/shm"); err == nil && fi.IsDir() {
		info.RunShmIsDir = true
	}
	if bindDir != "" {
		if fi, err := os.Stat(bindDir); err == nil && fi.IsDir() {
			info.BindDirExists = true
		}
	}
	return info
}

// writeScripts renders and installs both lifecycle scripts at the chroot
// root, returning their absolute paths.
func (s Service) writeScripts(cfg types.BootstrapConfig, emulatorPath string) ([]string, error) {
	enter, err := core.EnterScript(cfg, emulatorPath)
	if err != nil {
		return nil, err
	}
	enterPath := filepath.Join(cfg.ChrootDir, core.EnterScriptName)
	if err := s.Scripts.WriteScript(enterPath, enter); err != nil {
		return nil, err
	}
	destroyPath := filepath.Join(cfg.ChrootDir, core.DestroyScriptName)
	if err := s.Scripts.WriteScript(destroyPath, core.DestroyScript()); err != nil {
		return nil, err
	}
	return []string{enterPath, destroyPath}, nil
}

// installExtras validates pinned entries against the index and installs
// the extra package list. Raw entries go to apk unchanged since it
// understands the same constraint operators.
func (s Service) installExtras(ctx context.Context, cfg types.BootstrapConfig, apk ports.PackageToolPort, ref types.IndexRef) error {
	if len(cfg.Packages) == 0 {
		return nil
	}
	for _, raw := range cfg.Packages {
		pin, err := core.ParsePin(raw)
		if err != nil {
			return err
		}
		if pin.Op == types.ConstraintOpNone {
			continue
		}
		record, err := s.Index.Resolve(ctx, ref, pin.Name)
		if err != nil {
			return err
		}
		if !core.PinSatisfied(pin, record.Version) {
			return errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg(fmt.Sprintf("pin %s not satisfiable, index has %s %s", raw, pin.Name, record.Version))
		}
	}
	log.Ctx(ctx).Info().Strs("packages", cfg.Packages).Msg("installing extra packages")
	return apk.Add(ctx, cfg.ChrootDir, cfg.TargetArch, cfg.Packages)
}

func (s Service) versionString() string {
	if s.Version == "" {
		return "dev"
	}
	return s.Version
}

func copyFile(src string, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
