package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/types"
)

// ---------------------------------------------------------------------------
// port fakes
// ---------------------------------------------------------------------------

type fakeTransport struct {
	downloads []string
}

func (f *fakeTransport) DownloadFile(_ context.Context, url string, destPath string) error {
	f.downloads = append(f.downloads, url)
	return os.WriteFile(destPath, []byte("archive"), 0644)
}

func (f *fakeTransport) Download(_ context.Context, url string, dest io.Writer) error {
	f.downloads = append(f.downloads, url)
	_, err := dest.Write([]byte(`{"tag_name":"v1.0.0"}`))
	return err
}

type fakeIndex struct {
	records map[string]types.PackageRecord
	calls   []string
}

func (f *fakeIndex) Resolve(_ context.Context, ref types.IndexRef, name string) (types.PackageRecord, error) {
	f.calls = append(f.calls, name+"@"+ref.Arch)
	record, ok := f.records[name]
	if !ok {
		return types.PackageRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("package " + name + " not found")
	}
	return record, nil
}

// fakeArchive materializes keyFiles under the destination on ExtractAll so
// the key-copy step has something real to work with.
type fakeArchive struct {
	keyFiles  []string
	extracted []string
}

func (f *fakeArchive) ExtractFile(_ string, memberPath string, destPath string) error {
	f.extracted = append(f.extracted, "file:"+memberPath)
	return os.WriteFile(destPath, []byte("#!fake\n"), 0755)
}

func (f *fakeArchive) ExtractAll(_ string, destDir string) error {
	f.extracted = append(f.extracted, "all")
	for _, rel := range f.keyFiles {
		path := filepath.Join(destDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte("key material"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeArchive) ExtractPrefix(_ string, prefix string, destDir string) error {
	f.extracted = append(f.extracted, "prefix:"+prefix)
	return os.MkdirAll(destDir, 0755)
}

type fakeMounter struct {
	mounted []types.MountStep
	already map[string]bool
}

func (f *fakeMounter) Mount(step types.MountStep) error {
	f.mounted = append(f.mounted, step)
	return nil
}

func (f *fakeMounter) IsMountPoint(path string) (bool, error) {
	return f.already[path], nil
}

type fakeScripts struct {
	written map[string]string
}

func (f *fakeScripts) WriteScript(path string, content string) error {
	f.written[path] = content
	return nil
}

type fakeHostPackages struct {
	path         string
	preinstalled bool
	refreshes    int
	installs     []string
}

func (f *fakeHostPackages) Name() string { return "fake-mgr" }

func (f *fakeHostPackages) Refresh(_ context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeHostPackages) InstallEmulator(_ context.Context, arch string) error {
	f.installs = append(f.installs, arch)
	return nil
}

func (f *fakeHostPackages) LocateEmulator(string) (string, bool) {
	if f.preinstalled || len(f.installs) > 0 {
		return f.path, true
	}
	return "", false
}

type fakeBinfmt struct {
	registered map[string]bool
	registers  []string
}

func (f *fakeBinfmt) Registered(arch string) (bool, error) {
	return f.registered[arch], nil
}

func (f *fakeBinfmt) Register(_ context.Context, arch string) error {
	f.registers = append(f.registers, arch)
	return nil
}

type fakeRelease struct {
	latest string
	calls  int
}

func (f *fakeRelease) LatestVersion(_ context.Context) (string, error) {
	f.calls++
	return f.latest, nil
}

type fakeManifest struct {
	written *types.Manifest
	root    string
}

func (f *fakeManifest) Write(root string, manifest types.Manifest) error {
	f.root = root
	f.written = &manifest
	return nil
}

func (f *fakeManifest) Read(string) (types.Manifest, error) {
	if f.written == nil {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("no bootstrap manifest found")
	}
	return *f.written, nil
}

type fakeApk struct {
	tool  string
	inits []string
	added [][]string
	has   map[string]bool
}

func (f *fakeApk) InitDB(_ context.Context, root string, arch string) error {
	f.inits = append(f.inits, root+"@"+arch)
	return nil
}

func (f *fakeApk) Add(_ context.Context, _ string, _ string, packages []string) error {
	f.added = append(f.added, packages)
	return nil
}

func (f *fakeApk) HasPackage(_ context.Context, _ string, name string) (bool, error) {
	return f.has[name], nil
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

type installFixture struct {
	service   Service
	transport *fakeTransport
	index     *fakeIndex
	archive   *fakeArchive
	mounter   *fakeMounter
	scripts   *fakeScripts
	host      *fakeHostPackages
	binfmt    *fakeBinfmt
	release   *fakeRelease
	manifest  *fakeManifest
	apk       *fakeApk
	toolCalls int
}

func newInstallFixture(t *testing.T) *installFixture {
	t.Helper()
	emulator := filepath.Join(t.TempDir(), "qemu-aarch64-static")
	require.NoError(t, os.WriteFile(emulator, []byte("emulator"), 0755))

	fx := &installFixture{
		transport: &fakeTransport{},
		index: &fakeIndex{records: map[string]types.PackageRecord{
			"apk-tools-static": {
				Name:        "apk-tools-static",
				Version:     "2.14.4-r0",
				DownloadURL: "https://mirror.test/apk-tools-static-2.14.4-r0.apk",
			},
			"alpine-keys": {
				Name:        "alpine-keys",
				Version:     "2.5-r0",
				DownloadURL: "https://mirror.test/alpine-keys-2.5-r0.apk",
			},
			"alpine-release": {
				Name:        "alpine-release",
				Version:     "3.20.2-r0",
				DownloadURL: "https://mirror.test/alpine-release-3.20.2-r0.apk",
			},
			"busybox": {
				Name:        "busybox",
				Version:     "1.36.1-r2",
				DownloadURL: "https://mirror.test/busybox-1.36.1-r2.apk",
			},
		}},
		archive: &fakeArchive{keyFiles: []string{
			"etc/apk/keys/alpine-devel@lists.alpinelinux.org-4a6a0840.rsa.pub",
			"usr/share/apk/keys/alpine-devel@lists.alpinelinux.org-5243ef4b.rsa.pub",
		}},
		mounter:  &fakeMounter{already: map[string]bool{}},
		scripts:  &fakeScripts{written: map[string]string{}},
		host:     &fakeHostPackages{path: emulator},
		binfmt:   &fakeBinfmt{registered: map[string]bool{}},
		release:  &fakeRelease{latest: "1.0.0"},
		manifest: &fakeManifest{},
		apk:      &fakeApk{has: map[string]bool{"alpine-release": true}},
	}
	fx.service = Service{
		Transport:    fx.transport,
		Index:        fx.index,
		Archive:      fx.archive,
		Mounter:      fx.mounter,
		Scripts:      fx.scripts,
		HostPackages: fx.host,
		Binfmt:       fx.binfmt,
		Release:      fx.release,
		Manifest:     fx.manifest,
		NewPackageTool: func(tool string) ports.PackageToolPort {
			fx.toolCalls++
			fx.apk.tool = tool
			return fx.apk
		},
		Clock:    func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		Geteuid:  func() int { return 0 },
		Environ:  func() []string { return []string{"ARCH=x86_64", "HOME=/root"} },
		HostArch: func() (string, error) { return "x86_64", nil },
	}
	return fx
}

func (fx *installFixture) request(t *testing.T) InstallRequest {
	t.Helper()
	return InstallRequest{
		ChrootDir: filepath.Join(t.TempDir(), "alpine"),
		TempDir:   t.TempDir(),
	}
}

// ---------------------------------------------------------------------------
// pipeline tests
// ---------------------------------------------------------------------------

func TestInstallHappyPath(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	req.Packages = []string{"busybox>=1.36.0"}

	result, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)

	// Tools resolved for the host, keys for the target (identical here).
	assert.Equal(t, "apk-tools-static@x86_64", fx.index.calls[0])
	assert.Equal(t, "alpine-keys@x86_64", fx.index.calls[1])
	assert.Len(t, fx.transport.downloads, 2)

	assert.Contains(t, fx.archive.extracted, "file:sbin/apk.static")
	assert.Contains(t, fx.archive.extracted, "all")

	// Keys from both archive locations land flat in etc/apk/keys.
	keysDir := filepath.Join(result.ChrootDir, "etc", "apk", "keys")
	entries, err := os.ReadDir(keysDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	repos, err := os.ReadFile(filepath.Join(result.ChrootDir, "etc", "apk", "repositories"))
	require.NoError(t, err)
	wantRepos := "https://dl-cdn.alpinelinux.org/alpine/latest-stable/main\n" +
		"https://dl-cdn.alpinelinux.org/alpine/latest-stable/community\n"
	if diff := cmp.Diff(wantRepos, string(repos)); diff != "" {
		t.Fatalf("unexpected repositories file (-want +got):\n%s", diff)
	}

	require.Equal(t, 1, fx.toolCalls)
	assert.True(t, strings.HasSuffix(fx.apk.tool, "apk.static"), "tool path: %s", fx.apk.tool)
	require.Len(t, fx.apk.inits, 1)
	assert.Equal(t, result.ChrootDir+"@x86_64", fx.apk.inits[0])

	require.Len(t, fx.apk.added, 3)
	assert.Equal(t, baselinePackages, fx.apk.added[0])
	assert.Equal(t, []string{"alpine-release"}, fx.apk.added[1])
	assert.Equal(t, []string{"busybox>=1.36.0"}, fx.apk.added[2])

	// Mount plan opens with the three unconditional entries in order.
	require.GreaterOrEqual(t, len(fx.mounter.mounted), 3)
	assert.Equal(t, filepath.Join(result.ChrootDir, "proc"), fx.mounter.mounted[0].Target)
	assert.Equal(t, filepath.Join(result.ChrootDir, "sys"), fx.mounter.mounted[1].Target)
	assert.Equal(t, filepath.Join(result.ChrootDir, "dev"), fx.mounter.mounted[2].Target)

	enter := fx.scripts.written[filepath.Join(result.ChrootDir, "enter-chroot")]
	require.NotEmpty(t, enter)
	assert.Contains(t, enter, "chroot .")
	assert.NotEmpty(t, fx.scripts.written[filepath.Join(result.ChrootDir, "destroy")])

	require.NotNil(t, fx.manifest.written)
	assert.Equal(t, result.ChrootDir, fx.manifest.root)
	assert.Equal(t, "2.14.4-r0", fx.manifest.written.ApkTools)
	assert.Equal(t, "2.5-r0", fx.manifest.written.AlpineKeys)
	assert.Equal(t, "2024-05-01T12:00:00Z", fx.manifest.written.CreatedAt)
	assert.False(t, fx.manifest.written.Emulated)

	assert.Equal(t, "2.14.4-r0", result.ApkToolsVersion)
	assert.Equal(t, "2.5-r0", result.AlpineKeysVersion)
	assert.False(t, result.Emulated)

	// Same architecture, so the provisioner must never run.
	assert.Zero(t, fx.host.refreshes)
	assert.Empty(t, fx.host.installs)
	assert.Empty(t, fx.binfmt.registers)
}

func TestInstallDryRunTouchesNothing(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	req.DryRun = true

	result, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ChrootDir, result.ChrootDir)

	assert.Empty(t, fx.transport.downloads)
	assert.Empty(t, fx.index.calls)
	assert.Empty(t, fx.mounter.mounted)
	assert.Empty(t, fx.scripts.written)
	assert.Zero(t, fx.toolCalls)
	assert.Nil(t, fx.manifest.written)
	_, statErr := os.Stat(req.ChrootDir)
	assert.True(t, os.IsNotExist(statErr), "chroot dir must not be created")
}

func TestInstallDryRunSkipsPrivilegeCheck(t *testing.T) {
	fx := newInstallFixture(t)
	fx.service.Geteuid = func() int { return 1000 }
	req := fx.request(t)
	req.DryRun = true

	_, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)
}

func TestInstallRequiresRoot(t *testing.T) {
	fx := newInstallFixture(t)
	fx.service.Geteuid = func() int { return 1000 }

	_, err := fx.service.Install(t.Context(), fx.request(t))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodePermissionDenied, errbuilder.CodeOf(err))
	assert.Empty(t, fx.transport.downloads, "nothing may run before the privilege check")
}

func TestInstallEmulatedWithPreinstalledEmulator(t *testing.T) {
	fx := newInstallFixture(t)
	fx.host.preinstalled = true
	req := fx.request(t)
	req.Arch = "aarch64"

	result, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)
	assert.True(t, result.Emulated)

	// Tools follow the host arch, keys follow the target arch.
	assert.Equal(t, "apk-tools-static@x86_64", fx.index.calls[0])
	assert.Equal(t, "alpine-keys@aarch64", fx.index.calls[1])

	assert.Zero(t, fx.host.refreshes)
	assert.Empty(t, fx.host.installs)
	assert.Equal(t, []string{"aarch64"}, fx.binfmt.registers)

	copied := filepath.Join(result.ChrootDir, "usr", "bin", "qemu-aarch64-static")
	info, err := os.Stat(copied)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "emulator", string(data))

	enter := fx.scripts.written[filepath.Join(result.ChrootDir, "enter-chroot")]
	assert.Contains(t, enter, "export QEMU_EMULATOR='/usr/bin/qemu-aarch64-static'")
	assert.True(t, fx.manifest.written.Emulated)
}

func TestInstallEmulatedInstallsEmulatorOnce(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	req.Arch = "armv7"

	_, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, fx.host.refreshes)
	assert.Equal(t, []string{"armv7"}, fx.host.installs)
}

func TestInstallSkipsAlreadyRegisteredBinfmt(t *testing.T) {
	fx := newInstallFixture(t)
	fx.host.preinstalled = true
	fx.binfmt.registered["aarch64"] = true
	req := fx.request(t)
	req.Arch = "aarch64"

	_, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)
	assert.Empty(t, fx.binfmt.registers)
}

func TestInstallZeroTrustKeysFatal(t *testing.T) {
	fx := newInstallFixture(t)
	fx.archive.keyFiles = nil

	_, err := fx.service.Install(t.Context(), fx.request(t))
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	assert.Contains(t, errorText(err), "no trust keys")
}

func TestInstallReleaseFallbackUnpacksEtc(t *testing.T) {
	fx := newInstallFixture(t)
	fx.apk.has = map[string]bool{}

	_, err := fx.service.Install(t.Context(), fx.request(t))
	require.NoError(t, err)

	assert.Contains(t, fx.index.calls, "alpine-release@x86_64")
	assert.Contains(t, fx.archive.extracted, "prefix:etc")
	// Only the baseline install, no apk add alpine-release.
	require.Len(t, fx.apk.added, 1)
	assert.Equal(t, baselinePackages, fx.apk.added[0])
}

func TestInstallUnsatisfiablePin(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	req.Packages = []string{"busybox>=2.0"}

	_, err := fx.service.Install(t.Context(), req)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeFailedPrecondition, errbuilder.CodeOf(err))

	// Baseline and release went in, the extras never did.
	require.Len(t, fx.apk.added, 2)
	// The destroy script was already in place for cleanup.
	assert.Len(t, fx.scripts.written, 2)
}

func TestInstallPinnedPackageMissingFromIndex(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	req.Packages = []string{"no-such-package>=1.0"}

	_, err := fx.service.Install(t.Context(), req)
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestInstallSkipsMountedTargets(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	fx.mounter.already[filepath.Join(req.ChrootDir, "proc")] = true

	_, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)

	require.NotEmpty(t, fx.mounter.mounted)
	assert.Equal(t, filepath.Join(req.ChrootDir, "sys"), fx.mounter.mounted[0].Target)
}

func TestInstallBindDirMounted(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)
	req.BindDir = t.TempDir()

	result, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)

	last := fx.mounter.mounted[len(fx.mounter.mounted)-1]
	assert.Equal(t, req.BindDir, last.Source)
	assert.Equal(t, filepath.Join(result.ChrootDir, req.BindDir), last.Target)
	assert.Equal(t, types.PropagationPrivate, last.Propagation)
}

func TestInstallUpdateCheck(t *testing.T) {
	t.Run("outdated version queries the release api", func(t *testing.T) {
		fx := newInstallFixture(t)
		fx.service.Version = "0.9.0"
		_, err := fx.service.Install(t.Context(), fx.request(t))
		require.NoError(t, err)
		assert.Equal(t, 1, fx.release.calls)
	})
	t.Run("skip flag suppresses it", func(t *testing.T) {
		fx := newInstallFixture(t)
		fx.service.Version = "0.9.0"
		req := fx.request(t)
		req.SkipUpdateCheck = true
		_, err := fx.service.Install(t.Context(), req)
		require.NoError(t, err)
		assert.Zero(t, fx.release.calls)
	})
	t.Run("dev builds never query", func(t *testing.T) {
		fx := newInstallFixture(t)
		fx.service.Version = "dev"
		_, err := fx.service.Install(t.Context(), fx.request(t))
		require.NoError(t, err)
		assert.Zero(t, fx.release.calls)
	})
}

func TestInspectRoundTrip(t *testing.T) {
	fx := newInstallFixture(t)
	req := fx.request(t)

	result, err := fx.service.Install(t.Context(), req)
	require.NoError(t, err)

	inspected, err := fx.service.Inspect(InspectRequest{ChrootDir: result.ChrootDir})
	require.NoError(t, err)
	assert.Equal(t, "latest-stable", inspected.Manifest.Branch)
	assert.Equal(t, "2.14.4-r0", inspected.Manifest.ApkTools)
}

func TestInspectMissingManifest(t *testing.T) {
	fx := newInstallFixture(t)
	_, err := fx.service.Inspect(InspectRequest{ChrootDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}

func TestResolveDefaultsToHostArch(t *testing.T) {
	fx := newInstallFixture(t)
	result, err := fx.service.Resolve(t.Context(), ResolveRequest{Name: "busybox"})
	require.NoError(t, err)
	assert.Equal(t, "1.36.1-r2", result.Record.Version)
	assert.Equal(t, []string{"busybox@x86_64"}, fx.index.calls)
}

func TestResolveRequiresName(t *testing.T) {
	fx := newInstallFixture(t)
	_, err := fx.service.Resolve(t.Context(), ResolveRequest{})
	require.Error(t, err)
	assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func errorText(err error) string {
	var builder *errbuilder.ErrBuilder
	if errors.As(err, &builder) {
		return builder.Msg
	}
	return err.Error()
}
