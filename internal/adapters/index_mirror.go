package adapters

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/core"
	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/types"
)

// MirrorIndexAdapter resolves package records from a mirror's
// APKINDEX.tar.gz. The compressed index is staged under TempDir before
// parsing so transport retries never interleave with tar decoding.
type MirrorIndexAdapter struct {
	Transport ports.TransportPort
	TempDir   string
}

func NewMirrorIndexAdapter(transport ports.TransportPort, tempDir string) MirrorIndexAdapter {
	return MirrorIndexAdapter{Transport: transport, TempDir: tempDir}
}

func (a MirrorIndexAdapter) Resolve(ctx context.Context, ref types.IndexRef, name string) (types.PackageRecord, error) {
	if strings.TrimSpace(name) == "" {
		return types.PackageRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	scratch, err := os.CreateTemp(a.TempDir, "apkindex-*.tar.gz")
	if err != nil {
		return types.PackageRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create index scratch file").
			WithCause(err)
	}
	scratchPath := scratch.Name()
	scratch.Close()
	defer os.Remove(scratchPath)

	indexURL := core.IndexURL(ref)
	if err := a.Transport.DownloadFile(ctx, indexURL, scratchPath); err != nil {
		return types.PackageRecord{}, err
	}
	record, found, err := a.scanIndex(scratchPath, name)
	if err != nil {
		return types.PackageRecord{}, err
	}
	if !found {
		return types.PackageRecord{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("package %s not found in %s", name, indexURL))
	}
	record.DownloadURL = core.PackageURL(ref, record.Name, record.Version)
	return record, nil
}

func (a MirrorIndexAdapter) scanIndex(archivePath string, name string) (types.PackageRecord, bool, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return types.PackageRecord{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open index archive").
			WithCause(err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return types.PackageRecord{}, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decompress index archive").
			WithCause(err)
	}
	defer gz.Close()

	// The index tarball carries signature members next to the APKINDEX
	// text; only the text member is parsed.
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return types.PackageRecord{}, false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read index archive").
				WithCause(err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if path.Base(header.Name) != "APKINDEX" {
			continue
		}
		return core.ParseIndex(tr, name)
	}
	return types.PackageRecord{}, false, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("index archive has no APKINDEX member")
}

var _ ports.PackageIndexPort = MirrorIndexAdapter{}
