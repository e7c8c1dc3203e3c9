package adapters

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/ports"
)

// TarArchiveAdapter unpacks the gzip-compressed tar archives used by
// Alpine packages. Member names are sanitized before joining so a
// crafted archive cannot write outside the destination.
type TarArchiveAdapter struct{}

func NewTarArchiveAdapter() TarArchiveAdapter {
	return TarArchiveAdapter{}
}

func (a TarArchiveAdapter) ExtractFile(archivePath string, memberPath string, destPath string) error {
	want := cleanMemberName(memberPath)
	found := false
	err := walkArchive(archivePath, func(header *tar.Header, tr *tar.Reader) (bool, error) {
		if header.Typeflag != tar.TypeReg || cleanMemberName(header.Name) != want {
			return false, nil
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create extraction directory").
				WithCause(err)
		}
		if err := writeMember(destPath, tr, header.FileInfo().Mode()); err != nil {
			return false, err
		}
		found = true
		return true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("archive member %s not found in %s", memberPath, archivePath))
	}
	return nil
}

func (a TarArchiveAdapter) ExtractAll(archivePath string, destDir string) error {
	return walkArchive(archivePath, func(header *tar.Header, tr *tar.Reader) (bool, error) {
		return false, extractEntry(header, tr, destDir, cleanMemberName(header.Name))
	})
}

func (a TarArchiveAdapter) ExtractPrefix(archivePath string, prefix string, destDir string) error {
	want := cleanMemberName(prefix) + "/"
	return walkArchive(archivePath, func(header *tar.Header, tr *tar.Reader) (bool, error) {
		name := cleanMemberName(header.Name)
		if !strings.HasPrefix(name, want) {
			return false, nil
		}
		// Layout below the prefix is preserved; the prefix itself is
		// stripped so sibling prefixes merge into one destination.
		return false, extractEntry(header, tr, destDir, strings.TrimPrefix(name, want))
	})
}

func extractEntry(header *tar.Header, tr *tar.Reader, destDir string, relName string) error {
	if relName == "" || relName == "." {
		return nil
	}
	dest, err := safeJoin(destDir, relName)
	if err != nil {
		return err
	}
	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(dest, 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create directory from archive").
				WithCause(err)
		}
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create extraction directory").
				WithCause(err)
		}
		return writeMember(dest, tr, header.FileInfo().Mode())
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to create extraction directory").
				WithCause(err)
		}
		os.Remove(dest)
		if err := os.Symlink(header.Linkname, dest); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to restore symlink from archive").
				WithCause(err)
		}
	}
	return nil
}

func writeMember(dest string, tr *tar.Reader, mode os.FileMode) error {
	file, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create file from archive").
			WithCause(err)
	}
	defer file.Close()
	if _, err := io.Copy(file, tr); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write file from archive").
			WithCause(err)
	}
	return nil
}

func walkArchive(archivePath string, fn func(*tar.Header, *tar.Reader) (bool, error)) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open archive").
			WithCause(err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decompress archive").
			WithCause(err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read archive").
				WithCause(err)
		}
		stop, err := fn(header, tr)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func cleanMemberName(name string) string {
	return strings.TrimPrefix(filepath.Clean(strings.TrimPrefix(name, "./")), "/")
}

func safeJoin(destDir string, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || filepath.IsAbs(cleaned) {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("archive member escapes destination: %s", name))
	}
	return filepath.Join(destDir, cleaned), nil
}

var _ ports.ArchivePort = TarArchiveAdapter{}
