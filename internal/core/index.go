package core

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/types"
)

// IndexURL returns the location of the compressed package index for the
// given repository reference.
func IndexURL(ref types.IndexRef) string {
	return fmt.Sprintf("%s/%s/main/%s/APKINDEX.tar.gz",
		strings.TrimRight(ref.Mirror, "/"), ref.Branch, ref.Arch)
}

// PackageURL returns the download location of a package archive inside
// the repository the record was resolved from.
func PackageURL(ref types.IndexRef, name string, version string) string {
	return fmt.Sprintf("%s/%s/main/%s/%s-%s.apk",
		strings.TrimRight(ref.Mirror, "/"), ref.Branch, ref.Arch, name, version)
}

// ParseIndex scans an uncompressed APKINDEX member for the block whose
// package name matches exactly. Blocks are key:value lines separated by
// blank lines; recognized keys are P (name), V (version), L (license),
// U (url), c (checksum), and A (architecture), everything else is
// skipped. The first matching block wins and scanning stops there.
func ParseIndex(reader io.Reader, name string) (types.PackageRecord, bool, error) {
	buffered := bufio.NewReader(reader)
	var record types.PackageRecord
	flush := func() bool {
		matched := record.Name == name
		if !matched {
			record = types.PackageRecord{}
		}
		return matched
	}
	for {
		line, err := buffered.ReadString('\n')
		if err != nil && err != io.EOF {
			return types.PackageRecord{}, false, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to read package index").
				WithCause(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if flush() {
				return record, true, nil
			}
			if err == io.EOF {
				break
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if ok {
			switch key {
			case "P":
				record.Name = value
			case "V":
				record.Version = value
			case "L":
				record.License = value
			case "U":
				record.Homepage = value
			case "c":
				record.Checksum = value
			case "A":
				record.Architecture = value
			}
		}
		if err == io.EOF {
			break
		}
	}
	if flush() {
		return record, true, nil
	}
	return types.PackageRecord{}, false, nil
}
