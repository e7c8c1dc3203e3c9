package core

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/types"
)

const (
	sha1HexLen   = 40
	sha256HexLen = 64
)

// VerifyFile hashes the file at path and compares it against the
// expected hex digest. The digest length selects the algorithm: 40
// characters means SHA-1, 64 means SHA-256. Any other length (index
// checksums are often not plain file digests) yields
// ChecksumUnsupported so the caller can warn and move on. An empty
// digest also reports ChecksumUnsupported.
func VerifyFile(path string, digest string) (types.ChecksumStatus, error) {
	digest = strings.TrimSpace(digest)
	var hasher hash.Hash
	switch len(digest) {
	case sha1HexLen:
		hasher = sha1.New()
	case sha256HexLen:
		hasher = sha256.New()
	default:
		return types.ChecksumUnsupported, nil
	}
	if !isHex(digest) {
		return types.ChecksumUnsupported, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return types.ChecksumUnsupported, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open file for checksum").
			WithCause(err)
	}
	defer file.Close()
	if _, err := io.Copy(hasher, file); err != nil {
		return types.ChecksumUnsupported, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to hash file").
			WithCause(err)
	}
	actual := hex.EncodeToString(hasher.Sum(nil))
	if strings.EqualFold(actual, digest) {
		return types.ChecksumVerified, nil
	}
	return types.ChecksumMismatch, nil
}

func isHex(value string) bool {
	_, err := hex.DecodeString(value)
	return err == nil
}
