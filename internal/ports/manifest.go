package ports

import "alpine-chroot/internal/types"

// ManifestPort reads and writes the bootstrap manifest kept inside a
// provisioned chroot.
type ManifestPort interface {
	Write(root string, manifest types.Manifest) error
	Read(root string) (types.Manifest, error)
}
