package ports

import (
	"context"

	"alpine-chroot/internal/types"
)

// PackageIndexPort resolves a package name against one repository index.
// Resolution returns a NotFound error when no index block matches the
// name exactly.
type PackageIndexPort interface {
	Resolve(ctx context.Context, ref types.IndexRef, name string) (types.PackageRecord, error)
}
