package ports

import "context"

// PackageToolPort drives the static package manager binary against a
// target root. Arch may be empty, in which case the tool's native
// architecture applies.
type PackageToolPort interface {
	// InitDB initializes the package database at root.
	InitDB(ctx context.Context, root string, arch string) error

	// Add installs packages into root, updating the index cache.
	// Entries may carry version constraints in the tool's own syntax.
	Add(ctx context.Context, root string, arch string, packages []string) error

	// HasPackage reports whether the initialized database knows the
	// named package.
	HasPackage(ctx context.Context, root string, name string) (bool, error)
}
