package core

import (
	"path/filepath"

	"alpine-chroot/internal/types"
)

// HostMountInfo captures the host filesystem facts that decide which
// optional mounts the plan includes.
type HostMountInfo struct {
	// DevShmIsSymlink is true when /dev/shm resolves to a symlink,
	// which on such hosts points into /run/shm.
	DevShmIsSymlink bool
	// RunShmIsDir is true when /run/shm exists as a real directory.
	RunShmIsDir bool
	// BindDirExists is true when the requested shared directory is
	// present on the host.
	BindDirExists bool
}

// BuildMountPlan returns the ordered mount steps for a chroot at root.
// The fixed steps cover proc, sys and dev; /run/shm is added only when
// the host routes /dev/shm through it, and bindDir only when one was
// requested and exists.
func BuildMountPlan(root string, bindDir string, host HostMountInfo) []types.MountStep {
	steps := []types.MountStep{
		{
			Source: "proc",
			Target: filepath.Join(root, "proc"),
			FSType: "proc",
		},
		{
			Source:      "/sys",
			Target:      filepath.Join(root, "sys"),
			Bind:        true,
			Recursive:   true,
			Propagation: types.PropagationRPrivate,
		},
		{
			Source:      "/dev",
			Target:      filepath.Join(root, "dev"),
			Bind:        true,
			Recursive:   true,
			Propagation: types.PropagationRPrivate,
		},
	}
	if host.DevShmIsSymlink && host.RunShmIsDir {
		steps = append(steps, types.MountStep{
			Source:      "/run/shm",
			Target:      filepath.Join(root, "run", "shm"),
			Bind:        true,
			Propagation: types.PropagationPrivate,
		})
	}
	if bindDir != "" && host.BindDirExists {
		steps = append(steps, types.MountStep{
			Source:      bindDir,
			Target:      filepath.Join(root, bindDir),
			Bind:        true,
			Propagation: types.PropagationPrivate,
		})
	}
	return steps
}
