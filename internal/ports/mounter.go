package ports

import "alpine-chroot/internal/types"

// MounterPort executes one mount-plan step, creating the target
// directory when needed. IsMountPoint consults the live mount table so
// re-runs can skip targets that are already bound.
type MounterPort interface {
	Mount(step types.MountStep) error
	IsMountPoint(path string) (bool, error)
}
