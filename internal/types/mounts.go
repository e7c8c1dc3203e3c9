package types

// MountStep is one entry of the mount plan executed by the filesystem
// binder. FSType is set for kernel filesystems (proc); bind mounts leave
// it empty and set Bind. Propagation is applied as a second remount after
// the mount itself succeeds.
type MountStep struct {
	Source      string
	Target      string
	FSType      string
	Bind        bool
	Recursive   bool
	Propagation Propagation
}
