package types

// Constraint is a version pin attached to a package list entry, e.g.
// "busybox>=1.36.1-r2". Raw preserves the original spelling so it can be
// handed to the package tool unchanged.
type Constraint struct {
	Name    string
	Op      ConstraintOp
	Version string
	Raw     string
}
