package types

type ConstraintOp string

const (
	ConstraintOpNone  ConstraintOp = ""
	ConstraintOpEq    ConstraintOp = "="
	ConstraintOpGte   ConstraintOp = ">="
	ConstraintOpLte   ConstraintOp = "<="
	ConstraintOpGt    ConstraintOp = ">"
	ConstraintOpLt    ConstraintOp = "<"
	ConstraintOpFuzzy ConstraintOp = "~"
)

type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
)

type Propagation string

const (
	PropagationNone     Propagation = ""
	PropagationPrivate  Propagation = "private"
	PropagationRPrivate Propagation = "rprivate"
)

type ChecksumStatus string

const (
	ChecksumVerified    ChecksumStatus = "verified"
	ChecksumMismatch    ChecksumStatus = "mismatch"
	ChecksumUnsupported ChecksumStatus = "unsupported"
)
