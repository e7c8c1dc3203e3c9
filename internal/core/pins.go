package core

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	debversion "github.com/knqyf263/go-deb-version"

	"alpine-chroot/internal/types"
)

// opTokens is the ordered list of pin operators tried during parsing.
// Longer tokens must precede shorter ones to avoid false matches
// (e.g. ">=" before ">").
var opTokens = []types.ConstraintOp{
	types.ConstraintOpGte,
	types.ConstraintOpLte,
	types.ConstraintOpEq,
	types.ConstraintOpGt,
	types.ConstraintOpLt,
	types.ConstraintOpFuzzy,
}

// ParsePin splits a raw "name>=version" package entry into a Constraint.
// When no operator is found the entry is a bare name reference with
// ConstraintOpNone.
func ParsePin(raw string) (types.Constraint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return types.Constraint{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("empty package entry")
	}
	for _, op := range opTokens {
		if strings.Contains(trimmed, string(op)) {
			parts := strings.SplitN(trimmed, string(op), 2)
			name := strings.TrimSpace(parts[0])
			version := strings.TrimSpace(parts[1])
			if name == "" || version == "" {
				return types.Constraint{}, errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg(fmt.Sprintf("invalid package pin: %s", raw))
			}
			return types.Constraint{
				Name:    name,
				Op:      op,
				Version: version,
				Raw:     trimmed,
			}, nil
		}
	}
	return types.Constraint{
		Name: trimmed,
		Op:   types.ConstraintOpNone,
		Raw:  trimmed,
	}, nil
}

// PinSatisfied reports whether an index version satisfies the pin.
// Alpine's version grammar (upstream plus an optional -rN revision)
// parses under Debian version rules; entries that do not parse fall
// back to plain string comparison.
func PinSatisfied(pin types.Constraint, version string) bool {
	switch pin.Op {
	case types.ConstraintOpNone:
		return true
	case types.ConstraintOpFuzzy:
		return version == pin.Version || strings.HasPrefix(version, pin.Version+".") ||
			strings.HasPrefix(version, pin.Version+"-")
	}
	cmp := compareVersions(version, pin.Version)
	switch pin.Op {
	case types.ConstraintOpEq:
		return cmp == 0
	case types.ConstraintOpGte:
		return cmp >= 0
	case types.ConstraintOpLte:
		return cmp <= 0
	case types.ConstraintOpGt:
		return cmp > 0
	case types.ConstraintOpLt:
		return cmp < 0
	default:
		return false
	}
}

// CompareVersions orders two version strings, falling back to
// lexicographic comparison when either side does not parse.
func CompareVersions(a string, b string) int {
	return compareVersions(a, b)
}

func compareVersions(a string, b string) int {
	va, err := debversion.NewVersion(a)
	if err != nil {
		return strings.Compare(a, b)
	}
	vb, err := debversion.NewVersion(b)
	if err != nil {
		return strings.Compare(a, b)
	}
	return va.Compare(vb)
}
