package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// BuildEnvAlternation joins kept-variable pattern fragments into the
// single alternation embedded in the enter script's filter expression.
// Every fragment must compile as a regular expression on its own; an
// invalid fragment fails configuration instead of producing a broken
// script.
func BuildEnvAlternation(patterns []string) (string, error) {
	var cleaned []string
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return "", errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(fmt.Sprintf("invalid kept-variable pattern: %s", pattern)).
				WithCause(err)
		}
		cleaned = append(cleaned, pattern)
	}
	if len(cleaned) == 0 {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("at least one kept-variable pattern is required")
	}
	return strings.Join(cleaned, "|"), nil
}

// CompileEnvFilter turns a pre-built alternation into the matcher used
// to filter variable names. Names must match the full alternation, not
// just a prefix.
func CompileEnvFilter(alternation string) (*regexp.Regexp, error) {
	matcher, err := regexp.Compile("^(" + alternation + ")$")
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to compile environment filter").
			WithCause(err)
	}
	return matcher, nil
}

// FilterEnviron returns the subset of NAME=value entries whose name
// matches the filter, preserving input order.
func FilterEnviron(environ []string, matcher *regexp.Regexp) []string {
	var kept []string
	for _, entry := range environ {
		name, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if matcher.MatchString(name) {
			kept = append(kept, entry)
		}
	}
	return kept
}
