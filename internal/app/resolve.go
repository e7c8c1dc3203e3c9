package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/types"
)

// Resolve runs the package index resolver standalone, mainly to debug
// mirror or branch problems.
func (s Service) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ResolveResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("package name is required")
	}
	arch := strings.TrimSpace(req.Arch)
	if arch == "" {
		hostArch, err := s.HostArch()
		if err != nil {
			return ResolveResult{}, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("cannot determine host architecture").
				WithCause(err)
		}
		arch = hostArch
	}
	branch := strings.TrimSpace(req.Branch)
	if branch == "" {
		branch = defaultBranch
	}
	mirror := strings.TrimRight(strings.TrimSpace(req.Mirror), "/")
	if mirror == "" {
		mirror = defaultMirror
	}

	ref := types.IndexRef{Mirror: mirror, Branch: branch, Arch: arch}
	record, err := s.Index.Resolve(ctx, ref, name)
	if err != nil {
		return ResolveResult{}, err
	}
	return ResolveResult{Record: record}, nil
}
