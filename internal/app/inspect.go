package app

import (
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// Inspect reads the bootstrap manifest out of a provisioned chroot.
func (s Service) Inspect(req InspectRequest) (InspectResult, error) {
	chrootDir := strings.TrimSpace(req.ChrootDir)
	if chrootDir == "" {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("chroot directory is required")
	}
	abs, err := filepath.Abs(chrootDir)
	if err != nil {
		return InspectResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid chroot dir").
			WithCause(err)
	}
	manifest, err := s.Manifest.Read(abs)
	if err != nil {
		return InspectResult{}, err
	}
	return InspectResult{Manifest: manifest}, nil
}
