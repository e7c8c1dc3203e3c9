package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"alpine-chroot/internal/ports"
	"alpine-chroot/internal/types"
)

const manifestRelPath = "etc/alpine-chroot/manifest.yaml"

// YAMLManifestAdapter persists the bootstrap manifest inside the chroot
// so a later inspect run can report what was provisioned.
type YAMLManifestAdapter struct{}

func NewYAMLManifestAdapter() YAMLManifestAdapter {
	return YAMLManifestAdapter{}
}

func (a YAMLManifestAdapter) Write(root string, manifest types.Manifest) error {
	path := filepath.Join(root, manifestRelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create manifest directory").
			WithCause(err)
	}
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode manifest").
			WithCause(err)
	}
	return os.WriteFile(path, data, 0644)
}

func (a YAMLManifestAdapter) Read(root string) (types.Manifest, error) {
	path := filepath.Join(root, manifestRelPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Manifest{}, errbuilder.New().
				WithCode(errbuilder.CodeNotFound).
				WithMsg("no bootstrap manifest found, was this chroot provisioned by alpine-chroot?")
		}
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read manifest").
			WithCause(err)
	}
	var manifest types.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return types.Manifest{}, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decode manifest").
			WithCause(err)
	}
	return manifest, nil
}

var _ ports.ManifestPort = YAMLManifestAdapter{}
