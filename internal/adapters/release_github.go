package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"alpine-chroot/internal/ports"
)

const defaultReleaseEndpoint = "https://api.github.com/repos/alpine-chroot/alpine-chroot/releases/latest"

// GitHubReleaseAdapter queries the project's latest release tag. Used
// only for the informational update notice, so callers treat failures
// as non-fatal.
type GitHubReleaseAdapter struct {
	Transport ports.TransportPort
	Endpoint  string
}

func NewGitHubReleaseAdapter(transport ports.TransportPort) GitHubReleaseAdapter {
	return GitHubReleaseAdapter{Transport: transport, Endpoint: defaultReleaseEndpoint}
}

func (a GitHubReleaseAdapter) LatestVersion(ctx context.Context) (string, error) {
	endpoint := a.Endpoint
	if endpoint == "" {
		endpoint = defaultReleaseEndpoint
	}
	var buf bytes.Buffer
	if err := a.Transport.Download(ctx, endpoint, &buf); err != nil {
		return "", err
	}
	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decode release response").
			WithCause(err)
	}
	tag := strings.TrimPrefix(strings.TrimSpace(payload.TagName), "v")
	if tag == "" {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("release response carries no tag")
	}
	return tag, nil
}

var _ ports.ReleasePort = GitHubReleaseAdapter{}
