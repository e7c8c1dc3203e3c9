package ports

import "context"

// ReleasePort looks up the latest published release tag of this tool.
type ReleasePort interface {
	LatestVersion(ctx context.Context) (string, error)
}
