package types

// IndexRef identifies one package index: a mirror base URL, a branch
// (e.g. latest-stable, v3.20, edge), and a repository architecture.
type IndexRef struct {
	Mirror string
	Branch string
	Arch   string
}

// PackageRecord is one parsed index entry. DownloadURL points at the
// package archive under the same repository the index came from; Homepage
// carries the index's upstream URL field, which is informational only.
type PackageRecord struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	License      string `yaml:"license,omitempty"`
	Homepage     string `yaml:"homepage,omitempty"`
	Checksum     string `yaml:"checksum,omitempty"`
	Architecture string `yaml:"architecture,omitempty"`
	DownloadURL  string `yaml:"download_url,omitempty"`
}
