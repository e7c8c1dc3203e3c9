package ports

// ArchivePort unpacks gzip-compressed tar archives (both the package
// index and package payloads use this format).
type ArchivePort interface {
	// ExtractFile extracts the single member at memberPath to destPath.
	ExtractFile(archivePath string, memberPath string, destPath string) error

	// ExtractAll extracts every member under destDir.
	ExtractAll(archivePath string, destDir string) error

	// ExtractPrefix extracts only members whose path starts with prefix,
	// preserving their relative layout under destDir.
	ExtractPrefix(archivePath string, prefix string, destDir string) error
}
