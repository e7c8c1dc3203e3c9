package types

// BootstrapConfig is the fully resolved configuration for one bootstrap
// run. It is built once from defaults, config file, environment, and
// flags, validated, and never mutated afterwards.
type BootstrapConfig struct {
	ChrootDir  string
	TargetArch string
	HostArch   string
	Branch     string
	MirrorURL  string

	// Packages are the extra package list entries, pins allowed.
	Packages   []string
	ExtraRepos []string

	// BindDir, when set, is a host directory bound into the chroot at
	// the identical path.
	BindDir string

	// KeepEnvPatterns are the regex fragments whose alternation decides
	// which environment variables the enter script carries into the
	// chroot. EnvFilter is the pre-built alternation, validated at
	// configuration time.
	KeepEnvPatterns []string
	EnvFilter       string

	TempDir         string
	VerifyChecksums bool
	SkipUpdateCheck bool
	DryRun          bool
}
