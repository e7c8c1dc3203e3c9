package types

// Manifest records what one bootstrap run produced inside the chroot.
// It is written at the end of a successful run and read back by the
// inspect command.
type Manifest struct {
	GeneratorVersion string   `yaml:"generator_version"`
	CreatedAt        string   `yaml:"created_at"`
	Branch           string   `yaml:"branch"`
	Mirror           string   `yaml:"mirror"`
	TargetArch       string   `yaml:"target_arch"`
	HostArch         string   `yaml:"host_arch"`
	Emulated         bool     `yaml:"emulated"`
	ApkTools         string   `yaml:"apk_tools"`
	AlpineKeys       string   `yaml:"alpine_keys"`
	BaselinePackages []string `yaml:"baseline_packages"`
	ExtraPackages    []string `yaml:"extra_packages,omitempty"`
	Repositories     []string `yaml:"repositories"`
	Scripts          []string `yaml:"scripts"`
}
