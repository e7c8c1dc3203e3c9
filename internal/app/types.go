package app

import "alpine-chroot/internal/types"

type InstallRequest struct {
	ChrootDir       string
	Arch            string
	Branch          string
	Mirror          string
	Packages        []string
	ExtraRepos      []string
	BindDir         string
	KeepVars        []string
	TempDir         string
	VerifyChecksums bool
	SkipUpdateCheck bool
	DryRun          bool
}

type InstallResult struct {
	ChrootDir         string
	TargetArch        string
	Emulated          bool
	ApkToolsVersion   string
	AlpineKeysVersion string
	Installed         []string
	Scripts           []string
}

type ResolveRequest struct {
	Name   string
	Arch   string
	Branch string
	Mirror string
}

type ResolveResult struct {
	Record types.PackageRecord
}

type InspectRequest struct {
	ChrootDir string
}

type InspectResult struct {
	Manifest types.Manifest
}
