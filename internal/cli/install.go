package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"alpine-chroot/internal/app"
)

type installOptions struct {
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
	NoUpdateCheck   bool
	DryRun          bool
}

func newInstallCommand() *cobra.Command {
	opts := installOptions{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Bootstrap an Alpine chroot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ChrootDir, "chroot-dir", "/alpine", "Chroot directory")
	cmd.Flags().StringVar(&opts.Arch, "arch", "", "Target architecture (default: host)")
	cmd.Flags().StringVar(&opts.Branch, "branch", "latest-stable", "Alpine branch")
	cmd.Flags().StringVar(&opts.Mirror, "mirror", "https://dl-cdn.alpinelinux.org/alpine", "Mirror base URL")
	cmd.Flags().StringSliceVar(&opts.Packages, "packages", nil, "Extra packages to install, pins allowed")
	cmd.Flags().StringSliceVar(&opts.ExtraRepos, "extra-repos", nil, "Additional repository URLs")
	cmd.Flags().StringVar(&opts.BindDir, "bind-dir", "", "Host directory bound into the chroot at the same path")
	cmd.Flags().StringSliceVar(&opts.KeepVars, "keep-vars", nil, `Kept environment variable patterns (default "ARCH CI QEMU_EMULATOR TRAVIS_.*")`)
	cmd.Flags().StringVar(&opts.TempDir, "temp-dir", "", "Work directory (default: fresh temp directory)")
	cmd.Flags().BoolVar(&opts.VerifyChecksums, "verify-checksums", false, "Verify index checksums of downloads")
	cmd.Flags().BoolVar(&opts.NoUpdateCheck, "no-update-check", false, "Skip the release check")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and print the configuration without changing anything")

	_ = viper.BindPFlag("chroot_dir", cmd.Flags().Lookup("chroot-dir"))
	_ = viper.BindPFlag("arch", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("branch", cmd.Flags().Lookup("branch"))
	_ = viper.BindPFlag("mirror", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("packages", cmd.Flags().Lookup("packages"))
	_ = viper.BindPFlag("extra_repos", cmd.Flags().Lookup("extra-repos"))
	_ = viper.BindPFlag("bind_dir", cmd.Flags().Lookup("bind-dir"))
	_ = viper.BindPFlag("keep_vars", cmd.Flags().Lookup("keep-vars"))
	_ = viper.BindPFlag("temp_dir", cmd.Flags().Lookup("temp-dir"))
	_ = viper.BindPFlag("verify_checksums", cmd.Flags().Lookup("verify-checksums"))
	_ = viper.BindPFlag("no_update_check", cmd.Flags().Lookup("no-update-check"))
	_ = viper.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runInstall(ctx context.Context, cmd *cobra.Command, opts installOptions) error {
	service := newAppService()
	req := app.InstallRequest{
		ChrootDir:       resolveString(cmd, opts.ChrootDir, "chroot_dir", "chroot-dir"),
		Arch:            resolveString(cmd, opts.Arch, "arch", "arch"),
		Branch:          resolveString(cmd, opts.Branch, "branch", "branch"),
		Mirror:          resolveString(cmd, opts.Mirror, "mirror", "mirror"),
		Packages:        resolveStrings(cmd, opts.Packages, "packages", "packages"),
		ExtraRepos:      resolveStrings(cmd, opts.ExtraRepos, "extra_repos", "extra-repos"),
		BindDir:         resolveString(cmd, opts.BindDir, "bind_dir", "bind-dir"),
		KeepVars:        resolveStrings(cmd, opts.KeepVars, "keep_vars", "keep-vars"),
		TempDir:         resolveString(cmd, opts.TempDir, "temp_dir", "temp-dir"),
		VerifyChecksums: resolveBool(cmd, opts.VerifyChecksums, "verify_checksums", "verify-checksums"),
		SkipUpdateCheck: resolveBool(cmd, opts.NoUpdateCheck, "no_update_check", "no-update-check"),
		DryRun:          resolveBool(cmd, opts.DryRun, "dry_run", "dry-run"),
	}
	result, err := service.Install(ctx, req)
	if err != nil {
		return err
	}
	if req.DryRun {
		fmt.Println("configuration valid, nothing was changed")
		return nil
	}
	fmt.Printf("chroot ready: %s\n", result.ChrootDir)
	if len(result.Scripts) > 0 {
		fmt.Printf("enter it with: sudo %s\n", result.Scripts[0])
	}
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	if flag := cmd.PersistentFlags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
