package cli

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"alpine-chroot/internal/app"
	"alpine-chroot/internal/types"
)

type inspectOptions struct {
	ChrootDir string
	Format    string
}

func newInspectCommand() *cobra.Command {
	opts := inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the bootstrap manifest of a provisioned chroot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ChrootDir, "chroot-dir", "/alpine", "Chroot directory")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "Output format (text|yaml)")
	_ = viper.BindPFlag("chroot_dir", cmd.Flags().Lookup("chroot-dir"))
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
	return cmd
}

func runInspect(cmd *cobra.Command, opts inspectOptions) error {
	format := resolveString(cmd, opts.Format, "format", "format")
	service := newAppService()
	result, err := service.Inspect(app.InspectRequest{
		ChrootDir: resolveString(cmd, opts.ChrootDir, "chroot_dir", "chroot-dir"),
	})
	if err != nil {
		return err
	}

	manifest := result.Manifest
	switch types.OutputFormat(format) {
	case types.OutputFormatYAML:
		data, err := yaml.Marshal(manifest)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("cannot encode manifest").
				WithCause(err)
		}
		fmt.Print(string(data))
	case types.OutputFormatText:
		fmt.Printf("branch: %s\n", manifest.Branch)
		fmt.Printf("mirror: %s\n", manifest.Mirror)
		fmt.Printf("arch: %s (host %s)\n", manifest.TargetArch, manifest.HostArch)
		fmt.Printf("emulated: %t\n", manifest.Emulated)
		fmt.Printf("created: %s by alpine-chroot %s\n", manifest.CreatedAt, manifest.GeneratorVersion)
		fmt.Printf("apk-tools: %s\n", manifest.ApkTools)
		fmt.Printf("alpine-keys: %s\n", manifest.AlpineKeys)
		fmt.Printf("baseline: %s\n", strings.Join(manifest.BaselinePackages, ", "))
		if len(manifest.ExtraPackages) > 0 {
			fmt.Printf("extras: %s\n", strings.Join(manifest.ExtraPackages, ", "))
		}
		fmt.Println("repositories:")
		for _, repo := range manifest.Repositories {
			fmt.Printf("- %s\n", repo)
		}
		fmt.Printf("scripts: %s\n", strings.Join(manifest.Scripts, ", "))
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown output format: %s", format))
	}
	return nil
}
