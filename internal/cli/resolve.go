package cli

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"alpine-chroot/internal/app"
	"alpine-chroot/internal/types"
)

type resolveOptions struct {
	Package string
	Arch    string
	Branch  string
	Mirror  string
	Format  string
}

func newResolveCommand() *cobra.Command {
	opts := resolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a package against a mirror index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Package, "package", "", "Package name")
	cmd.Flags().StringVar(&opts.Arch, "arch", "", "Repository architecture (default: host)")
	cmd.Flags().StringVar(&opts.Branch, "branch", "latest-stable", "Alpine branch")
	cmd.Flags().StringVar(&opts.Mirror, "mirror", "https://dl-cdn.alpinelinux.org/alpine", "Mirror base URL")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "Output format (text|yaml)")

	_ = viper.BindPFlag("package", cmd.Flags().Lookup("package"))
	_ = viper.BindPFlag("arch", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("branch", cmd.Flags().Lookup("branch"))
	_ = viper.BindPFlag("mirror", cmd.Flags().Lookup("mirror"))
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))

	return cmd
}

func runResolve(ctx context.Context, cmd *cobra.Command, opts resolveOptions) error {
	format := resolveString(cmd, opts.Format, "format", "format")
	service := newAppService()
	result, err := service.Resolve(ctx, app.ResolveRequest{
		Name:   resolveString(cmd, opts.Package, "package", "package"),
		Arch:   resolveString(cmd, opts.Arch, "arch", "arch"),
		Branch: resolveString(cmd, opts.Branch, "branch", "branch"),
		Mirror: resolveString(cmd, opts.Mirror, "mirror", "mirror"),
	})
	if err != nil {
		return err
	}

	record := result.Record
	switch types.OutputFormat(format) {
	case types.OutputFormatYAML:
		data, err := yaml.Marshal(record)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("cannot encode package record").
				WithCause(err)
		}
		fmt.Print(string(data))
	case types.OutputFormatText:
		fmt.Printf("name: %s\n", record.Name)
		fmt.Printf("version: %s\n", record.Version)
		if record.Architecture != "" {
			fmt.Printf("architecture: %s\n", record.Architecture)
		}
		if record.License != "" {
			fmt.Printf("license: %s\n", record.License)
		}
		if record.Homepage != "" {
			fmt.Printf("homepage: %s\n", record.Homepage)
		}
		if record.Checksum != "" {
			fmt.Printf("checksum: %s\n", record.Checksum)
		}
		fmt.Printf("url: %s\n", record.DownloadURL)
	default:
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown output format: %s", format))
	}
	return nil
}
