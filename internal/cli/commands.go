package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/internal/build"
	"github.com/liangyou/gorel/internal/config"
	"github.com/liangyou/gorel/pkg/models"
)

// flagValues 绑定命令行参数，只有显式设置的参数会覆盖配置。
type flagValues struct {
	yes         bool
	force       bool
	arch        string
	goos        string
	version     string
	prefix      string
	binDir      string
	symlink     bool
	altPriority int
	activate    bool
	tmpDir      string
	verbose     bool
}

// Command 构造根命令。不带子命令时执行 list。
func (a *App) Command() *cobra.Command {
	var flags flagValues

	rootCmd := &cobra.Command{
		Use:           "gorel",
		Short:         "Install and manage Go releases from the official download page",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := a.options(cmd, &flags)
			if err != nil {
				return err
			}
			return a.handleList(cmd.Context(), opts)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Join(models.ErrArgument, err)
	})

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.yes, "yes", "y", false, "Answer yes to every confirmation")
	pf.BoolVarP(&flags.force, "force", "f", false, "Same as --yes")
	pf.StringVar(&flags.arch, "arch", "", "Architecture filter (default: this machine, \"any\" for all)")
	pf.StringVar(&flags.goos, "os", "", "Operating system filter (default: this machine, \"any\" for all)")
	pf.StringVarP(&flags.version, "version", "v", "", "Version filter: latest, a prefix such as 1.21, or a pattern such as 1.2[01].*")
	pf.StringVarP(&flags.prefix, "prefix", "p", "", "Absolute directory holding installed releases")
	pf.StringVar(&flags.binDir, "bin-dir", "", "Directory where binaries are exposed")
	pf.BoolVarP(&flags.symlink, "symlink", "s", false, "Always expose binaries with symlinks")
	pf.IntVar(&flags.altPriority, "alt-prio", 0, "Priority used when registering alternatives")
	pf.BoolVar(&flags.activate, "activate", false, "Make the installed binaries the active alternatives")
	pf.StringVar(&flags.tmpDir, "tmp", "", "Directory for downloaded archives")
	pf.BoolVar(&flags.verbose, "verbose", false, "Print debug logs")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List installed releases and their active binaries",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				opts, err := a.options(cmd, &flags)
				if err != nil {
					return err
				}
				return a.handleList(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "search",
			Short: "List downloadable releases matching the filters",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				opts, err := a.options(cmd, &flags)
				if err != nil {
					return err
				}
				return a.handleSearch(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "install",
			Short: "Download, extract and expose a release (latest by default)",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				opts, err := a.options(cmd, &flags)
				if err != nil {
					return err
				}
				return a.handleInstall(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "uninstall <version>",
			Short: "Remove an installed release",
			Args: func(_ *cobra.Command, args []string) error {
				if len(args) != 1 {
					return errors.Join(models.ErrArgument, zerr.New("uninstall takes exactly one version, e.g. 1.21.0"))
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				opts, err := a.options(cmd, &flags)
				if err != nil {
					return err
				}
				return a.handleUninstall(cmd.Context(), args[0], opts)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the gorel version",
			Args:  noArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "gorel version %s\n", build.Version)
			},
		},
	)

	return rootCmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errors.Join(models.ErrArgument, zerr.With(zerr.New("unexpected argument"), "command", cmd.Name()))
	}
	return nil
}

// options 在基础配置上叠加显式设置的参数并校验。
func (a *App) options(cmd *cobra.Command, flags *flagValues) (models.Options, error) {
	a.log.SetVerbose(flags.verbose)

	var opts models.Options
	if a.svc.Resolver != nil {
		resolved, err := a.svc.Resolver.Resolve(cmd.Context())
		if err != nil {
			return models.Options{}, err
		}
		opts = resolved
	}

	set := cmd.Flags().Changed
	if set("arch") {
		opts.Arch = flags.arch
	}
	if set("os") {
		opts.OS = flags.goos
	}
	if set("version") {
		opts.Version = flags.version
	}
	if set("prefix") {
		opts.Prefix = flags.prefix
	}
	if set("bin-dir") {
		opts.BinDir = flags.binDir
	}
	if set("symlink") {
		opts.Symlink = flags.symlink
	}
	if set("alt-prio") {
		opts.AltPriority = flags.altPriority
	}
	if set("activate") {
		opts.Activate = flags.activate
	}
	if set("tmp") {
		opts.TmpDir = flags.tmpDir
	}
	opts.Yes = flags.yes || flags.force
	opts.Verbose = flags.verbose

	if err := config.Validate(opts); err != nil {
		return models.Options{}, err
	}
	return opts, nil
}

// Execute 运行命令。用户取消视为成功；参数错误时输出用法。
func (a *App) Execute(ctx context.Context, args []string) error {
	if args == nil {
		args = []string{}
	}
	root := a.Command()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	cmd, err := root.ExecuteContextC(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrCancelled):
		fmt.Fprintln(a.errOut, "Cancelled.")
		return nil
	case errors.Is(err, models.ErrArgument) && cmd != nil:
		fmt.Fprintln(a.errOut, cmd.UsageString())
	}
	return err
}
