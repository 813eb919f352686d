package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/internal/logger"
	"github.com/liangyou/gorel/internal/ui/style"
	"github.com/liangyou/gorel/internal/version"
	"github.com/liangyou/gorel/pkg/models"
)

// OptionsResolver 提供默认值与配置文件合并后的基础配置。
type OptionsResolver interface {
	Resolve(ctx context.Context) (models.Options, error)
}

// CatalogService 描述发布目录抓取能力。
type CatalogService interface {
	FetchCatalog(ctx context.Context, listingURL string) (*models.Catalog, error)
}

// SelectService 描述从目录中挑选安装包的能力。
type SelectService interface {
	Select(ctx context.Context, catalog *models.Catalog, filter version.Filter) (*models.Package, error)
}

// InstallService 描述安装能力。
type InstallService interface {
	Install(ctx context.Context, pkg models.Package, opts models.Options) (string, error)
}

// ListService 描述本地版本查询能力。
type ListService interface {
	ListInstalled(ctx context.Context, opts models.Options) ([]version.InstalledVersion, error)
}

// UninstallService 描述卸载能力。
type UninstallService interface {
	Uninstall(ctx context.Context, version string, opts models.Options) (bool, error)
}

// Services 汇总 App 依赖的服务。
type Services struct {
	Resolver    OptionsResolver
	Catalog     CatalogService
	Selector    SelectService
	Installer   InstallService
	Lister      ListService
	Uninstaller UninstallService
}

// outputSetter 由会直接打印进度信息的服务实现。
type outputSetter interface {
	SetOutput(out, errOut io.Writer)
}

// App 负责把命令分发到各个服务并输出结果。
type App struct {
	out    io.Writer
	errOut io.Writer
	log    *logger.Logger
	svc    Services
}

// NewApp 创建 CLI 应用实例。
func NewApp(svc Services, log *logger.Logger) *App {
	if log == nil {
		log = logger.New(io.Discard)
	}
	return &App{
		out:    os.Stdout,
		errOut: os.Stderr,
		log:    log,
		svc:    svc,
	}
}

// SetOutput 设置标准输出与错误输出，并同步给安装、卸载等服务。
func (a *App) SetOutput(out, errOut io.Writer) {
	if out != nil {
		a.out = out
	}
	if errOut != nil {
		a.errOut = errOut
	}
	for _, svc := range []any{a.svc.Installer, a.svc.Uninstaller} {
		if s, ok := svc.(outputSetter); ok {
			s.SetOutput(out, errOut)
		}
	}
}

func (a *App) handleList(ctx context.Context, opts models.Options) error {
	if a.svc.Lister == nil {
		return errors.New("local listing is unavailable")
	}
	versions, err := a.svc.Lister.ListInstalled(ctx, opts)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintf(a.out, "No versions installed in %s.\n", opts.Prefix)
		return nil
	}
	for _, v := range versions {
		fmt.Fprintf(a.out, "%s %s\n", style.Marker(len(v.Active) > 0), version.FormatInstalled(v))
	}
	return nil
}

func (a *App) handleSearch(ctx context.Context, opts models.Options) error {
	catalog, filter, err := a.prepare(ctx, opts)
	if err != nil {
		return err
	}
	matches := version.Matches(catalog, filter)
	if len(matches) == 0 {
		return noMatch(filter)
	}
	for _, pkg := range matches {
		fmt.Fprintln(a.out, version.FormatPackage(pkg))
	}
	return nil
}

func (a *App) handleInstall(ctx context.Context, opts models.Options) error {
	if a.svc.Installer == nil || a.svc.Selector == nil {
		return errors.New("install command is unavailable")
	}
	if opts.Version == "" {
		opts.Version = version.Latest
	}
	catalog, filter, err := a.prepare(ctx, opts)
	if err != nil {
		return err
	}

	pkg, err := a.svc.Selector.Select(ctx, catalog, filter)
	if err != nil {
		return err
	}
	if pkg == nil {
		return noMatch(filter)
	}
	a.log.Debug("selected package", "file", pkg.FileName, "url", pkg.URL)

	_, err = a.svc.Installer.Install(ctx, *pkg, opts)
	return err
}

func (a *App) handleUninstall(ctx context.Context, ver string, opts models.Options) error {
	if a.svc.Uninstaller == nil {
		return errors.New("uninstall command is unavailable")
	}
	_, err := a.svc.Uninstaller.Uninstall(ctx, ver, opts)
	return err
}

// prepare 抓取目录并构造过滤器，空目录视为错误。
func (a *App) prepare(ctx context.Context, opts models.Options) (*models.Catalog, version.Filter, error) {
	if a.svc.Catalog == nil {
		return nil, version.Filter{}, errors.New("remote catalog is unavailable")
	}
	filter, err := version.NewFilter(opts)
	if err != nil {
		return nil, version.Filter{}, err
	}
	catalog, err := a.svc.Catalog.FetchCatalog(ctx, opts.ListingURL)
	if err != nil {
		return nil, version.Filter{}, err
	}
	if catalog.Empty() {
		return nil, version.Filter{}, models.ErrEmptyCatalog
	}
	a.log.Debug("filtering catalog", "filter", filter.String(), "packages", catalog.Len())
	return catalog, filter, nil
}

func noMatch(filter version.Filter) error {
	return errors.Join(models.ErrNoMatch, zerr.With(zerr.New("no package matches the filter"), "filter", filter.String()))
}
