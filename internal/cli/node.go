package cli

import (
	"context"
	"os"

	"github.com/grindlemire/graft"

	"github.com/liangyou/gorel/internal/alternatives"
	"github.com/liangyou/gorel/internal/config"
	"github.com/liangyou/gorel/internal/env"
	"github.com/liangyou/gorel/internal/logger"
	"github.com/liangyou/gorel/internal/platform"
	"github.com/liangyou/gorel/internal/prompt"
	"github.com/liangyou/gorel/internal/remote"
	"github.com/liangyou/gorel/internal/version"
)

// NodeID 是 CLI 应用的 graft 标识。
const NodeID graft.ID = "app.cli"

func init() {
	graft.Register(graft.Node[*App]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			logger.NodeID,
			config.ResolverNodeID,
			platform.NodeID,
			remote.NodeID,
			alternatives.NodeID,
			prompt.NodeID,
			env.NodeID,
		},
		Run: func(ctx context.Context) (*App, error) {
			log, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			resolver, err := graft.Dep[*config.Resolver](ctx)
			if err != nil {
				return nil, err
			}
			checker, err := graft.Dep[*platform.Checker](ctx)
			if err != nil {
				return nil, err
			}
			catalog, err := graft.Dep[remote.CatalogSource](ctx)
			if err != nil {
				return nil, err
			}
			alts, err := graft.Dep[alternatives.Manager](ctx)
			if err != nil {
				return nil, err
			}
			prompter, err := graft.Dep[prompt.Prompter](ctx)
			if err != nil {
				return nil, err
			}
			advisor, err := graft.Dep[env.PathAdvisor](ctx)
			if err != nil {
				return nil, err
			}

			downloader := version.NewDownloader(
				version.WithProgressFunc(version.TerminalProgress()),
				version.WithDownloadLogger(log.Logger),
			)
			exposer := version.NewExposer(alts, checker, advisor, os.Stdout, os.Stderr, log.Logger)

			return NewApp(Services{
				Resolver:    resolver,
				Catalog:     catalog,
				Selector:    version.NewSelector(prompter),
				Installer:   version.NewInstaller(downloader, checker, exposer, prompter, os.Stdout, log.Logger),
				Lister:      version.NewLister(exposer),
				Uninstaller: version.NewUninstaller(checker, exposer, prompter, os.Stdout, log.Logger),
			}, log), nil
		},
	})
}
