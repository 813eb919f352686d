package config

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/liangyou/gorel/internal/platform"
)

// 配置相关的 graft 标识。
const (
	NodeID         graft.ID = "adapter.config_loader"
	ResolverNodeID graft.ID = "adapter.config_resolver"
)

func init() {
	graft.Register(graft.Node[*Loader]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (*Loader, error) {
			return NewLoader(), nil
		},
	})

	graft.Register(graft.Node[*Resolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID, platform.NodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			loader, err := graft.Dep[*Loader](ctx)
			if err != nil {
				return nil, err
			}
			checker, err := graft.Dep[*platform.Checker](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(loader, checker), nil
		},
	})
}
