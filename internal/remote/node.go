package remote

import (
	"context"

	"github.com/grindlemire/graft"

	"github.com/liangyou/gorel/internal/logger"
)

// NodeID 是发布列表客户端的 graft 标识。
const NodeID graft.ID = "adapter.remote"

func init() {
	graft.Register(graft.Node[CatalogSource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (CatalogSource, error) {
			log, err := graft.Dep[*logger.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewClient(WithLogger(log.Logger)), nil
		},
	})
}
