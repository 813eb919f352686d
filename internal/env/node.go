package env

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID 是 PATH 检查服务的 graft 标识。
const NodeID graft.ID = "adapter.env"

func init() {
	graft.Register(graft.Node[PathAdvisor]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (PathAdvisor, error) {
			return NewManager(), nil
		},
	})
}
