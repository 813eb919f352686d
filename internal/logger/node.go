package logger

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
)

// NodeID 是日志节点的 graft 标识。
const NodeID graft.ID = "adapter.logger"

func init() {
	graft.Register(graft.Node[*Logger]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (*Logger, error) {
			return New(os.Stderr), nil
		},
	})
}
