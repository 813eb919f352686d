package platform

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID 是平台检测器的 graft 标识。
const NodeID graft.ID = "adapter.platform"

func init() {
	graft.Register(graft.Node[*Checker]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (*Checker, error) {
			return NewChecker(), nil
		},
	})
}
