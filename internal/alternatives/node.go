package alternatives

import (
	"context"

	"github.com/grindlemire/graft"
)

// NodeID 是 alternatives 适配器的 graft 标识。
const NodeID graft.ID = "adapter.alternatives"

func init() {
	graft.Register(graft.Node[Manager]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (Manager, error) {
			return New(), nil
		},
	})
}
