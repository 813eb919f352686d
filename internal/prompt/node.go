package prompt

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
)

// NodeID 是交互提示的 graft 标识。
const NodeID graft.ID = "adapter.prompt"

func init() {
	graft.Register(graft.Node[Prompter]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(context.Context) (Prompter, error) {
			return New(os.Stdin, os.Stdout), nil
		},
	})
}
