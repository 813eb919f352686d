// Package wiring 通过空白导入注册全部 graft 节点。
package wiring

import (
	_ "github.com/liangyou/gorel/internal/alternatives"
	_ "github.com/liangyou/gorel/internal/cli"
	_ "github.com/liangyou/gorel/internal/config"
	_ "github.com/liangyou/gorel/internal/env"
	_ "github.com/liangyou/gorel/internal/logger"
	_ "github.com/liangyou/gorel/internal/platform"
	_ "github.com/liangyou/gorel/internal/prompt"
	_ "github.com/liangyou/gorel/internal/remote"
)
