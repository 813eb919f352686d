// Package main 是 gorel 的入口。
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"

	"github.com/liangyou/gorel/internal/cli"
	"github.com/liangyou/gorel/internal/logger"
	_ "github.com/liangyou/gorel/internal/wiring"
)

// AppProvider 返回组装好的 CLI 应用。
type AppProvider func(context.Context) (*cli.App, error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, func(ctx context.Context) (*cli.App, error) {
		app, _, err := graft.ExecuteFor[*cli.App](ctx)
		return app, err
	}))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, provider AppProvider) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := provider(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, logger.FormatError(err))
		return 1
	}
	app.SetOutput(stdout, stderr)

	if err := app.Execute(ctx, args); err != nil {
		_, _ = fmt.Fprintln(stderr, logger.FormatError(err))
		return 1
	}
	return 0
}
