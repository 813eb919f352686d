// Package output 按统一的颜色配置与 TTY 处理创建 termenv.Output。
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ColorProfile 返回当前环境的颜色配置，设置 NO_COLOR 时退化为纯文本。
func ColorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New 创建写入 w 的 termenv.Output。
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}
	opts = append(opts,
		termenv.WithProfile(ColorProfile()),
		termenv.WithTTY(true),
	)
	return termenv.NewOutput(w, opts...)
}
