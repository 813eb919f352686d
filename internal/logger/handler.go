// Package logger 提供基于 log/slog 的可读日志输出与错误链格式化。
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb"
	"github.com/muesli/termenv"

	"github.com/liangyou/gorel/internal/ui/output"
	"github.com/liangyou/gorel/internal/ui/style"
)

// byteKeys 中的整数属性按字节数显示，例如 size=63.20MiB。
var byteKeys = map[string]bool{
	"size":     true,
	"written":  true,
	"expected": true,
}

// PrettyHandler 是面向终端的 slog.Handler：一条记录一行，
// 错误与警告带图标和颜色，属性以 key=value 追加在消息后。
type PrettyHandler struct {
	out    *termenv.Output
	level  slog.Leveler
	attrs  []string
	prefix string
}

// NewPrettyHandler 创建写入 w 的 PrettyHandler。opts.Level 可以是 *slog.LevelVar 以便运行时调整。
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &PrettyHandler{
		out:   output.New(w),
		level: level,
	}
}

// Enabled 判断是否输出该级别。
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle 输出一条日志记录。
//
//nolint:gocritic // slog.Handler 要求按值传递 slog.Record
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	icon, color := decorate(r.Level)

	var b strings.Builder
	if icon != "" {
		b.WriteString(icon)
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)

	parts := h.attrs[:len(h.attrs):len(h.attrs)]
	r.Attrs(func(attr slog.Attr) bool {
		parts = appendAttr(parts, h.prefix, attr)
		return true
	})
	for _, p := range parts {
		b.WriteByte(' ')
		b.WriteString(p)
	}

	line := b.String()
	if color != nil {
		line = h.out.String(line).Foreground(color).String()
	}
	_, err := h.out.WriteString(line + "\n")
	return err
}

// WithAttrs 返回附加了 attrs 的 Handler，属性在这里一次性格式化。
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	parts := make([]string, len(h.attrs), len(h.attrs)+len(attrs))
	copy(parts, h.attrs)
	for _, attr := range attrs {
		parts = appendAttr(parts, h.prefix, attr)
	}
	return &PrettyHandler{out: h.out, level: h.level, attrs: parts, prefix: h.prefix}
}

// WithGroup 返回带分组的 Handler，多层分组以点号相连。
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &PrettyHandler{out: h.out, level: h.level, attrs: h.attrs, prefix: h.prefix + name + "."}
}

// decorate 返回级别对应的图标与颜色。Info 不着色。
func decorate(level slog.Level) (string, termenv.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return style.Warning, termenv.RGBColor(string(style.Yellow))
	case level < slog.LevelInfo:
		return "", termenv.RGBColor(string(style.Slate))
	default:
		return "", nil
	}
}

func appendAttr(parts []string, prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return parts
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, sub := range attr.Value.Group() {
			parts = appendAttr(parts, prefix, sub)
		}
		return parts
	}
	return append(parts, prefix+attr.Key+"="+formatValue(attr.Key, attr.Value))
}

func formatValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		if byteKeys[key] {
			return strings.ReplaceAll(pb.Format(v.Int64()).To(pb.U_BYTES).String(), " ", "")
		}
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quote(err.Error())
		}
	}
	return quote(v.String())
}

// quote 只在值为空或含空白、引号、等号时加引号。
func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
