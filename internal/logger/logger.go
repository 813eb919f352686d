package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
)

// Logger 包装 slog.Logger，并持有可调整的级别。
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New 创建写入 w 的 Logger，默认 Info 级别。
func New(w io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	return &Logger{
		Logger: slog.New(NewPrettyHandler(w, &slog.HandlerOptions{Level: level})),
		level:  level,
	}
}

// SetVerbose 打开或关闭调试日志。
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.level.Set(slog.LevelDebug)
		return
	}
	l.level.Set(slog.LevelInfo)
}

// messager 是 zerr 错误提供的不含链路的消息。
type messager interface {
	Message() string
}

// metadataer 是 zerr 错误携带的键值上下文。
type metadataer interface {
	Metadata() map[string]any
}

// ErrorEntry 是错误链中的一层。
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// FormatError 把错误链渲染为 "Error: ..." 加 "Caused by:" 的多行文本。
func FormatError(err error) string {
	return formatErrorEntries(collectErrorEntries(err))
}

func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry
	current := err
	for current != nil {
		if joined, ok := current.(interface{ Unwrap() []error }); ok {
			for _, child := range joined.Unwrap() {
				entries = append(entries, collectErrorEntries(child)...)
			}
			return entries
		}
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, ErrorEntry{Message: current.Error()})
			return entries
		}
		entry := ErrorEntry{Message: m.Message()}
		if md, ok := current.(metadataer); ok {
			entry.Metadata = md.Metadata()
		}
		entries = append(entries, entry)
		current = errors.Unwrap(current)
	}
	return entries
}

func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string
	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")
		if i == 0 {
			lines = append(lines, "Error: "+msgLines[0])
			for _, line := range msgLines[1:] {
				lines = append(lines, "       "+line)
			}
			lines = append(lines, formatMetadata(entry.Metadata, "       ")...)
			continue
		}
		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    → "+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, "      "+line)
		}
		lines = append(lines, formatMetadata(entry.Metadata, "      ")...)
	}
	return strings.Join(lines, "\n")
}

func formatMetadata(md map[string]any, indent string) []string {
	if len(md) == 0 {
		return nil
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, md[k]))
	}
	return lines
}
