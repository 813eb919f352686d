// Package style 定义命令行输出共用的颜色、图标与样式。
package style

import "github.com/charmbracelet/lipgloss"

// 颜色。
var (
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
	Cyan   = lipgloss.Color("#0EA5E9")
)

// 图标。
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Dot     = "●"
	Circle  = "○"
)

// 样式。
var (
	Active  = lipgloss.NewStyle().Foreground(Green).Bold(true)
	Dim     = lipgloss.NewStyle().Foreground(Slate)
	Version = lipgloss.NewStyle().Foreground(Cyan)
	Warn    = lipgloss.NewStyle().Foreground(Yellow)
)

// Marker 返回已安装列表行首的状态图标。
func Marker(active bool) string {
	if active {
		return Active.Render(Dot)
	}
	return Dim.Render(Circle)
}
