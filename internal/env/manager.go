package env

import (
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// PathAdvisor 判断目录是否已在 PATH 中，并给出配置建议。
type PathAdvisor interface {
	OnPath(dir string) bool
	Hint(dir string) string
}

// Manager 实现 PathAdvisor。
type Manager struct {
	homeFn func() (string, error)
	envFn  func(string) string
}

// NewManager 构造环境检查服务。
func NewManager() *Manager {
	return &Manager{
		homeFn: os.UserHomeDir,
		envFn:  os.Getenv,
	}
}

// OnPath 判断 dir 是否出现在 PATH 中。
func (m *Manager) OnPath(dir string) bool {
	want := filepath.Clean(dir)
	for _, entry := range filepath.SplitList(m.envFn("PATH")) {
		if entry != "" && filepath.Clean(entry) == want {
			return true
		}
	}
	return false
}

// Hint 返回把 dir 加入 PATH 的建议，无法识别 shell 时给出通用写法。
func (m *Manager) Hint(dir string) string {
	line := fmt.Sprintf("export PATH=\"%s:$PATH\"", dir)
	shell, err := m.DetectShell()
	if err != nil {
		return fmt.Sprintf("%s is not on PATH, add %q to your shell profile", dir, line)
	}
	configPath, err := m.configFileForShell(shell)
	if err != nil {
		return fmt.Sprintf("%s is not on PATH, add %q to your shell profile", dir, line)
	}
	if shell == "fish" {
		line = fmt.Sprintf("fish_add_path %s", dir)
	}
	return fmt.Sprintf("%s is not on PATH, add %q to %s", dir, line, configPath)
}

// DetectShell 根据 SHELL 环境变量推断当前 shell。
func (m *Manager) DetectShell() (string, error) {
	shellPath := m.envFn("SHELL")
	if shellPath == "" {
		shellPath = "bash"
	}
	shell := filepath.Base(shellPath)
	switch shell {
	case "bash", "zsh", "fish":
		return shell, nil
	default:
		return "", zerr.With(zerr.New("env: unsupported shell"), "shell", shell)
	}
}

func (m *Manager) configFileForShell(shellType string) (string, error) {
	home, err := m.homeFn()
	if err != nil {
		return "", zerr.Wrap(err, "env: home dir")
	}

	switch shellType {
	case "bash":
		path := filepath.Join(home, ".bashrc")
		if fileExists(path) {
			return path, nil
		}
		return filepath.Join(home, ".bash_profile"), nil
	case "zsh":
		return filepath.Join(home, ".zshrc"), nil
	case "fish":
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", zerr.With(zerr.New("env: unsupported shell"), "shell", shellType)
	}
}

func fileExists(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	}
	return false
}
