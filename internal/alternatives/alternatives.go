// Package alternatives 封装系统的 alternatives 机制（update-alternatives）。
package alternatives

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// DefaultCommand 是 Debian 系发行版上的 alternatives 管理命令。
const DefaultCommand = "update-alternatives"

// Manager 描述 alternatives 机制的注册、切换、查询与注销能力。
//
//go:generate mockgen -source=alternatives.go -destination=mocks/mock_alternatives.go -package=mocks
type Manager interface {
	// Available 探测机制是否可用，不可用不是错误。
	Available(ctx context.Context) bool
	// Install 以 priority 注册 path 为 name 的候选，公共入口为 link。
	Install(ctx context.Context, link, name, path string, priority int) error
	// Set 把 name 的当前选择设为 path。
	Set(ctx context.Context, name, path string) error
	// Remove 注销 name 下的候选 path。
	Remove(ctx context.Context, name, path string) error
	// Current 返回 name 当前指向的路径。
	Current(ctx context.Context, name string) (string, error)
}

// Runner 执行外部命令并返回标准输出与标准错误。
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Option 用于配置 Command。
type Option func(*Command)

// WithCommand 指定 alternatives 命令名。
func WithCommand(name string) Option {
	return func(c *Command) {
		if name != "" {
			c.name = name
		}
	}
}

// WithRunner 替换命令执行方式，测试时使用。
func WithRunner(r Runner) Option {
	return func(c *Command) {
		if r != nil {
			c.run = r
		}
	}
}

// Command 通过外部进程实现 Manager。
type Command struct {
	name string
	run  Runner

	probed    bool
	available bool
}

// New 创建 Command。
func New(opts ...Option) *Command {
	c := &Command{name: DefaultCommand, run: execRunner}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Available 通过查询版本号探测命令是否存在，结果会被缓存。
func (c *Command) Available(ctx context.Context) bool {
	if !c.probed {
		_, _, err := c.run(ctx, c.name, "--version")
		c.available = err == nil
		c.probed = true
	}
	return c.available
}

// Install 注册候选。
func (c *Command) Install(ctx context.Context, link, name, path string, priority int) error {
	return c.exec(ctx, "--install", link, name, path, strconv.Itoa(priority))
}

// Set 切换当前候选。
func (c *Command) Set(ctx context.Context, name, path string) error {
	return c.exec(ctx, "--set", name, path)
}

// Remove 注销候选。
func (c *Command) Remove(ctx context.Context, name, path string) error {
	return c.exec(ctx, "--remove", name, path)
}

// Current 解析 --query 输出中的 Value 字段。
func (c *Command) Current(ctx context.Context, name string) (string, error) {
	stdout, stderr, err := c.run(ctx, c.name, "--query", name)
	if err != nil {
		return "", c.wrap(err, stderr)
	}
	scanner := bufio.NewScanner(bytes.NewReader(stdout))
	for scanner.Scan() {
		line := scanner.Text()
		if value, ok := strings.CutPrefix(line, "Value:"); ok {
			return strings.TrimSpace(value), nil
		}
	}
	return "", zerr.With(zerr.New("alternatives: no current value"), "name", name)
}

func (c *Command) exec(ctx context.Context, args ...string) error {
	_, stderr, err := c.run(ctx, c.name, args...)
	if err != nil {
		return c.wrap(err, stderr)
	}
	return nil
}

// wrap 使用命令自身的错误文本，并去掉开头的工具名。
func (c *Command) wrap(err error, stderr []byte) error {
	msg := CleanMessage(c.name, string(stderr))
	if msg == "" {
		return zerr.Wrap(err, c.name+" failed")
	}
	return zerr.Wrap(err, msg)
}

// CleanMessage 去掉 "<tool>: " 前缀并合并多行输出。
func CleanMessage(tool, output string) string {
	prefix := filepath.Base(tool) + ": "
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), prefix))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "; ")
}
