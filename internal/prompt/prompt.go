// Package prompt 提供交互式选择与确认，输入来源可替换以便无终端测试。
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/liangyou/gorel/pkg/models"
)

// Prompter 描述交互能力。中断或输入结束时返回 models.ErrCancelled。
type Prompter interface {
	Choose(ctx context.Context, title string, items []string) (int, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// LinePrompter 从行输入读取回答，可以是终端也可以是预置脚本。
type LinePrompter struct {
	out io.Writer
	in  io.Reader

	once  sync.Once
	lines chan string
}

// New 创建基于行输入的 Prompter。
func New(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: in, out: out}
}

// Scripted 返回按顺序回放 answers 的 Prompter，用于测试。
func Scripted(out io.Writer, answers ...string) *LinePrompter {
	script := strings.Join(answers, "\n")
	if len(answers) > 0 {
		script += "\n"
	}
	return New(strings.NewReader(script), out)
}

// Choose 打印编号菜单并阻塞等待一个合法编号，返回下标。
func (p *LinePrompter) Choose(ctx context.Context, title string, items []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, item := range items {
		fmt.Fprintf(p.out, "  %2d) %s\n", i+1, item)
	}
	for {
		fmt.Fprintf(p.out, "Select [1-%d]: ", len(items))
		line, err := p.readLine(ctx)
		if err != nil {
			fmt.Fprintln(p.out)
			return -1, err
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr != nil || n < 1 || n > len(items) {
			fmt.Fprintf(p.out, "Invalid choice %q\n", strings.TrimSpace(line))
			continue
		}
		return n - 1, nil
	}
}

// Confirm 询问 y/N，空回答视为否。
func (p *LinePrompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [y/N]: ", question)
		line, err := p.readLine(ctx)
		if err != nil {
			fmt.Fprintln(p.out)
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
	}
}

func (p *LinePrompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(p.startReader)
	select {
	case <-ctx.Done():
		return "", models.ErrCancelled
	case line, ok := <-p.lines:
		if !ok {
			return "", models.ErrCancelled
		}
		return line, nil
	}
}

// startReader 在后台读取输入，使阻塞的读操作可以被 ctx 打断。
func (p *LinePrompter) startReader() {
	p.lines = make(chan string)
	go func() {
		defer close(p.lines)
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
	}()
}

// AutoConfirm 包装 Prompter，确认问题一律回答是，选择仍交给内部实现。
type AutoConfirm struct {
	Prompter
}

// Confirm 总是返回 true。
func (AutoConfirm) Confirm(context.Context, string) (bool, error) {
	return true, nil
}
