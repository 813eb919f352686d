package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/internal/alternatives"
	"github.com/liangyou/gorel/internal/env"
	"github.com/liangyou/gorel/internal/platform"
	"github.com/liangyou/gorel/internal/storage"
	"github.com/liangyou/gorel/internal/ui/style"
	"github.com/liangyou/gorel/pkg/models"
)

// AccessChecker 校验目录权限，失败时返回包含 ErrPermission 的错误。
type AccessChecker interface {
	CanWrite(path string) error
	CanReadWrite(path string) error
}

// Exposer 负责把某个版本的二进制暴露到 bin 目录，
// 以及查询、撤销这种暴露。alternatives 与符号链接两种方式在这里统一取舍。
type Exposer struct {
	alts    alternatives.Manager
	access  AccessChecker
	advisor env.PathAdvisor
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
}

// NewExposer 创建 Exposer。alts 与 advisor 可以为 nil。
func NewExposer(alts alternatives.Manager, access AccessChecker, advisor env.PathAdvisor, out, errOut io.Writer, logger *slog.Logger) *Exposer {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exposer{
		alts:    alts,
		access:  access,
		advisor: advisor,
		out:     out,
		errOut:  errOut,
		logger:  logger,
	}
}

// SetOutput 替换输出位置，nil 保持原值。
func (e *Exposer) SetOutput(out, errOut io.Writer) {
	if out != nil {
		e.out = out
	}
	if errOut != nil {
		e.errOut = errOut
	}
}

// usesAlternatives 判断本次调用是否走 alternatives：需要管理员权限、未强制符号链接且机制可用。
func (e *Exposer) usesAlternatives(ctx context.Context, opts models.Options) bool {
	if !opts.UseAlternatives() || e.alts == nil {
		return false
	}
	if !e.alts.Available(ctx) {
		e.logger.Debug("alternatives mechanism unavailable, using symlinks")
		return false
	}
	return true
}

// Expose 暴露 binaries 中的每个可执行文件。
func (e *Exposer) Expose(ctx context.Context, opts models.Options, binaries []string) error {
	if len(binaries) == 0 {
		fmt.Fprintln(e.errOut, "no executables found to expose")
		return nil
	}
	if e.usesAlternatives(ctx, opts) {
		e.register(ctx, opts, binaries)
		return nil
	}
	return e.link(opts, binaries)
}

func (e *Exposer) register(ctx context.Context, opts models.Options, binaries []string) {
	for _, bin := range binaries {
		name := filepath.Base(bin)
		link := filepath.Join(opts.BinDir, name)
		if err := e.alts.Install(ctx, link, name, bin, opts.AltPriority); err != nil {
			fmt.Fprintf(e.errOut, "%s: %v\n", name, err)
			continue
		}
		if opts.Activate {
			if err := e.alts.Set(ctx, name, bin); err != nil {
				fmt.Fprintf(e.errOut, "%s: %v\n", name, err)
				continue
			}
		}
		fmt.Fprintf(e.out, "registered %s -> %s (priority %d)\n", link, bin, opts.AltPriority)
	}
}

func (e *Exposer) link(opts models.Options, binaries []string) error {
	binDir := opts.BinDir
	if info, err := os.Stat(binDir); err != nil || !info.IsDir() {
		fmt.Fprintf(e.errOut, "%s bin directory %s does not exist, no links created\n", style.Warn.Render(style.Warning), binDir)
		return nil
	}
	if e.access != nil {
		if err := e.access.CanWrite(binDir); err != nil {
			return errors.Join(err, zerr.New(platform.PermissionHint(binDir)))
		}
	}

	for _, bin := range binaries {
		target := filepath.Join(binDir, filepath.Base(bin))
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "exposer: remove existing link"), "path", target)
		}
		if err := os.Symlink(bin, target); err != nil {
			return zerr.With(zerr.Wrap(err, "exposer: create symlink"), "path", target)
		}
		fmt.Fprintf(e.out, "%s -> %s\n", target, bin)
	}

	if e.advisor != nil && !e.advisor.OnPath(binDir) {
		fmt.Fprintf(e.errOut, "%s %s\n", style.Warn.Render(style.Warning), e.advisor.Hint(binDir))
	}
	return nil
}

// Active 返回 inst 中当前处于激活状态的二进制名，按名字排序。
func (e *Exposer) Active(ctx context.Context, opts models.Options, inst storage.Installed, binaries []string) ([]string, error) {
	versionBin := absPath(inst.BinDir())
	if e.usesAlternatives(ctx, opts) {
		var active []string
		for _, bin := range binaries {
			name := filepath.Base(bin)
			current, err := e.alts.Current(ctx, name)
			if err != nil {
				e.logger.Debug("alternatives query failed", "name", name, "error", err)
				continue
			}
			if withinDir(versionBin, current) {
				active = append(active, name)
			}
		}
		sort.Strings(active)
		return active, nil
	}

	links, err := linksInto(opts.BinDir, versionBin)
	if err != nil {
		return nil, err
	}
	active := make([]string, 0, len(links))
	for _, l := range links {
		active = append(active, filepath.Base(l))
	}
	return active, nil
}

// Withdraw 撤销 inst 的暴露：注销 alternatives 候选，或删除指向该版本的符号链接。
func (e *Exposer) Withdraw(ctx context.Context, opts models.Options, inst storage.Installed, binaries []string) error {
	if e.usesAlternatives(ctx, opts) {
		for _, bin := range binaries {
			name := filepath.Base(bin)
			if err := e.alts.Remove(ctx, name, bin); err != nil {
				fmt.Fprintf(e.errOut, "%s: %v\n", name, err)
				continue
			}
			fmt.Fprintf(e.out, "deregistered %s\n", bin)
		}
		return nil
	}

	links, err := linksInto(opts.BinDir, absPath(inst.BinDir()))
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := os.Remove(l); err != nil && !errors.Is(err, os.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "exposer: remove symlink"), "path", l)
		}
		fmt.Fprintf(e.out, "removed %s\n", l)
	}
	return nil
}

// linksInto 返回 binDir 中目标位于 versionBin 下的符号链接，binDir 不存在时为空。
func linksInto(binDir, versionBin string) ([]string, error) {
	entries, err := os.ReadDir(binDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "exposer: read bin dir"), "path", binDir)
	}

	var links []string
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		full := filepath.Join(binDir, entry.Name())
		target, err := os.Readlink(full)
		if err != nil {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(binDir, target)
		}
		if withinDir(versionBin, target) {
			links = append(links, full)
		}
	}
	return links, nil
}

func withinDir(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return strings.HasPrefix(path, dir+string(os.PathSeparator))
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
