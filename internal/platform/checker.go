package platform

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"

	"github.com/liangyou/gorel/pkg/models"
)

// archAliases 把内核/厂商的架构名归一化为发布页使用的名字。
var archAliases = map[string]string{
	"x86_64":  "amd64",
	"x64":     "amd64",
	"aarch64": "arm64",
	"arm64e":  "arm64",
	"i386":    "386",
	"i686":    "386",
	"x86":     "386",
	"armv7l":  "armv6l",
	"armv8l":  "armv6l",
}

// NormalizeArch 返回归一化后的小写架构名。
func NormalizeArch(arch string) string {
	arch = strings.ToLower(strings.TrimSpace(arch))
	if alias, ok := archAliases[arch]; ok {
		return alias
	}
	return arch
}

// Checker 探测当前主机的平台信息与目录权限。
type Checker struct {
	goos       func() string
	goarch     func() string
	kernelArch func(context.Context) (string, error)
	euid       func() int
	access     func(path string, mode uint32) error
}

// NewChecker 创建平台检测器。
func NewChecker() *Checker {
	return &Checker{
		goos:       func() string { return runtime.GOOS },
		goarch:     func() string { return runtime.GOARCH },
		kernelArch: hostKernelArch,
		euid:       os.Geteuid,
		access:     unix.Access,
	}
}

func hostKernelArch(ctx context.Context) (string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", err
	}
	return info.KernelArch, nil
}

// OS 返回发布页使用的操作系统名。
func (c *Checker) OS() string {
	return c.goos()
}

// Arch 优先使用内核报告的架构，失败时退回编译目标架构。
func (c *Checker) Arch(ctx context.Context) string {
	if c.kernelArch != nil {
		if arch, err := c.kernelArch(ctx); err == nil && strings.TrimSpace(arch) != "" {
			return NormalizeArch(arch)
		}
	}
	return NormalizeArch(c.goarch())
}

// Elevated 判断当前进程是否具有管理员权限。
func (c *Checker) Elevated() bool {
	return c.euid() == 0
}

// CanWrite 校验目录可写。
func (c *Checker) CanWrite(path string) error {
	return c.check(path, unix.W_OK|unix.X_OK)
}

// CanReadWrite 校验目录可读写。
func (c *Checker) CanReadWrite(path string) error {
	return c.check(path, unix.R_OK|unix.W_OK|unix.X_OK)
}

func (c *Checker) check(path string, mode uint32) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, "directory does not exist"), "path", path)
		}
		return errors.Join(models.ErrPermission, zerr.With(zerr.Wrap(err, "cannot stat directory"), "path", path))
	}
	if !info.IsDir() {
		return zerr.With(zerr.New("not a directory"), "path", path)
	}
	if err := c.access(path, mode); err != nil {
		return errors.Join(models.ErrPermission, zerr.With(zerr.Wrap(err, "access denied"), "path", path))
	}
	return nil
}

// PermissionHint 返回权限不足时的修复建议。
func PermissionHint(path string) string {
	return "no write access to " + path + ", re-run as root (e.g. with sudo) or choose another location with --prefix/--bin-dir"
}
