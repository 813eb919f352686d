// Package config 负责分层解析运行配置：默认值、YAML 配置文件、命令行参数。
package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/liangyou/gorel/internal/remote"
	"github.com/liangyou/gorel/pkg/models"
)

// 默认值。
const (
	DefaultAltPriority = 100

	systemPrefix = "/usr/local/lib/gorel"
	systemBinDir = "/usr/local/bin"
	userPrefix   = ".local/lib/gorel"
	userBinDir   = ".local/bin"
)

// EnvConfigPath 指定配置文件路径的环境变量。
const EnvConfigPath = "GOREL_CONFIG"

// Host 提供默认值所需的主机信息。
type Host interface {
	OS() string
	Arch(ctx context.Context) string
	Elevated() bool
}

// File 是 config.yaml 的结构，未出现的字段保持零值表示不覆盖。
type File struct {
	OS          string `yaml:"os"`
	Arch        string `yaml:"arch"`
	Version     string `yaml:"version"`
	Prefix      string `yaml:"prefix"`
	BinDir      string `yaml:"bin_dir"`
	TmpDir      string `yaml:"tmp"`
	Symlink     *bool  `yaml:"symlink"`
	AltPriority *int   `yaml:"alt_priority"`
	Activate    *bool  `yaml:"activate"`
	ListingURL  string `yaml:"listing_url"`
}

// Loader 定位并读取配置文件。
type Loader struct {
	envFn  func(string) string
	homeFn func() (string, error)
}

// NewLoader 创建使用真实环境的 Loader。
func NewLoader() *Loader {
	return &Loader{envFn: os.Getenv, homeFn: os.UserHomeDir}
}

// Path 返回配置文件路径：$GOREL_CONFIG，其次 $XDG_CONFIG_HOME/gorel/config.yaml，
// 最后 ~/.config/gorel/config.yaml。
func (l *Loader) Path() (string, error) {
	if p := l.envFn(EnvConfigPath); p != "" {
		return p, nil
	}
	if xdg := l.envFn("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gorel", "config.yaml"), nil
	}
	home, err := l.homeFn()
	if err != nil {
		return "", zerr.Wrap(err, "config: resolve home dir")
	}
	return filepath.Join(home, ".config", "gorel", "config.yaml"), nil
}

// Load 读取配置文件，文件不存在时返回空配置。
func (l *Loader) Load() (File, error) {
	path, err := l.Path()
	if err != nil {
		return File{}, err
	}
	f, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return File{}, nil
	}
	return f, err
}

// Load 解析 path 指向的 YAML 文件。
func Load(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, err
		}
		return File{}, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, errors.Join(models.ErrArgument, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path))
	}
	return f, nil
}

// Defaults 返回依赖主机与权限的默认配置。
func (l *Loader) Defaults(ctx context.Context, host Host) (models.Options, error) {
	opts := models.Options{
		OS:          host.OS(),
		Arch:        host.Arch(ctx),
		TmpDir:      os.TempDir(),
		AltPriority: DefaultAltPriority,
		ListingURL:  remote.DefaultListingURL,
		Elevated:    host.Elevated(),
	}
	if opts.Elevated {
		opts.Prefix = systemPrefix
		opts.BinDir = systemBinDir
		return opts, nil
	}
	home, err := l.homeFn()
	if err != nil {
		return models.Options{}, zerr.Wrap(err, "config: resolve home dir")
	}
	opts.Prefix = filepath.Join(home, userPrefix)
	opts.BinDir = filepath.Join(home, userBinDir)
	return opts, nil
}

// Apply 用配置文件中出现的字段覆盖 base。
func (l *Loader) Apply(base models.Options, f File) models.Options {
	if f.OS != "" {
		base.OS = f.OS
	}
	if f.Arch != "" {
		base.Arch = f.Arch
	}
	if f.Version != "" {
		base.Version = f.Version
	}
	if f.Prefix != "" {
		base.Prefix = l.expandHome(f.Prefix)
	}
	if f.BinDir != "" {
		base.BinDir = l.expandHome(f.BinDir)
	}
	if f.TmpDir != "" {
		base.TmpDir = l.expandHome(f.TmpDir)
	}
	if f.Symlink != nil {
		base.Symlink = *f.Symlink
	}
	if f.AltPriority != nil {
		base.AltPriority = *f.AltPriority
	}
	if f.Activate != nil {
		base.Activate = *f.Activate
	}
	if f.ListingURL != "" {
		base.ListingURL = f.ListingURL
	}
	return base
}

func (l *Loader) expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := l.homeFn()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Validate 检查最终配置。
func Validate(opts models.Options) error {
	if !filepath.IsAbs(opts.Prefix) {
		return errors.Join(models.ErrArgument, zerr.With(zerr.New("prefix must be an absolute path"), "prefix", opts.Prefix))
	}
	if opts.BinDir == "" {
		return errors.Join(models.ErrArgument, zerr.New("bin dir must not be empty"))
	}
	if opts.AltPriority < 0 {
		return errors.Join(models.ErrArgument, zerr.With(zerr.New("alternatives priority must not be negative"), "priority", opts.AltPriority))
	}
	return nil
}

// Resolver 合并默认值与配置文件，得到命令行参数之前的基础配置。
type Resolver struct {
	loader *Loader
	host   Host
}

// NewResolver 创建 Resolver。
func NewResolver(loader *Loader, host Host) *Resolver {
	return &Resolver{loader: loader, host: host}
}

// Resolve 返回默认值叠加配置文件后的配置。
func (r *Resolver) Resolve(ctx context.Context) (models.Options, error) {
	opts, err := r.loader.Defaults(ctx, r.host)
	if err != nil {
		return models.Options{}, err
	}
	f, err := r.loader.Load()
	if err != nil {
		return models.Options{}, err
	}
	return r.loader.Apply(opts, f), nil
}
