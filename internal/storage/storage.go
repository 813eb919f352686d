package storage

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/pkg/models"
)

// stagingPattern 是解压临时目录的名字模板，位于安装前缀之下，
// 保证最终 rename 不跨文件系统。
const stagingPattern = ".gorel-staging-*"

var installedDirPattern = regexp.MustCompile(`^go-(\d+(?:\.\d+)*)$`)

// LocalStorage 定义安装前缀下的目录布局。
type LocalStorage interface {
	Prefix() string
	GetInstallPath(version string) string
	ListInstalled() ([]Installed, error)
	Binaries(installPath string) ([]string, error)
	CreateStaging() (string, error)
	SweepStaging() ([]string, error)
}

// Installed 表示前缀下的一个已安装版本目录。
type Installed struct {
	Version string
	Name    string
	Path    string
}

// BinDir 返回该版本的 bin 目录。
func (i Installed) BinDir() string {
	return filepath.Join(i.Path, "bin")
}

// FileStorage 通过目录扫描发现已安装版本，不保存额外元数据。
type FileStorage struct {
	prefix string
}

// NewFileStorage 构造一个以 prefix 为根的存储实例。
func NewFileStorage(prefix string) *FileStorage {
	return &FileStorage{prefix: filepath.Clean(prefix)}
}

// Prefix 返回安装根目录。
func (s *FileStorage) Prefix() string {
	return s.prefix
}

// GetInstallPath 返回指定版本的安装目录。
func (s *FileStorage) GetInstallPath(version string) string {
	return filepath.Join(s.prefix, models.DirName(version))
}

// ListInstalled 列出前缀下所有 go-<version> 目录，前缀不存在时返回空列表。
func (s *FileStorage) ListInstalled() ([]Installed, error) {
	entries, err := os.ReadDir(s.prefix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Installed{}, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "storage: read prefix"), "prefix", s.prefix)
	}

	installed := []Installed{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := installedDirPattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		installed = append(installed, Installed{
			Version: m[1],
			Name:    entry.Name(),
			Path:    filepath.Join(s.prefix, entry.Name()),
		})
	}
	return installed, nil
}

// Binaries 返回 <installPath>/bin 下直接包含的可执行文件的绝对路径，按名字排序。
func (s *FileStorage) Binaries(installPath string) ([]string, error) {
	binDir := filepath.Join(installPath, "bin")
	entries, err := os.ReadDir(binDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "storage: read bin dir"), "path", binDir)
	}

	var bins []string
	for _, entry := range entries {
		full := filepath.Join(binDir, entry.Name())
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		abs, err := filepath.Abs(full)
		if err != nil {
			return nil, zerr.Wrap(err, "storage: resolve binary path")
		}
		bins = append(bins, abs)
	}
	sort.Strings(bins)
	return bins, nil
}

// CreateStaging 在前缀下创建一个新的解压临时目录。
func (s *FileStorage) CreateStaging() (string, error) {
	dir, err := os.MkdirTemp(s.prefix, stagingPattern)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "storage: create staging dir"), "prefix", s.prefix)
	}
	return dir, nil
}

// SweepStaging 删除此前中断的安装遗留的临时目录，返回被删除的路径。
func (s *FileStorage) SweepStaging() ([]string, error) {
	entries, err := os.ReadDir(s.prefix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "storage: read prefix"), "prefix", s.prefix)
	}

	stem := strings.TrimSuffix(stagingPattern, "*")
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), stem) {
			continue
		}
		path := filepath.Join(s.prefix, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, zerr.With(zerr.Wrap(err, "storage: remove stale staging dir"), "path", path)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
