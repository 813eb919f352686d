package version

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/liangyou/gorel/internal/storage"
	"github.com/liangyou/gorel/pkg/models"
)

// InstalledVersion 是一个已安装版本及其当前激活的二进制。
type InstalledVersion struct {
	storage.Installed
	Active []string
}

// Lister 汇总安装前缀下的版本。
type Lister struct {
	exposer    *Exposer
	newStorage StorageFactory
}

// NewLister 创建版本列表服务。
func NewLister(exposer *Exposer) *Lister {
	return &Lister{exposer: exposer, newStorage: FileStorageFactory}
}

// ListInstalled 返回按版本降序排列的已安装版本。前缀为空或不存在时返回空列表。
func (l *Lister) ListInstalled(ctx context.Context, opts models.Options) ([]InstalledVersion, error) {
	store := l.newStorage(opts.Prefix)
	installed, err := store.ListInstalled()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(installed, func(i, j int) bool {
		return CompareVersions(installed[i].Version, installed[j].Version) > 0
	})

	versions := make([]InstalledVersion, 0, len(installed))
	for _, inst := range installed {
		entry := InstalledVersion{Installed: inst}
		if l.exposer != nil {
			binaries, err := store.Binaries(inst.Path)
			if err != nil {
				return nil, err
			}
			entry.Active, err = l.exposer.Active(ctx, opts, inst, binaries)
			if err != nil {
				return nil, err
			}
		}
		versions = append(versions, entry)
	}
	return versions, nil
}

// FormatInstalled 格式化一行输出：目录路径，后跟激活的二进制。
func FormatInstalled(v InstalledVersion) string {
	if len(v.Active) == 0 {
		return v.Path
	}
	return fmt.Sprintf("%s (active: %s)", v.Path, strings.Join(v.Active, ", "))
}
