package version

import (
	"context"
	"fmt"
	"sort"

	"github.com/liangyou/gorel/internal/prompt"
	"github.com/liangyou/gorel/pkg/models"
)

// Selector 按过滤条件从目录中挑选一个安装包。
type Selector struct {
	prompter prompt.Prompter
}

// NewSelector 创建 Selector，多个候选时通过 prompter 让用户选择。
func NewSelector(p prompt.Prompter) *Selector {
	return &Selector{prompter: p}
}

// SortPackages 按版本降序、OS 升序、架构升序排列。
func SortPackages(pkgs []models.Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if cmp := CompareVersions(pkgs[i].Version, pkgs[j].Version); cmp != 0 {
			return cmp > 0
		}
		if pkgs[i].OS != pkgs[j].OS {
			return pkgs[i].OS < pkgs[j].OS
		}
		return pkgs[i].Arch < pkgs[j].Arch
	})
}

// Matches 返回满足过滤条件的全部安装包，已排序。
func Matches(catalog *models.Catalog, filter Filter) []models.Package {
	if catalog == nil {
		return nil
	}
	all := catalog.Packages()
	SortPackages(all)

	var out []models.Package
	for _, pkg := range all {
		if filter.Match(pkg) {
			out = append(out, pkg)
		}
	}
	return out
}

// Select 返回唯一候选；多个候选时提示选择；无候选返回 nil。
// 用户中断选择时返回 models.ErrCancelled。
func (s *Selector) Select(ctx context.Context, catalog *models.Catalog, filter Filter) (*models.Package, error) {
	candidates := Matches(catalog, filter)
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		return &candidates[0], nil
	}

	items := make([]string, len(candidates))
	for i, pkg := range candidates {
		items[i] = FormatPackage(pkg)
	}
	idx, err := s.prompter.Choose(ctx, fmt.Sprintf("%d packages match %s:", len(candidates), filter), items)
	if err != nil {
		return nil, err
	}
	return &candidates[idx], nil
}

// FormatPackage 格式化安装包输出。
func FormatPackage(pkg models.Package) string {
	return fmt.Sprintf("go%s (%s/%s) %s", pkg.Version, pkg.OS, pkg.Arch, pkg.FileName)
}
