package models

// Catalog 按 version → os → arch 索引一次抓取得到的全部安装包。
// 版本保持页面上首次出现的顺序。
type Catalog struct {
	order    []string
	packages map[string]map[string]map[string]Package
}

// NewCatalog 创建空目录。
func NewCatalog() *Catalog {
	return &Catalog{packages: make(map[string]map[string]map[string]Package)}
}

// Add 按安装包自身的字段登记，重复条目保留首次出现的记录。
func (c *Catalog) Add(pkg Package) bool {
	byOS, ok := c.packages[pkg.Version]
	if !ok {
		byOS = make(map[string]map[string]Package)
		c.packages[pkg.Version] = byOS
		c.order = append(c.order, pkg.Version)
	}
	byArch, ok := byOS[pkg.OS]
	if !ok {
		byArch = make(map[string]Package)
		byOS[pkg.OS] = byArch
	}
	if _, exists := byArch[pkg.Arch]; exists {
		return false
	}
	byArch[pkg.Arch] = pkg
	return true
}

// Versions 返回页面顺序的版本列表。
func (c *Catalog) Versions() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Lookup 精确查找一个安装包。
func (c *Catalog) Lookup(version, goos, arch string) (Package, bool) {
	pkg, ok := c.packages[version][goos][arch]
	return pkg, ok
}

// Platforms 返回某个版本下的 os → arch → Package 映射。
func (c *Catalog) Platforms(version string) map[string]map[string]Package {
	return c.packages[version]
}

// Packages 返回全部安装包，顺序未定义。
func (c *Catalog) Packages() []Package {
	var out []Package
	for _, version := range c.order {
		for _, byArch := range c.packages[version] {
			for _, pkg := range byArch {
				out = append(out, pkg)
			}
		}
	}
	return out
}

// Len 返回安装包总数。
func (c *Catalog) Len() int {
	n := 0
	for _, byOS := range c.packages {
		for _, byArch := range byOS {
			n += len(byArch)
		}
	}
	return n
}

// Empty 表示页面上没有解析出任何安装包。
func (c *Catalog) Empty() bool {
	return c == nil || len(c.order) == 0
}
