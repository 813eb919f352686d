package models

// Options 是一次调用的最终配置，由 CLI 层构建一次后按值传入各组件。
type Options struct {
	OS          string // 平台过滤，"any" 表示不限
	Arch        string // 架构过滤，"any" 表示不限
	Version     string // 版本过滤：latest、前缀或正则
	Prefix      string // 安装根目录，必须是绝对路径
	BinDir      string // 暴露二进制的目录
	TmpDir      string // 下载归档的暂存目录
	Symlink     bool   // 强制使用符号链接
	AltPriority int    // alternatives 优先级
	Yes         bool   // 自动确认
	Activate    bool   // 安装后立即激活 alternatives
	ListingURL  string // 发布列表页地址
	Elevated    bool   // 是否以管理员身份运行
	Verbose     bool
}

// UseAlternatives 判断本次调用是否应尝试 alternatives 机制。
func (o Options) UseAlternatives() bool {
	return o.Elevated && !o.Symlink
}
