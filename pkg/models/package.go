package models

// Package 描述发布页上的一个可下载归档。解析后不可变。
type Package struct {
	Version   string // 纯版本号，例如 1.21.3
	OS        string // 小写平台名，例如 linux
	Arch      string // 归一化后的架构，例如 amd64
	FileName  string // 归档文件名，例如 go1.21.3.linux-amd64.tar.gz
	URL       string // 绝对下载地址
	Extension string // 归档格式，例如 tar.gz
}

// DirName 返回该版本在安装前缀下的目录名。
func (p Package) DirName() string {
	return DirName(p.Version)
}

// DirName 根据版本号生成安装目录名。
func DirName(version string) string {
	return "go-" + version
}
