package models

import "go.trai.ch/zerr"

// 错误分类。具体错误通过 errors.Join 与这些哨兵组合，调用方用 errors.Is 判断类别。
var (
	// ErrArgument 表示命令行参数或配置值不合法。
	ErrArgument = zerr.New("invalid argument")

	// ErrNetwork 表示访问下载站点失败。
	ErrNetwork = zerr.New("network request failed")

	// ErrEmptyCatalog 表示发布页没有解析出任何安装包，通常意味着页面结构变了。
	ErrEmptyCatalog = zerr.New("no packages found on the download page, the page layout may have changed")

	// ErrNoMatch 表示没有安装包满足过滤条件。
	ErrNoMatch = zerr.New("no available versions")

	// ErrPermission 表示安装目录或 bin 目录无法访问。
	ErrPermission = zerr.New("insufficient permissions")

	// ErrNotInstalled 表示要卸载的版本不存在。
	ErrNotInstalled = zerr.New("version not installed")

	// ErrCancelled 表示用户中断或拒绝了操作。
	ErrCancelled = zerr.New("cancelled by user")

	// ErrUnsupportedArchive 表示归档不是 tar 系列格式。
	ErrUnsupportedArchive = zerr.New("unsupported archive format")
)
