// Package build 保存构建时注入的信息。
package build

// Version 默认为 "dev"，可通过 -ldflags 覆盖。
var Version = "dev"
