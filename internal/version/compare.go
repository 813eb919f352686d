package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions 比较两个点分数字版本，返回 1 表示 a>b。
// 较短的版本在末尾补零后再比较，因此 1.2 与 1.2.0 相等。
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil && va.Prerelease() == "" && vb.Prerelease() == "" {
		return va.Compare(vb)
	}
	return comparePadded(a, b)
}

// comparePadded 覆盖 semver 无法解析的情况，例如超过三段的版本号。
func comparePadded(a, b string) int {
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")
	max := len(ap)
	if len(bp) > max {
		max = len(bp)
	}
	for i := 0; i < max; i++ {
		ai := 0
		if i < len(ap) {
			ai = parseInt(ap[i])
		}
		bi := 0
		if i < len(bp) {
			bi = parseInt(bp[i])
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}

func parseInt(value string) int {
	var n int
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			break
		}
		n = n*10 + int(ch-'0')
	}
	return n
}
