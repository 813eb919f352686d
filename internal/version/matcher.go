package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/internal/platform"
	"github.com/liangyou/gorel/pkg/models"
)

// MatchKind 标识匹配器的模式。
type MatchKind int

// 匹配模式。
const (
	AnyMatch MatchKind = iota
	ExactPrefix
	Pattern
	FirstOf
	Exact
)

// Latest 是选择最新版本的关键字。
const Latest = "latest"

// anyValue 表示 OS/架构不做限制。
const anyValue = "any"

// patternChars 出现任意一个即视为正则表达式。
const patternChars = "[]?*"

// Matcher 是带描述的谓词。FirstOf 模式会记住第一个被询问的版本，
// 因此需要通过指针调用 Match。
type Matcher struct {
	Kind  MatchKind
	Value string

	re   *regexp.Regexp
	seen string
}

// NewVersionMatcher 根据用户输入推断版本匹配模式。
func NewVersionMatcher(input string) (*Matcher, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "go")
	switch {
	case input == "" || input == anyValue:
		return &Matcher{Kind: AnyMatch}, nil
	case input == Latest:
		return &Matcher{Kind: FirstOf}, nil
	case strings.ContainsAny(input, patternChars):
		expr := input
		if !strings.HasSuffix(expr, "$") {
			expr += ".*"
		}
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, errors.Join(models.ErrArgument, zerr.With(zerr.Wrap(err, "invalid version pattern"), "version", input))
		}
		return &Matcher{Kind: Pattern, Value: input, re: re}, nil
	default:
		return &Matcher{Kind: ExactPrefix, Value: input}, nil
	}
}

// NewValueMatcher 构造 OS/架构匹配器，空值或 any 表示不限。
func NewValueMatcher(value string) *Matcher {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == anyValue {
		return &Matcher{Kind: AnyMatch}
	}
	return &Matcher{Kind: Exact, Value: value}
}

// NewArchMatcher 构造架构匹配器，输入先按厂商别名归一化（x86_64 -> amd64）。
func NewArchMatcher(value string) *Matcher {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, anyValue) {
		return &Matcher{Kind: AnyMatch}
	}
	return &Matcher{Kind: Exact, Value: platform.NormalizeArch(value)}
}

// Match 判断候选值是否满足条件。
func (m *Matcher) Match(candidate string) bool {
	switch m.Kind {
	case AnyMatch:
		return true
	case Exact:
		return candidate == m.Value
	case ExactPrefix:
		return strings.HasPrefix(candidate, m.Value)
	case Pattern:
		return m.re.MatchString(candidate)
	case FirstOf:
		if m.seen == "" {
			m.seen = candidate
		}
		return candidate == m.seen
	default:
		return false
	}
}

// String 返回可读描述。
func (m *Matcher) String() string {
	switch m.Kind {
	case AnyMatch:
		return "any"
	case Exact:
		return m.Value
	case ExactPrefix:
		return fmt.Sprintf("starting with %q", m.Value)
	case Pattern:
		return fmt.Sprintf("matching /%s/", m.Value)
	case FirstOf:
		if m.seen != "" {
			return fmt.Sprintf("latest (%s)", m.seen)
		}
		return Latest
	default:
		return "unknown"
	}
}

// Filter 是一次调用的三元过滤条件。
type Filter struct {
	Arch    *Matcher
	OS      *Matcher
	Version *Matcher
}

// NewFilter 从配置生成过滤条件，每次调用只生成一次。
func NewFilter(opts models.Options) (Filter, error) {
	ver, err := NewVersionMatcher(opts.Version)
	if err != nil {
		return Filter{}, err
	}
	return Filter{
		Arch:    NewArchMatcher(opts.Arch),
		OS:      NewValueMatcher(opts.OS),
		Version: ver,
	}, nil
}

// Match 依次检查架构、OS、版本。版本放在最后，latest 因此记住的是
// 第一个满足平台条件的版本。
func (f Filter) Match(pkg models.Package) bool {
	return f.Arch.Match(pkg.Arch) && f.OS.Match(pkg.OS) && f.Version.Match(pkg.Version)
}

// String 返回过滤条件的描述。
func (f Filter) String() string {
	return fmt.Sprintf("version %s, os %s, arch %s", f.Version, f.OS, f.Arch)
}
