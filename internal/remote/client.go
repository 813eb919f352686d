package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/net/html"

	"github.com/liangyou/gorel/internal/platform"
	"github.com/liangyou/gorel/pkg/models"
)

// DefaultListingURL 是官方下载页。
const DefaultListingURL = "https://go.dev/dl/"

// archivePattern 匹配 <product><version>.<os>-<arch>.<ext> 形式的文件名。
var archivePattern = regexp.MustCompile(`(?:^|/)go(\d+(?:\.\d+)*)\.([a-z0-9]+)-([a-z0-9_]+)\.([a-z0-9][a-z0-9.]{2,9})$`)

// CatalogSource 定义发布目录来源应具备的能力。
type CatalogSource interface {
	FetchCatalog(ctx context.Context, listingURL string) (*models.Catalog, error)
}

// HTTPClient 描述最小化的 HTTP 客户端接口，方便测试时替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 用于配置 Client。
type Option func(*Client)

// WithBaseURL 设置默认的发布页地址。
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient 设置 HTTP 客户端。
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client 实现 CatalogSource，每次调用都重新抓取，不做缓存。
type Client struct {
	baseURL    string
	httpClient HTTPClient
	logger     *slog.Logger
}

// NewClient 创建发布目录客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultListingURL,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCatalog 抓取发布页并解析出全部归档。listingURL 为空时使用默认地址。
// 页面中没有任何匹配时返回空目录而不是错误。
func (c *Client) FetchCatalog(ctx context.Context, listingURL string) (*models.Catalog, error) {
	if listingURL == "" {
		listingURL = c.baseURL
	}
	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, errors.Join(models.ErrArgument, zerr.With(zerr.Wrap(err, "invalid listing url"), "url", listingURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, zerr.Wrap(err, "remote: build request")
	}

	c.logger.Debug("fetching release listing", "url", base.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(models.ErrNetwork, zerr.With(zerr.Wrap(err, "remote: request failed"), "url", base.String()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(models.ErrNetwork, zerr.With(
			zerr.New(fmt.Sprintf("remote: unexpected status %d", resp.StatusCode)), "url", base.String()))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(models.ErrNetwork, zerr.Wrap(err, "remote: read body"))
	}

	// 以最终响应地址为基准，重定向后的相对链接同样能正确解析。
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	catalog := ParseListing(body, base)
	c.logger.Debug("parsed release listing", "versions", len(catalog.Versions()), "packages", catalog.Len())
	return catalog, nil
}

// ParseListing 扫描页面中的 <a href>，把匹配归档命名规则的链接解析为安装包。
func ParseListing(body []byte, base *url.URL) *models.Catalog {
	catalog := models.NewCatalog()
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return catalog
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := tokenizer.TagAttr()
				if string(key) == "href" {
					if pkg, ok := parseHref(string(val), base); ok {
						catalog.Add(pkg)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

func parseHref(href string, base *url.URL) (models.Package, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return models.Package{}, false
	}
	m := archivePattern.FindStringSubmatch(ref.Path)
	if m == nil {
		return models.Package{}, false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	return models.Package{
		Version:   m[1],
		OS:        m[2],
		Arch:      platform.NormalizeArch(m[3]),
		FileName:  strings.TrimPrefix(m[0], "/"),
		URL:       abs.String(),
		Extension: m[4],
	}, true
}
