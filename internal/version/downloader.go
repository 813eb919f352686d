package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/cheggaaa/pb"
	"go.trai.ch/zerr"
	"golang.org/x/term"

	"github.com/liangyou/gorel/pkg/models"
)

const (
	defaultChunkSize = 32 * 1024
	progressInterval = 200 * time.Millisecond
)

// DownloadStatus 表示一次下载的结果。
type DownloadStatus int

// 下载结果。
const (
	DownloadComplete DownloadStatus = iota
	DownloadAlreadyComplete
	DownloadCancelled
	DownloadFailed
)

func (s DownloadStatus) String() string {
	switch s {
	case DownloadComplete:
		return "complete"
	case DownloadAlreadyComplete:
		return "already complete"
	case DownloadCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// DownloadResult 携带下载状态与文件大小。
type DownloadResult struct {
	Status DownloadStatus
	Size   int64
}

// ProgressFunc 在下载过程中回调当前已完成的字节数以及总字节数。
// 两次回调之间至少间隔 progressInterval，最后一块总会回调。
type ProgressFunc func(downloaded, total int64)

// Downloader 负责流式下载归档。
type Downloader struct {
	httpClient   HTTPClient
	progressFunc ProgressFunc
	chunkSize    int
	logger       *slog.Logger
	now          func() time.Time
}

// HTTPClient 定义 Downloader 所需的 HTTP 客户端能力。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DownloaderOption 配置 Downloader。
type DownloaderOption func(*Downloader)

// WithHTTPClient 指定自定义 HTTP 客户端。
func WithHTTPClient(client HTTPClient) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithProgressFunc 指定进度回调。
func WithProgressFunc(fn ProgressFunc) DownloaderOption {
	return func(d *Downloader) {
		d.progressFunc = fn
	}
}

// WithChunkSize 指定每次读取的块大小。
func WithChunkSize(size int) DownloaderOption {
	return func(d *Downloader) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

// WithDownloadLogger 指定日志记录器。
func WithDownloadLogger(l *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDownloader 创建 Downloader。
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		httpClient: http.DefaultClient,
		chunkSize:  defaultChunkSize,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BarProgress 返回在 w 上绘制进度条的回调。
func BarProgress(w io.Writer) ProgressFunc {
	var bar *pb.ProgressBar
	return func(done, total int64) {
		if bar == nil {
			bar = pb.New64(total).SetUnits(pb.U_BYTES).SetRefreshRate(progressInterval)
			bar.Output = w
			bar.ShowSpeed = true
			bar.Start()
		}
		bar.Set64(done)
		if done >= total {
			bar.Finish()
		}
	}
}

// TerminalProgress 仅在 stderr 是终端时显示进度条。
func TerminalProgress() ProgressFunc {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return BarProgress(os.Stderr)
}

// Download 把安装包下载到 dest。若 dest 已存在且大小与 Content-Length 相同则跳过。
// ctx 被取消时删除未完成的文件并返回 DownloadCancelled。
func (d *Downloader) Download(ctx context.Context, pkg models.Package, dest string) (DownloadResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pkg.URL, nil)
	if err != nil {
		return DownloadResult{Status: DownloadFailed}, zerr.Wrap(err, "downloader: build request")
	}

	d.logger.Debug("requesting archive", "url", pkg.URL)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return DownloadResult{Status: DownloadCancelled}, nil
		}
		return DownloadResult{Status: DownloadFailed}, errors.Join(models.ErrNetwork, zerr.With(zerr.Wrap(err, "downloader: request failed"), "url", pkg.URL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DownloadResult{Status: DownloadFailed}, errors.Join(models.ErrNetwork, zerr.With(
			zerr.New(fmt.Sprintf("downloader: unexpected status %d", resp.StatusCode)), "url", pkg.URL))
	}
	total := resp.ContentLength
	if total < 0 {
		return DownloadResult{Status: DownloadFailed}, errors.Join(models.ErrNetwork, zerr.With(
			zerr.New("downloader: missing content length"), "url", pkg.URL))
	}

	// 大小一致即视为已下载完成，这里不做校验和比对。
	if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && info.Size() == total {
		d.logger.Debug("archive already present", "path", dest, "size", total)
		return DownloadResult{Status: DownloadAlreadyComplete, Size: total}, nil
	}

	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return DownloadResult{Status: DownloadFailed}, zerr.With(zerr.Wrap(err, "downloader: create file"), "path", dest)
	}

	written, copyErr := d.stream(file, resp.Body, total)
	closeErr := file.Close()

	switch {
	case ctx.Err() != nil:
		_ = os.Remove(dest)
		d.logger.Debug("download interrupted", "path", dest, "written", written)
		return DownloadResult{Status: DownloadCancelled, Size: written}, nil
	case copyErr != nil:
		_ = os.Remove(dest)
		return DownloadResult{Status: DownloadFailed, Size: written}, errors.Join(models.ErrNetwork, copyErr)
	case closeErr != nil:
		_ = os.Remove(dest)
		return DownloadResult{Status: DownloadFailed, Size: written}, zerr.Wrap(closeErr, "downloader: close file")
	case written != total:
		_ = os.Remove(dest)
		err := zerr.With(zerr.New("downloader: short body"), "written", written)
		return DownloadResult{Status: DownloadFailed, Size: written}, errors.Join(models.ErrNetwork, zerr.With(err, "expected", total))
	}

	return DownloadResult{Status: DownloadComplete, Size: written}, nil
}

// stream 按固定块大小拷贝，忽略空块，并按最小间隔上报进度。
func (d *Downloader) stream(w io.Writer, r io.Reader, total int64) (int64, error) {
	buf := make([]byte, d.chunkSize)
	var written int64
	var lastReport time.Time
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return written, zerr.Wrap(err, "downloader: write file")
			}
			written += int64(n)
			if d.progressFunc != nil {
				now := d.now()
				if written == total || now.Sub(lastReport) >= progressInterval {
					d.progressFunc(written, total)
					lastReport = now
				}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, zerr.Wrap(readErr, "downloader: read body")
		}
	}
}
