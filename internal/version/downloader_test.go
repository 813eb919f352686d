package version

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/liangyou/gorel/pkg/models"
)

func TestDownloaderDownloadSuccess(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("gorel"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	var lastProgress, lastTotal int64
	dl := NewDownloader(
		WithHTTPClient(server.Client()),
		WithChunkSize(512),
		WithProgressFunc(func(done, total int64) {
			atomic.StoreInt64(&lastProgress, done)
			atomic.StoreInt64(&lastTotal, total)
		}),
	)

	dest := filepath.Join(t.TempDir(), "go1.21.0.linux-amd64.tar.gz")
	pkg := models.Package{URL: server.URL, FileName: filepath.Base(dest)}

	res, err := dl.Download(context.Background(), pkg, dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if res.Status != DownloadComplete || res.Size != int64(len(payload)) {
		t.Fatalf("unexpected result: %+v", res)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("expected file at %s: %v", dest, err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("downloaded content mismatch")
	}

	if got := atomic.LoadInt64(&lastProgress); got != int64(len(payload)) {
		t.Fatalf("unexpected progress: %d", got)
	}
	if got := atomic.LoadInt64(&lastTotal); got != int64(len(payload)) {
		t.Fatalf("unexpected total: %d", got)
	}
}

func TestDownloaderSkipsSameSizeFile(t *testing.T) {
	t.Parallel()

	payload := []byte("fresh content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "go.tar.gz")
	stale := bytes.Repeat([]byte("x"), len(payload))
	if err := os.WriteFile(dest, stale, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	dl := NewDownloader(WithHTTPClient(server.Client()))
	res, err := dl.Download(context.Background(), models.Package{URL: server.URL}, dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if res.Status != DownloadAlreadyComplete || res.Size != int64(len(payload)) {
		t.Fatalf("expected already complete, got %+v", res)
	}

	data, _ := os.ReadFile(dest)
	if !bytes.Equal(data, stale) {
		t.Fatal("existing same-size file must not be overwritten")
	}
}

func TestDownloaderReplacesDifferentSizeFile(t *testing.T) {
	t.Parallel()

	payload := []byte("fresh content")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "go.tar.gz")
	if err := os.WriteFile(dest, []byte("partial"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	res, err := NewDownloader(WithHTTPClient(server.Client())).Download(context.Background(), models.Package{URL: server.URL}, dest)
	if err != nil || res.Status != DownloadComplete {
		t.Fatalf("expected complete download, got %+v err=%v", res, err)
	}
	data, _ := os.ReadFile(dest)
	if !bytes.Equal(data, payload) {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestDownloaderCancelledRemovesPartialFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		_, _ = w.Write(bytes.Repeat([]byte("a"), 128))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dl := NewDownloader(
		WithHTTPClient(server.Client()),
		WithProgressFunc(func(done, total int64) { cancel() }),
	)

	dest := filepath.Join(t.TempDir(), "go.tar.gz")
	res, err := dl.Download(ctx, models.Package{URL: server.URL}, dest)
	if err != nil {
		t.Fatalf("cancel must not be reported as failure: %v", err)
	}
	if res.Status != DownloadCancelled {
		t.Fatalf("expected cancelled, got %+v", res)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestDownloaderHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "go.tar.gz")
	res, err := NewDownloader(WithHTTPClient(server.Client())).Download(context.Background(), models.Package{URL: server.URL}, dest)
	if err == nil || res.Status != DownloadFailed {
		t.Fatalf("expected failure, got %+v err=%v", res, err)
	}
}

// stutterReader 在每个数据块之间插入空读。
type stutterReader struct {
	chunks [][]byte
	empty  bool
}

func (s *stutterReader) Read(p []byte) (int, error) {
	if len(s.chunks) == 0 {
		return 0, io.EOF
	}
	s.empty = !s.empty
	if s.empty {
		return 0, nil
	}
	n := copy(p, s.chunks[0])
	s.chunks = s.chunks[1:]
	return n, nil
}

type fixedClient struct {
	body   io.Reader
	length int64
}

func (c *fixedClient) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode:    http.StatusOK,
		ContentLength: c.length,
		Body:          io.NopCloser(c.body),
		Request:       req,
	}, nil
}

func TestDownloaderIgnoresEmptyChunks(t *testing.T) {
	t.Parallel()

	reader := &stutterReader{chunks: [][]byte{[]byte("abc"), []byte("def"), []byte("g")}}
	var reports []int64
	dl := NewDownloader(
		WithHTTPClient(&fixedClient{body: reader, length: 7}),
		WithProgressFunc(func(done, total int64) { reports = append(reports, done) }),
	)

	dest := filepath.Join(t.TempDir(), "go.tar.gz")
	res, err := dl.Download(context.Background(), models.Package{URL: "http://example.invalid/go.tar.gz"}, dest)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if res.Size != 7 {
		t.Fatalf("unexpected size %d", res.Size)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "abcdefg" {
		t.Fatalf("unexpected content %q", data)
	}
	if len(reports) == 0 || reports[len(reports)-1] != 7 {
		t.Fatalf("final progress not reported: %v", reports)
	}
}

func TestDownloaderThrottlesProgress(t *testing.T) {
	t.Parallel()

	const size = 100
	chunks := make([][]byte, size)
	for i := range chunks {
		chunks[i] = []byte{'x'}
	}
	reader := &stutterReader{chunks: chunks}

	var reports []int64
	dl := NewDownloader(
		WithChunkSize(1),
		WithProgressFunc(func(done, total int64) { reports = append(reports, done) }),
	)
	start := time.Unix(1700000000, 0)
	clock := start
	dl.now = func() time.Time {
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}

	written, err := dl.stream(io.Discard, reader, size)
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if written != size {
		t.Fatalf("unexpected written %d", written)
	}

	elapsed := clock.Sub(start)
	limit := int(elapsed/progressInterval) + 2
	if len(reports) > limit {
		t.Fatalf("progress reported %d times over %s, want at most %d", len(reports), elapsed, limit)
	}
	if len(reports) < 2 {
		t.Fatalf("expected intermediate progress, got %v", reports)
	}
	if reports[len(reports)-1] != size {
		t.Fatalf("final progress not reported: %v", reports)
	}
}

func TestDownloaderRequiresContentLength(t *testing.T) {
	t.Parallel()

	dl := NewDownloader(WithHTTPClient(&fixedClient{body: bytes.NewReader([]byte("x")), length: -1}))
	dest := filepath.Join(t.TempDir(), "go.tar.gz")
	res, err := dl.Download(context.Background(), models.Package{URL: "http://example.invalid/go.tar.gz"}, dest)
	if err == nil || res.Status != DownloadFailed {
		t.Fatalf("expected failure without content length, got %+v", res)
	}
}
