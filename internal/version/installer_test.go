package version

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/liangyou/gorel/internal/prompt"
	"github.com/liangyou/gorel/internal/ui/style"
	"github.com/liangyou/gorel/pkg/models"
)

type stubDownloader struct {
	archive string
	calls   int
	status  DownloadStatus
	fail    error
}

func (s *stubDownloader) Download(_ context.Context, _ models.Package, dest string) (DownloadResult, error) {
	s.calls++
	if s.fail != nil {
		return DownloadResult{Status: DownloadFailed}, s.fail
	}
	if s.status == DownloadCancelled {
		return DownloadResult{Status: DownloadCancelled}, nil
	}
	data, err := os.ReadFile(s.archive)
	if err != nil {
		return DownloadResult{Status: DownloadFailed}, err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return DownloadResult{Status: DownloadFailed}, err
	}
	return DownloadResult{Status: DownloadComplete, Size: int64(len(data))}, nil
}

type fakeAccess struct {
	err error
}

func (f fakeAccess) CanWrite(string) error     { return f.err }
func (f fakeAccess) CanReadWrite(string) error { return f.err }

func testOptions(t *testing.T) models.Options {
	t.Helper()
	root := t.TempDir()
	opts := models.Options{
		Prefix:  filepath.Join(root, "lib"),
		BinDir:  filepath.Join(root, "bin"),
		TmpDir:  filepath.Join(root, "tmp"),
		Symlink: true,
		Yes:     true,
	}
	if err := os.MkdirAll(opts.BinDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	return opts
}

func testPackage(version string) models.Package {
	name := "go" + version + ".linux-amd64.tar.gz"
	return models.Package{
		Version:   version,
		OS:        "linux",
		Arch:      "amd64",
		FileName:  name,
		URL:       "https://example.invalid/dl/" + name,
		Extension: "tar.gz",
	}
}

func newTestInstaller(down PackageDownloader, access AccessChecker, p prompt.Prompter, out io.Writer) *Installer {
	exposer := NewExposer(nil, access, nil, out, io.Discard, nil)
	return NewInstaller(down, access, exposer, p, out, nil)
}

func TestInstallerInstallAndIdempotent(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	tarPath := createGoArchive(t, map[string]string{
		"bin/go":    "binary",
		"bin/gofmt": "fmt",
		"VERSION":   "go1.21.0",
	})

	down := &stubDownloader{archive: tarPath}
	var out bytes.Buffer
	installer := newTestInstaller(down, fakeAccess{}, nil, &out)

	installPath, err := installer.Install(context.Background(), testPackage("1.21.0"), opts)
	if err != nil {
		t.Fatalf("first install failed: %v", err)
	}
	if installPath != filepath.Join(opts.Prefix, "go-1.21.0") {
		t.Fatalf("unexpected install path %s", installPath)
	}
	if _, err := os.Stat(filepath.Join(installPath, "bin", "go")); err != nil {
		t.Fatalf("expected bin/go in %s: %v", installPath, err)
	}

	for _, name := range []string{"go", "gofmt"} {
		target, err := os.Readlink(filepath.Join(opts.BinDir, name))
		if err != nil {
			t.Fatalf("expected symlink for %s: %v", name, err)
		}
		if target != filepath.Join(installPath, "bin", name) {
			t.Fatalf("symlink %s points to %s", name, target)
		}
	}

	if _, err := os.Stat(filepath.Join(opts.TmpDir, testPackage("1.21.0").FileName)); !os.IsNotExist(err) {
		t.Fatalf("expected archive removed after install, err=%v", err)
	}
	assertNoStaging(t, opts.Prefix)

	if _, err := installer.Install(context.Background(), testPackage("1.21.0"), opts); err != nil {
		t.Fatalf("second install failed: %v", err)
	}
	if down.calls != 1 {
		t.Fatalf("expected downloader called once, got %d", down.calls)
	}
	if !strings.Contains(out.String(), "already installed") {
		t.Fatalf("expected already-installed notice, got %q", out.String())
	}
}

func TestInstallerSetOutputRedirectsExposer(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	tarPath := createGoArchive(t, map[string]string{"bin/go": "binary"})
	installer := newTestInstaller(&stubDownloader{archive: tarPath}, fakeAccess{}, nil, io.Discard)

	var out, errOut bytes.Buffer
	installer.SetOutput(&out, &errOut)

	installPath, err := installer.Install(context.Background(), testPackage("1.21.0"), opts)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if !strings.Contains(out.String(), style.Check) || !strings.Contains(out.String(), "into "+installPath) {
		t.Fatalf("expected install summary, got %q", out.String())
	}
	link := filepath.Join(opts.BinDir, "go")
	if !strings.Contains(out.String(), link+" -> "+filepath.Join(installPath, "bin", "go")) {
		t.Fatalf("expected link line on redirected output, got %q", out.String())
	}
}

func TestInstallerFailureCleansUp(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	down := &stubDownloader{archive: createInvalidArchive(t)}
	installer := newTestInstaller(down, fakeAccess{}, nil, io.Discard)

	if _, err := installer.Install(context.Background(), testPackage("1.20.0"), opts); err == nil {
		t.Fatal("expected install to fail for invalid archive")
	}

	if _, err := os.Stat(filepath.Join(opts.Prefix, "go-1.20.0")); !os.IsNotExist(err) {
		t.Fatalf("expected no install path, got err=%v", err)
	}
	assertNoStaging(t, opts.Prefix)
}

func TestInstallerReusesSameSizeArchive(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	archive := createGoArchive(t, map[string]string{"bin/go": "binary"})
	data, err := os.ReadFile(archive)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}

	// 服务端返回同样大小的垃圾数据，若重新下载则解压必然失败。
	garbage := bytes.Repeat([]byte{'x'}, len(data))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(garbage)))
		_, _ = w.Write(garbage)
	}))
	defer server.Close()

	pkg := testPackage("1.21.0")
	pkg.URL = server.URL + "/" + pkg.FileName
	if err := os.MkdirAll(opts.TmpDir, 0o755); err != nil {
		t.Fatalf("mkdir tmp: %v", err)
	}
	if err := os.WriteFile(filepath.Join(opts.TmpDir, pkg.FileName), data, 0o644); err != nil {
		t.Fatalf("seed archive: %v", err)
	}

	var out bytes.Buffer
	installer := newTestInstaller(NewDownloader(WithHTTPClient(server.Client())), fakeAccess{}, nil, &out)
	installPath, err := installer.Install(context.Background(), pkg, opts)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(installPath, "bin", "go")); err != nil {
		t.Fatalf("expected extracted binary: %v", err)
	}
	if !strings.Contains(out.String(), "previously downloaded") {
		t.Fatalf("expected reuse notice, got %q", out.String())
	}
}

func TestInstallerRejectsUnsupportedArchive(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	down := &stubDownloader{}
	installer := newTestInstaller(down, fakeAccess{}, nil, io.Discard)

	pkg := testPackage("1.21.0")
	pkg.Extension = "zip"
	pkg.FileName = "go1.21.0.windows-amd64.zip"

	_, err := installer.Install(context.Background(), pkg, opts)
	if !errors.Is(err, models.ErrUnsupportedArchive) {
		t.Fatalf("expected ErrUnsupportedArchive, got %v", err)
	}
	if down.calls != 0 {
		t.Fatalf("expected no download, got %d calls", down.calls)
	}
}

func TestInstallerDeclinedConfirmation(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Yes = false
	down := &stubDownloader{}
	installer := newTestInstaller(down, fakeAccess{}, prompt.Scripted(io.Discard, "n"), io.Discard)

	_, err := installer.Install(context.Background(), testPackage("1.21.0"), opts)
	if !errors.Is(err, models.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if down.calls != 0 {
		t.Fatalf("expected no download after decline, got %d", down.calls)
	}
}

func TestInstallerCancelledDownload(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	down := &stubDownloader{status: DownloadCancelled}
	installer := newTestInstaller(down, fakeAccess{}, nil, io.Discard)

	_, err := installer.Install(context.Background(), testPackage("1.21.0"), opts)
	if !errors.Is(err, models.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestInstallerPermissionDenied(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	down := &stubDownloader{}
	denied := errors.Join(models.ErrPermission, errors.New("access denied"))
	installer := newTestInstaller(down, fakeAccess{err: denied}, nil, io.Discard)

	_, err := installer.Install(context.Background(), testPackage("1.21.0"), opts)
	if !errors.Is(err, models.ErrPermission) {
		t.Fatalf("expected ErrPermission, got %v", err)
	}
	if !strings.Contains(err.Error(), "--prefix") {
		t.Fatalf("expected remediation hint, got %v", err)
	}
	if down.calls != 0 {
		t.Fatalf("expected no download, got %d", down.calls)
	}
}

func TestInstallerSweepsStaleStaging(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	stale := filepath.Join(opts.Prefix, ".gorel-staging-old")
	if err := os.MkdirAll(filepath.Join(stale, "go"), 0o755); err != nil {
		t.Fatalf("seed stale staging: %v", err)
	}

	down := &stubDownloader{archive: createGoArchive(t, map[string]string{"bin/go": "binary"})}
	installer := newTestInstaller(down, fakeAccess{}, nil, io.Discard)
	if _, err := installer.Install(context.Background(), testPackage("1.21.0"), opts); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	assertNoStaging(t, opts.Prefix)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "evil.tar.gz")
	file, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)
	content := "owned"
	if err := tw.WriteHeader(&tar.Header{Name: "../evil", Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	tw.Close()
	gz.Close()
	file.Close()

	dest := filepath.Join(t.TempDir(), "staging")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := extractArchive(archive, "tar.gz", dest); err == nil {
		t.Fatal("expected escaping entry to be rejected")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "evil")); !os.IsNotExist(err) {
		t.Fatalf("file written outside staging dir, err=%v", err)
	}
}

func TestSingleTopDirRequiresOneDirectory(t *testing.T) {
	t.Parallel()

	staging := t.TempDir()
	if _, err := singleTopDir(staging); err == nil {
		t.Fatal("expected error for empty staging dir")
	}
	if err := os.Mkdir(filepath.Join(staging, "go"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	top, err := singleTopDir(staging)
	if err != nil || top != filepath.Join(staging, "go") {
		t.Fatalf("unexpected result %s, %v", top, err)
	}
	if err := os.Mkdir(filepath.Join(staging, "other"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := singleTopDir(staging); err == nil {
		t.Fatal("expected error for two top-level dirs")
	}
}

func assertNoStaging(t *testing.T, prefix string) {
	t.Helper()
	entries, err := os.ReadDir(prefix)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read prefix: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".gorel-staging-") {
			t.Fatalf("staging dir left behind: %s", entry.Name())
		}
	}
}

func createGoArchive(t *testing.T, files map[string]string) string {
	t.Helper()

	pathOnDisk := filepath.Join(t.TempDir(), "go.tar.gz")
	file, err := os.Create(pathOnDisk)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	dirs := map[string]struct{}{}
	writeTarDir(t, tw, "")

	for rel, content := range files {
		ensureTarDirs(t, tw, rel, dirs)
		writeTarFile(t, tw, rel, content)
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}

	return pathOnDisk
}

func writeTarDir(t *testing.T, tw *tar.Writer, dir string) {
	t.Helper()
	hdr := &tar.Header{
		Name:     path.Join("go", dir) + "/",
		Mode:     0o755,
		Typeflag: tar.TypeDir,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write dir header: %v", err)
	}
}

func ensureTarDirs(t *testing.T, tw *tar.Writer, rel string, seen map[string]struct{}) {
	parent := path.Dir(rel)
	if parent == "." || parent == "" {
		return
	}
	var prefix string
	for _, part := range strings.Split(parent, "/") {
		if part == "" {
			continue
		}
		prefix = path.Join(prefix, part)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		writeTarDir(t, tw, prefix)
	}
}

func writeTarFile(t *testing.T, tw *tar.Writer, rel, content string) {
	t.Helper()
	hdr := &tar.Header{
		Name:     path.Join("go", rel),
		Mode:     0o755,
		Size:     int64(len(content)),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		t.Fatalf("write file header: %v", err)
	}
	if _, err := tw.Write([]byte(content)); err != nil {
		t.Fatalf("write file content: %v", err)
	}
}

func createInvalidArchive(t *testing.T) string {
	t.Helper()
	pathOnDisk := filepath.Join(t.TempDir(), "bad.tar.gz")
	if err := os.WriteFile(pathOnDisk, []byte("invalid"), 0o644); err != nil {
		t.Fatalf("write invalid archive: %v", err)
	}
	return pathOnDisk
}
