package version

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/internal/platform"
	"github.com/liangyou/gorel/internal/prompt"
	"github.com/liangyou/gorel/internal/storage"
	"github.com/liangyou/gorel/internal/ui/style"
	"github.com/liangyou/gorel/pkg/models"
)

// PackageDownloader 把安装包下载到本地文件。
type PackageDownloader interface {
	Download(ctx context.Context, pkg models.Package, dest string) (DownloadResult, error)
}

// StorageFactory 根据安装前缀构造存储。
type StorageFactory func(prefix string) storage.LocalStorage

// FileStorageFactory 返回基于目录扫描的存储。
func FileStorageFactory(prefix string) storage.LocalStorage {
	return storage.NewFileStorage(prefix)
}

// Installer 负责下载、解压并暴露一个 Go 版本。
type Installer struct {
	downloader PackageDownloader
	access     AccessChecker
	exposer    *Exposer
	prompter   prompt.Prompter
	newStorage StorageFactory
	out        io.Writer
	logger     *slog.Logger
}

// NewInstaller 创建 Installer。
func NewInstaller(downloader PackageDownloader, access AccessChecker, exposer *Exposer, prompter prompt.Prompter, out io.Writer, logger *slog.Logger) *Installer {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Installer{
		downloader: downloader,
		access:     access,
		exposer:    exposer,
		prompter:   prompter,
		newStorage: FileStorageFactory,
		out:        out,
		logger:     logger,
	}
}

// SetOutput 替换安装信息的输出位置，共用的 Exposer 一并切换。
func (i *Installer) SetOutput(out, errOut io.Writer) {
	if out != nil {
		i.out = out
	}
	if i.exposer != nil {
		i.exposer.SetOutput(out, errOut)
	}
}

// Install 安装 pkg 并返回安装目录。目标目录已存在时跳过下载与解压，只重新暴露二进制。
func (i *Installer) Install(ctx context.Context, pkg models.Package, opts models.Options) (string, error) {
	if i.downloader == nil || i.exposer == nil {
		return "", zerr.New("installer: missing dependencies")
	}

	store := i.newStorage(opts.Prefix)
	installPath := store.GetInstallPath(pkg.Version)

	if info, err := os.Stat(installPath); err == nil && info.IsDir() {
		fmt.Fprintf(i.out, "%s is already installed in %s\n", style.Version.Render("go"+pkg.Version), installPath)
	} else {
		if err := i.fetchAndExtract(ctx, store, pkg, opts, installPath); err != nil {
			return "", err
		}
		fmt.Fprintf(i.out, "%s installed %s into %s\n", style.Active.Render(style.Check), style.Version.Render("go"+pkg.Version), installPath)
	}

	binaries, err := store.Binaries(installPath)
	if err != nil {
		return installPath, err
	}
	if err := i.exposer.Expose(ctx, opts, binaries); err != nil {
		return installPath, err
	}
	return installPath, nil
}

func (i *Installer) fetchAndExtract(ctx context.Context, store storage.LocalStorage, pkg models.Package, opts models.Options, installPath string) error {
	if !SupportedArchive(pkg.Extension) {
		return errors.Join(models.ErrUnsupportedArchive, zerr.With(zerr.New("installer: only tar archives can be installed"), "file", pkg.FileName))
	}

	if p := confirmer(i.prompter, opts); p != nil {
		ok, err := p.Confirm(ctx, fmt.Sprintf("Install go%s (%s/%s) into %s?", pkg.Version, pkg.OS, pkg.Arch, installPath))
		if err != nil {
			return err
		}
		if !ok {
			return models.ErrCancelled
		}
	}

	prefix := store.Prefix()
	if err := os.MkdirAll(prefix, 0o755); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return errors.Join(models.ErrPermission, zerr.New(platform.PermissionHint(prefix)))
		}
		return zerr.With(zerr.Wrap(err, "installer: create prefix"), "prefix", prefix)
	}
	if i.access != nil {
		if err := i.access.CanWrite(prefix); err != nil {
			return errors.Join(err, zerr.New(platform.PermissionHint(prefix)))
		}
	}

	tmpDir := opts.TmpDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "installer: create download dir"), "path", tmpDir)
	}
	archivePath := filepath.Join(tmpDir, pkg.FileName)

	result, err := i.downloader.Download(ctx, pkg, archivePath)
	if err != nil {
		return err
	}
	switch result.Status {
	case DownloadCancelled:
		return models.ErrCancelled
	case DownloadAlreadyComplete:
		fmt.Fprintf(i.out, "using previously downloaded %s\n", archivePath)
	}

	removed, err := store.SweepStaging()
	if err != nil {
		return err
	}
	for _, dir := range removed {
		i.logger.Debug("removed stale staging dir", "path", dir)
	}

	staging, err := store.CreateStaging()
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	i.logger.Debug("extracting archive", "archive", archivePath, "staging", staging)
	if err := extractArchive(archivePath, pkg.Extension, staging); err != nil {
		return err
	}

	top, err := singleTopDir(staging)
	if err != nil {
		return err
	}
	if err := os.Rename(top, installPath); err != nil {
		return zerr.With(zerr.Wrap(err, "installer: move install directory"), "path", installPath)
	}

	if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		i.logger.Warn("could not remove archive", "path", archivePath, "error", err)
	}
	return nil
}

// confirmer 在 -y 时返回总是同意的 Prompter。
func confirmer(p prompt.Prompter, opts models.Options) prompt.Prompter {
	if opts.Yes {
		return prompt.AutoConfirm{Prompter: p}
	}
	return p
}

// SupportedArchive 判断扩展名是否为可解压的 tar 格式。
func SupportedArchive(ext string) bool {
	switch strings.ToLower(ext) {
	case "tar", "tar.gz", "tgz":
		return true
	default:
		return false
	}
}

func extractArchive(archivePath, ext, dest string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "installer: open archive"), "path", archivePath)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.ToLower(ext) != "tar" {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return zerr.With(zerr.Wrap(err, "installer: gzip reader"), "path", archivePath)
		}
		defer gz.Close()
		r = gz
	}
	return extractTar(tar.NewReader(r), dest)
}

func extractTar(tr *tar.Reader, dest string) error {
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "installer: read archive")
		}

		target := filepath.Join(dest, filepath.FromSlash(header.Name))
		if err := ensureWithinRoot(dest, target); err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode(header.Mode)); err != nil {
				return zerr.With(zerr.Wrap(err, "installer: mkdir"), "path", target)
			}
		case tar.TypeReg:
			if err := writeFile(tr, target, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := ensureWithinRoot(dest, resolveLink(target, header.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return zerr.With(zerr.Wrap(err, "installer: mkdir for symlink"), "path", target)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return zerr.With(zerr.Wrap(err, "installer: symlink"), "path", target)
			}
		case tar.TypeLink:
			source := filepath.Join(dest, filepath.FromSlash(header.Linkname))
			if err := ensureWithinRoot(dest, source); err != nil {
				return err
			}
			if err := os.Link(source, target); err != nil {
				return zerr.With(zerr.Wrap(err, "installer: hard link"), "path", target)
			}
		case tar.TypeXGlobalHeader:
			continue
		default:
			return zerr.With(zerr.New("installer: unsupported tar entry"), "name", header.Name)
		}
	}
}

func writeFile(r io.Reader, target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return zerr.With(zerr.Wrap(err, "installer: mkdir for file"), "path", target)
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "installer: create file"), "path", target)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return zerr.With(zerr.Wrap(err, "installer: copy file"), "path", target)
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "installer: close file"), "path", target)
	}
	return nil
}

func dirMode(mode int64) os.FileMode {
	perm := os.FileMode(mode).Perm()
	if perm == 0 {
		return 0o755
	}
	return perm | 0o700
}

func resolveLink(target, linkname string) string {
	if filepath.IsAbs(linkname) {
		return linkname
	}
	return filepath.Join(filepath.Dir(target), linkname)
}

// singleTopDir 要求解压结果只有一个顶层目录并返回其路径。
func singleTopDir(staging string) (string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "installer: read staging dir"), "path", staging)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", zerr.With(zerr.New("installer: archive must contain exactly one top-level directory"), "entries", len(entries))
	}
	return filepath.Join(staging, entries[0].Name()), nil
}

func ensureWithinRoot(root, target string) error {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if target == root {
		return nil
	}
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return zerr.With(zerr.New("installer: archive entry escapes extraction dir"), "path", target)
	}
	return nil
}
