package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.trai.ch/zerr"

	"github.com/liangyou/gorel/internal/platform"
	"github.com/liangyou/gorel/internal/prompt"
	"github.com/liangyou/gorel/internal/storage"
	"github.com/liangyou/gorel/pkg/models"
)

var uninstallVersionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

const maxSuggestions = 3

// Uninstaller 删除本地已安装的 Go 版本。
type Uninstaller struct {
	access     AccessChecker
	exposer    *Exposer
	prompter   prompt.Prompter
	newStorage StorageFactory
	out        io.Writer
	logger     *slog.Logger
}

// SetOutput 替换卸载信息的输出位置，共用的 Exposer 一并切换。
func (u *Uninstaller) SetOutput(out, errOut io.Writer) {
	if out != nil {
		u.out = out
	}
	if u.exposer != nil {
		u.exposer.SetOutput(out, errOut)
	}
}

// NewUninstaller 创建卸载器。
func NewUninstaller(access AccessChecker, exposer *Exposer, prompter prompt.Prompter, out io.Writer, logger *slog.Logger) *Uninstaller {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Uninstaller{
		access:     access,
		exposer:    exposer,
		prompter:   prompter,
		newStorage: FileStorageFactory,
		out:        out,
		logger:     logger,
	}
}

// Uninstall 删除指定版本，返回是否真正删除。用户拒绝确认时返回 false 且不报错。
func (u *Uninstaller) Uninstall(ctx context.Context, version string, opts models.Options) (bool, error) {
	version = strings.TrimSpace(version)
	store := u.newStorage(opts.Prefix)

	inst, err := u.lookup(store, version)
	if err != nil {
		return false, err
	}

	if u.access != nil {
		if err := u.access.CanReadWrite(store.Prefix()); err != nil {
			return false, errors.Join(err, zerr.New(platform.PermissionHint(store.Prefix())))
		}
	}

	if p := confirmer(u.prompter, opts); p != nil {
		ok, err := p.Confirm(ctx, fmt.Sprintf("Remove go%s from %s?", inst.Version, inst.Path))
		if err != nil {
			return false, err
		}
		if !ok {
			fmt.Fprintln(u.out, "nothing removed")
			return false, nil
		}
	}

	binaries, err := store.Binaries(inst.Path)
	if err != nil {
		return false, err
	}
	if u.exposer != nil {
		if err := u.exposer.Withdraw(ctx, opts, inst, binaries); err != nil {
			return false, err
		}
	}

	u.logger.Debug("removing install dir", "path", inst.Path)
	if err := os.RemoveAll(inst.Path); err != nil {
		return false, zerr.With(zerr.Wrap(err, "uninstaller: remove dir"), "path", inst.Path)
	}
	fmt.Fprintf(u.out, "removed %s\n", inst.Path)
	return true, nil
}

func (u *Uninstaller) lookup(store storage.LocalStorage, version string) (storage.Installed, error) {
	installed, err := store.ListInstalled()
	if err != nil {
		return storage.Installed{}, err
	}

	if uninstallVersionPattern.MatchString(version) {
		for _, inst := range installed {
			if inst.Version == version {
				return inst, nil
			}
		}
	}

	notInstalled := zerr.With(zerr.New("uninstaller: no such installation"), "version", version)
	if hint := suggest(version, installed); hint != "" {
		notInstalled = zerr.With(notInstalled, "did_you_mean", hint)
	}
	return storage.Installed{}, errors.Join(models.ErrNotInstalled, notInstalled)
}

// suggest 用模糊匹配给出相近的已安装版本。
func suggest(version string, installed []storage.Installed) string {
	query := strings.TrimPrefix(strings.TrimPrefix(version, "go-"), "go")
	if query == "" || len(installed) == 0 {
		return ""
	}
	names := make([]string, len(installed))
	for i, inst := range installed {
		names[i] = inst.Version
	}
	matches := fuzzy.Find(query, names)
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return strings.Join(out, ", ")
}
