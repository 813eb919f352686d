package version

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liangyou/gorel/internal/prompt"
	"github.com/liangyou/gorel/pkg/models"
)

func TestIntegrationSelectInstallListUninstall(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	opts := testOptions(t)
	opts.Version = "latest"
	opts.OS = "linux"
	opts.Arch = "amd64"

	catalog := models.NewCatalog()
	catalog.Add(testPackage("1.21.0"))
	catalog.Add(testPackage("1.20.5"))

	filter, err := NewFilter(opts)
	require.NoError(t, err)
	pkg, err := NewSelector(prompt.Scripted(io.Discard)).Select(ctx, catalog, filter)
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, "1.21.0", pkg.Version)

	archive := createGoArchive(t, map[string]string{
		"bin/go":    "binary",
		"bin/gofmt": "fmt",
	})
	exposer := NewExposer(nil, fakeAccess{}, nil, io.Discard, io.Discard, nil)
	installer := NewInstaller(&stubDownloader{archive: archive}, fakeAccess{}, exposer, nil, io.Discard, nil)

	installPath, err := installer.Install(ctx, *pkg, opts)
	require.NoError(t, err)

	versions, err := NewLister(exposer).ListInstalled(ctx, opts)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, installPath, versions[0].Path)
	assert.Equal(t, []string{"go", "gofmt"}, versions[0].Active)

	removed, err := NewUninstaller(fakeAccess{}, exposer, nil, io.Discard, nil).Uninstall(ctx, "1.21.0", opts)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = os.Stat(installPath)
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(opts.BinDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	versions, err = NewLister(exposer).ListInstalled(ctx, opts)
	require.NoError(t, err)
	assert.Empty(t, versions)
}
