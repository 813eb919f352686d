package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/liangyou/gorel/pkg/models"
)

func TestNormalizeArch(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"x86_64":  "amd64",
		"AARCH64": "arm64",
		"i686":    "386",
		"amd64":   "amd64",
		"s390x":   "s390x",
	}
	for in, want := range cases {
		if got := NormalizeArch(in); got != want {
			t.Fatalf("NormalizeArch(%q)=%q want %q", in, got, want)
		}
	}
}

func TestCheckerArchPrefersKernel(t *testing.T) {
	t.Parallel()

	checker := NewChecker()
	checker.kernelArch = func(context.Context) (string, error) { return "x86_64", nil }
	checker.goarch = func() string { return "386" }

	if got := checker.Arch(context.Background()); got != "amd64" {
		t.Fatalf("expected amd64, got %s", got)
	}
}

func TestCheckerArchFallsBackToRuntime(t *testing.T) {
	t.Parallel()

	checker := NewChecker()
	checker.kernelArch = func(context.Context) (string, error) { return "", errors.New("no uname") }
	checker.goarch = func() string { return "arm64" }

	if got := checker.Arch(context.Background()); got != "arm64" {
		t.Fatalf("expected arm64, got %s", got)
	}
}

func TestCheckerElevated(t *testing.T) {
	t.Parallel()

	checker := NewChecker()
	checker.euid = func() int { return 0 }
	if !checker.Elevated() {
		t.Fatal("expected uid 0 to be elevated")
	}
	checker.euid = func() int { return 1000 }
	if checker.Elevated() {
		t.Fatal("expected uid 1000 to be unelevated")
	}
}

func TestCheckerCanWrite(t *testing.T) {
	t.Parallel()

	temp := t.TempDir()
	checker := NewChecker()
	if err := checker.CanWrite(temp); err != nil {
		t.Fatalf("expected writable temp dir, got %v", err)
	}

	checker.access = func(string, uint32) error { return os.ErrPermission }
	err := checker.CanReadWrite(temp)
	if !errors.Is(err, models.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestCheckerRejectsFile(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(filePath, []byte("content"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	if err := NewChecker().CanWrite(filePath); err == nil {
		t.Fatal("expected error for non-directory")
	}
	if err := NewChecker().CanWrite(filepath.Join(filePath, "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
