package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// Override is an explicitly configured path. It is trusted as-is.
type Override struct {
	Path string
}

func (o *Override) Name() string { return "override" }

func (o *Override) Resolve(ctx context.Context) (string, error) {
	if o.Path == "" {
		return "", errors.New("no override configured")
	}
	return o.Path, nil
}

// Bundled is the copy shipped next to the service.
type Bundled struct {
	Path string
}

func (b *Bundled) Name() string { return "bundled" }

func (b *Bundled) Resolve(ctx context.Context) (string, error) {
	return usable(b.Path)
}

// Cached is the copy left in the scratch location by an earlier provisioning run.
type Cached struct {
	Path string
}

func (c *Cached) Name() string { return "cached" }

func (c *Cached) Resolve(ctx context.Context) (string, error) {
	return usable(c.Path)
}

// usable returns path when it names an executable regular file. A file
// lacking the execute bit is chmod'ed once, best effort.
func usable(path string) (string, error) {
	if path == "" {
		return "", errors.New("no path configured")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s is not a regular file", path)
	}

	if unix.Access(path, unix.X_OK) == nil {
		return path, nil
	}

	if err := os.Chmod(path, 0755); err != nil {
		return "", fmt.Errorf("not executable and chmod failed: %w", err)
	}
	slog.Info("marked extraction tool executable", slog.String("path", path))

	if err := unix.Access(path, unix.X_OK); err != nil {
		return "", fmt.Errorf("not executable: %w", err)
	}

	return path, nil
}
