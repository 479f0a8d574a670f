package updater

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/internal/locator"
	"github.com/mediahub-app/mediahub/server/internal/metadata"
	"github.com/mediahub-app/mediahub/server/internal/process"
)

// Locate resolves yt-dlp through the configured lookup chain, downloading
// it when no usable copy exists yet.
func Locate(ctx context.Context, c *config.Config) (string, error) {
	return locator.FromConfig(c).Locate(ctx)
}

// Update self updates the yt-dlp found by the configured lookup chain.
func Update(ctx context.Context, c *config.Config) (string, error) {
	return UpdateExecutable(ctx, locator.FromConfig(c))
}

// UpdateExecutable runs the builtin self update of yt-dlp and returns
// what it reported.
func UpdateExecutable(ctx context.Context, l metadata.Locator) (string, error) {
	path, err := l.Locate(ctx)
	if err != nil {
		return "", err
	}

	slog.Info("updating yt-dlp", slog.String("path", path))

	out, err := process.CommandContext(ctx, path, "-U").CombinedOutput()
	report := strings.TrimSpace(string(out))

	if err != nil {
		if code, ok := process.ExitCode(err); ok {
			return report, fmt.Errorf("yt-dlp update exited with status %d", code)
		}
		return report, err
	}

	return report, nil
}
