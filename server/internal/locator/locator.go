package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mediahub-app/mediahub/server/config"
)

var ErrToolUnavailable = errors.New("extraction tool unavailable")

// Strategy is one way of obtaining a usable extraction tool path.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context) (string, error)
}

// Locator tries its strategies in order, the first success wins.
type Locator struct {
	strategies []Strategy
}

func New(strategies ...Strategy) *Locator {
	return &Locator{strategies: strategies}
}

// FromConfig builds the default resolution chain:
// override, bundled install, scratch copy, download into scratch.
func FromConfig(c *config.Config) *Locator {
	return New(
		&Override{Path: c.Paths.DownloaderPath},
		&Bundled{Path: c.Paths.BundledPath},
		&Cached{Path: c.Paths.ScratchPath},
		NewProvision(c.Provision.URL, c.Paths.ScratchPath, c.Provision.MaxRedirects, c.Provision.Timeout),
	)
}

func (l *Locator) Locate(ctx context.Context) (string, error) {
	var errs []error

	for _, s := range l.strategies {
		path, err := s.Resolve(ctx)
		if err == nil {
			slog.Debug("extraction tool located",
				slog.String("strategy", s.Name()),
				slog.String("path", path),
			)
			return path, nil
		}

		slog.Debug("strategy failed, continuing",
			slog.String("strategy", s.Name()),
			slog.Any("err", err),
		)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no strategy configured"))
	}

	return "", fmt.Errorf("%w: %w", ErrToolUnavailable, errors.Join(errs...))
}
