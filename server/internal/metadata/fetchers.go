package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mediahub-app/mediahub/server/internal/process"
)

var ErrExtractionFailed = errors.New("extraction failed")

type Locator interface {
	Locate(ctx context.Context) (string, error)
}

type Fetcher struct {
	locator  Locator
	timeout  time.Duration
	maxBytes int64
}

func NewFetcher(l Locator, timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		locator:  l,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Fetch asks the extraction tool for a single item's info document and
// derives the display metadata from it. Either the full metadata or an
// error wrapping ErrExtractionFailed is returned.
func (f *Fetcher) Fetch(ctx context.Context, url string, postProcessing bool) (*MediaMetadata, error) {
	path, err := f.locator.Locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	slog.Info("retrieving metadata", slog.String("url", url))

	raw, err := f.dump(ctx, path, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	var i info
	if err := json.Unmarshal(raw, &i); err != nil {
		return nil, fmt.Errorf("%w: malformed info document: %w", ErrExtractionFailed, err)
	}

	return build(&i, postProcessing), nil
}

func (f *Fetcher) dump(ctx context.Context, path, url string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := process.CommandContext(ctx, path, "--dump-json", "--no-playlist", "--", url)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	// diagnostics are logged line by line, never buffered whole
	pr, pw := io.Pipe()
	cmd.Stderr = pw

	var logs errgroup.Group
	logs.Go(func() error {
		process.LogLines(pr, "metadata", url)
		_, err := io.Copy(io.Discard, pr)
		return err
	})

	if err := cmd.Start(); err != nil {
		pw.Close()
		logs.Wait()
		return nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	out, readErr := io.ReadAll(io.LimitReader(stdout, f.maxBytes+1))

	tooLarge := int64(len(out)) > f.maxBytes
	if tooLarge {
		if err := process.KillGroup(cmd.Process); err != nil {
			slog.Warn("failed killing yt-dlp", slog.String("url", url), slog.Any("err", err))
		}
	}

	waitErr := cmd.Wait()
	pw.Close()
	logs.Wait()

	switch {
	case tooLarge:
		return nil, fmt.Errorf("info document exceeds %d bytes", f.maxBytes)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("yt-dlp did not finish: %w", ctx.Err())
	case readErr != nil:
		return nil, readErr
	case waitErr != nil:
		if code, ok := process.ExitCode(waitErr); ok {
			slog.Error("yt-dlp metadata failed", slog.String("url", url), slog.Int("code", code))
			return nil, fmt.Errorf("yt-dlp exited with status %d", code)
		}
		return nil, waitErr
	}

	return out, nil
}

func build(i *info, postProcessing bool) *MediaMetadata {
	m := &MediaMetadata{
		Title:        "Unknown Title",
		Channel:      "Unknown",
		Views:        FormatViews(i.ViewCount),
		VideoFormats: BuildFormats(i.Formats, postProcessing),
	}

	if s := nonEmpty(i.Title); s != "" {
		m.Title = s
	}
	m.Thumbnail = nonEmpty(i.Thumbnail)

	if s := nonEmpty(i.Channel); s != "" {
		m.Channel = s
	} else if s := nonEmpty(i.Uploader); s != "" {
		m.Channel = s
	}

	var seconds float64
	if i.Duration != nil {
		seconds = *i.Duration
	}
	m.Duration = FormatDuration(seconds)

	return m
}

func nonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
