package rest

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mediahub-app/mediahub/server/internal/kv"
	"github.com/mediahub-app/mediahub/server/internal/metadata"
	"github.com/mediahub-app/mediahub/server/internal/process"
	"github.com/mediahub-app/mediahub/server/internal/stream"
)

// Version of the mediahub server.
const Version = "1.0.0"

type Service struct {
	locator metadata.Locator
	fetcher *metadata.Fetcher
	streams *stream.Orchestrator
	running *kv.Store
}

func NewService(
	l metadata.Locator,
	f *metadata.Fetcher,
	o *stream.Orchestrator,
	running *kv.Store,
) *Service {
	o.Track(running)

	return &Service{
		locator: l,
		fetcher: f,
		streams: o,
		running: running,
	}
}

func (s *Service) Info(ctx context.Context, url string, postProcessing bool) (*metadata.MediaMetadata, error) {
	return s.fetcher.Fetch(ctx, url, postProcessing)
}

func (s *Service) Download(ctx context.Context, req stream.MediaRequest, postProcessing bool) (*stream.Stream, error) {
	return s.streams.Open(ctx, req, postProcessing)
}

func (s *Service) Running() []kv.Snapshot {
	return s.running.All()
}

// Stream returns the snapshot of a single in-flight download.
func (s *Service) Stream(id string) (kv.Snapshot, error) {
	e, err := s.running.Get(id)
	if err != nil {
		return kv.Snapshot{}, err
	}
	return e.Snapshot(), nil
}

func (s *Service) ActiveStreams() int {
	return s.running.Len()
}

// ToolVersion resolves the extraction tool and asks for its version.
func (s *Service) ToolVersion(ctx context.Context) (path, version string, err error) {
	path, err = s.locator.Locate(ctx)
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	out, err := process.CommandContext(ctx, path, "--version").Output()
	if ctx.Err() != nil {
		return path, "", errors.New("requesting yt-dlp version took too long")
	}
	if err != nil {
		return path, "", err
	}

	return path, strings.TrimSpace(string(out)), nil
}
