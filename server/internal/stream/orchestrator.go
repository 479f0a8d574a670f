package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mediahub-app/mediahub/server/events"
	"github.com/mediahub-app/mediahub/server/internal/kv"
	"github.com/mediahub-app/mediahub/server/internal/metadata"
	"github.com/mediahub-app/mediahub/server/internal/process"
)

// ErrExtractionFailed reports a tool that could not be launched.
var ErrExtractionFailed = metadata.ErrExtractionFailed

// How long a terminated tool may take to exit before the group is killed.
const defaultKillGrace = time.Second * 5

type Publisher interface {
	PublishStream(e events.StreamEvent)
}

// Registry keeps track of the streams in flight.
type Registry interface {
	Set(id string, e kv.Entry)
	Delete(id string)
}

type Orchestrator struct {
	locator   metadata.Locator
	timeout   time.Duration
	killGrace time.Duration
	events    Publisher
	registry  Registry
}

// NewOrchestrator returns an orchestrator whose streams are terminated
// once timeout elapses. A zero timeout leaves streams unbounded.
func NewOrchestrator(l metadata.Locator, timeout time.Duration, p Publisher) *Orchestrator {
	return &Orchestrator{
		locator:   l,
		timeout:   timeout,
		killGrace: defaultKillGrace,
		events:    p,
	}
}

// Track registers every opened stream in r until it is closed.
func (o *Orchestrator) Track(r Registry) {
	o.registry = r
}

// Open starts the extraction tool for req and returns the stream of its
// output. Failures returned here happen before any byte is produced; the
// returned stream is terminated as soon as ctx is done.
func (o *Orchestrator) Open(ctx context.Context, req MediaRequest, postProcessing bool) (*Stream, error) {
	path, err := o.locator.Locate(ctx)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(req, postProcessing)
	id := uuid.NewString()

	cmd := process.Command(path, plan.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	pr, pw := io.Pipe()
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return nil, fmt.Errorf("%w: failed to start yt-dlp: %w", ErrExtractionFailed, err)
	}

	slog.Info("started streaming",
		slog.String("id", id),
		slog.String("url", req.SourceURL),
		slog.String("kind", string(req.Kind)),
		slog.Int("pid", cmd.Process.Pid),
	)

	p := &proc{
		id:     id,
		cmd:    cmd,
		grace:  o.killGrace,
		stderr: pw,
	}
	p.logs.Go(func() error {
		process.LogLines(pr, id, req.SourceURL)
		// keep draining if the scanner gave up on an oversized line
		_, err := io.Copy(io.Discard, pr)
		return err
	})

	s := newStream(id, stdout, p.terminate, p.wait)
	s.req = req
	s.ContentType = plan.ContentType
	s.Filename = plan.Filename

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		stop := context.AfterFunc(ctx, s.Cancel)
		s.stopWatch = func() bool {
			defer cancel()
			return stop()
		}
	} else {
		s.stopWatch = context.AfterFunc(ctx, s.Cancel)
	}

	s.onClose = func(s *Stream, err error) {
		if o.registry != nil {
			o.registry.Delete(s.ID)
		}
		o.closed(s, req, err)
	}

	if o.registry != nil {
		o.registry.Set(id, s)
	}

	o.publish(events.StreamEvent{
		ID:    id,
		URL:   req.SourceURL,
		Kind:  string(req.Kind),
		State: events.StateStarted,
	})

	return s, nil
}

// proc is one running invocation of the extraction tool.
type proc struct {
	id     string
	cmd    *exec.Cmd
	grace  time.Duration
	stderr *io.PipeWriter
	logs   errgroup.Group

	mu       sync.Mutex
	escalate *time.Timer
	exited   bool
}

// terminate sends SIGTERM to the group and SIGKILL once the grace period
// is over without the tool having exited.
func (p *proc) terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited {
		return nil
	}

	if p.grace > 0 {
		p.escalate = time.AfterFunc(p.grace, func() {
			slog.Warn("yt-dlp ignored SIGTERM, killing", slog.String("id", p.id))
			if err := process.ForceKillGroup(p.cmd.Process); err != nil {
				slog.Warn("failed killing yt-dlp", slog.String("id", p.id), slog.Any("err", err))
			}
		})
	}

	return process.KillGroup(p.cmd.Process)
}

func (p *proc) wait(terminated bool) error {
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	if p.escalate != nil {
		p.escalate.Stop()
	}
	p.mu.Unlock()

	p.stderr.Close()
	p.logs.Wait()

	if waitErr == nil {
		return nil
	}
	if code, ok := process.ExitCode(waitErr); ok {
		if terminated {
			return fmt.Errorf("yt-dlp terminated with status %d", code)
		}
		return fmt.Errorf("yt-dlp exited with status %d", code)
	}
	return waitErr
}

func (o *Orchestrator) closed(s *Stream, req MediaRequest, err error) {
	e := events.StreamEvent{
		ID:    s.ID,
		URL:   req.SourceURL,
		Kind:  string(req.Kind),
		State: events.StateCompleted,
		Bytes: s.Written(),
		Size:  humanize.Bytes(uint64(s.Written())),
	}

	switch {
	case err != nil && !s.terminated.Load():
		e.State = events.StateAborted
		e.Error = err.Error()
	case s.terminated.Load():
		e.State = events.StateAborted
		e.Error = ErrCanceled.Error()
	}

	slog.Info("finished streaming",
		slog.String("id", s.ID),
		slog.String("url", req.SourceURL),
		slog.String("state", e.State),
		slog.String("size", e.Size),
	)

	o.publish(e)
}

func (o *Orchestrator) publish(e events.StreamEvent) {
	if o.events == nil {
		return
	}
	o.events.PublishStream(e)
}
