package stream

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mediahub-app/mediahub/server/internal/kv"
)

var (
	ErrStreamAborted = errors.New("stream aborted")
	ErrCanceled      = errors.New("stream canceled")
)

const chunkSize = 32 * 1024

type state int32

const (
	stateOpen state = iota
	stateClosing
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateClosing:
		return "closing"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// Stream relays the standard output of one extraction tool process.
//
//	Open    -- chunk ----------------> Open
//	Open    -- upstream EOF ---------> Closing -> Closed (reaped)
//	Open    -- upstream error -------> Closing (terminated) -> Closed
//	Open    -- downstream cancel ----> Closing (terminated) -> Closed
//	Closing/Closed -- anything ------> no-op
type Stream struct {
	ID          string
	ContentType string
	Filename    string

	req       MediaRequest
	startedAt time.Time

	body io.Reader

	// kill terminates the process group, reap waits for the process and
	// releases everything tied to it.
	kill func() error
	reap func(terminated bool) error

	state      atomic.Int32
	terminated atomic.Bool
	written    atomic.Int64

	closeOnce sync.Once
	closeErr  error

	stopWatch func() bool
	onClose   func(s *Stream, err error)
}

func newStream(id string, body io.Reader, kill func() error, reap func(bool) error) *Stream {
	return &Stream{
		ID:        id,
		startedAt: time.Now(),
		body:      body,
		kill:      kill,
		reap:      reap,
	}
}

func (s *Stream) current() state { return state(s.state.Load()) }

func (s *Stream) transition(from, to state) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// Written reports how many bytes reached the writer so far.
func (s *Stream) Written() int64 { return s.written.Load() }

func (s *Stream) Snapshot() kv.Snapshot {
	n := s.Written()
	return kv.Snapshot{
		ID:        s.ID,
		URL:       s.req.SourceURL,
		Kind:      string(s.req.Kind),
		State:     s.current().String(),
		Bytes:     n,
		Size:      humanize.Bytes(uint64(n)),
		StartedAt: s.startedAt,
	}
}

// Cancel terminates the process. Only the first call while the stream is
// open has any effect.
func (s *Stream) Cancel() {
	if !s.transition(stateOpen, stateClosing) {
		return
	}

	s.terminated.Store(true)

	if err := s.kill(); err != nil {
		slog.Warn("failed killing yt-dlp", slog.String("id", s.ID), slog.Any("err", err))
	}
}

// WriteTo forwards the process output to w chunk by chunk, in order, as it
// arrives. Any failure after the first byte is reported as ErrStreamAborted.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	var (
		buf = make([]byte, chunkSize)
		n   int64
	)

	for {
		nr, rerr := s.body.Read(buf)

		if nr > 0 {
			if s.current() != stateOpen {
				return n, s.abort(ErrCanceled)
			}

			nw, werr := w.Write(buf[:nr])
			if nw > 0 {
				n += int64(nw)
				s.written.Add(int64(nw))
			}
			if werr == nil && nw < nr {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				s.Cancel()
				return n, s.abort(fmt.Errorf("%w: %w", ErrCanceled, werr))
			}
		}

		if rerr == io.EOF {
			return n, s.finish()
		}

		if rerr != nil {
			if s.current() != stateOpen {
				return n, s.abort(ErrCanceled)
			}
			s.Cancel()
			return n, s.abort(rerr)
		}
	}
}

func (s *Stream) finish() error {
	if !s.transition(stateOpen, stateClosing) {
		return s.abort(ErrCanceled)
	}

	if err := s.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamAborted, err)
	}
	return nil
}

func (s *Stream) abort(cause error) error {
	s.Close()
	return fmt.Errorf("%w: %w", ErrStreamAborted, cause)
}

// Close terminates the process if the stream is still open and waits for
// it. It is safe to call any number of times; later calls return the
// result of the first one.
func (s *Stream) Close() error {
	s.Cancel()

	s.closeOnce.Do(func() {
		s.closeErr = s.reap(s.terminated.Load())
		s.state.Store(int32(stateClosed))

		if s.stopWatch != nil {
			s.stopWatch()
		}
		if s.onClose != nil {
			s.onClose(s, s.closeErr)
		}
	})

	return s.closeErr
}
