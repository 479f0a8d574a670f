package stream

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mediahub-app/mediahub/server/events"
	"github.com/mediahub-app/mediahub/server/internal/kv"
)

type staticLocator string

func (s staticLocator) Locate(context.Context) (string, error) { return string(s), nil }

type failingLocator struct{}

func (failingLocator) Locate(context.Context) (string, error) {
	return "", errors.New("tool unavailable")
}

type recorder struct {
	mu     sync.Mutex
	events []events.StreamEvent
}

func (r *recorder) PublishStream(e events.StreamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s []string
	for _, e := range r.events {
		s = append(s, e.State)
	}
	return s
}

func stubTool(t *testing.T, body string) (tool, argsFile string) {
	t.Helper()

	dir := t.TempDir()
	tool = filepath.Join(dir, "yt-dlp")
	argsFile = filepath.Join(dir, "args")

	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > " + argsFile + "\n" + body + "\n"
	if err := os.WriteFile(tool, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return tool, argsFile
}

func readArgs(t *testing.T, argsFile string) []string {
	t.Helper()

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestOpenStreamsToolOutput(t *testing.T) {
	tool, argsFile := stubTool(t, "printf 'ID3'; printf 'payload'; echo 'progress' >&2")

	rec := &recorder{}
	o := NewOrchestrator(staticLocator(tool), time.Minute, rec)

	req, err := NewMediaRequest("https://youtu.be/abc", Audio, "", Tier320)
	if err != nil {
		t.Fatal(err)
	}

	s, err := o.Open(context.Background(), req, true)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.ContentType != "audio/mpeg" || s.Filename != "audio.mp3" {
		t.Fatalf("unexpected framing %q %q", s.ContentType, s.Filename)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "ID3payload" {
		t.Fatalf("got %q", buf.String())
	}

	args := strings.Join(readArgs(t, argsFile), " ")
	if !strings.Contains(args, "--audio-quality 320K") || !strings.HasSuffix(args, "-- https://youtu.be/abc") {
		t.Fatalf("unexpected args %q", args)
	}

	if got := rec.states(); len(got) != 2 || got[0] != events.StateStarted || got[1] != events.StateCompleted {
		t.Fatalf("unexpected events %v", got)
	}
	if rec.events[1].Bytes != 10 {
		t.Fatalf("completed event reports %d bytes", rec.events[1].Bytes)
	}
}

func TestOpenFailingToolAfterOutput(t *testing.T) {
	tool, _ := stubTool(t, "printf 'partial'; exit 2")

	rec := &recorder{}
	o := NewOrchestrator(staticLocator(tool), time.Minute, rec)
	req, _ := NewMediaRequest("https://youtu.be/abc", Video, "", "")

	s, err := o.Open(context.Background(), req, false)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	_, err = s.WriteTo(&buf)
	if !errors.Is(err, ErrStreamAborted) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "status 2") {
		t.Fatalf("err = %v", err)
	}
	if buf.String() != "partial" {
		t.Fatalf("got %q", buf.String())
	}

	got := rec.states()
	if got[len(got)-1] != events.StateAborted {
		t.Fatalf("unexpected events %v", got)
	}
}

// cancelingWriter cancels the request context as soon as the first chunk
// arrives, as a client hanging up would.
type cancelingWriter struct {
	cancel context.CancelFunc
	buf    bytes.Buffer
}

func (w *cancelingWriter) Write(p []byte) (int, error) {
	w.cancel()
	return w.buf.Write(p)
}

func TestClientDisconnectTerminatesTool(t *testing.T) {
	tool, _ := stubTool(t, "printf 'first'; sleep 30; printf 'never'")

	o := NewOrchestrator(staticLocator(tool), time.Minute, nil)
	req, _ := NewMediaRequest("https://youtu.be/abc", Video, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := o.Open(ctx, req, false)
	if err != nil {
		t.Fatal(err)
	}

	w := &cancelingWriter{cancel: cancel}

	done := make(chan error, 1)
	go func() {
		_, err := s.WriteTo(w)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(time.Second * 10):
		t.Fatal("stream still running after the client went away")
	}

	if strings.Contains(w.buf.String(), "never") {
		t.Fatal("output written after cancellation")
	}
	if s.current() != stateClosed {
		t.Fatalf("state = %s", s.current())
	}
}

func TestStubbornToolIsKilled(t *testing.T) {
	// an ignored signal stays ignored in the children as well
	tool, _ := stubTool(t, "trap '' TERM; printf 'x'; sleep 30")

	o := NewOrchestrator(staticLocator(tool), time.Minute, nil)
	o.killGrace = time.Millisecond * 200

	req, _ := NewMediaRequest("https://youtu.be/abc", Video, "", "")

	s, err := o.Open(context.Background(), req, false)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Cancel()
		s.Close()
	}()

	select {
	case <-done:
	case <-time.After(time.Second * 10):
		t.Fatal("tool ignoring SIGTERM was never killed")
	}
}

func TestStreamTimeout(t *testing.T) {
	tool, _ := stubTool(t, "sleep 30")

	o := NewOrchestrator(staticLocator(tool), time.Millisecond*200, nil)
	req, _ := NewMediaRequest("https://youtu.be/abc", Video, "", "")

	s, err := o.Open(context.Background(), req, false)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err = s.WriteTo(&bytes.Buffer{})
	if !errors.Is(err, ErrStreamAborted) {
		t.Fatalf("err = %v", err)
	}
	if time.Since(start) > time.Second*10 {
		t.Fatal("timeout did not terminate the tool")
	}
}

func TestOpenWithoutTool(t *testing.T) {
	o := NewOrchestrator(failingLocator{}, time.Minute, nil)
	req, _ := NewMediaRequest("https://youtu.be/abc", Video, "", "")

	if _, err := o.Open(context.Background(), req, false); err == nil {
		t.Fatal("expected an error")
	}
}

func TestOpenStreamsAreTracked(t *testing.T) {
	tool, _ := stubTool(t, "printf 'x'; sleep 30")

	store := kv.NewStore()
	o := NewOrchestrator(staticLocator(tool), time.Minute, nil)
	o.Track(store)

	req, _ := NewMediaRequest("https://youtu.be/abc", Audio, "", "")

	s, err := o.Open(context.Background(), req, false)
	if err != nil {
		t.Fatal(err)
	}

	all := store.All()
	if len(all) != 1 || all[0].ID != s.ID || all[0].URL != req.SourceURL || all[0].Kind != "audio" || all[0].State != "open" {
		t.Fatalf("unexpected snapshots %+v", all)
	}

	s.Close()

	if store.Len() != 0 {
		t.Fatalf("closed stream still tracked: %+v", store.All())
	}
}
