package process

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Grace period granted to the extraction tool to release its output pipes
// once it has exited or been signalled.
const waitDelay = time.Second * 5

// Command prepares the extraction tool to run in its own process group so
// that it and every child it spawns (ffmpeg for merging/transcoding) can be
// signalled at once.
func Command(path string, args ...string) *exec.Cmd {
	cmd := exec.Command(path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay
	return cmd
}

// CommandContext is like Command but signals the process group when ctx is
// done before the tool exits.
func CommandContext(ctx context.Context, path string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitDelay
	cmd.Cancel = func() error {
		return KillGroup(cmd.Process)
	}
	return cmd
}

// KillGroup sends SIGTERM to the whole process group of p.
// A group that has already gone away is not an error.
func KillGroup(p *os.Process) error {
	return signalGroup(p, unix.SIGTERM)
}

// ForceKillGroup is KillGroup with SIGKILL, for tools that ignore SIGTERM.
func ForceKillGroup(p *os.Process) error {
	return signalGroup(p, unix.SIGKILL)
}

func signalGroup(p *os.Process, sig unix.Signal) error {
	if p == nil {
		return errors.New("*os.Process not set")
	}

	pgid, err := unix.Getpgid(p.Pid)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := unix.Kill(-pgid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}

	return nil
}

// LogLines writes every line read from r to the log as a diagnostic of the
// extraction tool. It returns when r is exhausted.
func LogLines(r io.Reader, id, url string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		slog.Debug("yt-dlp stderr",
			slog.String("id", id),
			slog.String("url", url),
			slog.String("line", scanner.Text()),
		)
	}
}

// ExitCode extracts the exit status from an error returned by Wait.
func ExitCode(err error) (int, bool) {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), true
	}
	return 0, false
}
