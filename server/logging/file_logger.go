package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// RotableLogger is an append only log file that can be rotated while the
// server keeps writing to it.
type RotableLogger struct {
	path string

	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

func NewRotableLogger(path string) (*RotableLogger, error) {
	l := &RotableLogger{path: path, now: time.Now}

	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *RotableLogger) open() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}

	fd, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.file = fd
	return nil
}

func (l *RotableLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, os.ErrClosed
	}
	return l.file.Write(p)
}

// Rotate moves the current file aside, suffixed with the rotation time,
// and starts a new one. Empty files are left in place.
func (l *RotableLogger) Rotate() error {
	rotated, size, err := l.rotate()
	if err != nil || rotated == "" {
		return err
	}

	// logged once the lock is released, this logger may be one of the sinks
	slog.Info("rotated log file",
		slog.String("path", rotated),
		slog.String("size", humanize.Bytes(uint64(size))),
	)
	return nil
}

func (l *RotableLogger) rotate() (string, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return "", 0, os.ErrClosed
	}

	info, err := l.file.Stat()
	if err != nil {
		return "", 0, err
	}
	if info.Size() == 0 {
		return "", 0, nil
	}

	closeErr := l.file.Close()
	l.file = nil
	if closeErr != nil {
		return "", 0, errors.Join(closeErr, l.open())
	}

	// on failure keep appending to the current file
	rotated := fmt.Sprintf("%s.%s", l.path, l.now().Format("2006-01-02T15-04-05"))
	if err := os.Rename(l.path, rotated); err != nil {
		return "", 0, errors.Join(err, l.open())
	}

	if err := l.open(); err != nil {
		return "", 0, err
	}

	return rotated, info.Size(), nil
}

func (l *RotableLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
