package logging

import (
	"strings"
)

type publisher interface {
	PublishLog(line string)
}

// ObservableLogger republishes every log line written to it, so that the
// web ui can follow the server log live.
type ObservableLogger struct {
	p publisher
}

func NewObservableLogger(p publisher) *ObservableLogger {
	return &ObservableLogger{p: p}
}

func (o *ObservableLogger) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			o.p.PublishLog(line)
		}
	}
	return len(p), nil
}
