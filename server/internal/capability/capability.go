// Package capability reports whether the current deployment can run the
// extraction tool's post-processing step (ffmpeg merging/transcoding).
package capability

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type Mode string

const (
	Auto     Mode = "auto"
	Enabled  Mode = "enabled"
	Disabled Mode = "disabled"
)

// Policy is asked once per request; the answer steers format filtering and
// argument construction for that request only.
type Policy interface {
	HasPostProcessing() bool
}

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Auto:
		return Auto, nil
	case Enabled, "true", "on", "yes":
		return Enabled, nil
	case Disabled, "false", "off", "no":
		return Disabled, nil
	}
	return "", fmt.Errorf("unknown post-processing mode %q", s)
}

type Static bool

func (s Static) HasPostProcessing() bool { return bool(s) }

// Environment inspects the host every time it is asked, nothing is cached.
type Environment struct {
	Mode     Mode
	LookPath func(file string) (string, error)
	Getenv   func(key string) string
}

func New(mode Mode) *Environment {
	return &Environment{
		Mode:     mode,
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
	}
}

func (e *Environment) HasPostProcessing() bool {
	switch e.Mode {
	case Enabled:
		return true
	case Disabled:
		return false
	}

	// serverless targets ship without ffmpeg
	if e.Getenv("VERCEL") != "" {
		return false
	}

	_, err := e.LookPath("ffmpeg")
	return err == nil
}
