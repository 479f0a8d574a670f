package updater

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mediahub-app/mediahub/server/config"
)

type staticLocator string

func (s staticLocator) Locate(context.Context) (string, error) { return string(s), nil }

func writeTool(t *testing.T, body string) string {
	t.Helper()

	tool := filepath.Join(t.TempDir(), "yt-dlp")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return tool
}

func TestUpdateExecutable(t *testing.T) {
	tool := writeTool(t, `[ "$1" = "-U" ] || exit 9; echo "yt-dlp is up to date"`)

	report, err := UpdateExecutable(context.Background(), staticLocator(tool))
	if err != nil {
		t.Fatal(err)
	}
	if report != "yt-dlp is up to date" {
		t.Fatalf("report = %q", report)
	}
}

func TestUpdateExecutableFailure(t *testing.T) {
	tool := writeTool(t, `echo "ERROR: unable to write" >&2; exit 100`)

	report, err := UpdateExecutable(context.Background(), staticLocator(tool))
	if err == nil || !strings.Contains(err.Error(), "100") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(report, "unable to write") {
		t.Fatalf("report = %q", report)
	}
}

func TestLocateAndUpdateFromConfig(t *testing.T) {
	tool := writeTool(t, `echo "updated"`)

	c := config.Default()
	c.Paths.DownloaderPath = tool

	path, err := Locate(context.Background(), c)
	if err != nil || path != tool {
		t.Fatalf("Locate() = %q, %v", path, err)
	}

	report, err := Update(context.Background(), c)
	if err != nil || report != "updated" {
		t.Fatalf("Update() = %q, %v", report, err)
	}
}
