package metadata

import (
	"fmt"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestLabel(t *testing.T) {
	tests := map[int]string{
		2160: "4K",
		1440: "2K",
		1080: "1080p",
		720:  "720p",
		480:  "480p",
		360:  "360p",
		240:  "240p",
		144:  "144p",
		1920: "1920p",
		1600: "1600p",
		288:  "288p",
	}

	for h, want := range tests {
		if got := Label(h); got != want {
			t.Errorf("Label(%d) = %q, want %q", h, got, want)
		}
	}
}

func TestBuildFormats(t *testing.T) {
	formats := []rawFormat{
		{FormatID: "sb0", Height: ptr(90.0), VCodec: ptr("none"), ACodec: ptr("none")},
		{FormatID: "140", VCodec: ptr("none"), ACodec: ptr("mp4a")},
		{FormatID: "18", Height: ptr(360.0), VCodec: ptr("avc1"), ACodec: ptr("mp4a"), Ext: ptr("mp4")},
		{FormatID: "160", Height: ptr(144.0), VCodec: ptr("avc1"), ACodec: ptr("none")},
		{FormatID: "313", Height: ptr(2160.0), VCodec: ptr("vp9"), ACodec: ptr("none"), Ext: ptr("webm")},
		{FormatID: "22", Height: ptr(720.0), VCodec: ptr("avc1"), ACodec: ptr("mp4a"), FilesizeApprox: ptr(2048.0)},
		{FormatID: "136", Height: ptr(720.0), VCodec: ptr("avc1"), ACodec: ptr("none")},
		{FormatID: "hls", Height: ptr(480.0), VCodec: ptr("avc1")},
		{FormatID: "tiny", Height: ptr(100.0), VCodec: ptr("avc1"), ACodec: ptr("mp4a")},
	}

	tests := []struct {
		name           string
		postProcessing bool
		want           []string
	}{
		{"with post-processing", true, []string{"313", "22", "hls", "18", "160"}},
		{"without post-processing", false, []string{"22", "18"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFormats(formats, tt.postProcessing)

			ids := make([]string, 0, len(got))
			for _, f := range got {
				ids = append(ids, f.FormatID)
			}

			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Fatalf("BuildFormats() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestBuildFormatsInvariants(t *testing.T) {
	heights := []float64{360, 1080, 720, 1080, 144, 720, 2160, 360, 1440, 1080}

	formats := make([]rawFormat, 0, len(heights))
	for i, h := range heights {
		formats = append(formats, rawFormat{
			FormatID: fmt.Sprint(i),
			Height:   ptr(h),
			VCodec:   ptr("avc1"),
			ACodec:   ptr("mp4a"),
		})
	}

	got := BuildFormats(formats, false)

	seen := map[string]bool{}
	for i, f := range got {
		if seen[f.Resolution] {
			t.Fatalf("duplicate resolution %s", f.Resolution)
		}
		seen[f.Resolution] = true

		if i > 0 {
			var prev, cur int
			fmt.Sscanf(got[i-1].Resolution, "%dp", &prev)
			fmt.Sscanf(f.Resolution, "%dp", &cur)
			if cur >= prev {
				t.Fatalf("formats not sorted by descending height: %v", got)
			}
		}
	}

	// first listed entry wins for each height
	if got[2].FormatID != "1" || got[3].FormatID != "2" {
		t.Fatalf("dedup is not stable: %+v", got)
	}
	if got[0].Ext != "mp4" {
		t.Fatalf("missing ext should default to mp4, got %q", got[0].Ext)
	}
}

func TestBuildFormatsNeverIncludesSilentVideoWithoutPostProcessing(t *testing.T) {
	formats := []rawFormat{
		{FormatID: "a", Height: ptr(1080.0), VCodec: ptr("avc1"), ACodec: ptr("none")},
		{FormatID: "b", Height: ptr(720.0), VCodec: ptr("avc1")},
		{FormatID: "c", Height: ptr(480.0), VCodec: ptr("avc1"), ACodec: ptr("")},
	}

	if got := BuildFormats(formats, false); len(got) != 0 {
		t.Fatalf("expected no formats, got %+v", got)
	}
	if got := BuildFormats(formats, true); len(got) != 3 {
		t.Fatalf("expected all video-only formats, got %+v", got)
	}
}
