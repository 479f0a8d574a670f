package metadata

import (
	"fmt"
	"slices"
)

// Anything below this is thumbnail/storyboard noise.
const minHeight = 144

var heightLabels = map[int]string{
	2160: "4K",
	1440: "2K",
	1080: "1080p",
	720:  "720p",
	480:  "480p",
	360:  "360p",
	240:  "240p",
	144:  "144p",
}

// Label returns the display label for a vertical resolution.
func Label(height int) string {
	if l, ok := heightLabels[height]; ok {
		return l
	}
	return fmt.Sprintf("%dp", height)
}

// BuildFormats turns the tool's format list into one option per distinct
// height, highest first. The first entry the tool lists for a height wins.
// Without post-processing, video-only formats cannot be merged with an
// audio track and are dropped.
func BuildFormats(formats []rawFormat, postProcessing bool) []FormatOption {
	candidates := make([]rawFormat, 0, len(formats))

	for _, f := range formats {
		if height(f) < minHeight {
			continue
		}
		if codec(f.VCodec) == "none" {
			continue
		}
		if !postProcessing && !hasAudio(f) {
			continue
		}
		candidates = append(candidates, f)
	}

	slices.SortStableFunc(candidates, func(a, b rawFormat) int {
		return height(b) - height(a)
	})

	var (
		seen    = make(map[int]struct{})
		options = make([]FormatOption, 0, len(candidates))
	)

	for _, f := range candidates {
		h := height(f)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}

		ext := codec(f.Ext)
		if ext == "" {
			ext = "mp4"
		}

		options = append(options, FormatOption{
			FormatID:   f.FormatID,
			Label:      Label(h),
			Resolution: fmt.Sprintf("%dp", h),
			Ext:        ext,
			Filesize:   size(f),
		})
	}

	return options
}

func height(f rawFormat) int {
	if f.Height == nil {
		return 0
	}
	return int(*f.Height)
}

func codec(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// An absent acodec is treated as no audio: it cannot be relied upon.
func hasAudio(f rawFormat) bool {
	c := codec(f.ACodec)
	return c != "" && c != "none"
}

func size(f rawFormat) *uint64 {
	for _, v := range []*float64{f.Filesize, f.FilesizeApprox} {
		if v != nil && *v > 0 {
			s := uint64(*v)
			return &s
		}
	}
	return nil
}
