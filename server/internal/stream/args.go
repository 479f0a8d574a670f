package stream

// Plan is the command line and response framing for one download.
type Plan struct {
	Args        []string
	ContentType string
	Filename    string
}

var audioQuality = map[AudioTier]string{
	TierBest: "0",
	Tier320:  "320K",
	Tier192:  "192K",
	Tier128:  "128K",
}

// BuildPlan derives the extraction tool arguments for req. Without
// post-processing nothing can be merged or transcoded, so the tool is asked
// for a single rendition as-is.
func BuildPlan(req MediaRequest, postProcessing bool) Plan {
	// single item only, media bytes on stdout
	args := []string{"--no-playlist", "-o", "-"}

	var p Plan

	switch req.Kind {
	case Audio:
		args = append(args, "-f", "bestaudio")
		if postProcessing {
			q, ok := audioQuality[req.AudioTier]
			if !ok {
				q = audioQuality[TierBest]
			}
			args = append(args,
				"-x",
				"--audio-format", "mp3",
				"--audio-quality", q,
			)
			p.ContentType, p.Filename = "audio/mpeg", "audio.mp3"
		} else {
			// the native codec is unknown until the tool picks a track
			p.ContentType, p.Filename = "audio/webm", "audio.webm"
		}

	default:
		if postProcessing {
			format := "bestvideo+bestaudio/best"
			if req.FormatSelector != "" {
				format = req.FormatSelector + "+bestaudio/best"
			}
			args = append(args, "-f", format, "--merge-output-format", "mp4")
		} else {
			format := "best"
			if req.FormatSelector != "" {
				format = req.FormatSelector
			}
			args = append(args, "-f", format)
		}
		p.ContentType, p.Filename = "video/mp4", "video.mp4"
	}

	// the source url always goes last
	p.Args = append(args, "--", req.SourceURL)

	return p
}
