package stream

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Kind string

const (
	Video Kind = "video"
	Audio Kind = "audio"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Video, Audio:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

type AudioTier string

const (
	TierBest AudioTier = "best"
	Tier320  AudioTier = "320"
	Tier192  AudioTier = "192"
	Tier128  AudioTier = "128"
)

// TierOption describes an entry of the fixed audio quality list offered to
// clients; audio choices are never derived from the media's metadata.
type TierOption struct {
	ID       AudioTier `json:"id"`
	Label    string    `json:"label"`
	Sublabel string    `json:"sublabel"`
}

var Tiers = []TierOption{
	{TierBest, "Best Quality", "MP3 · VBR"},
	{Tier320, "320 kbps", "MP3 · High"},
	{Tier192, "192 kbps", "MP3 · Medium"},
	{Tier128, "128 kbps", "MP3 · Low"},
}

// ParseAudioTier falls back to TierBest for anything it does not know.
func ParseAudioTier(s string) AudioTier {
	switch t := AudioTier(s); t {
	case TierBest, Tier320, Tier192, Tier128:
		return t
	}
	return TierBest
}

// yt-dlp format ids are short tokens such as "137", "hls-1080p" or "dash-video=3000".
var formatIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.=-]{0,63}$`)

var (
	ErrMissingURL    = errors.New("missing url")
	ErrInvalidFormat = errors.New("invalid format id")
)

// MediaRequest is what a client asked to download. It is never mutated
// once built.
type MediaRequest struct {
	SourceURL      string
	Kind           Kind
	FormatSelector string
	AudioTier      AudioTier
}

func NewMediaRequest(url string, kind Kind, formatSelector string, tier AudioTier) (MediaRequest, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return MediaRequest{}, ErrMissingURL
	}

	formatSelector = strings.TrimSpace(formatSelector)
	if formatSelector != "" && !formatIDPattern.MatchString(formatSelector) {
		return MediaRequest{}, fmt.Errorf("%w: %q", ErrInvalidFormat, formatSelector)
	}

	if tier == "" {
		tier = TierBest
	}

	return MediaRequest{
		SourceURL:      url,
		Kind:           kind,
		FormatSelector: formatSelector,
		AudioTier:      tier,
	}, nil
}
