package metadata

// FormatOption is one downloadable video rendition, at most one per height.
type FormatOption struct {
	FormatID   string  `json:"formatId"`
	Label      string  `json:"label"`
	Resolution string  `json:"resolution"`
	Ext        string  `json:"ext"`
	Filesize   *uint64 `json:"filesize"`
}

// MediaMetadata is rebuilt on every request and never cached.
type MediaMetadata struct {
	Title        string         `json:"title"`
	Thumbnail    string         `json:"thumbnail"`
	Duration     string         `json:"duration"`
	Channel      string         `json:"channel"`
	Views        string         `json:"views"`
	VideoFormats []FormatOption `json:"videoFormats"`
}

// info is the subset of the yt-dlp --dump-json document we rely on.
// Every field is optional.
type info struct {
	Title     *string     `json:"title"`
	Thumbnail *string     `json:"thumbnail"`
	Duration  *float64    `json:"duration"`
	Channel   *string     `json:"channel"`
	Uploader  *string     `json:"uploader"`
	ViewCount *float64    `json:"view_count"`
	Formats   []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID       string   `json:"format_id"`
	Height         *float64 `json:"height"`
	VCodec         *string  `json:"vcodec"`
	ACodec         *string  `json:"acodec"`
	Ext            *string  `json:"ext"`
	Filesize       *float64 `json:"filesize"`
	FilesizeApprox *float64 `json:"filesize_approx"`
}
