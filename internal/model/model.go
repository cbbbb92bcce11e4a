// Package model holds the shared domain types for the bot.
package model

// Kind selects the media kind a user asked for.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// FormatBest is the sentinel selector meaning "let the resolver choose".
// It is distinct from every real yt-dlp format id.
const FormatBest = "best"

// SearchResultItem is one candidate returned by a search.
type SearchResultItem struct {
	ID       string
	Title    string
	Channel  string
	Duration string
}

// VideoFormat mirrors the fields of a yt-dlp format entry we care about.
// FormatID is opaque to this system and passed back to the transcoder.
type VideoFormat struct {
	FormatID   string  `json:"format_id"`
	Height     int     `json:"height"`
	Width      int     `json:"width"`
	VCodec     string  `json:"vcodec"`
	ACodec     string  `json:"acodec"`
	Filesize   int64   `json:"filesize"`
	FormatNote string  `json:"format_note"`
	Ext        string  `json:"ext"`
	TBR        float64 `json:"tbr"`
}

// Session is the per-user record of an in-progress selection flow.
// It lives in process memory only; any step that finds a required field
// missing treats the flow as expired rather than failing hard.
type Session struct {
	SearchResults      []SearchResultItem
	LastSearchQuery    string
	SelectedVideoID    string
	SelectedVideoTitle string
	VideoFormats       []VideoFormat
}

// ClearSelection drops the selected video and its format list while keeping
// the search results, so a stale quality button cannot replay a download.
func (s *Session) ClearSelection() {
	s.SelectedVideoID = ""
	s.SelectedVideoTitle = ""
	s.VideoFormats = nil
}
