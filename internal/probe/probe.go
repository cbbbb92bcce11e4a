// Package probe resolves YouTube metadata through the yt-dlp binary:
// keyword search, titles, and the list of downloadable formats.
package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tubebot/internal/log"
	"tubebot/internal/model"
	"tubebot/internal/util"
)

// Prober is the metadata contract consumed by the flow controller and the
// download pipeline.
type Prober interface {
	// Search returns up to limit candidate items. An empty slice is a valid,
	// non-error outcome.
	Search(ctx context.Context, query string, limit int) ([]model.SearchResultItem, error)
	// Title never fails; on any internal error it returns a synthetic
	// "video-<id>" fallback.
	Title(ctx context.Context, id string) string
	// Formats returns the video formats for id, or an empty slice on internal
	// failure (logged, not returned).
	Formats(ctx context.Context, id string) []model.VideoFormat
}

// YTDLP shells out to yt-dlp for all probe operations.
type YTDLP struct {
	binPath     string
	cookiesPath string
	runner      util.CmdRunner
	logger      zerolog.Logger
}

// Option configures a YTDLP probe.
type Option func(*YTDLP)

// WithCookies passes a Netscape-format cookies file to every yt-dlp call,
// which keeps metadata lookups working when YouTube demands a signed-in
// session. Empty disables it.
func WithCookies(path string) Option {
	return func(p *YTDLP) { p.cookiesPath = path }
}

// NewYTDLP constructs a probe around the given yt-dlp binary path.
func NewYTDLP(binPath string, runner util.CmdRunner, opts ...Option) *YTDLP {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	p := &YTDLP{
		binPath: binPath,
		runner:  runner,
		logger:  log.WithComponent("probe"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Search runs a yt-dlp flat-playlist keyword search and parses one JSON
// object per result line.
func (p *YTDLP) Search(ctx context.Context, query string, limit int) ([]model.SearchResultItem, error) {
	if limit <= 0 {
		limit = 10
	}
	args := []string{
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
	}
	args = p.withCommonArgs(args)
	args = append(args, fmt.Sprintf("ytsearch%d:%s", limit, query))
	res, err := p.runner.Run(ctx, util.CmdSpec{Path: p.binPath, Args: args})
	if err != nil && len(res.Stdout) == 0 {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	items := parseSearchLines(res.Stdout)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Title resolves the human-readable title for a video id.
func (p *YTDLP) Title(ctx context.Context, id string) string {
	info, err := p.dumpInfo(ctx, id)
	if err != nil || strings.TrimSpace(info.Title) == "" {
		p.logger.Warn().Err(err).Str("video_id", id).Msg("title lookup failed, using fallback")
		return "video-" + id
	}
	return info.Title
}

// Formats lists the downloadable formats carrying a video stream. Audio-only
// entries (height 0 or vcodec "none") are excluded.
func (p *YTDLP) Formats(ctx context.Context, id string) []model.VideoFormat {
	info, err := p.dumpInfo(ctx, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("video_id", id).Msg("format lookup failed")
		return nil
	}
	var out []model.VideoFormat
	for _, f := range info.Formats {
		if f.VCodec != "" && f.VCodec != "none" && f.Height > 0 {
			out = append(out, f)
		}
	}
	return out
}

func (p *YTDLP) dumpInfo(ctx context.Context, id string) (videoInfo, error) {
	args := []string{
		"--dump-single-json",
		"--no-warnings",
		"--skip-download",
	}
	args = p.withCommonArgs(args)
	args = append(args, WatchURL(id))
	res, err := p.runner.Run(ctx, util.CmdSpec{Path: p.binPath, Args: args})
	if err != nil && len(res.Stdout) == 0 {
		return videoInfo{}, fmt.Errorf("dump info %s: %w", id, err)
	}
	return parseVideoInfo(res.Stdout)
}

func (p *YTDLP) withCommonArgs(args []string) []string {
	if p.cookiesPath != "" {
		args = append(args, "--cookies", p.cookiesPath)
	}
	return args
}

// WatchURL builds the canonical watch URL for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
