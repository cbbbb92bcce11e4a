// Package transcode fetches media with yt-dlp and re-encodes it with ffmpeg.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"tubebot/internal/log"
	"tubebot/internal/model"
	"tubebot/internal/probe"
	"tubebot/internal/util"
)

// ErrNoOutput marks a fetch that exited cleanly yet produced no usable file,
// which points at the encoding side rather than resolution.
var ErrNoOutput = errors.New("no output produced")

// FetchSpec describes the initial download of a media item.
type FetchSpec struct {
	Kind             model.Kind
	OutputPath       string
	AudioBitrateKbps int    // audio: initial target bitrate
	FormatSelector   string // video: yt-dlp format id, or model.FormatBest
	MaxSourceHeight  int    // video: resolution ceiling applied to "best"
}

// RecompressSpec describes one re-encode pass over an existing local file.
type RecompressSpec struct {
	Kind             model.Kind
	AudioBitrateKbps int // audio rung
	CRF              int // video rung; higher = smaller
	ScaleHeight      int // video: downscale to this height; 0 keeps resolution
}

// Transcoder is the encoding contract consumed by the download pipeline.
type Transcoder interface {
	// Fetch downloads the media item to spec.OutputPath. The caller cleans up
	// any partial file on error.
	Fetch(ctx context.Context, id string, spec FetchSpec) error
	// Recompress re-encodes path in place at the given quality target and
	// returns the path. When ffmpeg fails or produces an empty output the
	// original file is left untouched and returned (logged, never an error).
	Recompress(ctx context.Context, path string, spec RecompressSpec) string
}

// Tool shells out to the yt-dlp and ffmpeg binaries.
type Tool struct {
	dlPath      string
	ffmpegPath  string
	cookiesPath string
	runner      util.CmdRunner
	logger      zerolog.Logger
}

// Option configures a Tool.
type Option func(*Tool)

// WithCookies passes a Netscape-format cookies file to every yt-dlp fetch.
// Empty disables it.
func WithCookies(path string) Option {
	return func(t *Tool) { t.cookiesPath = path }
}

// NewTool constructs a Transcoder around the given binary paths.
func NewTool(dlPath, ffmpegPath string, runner util.CmdRunner, opts ...Option) *Tool {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	t := &Tool{
		dlPath:     dlPath,
		ffmpegPath: ffmpegPath,
		runner:     runner,
		logger:     log.WithComponent("transcode"),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fetch downloads one media item via yt-dlp.
func (t *Tool) Fetch(ctx context.Context, id string, spec FetchSpec) error {
	args := buildFetchArgs(id, spec)
	if t.cookiesPath != "" {
		args = append([]string{"--cookies", t.cookiesPath}, args...)
	}
	if _, err := t.runner.Run(ctx, util.CmdSpec{Path: t.dlPath, Args: args}); err != nil {
		return fmt.Errorf("yt-dlp fetch %s: %w", id, err)
	}
	if !util.NonEmptyFile(spec.OutputPath) {
		return fmt.Errorf("yt-dlp fetch %s: %w", id, ErrNoOutput)
	}
	return nil
}

// Recompress runs one ffmpeg pass, replacing path with the smaller output.
// The original file survives any failure.
func (t *Tool) Recompress(ctx context.Context, path string, spec RecompressSpec) string {
	tmp := path + ".recode" + outputExt(spec.Kind)
	args := buildRecompressArgs(path, tmp, spec)

	if _, err := t.runner.Run(ctx, util.CmdSpec{Path: t.ffmpegPath, Args: args}); err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("recompress failed, keeping previous file")
		_ = util.RemoveIfExists(tmp)
		return path
	}
	if !util.NonEmptyFile(tmp) {
		t.logger.Warn().Str("path", path).Msg("recompress produced empty output, keeping previous file")
		_ = util.RemoveIfExists(tmp)
		return path
	}
	if err := os.Remove(path); err != nil {
		t.logger.Warn().Err(err).Str("path", path).Msg("could not drop previous file")
		_ = util.RemoveIfExists(tmp)
		return path
	}
	if err := os.Rename(tmp, path); err != nil {
		// Previous file already gone; the recoded one is all we have.
		t.logger.Error().Err(err).Str("path", path).Msg("rename after recompress failed")
		return tmp
	}
	return path
}

func buildFetchArgs(id string, spec FetchSpec) []string {
	args := []string{"--no-playlist", "--no-warnings"}
	switch spec.Kind {
	case model.KindAudio:
		kbps := spec.AudioBitrateKbps
		if kbps <= 0 {
			kbps = 128
		}
		args = append(args,
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", fmt.Sprintf("%dK", kbps),
		)
	default:
		args = append(args, "-f", videoFormatSelector(spec))
	}
	args = append(args, "-o", spec.OutputPath, probe.WatchURL(id))
	return args
}

// videoFormatSelector maps the "best" sentinel to a capped mp4-preferring
// selector; explicit format ids pass through untouched.
func videoFormatSelector(spec FetchSpec) string {
	if spec.FormatSelector != "" && spec.FormatSelector != model.FormatBest {
		return spec.FormatSelector
	}
	h := spec.MaxSourceHeight
	if h <= 0 {
		h = 720
	}
	return fmt.Sprintf("best[height<=%d][ext=mp4]/best[height<=%d]/best", h, h)
}

func buildRecompressArgs(in, out string, spec RecompressSpec) []string {
	if spec.Kind == model.KindAudio {
		return []string{
			"-y",
			"-i", in,
			"-vn",
			"-c:a", "libmp3lame",
			"-b:a", fmt.Sprintf("%dk", spec.AudioBitrateKbps),
			out,
		}
	}
	args := []string{
		"-y",
		"-i", in,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-crf", fmt.Sprintf("%d", spec.CRF),
	}
	if spec.ScaleHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", spec.ScaleHeight))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "96k",
		"-movflags", "+faststart",
		out,
	)
	return args
}

func outputExt(kind model.Kind) string {
	if kind == model.KindAudio {
		return ".mp3"
	}
	return ".mp4"
}
