// Package budget orchestrates download plus repeated re-encoding until the
// produced file fits under a fixed upload size ceiling.
package budget

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tubebot/internal/log"
	"tubebot/internal/model"
	"tubebot/internal/probe"
	"tubebot/internal/transcode"
	"tubebot/internal/util"
)

// DefaultMaxSizeMB is one unit below Telegram's 50 MB bot upload cap.
const DefaultMaxSizeMB = 49

// audioLadder is the fixed descending bitrate ladder, one pass per rung.
var audioLadder = []int{64, 48, 32}

// videoRung is one video re-encode pass. ScaleHeight 0 keeps the resolution.
type videoRung struct {
	CRF         int
	ScaleHeight int
}

// videoLadder tightens the rate control first and only downscales at the
// floor, where parameter tightening alone is assumed insufficient.
var videoLadder = []videoRung{
	{CRF: 28},
	{CRF: 32},
	{CRF: 35, ScaleHeight: 480},
}

// initialAudioKbps is the moderate first-pass target; most tracks fit the
// budget without any compression pass.
const initialAudioKbps = 128

// maxSourceHeight bounds the source format picked for "best" video fetches.
const maxSourceHeight = 720

// Request identifies one download job.
type Request struct {
	MediaID   string
	Kind      model.Kind
	FormatID  string // video only; empty or model.FormatBest lets yt-dlp pick
	RequestID string // unique job key; generated when empty
}

// Result describes a produced file that satisfies the size budget.
type Result struct {
	FilePath string
	Title    string
	Bytes    int64
	Passes   int // compression passes beyond the initial fetch
}

// Downloader is the pipeline contract consumed by the flow controller.
type Downloader interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// Pipeline implements Downloader with yt-dlp and ffmpeg adapters.
type Pipeline struct {
	prober      probe.Prober
	trans       transcode.Transcoder
	dir         string
	budgetBytes int64
	logger      zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProber sets the metadata resolver.
func WithProber(p probe.Prober) Option {
	return func(pl *Pipeline) { pl.prober = p }
}

// WithTranscoder sets the fetch/re-encode backend.
func WithTranscoder(t transcode.Transcoder) Option {
	return func(pl *Pipeline) { pl.trans = t }
}

// WithDownloadsDir sets the directory produced files land in.
func WithDownloadsDir(dir string) Option {
	return func(pl *Pipeline) { pl.dir = dir }
}

// WithMaxSizeMB overrides the default size ceiling.
func WithMaxSizeMB(mb int) Option {
	return func(pl *Pipeline) {
		if mb > 0 {
			pl.budgetBytes = int64(mb) * 1024 * 1024
		}
	}
}

// New constructs a Pipeline with the provided options.
func New(opts ...Option) *Pipeline {
	pl := &Pipeline{
		budgetBytes: int64(DefaultMaxSizeMB) * 1024 * 1024,
		logger:      log.WithComponent("budget"),
	}
	for _, o := range opts {
		o(pl)
	}
	return pl
}

// Run produces a local media file for req that fits the size budget, walking
// the re-encode ladder when needed. The ladder is finite; exhausting it is a
// terminal ErrSizeExceeded, never a silently oversized file.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := util.EnsureDir(p.dir); err != nil {
		return Result{}, fmt.Errorf("downloads dir: %w", err)
	}

	title := p.prober.Title(ctx, req.MediaID)
	path := p.outputPath(req, title)

	spec := transcode.FetchSpec{
		Kind:             req.Kind,
		OutputPath:       path,
		AudioBitrateKbps: initialAudioKbps,
		FormatSelector:   req.FormatID,
		MaxSourceHeight:  maxSourceHeight,
	}
	if err := p.trans.Fetch(ctx, req.MediaID, spec); err != nil {
		_ = util.RemoveIfExists(path)
		if errors.Is(err, transcode.ErrNoOutput) {
			return Result{}, fmt.Errorf("%w: %w", ErrEncode, err)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrResolve, err)
	}

	res, err := p.fitToBudget(ctx, req.Kind, path)
	if err != nil {
		return Result{}, err
	}
	res.Title = title
	return res, nil
}

// fitToBudget measures the file and walks the ladder. Exactly at the budget
// passes; only strictly-greater triggers another rung.
func (p *Pipeline) fitToBudget(ctx context.Context, kind model.Kind, path string) (Result, error) {
	size := util.FileSize(path)
	passes := 0

	rungs := len(audioLadder)
	if kind == model.KindVideo {
		rungs = len(videoLadder)
	}

	for i := 0; i < rungs && size > p.budgetBytes; i++ {
		spec := transcode.RecompressSpec{Kind: kind}
		if kind == model.KindAudio {
			spec.AudioBitrateKbps = audioLadder[i]
		} else {
			spec.CRF = videoLadder[i].CRF
			spec.ScaleHeight = videoLadder[i].ScaleHeight
		}

		p.logger.Info().
			Str("path", filepath.Base(path)).
			Int64("bytes", size).
			Int("rung", i+1).
			Msg("over budget, re-encoding")

		path = p.trans.Recompress(ctx, path, spec)
		size = util.FileSize(path)
		passes++
	}

	if size > p.budgetBytes {
		_ = util.RemoveIfExists(path)
		return Result{}, fmt.Errorf("%w: %d bytes after %d passes", ErrSizeExceeded, size, passes)
	}
	return Result{FilePath: path, Bytes: size, Passes: passes}, nil
}

// outputPath keys the filename by the request id so two users downloading the
// same title never collide in the shared downloads directory.
func (p *Pipeline) outputPath(req Request, title string) string {
	base := util.SanitizeFilename(title)
	if base == "" {
		base = "video-" + req.MediaID
	}
	ext := ".mp4"
	if req.Kind == model.KindAudio {
		ext = ".mp3"
	}
	key := req.RequestID
	if len(key) > 8 {
		key = key[:8]
	}
	return filepath.Join(p.dir, key+"-"+base+ext)
}
