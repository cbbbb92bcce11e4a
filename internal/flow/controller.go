// Package flow drives a user's multi-step selection state machine:
// Idle → Searched → Selected → FormatChosen (→ QualityChosen) → Idle.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"tubebot/internal/budget"
	"tubebot/internal/log"
	"tubebot/internal/model"
	"tubebot/internal/probe"
	"tubebot/internal/session"
)

// Delivery hands a produced file to the transport layer for sending.
type Delivery struct {
	UserID   int64
	FilePath string
	Title    string
	Kind     model.Kind
	Label    string // quality label for video captions, e.g. "720p"
}

// Deliverer sends a produced file to the user and owns its cleanup.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// Notifier posts an interim status message to the user while a slow step is
// in flight.
type Notifier func(userID int64, text string)

// Controller validates and advances per-user sessions. Every transition
// re-validates the fields it depends on; a stale or replayed callback is
// treated as expired, never as a crash.
type Controller struct {
	sessions *session.Store[int64, model.Session]
	prober   probe.Prober
	pipeline budget.Downloader
	deliver  Deliverer
	notify   Notifier
	limit    int
	logger   zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithProber sets the metadata resolver.
func WithProber(p probe.Prober) Option {
	return func(c *Controller) { c.prober = p }
}

// WithPipeline sets the download pipeline.
func WithPipeline(d budget.Downloader) Option {
	return func(c *Controller) { c.pipeline = d }
}

// WithDeliverer sets the file delivery backend.
func WithDeliverer(d Deliverer) Option {
	return func(c *Controller) { c.deliver = d }
}

// WithNotifier sets the interim status sink.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

// WithResultLimit caps the number of search results offered.
func WithResultLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithSessions injects the backing session store.
func WithSessions(s *session.Store[int64, model.Session]) Option {
	return func(c *Controller) { c.sessions = s }
}

// New constructs a Controller with the provided options.
func New(opts ...Option) *Controller {
	c := &Controller{
		limit:  10,
		logger: log.WithComponent("flow"),
	}
	for _, o := range opts {
		o(c)
	}
	if c.sessions == nil {
		c.sessions = session.NewStore[int64, model.Session]()
	}
	if c.notify == nil {
		c.notify = func(int64, string) {}
	}
	return c
}

// StartFlow runs a search and moves the session from Idle to Searched.
func (c *Controller) StartFlow(ctx context.Context, userID int64, query string) Reply {
	results, err := c.prober.Search(ctx, query, c.limit)
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("search failed")
		return textReply(MsgSearchUnavailable)
	}
	if len(results) == 0 {
		return textReply(MsgNoResults)
	}
	if len(results) > c.limit {
		results = results[:c.limit]
	}

	c.sessions.Set(userID, model.Session{
		SearchResults:   results,
		LastSearchQuery: query,
	})

	buttons := make([][]Button, 0, len(results))
	for i, r := range results {
		buttons = append(buttons, []Button{{
			Label: fmt.Sprintf("%d. %s", i+1, trimTitle(r.Title)),
			Data:  SelectData(i),
		}})
	}
	return Reply{Text: MsgChooseResult, Buttons: buttons}
}

// SelectResult records the chosen item and offers the audio/video choice.
// Out-of-range indices leave the session untouched.
func (c *Controller) SelectResult(userID int64, index int) Reply {
	sess, ok := c.sessions.Get(userID)
	if !ok || len(sess.SearchResults) == 0 {
		return textReply(MsgSearchExpired)
	}
	if index < 0 || index >= len(sess.SearchResults) {
		return textReply(MsgInvalidSelection)
	}

	selected := sess.SearchResults[index]
	sess.SelectedVideoID = selected.ID
	sess.SelectedVideoTitle = selected.Title
	sess.VideoFormats = nil // formats are only meaningful for this selection
	c.sessions.Set(userID, sess)

	return Reply{
		Text: fmt.Sprintf("You selected: %s\n%s", selected.Title, MsgChooseFormat),
		Buttons: [][]Button{{
			{Label: "Audio (MP3)", Data: FormatData(model.KindAudio)},
			{Label: "Video (MP4)", Data: FormatData(model.KindVideo)},
		}},
		EditPrevious: true,
	}
}

// ChooseFormat branches on the media kind. Audio runs the terminal download
// immediately; video fetches the quality list first.
func (c *Controller) ChooseFormat(ctx context.Context, userID int64, kind model.Kind) Reply {
	sess, ok := c.sessions.Get(userID)
	if !ok || sess.SelectedVideoID == "" {
		c.sessions.Delete(userID)
		return textReply(MsgSelectionExpired)
	}

	if kind == model.KindAudio {
		c.notify(userID, fmt.Sprintf("Processing your request...\nGetting audio for: %s", sess.SelectedVideoTitle))
		return c.runDownload(ctx, userID, sess, model.KindAudio, model.FormatBest, "")
	}

	c.notify(userID, fmt.Sprintf("Getting available video qualities for: %s", sess.SelectedVideoTitle))
	formats := c.prober.Formats(ctx, sess.SelectedVideoID)
	if len(formats) == 0 {
		sess.ClearSelection()
		c.sessions.Set(userID, sess)
		return textReply(MsgNoFormats)
	}

	reps := GroupByHeight(formats)
	buttons := make([][]Button, 0, len(reps)+1)
	for _, f := range reps {
		label := fmt.Sprintf("%dp", f.Height)
		buttons = append(buttons, []Button{{Label: label, Data: QualityData(f.FormatID, label)}})
	}
	buttons = append(buttons, []Button{{
		Label: "Best Quality (Auto)",
		Data:  QualityData(model.FormatBest, "auto"),
	}})

	sess.VideoFormats = formats
	c.sessions.Set(userID, sess)
	return Reply{Text: MsgChooseQuality, Buttons: buttons, EditPrevious: true}
}

// ChooseQuality runs the terminal video download. Selection fields are
// cleared afterwards regardless of outcome, so a replayed button yields
// "selection expired" instead of a duplicate download.
func (c *Controller) ChooseQuality(ctx context.Context, userID int64, selector, label string) Reply {
	sess, ok := c.sessions.Get(userID)
	if !ok || sess.SelectedVideoID == "" {
		return textReply(MsgSelectionExpired)
	}
	c.notify(userID, fmt.Sprintf("Processing your request...\nDownloading %s video for: %s", label, sess.SelectedVideoTitle))
	return c.runDownload(ctx, userID, sess, model.KindVideo, selector, label)
}

// Cancel clears the session unconditionally.
func (c *Controller) Cancel(userID int64) Reply {
	c.sessions.Delete(userID)
	return textReply(MsgCanceled)
}

// Session exposes a copy of the user's session, mainly for tests and
// diagnostics.
func (c *Controller) Session(userID int64) (model.Session, bool) {
	return c.sessions.Get(userID)
}

// runDownload invokes the pipeline, hands the file to the deliverer, and
// resets the selection fields whatever the outcome.
func (c *Controller) runDownload(ctx context.Context, userID int64, sess model.Session, kind model.Kind, selector, label string) Reply {
	defer func() {
		cur, ok := c.sessions.Get(userID)
		if !ok {
			return
		}
		cur.ClearSelection()
		c.sessions.Set(userID, cur)
	}()

	res, err := c.pipeline.Run(ctx, budget.Request{
		MediaID:  sess.SelectedVideoID,
		Kind:     kind,
		FormatID: selector,
	})
	if err != nil {
		c.logger.Error().Err(err).
			Str("video_id", sess.SelectedVideoID).
			Str("kind", string(kind)).
			Msg("download pipeline failed")
		switch {
		case errors.Is(err, budget.ErrSizeExceeded):
			return textReply(MsgTooLarge)
		case errors.Is(err, budget.ErrResolve):
			return textReply(MsgUnavailable)
		default:
			return textReply(MsgProcessingFailed)
		}
	}

	if kind == model.KindVideo {
		c.notify(userID, "Download complete! Sending video...")
	}
	err = c.deliver.Deliver(ctx, Delivery{
		UserID:   userID,
		FilePath: res.FilePath,
		Title:    res.Title,
		Kind:     kind,
		Label:    label,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("path", res.FilePath).Msg("delivery failed")
		return textReply(MsgSendFailed)
	}
	if kind == model.KindAudio {
		return textReply(MsgAudioSent)
	}
	return textReply(MsgVideoSent)
}

// GroupByHeight keeps one representative per distinct height, breaking ties
// by the smallest estimated filesize, sorted by height descending.
func GroupByHeight(formats []model.VideoFormat) []model.VideoFormat {
	byHeight := make(map[int]model.VideoFormat)
	for _, f := range formats {
		if f.Height <= 0 {
			continue
		}
		cur, ok := byHeight[f.Height]
		if !ok || smallerFilesize(f, cur) {
			byHeight[f.Height] = f
		}
	}
	out := make([]model.VideoFormat, 0, len(byHeight))
	for _, f := range byHeight {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out
}

// smallerFilesize prefers a known, smaller filesize estimate; unknown (zero)
// estimates never displace a known one.
func smallerFilesize(a, b model.VideoFormat) bool {
	if a.Filesize <= 0 {
		return false
	}
	if b.Filesize <= 0 {
		return true
	}
	return a.Filesize < b.Filesize
}

func trimTitle(title string) string {
	const max = 40
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max-3]) + "..."
}
