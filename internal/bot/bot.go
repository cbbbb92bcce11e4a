// Package bot wires the Telegram transport to the flow controller and the
// admin/feedback/broadcast tooling.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tubebot/internal/config"
	"tubebot/internal/delivery"
	"tubebot/internal/flow"
	"tubebot/internal/log"
	"tubebot/internal/session"
	"tubebot/internal/store"
)

// Bot owns the long-polling loop and per-update dispatch.
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         config.Settings
	flow        *flow.Controller
	db          *store.Store
	gate        *delivery.Gate
	feedbackAw  *session.Flag[int64]
	broadcastAw *session.Flag[int64]
	limiter     *rate.Limiter
	logger      zerolog.Logger

	// progress ticker knobs, overridable in tests
	progressInterval time.Duration
	post             func(chatID int64, text string)
}

// New constructs the bot around an authorized Telegram API client.
func New(api *tgbotapi.BotAPI, cfg config.Settings, controller *flow.Controller, db *store.Store) *Bot {
	return &Bot{
		api:         api,
		cfg:         cfg,
		flow:        controller,
		db:          db,
		gate:        delivery.NewGate(),
		feedbackAw:  session.NewFlag[int64](),
		broadcastAw: session.NewFlag[int64](),
		// Pace broadcast sends well under Telegram's ~30 msg/s limit.
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
		logger:  log.WithComponent("bot"),
	}
}

// Run starts the update loop and the keep-alive HTTP endpoint, blocking until
// ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return b.poll(ctx) })
	if b.cfg.KeepaliveTCP != "" {
		g.Go(func() error { return b.keepalive(ctx) })
	}

	return g.Wait()
}

func (b *Bot) poll(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			// Each update is an independent task; slow downloads must not
			// block other users.
			go b.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate is the catch-all boundary: no failure may terminate the
// per-update task silently.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("update handler panicked")
			if chatID := updateChatID(update); chatID != 0 {
				b.send(chatID, "Something went wrong. Please try again later.")
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) keepalive(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "Bot is running!")
	})
	srv := &http.Server{Addr: b.cfg.KeepaliveTCP, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("keepalive server: %w", err)
	}
	return nil
}

// send posts a plain text message, logging failures.
func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// sendHTML posts an HTML-formatted message.
func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

// sendReply renders a flow.Reply, attaching the inline keyboard when present.
func (b *Bot) sendReply(chatID int64, r flow.Reply) {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if kb := inlineKeyboard(r); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}

// sendOrEdit edits the originating message in place when the reply asks for it
// (keeping the chat compact as the user steps through result/format/quality),
// otherwise posts a fresh message. Edit failures fall back to a send so the
// user always sees the reply.
func (b *Bot) sendOrEdit(chatID int64, messageID int, r flow.Reply) {
	if !r.EditPrevious || messageID == 0 {
		b.sendReply(chatID, r)
		return
	}
	var c tgbotapi.Chattable
	if kb := inlineKeyboard(r); kb != nil {
		c = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.Text, *kb)
	} else {
		c = tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
	}
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("edit failed, sending instead")
		b.sendReply(chatID, r)
	}
}

func inlineKeyboard(r flow.Reply) *tgbotapi.InlineKeyboardMarkup {
	if len(r.Buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(r.Buttons))
	for _, row := range r.Buttons {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data))
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.AdminID != 0 && userID == b.cfg.AdminID
}

func updateChatID(update tgbotapi.Update) int64 {
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		return update.CallbackQuery.Message.Chat.ID
	}
	return 0
}
