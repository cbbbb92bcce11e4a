package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tubebot/internal/flow"
	"tubebot/internal/model"
	"tubebot/internal/store"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if err := b.db.TrackUser(ctx, store.User{
		ID:        userID,
		FirstName: msg.From.FirstName,
		Username:  msg.From.UserName,
	}); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("track user failed")
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	// Modal flows take priority over search: broadcast-await first, then
	// feedback-await, then plain text is a search query.
	if b.isAdmin(userID) && b.broadcastAw.Armed(userID) {
		b.runBroadcast(ctx, userID, text)
		return
	}
	if b.feedbackAw.Armed(userID) {
		b.acceptFeedback(ctx, msg, text)
		return
	}

	b.logActivity(ctx, userID, "search", text)
	b.send(msg.Chat.ID, "Searching for \""+text+"\"...")
	b.sendReply(msg.Chat.ID, b.flow.StartFlow(ctx, userID, text))
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.logActivity(ctx, userID, "start_command", "")
		b.sendHTML(chatID, startMessage(b.isAdmin(userID)))
	case "help":
		b.sendHTML(chatID, helpMessage(b.isAdmin(userID)))
	case "search":
		b.send(chatID, msgSearchPrompt)
	case "feedback":
		b.feedbackAw.Arm(userID)
		b.send(chatID, msgFeedbackPrompt)
	case "cancel":
		b.feedbackAw.Disarm(userID)
		b.broadcastAw.Disarm(userID)
		b.sendReply(chatID, b.flow.Cancel(userID))
	case "stats":
		if b.isAdmin(userID) {
			b.statsCommand(ctx, chatID)
		}
	case "feedback_list":
		if b.isAdmin(userID) {
			b.feedbackListCommand(ctx, chatID)
		}
	case "reply":
		if b.isAdmin(userID) {
			b.replyCommand(ctx, chatID, msg.CommandArguments())
		}
	case "broadcast":
		if b.isAdmin(userID) {
			b.broadcastAw.Arm(userID)
			b.sendHTML(chatID, msgBroadcastPrompt)
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Answer immediately so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn().Err(err).Msg("answer callback failed")
	}
	if cb.From == nil || cb.Message == nil {
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	cmd, err := flow.ParseCallback(cb.Data)
	if err != nil {
		b.logger.Warn().Err(err).Str("data", cb.Data).Msg("unrecognized callback")
		return
	}

	switch cmd.Kind {
	case flow.CallbackSelect:
		b.logActivity(ctx, userID, "select_video", "")
		b.sendOrEdit(chatID, cb.Message.MessageID, b.flow.SelectResult(userID, cmd.Index))

	case flow.CallbackFormat:
		reply := b.withProgress(ctx, chatID, func() flow.Reply {
			return b.flow.ChooseFormat(ctx, userID, cmd.Format)
		})
		if cmd.Format == model.KindAudio {
			b.logActivity(ctx, userID, "download_audio", "")
		}
		b.sendOrEdit(chatID, cb.Message.MessageID, reply)

	case flow.CallbackQuality:
		reply := b.withProgress(ctx, chatID, func() flow.Reply {
			return b.flow.ChooseQuality(ctx, userID, cmd.Selector, cmd.Label)
		})
		b.logActivity(ctx, userID, "download_video_"+cmd.Label, "")
		b.sendOrEdit(chatID, cb.Message.MessageID, reply)
	}
}

func (b *Bot) acceptFeedback(ctx context.Context, msg *tgbotapi.Message, text string) {
	userID := msg.From.ID
	defer b.feedbackAw.Disarm(userID)

	id, err := b.db.SaveFeedback(ctx, userID, text)
	if err != nil {
		b.logger.Error().Err(err).Msg("save feedback failed")
		b.send(msg.Chat.ID, msgFeedbackFailed)
		return
	}

	if b.cfg.AdminID != 0 {
		pending, _ := b.db.PendingFeedbackCount(ctx)
		b.sendHTML(b.cfg.AdminID, feedbackNotification(userInfo(msg.From), userID, text, pending))
	}
	b.logger.Info().Int64("feedback_id", id).Int64("user_id", userID).Msg("feedback stored")
	b.send(msg.Chat.ID, msgFeedbackThanks)
}

func (b *Bot) logActivity(ctx context.Context, userID int64, kind, query string) {
	if err := b.db.LogActivity(ctx, userID, kind, query); err != nil {
		b.logger.Warn().Err(err).Int64("user_id", userID).Msg("log activity failed")
	}
}

// Deliver implements flow.Deliverer: it sends the file through Telegram and
// lets the gate guarantee local cleanup whatever the send outcome.
func (b *Bot) Deliver(ctx context.Context, d flow.Delivery) error {
	return b.gate.SendAndCleanup(ctx, d.FilePath, func(_ context.Context, path string) error {
		if d.Kind == model.KindAudio {
			audio := tgbotapi.NewAudio(d.UserID, tgbotapi.FilePath(path))
			audio.Title = d.Title
			audio.Performer = "YouTube"
			_, err := b.api.Send(audio)
			return err
		}
		video := tgbotapi.NewVideo(d.UserID, tgbotapi.FilePath(path))
		caption := d.Title
		if d.Label != "" {
			caption += " (" + d.Label + ")"
		}
		video.Caption = caption
		video.SupportsStreaming = true
		_, err := b.api.Send(video)
		return err
	})
}

// Notify implements flow.Notifier.
func (b *Bot) Notify(userID int64, text string) {
	b.send(userID, text)
}

func userInfo(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "User"
}
