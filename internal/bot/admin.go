package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tubebot/internal/flow"
)

func (b *Bot) statsCommand(ctx context.Context, chatID int64) {
	st, err := b.db.UserStats(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("stats query failed")
		b.send(chatID, "Could not load stats.")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Bot Statistics</b>\n\n")
	fmt.Fprintf(&sb, "Total users: <b>%d</b>\n", st.TotalUsers)
	fmt.Fprintf(&sb, "Active today: <b>%d</b>\n", st.ActiveToday)
	fmt.Fprintf(&sb, "Active this week: <b>%d</b>\n", st.ActiveWeek)
	fmt.Fprintf(&sb, "Pending feedback: <b>%d</b>\n", st.PendingFeedback)
	if len(st.PopularSearches) > 0 {
		sb.WriteString("\n<b>Popular searches</b>\n")
		for i, sc := range st.PopularSearches {
			fmt.Fprintf(&sb, "%d. %s (%d)\n", i+1, escapeHTML(sc.Query), sc.Count)
		}
	}
	b.sendHTML(chatID, sb.String())
}

func (b *Bot) feedbackListCommand(ctx context.Context, chatID int64) {
	items, err := b.db.PendingFeedback(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("feedback list failed")
		b.send(chatID, "Could not load feedback.")
		return
	}
	if len(items) == 0 {
		b.send(chatID, "No pending feedback.")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Pending Feedback</b>\n\n")
	for _, f := range items {
		name := f.FirstName
		if f.Username != "" {
			name = "@" + f.Username
		}
		fmt.Fprintf(&sb, "<b>#%d</b> from %s (%s)\n%s\n\n",
			f.ID, escapeHTML(name), f.Timestamp.Format("2006-01-02 15:04"),
			escapeHTML(f.Message))
	}
	sb.WriteString("Reply with /reply &lt;id&gt; &lt;message&gt;")
	b.sendHTML(chatID, sb.String())
}

func (b *Bot) replyCommand(ctx context.Context, chatID int64, args string) {
	idStr, text, ok := strings.Cut(strings.TrimSpace(args), " ")
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		b.send(chatID, "Usage: /reply <feedback_id> <message>")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		b.send(chatID, "Usage: /reply <feedback_id> <message>")
		return
	}

	fb, err := b.db.FeedbackByID(ctx, id)
	if err != nil {
		b.send(chatID, fmt.Sprintf("Feedback #%d not found.", id))
		return
	}
	if err := b.db.SaveReply(ctx, id, text); err != nil {
		b.logger.Error().Err(err).Int64("feedback_id", id).Msg("save reply failed")
		b.send(chatID, "Could not save the reply.")
		return
	}

	b.sendHTML(fb.UserID, replyNotification(fb.Message, text))
	b.send(chatID, fmt.Sprintf("Reply sent for feedback #%d.", id))
}

// runBroadcast delivers text to every known user, pacing sends through the
// rate limiter so the Telegram API does not throttle the bot.
func (b *Bot) runBroadcast(ctx context.Context, adminID int64, text string) {
	defer b.broadcastAw.Disarm(adminID)

	users, err := b.db.AllUsers(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("broadcast user list failed")
		b.send(adminID, "Could not load the user list.")
		return
	}

	b.send(adminID, fmt.Sprintf("Broadcasting to %d users...", len(users)))

	var sent, failed int
	for _, userID := range users {
		if userID == adminID {
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			break
		}
		if _, err := b.api.Send(newBroadcastMessage(userID, text)); err != nil {
			failed++
			b.logger.Warn().Err(err).Int64("user_id", userID).Msg("broadcast send failed")
			continue
		}
		sent++
	}

	b.send(adminID, fmt.Sprintf("Broadcast done: %d sent, %d failed.", sent, failed))
	b.logger.Info().Int("sent", sent).Int("failed", failed).Msg("broadcast finished")
}

// withProgress runs fn with a "still working" ticker posting to chatID. The
// ticker is cancelled on every exit path, including a panic unwinding out of
// fn.
func (b *Bot) withProgress(ctx context.Context, chatID int64, fn func() flow.Reply) flow.Reply {
	stop := b.startProgress(ctx, chatID)
	defer stop()
	return fn()
}

// startProgress keeps the user informed during long downloads by posting a
// "still working" note on a ticker. The returned stop function must be called
// once the work completes.
func (b *Bot) startProgress(ctx context.Context, chatID int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	interval := b.progressInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	post := b.post
	if post == nil {
		post = b.send
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				post(chatID, "Still working on it...")
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
