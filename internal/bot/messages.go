package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	msgSearchPrompt    = "Send me the name of a song or video to search for."
	msgFeedbackPrompt  = "Send me your feedback in one message. Use /cancel to abort."
	msgFeedbackThanks  = "Thanks! Your feedback has been recorded."
	msgFeedbackFailed  = "Could not save your feedback. Please try again later."
	msgBroadcastPrompt = "Send the broadcast message now. Use /cancel to abort."
)

func startMessage(admin bool) string {
	var sb strings.Builder
	sb.WriteString("<b>Welcome!</b>\n\n")
	sb.WriteString("Send me the name of a song or video and I will find it on YouTube ")
	sb.WriteString("and send it back as audio or video.\n\n")
	sb.WriteString("Files are limited to what Telegram allows, so very long videos ")
	sb.WriteString("are compressed or may not fit at all.\n\n")
	sb.WriteString("Type /help to see all commands.")
	if admin {
		sb.WriteString("\n\nYou are an admin. See /help for admin commands.")
	}
	return sb.String()
}

func helpMessage(admin bool) string {
	var sb strings.Builder
	sb.WriteString("<b>Commands</b>\n")
	sb.WriteString("/start - welcome message\n")
	sb.WriteString("/search - how to search\n")
	sb.WriteString("/feedback - send feedback to the operator\n")
	sb.WriteString("/cancel - abort the current action\n")
	sb.WriteString("/help - this message\n")
	sb.WriteString("\nOr just send any text to search YouTube.")
	if admin {
		sb.WriteString("\n\n<b>Admin</b>\n")
		sb.WriteString("/stats - usage statistics\n")
		sb.WriteString("/feedback_list - pending feedback\n")
		sb.WriteString("/reply &lt;id&gt; &lt;text&gt; - reply to feedback\n")
		sb.WriteString("/broadcast - message all users")
	}
	return sb.String()
}

func feedbackNotification(from string, userID int64, text string, pending int) string {
	var sb strings.Builder
	sb.WriteString("<b>New feedback</b> from ")
	sb.WriteString(escapeHTML(from))
	sb.WriteString(" (")
	sb.WriteString(strconv.FormatInt(userID, 10))
	sb.WriteString("):\n\n")
	sb.WriteString(escapeHTML(text))
	sb.WriteString("\n\n")
	sb.WriteString(strconv.Itoa(pending))
	sb.WriteString(" pending. Use /feedback_list to manage.")
	return sb.String()
}

func replyNotification(original, reply string) string {
	var sb strings.Builder
	sb.WriteString("<b>Reply to your feedback</b>\n\n")
	sb.WriteString("You wrote:\n<i>")
	sb.WriteString(escapeHTML(original))
	sb.WriteString("</i>\n\nReply:\n")
	sb.WriteString(escapeHTML(reply))
	return sb.String()
}

func newBroadcastMessage(userID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(userID, "📢 "+text)
	return msg
}

func escapeHTML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
