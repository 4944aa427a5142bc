package bot

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"github.com/toni86moon/telegram-bot/lib/sl"
)

const maxTelegramMessageLen = 4000

func (t *TgBot) plainResponse(chatId int64, text string) {
	if text == "" {
		t.log.With("id", chatId).Debug("empty message")
		return
	}

	_, err := t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{
		ParseMode: "MarkdownV2",
	})
	if err != nil {
		t.log.With(slog.Int64("id", chatId)).Warn("sending message", sl.Err(err))
		_, err = t.api.SendMessage(chatId, text, &tgbotapi.SendMessageOpts{})
		if err != nil {
			t.log.With(slog.Int64("id", chatId)).Error("sending safe message", sl.Err(err))
		}
	}
}

func Sanitize(input string) string {
	reservedChars := "\\_{}#+-.!|()[]=*"
	sanitized := ""
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized += "\\" + string(char)
		} else {
			sanitized += string(char)
		}
	}
	return sanitized
}

func (t *TgBot) requireAdmin(chatId int64) bool {
	for _, id := range t.config.AdminIds {
		if id == chatId {
			return true
		}
	}
	return false
}

// isChannelMember checks the channel-membership gate for missions. With no
// channel configured the gate is open.
func (t *TgBot) isChannelMember(userId int64) (bool, error) {
	if t.config.ChannelId == 0 {
		return true, nil
	}
	member, err := t.api.GetChatMember(t.config.ChannelId, userId, nil)
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}
	switch member.MergeChatMember().Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

func (t *TgBot) notifyAdmins(msg string) {
	for _, id := range t.config.AdminIds {
		t.plainResponse(id, msg)
	}
}

// SendMessageWithLevel forwards a log line to the admins. Used by the
// logger.TelegramHandler for ERROR records.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < slog.LevelError {
		return
	}
	t.notifyAdmins(msg)
}

func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Try to split at newline
		cutAt := maxLen
		nlIdx := strings.LastIndex(text[:maxLen], "\n")
		if nlIdx > 0 {
			cutAt = nlIdx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// reportError logs the error, notifies admins with details, and sends a neutral message to the user.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Error("bot command failed",
		slog.String("command", command),
		slog.Int64("user_id", chatId),
		sl.Err(err),
	)
	t.notifyAdmins(fmt.Sprintf(
		"Command `%s` failed\nUser: `%d`\nError: `%s`",
		Sanitize(command), chatId, Sanitize(err.Error()),
	))
	t.plainResponse(chatId, "Something went wrong\\. Please try again later\\.")
}
