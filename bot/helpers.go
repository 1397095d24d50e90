package bot

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"passdist/lib/logger"
	"passdist/lib/sl"
)

const maxTelegramMessageLen = 4096

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

func (t *TgBot) allowed(chatId int64) bool {
	return slices.Contains(t.chatIds, chatId)
}

func (t *TgBot) broadcast(msg string) {
	for _, part := range splitMessage(msg, maxTelegramMessageLen) {
		for _, id := range t.chatIds {
			t.plainResponse(id, part)
		}
	}
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
		// prefer a newline boundary
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

// reportError logs the failure and answers the chat with a neutral message.
func (t *TgBot) reportError(chatId int64, command string, err error) {
	t.log.Warn("bot command failed",
		slog.String("command", command),
		slog.Int64("chat_id", chatId),
		sl.Err(err),
	)
	t.plainResponse(chatId, fmt.Sprintf("Command `%s` failed: %s", logger.Sanitize(command), logger.Sanitize(err.Error())))
}
