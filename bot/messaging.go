package bot

import (
	"log/slog"
)

// SendMessageWithLevel delivers a preformatted MarkdownV2 message to every
// configured chat. Errors go out at once; lower levels wait for the digest
// when one is running.
func (t *TgBot) SendMessageWithLevel(msg string, level slog.Level) {
	if level < slog.LevelError && t.digest != nil {
		t.digest.Add(msg, level)
		return
	}
	t.broadcast(msg)
}
