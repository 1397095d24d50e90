package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"passdist/entity"
)

// Sender delivers a formatted message; implemented by bot.TgBot.
type Sender interface {
	SendMessageWithLevel(msg string, level slog.Level)
}

// TelegramHandler is a slog.Handler that forwards records at or above
// minLevel to Telegram after passing them to the wrapped handler
type TelegramHandler struct {
	handler  slog.Handler
	sender   Sender
	minLevel slog.Level
	mu       *sync.Mutex
	attrs    []slog.Attr
	group    string
}

func NewTelegramHandler(handler slog.Handler, sender Sender, minLevel slog.Level) *TelegramHandler {
	return &TelegramHandler{
		handler:  handler,
		sender:   sender,
		minLevel: minLevel,
		mu:       &sync.Mutex{},
	}
}

// Enabled keeps the wrapped handler's level; forwarding is filtered in Handle
func (h *TelegramHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *TelegramHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	if record.Level < h.minLevel || h.sender == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	topic := ""
	var b strings.Builder
	name := record.Message
	if h.group != "" {
		name = h.group + "." + name
	}
	fmt.Fprintf(&b, "*%s* `%s`", record.Level.String(), name)

	write := func(attr slog.Attr) {
		switch attr.Key {
		case entity.TopicKey:
			topic = attr.Value.String()
		case "error":
			fmt.Fprintf(&b, "\n%s: ```error %v ```", attr.Key, attr.Value)
		default:
			b.WriteString(Sanitize(fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)))
		}
	}
	for _, attr := range h.attrs {
		write(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		write(attr)
		return true
	})
	if topic == "" {
		topic = entity.TopicSystem
		if record.Level >= slog.LevelError {
			topic = entity.TopicError
		}
	}
	msg := Sanitize("#"+topic) + " " + b.String()

	h.sender.SendMessageWithLevel(msg, record.Level)
	return nil
}

func (h *TelegramHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	return &TelegramHandler{
		handler:  h.handler.WithAttrs(attrs),
		sender:   h.sender,
		minLevel: h.minLevel,
		mu:       h.mu,
		attrs:    newAttrs,
		group:    h.group,
	}
}

func (h *TelegramHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &TelegramHandler{
		handler:  h.handler.WithGroup(name),
		sender:   h.sender,
		minLevel: h.minLevel,
		mu:       h.mu,
		attrs:    h.attrs,
		group:    group,
	}
}

// Sanitize escapes Telegram MarkdownV2 reserved characters
func Sanitize(input string) string {
	const reserved = "\\_{}#+-.!|()[]=*>~`"
	var b strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reserved, char) {
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
