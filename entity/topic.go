package entity

// Log attribute used to tag records forwarded to Telegram,
// e.g. slog.String(TopicKey, TopicExhausted).
const TopicKey = "tg_topic"

const (
	TopicExhausted = "exhausted"
	TopicReset     = "reset"
	TopicError     = "error"
	TopicSystem    = "system"
)
