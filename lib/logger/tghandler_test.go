package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passdist/entity"
	"passdist/lib/sl"
)

type recordingSender struct {
	mu     sync.Mutex
	msgs   []string
	levels []slog.Level
}

func (r *recordingSender) SendMessageWithLevel(msg string, level slog.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	r.levels = append(r.levels, level)
}

func TestTelegramHandlerForwardsAboveMinLevel(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{}
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(NewTelegramHandler(base, sender, slog.LevelWarn))

	log.Info("code allocated")
	log.With(sl.Module("allocator"), slog.String(entity.TopicKey, entity.TopicExhausted)).
		Warn("no codes available")
	log.Error("allocation failed", sl.Err(errors.New("boom")))

	assert.Contains(t, buf.String(), "code allocated")
	require.Len(t, sender.msgs, 2)
	assert.Equal(t, []slog.Level{slog.LevelWarn, slog.LevelError}, sender.levels)

	assert.Contains(t, sender.msgs[0], `\#exhausted`)
	assert.Contains(t, sender.msgs[0], "*WARN* `no codes available`")
	assert.Contains(t, sender.msgs[0], "mod: allocator")
	assert.NotContains(t, sender.msgs[0], "tg_topic")
	assert.Contains(t, sender.msgs[1], "```error boom ```")
	assert.Contains(t, sender.msgs[1], `\#error`)
}

func TestTelegramHandlerGroupPrefix(t *testing.T) {
	sender := &recordingSender{}
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	log := slog.New(NewTelegramHandler(base, sender, slog.LevelInfo)).WithGroup("http")

	log.Info("started")
	require.Len(t, sender.msgs, 1)
	assert.Contains(t, sender.msgs[0], "`http.started`")
	assert.Contains(t, sender.msgs[0], `\#system`)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, `30\.00% used \(3/10\)`, Sanitize("30.00% used (3/10)"))
	assert.Equal(t, `a\_b\-c\!`, Sanitize("a_b-c!"))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("error")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
