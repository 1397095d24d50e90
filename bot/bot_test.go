package bot

import (
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passdist/entity"
)

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	parts := splitMessage("aaaa\nbbbb\ncccc", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc"}, parts)

	parts = splitMessage(strings.Repeat("x", 25), 10)
	require.Len(t, parts, 3)
	assert.Equal(t, strings.Repeat("x", 25), strings.Join(parts, ""))
}

func TestFormatStats(t *testing.T) {
	out := formatStats(entity.NewStats(12500, 2500))
	assert.Contains(t, out, "Total: `12,500`")
	assert.Contains(t, out, "Used: `2,500`")
	assert.Contains(t, out, "Available: `10,000`")
	assert.Contains(t, out, `Usage rate: 20\.00%`)
}

func TestDigestFoldsRepeats(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	d := newDigestBuffer(func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, msg)
	}, time.Hour)

	d.Add("no codes available", slog.LevelWarn)
	d.Add("no codes available", slog.LevelWarn)
	d.Add("store slow", slog.LevelInfo)
	d.Flush()

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], `\(3 messages\)`)
	assert.Contains(t, sent[0], "x2 no codes available")
	assert.Contains(t, sent[0], "store slow")

	d.Flush()
	assert.Len(t, sent, 1)
}

func TestDigestFlushesOnStop(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	d := newDigestBuffer(func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, msg)
	}, time.Hour)
	d.StartTicker()
	d.Add("pending", slog.LevelWarn)
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "pending")
}
