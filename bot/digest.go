package bot

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type DigestEntry struct {
	Message   string
	Level     slog.Level
	Timestamp time.Time
}

// DigestBuffer collects forwarded records and flushes them as one message
// per interval, so a burst of identical warnings costs a single send.
type DigestBuffer struct {
	mu       sync.Mutex
	entries  []DigestEntry
	interval time.Duration
	send     func(msg string)
	stopCh   chan struct{}
	done     chan struct{}
}

func NewDigestBuffer(bot *TgBot, interval time.Duration) *DigestBuffer {
	return newDigestBuffer(bot.broadcast, interval)
}

func newDigestBuffer(send func(msg string), interval time.Duration) *DigestBuffer {
	return &DigestBuffer{
		interval: interval,
		send:     send,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *DigestBuffer) Add(msg string, level slog.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, DigestEntry{
		Message:   msg,
		Level:     level,
		Timestamp: time.Now(),
	})
}

func (d *DigestBuffer) StartTicker() {
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-d.stopCh:
				d.Flush() // final flush
				return
			}
		}
	}()
}

func (d *DigestBuffer) Flush() {
	d.mu.Lock()
	snapshot := d.entries
	d.entries = nil
	d.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	d.send(formatDigest(snapshot))
}

func (d *DigestBuffer) Stop() {
	close(d.stopCh)
	<-d.done
}

// formatDigest folds repeated messages into one line with a counter.
func formatDigest(entries []DigestEntry) string {
	type line struct {
		entry DigestEntry
		count int
	}
	var order []string
	lines := make(map[string]*line)
	for _, e := range entries {
		if l, ok := lines[e.Message]; ok {
			l.count++
			continue
		}
		lines[e.Message] = &line{entry: e, count: 1}
		order = append(order, e.Message)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Digest* \\(%d messages\\)\n\n", len(entries)))
	for _, msg := range order {
		l := lines[msg]
		ts := l.entry.Timestamp.Format("15:04")
		if l.count > 1 {
			sb.WriteString(fmt.Sprintf("`%s` x%d %s\n", ts, l.count, msg))
		} else {
			sb.WriteString(fmt.Sprintf("`%s` %s\n", ts, msg))
		}
	}
	return sb.String()
}
