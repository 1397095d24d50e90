// Package bot forwards log records to Telegram chats and answers a few
// read-only commands.
//
//   - tgbot.go     TgBot lifecycle (Start/Stop) and the StatsProvider hook
//   - commands.go  /stats and /help
//   - menus.go     command menu registration
//   - messaging.go log forwarding: errors immediately, the rest through the digest
//   - digest.go    DigestBuffer for batched delivery
//   - helpers.go   plainResponse, chat filtering, message splitting
//
// Only the configured chat ids are ever written to or answered.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"

	"passdist/entity"
	"passdist/lib/sl"
)

type StatsProvider interface {
	GetStats(ctx context.Context) (*entity.Stats, error)
}

type TgBot struct {
	log            *slog.Logger
	api            *tgbotapi.Bot
	chatIds        []int64
	stats          StatsProvider
	updater        *ext.Updater
	digest         *DigestBuffer
	digestInterval time.Duration
}

// NewTgBot validates the api key against Telegram; digestInterval of zero
// delivers every forwarded record immediately.
func NewTgBot(apiKey string, chatIds []int64, digestInterval time.Duration, log *slog.Logger) (*TgBot, error) {
	if len(chatIds) == 0 {
		return nil, fmt.Errorf("no chat ids configured")
	}

	tgBot := &TgBot{
		log:            log.With(sl.Module("tgbot")),
		chatIds:        slices.Clone(chatIds),
		digestInterval: digestInterval,
	}

	api, err := tgbotapi.NewBot(apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating api instance: %v", err)
	}
	tgBot.api = api

	return tgBot, nil
}

func (t *TgBot) SetStatsProvider(stats StatsProvider) {
	t.stats = stats
}

// Start polls for updates and blocks until Stop is called.
func (t *TgBot) Start() error {
	if t.digestInterval > 0 {
		t.digest = NewDigestBuffer(t, t.digestInterval)
		t.digest.StartTicker()
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(b *tgbotapi.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			t.log.Error("handling update:", sl.Err(err))
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	t.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("stats", t.statsCmd))
	dispatcher.AddHandler(handlers.NewCommand("help", t.help))
	dispatcher.AddHandler(handlers.NewCommand("start", t.help))

	t.setCommands()

	err := t.updater.StartPolling(t.api, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &tgbotapi.GetUpdatesOpts{
			Timeout: 9,
			RequestOpts: &tgbotapi.RequestOpts{
				Timeout: time.Second * 10,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}
	t.log.With(slog.Int("chats", len(t.chatIds))).Info("telegram bot started")

	t.updater.Idle()
	return nil
}

func (t *TgBot) Stop() {
	if t.digest != nil {
		t.digest.Stop()
	}
	if t.updater != nil {
		t.log.Info("stopping telegram bot")
		t.updater.Stop()
	}
}
