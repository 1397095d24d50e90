package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"passdist/bot"
	"passdist/impl/auth"
	"passdist/impl/core"
	"passdist/internal/allocator"
	"passdist/internal/config"
	"passdist/internal/database"
	"passdist/internal/http-server/api"
	"passdist/internal/store"
	"passdist/internal/store/github"
	"passdist/internal/store/memory"
	"passdist/lib/logger"
	"passdist/lib/sl"
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	log := logger.SetupLogger(conf.Env, *logPath)
	log.Info("starting passdist", slog.String("config", *configPath), slog.String("env", conf.Env))

	// the bot keeps the plain logger so its own failures are not forwarded back to it
	botLog := log
	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(
			conf.Telegram.ApiKey,
			conf.Telegram.ChatIds,
			time.Duration(conf.Telegram.DigestMin)*time.Minute,
			botLog,
		)
		if err != nil {
			log.Error("telegram bot", sl.Err(err))
		} else {
			log = forwardToTelegram(botLog, tgBot, conf.Telegram.MinLevel)
		}
	}

	blob, err := newBlob(conf, log)
	if err != nil {
		log.Error("store", sl.Err(err))
		os.Exit(1)
	}
	st := store.New(blob, conf.GitHub.Path, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	alloc := allocator.New(st, allocator.Config{
		MaxRetries: conf.Allocation.MaxRetries,
		BaseDelay:  time.Duration(conf.Allocation.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(conf.Allocation.MaxDelayMs) * time.Millisecond,
		Jitter:     time.Duration(conf.Allocation.JitterMs) * time.Millisecond,
	}, allocator.NewMetrics(registry), log)

	handler := core.New(alloc, log)

	mongo := database.NewMongoClient(conf)
	var users auth.Database
	if mongo != nil {
		users = mongo
		handler.SetAuditService(mongo)
		log.Info("mongo audit trail enabled", slog.String("database", conf.Mongo.Database))
	}
	authService := auth.New(conf.Admin.Tokens, users)
	if authService.Enabled() {
		handler.SetAuthService(authService)
	} else {
		log.Warn("no admin tokens configured; reset endpoint is closed")
	}

	if tgBot != nil {
		tgBot.SetStatsProvider(handler)
		go func() {
			if err := tgBot.Start(); err != nil {
				botLog.Error("telegram bot", sl.Err(err))
			}
		}()
	}

	server := api.New(conf, log, handler, registry)
	go func() {
		if err := server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server", sl.Err(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info("shutting down", slog.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("api server shutdown", sl.Err(err))
	}
	if tgBot != nil {
		tgBot.Stop()
	}
}

// forwardToTelegram returns a logger that also sends records at or above
// minLevel to sender; base itself is left untouched.
func forwardToTelegram(base *slog.Logger, sender logger.Sender, minLevel string) *slog.Logger {
	level, err := logger.ParseLevel(minLevel)
	if err != nil {
		base.Warn("telegram min level", sl.Err(err))
	}
	return slog.New(logger.NewTelegramHandler(base.Handler(), sender, level))
}

func newBlob(conf *config.Config, log *slog.Logger) (store.Blob, error) {
	switch conf.Store.Driver {
	case "memory":
		blob := memory.New()
		if conf.Store.SeedFile != "" {
			if err := blob.Seed(conf.GitHub.Path, conf.Store.SeedFile); err != nil {
				return nil, err
			}
			log.Info("memory store seeded", slog.String("file", conf.Store.SeedFile))
		}
		return blob, nil
	case "github":
		return github.NewClient(github.Config{
			APIURL:         conf.GitHub.APIURL,
			Owner:          conf.GitHub.Owner,
			Repo:           conf.GitHub.Repo,
			Branch:         conf.GitHub.Branch,
			Token:          conf.GitHub.Token,
			CommitterName:  conf.GitHub.CommitterName,
			CommitterEmail: conf.GitHub.CommitterEmail,
			Timeout:        conf.GitHub.TimeoutDuration(),
		}, log), nil
	}
	return nil, errors.New("unknown store driver " + conf.Store.Driver)
}
