package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"inksync/internal/combiner"
	"inksync/internal/config"
	"inksync/internal/fetcher"
	"inksync/internal/janitor"
	"inksync/internal/model"
	"inksync/internal/notify"
	"inksync/internal/scheduler"
	"inksync/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	st, err := store.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	var notifier scheduler.Notifier
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("create notifier", "error", err)
			os.Exit(1)
		}
		notifier = tg
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	comb := combiner.New(st, cfg.PreviewLimit, false, log)
	comb.Subscribe(func(recs []model.ContentRecord) {
		if len(recs) == 0 {
			return
		}
		log.Debug("unified feed updated", "size", len(recs), "lead", recs[0].Title)
	})
	st.Subscribe(comb.OnStoreChange)
	if err := comb.Refresh(ctx); err != nil {
		log.Error("initial feed compute", "error", err)
	}

	fetch := fetcher.New(http.DefaultClient)
	jan := janitor.New(st, cfg.Retention(), log)
	sources := []scheduler.Source{
		{Kind: model.SourceAnnouncement, URL: cfg.AnnouncementsFeedURL},
		{Kind: model.SourceBlogPost, URL: cfg.BlogFeedURL},
	}

	sched := scheduler.New(st, fetch, jan, notifier, sources, log)
	sched.SetTickInterval(cfg.SyncInterval)

	log.Info("starting sync daemon", "interval", cfg.SyncInterval, "retention_days", cfg.RetentionDays)

	sched.Run(ctx)

	log.Info("sync daemon stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
