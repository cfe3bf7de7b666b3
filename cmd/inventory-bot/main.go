package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nicholascarismo/inventory-checker-bot/internal/bot"
	"github.com/nicholascarismo/inventory-checker-bot/internal/chat"
	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
	"github.com/nicholascarismo/inventory-checker-bot/internal/flow"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
	"github.com/nicholascarismo/inventory-checker-bot/internal/scheduler"
	"github.com/nicholascarismo/inventory-checker-bot/internal/sku"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := setupLogger(cfg.LogLevel)

	parser := sku.New(cfg.SKUPrefix, cfg.SKUSeparator, cfg.SKUCategoryField, cfg.SKUSubcategoryField)
	builder := inventory.NewBuilder(inventory.NewClient(cfg), parser, cfg.InternalOnlyMarker)
	store := inventory.NewStore()
	query := inventory.NewQueryService(store, cfg.ResultCacheSize)
	gateway := chat.NewClient(cfg)
	flowSvc := flow.NewService(store, query, gateway, cfg, log)
	sched := scheduler.NewService(builder, store, cfg, log)
	server := bot.NewServer(cfg, store, flowSvc, sched, gateway, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() { _ = sched.Run(ctx) }()
	must(server.Run(ctx))
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(log)
	return log
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
