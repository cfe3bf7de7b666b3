package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nicholascarismo/inventory-checker-bot/internal"
	"github.com/nicholascarismo/inventory-checker-bot/internal/bot"
	"github.com/nicholascarismo/inventory-checker-bot/internal/chat"
	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
	"github.com/nicholascarismo/inventory-checker-bot/internal/flow"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
	"github.com/nicholascarismo/inventory-checker-bot/internal/report"
	"github.com/nicholascarismo/inventory-checker-bot/internal/scheduler"
	"github.com/nicholascarismo/inventory-checker-bot/internal/sku"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "index:refresh":
		idx, _, _, err := buildOnce(context.Background(), cfg)
		must(err)
		fmt.Printf("index refresh complete: scanned=%d variants=%d categories=%d\n",
			idx.Scanned, idx.VariantCount(), len(idx.Categories))

	case "index:lookup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		category := fs.String("category", "", "category, e.g. TRIM")
		subcategory := fs.String("subcategory", "", "subcategory, e.g. FORD")
		sortMode := fs.String("sort", "alpha", "alpha|qty_desc")
		stock := fs.String("stock", "in_only", "in_only|with_oos")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*category) == "" || strings.TrimSpace(*subcategory) == "" {
			must(fmt.Errorf("--category and --subcategory are required"))
		}
		mode, ok := internal.ParseSortMode(*sortMode)
		if !ok {
			must(fmt.Errorf("unknown sort mode %q", *sortMode))
		}
		filter, ok := internal.ParseStockFilter(*stock)
		if !ok {
			must(fmt.Errorf("unknown stock filter %q", *stock))
		}

		_, _, query, err := buildOnce(context.Background(), cfg)
		must(err)
		entries := query.Lookup(*category, *subcategory, mode, filter)
		if len(entries) == 0 {
			fmt.Printf("no matches for %s / %s\n", strings.ToUpper(*category), strings.ToUpper(*subcategory))
			return
		}
		for _, e := range entries {
			fmt.Printf("%s qty=%d\n", e.SKU, e.Available)
		}
		fmt.Printf("lookup done: %d variants\n", len(entries))

	case "report:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		category := fs.String("category", "", "optional category filter")
		subcategory := fs.String("subcategory", "", "optional subcategory filter")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}

		idx, _, query, err := buildOnce(context.Background(), cfg)
		must(err)
		rows := report.CollectRows(idx, query, *category, *subcategory)
		if len(rows) == 0 {
			must(fmt.Errorf("no rows to export"))
		}
		must(report.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)

	case "bot:serve":
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

	default:
		usage()
		os.Exit(1)
	}
}

func buildOnce(ctx context.Context, cfg config.Config) (*inventory.Index, *inventory.Store, *inventory.QueryService, error) {
	parser := sku.New(cfg.SKUPrefix, cfg.SKUSeparator, cfg.SKUCategoryField, cfg.SKUSubcategoryField)
	builder := inventory.NewBuilder(inventory.NewClient(cfg), parser, cfg.InternalOnlyMarker)
	idx, err := builder.Build(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	store := inventory.NewStore()
	store.Replace(idx)
	return idx, store, inventory.NewQueryService(store, cfg.ResultCacheSize), nil
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

func usage() {
	fmt.Println("usage: invbot <command>")
	fmt.Println("commands:")
	fmt.Println("  index:refresh")
	fmt.Println("  index:lookup --category=TRIM --subcategory=FORD [--sort=alpha|qty_desc] [--stock=in_only|with_oos]")
	fmt.Println("  report:xlsx --out=./out/inventory.xlsx [--category=...] [--subcategory=...]")
	fmt.Println("  bot:serve")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
