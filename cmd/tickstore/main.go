// Command tickstore copies ticks between the Postgres store and the parquet
// archive.
//
//	tickstore -mode export -symbols IBM,MSFT   # db -> archive
//	tickstore -mode import -symbols IBM        # archive -> db
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"tickbacktest/internal/archive"
	"tickbacktest/internal/config"
	"tickbacktest/internal/logger"
	"tickbacktest/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	mode := flag.String("mode", "export", "export (db to archive) or import (archive to db)")
	symbols := flag.String("symbols", strings.Join(cfg.Replay.Symbols, ","), "comma separated symbols")
	dir := flag.String("dir", cfg.Replay.ArchiveDir, "archive directory")
	start := flag.Int("start", cfg.Replay.StartDate, "first date, YYYYMMDD")
	end := flag.Int("end", cfg.Replay.EndDate, "last date, YYYYMMDD")
	flag.Parse()

	log, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	db, err := repository.NewDatabase(ctx, cfg.DB.URL, cfg.DB.MaxConns)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	for _, sym := range strings.Split(*symbols, ",") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		var n int
		switch *mode {
		case "export":
			n, err = export(ctx, db, *dir, sym, *start, *end)
		case "import":
			n, err = load(ctx, db, *dir, sym, *start, *end)
		default:
			err = fmt.Errorf("unknown mode %q", *mode)
		}
		if err != nil {
			log.Fatal("copy ticks", zap.String("symbol", sym), zap.Error(err))
		}
		log.Info("ticks copied", zap.String("mode", *mode), zap.String("symbol", sym), zap.Int("ticks", n))
	}
}

func export(ctx context.Context, db *repository.Database, dir, symbol string, start, end int) (int, error) {
	ticks, err := db.GetTicks(ctx, symbol, start, end)
	if err != nil {
		return 0, err
	}
	if _, err := archive.WriteTicks(dir, ticks); err != nil {
		return 0, err
	}
	return len(ticks), nil
}

func load(ctx context.Context, db *repository.Database, dir, symbol string, start, end int) (int, error) {
	paths, err := archive.FindFiles(dir, symbol, start, end)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range paths {
		ticks, err := archive.ReadTicks(p)
		if err != nil {
			return total, err
		}
		n, err := db.SaveTicks(ctx, ticks)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
