// Command export writes the feature table or a pivot of one cached ticker as CSV.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"MarketSeasons/internal/cache"
	"MarketSeasons/internal/collector"
	"MarketSeasons/internal/config"
	"MarketSeasons/internal/features"
	"MarketSeasons/internal/logging"
	"MarketSeasons/internal/model"
	"MarketSeasons/internal/pivot"
	"MarketSeasons/internal/table"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "export: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	ticker := fs.String("ticker", "", "ticker to export (default: configured default ticker)")
	mode := fs.String("mode", "features", "features, monthly, weekday or weekday-quarter")
	withBars := fs.Bool("bars", false, "append high, low and volume to the feature table")
	dbPath := fs.String("db", "", "sqlite path (default: configured path)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.SQLitePath
	}
	if *ticker == "" {
		*ticker = cfg.DefaultTicker
	}

	logger, err := logging.New("warn")
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := cache.NewSQLiteStore(*dbPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	resolved := collector.NormalizeTicker(*ticker)
	series, err := store.Bars(context.Background(), resolved, cache.Range{})
	if err != nil {
		return err
	}
	if series.Empty() {
		return fmt.Errorf("%w: %s", collector.ErrNoCachedData, resolved)
	}

	t, err := render(*mode, series, *withBars)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	if err := t.WriteCSV(w); err != nil {
		return err
	}
	return w.Flush()
}

func render(mode string, series model.PriceSeries, withBars bool) (*table.Table, error) {
	switch mode {
	case "features":
		rows := features.Compute(series)
		if withBars {
			return features.Table(rows, features.BarColumns(rows)...)
		}
		return features.Table(rows)
	case "monthly":
		return pivot.Monthly(series).Table(), nil
	case "weekday":
		return pivot.Weekday(series).Table(), nil
	case "weekday-quarter":
		return pivot.WeekdayByQuarter(series).Table(), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}
