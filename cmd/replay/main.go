// Command replay is the hypothesis-lab: an out-of-band tool that indexes
// archived market snapshots and scores one symbol's strategy decisions
// against them. It never touches the live state or signals directories.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hyperwall-agent/internal/hypothesis"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		archiveDir = flag.String("archive-dir", "data", "Path to the data directory containing history/")
		symbol     = flag.String("symbol", "", "Symbol to replay (BTC, ETH, SOL, HYPE)")
		fromStr    = flag.String("from", "", "Start date, YYYY-MM-DD (default: 30 days ago)")
		toStr      = flag.String("to", "", "End date, YYYY-MM-DD (default: today)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *symbol == "" {
		fmt.Fprintln(os.Stderr, "replay: -symbol is required")
		flag.Usage()
		os.Exit(1)
	}

	from, to, err := parseWindow(*fromStr, *toStr)
	if err != nil {
		log.Fatal().Err(err).Msg("replay: invalid -from/-to")
	}

	indexPath := filepath.Join(*archiveDir, "replay-index.db")
	idx, err := hypothesis.OpenIndex(indexPath)
	if err != nil {
		log.Fatal().Err(err).Msg("replay: failed to open archive index")
	}
	defer idx.Close()

	n, err := idx.Build(*archiveDir, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("replay: failed to build archive index")
	}
	log.Info().Int("records", n).Str("symbol", *symbol).Msg("replay: index built")

	result, err := hypothesis.Run(idx, *symbol, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("replay: run failed")
	}

	printResult(result, from, to)
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}

	from := to.AddDate(0, 0, -30)
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}

	return from, to.Add(24 * time.Hour), nil
}

func printResult(r hypothesis.Result, from, to time.Time) {
	fmt.Printf("=== Replay: %s ===\n", r.Symbol)
	fmt.Printf("Window:        %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("Cycles seen:   %d\n", r.CycleCount)
	fmt.Printf("Trades closed: %d\n", len(r.Trades))
	fmt.Printf("Win rate:      %.1f%%\n", r.WinRate()*100)
	fmt.Printf("Shadow P&L:    %.3f%%\n", r.ShadowPnLPct*100)
	if r.OpenAtEnd {
		fmt.Println("(one position still open at window end, excluded from shadow P&L)")
	}
	for _, t := range r.Trades {
		fmt.Printf("  %-20s %-6s %-18s entry=%.4f exit=%.4f pnl=%.3f%% (%s)\n",
			t.OpenedAt.Format(time.RFC3339), t.Direction, t.Pattern, t.EntryPrice, t.ExitPrice, t.PnLPct*100, t.Reason)
	}
}
