package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conorfennell/knolreview/internal/config"
	"github.com/conorfennell/knolreview/internal/ingest"
	"github.com/conorfennell/knolreview/internal/review"
	"github.com/conorfennell/knolreview/internal/schedule"
	"github.com/conorfennell/knolreview/internal/session"
	"github.com/conorfennell/knolreview/internal/storage"
	"github.com/conorfennell/knolreview/internal/web"
	"github.com/spf13/pflag"
)

func main() {
	// 1. Define and parse command-line flags
	fs := pflag.NewFlagSet("knolreview", pflag.ExitOnError)
	config.RegisterFlags(fs)
	addSource := fs.String("add-source", "", "Register a local directory or git URL as a card source")
	doSync := fs.Bool("sync", false, "Reconcile all sources with the deck")
	serve := fs.Bool("serve", false, "Start the HTTP API")
	doReview := fs.Bool("review", false, "Review due cards in the terminal")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *addSource, *doSync, *serve, *doReview); err != nil {
		logger.Error("knolreview failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, addSource string, doSync, serve, doReview bool) error {
	// 2. Open the database
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Debug("database opened", "path", cfg.DB)

	params := cfg.Schedule.Params()
	reviews := session.NewController(db, session.WithParams(params), session.WithLogger(logger))
	syncer := &ingest.Syncer{DB: db, ReposDir: cfg.ReposDir, Logger: logger, Progress: os.Stderr}

	// 3. Run the requested modes in order
	if addSource != "" {
		if _, err := syncer.AddSource(ctx, addSource); err != nil {
			return err
		}
	}
	if doSync {
		reports, err := syncer.Run(ctx)
		if err != nil {
			return err
		}
		for _, r := range reports {
			fmt.Printf("%s: %d parsed, %d added, %d removed, %d errors\n", r.Source, r.Parsed, r.Added, r.Removed, len(r.Errors))
			for _, e := range r.Errors {
				fmt.Printf("- %s\n", e)
			}
		}
	}
	if doReview {
		if _, err := review.Run(ctx, reviews, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	if serve {
		return listen(ctx, cfg.Addr, web.NewServer(db, reviews, syncer, logger), logger)
	}
	if addSource == "" && !doSync && !doReview {
		return printSummary(ctx, db, params)
	}
	return nil
}

func listen(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func printSummary(ctx context.Context, db *storage.DB, params *schedule.Params) error {
	deck, err := db.Load(ctx)
	if err != nil {
		return err
	}
	s := params.Summarize(deck, time.Now().UTC())
	fmt.Printf("Found %d cards, %d due.\n", s.Total, s.Due)
	for _, level := range []schedule.Level{schedule.LevelNew, schedule.LevelNeedsPractice, schedule.LevelLearning, schedule.LevelMastered} {
		fmt.Printf("  %-14s %d\n", level, s.ByLevel[level])
	}
	return nil
}
