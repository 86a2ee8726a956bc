// Command gameserver runs the dogtown world simulation behind an
// HTTP/JSON API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skoryh/dogtown/internal/api"
	"github.com/skoryh/dogtown/internal/app"
	"github.com/skoryh/dogtown/internal/config"
	"github.com/skoryh/dogtown/internal/store"
)

const (
	listenAddr      = "0.0.0.0:8080"
	shutdownTimeout = 10 * time.Second
)

type args struct {
	configFile      string
	tickPeriodMs    int
	wwwRoot         string
	randomizeSpawn  bool
	stateFile       string
	savePeriodMs    int
}

func parseArgs() args {
	var a args

	fs := flag.NewFlagSet("gameserver", flag.ContinueOnError)
	// The flag package appends its full usage listing to parse errors;
	// keep the contract of a single error line on stderr.
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.StringVar(&a.configFile, "config-file", "", "path to the world config file (required)")
	fs.StringVar(&a.configFile, "c", "", "shorthand for --config-file")
	fs.IntVar(&a.tickPeriodMs, "tick-period", 0, "server tick period in milliseconds; 0 enables manual ticking")
	fs.IntVar(&a.tickPeriodMs, "t", 0, "shorthand for --tick-period")
	fs.StringVar(&a.wwwRoot, "www-root", "static", "static files document root")
	fs.StringVar(&a.wwwRoot, "w", "static", "shorthand for --www-root")
	fs.BoolVar(&a.randomizeSpawn, "randomize-spawn-points", false, "spawn dogs at random road positions")
	fs.StringVar(&a.stateFile, "state-file", "", "path to the game state snapshot")
	fs.IntVar(&a.savePeriodMs, "save-state-period", 0, "auto-save period in milliseconds")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Println("Allowed options:")
			fmt.Println("  -c, --config-file <path>   world config file (required)")
			fmt.Println("  -t, --tick-period <ms>     server tick period; 0 enables manual ticking")
			fmt.Println("  -w, --www-root <dir>       static files document root")
			fmt.Println("  --randomize-spawn-points   spawn dogs at random road positions")
			fmt.Println("  --state-file <path>        game state snapshot")
			fmt.Println("  --save-state-period <ms>   auto-save period")
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if a.configFile == "" {
		fmt.Fprintln(os.Stderr, "Error: config file is required")
		os.Exit(1)
	}
	return a
}

func main() {
	a := parseArgs()

	log, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: cannot initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(a, log); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	return cfg.Build()
}

func run(a args, log *zap.Logger) error {
	dbURL := os.Getenv("GAME_DB_URL")
	if dbURL == "" {
		return errors.New("GAME_DB_URL is not set")
	}

	game, err := config.LoadGame(a.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	records, err := store.NewSQLiteRecords(dbURL)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer records.Close()
	if err := records.Migrate(); err != nil {
		return fmt.Errorf("migrate record store: %w", err)
	}

	application := app.New(game, records, log, app.Options{
		RandomizeSpawnPoints: a.randomizeSpawn,
		ManualTick:           a.tickPeriodMs == 0,
		StateFile:            a.stateFile,
		SaveStatePeriod:      time.Duration(a.savePeriodMs) * time.Millisecond,
	})
	application.LoadState()

	server := api.NewServer(application, log, a.wwwRoot)
	httpServer := &http.Server{
		Addr:        listenAddr,
		Handler:     server.Routes(),
		ReadTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server started", zap.String("addr", listenAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.tickPeriodMs > 0 {
		period := time.Duration(a.tickPeriodMs) * time.Millisecond
		group.Go(func() error {
			log.Info("game loop started", zap.Duration("period", period))
			application.RunLoop(ctx, period)
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}

		if err := application.SaveState(); err != nil {
			log.Error("final snapshot failed", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
