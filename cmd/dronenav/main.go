package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"dronenav/internal/api"
	"dronenav/pkg/config"
	"dronenav/pkg/db"
	"dronenav/pkg/db/maintenance"
	"dronenav/pkg/logging"
	"dronenav/pkg/mission"
	"dronenav/pkg/probe"
	"dronenav/pkg/store"
	"dronenav/pkg/tracker"
	"dronenav/pkg/version"
)

const defaultConfigPath = "configs/dronenav.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the YAML config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	headless   = flag.Bool("headless", false, "Run the simulation without the HTTP server")
	genSnaps   = flag.Bool("generate-snapshots", false, "Render reference snapshots from the ground map and exit")
)

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	if *genSnaps {
		if err := generateSnapshots(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate snapshots: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func generateSnapshots(configPath string) error {
	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	paths, err := mission.GenerateSnapshots(appCfg, slog.Default())
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d snapshots to %s\n", len(paths), appCfg.Mission.SnapshotDir)
	return nil
}

func run(ctx context.Context, configPath string, headless bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("DroneNav started", "version", version.Version, "config", configPath)

	m, err := mission.Load(appCfg, slog.Default())
	if err != nil {
		return err
	}
	defer m.Close()

	var st *store.SQLiteStore
	if appCfg.Recorder.Enabled {
		dbConn, s, err := initDB(appCfg)
		if err != nil {
			return err
		}
		defer s.Close()
		st = s

		if err := maintenance.Run(ctx, dbConn, appCfg.Recorder.Retention.Std()); err != nil {
			slog.Error("Maintenance tasks failed", "error", err)
		}
	}

	// Startup Probes
	var pinger mission.Pinger
	if st != nil {
		pinger = st
	}
	results := probe.Run(ctx, m.Probes(pinger))
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	tr := tracker.New()
	telH := api.NewTelemetryHandler()
	defer telH.Close()

	runner := mission.NewRunner(m, mission.RunnerOptions{
		TickRate:     appCfg.Sim.TickRate,
		MaxStep:      appCfg.Sim.MaxStep.Std(),
		ExitOnLanded: appCfg.Sim.ExitOnLanded,
	}, slog.Default(), telH, mission.TrackAttempts(tr))

	var rec *store.Recorder
	if st != nil {
		rec, err = store.NewRecorder(ctx, st, m.Route, appCfg.Recorder.SampleEvery, appCfg.Recorder.Buffer)
		if err != nil {
			return fmt.Errorf("failed to start flight recorder: %w", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				slog.Error("Failed to finish flight record", "error", err)
			}
		}()
		runner.AddSink(mission.SinkFunc(rec.Record))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Landing ends the whole process, server included.
		defer cancel()
		return runner.Run(gctx)
	})

	if !headless {
		var recStats api.RecorderStats
		if rec != nil {
			recStats = rec
		}
		var flights *api.FlightHandler
		if st != nil {
			flights = api.NewFlightHandler(st)
		}
		srv := api.NewServer(appCfg.Server.Address,
			telH,
			api.NewStatsHandler(tr, telH, recStats),
			flights,
			cancel,
			runner.RequestRestart,
		)
		srv.Handler = loggingMiddleware(srv.Handler)
		g.Go(func() error {
			return runServerLifecycle(gctx, srv)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	last := runner.Last()
	slog.Info("DroneNav finished", "state", last.State, "battery", last.Battery, "elapsed", last.Elapsed)
	return nil
}

func initDB(appCfg *config.Config) (*db.DB, *store.SQLiteStore, error) {
	dbConn, err := db.Init(appCfg.Recorder.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
