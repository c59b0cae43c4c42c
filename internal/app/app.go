package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"detectboard/internal/config"
	"detectboard/internal/logger"
	"detectboard/internal/model"
	"detectboard/internal/repository/sqlite"
	"detectboard/internal/route"
	"detectboard/internal/service"
	"detectboard/internal/service/ai"
	"detectboard/internal/service/analysis"
	"detectboard/internal/service/storage"
	"detectboard/internal/service/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config   *config.Config
	logger   *logger.Logger
	db       *sqlite.DB
	recorder *storage.Recorder
	hub      *websocket.HubService
	manager  *service.Manager
	server   *http.Server
}

// NewApp wires every component. Detector and analysis failures are kept
// and reported per request; only storage problems stop the server.
func NewApp(cfg *config.Config) (*App, error) {
	log := logger.NewLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	runRepo := sqlite.NewRunRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	recorder := storage.NewRecorder(cfg, log, runRepo, detectionRepo)
	hub := websocket.NewHubService(log)

	deps := service.Dependencies{Recorder: recorder, Hub: hub}
	deps.Labels, deps.DetectorErr = ai.LoadLabels(cfg)
	if deps.DetectorErr == nil {
		deps.Detectors, deps.DetectorErr = loadDetectors(cfg, deps.Labels, log)
	}
	if deps.DetectorErr != nil {
		log.Error("Detection unavailable: %v", deps.DetectorErr)
	}

	client, err := analysis.NewClient(cfg, log)
	if err != nil {
		deps.AnalyzerErr = err
		log.Warning("Analysis unavailable: %v", err)
	} else {
		deps.Analyzer = client
	}

	manager := service.NewManager(deps, cfg, log)
	router := route.SetupRoutes(manager, hub, recorder, cfg, log, runRepo, detectionRepo)

	return &App{
		config:   cfg,
		logger:   log,
		db:       db,
		recorder: recorder,
		hub:      hub,
		manager:  manager,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// loadDetectors creates one network per worker; a gocv.Net is not shared
// between goroutines.
func loadDetectors(cfg *config.Config, labels model.LabelTable, log *logger.Logger) ([]service.Detector, error) {
	workers := cfg.ProcessingWorkers
	if workers < 1 {
		workers = 1
	}

	detectors := make([]service.Detector, 0, workers)
	for i := 0; i < workers; i++ {
		ds, err := ai.NewDetectorService(cfg, labels, log) // załaduj model osobno
		if err != nil {
			for _, d := range detectors {
				d.Close()
			}
			return nil, err
		}
		detectors = append(detectors, ds)
	}
	return detectors, nil
}

// Run serves until ctx is cancelled, then shuts everything down in order:
// HTTP server and background services, detectors, a last recorder flush,
// database. Runs recorded by requests that finish after the recorder's
// loop exits are saved by the last flush.
func (a *App) Run(ctx context.Context) error {
	defer a.logger.Close()
	defer a.db.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.hub.Run(gctx) })
	g.Go(func() error { return a.recorder.Run(gctx) })
	g.Go(func() error {
		a.logger.Info("🚀 Detection board listening on http://localhost:%d", a.config.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.manager.Stop()
	if saved := a.recorder.Flush(); saved > 0 {
		a.logger.Info("💾 Saved %d run(s) recorded during shutdown", saved)
	}
	a.logger.Info("🛑 Server stopped")
	return err
}
