package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"petwatch/internal/config"
	"petwatch/internal/logger"
	"petwatch/internal/repository/sqlite"
	"petwatch/internal/routes"
	"petwatch/internal/service"
	"petwatch/internal/service/activity"
	"petwatch/internal/service/heatmap"
	"petwatch/internal/service/occlusion"
	"petwatch/internal/service/scheduler"
	"petwatch/internal/service/storage"
	"petwatch/internal/service/vision"
	"petwatch/internal/service/websocket"
	"petwatch/internal/timeutil"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	blobStore  *storage.LocalBlobStore
	hubService *websocket.HubService
	manager    *service.Manager
}

// NewApp builds every service from the environment configuration.
func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)
	loc := cfg.Location()

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	detections := sqlite.NewDetectionRepository(db, loc)
	activityRepo := sqlite.NewActivityRepository(db)
	blobs := storage.NewLocalBlobStore(cfg, log)
	clock := timeutil.RealClock{}

	generator := heatmap.NewGenerator(cfg.HeatmapTempDir, vision.NewInpainter(log), log)
	hub := websocket.NewHubService(log)

	mng := service.NewManager(cfg,
		activity.NewService(cfg, detections, activityRepo, blobs, clock, log),
		heatmap.NewService(cfg, detections, blobs, generator, clock, log),
		occlusion.NewService(cfg, detections, log),
		hub,
		scheduler.New(cfg, clock, log),
		clock,
		log,
	)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		blobStore:  blobs,
		hubService: hub,
		manager:    mng,
	}, nil
}

// Manager exposes the wired services to one-shot commands.
func (a *App) Manager() *service.Manager {
	return a.manager
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Run serves HTTP and the schedulers until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.hubService.Run(ctx)
	a.manager.Start(ctx)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           routes.SetupRoutes(a.manager, a.blobStore, a.config, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Pet monitoring server listening on %s", server.Addr)
		a.logger.Info("Devices: %v, bucket width %s, timezone %s", a.config.DeviceSerials, a.config.BucketWidth, a.config.Timezone)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	a.manager.Wait()
	return err
}

// Close releases the database and log files.
func (a *App) Close() error {
	return errors.Join(a.db.Close(), a.logger.Close())
}
