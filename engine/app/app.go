package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rae1st/oscillate/engine/config"
	logpkg "github.com/rae1st/oscillate/engine/logger"
	"github.com/rae1st/oscillate/engine/playback"
	"github.com/rae1st/oscillate/engine/resolve"
	"github.com/rae1st/oscillate/engine/store"
	"github.com/rae1st/oscillate/engine/telemetry"
	"github.com/rae1st/oscillate/engine/transcode"
	"github.com/rae1st/oscillate/engine/worker"
)

// App wires all engine dependencies.
type App struct {
	Config     *config.Config
	Logger     *logpkg.Logger
	Store      *store.Repository
	Pool       *worker.Pool
	Metrics    *telemetry.Metrics
	Transcoder *transcode.FFmpeg
	Resolver   *resolve.Resolver
	Manager    *playback.Manager
	Build      BuildInfo
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	RuntimeVer string
	BinVersion string
	CommitSHA  string
	BuildTime  string
	BuildArch  string
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logpkg.New(conf.GetString("LogLevel"), conf.GetString("LogFormat"), conf.GetBool("LogSource"))
	if err != nil {
		return nil, err
	}

	gormLogger := logpkg.NewGormLogger(log.Slog(), logpkg.ParseGormLevel(conf.GetString("GormLogLevel")))
	databasePath := strings.TrimSpace(conf.GetString("Database"))
	if databasePath == "" {
		databasePath = "oscillate.db"
	}

	repo, err := store.NewSQLiteRepository(databasePath, gormLogger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	poolMaxOpen := conf.GetInt("DBMaxOpenConns")
	poolMaxIdle := conf.GetInt("DBMaxIdleConns")
	poolMaxLifetimeSec := conf.GetInt("DBConnMaxLifetimeSec")
	if err := repo.ConfigurePool(poolMaxOpen, poolMaxIdle, time.Duration(poolMaxLifetimeSec)*time.Second); err != nil {
		return nil, fmt.Errorf("configure db pool: %w", err)
	}

	pool := worker.New(conf.GetInt("WorkerPoolSize"))
	metrics := telemetry.New()

	ffmpeg := transcode.NewFFmpeg(conf.GetString("FFmpegPath"), log)
	if err := ffmpeg.Preflight(); err != nil {
		return nil, fmt.Errorf("ffmpeg preflight: %w", err)
	}

	var resolver *resolve.Resolver
	if conf.GetBool("EnableResolver") {
		resolver = resolve.New(
			time.Duration(conf.GetInt("ResolveTimeoutSec"))*time.Second,
			conf.GetInt("ResolveRetryMax"),
			log,
		)
	}

	manager, err := playback.NewManager(playback.Options{
		Logger:     log,
		Config:     conf,
		Store:      repo,
		Transcoder: ffmpeg,
		Pool:       pool,
		Metrics:    metrics,
		Resolver:   resolver,
	})
	if err != nil {
		return nil, fmt.Errorf("init playback manager: %w", err)
	}

	return &App{
		Config:     conf,
		Logger:     log,
		Store:      repo,
		Pool:       pool,
		Metrics:    metrics,
		Transcoder: ffmpeg,
		Resolver:   resolver,
		Manager:    manager,
		Build:      build,
	}, nil
}

// Start launches background services.
func (a *App) Start(ctx context.Context) error {
	if addr := strings.TrimSpace(a.Config.GetString("MetricsListen")); addr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, addr, a.Logger); err != nil {
				a.Logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	a.Logger.Info("engine started",
		"version", a.Build.BinVersion,
		"runtime", a.Build.RuntimeVer,
		"arch", a.Build.BuildArch,
	)
	return nil
}

// Shutdown releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if a.Manager != nil {
		if err := a.Manager.Shutdown(ctx); err != nil {
			if a.Logger != nil {
				a.Logger.Error("failed to shut down playback manager", "error", err)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown playback manager: %w", err)
			}
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			if a.Logger != nil {
				a.Logger.Error("failed to close store", "error", err)
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("close store: %w", err)
			}
		}
	}

	if a.Logger != nil {
		if err := a.Logger.Close(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("close logger: %w", err)
			}
		}
	}

	return firstErr
}
