package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/xylax/motion-agent/internal/api"
	"github.com/xylax/motion-agent/internal/config"
	"github.com/xylax/motion-agent/internal/db"
	"github.com/xylax/motion-agent/internal/editor"
	"github.com/xylax/motion-agent/internal/gen"
	"github.com/xylax/motion-agent/internal/logging"
	"github.com/xylax/motion-agent/internal/media"
	"github.com/xylax/motion-agent/internal/playback"
	"github.com/xylax/motion-agent/internal/probe"
	"github.com/xylax/motion-agent/internal/project"
	"github.com/xylax/motion-agent/internal/stream"
	"github.com/xylax/motion-agent/internal/studio"
	"github.com/xylax/motion-agent/internal/timeline"
	"github.com/xylax/motion-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ThumbnailDir(), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting motion agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	installID, err := ensureInstallID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure install ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                 XYLAX MOTION AGENT v" + config.Version + "                 ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Install ID: %-45s ║\n", installID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var prober probe.Prober
	if p, err := probe.NewFFmpegProber(cfg.ThumbnailDir(), cfg.ProbeTimeout(), logger); err != nil {
		logger.Warn("ffmpeg unavailable, media metadata degraded", "error", err)
		prober = probe.NewStubProber(logger)
	} else {
		prober = p
	}

	registry := media.NewRegistry(prober, logger)
	defer registry.Close()

	tl := timeline.New(cfg.VideoTrackCount(), cfg.AudioTrackCount(), cfg.PixelsPerSecond())

	surface := playback.NewClockSurface()
	controller := playback.NewController(surface, tl, func(mediaID string) (string, bool) {
		if item := registry.Get(mediaID); item != nil {
			return item.Path, true
		}
		return "", false
	}, cfg.PlaybackTickRate(), logger)
	defer controller.Close()

	session := editor.NewSession(registry, tl, controller)

	var genClient gen.Client
	if cfg.GenBaseURL() != "" && cfg.GenAPIKey() != "" {
		genClient = gen.NewHTTPClient(cfg.GenBaseURL(), cfg.GenAPIKey(), cfg.MediaDir(), cfg.GenPollInterval(), logger)
		logger.Info("generation service enabled", "base_url", cfg.GenBaseURL())
	} else {
		logger.Warn("no generation API key configured, using stub client")
		genClient = gen.NewStubClient(cfg.MediaDir(), logger)
	}

	composer := studio.NewComposer(genClient, registry, repo, cfg.MediaDir(), logger)
	projects := project.NewService(repo, logger)
	streamServer := stream.NewServer(registry, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:            cfg.Port(),
		MediaDir:        cfg.MediaDir(),
		RulerGutterPx:   cfg.RulerGutterPx(),
		PixelsPerSecond: cfg.PixelsPerSecond(),
		Session:         session,
		Composer:        composer,
		Projects:        projects,
		Repository:      repo,
		StreamServer:    streamServer,
		Logger:          logger,
		StartTime:       startTime,
		InstallID:       installID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	var quitOnce sync.Once
	quit := func() { quitOnce.Do(func() { close(quitCh) }) }

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Session: session,
			Logger:  logger,
			OnQuit: quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	controller.Pause()
	if tray != nil {
		tray.Quit()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureInstallID(repo project.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "install_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	id := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "install_id", id); err != nil {
		return "", err
	}
	return id, nil
}

func ensureAuthToken(repo project.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 24)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}
	return token, nil
}
