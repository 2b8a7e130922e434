package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/emitter"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/translate"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	camera := flag.Int("camera", -1, "camera device ID (overrides camera.device_id)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *addr, *camera)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("mudra failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, addr string, camera int) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if addr != "" {
		cfg.Server.Addr = addr
	}
	if camera >= 0 {
		cfg.Camera.DeviceID = camera
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}

	return cfg, config.Validate(cfg)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEmbedder(cfg *config.Config, logger *slog.Logger) (classifier.Embedder, error) {
	if cfg.Embedder.Kind == config.EmbedderProcess {
		return classifier.NewProcessEmbedder(classifier.ProcessConfig{
			Command: cfg.Embedder.Python,
			Args:    []string{cfg.Embedder.Script},
			Logger:  logger,
		})
	}
	return classifier.NewPixelEmbedder(cfg.ImageSize, 0), nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vocab, err := cfg.Vocabulary()
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	a, err := app.New(app.Config{
		Vocabulary:   vocab,
		Source:       capture.NewCamera(cfg.Camera.DeviceID, logger),
		Classifier:   classifier.NewKNN(vocab.Len(), cfg.TopK, embedder),
		Store:        st,
		Clock:        translate.NewRefreshClock(cfg.RefreshRateHz),
		Threshold:    cfg.Threshold,
		ResetOnStart: cfg.ResetOnStart,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	// Init failures are reported through status and command errors; the
	// server still comes up so the user can see them.
	if err := a.Init(ctx); err != nil {
		logger.Error("initialization incomplete", "error", err)
	}

	hub := server.NewHub(func() interface{} { return a.Status() }, logger)
	a.AddDisplay(hub)

	if cfg.MQTT.Broker != "" {
		pub := emitter.NewMQTTPublisher(cfg.MQTT, logger)
		if err := pub.Connect(ctx); err != nil {
			logger.Warn("mqtt disabled", "broker", cfg.MQTT.Broker, "error", err)
		} else {
			defer pub.Close()
			a.AddDisplay(pub)
		}
	}

	if cfg.Plugins.Dir != "" {
		manager := plugin.NewManager(cfg.Plugins.Dir, logger)
		if err := manager.Discover(); err != nil {
			logger.Warn("plugin discovery failed", "dir", cfg.Plugins.Dir, "error", err)
		}
		hooks := plugin.NewHooks(manager, plugin.NewExecutor(cfg.Plugins.TimeoutMs), logger)
		defer hooks.Close()
		a.AddDisplay(hooks)
		logger.Info("plugins loaded", "count", len(manager.List()))
	}

	srv := server.New(server.Config{
		StaticDir: cfg.Server.StaticDir,
		App:       a,
		Hub:       hub,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if cfg.Tray.Enabled {
		t := tray.New(a, logger)
		t.OnQuit(stop)
		a.AddDisplay(t)
		go func() {
			select {
			case <-ctx.Done():
			case err := <-errCh:
				errCh <- err
				stop()
			}
			t.Quit()
		}()
		t.Run()
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("server shutdown", "error", err)
	}
	// Stop the loop before the deferred sinks close.
	if err := a.Close(); err != nil {
		logger.Warn("translator close", "error", err)
	}
	return serveErr
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
