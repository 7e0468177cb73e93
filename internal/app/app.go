// Package app wires configuration, credentials, the provider pool, the
// dispatcher, the cache, and the diagnostics server into a runnable unit.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/traduko/internal/cache"
	"github.com/allaspectsdev/traduko/internal/config"
	"github.com/allaspectsdev/traduko/internal/dispatch"
	"github.com/allaspectsdev/traduko/internal/metrics"
	"github.com/allaspectsdev/traduko/internal/store"
	"github.com/allaspectsdev/traduko/internal/telemetry"
	"github.com/allaspectsdev/traduko/internal/version"
)

// historyRetentionDays bounds the on-disk event and job history.
const historyRetentionDays = 30

// Runtime bundles the live components built from one config.
type Runtime struct {
	Coordinator *dispatch.Coordinator
	Translator  *cache.Cache
	Collector   *metrics.Collector
	Store       *store.Store

	logSink   *telemetry.LogSink
	storeSink *store.Sink
}

// Build assembles a Runtime from the given config. The caller owns the
// Runtime and must Close it.
func Build(cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{
		Collector: metrics.NewCollector(),
	}

	sinks := telemetry.Multi{rt.Collector}

	if cfg.Telemetry.Events {
		rt.logSink = telemetry.NewLogSink(log.Logger)
		sinks = append(sinks, rt.logSink)
	}

	if cfg.Telemetry.History {
		dbPath := filepath.Join(cfg.Server.DataDir, "history.db")
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("opening history store: %w", err)
		}
		rt.Store = st
		rt.storeSink = store.NewSink(st)
		sinks = append(sinks, rt.storeSink)
	}

	specs := dispatch.SpecsFromConfig(cfg, nil)
	pool, err := dispatch.Build(specs, dispatch.PolicyFromConfig(cfg.Dispatch), sinks)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Coordinator = dispatch.New(pool, sinks, log.Logger, dispatch.SettingsFromConfig(cfg.Dispatch))

	translator, err := cache.New(rt.Coordinator, cfg.Cache.MaxEntries, cfg.Cache.Enabled, rt.Collector)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Translator = translator

	return rt, nil
}

// Close flushes sinks and releases the store.
func (rt *Runtime) Close() {
	if rt.storeSink != nil {
		rt.storeSink.Close()
	}
	if rt.logSink != nil {
		rt.logSink.Close()
	}
	if rt.Store != nil {
		rt.Store.Close()
	}
}

// Run starts serve mode: a Runtime plus the diagnostics server, config hot
// reload, and periodic history pruning. It blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config, foreground bool) error {
	if err := setupLogging(cfg, foreground); err != nil {
		return err
	}

	log.Info().
		Str("version", version.Version).
		Str("data_dir", cfg.Server.DataDir).
		Msg("traduko starting")

	rt, err := Build(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Config hot reload: only the log level takes effect live. Pool shape
	// changes need a restart.
	if configFile := config.ConfigFilePath(); configFile != "" {
		watcher, err := config.Watch(configFile)
		if err != nil {
			log.Warn().Err(err).Msg("config watcher unavailable")
		} else {
			defer watcher.Close()
			watcher.OnChange(func(_, newCfg *config.Config) {
				log.Info().Msg("configuration reloaded")
				zerolog.SetGlobalLevel(parseLogLevel(newCfg.Server.LogLevel))
			})
			log.Info().Str("file", configFile).Msg("config watcher started")
		}
	}

	// Periodic history pruning.
	pruneCtx, pruneCancel := context.WithCancel(context.Background())
	defer pruneCancel()
	if rt.Store != nil {
		go pruneLoop(pruneCtx, rt.Store)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.DiagBind, cfg.Server.DiagPort)
	diag := metrics.NewDiagServer(rt.Collector, rt.Coordinator, rt.Store, addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- diag.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return diag.Shutdown(shutdownCtx)
}

// setupLogging configures the global zerolog logger: always to a file in
// the data dir, plus console output in foreground mode.
func setupLogging(cfg *config.Config, foreground bool) error {
	zerolog.SetGlobalLevel(parseLogLevel(cfg.Server.LogLevel))

	if err := os.MkdirAll(cfg.Server.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	writers := []io.Writer{}

	logPath := filepath.Join(cfg.Server.DataDir, "traduko.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", logPath, err)
	}
	writers = append(writers, logFile)

	if foreground {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}

	multi := zerolog.MultiLevelWriter(writers...)
	log.Logger = zerolog.New(multi).With().Timestamp().Str("service", "traduko").Logger()
	return nil
}

// pruneLoop deletes aged history rows once a day.
func pruneLoop(ctx context.Context, st *store.Store) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := st.Prune(historyRetentionDays); err != nil {
				log.Warn().Err(err).Msg("history prune failed")
			} else if n > 0 {
				log.Info().Int64("rows", n).Msg("history pruned")
			}
		}
	}
}

// parseLogLevel converts a string log level to a zerolog.Level.
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
