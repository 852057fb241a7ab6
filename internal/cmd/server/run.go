// Package serverrun exposes the shared Run entrypoint used by the CLI to
// start the queue server, handling lifecycle, persistence sweeps, and
// shutdown.
package serverrun

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CryLyo/EduBot/internal/config"
	"github.com/CryLyo/EduBot/internal/runtime"
	httpserver "github.com/CryLyo/EduBot/internal/server/http"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// Options configures a server run. Non-empty fields override the loaded
// configuration.
type Options struct {
	ConfigPath string
	Addr       string
	DataDir    string
	Backend    string
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails. Saved queues are restored at startup and every live queue
// is persisted on shutdown.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}
	if opts.Backend != "" {
		cfg.Storage.Backend = opts.Backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, err := logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting edubot server",
		logpkg.Str("addr", cfg.Server.Addr),
		logpkg.Str("backend", cfg.Storage.Backend),
		logpkg.Str("data_dir", cfg.Storage.DataDir),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	if n, err := rt.Directory().LoadAll(sctx); err != nil {
		logger.Warn("restoring saved queues failed", logpkg.Err(err))
	} else if n > 0 {
		logger.Info("restored saved queues", logpkg.Int("count", n))
	}

	srv := httpserver.New(cfg.Server, rt.Service(), logger)
	err = srv.Serve(sctx)
	if err != nil && sctx.Err() == nil {
		return err
	}

	// Persist everything before the store closes.
	if _, err := rt.Directory().SaveAll(context.Background()); err != nil {
		logger.Error("saving queues on shutdown failed", logpkg.Err(err))
	}
	return nil
}
