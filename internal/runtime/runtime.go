// Package runtime wires storage, the chat platform, and the queue directory
// into a single-node instance. It exposes Open/Close, a basic health check,
// and the service facade used by the transports.
package runtime

import (
	"context"

	pkgerrors "github.com/pkg/errors"

	"github.com/CryLyo/EduBot/internal/config"
	"github.com/CryLyo/EduBot/internal/directory"
	"github.com/CryLyo/EduBot/internal/platform"
	"github.com/CryLyo/EduBot/internal/platform/fake"
	"github.com/CryLyo/EduBot/internal/queue"
	queuesvc "github.com/CryLyo/EduBot/internal/services/queues"
	"github.com/CryLyo/EduBot/internal/storage"
	filestore "github.com/CryLyo/EduBot/internal/storage/file"
	pebblestore "github.com/CryLyo/EduBot/internal/storage/pebble"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config config.Config
	// Chat is the platform adapter. When nil, an in-memory fake is used,
	// which suits tests and local development.
	Chat   platform.Chat
	Logger logpkg.Logger
}

// Runtime holds the wired components of one instance.
type Runtime struct {
	cfg    config.Config
	store  storage.Store
	chat   platform.Chat
	dir    *directory.Directory
	svc    *queuesvc.Service
	logger logpkg.Logger
}

// Open initializes the storage backend and wires the directory and service.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}

	store, err := openStore(opts.Config.Storage)
	if err != nil {
		return nil, err
	}

	chat := opts.Chat
	if chat == nil {
		chat = fake.New()
		logger.Warn("no chat adapter configured, using in-memory fake")
	}

	dir := directory.New(store, queue.Deps{Chat: chat, Logger: logger})
	svc := queuesvc.New(dir, chat, logger)

	return &Runtime{
		cfg:    opts.Config,
		store:  store,
		chat:   chat,
		dir:    dir,
		svc:    svc,
		logger: logger,
	}, nil
}

func openStore(cfg config.Storage) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return filestore.Open(cfg.DataDir)
	case config.BackendPebble:
		fsync := pebblestore.FsyncModeInterval
		switch cfg.Fsync {
		case config.FsyncAlways:
			fsync = pebblestore.FsyncModeAlways
		case config.FsyncNever:
			fsync = pebblestore.FsyncModeNever
		}
		return pebblestore.Open(pebblestore.Options{DataDir: cfg.DataDir, Fsync: fsync})
	}
	return nil, pkgerrors.Errorf("unknown storage backend %q", cfg.Backend)
}

// Close releases storage resources.
func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// CheckHealth verifies the storage backend responds.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return pkgerrors.New("store not open")
	}
	_, err := r.store.List(ctx)
	return err
}

// Directory returns the queue directory.
func (r *Runtime) Directory() *directory.Directory { return r.dir }

// Service returns the queues facade.
func (r *Runtime) Service() *queuesvc.Service { return r.svc }

// Config returns the runtime configuration.
func (r *Runtime) Config() config.Config { return r.cfg }
