// Package directory tracks the live queue per scope and moves queues to and
// from persistent storage.
package directory

import (
	"context"
	"sort"
	"sync"

	pkgerrors "github.com/pkg/errors"

	"github.com/CryLyo/EduBot/internal/queue"
	"github.com/CryLyo/EduBot/internal/storage"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

// Directory maps each (guild, channel) scope to at most one live queue.
// Queue operations themselves run under the queue's own mutex; the directory
// lock only guards the map.
type Directory struct {
	mu     sync.RWMutex
	queues map[queue.Scope]queue.Queue

	store  storage.Store
	deps   queue.Deps
	logger logpkg.Logger
}

// New returns an empty directory backed by the given store.
func New(store storage.Store, deps queue.Deps) *Directory {
	logger := deps.Logger
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
		deps.Logger = logger
	}
	return &Directory{
		queues: make(map[queue.Scope]queue.Queue),
		store:  store,
		deps:   deps,
		logger: logger.With(logpkg.Component("directory")),
	}
}

// Make creates a new queue for a scope. A scope holds at most one queue.
func (d *Directory) Make(scope queue.Scope, names queue.Names, kind queue.Kind) (queue.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.queues[scope]; ok {
		return nil, queue.ErrAlreadyExists
	}
	q, err := queue.New(kind, scope, names, d.deps)
	if err != nil {
		return nil, err
	}
	d.queues[scope] = q
	d.logger.Info("queue created",
		logpkg.Str("scope", scope.String()), logpkg.Str("kind", string(kind)))
	return q, nil
}

// Get returns the live queue for a scope.
func (d *Directory) Get(scope queue.Scope) (queue.Queue, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	q, ok := d.queues[scope]
	return q, ok
}

// Delete drops the live queue for a scope and removes its saved document.
func (d *Directory) Delete(ctx context.Context, scope queue.Scope) error {
	d.mu.Lock()
	if _, ok := d.queues[scope]; !ok {
		d.mu.Unlock()
		return queue.ErrNotFound
	}
	delete(d.queues, scope)
	d.mu.Unlock()
	return pkgerrors.Wrap(d.store.Delete(ctx, scope), "delete saved queue")
}

// Convert replaces the scope's queue with the other review kind, carrying
// over participants, topics, and the indicator message. The swap is atomic:
// readers see either the old queue or the finished new one.
func (d *Directory) Convert(scope queue.Scope, target queue.Kind, seedTopic string) (queue.Queue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old, ok := d.queues[scope]
	if !ok {
		return nil, queue.ErrNotFound
	}
	q, err := queue.Convert(old, target, seedTopic)
	if err != nil {
		return nil, err
	}
	d.queues[scope] = q
	d.logger.Info("queue converted",
		logpkg.Str("scope", scope.String()),
		logpkg.Str("from", string(old.Kind())), logpkg.Str("to", string(target)))
	return q, nil
}

// Scopes lists the scopes with a live queue, ordered for stable output.
func (d *Directory) Scopes() []queue.Scope {
	d.mu.RLock()
	defer d.mu.RUnlock()
	scopes := make([]queue.Scope, 0, len(d.queues))
	for s := range d.queues {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].Guild != scopes[j].Guild {
			return scopes[i].Guild < scopes[j].Guild
		}
		return scopes[i].Channel < scopes[j].Channel
	})
	return scopes
}

// Save persists the scope's live queue.
func (d *Directory) Save(ctx context.Context, scope queue.Scope) error {
	q, ok := d.Get(scope)
	if !ok {
		return queue.ErrNotFound
	}
	data, err := queue.Marshal(q)
	if err != nil {
		return err
	}
	return pkgerrors.Wrap(d.store.Put(ctx, scope, data), "save queue")
}

// Load rebuilds the scope's queue from its saved document, replacing any
// live queue. A missing or unreadable document reports ErrNotFound and
// leaves the scope untouched.
func (d *Directory) Load(ctx context.Context, scope queue.Scope) (queue.Queue, error) {
	data, err := d.store.Get(ctx, scope)
	if err != nil {
		if pkgerrors.Is(err, storage.ErrNotFound) {
			return nil, queue.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "load queue")
	}
	q, err := queue.Unmarshal(scope, data, d.deps)
	if err != nil {
		d.logger.Warn("saved queue unreadable",
			logpkg.Str("scope", scope.String()), logpkg.Err(err))
		return nil, queue.ErrNotFound
	}
	d.mu.Lock()
	d.queues[scope] = q
	d.mu.Unlock()
	d.logger.Info("queue loaded",
		logpkg.Str("scope", scope.String()),
		logpkg.Str("kind", string(q.Kind())), logpkg.Int("size", q.Size()))
	return q, nil
}

// SaveAll persists every live queue. The first error aborts the sweep.
func (d *Directory) SaveAll(ctx context.Context) (int, error) {
	saved := 0
	for _, scope := range d.Scopes() {
		if err := d.Save(ctx, scope); err != nil {
			return saved, pkgerrors.Wrapf(err, "save queue %s", scope)
		}
		saved++
	}
	d.logger.Info("queues saved", logpkg.Int("count", saved))
	return saved, nil
}

// LoadAll rebuilds a queue for every saved document. Unreadable documents
// are logged and skipped so one corrupt file cannot block startup.
func (d *Directory) LoadAll(ctx context.Context) (int, error) {
	docs, err := d.store.List(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "list saved queues")
	}
	loaded := 0
	for _, doc := range docs {
		q, err := queue.Unmarshal(doc.Scope, doc.Data, d.deps)
		if err != nil {
			d.logger.Warn("saved queue unreadable",
				logpkg.Str("scope", doc.Scope.String()), logpkg.Err(err))
			continue
		}
		d.mu.Lock()
		d.queues[doc.Scope] = q
		d.mu.Unlock()
		loaded++
	}
	d.logger.Info("queues loaded", logpkg.Int("count", loaded))
	return loaded, nil
}
