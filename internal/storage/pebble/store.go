// Package pebblestore persists queue documents in a Pebble key-value store.
//
// Documents live under `queues/<guild>/<channel>` keys, so listing all saved
// queues is one prefix scan. The fsync policy is configurable; the default
// coalesces WAL syncs over a short interval.
package pebblestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	pkgerrors "github.com/pkg/errors"

	"github.com/CryLyo/EduBot/internal/queue"
	"github.com/CryLyo/EduBot/internal/storage"
)

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed write.
	FsyncModeAlways
	// FsyncModeInterval lets Pebble coalesce WAL syncs for writes within the
	// configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application. Pebble
	// may still sync based on its own policies.
	FsyncModeNever
)

// Options configures the Pebble store.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning of Pebble. If nil, defaults are used.
	PebbleOptions *pebble.Options
}

const keyPrefix = "queues/"

// Store is a Pebble-backed storage.Store.
type Store struct {
	inner     *pebble.DB
	writeSync bool
}

var _ storage.Store = (*Store)(nil)

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*Store, error) {
	if opts.DataDir == "" {
		return nil, pkgerrors.New("pebble: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync is requested per commit; WALMinSyncInterval stays at default.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open pebble")
	}
	return &Store{inner: inner, writeSync: opts.Fsync == FsyncModeAlways}, nil
}

// Close closes the Pebble database.
func (s *Store) Close() error {
	if s == nil || s.inner == nil {
		return nil
	}
	return s.inner.Close()
}

func scopeKey(scope queue.Scope) []byte {
	return []byte(fmt.Sprintf("%s%d/%d", keyPrefix, scope.Guild, scope.Channel))
}

// parseScopeKey inverts scopeKey. Malformed keys are reported so a corrupted
// store surfaces instead of silently dropping documents.
func parseScopeKey(key []byte) (queue.Scope, error) {
	rest := strings.TrimPrefix(string(key), keyPrefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return queue.Scope{}, pkgerrors.Errorf("malformed queue key %q", key)
	}
	guild, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return queue.Scope{}, pkgerrors.Wrapf(err, "malformed queue key %q", key)
	}
	channel, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return queue.Scope{}, pkgerrors.Wrapf(err, "malformed queue key %q", key)
	}
	return queue.Scope{Guild: guild, Channel: channel}, nil
}

// Put writes the document for a scope.
func (s *Store) Put(_ context.Context, scope queue.Scope, data []byte) error {
	b := s.inner.NewBatch()
	defer b.Close()
	if err := b.Set(scopeKey(scope), data, nil); err != nil {
		return pkgerrors.Wrap(err, "batch set")
	}
	return s.commit(b)
}

// Get reads the document for a scope.
func (s *Store) Get(_ context.Context, scope queue.Scope) ([]byte, error) {
	val, closer, err := s.inner.Get(scopeKey(scope))
	if err != nil {
		if pkgerrors.Is(err, pebble.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "pebble get")
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

// Delete removes the document for a scope.
func (s *Store) Delete(_ context.Context, scope queue.Scope) error {
	b := s.inner.NewBatch()
	defer b.Close()
	if err := b.Delete(scopeKey(scope), nil); err != nil {
		return pkgerrors.Wrap(err, "batch delete")
	}
	return s.commit(b)
}

// List scans the queue key prefix and returns every saved document.
func (s *Store) List(_ context.Context) ([]storage.Doc, error) {
	iter, err := s.inner.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "\xff"),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "pebble iterator")
	}
	defer iter.Close()

	var docs []storage.Doc
	for iter.First(); iter.Valid(); iter.Next() {
		scope, err := parseScopeKey(iter.Key())
		if err != nil {
			return nil, err
		}
		val, err := iter.ValueAndErr()
		if err != nil {
			return nil, pkgerrors.Wrap(err, "pebble iterator value")
		}
		docs = append(docs, storage.Doc{Scope: scope, Data: append([]byte(nil), val...)})
	}
	if err := iter.Error(); err != nil {
		return nil, pkgerrors.Wrap(err, "pebble iterator")
	}
	return docs, nil
}

func (s *Store) commit(b *pebble.Batch) error {
	syncMode := pebble.NoSync
	if s.writeSync {
		syncMode = pebble.Sync
	}
	return b.Commit(syncMode)
}
