// Package filestore persists queue documents as one JSON file per scope.
//
// The layout is a flat directory of `<guild>-<channel>.json` files, readable
// and editable by hand. It suits small deployments and debugging; the Pebble
// backend is the default.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/CryLyo/EduBot/internal/queue"
	"github.com/CryLyo/EduBot/internal/storage"
)

// Store is a directory-backed storage.Store.
type Store struct {
	dir string
}

var _ storage.Store = (*Store)(nil)

// Open ensures the data directory exists and returns a store over it.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, pkgerrors.New("filestore: data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, pkgerrors.Wrap(err, "create data directory")
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(scope queue.Scope) string {
	return filepath.Join(s.dir, fmt.Sprintf("%d-%d.json", scope.Guild, scope.Channel))
}

// parseName inverts the `<guild>-<channel>.json` naming. Files that do not
// match are skipped by List: the directory may hold unrelated files.
func parseName(name string) (queue.Scope, bool) {
	base := strings.TrimSuffix(name, ".json")
	if base == name {
		return queue.Scope{}, false
	}
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return queue.Scope{}, false
	}
	guild, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return queue.Scope{}, false
	}
	channel, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return queue.Scope{}, false
	}
	return queue.Scope{Guild: guild, Channel: channel}, true
}

// Put writes the document for a scope.
func (s *Store) Put(_ context.Context, scope queue.Scope, data []byte) error {
	return pkgerrors.Wrap(os.WriteFile(s.path(scope), data, 0o644), "write queue file")
}

// Get reads the document for a scope.
func (s *Store) Get(_ context.Context, scope queue.Scope) ([]byte, error) {
	data, err := os.ReadFile(s.path(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "read queue file")
	}
	return data, nil
}

// Delete removes the document for a scope.
func (s *Store) Delete(_ context.Context, scope queue.Scope) error {
	if err := os.Remove(s.path(scope)); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrap(err, "remove queue file")
	}
	return nil
}

// List reads every scope file in the directory.
func (s *Store) List(_ context.Context) ([]storage.Doc, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "read data directory")
	}
	var docs []storage.Doc
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		scope, ok := parseName(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "read queue file %s", e.Name())
		}
		docs = append(docs, storage.Doc{Scope: scope, Data: data})
	}
	return docs, nil
}

// Close is a no-op: files are closed after each operation.
func (s *Store) Close() error { return nil }
