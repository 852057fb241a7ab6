// Package storage defines the persistence contract for queue documents.
//
// A document is the serialized envelope of one queue, keyed by its
// (guild, channel) scope. Two backends implement the contract: a Pebble
// key-value store and a one-file-per-scope directory layout.
package storage

import (
	"context"
	"errors"

	"github.com/CryLyo/EduBot/internal/queue"
)

// ErrNotFound is returned by Get for a scope with no saved document.
var ErrNotFound = errors.New("storage: document not found")

// Doc is one persisted queue document.
type Doc struct {
	Scope queue.Scope
	Data  []byte
}

// Store persists queue documents by scope.
type Store interface {
	// Put writes the document for a scope, replacing any previous one.
	Put(ctx context.Context, scope queue.Scope, data []byte) error

	// Get reads the document for a scope. ErrNotFound when absent.
	Get(ctx context.Context, scope queue.Scope) ([]byte, error)

	// Delete removes the document for a scope. Absent documents are fine.
	Delete(ctx context.Context, scope queue.Scope) error

	// List returns every saved document.
	List(ctx context.Context) ([]Doc, error)

	// Close releases backend resources.
	Close() error
}
