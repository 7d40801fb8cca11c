// Package docstore is the remote document contract the sync
// coordinator talks to, and the backends that implement it.
//
// A document holds one canvas snapshot plus the time it was written.
// Writes are whole-document overwrites; the last writer wins.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get for a document that was never written.
	ErrNotFound = errors.New("document not found")

	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("store closed")
)

// Record is the stored form of a canvas document.
type Record struct {
	CanvasData json.RawMessage `json:"canvasData"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Document is one state of a subscribed document as seen by a
// subscriber. Exists is false until the first write.
type Document struct {
	ID     string
	Exists bool
	Record Record
}

// Store is a document store with live change notification.
type Store interface {
	// Get returns the stored record or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// Upsert creates or overwrites the document.
	Upsert(ctx context.Context, id string, rec Record) error

	// Subscribe delivers the current state of the document, then every
	// later write, to onSnapshot. Deliveries for one subscription never
	// overlap. onError reports a broken subscription; no further
	// snapshots follow it. The returned function ends the subscription
	// and may be called more than once.
	Subscribe(ctx context.Context, id string, onSnapshot func(Document), onError func(error)) (unsubscribe func(), err error)

	Close() error
}

func (r Record) clone() Record {
	r.CanvasData = append(json.RawMessage(nil), r.CanvasData...)
	return r
}
