package docstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Subscribers are notified
// synchronously from Upsert.
type Memory struct {
	mu     sync.Mutex
	docs   map[string]Record
	closed bool
	hub    *hub
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Record), hub: newHub()}
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Record{}, ErrClosed
	}
	rec, ok := m.docs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec.clone(), nil
}

func (m *Memory) Upsert(ctx context.Context, id string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	rec = rec.clone()
	m.docs[id] = rec
	m.mu.Unlock()

	m.hub.publish(Document{ID: id, Exists: true, Record: rec})
	return nil
}

func (m *Memory) Subscribe(_ context.Context, id string, onSnapshot func(Document), onError func(error)) (func(), error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	rec, exists := m.docs[id]
	sub := m.hub.add(id, onSnapshot, onError)
	// Hold the subscriber until the initial state is delivered so a
	// concurrent Upsert cannot overtake it.
	sub.mu.Lock()
	m.mu.Unlock()
	sub.deliverLocked(Document{ID: id, Exists: exists, Record: rec})
	sub.mu.Unlock()

	return m.hub.remove(id, sub), nil
}

// Subscribers returns the number of live subscriptions on id.
func (m *Memory) Subscribers(id string) int { return m.hub.count(id) }

func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.hub.failAll(ErrClosed)
	return nil
}
