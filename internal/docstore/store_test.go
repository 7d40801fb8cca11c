package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(data string) Record {
	return Record{CanvasData: []byte(data), UpdatedAt: testTime}
}

// recorder collects subscription callbacks.
type recorder struct {
	mu   sync.Mutex
	docs []Document
	errs []error
}

func (r *recorder) onSnapshot(d Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, d)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) snapshot() ([]Document, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Document(nil), r.docs...), append([]error(nil), r.errs...)
}

// exerciseStore runs the contract every in-process backend must meet.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "doc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on missing doc = %v, want ErrNotFound", err)
	}

	var rec recorder
	unsubscribe, err := s.Subscribe(ctx, "doc", rec.onSnapshot, rec.onError)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}

	if err := s.Upsert(ctx, "doc", record(`{"version":"5.3.0","objects":[]}`)); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := s.Upsert(ctx, "other", record(`{}`)); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	got, err := s.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got.CanvasData) != `{"version":"5.3.0","objects":[]}` || !got.UpdatedAt.Equal(testTime) {
		t.Errorf("Get() = %s at %v", got.CanvasData, got.UpdatedAt)
	}

	docs, errs := rec.snapshot()
	if len(errs) != 0 {
		t.Fatalf("subscription errors: %v", errs)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d deliveries, want initial + 1 write", len(docs))
	}
	if docs[0].Exists {
		t.Error("initial delivery should report a missing document")
	}
	if !docs[1].Exists || docs[1].ID != "doc" {
		t.Errorf("second delivery = %+v", docs[1])
	}

	unsubscribe()
	unsubscribe()
	s.Upsert(ctx, "doc", record(`{"version":"5.3.0","objects":[],"background":"#000"}`))
	if docs, _ := rec.snapshot(); len(docs) != 2 {
		t.Errorf("delivery after unsubscribe: %d", len(docs))
	}

	var late recorder
	unsubscribe, err = s.Subscribe(ctx, "doc", late.onSnapshot, late.onError)
	if err != nil {
		t.Fatalf("Subscribe() error: %v", err)
	}
	defer unsubscribe()
	docs, _ = late.snapshot()
	if len(docs) != 1 || !docs[0].Exists || string(docs[0].Record.CanvasData) != `{"version":"5.3.0","objects":[],"background":"#000"}` {
		t.Errorf("late subscriber got %+v, want current document", docs)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if _, errs := late.snapshot(); len(errs) != 1 || !errors.Is(errs[0], ErrClosed) {
		t.Errorf("subscriber errors after Close = %v, want ErrClosed", errs)
	}
	if err := s.Upsert(ctx, "doc", record(`{}`)); !errors.Is(err, ErrClosed) {
		t.Errorf("Upsert() after Close = %v, want ErrClosed", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemoryStoreIsolatesRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	rec := record(`{"a":1}`)
	m.Upsert(ctx, "doc", rec)
	rec.CanvasData[2] = 'X'

	got, _ := m.Get(ctx, "doc")
	if string(got.CanvasData) != `{"a":1}` {
		t.Errorf("stored record aliased caller memory: %s", got.CanvasData)
	}
}

func TestMemorySubscribers(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var rec recorder
	u1, _ := m.Subscribe(ctx, "doc", rec.onSnapshot, nil)
	u2, _ := m.Subscribe(ctx, "doc", rec.onSnapshot, nil)
	if n := m.Subscribers("doc"); n != 2 {
		t.Errorf("Subscribers() = %d, want 2", n)
	}
	u1()
	u2()
	if n := m.Subscribers("doc"); n != 0 {
		t.Errorf("Subscribers() = %d after unsubscribe, want 0", n)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), t.TempDir()+"/canvases.db")
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	exerciseStore(t, s)
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/nested/canvases.db"

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	s.Upsert(ctx, "doc", record(`{"version":"5.3.0","objects":[]}`))
	s.Upsert(ctx, "doc", record(`{"version":"5.3.0","objects":[],"background":"#eee"}`))
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "doc")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got.CanvasData) != `{"version":"5.3.0","objects":[],"background":"#eee"}` {
		t.Errorf("Get() = %s, want last write", got.CanvasData)
	}
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{})
	if err != nil {
		t.Fatalf("Open(default) error: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("default backend = %T, want *Memory", s)
	}

	if _, err := Open(ctx, Options{Backend: "etcd"}); err == nil {
		t.Error("Open() accepted an unknown backend")
	}
	if _, err := Open(ctx, Options{Backend: BackendSQLite}); err == nil {
		t.Error("Open(sqlite) accepted an empty path")
	}
	if _, err := Open(ctx, Options{Backend: BackendRemote, RemoteURL: "ftp://host"}); err == nil {
		t.Error("Open(remote) accepted a non-http url")
	}
}

func TestMongoRegisterAfterClose(t *testing.T) {
	m := &Mongo{cancels: make(map[*subscriber]context.CancelFunc)}
	cancelled := 0
	cancel := func() { cancelled++ }

	if !m.register(&subscriber{}, cancel) {
		t.Fatal("register() refused on an open store")
	}
	if len(m.cancels) != 1 {
		t.Fatalf("registered %d watches, want 1", len(m.cancels))
	}
	m.wg.Done()

	// What Close leaves behind.
	m.mu.Lock()
	m.closed = true
	m.cancels = nil
	m.mu.Unlock()

	if m.register(&subscriber{}, cancel) {
		t.Fatal("register() accepted a watch on a closed store")
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refused registration left a count on the wait group")
	}
	if cancelled != 0 {
		t.Errorf("register() called cancel %d times", cancelled)
	}
}
