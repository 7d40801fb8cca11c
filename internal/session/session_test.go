package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"CanvasBoard/internal/clock"
	"CanvasBoard/internal/docstore"
	"CanvasBoard/internal/state"
)

const docID = "canvas-1"

// countingStore records the writes a session issues.
type countingStore struct {
	docstore.Store

	mu      sync.Mutex
	upserts []docstore.Record
	failing error
}

func (c *countingStore) Upsert(ctx context.Context, id string, rec docstore.Record) error {
	c.mu.Lock()
	c.upserts = append(c.upserts, rec)
	err := c.failing
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.Store.Upsert(ctx, id, rec)
}

func (c *countingStore) writes() []docstore.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]docstore.Record(nil), c.upserts...)
}

func (c *countingStore) setFailing(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = err
}

func newClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func open(t *testing.T, store docstore.Store, c clock.Clock, mutate func(*Options)) *Session {
	t.Helper()
	opts := Options{
		ID:     docID,
		Store:  store,
		Clock:  c,
		Logger: quietLogger(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("session never became ready")
	}
	return s
}

func decode(t *testing.T, rec docstore.Record) *state.Snapshot {
	t.Helper()
	snap, err := state.DecodeSnapshot(rec.CanvasData)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error: %v", err)
	}
	return snap
}

func put(t *testing.T, store docstore.Store, snap *state.Snapshot) {
	t.Helper()
	data, err := snap.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if err := store.Upsert(context.Background(), docID, docstore.Record{CanvasData: data, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
}

func TestEmptyDocumentThenOneWrite(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	c := newClock()
	s := open(t, store, c, nil)

	if s.State() != StateReady {
		t.Fatalf("State() = %v, want ready", s.State())
	}
	v := s.View()
	if len(v.Objects) != 0 || v.Background != state.DefaultBackground {
		t.Fatalf("empty document hydrated to %+v", v)
	}

	if _, ok := s.AddRectangle(); !ok {
		t.Fatal("AddRectangle() refused")
	}
	c.Advance(999 * time.Millisecond)
	if n := len(store.writes()); n != 0 {
		t.Fatalf("%d writes before the window elapsed", n)
	}
	c.Advance(time.Millisecond)

	writes := store.writes()
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}
	snap := decode(t, writes[0])
	if snap.Version != state.SnapshotVersion || len(snap.Objects) != 1 || snap.Objects[0].Type != state.KindRect {
		t.Errorf("written snapshot = %+v", snap)
	}
	if !writes[0].UpdatedAt.Equal(c.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", writes[0].UpdatedAt, c.Now())
	}

	// The echo of our own write hydrates without scheduling another.
	c.Advance(10 * time.Second)
	if n := len(store.writes()); n != 1 {
		t.Errorf("got %d writes after the echo, want 1", n)
	}
}

func TestBurstOfEditsWritesOnce(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	c := newClock()
	s := open(t, store, c, nil)

	s.AddRectangle()
	c.Advance(300 * time.Millisecond)
	s.AddCircle()
	c.Advance(300 * time.Millisecond)
	id, _ := s.AddText()
	s.SetNamedProperty(id, "text", "last")
	c.Advance(time.Second)

	writes := store.writes()
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}
	snap := decode(t, writes[0])
	if len(snap.Objects) != 3 || *snap.Objects[2].Text != "last" {
		t.Errorf("write does not reflect the final state: %+v", snap.Objects)
	}
}

func TestInboundSnapshotReplacesLocalScene(t *testing.T) {
	mem := docstore.NewMemory()
	c1, c2 := newClock(), newClock()
	s1 := open(t, mem, c1, nil)
	s2 := open(t, mem, c2, nil)

	s2.AddCircle()
	s2.AddCircle()
	rect, _ := s1.AddRectangle()
	c1.Advance(time.Second)

	v := s2.View()
	if len(v.Objects) != 1 {
		t.Fatalf("session 2 has %d objects, want session 1's single rectangle", len(v.Objects))
	}
	if v.Objects[0].ID != rect || v.Objects[0].Kind() != state.KindRect {
		t.Errorf("session 2 object = %s %s, want rect %s", v.Objects[0].Kind(), v.Objects[0].ID, rect)
	}
}

func TestReadOnlySession(t *testing.T) {
	mem := docstore.NewMemory()
	src := state.NewScene()
	src.AddObject(state.DefaultRect())
	put(t, mem, state.ToSnapshot(src))

	store := &countingStore{Store: mem}
	c := newClock()
	s := open(t, store, c, func(o *Options) { o.ReadOnly = true })

	v := s.View()
	if len(v.Objects) != 1 {
		t.Fatalf("read-only session has %d objects, want 1", len(v.Objects))
	}
	if v.Objects[0].Selectable || v.Objects[0].Evented {
		t.Error("hydrated object interactive in a read-only session")
	}

	if _, ok := s.AddRectangle(); ok {
		t.Error("AddRectangle() accepted")
	}
	if s.EnableDrawing() {
		t.Error("EnableDrawing() accepted")
	}
	if s.SelectAt(v.Objects[0].X+1, v.Objects[0].Y+1) != "" {
		t.Error("SelectAt() selected an object")
	}
	if s.DeleteSelected() || s.Clear() {
		t.Error("destructive action accepted")
	}
	if s.SetProperty(v.Objects[0].ID, state.Fill("#000000")) {
		t.Error("SetProperty() accepted")
	}
	c.Advance(5 * time.Second)
	if n := len(store.writes()); n != 0 {
		t.Errorf("read-only session wrote %d times", n)
	}
}

func TestWriteFailureIsReported(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	store.setFailing(errors.New("network down"))
	c := newClock()

	var reported []error
	s := open(t, store, c, func(o *Options) {
		o.OnWriteError = func(err error) { reported = append(reported, err) }
	})

	s.AddRectangle()
	c.Advance(time.Second)
	if len(reported) != 1 {
		t.Fatalf("OnWriteError called %d times, want 1", len(reported))
	}
	select {
	case err := <-s.WriteErrors():
		if err.Error() != "network down" {
			t.Errorf("WriteErrors() = %v", err)
		}
	default:
		t.Error("WriteErrors() empty")
	}
	if len(s.View().Objects) != 1 {
		t.Error("local state lost after a failed write")
	}

	store.setFailing(nil)
	s.AddCircle()
	c.Advance(time.Second)
	writes := store.writes()
	if len(writes) != 2 {
		t.Fatalf("got %d write attempts, want 2", len(writes))
	}
	if got := len(decode(t, writes[1]).Objects); got != 2 {
		t.Errorf("retry carried %d objects, want 2", got)
	}
}

func TestCloseCancelsPendingWrite(t *testing.T) {
	mem := docstore.NewMemory()
	store := &countingStore{Store: mem}
	c := newClock()
	s := open(t, store, c, nil)

	s.AddRectangle()
	s.Close()
	c.Advance(5 * time.Second)

	if n := len(store.writes()); n != 0 {
		t.Errorf("closed session wrote %d times", n)
	}
	if n := mem.Subscribers(docID); n != 0 {
		t.Errorf("%d subscriptions left after Close", n)
	}
	if _, ok := s.AddRectangle(); ok {
		t.Error("AddRectangle() accepted after Close")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestCloseEndsWriteErrors(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	store.setFailing(errors.New("network down"))
	c := newClock()
	s := open(t, store, c, nil)

	s.AddRectangle()
	c.Advance(time.Second)

	done := make(chan int)
	go func() {
		n := 0
		for range s.WriteErrors() {
			n++
		}
		done <- n
	}()

	s.Close()
	select {
	case n := <-done:
		if n != 1 {
			t.Errorf("drained %d write errors, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("WriteErrors() still open after Close")
	}
}

func TestSubscriptionFailure(t *testing.T) {
	mem := docstore.NewMemory()
	var states []State
	s := open(t, mem, newClock(), func(o *Options) {
		o.OnStateChange = func(st State, _ error) { states = append(states, st) }
	})

	mem.Close()
	if s.State() != StateFailed {
		t.Fatalf("State() = %v, want failed", s.State())
	}
	if !errors.Is(s.Err(), docstore.ErrClosed) {
		t.Errorf("Err() = %v, want ErrClosed", s.Err())
	}
	if len(states) != 2 || states[0] != StateReady || states[1] != StateFailed {
		t.Errorf("state changes = %v", states)
	}
}

func TestMalformedInboundKeepsScene(t *testing.T) {
	mem := docstore.NewMemory()
	store := &countingStore{Store: mem}
	c := newClock()
	s := open(t, store, c, nil)
	s.AddRectangle()
	c.Advance(time.Second)

	mem.Upsert(context.Background(), docID, docstore.Record{CanvasData: []byte(`{"objects":[]}`)})
	mem.Upsert(context.Background(), docID, docstore.Record{CanvasData: []byte(`{"version":"5.3.0","objects":[{"type":"star"}]}`)})

	if n := len(s.View().Objects); n != 1 {
		t.Errorf("scene has %d objects after malformed inbound, want 1", n)
	}
	if s.State() != StateReady {
		t.Errorf("State() = %v", s.State())
	}
}

func TestInboundHydrationDoesNotWrite(t *testing.T) {
	mem := docstore.NewMemory()
	store := &countingStore{Store: mem}
	c := newClock()
	s := open(t, store, c, nil)

	src := state.NewScene()
	src.AddObject(state.DefaultCircle())
	put(t, mem, state.ToSnapshot(src))
	c.Advance(5 * time.Second)

	if len(s.View().Objects) != 1 {
		t.Fatal("inbound snapshot not applied")
	}
	if n := len(store.writes()); n != 0 {
		t.Errorf("hydration caused %d writes", n)
	}
}

func TestStaleGuard(t *testing.T) {
	stale := state.EmptySnapshot()
	stale.Revision = 2
	stale.Origin = "other"
	fresh := state.EmptySnapshot()
	fresh.Revision = 10
	fresh.Origin = "other"

	tests := []struct {
		name    string
		guard   bool
		inbound *state.Snapshot
		want    int
	}{
		{"guard skips older revision", true, stale, 3},
		{"guard applies newer revision", true, fresh, 0},
		{"no guard always applies", false, stale, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := docstore.NewMemory()
			s := open(t, mem, newClock(), func(o *Options) { o.StaleGuard = tt.guard })
			s.AddRectangle()
			s.AddCircle()
			s.AddText()

			put(t, mem, tt.inbound)
			if n := len(s.View().Objects); n != tt.want {
				t.Errorf("scene has %d objects, want %d", n, tt.want)
			}
		})
	}
}

func TestStaleGuardStampsWrites(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	c := newClock()
	s := open(t, store, c, func(o *Options) { o.StaleGuard = true })

	s.AddRectangle()
	s.AddCircle()
	c.Advance(time.Second)

	snap := decode(t, store.writes()[0])
	if snap.Revision != 2 || snap.Origin == "" {
		t.Errorf("revision = %d origin = %q, want 2 and a site id", snap.Revision, snap.Origin)
	}
	if n := len(s.View().Objects); n != 2 {
		t.Errorf("own echo changed the scene to %d objects", n)
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	c := newClock()
	s := open(t, store, c, nil)

	s.Flush()
	if n := len(store.writes()); n != 0 {
		t.Fatalf("Flush() with nothing pending wrote %d times", n)
	}
	s.AddRectangle()
	s.Flush()
	c.Advance(5 * time.Second)
	if n := len(store.writes()); n != 1 {
		t.Errorf("got %d writes, want 1", n)
	}
}

func TestActionsFollowSelection(t *testing.T) {
	s := open(t, docstore.NewMemory(), newClock(), nil)

	id, _ := s.AddRectangle()
	sel, ok := s.Selected()
	if !ok || sel.ID != id {
		t.Fatalf("Selected() = %v, %v; want new rectangle", sel, ok)
	}
	if !s.SetNamedProperty(id, "width", 150.0) {
		t.Error("SetNamedProperty(width) refused")
	}
	if s.SetNamedProperty(id, "radius", 3.0) {
		t.Error("radius applied to a rectangle")
	}

	if !s.DeleteSelected() {
		t.Fatal("DeleteSelected() refused")
	}
	if s.DeleteSelected() {
		t.Error("DeleteSelected() with no selection reported success")
	}
	if len(s.View().Objects) != 0 {
		t.Error("object not deleted")
	}
}

func TestDrawingThroughSession(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	c := newClock()
	s := open(t, store, c, nil)

	if s.SetBrushColor("#ff0000") {
		t.Error("SetBrushColor() before drawing should be a no-op")
	}
	if _, ok := s.CompleteStroke([]state.Point{{X: 1, Y: 1}, {X: 5, Y: 5}}); ok {
		t.Error("stroke accepted while idle")
	}
	s.EnableDrawing()
	s.SetBrushColor("#ff0000")
	s.SetBrushWidth(8)
	if _, ok := s.CompleteStroke([]state.Point{{X: 1, Y: 1}, {X: 5, Y: 5}}); !ok {
		t.Fatal("stroke refused while drawing")
	}
	if _, ok := s.AddRectangle(); !ok {
		t.Error("AddRectangle() refused while drawing")
	}
	c.Advance(time.Second)

	snap := decode(t, store.writes()[0])
	if len(snap.Objects) != 2 || snap.Objects[0].Type != state.KindPath {
		t.Fatalf("written objects = %+v", snap.Objects)
	}
	if snap.Objects[0].Stroke != "#ff0000" || *snap.Objects[0].BrushWidth != 8 {
		t.Errorf("stroke = %s/%v", snap.Objects[0].Stroke, *snap.Objects[0].BrushWidth)
	}
	if s.Mode() != state.ModeDrawing {
		t.Error("snapshot capture left drawing mode")
	}
	if b, ok := s.Brush(); !ok || b.Color != "#ff0000" {
		t.Errorf("Brush() = %+v, %v", b, ok)
	}
}

func TestOpenValidatesOptions(t *testing.T) {
	if _, err := Open(context.Background(), Options{Store: docstore.NewMemory()}); err == nil {
		t.Error("Open() accepted an empty id")
	}
	if _, err := Open(context.Background(), Options{ID: docID}); err == nil {
		t.Error("Open() accepted a nil store")
	}
	closed := docstore.NewMemory()
	closed.Close()
	if _, err := Open(context.Background(), Options{ID: docID, Store: closed}); !errors.Is(err, docstore.ErrClosed) {
		t.Errorf("Open() on a closed store = %v, want ErrClosed", err)
	}
}
