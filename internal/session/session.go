// Package session owns one editor's view of one canvas document: the
// scene, its interaction controller, the debounced writer and the
// remote subscription.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"CanvasBoard/internal/clock"
	"CanvasBoard/internal/docstore"
	"CanvasBoard/internal/state"
)

// State is the load state of a session's document.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrClosed   = errors.New("session closed")
	ErrReadOnly = errors.New("session is read-only")
)

type Options struct {
	// ID names the document. Required.
	ID string
	// Store is the remote document store. Required.
	Store docstore.Store

	ReadOnly bool

	// Quiescence is the debounce window; zero means one second.
	Quiescence time.Duration
	Clock      clock.Clock
	Logger     *log.Logger

	// StaleGuard stamps outbound snapshots with a revision and skips
	// inbound snapshots that are not newer than the last local edit.
	StaleGuard bool

	SceneOptions []state.SceneOption

	// Hooks are subscribed on the scene before the first hydration.
	// They run with the session locked and must not call back into it.
	Hooks state.Hooks

	OnStateChange func(State, error)
	OnWriteError  func(error)
}

// Session is the Sync Coordinator for one document. All methods are
// safe for concurrent use; they are serialised on one lock.
type Session struct {
	id     string
	store  docstore.Store
	clock  clock.Clock
	logger *log.Logger
	opts   Options

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	scene     *state.Scene
	ctrl      *state.Controller
	debouncer *state.Debouncer
	revs      *state.Revisions
	localRev  uint64
	state     State
	err       error
	closed    bool

	ready     chan struct{}
	readyOnce sync.Once
	writeErrs chan error
	writes    sync.WaitGroup

	unsubscribeScene func()
	unsubscribeStore func()
}

// Open creates the session and subscribes to its document. The first
// snapshot may arrive before Open returns; use Ready to wait for it.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.ID == "" {
		return nil, errors.New("session: empty document id")
	}
	if opts.Store == nil {
		return nil, errors.New("session: no store")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		id:        opts.ID,
		store:     opts.Store,
		clock:     opts.Clock,
		logger:    opts.Logger.With("canvas", opts.ID),
		opts:      opts,
		ctx:       sctx,
		cancel:    cancel,
		scene:     state.NewScene(opts.SceneOptions...),
		revs:      state.NewRevisions(),
		ready:     make(chan struct{}),
		writeErrs: make(chan error, 8),
	}
	s.ctrl = state.NewController(s.scene)
	s.scene.Subscribe(opts.Hooks)

	if opts.ReadOnly {
		s.ctrl.SetReadOnly(true)
	} else {
		s.debouncer = state.NewDebouncer(s.clock, opts.Quiescence, s.flush)
		s.unsubscribeScene = s.scene.Subscribe(state.Hooks{OnMutation: s.onMutation})
	}

	unsubscribe, err := s.store.Subscribe(ctx, s.id, s.applyRemote, s.fail)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.id, err)
	}
	s.mu.Lock()
	s.unsubscribeStore = unsubscribe
	closed := s.closed
	s.mu.Unlock()
	if closed {
		unsubscribe()
	}
	return s, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) ReadOnly() bool { return s.opts.ReadOnly }

// Ready is closed once the first snapshot has been applied or the
// subscription failed.
func (s *Session) Ready() <-chan struct{} { return s.ready }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the subscription error of a failed session.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// WriteErrors reports remote write failures. Errors are dropped when
// nobody drains the channel. The channel is closed by Close.
func (s *Session) WriteErrors() <-chan error { return s.writeErrs }

// Close stops the pending write, ends the subscription and waits for a
// write already in flight. No write is issued afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.debouncer != nil {
		s.debouncer.Stop()
	}
	unsubscribeStore, unsubscribeScene := s.unsubscribeStore, s.unsubscribeScene
	s.mu.Unlock()

	if unsubscribeStore != nil {
		unsubscribeStore()
	}
	if unsubscribeScene != nil {
		unsubscribeScene()
	}
	s.cancel()
	s.writes.Wait()
	close(s.writeErrs)
	s.readyOnce.Do(func() { close(s.ready) })
	return nil
}

func (s *Session) setState(st State, err error) {
	s.state, s.err = st, err
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(st, err)
	}
	if st != StateLoading {
		s.readyOnce.Do(func() { close(s.ready) })
	}
}

// onMutation runs under the session lock from the scene's hooks.
func (s *Session) onMutation(kind state.MutationKind) {
	if s.opts.StaleGuard {
		s.localRev = s.revs.Tick()
	}
	s.logger.Debug("scene changed", "kind", kind)
	s.debouncer.Trigger()
}

// flush captures the scene and writes it out. The capture happens
// under the lock; the write does not.
func (s *Session) flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.writes.Add(1)
	defer s.writes.Done()
	snap := state.ToSnapshot(s.scene)
	if s.opts.StaleGuard {
		snap.Revision = s.localRev
		snap.Origin = s.revs.Site()
	}
	data, err := snap.Encode()
	s.mu.Unlock()
	if err != nil {
		s.reportWriteError(fmt.Errorf("encode snapshot: %w", err))
		return
	}

	rec := docstore.Record{CanvasData: data, UpdatedAt: s.clock.Now().UTC()}
	if err := s.store.Upsert(s.ctx, s.id, rec); err != nil {
		s.reportWriteError(err)
		return
	}
	s.logger.Debug("snapshot written", "objects", len(snap.Objects), "bytes", len(data))
}

func (s *Session) reportWriteError(err error) {
	s.logger.Error("remote write failed", "err", err)
	if s.opts.OnWriteError != nil {
		s.opts.OnWriteError(err)
	}
	select {
	case s.writeErrs <- err:
	default:
	}
}

// applyRemote hydrates the scene from an inbound document. Inbound
// state always wins unless the stale guard rejects it.
func (s *Session) applyRemote(doc docstore.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	snap := state.EmptySnapshot()
	if doc.Exists {
		decoded, err := state.DecodeSnapshot(doc.Record.CanvasData)
		if err != nil {
			s.rejectInbound(err)
			return
		}
		snap = decoded
	}

	if s.opts.StaleGuard && doc.Exists {
		if s.localRev > 0 && snap.Revision <= s.localRev {
			s.logger.Debug("skipping stale snapshot", "revision", snap.Revision, "local", s.localRev)
			s.markReady()
			return
		}
		s.revs.Observe(snap.Revision)
	}

	if err := state.FromSnapshot(snap, s.scene); err != nil {
		s.rejectInbound(err)
		return
	}
	s.ctrl.Reapply()
	s.logger.Debug("hydrated", "exists", doc.Exists, "objects", s.scene.Len())
	s.markReady()
}

// rejectInbound keeps the previous scene when a snapshot cannot be
// hydrated.
func (s *Session) rejectInbound(err error) {
	s.logger.Warn("ignoring malformed snapshot", "err", err)
	s.markReady()
}

func (s *Session) markReady() {
	if s.state != StateReady {
		s.setState(StateReady, nil)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.logger.Error("subscription failed", "err", err)
	s.setState(StateFailed, err)
}

// Flush writes any pending change now instead of waiting out the
// quiescence window.
func (s *Session) Flush() {
	if s.debouncer == nil || !s.debouncer.Cancel() {
		return
	}
	s.flush()
}

// View returns a copy of the scene for rendering.
func (s *Session) View() state.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.View()
}

// Brush returns the free-draw brush once a drawing session created it.
func (s *Session) Brush() (state.Brush, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Brush()
}

// Export renders the visible scene with r.
func (s *Session) Export(w io.Writer, r state.Renderer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Rasterize(w, r)
}
