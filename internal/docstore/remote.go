package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Frame is one message of the websocket feed served at
// /api/canvases/{id}/ws.
type Frame struct {
	Type       string          `json:"type"`
	Exists     bool            `json:"exists"`
	CanvasData json.RawMessage `json:"canvasData,omitempty"`
	UpdatedAt  *time.Time      `json:"updatedAt,omitempty"`
	Message    string          `json:"message,omitempty"`
}

const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// SnapshotFrame builds the frame announcing doc.
func SnapshotFrame(doc Document) Frame {
	f := Frame{Type: FrameSnapshot, Exists: doc.Exists}
	if doc.Exists {
		at := doc.Record.UpdatedAt
		f.CanvasData = doc.Record.CanvasData
		f.UpdatedAt = &at
	}
	return f
}

func (f Frame) document(id string) Document {
	doc := Document{ID: id, Exists: f.Exists}
	if f.Exists {
		doc.Record.CanvasData = f.CanvasData
		if f.UpdatedAt != nil {
			doc.Record.UpdatedAt = *f.UpdatedAt
		}
	}
	return doc
}

// Remote is a Store served by another process's document service
// over HTTP, with subscriptions carried on a websocket.
type Remote struct {
	base   *url.URL
	client *http.Client
	dialer *websocket.Dialer
	logger *log.Logger

	mu     sync.Mutex
	closed bool
	conns  map[*websocket.Conn]struct{}
	wg     sync.WaitGroup
}

// NewRemote returns a client for the service at baseURL, e.g.
// "http://192.168.1.20:8080".
func NewRemote(baseURL string, logger *log.Logger) (*Remote, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("remote url: unsupported scheme %q", u.Scheme)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Remote{
		base:   u,
		client: &http.Client{Timeout: 15 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}, nil
}

func (r *Remote) docURL(id string) string {
	return r.base.String() + "/api/canvases/" + url.PathEscape(id)
}

func (r *Remote) wsURL(id string) string {
	u := *r.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String() + "/api/canvases/" + url.PathEscape(id) + "/ws"
}

func (r *Remote) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Remote) Get(ctx context.Context, id string) (Record, error) {
	if r.isClosed() {
		return Record{}, ErrClosed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.docURL(id), nil)
	if err != nil {
		return Record{}, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Record{}, ErrNotFound
	}
	if err := statusError(resp); err != nil {
		return Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	var rec Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("get %s: decode: %w", id, err)
	}
	return rec, nil
}

func (r *Remote) Upsert(ctx context.Context, id string, rec Record) error {
	if r.isClosed() {
		return ErrClosed
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.docURL(id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	defer resp.Body.Close()
	if err := statusError(resp); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (r *Remote) Subscribe(ctx context.Context, id string, onSnapshot func(Document), onError func(error)) (func(), error) {
	if r.isClosed() {
		return nil, ErrClosed
	}
	conn, _, err := r.dialer.DialContext(ctx, r.wsURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", id, err)
	}

	sub := &subscriber{onSnapshot: onSnapshot, onError: onError}
	var first Frame
	conn.SetReadDeadline(time.Now().Add(r.dialer.HandshakeTimeout))
	if err := conn.ReadJSON(&first); err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", id, err)
	}
	conn.SetReadDeadline(time.Time{})
	if first.Type == FrameError {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %s", id, first.Message)
	}
	sub.deliver(first.document(id))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return nil, ErrClosed
	}
	r.conns[conn] = struct{}{}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				if r.isClosed() {
					err = ErrClosed
				}
				sub.fail(err)
				return
			}
			switch f.Type {
			case FrameSnapshot:
				sub.deliver(f.document(id))
			case FrameError:
				sub.fail(errors.New(f.Message))
				conn.Close()
				return
			default:
				r.logger.Debug("ignoring frame", "id", id, "type", f.Type)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stop()
			r.mu.Lock()
			delete(r.conns, conn)
			r.mu.Unlock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		})
	}, nil
}

func (r *Remote) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	conns := r.conns
	r.conns = nil
	r.mu.Unlock()

	for conn := range conns {
		conn.Close()
	}
	r.wg.Wait()
	r.client.CloseIdleConnections()
	return nil
}
