package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"CanvasBoard/internal/clock"
	"CanvasBoard/internal/docstore"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/session"
	"CanvasBoard/internal/state"
)

const rectDoc = `{"version":"5.3.0","objects":[{"type":"rect","id":"r1","left":10,"top":20,"width":100,"height":50,"fill":"#ff0000"}],"background":"#ffffff"}`

func newTestServer(t *testing.T) (*httptest.Server, docstore.Store) {
	t.Helper()
	_, ts, store := startServer(t)
	return ts, store
}

func startServer(t *testing.T) (*Server, *httptest.Server, docstore.Store) {
	t.Helper()
	store := docstore.NewMemory()
	srv := New(Options{
		Store:      store,
		Logger:     log.New(io.Discard),
		PublicHost: "board.local:8080",
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		store.Close()
	})
	return srv, ts, store
}

func put(t *testing.T, url, canvasData string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]json.RawMessage{"canvasData": json.RawMessage(canvasData)})
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp
}

func TestCreateReturnsShareLinks(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/api/canvases", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var c Created
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}
	edit, err := boardnet.ParseLink(c.EditURL)
	if err != nil || edit.ID != c.ID || edit.Host != "board.local:8080" || edit.ViewOnly {
		t.Errorf("edit link %q parsed to %+v, %v", c.EditURL, edit, err)
	}
	view, err := boardnet.ParseLink(c.ViewOnlyURL)
	if err != nil || view.ID != c.ID || !view.ViewOnly {
		t.Errorf("view link %q parsed to %+v, %v", c.ViewOnlyURL, view, err)
	}
}

func TestPutAndGet(t *testing.T) {
	ts, _ := newTestServer(t)
	url := ts.URL + "/api/canvases/doc1"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET before write = %d, want 404", resp.StatusCode)
	}

	if resp := put(t, url, rectDoc); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT = %d, want 204", resp.StatusCode)
	}

	resp, err = http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var rec docstore.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatal(err)
	}
	if rec.UpdatedAt.IsZero() {
		t.Error("updatedAt not stamped")
	}
	snap, err := state.DecodeSnapshot(rec.CanvasData)
	if err != nil || len(snap.Objects) != 1 || snap.Objects[0].ID != "r1" {
		t.Errorf("stored snapshot = %+v, %v", snap, err)
	}
}

func TestPutRejectsMalformed(t *testing.T) {
	ts, store := newTestServer(t)
	tests := map[string]string{
		"no version":   `{"objects":[]}`,
		"unknown type": `{"version":"5.3.0","objects":[{"type":"triangle"}]}`,
		"not object":   `[1,2,3]`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if resp := put(t, ts.URL+"/api/canvases/bad", doc); resp.StatusCode != http.StatusBadRequest {
				t.Errorf("PUT = %d, want 400", resp.StatusCode)
			}
		})
	}
	if _, err := store.Get(context.Background(), "bad"); err == nil {
		t.Error("malformed document was stored")
	}
}

func TestExport(t *testing.T) {
	ts, _ := newTestServer(t)
	put(t, ts.URL+"/api/canvases/doc1", rectDoc)

	tests := []struct {
		query       string
		status      int
		contentType string
		prefix      string
	}{
		{query: "", status: 200, contentType: "image/png", prefix: "\x89PNG"},
		{query: "?format=svg", status: 200, contentType: "image/svg+xml", prefix: "<?xml"},
		{query: "?format=pdf", status: 200, contentType: "application/pdf", prefix: "%PDF"},
		{query: "?format=gif", status: 400},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/canvases/doc1/export" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status != 200 {
				return
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			body, _ := io.ReadAll(resp.Body)
			if !bytes.HasPrefix(body, []byte(tt.prefix)) {
				t.Errorf("body starts %q, want %q", body[:min(len(body), 8)], tt.prefix)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	ts, store := newTestServer(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, resp.StatusCode)
		}
	}

	store.Close()
	resp, err := http.Get(ts.URL + "/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready on closed store = %d, want 503", resp.StatusCode)
	}
}

func TestWebsocketFrames(t *testing.T) {
	srv, ts, _ := startServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/canvases/doc1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var f docstore.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	if f.Type != docstore.FrameSnapshot || f.Exists {
		t.Fatalf("first frame = %+v, want a snapshot of a missing document", f)
	}
	if n := srv.Peers().Count("doc1"); n != 1 {
		t.Errorf("Peers().Count(doc1) = %d, want 1", n)
	}
	if n := srv.Peers().Count("other"); n != 0 {
		t.Errorf("Peers().Count(other) = %d, want 0", n)
	}

	put(t, ts.URL+"/api/canvases/doc1", rectDoc)
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	if !f.Exists || f.UpdatedAt == nil || !strings.Contains(string(f.CanvasData), `"r1"`) {
		t.Errorf("frame after write = %+v", f)
	}
}

func TestRemoteStoreContract(t *testing.T) {
	ts, _ := newTestServer(t)
	remote, err := docstore.NewRemote(ts.URL, log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer remote.Close()
	ctx := context.Background()

	if _, err := remote.Get(ctx, "doc1"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	docs := make(chan docstore.Document, 4)
	unsubscribe, err := remote.Subscribe(ctx, "doc1",
		func(d docstore.Document) { docs <- d },
		func(err error) { t.Errorf("subscription error: %v", err) })
	if err != nil {
		t.Fatal(err)
	}
	if d := <-docs; d.Exists {
		t.Fatalf("initial document exists: %+v", d)
	}

	rec := docstore.Record{CanvasData: json.RawMessage(rectDoc), UpdatedAt: time.Unix(100, 0).UTC()}
	if err := remote.Upsert(ctx, "doc1", rec); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-docs:
		if !d.Exists || !d.Record.UpdatedAt.Equal(rec.UpdatedAt) {
			t.Errorf("pushed document = %+v", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no document pushed after upsert")
	}
	unsubscribe()
	unsubscribe()
}

// Two editors on one document through the service converge.
func TestSessionsConvergeThroughService(t *testing.T) {
	ts, _ := newTestServer(t)
	open := func(readOnly bool) *session.Session {
		t.Helper()
		remote, err := docstore.NewRemote(ts.URL, log.New(io.Discard))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { remote.Close() })
		s, err := session.Open(context.Background(), session.Options{
			ID:       "shared",
			Store:    remote,
			ReadOnly: readOnly,
			Clock:    clock.Fake(time.Unix(0, 0)),
			Logger:   log.New(io.Discard),
		})
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { s.Close() })
		select {
		case <-s.Ready():
		case <-time.After(5 * time.Second):
			t.Fatal("session never became ready")
		}
		return s
	}

	editor := open(false)
	viewer := open(true)

	if _, ok := editor.AddCircle(); !ok {
		t.Fatal("AddCircle refused")
	}
	editor.Flush()

	deadline := time.Now().Add(5 * time.Second)
	for len(viewer.View().Objects) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("viewer has %d objects, want 1", len(viewer.View().Objects))
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, ok := viewer.AddRectangle(); ok {
		t.Error("read-only viewer accepted an edit")
	}
}
