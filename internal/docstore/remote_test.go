package docstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

func TestRemoteSubscribeTimesOutWithoutSnapshot(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	remote, err := NewRemote(srv.URL, log.NewWithOptions(io.Discard, log.Options{}))
	if err != nil {
		t.Fatalf("NewRemote() error: %v", err)
	}
	defer remote.Close()
	remote.dialer.HandshakeTimeout = 200 * time.Millisecond

	errc := make(chan error, 1)
	go func() {
		_, err := remote.Subscribe(context.Background(), "doc1", func(Document) {}, func(error) {})
		errc <- err
	}()

	select {
	case err := <-errc:
		if err == nil {
			t.Fatal("Subscribe() succeeded without an initial snapshot")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe() blocked on a silent server")
	}
}
