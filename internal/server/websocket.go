package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"CanvasBoard/internal/docstore"
	boardnet "CanvasBoard/internal/net"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleSubscribe streams the document to a websocket peer: the current
// state first, then every write. A slow peer only ever receives the
// newest snapshot.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "id", id, "err", err)
		return
	}
	defer conn.Close()

	remove := s.peers.Add(&boardnet.Peer{Conn: conn, Doc: id})
	defer remove()

	latest := make(chan docstore.Frame, 1)
	push := func(f docstore.Frame) {
		for {
			select {
			case latest <- f:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	}

	ctx := r.Context()
	unsubscribe, err := s.store.Subscribe(ctx, id,
		func(doc docstore.Document) { push(docstore.SnapshotFrame(doc)) },
		func(err error) { push(docstore.Frame{Type: docstore.FrameError, Message: err.Error()}) })
	if err != nil {
		s.logger.Error("subscribe failed", "id", id, "err", err)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteJSON(docstore.Frame{Type: docstore.FrameError, Message: err.Error()})
		return
	}
	defer unsubscribe()
	s.logger.Info("peer subscribed", "id", id, "remote", r.RemoteAddr, "peers", s.peers.Count(id))

	// The read side only handles control frames and notices a close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case f := <-latest:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				s.logger.Debug("peer write failed", "id", id, "err", err)
				return
			}
			if f.Type == docstore.FrameError {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			s.logger.Info("peer left", "id", id, "remote", r.RemoteAddr)
			return
		case <-ctx.Done():
			return
		}
	}
}
