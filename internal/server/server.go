// Package server is the HTTP document service: it stores canvas
// documents in a docstore backend and streams their changes to
// websocket subscribers.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"CanvasBoard/internal/docstore"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/state"
)

// maxDocumentBytes bounds a PUT body.
const maxDocumentBytes = 16 << 20

type Options struct {
	Store  docstore.Store
	Logger *log.Logger

	// PublicHost is the host:port written into share links. Empty means
	// the Host header of the request.
	PublicHost string

	// SceneOptions configure the scene used to render exports.
	SceneOptions []state.SceneOption
}

type Server struct {
	store      docstore.Store
	logger     *log.Logger
	publicHost string
	sceneOpts  []state.SceneOption
	peers      *boardnet.PeerManager
	upgrader   websocket.Upgrader
	router     chi.Router
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{
		store:      opts.Store,
		logger:     opts.Logger,
		publicHost: opts.PublicHost,
		sceneOpts:  opts.SceneOptions,
		peers:      boardnet.NewPeerManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Editors connect from other machines on the LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health/live", s.handleLive)
	r.Get("/health/ready", s.handleReady)

	r.Route("/api/canvases", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handlePut)
			r.Get("/ws", s.handleSubscribe)
			r.Get("/export", s.handleExport)
		})
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.router }

// Peers is the registry of live websocket subscribers.
func (s *Server) Peers() *boardnet.PeerManager { return s.peers }

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("document service listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	// Hijacked websocket connections are not closed by Shutdown.
	s.peers.CloseAll()
	err := srv.Shutdown(shutdownCtx)
	if e := <-errc; !errors.Is(e, http.ErrServerClosed) && err == nil {
		err = e
	}
	return err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start))
	})
}
