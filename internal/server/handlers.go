package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"CanvasBoard/internal/docstore"
	"CanvasBoard/internal/export"
	boardnet "CanvasBoard/internal/net"
	"CanvasBoard/internal/state"
)

// Created is the response to POST /api/canvases.
type Created struct {
	ID          string `json:"id"`
	EditURL     string `json:"editUrl"`
	ViewOnlyURL string `json:"viewOnlyUrl"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// A lookup of an unknown id proves the backend answers.
	_, err := s.store.Get(r.Context(), "health-probe")
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"peers":  s.peers.Count(""),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	host := s.publicHost
	if host == "" {
		host = r.Host
	}
	link := boardnet.Link{Host: host, ID: state.NewObjectID()}
	view := link
	view.ViewOnly = true
	writeJSON(w, http.StatusCreated, Created{
		ID:          link.ID,
		EditURL:     link.String(),
		ViewOnlyURL: view.String(),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var rec docstore.Record
	body := io.LimitReader(r.Body, maxDocumentBytes)
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode record: %w", err))
		return
	}
	if err := validate(rec.CanvasData, s.sceneOpts); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	if err := s.store.Upsert(r.Context(), id, rec); err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Debug("document written", "id", id, "bytes", len(rec.CanvasData))
	w.WriteHeader(http.StatusNoContent)
}

// validate hydrates data into a scratch scene, so only snapshots an
// editor could load are stored.
func validate(data []byte, opts []state.SceneOption) error {
	return hydrate(data, state.NewScene(opts...))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format := export.FormatPNG
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		format = f
	}
	renderer, err := format.Renderer()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	scene := state.NewScene(s.sceneOpts...)
	rec, err := s.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
	case err != nil:
		writeStoreError(w, err)
		return
	default:
		if err := hydrate(rec.CanvasData, scene); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "canvas"+format.Extension()))
	if err := scene.Rasterize(w, renderer); err != nil {
		s.logger.Error("export failed", "id", id, "format", format, "err", err)
	}
}

func hydrate(data []byte, scene *state.Scene) error {
	snap, err := state.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	return state.FromSnapshot(snap, scene)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, docstore.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}
