package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/publisher"
)

type HealthHandler struct {
	DB Pinger
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "service_unhealthy", "database unreachable")
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DB: "ok"})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	doc, err := s.pub.Build(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).ErrorWith("schema preview failed", err, nil)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type publishResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	runID, err := s.pub.PublishAsync()
	switch {
	case errors.Is(err, publisher.ErrPublishDisabled):
		writeError(w, http.StatusServiceUnavailable, "publish_disabled", "publishing is not configured")
	case errors.Is(err, publisher.ErrPublishBusy):
		writeError(w, http.StatusConflict, "publish_busy", "a publish is already pending")
	case errors.Is(err, publisher.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "publish_unavailable", "publisher is not running")
	case err != nil:
		writeErr(w, err)
	default:
		writeJSON(w, http.StatusAccepted, publishResponse{RunID: runID, Status: "queued"})
	}
}

type publishStatusResponse struct {
	Enabled bool           `json:"enabled"`
	LastRun *publisher.Run `json:"lastRun"`
}

func (s *Server) handlePublishStatus(w http.ResponseWriter, r *http.Request) {
	resp := publishStatusResponse{Enabled: s.pub.Enabled()}
	if run, ok := s.pub.LastRun(); ok {
		resp.LastRun = &run
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a positive integer")
			return
		}
		limit = n
	}

	objects, err := s.history.History(r.Context(), s.cfg.Component, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"component": s.cfg.Component,
		"archives":  objects,
	})
}
