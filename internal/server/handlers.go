package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kabhi-dev/apimon/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// endpointPayload is the request body for create and update.
type endpointPayload struct {
	URL                string `json:"url"`
	HeaderName         string `json:"header_name"`
	HeaderValue        string `json:"header_value"`
	IntervalMinutes    int    `json:"interval_minutes"`
	Category           string `json:"category"`
	NotificationTarget string `json:"notification_target"`
	IsActive           *bool  `json:"is_active"`
}

func (p *endpointPayload) validate() string {
	if p.URL == "" {
		return "url is required"
	}
	if p.IntervalMinutes <= 0 {
		return "interval_minutes must be greater than zero"
	}
	return ""
}

func (p *endpointPayload) apply(e *store.Endpoint) {
	e.URL = p.URL
	e.HeaderName = p.HeaderName
	e.HeaderValue = p.HeaderValue
	e.IntervalMinutes = p.IntervalMinutes
	e.Category = p.Category
	e.NotificationTarget = p.NotificationTarget
	e.IsActive = true
	if p.IsActive != nil {
		e.IsActive = *p.IsActive
	}
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := s.store.ListEndpoints(r.Context())
	if err != nil {
		s.storeError(w, "ListEndpoints", err)
		return
	}
	if endpoints == nil {
		endpoints = []store.Endpoint{}
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (s *Server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	var p endpointPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := p.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var e store.Endpoint
	p.apply(&e)
	if err := s.store.CreateEndpoint(r.Context(), &e); err != nil {
		if errors.Is(err, store.ErrDuplicateURL) {
			writeError(w, http.StatusConflict, "this URL is already monitored")
			return
		}
		s.storeError(w, "CreateEndpoint", err)
		return
	}
	s.logger.Info("endpoint_created", zap.Int64("id", e.ID), zap.String("url", e.URL))
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.GetEndpoint(r.Context(), id)
	if err != nil {
		s.storeError(w, "GetEndpoint", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p endpointPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := p.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	e, err := s.store.GetEndpoint(r.Context(), id)
	if err != nil {
		s.storeError(w, "GetEndpoint", err)
		return
	}
	p.apply(e)
	if err := s.store.UpdateEndpoint(r.Context(), e); err != nil {
		s.storeError(w, "UpdateEndpoint", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteEndpoint(r.Context(), id); err != nil {
		s.storeError(w, "DeleteEndpoint", err)
		return
	}
	s.logger.Info("endpoint_deleted", zap.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type historyResponse struct {
	Logs       []store.CheckLog `json:"logs"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	const perPage = 15
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid page parameter")
			return
		}
		page = n
	}

	logs, total, err := s.store.History(r.Context(), id, perPage, (page-1)*perPage)
	if err != nil {
		s.storeError(w, "History", err)
		return
	}
	if logs == nil {
		logs = []store.CheckLog{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Logs:       logs,
		Total:      total,
		Page:       page,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	since := time.Now().UTC().Add(-24 * time.Hour)
	logs, err := s.store.DailySummary(r.Context(), id, since)
	if err != nil {
		s.storeError(w, "DailySummary", err)
		return
	}
	if logs == nil {
		logs = []store.CheckLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleLogDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	l, err := s.store.LogDetail(r.Context(), id)
	if err != nil {
		s.storeError(w, "LogDetail", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleLogsSince(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = n
	}

	const maxLimit = 500
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	logs, err := s.store.LogsSince(r.Context(), since, limit)
	if err != nil {
		s.storeError(w, "LogsSince", err)
		return
	}
	if logs == nil {
		logs = []store.CheckLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

type checkPayload struct {
	URL         string `json:"url"`
	HeaderName  string `json:"header_name"`
	HeaderValue string `json:"header_value"`
}

// handleCheck runs a one-shot phased probe without persisting anything,
// for trying out a URL before monitoring it.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var p checkPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	var headers map[string]string
	if p.HeaderName != "" {
		headers = map[string]string{p.HeaderName: p.HeaderValue}
	}

	res, err := s.prober.Measure(r.Context(), p.URL, headers)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
