package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/ronbun/internal/ingest"
	"github.com/hyperjump/ronbun/internal/models"
	"github.com/hyperjump/ronbun/internal/retrieval"
)

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	response, err := s.engine.Answer(r.Context(), req.Query, req.TopK, req.MaxFigures)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			s.respondError(w, http.StatusBadRequest, "query is required")
			return
		}
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type ingestRequest struct {
	Paths []string `json:"paths,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	s.logger.Debug("ingest request", zap.Strings("paths", req.Paths))
	// A rebuild clears the store before writing; it must survive the
	// middleware timeout and client disconnects or the corpus is left empty.
	report, err := s.ingestor.Run(context.WithoutCancel(r.Context()), req.Paths...)
	if err != nil {
		if errors.Is(err, ingest.ErrRunInProgress) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docs, err := s.corpus.Documents(r.Context())
	if err != nil {
		s.logger.Error("status: list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ingested, failed := 0, 0
	for _, d := range docs {
		if d.State == models.DocumentFailed {
			failed++
		} else {
			ingested++
		}
	}
	phase, lastRun := s.ingestor.Status()
	resp := map[string]interface{}{
		"phase":     phase,
		"documents": ingested,
		"failed":    failed,
		"chunks":    s.chunks.Count(),
	}
	if lastRun != nil {
		resp["last_run"] = lastRun
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
