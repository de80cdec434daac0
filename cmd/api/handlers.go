package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fitmentiq/fitment-engine/engine/domain"
	"github.com/fitmentiq/fitment-engine/engine/fitment"
	"github.com/fitmentiq/fitment-engine/pkg/events"
	"github.com/fitmentiq/fitment-engine/pkg/refdata"
)

type apiServer struct {
	engine *fitment.Engine
	store  refdata.MappingStore
	nats   *nats.Conn
	log    *slog.Logger
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ParseRequest is the JSON body for POST /api/applications/parse.
type ParseRequest struct {
	Text          string `json:"text"`
	TerminologyID int64  `json:"terminology_id"`
}

// ParseResponse carries the validation results for one application string.
type ParseResponse struct {
	Results []domain.ValidationResult `json:"results"`
}

func (s *apiServer) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	results, err := s.engine.ProcessApplication(r.Context(), req.Text, req.TerminologyID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParseResponse{Results: results})
}

// BatchRequest is the JSON body for POST /api/applications/batch.
type BatchRequest struct {
	Texts         []string `json:"texts"`
	TerminologyID int64    `json:"terminology_id"`
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Texts) == 0 {
		writeError(w, http.StatusBadRequest, "texts is required")
		return
	}

	items, err := s.engine.BatchProcess(r.Context(), req.Texts, req.TerminologyID)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RefreshMappings(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	// Fan the refresh out to other instances when the bus is wired.
	if s.nats != nil {
		sig := events.MappingsRefresh{Source: "api", Timestamp: time.Now().UTC()}
		if err := events.Publish(r.Context(), s.nats, events.SubjectMappingsRefresh, sig); err != nil {
			s.log.Error("refresh publish failed", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": len(s.engine.Mappings())})
}

func (s *apiServer) handleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.store.ListMappings(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mappings)
}

func (s *apiServer) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	var m domain.ModelMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.Pattern == "" || m.Make == "" || m.Code == "" || m.Model == "" {
		writeError(w, http.StatusUnprocessableEntity, "pattern, make, code, and model are required")
		return
	}
	if err := s.store.UpsertMapping(r.Context(), m); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *apiServer) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	pattern := r.PathValue("pattern")
	if err := s.store.DeleteMapping(r.Context(), pattern); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "mapping not found")
			return
		}
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError translates the engine's error taxonomy into HTTP statuses:
// parse failures are the client's problem, configuration problems are
// unprocessable, provider failures are upstream trouble.
func (s *apiServer) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsParseError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMalformedMapping):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.log.Error("engine error", "err", err)
		writeError(w, http.StatusBadGateway, "reference data unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
