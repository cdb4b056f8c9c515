// Package handlers exposes the HTTP surface: POST /identify and GET
// /health. Handlers decode and validate requests, map the service's error
// taxonomy onto status codes, and never leak internal error detail.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"contactlink/internal/errs"
	"contactlink/internal/logging"
	"contactlink/internal/models"
	"contactlink/internal/service"
)

// IdentifyHandler handles the /identify endpoint.
type IdentifyHandler struct {
	service *service.ReconciliationService
}

// NewIdentifyHandler creates a new identify handler.
func NewIdentifyHandler(svc *service.ReconciliationService) *IdentifyHandler {
	return &IdentifyHandler{service: svc}
}

// Handle processes one identify request.
func (h *IdentifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req models.IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Rejected malformed identify request")
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}

	resp, err := h.service.Identify(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps the error taxonomy onto HTTP statuses: validation
// faults are 400, data-integrity faults 500, retryable store faults 503.
func (h *IdentifyHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	switch {
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errs.IsRetryable(err):
		log.Warn().Err(err).Msg("Retryable fault during reconciliation")
		writeError(w, http.StatusServiceUnavailable, "RETRYABLE", "temporary failure, please retry")
	case errs.IsDataIntegrity(err):
		log.Error().Err(err).Msg("Data integrity fault during reconciliation")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	default:
		log.Error().Err(err).Msg("Reconciliation failed")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// Health reports service liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
