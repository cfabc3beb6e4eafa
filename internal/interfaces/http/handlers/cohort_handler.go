package handlers

import (
	"net/http"

	"github.com/clinsignal/clinsignal/internal/application/cohort"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
)

// CohortHandler handles cohort identification HTTP requests.
type CohortHandler struct {
	svc    cohort.Service
	logger logging.Logger
}

// NewCohortHandler creates a new CohortHandler.
func NewCohortHandler(svc cohort.Service, logger logging.Logger) *CohortHandler {
	return &CohortHandler{svc: svc, logger: logger.Named("cohort")}
}

// Identify handles POST /api/v1/cohort/identify.
func (h *CohortHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var criteria cohort.Criteria
	if err := decodeJSON(r, &criteria); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.Identify(r.Context(), &criteria)
	if err != nil {
		h.logger.Warn("cohort identification failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// FindSimilar handles POST /api/v1/cohort/similar.
func (h *CohortHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	var input cohort.SimilarInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.FindSimilar(r.Context(), &input)
	if err != nil {
		h.logger.Warn("similar patient lookup failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AnalyzeRequest is the request body for cohort analysis.
type AnalyzeRequest struct {
	PatientIDs []string `json:"patient_ids"`
}

// Analyze handles POST /api/v1/cohort/analyze.
func (h *CohortHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.Analyze(r.Context(), req.PatientIDs)
	if err != nil {
		h.logger.Warn("cohort analysis failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
