package handlers

import (
	"net/http"

	"github.com/clinsignal/clinsignal/internal/application/risk"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
)

// RiskHandler handles readmission risk HTTP requests.
type RiskHandler struct {
	svc    risk.Service
	logger logging.Logger
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(svc risk.Service, logger logging.Logger) *RiskHandler {
	return &RiskHandler{svc: svc, logger: logger.Named("risk")}
}

// PredictRequest is the request body for single-note risk scoring.
type PredictRequest struct {
	Text string `json:"text"`
}

// PredictReadmission handles POST /api/v1/predict/readmission.
func (h *RiskHandler) PredictReadmission(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	assessment, err := h.svc.PredictReadmission(r.Context(), req.Text)
	if err != nil {
		h.logger.Warn("readmission prediction failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// Trajectory handles POST /api/v1/predict/trajectory.
func (h *RiskHandler) Trajectory(w http.ResponseWriter, r *http.Request) {
	var input risk.TrajectoryInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	traj, err := h.svc.Trajectory(r.Context(), &input)
	if err != nil {
		h.logger.Warn("trajectory computation failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, traj)
}

// BatchRequest is the request body for batch risk scoring.
type BatchRequest struct {
	Texts []string `json:"texts"`
}

// BatchResponse is the response body for batch risk scoring.
type BatchResponse struct {
	Items []risk.BatchItem `json:"items"`
	Total int              `json:"total"`
}

// BatchAssess handles POST /api/v1/predict/batch.
func (h *RiskHandler) BatchAssess(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	items, err := h.svc.BatchAssess(r.Context(), req.Texts)
	if err != nil {
		h.logger.Warn("batch assessment failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Items: items, Total: len(items)})
}
