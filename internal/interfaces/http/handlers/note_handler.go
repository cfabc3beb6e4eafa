package handlers

import (
	"net/http"

	"github.com/clinsignal/clinsignal/internal/application/notes"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
	"github.com/clinsignal/clinsignal/pkg/types/clinical"
)

// NoteHandler handles note processing HTTP requests.
type NoteHandler struct {
	svc    notes.Service
	logger logging.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(svc notes.Service, logger logging.Logger) *NoteHandler {
	return &NoteHandler{svc: svc, logger: logger.Named("notes")}
}

// ProcessNote handles POST /api/v1/notes/process.
func (h *NoteHandler) ProcessNote(w http.ResponseWriter, r *http.Request) {
	var input notes.ProcessInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.ProcessNote(r.Context(), &input)
	if err != nil {
		h.logger.Warn("note processing failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExtractRequest is the request body for standalone entity extraction.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse is the response body for standalone entity extraction.
type ExtractResponse struct {
	Entities []clinical.EntitySpan `json:"entities"`
	Total    int                   `json:"total"`
}

// ExtractEntities handles POST /api/v1/entities/extract.
func (h *NoteHandler) ExtractEntities(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	spans, err := h.svc.ExtractEntities(r.Context(), req.Text)
	if err != nil {
		h.logger.Warn("entity extraction failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExtractResponse{Entities: spans, Total: len(spans)})
}

// ExtractSections handles POST /api/v1/sections/extract.
func (h *NoteHandler) ExtractSections(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.ExtractSections(r.Context(), req.Text)
	if err != nil {
		h.logger.Warn("section extraction failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// BatchExtractRequest is the request body for batched entity extraction.
type BatchExtractRequest struct {
	Texts []string `json:"texts"`
}

// BatchExtract handles POST /api/v1/entities/batch.
func (h *NoteHandler) BatchExtract(w http.ResponseWriter, r *http.Request) {
	var req BatchExtractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.BatchExtract(r.Context(), req.Texts)
	if err != nil {
		h.logger.Warn("batch extraction failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
