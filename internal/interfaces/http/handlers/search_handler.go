package handlers

import (
	"net/http"

	"github.com/clinsignal/clinsignal/internal/application/search"
	"github.com/clinsignal/clinsignal/internal/infrastructure/monitoring/logging"
)

// SearchHandler handles similarity search HTTP requests.
type SearchHandler struct {
	svc    search.Service
	logger logging.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc search.Service, logger logging.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, logger: logger.Named("search")}
}

// SearchCases handles POST /api/v1/search/cases.
func (h *SearchHandler) SearchCases(w http.ResponseWriter, r *http.Request) {
	var input search.SearchInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.SearchCases(r.Context(), &input)
	if err != nil {
		h.logger.Warn("case search failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SearchDocuments handles POST /api/v1/search/documents.
func (h *SearchHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	var input search.DocumentSearchInput
	if err := decodeJSON(r, &input); err != nil {
		writeAppError(w, err)
		return
	}

	result, err := h.svc.SearchDocuments(r.Context(), &input)
	if err != nil {
		h.logger.Warn("document search failed", logging.Err(err))
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
