package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/khaugen/fragstats/internal/service"
)

// UploadHandler accepts match uploads from the demo parser.
type UploadHandler struct {
	matches service.MatchService
	logger  *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(matches service.MatchService, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{matches: matches, logger: logger}
}

// Upload stores one match with its player lines.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var upload service.MatchUpload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&upload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	result, err := h.matches.Upload(r.Context(), upload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUpload):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDuplicateMatch):
			respondError(w, http.StatusConflict, "match already uploaded")
		default:
			h.logger.Error("store match failed", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
