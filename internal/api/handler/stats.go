package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/khaugen/fragstats/internal/service"
)

const defaultListLimit = 100

// StatsHandler serves the read-only stats endpoints.
type StatsHandler struct {
	stats  service.StatsService
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats service.StatsService, logger *slog.Logger) *StatsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsHandler{stats: stats, logger: logger}
}

// PlayerStats returns per-match player lines, most recent first.
func (h *StatsHandler) PlayerStats(w http.ResponseWriter, r *http.Request) {
	lines, err := h.stats.PlayerStats(r.Context(), listLimit(r))
	if err != nil {
		h.fail(w, "list player stats", err)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

// MapStats returns per-match map outcomes, most recent first.
func (h *StatsHandler) MapStats(w http.ResponseWriter, r *http.Request) {
	matches, err := h.stats.MapStats(r.Context(), listLimit(r))
	if err != nil {
		h.fail(w, "list map stats", err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

// MapWinRates returns aggregated win ratios per map.
func (h *StatsHandler) MapWinRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.stats.MapWinRates(r.Context())
	if err != nil {
		h.fail(w, "aggregate win rates", err)
		return
	}
	respondJSON(w, http.StatusOK, rates)
}

// KDRatios returns all-time kill/death ratios per player.
func (h *StatsHandler) KDRatios(w http.ResponseWriter, r *http.Request) {
	ratios, err := h.stats.KDRatios(r.Context())
	if err != nil {
		h.fail(w, "aggregate kd ratios", err)
		return
	}
	respondJSON(w, http.StatusOK, ratios)
}

// ChickenKills returns all-time chicken tallies per player.
func (h *StatsHandler) ChickenKills(w http.ResponseWriter, r *http.Request) {
	totals, err := h.stats.ChickenKills(r.Context())
	if err != nil {
		h.fail(w, "aggregate chicken kills", err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

// MultiKills returns all-time ace, quad and triple round tallies per player.
func (h *StatsHandler) MultiKills(w http.ResponseWriter, r *http.Request) {
	totals, err := h.stats.MultiKills(r.Context())
	if err != nil {
		h.fail(w, "aggregate multi kills", err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

// UtilityDamage returns all-time utility damage totals per player.
func (h *StatsHandler) UtilityDamage(w http.ResponseWriter, r *http.Request) {
	totals, err := h.stats.UtilityDamage(r.Context())
	if err != nil {
		h.fail(w, "aggregate utility damage", err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

// LastMatch returns the most recent match with its player lines.
func (h *StatsHandler) LastMatch(w http.ResponseWriter, r *http.Request) {
	last, err := h.stats.LastMatch(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(w, http.StatusNotFound, "no matches recorded")
			return
		}
		h.fail(w, "load last match", err)
		return
	}
	respondJSON(w, http.StatusOK, last)
}

func (h *StatsHandler) fail(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action+" failed", slog.Any("error", err))
	respondError(w, http.StatusInternalServerError, "internal error")
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}
