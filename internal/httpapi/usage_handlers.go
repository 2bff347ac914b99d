package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"pricehunt-engine/internal/store"
)

var periodRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

type UsageHandler struct {
	Usage         func(ctx context.Context, period string) (int64, bool, error)
	CurrentPeriod func() string
	StatsSince    func(ctx context.Context, cutoff time.Time) ([]store.MarketStats, error)
}

// Get handles GET /api/usage?period=2026-09 (current period when omitted).
func (h UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = h.CurrentPeriod()
	} else if !periodRe.MatchString(period) {
		WriteError(w, r, http.StatusBadRequest, "invalid_period", "period must look like 2026-09")
		return
	}

	credits, known, err := h.Usage(r.Context(), period)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "usage_failed", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, UsageResponse{Period: period, Credits: credits, Known: known})
}

// Stats handles GET /api/stats?hours=24.
func (h UsageHandler) Stats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && v > 0 {
		hours = v
	}

	stats, err := h.StatsSince(r.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "stats_failed", err.Error())
		return
	}
	if stats == nil {
		stats = []store.MarketStats{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"hours": hours, "markets": stats})
}
