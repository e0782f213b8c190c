package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/service"
)

// StatsServiceInterface defines the stats service methods
type StatsServiceInterface interface {
	Dashboard(ctx context.Context, filter domain.StatsFilter) (*service.DashboardResult, error)
	DashboardLatest(ctx context.Context, viewer string, filter domain.StatsFilter) (*service.DashboardResult, error)
}

// StatsHandler serves the dashboard statistics bundle
type StatsHandler struct {
	stats StatsServiceInterface
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(stats StatsServiceInterface) *StatsHandler {
	return &StatsHandler{
		stats: stats,
	}
}

// GetDashboardStats handles GET /api/v1/stats. Every response carries
// X-Stats-Sequence so clients can drop answers older than the last one
// they rendered. A request overtaken by a newer one from the same session
// gets 409.
func (h *StatsHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}

	filter := ParseStatsFilter(r.URL.Query())

	res, err := h.stats.DashboardLatest(r.Context(), sess.ViewerKey(), filter)
	if res != nil {
		w.Header().Set("X-Stats-Sequence", strconv.FormatUint(res.Sequence, 10))
	}
	if err != nil {
		if service.IsTimeout(err) {
			log.Printf("[Stats] Dashboard timed out for %s", sess.Profile.Email)
		}
		if errors.Is(err, service.ErrSuperseded) {
			RenderError(w, http.StatusConflict, err.Error())
			return
		}
		RenderServiceError(w, "Stats", err)
		return
	}

	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}

	RenderJSON(w, http.StatusOK, res.Stats)
}
