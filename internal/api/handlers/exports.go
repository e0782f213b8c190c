package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/export"
	"github.com/sadewadee/safety-observer/internal/service"
)

// exportTimeout bounds full-table exports
const exportTimeout = 2 * time.Minute

// ExportServiceInterface defines the export service methods
type ExportServiceInterface interface {
	Observations(ctx context.Context, format export.Format) (*service.File, error)
	DashboardLists(ctx context.Context, bundle *domain.Stats, format export.Format, list string) (*service.File, error)
	Archive(ctx context.Context) (string, error)
}

// ExportHandler serves spreadsheet downloads
type ExportHandler struct {
	exports ExportServiceInterface
	stats   StatsServiceInterface
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(exports ExportServiceInterface, stats StatsServiceInterface) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		stats:   stats,
	}
}

// Observations handles GET /api/v1/exports/observations?format=xlsx|csv
func (h *ExportHandler) Observations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()

	file, err := h.exports.Observations(ctx, format)
	if err != nil {
		RenderServiceError(w, "ExportObservations", err)
		return
	}

	writeFile(w, file.Name, file.ContentType, file.Data)
}

// Dashboard handles GET /api/v1/exports/dashboard?format=&list=. The
// dashboard filters apply; list picks operators or deviations for CSV.
func (h *ExportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()

	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.stats.Dashboard(r.Context(), ParseStatsFilter(q))
	if err != nil {
		RenderServiceError(w, "ExportDashboard", err)
		return
	}

	file, err := h.exports.DashboardLists(r.Context(), res.Stats, format, q.Get("list"))
	if err != nil {
		RenderServiceError(w, "ExportDashboard", err)
		return
	}

	writeFile(w, file.Name, file.ContentType, file.Data)
}

// Archive handles POST /api/v1/exports/archive
func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportTimeout)
	defer cancel()

	key, err := h.exports.Archive(ctx)
	if err != nil {
		RenderServiceError(w, "ArchiveExport", err)
		return
	}

	RenderJSON(w, http.StatusCreated, map[string]string{"key": key})
}
