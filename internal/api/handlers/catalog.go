package handlers

import (
	"net/http"

	"github.com/sadewadee/safety-observer/internal/catalog"
)

// CatalogHandler serves the checklist questions
type CatalogHandler struct {
	catalog *catalog.Catalog
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// Get handles GET /api/v1/catalog
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	RenderJSON(w, http.StatusOK, h.catalog.Snapshot())
}
