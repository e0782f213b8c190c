package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/service"
)

// MaxImportSize bounds operator import uploads (5MB)
const MaxImportSize = 5 << 20

// OperatorServiceInterface defines the operator service methods
type OperatorServiceInterface interface {
	List(ctx context.Context, params domain.OperatorListParams) ([]*domain.Operator, error)
	Create(ctx context.Context, req *domain.OperatorRequest) (*domain.Operator, error)
	Update(ctx context.Context, id uuid.UUID, req *domain.OperatorRequest) (*domain.Operator, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Import(ctx context.Context, r io.Reader) (*service.ImportResult, error)
}

// OperatorHandler manages the operator catalog
type OperatorHandler struct {
	operators OperatorServiceInterface
}

// NewOperatorHandler creates a new OperatorHandler
func NewOperatorHandler(operators OperatorServiceInterface) *OperatorHandler {
	return &OperatorHandler{operators: operators}
}

// List handles GET /api/v1/operators?site=&group=
func (h *OperatorHandler) List(w http.ResponseWriter, r *http.Request) {
	params := domain.OperatorListParams{
		Site:  r.URL.Query().Get("site"),
		Group: r.URL.Query().Get("group"),
	}

	ops, err := h.operators.List(r.Context(), params)
	if err != nil {
		RenderServiceError(w, "ListOperators", err)
		return
	}
	if ops == nil {
		ops = []*domain.Operator{}
	}

	RenderJSON(w, http.StatusOK, ops)
}

// Create handles POST /api/v1/operators
func (h *OperatorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.OperatorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	op, err := h.operators.Create(r.Context(), &req)
	if err != nil {
		RenderServiceError(w, "CreateOperator", err)
		return
	}

	RenderJSON(w, http.StatusCreated, op)
}

// Update handles PUT /api/v1/operators/{id}
func (h *OperatorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid operator ID")
		return
	}

	var req domain.OperatorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	op, err := h.operators.Update(r.Context(), id, &req)
	if err != nil {
		RenderServiceError(w, "UpdateOperator", err)
		return
	}

	RenderJSON(w, http.StatusOK, op)
}

// Delete handles DELETE /api/v1/operators/{id}. Operators are deactivated,
// never removed.
func (h *OperatorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid operator ID")
		return
	}

	if err := h.operators.Deactivate(r.Context(), id); err != nil {
		RenderServiceError(w, "DeleteOperator", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/v1/operators/import. Accepts a multipart "file"
// field or the raw tab separated text as the body.
func (h *OperatorHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RenderError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImportSize)

	var src io.Reader = r.Body
	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		src = file
	}

	result, err := h.operators.Import(r.Context(), src)
	if err != nil {
		RenderServiceError(w, "ImportOperators", err)
		return
	}

	RenderJSON(w, http.StatusOK, result)
}
