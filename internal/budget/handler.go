package budget

import (
	"context"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/transport"
)

type ServiceAPI interface {
	CreateBudget(ctx context.Context, actor *user.User, dto CreateBudgetDTO) (*Budget, error)
	GetBudget(ctx context.Context, id int64) (*Budget, error)
	ListBudgets(ctx context.Context, filter ListFilter) ([]*Budget, error)
	UpdateBudget(ctx context.Context, actor *user.User, id int64, dto UpdateBudgetDTO) (*Budget, error)
	SubmitBudget(ctx context.Context, actor *user.User, id int64) (*Budget, error)
	ApproveBudget(ctx context.Context, actor *user.User, id int64) (*Budget, error)
	RejectBudget(ctx context.Context, actor *user.User, id int64) (*Budget, error)
	DeleteBudget(ctx context.Context, actor *user.User, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateBudgetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	b, err := h.Service.CreateBudget(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	b, err := h.Service.GetBudget(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r)
	q := r.URL.Query()
	filter := ListFilter{
		Status:     q.Get("status"),
		Department: q.Get("department"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := q.Get("owner_id"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleServiceError(w, errors.NewValidationFieldError("owner_id", "must be an integer", errors.ErrCodeValidationFailed))
			return
		}
		filter.OwnerID = &ownerID
	}

	budgets, err := h.Service.ListBudgets(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, BudgetsResponse{Budgets: budgets, Limit: limit, Offset: offset})
}

func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateBudgetDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	b, err := h.Service.UpdateBudget(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) SubmitBudget(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.SubmitBudget)
}

func (h *Handler) ApproveBudget(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.ApproveBudget)
}

func (h *Handler) RejectBudget(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.RejectBudget)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, *user.User, int64) (*Budget, error)) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	b, err := apply(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Service.DeleteBudget(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
