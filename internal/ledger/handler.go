package ledger

import (
	"context"
	"net/http"
	"strconv"

	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/transport"
)

type ServiceAPI interface {
	ForBudget(ctx context.Context, budgetID int64) (*BudgetLedger, error)
	ComputeAll(ctx context.Context, filter budget.ListFilter) ([]*BudgetLedger, error)
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

func (h *Handler) GetBudgetLedger(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	bl, err := h.Service.ForBudget(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, bl)
}

func (h *Handler) ListLedgers(w http.ResponseWriter, r *http.Request) {
	limit, offset := h.Pagination(r)
	filter := budget.ListFilter{
		Status:     r.URL.Query().Get("status"),
		Department: r.URL.Query().Get("department"),
		Limit:      limit,
		Offset:     offset,
	}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		ownerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid owner_id")
			return
		}
		filter.OwnerID = &ownerID
	}

	ledgers, err := h.Service.ComputeAll(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ledgers": ledgers,
		"limit":   limit,
		"offset":  offset,
	})
}
