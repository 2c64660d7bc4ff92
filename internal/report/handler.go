package report

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/frahmantamala/budget-ledger/internal/transport"
)

type ServiceAPI interface {
	BudgetSummary(ctx context.Context, budgetID int64) (*Summary, error)
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

// GetBudgetReport serves the summary as JSON, or as a CSV attachment when format=csv.
func (h *Handler) GetBudgetReport(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	summary, err := h.Service.BudgetSummary(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		h.WriteJSON(w, http.StatusOK, summary)
	case "csv":
		var buf bytes.Buffer
		if err := WriteCSV(&buf, summary); err != nil {
			h.Logger.Error("failed to render csv report", "budget_id", id, "error", err)
			h.WriteError(w, http.StatusInternalServerError, "failed to render report")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"budget-%d.csv\"", id))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		h.WriteError(w, http.StatusBadRequest, "format must be json or csv")
	}
}
