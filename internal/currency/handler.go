package currency

import (
	"context"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/common/validation"
	"github.com/frahmantamala/budget-ledger/internal/transport"
	"github.com/shopspring/decimal"
)

type ServiceAPI interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	Snapshot() Snapshot
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

type ConversionResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Rate      decimal.Decimal `json:"rate"`
	Converted decimal.Decimal `json:"converted"`
}

func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, h.Service.Snapshot())
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := strings.ToUpper(q.Get("from"))
	to := strings.ToUpper(q.Get("to"))

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		h.HandleServiceError(w, errors.NewValidationFieldError("amount", "amount must be a decimal number", errors.ErrCodeInvalidAmount))
		return
	}

	v := validation.NewValidator()
	v.Field("from", from).Required().Currency()
	v.Field("to", to).Required().Currency()
	if appErr := v.Validate(); appErr != nil {
		h.HandleServiceError(w, appErr)
		return
	}

	rate, err := h.Service.Rate(r.Context(), from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	converted, err := h.Service.Convert(r.Context(), amount, from, to)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ConversionResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Rate:      rate,
		Converted: converted,
	})
}
