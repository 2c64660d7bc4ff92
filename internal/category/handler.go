package category

import (
	"context"
	"net/http"

	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/transport"
)

type ServiceAPI interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]*Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, actor *user.User, dto CreateCategoryDTO) (*Category, error)
	UpdateCategory(ctx context.Context, actor *user.User, id int64, dto UpdateCategoryDTO) (*Category, error)
	DeactivateCategory(ctx context.Context, actor *user.User, id int64) (*Category, error)
	ActivateCategory(ctx context.Context, actor *user.User, id int64) (*Category, error)
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

// GetCategories lists active categories. Managers may pass include_inactive=true.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if r.URL.Query().Get("include_inactive") == "true" {
		actor, ok := auth.UserFromContext(r.Context())
		includeInactive = ok && actor.IsManager()
	}

	categories, err := h.Service.ListCategories(r.Context(), includeInactive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories: categories,
	})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.GetCategory(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateCategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.CreateCategory(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
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

	var dto UpdateCategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	c, err := h.Service.UpdateCategory(r.Context(), actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeactivateCategory(w http.ResponseWriter, r *http.Request) {
	h.activation(w, r, h.Service.DeactivateCategory)
}

func (h *Handler) ActivateCategory(w http.ResponseWriter, r *http.Request) {
	h.activation(w, r, h.Service.ActivateCategory)
}

func (h *Handler) activation(w http.ResponseWriter, r *http.Request, apply func(context.Context, *user.User, int64) (*Category, error)) {
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

	c, err := apply(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}
