package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/orders"
)

type orderBook interface {
	Get(ctx context.Context, id string) (orders.Order, error)
	ListForUser(ctx context.Context, userID string) ([]orders.Order, error)
	ListAll(ctx context.Context) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, id, status string) (orders.Order, error)
}

type OrdersHandler struct {
	Orders orderBook
	Auth   *Authenticator
	Log    *zap.Logger
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuth)
		r.Get("/orders/user", h.listMine)
		r.Get("/orders/{id}", h.getOrder)

		r.With(h.Auth.RequireAdmin).Get("/orders", h.listAll)
		r.With(h.Auth.RequireAdmin).Put("/orders/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListForUser(r.Context(), identity(r).UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// getOrder is visible to the owner and to admins; others get a 404.
func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	id := identity(r)
	if !id.IsAdmin() && (o.UserID == nil || *o.UserID != id.UserID) {
		writeError(w, r, h.Log, orders.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
