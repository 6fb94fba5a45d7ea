package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/restock"
)

type restockRegistry interface {
	RequestNotification(ctx context.Context, productID, email, name string) (restock.Request, error)
	ListForUser(ctx context.Context, email string) ([]restock.Request, error)
	ListAll(ctx context.Context) ([]restock.Request, error)
}

type NotificationsHandler struct {
	Registry restockRegistry
	Auth     *Authenticator
	Log      *zap.Logger
}

type restockReq struct {
	ProductID string `json:"productId" validate:"required"`
	UserEmail string `json:"userEmail" validate:"required,email"`
	UserName  string `json:"userName"`
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Post("/notifications/request", h.request)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuth)
		r.Get("/notifications/user/{email}", h.listForUser)
		r.With(h.Auth.RequireAdmin).Get("/notifications", h.listAll)
	})
}

func (h *NotificationsHandler) request(w http.ResponseWriter, r *http.Request) {
	var req restockReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	out, err := h.Registry.RequestNotification(r.Context(), req.ProductID, req.UserEmail, req.UserName)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *NotificationsHandler) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.Registry.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// listForUser is limited to the caller's own email unless the caller is an admin.
func (h *NotificationsHandler) listForUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	id := identity(r)
	if !id.IsAdmin() && !strings.EqualFold(strings.TrimSpace(email), id.Email) {
		writeMessage(w, http.StatusForbidden, "Access denied")
		return
	}
	list, err := h.Registry.ListForUser(r.Context(), email)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
