package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/contact"
)

type contactInbox interface {
	Submit(ctx context.Context, name, email, message string) (contact.Message, error)
}

type ContactHandler struct {
	Inbox contactInbox
	Log   *zap.Logger
}

type contactReq struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required"`
}

func (h *ContactHandler) Register(r chi.Router) {
	r.Post("/contact", h.submit)
}

func (h *ContactHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req contactReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if _, err := h.Inbox.Submit(r.Context(), req.Name, req.Email, req.Message); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Message sent successfully")
}
