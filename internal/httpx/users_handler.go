package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/users"
)

type accounts interface {
	Register(ctx context.Context, name, email, password string) (users.Session, error)
	Login(ctx context.Context, email, password string) (users.Session, error)
	List(ctx context.Context) ([]users.User, error)
	SetStatus(ctx context.Context, id, status string) (users.User, error)
	SendMessage(ctx context.Context, id, subject, message string) error
	Delete(ctx context.Context, id string) error
	ListAddresses(ctx context.Context, userID string) ([]users.Address, error)
	AddAddress(ctx context.Context, userID string, a users.Address) ([]users.Address, error)
	UpdateAddress(ctx context.Context, userID, id string, p users.AddressPatch) ([]users.Address, error)
	DeleteAddress(ctx context.Context, userID, id string) ([]users.Address, error)
}

type UsersHandler struct {
	Users accounts
	Auth  *Authenticator
	Log   *zap.Logger
}

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userStatusReq struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}

type userEmailReq struct {
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

func (h *UsersHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/login", h.login)

	r.Route("/users", func(r chi.Router) {
		r.Use(h.Auth.RequireAuth)

		r.Get("/addresses", h.listAddresses)
		r.Post("/addresses", h.addAddress)
		r.Put("/addresses/{id}", h.updateAddress)
		r.Delete("/addresses/{id}", h.deleteAddress)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAdmin)
			r.Get("/", h.list)
			r.Put("/{id}/status", h.setStatus)
			r.Post("/{id}/email", h.sendEmail)
			r.Delete("/{id}", h.delete)
		})
	})
}

func (h *UsersHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sess, err := h.Users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *UsersHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sess, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UsersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req userStatusReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	u, err := h.Users.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) sendEmail(w http.ResponseWriter, r *http.Request) {
	var req userEmailReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if err := h.Users.SendMessage(r.Context(), chi.URLParam(r, "id"), req.Subject, req.Message); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Email sent successfully")
}

func (h *UsersHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

func (h *UsersHandler) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.ListAddresses(r.Context(), identity(r).UserID)
	h.addresses(w, r, http.StatusOK, list, err)
}

func (h *UsersHandler) addAddress(w http.ResponseWriter, r *http.Request) {
	var a users.Address
	if err := decode(r, &a); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	list, err := h.Users.AddAddress(r.Context(), identity(r).UserID, a)
	h.addresses(w, r, http.StatusCreated, list, err)
}

func (h *UsersHandler) updateAddress(w http.ResponseWriter, r *http.Request) {
	var p users.AddressPatch
	if err := decode(r, &p); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	list, err := h.Users.UpdateAddress(r.Context(), identity(r).UserID, chi.URLParam(r, "id"), p)
	h.addresses(w, r, http.StatusOK, list, err)
}

func (h *UsersHandler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	list, err := h.Users.DeleteAddress(r.Context(), identity(r).UserID, chi.URLParam(r, "id"))
	h.addresses(w, r, http.StatusOK, list, err)
}

func (h *UsersHandler) addresses(w http.ResponseWriter, r *http.Request, code int, list []users.Address, err error) {
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []users.Address{}
	}
	writeJSON(w, code, list)
}
