package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/inventory"
)

type catalog interface {
	List(ctx context.Context) ([]inventory.Product, error)
	Get(ctx context.Context, id string) (inventory.Product, error)
	Create(ctx context.Context, p inventory.Product) (inventory.Product, error)
	Delete(ctx context.Context, id string) error
}

type productUpdater interface {
	UpdateProduct(ctx context.Context, id string, patch inventory.Patch) (inventory.Product, error)
}

type ProductsHandler struct {
	Catalog catalog
	Updater productUpdater
	Auth    *Authenticator
	Log     *zap.Logger
}

type createProductReq struct {
	Name        string           `json:"name" validate:"required"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Category    string           `json:"category"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuth, h.Auth.RequireAdmin)
		r.Post("/products", h.create)
		r.Put("/products/{id}", h.update)
		r.Delete("/products/{id}", h.delete)
	})
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.List(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p := inventory.Product{
		Name:        req.Name,
		Price:       *req.Price,
		Description: req.Description,
		Image:       req.Image,
		Category:    req.Category,
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	created, err := h.Catalog.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ProductsHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch inventory.Patch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Updater.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted")
}
