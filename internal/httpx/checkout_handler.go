package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/checkout"
	"github.com/ariefcatur/lumina-store/internal/orders"
)

type orderSubmitter interface {
	SubmitOrder(ctx context.Context, req checkout.Request) (orders.Order, error)
}

type CheckoutHandler struct {
	Checkout orderSubmitter
	Log      *zap.Logger
}

type checkoutReq struct {
	Items            []checkout.ItemInput   `json:"items"`
	ShippingDetails  orders.ShippingDetails `json:"shippingDetails"`
	Total            *decimal.Decimal       `json:"total"`
	PaymentReference string                 `json:"paymentReference"`
	UserID           string                 `json:"userId"`
}

type checkoutResp struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

func (h *CheckoutHandler) Register(r chi.Router) {
	r.Post("/checkout", h.submit)
}

func (h *CheckoutHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	o, err := h.Checkout.SubmitOrder(r.Context(), checkout.Request{
		Items:            req.Items,
		ShippingDetails:  req.ShippingDetails,
		ClientTotal:      req.Total,
		PaymentReference: req.PaymentReference,
		UserID:           req.UserID,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResp{Message: "Order placed successfully", OrderID: o.ID})
}
