// Package checkout coordinates a confirmed purchase across the order store,
// the inventory ledger and the notification outbox, and runs the restock
// side effect of admin stock edits.
package checkout

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/inventory"
	"github.com/ariefcatur/lumina-store/internal/notify"
	"github.com/ariefcatur/lumina-store/internal/orders"
	"github.com/ariefcatur/lumina-store/internal/restock"
	"github.com/ariefcatur/lumina-store/internal/users"
)

var (
	ErrEmptyCart            = apperr.Validation("Cart is empty")
	ErrPaymentReferenceUsed = apperr.Validation("Payment reference has already been used")
)

type ItemInput struct {
	ID        string `json:"_id"`
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

func (i ItemInput) productID() string {
	if i.ProductID != "" {
		return i.ProductID
	}
	return i.ID
}

type Request struct {
	Items            []ItemInput
	ShippingDetails  orders.ShippingDetails
	ClientTotal      *decimal.Decimal
	PaymentReference string
	UserID           string
}

type ledger interface {
	GetMany(ctx context.Context, ids []string) (map[string]inventory.Product, error)
	DecrementStock(ctx context.Context, productID string, qty int) (inventory.Decrement, error)
	Update(ctx context.Context, id string, patch inventory.Patch, after inventory.AfterUpdate) (int, inventory.Product, error)
}

type orderStore interface {
	Create(ctx context.Context, o orders.Order) (orders.Order, error)
	Get(ctx context.Context, id string) (orders.Order, error)
}

type restockResolver interface {
	ResolveRestocked(ctx context.Context, tx pgx.Tx, p inventory.Product) ([]restock.Request, error)
}

type userLookup interface {
	Get(ctx context.Context, id string) (users.User, error)
}

type paymentIndex interface {
	Lookup(ctx context.Context, paymentRef string) (string, bool, error)
	Remember(ctx context.Context, paymentRef, orderID string) error
}

type sender interface {
	Send(ctx context.Context, msgs ...notify.Message)
}

type Orchestrator struct {
	Products  ledger
	Orders    orderStore
	Restock   restockResolver
	Users     userLookup
	Payments  paymentIndex // optional
	Notifier  sender
	Templates *notify.Templates
	Log       *zap.Logger
	Now       func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

// SubmitOrder records a paid order, decrements stock per line and queues the
// alerts and confirmations. Once the order is stored, stock and notification
// failures are logged and never fail the call.
func (o *Orchestrator) SubmitOrder(ctx context.Context, req Request) (orders.Order, error) {
	if len(req.Items) == 0 {
		return orders.Order{}, ErrEmptyCart
	}
	qty := make([]int, len(req.Items))
	ids := make([]string, len(req.Items))
	for i, it := range req.Items {
		ids[i] = it.productID()
		if ids[i] == "" {
			return orders.Order{}, apperr.Validation("Item is missing a product id")
		}
		qty[i] = 1
		if it.Quantity != nil {
			if *it.Quantity < 1 || *it.Quantity > math.MaxInt32 {
				return orders.Order{}, apperr.Validationf("Invalid quantity for product %s", ids[i])
			}
			qty[i] = *it.Quantity
		}
	}

	userID, err := o.resolveUser(ctx, req.UserID)
	if err != nil {
		return orders.Order{}, err
	}

	if existing, ok, err := o.replay(ctx, req, userID); err != nil || ok {
		return existing, err
	}

	products, err := o.Products.GetMany(ctx, ids)
	if err != nil {
		return orders.Order{}, err
	}
	items := make([]orders.Item, len(ids))
	for i, id := range ids {
		p, ok := products[id]
		if !ok {
			return orders.Order{}, apperr.NotFoundf("Product not found: %s", id)
		}
		items[i] = orders.Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: qty[i], Image: p.Image}
	}

	order := orders.Order{
		ID:               uuid.NewString(),
		UserID:           userID,
		Items:            items,
		ShippingDetails:  req.ShippingDetails,
		Total:            orders.ComputeTotal(items),
		PaymentReference: req.PaymentReference,
		Status:           orders.StatusProcessing,
		CreatedAt:        o.now(),
	}
	if req.ClientTotal != nil {
		order.ClientTotal = decimal.NewNullDecimal(*req.ClientTotal)
		if !req.ClientTotal.Equal(order.Total) {
			o.Log.Warn("client total differs from computed total",
				zap.String("order_id", order.ID),
				zap.String("client_total", req.ClientTotal.String()),
				zap.String("total", order.Total.String()))
		}
	}

	order, err = o.Orders.Create(ctx, order)
	if err != nil {
		return orders.Order{}, err
	}
	o.remember(ctx, order)

	var msgs []notify.Message
	for i, it := range items {
		d, err := o.Products.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			o.Log.Error("stock decrement failed",
				zap.String("order_id", order.ID), zap.String("product_id", it.ProductID), zap.Error(err))
			continue
		}
		ref := products[ids[i]].Ref()
		ref.Stock = d.NewStock
		switch {
		case d.CrossedToZero:
			msgs = append(msgs, o.Templates.OutOfStock(ref))
		case d.CrossedBelowLowWatermark:
			msgs = append(msgs, o.Templates.LowStock(ref))
		}
	}

	summary := order.Summary()
	msgs = append(msgs, o.Templates.OrderConfirmation(summary), o.Templates.NewOrderAlert(summary))
	o.Notifier.Send(ctx, msgs...)

	o.Log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.String()),
		zap.Int("items", len(order.Items)))
	return order, nil
}

// resolveUser maps the submitted user id to an owner. Missing, "admin",
// malformed and unknown ids are guest checkouts; suspended users are refused.
func (o *Orchestrator) resolveUser(ctx context.Context, raw string) (*string, error) {
	if raw == "" || raw == "admin" {
		return nil, nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		o.Log.Warn("checkout user id is not a uuid, treating as guest", zap.String("user_id", raw))
		return nil, nil
	}
	u, err := o.Users.Get(ctx, raw)
	if apperr.KindOf(err) == apperr.KindNotFound {
		o.Log.Warn("checkout user not found, treating as guest", zap.String("user_id", raw))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Suspended() {
		return nil, apperr.Forbidden("Account suspended")
	}
	return &u.ID, nil
}

// replay returns the order already stored under the payment reference. The
// stored order must belong to the same customer, matched on owner and shipping
// email; anyone else gets ErrPaymentReferenceUsed instead of that order.
func (o *Orchestrator) replay(ctx context.Context, req Request, userID *string) (orders.Order, bool, error) {
	paymentRef := req.PaymentReference
	if o.Payments == nil || paymentRef == "" {
		return orders.Order{}, false, nil
	}
	orderID, ok, err := o.Payments.Lookup(ctx, paymentRef)
	if err != nil {
		o.Log.Warn("payment index lookup failed", zap.String("payment_reference", paymentRef), zap.Error(err))
		return orders.Order{}, false, nil
	}
	if !ok {
		return orders.Order{}, false, nil
	}
	existing, err := o.Orders.Get(ctx, orderID)
	if err != nil {
		o.Log.Warn("payment index points at missing order",
			zap.String("payment_reference", paymentRef), zap.String("order_id", orderID), zap.Error(err))
		return orders.Order{}, false, nil
	}
	if !sameOwner(existing.UserID, userID) ||
		!strings.EqualFold(strings.TrimSpace(existing.ShippingDetails.Email), strings.TrimSpace(req.ShippingDetails.Email)) {
		o.Log.Warn("payment reference reused by a different customer",
			zap.String("payment_reference", paymentRef), zap.String("order_id", orderID))
		return orders.Order{}, false, ErrPaymentReferenceUsed
	}
	o.Log.Info("checkout replayed", zap.String("payment_reference", paymentRef), zap.String("order_id", orderID))
	return existing, true, nil
}

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (o *Orchestrator) remember(ctx context.Context, order orders.Order) {
	if o.Payments == nil || order.PaymentReference == "" {
		return
	}
	if err := o.Payments.Remember(ctx, order.PaymentReference, order.ID); err != nil {
		o.Log.Warn("payment index write failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// UpdateProduct applies an admin edit. When it takes stock from zero to a
// positive count, the pending restock requests are resolved and their emails
// queued in the edit's own transaction. If that fails nothing is applied and
// the error is returned, so the same edit can simply be retried.
func (o *Orchestrator) UpdateProduct(ctx context.Context, id string, patch inventory.Patch) (inventory.Product, error) {
	var resolved []restock.Request
	_, p, err := o.Products.Update(ctx, id, patch, func(ctx context.Context, tx pgx.Tx, prior int, p inventory.Product) error {
		if !inventory.Restocked(prior, p.Stock) {
			return nil
		}
		var err error
		resolved, err = o.Restock.ResolveRestocked(ctx, tx, p)
		return err
	})
	if err != nil {
		return inventory.Product{}, err
	}
	if len(resolved) > 0 {
		o.Log.Info("restock notifications queued", zap.String("product_id", p.ID), zap.Int("count", len(resolved)))
	}
	return p, nil
}
