// Package orders is the durable record of completed purchases.
package orders

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

var ErrNotFound = apperr.NotFound("Order not found")

type store interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, s Status) (Order, error)
}

type sender interface {
	Send(ctx context.Context, msgs ...notify.Message)
}

type Service struct {
	Store     store
	Notifier  sender
	Templates *notify.Templates
	Log       *zap.Logger
}

// Create persists a priced order. The total must already equal the sum of
// its line totals.
func (s *Service) Create(ctx context.Context, o Order) (Order, error) {
	if len(o.Items) == 0 {
		return Order{}, apperr.Validation("Order has no items")
	}
	for _, it := range o.Items {
		if it.Quantity < 1 {
			return Order{}, apperr.Validationf("Invalid quantity for product %s", it.ProductID)
		}
	}
	if !o.Total.Equal(ComputeTotal(o.Items)) {
		return Order{}, apperr.Validation("Order total does not match its items")
	}
	if !known[o.Status] {
		return Order{}, apperr.Validationf("Invalid status: %q", o.Status)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return s.Store.Create(ctx, o)
}

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	return s.Store.Get(ctx, id)
}

// UpdateStatus sets any known status and emails the customer.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Order, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return Order{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, ErrNotFound
	}
	o, err := s.Store.UpdateStatus(ctx, id, st)
	if err != nil {
		return Order{}, err
	}
	s.Log.Info("order status updated", zap.String("order_id", o.ID), zap.String("status", string(st)))
	s.Notifier.Send(ctx, s.Templates.OrderStatusUpdate(o.Summary()))
	return o, nil
}

// ListForUser returns the user's orders newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []Order{}, nil
	}
	return s.Store.ListByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) { return s.Store.ListAll(ctx) }
