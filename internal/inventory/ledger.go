package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/lumina-store/internal/apperr"
)

const DefaultLowWatermark = 10

// Decrement is the outcome of one stock decrement.
type Decrement struct {
	ProductID                string
	PriorStock               int
	NewStock                 int
	CrossedToZero            bool
	CrossedBelowLowWatermark bool
}

// Crossings reports the threshold transitions between prior and next stock.
// toZero fires only on a positive to zero move; belowLow only when the
// watermark boundary is crossed downwards.
func Crossings(prior, next, watermark int) (toZero, belowLow bool) {
	toZero = prior > 0 && next == 0
	belowLow = prior > watermark && next <= watermark
	return toZero, belowLow
}

// Restocked reports a zero to positive move.
func Restocked(prior, next int) bool { return prior == 0 && next > 0 }

// AfterUpdate runs inside the transaction of a product edit with the stock
// held before it and the edited product. Returning an error rolls the edit
// back. tx is nil for stores that are not backed by Postgres.
type AfterUpdate func(ctx context.Context, tx pgx.Tx, prior int, p Product) error

type store interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	GetMany(ctx context.Context, ids []string) (map[string]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id string, patch Patch, after AfterUpdate) (prior int, p Product, err error)
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, qty int) (prior, next int, err error)
}

// Ledger is the only writer of product stock.
type Ledger struct {
	store     store
	watermark int
}

func NewLedger(s store, watermark int) *Ledger {
	return &Ledger{store: s, watermark: watermark}
}

func (l *Ledger) Watermark() int { return l.watermark }

// DecrementStock removes qty units and clamps at zero. An oversold quantity is
// not an error. The read and write happen in one statement at the store.
func (l *Ledger) DecrementStock(ctx context.Context, productID string, qty int) (Decrement, error) {
	if qty < 1 {
		return Decrement{}, apperr.Validationf("Quantity must be at least 1, got %d", qty)
	}
	if !validID(productID) {
		return Decrement{}, ErrNotFound
	}
	prior, next, err := l.store.DecrementStock(ctx, productID, qty)
	if err != nil {
		return Decrement{}, fmt.Errorf("decrement %s: %w", productID, err)
	}
	toZero, belowLow := Crossings(prior, next, l.watermark)
	return Decrement{
		ProductID:                productID,
		PriorStock:               prior,
		NewStock:                 next,
		CrossedToZero:            toZero,
		CrossedBelowLowWatermark: belowLow,
	}, nil
}

func (l *Ledger) List(ctx context.Context) ([]Product, error) { return l.store.List(ctx) }

func (l *Ledger) Get(ctx context.Context, id string) (Product, error) {
	if !validID(id) {
		return Product{}, ErrNotFound
	}
	return l.store.Get(ctx, id)
}

// GetMany returns the known products among ids; unknown ids are absent from the map.
func (l *Ledger) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return map[string]Product{}, nil
	}
	return l.store.GetMany(ctx, valid)
}

func (l *Ledger) Create(ctx context.Context, p Product) (Product, error) {
	if err := p.validateNew(); err != nil {
		return Product{}, err
	}
	p.ID = uuid.NewString()
	return l.store.Create(ctx, p)
}

// Update applies an admin patch and returns the stock before the edit. after
// may be nil.
func (l *Ledger) Update(ctx context.Context, id string, patch Patch, after AfterUpdate) (int, Product, error) {
	if err := patch.Validate(); err != nil {
		return 0, Product{}, err
	}
	if !validID(id) {
		return 0, Product{}, ErrNotFound
	}
	return l.store.Update(ctx, id, patch, after)
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return l.store.Delete(ctx, id)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
