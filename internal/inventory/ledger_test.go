package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/lumina-store/internal/apperr"
)

// memStore mirrors the clamp semantics of the SQL decrement.
type memStore struct {
	mu       sync.Mutex
	products map[string]Product
	failWith error
}

func newMemStore(ps ...Product) *memStore {
	m := &memStore{products: map[string]Product{}}
	for _, p := range ps {
		m.products[p.ID] = p
	}
	return m
}

func (m *memStore) List(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) Get(_ context.Context, id string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (m *memStore) GetMany(_ context.Context, ids []string) (map[string]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, p Product) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return p, nil
}

func (m *memStore) Update(ctx context.Context, id string, patch Patch, after AfterUpdate) (int, Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return 0, Product{}, ErrNotFound
	}
	prior := p.Stock
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if after != nil {
		if err := after(ctx, nil, prior, p); err != nil {
			return 0, Product{}, err
		}
	}
	m.products[id] = p
	return prior, p, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) DecrementStock(_ context.Context, id string, qty int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, 0, m.failWith
	}
	p, ok := m.products[id]
	if !ok {
		return 0, 0, ErrNotFound
	}
	prior := p.Stock
	p.Stock = max(prior-qty, 0)
	m.products[id] = p
	return prior, p.Stock, nil
}

func product(stock int) Product {
	return Product{ID: uuid.NewString(), Name: "Silk Scarf", Price: decimal.RequireFromString("10.00"), Stock: stock}
}

func TestCrossings(t *testing.T) {
	cases := []struct {
		name           string
		prior, next    int
		toZero, belowL bool
	}{
		{"sells out", 2, 0, true, false},
		{"already empty", 0, 0, false, false},
		{"crosses watermark", 11, 9, false, true},
		{"lands on watermark", 12, 10, false, true},
		{"already below", 9, 7, false, false},
		{"large to empty", 20, 0, true, true},
		{"stays above", 30, 25, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			z, l := Crossings(tc.prior, tc.next, DefaultLowWatermark)
			assert.Equal(t, tc.toZero, z)
			assert.Equal(t, tc.belowL, l)
		})
	}
}

func TestRestocked(t *testing.T) {
	assert.True(t, Restocked(0, 5))
	assert.False(t, Restocked(0, 0))
	assert.False(t, Restocked(3, 8))
}

func TestDecrementStockClampsAtZero(t *testing.T) {
	p := product(2)
	l := NewLedger(newMemStore(p), DefaultLowWatermark)

	d, err := l.DecrementStock(context.Background(), p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, d.PriorStock)
	assert.Equal(t, 0, d.NewStock)
	assert.True(t, d.CrossedToZero)
	assert.False(t, d.CrossedBelowLowWatermark)

	d, err = l.DecrementStock(context.Background(), p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, d.NewStock)
	assert.False(t, d.CrossedToZero, "zero to zero is not a crossing")
}

func TestDecrementStockWatermark(t *testing.T) {
	p := product(11)
	l := NewLedger(newMemStore(p), DefaultLowWatermark)

	d, err := l.DecrementStock(context.Background(), p.ID, 2)
	require.NoError(t, err)
	assert.True(t, d.CrossedBelowLowWatermark)

	d, err = l.DecrementStock(context.Background(), p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, d.NewStock)
	assert.False(t, d.CrossedBelowLowWatermark)
}

func TestDecrementStockCustomWatermark(t *testing.T) {
	p := product(6)
	l := NewLedger(newMemStore(p), 5)

	d, err := l.DecrementStock(context.Background(), p.ID, 1)
	require.NoError(t, err)
	assert.True(t, d.CrossedBelowLowWatermark)
	assert.Equal(t, 5, l.Watermark())
}

func TestDecrementStockErrors(t *testing.T) {
	p := product(3)
	s := newMemStore(p)
	l := NewLedger(s, DefaultLowWatermark)

	_, err := l.DecrementStock(context.Background(), p.ID, 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = l.DecrementStock(context.Background(), "nope", 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = l.DecrementStock(context.Background(), uuid.NewString(), 1)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	s.failWith = errors.New("connection reset")
	_, err = l.DecrementStock(context.Background(), p.ID, 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestDecrementStockConcurrent(t *testing.T) {
	p := product(50)
	s := newMemStore(p)
	l := NewLedger(s, DefaultLowWatermark)

	var wg sync.WaitGroup
	var mu sync.Mutex
	zeroes := 0
	for range 60 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := l.DecrementStock(context.Background(), p.ID, 1)
			assert.NoError(t, err)
			if d.CrossedToZero {
				mu.Lock()
				zeroes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := l.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, 1, zeroes)
}

func TestCreateValidates(t *testing.T) {
	l := NewLedger(newMemStore(), DefaultLowWatermark)

	_, err := l.Create(context.Background(), Product{Name: " ", Price: decimal.NewFromInt(1)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = l.Create(context.Background(), Product{Name: "Ring", Price: decimal.NewFromInt(-1)})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	p, err := l.Create(context.Background(), Product{Name: "Ring", Price: decimal.NewFromInt(99), Stock: 4})
	require.NoError(t, err)
	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)
}

func TestUpdateReturnsPriorStock(t *testing.T) {
	p := product(0)
	l := NewLedger(newMemStore(p), DefaultLowWatermark)

	stock := 5
	prior, updated, err := l.Update(context.Background(), p.ID, Patch{Stock: &stock}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, prior)
	assert.Equal(t, 5, updated.Stock)

	neg := -1
	_, _, err = l.Update(context.Background(), p.ID, Patch{Stock: &neg}, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateAfterHookFailureDiscardsEdit(t *testing.T) {
	p := product(0)
	s := newMemStore(p)
	l := NewLedger(s, DefaultLowWatermark)

	var seen []int
	boom := errors.New("resolve failed")
	stock := 4
	_, _, err := l.Update(context.Background(), p.ID, Patch{Stock: &stock}, func(_ context.Context, _ pgx.Tx, prior int, next Product) error {
		seen = append(seen, prior, next.Stock)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{0, 4}, seen)

	got, err := l.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestGetManySkipsInvalidIDs(t *testing.T) {
	p := product(1)
	l := NewLedger(newMemStore(p), DefaultLowWatermark)

	got, err := l.GetMany(context.Background(), []string{p.ID, "bad", uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, p.ID)
}
