package orders

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

type memStore struct {
	mu     sync.Mutex
	orders map[string]Order
}

func newMemStore() *memStore { return &memStore{orders: map[string]Order{}} }

func (m *memStore) Create(_ context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) Get(_ context.Context, id string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *memStore) sorted(keep func(Order) bool) []Order {
	out := []Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(o Order) bool { return o.UserID != nil && *o.UserID == userID }), nil
}

func (m *memStore) ListAll(context.Context) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(Order) bool { return true }), nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, s Status) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = s
	m.orders[id] = o
	return o, nil
}

type captured struct{ msgs []notify.Message }

func (c *captured) Send(_ context.Context, msgs ...notify.Message) { c.msgs = append(c.msgs, msgs...) }

func newService() (*Service, *memStore, *captured) {
	store := newMemStore()
	sent := &captured{}
	return &Service{Store: store, Notifier: sent, Templates: &notify.Templates{}, Log: zap.NewNop()}, store, sent
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleItems() []Item {
	return []Item{
		{ProductID: uuid.NewString(), Name: "A", Price: dec("10"), Quantity: 2},
		{ProductID: uuid.NewString(), Name: "B", Price: dec("5"), Quantity: 1},
	}
}

func TestComputeTotal(t *testing.T) {
	assert.True(t, ComputeTotal(sampleItems()).Equal(dec("25")))
	assert.True(t, ComputeTotal(nil).IsZero())
	assert.True(t, ComputeTotal([]Item{{Price: dec("0.10"), Quantity: 3}}).Equal(dec("0.30")))
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "processing", "shipped", "delivered", "cancelled", " Shipped "} {
		_, err := ParseStatus(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseStatus("refunded")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSummary(t *testing.T) {
	o := Order{
		ID:              "6f1c2a9e-1111-4c5d-9e8f-0a1b2c3d4e5f",
		Items:           sampleItems(),
		ShippingDetails: ShippingDetails{FirstName: "Ava", Email: "ava@example.com"},
		Total:           dec("25"),
		Status:          StatusProcessing,
	}
	s := o.Summary()
	assert.Equal(t, "ava@example.com", s.Email)
	assert.Equal(t, "processing", s.Status)
	require.Len(t, s.Lines, 2)
	assert.True(t, s.Lines[0].LineTotal.Equal(dec("20")))
	assert.Equal(t, "4E5F", s.ShortID()[2:])
}

func TestCreateChecksInvariants(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, Order{Status: StatusProcessing})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	items := sampleItems()
	_, err = svc.Create(ctx, Order{Items: items, Total: dec("30"), Status: StatusProcessing})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	items[0].Quantity = 0
	_, err = svc.Create(ctx, Order{Items: items, Total: ComputeTotal(items), Status: StatusProcessing})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	o, err := svc.Create(ctx, Order{Items: sampleItems(), Total: dec("25"), Status: StatusProcessing})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
}

func TestUpdateStatusIsPermissiveAndNotifies(t *testing.T) {
	svc, _, sent := newService()
	ctx := context.Background()
	o, err := svc.Create(ctx, Order{
		Items:           sampleItems(),
		Total:           dec("25"),
		Status:          StatusProcessing,
		ShippingDetails: ShippingDetails{Email: "ava@example.com"},
	})
	require.NoError(t, err)

	for _, s := range []string{"delivered", "pending", "cancelled", "shipped"} {
		got, err := svc.UpdateStatus(ctx, o.ID, s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got.Status)
	}
	require.Len(t, sent.msgs, 4)
	assert.Equal(t, "ava@example.com", sent.msgs[3].To)
	assert.Equal(t, "Order Status Update: SHIPPED", sent.msgs[3].Subject)

	_, err = svc.UpdateStatus(ctx, o.ID, "lost")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = svc.UpdateStatus(ctx, uuid.NewString(), "shipped")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = svc.UpdateStatus(ctx, "bogus", "shipped")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Len(t, sent.msgs, 4)
}

func TestListForUserNewestFirstAndStable(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	uid := uuid.NewString()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range 3 {
		_, err := svc.Create(ctx, Order{
			UserID: &uid, Items: sampleItems(), Total: dec("25"), Status: StatusProcessing,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, Order{Items: sampleItems(), Total: dec("25"), Status: StatusProcessing, CreatedAt: base})
	require.NoError(t, err)

	first, err := svc.ListForUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.True(t, first[0].CreatedAt.After(first[1].CreatedAt))

	second, err := svc.ListForUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	guest, err := svc.ListForUser(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, guest)
}
