package restock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/inventory"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

// memStore treats ResolvePendingWithIntents like one transaction: requests
// flip to sent only when the intents are accepted.
type memStore struct {
	mu         sync.Mutex
	reqs       []Request
	intents    []notify.Message
	enqueueErr error
}

func (m *memStore) Insert(_ context.Context, req Request) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return req, nil
}

func (m *memStore) UpsertPending(_ context.Context, req Request) (Request, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.reqs {
		if r.ProductID == req.ProductID && strings.EqualFold(r.UserEmail, req.UserEmail) && r.Status == StatusPending {
			if req.UserName != "" {
				m.reqs[i].UserName = req.UserName
			}
			return m.reqs[i], false, nil
		}
	}
	m.reqs = append(m.reqs, req)
	return req, true, nil
}

func (m *memStore) ResolvePendingWithIntents(_ context.Context, _ pgx.Tx, productID string, at time.Time,
	build func([]Request) []notify.Message) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var idx []int
	var out []Request
	for i, r := range m.reqs {
		if r.ProductID == productID && r.Status == StatusPending {
			r.Status = StatusSent
			r.ResolvedAt = &at
			idx = append(idx, i)
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	msgs := build(out)
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	m.intents = append(m.intents, msgs...)
	for _, i := range idx {
		m.reqs[i].Status = StatusSent
		m.reqs[i].ResolvedAt = &at
	}
	return out, nil
}

func (m *memStore) ListByEmail(_ context.Context, email string) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Request
	for _, r := range m.reqs {
		if strings.EqualFold(r.UserEmail, email) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListAll(context.Context) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.reqs...), nil
}

func (m *memStore) pending(productID string) int {
	n := 0
	for _, r := range m.reqs {
		if r.ProductID == productID && r.Status == StatusPending {
			n++
		}
	}
	return n
}

type memProducts map[string]inventory.Product

func (m memProducts) Get(_ context.Context, id string) (inventory.Product, error) {
	p, ok := m[id]
	if !ok {
		return inventory.Product{}, inventory.ErrNotFound
	}
	return p, nil
}

type captured struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (c *captured) Send(_ context.Context, msgs ...notify.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msgs...)
}

type fixture struct {
	reg   *Registry
	store *memStore
	sent  *captured
	prod  inventory.Product
}

func newFixture(dedup bool) fixture {
	prod := inventory.Product{ID: uuid.NewString(), Name: "Velvet Clutch", Stock: 0}
	store := &memStore{}
	sent := &captured{}
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	reg := &Registry{
		Store:     store,
		Products:  memProducts{prod.ID: prod},
		Notifier:  sent,
		Templates: &notify.Templates{AdminEmail: "admin@lumina.test"},
		Dedup:     dedup,
		Log:       zap.NewNop(),
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	}
	return fixture{reg: reg, store: store, sent: sent, prod: prod}
}

func TestRequestNotificationNotifiesAdmin(t *testing.T) {
	f := newFixture(false)

	req, err := f.reg.RequestNotification(context.Background(), f.prod.ID, " ava@example.com ", "Ava")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "ava@example.com", req.UserEmail)

	require.Len(t, f.sent.msgs, 1)
	assert.Equal(t, "admin@lumina.test", f.sent.msgs[0].To)
	assert.Equal(t, "New Stock Notification Request", f.sent.msgs[0].Subject)
	assert.Equal(t, notify.KindRestockRequested, f.sent.msgs[0].Kind)
}

func TestRequestNotificationErrors(t *testing.T) {
	f := newFixture(false)

	_, err := f.reg.RequestNotification(context.Background(), uuid.NewString(), "ava@example.com", "Ava")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.reg.RequestNotification(context.Background(), f.prod.ID, "  ", "Ava")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Empty(t, f.sent.msgs)
}

func TestDuplicateRequestsWithoutDedup(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	a, err := f.reg.RequestNotification(ctx, f.prod.ID, "ava@example.com", "Ava")
	require.NoError(t, err)
	b, err := f.reg.RequestNotification(ctx, f.prod.ID, "ava@example.com", "Ava")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, f.store.pending(f.prod.ID))
	assert.Len(t, f.sent.msgs, 2)
}

func TestDuplicateRequestsWithDedup(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	a, err := f.reg.RequestNotification(ctx, f.prod.ID, "ava@example.com", "Ava")
	require.NoError(t, err)
	b, err := f.reg.RequestNotification(ctx, f.prod.ID, "AVA@example.com", "Ava S.")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Ava S.", b.UserName)
	assert.Equal(t, 1, f.store.pending(f.prod.ID))
	assert.Len(t, f.sent.msgs, 1, "admin hears about the first request only")
}

func TestResolveRestockedMarksAllSent(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := f.reg.RequestNotification(ctx, f.prod.ID, email, "")
		require.NoError(t, err)
	}
	restocked := f.prod
	restocked.Stock = 5

	resolved, err := f.reg.ResolveRestocked(ctx, nil, restocked)
	require.NoError(t, err)
	require.Len(t, resolved, 3)
	assert.Equal(t, "c@example.com", resolved[0].UserEmail, "newest first")
	for _, r := range resolved {
		assert.Equal(t, StatusSent, r.Status)
		assert.NotNil(t, r.ResolvedAt)
	}
	assert.Zero(t, f.store.pending(f.prod.ID))

	require.Len(t, f.store.intents, 3)
	for _, m := range f.store.intents {
		assert.Equal(t, notify.KindBackInStock, m.Kind)
		assert.Equal(t, "Back in Stock: Velvet Clutch", m.Subject)
	}
	assert.Equal(t, "c@example.com", f.store.intents[0].To)

	again, err := f.reg.ResolveRestocked(ctx, nil, restocked)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, f.store.intents, 3)

	fresh, err := f.reg.RequestNotification(ctx, f.prod.ID, "a@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, fresh.Status)
	assert.Equal(t, 1, f.store.pending(f.prod.ID))
}

func TestResolveRestockedOutboxFailureKeepsPending(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := f.reg.RequestNotification(ctx, f.prod.ID, email, "")
		require.NoError(t, err)
	}
	f.store.enqueueErr = errors.New("outbox insert failed")

	resolved, err := f.reg.ResolveRestocked(ctx, nil, f.prod)
	require.Error(t, err)
	assert.Empty(t, resolved)
	assert.Equal(t, 2, f.store.pending(f.prod.ID))
	assert.Empty(t, f.store.intents)

	f.store.enqueueErr = nil
	resolved, err = f.reg.ResolveRestocked(ctx, nil, f.prod)
	require.NoError(t, err)
	assert.Len(t, resolved, 2)
	assert.Len(t, f.store.intents, 2)
}

func TestListingsNewestFirst(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	for _, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		_, err := f.reg.RequestNotification(ctx, f.prod.ID, email, "")
		require.NoError(t, err)
	}

	mine, err := f.reg.ListForUser(ctx, "A@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt))

	all, err := f.reg.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))

	again, err := f.reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, again)
}
