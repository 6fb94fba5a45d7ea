// Package restock keeps "notify me" requests for sold-out products.
package restock

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/inventory"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

type store interface {
	Insert(ctx context.Context, req Request) (Request, error)
	UpsertPending(ctx context.Context, req Request) (Request, bool, error)
	ResolvePendingWithIntents(ctx context.Context, tx pgx.Tx, productID string, at time.Time, build func([]Request) []notify.Message) ([]Request, error)
	ListByEmail(ctx context.Context, email string) ([]Request, error)
	ListAll(ctx context.Context) ([]Request, error)
}

type productLookup interface {
	Get(ctx context.Context, id string) (inventory.Product, error)
}

type sender interface {
	Send(ctx context.Context, msgs ...notify.Message)
}

type Registry struct {
	Store     store
	Products  productLookup
	Notifier  sender
	Templates *notify.Templates
	// Dedup keeps at most one pending request per product and email.
	Dedup bool
	Log   *zap.Logger
	Now   func() time.Time
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// RequestNotification records that email wants to hear when productID is
// back in stock. The admin is told about every newly created request.
func (r *Registry) RequestNotification(ctx context.Context, productID, email, name string) (Request, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Request{}, apperr.Validation("Email is required")
	}
	p, err := r.Products.Get(ctx, productID)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		UserEmail: email,
		UserName:  strings.TrimSpace(name),
		Status:    StatusPending,
		CreatedAt: r.now(),
	}
	created := true
	if r.Dedup {
		req, created, err = r.Store.UpsertPending(ctx, req)
	} else {
		req, err = r.Store.Insert(ctx, req)
	}
	if err != nil {
		return Request{}, err
	}

	if created {
		r.Notifier.Send(ctx, r.Templates.RestockRequested(p.Ref(), req.UserEmail, req.UserName))
	} else {
		r.Log.Debug("restock request already pending",
			zap.String("product_id", p.ID), zap.String("email", req.UserEmail))
	}
	return req, nil
}

// ResolveRestocked runs inside the transaction of the stock edit that brought
// p back from zero. Every pending request is marked sent and gets a
// back-in-stock intent in the same transaction; the resolved requests come
// back newest first.
func (r *Registry) ResolveRestocked(ctx context.Context, tx pgx.Tx, p inventory.Product) ([]Request, error) {
	out, err := r.Store.ResolvePendingWithIntents(ctx, tx, p.ID, r.now(), func(reqs []Request) []notify.Message {
		newestFirst(reqs)
		msgs := make([]notify.Message, len(reqs))
		for i, req := range reqs {
			msgs[i] = r.Templates.BackInStock(p.Ref(), req.UserEmail, req.UserName)
		}
		return msgs
	})
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}

func (r *Registry) ListForUser(ctx context.Context, email string) ([]Request, error) {
	out, err := r.Store.ListByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}

func (r *Registry) ListAll(ctx context.Context) ([]Request, error) {
	out, err := r.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}

func newestFirst(rs []Request) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}
