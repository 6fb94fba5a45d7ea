package restock

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/notify"
	"github.com/ariefcatur/lumina-store/internal/outbox"
	"github.com/ariefcatur/lumina-store/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const requestColumns = `id, product_id, user_email, user_name, status, created_at, resolved_at`

func scanRequest(row pgx.Row) (Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.ProductID, &r.UserEmail, &r.UserName, &r.Status, &r.CreatedAt, &r.ResolvedAt)
	return r, err
}

func (r *Repo) Insert(ctx context.Context, req Request) (Request, error) {
	const op = "restock.Insert"
	out, err := insert(ctx, r.DB, req)
	if err != nil {
		return Request{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func insert(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, req Request) (Request, error) {
	return scanRequest(q.QueryRow(ctx, `
		INSERT INTO restock_requests (id, product_id, user_email, user_name, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING `+requestColumns,
		req.ID, req.ProductID, req.UserEmail, req.UserName, req.CreatedAt))
}

// UpsertPending returns the pending request for (product, email) if one
// exists, refreshing the name, or inserts req. A transaction-scoped advisory
// lock on the pair keeps two concurrent calls from both inserting.
func (r *Repo) UpsertPending(ctx context.Context, req Request) (Request, bool, error) {
	const op = "restock.UpsertPending"
	var out Request
	var created bool
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || lower($2)))`,
			req.ProductID, req.UserEmail); err != nil {
			return err
		}
		existing, err := scanRequest(tx.QueryRow(ctx, `
			SELECT `+requestColumns+` FROM restock_requests
			WHERE product_id=$1 AND lower(user_email)=lower($2) AND status='pending'
			ORDER BY created_at DESC LIMIT 1`, req.ProductID, req.UserEmail))
		switch {
		case err == nil:
			out, err = scanRequest(tx.QueryRow(ctx, `
				UPDATE restock_requests SET user_name = COALESCE(NULLIF($2, ''), user_name)
				WHERE id=$1 RETURNING `+requestColumns, existing.ID, req.UserName))
			return err
		case postgres.IsNoRows(err):
			out, err = insert(ctx, tx, req)
			created = err == nil
			return err
		default:
			return err
		}
	})
	if err != nil {
		return Request{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return out, created, nil
}

// ResolvePendingWithIntents flips every pending request of the product to
// sent and inserts the outbox intents build returns for them, all inside tx.
// If the outbox insert fails the caller's rollback leaves the requests pending.
func (r *Repo) ResolvePendingWithIntents(ctx context.Context, tx pgx.Tx, productID string, at time.Time,
	build func([]Request) []notify.Message) ([]Request, error) {
	const op = "restock.ResolvePendingWithIntents"
	rows, err := tx.Query(ctx, `
		UPDATE restock_requests SET status='sent', resolved_at=$2
		WHERE product_id=$1 AND status='pending'
		RETURNING `+requestColumns, productID, at)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Request, error) { return scanRequest(row) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	if err := outbox.EnqueueTx(ctx, tx, build(out)...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

const joinedListing = `
	SELECT r.id, r.product_id, r.user_email, r.user_name, r.status, r.created_at, r.resolved_at,
	       p.name, p.image, p.price::text, p.stock
	FROM restock_requests r
	JOIN products p ON p.id = r.product_id`

func (r *Repo) ListByEmail(ctx context.Context, email string) ([]Request, error) {
	const op = "restock.ListByEmail"
	out, err := r.listJoined(ctx, joinedListing+` WHERE lower(r.user_email) = lower($1) ORDER BY r.created_at DESC, r.id`, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]Request, error) {
	const op = "restock.ListAll"
	out, err := r.listJoined(ctx, joinedListing+` ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repo) listJoined(ctx context.Context, sql string, args ...any) ([]Request, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Request, error) {
		var req Request
		var p ProductSummary
		err := row.Scan(&req.ID, &req.ProductID, &req.UserEmail, &req.UserName, &req.Status, &req.CreatedAt, &req.ResolvedAt,
			&p.Name, &p.Image, &p.Price, &p.Stock)
		p.ID = req.ProductID
		req.Product = &p
		return req, err
	})
}
