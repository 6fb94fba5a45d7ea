package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `o.id, o.user_id, o.status, o.total::text, o.client_total::text,
	o.payment_reference, o.shipping, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, extra ...any) (Order, error) {
	var o Order
	dest := []any{&o.ID, &o.UserID, &o.Status, &o.Total, &o.ClientTotal,
		&o.PaymentReference, &o.ShippingDetails, &o.CreatedAt, &o.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return o, err
}

// Create writes the order and its items in one transaction.
func (r *Repo) Create(ctx context.Context, o Order) (Order, error) {
	const op = "orders.Create"
	var clientTotal *string
	if o.ClientTotal.Valid {
		s := o.ClientTotal.Decimal.String()
		clientTotal = &s
	}

	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (id, user_id, status, total, client_total, payment_reference, shipping, created_at, updated_at)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $8)
			RETURNING created_at, updated_at`,
			o.ID, o.UserID, string(o.Status), o.Total.String(), clientTotal, o.PaymentReference, o.ShippingDetails, o.CreatedAt,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return err
		}

		b := &pgx.Batch{}
		for i, it := range o.Items {
			b.Queue(`INSERT INTO order_items (order_id, position, product_id, name, price, quantity, image)
			         VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
				o.ID, i, it.ProductID, it.Name, it.Price.String(), it.Quantity, it.Image)
		}
		return tx.SendBatch(ctx, b).Close()
	})
	if err != nil {
		return Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	const op = "orders.Get"
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id=$1`, id))
	if postgres.IsNoRows(err) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("%s: %w", op, err)
	}
	list := []Order{o}
	if err := r.attachItems(ctx, list); err != nil {
		return Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return list[0], nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	const op = "orders.ListByUser"
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders o
		WHERE o.user_id=$1 ORDER BY o.created_at DESC, o.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) { return scanOrder(row) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// ListAll returns every order with the owning user joined when there is one.
func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	const op = "orders.ListAll"
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+`, u.id, u.name, u.email
		FROM orders o LEFT JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var uid, name, email *string
		o, err := scanOrder(row, &uid, &name, &email)
		if err == nil && uid != nil {
			o.User = &UserRef{ID: *uid, Name: deref(name), Email: deref(email)}
		}
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, s Status) (Order, error) {
	const op = "orders.UpdateStatus"
	tag, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(s))
	if err != nil {
		return Order{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repo) attachItems(ctx context.Context, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		index[o.ID] = i
		list[i].Items = []Item{}
	}

	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, price::text, quantity, image
		FROM order_items WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it Item
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Price, &it.Quantity, &it.Image); err != nil {
			return err
		}
		i := index[orderID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
