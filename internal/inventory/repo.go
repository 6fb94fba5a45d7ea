package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, price::text, description, image, category, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	const op = "inventory.List"
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	const op = "inventory.Get"
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]Product, error) {
	const op = "inventory.GetMany"
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := collectProducts(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make(map[string]Product, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *Repo) Create(ctx context.Context, p Product) (Product, error) {
	const op = "inventory.Create"
	created, err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products (id, name, price, description, image, category, stock)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Price.String(), p.Description, p.Image, p.Category, p.Stock))
	if err != nil {
		return Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// Update locks the row, applies the patch and returns the stock it held
// before. after, when set, runs in the same transaction; its error rolls the
// edit back.
func (r *Repo) Update(ctx context.Context, id string, patch Patch, after AfterUpdate) (int, Product, error) {
	const op = "inventory.Update"
	var price *string
	if patch.Price != nil {
		s := patch.Price.String()
		price = &s
	}

	var prior int
	var p Product
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			WITH prev AS (SELECT id, stock FROM products WHERE id=$1 FOR UPDATE)
			UPDATE products p SET
				name        = COALESCE($2, p.name),
				price       = COALESCE($3::numeric, p.price),
				description = COALESCE($4, p.description),
				image       = COALESCE($5, p.image),
				category    = COALESCE($6, p.category),
				stock       = COALESCE($7, p.stock),
				updated_at  = now()
			FROM prev WHERE p.id = prev.id
			RETURNING prev.stock, p.id, p.name, p.price::text, p.description, p.image, p.category, p.stock, p.created_at, p.updated_at`,
			id, patch.Name, price, patch.Description, patch.Image, patch.Category, patch.Stock,
		).Scan(&prior, &p.ID, &p.Name, &p.Price, &p.Description, &p.Image, &p.Category, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return err
		}
		if after == nil {
			return nil
		}
		return after(ctx, tx, prior, p)
	})
	if postgres.IsNoRows(err) {
		return 0, Product{}, ErrNotFound
	}
	if err != nil {
		return 0, Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return prior, p, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	const op = "inventory.Delete"
	tag, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock subtracts qty clamped at zero in a single statement, so
// concurrent decrements of one product never lose an update.
func (r *Repo) DecrementStock(ctx context.Context, id string, qty int) (prior, next int, err error) {
	const op = "inventory.DecrementStock"
	err = r.DB.QueryRow(ctx, `
		WITH prev AS (SELECT id, stock FROM products WHERE id=$1 FOR UPDATE)
		UPDATE products p SET stock = GREATEST(p.stock - $2, 0), updated_at = now()
		FROM prev WHERE p.id = prev.id
		RETURNING prev.stock, p.stock`, id, qty).Scan(&prior, &next)
	if postgres.IsNoRows(err) {
		return 0, 0, ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return prior, next, nil
}
