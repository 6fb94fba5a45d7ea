package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `id, name, email, password_hash, role, status, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt)
	return u, err
}

func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	const op = "users.Create"
	out, err := scanUser(r.DB.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Status))
	if postgres.IsUniqueViolation(err) {
		return User{}, ErrExists
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	out.Addresses = []Address{}
	return out, nil
}

// UpsertAdmin creates the admin account or promotes and re-keys an existing
// row with the same email.
func (r *Repo) UpsertAdmin(ctx context.Context, u User) (User, error) {
	const op = "users.UpsertAdmin"
	out, err := scanUser(r.DB.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, 'admin', 'active')
		ON CONFLICT ((lower(email))) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, role = 'admin', status = 'active'
		RETURNING `+userColumns, u.ID, u.Name, u.Email, u.PasswordHash))
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *Repo) Get(ctx context.Context, id string) (User, error) {
	return r.getBy(ctx, "users.Get", `id = $1`, id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getBy(ctx, "users.GetByEmail", `lower(email) = lower($1)`, email)
}

func (r *Repo) getBy(ctx context.Context, op, where string, arg any) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if postgres.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if u.Addresses, err = r.ListAddresses(ctx, u.ID); err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	const op = "users.List"
	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) { return scanUser(row) })
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	index := make(map[string]int, len(list))
	ids := make([]string, len(list))
	for i := range list {
		list[i].Addresses = []Address{}
		index[list[i].ID] = i
		ids[i] = list[i].ID
	}
	rows, err = r.DB.Query(ctx, `SELECT user_id, `+addressColumns+` FROM addresses
		WHERE user_id = ANY($1::uuid[]) ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		var uid string
		var a Address
		if err := rows.Scan(&uid, &a.ID, &a.Street, &a.City, &a.State, &a.Zip, &a.Country, &a.IsDefault); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		i := index[uid]
		list[i].Addresses = append(list[i].Addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (r *Repo) SetStatus(ctx context.Context, id, status string) (User, error) {
	const op = "users.SetStatus"
	tag, err := r.DB.Exec(ctx, `UPDATE users SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return User{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	const op = "users.Delete"
	tag, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const addressColumns = `id, street, city, state, zip, country, is_default`

func collectAddresses(rows pgx.Rows) ([]Address, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Address, error) {
		var a Address
		err := row.Scan(&a.ID, &a.Street, &a.City, &a.State, &a.Zip, &a.Country, &a.IsDefault)
		return a, err
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listAddresses(ctx context.Context, q querier, userID string) ([]Address, error) {
	rows, err := q.Query(ctx, `SELECT `+addressColumns+` FROM addresses WHERE user_id=$1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	return collectAddresses(rows)
}

func (r *Repo) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	const op = "users.ListAddresses"
	out, err := listAddresses(ctx, r.DB, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// AddAddress appends an address. The first address becomes the default, and
// a new default clears the flag on the others.
func (r *Repo) AddAddress(ctx context.Context, userID string, a Address) ([]Address, error) {
	const op = "users.AddAddress"
	var out []Address
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM addresses WHERE user_id=$1`, userID).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			a.IsDefault = true
		} else if a.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default=false WHERE user_id=$1`, userID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO addresses (id, user_id, street, city, state, zip, country, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, userID, a.Street, a.City, a.State, a.Zip, a.Country, a.IsDefault); err != nil {
			return err
		}
		var err error
		out, err = listAddresses(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, wrapAddrErr(op, err)
	}
	return out, nil
}

func (r *Repo) UpdateAddress(ctx context.Context, userID, id string, p AddressPatch) ([]Address, error) {
	const op = "users.UpdateAddress"
	var out []Address
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		if p.IsDefault != nil && *p.IsDefault {
			if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default=false WHERE user_id=$1`, userID); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `
			UPDATE addresses SET
				street     = COALESCE($3, street),
				city       = COALESCE($4, city),
				state      = COALESCE($5, state),
				zip        = COALESCE($6, zip),
				country    = COALESCE($7, country),
				is_default = COALESCE($8, is_default)
			WHERE id=$1 AND user_id=$2`,
			id, userID, p.Street, p.City, p.State, p.Zip, p.Country, p.IsDefault)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAddressNotFound
		}
		out, err = listAddresses(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, wrapAddrErr(op, err)
	}
	return out, nil
}

// DeleteAddress removes the address if the user owns it; an unknown id is a no-op.
func (r *Repo) DeleteAddress(ctx context.Context, userID, id string) ([]Address, error) {
	const op = "users.DeleteAddress"
	if _, err := r.DB.Exec(ctx, `DELETE FROM addresses WHERE id=$1 AND user_id=$2`, id, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r.ListAddresses(ctx, userID)
}

func lockUser(ctx context.Context, tx pgx.Tx, userID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&id)
	if postgres.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func wrapAddrErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAddressNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
