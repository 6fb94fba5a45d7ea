// Package outbox persists notification intents next to the business data and
// relays them to Kafka.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/notify"
	"github.com/ariefcatur/lumina-store/internal/postgres"
)

type Record struct {
	ID        string
	Message   notify.Message
	CreatedAt time.Time
}

type Store struct{ DB *pgxpool.Pool }

func (s *Store) Enqueue(ctx context.Context, msgs ...notify.Message) error {
	const op = "outbox.Enqueue"
	if len(msgs) == 0 {
		return nil
	}
	if err := s.DB.SendBatch(ctx, insertBatch(msgs)).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EnqueueTx inserts msgs inside tx, so the intents commit or roll back with
// the caller's own writes.
func EnqueueTx(ctx context.Context, tx pgx.Tx, msgs ...notify.Message) error {
	const op = "outbox.EnqueueTx"
	if len(msgs) == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, insertBatch(msgs)).Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func insertBatch(msgs []notify.Message) *pgx.Batch {
	b := &pgx.Batch{}
	for _, m := range msgs {
		b.Queue(`INSERT INTO notification_outbox (id, kind, recipient, payload, created_at)
		         VALUES ($1, $2, $3, $4, $5)`,
			m.ID, string(m.Kind), m.To, m, m.CreatedAt)
	}
	return b
}

// Claim locks up to limit unpublished records, hands them to publish and marks
// them published when publish succeeds. Concurrent relays skip locked rows.
func (s *Store) Claim(ctx context.Context, limit int, publish func([]Record) error) (int, error) {
	const op = "outbox.Claim"
	var n int
	err := postgres.InTx(ctx, s.DB, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, payload, created_at FROM notification_outbox
			WHERE published_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return err
		}
		recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
			var r Record
			err := row.Scan(&r.ID, &r.Message, &r.CreatedAt)
			return r, err
		})
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}

		if err := publish(recs); err != nil {
			return err
		}

		ids := make([]string, len(recs))
		for i, r := range recs {
			ids[i] = r.ID
		}
		if _, err := tx.Exec(ctx, `UPDATE notification_outbox SET published_at = now() WHERE id = ANY($1::uuid[])`, ids); err != nil {
			return err
		}
		n = len(recs)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
