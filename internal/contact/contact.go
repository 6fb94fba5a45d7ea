// Package contact stores storefront contact-form messages and forwards them
// to the admin inbox.
package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, m Message) error {
	const op = "contact.Insert"
	_, err := r.DB.Exec(ctx, `INSERT INTO contact_messages (id, name, email, message, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Name, m.Email, m.Message, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type store interface {
	Insert(ctx context.Context, m Message) error
}

type sender interface {
	Send(ctx context.Context, msgs ...notify.Message)
}

type Service struct {
	Store     store
	Notifier  sender
	Templates *notify.Templates
}

func (s *Service) Submit(ctx context.Context, name, email, message string) (Message, error) {
	m := Message{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Message:   strings.TrimSpace(message),
		CreatedAt: time.Now().UTC(),
	}
	if m.Name == "" || m.Email == "" || m.Message == "" {
		return Message{}, apperr.Validation("Name, email and message are required")
	}
	if err := s.Store.Insert(ctx, m); err != nil {
		return Message{}, err
	}
	s.Notifier.Send(ctx, s.Templates.ContactReceived(m.Name, m.Email, m.Message))
	return m, nil
}
