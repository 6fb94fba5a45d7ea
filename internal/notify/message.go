// Package notify turns business events into emails. Business code appends
// messages to an Outbox through a Notifier; cmd/notifier drains them and
// delivers through the Dispatcher.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindNewOrderAlert     Kind = "new_order_alert"
	KindOutOfStock        Kind = "out_of_stock"
	KindLowStock          Kind = "low_stock"
	KindBackInStock       Kind = "back_in_stock"
	KindOrderStatus       Kind = "order_status"
	KindRestockRequested  Kind = "restock_requested"
	KindWelcome           Kind = "welcome"
	KindLoginAlert        Kind = "login_alert"
	KindAdminLogin        Kind = "admin_login"
	KindAccountStatus     Kind = "account_status"
	KindAdminMessage      Kind = "admin_message"
	KindAccountDeleted    Kind = "account_deleted"
	KindContact           Kind = "contact"
)

type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewMessage(kind Kind, to, subject, text, html string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		Subject:   subject,
		Text:      text,
		HTML:      html,
		CreatedAt: time.Now().UTC(),
	}
}

// Outbox durably queues messages for later delivery.
type Outbox interface {
	Enqueue(ctx context.Context, msgs ...Message) error
}

// Notifier is what business operations call. Send never fails the caller:
// enqueue errors are logged and dropped.
type Notifier struct {
	Outbox Outbox
	Log    *zap.Logger
}

func (n *Notifier) Send(ctx context.Context, msgs ...Message) {
	ready := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.To == "" {
			n.Log.Warn("notification has no recipient, skipped", zap.String("kind", string(m.Kind)), zap.String("subject", m.Subject))
			continue
		}
		ready = append(ready, m)
	}
	if len(ready) == 0 {
		return
	}
	if err := n.Outbox.Enqueue(ctx, ready...); err != nil {
		fields := []zap.Field{zap.Int("count", len(ready)), zap.Error(err)}
		for _, m := range ready {
			fields = append(fields, zap.String(string(m.Kind), m.To))
		}
		n.Log.Error("notification enqueue failed", fields...)
	}
}
