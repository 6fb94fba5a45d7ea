package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/gomail.v2"

	kafkax "github.com/ariefcatur/lumina-store/internal/kafka"
	"github.com/ariefcatur/lumina-store/pkg/retry"
)

func testTemplates() *Templates {
	return &Templates{
		AdminEmail:    "admin@lumina.test",
		StorefrontURL: "https://shop.lumina.test",
		Now:           func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func sampleOrder() OrderSummary {
	return OrderSummary{
		ID:               "6f1c2a9e-1111-4c5d-9e8f-0a1b2c3d4e5f",
		FirstName:        "Ava",
		LastName:         "Stone",
		Email:            "ava@example.com",
		PaymentReference: "pay_123",
		Status:           "shipped",
		Lines: []OrderLine{
			{Name: "Velvet Rose Lipstick", Quantity: 2, LineTotal: decimal.NewFromInt(56)},
		},
		Total: decimal.NewFromInt(56),
	}
}

func TestTemplatesSubjectsAndRecipients(t *testing.T) {
	tpl := testTemplates()
	o := sampleOrder()
	p := ProductRef{ID: "p-1", Name: "Radiance Glow Serum", Image: "https://img.test/serum.jpg", Stock: 7}

	tests := []struct {
		name    string
		msg     Message
		to      string
		subject string
		text    string
	}{
		{"confirmation", tpl.OrderConfirmation(o), "ava@example.com", "Order Confirmation - Lumina Luxury", "Your order #" + o.ID + " has been received."},
		{"new order", tpl.NewOrderAlert(o), "admin@lumina.test", "New Order Alert", "A new order has been placed by ava@example.com"},
		{"out of stock", tpl.OutOfStock(p), "admin@lumina.test", "URGENT: Radiance Glow Serum is Out of Stock", "Radiance Glow Serum is now out of stock."},
		{"low stock", tpl.LowStock(p), "admin@lumina.test", "Alert: Radiance Glow Serum Stock is Low (7)", "Radiance Glow Serum stock is low."},
		{"back in stock", tpl.BackInStock(p, "mia@example.com", "Mia"), "mia@example.com", "Back in Stock: Radiance Glow Serum", "Radiance Glow Serum is now available at Lumina Luxury!"},
		{"order status", tpl.OrderStatusUpdate(o), "ava@example.com", "Order Status Update: SHIPPED", "Your order status has been updated to shipped."},
		{"restock requested", tpl.RestockRequested(p, "mia@example.com", "Mia"), "admin@lumina.test", "New Stock Notification Request", "User Mia requested notification for Radiance Glow Serum"},
		{"welcome", tpl.Welcome("mia@example.com", "Mia"), "mia@example.com", "Welcome to Lumina Luxury", "Welcome Mia! Your account has been created."},
		{"login", tpl.LoginAlert("mia@example.com", "Mia"), "mia@example.com", "New Login Detected - Lumina Luxury", "A new login was detected on your account."},
		{"admin login", tpl.AdminLogin(), "admin@lumina.test", "Admin Login Notification", "The admin account has been accessed."},
		{"account status", tpl.AccountStatus("mia@example.com", "Mia", "suspended"), "mia@example.com", "Account Status Update: SUSPENDED", "Your account has been suspended."},
		{"admin message default subject", tpl.AdminMessage("mia@example.com", "Mia", " ", "Hello"), "mia@example.com", "Message from Lumina Luxury", "Hello"},
		{"account deleted", tpl.AccountDeleted("mia@example.com", "Mia"), "mia@example.com", "Account Deletion Notice", "Your account has been deleted."},
		{"contact", tpl.ContactReceived("Mia", "mia@example.com", "Hi"), "admin@lumina.test", "New Contact from Mia", "Name: Mia\nEmail: mia@example.com\nMessage: Hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.to, tt.msg.To)
			assert.Equal(t, tt.subject, tt.msg.Subject)
			assert.Equal(t, tt.text, tt.msg.Text)
			assert.NotEmpty(t, tt.msg.HTML)
			assert.NotEmpty(t, tt.msg.ID)
		})
	}
}

func TestTemplatesEscapeUserInput(t *testing.T) {
	tpl := testTemplates()
	o := sampleOrder()
	o.FirstName = `<script>alert("x")</script>`

	msg := tpl.OrderConfirmation(o)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
	assert.Contains(t, msg.HTML, "Velvet Rose Lipstick x 2")
	assert.Contains(t, msg.HTML, "$56.00")
}

func TestTemplatesAdminMessageKeepsLineBreaks(t *testing.T) {
	msg := testTemplates().AdminMessage("mia@example.com", "Mia", "Your order", "line one\nline <two>")
	assert.Equal(t, "Your order", msg.Subject)
	assert.Contains(t, msg.HTML, "line one<br>line &lt;two&gt;")
}

func TestTemplatesContactSetsReplyTo(t *testing.T) {
	msg := testTemplates().ContactReceived("Mia", "mia@example.com", "Hi")
	assert.Equal(t, "mia@example.com", msg.ReplyTo)
}

func TestOrderSummaryShortID(t *testing.T) {
	assert.Equal(t, "3D4E5F", sampleOrder().ShortID())
	assert.Equal(t, "ABC", OrderSummary{ID: "abc"}.ShortID())
}

type recordingOutbox struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (o *recordingOutbox) Enqueue(_ context.Context, msgs ...Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.msgs = append(o.msgs, msgs...)
	return nil
}

func TestNotifierSend(t *testing.T) {
	t.Run("SkipsMessagesWithoutRecipient", func(t *testing.T) {
		ob := &recordingOutbox{}
		n := &Notifier{Outbox: ob, Log: zap.NewNop()}

		n.Send(context.Background(),
			NewMessage(KindNewOrderAlert, "", "New Order Alert", "x", ""),
			NewMessage(KindOrderConfirmation, "ava@example.com", "Order Confirmation - Lumina Luxury", "x", ""),
		)

		require.Len(t, ob.msgs, 1)
		assert.Equal(t, "ava@example.com", ob.msgs[0].To)
	})

	t.Run("EnqueueFailureIsLoggedNotReturned", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		n := &Notifier{Outbox: &recordingOutbox{err: errors.New("db down")}, Log: zap.New(core)}

		assert.NotPanics(t, func() {
			n.Send(context.Background(), NewMessage(KindWelcome, "mia@example.com", "Welcome", "x", ""))
		})
		require.Equal(t, 1, logs.FilterMessage("notification enqueue failed").Len())
	})

	t.Run("NothingToSend", func(t *testing.T) {
		ob := &recordingOutbox{err: errors.New("must not be called")}
		n := &Notifier{Outbox: ob, Log: zap.NewNop()}
		n.Send(context.Background())
		assert.Empty(t, ob.msgs)
	})
}

type fakeMailer struct {
	mu    sync.Mutex
	errs  []error
	calls int
	sent  []*gomail.Message
}

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return err
		}
	}
	m.sent = append(m.sent, msgs...)
	return nil
}

func testDispatcher(m Mailer) *Dispatcher {
	d := NewDispatcher(m, "store@lumina.test", "Lumina Luxury", 3)
	d.retry.Backoff = retry.ConstantBackoff(time.Millisecond)
	return d
}

func TestDispatcherDeliver(t *testing.T) {
	msg := NewMessage(KindWelcome, "mia@example.com", "Welcome to Lumina Luxury", "Welcome Mia!", "<p>Welcome</p>")
	msg.ReplyTo = "help@lumina.test"

	t.Run("BuildsHeaders", func(t *testing.T) {
		m := &fakeMailer{}
		require.NoError(t, testDispatcher(m).Deliver(context.Background(), msg))

		require.Len(t, m.sent, 1)
		sent := m.sent[0]
		assert.Equal(t, []string{`"Lumina Luxury" <store@lumina.test>`}, sent.GetHeader("From"))
		assert.Equal(t, []string{"mia@example.com"}, sent.GetHeader("To"))
		assert.Equal(t, []string{"Welcome to Lumina Luxury"}, sent.GetHeader("Subject"))
		assert.Equal(t, []string{"help@lumina.test"}, sent.GetHeader("Reply-To"))
	})

	t.Run("RetriesTransientFailures", func(t *testing.T) {
		m := &fakeMailer{errs: []error{errors.New("dial tcp: timeout"), &textproto.Error{Code: 421, Msg: "busy"}}}
		require.NoError(t, testDispatcher(m).Deliver(context.Background(), msg))
		assert.Equal(t, 3, m.calls)
	})

	t.Run("StopsOnPermanentFailure", func(t *testing.T) {
		m := &fakeMailer{errs: []error{&textproto.Error{Code: 550, Msg: "no such user"}}}
		err := testDispatcher(m).Deliver(context.Background(), msg)
		require.Error(t, err)
		assert.Equal(t, 1, m.calls)
	})

	t.Run("GivesUpAfterMaxAttempts", func(t *testing.T) {
		down := errors.New("connection refused")
		m := &fakeMailer{errs: []error{down, down, down, down}}
		err := testDispatcher(m).Deliver(context.Background(), msg)
		require.ErrorIs(t, err, down)
		assert.Equal(t, 3, m.calls)
	})

	t.Run("RejectsMissingRecipient", func(t *testing.T) {
		m := &fakeMailer{}
		err := testDispatcher(m).Deliver(context.Background(), Message{Subject: "x"})
		require.ErrorIs(t, err, errNoRecipient)
		assert.Zero(t, m.calls)
	})
}

type fakeDeduper struct {
	seen map[string]bool
	err  error
}

func (d *fakeDeduper) FirstSeen(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

type fakeDeliverer struct {
	err       error
	delivered []Message
}

func (d *fakeDeliverer) Deliver(_ context.Context, msg Message) error {
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, msg)
	return nil
}

type fakeDead struct{ published [][]byte }

func (d *fakeDead) Publish(_, value []byte, _ ...kafkago.Header) error {
	d.published = append(d.published, value)
	return nil
}

func notificationMessage(t *testing.T, msg Message) kafkago.Message {
	t.Helper()
	env, err := kafkax.NewEnvelope(msg.ID, EventNotificationRequested, "lumina-api", "", msg)
	require.NoError(t, err)
	km, err := env.Message(PartitionKey(msg.To))
	require.NoError(t, err)
	return km
}

func TestWorkerHandle(t *testing.T) {
	msg := NewMessage(KindBackInStock, "mia@example.com", "Back in Stock: Serum", "Serum is now available", "")

	t.Run("DeliversOnce", func(t *testing.T) {
		mail := &fakeDeliverer{}
		w := &Worker{Dedup: &fakeDeduper{seen: map[string]bool{}}, Mail: mail, Log: zap.NewNop()}
		km := notificationMessage(t, msg)

		require.NoError(t, w.Handle(context.Background(), km))
		require.NoError(t, w.Handle(context.Background(), km))

		require.Len(t, mail.delivered, 1)
		assert.Equal(t, msg.Subject, mail.delivered[0].Subject)
	})

	t.Run("DedupOutageStillDelivers", func(t *testing.T) {
		mail := &fakeDeliverer{}
		w := &Worker{Dedup: &fakeDeduper{err: errors.New("redis down")}, Mail: mail, Log: zap.NewNop()}

		require.NoError(t, w.Handle(context.Background(), notificationMessage(t, msg)))
		assert.Len(t, mail.delivered, 1)
	})

	t.Run("UndeliverableGoesToDeadLetter", func(t *testing.T) {
		dead := &fakeDead{}
		w := &Worker{
			Dedup: &fakeDeduper{seen: map[string]bool{}},
			Mail:  &fakeDeliverer{err: errors.New("smtp down")},
			Dead:  dead,
			Log:   zap.NewNop(),
		}
		km := notificationMessage(t, msg)

		require.NoError(t, w.Handle(context.Background(), km))
		require.Len(t, dead.published, 1)
		assert.Equal(t, km.Value, dead.published[0])
	})

	t.Run("IgnoresGarbageAndOtherEvents", func(t *testing.T) {
		mail := &fakeDeliverer{}
		w := &Worker{Dedup: &fakeDeduper{seen: map[string]bool{}}, Mail: mail, Log: zap.NewNop()}

		require.NoError(t, w.Handle(context.Background(), kafkago.Message{Value: []byte("not json")}))

		other, err := json.Marshal(kafkax.Envelope{EventID: "e1", EventType: "OrderCreated", Payload: json.RawMessage(`{}`)})
		require.NoError(t, err)
		require.NoError(t, w.Handle(context.Background(), kafkago.Message{Value: other}))

		assert.Empty(t, mail.delivered)
	})
}
