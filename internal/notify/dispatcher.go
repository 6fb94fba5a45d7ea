package notify

import (
	"context"
	"errors"
	"net/textproto"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/ariefcatur/lumina-store/pkg/retry"
)

const defaultSendTimeout = 30 * time.Second

var errNoRecipient = errors.New("notify: message has no recipient")

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewSMTPDialer(host string, port int, user, pass string) *gomail.Dialer {
	return gomail.NewDialer(host, port, user, pass)
}

type Dispatcher struct {
	mailer  Mailer
	from    string
	retry   retry.RetryConfig
	timeout time.Duration
}

func NewDispatcher(m Mailer, fromAddr, fromName string, attempts int) *Dispatcher {
	return &Dispatcher{
		mailer: m,
		from:   gomail.NewMessage().FormatAddress(fromAddr, fromName),
		retry: retry.RetryConfig{
			MaxAttempts: attempts,
			Backoff:     retry.ExponentialBackoff(500 * time.Millisecond),
			ShouldRetry: transient,
		},
		timeout: defaultSendTimeout,
	}
}

// transient treats SMTP 5xx replies as permanent.
func transient(err error) bool {
	var tp *textproto.Error
	if errors.As(err, &tp) {
		return tp.Code < 500
	}
	return true
}

// Deliver sends msg with bounded retries and returns the last error.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errNoRecipient
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return retry.Do(ctx, d.retry, func() error {
		return d.mailer.DialAndSend(d.build(msg))
	})
}

func (d *Dispatcher) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}
