package outbox

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/lumina-store/internal/kafka"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

type claimer interface {
	Claim(ctx context.Context, limit int, publish func([]Record) error) (int, error)
}

type publisher interface {
	Write(ctx context.Context, msgs ...kafkago.Message) error
}

// Relay moves claimed outbox records onto the notification topic.
type Relay struct {
	Store    claimer
	Pub      publisher
	Batch    int
	Producer string
	Log      *zap.Logger

	mu sync.Mutex // one pass at a time per process
}

// RunOnce publishes at most one batch and reports how many records moved.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := r.Batch
	if batch <= 0 {
		batch = 100
	}
	return r.Store.Claim(ctx, batch, func(recs []Record) error {
		msgs := make([]kafkago.Message, 0, len(recs))
		for _, rec := range recs {
			env, err := kafkax.NewEnvelope(rec.ID, notify.EventNotificationRequested, r.Producer, rec.Message.ID, rec.Message)
			if err != nil {
				return err
			}
			km, err := env.Message(notify.PartitionKey(rec.Message.To))
			if err != nil {
				return err
			}
			msgs = append(msgs, km)
		}
		return r.Pub.Write(ctx, msgs...)
	})
}

// Drain runs batches until the outbox is empty or a pass fails.
func (r *Relay) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.RunOnce(ctx)
		if err != nil {
			r.Log.Error("outbox relay failed", zap.Error(err))
			return
		}
		if n > 0 {
			r.Log.Debug("outbox relayed", zap.Int("count", n))
		}
		if n < r.Batch || n == 0 {
			return
		}
	}
}

// Schedule registers Drain on c using a cron spec such as "@every 2s".
func (r *Relay) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() { r.Drain(ctx) })
}
