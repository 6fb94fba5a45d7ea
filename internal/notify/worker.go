package notify

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/lumina-store/internal/kafka"
)

type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
}

type deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

type deadLetter interface {
	Publish(key, value []byte, headers ...kafkago.Header) error
}

// Worker consumes NotificationRequested events. Handle always returns nil so
// the offset is committed; undeliverable messages go to the dead letter topic.
type Worker struct {
	Dedup Deduper
	Mail  deliverer
	Dead  deadLetter
	Log   *zap.Logger
}

func (w *Worker) Handle(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		w.Log.Error("dropping undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != EventNotificationRequested {
		return nil
	}

	first, err := w.Dedup.FirstSeen(ctx, env.EventID)
	switch {
	case err != nil:
		w.Log.Warn("dedup unavailable, delivering anyway", zap.String("event_id", env.EventID), zap.Error(err))
	case !first:
		w.Log.Debug("duplicate notification skipped", zap.String("event_id", env.EventID))
		return nil
	}

	msg, err := kafkax.UnwrapPayload[Message](env.Payload)
	if err != nil {
		w.Log.Error("dropping notification with bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	if err := w.Mail.Deliver(ctx, msg); err != nil {
		w.Log.Error("notification undeliverable",
			zap.String("event_id", env.EventID), zap.String("kind", string(msg.Kind)), zap.String("to", msg.To), zap.Error(err))
		if w.Dead != nil {
			if perr := w.Dead.Publish(m.Key, m.Value, m.Headers...); perr != nil {
				w.Log.Error("dead letter publish failed", zap.String("event_id", env.EventID), zap.Error(perr))
			}
		}
		return nil
	}
	w.Log.Info("notification delivered",
		zap.String("event_id", env.EventID), zap.String("kind", string(msg.Kind)), zap.String("to", msg.To))
	return nil
}
