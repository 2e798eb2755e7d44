// Package notify fans domain events out to delivery sinks and parks failed
// deliveries in a durable outbox.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"potencialize/internal/models"
)

// Sink delivers events of the types it accepts.
type Sink interface {
	Name() string
	Accepts(eventType string) bool
	Deliver(ctx context.Context, e models.Event) error
}

type Dispatcher struct {
	sinks       map[string]Sink
	order       []string
	outbox      *Outbox
	maxAttempts int
	logger      *zap.Logger
}

// NewDispatcher accepts a nil outbox; failed deliveries are then only logged.
func NewDispatcher(outbox *Outbox, maxAttempts int, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	d := &Dispatcher{sinks: map[string]Sink{}, outbox: outbox, maxAttempts: maxAttempts, logger: logger}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		d.sinks[s.Name()] = s
		d.order = append(d.order, s.Name())
	}
	return d
}

// Publish never fails the caller: events are already persisted by the time
// they get here.
func (d *Dispatcher) Publish(ctx context.Context, events ...models.Event) {
	if d == nil {
		return
	}
	for _, e := range events {
		for _, name := range d.order {
			s := d.sinks[name]
			if !s.Accepts(e.Type) {
				continue
			}
			if err := s.Deliver(ctx, e); err != nil {
				d.park(Pending{Sink: name, Event: e, Attempts: 1, LastErr: err.Error()})
			}
		}
	}
}

func (d *Dispatcher) park(p Pending) {
	d.logger.Warn("notification delivery failed",
		zap.String("sink", p.Sink), zap.String("event", p.Event.Type),
		zap.String("event_id", p.Event.ID), zap.Int("attempts", p.Attempts), zap.String("error", p.LastErr))
	if d.outbox == nil {
		return
	}
	if err := d.outbox.Enqueue(p); err != nil {
		d.logger.Error("outbox enqueue failed", zap.String("event_id", p.Event.ID), zap.Error(err))
	}
}

// Drain retries up to limit parked deliveries and reports how many went out.
func (d *Dispatcher) Drain(ctx context.Context, limit int) (int, error) {
	if d == nil || d.outbox == nil {
		return 0, nil
	}
	batch, err := d.outbox.Batch(limit)
	if err != nil {
		return 0, err
	}
	delivered := 0
	var errs error
	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.outbox.Remove(p); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		s, ok := d.sinks[p.Sink]
		if !ok {
			d.logger.Warn("dropping notification for unknown sink", zap.String("sink", p.Sink))
			continue
		}
		if err := s.Deliver(ctx, p.Event); err != nil {
			p.Attempts++
			p.LastErr = err.Error()
			if p.Attempts >= d.maxAttempts {
				d.logger.Error("notification dropped after retries",
					zap.String("sink", p.Sink), zap.String("event_id", p.Event.ID), zap.Int("attempts", p.Attempts))
				continue
			}
			d.park(p)
			continue
		}
		delivered++
	}
	return delivered, errs
}

// LogSink writes every event to the structured log.
type LogSink struct {
	Logger *zap.Logger
}

func (LogSink) Name() string          { return "log" }
func (LogSink) Accepts(_ string) bool { return true }

func (s LogSink) Deliver(_ context.Context, e models.Event) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("domain event",
		zap.String("type", e.Type), zap.String("entity", e.EntityKind), zap.Int64("entity_id", e.EntityID),
		zap.Int64("actor_id", e.ActorID), zap.Any("payload", e.Payload))
	return nil
}
