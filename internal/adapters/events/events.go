// Package events publishes allocation events to downstream consumers.
package events

import (
	"context"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

// Publisher delivers an event. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, e model.Event) error
}

// LogPublisher writes events to a logger.
type LogPublisher struct {
	log logger.Logger
}

var _ Publisher = (*LogPublisher)(nil)

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, e model.Event) error {
	fields := []logger.Field{
		logger.String("event_id", e.ID),
		logger.String("type", string(e.Type)),
		logger.String("item_id", e.ItemID),
		logger.String("worker_id", e.WorkerID),
		logger.String("assignment_id", e.AssignmentID),
	}
	for k, v := range e.Attributes {
		fields = append(fields, logger.Any(k, v))
	}
	p.log.Info(ctx, "event", fields...)
	return nil
}

// Multi fans an event out to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e model.Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Recorder keeps published events in memory. Tests use it to assert emissions.
type Recorder struct {
	ch chan model.Event
}

// NewRecorder creates a Recorder buffering up to size events.
func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan model.Event, size)}
}

func (r *Recorder) Publish(_ context.Context, e model.Event) error {
	select {
	case r.ch <- e:
	default:
	}
	return nil
}

// Drain returns every event recorded so far.
func (r *Recorder) Drain() []model.Event {
	var out []model.Event
	for {
		select {
		case e := <-r.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
