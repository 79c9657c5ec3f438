// Package noop provides an event publisher that drops events. It backs
// local development and tests where no bus is configured.
package noop

import (
	"context"

	"memgraph/application/ports"
	"memgraph/domain/events"

	"go.uber.org/zap"
)

// Publisher logs events at debug level and discards them
type Publisher struct {
	logger *zap.Logger
}

// NewPublisher creates a discarding publisher
func NewPublisher(logger *zap.Logger) *Publisher {
	return &Publisher{logger: logger}
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Publish drops the event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("event dropped (noop publisher)",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
	)
	return nil
}

// PublishBatch drops all events
func (p *Publisher) PublishBatch(ctx context.Context, evs []events.DomainEvent) error {
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
