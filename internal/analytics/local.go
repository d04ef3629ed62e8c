package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/lexisearch/pkg/kafka"
)

// LocalPublisher delivers events straight to an aggregator through the same
// decoding path the Kafka consumer uses. It stands in for the producer when
// Kafka is disabled.
type LocalPublisher struct {
	handle kafka.MessageHandler
}

func NewLocalPublisher(agg *Aggregator) *LocalPublisher {
	return &LocalPublisher{handle: HandleEvent(agg)}
}

func (p *LocalPublisher) Publish(ctx context.Context, event kafka.Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshaling event %q: %w", event.Key, err)
	}
	return p.handle(ctx, []byte(event.Key), value)
}

func (p *LocalPublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
