// Package events moves user change events between the services layer and
// the message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroverse/apiserver/internal/mq"
	"github.com/heroverse/apiserver/types"
)

// Broker is the subset of mq.MQ used here.
type Broker interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// Publisher encodes user events as JSON and publishes them to one channel.
type Publisher struct {
	broker  Broker
	channel string
}

func NewPublisher(broker Broker, channel string) *Publisher {
	return &Publisher{broker: broker, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, event types.UserEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.broker.Publish(ctx, p.channel, data, map[string]string{
		mq.AttrContentType: "application/json",
		mq.AttrEventType:   string(event.Type),
		mq.AttrOrderingKey: event.UserID,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Consume decodes each message on the channel and passes it to handle until
// ctx is done. Messages that are not valid events are acknowledged and
// skipped.
func Consume(ctx context.Context, broker Broker, channel string, handle func(context.Context, types.UserEvent) error) error {
	return broker.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
		var event types.UserEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil || event.Type == "" {
			return nil
		}
		return handle(ctx, event)
	})
}
